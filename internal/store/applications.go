// internal/store/applications.go
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"visa-workers/internal/common/errors"
	"visa-workers/internal/common/logger"
	"visa-workers/internal/common/metrics"
	"visa-workers/internal/guidance"
)

const cacheKeyPrefix = "guidance:applications:"

// Cache results recorded on metrics.ApplicationCacheLookups.
const (
	CacheHit      = "hit"
	CacheMiss     = "miss"
	CacheError    = "error"
	CacheDisabled = "disabled"
)

const (
	listApplicationsQuery = `
		SELECT id, status, country_name, visa_type_name, progress_percentage
		FROM visa_applications
		WHERE user_id = $1
		ORDER BY updated_at DESC, id`

	getApplicationQuery = `
		SELECT id, status, country_name, visa_type_name, progress_percentage
		FROM visa_applications
		WHERE id = $1 AND user_id = $2`

	getChecklistQuery = `
		SELECT status, items
		FROM document_checklists
		WHERE application_id = $1`
)

// ApplicationStore reads the traveler's application snapshot. The list of
// applications is cached in Redis; single applications and checklists always
// come from PostgreSQL since they change while documents are reviewed.
type ApplicationStore struct {
	db     *sql.DB
	cache  *redis.Client
	ttl    time.Duration
	logger logger.Logger
}

// NewApplicationStore builds a store. A nil cache or a non-positive ttl
// disables caching.
func NewApplicationStore(db *sql.DB, cache *redis.Client, ttl time.Duration, log logger.Logger) *ApplicationStore {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &ApplicationStore{db: db, cache: cache, ttl: ttl, logger: log}
}

func CacheKey(userID string) string {
	return cacheKeyPrefix + userID
}

// ListByUser returns the user's applications, most recently updated first.
// A user without applications gets an empty, non-nil slice.
func (s *ApplicationStore) ListByUser(ctx context.Context, userID string) ([]guidance.Application, error) {
	if apps, ok := s.cached(ctx, userID); ok {
		return apps, nil
	}

	rows, err := s.db.QueryContext(ctx, listApplicationsQuery, userID)
	if err != nil {
		return nil, classify(ctx, "list_applications", err)
	}
	defer rows.Close()

	apps := make([]guidance.Application, 0)
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, classify(ctx, "list_applications", err)
		}
		apps = append(apps, app)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(ctx, "list_applications", err)
	}

	s.store(ctx, userID, apps)
	return apps, nil
}

// Get returns one application owned by userID.
func (s *ApplicationStore) Get(ctx context.Context, userID, applicationID string) (*guidance.Application, error) {
	app, err := scanApplication(s.db.QueryRowContext(ctx, getApplicationQuery, applicationID, userID))
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.NewApplicationNotFoundError(applicationID)
	}
	if err != nil {
		return nil, classify(ctx, "get_application", err)
	}
	return &app, nil
}

// Checklist returns the document checklist of an application, or nil when
// none has been generated yet.
func (s *ApplicationStore) Checklist(ctx context.Context, applicationID string) (*guidance.DocumentChecklist, error) {
	var (
		status string
		items  []byte
	)
	err := s.db.QueryRowContext(ctx, getChecklistQuery, applicationID).Scan(&status, &items)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, classify(ctx, "get_checklist", err)
	}

	checklist := &guidance.DocumentChecklist{Status: status}
	if len(items) > 0 {
		if err := json.Unmarshal(items, &checklist.Items); err != nil {
			return nil, errors.NewChecklistCorruptError(applicationID, err)
		}
	}
	return checklist, nil
}

// Invalidate drops the cached application list of userID.
func (s *ApplicationStore) Invalidate(ctx context.Context, userID string) error {
	if !s.cacheEnabled() {
		return nil
	}
	if err := s.cache.Del(ctx, CacheKey(userID)).Err(); err != nil {
		return fmt.Errorf("invalidate application cache: %w", err)
	}
	return nil
}

// Ping checks the database the store reads from.
func (s *ApplicationStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *ApplicationStore) cacheEnabled() bool {
	return s.cache != nil && s.ttl > 0
}

// cached serves the list from Redis. Any cache failure is a miss.
func (s *ApplicationStore) cached(ctx context.Context, userID string) ([]guidance.Application, bool) {
	if !s.cacheEnabled() {
		metrics.ApplicationCacheLookups.WithLabelValues(CacheDisabled).Inc()
		return nil, false
	}

	raw, err := s.cache.Get(ctx, CacheKey(userID)).Bytes()
	switch {
	case stderrors.Is(err, redis.Nil):
		metrics.ApplicationCacheLookups.WithLabelValues(CacheMiss).Inc()
		return nil, false
	case err != nil:
		metrics.ApplicationCacheLookups.WithLabelValues(CacheError).Inc()
		s.logger.Warn("application cache read failed", map[string]interface{}{
			"userId": userID,
			"error":  err.Error(),
		})
		return nil, false
	}

	apps := make([]guidance.Application, 0)
	if err := json.Unmarshal(raw, &apps); err != nil {
		metrics.ApplicationCacheLookups.WithLabelValues(CacheError).Inc()
		s.logger.Warn("discarding unreadable cache entry", map[string]interface{}{
			"userId": userID,
			"error":  err.Error(),
		})
		return nil, false
	}
	metrics.ApplicationCacheLookups.WithLabelValues(CacheHit).Inc()
	return apps, true
}

func (s *ApplicationStore) store(ctx context.Context, userID string, apps []guidance.Application) {
	if !s.cacheEnabled() {
		return
	}
	raw, err := json.Marshal(apps)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, CacheKey(userID), raw, s.ttl).Err(); err != nil {
		s.logger.Warn("application cache write failed", map[string]interface{}{
			"userId": userID,
			"error":  err.Error(),
		})
	}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanApplication(row rowScanner) (guidance.Application, error) {
	var app guidance.Application
	err := row.Scan(
		&app.ID,
		&app.Status,
		&app.Country.Name,
		&app.VisaType.Name,
		&app.ProgressPercentage,
	)
	return app, err
}

// classify maps a database failure onto the worker error codes.
func classify(ctx context.Context, queryType string, err error) *errors.StandardError {
	if stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(ctx.Err(), context.DeadlineExceeded) {
		return errors.NewQueryTimeoutError(queryType)
	}
	if errors.IsTransient(err) {
		return errors.NewDatabaseConnectionFailedError(err)
	}
	return errors.NewQueryExecutionFailedError(queryType, err)
}
