package store

import (
	"context"
	"database/sql"
	stderrors "errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"visa-workers/internal/common/errors"
	"visa-workers/internal/common/logger"
	"visa-workers/internal/guidance"
)

const (
	listPattern      = `SELECT id, status, country_name, visa_type_name, progress_percentage\s+FROM visa_applications\s+WHERE user_id = \$1`
	getPattern       = `SELECT id, status, country_name, visa_type_name, progress_percentage\s+FROM visa_applications\s+WHERE id = \$1 AND user_id = \$2`
	checklistPattern = `SELECT status, items\s+FROM document_checklists\s+WHERE application_id = \$1`
)

var applicationColumns = []string{"id", "status", "country_name", "visa_type_name", "progress_percentage"}

type fixture struct {
	store *ApplicationStore
	mock  sqlmock.Sqlmock
	redis *miniredis.Miniredis
}

func newFixture(t *testing.T, ttl time.Duration) *fixture {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return &fixture{
		store: NewApplicationStore(db, client, ttl, logger.NewTestLogger(t)),
		mock:  mock,
		redis: mr,
	}
}

func TestListByUser_CachesAfterDatabaseRead(t *testing.T) {
	f := newFixture(t, time.Minute)
	ctx := context.Background()

	f.mock.ExpectQuery(listPattern).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows(applicationColumns).
			AddRow("a2", guidance.StatusDraft, "Canada", "Work Permit", 10).
			AddRow("a1", guidance.StatusInProgress, "Japan", "Tourist Visa", 55))

	apps, err := f.store.ListByUser(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, apps, 2)
	assert.Equal(t, "a2", apps[0].ID)
	assert.Equal(t, "Japan", apps[1].Country.Name)
	assert.Equal(t, "Tourist Visa", apps[1].VisaType.Name)
	assert.Equal(t, 55, apps[1].ProgressPercentage)

	assert.True(t, f.redis.Exists(CacheKey("user-1")))
	assert.Equal(t, time.Minute, f.redis.TTL(CacheKey("user-1")))

	// Served from Redis; no further query expected.
	again, err := f.store.ListByUser(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, apps, again)
	require.NoError(t, f.mock.ExpectationsWereMet())

	require.NoError(t, f.store.Invalidate(ctx, "user-1"))
	assert.False(t, f.redis.Exists(CacheKey("user-1")))
}

func TestListByUser_EmptyIsNotNil(t *testing.T) {
	f := newFixture(t, time.Minute)

	f.mock.ExpectQuery(listPattern).
		WithArgs("user-2").
		WillReturnRows(sqlmock.NewRows(applicationColumns))

	apps, err := f.store.ListByUser(context.Background(), "user-2")
	require.NoError(t, err)
	assert.NotNil(t, apps)
	assert.Empty(t, apps)

	cached, err := f.redis.Get(CacheKey("user-2"))
	require.NoError(t, err)
	assert.Equal(t, "[]", cached)

	again, err := f.store.ListByUser(context.Background(), "user-2")
	require.NoError(t, err)
	assert.NotNil(t, again)
	assert.Empty(t, again)
}

func TestListByUser_CacheFailuresFallBackToDatabase(t *testing.T) {
	tests := []struct {
		name  string
		setup func(f *fixture)
	}{
		{"unreadable entry", func(f *fixture) { f.redis.Set(CacheKey("user-3"), "{not json") }},
		{"redis down", func(f *fixture) { f.redis.Close() }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, time.Minute)
			tt.setup(f)

			f.mock.ExpectQuery(listPattern).
				WithArgs("user-3").
				WillReturnRows(sqlmock.NewRows(applicationColumns).
					AddRow("a9", guidance.StatusSubmitted, "France", "Student Visa", 100))

			apps, err := f.store.ListByUser(context.Background(), "user-3")
			require.NoError(t, err)
			require.Len(t, apps, 1)
			assert.Equal(t, guidance.StatusSubmitted, apps[0].Status)
			require.NoError(t, f.mock.ExpectationsWereMet())
		})
	}
}

func TestListByUser_NoCache(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	s := NewApplicationStore(db, nil, 0, nil)

	for i := 0; i < 2; i++ {
		mock.ExpectQuery(listPattern).
			WithArgs("user-4").
			WillReturnRows(sqlmock.NewRows(applicationColumns).AddRow("a1", guidance.StatusDraft, "", "", 0))
	}

	for i := 0; i < 2; i++ {
		_, err := s.ListByUser(context.Background(), "user-4")
		require.NoError(t, err)
	}
	require.NoError(t, mock.ExpectationsWereMet())
	assert.NoError(t, s.Invalidate(context.Background(), "user-4"))
}

func TestGet(t *testing.T) {
	f := newFixture(t, time.Minute)

	f.mock.ExpectQuery(getPattern).
		WithArgs("a1", "user-1").
		WillReturnRows(sqlmock.NewRows(applicationColumns).
			AddRow("a1", guidance.StatusInProgress, "Japan", "Tourist Visa", 40))

	app, err := f.store.Get(context.Background(), "user-1", "a1")
	require.NoError(t, err)
	assert.Equal(t, "a1", app.ID)
	assert.Equal(t, 40, app.ProgressPercentage)

	f.mock.ExpectQuery(getPattern).
		WithArgs("a404", "user-1").
		WillReturnError(sql.ErrNoRows)

	_, err = f.store.Get(context.Background(), "user-1", "a404")
	stdErr, ok := errors.AsStandardError(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeApplicationNotFound, stdErr.Code)
	assert.False(t, stdErr.Retryable)
	assert.Equal(t, "a404", stdErr.Metadata["applicationId"])
}

func TestChecklist(t *testing.T) {
	f := newFixture(t, time.Minute)
	ctx := context.Background()

	f.mock.ExpectQuery(checklistPattern).
		WithArgs("a1").
		WillReturnRows(sqlmock.NewRows([]string{"status", "items"}).AddRow(
			guidance.ChecklistReady,
			[]byte(`[{"id":"i1","name":"Passport","category":"required","status":"verified"},{"id":"i2","category":"optional"}]`),
		))

	checklist, err := f.store.Checklist(ctx, "a1")
	require.NoError(t, err)
	require.NotNil(t, checklist)
	assert.Equal(t, guidance.ChecklistReady, checklist.Status)
	require.Len(t, checklist.Items, 2)
	assert.Equal(t, guidance.ItemVerified, checklist.Items[0].Status)
	assert.Empty(t, checklist.Items[1].Status)

	f.mock.ExpectQuery(checklistPattern).
		WithArgs("a2").
		WillReturnError(sql.ErrNoRows)

	checklist, err = f.store.Checklist(ctx, "a2")
	require.NoError(t, err)
	assert.Nil(t, checklist)

	f.mock.ExpectQuery(checklistPattern).
		WithArgs("a3").
		WillReturnRows(sqlmock.NewRows([]string{"status", "items"}).AddRow(guidance.ChecklistReady, []byte(`{"oops"`)))

	_, err = f.store.Checklist(ctx, "a3")
	stdErr, ok := errors.AsStandardError(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeChecklistCorrupt, stdErr.Code)

	require.NoError(t, f.mock.ExpectationsWereMet())
}

func TestClassify(t *testing.T) {
	expired, cancel := context.WithTimeout(context.Background(), -time.Second)
	defer cancel()

	tests := []struct {
		name      string
		ctx       context.Context
		err       error
		wantCode  errors.ErrorCode
		retryable bool
	}{
		{"bad connection", context.Background(), stderrors.New("driver: bad connection"), errors.ErrCodeDatabaseConnectionFailed, true},
		{"connection refused", context.Background(), stderrors.New("dial tcp 10.0.0.1:5432: connect: connection refused"), errors.ErrCodeDatabaseConnectionFailed, true},
		{"syntax error", context.Background(), stderrors.New(`pq: syntax error at or near "FORM"`), errors.ErrCodeQueryExecutionFailed, true},
		{"deadline", context.Background(), context.DeadlineExceeded, errors.ErrCodeQueryTimeout, true},
		{"expired context", expired, stderrors.New("pq: canceling statement"), errors.ErrCodeQueryTimeout, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stdErr := classify(tt.ctx, "list_applications", tt.err)
			assert.Equal(t, tt.wantCode, stdErr.Code)
			assert.Equal(t, tt.retryable, stdErr.Retryable)
		})
	}
}

func TestListByUser_QueryErrorIsClassified(t *testing.T) {
	f := newFixture(t, time.Minute)

	f.mock.ExpectQuery(listPattern).
		WithArgs("user-5").
		WillReturnError(stderrors.New("driver: bad connection"))

	_, err := f.store.ListByUser(context.Background(), "user-5")
	stdErr, ok := errors.AsStandardError(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeDatabaseConnectionFailed, stdErr.Code)
	assert.False(t, f.redis.Exists(CacheKey("user-5")))
}
