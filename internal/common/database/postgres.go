package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"visa-workers/internal/common/config"
)

// PostgresClient owns the pool used to read application snapshots.
type PostgresClient struct {
	DB *sql.DB
}

func NewPostgres(cfg config.PostgresConfig) (*PostgresClient, error) {
	db, err := sql.Open("postgres", cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxIdle)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	return &PostgresClient{DB: db}, nil
}

func (c *PostgresClient) Ping(ctx context.Context) error {
	if err := c.DB.PingContext(ctx); err != nil {
		return fmt.Errorf("postgres ping failed: %w", err)
	}
	return nil
}

func (c *PostgresClient) Close() error {
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}

// schema mirrors the read model the applications backend replicates into
// this database. Statements are idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS visa_applications (
		id                  TEXT PRIMARY KEY,
		user_id             TEXT NOT NULL,
		status              TEXT NOT NULL,
		country_name        TEXT NOT NULL DEFAULT '',
		visa_type_name      TEXT NOT NULL DEFAULT '',
		progress_percentage INTEGER NOT NULL DEFAULT 0,
		created_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at          TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_visa_applications_user_updated
		ON visa_applications (user_id, updated_at DESC)`,
	`CREATE TABLE IF NOT EXISTS document_checklists (
		application_id TEXT PRIMARY KEY REFERENCES visa_applications (id) ON DELETE CASCADE,
		status         TEXT NOT NULL,
		items          JSONB NOT NULL DEFAULT '[]'::jsonb,
		updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
}

// EnsureSchema creates the read-model tables when they are missing.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d: %w", i+1, err)
		}
	}
	return nil
}
