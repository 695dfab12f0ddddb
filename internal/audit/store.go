package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/raaihank/packlist-sanitizer/internal/logger"
)

// DefaultListLimit caps List when no limit is given
const DefaultListLimit = 50

const schema = `
CREATE TABLE IF NOT EXISTS sanitize_jobs (
	id              UUID PRIMARY KEY,
	source          TEXT NOT NULL,
	internal_po     TEXT NOT NULL DEFAULT '',
	format          TEXT NOT NULL DEFAULT '',
	status          TEXT NOT NULL,
	redacted_fields TEXT[] NOT NULL DEFAULT '{}',
	kept_fields     TEXT[] NOT NULL DEFAULT '{}',
	pages           INTEGER NOT NULL DEFAULT 0,
	duration_ms     BIGINT NOT NULL DEFAULT 0,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_sanitize_jobs_created_at ON sanitize_jobs (created_at DESC);`

// Config contains database configuration
type Config struct {
	DatabaseURL     string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Store writes audit rows to PostgreSQL
type Store struct {
	db     *sqlx.DB
	logger *logger.Logger
}

// NewStore connects, applies the schema and returns the store
func NewStore(ctx context.Context, config Config, log *logger.Logger) (*Store, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", config.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)
	db.SetConnMaxLifetime(config.ConnMaxLifetime)

	store := &Store{db: db, logger: log}

	if err := store.initialize(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}

	log.Info("Audit store initialized successfully",
		zap.String("database_url", logger.MaskURL(config.DatabaseURL)),
		zap.Int("max_open_conns", config.MaxOpenConns),
		zap.Int("max_idle_conns", config.MaxIdleConns))

	return store, nil
}

func (s *Store) initialize(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// Record inserts job, assigning an ID when it has none
func (s *Store) Record(ctx context.Context, job *Job) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.RedactedFields == nil {
		job.RedactedFields = pq.StringArray{}
	}
	if job.KeptFields == nil {
		job.KeptFields = pq.StringArray{}
	}

	query := `
		INSERT INTO sanitize_jobs (id, source, internal_po, format, status, redacted_fields, kept_fields, pages, duration_ms)
		VALUES (:id, :source, :internal_po, :format, :status, :redacted_fields, :kept_fields, :pages, :duration_ms)
		RETURNING created_at`

	rows, err := s.db.NamedQueryContext(ctx, query, job)
	if err != nil {
		s.logger.Error("Failed to record job", zap.String("id", job.ID), zap.Error(err))
		return fmt.Errorf("failed to record job: %w", err)
	}
	defer rows.Close()

	if rows.Next() {
		if err := rows.Scan(&job.CreatedAt); err != nil {
			return fmt.Errorf("failed to read job timestamp: %w", err)
		}
	}

	s.logger.Debug("Job recorded",
		zap.String("id", job.ID),
		zap.String("status", job.Status),
		zap.Strings("redacted_fields", job.RedactedFields))

	return rows.Err()
}

// List returns the most recent jobs first
func (s *Store) List(ctx context.Context, limit int) ([]*Job, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	jobs := []*Job{}
	query := `
		SELECT id, source, internal_po, format, status, redacted_fields, kept_fields, pages, duration_ms, created_at
		FROM sanitize_jobs
		ORDER BY created_at DESC
		LIMIT $1`

	if err := s.db.SelectContext(ctx, &jobs, query, limit); err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	return jobs, nil
}

// Summary counts jobs by status
func (s *Store) Summary(ctx context.Context) (*Summary, error) {
	query := `
		SELECT
			COUNT(*) AS total,
			COUNT(CASE WHEN status = 'ok' THEN 1 END) AS ok,
			COUNT(CASE WHEN status = 'blocked' THEN 1 END) AS blocked,
			COUNT(CASE WHEN status = 'failed' THEN 1 END) AS failed
		FROM sanitize_jobs`

	var summary Summary
	if err := s.db.GetContext(ctx, &summary, query); err != nil {
		return nil, fmt.Errorf("failed to summarize jobs: %w", err)
	}
	return &summary, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
