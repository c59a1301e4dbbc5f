// Package postgres persists draft metadata rows in Postgres.
package postgres

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/roof-estimate/internal/blog"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

const defaultTable = "blog_drafts"

// DraftStoreConfig controls the Postgres connection pool used for draft rows.
type DraftStoreConfig struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type execCloser interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Ping(context.Context) error
	Close()
}

// DraftStore writes draft metadata into Postgres.
type DraftStore struct {
	pool  execCloser
	table string
}

// NewDraftStore creates a Postgres-backed DraftStore using the provided config.
func NewDraftStore(ctx context.Context, cfg DraftStoreConfig) (*DraftStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	table, err := tableName(cfg.Table)
	if err != nil {
		return nil, err
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &DraftStore{pool: pool, table: table}, nil
}

// NewDraftStoreWithPool constructs a store from an existing pool (primarily for testing).
func NewDraftStoreWithPool(pool execCloser, table string) (*DraftStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	name, err := tableName(table)
	if err != nil {
		return nil, err
	}
	return &DraftStore{pool: pool, table: name}, nil
}

func tableName(table string) (string, error) {
	if table == "" {
		table = defaultTable
	}
	if !validTableName.MatchString(table) {
		return "", fmt.Errorf("invalid table name %q", table)
	}
	return table, nil
}

// Close releases the underlying pool resources.
func (s *DraftStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// Ping checks that the database is reachable.
func (s *DraftStore) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	return nil
}

// EnsureSchema creates the drafts table when it does not exist.
func (s *DraftStore) EnsureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	job_id       TEXT PRIMARY KEY,
	keyword      TEXT NOT NULL,
	title        TEXT NOT NULL,
	slug         TEXT NOT NULL,
	content_hash TEXT NOT NULL,
	blob_uri     TEXT NOT NULL,
	word_count   INTEGER NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL
)`, s.table)
	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("create drafts table: %w", err)
	}
	return nil
}

// SaveDraft upserts the metadata row for a job's draft.
func (s *DraftStore) SaveDraft(ctx context.Context, record blog.DraftRecord) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("draft store is not configured")
	}
	if record.JobID == "" {
		return fmt.Errorf("job id is required")
	}
	query := fmt.Sprintf(`
INSERT INTO %s (
	job_id,
	keyword,
	title,
	slug,
	content_hash,
	blob_uri,
	word_count,
	created_at
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8
)
ON CONFLICT (job_id) DO UPDATE SET
	title = EXCLUDED.title,
	slug = EXCLUDED.slug,
	content_hash = EXCLUDED.content_hash,
	blob_uri = EXCLUDED.blob_uri,
	word_count = EXCLUDED.word_count`, s.table)

	args := []any{
		record.JobID,
		record.Keyword,
		record.Title,
		record.Slug,
		record.ContentHash,
		record.BlobURI,
		record.WordCount,
		record.CreatedAt,
	}
	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert draft: %w", err)
	}
	return nil
}
