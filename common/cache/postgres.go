package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/lyzr/lineage/common/db"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS api_cache (
	cache_key  TEXT PRIMARY KEY,
	payload    BYTEA NOT NULL,
	fetched_at TIMESTAMPTZ NOT NULL
)`

// PostgresStore keeps entries in a Postgres table shared by all replicas
type PostgresStore struct {
	db  *db.DB
	log Logger
}

// NewPostgresStore creates the api_cache table if needed and returns the store
func NewPostgresStore(ctx context.Context, database *db.DB, log Logger) (*PostgresStore, error) {
	if _, err := database.Exec(ctx, postgresSchema); err != nil {
		return nil, fmt.Errorf("create api_cache table: %w", err)
	}
	return &PostgresStore{db: database, log: log}, nil
}

// Load retrieves an entry
func (s *PostgresStore) Load(ctx context.Context, key string) (*Entry, bool, error) {
	query := `
		SELECT payload, fetched_at
		FROM api_cache
		WHERE cache_key = $1
	`

	var (
		payload   []byte
		fetchedAt time.Time
	)
	err := s.db.QueryRow(ctx, query, key).Scan(&payload, &fetchedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get cache entry: %w", err)
	}
	return &Entry{Payload: payload, FetchedAt: fetchedAt.UTC()}, true, nil
}

// Save upserts an entry
func (s *PostgresStore) Save(ctx context.Context, key string, entry Entry) error {
	query := `
		INSERT INTO api_cache (cache_key, payload, fetched_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (cache_key)
		DO UPDATE SET payload = EXCLUDED.payload, fetched_at = EXCLUDED.fetched_at
	`

	if _, err := s.db.Exec(ctx, query, key, entry.Payload, entry.FetchedAt.UTC()); err != nil {
		return fmt.Errorf("failed to upsert cache entry: %w", err)
	}
	return nil
}

// Delete removes an entry
func (s *PostgresStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM api_cache WHERE cache_key = $1`, key); err != nil {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}
	return nil
}

// Close is a no-op; the pool is owned by bootstrap
func (s *PostgresStore) Close() error {
	return nil
}
