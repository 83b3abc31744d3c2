package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS api_cache (
	cache_key  TEXT PRIMARY KEY,
	payload    BLOB NOT NULL,
	fetched_at INTEGER NOT NULL
)`

// SQLiteStore persists entries in a local SQLite file
type SQLiteStore struct {
	sqlDB *sql.DB
	log   Logger
}

// OpenSQLite opens (creating if needed) the cache database at path
func OpenSQLite(path string, log Logger) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	dsn := "file:" + filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"

	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(sqliteSchema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("create api_cache table: %w", err)
	}

	log.Info("sqlite cache opened", "path", path)
	return &SQLiteStore{sqlDB: sqlDB, log: log}, nil
}

// Load retrieves an entry
func (s *SQLiteStore) Load(ctx context.Context, key string) (*Entry, bool, error) {
	var (
		payload   []byte
		fetchedAt int64
	)
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT payload, fetched_at FROM api_cache WHERE cache_key = ?`, key,
	).Scan(&payload, &fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("select cache entry: %w", err)
	}
	return &Entry{Payload: payload, FetchedAt: time.UnixMilli(fetchedAt).UTC()}, true, nil
}

// Save upserts an entry in a single statement
func (s *SQLiteStore) Save(ctx context.Context, key string, entry Entry) error {
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO api_cache (cache_key, payload, fetched_at) VALUES (?, ?, ?)
		 ON CONFLICT(cache_key) DO UPDATE SET payload = excluded.payload, fetched_at = excluded.fetched_at`,
		key, entry.Payload, entry.FetchedAt.UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("upsert cache entry: %w", err)
	}
	return nil
}

// Delete removes an entry
func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	if _, err := s.sqlDB.ExecContext(ctx, `DELETE FROM api_cache WHERE cache_key = ?`, key); err != nil {
		return fmt.Errorf("delete cache entry: %w", err)
	}
	return nil
}

// Close closes the SQLite handle
func (s *SQLiteStore) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}
