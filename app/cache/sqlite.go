package cache

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/lysyi3m/feed-unify/app/feed"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// SQLiteStore persists cache entries so conditional requests survive restarts.
// The parsed feed is stored as JSON next to its validators.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}
	db.SetMaxOpenConns(1)

	version, dirty, err := runMigrations(db)
	if err != nil {
		db.Close()
		return nil, err
	}

	slog.Debug("Cache database ready", "path", dbPath, "version", version, "dirty", dirty)

	return &SQLiteStore{db: db}, nil
}

func runMigrations(db *sql.DB) (uint, bool, error) {
	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return 0, false, fmt.Errorf("failed to create sqlite driver: %w", err)
	}

	source, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return 0, false, fmt.Errorf("failed to create iofs source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return 0, false, fmt.Errorf("failed to create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, false, fmt.Errorf("failed to run migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		return 0, false, fmt.Errorf("failed to get migration version: %w", err)
	}

	return version, dirty, nil
}

func (s *SQLiteStore) Get(ctx context.Context, key string) (*feed.CacheEntry, bool, error) {
	var (
		data         []byte
		etag         sql.NullString
		lastModified sql.NullInt64
		cachedAt     int64
	)

	err := s.db.QueryRowContext(ctx, `
		SELECT feed_data, etag, last_modified, cached_at
		FROM feed_cache
		WHERE cache_key = ?
	`, key).Scan(&data, &etag, &lastModified, &cachedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cache entry: %w", err)
	}

	var parsed feed.Feed
	if err := json.Unmarshal(data, &parsed); err != nil {
		slog.Warn("Discarding unreadable cache entry", "key", key, "error", err)
		return nil, false, nil
	}

	entry := &feed.CacheEntry{
		Feed:     &parsed,
		CachedAt: time.Unix(0, cachedAt).UTC(),
	}
	if etag.Valid {
		entry.ETag = &etag.String
	}
	if lastModified.Valid {
		t := time.Unix(lastModified.Int64, 0).UTC()
		entry.LastModified = &t
	}

	return entry, true, nil
}

func (s *SQLiteStore) Set(ctx context.Context, key string, entry *feed.CacheEntry) error {
	data, err := json.Marshal(entry.Feed)
	if err != nil {
		return fmt.Errorf("failed to encode cached feed: %w", err)
	}

	var etag sql.NullString
	if entry.ETag != nil {
		etag = sql.NullString{String: *entry.ETag, Valid: true}
	}
	var lastModified sql.NullInt64
	if entry.LastModified != nil {
		lastModified = sql.NullInt64{Int64: entry.LastModified.Unix(), Valid: true}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO feed_cache (cache_key, feed_data, etag, last_modified, cached_at)
		VALUES (?, ?, ?, ?, ?)
	`, key, data, etag, lastModified, entry.CachedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}

	return nil
}

func (s *SQLiteStore) Remove(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM feed_cache WHERE cache_key = ?", key); err != nil {
		return fmt.Errorf("failed to remove cache entry: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM feed_cache"); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Keys(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT cache_key FROM feed_cache ORDER BY cache_key")
	if err != nil {
		return nil, fmt.Errorf("failed to list cache keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("failed to scan cache key: %w", err)
		}
		keys = append(keys, key)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cache keys: %w", err)
	}

	return keys, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
