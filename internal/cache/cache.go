// Package cache provides an expiring key-value store backed by SQLite.
//
// Entries are content-addressed: callers derive keys from the inputs of the
// computation they cache, so identical inputs never recompute within the TTL
// window. Values are stored as JSON. The store is safe for concurrent use
// from multiple workflow runs.
package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"

	// Registers the pure-Go sqlite driver as "sqlite".
	_ "modernc.org/sqlite"

	"newsagent/migrations"
)

const (
	driverName     = "sqlite"
	busyTimeoutMS  = 5000
	janitorDefault = 10 * time.Minute
)

// Store is one expiring key-value store. The retrieval and summary caches
// are separate Store instances over separate database files.
type Store struct {
	db     *sql.DB
	logger *zerolog.Logger
}

// Open creates or opens the store at path and applies schema migrations.
func Open(path string, logger *zerolog.Logger) (*Store, error) {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create cache dir: %w", err)
		}
	}

	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("ping cache db: %w", err)
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		fmt.Sprintf("PRAGMA busy_timeout = %d", busyTimeoutMS),
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()

			return nil, fmt.Errorf("apply pragma: %w", err)
		}
	}

	s := &Store{db: db, logger: logger}

	if err := s.migrate(); err != nil {
		_ = db.Close()

		return nil, err
	}

	return s, nil
}

type gooseLogger struct {
	logger *zerolog.Logger
}

func (l *gooseLogger) Fatalf(format string, v ...interface{}) {
	l.logger.Error().Msgf(format, v...)
}

func (l *gooseLogger) Printf(format string, v ...interface{}) {
	l.logger.Debug().Msgf(format, v...)
}

func (s *Store) migrate() error {
	goose.SetBaseFS(migrations.FS)
	goose.SetLogger(&gooseLogger{logger: s.logger})

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}

	if err := goose.Up(s.db, "."); err != nil {
		return fmt.Errorf("run cache migrations: %w", err)
	}

	return nil
}

// Get loads the value stored under key into dest. It returns false on a miss
// or when the entry has expired.
func (s *Store) Get(ctx context.Context, key string, dest any) (bool, error) {
	var (
		raw       []byte
		expiresAt int64
	)

	err := s.db.QueryRowContext(ctx,
		"SELECT value, expires_at FROM cache_entries WHERE key = ?", key,
	).Scan(&raw, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}

	if err != nil {
		return false, fmt.Errorf("cache get: %w", err)
	}

	if expiresAt <= time.Now().Unix() {
		return false, nil
	}

	if err := json.Unmarshal(raw, dest); err != nil {
		return false, fmt.Errorf("decode cache entry: %w", err)
	}

	return true, nil
}

// Set stores value under key with the given TTL, replacing any previous entry.
func (s *Store) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}

	expiresAt := time.Now().Add(ttl).Unix()

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO cache_entries (key, value, expires_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at`,
		key, raw, expiresAt,
	)
	if err != nil {
		return fmt.Errorf("cache set: %w", err)
	}

	return nil
}

// Keys returns all non-expired keys in the store.
func (s *Store) Keys(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT key FROM cache_entries WHERE expires_at > ? ORDER BY key", time.Now().Unix(),
	)
	if err != nil {
		return nil, fmt.Errorf("cache keys: %w", err)
	}

	defer func() {
		_ = rows.Close()
	}()

	var keys []string

	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan cache key: %w", err)
		}

		keys = append(keys, key)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cache keys: %w", err)
	}

	return keys, nil
}

// Clear removes every entry from the store.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM cache_entries"); err != nil {
		return fmt.Errorf("cache clear: %w", err)
	}

	return nil
}

// Ping verifies the underlying database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Janitor periodically deletes expired entries until ctx is canceled.
func (s *Store) Janitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = janitorDefault
	}

	s.purgeExpired(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.purgeExpired(ctx)
		}
	}
}

func (s *Store) purgeExpired(ctx context.Context) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM cache_entries WHERE expires_at <= ?", time.Now().Unix(),
	)
	if err != nil {
		s.logger.Warn().Err(err).Msg("cache purge failed")

		return
	}

	if purged, err := res.RowsAffected(); err == nil && purged > 0 {
		s.logger.Debug().Int64("purged", purged).Msg("expired cache entries removed")
	}
}
