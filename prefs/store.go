// Package prefs is the redim preference store: a SQLite key-value table
// with change notification. All coordination between control surfaces (CLI,
// HTTP API, MCP tools, other processes) and the restyler happens through
// this store: writers set keys, the restyler reacts to change events,
// nothing calls the restyler directly.
package prefs

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
	"testing"
	"time"

	_ "modernc.org/sqlite"
)

// Persisted keys.
const (
	// KeyEnabled toggles the restyler. Default: "true".
	KeyEnabled = "enabled"
	// KeyInstalledVersion records the last binary that touched the store.
	// Informational only; nothing migrates off it.
	KeyInstalledVersion = "installed_version"
)

const schema = `
CREATE TABLE IF NOT EXISTS prefs (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at INTEGER NOT NULL
);
`

// Store is a SQLite-backed preference store. Safe for concurrent use.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (creating if needed) the preference database with WAL and a
// busy timeout, so a second redim process or an external writer can share
// the file.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("prefs: open: %w", err)
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("prefs: %s: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("prefs: schema: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("prefs: ping: %w", err)
	}

	return &Store{db: db, logger: logger}, nil
}

// OpenMemory opens an in-memory store for testing. MaxOpenConns(1) keeps
// every query on the same in-memory database; t.Cleanup closes it.
func OpenMemory(t testing.TB) *Store {
	t.Helper()
	s, err := Open(":memory:", slog.Default())
	if err != nil {
		t.Fatalf("prefs.OpenMemory: %v", err)
	}
	s.db.SetMaxOpenConns(1)
	t.Cleanup(func() { s.Close() })
	return s
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the stored value for key, or def when the key is absent or
// the read fails. Read failures are never surfaced: the caller always gets
// a usable value.
func (s *Store) Get(ctx context.Context, key, def string) string {
	var v string
	err := s.db.QueryRowContext(ctx,
		"SELECT value FROM prefs WHERE key = ?", key).Scan(&v)
	switch {
	case err == sql.ErrNoRows:
		return def
	case err != nil:
		s.logger.Warn("prefs: read failed, using default", "key", key, "default", def, "error", err)
		return def
	}
	return v
}

// Set stores key=value and bumps the change counter so watchers notice.
func (s *Store) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO prefs (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("prefs: set %s: %w", key, err)
	}
	return s.bumpVersion(ctx)
}

// Enabled reads the enabled flag; absent or unreadable means true (restyle
// by default).
func (s *Store) Enabled(ctx context.Context) bool {
	v, err := strconv.ParseBool(s.Get(ctx, KeyEnabled, "true"))
	if err != nil {
		return true
	}
	return v
}

// SetEnabled stores the enabled flag.
func (s *Store) SetEnabled(ctx context.Context, enabled bool) error {
	return s.Set(ctx, KeyEnabled, strconv.FormatBool(enabled))
}

// Snapshot returns all stored preferences.
func (s *Store) Snapshot(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT key, value FROM prefs")
	if err != nil {
		return nil, fmt.Errorf("prefs: snapshot: %w", err)
	}
	defer rows.Close()

	snap := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("prefs: snapshot scan: %w", err)
		}
		snap[k] = v
	}
	return snap, rows.Err()
}

// Version reads the change counter (PRAGMA user_version, bumped on every
// Set). Works across connections and processes sharing the file.
func (s *Store) Version(ctx context.Context) (int64, error) {
	var v int64
	err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&v)
	return v, err
}

func (s *Store) bumpVersion(ctx context.Context) error {
	v, err := s.Version(ctx)
	if err != nil {
		return fmt.Errorf("prefs: read version: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", v+1)); err != nil {
		return fmt.Errorf("prefs: bump version: %w", err)
	}
	return nil
}
