// Package history stores accepted queries in SQLite so they can be recalled
// in later sessions.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// Keys separate the two kinds of history.
const (
	KeyQuery = "query" // filter queries
	KeyCmd   = "cmd"   // interactive command queries
)

// DefaultMaxEntries bounds each key when the caller passes no limit.
const DefaultMaxEntries = 1000

const migrationV1 = `
CREATE TABLE IF NOT EXISTS schema_meta (
	version            INTEGER PRIMARY KEY,
	applied_at_unix_ms INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS queries (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	key        TEXT    NOT NULL,
	query      TEXT    NOT NULL,
	ts_unix_ms INTEGER NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_queries_key_query ON queries(key, query);
CREATE INDEX IF NOT EXISTS idx_queries_key_id ON queries(key, id);
`

// Store is a query history backed by SQLite.
type Store struct {
	db         *sql.DB
	maxEntries int
	closeOnce  sync.Once
	closeErr   error
}

// Open opens (creating if needed) the history database at path. Each key
// keeps at most maxEntries queries.
func Open(path string, maxEntries int) (*Store, error) {
	if path == "" {
		return nil, errors.New("history: empty database path")
	}
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	// modernc.org/sqlite uses _pragma=name(value) syntax
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to history database: %w", err)
	}

	s := &Store{db: db, maxEntries: maxEntries}
	if err := s.migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return s, nil
}

// Close checkpoints and closes the database. It is safe to call Close
// multiple times.
func (s *Store) Close() error {
	s.closeOnce.Do(func() {
		_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
		s.closeErr = s.db.Close()
	})
	return s.closeErr
}

// Append records query as the newest entry for key. Blank queries are
// ignored; a repeated query moves to the end instead of being duplicated.
func (s *Store) Append(ctx context.Context, key, query string) error {
	if strings.TrimSpace(query) == "" {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM queries WHERE key = ? AND query = ?`, key, query); err != nil {
		return fmt.Errorf("failed to remove previous entry: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO queries (key, query, ts_unix_ms) VALUES (?, ?, ?)`,
		key, query, time.Now().UnixMilli()); err != nil {
		return fmt.Errorf("failed to insert entry: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM queries
		WHERE key = ? AND id NOT IN (
			SELECT id FROM queries WHERE key = ? ORDER BY id DESC LIMIT ?
		)`, key, key, s.maxEntries); err != nil {
		return fmt.Errorf("failed to trim history: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// Recent returns up to limit queries for key, oldest first.
func (s *Store) Recent(ctx context.Context, key string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = s.maxEntries
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT query FROM (
			SELECT id, query FROM queries WHERE key = ? ORDER BY id DESC LIMIT ?
		) ORDER BY id ASC`, key, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var q string
		if err := rows.Scan(&q); err != nil {
			return nil, fmt.Errorf("failed to scan history: %w", err)
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

// migrate runs database migrations to ensure the schema is up to date.
func (s *Store) migrate(ctx context.Context) error {
	currentVersion := 0
	row := s.db.QueryRowContext(ctx, `
		SELECT version FROM schema_meta ORDER BY version DESC LIMIT 1
	`)
	if err := row.Scan(&currentVersion); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows), isTableNotFoundError(err):
			currentVersion = 0
		default:
			return fmt.Errorf("failed to read schema version: %w", err)
		}
	}

	migrations := []struct {
		version int
		sql     string
	}{
		{version: 1, sql: migrationV1},
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.ExecContext(ctx, m.sql); err != nil {
			return fmt.Errorf("migration v%d failed: %w", m.version, err)
		}
		_, err := s.db.ExecContext(ctx, `
			INSERT OR REPLACE INTO schema_meta (version, applied_at_unix_ms)
			VALUES (?, ?)
		`, m.version, time.Now().UnixMilli())
		if err != nil {
			return fmt.Errorf("failed to record migration v%d: %w", m.version, err)
		}
	}
	return nil
}

// isTableNotFoundError checks if the error indicates a missing table.
func isTableNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "no such table")
}
