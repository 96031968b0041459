// Package store persists leads, meeting summaries, follow-ups and task runs
// in SQLite.
//
// The blackboard in package memory is the live working set; this store is
// the durable record behind it. It uses the pure Go modernc.org/sqlite driver
// so the binary needs no cgo.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a row does not exist.
var ErrNotFound = errors.New("not found")

const schema = `
CREATE TABLE IF NOT EXISTS leads (
	id TEXT PRIMARY KEY,
	company_name TEXT NOT NULL,
	industry TEXT DEFAULT '',
	size_range TEXT DEFAULT '',
	pain_points TEXT DEFAULT '',
	details TEXT DEFAULT '{}',
	source TEXT DEFAULT 'system',
	confidence_score REAL DEFAULT 0,
	vector_id INTEGER DEFAULT -1,
	created_at DATETIME NOT NULL
);
CREATE TABLE IF NOT EXISTS meeting_summaries (
	id TEXT PRIMARY KEY,
	transcript TEXT DEFAULT '',
	summary TEXT NOT NULL,
	source TEXT DEFAULT 'system',
	vector_id INTEGER DEFAULT -1,
	created_at DATETIME NOT NULL
);
CREATE TABLE IF NOT EXISTS follow_ups (
	id TEXT PRIMARY KEY,
	lead_id TEXT NOT NULL,
	message TEXT DEFAULT '',
	due_at DATETIME NOT NULL,
	created_at DATETIME NOT NULL,
	status TEXT NOT NULL DEFAULT 'pending',
	error TEXT DEFAULT ''
);
CREATE INDEX IF NOT EXISTS follow_ups_due ON follow_ups (status, due_at);
CREATE TABLE IF NOT EXISTS task_runs (
	request_id TEXT PRIMARY KEY,
	task_type TEXT DEFAULT '',
	status TEXT NOT NULL,
	message TEXT DEFAULT '',
	duration_ms INTEGER NOT NULL,
	created_at DATETIME NOT NULL
);`

// Store is a SQLite-backed record of the sales pipeline.
type Store struct {
	db  *sql.DB
	mu  sync.RWMutex
	now func() time.Time
}

// Open opens (or creates) the database at path and initializes the schema.
// ":memory:" gives a private in-memory database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if path == ":memory:" {
		// Every pooled connection would otherwise see its own empty database.
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func parseTime(column, s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("decode %s %q: %w", column, s, err)
	}
	return t, nil
}
