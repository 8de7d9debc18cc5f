// Package history keeps an append-only SQLite log of transitions and heartbeats.
package history

import (
	"context"
	"database/sql"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"git.home.luguber.info/inful/restockwatch/internal/foundation/errors"
)

// Entry is one recorded transition or heartbeat.
type Entry struct {
	ID        int64
	RunID     string
	Kind      string
	Target    string
	Previous  string
	Current   string
	Timestamp time.Time
}

// Recorder is what the run driver writes to.
type Recorder interface {
	Append(ctx context.Context, e Entry) error
	Close() error
}

// Noop drops every entry.
type Noop struct{}

func (Noop) Append(context.Context, Entry) error { return nil }
func (Noop) Close() error                        { return nil }

// Store is a SQLite-backed history log.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Open opens or creates the database at path. ":memory:" is accepted.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryHistory, "open history database").
			WithContext("path", path).Build()
	}
	// One connection keeps ":memory:" databases shared across calls.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.initialize(); err != nil {
		_ = db.Close()
		return nil, errors.WrapError(err, errors.CategoryHistory, "initialize history schema").Build()
	}
	return s, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS transitions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		target TEXT NOT NULL DEFAULT '',
		prev_state TEXT NOT NULL DEFAULT '',
		new_state TEXT NOT NULL DEFAULT '',
		timestamp INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_transitions_target ON transitions(target);
	CREATE INDEX IF NOT EXISTS idx_transitions_timestamp ON transitions(timestamp);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Append inserts e. A zero timestamp is replaced with the current time.
func (s *Store) Append(ctx context.Context, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ts := e.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO transitions (run_id, kind, target, prev_state, new_state, timestamp) VALUES (?, ?, ?, ?, ?, ?)",
		e.RunID, e.Kind, e.Target, e.Previous, e.Current, ts.UnixMilli(),
	)
	if err != nil {
		return errors.WrapError(err, errors.CategoryHistory, "insert history entry").
			Warning().WithContext("target", e.Target).Build()
	}
	return nil
}

// Recent returns up to limit entries, newest first. target filters when non-empty.
func (s *Store) Recent(ctx context.Context, limit int, target string) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 20
	}
	query := "SELECT id, run_id, kind, target, prev_state, new_state, timestamp FROM transitions"
	args := []any{}
	if target != "" {
		query += " WHERE target = ?"
		args = append(args, target)
	}
	query += " ORDER BY id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryHistory, "query history").Build()
	}
	defer func() {
		_ = rows.Close()
	}()

	var out []Entry
	for rows.Next() {
		var e Entry
		var ms int64
		if err := rows.Scan(&e.ID, &e.RunID, &e.Kind, &e.Target, &e.Previous, &e.Current, &ms); err != nil {
			return nil, errors.WrapError(err, errors.CategoryHistory, "scan history row").Build()
		}
		e.Timestamp = time.UnixMilli(ms)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.WrapError(err, errors.CategoryHistory, "iterate history rows").Build()
	}
	return out, nil
}

// Close closes the database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
