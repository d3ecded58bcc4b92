// Package store wraps SQLite access for the diagnostic event archive.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	_ "modernc.org/sqlite"
)

// Store persists diagnostic events for the ops API's history queries.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and runs migrations.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS events (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            bus_id TEXT,
            sequence INTEGER,
            kind TEXT,
            timestamp_ms INTEGER,
            payload_json TEXT,
            created_at TIMESTAMP
        );`,
		`CREATE INDEX IF NOT EXISTS idx_events_kind ON events(kind);`,
		`CREATE INDEX IF NOT EXISTS idx_events_seq ON events(bus_id, sequence);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// EventRow is one archived diagnostic event.
type EventRow struct {
	ID          int64           `json:"id"`
	BusID       string          `json:"bus_id"`
	Sequence    uint64          `json:"sequence"`
	Kind        string          `json:"kind"`
	TimestampMS int64           `json:"timestamp_ms"`
	Payload     json.RawMessage `json:"payload"`
	CreatedAt   time.Time       `json:"created_at"`
}

// InsertEvent archives one event.
func (s *Store) InsertEvent(ctx context.Context, row EventRow) error {
	if len(row.Payload) == 0 {
		row.Payload = json.RawMessage("{}")
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO events(bus_id, sequence, kind, timestamp_ms, payload_json, created_at) VALUES(?,?,?,?,?,?)`,
		row.BusID, row.Sequence, row.Kind, row.TimestampMS, string(row.Payload), row.CreatedAt)
	return err
}

// ListEvents returns the newest events, newest first, optionally filtered by kind.
func (s *Store) ListEvents(ctx context.Context, kind string, limit int) ([]EventRow, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT id, bus_id, sequence, kind, timestamp_ms, payload_json, created_at FROM events`
	args := []any{}
	if kind != "" {
		query += ` WHERE kind=?`
		args = append(args, kind)
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EventRow
	for rows.Next() {
		var r EventRow
		var payload string
		if err := rows.Scan(&r.ID, &r.BusID, &r.Sequence, &r.Kind, &r.TimestampMS, &payload, &r.CreatedAt); err != nil {
			return nil, err
		}
		r.Payload = json.RawMessage(payload)
		out = append(out, r)
	}
	return out, rows.Err()
}

// CountEvents returns the number of archived events.
func (s *Store) CountEvents(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`).Scan(&n)
	return n, err
}

// Prune drops the oldest rows so at most retain remain.
func (s *Store) Prune(ctx context.Context, retain int) error {
	if retain <= 0 {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM events WHERE id NOT IN (SELECT id FROM events ORDER BY id DESC LIMIT ?)`, retain)
	return err
}
