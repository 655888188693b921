package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS events (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	id TEXT NOT NULL UNIQUE,
	stream TEXT NOT NULL,
	type TEXT NOT NULL,
	actor TEXT NOT NULL DEFAULT '',
	data TEXT,
	timestamp TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_events_stream ON events(stream, seq);
CREATE INDEX IF NOT EXISTS idx_events_type ON events(type);
`

// SQLite is the durable journal store.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (or creates) the journal database at path and runs
// the schema migration. Use ":memory:" for an ephemeral store.
func NewSQLite(path string) (*SQLite, error) {
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("journal: open database: %w", err)
	}
	// modernc/sqlite serializes access through a single connection.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal: migrate: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Append(ctx context.Context, e *Event) (uint64, error) {
	if e == nil {
		return 0, ErrNilEvent
	}
	if e.Stream == "" {
		return 0, ErrEmptyStream
	}
	var data sql.NullString
	if len(e.Data) > 0 {
		data = sql.NullString{String: string(e.Data), Valid: true}
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO events (id, stream, type, actor, data, timestamp) VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, e.Stream, string(e.Type), e.Actor, data,
		e.Timestamp.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return 0, fmt.Errorf("journal: append: %w", err)
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("journal: append: %w", err)
	}
	e.Seq = uint64(seq)
	return e.Seq, nil
}

func (s *SQLite) Read(ctx context.Context, stream string, fromSeq uint64) ([]*Event, error) {
	if stream == "" {
		return nil, ErrEmptyStream
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT seq, id, stream, type, actor, data, timestamp FROM events
		 WHERE stream = ? AND seq >= ? ORDER BY seq`,
		stream, fromSeq)
	if err != nil {
		return nil, fmt.Errorf("journal: read: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func (s *SQLite) ReadAll(ctx context.Context, f Filter) ([]*Event, error) {
	query := `SELECT seq, id, stream, type, actor, data, timestamp FROM events WHERE seq >= ?`
	args := []interface{}{f.FromSeq}
	if f.Stream != "" {
		query += ` AND stream = ?`
		args = append(args, f.Stream)
	}
	if len(f.Types) > 0 {
		query += ` AND type IN (?` + strings.Repeat(", ?", len(f.Types)-1) + `)`
		for _, t := range f.Types {
			args = append(args, string(t))
		}
	}
	query += ` ORDER BY seq`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("journal: read all: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func scanEvents(rows *sql.Rows) ([]*Event, error) {
	var out []*Event
	for rows.Next() {
		var (
			e    Event
			typ  string
			data sql.NullString
			ts   string
		)
		if err := rows.Scan(&e.Seq, &e.ID, &e.Stream, &typ, &e.Actor, &data, &ts); err != nil {
			return nil, fmt.Errorf("journal: scan: %w", err)
		}
		e.Type = EventType(typ)
		if data.Valid {
			e.Data = json.RawMessage(data.String)
		}
		t, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, fmt.Errorf("journal: scan timestamp: %w", err)
		}
		e.Timestamp = t
		out = append(out, &e)
	}
	return out, rows.Err()
}
