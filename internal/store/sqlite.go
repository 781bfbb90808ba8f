package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/VedPanse/siriplus/internal/event"
)

// SQLiteStore is a local file-backed EventStore. It satisfies the same
// contract as the hosted backends, which keeps the assistant usable
// offline.
type SQLiteStore struct {
	db *sql.DB
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS events (
	id         TEXT PRIMARY KEY,
	title      TEXT NOT NULL,
	start_time INTEGER NOT NULL,
	end_time   INTEGER NOT NULL,
	location   TEXT NOT NULL DEFAULT '',
	all_day    INTEGER NOT NULL DEFAULT 0,
	alert      TEXT NOT NULL DEFAULT 'none',
	repeat     TEXT NOT NULL DEFAULT 'none',
	notes      TEXT NOT NULL DEFAULT '',
	url        TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_events_start ON events(start_time);
`

// OpenSQLite opens (and if needed initializes) the event database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// CheckPermission verifies the database is reachable.
func (s *SQLiteStore) CheckPermission(ctx context.Context) (bool, error) {
	if err := s.db.PingContext(ctx); err != nil {
		return false, fmt.Errorf("ping database: %w", err)
	}
	return true, nil
}

// ListEvents returns events starting within [dayStart, dayEnd), ordered
// ascending by start time.
func (s *SQLiteStore) ListEvents(ctx context.Context, dayStart, dayEnd time.Time) ([]event.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, start_time, end_time, location, all_day, alert, repeat, notes, url
		FROM events
		WHERE start_time >= ? AND start_time < ?
		ORDER BY start_time ASC
	`, dayStart.Unix(), dayEnd.Unix())
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []event.Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

func scanEvent(rows *sql.Rows) (event.Event, error) {
	var ev event.Event
	var start, end int64
	var allDay int
	var alert, repeat string
	if err := rows.Scan(&ev.ID, &ev.Title, &start, &end, &ev.Location, &allDay, &alert, &repeat, &ev.Notes, &ev.URL); err != nil {
		return event.Event{}, fmt.Errorf("scan event: %w", err)
	}
	ev.Start = time.Unix(start, 0).Local()
	ev.End = time.Unix(end, 0).Local()
	ev.AllDay = allDay != 0
	ev.Alert = event.Alert(alert)
	ev.Repeat = event.Repeat(repeat)
	return ev, nil
}

// CreateEvent validates, assigns an identifier, and inserts the event.
func (s *SQLiteStore) CreateEvent(ctx context.Context, ev event.Event) (event.Event, error) {
	if err := ev.Validate(); err != nil {
		return event.Event{}, fmt.Errorf("create event: %w", err)
	}
	if ev.Alert == "" {
		ev.Alert = event.AlertNone
	}
	if ev.Repeat == "" {
		ev.Repeat = event.RepeatNone
	}
	ev.ID = uuid.NewString()

	allDay := 0
	if ev.AllDay {
		allDay = 1
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO events (id, title, start_time, end_time, location, all_day, alert, repeat, notes, url)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, ev.ID, ev.Title, ev.Start.Unix(), ev.End.Unix(), ev.Location, allDay, string(ev.Alert), string(ev.Repeat), ev.Notes, ev.URL)
	if err != nil {
		return event.Event{}, fmt.Errorf("insert event: %w", err)
	}
	return ev, nil
}

// UpdateEvent rewrites the title, start, and duration of an event.
func (s *SQLiteStore) UpdateEvent(ctx context.Context, id, title string, start time.Time, duration time.Duration) (event.Event, error) {
	end := start.Add(duration)
	res, err := s.db.ExecContext(ctx, `
		UPDATE events SET title = ?, start_time = ?, end_time = ? WHERE id = ?
	`, title, start.Unix(), end.Unix(), id)
	if err != nil {
		return event.Event{}, fmt.Errorf("update event: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return event.Event{}, fmt.Errorf("update event %s: %w", id, ErrNotFound)
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, title, start_time, end_time, location, all_day, alert, repeat, notes, url
		FROM events WHERE id = ?
	`, id)
	var ev event.Event
	var st, en int64
	var allDay int
	var alert, repeat string
	if err := row.Scan(&ev.ID, &ev.Title, &st, &en, &ev.Location, &allDay, &alert, &repeat, &ev.Notes, &ev.URL); err != nil {
		return event.Event{}, fmt.Errorf("reload event: %w", err)
	}
	ev.Start = time.Unix(st, 0).Local()
	ev.End = time.Unix(en, 0).Local()
	ev.AllDay = allDay != 0
	ev.Alert = event.Alert(alert)
	ev.Repeat = event.Repeat(repeat)
	return ev, nil
}

// DeleteEvents removes every listed event in one transaction. Unknown
// identifiers surface as ErrNotFound after the rest have been removed.
func (s *SQLiteStore) DeleteEvents(ctx context.Context, ids []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete: %w", err)
	}
	defer tx.Rollback()

	var missing []string
	for _, id := range ids {
		res, err := tx.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete event %s: %w", id, err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			missing = append(missing, id)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete: %w", err)
	}
	if len(missing) > 0 {
		return fmt.Errorf("delete events %v: %w", missing, ErrNotFound)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
