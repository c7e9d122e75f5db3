package db

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/marcus/spn/internal/models"
)

// AppendEvent inserts an immutable event row. The payload is stored as
// opaque JSON text. Fails only on a duplicate event id, which should not
// occur for locally minted events.
func AppendEvent(tx *sql.Tx, ev models.Event) error {
	if ev.ID == "" {
		return fmt.Errorf("append event: empty event id")
	}
	if !ev.Type.Valid() {
		return fmt.Errorf("append event %s: unknown event type %q", ev.ID, ev.Type)
	}

	payload, err := json.Marshal(ev.Payload)
	if err != nil {
		return fmt.Errorf("append event %s: marshal payload: %w", ev.ID, err)
	}

	_, err = tx.Exec(`
		INSERT INTO events (event_id, timestamp, event_type, expense_id, payload, committed)
		VALUES (?, ?, ?, ?, ?, ?)`,
		ev.ID, ev.Timestamp, string(ev.Type), ev.ExpenseID, string(payload), boolToInt(ev.Committed),
	)
	if err != nil {
		return fmt.Errorf("append event %s: %w", ev.ID, err)
	}
	return nil
}

// EventCursor is a pull-based iterator over event rows backed by an open
// query. It is not restartable: obtain a fresh cursor for each pass.
type EventCursor struct {
	rows *sql.Rows
	cur  models.Event
	err  error
}

// Next advances the cursor. Returns false at the end or on error; check Err.
func (c *EventCursor) Next() bool {
	if c.err != nil || !c.rows.Next() {
		return false
	}
	c.cur, c.err = scanEvent(c.rows)
	return c.err == nil
}

// Event returns the row the cursor is positioned on.
func (c *EventCursor) Event() models.Event {
	return c.cur
}

// Err returns the first error encountered during iteration.
func (c *EventCursor) Err() error {
	if c.err != nil {
		return c.err
	}
	return c.rows.Err()
}

// Close releases the underlying query.
func (c *EventCursor) Close() error {
	return c.rows.Close()
}

// FindUncommitted returns a cursor over events not yet observed on the
// shared sync file, ordered by (timestamp, event_id).
func (db *DB) FindUncommitted() (*EventCursor, error) {
	rows, err := db.conn.Query(`
		SELECT event_id, timestamp, event_type, expense_id, payload, committed
		FROM events
		WHERE committed = 0
		ORDER BY timestamp ASC, event_id ASC`)
	if err != nil {
		return nil, fmt.Errorf("query uncommitted events: %w", err)
	}
	return &EventCursor{rows: rows}, nil
}

// CollectUncommitted materializes the uncommitted cursor into a slice.
func (db *DB) CollectUncommitted() ([]models.Event, error) {
	cursor, err := db.FindUncommitted()
	if err != nil {
		return nil, err
	}
	defer cursor.Close()

	var events []models.Event
	for cursor.Next() {
		events = append(events, cursor.Event())
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterate uncommitted events: %w", err)
	}
	return events, nil
}

// MarkCommitted flips committed on the listed event ids. Idempotent; ids
// with no local row (remote-origin events) are silently skipped.
func MarkCommitted(tx *sql.Tx, eventIDs []string) error {
	if len(eventIDs) == 0 {
		return nil
	}

	placeholders := strings.Repeat("?, ", len(eventIDs)-1) + "?"
	args := make([]any, len(eventIDs))
	for i, id := range eventIDs {
		args[i] = id
	}

	_, err := tx.Exec(
		`UPDATE events SET committed = 1 WHERE event_id IN (`+placeholders+`)`, args...)
	if err != nil {
		return fmt.Errorf("mark committed: %w", err)
	}
	return nil
}

// CountUncommitted returns the number of events pending upload.
func (db *DB) CountUncommitted() (int64, error) {
	var count int64
	err := db.conn.QueryRow(`SELECT COUNT(*) FROM events WHERE committed = 0`).Scan(&count)
	return count, err
}

// CountEvents returns the total event log size.
func (db *DB) CountEvents() (int64, error) {
	var count int64
	err := db.conn.QueryRow(`SELECT COUNT(*) FROM events`).Scan(&count)
	return count, err
}

func scanEvent(rows *sql.Rows) (models.Event, error) {
	var (
		ev        models.Event
		evType    string
		payload   string
		committed int
	)
	if err := rows.Scan(&ev.ID, &ev.Timestamp, &evType, &ev.ExpenseID, &payload, &committed); err != nil {
		return ev, fmt.Errorf("scan event: %w", err)
	}
	ev.Type = models.EventType(evType)
	ev.Committed = committed != 0
	if err := json.Unmarshal([]byte(payload), &ev.Payload); err != nil {
		return ev, fmt.Errorf("unmarshal payload for event %s: %w", ev.ID, err)
	}
	return ev, nil
}
