package db

import (
	"database/sql"
	"fmt"
)

// HasProcessed reports whether the event id has already been projected.
func (db *DB) HasProcessed(eventID string) (bool, error) {
	var one int
	err := db.conn.QueryRow(
		`SELECT 1 FROM processed_events WHERE event_id = ?`, eventID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check processed %s: %w", eventID, err)
	}
	return true, nil
}

// HasProcessedTx is HasProcessed inside an open transaction.
func HasProcessedTx(tx *sql.Tx, eventID string) (bool, error) {
	var one int
	err := tx.QueryRow(
		`SELECT 1 FROM processed_events WHERE event_id = ?`, eventID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check processed %s: %w", eventID, err)
	}
	return true, nil
}

// MarkProcessed records the event id in the processed set. No-op when the
// id is already present.
func MarkProcessed(tx *sql.Tx, eventID string) error {
	_, err := tx.Exec(
		`INSERT OR IGNORE INTO processed_events (event_id) VALUES (?)`, eventID)
	if err != nil {
		return fmt.Errorf("mark processed %s: %w", eventID, err)
	}
	return nil
}

// AllProcessed enumerates every processed event id. Used at startup to warm
// the in-memory accelerator set.
func (db *DB) AllProcessed() ([]string, error) {
	rows, err := db.conn.Query(`SELECT event_id FROM processed_events`)
	if err != nil {
		return nil, fmt.Errorf("query processed events: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan processed id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// CountProcessed returns the size of the processed set.
func (db *DB) CountProcessed() (int64, error) {
	var count int64
	err := db.conn.QueryRow(`SELECT COUNT(*) FROM processed_events`).Scan(&count)
	return count, err
}
