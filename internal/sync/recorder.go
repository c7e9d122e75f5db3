package sync

import (
	"database/sql"
	"fmt"
	gosync "sync"

	"github.com/marcus/spn/internal/db"
	"github.com/marcus/spn/internal/models"
)

// Recorder projects one remote event at a time, idempotently. Each applied
// event runs in a single transaction covering the projection upsert, the
// processed-set insert, and the committed flip of the matching local event
// row (a no-op for events minted elsewhere).
type Recorder struct {
	db *db.DB

	// In-memory mirror of the processed set, warmed at startup. Ids are
	// added only after the marking transaction commits; misses fall
	// through to the database.
	mu        gosync.RWMutex
	processed map[string]struct{}
}

// NewRecorder creates a Recorder and warms the accelerator set from the
// processed-event store.
func NewRecorder(database *db.DB) (*Recorder, error) {
	ids, err := database.AllProcessed()
	if err != nil {
		return nil, fmt.Errorf("warm processed set: %w", err)
	}
	processed := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		processed[id] = struct{}{}
	}
	return &Recorder{db: database, processed: processed}, nil
}

// ProjectOnce applies one event. Returns false with no side effects when
// the event was already processed. On any failure the transaction rolls
// back and neither the projection nor the processed set reflects the event.
func (r *Recorder) ProjectOnce(ev models.Event) (bool, error) {
	if ev.ID == "" {
		return false, fmt.Errorf("project event: empty event id")
	}
	if !ev.Type.Valid() {
		return false, fmt.Errorf("project event %s: unknown event type %q", ev.ID, ev.Type)
	}

	if r.hasProcessed(ev.ID) {
		return false, nil
	}

	payload := ev.Payload
	if payload.ID == "" {
		payload.ID = ev.ExpenseID
	}
	if ev.Type == models.EventDeleted {
		// A DELETED payload always carries the tombstone flag, whatever
		// the writer emitted.
		payload.Deleted = true
	}

	applied := false
	err := r.db.WithTx(func(tx *sql.Tx) error {
		done, err := db.HasProcessedTx(tx, ev.ID)
		if err != nil {
			return err
		}
		if done {
			return nil
		}

		if _, err := db.ProjectFromEvent(tx, payload); err != nil {
			return err
		}
		if err := db.MarkProcessed(tx, ev.ID); err != nil {
			return err
		}
		if err := db.MarkCommitted(tx, []string{ev.ID}); err != nil {
			return err
		}
		applied = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("project event %s: %w", ev.ID, err)
	}

	if applied {
		// Only after commit: a rolled-back transaction must never
		// poison the accelerator.
		r.mu.Lock()
		r.processed[ev.ID] = struct{}{}
		r.mu.Unlock()
	}
	return applied, nil
}

func (r *Recorder) hasProcessed(eventID string) bool {
	r.mu.RLock()
	_, ok := r.processed[eventID]
	r.mu.RUnlock()
	return ok
}
