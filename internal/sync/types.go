// Package sync replicates expense events between devices through a shared
// append-only JSON file, with no coordinating server. Remote events are
// applied idempotently under last-write-wins; local events are collected
// from the log and appended back.
package sync

import (
	"encoding/json"
	"fmt"

	"github.com/marcus/spn/internal/models"
)

// Entry is the wire form of one event in the sync file.
type Entry struct {
	EventID   string  `json:"eventId"`
	Timestamp int64   `json:"timestamp"`
	EventType string  `json:"eventType"`
	ExpenseID string  `json:"expenseId"`
	Payload   Payload `json:"payload"`
}

// Payload is the wire form of the full expense post-image. Nullable fields
// are emitted as explicit nulls; readers treat missing and null alike.
type Payload struct {
	ID          string  `json:"id"`
	Description *string `json:"description"`
	Amount      int64   `json:"amount"`
	Category    *string `json:"category"`
	Date        *string `json:"date"`
	UpdatedAt   int64   `json:"updatedAt"`
	Deleted     *bool   `json:"deleted"`
}

// toEntry converts a local event to its wire form. The committed flag is
// local bookkeeping and never leaves the device.
func toEntry(ev models.Event) Entry {
	deleted := ev.Payload.Deleted
	return Entry{
		EventID:   ev.ID,
		Timestamp: ev.Timestamp,
		EventType: string(ev.Type),
		ExpenseID: ev.ExpenseID,
		Payload: Payload{
			ID:          ev.Payload.ID,
			Description: ev.Payload.Description,
			Amount:      ev.Payload.Amount,
			Category:    ev.Payload.Category,
			Date:        ev.Payload.Date,
			UpdatedAt:   ev.Payload.UpdatedAt,
			Deleted:     &deleted,
		},
	}
}

// toEvent converts a wire entry to the local event form. A missing or null
// deleted flag means false.
func toEvent(en Entry) (models.Event, error) {
	t := models.EventType(en.EventType)
	if !t.Valid() {
		return models.Event{}, fmt.Errorf("entry %s: unknown event type %q", en.EventID, en.EventType)
	}
	if en.EventID == "" {
		return models.Event{}, fmt.Errorf("entry with empty event id")
	}
	if en.ExpenseID == "" && en.Payload.ID == "" {
		return models.Event{}, fmt.Errorf("entry %s: empty expense id", en.EventID)
	}

	expenseID := en.ExpenseID
	if expenseID == "" {
		expenseID = en.Payload.ID
	}

	deleted := en.Payload.Deleted != nil && *en.Payload.Deleted

	return models.Event{
		ID:        en.EventID,
		Timestamp: en.Timestamp,
		Type:      t,
		ExpenseID: expenseID,
		Payload: models.Expense{
			ID:          expenseID,
			Description: en.Payload.Description,
			Amount:      en.Payload.Amount,
			Category:    en.Payload.Category,
			Date:        en.Payload.Date,
			UpdatedAt:   en.Payload.UpdatedAt,
			Deleted:     deleted,
		},
	}, nil
}

// document is the parsed sync file. The snapshot slot and any unknown
// top-level fields are preserved verbatim across read-modify-write, so
// future revisions of the format survive older writers.
type document struct {
	snapshot json.RawMessage
	events   []json.RawMessage
	extra    map[string]json.RawMessage
}

func newDocument() *document {
	return &document{snapshot: json.RawMessage("null")}
}

func parseDocument(data []byte) (*document, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("parse sync document: %w", err)
	}

	d := newDocument()
	for k, v := range fields {
		switch k {
		case "snapshot":
			d.snapshot = v
		case "events":
			if err := json.Unmarshal(v, &d.events); err != nil {
				return nil, fmt.Errorf("parse events array: %w", err)
			}
		default:
			if d.extra == nil {
				d.extra = make(map[string]json.RawMessage)
			}
			d.extra[k] = v
		}
	}
	return d, nil
}

// appendEntries marshals the given entries onto the end of the events array,
// preserving the existing order and content byte-for-byte.
func (d *document) appendEntries(entries []Entry) error {
	for _, en := range entries {
		raw, err := json.Marshal(en)
		if err != nil {
			return fmt.Errorf("marshal entry %s: %w", en.EventID, err)
		}
		d.events = append(d.events, json.RawMessage(raw))
	}
	return nil
}

// entries decodes the events array. Individually malformed entries are
// returned in the skipped count rather than failing the whole document.
func (d *document) entries() (out []Entry, skipped int) {
	for _, raw := range d.events {
		var en Entry
		if err := json.Unmarshal(raw, &en); err != nil {
			skipped++
			continue
		}
		out = append(out, en)
	}
	return out, skipped
}

// marshal renders the document pretty-printed. Keys marshal in sorted order,
// which keeps the output deterministic across devices.
func (d *document) marshal() ([]byte, error) {
	doc := make(map[string]json.RawMessage, len(d.extra)+2)
	for k, v := range d.extra {
		doc[k] = v
	}
	if len(d.snapshot) > 0 {
		doc["snapshot"] = d.snapshot
	} else {
		doc["snapshot"] = json.RawMessage("null")
	}

	events := d.events
	if events == nil {
		events = []json.RawMessage{}
	}
	rawEvents, err := json.Marshal(events)
	if err != nil {
		return nil, fmt.Errorf("marshal events array: %w", err)
	}
	doc["events"] = rawEvents

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal sync document: %w", err)
	}
	return data, nil
}
