package sync

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/marcus/spn/internal/models"
)

func TestToEventDefaultsMissingDeleted(t *testing.T) {
	ev, err := toEvent(Entry{
		EventID:   "ev-1",
		Timestamp: 100,
		EventType: "CREATED",
		ExpenseID: "x1",
		Payload:   Payload{ID: "x1", Amount: 100, UpdatedAt: 100},
	})
	if err != nil {
		t.Fatalf("toEvent: %v", err)
	}
	if ev.Payload.Deleted {
		t.Error("missing deleted flag must read as false")
	}
}

func TestToEventFillsExpenseIDFromPayload(t *testing.T) {
	ev, err := toEvent(Entry{
		EventID:   "ev-1",
		EventType: "UPDATED",
		Payload:   Payload{ID: "x9", Amount: 1, UpdatedAt: 1},
	})
	if err != nil {
		t.Fatalf("toEvent: %v", err)
	}
	if ev.ExpenseID != "x9" {
		t.Errorf("expense id: got %s, want x9", ev.ExpenseID)
	}
}

func TestToEventRejectsInvalid(t *testing.T) {
	if _, err := toEvent(Entry{EventID: "ev-1", EventType: "NOPE", ExpenseID: "x"}); err == nil {
		t.Error("expected error for unknown event type")
	}
	if _, err := toEvent(Entry{EventType: "CREATED", ExpenseID: "x"}); err == nil {
		t.Error("expected error for empty event id")
	}
	if _, err := toEvent(Entry{EventID: "ev-1", EventType: "CREATED"}); err == nil {
		t.Error("expected error for empty expense id")
	}
}

func TestToEntryEmitsExplicitNulls(t *testing.T) {
	en := toEntry(models.Event{
		ID:        "ev-1",
		Timestamp: 100,
		Type:      models.EventCreated,
		ExpenseID: "x1",
		Payload:   models.Expense{ID: "x1", Amount: 100, UpdatedAt: 100},
	})
	data, err := json.Marshal(en)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	s := string(data)
	for _, key := range []string{`"description":null`, `"category":null`, `"date":null`} {
		if !strings.Contains(s, key) {
			t.Errorf("missing %s in %s", key, s)
		}
	}
	if !strings.Contains(s, `"deleted":false`) {
		t.Errorf("deleted must be explicit in %s", s)
	}
}

func TestDocumentPreservesUnknownFields(t *testing.T) {
	input := `{
  "snapshot": {"asOf": 42},
  "events": [],
  "formatVersion": 3,
  "vendor": {"note": "keep me"}
}`
	doc, err := parseDocument([]byte(input))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if err := doc.appendEntries([]Entry{{
		EventID: "ev-1", Timestamp: 1, EventType: "CREATED", ExpenseID: "x1",
		Payload: Payload{ID: "x1", UpdatedAt: 1},
	}}); err != nil {
		t.Fatalf("append: %v", err)
	}

	out, err := doc.marshal()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	s := string(out)
	for _, want := range []string{`"formatVersion": 3`, `"keep me"`, `"asOf": 42`, `"ev-1"`} {
		if !strings.Contains(s, want) {
			t.Errorf("missing %s in output:\n%s", want, s)
		}
	}
}

func TestDocumentSkipsMalformedEntries(t *testing.T) {
	input := `{"snapshot": null, "events": [
	  {"eventId": "ok", "eventType": "CREATED", "expenseId": "x", "timestamp": 1,
	   "payload": {"id": "x", "amount": 1, "updatedAt": 1}},
	  "not an object"
	]}`
	doc, err := parseDocument([]byte(input))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	entries, skipped := doc.entries()
	if skipped != 1 {
		t.Errorf("skipped: got %d, want 1", skipped)
	}
	if len(entries) != 1 || entries[0].EventID != "ok" {
		t.Errorf("entries: got %+v", entries)
	}
}

func TestMarshalEmptyDocument(t *testing.T) {
	out, err := newDocument().marshal()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var parsed map[string]json.RawMessage
	if err := json.Unmarshal(out, &parsed); err != nil {
		t.Fatalf("output not valid JSON: %v", err)
	}
	if string(parsed["snapshot"]) != "null" {
		t.Errorf("snapshot: got %s, want null", parsed["snapshot"])
	}
	if string(parsed["events"]) != "[]" {
		t.Errorf("events: got %s, want []", parsed["events"])
	}
}
