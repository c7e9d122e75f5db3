package sync

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/marcus/spn/internal/models"
)

func fileEvent(id string, ts int64) models.Event {
	return models.Event{
		ID:        id,
		Timestamp: ts,
		Type:      models.EventCreated,
		ExpenseID: "x1",
		Payload:   models.Expense{ID: "x1", Amount: 100, UpdatedAt: ts},
	}
}

func TestReadMissingFileReturnsEmpty(t *testing.T) {
	f := NewFile(filepath.Join(t.TempDir(), "sync.json"), false)

	events, err := f.Read()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("got %d events, want 0", len(events))
	}
}

func TestAppendThenReadRoundTrip(t *testing.T) {
	f := NewFile(filepath.Join(t.TempDir(), "sync.json"), false)

	if err := f.Append([]models.Event{fileEvent("ev-1", 100), fileEvent("ev-2", 200)}); err != nil {
		t.Fatalf("append: %v", err)
	}

	events, err := f.Read()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].ID != "ev-1" || events[1].ID != "ev-2" {
		t.Errorf("order: got [%s %s]", events[0].ID, events[1].ID)
	}
}

func TestReadSortsByTimestampThenID(t *testing.T) {
	f := NewFile(filepath.Join(t.TempDir(), "sync.json"), false)

	if err := f.Append([]models.Event{
		fileEvent("ev-z", 300),
		fileEvent("ev-b", 100),
		fileEvent("ev-a", 100),
	}); err != nil {
		t.Fatalf("append: %v", err)
	}

	events, err := f.Read()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	wantOrder := []string{"ev-a", "ev-b", "ev-z"}
	for i, want := range wantOrder {
		if events[i].ID != want {
			t.Errorf("position %d: got %s, want %s", i, events[i].ID, want)
		}
	}
}

func TestAppendPreservesForeignContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sync.json")
	existing := `{
  "snapshot": {"asOf": 7},
  "events": [
    {"eventId": "remote-1", "timestamp": 50, "eventType": "CREATED",
     "expenseId": "r1", "payload": {"id": "r1", "amount": 5, "updatedAt": 50},
     "futureField": "must survive"}
  ],
  "formatVersion": 9
}`
	if err := os.WriteFile(path, []byte(existing), 0644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	f := NewFile(path, false)
	if err := f.Append([]models.Event{fileEvent("local-1", 100)}); err != nil {
		t.Fatalf("append: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	s := string(data)
	for _, want := range []string{`"futureField"`, `"must survive"`, `"formatVersion": 9`, `"asOf": 7`, `"local-1"`, `"remote-1"`} {
		if !strings.Contains(s, want) {
			t.Errorf("missing %s in rewritten file:\n%s", want, s)
		}
	}

	events, err := f.Read()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
}

func TestAppendToMalformedFileFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sync.json")
	if err := os.WriteFile(path, []byte("{truncated"), 0644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	f := NewFile(path, false)
	if err := f.Append([]models.Event{fileEvent("ev-1", 100)}); err == nil {
		t.Fatal("append over malformed file must fail, not clobber")
	}

	// The broken file must be left untouched for inspection.
	data, _ := os.ReadFile(path)
	if string(data) != "{truncated" {
		t.Errorf("file was rewritten: %s", data)
	}
}

func TestReadMalformedFileReturnsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sync.json")
	if err := os.WriteFile(path, []byte("not json at all"), 0644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	f := NewFile(path, false)
	events, err := f.Read()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("got %d events, want 0", len(events))
	}
}

func TestGzipRoundTrip(t *testing.T) {
	f := NewFile(filepath.Join(t.TempDir(), "sync.json"), true)

	if !strings.HasSuffix(f.Path(), ".gz") {
		t.Fatalf("path: got %s, want .gz suffix", f.Path())
	}

	if err := f.Append([]models.Event{fileEvent("ev-1", 100)}); err != nil {
		t.Fatalf("append: %v", err)
	}

	// On-disk bytes are compressed, not plain JSON.
	data, err := os.ReadFile(f.Path())
	if err != nil {
		t.Fatalf("read raw: %v", err)
	}
	if len(data) < 2 || data[0] != 0x1f || data[1] != 0x8b {
		t.Error("file is not gzip-framed")
	}

	events, err := f.Read()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(events) != 1 || events[0].ID != "ev-1" {
		t.Fatalf("got %v, want [ev-1]", events)
	}
}

func TestChecksumChangeDetection(t *testing.T) {
	f := NewFile(filepath.Join(t.TempDir(), "sync.json"), false)

	// Nothing cached yet: always changed.
	changed, err := f.HasChanged()
	if err != nil {
		t.Fatalf("has changed: %v", err)
	}
	if !changed {
		t.Fatal("no cached checksum should read as changed")
	}

	if err := f.Append([]models.Event{fileEvent("ev-1", 100)}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if _, err := f.Read(); err != nil {
		t.Fatalf("read: %v", err)
	}
	f.CacheChecksum()

	changed, err = f.HasChanged()
	if err != nil {
		t.Fatalf("has changed: %v", err)
	}
	if changed {
		t.Fatal("unchanged file should not read as changed")
	}

	// Another writer appends: change detected again.
	if err := f.Append([]models.Event{fileEvent("ev-2", 200)}); err != nil {
		t.Fatalf("append: %v", err)
	}
	changed, err = f.HasChanged()
	if err != nil {
		t.Fatalf("has changed: %v", err)
	}
	if !changed {
		t.Fatal("append should make the file read as changed")
	}
}

func TestCacheChecksumIsLastReadNotLastWrite(t *testing.T) {
	f := NewFile(filepath.Join(t.TempDir(), "sync.json"), false)

	if err := f.Append([]models.Event{fileEvent("ev-1", 100)}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if _, err := f.Read(); err != nil {
		t.Fatalf("read: %v", err)
	}

	// A local append after the read must leave the marker at the read
	// state, so the next cycle still sees a change.
	if err := f.Append([]models.Event{fileEvent("ev-2", 200)}); err != nil {
		t.Fatalf("append: %v", err)
	}
	f.CacheChecksum()

	changed, err := f.HasChanged()
	if err != nil {
		t.Fatalf("has changed: %v", err)
	}
	if !changed {
		t.Fatal("marker must track the last read, not the last write")
	}
}

func TestChecksumMissingFile(t *testing.T) {
	f := NewFile(filepath.Join(t.TempDir(), "sync.json"), false)
	sum, err := f.Checksum()
	if err != nil {
		t.Fatalf("checksum: %v", err)
	}
	if sum != "" {
		t.Errorf("got %q, want empty checksum for missing file", sum)
	}
}
