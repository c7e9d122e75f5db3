package sync

import (
	"context"
	"fmt"
	"log/slog"
	gosync "sync"

	"github.com/marcus/spn/internal/db"
)

// Engine coordinates one full sync cycle: absorb the remote stream first,
// then publish the local tail. Cycles are serialized per engine; a cycle
// interrupted between steps is safe to rerun because every per-event step
// is idempotent.
type Engine struct {
	db   *db.DB
	file *File
	proc *Processor

	mu gosync.Mutex
}

// NewEngine builds an Engine over the local stores and the shared file,
// warming the recorder's processed set.
func NewEngine(database *db.DB, file *File) (*Engine, error) {
	rec, err := NewRecorder(database)
	if err != nil {
		return nil, err
	}
	return &Engine{
		db:   database,
		file: file,
		proc: NewProcessor(rec),
	}, nil
}

// Result summarises one sync cycle.
type Result struct {
	Downloaded bool // remote events were read and processed this cycle
	Applied    int  // remote events newly projected
	Pushed     int  // local events appended to the sync file
}

// FullSync runs one cycle: change check, download and project remote
// events, collect uncommitted local events, append them, and cache the
// checksum marker for the next cycle.
func (e *Engine) FullSync(ctx context.Context) (Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var res Result

	changed, err := e.file.HasChanged()
	if err != nil {
		// Checksum trouble is not fatal: fall through to a full read,
		// which handles unreadable files by returning an empty batch.
		slog.Warn("sync change check", "path", e.file.Path(), "err", err)
		changed = true
	}

	if changed {
		events, err := e.file.Read()
		if err != nil {
			return res, fmt.Errorf("read sync file: %w", err)
		}
		res.Downloaded = true

		applied, err := e.proc.ProcessBatch(ctx, events)
		res.Applied = applied
		if err != nil {
			return res, err
		}
	}

	if err := ctx.Err(); err != nil {
		return res, err
	}

	pending, err := e.db.CollectUncommitted()
	if err != nil {
		return res, fmt.Errorf("collect local events: %w", err)
	}

	if len(pending) > 0 {
		if err := e.file.Append(pending); err != nil {
			return res, fmt.Errorf("append local events: %w", err)
		}
		res.Pushed = len(pending)
	}

	// Marks the file content as-read for the next HasChanged. A cycle
	// that appended leaves the marker at the pre-append read, so the next
	// cycle re-processes the file and flips the appended events to
	// committed.
	e.file.CacheChecksum()

	slog.Debug("sync cycle complete",
		"downloaded", res.Downloaded, "applied", res.Applied, "pushed", res.Pushed)
	return res, nil
}
