package sync

import (
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	gosync "sync"
	"sync/atomic"

	"github.com/marcus/spn/internal/models"
)

const gzExt = ".gz"

// File manages the shared sync file: reading the merged event stream,
// appending local events with a whole-file atomic replace, and checksum
// based change detection between cycles.
//
// The checksum cached for the next cycle is the checksum of the bytes this
// device last READ, not of what it last wrote. A local append therefore
// makes the next HasChanged true, and re-processing the file is what flips
// the appended events to committed (their projection effects are idempotent
// no-ops by then).
type File struct {
	path    string
	gzipped bool

	mu       gosync.Mutex // serializes read-modify-write within the process
	cached   atomic.Pointer[string]
	lastRead atomic.Pointer[string]
}

// NewFile creates a manager for the sync file at path. When gzipped is set
// the file is gzip-framed and the path carries a .gz extension.
func NewFile(path string, gzipped bool) *File {
	if gzipped && !strings.HasSuffix(path, gzExt) {
		path += gzExt
	}
	return &File{path: path, gzipped: gzipped}
}

// Path returns the effective on-disk path.
func (f *File) Path() string {
	return f.path
}

// Read parses the sync file and returns its events sorted by
// (timestamp, eventId). A missing file yields an empty list. A malformed
// or unreadable file is logged and also yields an empty list, so one bad
// write never wedges the sync cycle.
func (f *File) Read() ([]models.Event, error) {
	raw, hash, err := f.readBytes()
	if os.IsNotExist(err) {
		f.lastRead.Store(nil)
		return nil, nil
	}
	if err != nil {
		slog.Warn("sync file read", "path", f.path, "err", err)
		return nil, nil
	}
	f.lastRead.Store(&hash)

	doc, err := parseDocument(raw)
	if err != nil {
		slog.Warn("sync file malformed", "path", f.path, "err", err)
		return nil, nil
	}

	entries, skipped := doc.entries()
	if skipped > 0 {
		slog.Warn("sync file entries skipped", "path", f.path, "count", skipped)
	}

	events := make([]models.Event, 0, len(entries))
	for _, en := range entries {
		ev, err := toEvent(en)
		if err != nil {
			slog.Warn("sync file entry invalid", "path", f.path, "err", err)
			continue
		}
		events = append(events, ev)
	}

	// Writers append, but concurrent writers may interleave; sort is
	// mandatory so every replica processes the same deterministic order.
	sort.Slice(events, func(i, j int) bool {
		if events[i].Timestamp != events[j].Timestamp {
			return events[i].Timestamp < events[j].Timestamp
		}
		return events[i].ID < events[j].ID
	})

	return events, nil
}

// Append loads the current document, appends the given events to its
// events array preserving existing content, and atomically replaces the
// file (write to a temp file in the same directory, then rename).
func (f *File) Append(events []models.Event) error {
	if len(events) == 0 {
		return nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	unlock, err := lockSyncFile(f.path)
	if err != nil {
		return fmt.Errorf("lock sync file: %w", err)
	}
	defer unlock()

	raw, _, err := f.readBytes()
	doc := newDocument()
	if err == nil {
		if parsed, perr := parseDocument(raw); perr == nil {
			doc = parsed
		} else {
			return fmt.Errorf("append to malformed sync file: %w", perr)
		}
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("read sync file: %w", err)
	}

	entries := make([]Entry, len(events))
	for i, ev := range events {
		entries[i] = toEntry(ev)
	}
	if err := doc.appendEntries(entries); err != nil {
		return err
	}

	data, err := doc.marshal()
	if err != nil {
		return err
	}

	return f.writeAtomic(data)
}

// Checksum returns the SHA-256 of the on-disk bytes, or "" when the file
// does not exist.
func (f *File) Checksum() (string, error) {
	data, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("checksum sync file: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// HasChanged reports whether the file differs from the checksum cached at
// the end of the previous cycle. True when no checksum is cached yet.
func (f *File) HasChanged() (bool, error) {
	cached := f.cached.Load()
	if cached == nil {
		return true, nil
	}
	cur, err := f.Checksum()
	if err != nil {
		return true, err
	}
	return cur != *cached, nil
}

// CacheChecksum stores the checksum of the bytes most recently read as the
// marker for the next cycle's HasChanged. No-op when nothing has been read
// since startup, leaving the next cycle to re-read (idempotently).
func (f *File) CacheChecksum() {
	if h := f.lastRead.Load(); h != nil {
		f.cached.Store(h)
	}
}

// readBytes returns the decoded document bytes and the checksum of the raw
// on-disk bytes (the compressed form when gzip is enabled).
func (f *File) readBytes() ([]byte, string, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, "", err
	}

	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])

	if f.gzipped {
		zr, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, hash, fmt.Errorf("gzip open: %w", err)
		}
		defer zr.Close()
		plain, err := io.ReadAll(zr)
		if err != nil {
			return nil, hash, fmt.Errorf("gzip read: %w", err)
		}
		return plain, hash, nil
	}

	return data, hash, nil
}

// writeAtomic writes data (gzip-framed when enabled) to a temp file in the
// target directory and renames it over the sync file.
func (f *File) writeAtomic(data []byte) error {
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create sync dir: %w", err)
	}

	if f.gzipped {
		var buf bytes.Buffer
		zw := gzip.NewWriter(&buf)
		if _, err := zw.Write(data); err != nil {
			zw.Close()
			return fmt.Errorf("gzip write: %w", err)
		}
		if err := zw.Close(); err != nil {
			return fmt.Errorf("gzip close: %w", err)
		}
		data = buf.Bytes()
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(f.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpName, f.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace sync file: %w", err)
	}
	return nil
}
