// Package watch runs the auto-sync loop: it triggers a sync cycle when
// the shared file changes on disk, and on a periodic interval as a
// fallback for filesystems where change events are unreliable.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/marcus/spn/internal/sync"
)

// Options configures the watch loop.
type Options struct {
	Debounce time.Duration // quiet period after a file event before syncing
	Interval time.Duration // periodic sync regardless of events
}

// Watcher drives sync cycles from filesystem events and a timer.
type Watcher struct {
	engine *sync.Engine
	path   string
	opts   Options
}

// New creates a Watcher over the engine and the sync file path.
func New(engine *sync.Engine, path string, opts Options) *Watcher {
	if opts.Debounce <= 0 {
		opts.Debounce = 2 * time.Second
	}
	if opts.Interval <= 0 {
		opts.Interval = 5 * time.Minute
	}
	return &Watcher{engine: engine, path: path, opts: opts}
}

// Run blocks until ctx is cancelled. The directory is watched rather than
// the file itself: atomic renames replace the inode, and sync peers may
// create the file after the loop starts.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()

	dir := filepath.Dir(w.path)
	if err := fw.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	ticker := time.NewTicker(w.opts.Interval)
	defer ticker.Stop()

	// Pick up anything written while the daemon was down.
	w.syncOnce(ctx, "startup")

	var debounce *time.Timer
	var debounceC <-chan time.Time

	base := filepath.Base(w.path)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) != base {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if debounce == nil {
				debounce = time.NewTimer(w.opts.Debounce)
				debounceC = debounce.C
			} else {
				if !debounce.Stop() {
					select {
					case <-debounce.C:
					default:
					}
				}
				debounce.Reset(w.opts.Debounce)
			}

		case <-debounceC:
			debounce = nil
			debounceC = nil
			w.syncOnce(ctx, "file change")

		case <-ticker.C:
			w.syncOnce(ctx, "interval")

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			slog.Warn("watch error", "err", err)
		}
	}
}

func (w *Watcher) syncOnce(ctx context.Context, reason string) {
	res, err := w.engine.FullSync(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		slog.Warn("auto sync failed", "reason", reason, "err", err)
		return
	}
	if res.Applied > 0 || res.Pushed > 0 {
		slog.Info("auto sync", "reason", reason, "applied", res.Applied, "pushed", res.Pushed)
	}
}
