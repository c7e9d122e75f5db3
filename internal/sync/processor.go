package sync

import (
	"context"
	"log/slog"

	"github.com/marcus/spn/internal/models"
)

// Processor applies a sorted batch of remote events through the Recorder.
// Per-event failures are logged and skipped; a failed event stays out of
// the processed set and is retried on the next cycle.
type Processor struct {
	rec *Recorder
}

// NewProcessor creates a Processor over the given recorder.
func NewProcessor(rec *Recorder) *Processor {
	return &Processor{rec: rec}
}

// ProcessBatch applies events in the given order and returns the number
// newly applied. The only error returned is context cancellation; the
// batch never aborts on a bad event.
func (p *Processor) ProcessBatch(ctx context.Context, events []models.Event) (int, error) {
	applied := 0
	for _, ev := range events {
		if err := ctx.Err(); err != nil {
			return applied, err
		}

		ok, err := p.rec.ProjectOnce(ev)
		if err != nil {
			slog.Warn("apply remote event", "event_id", ev.ID, "expense_id", ev.ExpenseID, "err", err)
			continue
		}
		if ok {
			applied++
		}
	}
	return applied, nil
}
