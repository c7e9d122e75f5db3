package sync

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/marcus/spn/internal/clock"
	"github.com/marcus/spn/internal/db"
	"github.com/marcus/spn/internal/expense"
	"github.com/marcus/spn/internal/models"
)

// replica bundles one device's stores, service, and engine over a shared
// sync file, with a controllable clock.
type replica struct {
	db     *db.DB
	svc    *expense.Service
	engine *Engine
	now    int64
}

func newReplica(t *testing.T, syncPath string, start int64) *replica {
	t.Helper()
	database, err := db.Initialize(t.TempDir())
	if err != nil {
		t.Fatalf("initialize db: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	r := &replica{db: database, now: start}
	r.svc = expense.NewService(database, clock.Func(func() int64 {
		r.now++
		return r.now
	}))

	engine, err := NewEngine(database, NewFile(syncPath, false))
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	r.engine = engine
	return r
}

func (r *replica) sync(t *testing.T) Result {
	t.Helper()
	res, err := r.engine.FullSync(context.Background())
	if err != nil {
		t.Fatalf("full sync: %v", err)
	}
	return res
}

func TestSyncPropagatesCreate(t *testing.T) {
	syncPath := filepath.Join(t.TempDir(), "sync.json")
	a := newReplica(t, syncPath, 1000)
	b := newReplica(t, syncPath, 2000)

	created, err := a.svc.Create(expense.CreateParams{
		Description: models.StringPtr("coffee"),
		Amount:      450,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	res := a.sync(t)
	if res.Pushed != 1 {
		t.Fatalf("pushed: got %d, want 1", res.Pushed)
	}

	res = b.sync(t)
	if res.Applied != 1 {
		t.Fatalf("applied: got %d, want 1", res.Applied)
	}

	got, err := b.svc.FindActive(created.ID)
	if err != nil {
		t.Fatalf("find on b: %v", err)
	}
	if got == nil {
		t.Fatal("expense did not propagate to b")
	}
	if got.Amount != 450 {
		t.Errorf("amount: got %d, want 450", got.Amount)
	}
}

func TestSyncDoubleCycleIsIdempotent(t *testing.T) {
	syncPath := filepath.Join(t.TempDir(), "sync.json")
	a := newReplica(t, syncPath, 1000)
	b := newReplica(t, syncPath, 2000)

	if _, err := a.svc.Create(expense.CreateParams{Amount: 100}); err != nil {
		t.Fatalf("create: %v", err)
	}
	a.sync(t)
	b.sync(t)

	before, _ := b.db.CountExpenses()

	res := b.sync(t)
	if res.Applied != 0 || res.Pushed != 0 {
		t.Fatalf("repeat cycle must be a no-op, got %+v", res)
	}

	after, _ := b.db.CountExpenses()
	if before != after {
		t.Errorf("row count changed on replay: %d -> %d", before, after)
	}
}

func TestSyncCommitFlipOnSecondCycle(t *testing.T) {
	syncPath := filepath.Join(t.TempDir(), "sync.json")
	a := newReplica(t, syncPath, 1000)

	if _, err := a.svc.Create(expense.CreateParams{Amount: 100}); err != nil {
		t.Fatalf("create: %v", err)
	}

	// First cycle pushes; the event stays uncommitted until this device
	// reads it back from the file.
	res := a.sync(t)
	if res.Pushed != 1 {
		t.Fatalf("pushed: got %d, want 1", res.Pushed)
	}

	// Second cycle re-reads the file (the append changed it) and flips
	// committed without appending again.
	res = a.sync(t)
	if res.Pushed != 0 {
		t.Fatalf("second cycle re-pushed %d events", res.Pushed)
	}
	if res.Applied != 1 {
		t.Fatalf("applied: got %d, want 1 (own event observed)", res.Applied)
	}

	pending, err := a.db.CountUncommitted()
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if pending != 0 {
		t.Errorf("pending: got %d, want 0", pending)
	}

	// Third cycle: nothing changed, nothing to do.
	res = a.sync(t)
	if res.Downloaded || res.Applied != 0 || res.Pushed != 0 {
		t.Errorf("third cycle not a no-op: %+v", res)
	}
}

func TestSyncConcurrentEditNewerWins(t *testing.T) {
	syncPath := filepath.Join(t.TempDir(), "sync.json")
	a := newReplica(t, syncPath, 1000)
	b := newReplica(t, syncPath, 5000)

	created, err := a.svc.Create(expense.CreateParams{Amount: 100})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	a.sync(t)
	b.sync(t)

	// Both edit offline; b's clock is ahead so its write is newer.
	if _, err := a.svc.Update(created.ID, expense.UpdateParams{Amount: models.Int64Ptr(111)}); err != nil {
		t.Fatalf("update on a: %v", err)
	}
	if _, err := b.svc.Update(created.ID, expense.UpdateParams{Amount: models.Int64Ptr(222)}); err != nil {
		t.Fatalf("update on b: %v", err)
	}

	a.sync(t)
	b.sync(t)
	a.sync(t)
	b.sync(t)

	for name, r := range map[string]*replica{"a": a, "b": b} {
		got, err := r.svc.FindActive(created.ID)
		if err != nil {
			t.Fatalf("find on %s: %v", name, err)
		}
		if got == nil {
			t.Fatalf("expense missing on %s", name)
		}
		if got.Amount != 222 {
			t.Errorf("%s: amount got %d, want 222 (newer write wins)", name, got.Amount)
		}
	}
}

func TestSyncDeleteBeatsOlderUpdate(t *testing.T) {
	syncPath := filepath.Join(t.TempDir(), "sync.json")
	a := newReplica(t, syncPath, 1000)
	b := newReplica(t, syncPath, 5000)

	created, err := a.svc.Create(expense.CreateParams{Amount: 100})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	a.sync(t)
	b.sync(t)

	// a updates with an older clock, b deletes with a newer one.
	if _, err := a.svc.Update(created.ID, expense.UpdateParams{Amount: models.Int64Ptr(111)}); err != nil {
		t.Fatalf("update on a: %v", err)
	}
	if ok, err := b.svc.Delete(created.ID); err != nil || !ok {
		t.Fatalf("delete on b: ok=%v err=%v", ok, err)
	}

	a.sync(t)
	b.sync(t)
	a.sync(t)
	b.sync(t)

	for name, r := range map[string]*replica{"a": a, "b": b} {
		got, err := r.svc.FindActive(created.ID)
		if err != nil {
			t.Fatalf("find on %s: %v", name, err)
		}
		if got != nil {
			t.Errorf("%s: expense should be deleted, got %+v", name, got)
		}
	}
}

func TestSyncNewerUpdateResurrectsDelete(t *testing.T) {
	syncPath := filepath.Join(t.TempDir(), "sync.json")
	a := newReplica(t, syncPath, 5000)
	b := newReplica(t, syncPath, 1000)

	created, err := b.svc.Create(expense.CreateParams{Amount: 100})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	b.sync(t)
	a.sync(t)

	// b deletes, the tombstone propagates to a, then a issues a newer
	// update targeting the tombstoned row.
	if ok, err := b.svc.Delete(created.ID); err != nil || !ok {
		t.Fatalf("delete on b: ok=%v err=%v", ok, err)
	}
	b.sync(t)
	a.sync(t)

	if got, _ := a.svc.FindActive(created.ID); got != nil {
		t.Fatal("tombstone did not propagate to a")
	}

	if _, err := a.svc.Update(created.ID, expense.UpdateParams{Amount: models.Int64Ptr(333)}); err != nil {
		t.Fatalf("update on a: %v", err)
	}

	a.sync(t)
	b.sync(t)
	a.sync(t)
	b.sync(t)

	for name, r := range map[string]*replica{"a": a, "b": b} {
		got, err := r.svc.FindActive(created.ID)
		if err != nil {
			t.Fatalf("find on %s: %v", name, err)
		}
		if got == nil {
			t.Fatalf("%s: expense should be resurrected", name)
		}
		if got.Amount != 333 {
			t.Errorf("%s: amount got %d, want 333", name, got.Amount)
		}
	}
}

func TestSyncOutOfOrderArrivalConverges(t *testing.T) {
	syncPath := filepath.Join(t.TempDir(), "sync.json")
	file := NewFile(syncPath, false)

	// Write the newer event to the file first, the older one second.
	newer := models.Event{
		ID: "ev-2", Timestamp: 200, Type: models.EventUpdated, ExpenseID: "x1",
		Payload: models.Expense{ID: "x1", Amount: 200, UpdatedAt: 200},
	}
	older := models.Event{
		ID: "ev-1", Timestamp: 100, Type: models.EventCreated, ExpenseID: "x1",
		Payload: models.Expense{ID: "x1", Amount: 100, UpdatedAt: 100},
	}
	if err := file.Append([]models.Event{newer}); err != nil {
		t.Fatalf("append newer: %v", err)
	}
	if err := file.Append([]models.Event{older}); err != nil {
		t.Fatalf("append older: %v", err)
	}

	r := newReplica(t, syncPath, 9000)
	res := r.sync(t)
	if res.Applied != 2 {
		t.Fatalf("applied: got %d, want 2", res.Applied)
	}

	got, err := r.db.FindExpense("x1")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got == nil || got.Amount != 200 {
		t.Fatalf("got %+v, want amount 200", got)
	}
}

func TestSyncCancelledContext(t *testing.T) {
	syncPath := filepath.Join(t.TempDir(), "sync.json")
	r := newReplica(t, syncPath, 1000)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := r.engine.FullSync(ctx); err == nil {
		t.Fatal("expected error from cancelled context")
	}
}
