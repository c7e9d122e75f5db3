package db

import (
	"database/sql"
	"testing"

	"github.com/marcus/spn/internal/models"
)

func setupDB(t *testing.T) *DB {
	t.Helper()
	database, err := Initialize(t.TempDir())
	if err != nil {
		t.Fatalf("initialize db: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return database
}

func project(t *testing.T, database *DB, e models.Expense) bool {
	t.Helper()
	var applied bool
	err := database.WithTx(func(tx *sql.Tx) error {
		var err error
		applied, err = ProjectFromEvent(tx, e)
		return err
	})
	if err != nil {
		t.Fatalf("project: %v", err)
	}
	return applied
}

func TestProjectFromEventInsertsNewRow(t *testing.T) {
	database := setupDB(t)

	applied := project(t, database, models.Expense{
		ID:          "e1",
		Description: models.StringPtr("coffee"),
		Amount:      450,
		UpdatedAt:   100,
	})
	if !applied {
		t.Fatal("expected insert to apply")
	}

	got, err := database.FindExpense("e1")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got == nil {
		t.Fatal("expected row, got nil")
	}
	if got.Amount != 450 {
		t.Errorf("amount: got %d, want 450", got.Amount)
	}
	if got.Description == nil || *got.Description != "coffee" {
		t.Errorf("description: got %v, want coffee", got.Description)
	}
}

func TestProjectFromEventNewerWins(t *testing.T) {
	database := setupDB(t)

	project(t, database, models.Expense{ID: "e1", Amount: 100, UpdatedAt: 100})
	applied := project(t, database, models.Expense{ID: "e1", Amount: 200, UpdatedAt: 200})
	if !applied {
		t.Fatal("newer write should apply")
	}

	got, _ := database.FindExpense("e1")
	if got.Amount != 200 {
		t.Errorf("amount: got %d, want 200", got.Amount)
	}
}

func TestProjectFromEventOlderRejected(t *testing.T) {
	database := setupDB(t)

	project(t, database, models.Expense{ID: "e1", Amount: 200, UpdatedAt: 200})
	applied := project(t, database, models.Expense{ID: "e1", Amount: 100, UpdatedAt: 100})
	if applied {
		t.Fatal("older write should be rejected")
	}

	got, _ := database.FindExpense("e1")
	if got.Amount != 200 {
		t.Errorf("amount: got %d, want 200", got.Amount)
	}
	if got.UpdatedAt != 200 {
		t.Errorf("updated_at: got %d, want 200", got.UpdatedAt)
	}
}

func TestProjectFromEventEqualTimestampRejected(t *testing.T) {
	database := setupDB(t)

	project(t, database, models.Expense{ID: "e1", Amount: 100, UpdatedAt: 100})
	applied := project(t, database, models.Expense{ID: "e1", Amount: 999, UpdatedAt: 100})
	if applied {
		t.Fatal("equal timestamp should never overwrite")
	}

	got, _ := database.FindExpense("e1")
	if got.Amount != 100 {
		t.Errorf("amount: got %d, want 100", got.Amount)
	}
}

func TestProjectFromEventTombstoneStopsOlderWrites(t *testing.T) {
	database := setupDB(t)

	project(t, database, models.Expense{ID: "e1", Amount: 100, UpdatedAt: 300, Deleted: true})
	applied := project(t, database, models.Expense{ID: "e1", Amount: 500, UpdatedAt: 200})
	if applied {
		t.Fatal("update older than the tombstone should be rejected")
	}

	got, _ := database.FindExpense("e1")
	if !got.Deleted {
		t.Error("row should stay tombstoned")
	}
}

func TestProjectFromEventResurrection(t *testing.T) {
	database := setupDB(t)

	project(t, database, models.Expense{ID: "e1", Amount: 100, UpdatedAt: 200, Deleted: true})
	applied := project(t, database, models.Expense{ID: "e1", Amount: 150, UpdatedAt: 300, Deleted: false})
	if !applied {
		t.Fatal("newer non-deleted write should apply over a tombstone")
	}

	got, _ := database.FindExpense("e1")
	if got.Deleted {
		t.Error("row should be resurrected")
	}
	if got.Amount != 150 {
		t.Errorf("amount: got %d, want 150", got.Amount)
	}
}

func TestMarkAsDeleted(t *testing.T) {
	database := setupDB(t)

	project(t, database, models.Expense{ID: "e1", Amount: 100, UpdatedAt: 100})

	var applied bool
	err := database.WithTx(func(tx *sql.Tx) error {
		var err error
		applied, err = MarkAsDeleted(tx, "e1", 200)
		return err
	})
	if err != nil {
		t.Fatalf("mark deleted: %v", err)
	}
	if !applied {
		t.Fatal("expected delete to apply")
	}

	got, _ := database.FindExpense("e1")
	if !got.Deleted {
		t.Error("expected tombstone")
	}
	if got.UpdatedAt != 200 {
		t.Errorf("updated_at: got %d, want 200", got.UpdatedAt)
	}

	// An equal timestamp must not re-apply.
	err = database.WithTx(func(tx *sql.Tx) error {
		var err error
		applied, err = MarkAsDeleted(tx, "e1", 200)
		return err
	})
	if err != nil {
		t.Fatalf("mark deleted again: %v", err)
	}
	if applied {
		t.Error("equal timestamp delete should be a no-op")
	}
}

func TestFindExpenseMissingReturnsNil(t *testing.T) {
	database := setupDB(t)

	got, err := database.FindExpense("nope")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got != nil {
		t.Fatalf("got %+v, want nil", got)
	}
}

func TestListActiveExpensesFiltersAndOrders(t *testing.T) {
	database := setupDB(t)

	project(t, database, models.Expense{ID: "a", Amount: 1, UpdatedAt: 100})
	project(t, database, models.Expense{ID: "b", Amount: 2, UpdatedAt: 300})
	project(t, database, models.Expense{ID: "c", Amount: 3, UpdatedAt: 200, Deleted: true})

	list, err := database.ListActiveExpenses()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("got %d rows, want 2", len(list))
	}
	if list[0].ID != "b" || list[1].ID != "a" {
		t.Errorf("order: got [%s %s], want [b a]", list[0].ID, list[1].ID)
	}

	count, err := database.CountExpenses()
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 3 {
		t.Errorf("count: got %d, want 3 (tombstones included)", count)
	}
}
