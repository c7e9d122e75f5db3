// Package expense implements the command and query surface over the local
// stores. Every mutation appends an event to the log and applies it to the
// projection inside one transaction, so the two can never diverge.
package expense

import (
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/marcus/spn/internal/clock"
	"github.com/marcus/spn/internal/db"
	"github.com/marcus/spn/internal/models"
)

// Service handles expense commands and queries against one replica's stores.
type Service struct {
	db    *db.DB
	clock clock.Clock
}

// NewService creates a Service over the given database and clock.
func NewService(database *db.DB, clk clock.Clock) *Service {
	return &Service{db: database, clock: clk}
}

// CreateParams carries the fields for a new expense. Amount is minor
// currency units (cents). Nil pointers mean "unset".
type CreateParams struct {
	Description *string
	Amount      int64
	Category    *string
	Date        *string
}

// UpdateParams carries the fields to merge over an existing expense.
// Nil pointers leave the stored value untouched.
type UpdateParams struct {
	Description *string
	Amount      *int64
	Category    *string
	Date        *string
}

func validateText(field string, s *string, max int) error {
	if s != nil && len(*s) > max {
		return fmt.Errorf("%s exceeds %d characters", field, max)
	}
	return nil
}

// Create mints a new expense, emits a CREATED event, and inserts the
// projection. Returns the projection row.
func (s *Service) Create(p CreateParams) (*models.Expense, error) {
	if err := validateText("description", p.Description, models.MaxDescriptionLen); err != nil {
		return nil, err
	}
	if err := validateText("category", p.Category, models.MaxCategoryLen); err != nil {
		return nil, err
	}

	now := s.clock.NowMillis()
	payload := models.Expense{
		ID:          uuid.NewString(),
		Description: p.Description,
		Amount:      p.Amount,
		Category:    p.Category,
		Date:        p.Date,
		UpdatedAt:   now,
		Deleted:     false,
	}

	err := s.db.WithTx(func(tx *sql.Tx) error {
		if err := db.AppendEvent(tx, s.newEvent(models.EventCreated, payload, now)); err != nil {
			return err
		}
		if _, err := db.ProjectFromEvent(tx, payload); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("create expense: %w", err)
	}

	slog.Debug("expense created", "id", payload.ID, "amount", payload.Amount)
	return &payload, nil
}

// Update merges the supplied fields over the current projection, emits an
// UPDATED event, and upserts the projection. Returns nil when the expense
// does not exist; no event is emitted in that case.
func (s *Service) Update(id string, p UpdateParams) (*models.Expense, error) {
	if err := validateText("description", p.Description, models.MaxDescriptionLen); err != nil {
		return nil, err
	}
	if err := validateText("category", p.Category, models.MaxCategoryLen); err != nil {
		return nil, err
	}

	existing, err := s.db.FindExpense(id)
	if err != nil {
		return nil, fmt.Errorf("update expense: %w", err)
	}
	if existing == nil {
		return nil, nil
	}

	now := s.clock.NowMillis()
	payload := *existing
	if p.Description != nil {
		payload.Description = p.Description
	}
	if p.Amount != nil {
		payload.Amount = *p.Amount
	}
	if p.Category != nil {
		payload.Category = p.Category
	}
	if p.Date != nil {
		payload.Date = p.Date
	}
	payload.UpdatedAt = now
	payload.Deleted = false

	err = s.db.WithTx(func(tx *sql.Tx) error {
		if err := db.AppendEvent(tx, s.newEvent(models.EventUpdated, payload, now)); err != nil {
			return err
		}
		if _, err := db.ProjectFromEvent(tx, payload); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("update expense: %w", err)
	}

	slog.Debug("expense updated", "id", id)
	return &payload, nil
}

// Delete tombstones an expense: emits a DELETED event carrying the prior
// payload with deleted=true and marks the projection row. Returns false when
// the expense does not exist.
func (s *Service) Delete(id string) (bool, error) {
	existing, err := s.db.FindExpense(id)
	if err != nil {
		return false, fmt.Errorf("delete expense: %w", err)
	}
	if existing == nil {
		return false, nil
	}

	now := s.clock.NowMillis()
	payload := *existing
	payload.UpdatedAt = now
	payload.Deleted = true

	err = s.db.WithTx(func(tx *sql.Tx) error {
		if err := db.AppendEvent(tx, s.newEvent(models.EventDeleted, payload, now)); err != nil {
			return err
		}
		if _, err := db.MarkAsDeleted(tx, id, now); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("delete expense: %w", err)
	}

	slog.Debug("expense deleted", "id", id)
	return true, nil
}

// ListActive returns all non-deleted expenses. Events are never exposed.
func (s *Service) ListActive() ([]models.Expense, error) {
	return s.db.ListActiveExpenses()
}

// FindActive returns the expense for id if present and not tombstoned.
func (s *Service) FindActive(id string) (*models.Expense, error) {
	e, err := s.db.FindExpense(id)
	if err != nil {
		return nil, err
	}
	if e == nil || e.Deleted {
		return nil, nil
	}
	return e, nil
}

func (s *Service) newEvent(t models.EventType, payload models.Expense, now int64) models.Event {
	return models.Event{
		ID:        uuid.NewString(),
		Timestamp: now,
		Type:      t,
		ExpenseID: payload.ID,
		Payload:   payload,
		Committed: false,
	}
}
