package db

import (
	"database/sql"
	"fmt"

	"github.com/marcus/spn/internal/models"
)

// ProjectFromEvent upserts the expense projection from an event payload.
// The write is monotonic: an existing row is replaced only when the incoming
// updated_at is strictly greater than the stored one. Equal timestamps never
// overwrite, which makes replays and out-of-order arrival converge to the
// same state. Returns true when the row was inserted or replaced.
func ProjectFromEvent(tx *sql.Tx, p models.Expense) (bool, error) {
	res, err := tx.Exec(`
		INSERT INTO expenses (id, description, amount, category, date, updated_at, deleted)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			description = excluded.description,
			amount      = excluded.amount,
			category    = excluded.category,
			date        = excluded.date,
			updated_at  = excluded.updated_at,
			deleted     = excluded.deleted
		WHERE excluded.updated_at > expenses.updated_at`,
		p.ID, nullString(p.Description), p.Amount, nullString(p.Category), nullString(p.Date),
		p.UpdatedAt, boolToInt(p.Deleted),
	)
	if err != nil {
		return false, fmt.Errorf("project expense %s: %w", p.ID, err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return rows > 0, nil
}

// MarkAsDeleted tombstones a projection row without materializing a full
// payload. Same monotonicity rule as ProjectFromEvent: the update applies
// only when the stored updated_at is strictly older.
func MarkAsDeleted(tx *sql.Tx, expenseID string, updatedAt int64) (bool, error) {
	res, err := tx.Exec(`
		UPDATE expenses SET deleted = 1, updated_at = ?
		WHERE id = ? AND updated_at < ?`,
		updatedAt, expenseID, updatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("mark deleted %s: %w", expenseID, err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return rows > 0, nil
}

const expenseColumns = `id, description, amount, category, date, updated_at, deleted`

// FindExpense returns the projection row for the given id, tombstone included.
// Returns nil when no row exists. Callers filter tombstones themselves.
func (db *DB) FindExpense(id string) (*models.Expense, error) {
	row := db.conn.QueryRow(
		`SELECT `+expenseColumns+` FROM expenses WHERE id = ?`, id)
	return scanExpense(row)
}

// FindExpenseTx is FindExpense inside an open transaction.
func FindExpenseTx(tx *sql.Tx, id string) (*models.Expense, error) {
	row := tx.QueryRow(
		`SELECT `+expenseColumns+` FROM expenses WHERE id = ?`, id)
	return scanExpense(row)
}

// ListActiveExpenses returns all non-deleted projections, newest first.
func (db *DB) ListActiveExpenses() ([]models.Expense, error) {
	rows, err := db.conn.Query(`
		SELECT ` + expenseColumns + ` FROM expenses
		WHERE deleted = 0
		ORDER BY updated_at DESC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var expenses []models.Expense
	for rows.Next() {
		e, err := scanExpenseRow(rows)
		if err != nil {
			return nil, err
		}
		expenses = append(expenses, e)
	}
	return expenses, rows.Err()
}

// CountExpenses returns the total projection row count, tombstones included.
func (db *DB) CountExpenses() (int64, error) {
	var count int64
	err := db.conn.QueryRow(`SELECT COUNT(*) FROM expenses`).Scan(&count)
	return count, err
}

func scanExpense(row *sql.Row) (*models.Expense, error) {
	var (
		e                    models.Expense
		desc, category, date sql.NullString
		deleted              int
	)
	err := row.Scan(&e.ID, &desc, &e.Amount, &category, &date, &e.UpdatedAt, &deleted)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan expense: %w", err)
	}
	e.Description = fromNullString(desc)
	e.Category = fromNullString(category)
	e.Date = fromNullString(date)
	e.Deleted = deleted != 0
	return &e, nil
}

func scanExpenseRow(rows *sql.Rows) (models.Expense, error) {
	var (
		e                    models.Expense
		desc, category, date sql.NullString
		deleted              int
	)
	err := rows.Scan(&e.ID, &desc, &e.Amount, &category, &date, &e.UpdatedAt, &deleted)
	if err != nil {
		return e, fmt.Errorf("scan expense row: %w", err)
	}
	e.Description = fromNullString(desc)
	e.Category = fromNullString(category)
	e.Date = fromNullString(date)
	e.Deleted = deleted != 0
	return e, nil
}

func nullString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func fromNullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
