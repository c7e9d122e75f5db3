package models

// EventType classifies a mutation recorded in the event log.
type EventType string

const (
	EventCreated EventType = "CREATED"
	EventUpdated EventType = "UPDATED"
	EventDeleted EventType = "DELETED"
)

// Valid reports whether t is one of the known event types.
func (t EventType) Valid() bool {
	switch t {
	case EventCreated, EventUpdated, EventDeleted:
		return true
	}
	return false
}

// Expense is the full state of one expense, keyed by its stable ID.
// The same shape serves as the event payload (post-image) and the
// projection row. Amount is minor currency units (cents), never floats.
// UpdatedAt is milliseconds since the Unix epoch and acts as the logical
// version for last-write-wins conflict resolution.
type Expense struct {
	ID          string  `json:"id"`
	Description *string `json:"description"`
	Amount      int64   `json:"amount"`
	Category    *string `json:"category"`
	Date        *string `json:"date"` // ISO-8601, stored as given
	UpdatedAt   int64   `json:"updatedAt"`
	Deleted     bool    `json:"deleted"`
}

// Event is one immutable mutation of one expense. Committed is local-only
// state meaning "this device has observed the event on the shared sync file";
// it never crosses replicas.
type Event struct {
	ID        string    `json:"eventId"`
	Timestamp int64     `json:"timestamp"` // ms since epoch, from the injected clock
	Type      EventType `json:"eventType"`
	ExpenseID string    `json:"expenseId"`
	Payload   Expense   `json:"payload"`
	Committed bool      `json:"-"`
}

// MaxLen limits from the command surface.
const (
	MaxDescriptionLen = 500
	MaxCategoryLen    = 100
)

// StringPtr returns a pointer to s. Convenience for nullable fields.
func StringPtr(s string) *string {
	return &s
}

// Int64Ptr returns a pointer to n.
func Int64Ptr(n int64) *int64 {
	return &n
}
