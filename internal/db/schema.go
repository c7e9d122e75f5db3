package db

// SchemaVersion is the current database schema version
const SchemaVersion = 2

const schema = `
-- Expense projection: exactly one row per expense id, tombstoned on delete,
-- never removed. updated_at is the LWW logical version (ms since epoch).
CREATE TABLE IF NOT EXISTS expenses (
    id TEXT PRIMARY KEY,
    description TEXT,
    amount INTEGER NOT NULL DEFAULT 0,
    category TEXT,
    date TEXT,
    updated_at INTEGER NOT NULL,
    deleted INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_expenses_active ON expenses(deleted, date);

-- Append-only event log. committed means "observed on the shared sync file";
-- it is local bookkeeping and is never written to the file itself.
CREATE TABLE IF NOT EXISTS events (
    event_id TEXT PRIMARY KEY,
    timestamp INTEGER NOT NULL,
    event_type TEXT NOT NULL,
    expense_id TEXT NOT NULL,
    payload TEXT NOT NULL,
    committed INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_events_uncommitted ON events(committed, timestamp, event_id);
CREATE INDEX IF NOT EXISTS idx_events_expense ON events(expense_id);

-- Set of event ids already projected locally (idempotency guard).
CREATE TABLE IF NOT EXISTS processed_events (
    event_id TEXT PRIMARY KEY
);

-- Schema version tracking
CREATE TABLE IF NOT EXISTS schema_info (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`

// Migration represents a single schema migration
type Migration struct {
	Version     int
	Description string
	SQL         string
}

// Migrations contains all schema migrations in order
var Migrations = []Migration{
	{
		Version:     2,
		Description: "add category index for list filtering",
		SQL:         `CREATE INDEX IF NOT EXISTS idx_expenses_category ON expenses(category) WHERE deleted = 0;`,
	},
}
