package sqlite

import "database/sql"

// schema contains the SQL statements to set up the database schema.
// These run on startup to ensure tables exist.
const schema = `
CREATE TABLE IF NOT EXISTS actors (
    address BLOB PRIMARY KEY,
    code BLOB NOT NULL,
    snapshot BLOB NOT NULL,
    updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS balances (
    address BLOB PRIMARY KEY,
    amount INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS journal (
    seq INTEGER PRIMARY KEY AUTOINCREMENT,
    id TEXT NOT NULL,
    address BLOB NOT NULL,
    sender BLOB NOT NULL,
    opcode INTEGER NOT NULL,
    value INTEGER NOT NULL,
    outcome TEXT NOT NULL,
    detail TEXT,
    gas_used INTEGER NOT NULL,
    processed_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_journal_address ON journal(address, seq);
CREATE INDEX IF NOT EXISTS idx_journal_id ON journal(id);
`

// runMigrations executes the schema setup.
func runMigrations(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
