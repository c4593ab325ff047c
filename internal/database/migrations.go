package database

import "database/sql"

// Migration represents a single schema migration step.
type Migration struct {
	Version     int
	Description string
	Up          func(tx *sql.Tx) error
}

// migrations is the ordered list of all schema migrations.
// Append new migrations to the end with incrementing Version numbers.
var migrations = []Migration{
	{
		Version:     1,
		Description: "runs and aggregates",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    data_path TEXT NOT NULL,
    responses INTEGER DEFAULT 0,
    months TEXT,
    status TEXT NOT NULL DEFAULT 'running' CHECK(status IN ('running', 'ok', 'failed')),
    files INTEGER DEFAULT 0,
    started_at TEXT DEFAULT (datetime('now')),
    finished_at TEXT
);

CREATE TABLE IF NOT EXISTS aggregates (
    run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    table_key TEXT NOT NULL,
    subject TEXT NOT NULL,
    month TEXT NOT NULL,
    team TEXT NOT NULL,
    mean REAL NOT NULL,
    n INTEGER NOT NULL,
    PRIMARY KEY (run_id, table_key, subject, month, team)
);

CREATE INDEX IF NOT EXISTS idx_aggregates_table ON aggregates(run_id, table_key);
`)
			return err
		},
	},
	{
		Version:     2,
		Description: "challenge and training tallies",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS counts (
    run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    series TEXT NOT NULL,
    item TEXT NOT NULL,
    count INTEGER NOT NULL,
    rank INTEGER NOT NULL,
    PRIMARY KEY (run_id, series, item)
);

CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
`)
			return err
		},
	},
}

// latestVersion returns the highest migration version number.
func latestVersion() int {
	if len(migrations) == 0 {
		return 0
	}
	return migrations[len(migrations)-1].Version
}
