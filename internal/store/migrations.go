package store

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
		Description: "initial schema",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS rounds_cache (
    cache_key TEXT PRIMARY KEY,
    caselist TEXT NOT NULL,
    school TEXT NOT NULL,
    team TEXT NOT NULL,
    payload TEXT NOT NULL,
    fetched_at TEXT DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS files (
    path TEXT PRIMARY KEY,
    cache_name TEXT NOT NULL,
    bytes INTEGER DEFAULT 0,
    downloaded_at TEXT DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS runs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    caselist TEXT NOT NULL,
    mode TEXT NOT NULL,
    targets TEXT,
    topic TEXT,
    files INTEGER DEFAULT 0,
    blocks INTEGER DEFAULT 0,
    arguments INTEGER DEFAULT 0,
    tournaments INTEGER DEFAULT 0,
    unknown_side INTEGER DEFAULT 0,
    aff_path TEXT,
    neg_path TEXT,
    packet_path TEXT,
    report_md TEXT,
    generated_at TEXT DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_rounds_cache_team ON rounds_cache(caselist, school, team);
CREATE INDEX IF NOT EXISTS idx_runs_generated ON runs(generated_at);
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
