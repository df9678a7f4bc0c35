package storage

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB connection to the channel core's SQLite database. It
// implements keys.Store and audit.Store so the registry and audit log
// survive process restarts.
type DB struct {
	db *sql.DB
}

// Open opens (or creates) the SQLite database at path and runs schema
// migrations.
func Open(path string) (*DB, error) {
	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	d := &DB{db: sqlDB}
	if err := d.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return d, nil
}

// Close closes the underlying database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

// migrate creates all required tables if they do not already exist.
func (d *DB) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS agent_keys (
			agent_id      TEXT PRIMARY KEY,
			public_key    TEXT NOT NULL,
			status        TEXT NOT NULL,
			metadata      TEXT NOT NULL DEFAULT '{}',
			registered_at TEXT NOT NULL,
			rotated_at    TEXT,
			revoked_at    TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS agent_key_lineage (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			agent_id    TEXT NOT NULL,
			public_key  TEXT NOT NULL,
			replaced_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_lineage_agent ON agent_key_lineage(agent_id)`,
		`CREATE TABLE IF NOT EXISTS audit_entries (
			id             INTEGER PRIMARY KEY AUTOINCREMENT,
			partition_date TEXT NOT NULL,
			ts             TEXT NOT NULL,
			from_agent     TEXT NOT NULL,
			to_agent       TEXT NOT NULL,
			status         TEXT NOT NULL,
			reason         TEXT NOT NULL DEFAULT '',
			correlation_id TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_partition ON audit_entries(partition_date)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_ts ON audit_entries(ts)`,
		`CREATE TABLE IF NOT EXISTS audit_checksums (
			partition_date TEXT PRIMARY KEY,
			checksum       TEXT NOT NULL
		)`,
	}

	for _, stmt := range stmts {
		if _, err := d.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec migration: %w", err)
		}
	}
	return nil
}
