// Package db opens the sqlite plan journal and keeps its schema current.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// DB is the journal connection.
type DB struct {
	*sql.DB
}

var pragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA busy_timeout=30000",
}

// migrations are applied in order; PRAGMA user_version records how many ran.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS plans (
		id TEXT PRIMARY KEY,
		message TEXT,
		response TEXT,
		route TEXT,
		fallback BOOLEAN DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_plans_created_at ON plans(created_at);`,
	`ALTER TABLE plans ADD COLUMN outcome TEXT DEFAULT ''`,
}

// Init opens (creating if needed) the journal at path and migrates it.
// ":memory:" opens a private in-memory journal.
func Init(path string) (*DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create db dir: %w", err)
		}
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	// One writer at a time; sqlite would answer SQLITE_BUSY otherwise.
	conn.SetMaxOpenConns(1)

	d := &DB{conn}
	if err := d.setup(); err != nil {
		conn.Close()
		return nil, err
	}
	return d, nil
}

func (d *DB) setup() error {
	for _, p := range pragmas {
		if _, err := d.Exec(p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}

	var applied int
	if err := d.QueryRow("PRAGMA user_version").Scan(&applied); err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	for v := applied; v < len(migrations); v++ {
		if err := d.apply(v); err != nil {
			return fmt.Errorf("migration %d failed: %w", v+1, err)
		}
	}
	return nil
}

func (d *DB) apply(v int) error {
	tx, err := d.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(migrations[v]); err != nil {
		return err
	}
	// PRAGMA does not take bind parameters.
	if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", v+1)); err != nil {
		return err
	}
	return tx.Commit()
}

// PrunePlans deletes plans journaled more than olderThan ago and reports how many went.
func (d *DB) PrunePlans(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan).UTC()
	res, err := d.ExecContext(ctx, "DELETE FROM plans WHERE created_at < ?", cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
