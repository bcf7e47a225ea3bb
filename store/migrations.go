package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// migration represents a single schema migration.
type migration struct {
	version     int
	description string
	apply       func(tx *sql.Tx) error
}

// migrations is the ordered list of all schema migrations.
// New migrations are appended at the end; never modify existing entries.
var migrations = []migration{
	{
		version:     1,
		description: "initial schema (applied via schemaSQL)",
		apply:       func(tx *sql.Tx) error { return nil }, // base schema applied separately
	},
	{
		version:     2,
		description: "add module_id to concepts",
		apply: func(tx *sql.Tx) error {
			// Present in the base schema for fresh databases; only older
			// snapshots need the column added.
			if _, err := tx.Exec("ALTER TABLE concepts ADD COLUMN module_id INTEGER NOT NULL DEFAULT 0"); err != nil {
				// Column likely already exists — that's fine.
				slog.Debug("migration 2: column may already exist", "error", err)
			}
			return nil
		},
	},
	{
		version:     3,
		description: "recreate descriptions_au trigger with correct FTS re-insert arity",
		apply: func(tx *sql.Tx) error {
			// The old trigger body named 3 columns but supplied 2 values;
			// SQLite compiles trigger bodies lazily, so the defect only
			// surfaced on UPDATE. Recreate and rebuild the index in case a
			// replace path ran while the trigger was broken.
			if _, err := tx.Exec("DROP TRIGGER IF EXISTS descriptions_au"); err != nil {
				return err
			}
			if _, err := tx.Exec(`
				CREATE TRIGGER descriptions_au AFTER UPDATE ON descriptions BEGIN
				    INSERT INTO descriptions_fts(descriptions_fts, rowid, term) VALUES ('delete', old.id, old.term);
				    INSERT INTO descriptions_fts(rowid, term) VALUES (new.id, new.term);
				END
			`); err != nil {
				return err
			}
			_, err := tx.Exec("INSERT INTO descriptions_fts(descriptions_fts) VALUES ('rebuild')")
			return err
		},
	},
}

// Migrate runs all pending schema migrations.
func (s *Store) Migrate(ctx context.Context) error {
	// Ensure the schema_version table exists.
	if _, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			description TEXT,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	// Get current version.
	var current int
	if err := s.db.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&current); err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("migration %d: beginning tx: %w", m.version, err)
		}
		if err := m.apply(tx); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d (%s): %w", m.version, m.description, err)
		}
		if _, err := tx.Exec(
			"INSERT INTO schema_version (version, description) VALUES (?, ?)",
			m.version, m.description); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d: recording version: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migration %d: committing: %w", m.version, err)
		}
		slog.Info("applied schema migration", "version", m.version, "description", m.description)
	}
	return nil
}
