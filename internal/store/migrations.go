package store

import (
	"fmt"
	"log"
	"time"
)

type migration struct {
	Version     int
	Description string
	SQL         string
}

var migrations = []migration{
	{
		Version:     1,
		Description: "Initial schema",
		SQL: `
CREATE TABLE IF NOT EXISTS omni_values (
    observed_at INTEGER NOT NULL,
    field TEXT NOT NULL,
    raw TEXT NOT NULL,
    value REAL NOT NULL,
    PRIMARY KEY (observed_at, field)
);

CREATE TABLE IF NOT EXISTS filter_runs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    source TEXT NOT NULL,
    started_at DATETIME NOT NULL,
    finished_at DATETIME NOT NULL,
    lines_read INTEGER NOT NULL,
    header_lines INTEGER NOT NULL,
    malformed_rows INTEGER NOT NULL,
    out_of_window_rows INTEGER NOT NULL,
    sentinel_rows INTEGER NOT NULL,
    kept_rows INTEGER NOT NULL
);
`,
	},
	{
		Version:     2,
		Description: "Profile runs",
		SQL: `
CREATE TABLE IF NOT EXISTS profile_runs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    created_at DATETIME NOT NULL,
    density_source TEXT NOT NULL,
    field_source TEXT NOT NULL,
    degree INTEGER NOT NULL,
    fit_cutoff_km REAL NOT NULL,
    samples INTEGER NOT NULL,
    peak_altitude_km REAL NOT NULL,
    peak_potential_v REAL NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_omni_values_field ON omni_values(field, observed_at);
`,
	},
}

func (s *Store) ensureMigrationsTable() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at DATETIME NOT NULL
		)
	`)
	return err
}

func (s *Store) appliedMigrations() (map[int]bool, error) {
	rows, err := s.db.Query(`SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		applied[v] = true
	}
	return applied, rows.Err()
}

// Migrate applies pending schema migrations in order.
func (s *Store) Migrate() error {
	if err := s.ensureMigrationsTable(); err != nil {
		return fmt.Errorf("ensure migrations table: %w", err)
	}

	applied, err := s.appliedMigrations()
	if err != nil {
		return fmt.Errorf("get applied migrations: %w", err)
	}

	for _, m := range migrations {
		if applied[m.Version] {
			continue
		}

		log.Printf("migrations: applying %d - %s", m.Version, m.Description)

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("begin tx for migration %d: %w", m.Version, err)
		}
		if _, err := tx.Exec(m.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("execute migration %d: %w", m.Version, err)
		}
		if _, err := tx.Exec(
			"INSERT INTO schema_migrations (version, description, applied_at) VALUES (?, ?, ?)",
			m.Version, m.Description, time.Now().UTC(),
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}
	return nil
}
