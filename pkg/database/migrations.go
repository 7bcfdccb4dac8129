package database

import (
	"database/sql"
	"fmt"
)

// Migration is one step of schema evolution. Migrations are compiled in
// rather than loaded from disk so the binary is self-contained.
type Migration struct {
	Version     string
	Description string
	SQL         string
}

// migrations are applied in slice order. Append only; never edit an
// applied migration.
var migrations = []Migration{
	{
		Version:     "001",
		Description: "game_sessions keyed record table",
		SQL: `
			CREATE TABLE IF NOT EXISTS game_sessions (
				key        TEXT PRIMARY KEY,
				record     TEXT NOT NULL,
				updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			);
		`,
	},
	{
		Version:     "002",
		Description: "updated_at lookup index for maintenance sweeps",
		SQL: `
			CREATE INDEX IF NOT EXISTS idx_game_sessions_updated_at
				ON game_sessions(updated_at);
		`,
	},
}

// MigrationManager applies pending migrations and tracks applied versions.
type MigrationManager struct {
	db *sql.DB
}

// NewMigrationManager creates a migration manager for the given database.
func NewMigrationManager(db *sql.DB) *MigrationManager {
	return &MigrationManager{db: db}
}

// ApplyMigrations applies every migration not yet recorded in
// schema_migrations. Each migration runs in its own transaction.
func (m *MigrationManager) ApplyMigrations() error {
	if err := m.createMigrationTable(); err != nil {
		return fmt.Errorf("failed to create migration table: %w", err)
	}

	applied, err := m.appliedVersions()
	if err != nil {
		return fmt.Errorf("failed to read applied migrations: %w", err)
	}

	for _, migration := range migrations {
		if applied[migration.Version] {
			continue
		}
		if err := m.apply(migration); err != nil {
			return fmt.Errorf("failed to apply migration %s (%s): %w",
				migration.Version, migration.Description, err)
		}
	}
	return nil
}

// ValidateSchema verifies the tables the store depends on exist.
func (m *MigrationManager) ValidateSchema() error {
	for _, table := range []string{"game_sessions", "schema_migrations"} {
		var name string
		err := m.db.QueryRow(
			`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table,
		).Scan(&name)
		if err == sql.ErrNoRows {
			return fmt.Errorf("required table %s does not exist", table)
		}
		if err != nil {
			return fmt.Errorf("error checking table %s: %w", table, err)
		}
	}
	return nil
}

func (m *MigrationManager) createMigrationTable() error {
	_, err := m.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    TEXT PRIMARY KEY,
			applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	return err
}

func (m *MigrationManager) appliedVersions() (map[string]bool, error) {
	rows, err := m.db.Query(`SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	applied := make(map[string]bool)
	for rows.Next() {
		var version string
		if err := rows.Scan(&version); err != nil {
			return nil, err
		}
		applied[version] = true
	}
	return applied, rows.Err()
}

func (m *MigrationManager) apply(migration Migration) error {
	tx, err := m.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(migration.SQL); err != nil {
		return err
	}
	if _, err := tx.Exec(
		`INSERT INTO schema_migrations (version) VALUES (?)`, migration.Version,
	); err != nil {
		return err
	}
	return tx.Commit()
}
