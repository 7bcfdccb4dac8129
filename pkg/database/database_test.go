package database

import (
	"database/sql"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestConfigValidate(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("default config should validate, got %v", err)
	}

	cfg := DefaultConfig()
	cfg.DatabasePath = ""
	if err := cfg.Validate(); err == nil {
		t.Error("empty database path should fail validation")
	}

	cfg = DefaultConfig()
	cfg.MaxConnections = 0
	if err := cfg.Validate(); err == nil {
		t.Error("zero max connections should fail validation")
	}
}

func TestApplyMigrations(t *testing.T) {
	db := openTestDB(t)
	mgr := NewMigrationManager(db)

	if err := mgr.ApplyMigrations(); err != nil {
		t.Fatalf("ApplyMigrations failed: %v", err)
	}
	if err := mgr.ValidateSchema(); err != nil {
		t.Errorf("schema invalid after migrations: %v", err)
	}
}

func TestApplyMigrations_Idempotent(t *testing.T) {
	db := openTestDB(t)
	mgr := NewMigrationManager(db)

	if err := mgr.ApplyMigrations(); err != nil {
		t.Fatalf("first ApplyMigrations failed: %v", err)
	}
	if err := mgr.ApplyMigrations(); err != nil {
		t.Fatalf("second ApplyMigrations failed: %v", err)
	}

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM schema_migrations`).Scan(&count); err != nil {
		t.Fatalf("failed to count applied migrations: %v", err)
	}
	if count != len(migrations) {
		t.Errorf("expected %d applied migrations, got %d", len(migrations), count)
	}
}
