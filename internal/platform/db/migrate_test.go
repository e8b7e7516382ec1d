package db

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeMigrationFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, sql := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(sql), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
}

func TestLoadMigrationsParsesAndSorts(t *testing.T) {
	dir := t.TempDir()
	writeMigrationFiles(t, dir, map[string]string{
		"010_shift_instance.sql": "SELECT 10;",
		"001_core.sql":           "CREATE TABLE rota_day_template (doctor_id UUID NOT NULL);",
		"002_leave_ledger.sql":   "SELECT 2;",
		"005_overrides.sql":      "SELECT 5;",
	})

	migrations, err := NewMigrator(nil, dir).LoadMigrations()
	if err != nil {
		t.Fatalf("LoadMigrations: %v", err)
	}
	if len(migrations) != 4 {
		t.Fatalf("got %d migrations, want 4", len(migrations))
	}

	wantVersions := []int{1, 2, 5, 10}
	for i, want := range wantVersions {
		if migrations[i].Version != want {
			t.Errorf("migrations[%d].Version = %d, want %d", i, migrations[i].Version, want)
		}
	}
	if migrations[0].Name != "001_core.sql" {
		t.Errorf("Name = %q, want 001_core.sql", migrations[0].Name)
	}
	if !strings.Contains(migrations[0].SQL, "rota_day_template") {
		t.Errorf("SQL not loaded from file: %q", migrations[0].SQL)
	}
}

func TestLoadMigrationsIgnoresForeignFiles(t *testing.T) {
	dir := t.TempDir()
	writeMigrationFiles(t, dir, map[string]string{
		"001_core.sql":        "SELECT 1;",
		"002_leave.sql":       "SELECT 2;",
		"README.md":           "notes about the rota schema",
		"rollback_core.sql":   "-- no version prefix",
		"003_Bad_Label.sql":   "-- uppercase label, not ours",
		"004_leave.sql.bak":   "SELECT 4;",
	})

	migrations, err := NewMigrator(nil, dir).LoadMigrations()
	if err != nil {
		t.Fatalf("LoadMigrations: %v", err)
	}
	if len(migrations) != 2 {
		t.Fatalf("got %d migrations, want 2", len(migrations))
	}
	if migrations[0].Version != 1 || migrations[1].Version != 2 {
		t.Errorf("got versions %d, %d, want 1, 2", migrations[0].Version, migrations[1].Version)
	}
}

func TestLoadMigrationsRejectsDuplicateVersions(t *testing.T) {
	dir := t.TempDir()
	writeMigrationFiles(t, dir, map[string]string{
		"002_leave.sql":       "SELECT 1;",
		"002_leave_redux.sql": "SELECT 2;",
	})

	_, err := NewMigrator(nil, dir).LoadMigrations()
	if err == nil {
		t.Fatal("expected error for two files with version 2")
	}
	if !strings.Contains(err.Error(), "duplicate migration version 2") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoadMigrationsEmptyDir(t *testing.T) {
	migrations, err := NewMigrator(nil, t.TempDir()).LoadMigrations()
	if err != nil {
		t.Fatalf("LoadMigrations: %v", err)
	}
	if len(migrations) != 0 {
		t.Errorf("got %d migrations from empty dir, want 0", len(migrations))
	}
}

func TestLoadMigrationsMissingDir(t *testing.T) {
	if _, err := NewMigrator(nil, "/no/such/migrations").LoadMigrations(); err == nil {
		t.Error("expected error for missing directory")
	}
}

// The shipped core migration must carry the partial unique index that stops
// a doctor from holding two in-progress shifts at once, even across server
// replicas that race past the in-memory check.
func TestCoreMigrationGuardsSingleInProgressShift(t *testing.T) {
	dir := filepath.Join("..", "..", "..", "migrations")
	migrations, err := NewMigrator(nil, dir).LoadMigrations()
	if err != nil {
		t.Fatalf("LoadMigrations(%s): %v", dir, err)
	}
	if len(migrations) == 0 {
		t.Fatalf("no migrations found in %s", dir)
	}

	core := migrations[0]
	if core.Version != 1 {
		t.Fatalf("first migration version = %d, want 1", core.Version)
	}
	if !strings.Contains(core.SQL, "CREATE UNIQUE INDEX IF NOT EXISTS idx_shift_instance_active") {
		t.Error("core migration missing unique index idx_shift_instance_active")
	}
	if !strings.Contains(core.SQL, "WHERE status = 'in-progress'") {
		t.Error("idx_shift_instance_active must be partial over in-progress rows")
	}
}
