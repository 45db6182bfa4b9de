package shared

import (
	"database/sql"
	"testing"
)

func memoryDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create database: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestMigrationRunner(t *testing.T) {
	t.Run("loadMigrations", func(t *testing.T) {
		migrations, err := loadMigrations()
		if err != nil {
			t.Fatalf("failed to load migrations: %v", err)
		}

		if len(migrations) < 2 {
			t.Fatalf("expected at least two migrations, got %d", len(migrations))
		}

		for i := 1; i < len(migrations); i++ {
			if migrations[i].Version <= migrations[i-1].Version {
				t.Errorf("migrations not sorted: version %d comes after %d", migrations[i].Version, migrations[i-1].Version)
			}
		}

		for _, m := range migrations {
			if m.Up == "" || m.Down == "" {
				t.Errorf("migration version %d missing up or down SQL", m.Version)
			}
			if m.Name == "" {
				t.Errorf("migration version %d missing name", m.Version)
			}
		}
	})

	t.Run("RunMigrations And Rollback", func(t *testing.T) {
		db := memoryDB(t)

		if err := RunMigrations(db); err != nil {
			t.Fatalf("failed to run migrations: %v", err)
		}

		for _, table := range []string{"credentials", "users", "threads"} {
			if _, err := db.Exec("SELECT 1 FROM " + table + " LIMIT 1"); err != nil {
				t.Errorf("%s table should exist after migrations: %v", table, err)
			}
		}

		before, err := AppliedVersions(db)
		if err != nil {
			t.Fatalf("failed to list applied versions: %v", err)
		}

		if err := RollbackMigration(db); err != nil {
			t.Fatalf("failed to rollback migration: %v", err)
		}

		after, err := AppliedVersions(db)
		if err != nil {
			t.Fatalf("failed to list applied versions: %v", err)
		}
		if len(after) != len(before)-1 {
			t.Errorf("expected %d applied migrations after rollback, got %d", len(before)-1, len(after))
		}

		if _, err := db.Exec("SELECT 1 FROM threads LIMIT 1"); err == nil {
			t.Error("threads table should be dropped after rollback")
		}
	})

	t.Run("Rollback Without Migrations", func(t *testing.T) {
		db := memoryDB(t)

		if err := RollbackMigration(db); err == nil {
			t.Error("expected error when nothing has been applied")
		}
	})

	t.Run("Idempotent Migrations", func(t *testing.T) {
		db := memoryDB(t)

		if err := RunMigrations(db); err != nil {
			t.Fatalf("failed to run migrations first time: %v", err)
		}
		if err := RunMigrations(db); err != nil {
			t.Fatalf("failed to run migrations second time: %v", err)
		}

		applied, err := AppliedVersions(db)
		if err != nil {
			t.Fatalf("failed to list applied versions: %v", err)
		}

		migrations, _ := loadMigrations()
		if len(applied) != len(migrations) {
			t.Errorf("expected %d migrations to be applied, got %d", len(migrations), len(applied))
		}
	})
}

func TestRemoveComments(t *testing.T) {
	in := "-- header\nCREATE TABLE t (id INTEGER) -- trailing\n\n"
	if got := removeComments(in); got != "CREATE TABLE t (id INTEGER)" {
		t.Errorf("removeComments() = %q", got)
	}
}
