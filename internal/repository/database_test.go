package repository

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/aimd54/fanscore/internal/config"
	"github.com/aimd54/fanscore/pkg/logger"
)

// setupTestDB creates an in-memory SQLite database for testing
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := NewSQLiteDB(":memory:", logger.Nop())
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	if err := db.AutoMigrate(); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("Failed to close test database: %v", err)
		}
	})

	return db
}

func TestDB_Health(t *testing.T) {
	db := setupTestDB(t)

	if err := db.Health(context.Background()); err != nil {
		t.Fatalf("Health() failed: %v", err)
	}
	if got := db.Dialect(); got != "sqlite" {
		t.Errorf("Dialect() = %q, want sqlite", got)
	}
}

func TestOpen_SQLiteFile(t *testing.T) {
	cfg := &config.DatabaseConfig{
		Driver: config.DatabaseDriverSQLite,
		SQLite: config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "fanscore.db")},
	}

	db, err := Open(cfg, logger.Nop())
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer db.Close()

	if err := db.AutoMigrate(); err != nil {
		t.Fatalf("AutoMigrate() failed: %v", err)
	}
	if !db.Migrator().HasTable("fan_scores") {
		t.Error("Expected fan_scores table after AutoMigrate")
	}
}

func TestOpen_UnknownDriver(t *testing.T) {
	if _, err := Open(&config.DatabaseConfig{Driver: "mysql"}, logger.Nop()); err == nil {
		t.Fatal("Expected error for unknown driver")
	}
}

func TestRunMigrations_RequiresPostgres(t *testing.T) {
	db := setupTestDB(t)

	if err := RunMigrations(db, logger.Nop()); err == nil {
		t.Fatal("Expected error when migrating sqlite")
	}
}

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		t.Fatalf("ReadDir() failed: %v", err)
	}

	ups := 0
	for _, e := range entries {
		if len(e.Name()) > 7 && e.Name()[len(e.Name())-7:] == ".up.sql" {
			ups++
		}
	}
	if ups != 3 {
		t.Errorf("Expected 3 up migrations, got %d", ups)
	}
}
