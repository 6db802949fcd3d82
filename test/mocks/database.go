package mocks

import (
	"testing"

	"github.com/aimd54/fanscore/internal/repository"
	"github.com/aimd54/fanscore/pkg/logger"
)

// NewTestDB creates a migrated in-memory SQLite database that is closed when the test ends.
func NewTestDB(t testing.TB) *repository.DB {
	t.Helper()

	db, err := repository.NewSQLiteDB(":memory:", logger.Nop())
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	if err := db.AutoMigrate(); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	t.Cleanup(func() {
		_ = db.Close()
	})
	return db
}
