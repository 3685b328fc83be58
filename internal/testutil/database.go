package testutil

import (
	"testing"

	"sqrt-go/internal/database"
	"sqrt-go/internal/sqrt"
)

// NewTestDatabase creates a new in-memory SQLite database with all
// migrations applied. When clock is not nil it stamps hashes and sync
// operations. The database is automatically closed when the test completes.
func NewTestDatabase(t *testing.T, clock sqrt.Clock) *database.SQLiteDatabase {
	t.Helper()

	db, err := database.NewSQLiteDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		t.Fatalf("failed to migrate database: %v", err)
	}
	if clock != nil {
		db.SetClock(clock)
	}

	t.Cleanup(func() {
		db.Close()
	})

	return db
}
