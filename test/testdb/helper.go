package testdb

import (
	"context"
	"os"
	"testing"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/selivandex/crypto-digest/internal/adapters/database"
)

// Setup connects to TEST_DATABASE_URL, applies migrations and empties the
// digest table when the test ends. Tests are skipped when no database is configured.
func Setup(t *testing.T) *database.DB {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping postgres test")
	}

	conn, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		t.Fatalf("failed to connect to test database: %v", err)
	}

	if err := database.RunMigrations(conn.DB); err != nil {
		conn.Close()
		t.Fatalf("failed to migrate test database: %v", err)
	}

	db := database.Wrap(conn)
	Truncate(t, db)

	t.Cleanup(func() {
		Truncate(t, db)
		if err := db.Close(); err != nil {
			t.Logf("warning: failed to close database: %v", err)
		}
	})

	return db
}

// Truncate removes every archived digest
func Truncate(t *testing.T, db *database.DB) {
	t.Helper()

	if _, err := db.DB().ExecContext(context.Background(), `TRUNCATE daily_digests`); err != nil {
		t.Fatalf("failed to truncate daily_digests: %v", err)
	}
}

// CountDigests returns the number of archived digests for key
func CountDigests(t *testing.T, db *database.DB, key string) int {
	t.Helper()

	var count int
	if err := db.DB().Get(&count, `SELECT COUNT(*) FROM daily_digests WHERE date_key = $1`, key); err != nil {
		t.Fatalf("failed to count digests: %v", err)
	}
	return count
}
