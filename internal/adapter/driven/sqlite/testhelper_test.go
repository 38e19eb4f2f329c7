package sqlite

import (
	"context"
	"fmt"
	"net/url"
	"testing"
)

// testKey is a fixed 32-byte AES-256 key for repo tests.
var testKey = []byte("0123456789abcdef0123456789abcdef")

// setupTestDB creates a named shared in-memory SQLite database with all
// migrations applied. The name is derived from t.Name() so parallel tests
// never share state.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	// Percent-encode so the test name cannot be read as DSN query parameters.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&%s", url.PathEscape(t.Name()), pragmas)

	db, err := openDB(context.Background(), dsn, dsn)
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}

	if err := RunMigrations(db.Writer); err != nil {
		_ = db.Close()
		t.Fatalf("run migrations: %v", err)
	}

	t.Cleanup(func() { _ = db.Close() })
	return db
}

func setupCredentialRepo(t *testing.T, db *DB) *CredentialRepo {
	t.Helper()
	repo, err := NewCredentialRepo(db, testKey)
	if err != nil {
		t.Fatalf("create credential repo: %v", err)
	}
	return repo
}
