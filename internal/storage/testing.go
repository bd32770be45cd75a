package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/randalmurphal/repoback/internal/storage/driver"
)

// NewTestSQLStore opens a file-backed SQLite store in a temp directory.
// The store is closed when the test completes.
func NewTestSQLStore(t testing.TB) *SQLStore {
	t.Helper()

	s, err := OpenSQLStore(context.Background(), driver.DialectSQLite, filepath.Join(t.TempDir(), "store.db"))
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})
	return s
}
