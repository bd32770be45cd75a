package driver

import (
	"context"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDriver(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		dialect Dialect
		wantErr bool
	}{
		{"sqlite", DialectSQLite, false},
		{"postgres", DialectPostgres, false},
		{"invalid", Dialect("invalid"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			drv, err := New(tt.dialect)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.dialect, drv.Dialect())
		})
	}
}

func TestParseDialect(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input   string
		want    Dialect
		wantErr bool
	}{
		{"sqlite", DialectSQLite, false},
		{"sqlite3", DialectSQLite, false},
		{"postgres", DialectPostgres, false},
		{"postgresql", DialectPostgres, false},
		{"pg", DialectPostgres, false},
		{"mysql", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		got, err := ParseDialect(tt.input)
		if tt.wantErr {
			assert.Error(t, err, tt.input)
			continue
		}
		require.NoError(t, err, tt.input)
		assert.Equal(t, tt.want, got)
	}
}

func TestPlaceholders(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "?", NewSQLite().Placeholder(3))
	assert.Equal(t, "$3", NewPostgres().Placeholder(3))
	assert.Equal(t, "datetime('now')", NewSQLite().Now())
	assert.Equal(t, "NOW()", NewPostgres().Now())
}

func TestSQLiteDriver_Migrate(t *testing.T) {
	t.Parallel()

	drv := NewSQLite()
	require.NoError(t, drv.Open(filepath.Join(t.TempDir(), "test.db")))
	t.Cleanup(func() { _ = drv.Close() })

	schema := fstest.MapFS{
		"schema/test_001.sql": {Data: []byte(`CREATE TABLE items (id INTEGER PRIMARY KEY, name TEXT)`)},
		"schema/test_002.sql": {Data: []byte(`ALTER TABLE items ADD COLUMN note TEXT`)},
		"schema/other_001.sql": {Data: []byte(`CREATE TABLE unrelated (id INTEGER)`)},
	}

	ctx := context.Background()
	require.NoError(t, drv.Migrate(ctx, schema, "test"))
	// Applying again is a no-op.
	require.NoError(t, drv.Migrate(ctx, schema, "test"))

	_, err := drv.Exec(ctx, "INSERT INTO items (name, note) VALUES (?, ?)", "a", "b")
	require.NoError(t, err)

	var count int
	require.NoError(t, drv.QueryRow(ctx, "SELECT COUNT(*) FROM _migrations").Scan(&count))
	assert.Equal(t, 2, count)

	var tables int
	require.NoError(t, drv.QueryRow(ctx,
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'unrelated'").Scan(&tables))
	assert.Equal(t, 0, tables, "other schema types are not applied")
}

func TestSQLiteDriver_Transaction(t *testing.T) {
	t.Parallel()

	drv := NewSQLite()
	require.NoError(t, drv.Open(filepath.Join(t.TempDir(), "tx.db")))
	t.Cleanup(func() { _ = drv.Close() })

	ctx := context.Background()
	_, err := drv.Exec(ctx, "CREATE TABLE test (id INTEGER PRIMARY KEY, name TEXT)")
	require.NoError(t, err)

	tx, err := drv.BeginTx(ctx, nil)
	require.NoError(t, err)
	_, err = tx.Exec(ctx, "INSERT INTO test (name) VALUES (?)", "kept")
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	tx2, err := drv.BeginTx(ctx, nil)
	require.NoError(t, err)
	_, _ = tx2.Exec(ctx, "INSERT INTO test (name) VALUES (?)", "dropped")
	require.NoError(t, tx2.Rollback())

	var count int
	require.NoError(t, drv.QueryRow(ctx, "SELECT COUNT(*) FROM test").Scan(&count))
	assert.Equal(t, 1, count)
}

func TestSQLiteDriver_CloseWithoutOpen(t *testing.T) {
	t.Parallel()

	assert.NoError(t, NewSQLite().Close())
}
