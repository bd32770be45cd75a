package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/repoback/internal/entity"
)

// stores returns one instance of every backend that runs without a server.
func stores(t *testing.T) map[string]Store {
	t.Helper()
	return map[string]Store{
		"json":   NewJSONStore(),
		"sqlite": NewTestSQLStore(t),
	}
}

func TestStore_WriteRead(t *testing.T) {
	t.Parallel()

	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			dir := t.TempDir()

			labels := []entity.Label{
				{Name: "bug", Color: "d73a4a"},
				{Name: "feature", Color: "a2eeef", Description: "new things"},
			}
			require.NoError(t, s.Write(ctx, dir, entity.Labels, labels))

			got, err := ReadRecords[entity.Label](ctx, s, dir, entity.Labels)
			require.NoError(t, err)
			assert.Equal(t, labels, got)

			ok, err := s.Exists(ctx, dir, entity.Labels)
			require.NoError(t, err)
			assert.True(t, ok)

			ok, err = s.Exists(ctx, dir, entity.Milestones)
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestStore_OverwriteReplacesCollection(t *testing.T) {
	t.Parallel()

	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			dir := t.TempDir()

			require.NoError(t, s.Write(ctx, dir, entity.Labels, []entity.Label{{Name: "a"}, {Name: "b"}}))
			require.NoError(t, s.Write(ctx, dir, entity.Labels, []entity.Label{{Name: "c"}}))

			got, err := ReadRecords[entity.Label](ctx, s, dir, entity.Labels)
			require.NoError(t, err)
			require.Len(t, got, 1)
			assert.Equal(t, "c", got[0].Name)
		})
	}
}

func TestStore_NilWritesEmptyList(t *testing.T) {
	t.Parallel()

	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			dir := t.TempDir()

			var none []entity.Issue
			require.NoError(t, s.Write(ctx, dir, entity.Issues, none))

			got, err := ReadRecords[entity.Issue](ctx, s, dir, entity.Issues)
			require.NoError(t, err)
			assert.Empty(t, got)
		})
	}
}

func TestStore_ReadMissing(t *testing.T) {
	t.Parallel()

	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := ReadRecords[entity.Label](context.Background(), s, t.TempDir(), entity.Labels)
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestStore_WriteRejectsNonList(t *testing.T) {
	t.Parallel()

	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			err := s.Write(context.Background(), t.TempDir(), entity.Labels, entity.Label{Name: "x"})
			assert.Error(t, err)
		})
	}
}

func TestStore_Entities(t *testing.T) {
	t.Parallel()

	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			dir := t.TempDir()

			require.NoError(t, s.Write(ctx, dir, entity.Milestones, []entity.Milestone{}))
			require.NoError(t, s.Write(ctx, dir, entity.Labels, []entity.Label{}))
			require.NoError(t, s.Write(ctx, t.TempDir(), entity.Issues, []entity.Issue{}))

			names, err := s.Entities(ctx, dir)
			require.NoError(t, err)
			assert.Equal(t, []string{entity.Labels, entity.Milestones}, names)
		})
	}
}

func TestJSONStore_Corrupt(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"invalid json": `[{"name": "bug"`,
		"not an array": `{"name": "bug"}`,
		"wrong shape":  `[{"name": 42}]`,
	}

	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			dir := t.TempDir()
			require.NoError(t, os.WriteFile(filepath.Join(dir, "labels.json"), []byte(content), 0o644))

			_, err := ReadRecords[entity.Label](context.Background(), NewJSONStore(), dir, entity.Labels)
			assert.ErrorIs(t, err, ErrCorrupt)
		})
	}
}

func TestJSONStore_LayoutAndManifestExcluded(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "nested", "backup")
	s := NewJSONStore()

	require.NoError(t, s.Write(ctx, dir, entity.Labels, []entity.Label{{Name: "bug"}}))
	assert.FileExists(t, filepath.Join(dir, "labels.json"))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "manifest.json"), []byte(`{}`), 0o644))
	names, err := s.Entities(ctx, dir)
	require.NoError(t, err)
	assert.Equal(t, []string{entity.Labels}, names)

	// No temp files left behind.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestJSONStore_EntitiesMissingDir(t *testing.T) {
	t.Parallel()

	names, err := NewJSONStore().Entities(context.Background(), filepath.Join(t.TempDir(), "absent"))
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestSQLStore_Counts(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewTestSQLStore(t)

	require.NoError(t, s.Write(ctx, "b1", entity.Labels, []entity.Label{{Name: "a"}, {Name: "b"}}))
	require.NoError(t, s.Write(ctx, "b1", entity.Milestones, []entity.Milestone{{Title: "v1"}}))
	require.NoError(t, s.Write(ctx, "b2", entity.Labels, []entity.Label{{Name: "c"}}))

	counts, err := s.Counts(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{entity.Labels: 2, entity.Milestones: 1}, counts)
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"default", Config{}, false},
		{"json", Config{Backend: BackendJSON}, false},
		{"sqlite with dsn", Config{Backend: BackendSQLite, DSN: "x.db"}, false},
		{"sqlite without dsn", Config{Backend: BackendSQLite}, true},
		{"postgres without dsn", Config{Backend: BackendPostgres}, true},
		{"unknown", Config{Backend: "s3"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNew(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	s, err := New(ctx, Config{})
	require.NoError(t, err)
	assert.IsType(t, &JSONStore{}, s)

	s, err = New(ctx, Config{Backend: BackendSQLite, DSN: filepath.Join(t.TempDir(), "s.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	assert.IsType(t, &SQLStore{}, s)
}
