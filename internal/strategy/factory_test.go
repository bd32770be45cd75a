package strategy

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/repoback/internal/config"
	"github.com/randalmurphal/repoback/internal/entity"
	bperrors "github.com/randalmurphal/repoback/internal/errors"
	"github.com/randalmurphal/repoback/internal/gitrepo"
	"github.com/randalmurphal/repoback/internal/hosting/hostingtest"
	"github.com/randalmurphal/repoback/internal/selection"
	"github.com/randalmurphal/repoback/internal/storage"
)

// fakeGit is an in-memory gitrepo.Service.
type fakeGit struct {
	cloned   []string
	restored []string
	err      error
}

func (g *fakeGit) Clone(_ context.Context, repoURL, destDir string) gitrepo.Result {
	if g.err != nil {
		return gitrepo.Result{Err: g.err}
	}
	g.cloned = append(g.cloned, repoURL)
	path := filepath.Join(destDir, gitrepo.MirrorDir)
	_ = os.MkdirAll(path, 0o755)
	return gitrepo.Result{Success: true, Path: path, Format: gitrepo.FormatMirror, SizeBytes: 42}
}

func (g *fakeGit) Restore(_ context.Context, backupPath, destURL string) gitrepo.Result {
	if g.err != nil {
		return gitrepo.Result{Err: g.err}
	}
	g.restored = append(g.restored, backupPath+" -> "+destURL)
	return gitrepo.Result{Success: true, Path: backupPath}
}

func (g *fakeGit) Validate(context.Context, string) gitrepo.Result {
	return gitrepo.Result{Success: true}
}

func names[T interface{ Name() string }](items []T) []string {
	out := make([]string, 0, len(items))
	for _, s := range items {
		out = append(out, s.Name())
	}
	return out
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Repository = "octo/hello"
	return cfg
}

func TestFactory_AllEntities(t *testing.T) {
	t.Parallel()

	fake := hostingtest.New()
	f := NewFactory(testConfig(), Collaborators{Source: fake, Destination: fake, Git: &fakeGit{}}, quietLogger())

	saves, err := f.SaveStrategies()
	require.NoError(t, err)
	assert.Equal(t, entity.All, names(saves))

	restores, err := f.RestoreStrategies()
	require.NoError(t, err)
	assert.Equal(t, entity.All, names(restores))

	for _, s := range saves {
		assert.Equal(t, entity.Dependencies[s.Name()], s.Dependencies())
	}
}

func TestFactory_CommentsDisabledWithoutIssues(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	cfg := testConfig()
	cfg.Include.Issues = selection.None()
	cfg.Include.IssueComments = true

	fake := hostingtest.New()
	f := NewFactory(cfg, Collaborators{Source: fake, Destination: fake, Git: &fakeGit{}}, logger)

	assert.False(t, cfg.Include.IssueComments, "config is reconciled in place")
	assert.NotContains(t, f.EnabledEntities(), entity.Comments)
	assert.Contains(t, buf.String(), "level=WARN")
	assert.Contains(t, buf.String(), "entity=comments")

	saves, err := f.SaveStrategies()
	require.NoError(t, err)
	assert.NotContains(t, names(saves), entity.Comments)
}

func TestFactory_GitDisabledWithoutService(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	cfg := testConfig()
	fake := hostingtest.New()
	f := NewFactory(cfg, Collaborators{Source: fake}, slog.New(slog.NewTextHandler(&buf, nil)))

	assert.False(t, cfg.Include.GitRepository)
	assert.NotContains(t, f.EnabledEntities(), entity.GitRepository)
	assert.Contains(t, buf.String(), "entity=git_repository")
}

func TestFactory_RestoreWithoutDestination(t *testing.T) {
	t.Parallel()

	f := NewFactory(testConfig(), Collaborators{Source: hostingtest.New()}, quietLogger())

	_, err := f.RestoreStrategies()
	require.Error(t, err)
	assert.True(t, errors.Is(err, bperrors.ErrCollaboratorMissing))

	be := bperrors.AsBackupError(err)
	require.NotNil(t, be)
	assert.Equal(t, entity.Labels, be.Entity)
	assert.Contains(t, err.Error(), "hosting destination")
}

func TestFactory_SaveWithoutSource(t *testing.T) {
	t.Parallel()

	f := NewFactory(testConfig(), Collaborators{Destination: hostingtest.New()}, quietLogger())

	_, err := f.SaveStrategies()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "labels")
	assert.Contains(t, err.Error(), "hosting source")
}

func TestFactory_InvalidConflictStrategy(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Labels.ConflictStrategy = "merge"
	fake := hostingtest.New()

	_, err := NewFactory(cfg, Collaborators{Destination: fake}, quietLogger()).RestoreStrategies()
	assert.True(t, errors.Is(err, bperrors.ErrConfig))
}

func TestGitRepository_SaveAndRestore(t *testing.T) {
	t.Parallel()

	git := &fakeGit{}
	urlFor := func(repo string) string { return gitrepo.CloneURL("github.com", repo, "secret") }
	store := storage.NewJSONStore()
	dir := t.TempDir()
	ec := NewContext()

	records := runSave(t, NewGitRepositorySave(git, urlFor, gitrepo.FormatMirror, quietLogger()), ec, store, dir)
	require.Len(t, records, 1)
	require.Len(t, git.cloned, 1)
	assert.Contains(t, git.cloned[0], "secret", "the clone uses the authenticated URL")

	saved, err := storage.ReadRecords[*entity.GitMirror](context.Background(), store, dir, entity.GitRepository)
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.Equal(t, gitrepo.MirrorDir, saved[0].Path)
	assert.Equal(t, int64(42), saved[0].SizeBytes)
	assert.NotContains(t, saved[0].URL, "secret")

	assert.Equal(t, 1, runRestore(t, NewGitRepositoryRestore(git, urlFor, quietLogger()), NewContext(), store, dir))
	require.Len(t, git.restored, 1)
	assert.Contains(t, git.restored[0], filepath.Join(dir, gitrepo.MirrorDir))
	assert.Contains(t, git.restored[0], "octo/copy.git")
}

func TestGitRepository_CloneFailure(t *testing.T) {
	t.Parallel()

	git := &fakeGit{err: errors.New("auth required")}
	s := NewGitRepositorySave(git, func(string) string { return "https://example.com/x.git" }, gitrepo.FormatMirror, quietLogger())

	records, err := s.Collect(context.Background(), "octo/hello")
	require.NoError(t, err)
	_, err = s.Persist(context.Background(), storage.NewJSONStore(), t.TempDir(), records)
	require.Error(t, err)
	assert.True(t, errors.Is(err, bperrors.ErrGit))
	assert.Contains(t, err.Error(), "auth required")
}
