package strategy

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/randalmurphal/repoback/internal/entity"
	bperrors "github.com/randalmurphal/repoback/internal/errors"
	"github.com/randalmurphal/repoback/internal/gitrepo"
	"github.com/randalmurphal/repoback/internal/hosting"
	"github.com/randalmurphal/repoback/internal/storage"
)

// URLFunc returns the authenticated git URL for a repository reference.
type URLFunc func(repo string) string

// GitRepositorySave mirrors the repository's git data next to the metadata.
type GitRepositorySave struct {
	meta
	git    gitrepo.Service
	urlFor URLFunc
	format gitrepo.Format
}

// NewGitRepositorySave creates the git repository save strategy.
func NewGitRepositorySave(git gitrepo.Service, urlFor URLFunc, format gitrepo.Format, logger *slog.Logger) *GitRepositorySave {
	return &GitRepositorySave{meta: newMeta(entity.GitRepository, logger), git: git, urlFor: urlFor, format: format}
}

// Collect describes the mirror to take; the clone happens in Persist,
// once the backup directory is known.
func (s *GitRepositorySave) Collect(_ context.Context, repo string) ([]entity.Record, error) {
	return []entity.Record{&entity.GitMirror{
		Repository: repo,
		URL:        gitrepo.RedactURL(s.urlFor(repo)),
		Format:     string(s.format),
	}}, nil
}

func (s *GitRepositorySave) Transform(records []entity.Record, _ *Context) ([]entity.Record, error) {
	return records, nil
}

// Persist clones into dir and saves the mirror description with its
// path relative to dir.
func (s *GitRepositorySave) Persist(ctx context.Context, store storage.Store, dir string, records []entity.Record) (int, error) {
	for _, r := range records {
		m, err := as[*entity.GitMirror](r)
		if err != nil {
			return 0, err
		}
		res := s.git.Clone(ctx, s.urlFor(m.Repository), dir)
		if !res.Success {
			return 0, bperrors.Git("clone", res.Err)
		}
		rel, err := filepath.Rel(dir, res.Path)
		if err != nil {
			rel = res.Path
		}
		m.Path = rel
		m.SizeBytes = res.SizeBytes
		if res.Format != "" {
			m.Format = string(res.Format)
		}
	}
	return persist(ctx, store, dir, s.name, records)
}

// GitRepositoryRestore pushes a saved mirror or bundle to the destination.
type GitRepositoryRestore struct {
	meta
	NoConflicts
	NoPostCreate
	git    gitrepo.Service
	urlFor URLFunc
}

// NewGitRepositoryRestore creates the git repository restore strategy.
func NewGitRepositoryRestore(git gitrepo.Service, urlFor URLFunc, logger *slog.Logger) *GitRepositoryRestore {
	return &GitRepositoryRestore{meta: newMeta(entity.GitRepository, logger), git: git, urlFor: urlFor}
}

// Read loads the mirror descriptions and resolves their paths against dir.
func (s *GitRepositoryRestore) Read(ctx context.Context, store storage.Store, dir string) ([]entity.Record, error) {
	mirrors, err := storage.ReadRecords[*entity.GitMirror](ctx, store, dir, s.name)
	if err != nil {
		return nil, err
	}
	for _, m := range mirrors {
		if m.Path != "" && !filepath.IsAbs(m.Path) {
			m.Path = filepath.Join(dir, m.Path)
		}
	}
	return entity.ToRecords(mirrors), nil
}

func (s *GitRepositoryRestore) Transform(record entity.Record, _ *Context) (any, bool, error) {
	m, err := as[*entity.GitMirror](record)
	if err != nil {
		return nil, false, err
	}
	if m.Path == "" {
		return nil, false, fmt.Errorf("git backup for %s has no path", m.Repository)
	}
	return m, true, nil
}

func (s *GitRepositoryRestore) Write(ctx context.Context, repo string, payload any) (*hosting.Created, error) {
	m, err := as[*entity.GitMirror](payload)
	if err != nil {
		return nil, err
	}
	res := s.git.Restore(ctx, m.Path, s.urlFor(repo))
	if !res.Success {
		return nil, bperrors.Git("restore", res.Err)
	}
	return &hosting.Created{Name: m.Path}, nil
}
