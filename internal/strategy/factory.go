package strategy

import (
	"log/slog"

	"github.com/randalmurphal/repoback/internal/config"
	"github.com/randalmurphal/repoback/internal/conflict"
	"github.com/randalmurphal/repoback/internal/entity"
	bperrors "github.com/randalmurphal/repoback/internal/errors"
	"github.com/randalmurphal/repoback/internal/gitrepo"
	"github.com/randalmurphal/repoback/internal/hosting"
)

// Collaborator names used in CollaboratorMissing errors.
const (
	collabSource      = "hosting source"
	collabDestination = "hosting destination"
	collabGit         = "git repository service"
)

// Collaborators are the services strategies are built with.
type Collaborators struct {
	Source      hosting.Source
	Destination hosting.Destination
	Git         gitrepo.Service

	// Conflict settles label collisions on restore. When nil, one is built
	// from labels.conflict_strategy with Destination as the deleter.
	Conflict conflict.Strategy

	// GitURL builds clone and push URLs. When nil, git.repository_url or
	// an unauthenticated HTTPS URL on the hosting base URL is used.
	GitURL URLFunc
}

// Factory builds the save and restore strategies a configuration enables.
type Factory struct {
	cfg    *config.Config
	collab Collaborators
	logger *slog.Logger

	saveCtors    map[string]func() SaveStrategy
	restoreCtors map[string]func() RestoreStrategy
}

// NewFactory reconciles cfg in place and prepares the strategy registry.
// Dependent entity types whose parent is disabled are switched off with a
// warning, as is git_repository when no git service is supplied.
func NewFactory(cfg *config.Config, collab Collaborators, logger *slog.Logger) *Factory {
	if logger == nil {
		logger = slog.Default()
	}
	cfg.Reconcile(logger)
	if cfg.Include.GitRepository && collab.Git == nil {
		logger.Warn("disabling entity because no git service is available", "entity", entity.GitRepository)
		cfg.Include.GitRepository = false
	}
	if collab.GitURL == nil {
		collab.GitURL = defaultGitURL(cfg)
	}

	f := &Factory{cfg: cfg, collab: collab, logger: logger}
	f.register()
	return f
}

// register fills the name → constructor tables.
func (f *Factory) register() {
	src, dst, log := f.collab.Source, f.collab.Destination, f.logger
	inc := f.cfg.Include
	format, _ := gitrepo.ParseFormat(f.cfg.Git.Format)

	f.saveCtors = map[string]func() SaveStrategy{
		entity.Labels:                    func() SaveStrategy { return NewLabelsSave(src, log) },
		entity.Milestones:                func() SaveStrategy { return NewMilestonesSave(src, log) },
		entity.Issues:                    func() SaveStrategy { return NewIssuesSave(src, inc.Issues, log) },
		entity.Comments:                  func() SaveStrategy { return NewCommentsSave(src, inc.Issues, log) },
		entity.PullRequests:              func() SaveStrategy { return NewPullRequestsSave(src, inc.PullRequests, log) },
		entity.PullRequestComments:       func() SaveStrategy { return NewPullRequestCommentsSave(src, inc.PullRequests, log) },
		entity.PullRequestReviews:        func() SaveStrategy { return NewPullRequestReviewsSave(src, inc.PullRequests, log) },
		entity.PullRequestReviewComments: func() SaveStrategy { return NewPullRequestReviewCommentsSave(src, inc.PullRequests, log) },
		entity.SubIssues:                 func() SaveStrategy { return NewSubIssuesSave(src, inc.Issues, log) },
		entity.GitRepository: func() SaveStrategy {
			return NewGitRepositorySave(f.collab.Git, f.collab.GitURL, format, log)
		},
	}

	f.restoreCtors = map[string]func() RestoreStrategy{
		entity.Labels:                    func() RestoreStrategy { return NewLabelsRestore(dst, f.conflictStrategy(), log) },
		entity.Milestones:                func() RestoreStrategy { return NewMilestonesRestore(dst, log) },
		entity.Issues:                    func() RestoreStrategy { return NewIssuesRestore(dst, inc.Issues, log) },
		entity.Comments:                  func() RestoreStrategy { return NewCommentsRestore(dst, log) },
		entity.PullRequests:              func() RestoreStrategy { return NewPullRequestsRestore(dst, inc.PullRequests, log) },
		entity.PullRequestComments:       func() RestoreStrategy { return NewPullRequestCommentsRestore(dst, log) },
		entity.PullRequestReviews:        func() RestoreStrategy { return NewPullRequestReviewsRestore(dst, log) },
		entity.PullRequestReviewComments: func() RestoreStrategy { return NewPullRequestReviewCommentsRestore(dst, log) },
		entity.SubIssues:                 func() RestoreStrategy { return NewSubIssuesRestore(dst, log) },
		entity.GitRepository: func() RestoreStrategy {
			return NewGitRepositoryRestore(f.collab.Git, f.collab.GitURL, log)
		},
	}
}

// EnabledEntities returns the entity types enabled after reconciliation.
func (f *Factory) EnabledEntities() []string {
	return f.cfg.EnabledEntities()
}

// SaveStrategies returns the enabled save strategies in canonical order.
// Every required collaborator is checked before any strategy is built.
func (f *Factory) SaveStrategies() ([]SaveStrategy, error) {
	names := f.EnabledEntities()
	for _, name := range names {
		if err := f.checkSave(name); err != nil {
			return nil, err
		}
	}
	out := make([]SaveStrategy, 0, len(names))
	for _, name := range names {
		out = append(out, f.saveCtors[name]())
	}
	return out, nil
}

// RestoreStrategies returns the enabled restore strategies in canonical order.
// Every required collaborator is checked before any strategy is built.
func (f *Factory) RestoreStrategies() ([]RestoreStrategy, error) {
	names := f.EnabledEntities()
	for _, name := range names {
		if err := f.checkRestore(name); err != nil {
			return nil, err
		}
	}
	out := make([]RestoreStrategy, 0, len(names))
	for _, name := range names {
		out = append(out, f.restoreCtors[name]())
	}
	return out, nil
}

func (f *Factory) checkSave(name string) error {
	if name == entity.GitRepository {
		if f.collab.Git == nil {
			return bperrors.CollaboratorMissing(name, collabGit)
		}
		return nil
	}
	if f.collab.Source == nil {
		return bperrors.CollaboratorMissing(name, collabSource)
	}
	return nil
}

func (f *Factory) checkRestore(name string) error {
	if name == entity.GitRepository {
		if f.collab.Git == nil {
			return bperrors.CollaboratorMissing(name, collabGit)
		}
		return nil
	}
	if f.collab.Destination == nil {
		return bperrors.CollaboratorMissing(name, collabDestination)
	}
	if name == entity.Labels && f.collab.Conflict == nil {
		if _, err := f.buildConflict(); err != nil {
			return err
		}
	}
	return nil
}

// conflictStrategy returns the supplied strategy or builds the configured
// one. checkRestore has already validated the configuration.
func (f *Factory) conflictStrategy() conflict.Strategy {
	if f.collab.Conflict != nil {
		return f.collab.Conflict
	}
	s, _ := f.buildConflict()
	return s
}

func (f *Factory) buildConflict() (conflict.Strategy, error) {
	policy, err := conflict.Parse(f.cfg.Labels.ConflictStrategy)
	if err != nil {
		return nil, err
	}
	return conflict.New(policy, f.collab.Destination, f.logger)
}

// defaultGitURL prefers git.repository_url and otherwise builds an HTTPS
// URL on the hosting host.
func defaultGitURL(cfg *config.Config) URLFunc {
	return func(repo string) string {
		if cfg.Git.RepositoryURL != "" {
			return cfg.Git.RepositoryURL
		}
		return gitrepo.CloneURL(cfg.Hosting.BaseURL, repo, "")
	}
}
