package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/randalmurphal/repoback/internal/config"
	bperrors "github.com/randalmurphal/repoback/internal/errors"
	"github.com/randalmurphal/repoback/internal/gitrepo"
	"github.com/randalmurphal/repoback/internal/hosting"
	"github.com/randalmurphal/repoback/internal/lock"
	"github.com/randalmurphal/repoback/internal/storage"
	"github.com/randalmurphal/repoback/internal/strategy"

	// Hosting providers register themselves with the hosting factory.
	_ "github.com/randalmurphal/repoback/internal/hosting/github"
	_ "github.com/randalmurphal/repoback/internal/hosting/gitlab"
)

// tokenEnvVars are the token variables per provider, in lookup order.
var tokenEnvVars = map[hosting.ProviderType][]string{
	hosting.ProviderGitHub: {"GITHUB_TOKEN", "GH_TOKEN"},
	hosting.ProviderGitLab: {"GITLAB_TOKEN", "GITLAB_PRIVATE_TOKEN"},
}

// runtime holds what a save or restore run needs.
type runtime struct {
	cfg     *config.Config
	store   storage.Store
	factory *strategy.Factory
	logger  *slog.Logger

	// hostErr is why the hosting service could not be created, if it could not.
	hostErr error
}

// newRuntime validates cfg and wires storage, hosting and git for repo.
func newRuntime(ctx context.Context, cfg *config.Config, repo string, logger *slog.Logger) (*runtime, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	store, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		return nil, bperrors.Storage("", err)
	}

	rt := &runtime{cfg: cfg, store: store, logger: logger}

	var collab strategy.Collaborators
	hc := cfg.HostingConfig()
	hc.Logger = logger
	svc, err := hosting.NewService(hc, repo)
	if err != nil {
		logger.Warn("hosting service unavailable", "repository", repo, "error", err)
		rt.hostErr = err
	} else {
		collab.Source = svc
		collab.Destination = svc
	}

	if cfg.Include.GitRepository {
		format, err := gitrepo.ParseFormat(cfg.Git.Format)
		if err != nil {
			_ = store.Close()
			return nil, bperrors.ConfigInvalid("git.format", err.Error())
		}
		collab.Git = gitrepo.New(format, gitrepo.WithLogger(logger))
		collab.GitURL = gitURLFunc(cfg, repo)
	}

	rt.factory = strategy.NewFactory(cfg, collab, logger)
	return rt, nil
}

// explain attaches the hosting failure to a missing-collaborator error.
func (rt *runtime) explain(err error) error {
	be := bperrors.AsBackupError(err)
	if be == nil || be.Code != bperrors.CodeCollaboratorMissing || rt.hostErr == nil {
		return err
	}
	return be.WithCause(rt.hostErr)
}

func (rt *runtime) Close() error {
	return rt.store.Close()
}

// gitURLFunc builds authenticated clone and push URLs for the configured host.
func gitURLFunc(cfg *config.Config, repo string) strategy.URLFunc {
	provider, err := hosting.ResolveProviderType(cfg.HostingConfig(), repo)
	if err != nil {
		provider = hosting.ProviderGitHub
	}
	host := cfg.Hosting.BaseURL
	if host == "" && provider == hosting.ProviderGitLab {
		host = "gitlab.com"
	}
	token := lookupToken(cfg.Hosting.TokenEnvVar, provider)

	return func(r string) string {
		if cfg.Git.RepositoryURL != "" {
			return cfg.Git.RepositoryURL
		}
		return gitrepo.CloneURL(host, r, token)
	}
}

func lookupToken(override string, provider hosting.ProviderType) string {
	candidates := tokenEnvVars[provider]
	if override != "" {
		candidates = []string{override}
	}
	for _, name := range candidates {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}

// dataPathError reports a restore source directory that does not exist.
func dataPathError(dir string) error {
	if _, err := os.Stat(dir); err != nil {
		return bperrors.ConfigInvalid("data_path", fmt.Sprintf("cannot read backup directory %s: %v", dir, err))
	}
	return nil
}

// guardDataPath claims the backup directory of a file-backed run so two
// runs never write one directory. Database backends need no guard.
func guardDataPath(cfg *config.Config) (release func(), err error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Storage.Backend != "" && cfg.Storage.Backend != storage.BackendJSON {
		return func() {}, nil
	}
	guard := lock.NewPIDGuard(cfg.DataPath)
	if err := guard.Acquire(); err != nil {
		return nil, fmt.Errorf("claim data path: %w", err)
	}
	return guard.Release, nil
}
