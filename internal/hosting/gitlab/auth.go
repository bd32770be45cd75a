package gitlab

import (
	"fmt"
	"os"

	"github.com/randalmurphal/repoback/internal/hosting"
)

// resolveToken gets the GitLab API token from environment.
// Uses cfg.TokenEnvVar if set, otherwise tries GITLAB_TOKEN then GITLAB_PRIVATE_TOKEN.
func resolveToken(cfg hosting.Config) (string, error) {
	if cfg.TokenEnvVar != "" {
		token := os.Getenv(cfg.TokenEnvVar)
		if token == "" {
			return "", fmt.Errorf("%w: %s environment variable is not set", hosting.ErrAuthFailed, cfg.TokenEnvVar)
		}
		return token, nil
	}

	for _, envVar := range []string{"GITLAB_TOKEN", "GITLAB_PRIVATE_TOKEN"} {
		if token := os.Getenv(envVar); token != "" {
			return token, nil
		}
	}

	return "", fmt.Errorf("%w: GITLAB_TOKEN or GITLAB_PRIVATE_TOKEN environment variable is not set (required for GitLab API access)",
		hosting.ErrAuthFailed)
}
