package github

import (
	"fmt"
	"os"

	"github.com/randalmurphal/repoback/internal/hosting"
)

// tokenEnvVars are consulted in order when no override is configured.
var tokenEnvVars = []string{"GITHUB_TOKEN", "GH_TOKEN"}

// resolveToken gets the GitHub API token from the environment.
// cfg.TokenEnvVar, when set, is the only variable consulted.
func resolveToken(cfg hosting.Config) (string, error) {
	candidates := tokenEnvVars
	if cfg.TokenEnvVar != "" {
		candidates = []string{cfg.TokenEnvVar}
	}

	for _, envVar := range candidates {
		if token := os.Getenv(envVar); token != "" {
			return token, nil
		}
	}

	return "", fmt.Errorf("%w: %s environment variable is not set (required for GitHub API access)",
		hosting.ErrAuthFailed, candidates[0])
}
