package config

import (
	"fmt"
	"strings"

	"github.com/randalmurphal/repoback/internal/conflict"
	bperrors "github.com/randalmurphal/repoback/internal/errors"
	"github.com/randalmurphal/repoback/internal/gitrepo"
)

var (
	validLogLevels  = []string{"debug", "info", "warn", "error"}
	validLogFormats = []string{"text", "json"}
)

// Validate checks the configuration. Errors are CONFIG_INVALID.
func (c *Config) Validate() error {
	if err := c.validateTarget(); err != nil {
		return err
	}

	switch c.Operation {
	case OperationSave, OperationRestore:
	default:
		return bperrors.ConfigInvalid("operation",
			fmt.Sprintf("must be save or restore, got %q", c.Operation))
	}

	if _, err := conflict.Parse(c.Labels.ConflictStrategy); err != nil {
		return err
	}

	if err := c.Include.Issues.Validate("issues"); err != nil {
		return err
	}
	if err := c.Include.PullRequests.Validate("pull_requests"); err != nil {
		return err
	}

	if _, err := gitrepo.ParseFormat(c.Git.Format); err != nil {
		return bperrors.ConfigInvalid("git.format", err.Error())
	}

	if err := c.Storage.Validate(); err != nil {
		return bperrors.ConfigInvalid("storage", err.Error())
	}

	if c.Retry.MaxRetries < 0 {
		return bperrors.ConfigInvalid("retry.max_retries", "must not be negative")
	}
	if c.Retry.InitialBackoff < 0 || c.Retry.MaxBackoff < 0 {
		return bperrors.ConfigInvalid("retry", "backoff durations must not be negative")
	}

	if c.LogLevel != "" && !contains(validLogLevels, strings.ToLower(c.LogLevel)) {
		return bperrors.ConfigInvalid("log_level",
			fmt.Sprintf("must be one of %s, got %q", strings.Join(validLogLevels, ", "), c.LogLevel))
	}
	if c.LogFormat != "" && !contains(validLogFormats, c.LogFormat) {
		return bperrors.ConfigInvalid("log_format",
			fmt.Sprintf("must be text or json, got %q", c.LogFormat))
	}
	return nil
}

func (c *Config) validateTarget() error {
	if c.Repository == "" {
		return bperrors.ConfigInvalid("repository", "repository is required (owner/name)")
	}
	for _, r := range []struct{ field, value string }{
		{"repository", c.Repository},
		{"destination_repository", c.DestinationRepository},
	} {
		if r.value == "" {
			continue
		}
		if !validRepoRef(r.value) {
			return bperrors.ConfigInvalid(r.field, fmt.Sprintf("expected owner/name or a repository URL, got %q", r.value))
		}
	}
	if c.DataPath == "" {
		return bperrors.ConfigInvalid("data_path", "data path is required")
	}
	return nil
}

// validRepoRef accepts owner/name (with optional subgroups) or a URL.
func validRepoRef(ref string) bool {
	if strings.Contains(ref, "://") || strings.HasPrefix(ref, "git@") {
		return true
	}
	parts := strings.Split(strings.Trim(ref, "/"), "/")
	if len(parts) < 2 {
		return false
	}
	for _, p := range parts {
		if p == "" {
			return false
		}
	}
	return true
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
