package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/randalmurphal/repoback/internal/selection"
)

// EnvVarMapping maps REPOBACK_* environment variables to config paths.
var EnvVarMapping = map[string]string{
	"REPOBACK_REPOSITORY":             "repository",
	"REPOBACK_DESTINATION_REPOSITORY": "destination_repository",
	"REPOBACK_DATA_PATH":              "data_path",
	"REPOBACK_OPERATION":              "operation",
	"REPOBACK_LOG_LEVEL":              "log_level",
	"REPOBACK_LOG_FORMAT":             "log_format",
	// Hosting
	"REPOBACK_PROVIDER":      "hosting.provider",
	"REPOBACK_BASE_URL":      "hosting.base_url",
	"REPOBACK_TOKEN_ENV_VAR": "hosting.token_env_var",
	// Storage
	"REPOBACK_STORAGE_BACKEND": "storage.backend",
	"REPOBACK_STORAGE_DSN":     "storage.dsn",
	// Labels
	"REPOBACK_LABEL_CONFLICT_STRATEGY": "labels.conflict_strategy",
	// Entity selection
	"REPOBACK_INCLUDE_MILESTONES":            "include.milestones",
	"REPOBACK_INCLUDE_ISSUES":                "include.issues",
	"REPOBACK_INCLUDE_ISSUE_COMMENTS":        "include.issue_comments",
	"REPOBACK_INCLUDE_PULL_REQUESTS":         "include.pull_requests",
	"REPOBACK_INCLUDE_PULL_REQUEST_COMMENTS": "include.pull_request_comments",
	"REPOBACK_INCLUDE_PR_REVIEWS":            "include.pr_reviews",
	"REPOBACK_INCLUDE_PR_REVIEW_COMMENTS":    "include.pr_review_comments",
	"REPOBACK_INCLUDE_SUB_ISSUES":            "include.sub_issues",
	"REPOBACK_INCLUDE_GIT_REPO":              "include.git_repository",
	// Git
	"REPOBACK_GIT_FORMAT":         "git.format",
	"REPOBACK_GIT_REPOSITORY_URL": "git.repository_url",
	// Retry
	"REPOBACK_MAX_RETRIES":     "retry.max_retries",
	"REPOBACK_INITIAL_BACKOFF": "retry.initial_backoff",
	"REPOBACK_MAX_BACKOFF":     "retry.max_backoff",
}

// LegacyEnvVarMapping keeps the unprefixed variable names older container
// deployments use. REPOBACK_* variables take precedence.
var LegacyEnvVarMapping = map[string]string{
	"GITHUB_REPO":                   "repository",
	"DATA_PATH":                     "data_path",
	"OPERATION":                     "operation",
	"LABEL_CONFLICT_STRATEGY":       "labels.conflict_strategy",
	"INCLUDE_MILESTONES":            "include.milestones",
	"INCLUDE_ISSUES":                "include.issues",
	"INCLUDE_ISSUE_COMMENTS":        "include.issue_comments",
	"INCLUDE_PULL_REQUESTS":         "include.pull_requests",
	"INCLUDE_PULL_REQUEST_COMMENTS": "include.pull_request_comments",
	"INCLUDE_PR_REVIEWS":            "include.pr_reviews",
	"INCLUDE_PR_REVIEW_COMMENTS":    "include.pr_review_comments",
	"INCLUDE_SUB_ISSUES":            "include.sub_issues",
	"INCLUDE_GIT_REPO":              "include.git_repository",
	"GIT_BACKUP_FORMAT":             "git.format",
}

// ApplyEnvVars applies environment variable overrides to tc.
// Returns the config paths that were overridden, sorted.
func ApplyEnvVars(tc *TrackedConfig) ([]string, error) {
	applied := make(map[string]bool)

	apply := func(mapping map[string]string) error {
		for _, envVar := range sortedKeys(mapping) {
			path := mapping[envVar]
			value, ok := os.LookupEnv(envVar)
			if !ok || value == "" || applied[path] {
				continue
			}
			if err := applyEnvVar(tc.Config, path, value); err != nil {
				return fmt.Errorf("%s: %w", envVar, err)
			}
			tc.SetSourceWithPath(path, SourceEnv, envVar)
			applied[path] = true
		}
		return nil
	}

	if err := apply(EnvVarMapping); err != nil {
		return nil, err
	}
	if err := apply(LegacyEnvVarMapping); err != nil {
		return nil, err
	}

	overridden := make([]string, 0, len(applied))
	for path := range applied {
		overridden = append(overridden, path)
	}
	sort.Strings(overridden)
	return overridden, nil
}

// applyEnvVar applies a single value to the config path.
func applyEnvVar(cfg *Config, path string, value string) error {
	switch path {
	case "repository":
		cfg.Repository = value
	case "destination_repository":
		cfg.DestinationRepository = value
	case "data_path":
		cfg.DataPath = value
	case "operation":
		cfg.Operation = Operation(strings.ToLower(value))
	case "log_level":
		cfg.LogLevel = value
	case "log_format":
		cfg.LogFormat = value
	case "hosting.provider":
		cfg.Hosting.Provider = value
	case "hosting.base_url":
		cfg.Hosting.BaseURL = value
	case "hosting.token_env_var":
		cfg.Hosting.TokenEnvVar = value
	case "storage.backend":
		cfg.Storage.Backend = value
	case "storage.dsn":
		cfg.Storage.DSN = value
	case "labels.conflict_strategy":
		cfg.Labels.ConflictStrategy = value
	case "include.milestones":
		cfg.Include.Milestones = parseBool(value)
	case "include.issues":
		spec, err := selection.Parse("issues", value)
		if err != nil {
			return err
		}
		cfg.Include.Issues = spec
	case "include.issue_comments":
		cfg.Include.IssueComments = parseBool(value)
	case "include.pull_requests":
		spec, err := selection.Parse("pull_requests", value)
		if err != nil {
			return err
		}
		cfg.Include.PullRequests = spec
	case "include.pull_request_comments":
		cfg.Include.PullRequestComments = parseBool(value)
	case "include.pr_reviews":
		cfg.Include.PRReviews = parseBool(value)
	case "include.pr_review_comments":
		cfg.Include.PRReviewComments = parseBool(value)
	case "include.sub_issues":
		cfg.Include.SubIssues = parseBool(value)
	case "include.git_repository":
		cfg.Include.GitRepository = parseBool(value)
	case "git.format":
		cfg.Git.Format = value
	case "git.repository_url":
		cfg.Git.RepositoryURL = value
	case "retry.max_retries":
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid integer %q", value)
		}
		cfg.Retry.MaxRetries = v
	case "retry.initial_backoff":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration %q", value)
		}
		cfg.Retry.InitialBackoff = d
	case "retry.max_backoff":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration %q", value)
		}
		cfg.Retry.MaxBackoff = d
	default:
		return fmt.Errorf("unknown config path %q", path)
	}
	return nil
}

// parseBool parses a boolean string (case-insensitive).
func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "1" || s == "yes" || s == "on"
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
