// Package config provides configuration management for repoback.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/randalmurphal/repoback/internal/hosting"
	"github.com/randalmurphal/repoback/internal/selection"
	"github.com/randalmurphal/repoback/internal/storage"
)

// ConfigFileName is the default configuration file name.
const ConfigFileName = "config.yaml"

// Operation is the action a run performs.
type Operation string

const (
	OperationSave    Operation = "save"
	OperationRestore Operation = "restore"
)

// Config is the repoback configuration.
type Config struct {
	// Repository is the source ("owner/name") for save and the target for restore.
	Repository string `yaml:"repository"`

	// DestinationRepository overrides the restore target.
	DestinationRepository string `yaml:"destination_repository,omitempty"`

	// DataPath is the backup directory.
	DataPath string `yaml:"data_path"`

	Operation Operation `yaml:"operation"`

	Hosting hosting.Config `yaml:"hosting"`
	Storage storage.Config `yaml:"storage"`
	Labels  LabelsConfig   `yaml:"labels"`
	Include IncludeConfig  `yaml:"include"`
	Git     GitConfig      `yaml:"git"`

	// Retry applies to hosting API calls.
	Retry hosting.RetryConfig `yaml:"retry"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// LabelsConfig configures label restore.
type LabelsConfig struct {
	// ConflictStrategy is one of fail-if-existing, fail-if-conflict, skip,
	// overwrite, delete-all.
	ConflictStrategy string `yaml:"conflict_strategy"`
}

// IncludeConfig selects the entity types a run processes.
// Labels are always included.
type IncludeConfig struct {
	Milestones          bool           `yaml:"milestones"`
	Issues              selection.Spec `yaml:"issues"`
	IssueComments       bool           `yaml:"issue_comments"`
	PullRequests        selection.Spec `yaml:"pull_requests"`
	PullRequestComments bool           `yaml:"pull_request_comments"`
	PRReviews           bool           `yaml:"pr_reviews"`
	PRReviewComments    bool           `yaml:"pr_review_comments"`
	SubIssues           bool           `yaml:"sub_issues"`
	GitRepository       bool           `yaml:"git_repository"`
}

// GitConfig configures the git repository backup.
type GitConfig struct {
	// Format is mirror or bundle.
	Format string `yaml:"format"`

	// RepositoryURL overrides the clone/push URL derived from the repository.
	RepositoryURL string `yaml:"repository_url,omitempty"`
}

// Default returns the default configuration: every entity type enabled.
func Default() *Config {
	return &Config{
		DataPath:  "./backup",
		Operation: OperationSave,
		Storage:   storage.Config{Backend: storage.BackendJSON},
		Labels:    LabelsConfig{ConflictStrategy: "fail-if-existing"},
		Include: IncludeConfig{
			Milestones:          true,
			Issues:              selection.All(),
			IssueComments:       true,
			PullRequests:        selection.All(),
			PullRequestComments: true,
			PRReviews:           true,
			PRReviewComments:    true,
			SubIssues:           true,
			GitRepository:       true,
		},
		Git:       GitConfig{Format: "mirror"},
		Retry:     hosting.DefaultRetryConfig(),
		LogLevel:  "info",
		LogFormat: "text",
	}
}

// Load reads the config at path over the defaults.
// A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// SaveTo writes the config as YAML.
func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// TargetRepository returns the repository a restore writes to.
func (c *Config) TargetRepository() string {
	if c.DestinationRepository != "" {
		return c.DestinationRepository
	}
	return c.Repository
}

// HostingConfig returns the hosting config with the top-level retry settings applied.
func (c *Config) HostingConfig() hosting.Config {
	hc := c.Hosting
	if hc.Retry == (hosting.RetryConfig{}) {
		hc.Retry = c.Retry
	}
	hc.Retry.ApplyDefaults()
	return hc
}
