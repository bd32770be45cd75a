package config

import (
	"log/slog"

	"github.com/randalmurphal/repoback/internal/entity"
)

// Reconcile disables dependent entity types whose parent is disabled, so
// later stages never see an inconsistent selection. Each change is logged
// as a warning. Returns the entity names that were disabled.
func (c *Config) Reconcile(logger *slog.Logger) []string {
	if logger == nil {
		logger = slog.Default()
	}

	var disabled []string
	disable := func(flag *bool, name, requires string) {
		if !*flag {
			return
		}
		*flag = false
		disabled = append(disabled, name)
		logger.Warn("disabling entity because its parent is disabled",
			"entity", name,
			"requires", requires)
	}

	inc := &c.Include
	if !inc.Issues.Enabled() {
		disable(&inc.IssueComments, entity.Comments, entity.Issues)
		disable(&inc.SubIssues, entity.SubIssues, entity.Issues)
	}
	if !inc.PullRequests.Enabled() {
		disable(&inc.PullRequestComments, entity.PullRequestComments, entity.PullRequests)
		disable(&inc.PRReviews, entity.PullRequestReviews, entity.PullRequests)
		disable(&inc.PRReviewComments, entity.PullRequestReviewComments, entity.PullRequests)
	}
	if !inc.PRReviews {
		disable(&inc.PRReviewComments, entity.PullRequestReviewComments, entity.PullRequestReviews)
	}
	return disabled
}

// EnabledEntities returns the entity types the configuration enables, in
// canonical order. Labels are always enabled.
func (c *Config) EnabledEntities() []string {
	inc := c.Include
	enabled := map[string]bool{
		entity.Labels:                    true,
		entity.Milestones:                inc.Milestones,
		entity.Issues:                    inc.Issues.Enabled(),
		entity.Comments:                  inc.IssueComments && inc.Issues.Enabled(),
		entity.PullRequests:              inc.PullRequests.Enabled(),
		entity.PullRequestComments:       inc.PullRequestComments && inc.PullRequests.Enabled(),
		entity.PullRequestReviews:        inc.PRReviews && inc.PullRequests.Enabled(),
		entity.PullRequestReviewComments: inc.PRReviewComments && inc.PRReviews && inc.PullRequests.Enabled(),
		entity.SubIssues:                 inc.SubIssues && inc.Issues.Enabled(),
		entity.GitRepository:             inc.GitRepository,
	}

	var names []string
	for _, name := range entity.All {
		if enabled[name] {
			names = append(names, name)
		}
	}
	return names
}

// IsEnabled reports whether name is among EnabledEntities.
func (c *Config) IsEnabled(name string) bool {
	return contains(c.EnabledEntities(), name)
}
