package hosting

import (
	"fmt"
	"regexp"
	"strings"
)

// DetectProvider determines the hosting provider from a repository URL.
//
// Supported URL formats:
//   - git@github.com:owner/repo.git
//   - https://github.com/owner/repo.git
//   - https://gitlab.com/group/subgroup/repo
//   - https://github.company.com/org/repo.git (GitHub Enterprise)
//   - git@gitlab.company.com:org/repo.git (self-hosted GitLab)
func DetectProvider(repoURL string) ProviderType {
	url := strings.ToLower(strings.TrimSpace(repoURL))

	for _, p := range githubPatterns {
		if p.MatchString(url) {
			return ProviderGitHub
		}
	}
	for _, p := range gitlabPatterns {
		if p.MatchString(url) {
			return ProviderGitLab
		}
	}
	return ProviderUnknown
}

var githubPatterns = []*regexp.Regexp{
	regexp.MustCompile(`github\.com([:/]|$)`),
	regexp.MustCompile(`github\.[a-z0-9-]+\.[a-z]+([:/]|$)`),
}

var gitlabPatterns = []*regexp.Regexp{
	regexp.MustCompile(`gitlab\.com([:/]|$)`),
	regexp.MustCompile(`gitlab\.[a-z0-9-]+\.[a-z]+([:/]|$)`),
}

// ParseOwnerRepo extracts owner and repo from a repository reference.
//
// Handles:
//   - owner/repo → (owner, repo)
//   - git@github.com:owner/repo.git → (owner, repo)
//   - https://github.com/owner/repo.git → (owner, repo)
//   - ssh://git@github.com:22/owner/repo.git → (owner, repo)
//   - https://gitlab.com/group/subgroup/repo → (group/subgroup, repo)
func ParseOwnerRepo(ref string) (owner, repo string) {
	raw := strings.TrimSpace(ref)
	raw = strings.TrimSuffix(strings.TrimSuffix(raw, "/"), ".git")

	switch {
	case strings.HasPrefix(raw, "ssh://"):
		raw = strings.TrimPrefix(raw, "ssh://")
		if idx := strings.Index(raw, "/"); idx != -1 {
			raw = strings.TrimLeft(raw[idx+1:], "/")
		}
	case strings.HasPrefix(raw, "https://"), strings.HasPrefix(raw, "http://"):
		raw = strings.TrimPrefix(strings.TrimPrefix(raw, "https://"), "http://")
		if idx := strings.Index(raw, "/"); idx != -1 {
			raw = raw[idx+1:]
		}
	default:
		if idx := strings.Index(raw, ":"); idx != -1 {
			raw = raw[idx+1:]
		}
	}

	// GitLab owners may be "group/subgroup"; the last segment is the repo.
	parts := strings.Split(raw, "/")
	if len(parts) < 2 {
		return raw, ""
	}
	return strings.Join(parts[:len(parts)-1], "/"), parts[len(parts)-1]
}

// SplitRepo is ParseOwnerRepo with validation.
func SplitRepo(ref string) (owner, repo string, err error) {
	owner, repo = ParseOwnerRepo(ref)
	if owner == "" || repo == "" {
		return "", "", fmt.Errorf("invalid repository %q (expected owner/name)", ref)
	}
	return owner, repo, nil
}
