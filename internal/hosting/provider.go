// Package hosting provides a unified interface for git hosting providers (GitHub, GitLab).
//
// The backup engine reads from a Source and writes to a Destination. Provider
// packages convert API responses into entity records and entity payloads into
// API requests.
package hosting

import (
	"context"

	"github.com/randalmurphal/repoback/internal/entity"
)

// ProviderType identifies which hosting provider is in use.
type ProviderType string

const (
	ProviderGitHub  ProviderType = "github"
	ProviderGitLab  ProviderType = "gitlab"
	ProviderUnknown ProviderType = "unknown"
)

// Source reads repository metadata. Every method returns the complete
// collection for the repository; pagination is the provider's concern.
// repo is "owner/name".
type Source interface {
	GetLabels(ctx context.Context, repo string) ([]*entity.Label, error)
	GetMilestones(ctx context.Context, repo string) ([]*entity.Milestone, error)
	GetIssues(ctx context.Context, repo string) ([]*entity.Issue, error)
	GetAllIssueComments(ctx context.Context, repo string) ([]*entity.Comment, error)
	GetPullRequests(ctx context.Context, repo string) ([]*entity.PullRequest, error)
	GetAllPullRequestComments(ctx context.Context, repo string) ([]*entity.PullRequestComment, error)
	GetAllPullRequestReviews(ctx context.Context, repo string) ([]*entity.PullRequestReview, error)
	GetAllPullRequestReviewComments(ctx context.Context, repo string) ([]*entity.PullRequestReviewComment, error)
	GetSubIssues(ctx context.Context, repo string) ([]*entity.SubIssue, error)
}

// Destination recreates repository metadata.
//
// Create methods return ErrAlreadyExists when the destination rejects the
// payload because of a uniqueness constraint.
type Destination interface {
	// Labels, also used for conflict detection
	GetLabels(ctx context.Context, repo string) ([]*entity.Label, error)
	CreateLabel(ctx context.Context, repo string, label LabelCreate) (*Created, error)
	DeleteLabel(ctx context.Context, repo string, name string) error

	CreateMilestone(ctx context.Context, repo string, opts MilestoneCreate) (*Created, error)

	// Issues and their comments
	CreateIssue(ctx context.Context, repo string, opts IssueCreate) (*Created, error)
	CloseIssue(ctx context.Context, repo string, number int, reason string) error
	CreateIssueComment(ctx context.Context, repo string, issueNumber int, body string) (*Created, error)
	AddSubIssue(ctx context.Context, repo string, parentNumber, childNumber int) error

	// Pull requests
	CreatePullRequest(ctx context.Context, repo string, opts PullRequestCreate) (*Created, error)
	CreatePullRequestComment(ctx context.Context, repo string, prNumber int, body string) (*Created, error)
	CreatePullRequestReview(ctx context.Context, repo string, prNumber int, opts ReviewCreate) (*Created, error)
	CreatePullRequestReviewComment(ctx context.Context, repo string, prNumber int, opts ReviewCommentCreate) (*Created, error)
}

// Service is a provider that can act as both source and destination.
type Service interface {
	Source
	Destination

	Name() ProviderType
}

// AlreadyExistsNumber marks a Created value for an entity that already
// existed at the destination.
const AlreadyExistsNumber = -1

// Created describes an entity the destination created.
type Created struct {
	ID      int64  `json:"id"`
	Number  int    `json:"number"`
	Name    string `json:"name,omitempty"`
	URL     string `json:"url,omitempty"`
	Existed bool   `json:"existed,omitempty"`
}

// ExistingCreated returns the marker for an entity that was not created
// because it already existed.
func ExistingCreated() *Created {
	return &Created{Number: AlreadyExistsNumber, Existed: true}
}

// LabelCreate for creating a label.
type LabelCreate struct {
	Name        string `json:"name"`
	Color       string `json:"color"`
	Description string `json:"description,omitempty"`
}

// MilestoneCreate for creating a milestone.
type MilestoneCreate struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	State       string `json:"state,omitempty"`  // open, closed
	DueOn       string `json:"due_on,omitempty"` // RFC 3339
}

// IssueCreate for creating an issue. Milestone is a destination milestone number.
type IssueCreate struct {
	Title     string   `json:"title"`
	Body      string   `json:"body"`
	Labels    []string `json:"labels,omitempty"`
	Milestone *int     `json:"milestone,omitempty"`
	Assignees []string `json:"assignees,omitempty"`
}

// PullRequestCreate for creating a pull request.
type PullRequestCreate struct {
	Title     string   `json:"title"`
	Body      string   `json:"body"`
	Head      string   `json:"head"` // Source branch
	Base      string   `json:"base"` // Target branch
	Draft     bool     `json:"draft"`
	Labels    []string `json:"labels,omitempty"`
	Milestone *int     `json:"milestone,omitempty"`
}

// ReviewCreate for submitting a pull request review.
type ReviewCreate struct {
	Body     string `json:"body"`
	Event    string `json:"event"` // COMMENT, APPROVE, REQUEST_CHANGES
	CommitID string `json:"commit_id,omitempty"`
}

// ReviewCommentCreate for creating an inline review comment.
type ReviewCommentCreate struct {
	Body      string `json:"body"`
	Path      string `json:"path"`
	Line      int    `json:"line,omitempty"`
	Side      string `json:"side,omitempty"` // LEFT or RIGHT
	CommitID  string `json:"commit_id,omitempty"`
	InReplyTo int64  `json:"in_reply_to,omitempty"`
}
