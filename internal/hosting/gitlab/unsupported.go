package gitlab

import (
	"context"
	"fmt"

	"github.com/randalmurphal/repoback/internal/entity"
	"github.com/randalmurphal/repoback/internal/hosting"
)

func unsupported(what string) error {
	return fmt.Errorf("gitlab %s: %w", what, hosting.ErrUnsupported)
}

// GetPullRequests is not supported.
func (g *Service) GetPullRequests(context.Context, string) ([]*entity.PullRequest, error) {
	return nil, unsupported(entity.PullRequests)
}

// GetAllPullRequestComments is not supported.
func (g *Service) GetAllPullRequestComments(context.Context, string) ([]*entity.PullRequestComment, error) {
	return nil, unsupported(entity.PullRequestComments)
}

// GetAllPullRequestReviews is not supported.
func (g *Service) GetAllPullRequestReviews(context.Context, string) ([]*entity.PullRequestReview, error) {
	return nil, unsupported(entity.PullRequestReviews)
}

// GetAllPullRequestReviewComments is not supported.
func (g *Service) GetAllPullRequestReviewComments(context.Context, string) ([]*entity.PullRequestReviewComment, error) {
	return nil, unsupported(entity.PullRequestReviewComments)
}

// GetSubIssues is not supported.
func (g *Service) GetSubIssues(context.Context, string) ([]*entity.SubIssue, error) {
	return nil, unsupported(entity.SubIssues)
}

// AddSubIssue is not supported.
func (g *Service) AddSubIssue(context.Context, string, int, int) error {
	return unsupported(entity.SubIssues)
}

// CreatePullRequest is not supported.
func (g *Service) CreatePullRequest(context.Context, string, hosting.PullRequestCreate) (*hosting.Created, error) {
	return nil, unsupported(entity.PullRequests)
}

// CreatePullRequestComment is not supported.
func (g *Service) CreatePullRequestComment(context.Context, string, int, string) (*hosting.Created, error) {
	return nil, unsupported(entity.PullRequestComments)
}

// CreatePullRequestReview is not supported.
func (g *Service) CreatePullRequestReview(context.Context, string, int, hosting.ReviewCreate) (*hosting.Created, error) {
	return nil, unsupported(entity.PullRequestReviews)
}

// CreatePullRequestReviewComment is not supported.
func (g *Service) CreatePullRequestReviewComment(context.Context, string, int, hosting.ReviewCommentCreate) (*hosting.Created, error) {
	return nil, unsupported(entity.PullRequestReviewComments)
}
