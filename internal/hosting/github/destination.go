package github

import (
	"context"
	"fmt"
	"net/http"
	"time"

	gogithub "github.com/google/go-github/v82/github"

	"github.com/randalmurphal/repoback/internal/hosting"
)

// CreateLabel creates a label.
func (s *Service) CreateLabel(ctx context.Context, repo string, label hosting.LabelCreate) (*hosting.Created, error) {
	owner, name, err := splitRepo(repo)
	if err != nil {
		return nil, err
	}

	req := &gogithub.Label{
		Name:  gogithub.Ptr(label.Name),
		Color: gogithub.Ptr(label.Color),
	}
	if label.Description != "" {
		req.Description = gogithub.Ptr(label.Description)
	}

	created, _, err := call(ctx, s, fmt.Sprintf("create label %q", label.Name), func() (*gogithub.Label, *gogithub.Response, error) {
		return s.client.Issues.CreateLabel(ctx, owner, name, req)
	})
	if err != nil {
		return nil, err
	}
	return &hosting.Created{ID: created.GetID(), Name: created.GetName(), URL: created.GetURL()}, nil
}

// DeleteLabel deletes a label by name.
func (s *Service) DeleteLabel(ctx context.Context, repo string, labelName string) error {
	owner, name, err := splitRepo(repo)
	if err != nil {
		return err
	}

	_, _, err = call(ctx, s, fmt.Sprintf("delete label %q", labelName), func() (struct{}, *gogithub.Response, error) {
		resp, err := s.client.Issues.DeleteLabel(ctx, owner, name, labelName)
		return struct{}{}, resp, err
	})
	return err
}

// CreateMilestone creates a milestone.
func (s *Service) CreateMilestone(ctx context.Context, repo string, opts hosting.MilestoneCreate) (*hosting.Created, error) {
	owner, name, err := splitRepo(repo)
	if err != nil {
		return nil, err
	}

	req := &gogithub.Milestone{
		Title: gogithub.Ptr(opts.Title),
	}
	if opts.Description != "" {
		req.Description = gogithub.Ptr(opts.Description)
	}
	if opts.State != "" {
		req.State = gogithub.Ptr(opts.State)
	}
	if opts.DueOn != "" {
		due, err := time.Parse(time.RFC3339, opts.DueOn)
		if err != nil {
			return nil, fmt.Errorf("parse milestone due date %q: %w", opts.DueOn, err)
		}
		req.DueOn = &gogithub.Timestamp{Time: due}
	}

	created, _, err := call(ctx, s, fmt.Sprintf("create milestone %q", opts.Title), func() (*gogithub.Milestone, *gogithub.Response, error) {
		return s.client.Issues.CreateMilestone(ctx, owner, name, req)
	})
	if err != nil {
		return nil, err
	}
	return &hosting.Created{
		ID:     created.GetID(),
		Number: created.GetNumber(),
		Name:   created.GetTitle(),
		URL:    created.GetHTMLURL(),
	}, nil
}

// CreateIssue creates an issue.
func (s *Service) CreateIssue(ctx context.Context, repo string, opts hosting.IssueCreate) (*hosting.Created, error) {
	owner, name, err := splitRepo(repo)
	if err != nil {
		return nil, err
	}

	req := &gogithub.IssueRequest{
		Title:     gogithub.Ptr(opts.Title),
		Body:      gogithub.Ptr(opts.Body),
		Milestone: opts.Milestone,
	}
	if len(opts.Labels) > 0 {
		req.Labels = &opts.Labels
	}
	if len(opts.Assignees) > 0 {
		req.Assignees = &opts.Assignees
	}

	created, _, err := call(ctx, s, "create issue", func() (*gogithub.Issue, *gogithub.Response, error) {
		return s.client.Issues.Create(ctx, owner, name, req)
	})
	if err != nil {
		return nil, err
	}
	return &hosting.Created{ID: created.GetID(), Number: created.GetNumber(), URL: created.GetHTMLURL()}, nil
}

// CloseIssue closes an issue with an optional state reason (completed, not_planned).
func (s *Service) CloseIssue(ctx context.Context, repo string, number int, reason string) error {
	owner, name, err := splitRepo(repo)
	if err != nil {
		return err
	}

	req := &gogithub.IssueRequest{State: gogithub.Ptr("closed")}
	if reason != "" {
		req.StateReason = gogithub.Ptr(reason)
	}

	_, _, err = call(ctx, s, fmt.Sprintf("close issue #%d", number), func() (*gogithub.Issue, *gogithub.Response, error) {
		return s.client.Issues.Edit(ctx, owner, name, number, req)
	})
	return err
}

// CreateIssueComment adds a comment to an issue.
func (s *Service) CreateIssueComment(ctx context.Context, repo string, issueNumber int, body string) (*hosting.Created, error) {
	return s.createConversationComment(ctx, repo, issueNumber, body, "issue")
}

// CreatePullRequestComment adds a conversation comment to a pull request.
func (s *Service) CreatePullRequestComment(ctx context.Context, repo string, prNumber int, body string) (*hosting.Created, error) {
	return s.createConversationComment(ctx, repo, prNumber, body, "PR")
}

func (s *Service) createConversationComment(ctx context.Context, repo string, number int, body, kind string) (*hosting.Created, error) {
	owner, name, err := splitRepo(repo)
	if err != nil {
		return nil, err
	}

	comment := &gogithub.IssueComment{Body: gogithub.Ptr(body)}
	created, _, err := call(ctx, s, fmt.Sprintf("create comment on %s #%d", kind, number), func() (*gogithub.IssueComment, *gogithub.Response, error) {
		return s.client.Issues.CreateComment(ctx, owner, name, number, comment)
	})
	if err != nil {
		return nil, err
	}
	return &hosting.Created{ID: created.GetID(), URL: created.GetHTMLURL()}, nil
}

// subIssueRequest is the body of the add sub-issue endpoint.
type subIssueRequest struct {
	SubIssueID int64 `json:"sub_issue_id"`
}

// AddSubIssue links child as a sub-issue of parent. The endpoint takes the
// child's database ID, so the child is looked up first.
func (s *Service) AddSubIssue(ctx context.Context, repo string, parentNumber, childNumber int) error {
	owner, name, err := splitRepo(repo)
	if err != nil {
		return err
	}

	child, _, err := call(ctx, s, fmt.Sprintf("get issue #%d", childNumber), func() (*gogithub.Issue, *gogithub.Response, error) {
		return s.client.Issues.Get(ctx, owner, name, childNumber)
	})
	if err != nil {
		return err
	}

	u := fmt.Sprintf("repos/%s/%s/issues/%d/sub_issues", owner, name, parentNumber)
	req, err := s.client.NewRequest(http.MethodPost, u, &subIssueRequest{SubIssueID: child.GetID()})
	if err != nil {
		return fmt.Errorf("build sub-issue request: %w", err)
	}

	_, _, err = call(ctx, s, fmt.Sprintf("add sub-issue #%d to #%d", childNumber, parentNumber), func() (struct{}, *gogithub.Response, error) {
		resp, err := s.client.Do(ctx, req, nil)
		return struct{}{}, resp, err
	})
	return err
}

// CreatePullRequest creates a pull request, then applies labels and milestone
// through the issues API.
func (s *Service) CreatePullRequest(ctx context.Context, repo string, opts hosting.PullRequestCreate) (*hosting.Created, error) {
	owner, name, err := splitRepo(repo)
	if err != nil {
		return nil, err
	}

	newPR := &gogithub.NewPullRequest{
		Title: gogithub.Ptr(opts.Title),
		Body:  gogithub.Ptr(opts.Body),
		Head:  gogithub.Ptr(opts.Head),
		Base:  gogithub.Ptr(opts.Base),
		Draft: gogithub.Ptr(opts.Draft),
	}

	created, _, err := call(ctx, s, fmt.Sprintf("create PR %s -> %s", opts.Head, opts.Base), func() (*gogithub.PullRequest, *gogithub.Response, error) {
		return s.client.PullRequests.Create(ctx, owner, name, newPR)
	})
	if err != nil {
		return nil, err
	}
	prNumber := created.GetNumber()

	// Labels and milestone are best-effort: the PR exists either way.
	if len(opts.Labels) > 0 {
		_, _, labelErr := call(ctx, s, "add labels to PR", func() ([]*gogithub.Label, *gogithub.Response, error) {
			return s.client.Issues.AddLabelsToIssue(ctx, owner, name, prNumber, opts.Labels)
		})
		if labelErr != nil {
			s.logger.Warn("failed to add labels to PR",
				"pr", prNumber,
				"labels", opts.Labels,
				"error", labelErr)
		}
	}
	if opts.Milestone != nil {
		_, _, msErr := call(ctx, s, "set PR milestone", func() (*gogithub.Issue, *gogithub.Response, error) {
			return s.client.Issues.Edit(ctx, owner, name, prNumber, &gogithub.IssueRequest{Milestone: opts.Milestone})
		})
		if msErr != nil {
			s.logger.Warn("failed to set milestone on PR",
				"pr", prNumber,
				"milestone", *opts.Milestone,
				"error", msErr)
		}
	}

	return &hosting.Created{ID: created.GetID(), Number: prNumber, URL: created.GetHTMLURL()}, nil
}

// CreatePullRequestReview submits a review.
func (s *Service) CreatePullRequestReview(ctx context.Context, repo string, prNumber int, opts hosting.ReviewCreate) (*hosting.Created, error) {
	owner, name, err := splitRepo(repo)
	if err != nil {
		return nil, err
	}

	event := opts.Event
	if event == "" {
		event = "COMMENT"
	}
	review := &gogithub.PullRequestReviewRequest{
		Body:  gogithub.Ptr(opts.Body),
		Event: gogithub.Ptr(event),
	}
	if opts.CommitID != "" {
		review.CommitID = gogithub.Ptr(opts.CommitID)
	}

	created, _, err := call(ctx, s, fmt.Sprintf("create review on PR #%d", prNumber), func() (*gogithub.PullRequestReview, *gogithub.Response, error) {
		return s.client.PullRequests.CreateReview(ctx, owner, name, prNumber, review)
	})
	if err != nil {
		return nil, err
	}
	return &hosting.Created{ID: created.GetID(), URL: created.GetHTMLURL()}, nil
}

// CreatePullRequestReviewComment creates an inline comment, or a reply when
// opts.InReplyTo is set. Without a commit ID the PR head is used.
func (s *Service) CreatePullRequestReviewComment(ctx context.Context, repo string, prNumber int, opts hosting.ReviewCommentCreate) (*hosting.Created, error) {
	owner, name, err := splitRepo(repo)
	if err != nil {
		return nil, err
	}

	if opts.InReplyTo != 0 {
		created, _, err := call(ctx, s, fmt.Sprintf("reply to comment %d on PR #%d", opts.InReplyTo, prNumber), func() (*gogithub.PullRequestComment, *gogithub.Response, error) {
			return s.client.PullRequests.CreateCommentInReplyTo(ctx, owner, name, prNumber, opts.Body, opts.InReplyTo)
		})
		if err != nil {
			return nil, err
		}
		return &hosting.Created{ID: created.GetID(), URL: created.GetHTMLURL()}, nil
	}

	commitID := opts.CommitID
	if commitID == "" {
		pr, _, err := call(ctx, s, fmt.Sprintf("get PR #%d head commit", prNumber), func() (*gogithub.PullRequest, *gogithub.Response, error) {
			return s.client.PullRequests.Get(ctx, owner, name, prNumber)
		})
		if err != nil {
			return nil, err
		}
		commitID = pr.GetHead().GetSHA()
	}

	side := "RIGHT"
	if opts.Side != "" {
		side = opts.Side
	}

	comment := &gogithub.PullRequestComment{
		Body:     gogithub.Ptr(opts.Body),
		Path:     gogithub.Ptr(opts.Path),
		Side:     gogithub.Ptr(side),
		CommitID: gogithub.Ptr(commitID),
	}
	if opts.Line > 0 {
		comment.Line = gogithub.Ptr(opts.Line)
	}

	created, _, err := call(ctx, s, fmt.Sprintf("create review comment on PR #%d", prNumber), func() (*gogithub.PullRequestComment, *gogithub.Response, error) {
		return s.client.PullRequests.CreateComment(ctx, owner, name, prNumber, comment)
	})
	if err != nil {
		return nil, err
	}
	return &hosting.Created{ID: created.GetID(), URL: created.GetHTMLURL()}, nil
}
