package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	gogithub "github.com/google/go-github/v82/github"
	"golang.org/x/sync/errgroup"

	"github.com/randalmurphal/repoback/internal/entity"
	"github.com/randalmurphal/repoback/internal/hosting"
)

// GetLabels lists every label in the repository.
func (s *Service) GetLabels(ctx context.Context, repo string) ([]*entity.Label, error) {
	owner, name, err := splitRepo(repo)
	if err != nil {
		return nil, err
	}

	opts := &gogithub.ListOptions{}
	labels, err := listAll(ctx, s, "list labels", opts, func() ([]*gogithub.Label, *gogithub.Response, error) {
		return s.client.Issues.ListLabels(ctx, owner, name, opts)
	})
	if err != nil {
		return nil, err
	}

	result := make([]*entity.Label, 0, len(labels))
	for _, l := range labels {
		result = append(result, &entity.Label{
			ID:          l.GetID(),
			Name:        l.GetName(),
			Color:       l.GetColor(),
			Description: l.GetDescription(),
		})
	}
	return result, nil
}

// GetMilestones lists open and closed milestones.
func (s *Service) GetMilestones(ctx context.Context, repo string) ([]*entity.Milestone, error) {
	owner, name, err := splitRepo(repo)
	if err != nil {
		return nil, err
	}

	opts := &gogithub.MilestoneListOptions{State: "all", Sort: "due_on", Direction: "asc"}
	milestones, err := listAll(ctx, s, "list milestones", &opts.ListOptions, func() ([]*gogithub.Milestone, *gogithub.Response, error) {
		return s.client.Issues.ListMilestones(ctx, owner, name, opts)
	})
	if err != nil {
		return nil, err
	}

	result := make([]*entity.Milestone, 0, len(milestones))
	for _, m := range milestones {
		result = append(result, &entity.Milestone{
			ID:           m.GetID(),
			Number:       m.GetNumber(),
			Title:        m.GetTitle(),
			Description:  m.GetDescription(),
			State:        m.GetState(),
			DueOn:        timePtr(m.DueOn),
			CreatedAt:    m.GetCreatedAt().Time,
			ClosedAt:     timePtr(m.ClosedAt),
			OpenIssues:   m.GetOpenIssues(),
			ClosedIssues: m.GetClosedIssues(),
			Author:       m.GetCreator().GetLogin(),
		})
	}
	return result, nil
}

// listIssues returns issues and pull requests; the issues endpoint mixes both.
func (s *Service) listIssues(ctx context.Context, owner, name string) ([]*gogithub.Issue, error) {
	opts := &gogithub.IssueListByRepoOptions{State: "all", Sort: "created", Direction: "asc"}
	return listAll(ctx, s, "list issues", &opts.ListOptions, func() ([]*gogithub.Issue, *gogithub.Response, error) {
		return s.client.Issues.ListByRepo(ctx, owner, name, opts)
	})
}

// GetIssues lists every issue, excluding pull requests.
func (s *Service) GetIssues(ctx context.Context, repo string) ([]*entity.Issue, error) {
	owner, name, err := splitRepo(repo)
	if err != nil {
		return nil, err
	}

	issues, err := s.listIssues(ctx, owner, name)
	if err != nil {
		return nil, err
	}

	var result []*entity.Issue
	for _, i := range issues {
		if i.IsPullRequest() {
			continue
		}
		result = append(result, mapIssue(i))
	}
	return result, nil
}

func mapIssue(i *gogithub.Issue) *entity.Issue {
	issue := &entity.Issue{
		ID:           i.GetID(),
		Number:       i.GetNumber(),
		Title:        i.GetTitle(),
		Body:         i.GetBody(),
		State:        i.GetState(),
		StateReason:  i.GetStateReason(),
		Labels:       labelNames(i.Labels),
		Author:       i.GetUser().GetLogin(),
		Assignees:    logins(i.Assignees),
		CreatedAt:    i.GetCreatedAt().Time,
		UpdatedAt:    i.GetUpdatedAt().Time,
		ClosedAt:     timePtr(i.ClosedAt),
		CommentCount: i.GetComments(),
	}
	if i.Milestone != nil {
		number := i.Milestone.GetNumber()
		issue.Milestone = &number
	}
	return issue
}

// pullRequestNumbers returns the set of numbers that belong to pull requests.
func pullRequestNumbers(issues []*gogithub.Issue) map[int]bool {
	numbers := make(map[int]bool)
	for _, i := range issues {
		if i.IsPullRequest() {
			numbers[i.GetNumber()] = true
		}
	}
	return numbers
}

// listRepoComments lists every issue and pull request conversation comment.
func (s *Service) listRepoComments(ctx context.Context, owner, name string) ([]*gogithub.IssueComment, error) {
	opts := &gogithub.IssueListCommentsOptions{}
	// Issue number 0 lists comments across the whole repository.
	return listAll(ctx, s, "list comments", &opts.ListOptions, func() ([]*gogithub.IssueComment, *gogithub.Response, error) {
		return s.client.Issues.ListComments(ctx, owner, name, 0, opts)
	})
}

// GetAllIssueComments lists comments on issues, excluding pull request conversations.
func (s *Service) GetAllIssueComments(ctx context.Context, repo string) ([]*entity.Comment, error) {
	owner, name, err := splitRepo(repo)
	if err != nil {
		return nil, err
	}

	issues, err := s.listIssues(ctx, owner, name)
	if err != nil {
		return nil, err
	}
	pulls := pullRequestNumbers(issues)

	comments, err := s.listRepoComments(ctx, owner, name)
	if err != nil {
		return nil, err
	}

	var result []*entity.Comment
	for _, c := range comments {
		number := numberFromURL(c.GetIssueURL())
		if pulls[number] {
			continue
		}
		result = append(result, &entity.Comment{
			ID:          c.GetID(),
			IssueNumber: number,
			Body:        c.GetBody(),
			Author:      c.GetUser().GetLogin(),
			CreatedAt:   c.GetCreatedAt().Time,
			UpdatedAt:   c.GetUpdatedAt().Time,
		})
	}
	return result, nil
}

// GetPullRequests lists every pull request.
func (s *Service) GetPullRequests(ctx context.Context, repo string) ([]*entity.PullRequest, error) {
	owner, name, err := splitRepo(repo)
	if err != nil {
		return nil, err
	}

	opts := &gogithub.PullRequestListOptions{State: "all", Sort: "created", Direction: "asc"}
	prs, err := listAll(ctx, s, "list pull requests", &opts.ListOptions, func() ([]*gogithub.PullRequest, *gogithub.Response, error) {
		return s.client.PullRequests.List(ctx, owner, name, opts)
	})
	if err != nil {
		return nil, err
	}

	result := make([]*entity.PullRequest, 0, len(prs))
	for _, pr := range prs {
		mapped := &entity.PullRequest{
			ID:        pr.GetID(),
			Number:    pr.GetNumber(),
			Title:     pr.GetTitle(),
			Body:      pr.GetBody(),
			State:     pr.GetState(),
			Head:      pr.GetHead().GetRef(),
			Base:      pr.GetBase().GetRef(),
			Merged:    pr.GetMerged() || pr.MergedAt != nil,
			Draft:     pr.GetDraft(),
			Labels:    labelNames(pr.Labels),
			Author:    pr.GetUser().GetLogin(),
			CreatedAt: pr.GetCreatedAt().Time,
			UpdatedAt: pr.GetUpdatedAt().Time,
			MergedAt:  timePtr(pr.MergedAt),
			ClosedAt:  timePtr(pr.ClosedAt),
		}
		if pr.Milestone != nil {
			number := pr.Milestone.GetNumber()
			mapped.Milestone = &number
		}
		result = append(result, mapped)
	}
	return result, nil
}

// GetAllPullRequestComments lists conversation comments on pull requests.
func (s *Service) GetAllPullRequestComments(ctx context.Context, repo string) ([]*entity.PullRequestComment, error) {
	owner, name, err := splitRepo(repo)
	if err != nil {
		return nil, err
	}

	issues, err := s.listIssues(ctx, owner, name)
	if err != nil {
		return nil, err
	}
	pulls := pullRequestNumbers(issues)

	comments, err := s.listRepoComments(ctx, owner, name)
	if err != nil {
		return nil, err
	}

	var result []*entity.PullRequestComment
	for _, c := range comments {
		number := numberFromURL(c.GetIssueURL())
		if !pulls[number] {
			continue
		}
		result = append(result, &entity.PullRequestComment{
			ID:                c.GetID(),
			PullRequestNumber: number,
			Body:              c.GetBody(),
			Author:            c.GetUser().GetLogin(),
			CreatedAt:         c.GetCreatedAt().Time,
			UpdatedAt:         c.GetUpdatedAt().Time,
		})
	}
	return result, nil
}

// GetAllPullRequestReviews lists submitted reviews across all pull requests.
// Pending reviews are private drafts and are skipped.
func (s *Service) GetAllPullRequestReviews(ctx context.Context, repo string) ([]*entity.PullRequestReview, error) {
	owner, name, err := splitRepo(repo)
	if err != nil {
		return nil, err
	}

	issues, err := s.listIssues(ctx, owner, name)
	if err != nil {
		return nil, err
	}

	var numbers []int
	for _, i := range issues {
		if i.IsPullRequest() {
			numbers = append(numbers, i.GetNumber())
		}
	}

	perPR, err := fanOut(ctx, s.fanOut, numbers, func(ctx context.Context, number int) ([]*entity.PullRequestReview, error) {
		opts := &gogithub.ListOptions{}
		reviews, err := listAll(ctx, s, fmt.Sprintf("list reviews for PR %d", number), opts, func() ([]*gogithub.PullRequestReview, *gogithub.Response, error) {
			return s.client.PullRequests.ListReviews(ctx, owner, name, number, opts)
		})
		if err != nil {
			return nil, err
		}

		var result []*entity.PullRequestReview
		for _, r := range reviews {
			if r.GetState() == "PENDING" {
				continue
			}
			result = append(result, &entity.PullRequestReview{
				ID:                r.GetID(),
				PullRequestNumber: number,
				Body:              r.GetBody(),
				State:             r.GetState(),
				Author:            r.GetUser().GetLogin(),
				CommitID:          r.GetCommitID(),
				SubmittedAt:       timePtr(r.SubmittedAt),
			})
		}
		return result, nil
	})
	if err != nil {
		return nil, err
	}
	return flatten(perPR), nil
}

// GetAllPullRequestReviewComments lists inline review comments across the repository.
func (s *Service) GetAllPullRequestReviewComments(ctx context.Context, repo string) ([]*entity.PullRequestReviewComment, error) {
	owner, name, err := splitRepo(repo)
	if err != nil {
		return nil, err
	}

	opts := &gogithub.PullRequestListCommentsOptions{}
	comments, err := listAll(ctx, s, "list review comments", &opts.ListOptions, func() ([]*gogithub.PullRequestComment, *gogithub.Response, error) {
		return s.client.PullRequests.ListComments(ctx, owner, name, 0, opts)
	})
	if err != nil {
		return nil, err
	}

	result := make([]*entity.PullRequestReviewComment, 0, len(comments))
	for _, c := range comments {
		line := c.GetLine()
		if line == 0 {
			line = c.GetOriginalLine()
		}
		result = append(result, &entity.PullRequestReviewComment{
			ID:                c.GetID(),
			ReviewID:          c.GetPullRequestReviewID(),
			PullRequestNumber: numberFromURL(c.GetPullRequestURL()),
			Body:              c.GetBody(),
			Path:              c.GetPath(),
			Line:              line,
			Side:              c.GetSide(),
			InReplyTo:         c.GetInReplyTo(),
			CommitID:          c.GetCommitID(),
			DiffHunk:          c.GetDiffHunk(),
			Author:            c.GetUser().GetLogin(),
			CreatedAt:         c.GetCreatedAt().Time,
		})
	}
	return result, nil
}

// GetSubIssues lists parent/child relations for every issue. Issues are
// queried concurrently; the result keeps issue order and child position.
func (s *Service) GetSubIssues(ctx context.Context, repo string) ([]*entity.SubIssue, error) {
	owner, name, err := splitRepo(repo)
	if err != nil {
		return nil, err
	}

	issues, err := s.listIssues(ctx, owner, name)
	if err != nil {
		return nil, err
	}

	var parents []int
	for _, i := range issues {
		if !i.IsPullRequest() {
			parents = append(parents, i.GetNumber())
		}
	}

	perParent, err := fanOut(ctx, s.fanOut, parents, func(ctx context.Context, parent int) ([]*entity.SubIssue, error) {
		children, err := s.listSubIssues(ctx, owner, name, parent)
		if err != nil {
			return nil, err
		}
		relations := make([]*entity.SubIssue, 0, len(children))
		for pos, child := range children {
			relations = append(relations, &entity.SubIssue{
				ParentNumber: parent,
				ChildNumber:  child.GetNumber(),
				Position:     pos,
			})
		}
		return relations, nil
	})
	if err != nil {
		return nil, err
	}
	return flatten(perParent), nil
}

// listSubIssues calls the sub-issues endpoint directly.
// Repositories without sub-issue support answer 404, which means no children.
func (s *Service) listSubIssues(ctx context.Context, owner, name string, parent int) ([]*gogithub.Issue, error) {
	var all []*gogithub.Issue
	page := 1

	for {
		u := fmt.Sprintf("repos/%s/%s/issues/%d/sub_issues?per_page=100&page=%d", owner, name, parent, page)
		req, err := s.client.NewRequest(http.MethodGet, u, nil)
		if err != nil {
			return nil, fmt.Errorf("build sub-issues request: %w", err)
		}

		children, resp, err := call(ctx, s, fmt.Sprintf("list sub-issues of #%d", parent), func() ([]*gogithub.Issue, *gogithub.Response, error) {
			var children []*gogithub.Issue
			resp, err := s.client.Do(ctx, req, &children)
			return children, resp, err
		})
		if err != nil {
			if errors.Is(err, hosting.ErrNotFound) {
				return all, nil
			}
			return nil, err
		}
		all = append(all, children...)
		if resp == nil || resp.NextPage == 0 {
			return all, nil
		}
		page = resp.NextPage
	}
}

// fanOut runs fn for every key with at most limit calls in flight and
// returns the results in key order.
func fanOut[K any, T any](ctx context.Context, limit int, keys []K, fn func(context.Context, K) ([]T, error)) ([][]T, error) {
	results := make([][]T, len(keys))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for idx, key := range keys {
		g.Go(func() error {
			items, err := fn(gctx, key)
			if err != nil {
				return err
			}
			results[idx] = items
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func flatten[T any](groups [][]T) []T {
	var out []T
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}
