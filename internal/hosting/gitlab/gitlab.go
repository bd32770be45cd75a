// Package gitlab implements hosting.Service on the GitLab REST API.
//
// GitLab has no equivalent for GitHub sub-issues and models reviews as
// merge request approvals and discussions, so only labels, milestones,
// issues and issue comments are supported. The remaining entity methods
// return hosting.ErrUnsupported.
package gitlab

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	gogitlab "gitlab.com/gitlab-org/api/client-go"

	"github.com/randalmurphal/repoback/internal/entity"
	"github.com/randalmurphal/repoback/internal/hosting"
)

// Compile-time interface check.
var _ hosting.Service = (*Service)(nil)

func init() {
	hosting.RegisterProvider(hosting.ProviderGitLab, newService)
}

// Service implements hosting.Service using the GitLab client library.
// The repo argument of every method is the project path ("group/subgroup/name").
type Service struct {
	client *gogitlab.Client
	logger *slog.Logger
}

// newService creates a Service authenticated from the environment.
func newService(cfg hosting.Config) (hosting.Service, error) {
	token, err := resolveToken(cfg)
	if err != nil {
		return nil, err
	}
	return New(token, cfg)
}

// New creates a Service for token. cfg.BaseURL selects a self-hosted instance.
// The client library retries rate limits and server errors itself.
func New(token string, cfg hosting.Config) (*Service, error) {
	var (
		client *gogitlab.Client
		err    error
	)
	if cfg.BaseURL != "" {
		baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
		client, err = gogitlab.NewClient(token, gogitlab.WithBaseURL(baseURL+"/api/v4"))
	} else {
		client, err = gogitlab.NewClient(token)
	}
	if err != nil {
		return nil, fmt.Errorf("create GitLab client: %w", err)
	}
	return &Service{client: client, logger: cfg.LoggerOrDefault()}, nil
}

// Name returns the provider type.
func (g *Service) Name() hosting.ProviderType {
	return hosting.ProviderGitLab
}

// projectID validates repo and returns it as the project path.
func projectID(repo string) (string, error) {
	owner, name, err := hosting.SplitRepo(repo)
	if err != nil {
		return "", err
	}
	return owner + "/" + name, nil
}

// GetLabels lists project labels. Colors are returned without the leading '#'.
func (g *Service) GetLabels(ctx context.Context, repo string) ([]*entity.Label, error) {
	pid, err := projectID(repo)
	if err != nil {
		return nil, err
	}

	var result []*entity.Label
	opts := &gogitlab.ListLabelsOptions{
		ListOptions: gogitlab.ListOptions{PerPage: 100},
	}
	for {
		labels, resp, err := g.client.Labels.ListLabels(pid, opts, gogitlab.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("list labels: %w", mapError(err, resp))
		}
		for _, l := range labels {
			result = append(result, &entity.Label{
				ID:          int64(l.ID),
				Name:        l.Name,
				Color:       strings.TrimPrefix(l.Color, "#"),
				Description: l.Description,
			})
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return result, nil
}

// CreateLabel creates a project label.
func (g *Service) CreateLabel(ctx context.Context, repo string, label hosting.LabelCreate) (*hosting.Created, error) {
	pid, err := projectID(repo)
	if err != nil {
		return nil, err
	}

	opts := &gogitlab.CreateLabelOptions{
		Name:  gogitlab.Ptr(label.Name),
		Color: gogitlab.Ptr("#" + strings.TrimPrefix(label.Color, "#")),
	}
	if label.Description != "" {
		opts.Description = gogitlab.Ptr(label.Description)
	}

	created, resp, err := g.client.Labels.CreateLabel(pid, opts, gogitlab.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("create label %q: %w", label.Name, mapError(err, resp))
	}
	return &hosting.Created{ID: int64(created.ID), Name: created.Name}, nil
}

// DeleteLabel deletes a project label by name.
func (g *Service) DeleteLabel(ctx context.Context, repo string, name string) error {
	pid, err := projectID(repo)
	if err != nil {
		return err
	}

	resp, err := g.client.Labels.DeleteLabel(pid, name, nil, gogitlab.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("delete label %q: %w", name, mapError(err, resp))
	}
	return nil
}

// GetMilestones lists project milestones. GitLab's "active" state maps to "open".
func (g *Service) GetMilestones(ctx context.Context, repo string) ([]*entity.Milestone, error) {
	pid, err := projectID(repo)
	if err != nil {
		return nil, err
	}

	milestones, err := g.listMilestones(ctx, pid)
	if err != nil {
		return nil, err
	}

	result := make([]*entity.Milestone, 0, len(milestones))
	for _, m := range milestones {
		state := m.State
		if state == "active" {
			state = "open"
		}
		mapped := &entity.Milestone{
			ID:          int64(m.ID),
			Number:      int(m.IID),
			Title:       m.Title,
			Description: m.Description,
			State:       state,
		}
		if m.DueDate != nil {
			due := time.Time(*m.DueDate)
			mapped.DueOn = &due
		}
		if m.CreatedAt != nil {
			mapped.CreatedAt = *m.CreatedAt
		}
		result = append(result, mapped)
	}
	return result, nil
}

func (g *Service) listMilestones(ctx context.Context, pid string) ([]*gogitlab.Milestone, error) {
	var all []*gogitlab.Milestone
	opts := &gogitlab.ListMilestonesOptions{
		ListOptions: gogitlab.ListOptions{PerPage: 100},
	}
	for {
		milestones, resp, err := g.client.Milestones.ListMilestones(pid, opts, gogitlab.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("list milestones: %w", mapError(err, resp))
		}
		all = append(all, milestones...)
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return all, nil
}

// CreateMilestone creates a milestone, closing it afterwards when requested.
func (g *Service) CreateMilestone(ctx context.Context, repo string, opts hosting.MilestoneCreate) (*hosting.Created, error) {
	pid, err := projectID(repo)
	if err != nil {
		return nil, err
	}

	createOpts := &gogitlab.CreateMilestoneOptions{
		Title: gogitlab.Ptr(opts.Title),
	}
	if opts.Description != "" {
		createOpts.Description = gogitlab.Ptr(opts.Description)
	}
	if opts.DueOn != "" {
		due, err := time.Parse(time.RFC3339, opts.DueOn)
		if err != nil {
			return nil, fmt.Errorf("parse milestone due date %q: %w", opts.DueOn, err)
		}
		isoDue := gogitlab.ISOTime(due)
		createOpts.DueDate = &isoDue
	}

	created, resp, err := g.client.Milestones.CreateMilestone(pid, createOpts, gogitlab.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("create milestone %q: %w", opts.Title, mapError(err, resp))
	}

	if opts.State == "closed" {
		_, resp, err := g.client.Milestones.UpdateMilestone(pid, created.ID, &gogitlab.UpdateMilestoneOptions{
			StateEvent: gogitlab.Ptr("close"),
		}, gogitlab.WithContext(ctx))
		if err != nil {
			g.logger.Warn("created milestone but failed to close it",
				"milestone", opts.Title,
				"error", mapError(err, resp))
		}
	}

	return &hosting.Created{
		ID:     int64(created.ID),
		Number: int(created.IID),
		Name:   created.Title,
		URL:    created.WebURL,
	}, nil
}

// GetIssues lists project issues in creation order.
func (g *Service) GetIssues(ctx context.Context, repo string) ([]*entity.Issue, error) {
	pid, err := projectID(repo)
	if err != nil {
		return nil, err
	}

	issues, err := g.listIssues(ctx, pid)
	if err != nil {
		return nil, err
	}

	result := make([]*entity.Issue, 0, len(issues))
	for _, i := range issues {
		result = append(result, mapIssue(i))
	}
	return result, nil
}

func (g *Service) listIssues(ctx context.Context, pid string) ([]*gogitlab.Issue, error) {
	var all []*gogitlab.Issue
	opts := &gogitlab.ListProjectIssuesOptions{
		ListOptions: gogitlab.ListOptions{PerPage: 100},
		OrderBy:     gogitlab.Ptr("created_at"),
		Sort:        gogitlab.Ptr("asc"),
	}
	for {
		issues, resp, err := g.client.Issues.ListProjectIssues(pid, opts, gogitlab.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("list issues: %w", mapError(err, resp))
		}
		all = append(all, issues...)
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return all, nil
}

func mapIssue(i *gogitlab.Issue) *entity.Issue {
	state := i.State
	if state == "opened" {
		state = "open"
	}

	issue := &entity.Issue{
		ID:           int64(i.ID),
		Number:       int(i.IID),
		Title:        i.Title,
		Body:         i.Description,
		State:        state,
		Labels:       append([]string{}, i.Labels...),
		ClosedAt:     i.ClosedAt,
		CommentCount: int(i.UserNotesCount),
	}
	if i.Author != nil {
		issue.Author = i.Author.Username
	}
	for _, a := range i.Assignees {
		if a.Username != "" {
			issue.Assignees = append(issue.Assignees, a.Username)
		}
	}
	if i.CreatedAt != nil {
		issue.CreatedAt = *i.CreatedAt
	}
	if i.UpdatedAt != nil {
		issue.UpdatedAt = *i.UpdatedAt
	}
	if i.Milestone != nil {
		number := int(i.Milestone.IID)
		issue.Milestone = &number
	}
	return issue
}

// CreateIssue creates an issue. opts.Milestone is a milestone IID and is
// resolved to the milestone ID the API expects.
func (g *Service) CreateIssue(ctx context.Context, repo string, opts hosting.IssueCreate) (*hosting.Created, error) {
	pid, err := projectID(repo)
	if err != nil {
		return nil, err
	}

	createOpts := &gogitlab.CreateIssueOptions{
		Title:       gogitlab.Ptr(opts.Title),
		Description: gogitlab.Ptr(opts.Body),
	}
	if len(opts.Labels) > 0 {
		labels := gogitlab.LabelOptions(opts.Labels)
		createOpts.Labels = &labels
	}
	if opts.Milestone != nil {
		milestoneID, err := g.milestoneID(ctx, pid, *opts.Milestone)
		if err != nil {
			return nil, err
		}
		createOpts.MilestoneID = gogitlab.Ptr(milestoneID)
	}
	if len(opts.Assignees) > 0 {
		assigneeIDs, lookupErr := g.resolveUserIDs(ctx, opts.Assignees)
		if lookupErr != nil {
			g.logger.Warn("failed to resolve assignee usernames to IDs",
				"assignees", opts.Assignees,
				"error", lookupErr)
		} else if len(assigneeIDs) > 0 {
			createOpts.AssigneeIDs = &assigneeIDs
		}
	}

	created, resp, err := g.client.Issues.CreateIssue(pid, createOpts, gogitlab.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("create issue: %w", mapError(err, resp))
	}
	return &hosting.Created{ID: int64(created.ID), Number: int(created.IID), URL: created.WebURL}, nil
}

func (g *Service) milestoneID(ctx context.Context, pid string, iid int) (int64, error) {
	milestones, err := g.listMilestones(ctx, pid)
	if err != nil {
		return 0, err
	}
	for _, m := range milestones {
		if int(m.IID) == iid {
			return m.ID, nil
		}
	}
	return 0, fmt.Errorf("milestone %d: %w", iid, hosting.ErrNotFound)
}

// CloseIssue closes an issue. GitLab has no close reason; reason is ignored.
func (g *Service) CloseIssue(ctx context.Context, repo string, number int, _ string) error {
	pid, err := projectID(repo)
	if err != nil {
		return err
	}

	_, resp, err := g.client.Issues.UpdateIssue(pid, int64(number), &gogitlab.UpdateIssueOptions{
		StateEvent: gogitlab.Ptr("close"),
	}, gogitlab.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("close issue #%d: %w", number, mapError(err, resp))
	}
	return nil
}

// GetAllIssueComments lists user notes on every issue. System notes are skipped.
func (g *Service) GetAllIssueComments(ctx context.Context, repo string) ([]*entity.Comment, error) {
	pid, err := projectID(repo)
	if err != nil {
		return nil, err
	}

	issues, err := g.listIssues(ctx, pid)
	if err != nil {
		return nil, err
	}

	var result []*entity.Comment
	for _, issue := range issues {
		if issue.UserNotesCount == 0 {
			continue
		}

		opts := &gogitlab.ListIssueNotesOptions{
			ListOptions: gogitlab.ListOptions{PerPage: 100},
			OrderBy:     gogitlab.Ptr("created_at"),
			Sort:        gogitlab.Ptr("asc"),
		}
		for {
			notes, resp, err := g.client.Notes.ListIssueNotes(pid, issue.IID, opts, gogitlab.WithContext(ctx))
			if err != nil {
				return nil, fmt.Errorf("list notes for issue #%d: %w", issue.IID, mapError(err, resp))
			}
			for _, note := range notes {
				if note.System {
					continue
				}
				result = append(result, mapNote(note, int(issue.IID)))
			}
			if resp.NextPage == 0 {
				break
			}
			opts.Page = resp.NextPage
		}
	}
	return result, nil
}

func mapNote(note *gogitlab.Note, issueNumber int) *entity.Comment {
	comment := &entity.Comment{
		ID:          int64(note.ID),
		IssueNumber: issueNumber,
		Body:        note.Body,
		Author:      note.Author.Username,
	}
	if note.CreatedAt != nil {
		comment.CreatedAt = *note.CreatedAt
	}
	if note.UpdatedAt != nil {
		comment.UpdatedAt = *note.UpdatedAt
	}
	return comment
}

// CreateIssueComment adds a note to an issue.
func (g *Service) CreateIssueComment(ctx context.Context, repo string, issueNumber int, body string) (*hosting.Created, error) {
	pid, err := projectID(repo)
	if err != nil {
		return nil, err
	}

	note, resp, err := g.client.Notes.CreateIssueNote(pid, int64(issueNumber), &gogitlab.CreateIssueNoteOptions{
		Body: gogitlab.Ptr(body),
	}, gogitlab.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("create note on issue #%d: %w", issueNumber, mapError(err, resp))
	}
	return &hosting.Created{ID: int64(note.ID)}, nil
}

// resolveUserIDs converts usernames to GitLab user IDs.
func (g *Service) resolveUserIDs(ctx context.Context, usernames []string) ([]int64, error) {
	var ids []int64
	for _, username := range usernames {
		users, _, err := g.client.Users.ListUsers(&gogitlab.ListUsersOptions{
			Username: gogitlab.Ptr(username),
		}, gogitlab.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("lookup user %q: %w", username, err)
		}
		if len(users) > 0 {
			ids = append(ids, users[0].ID)
		}
	}
	return ids, nil
}
