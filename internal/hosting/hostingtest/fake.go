// Package hostingtest provides an in-memory hosting.Service for tests.
package hostingtest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/randalmurphal/repoback/internal/entity"
	"github.com/randalmurphal/repoback/internal/hosting"
)

// ProviderFake is the provider name reported by Fake.
const ProviderFake hosting.ProviderType = "fake"

// Compile-time interface check.
var _ hosting.Service = (*Fake)(nil)

// Fake is an in-memory repository. As a source it serves the records in its
// fields; as a destination it appends created records with fresh numbers.
//
// Numbers assigned to created milestones start at MilestoneStart+1 and
// numbers for created issues and pull requests (one shared sequence) start
// at IssueStart+1.
type Fake struct {
	mu sync.Mutex

	Labels         []*entity.Label
	Milestones     []*entity.Milestone
	Issues         []*entity.Issue
	Comments       []*entity.Comment
	PullRequests   []*entity.PullRequest
	PRComments     []*entity.PullRequestComment
	Reviews        []*entity.PullRequestReview
	ReviewComments []*entity.PullRequestReviewComment
	SubIssues      []*entity.SubIssue

	// ClosedIssues records CloseIssue calls: number -> reason.
	ClosedIssues map[int]string
	// DeletedLabels records DeleteLabel calls in order.
	DeletedLabels []string

	MilestoneStart int
	IssueStart     int

	errs     map[string]error
	calls    []string
	nextID   int64
	issueSeq int
	msSeq    int
}

// New returns an empty Fake whose created milestones are numbered from 101
// and created issues and pull requests from 1001.
func New() *Fake {
	return &Fake{
		ClosedIssues:   make(map[int]string),
		MilestoneStart: 100,
		IssueStart:     1000,
		errs:           make(map[string]error),
		nextID:         5000,
	}
}

// Fail makes every later call to method return err.
func (f *Fake) Fail(method string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[method] = err
}

// Calls returns the methods called so far, in order.
func (f *Fake) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// Called reports how many times method was called.
func (f *Fake) Called(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == method {
			n++
		}
	}
	return n
}

// record notes a call and returns the programmed error for method. Callers hold mu.
func (f *Fake) record(method string) error {
	f.calls = append(f.calls, method)
	return f.errs[method]
}

func (f *Fake) id() int64 {
	f.nextID++
	return f.nextID
}

func (f *Fake) issueNumber() int {
	f.issueSeq++
	return f.IssueStart + f.issueSeq
}

// Name returns the fake provider name.
func (f *Fake) Name() hosting.ProviderType { return ProviderFake }

// GetLabels returns the current labels.
func (f *Fake) GetLabels(_ context.Context, _ string) ([]*entity.Label, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("GetLabels"); err != nil {
		return nil, err
	}
	return append([]*entity.Label(nil), f.Labels...), nil
}

// GetMilestones returns the current milestones.
func (f *Fake) GetMilestones(_ context.Context, _ string) ([]*entity.Milestone, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("GetMilestones"); err != nil {
		return nil, err
	}
	return append([]*entity.Milestone(nil), f.Milestones...), nil
}

// GetIssues returns the current issues.
func (f *Fake) GetIssues(_ context.Context, _ string) ([]*entity.Issue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("GetIssues"); err != nil {
		return nil, err
	}
	return append([]*entity.Issue(nil), f.Issues...), nil
}

// GetAllIssueComments returns the current issue comments.
func (f *Fake) GetAllIssueComments(_ context.Context, _ string) ([]*entity.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("GetAllIssueComments"); err != nil {
		return nil, err
	}
	return append([]*entity.Comment(nil), f.Comments...), nil
}

// GetPullRequests returns the current pull requests.
func (f *Fake) GetPullRequests(_ context.Context, _ string) ([]*entity.PullRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("GetPullRequests"); err != nil {
		return nil, err
	}
	return append([]*entity.PullRequest(nil), f.PullRequests...), nil
}

// GetAllPullRequestComments returns the current pull request comments.
func (f *Fake) GetAllPullRequestComments(_ context.Context, _ string) ([]*entity.PullRequestComment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("GetAllPullRequestComments"); err != nil {
		return nil, err
	}
	return append([]*entity.PullRequestComment(nil), f.PRComments...), nil
}

// GetAllPullRequestReviews returns the current reviews.
func (f *Fake) GetAllPullRequestReviews(_ context.Context, _ string) ([]*entity.PullRequestReview, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("GetAllPullRequestReviews"); err != nil {
		return nil, err
	}
	return append([]*entity.PullRequestReview(nil), f.Reviews...), nil
}

// GetAllPullRequestReviewComments returns the current review comments.
func (f *Fake) GetAllPullRequestReviewComments(_ context.Context, _ string) ([]*entity.PullRequestReviewComment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("GetAllPullRequestReviewComments"); err != nil {
		return nil, err
	}
	return append([]*entity.PullRequestReviewComment(nil), f.ReviewComments...), nil
}

// GetSubIssues returns the current sub-issue relations.
func (f *Fake) GetSubIssues(_ context.Context, _ string) ([]*entity.SubIssue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("GetSubIssues"); err != nil {
		return nil, err
	}
	return append([]*entity.SubIssue(nil), f.SubIssues...), nil
}

// CreateLabel adds a label. Names are unique.
func (f *Fake) CreateLabel(_ context.Context, _ string, label hosting.LabelCreate) (*hosting.Created, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("CreateLabel"); err != nil {
		return nil, err
	}
	for _, l := range f.Labels {
		if l.Name == label.Name {
			return nil, fmt.Errorf("create label %q: %w", label.Name, hosting.ErrAlreadyExists)
		}
	}
	l := &entity.Label{ID: f.id(), Name: label.Name, Color: label.Color, Description: label.Description}
	f.Labels = append(f.Labels, l)
	return &hosting.Created{ID: l.ID, Name: l.Name}, nil
}

// DeleteLabel removes a label by name.
func (f *Fake) DeleteLabel(_ context.Context, _ string, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("DeleteLabel"); err != nil {
		return err
	}
	for i, l := range f.Labels {
		if l.Name == name {
			f.Labels = append(f.Labels[:i], f.Labels[i+1:]...)
			f.DeletedLabels = append(f.DeletedLabels, name)
			return nil
		}
	}
	return fmt.Errorf("delete label %q: %w", name, hosting.ErrNotFound)
}

// CreateMilestone adds a milestone. Titles are unique.
func (f *Fake) CreateMilestone(_ context.Context, _ string, opts hosting.MilestoneCreate) (*hosting.Created, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("CreateMilestone"); err != nil {
		return nil, err
	}
	for _, m := range f.Milestones {
		if m.Title == opts.Title {
			return nil, fmt.Errorf("create milestone %q: %w", opts.Title, hosting.ErrAlreadyExists)
		}
	}

	f.msSeq++
	m := &entity.Milestone{
		ID:          f.id(),
		Number:      f.MilestoneStart + f.msSeq,
		Title:       opts.Title,
		Description: opts.Description,
		State:       opts.State,
	}
	if opts.DueOn != "" {
		due, err := time.Parse(time.RFC3339, opts.DueOn)
		if err != nil {
			return nil, fmt.Errorf("parse due date: %w", err)
		}
		m.DueOn = &due
	}
	f.Milestones = append(f.Milestones, m)
	return &hosting.Created{ID: m.ID, Number: m.Number, Name: m.Title}, nil
}

// CreateIssue adds an open issue.
func (f *Fake) CreateIssue(_ context.Context, _ string, opts hosting.IssueCreate) (*hosting.Created, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("CreateIssue"); err != nil {
		return nil, err
	}
	issue := &entity.Issue{
		ID:        f.id(),
		Number:    f.issueNumber(),
		Title:     opts.Title,
		Body:      opts.Body,
		State:     "open",
		Labels:    opts.Labels,
		Milestone: opts.Milestone,
		Assignees: opts.Assignees,
	}
	f.Issues = append(f.Issues, issue)
	return &hosting.Created{ID: issue.ID, Number: issue.Number}, nil
}

// Issue returns the issue with number, or nil.
func (f *Fake) Issue(number int) *entity.Issue {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, i := range f.Issues {
		if i.Number == number {
			return i
		}
	}
	return nil
}

// CloseIssue marks an issue closed.
func (f *Fake) CloseIssue(_ context.Context, _ string, number int, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("CloseIssue"); err != nil {
		return err
	}
	for _, i := range f.Issues {
		if i.Number == number {
			i.State = "closed"
			i.StateReason = reason
			f.ClosedIssues[number] = reason
			return nil
		}
	}
	return fmt.Errorf("close issue #%d: %w", number, hosting.ErrNotFound)
}

// CreateIssueComment adds a comment.
func (f *Fake) CreateIssueComment(_ context.Context, _ string, issueNumber int, body string) (*hosting.Created, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("CreateIssueComment"); err != nil {
		return nil, err
	}
	c := &entity.Comment{ID: f.id(), IssueNumber: issueNumber, Body: body}
	f.Comments = append(f.Comments, c)
	return &hosting.Created{ID: c.ID}, nil
}

// AddSubIssue links child under parent, appending at the end.
func (f *Fake) AddSubIssue(_ context.Context, _ string, parentNumber, childNumber int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("AddSubIssue"); err != nil {
		return err
	}
	pos := 0
	for _, s := range f.SubIssues {
		if s.ParentNumber == parentNumber {
			pos++
		}
	}
	f.SubIssues = append(f.SubIssues, &entity.SubIssue{ParentNumber: parentNumber, ChildNumber: childNumber, Position: pos})
	return nil
}

// CreatePullRequest adds an open pull request.
func (f *Fake) CreatePullRequest(_ context.Context, _ string, opts hosting.PullRequestCreate) (*hosting.Created, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("CreatePullRequest"); err != nil {
		return nil, err
	}
	pr := &entity.PullRequest{
		ID:        f.id(),
		Number:    f.issueNumber(),
		Title:     opts.Title,
		Body:      opts.Body,
		State:     "open",
		Head:      opts.Head,
		Base:      opts.Base,
		Draft:     opts.Draft,
		Labels:    opts.Labels,
		Milestone: opts.Milestone,
	}
	f.PullRequests = append(f.PullRequests, pr)
	return &hosting.Created{ID: pr.ID, Number: pr.Number}, nil
}

// CreatePullRequestComment adds a conversation comment.
func (f *Fake) CreatePullRequestComment(_ context.Context, _ string, prNumber int, body string) (*hosting.Created, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("CreatePullRequestComment"); err != nil {
		return nil, err
	}
	c := &entity.PullRequestComment{ID: f.id(), PullRequestNumber: prNumber, Body: body}
	f.PRComments = append(f.PRComments, c)
	return &hosting.Created{ID: c.ID}, nil
}

// CreatePullRequestReview adds a review; the event becomes its state.
func (f *Fake) CreatePullRequestReview(_ context.Context, _ string, prNumber int, opts hosting.ReviewCreate) (*hosting.Created, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("CreatePullRequestReview"); err != nil {
		return nil, err
	}
	r := &entity.PullRequestReview{
		ID:                f.id(),
		PullRequestNumber: prNumber,
		Body:              opts.Body,
		State:             opts.Event,
		CommitID:          opts.CommitID,
	}
	f.Reviews = append(f.Reviews, r)
	return &hosting.Created{ID: r.ID}, nil
}

// CreatePullRequestReviewComment adds an inline comment.
func (f *Fake) CreatePullRequestReviewComment(_ context.Context, _ string, prNumber int, opts hosting.ReviewCommentCreate) (*hosting.Created, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("CreatePullRequestReviewComment"); err != nil {
		return nil, err
	}
	c := &entity.PullRequestReviewComment{
		ID:                f.id(),
		PullRequestNumber: prNumber,
		Body:              opts.Body,
		Path:              opts.Path,
		Line:              opts.Line,
		Side:              opts.Side,
		InReplyTo:         opts.InReplyTo,
		CommitID:          opts.CommitID,
	}
	f.ReviewComments = append(f.ReviewComments, c)
	return &hosting.Created{ID: c.ID}, nil
}

// LabelNames returns the current label names, sorted.
func (f *Fake) LabelNames() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	names := make([]string, 0, len(f.Labels))
	for _, l := range f.Labels {
		names = append(names, l.Name)
	}
	sort.Strings(names)
	return names
}
