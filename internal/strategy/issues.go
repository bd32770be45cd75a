package strategy

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/randalmurphal/repoback/internal/entity"
	"github.com/randalmurphal/repoback/internal/hosting"
	"github.com/randalmurphal/repoback/internal/selection"
	"github.com/randalmurphal/repoback/internal/storage"
)

// defaultCloseReason is used for closed issues saved without a state reason.
const defaultCloseReason = "completed"

// IssuesSave saves the selected issues.
type IssuesSave struct {
	meta
	source hosting.Source
	spec   selection.Spec
}

// NewIssuesSave creates the issues save strategy for the issues in spec.
func NewIssuesSave(source hosting.Source, spec selection.Spec, logger *slog.Logger) *IssuesSave {
	return &IssuesSave{meta: newMeta(entity.Issues, logger), source: source, spec: spec}
}

func (s *IssuesSave) Collect(ctx context.Context, repo string) ([]entity.Record, error) {
	issues, err := s.source.GetIssues(ctx, repo)
	return collected(s.name, issues, err)
}

func (s *IssuesSave) Transform(records []entity.Record, _ *Context) ([]entity.Record, error) {
	issues := entity.FromRecords[*entity.Issue](records)
	kept := selection.Filter(s.spec, s.name, issues, (*entity.Issue).GetNumber, s.logger)
	return entity.ToRecords(kept), nil
}

func (s *IssuesSave) Persist(ctx context.Context, store storage.Store, dir string, records []entity.Record) (int, error) {
	return persist(ctx, store, dir, s.name, records)
}

// IssuesRestore recreates the selected issues with remapped milestones and
// an origin footer, then closes the ones that were closed.
type IssuesRestore struct {
	meta
	NoConflicts
	dest hosting.Destination
	spec selection.Spec
}

// NewIssuesRestore creates the issues restore strategy for the saved issues
// in spec. Comments and sub-issues of issues left out are skipped later for
// lack of a mapping.
func NewIssuesRestore(dest hosting.Destination, spec selection.Spec, logger *slog.Logger) *IssuesRestore {
	return &IssuesRestore{meta: newMeta(entity.Issues, logger), dest: dest, spec: spec}
}

func (s *IssuesRestore) Read(ctx context.Context, store storage.Store, dir string) ([]entity.Record, error) {
	records, err := read[*entity.Issue](ctx, store, dir, s.name)
	if err != nil {
		return nil, err
	}
	issues := entity.FromRecords[*entity.Issue](records)
	return entity.ToRecords(selection.Filter(s.spec, s.name, issues, (*entity.Issue).GetNumber, s.logger)), nil
}

func (s *IssuesRestore) Transform(record entity.Record, ec *Context) (any, bool, error) {
	issue, err := as[*entity.Issue](record)
	if err != nil {
		return nil, false, err
	}
	return hosting.IssueCreate{
		Title:     issue.Title,
		Body:      entity.WithOriginFooter(issue.Body, issue.Author, issue.CreatedAt),
		Labels:    issue.Labels,
		Milestone: s.remapMilestone(ec, issue.Number, issue.Milestone),
	}, true, nil
}

func (s *IssuesRestore) Write(ctx context.Context, repo string, payload any) (*hosting.Created, error) {
	p, err := as[hosting.IssueCreate](payload)
	if err != nil {
		return nil, err
	}
	return s.dest.CreateIssue(ctx, repo, p)
}

func (s *IssuesRestore) PostCreate(ctx context.Context, repo string, original entity.Record, created *hosting.Created, ec *Context) error {
	issue, err := as[*entity.Issue](original)
	if err != nil {
		return err
	}
	ec.SetMapping(s.name, int64(issue.Number), int64(created.Number))

	if issue.State != "closed" {
		return nil
	}
	reason := issue.StateReason
	if reason == "" {
		reason = defaultCloseReason
	}
	if err := s.dest.CloseIssue(ctx, repo, created.Number, reason); err != nil {
		return fmt.Errorf("close issue #%d (was #%d): %w", created.Number, issue.Number, err)
	}
	return nil
}

// CommentsSave saves comments of the issues selected in this run.
type CommentsSave struct {
	meta
	source hosting.Source
	issues selection.Spec
}

// NewCommentsSave creates the comments save strategy. issues is the issue
// selection used when the issues collection is not part of the run.
func NewCommentsSave(source hosting.Source, issues selection.Spec, logger *slog.Logger) *CommentsSave {
	return &CommentsSave{meta: newMeta(entity.Comments, logger), source: source, issues: issues}
}

func (s *CommentsSave) Collect(ctx context.Context, repo string) ([]entity.Record, error) {
	comments, err := s.source.GetAllIssueComments(ctx, repo)
	return collected(s.name, comments, err)
}

func (s *CommentsSave) Transform(records []entity.Record, ec *Context) ([]entity.Record, error) {
	comments := entity.FromRecords[*entity.Comment](records)
	kept := couple(ec, entity.Issues, s.issues, comments, func(c *entity.Comment) int { return c.IssueNumber })
	return entity.ToRecords(kept), nil
}

func (s *CommentsSave) Persist(ctx context.Context, store storage.Store, dir string, records []entity.Record) (int, error) {
	return persist(ctx, store, dir, s.name, records)
}

// CommentsRestore recreates issue comments on the remapped issues.
type CommentsRestore struct {
	meta
	NoConflicts
	dest hosting.Destination
}

// NewCommentsRestore creates the comments restore strategy.
func NewCommentsRestore(dest hosting.Destination, logger *slog.Logger) *CommentsRestore {
	return &CommentsRestore{meta: newMeta(entity.Comments, logger), dest: dest}
}

type commentPayload struct {
	parent int
	body   string
}

func (s *CommentsRestore) Read(ctx context.Context, store storage.Store, dir string) ([]entity.Record, error) {
	return read[*entity.Comment](ctx, store, dir, s.name)
}

func (s *CommentsRestore) Transform(record entity.Record, ec *Context) (any, bool, error) {
	c, err := as[*entity.Comment](record)
	if err != nil {
		return nil, false, err
	}
	issue, ok := ec.MapNumber(entity.Issues, c.IssueNumber)
	if !ok {
		s.logger.Debug("skipping comment, issue not restored", "issue", c.IssueNumber, "comment", c.ID)
		return nil, false, nil
	}
	return commentPayload{
		parent: issue,
		body:   entity.WithOriginFooter(c.Body, c.Author, c.CreatedAt),
	}, true, nil
}

func (s *CommentsRestore) Write(ctx context.Context, repo string, payload any) (*hosting.Created, error) {
	p, err := as[commentPayload](payload)
	if err != nil {
		return nil, err
	}
	return s.dest.CreateIssueComment(ctx, repo, p.parent, p.body)
}

func (s *CommentsRestore) PostCreate(_ context.Context, _ string, original entity.Record, created *hosting.Created, ec *Context) error {
	c, err := as[*entity.Comment](original)
	if err != nil {
		return err
	}
	ec.SetMapping(s.name, c.ID, created.ID)
	return nil
}
