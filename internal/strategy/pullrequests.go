package strategy

import (
	"context"
	"log/slog"

	"github.com/randalmurphal/repoback/internal/entity"
	"github.com/randalmurphal/repoback/internal/hosting"
	"github.com/randalmurphal/repoback/internal/selection"
	"github.com/randalmurphal/repoback/internal/storage"
)

// PullRequestsSave saves the selected pull requests.
type PullRequestsSave struct {
	meta
	source hosting.Source
	spec   selection.Spec
}

// NewPullRequestsSave creates the pull requests save strategy.
func NewPullRequestsSave(source hosting.Source, spec selection.Spec, logger *slog.Logger) *PullRequestsSave {
	return &PullRequestsSave{meta: newMeta(entity.PullRequests, logger), source: source, spec: spec}
}

func (s *PullRequestsSave) Collect(ctx context.Context, repo string) ([]entity.Record, error) {
	prs, err := s.source.GetPullRequests(ctx, repo)
	return collected(s.name, prs, err)
}

func (s *PullRequestsSave) Transform(records []entity.Record, _ *Context) ([]entity.Record, error) {
	prs := entity.FromRecords[*entity.PullRequest](records)
	kept := selection.Filter(s.spec, s.name, prs, (*entity.PullRequest).GetNumber, s.logger)
	return entity.ToRecords(kept), nil
}

func (s *PullRequestsSave) Persist(ctx context.Context, store storage.Store, dir string, records []entity.Record) (int, error) {
	return persist(ctx, store, dir, s.name, records)
}

// PullRequestsRestore recreates pull requests. Their branches must already
// exist at the destination, typically from a git repository restore.
type PullRequestsRestore struct {
	meta
	NoConflicts
	dest hosting.Destination
	spec selection.Spec
}

// NewPullRequestsRestore creates the pull requests restore strategy for the
// saved pull requests in spec.
func NewPullRequestsRestore(dest hosting.Destination, spec selection.Spec, logger *slog.Logger) *PullRequestsRestore {
	return &PullRequestsRestore{meta: newMeta(entity.PullRequests, logger), dest: dest, spec: spec}
}

func (s *PullRequestsRestore) Read(ctx context.Context, store storage.Store, dir string) ([]entity.Record, error) {
	records, err := read[*entity.PullRequest](ctx, store, dir, s.name)
	if err != nil {
		return nil, err
	}
	prs := entity.FromRecords[*entity.PullRequest](records)
	return entity.ToRecords(selection.Filter(s.spec, s.name, prs, (*entity.PullRequest).GetNumber, s.logger)), nil
}

func (s *PullRequestsRestore) Transform(record entity.Record, ec *Context) (any, bool, error) {
	pr, err := as[*entity.PullRequest](record)
	if err != nil {
		return nil, false, err
	}
	return hosting.PullRequestCreate{
		Title:     pr.Title,
		Body:      entity.WithOriginFooter(withStateNote(pr), pr.Author, pr.CreatedAt),
		Head:      pr.Head,
		Base:      pr.Base,
		Draft:     pr.Draft,
		Labels:    pr.Labels,
		Milestone: s.remapMilestone(ec, pr.Number, pr.Milestone),
	}, true, nil
}

// withStateNote records the original state of merged or closed pull
// requests, which are recreated open.
func withStateNote(pr *entity.PullRequest) string {
	switch {
	case pr.Merged:
		return pr.Body + "\n\n*Original state: merged*"
	case pr.State == "closed":
		return pr.Body + "\n\n*Original state: closed*"
	default:
		return pr.Body
	}
}

func (s *PullRequestsRestore) Write(ctx context.Context, repo string, payload any) (*hosting.Created, error) {
	p, err := as[hosting.PullRequestCreate](payload)
	if err != nil {
		return nil, err
	}
	return s.dest.CreatePullRequest(ctx, repo, p)
}

func (s *PullRequestsRestore) PostCreate(_ context.Context, _ string, original entity.Record, created *hosting.Created, ec *Context) error {
	pr, err := as[*entity.PullRequest](original)
	if err != nil {
		return err
	}
	ec.SetMapping(s.name, int64(pr.Number), int64(created.Number))
	return nil
}

// PullRequestCommentsSave saves conversation comments of the selected pull requests.
type PullRequestCommentsSave struct {
	meta
	source hosting.Source
	prs    selection.Spec
}

// NewPullRequestCommentsSave creates the pull request comments save strategy.
func NewPullRequestCommentsSave(source hosting.Source, prs selection.Spec, logger *slog.Logger) *PullRequestCommentsSave {
	return &PullRequestCommentsSave{meta: newMeta(entity.PullRequestComments, logger), source: source, prs: prs}
}

func (s *PullRequestCommentsSave) Collect(ctx context.Context, repo string) ([]entity.Record, error) {
	comments, err := s.source.GetAllPullRequestComments(ctx, repo)
	return collected(s.name, comments, err)
}

func (s *PullRequestCommentsSave) Transform(records []entity.Record, ec *Context) ([]entity.Record, error) {
	comments := entity.FromRecords[*entity.PullRequestComment](records)
	kept := couple(ec, entity.PullRequests, s.prs, comments, func(c *entity.PullRequestComment) int { return c.PullRequestNumber })
	return entity.ToRecords(kept), nil
}

func (s *PullRequestCommentsSave) Persist(ctx context.Context, store storage.Store, dir string, records []entity.Record) (int, error) {
	return persist(ctx, store, dir, s.name, records)
}

// PullRequestCommentsRestore recreates conversation comments on the remapped pull requests.
type PullRequestCommentsRestore struct {
	meta
	NoConflicts
	dest hosting.Destination
}

// NewPullRequestCommentsRestore creates the pull request comments restore strategy.
func NewPullRequestCommentsRestore(dest hosting.Destination, logger *slog.Logger) *PullRequestCommentsRestore {
	return &PullRequestCommentsRestore{meta: newMeta(entity.PullRequestComments, logger), dest: dest}
}

func (s *PullRequestCommentsRestore) Read(ctx context.Context, store storage.Store, dir string) ([]entity.Record, error) {
	return read[*entity.PullRequestComment](ctx, store, dir, s.name)
}

func (s *PullRequestCommentsRestore) Transform(record entity.Record, ec *Context) (any, bool, error) {
	c, err := as[*entity.PullRequestComment](record)
	if err != nil {
		return nil, false, err
	}
	pr, ok := ec.MapNumber(entity.PullRequests, c.PullRequestNumber)
	if !ok {
		s.logger.Debug("skipping comment, pull request not restored", "pull_request", c.PullRequestNumber, "comment", c.ID)
		return nil, false, nil
	}
	return commentPayload{
		parent: pr,
		body:   entity.WithOriginFooter(c.Body, c.Author, c.CreatedAt),
	}, true, nil
}

func (s *PullRequestCommentsRestore) Write(ctx context.Context, repo string, payload any) (*hosting.Created, error) {
	p, err := as[commentPayload](payload)
	if err != nil {
		return nil, err
	}
	return s.dest.CreatePullRequestComment(ctx, repo, p.parent, p.body)
}

func (s *PullRequestCommentsRestore) PostCreate(_ context.Context, _ string, original entity.Record, created *hosting.Created, ec *Context) error {
	c, err := as[*entity.PullRequestComment](original)
	if err != nil {
		return err
	}
	ec.SetMapping(s.name, c.ID, created.ID)
	return nil
}
