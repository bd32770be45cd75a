package strategy

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/randalmurphal/repoback/internal/entity"
	"github.com/randalmurphal/repoback/internal/hosting"
	"github.com/randalmurphal/repoback/internal/selection"
	"github.com/randalmurphal/repoback/internal/storage"
)

// reviewEventComment is the only review event a restoring user can submit
// on every pull request.
const reviewEventComment = "COMMENT"

// PullRequestReviewsSave saves reviews of the selected pull requests.
type PullRequestReviewsSave struct {
	meta
	source hosting.Source
	prs    selection.Spec
}

// NewPullRequestReviewsSave creates the reviews save strategy.
func NewPullRequestReviewsSave(source hosting.Source, prs selection.Spec, logger *slog.Logger) *PullRequestReviewsSave {
	return &PullRequestReviewsSave{meta: newMeta(entity.PullRequestReviews, logger), source: source, prs: prs}
}

func (s *PullRequestReviewsSave) Collect(ctx context.Context, repo string) ([]entity.Record, error) {
	reviews, err := s.source.GetAllPullRequestReviews(ctx, repo)
	return collected(s.name, reviews, err)
}

func (s *PullRequestReviewsSave) Transform(records []entity.Record, ec *Context) ([]entity.Record, error) {
	reviews := entity.FromRecords[*entity.PullRequestReview](records)
	kept := couple(ec, entity.PullRequests, s.prs, reviews, func(r *entity.PullRequestReview) int { return r.PullRequestNumber })
	return entity.ToRecords(kept), nil
}

func (s *PullRequestReviewsSave) Persist(ctx context.Context, store storage.Store, dir string, records []entity.Record) (int, error) {
	return persist(ctx, store, dir, s.name, records)
}

// PullRequestReviewsRestore recreates reviews as COMMENT reviews. Approvals
// and change requests cannot be submitted on the restorer's own pull
// requests, so the original state is written into the body.
type PullRequestReviewsRestore struct {
	meta
	NoConflicts
	dest hosting.Destination
}

// NewPullRequestReviewsRestore creates the reviews restore strategy.
func NewPullRequestReviewsRestore(dest hosting.Destination, logger *slog.Logger) *PullRequestReviewsRestore {
	return &PullRequestReviewsRestore{meta: newMeta(entity.PullRequestReviews, logger), dest: dest}
}

type reviewPayload struct {
	pr     int
	review hosting.ReviewCreate
}

func (s *PullRequestReviewsRestore) Read(ctx context.Context, store storage.Store, dir string) ([]entity.Record, error) {
	return read[*entity.PullRequestReview](ctx, store, dir, s.name)
}

func (s *PullRequestReviewsRestore) Transform(record entity.Record, ec *Context) (any, bool, error) {
	r, err := as[*entity.PullRequestReview](record)
	if err != nil {
		return nil, false, err
	}
	pr, ok := ec.MapNumber(entity.PullRequests, r.PullRequestNumber)
	if !ok {
		s.logger.Debug("skipping review, pull request not restored", "pull_request", r.PullRequestNumber, "review", r.ID)
		return nil, false, nil
	}

	body := r.Body
	if r.State != "" && r.State != "COMMENTED" {
		body = fmt.Sprintf("**Original review state: %s**\n\n%s", r.State, body)
	}
	var submitted time.Time
	if r.SubmittedAt != nil {
		submitted = *r.SubmittedAt
	}
	return reviewPayload{
		pr: pr,
		review: hosting.ReviewCreate{
			Body:  entity.WithOriginFooter(body, r.Author, submitted),
			Event: reviewEventComment,
		},
	}, true, nil
}

func (s *PullRequestReviewsRestore) Write(ctx context.Context, repo string, payload any) (*hosting.Created, error) {
	p, err := as[reviewPayload](payload)
	if err != nil {
		return nil, err
	}
	return s.dest.CreatePullRequestReview(ctx, repo, p.pr, p.review)
}

func (s *PullRequestReviewsRestore) PostCreate(_ context.Context, _ string, original entity.Record, created *hosting.Created, ec *Context) error {
	r, err := as[*entity.PullRequestReview](original)
	if err != nil {
		return err
	}
	ec.SetMapping(s.name, r.ID, created.ID)
	return nil
}

// PullRequestReviewCommentsSave saves inline comments of the reviews kept in
// this run, or of the selected pull requests when reviews are not collected.
type PullRequestReviewCommentsSave struct {
	meta
	source hosting.Source
	prs    selection.Spec
}

// NewPullRequestReviewCommentsSave creates the review comments save strategy.
func NewPullRequestReviewCommentsSave(source hosting.Source, prs selection.Spec, logger *slog.Logger) *PullRequestReviewCommentsSave {
	return &PullRequestReviewCommentsSave{meta: newMeta(entity.PullRequestReviewComments, logger), source: source, prs: prs}
}

func (s *PullRequestReviewCommentsSave) Collect(ctx context.Context, repo string) ([]entity.Record, error) {
	comments, err := s.source.GetAllPullRequestReviewComments(ctx, repo)
	return collected(s.name, comments, err)
}

func (s *PullRequestReviewCommentsSave) Transform(records []entity.Record, ec *Context) ([]entity.Record, error) {
	comments := entity.FromRecords[*entity.PullRequestReviewComment](records)

	reviews, ok := ec.Collection(entity.PullRequestReviews)
	if !ok {
		kept := couple(ec, entity.PullRequests, s.prs, comments, func(c *entity.PullRequestReviewComment) int { return c.PullRequestNumber })
		return entity.ToRecords(kept), nil
	}

	ids := make(map[int64]bool, len(reviews))
	for _, r := range entity.FromRecords[*entity.PullRequestReview](reviews) {
		ids[r.ID] = true
	}
	kept := make([]*entity.PullRequestReviewComment, 0, len(comments))
	for _, c := range comments {
		if ids[c.ReviewID] {
			kept = append(kept, c)
		}
	}
	return entity.ToRecords(kept), nil
}

func (s *PullRequestReviewCommentsSave) Persist(ctx context.Context, store storage.Store, dir string, records []entity.Record) (int, error) {
	return persist(ctx, store, dir, s.name, records)
}

// PullRequestReviewCommentsRestore recreates inline review comments on the
// remapped pull requests. Replies keep their thread when the comment they
// answer was already recreated.
type PullRequestReviewCommentsRestore struct {
	meta
	NoConflicts
	dest hosting.Destination
}

// NewPullRequestReviewCommentsRestore creates the review comments restore strategy.
func NewPullRequestReviewCommentsRestore(dest hosting.Destination, logger *slog.Logger) *PullRequestReviewCommentsRestore {
	return &PullRequestReviewCommentsRestore{meta: newMeta(entity.PullRequestReviewComments, logger), dest: dest}
}

type reviewCommentPayload struct {
	pr      int
	comment hosting.ReviewCommentCreate
}

// Read returns comments oldest first so thread parents precede replies.
func (s *PullRequestReviewCommentsRestore) Read(ctx context.Context, store storage.Store, dir string) ([]entity.Record, error) {
	comments, err := storage.ReadRecords[*entity.PullRequestReviewComment](ctx, store, dir, s.name)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(comments, func(i, j int) bool {
		if !comments[i].CreatedAt.Equal(comments[j].CreatedAt) {
			return comments[i].CreatedAt.Before(comments[j].CreatedAt)
		}
		return comments[i].ID < comments[j].ID
	})
	return entity.ToRecords(comments), nil
}

func (s *PullRequestReviewCommentsRestore) Transform(record entity.Record, ec *Context) (any, bool, error) {
	c, err := as[*entity.PullRequestReviewComment](record)
	if err != nil {
		return nil, false, err
	}
	pr, ok := ec.MapNumber(entity.PullRequests, c.PullRequestNumber)
	if !ok {
		s.logger.Debug("skipping review comment, pull request not restored", "pull_request", c.PullRequestNumber, "comment", c.ID)
		return nil, false, nil
	}

	p := hosting.ReviewCommentCreate{
		Body: entity.WithOriginFooter(c.Body, c.Author, c.CreatedAt),
		Path: c.Path,
		Line: c.Line,
		Side: c.Side,
	}
	if c.InReplyTo != 0 {
		if parent, ok := ec.Mapping(s.name, c.InReplyTo); ok {
			p.InReplyTo = parent
		} else {
			s.logger.Debug("reply parent not restored, creating top-level comment", "comment", c.ID, "in_reply_to", c.InReplyTo)
		}
	}
	return reviewCommentPayload{pr: pr, comment: p}, true, nil
}

func (s *PullRequestReviewCommentsRestore) Write(ctx context.Context, repo string, payload any) (*hosting.Created, error) {
	p, err := as[reviewCommentPayload](payload)
	if err != nil {
		return nil, err
	}
	return s.dest.CreatePullRequestReviewComment(ctx, repo, p.pr, p.comment)
}

func (s *PullRequestReviewCommentsRestore) PostCreate(_ context.Context, _ string, original entity.Record, created *hosting.Created, ec *Context) error {
	c, err := as[*entity.PullRequestReviewComment](original)
	if err != nil {
		return err
	}
	ec.SetMapping(s.name, c.ID, created.ID)
	return nil
}
