package strategy

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/repoback/internal/entity"
	"github.com/randalmurphal/repoback/internal/hosting/hostingtest"
	"github.com/randalmurphal/repoback/internal/selection"
	"github.com/randalmurphal/repoback/internal/storage"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

// runSave executes one save strategy the way the orchestrator does.
func runSave(t *testing.T, s SaveStrategy, ec *Context, store storage.Store, dir string) []entity.Record {
	t.Helper()
	ctx := context.Background()

	records, err := s.Collect(ctx, "octo/hello")
	require.NoError(t, err)
	records, err = s.Transform(records, ec)
	require.NoError(t, err)
	ec.SetCollection(s.Name(), records)
	n, err := s.Persist(ctx, store, dir, records)
	require.NoError(t, err)
	assert.Equal(t, len(records), n)
	return records
}

func sourceFake() *hostingtest.Fake {
	src := hostingtest.New()
	src.Labels = []*entity.Label{{Name: "bug", Color: "d73a4a"}, {Name: "feature", Color: "a2eeef"}}
	src.Milestones = []*entity.Milestone{{Number: 1, Title: "v1"}}
	src.Issues = []*entity.Issue{
		{Number: 1, Title: "one"},
		{Number: 2, Title: "two"},
		{Number: 3, Title: "three"},
	}
	src.Comments = []*entity.Comment{
		{ID: 11, IssueNumber: 1, Body: "c1"},
		{ID: 12, IssueNumber: 2, Body: "c2"},
		{ID: 13, IssueNumber: 2, Body: "c3"},
		{ID: 14, IssueNumber: 3, Body: "c4"},
	}
	return src
}

func commentBodies(records []entity.Record) []string {
	var out []string
	for _, c := range entity.FromRecords[*entity.Comment](records) {
		out = append(out, c.Body)
	}
	return out
}

func TestSave_SelectionCouplesComments(t *testing.T) {
	t.Parallel()

	src := sourceFake()
	store := storage.NewJSONStore()
	dir := t.TempDir()
	ec := NewContext()

	issues := runSave(t, NewIssuesSave(src, selection.Set(2), quietLogger()), ec, store, dir)
	require.Len(t, issues, 1)

	comments := runSave(t, NewCommentsSave(src, selection.Set(2), quietLogger()), ec, store, dir)
	assert.Equal(t, []string{"c2", "c3"}, commentBodies(comments))

	saved, err := storage.ReadRecords[*entity.Comment](context.Background(), store, dir, entity.Comments)
	require.NoError(t, err)
	assert.Len(t, saved, 2)
}

func TestSave_CommentsFallBackToIssueSpec(t *testing.T) {
	t.Parallel()

	src := sourceFake()
	ec := NewContext()

	s := NewCommentsSave(src, selection.Set(1, 3), quietLogger())
	records, err := s.Collect(context.Background(), "octo/hello")
	require.NoError(t, err)
	kept, err := s.Transform(records, ec)
	require.NoError(t, err)
	assert.Equal(t, []string{"c1", "c4"}, commentBodies(kept))

	all, err := NewCommentsSave(src, selection.All(), quietLogger()).Transform(records, ec)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestSave_IssuesFilterWarnsMissing(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	s := NewIssuesSave(sourceFake(), selection.Set(2, 9), logger)
	records, err := s.Collect(context.Background(), "octo/hello")
	require.NoError(t, err)
	kept, err := s.Transform(records, NewContext())
	require.NoError(t, err)

	require.Len(t, kept, 1)
	assert.Contains(t, buf.String(), "missing=9")
}

func TestSave_CollectErrorWraps(t *testing.T) {
	t.Parallel()

	src := sourceFake()
	boom := errors.New("boom")
	src.Fail("GetIssues", boom)

	_, err := NewIssuesSave(src, selection.All(), quietLogger()).Collect(context.Background(), "octo/hello")
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "collect issues")
}

func TestSave_SubIssuesAttachToIssues(t *testing.T) {
	t.Parallel()

	src := sourceFake()
	src.SubIssues = []*entity.SubIssue{
		{ParentNumber: 1, ChildNumber: 3, Position: 1},
		{ParentNumber: 1, ChildNumber: 2, Position: 0},
		{ParentNumber: 2, ChildNumber: 9, Position: 0},
	}
	store := storage.NewJSONStore()
	dir := t.TempDir()
	ec := NewContext()

	runSave(t, NewIssuesSave(src, selection.All(), quietLogger()), ec, store, dir)
	subs := runSave(t, NewSubIssuesSave(src, selection.All(), quietLogger()), ec, store, dir)

	// #9 is not a saved issue.
	require.Len(t, subs, 2)
	assert.Equal(t, []string{entity.Issues}, ec.TakeModified())

	records, _ := ec.Collection(entity.Issues)
	issues := entity.FromRecords[*entity.Issue](records)
	assert.Equal(t, []entity.SubIssueRef{{Number: 2, Position: 0}, {Number: 3, Position: 1}}, issues[0].SubIssues)
	require.NotNil(t, issues[1].ParentNumber)
	assert.Equal(t, 1, *issues[1].ParentNumber)
}

func TestSave_SubIssuesWithoutIssuesCollection(t *testing.T) {
	t.Parallel()

	src := sourceFake()
	src.SubIssues = []*entity.SubIssue{{ParentNumber: 1, ChildNumber: 2}}
	ec := NewContext()

	s := NewSubIssuesSave(src, selection.All(), quietLogger())
	records, err := s.Collect(context.Background(), "octo/hello")
	require.NoError(t, err)
	kept, err := s.Transform(records, ec)
	require.NoError(t, err)
	assert.Len(t, kept, 1)
	assert.Empty(t, ec.TakeModified())
}

func TestSave_ReviewCommentsFollowReviews(t *testing.T) {
	t.Parallel()

	src := hostingtest.New()
	src.PullRequests = []*entity.PullRequest{{Number: 5}, {Number: 6}}
	src.Reviews = []*entity.PullRequestReview{
		{ID: 50, PullRequestNumber: 5},
		{ID: 60, PullRequestNumber: 6},
	}
	src.ReviewComments = []*entity.PullRequestReviewComment{
		{ID: 500, ReviewID: 50, PullRequestNumber: 5},
		{ID: 600, ReviewID: 60, PullRequestNumber: 6},
	}
	store := storage.NewJSONStore()
	dir := t.TempDir()
	ec := NewContext()

	spec := selection.Set(5)
	runSave(t, NewPullRequestsSave(src, spec, quietLogger()), ec, store, dir)
	reviews := runSave(t, NewPullRequestReviewsSave(src, spec, quietLogger()), ec, store, dir)
	require.Len(t, reviews, 1)

	comments := runSave(t, NewPullRequestReviewCommentsSave(src, spec, quietLogger()), ec, store, dir)
	require.Len(t, comments, 1)
	assert.Equal(t, int64(500), comments[0].(*entity.PullRequestReviewComment).ID)
}

func TestSave_EmptyCollectionPersistsEmptyList(t *testing.T) {
	t.Parallel()

	store := storage.NewJSONStore()
	dir := t.TempDir()

	runSave(t, NewMilestonesSave(hostingtest.New(), quietLogger()), NewContext(), store, dir)

	ok, err := store.Exists(context.Background(), dir, entity.Milestones)
	require.NoError(t, err)
	assert.True(t, ok)
}
