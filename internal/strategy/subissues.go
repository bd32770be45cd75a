package strategy

import (
	"context"
	"log/slog"
	"sort"

	"github.com/randalmurphal/repoback/internal/entity"
	"github.com/randalmurphal/repoback/internal/hosting"
	"github.com/randalmurphal/repoback/internal/selection"
	"github.com/randalmurphal/repoback/internal/storage"
)

// SubIssuesSave saves parent/child relations between selected issues and
// attaches them to the issue records saved earlier in the run.
type SubIssuesSave struct {
	meta
	source hosting.Source
	issues selection.Spec
}

// NewSubIssuesSave creates the sub-issues save strategy.
func NewSubIssuesSave(source hosting.Source, issues selection.Spec, logger *slog.Logger) *SubIssuesSave {
	return &SubIssuesSave{meta: newMeta(entity.SubIssues, logger), source: source, issues: issues}
}

func (s *SubIssuesSave) Collect(ctx context.Context, repo string) ([]entity.Record, error) {
	subs, err := s.source.GetSubIssues(ctx, repo)
	return collected(s.name, subs, err)
}

// Transform keeps relations whose parent and child are both selected. When
// the issues collection is part of the run, each parent gets its children
// and each child its parent, and issues is marked modified.
func (s *SubIssuesSave) Transform(records []entity.Record, ec *Context) ([]entity.Record, error) {
	subs := entity.FromRecords[*entity.SubIssue](records)
	subs = couple(ec, entity.Issues, s.issues, subs, func(r *entity.SubIssue) int { return r.ParentNumber })
	subs = couple(ec, entity.Issues, s.issues, subs, func(r *entity.SubIssue) int { return r.ChildNumber })
	sortSubIssues(subs)

	if issueRecords, ok := ec.Collection(entity.Issues); ok && len(subs) > 0 {
		byNumber := make(map[int]*entity.Issue, len(issueRecords))
		for _, issue := range entity.FromRecords[*entity.Issue](issueRecords) {
			issue.SubIssues = nil
			issue.ParentNumber = nil
			byNumber[issue.Number] = issue
		}
		for _, sub := range subs {
			if parent := byNumber[sub.ParentNumber]; parent != nil {
				parent.SubIssues = append(parent.SubIssues, entity.SubIssueRef{Number: sub.ChildNumber, Position: sub.Position})
			}
			if child := byNumber[sub.ChildNumber]; child != nil {
				n := sub.ParentNumber
				child.ParentNumber = &n
			}
		}
		ec.MarkModified(entity.Issues)
	}
	return entity.ToRecords(subs), nil
}

func (s *SubIssuesSave) Persist(ctx context.Context, store storage.Store, dir string, records []entity.Record) (int, error) {
	return persist(ctx, store, dir, s.name, records)
}

// SubIssuesRestore links restored issues, per parent in position order.
type SubIssuesRestore struct {
	meta
	NoConflicts
	NoPostCreate
	dest hosting.Destination
}

// NewSubIssuesRestore creates the sub-issues restore strategy.
func NewSubIssuesRestore(dest hosting.Destination, logger *slog.Logger) *SubIssuesRestore {
	return &SubIssuesRestore{meta: newMeta(entity.SubIssues, logger), dest: dest}
}

type subIssuePayload struct {
	parent, child int
}

func (s *SubIssuesRestore) Read(ctx context.Context, store storage.Store, dir string) ([]entity.Record, error) {
	subs, err := storage.ReadRecords[*entity.SubIssue](ctx, store, dir, s.name)
	if err != nil {
		return nil, err
	}
	sortSubIssues(subs)
	return entity.ToRecords(subs), nil
}

func (s *SubIssuesRestore) Transform(record entity.Record, ec *Context) (any, bool, error) {
	sub, err := as[*entity.SubIssue](record)
	if err != nil {
		return nil, false, err
	}
	parent, okParent := ec.MapNumber(entity.Issues, sub.ParentNumber)
	child, okChild := ec.MapNumber(entity.Issues, sub.ChildNumber)
	if !okParent || !okChild {
		s.logger.Debug("skipping sub-issue, issue not restored", "parent", sub.ParentNumber, "child", sub.ChildNumber)
		return nil, false, nil
	}
	return subIssuePayload{parent: parent, child: child}, true, nil
}

func (s *SubIssuesRestore) Write(ctx context.Context, repo string, payload any) (*hosting.Created, error) {
	p, err := as[subIssuePayload](payload)
	if err != nil {
		return nil, err
	}
	if err := s.dest.AddSubIssue(ctx, repo, p.parent, p.child); err != nil {
		return nil, err
	}
	return &hosting.Created{Number: p.child}, nil
}

// sortSubIssues orders relations by parent, then position.
func sortSubIssues(subs []*entity.SubIssue) {
	sort.SliceStable(subs, func(i, j int) bool {
		if subs[i].ParentNumber != subs[j].ParentNumber {
			return subs[i].ParentNumber < subs[j].ParentNumber
		}
		return subs[i].Position < subs[j].Position
	})
}
