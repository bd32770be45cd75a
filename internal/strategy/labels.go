package strategy

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/randalmurphal/repoback/internal/conflict"
	"github.com/randalmurphal/repoback/internal/entity"
	"github.com/randalmurphal/repoback/internal/hosting"
	"github.com/randalmurphal/repoback/internal/storage"
)

// LabelsSave saves repository labels.
type LabelsSave struct {
	meta
	source hosting.Source
}

// NewLabelsSave creates the labels save strategy.
func NewLabelsSave(source hosting.Source, logger *slog.Logger) *LabelsSave {
	return &LabelsSave{meta: newMeta(entity.Labels, logger), source: source}
}

func (s *LabelsSave) Collect(ctx context.Context, repo string) ([]entity.Record, error) {
	labels, err := s.source.GetLabels(ctx, repo)
	return collected(s.name, labels, err)
}

func (s *LabelsSave) Transform(records []entity.Record, _ *Context) ([]entity.Record, error) {
	return records, nil
}

func (s *LabelsSave) Persist(ctx context.Context, store storage.Store, dir string, records []entity.Record) (int, error) {
	return persist(ctx, store, dir, s.name, records)
}

// LabelsRestore recreates labels. Collisions with labels already at the
// destination are settled by the configured conflict strategy.
type LabelsRestore struct {
	meta
	NoPostCreate
	dest      hosting.Destination
	conflicts conflict.Strategy
}

// NewLabelsRestore creates the labels restore strategy.
func NewLabelsRestore(dest hosting.Destination, conflicts conflict.Strategy, logger *slog.Logger) *LabelsRestore {
	return &LabelsRestore{meta: newMeta(entity.Labels, logger), dest: dest, conflicts: conflicts}
}

func (s *LabelsRestore) Read(ctx context.Context, store storage.Store, dir string) ([]entity.Record, error) {
	return read[*entity.Label](ctx, store, dir, s.name)
}

func (s *LabelsRestore) ResolveConflicts(ctx context.Context, repo string, records []entity.Record) ([]entity.Record, error) {
	existing, err := s.dest.GetLabels(ctx, repo)
	if err != nil {
		return nil, fmt.Errorf("list destination labels: %w", err)
	}

	resolved, err := s.conflicts.Resolve(ctx, repo, existing, entity.FromRecords[*entity.Label](records))
	if err != nil {
		return nil, err
	}
	if skipped := len(records) - len(resolved); skipped > 0 {
		s.logger.Info("labels left out by conflict strategy",
			"strategy", s.conflicts.Policy(),
			"skipped", skipped)
	}
	return entity.ToRecords(resolved), nil
}

func (s *LabelsRestore) Transform(record entity.Record, _ *Context) (any, bool, error) {
	l, err := as[*entity.Label](record)
	if err != nil {
		return nil, false, err
	}
	return hosting.LabelCreate{Name: l.Name, Color: l.Color, Description: l.Description}, true, nil
}

func (s *LabelsRestore) Write(ctx context.Context, repo string, payload any) (*hosting.Created, error) {
	p, err := as[hosting.LabelCreate](payload)
	if err != nil {
		return nil, err
	}
	return s.dest.CreateLabel(ctx, repo, p)
}
