package strategy

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/randalmurphal/repoback/internal/entity"
	"github.com/randalmurphal/repoback/internal/hosting"
	"github.com/randalmurphal/repoback/internal/storage"
)

// MilestonesSave saves milestones.
type MilestonesSave struct {
	meta
	source hosting.Source
}

// NewMilestonesSave creates the milestones save strategy.
func NewMilestonesSave(source hosting.Source, logger *slog.Logger) *MilestonesSave {
	return &MilestonesSave{meta: newMeta(entity.Milestones, logger), source: source}
}

func (s *MilestonesSave) Collect(ctx context.Context, repo string) ([]entity.Record, error) {
	milestones, err := s.source.GetMilestones(ctx, repo)
	return collected(s.name, milestones, err)
}

func (s *MilestonesSave) Transform(records []entity.Record, _ *Context) ([]entity.Record, error) {
	return records, nil
}

func (s *MilestonesSave) Persist(ctx context.Context, store storage.Store, dir string, records []entity.Record) (int, error) {
	return persist(ctx, store, dir, s.name, records)
}

// MilestonesRestore recreates milestones and records old→new numbers.
// Titles are unique at the destination; an existing title is not an error.
type MilestonesRestore struct {
	meta
	NoConflicts
	dest hosting.Destination
}

// NewMilestonesRestore creates the milestones restore strategy.
func NewMilestonesRestore(dest hosting.Destination, logger *slog.Logger) *MilestonesRestore {
	return &MilestonesRestore{meta: newMeta(entity.Milestones, logger), dest: dest}
}

func (s *MilestonesRestore) Read(ctx context.Context, store storage.Store, dir string) ([]entity.Record, error) {
	return read[*entity.Milestone](ctx, store, dir, s.name)
}

func (s *MilestonesRestore) Transform(record entity.Record, _ *Context) (any, bool, error) {
	m, err := as[*entity.Milestone](record)
	if err != nil {
		return nil, false, err
	}
	p := hosting.MilestoneCreate{
		Title:       m.Title,
		Description: m.Description,
		State:       m.State,
	}
	if m.DueOn != nil {
		p.DueOn = m.DueOn.UTC().Format(time.RFC3339)
	}
	return p, true, nil
}

func (s *MilestonesRestore) Write(ctx context.Context, repo string, payload any) (*hosting.Created, error) {
	p, err := as[hosting.MilestoneCreate](payload)
	if err != nil {
		return nil, err
	}
	created, err := s.dest.CreateMilestone(ctx, repo, p)
	if errors.Is(err, hosting.ErrAlreadyExists) {
		s.logger.Info("milestone already exists", "title", p.Title)
		return hosting.ExistingCreated(), nil
	}
	return created, err
}

func (s *MilestonesRestore) PostCreate(_ context.Context, _ string, original entity.Record, created *hosting.Created, ec *Context) error {
	m, err := as[*entity.Milestone](original)
	if err != nil {
		return err
	}
	ec.SetMapping(s.name, int64(m.Number), int64(created.Number))
	return nil
}
