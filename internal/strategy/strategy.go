// Package strategy defines how each entity type is saved and restored, and
// builds the strategies a configuration enables.
//
// Save runs Collect, Transform and Persist per entity type. Restore runs
// Read and ResolveConflicts once, then Transform, Write and PostCreate per
// record. Strategies share state only through the run's Context.
package strategy

import (
	"context"
	"log/slog"

	"github.com/randalmurphal/repoback/internal/entity"
	"github.com/randalmurphal/repoback/internal/hosting"
	"github.com/randalmurphal/repoback/internal/storage"
)

// SaveStrategy moves one entity type from a hosting source to storage.
type SaveStrategy interface {
	Name() string
	Dependencies() []string

	// Collect fetches every record from the source.
	Collect(ctx context.Context, repo string) ([]entity.Record, error)

	// Transform filters and shapes records. It may change collections of
	// other entity types in ec and must MarkModified them.
	Transform(records []entity.Record, ec *Context) ([]entity.Record, error)

	// Persist writes records under dir and returns how many were saved.
	Persist(ctx context.Context, store storage.Store, dir string, records []entity.Record) (int, error)
}

// RestoreStrategy moves one entity type from storage to a hosting destination.
type RestoreStrategy interface {
	Name() string
	Dependencies() []string

	// Read loads the saved records from dir.
	Read(ctx context.Context, store storage.Store, dir string) ([]entity.Record, error)

	// ResolveConflicts reconciles the whole batch with the destination.
	ResolveConflicts(ctx context.Context, repo string, records []entity.Record) ([]entity.Record, error)

	// Transform builds the destination payload for one record. ok=false
	// skips the record (for example when its parent was not restored).
	Transform(record entity.Record, ec *Context) (payload any, ok bool, err error)

	// Write creates the payload at the destination.
	Write(ctx context.Context, repo string, payload any) (*hosting.Created, error)

	// PostCreate runs after a record was created. It is not called when
	// the destination reported the record as already existing.
	PostCreate(ctx context.Context, repo string, original entity.Record, created *hosting.Created, ec *Context) error
}

// NoConflicts is embedded by restore strategies that accept every record.
type NoConflicts struct{}

// ResolveConflicts returns records unchanged.
func (NoConflicts) ResolveConflicts(_ context.Context, _ string, records []entity.Record) ([]entity.Record, error) {
	return records, nil
}

// NoPostCreate is embedded by restore strategies with nothing to record.
type NoPostCreate struct{}

// PostCreate does nothing.
func (NoPostCreate) PostCreate(context.Context, string, entity.Record, *hosting.Created, *Context) error {
	return nil
}

// meta carries the name, dependencies and logger shared by all strategies.
type meta struct {
	name   string
	logger *slog.Logger
}

func newMeta(name string, logger *slog.Logger) meta {
	if logger == nil {
		logger = slog.Default()
	}
	return meta{name: name, logger: logger}
}

func (m meta) Name() string { return m.name }

func (m meta) Dependencies() []string {
	return append([]string(nil), entity.Dependencies[m.name]...)
}
