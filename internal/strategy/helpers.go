package strategy

import (
	"context"
	"fmt"

	"github.com/randalmurphal/repoback/internal/entity"
	"github.com/randalmurphal/repoback/internal/selection"
	"github.com/randalmurphal/repoback/internal/storage"
)

// collected converts a source result into records.
func collected[T entity.Record](name string, items []T, err error) ([]entity.Record, error) {
	if err != nil {
		return nil, fmt.Errorf("collect %s: %w", name, err)
	}
	return entity.ToRecords(items), nil
}

// persist writes records as the collection for name.
func persist(ctx context.Context, store storage.Store, dir, name string, records []entity.Record) (int, error) {
	if records == nil {
		records = []entity.Record{}
	}
	if err := store.Write(ctx, dir, name, records); err != nil {
		return 0, fmt.Errorf("persist %s: %w", name, err)
	}
	return len(records), nil
}

// read loads the collection for name as records.
func read[T entity.Record](ctx context.Context, store storage.Store, dir, name string) ([]entity.Record, error) {
	items, err := storage.ReadRecords[T](ctx, store, dir, name)
	if err != nil {
		return nil, err
	}
	return entity.ToRecords(items), nil
}

// as asserts the concrete type of a record or payload.
func as[T any](v any) (T, error) {
	t, ok := v.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("unexpected value %T, want %T", v, zero)
	}
	return t, nil
}

// couple keeps items whose parent is selected in this run. When the parent
// collection was materialized, its numbers decide; otherwise the parent's
// selection spec does.
func couple[T any](ec *Context, parent string, fallback selection.Spec, items []T, parentOf func(T) int) []T {
	if parents, ok := ec.Collection(parent); ok {
		set := selection.Numbers(entity.FromRecords[entity.Numbered](parents), entity.Numbered.GetNumber)
		return selection.Coupled(true, set, items, parentOf)
	}
	if fallback.IsAll() {
		return items
	}
	kept := make([]T, 0, len(items))
	for _, item := range items {
		if fallback.Contains(parentOf(item)) {
			kept = append(kept, item)
		}
	}
	return kept
}

// remapMilestone translates a saved milestone number to the destination's.
// A missing mapping drops the milestone.
func (m meta) remapMilestone(ec *Context, number int, milestone *int) *int {
	if milestone == nil {
		return nil
	}
	mapped, ok := ec.MapNumber(entity.Milestones, *milestone)
	if !ok {
		m.logger.Warn("milestone not restored, dropping reference",
			"entity", m.name,
			"number", number,
			"milestone", *milestone)
		return nil
	}
	return &mapped
}
