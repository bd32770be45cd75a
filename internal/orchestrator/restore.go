package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"time"

	bperrors "github.com/randalmurphal/repoback/internal/errors"
	"github.com/randalmurphal/repoback/internal/storage"
	"github.com/randalmurphal/repoback/internal/strategy"
)

// Restorer recreates saved entities in a destination repository.
type Restorer struct {
	factory *strategy.Factory
	store   storage.Store
	logger  *slog.Logger
}

// NewRestorer creates a Restorer.
func NewRestorer(factory *strategy.Factory, store storage.Store, logger *slog.Logger) *Restorer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Restorer{factory: factory, store: store, logger: logger}
}

// Execute restores the requested entity types from dir into repo.
//
// A saved entity file that is missing or corrupt aborts the run with a
// STORAGE_FAILED error and the results gathered so far. Any other failure
// is recorded on that entity's result and the run continues.
func (r *Restorer) Execute(ctx context.Context, repo, dir string, requested ...string) ([]EntityResult, error) {
	order, err := plan(r.factory.EnabledEntities(), requested)
	if err != nil {
		return nil, err
	}
	all, err := r.factory.RestoreStrategies()
	if err != nil {
		return nil, err
	}
	strategies := make(map[string]strategy.RestoreStrategy, len(all))
	for _, st := range all {
		strategies[st.Name()] = st
	}

	r.logger.Info("restore started", "repository", repo, "dir", dir, "entities", order)

	ec := strategy.NewContext()
	results := make([]EntityResult, 0, len(order))
	for _, name := range order {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		res, abort := r.restoreOne(ctx, strategies[name], repo, dir, ec)
		results = append(results, res)
		logResult(r.logger, "restore", res)
		if abort != nil {
			return results, abort
		}
	}

	r.logger.Info("restore finished", "repository", repo)
	return results, nil
}

// restoreOne runs one entity type. The second return value is non-nil
// when the whole run must stop.
func (r *Restorer) restoreOne(ctx context.Context, st strategy.RestoreStrategy, repo, dir string, ec *strategy.Context) (EntityResult, error) {
	start := time.Now()
	res := EntityResult{Name: st.Name(), Success: true}

	records, err := st.Read(ctx, r.store, dir)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) || errors.Is(err, storage.ErrCorrupt) {
			abort := bperrors.Storage(res.Name, err)
			res.fail(abort)
			return finish(res, start), abort
		}
		res.fail(wrapEntity(res.Name, "read", err))
		return finish(res, start), nil
	}

	res.Processed = len(records)
	records, err = st.ResolveConflicts(ctx, repo, records)
	if err != nil {
		res.fail(wrapEntity(res.Name, "resolve conflicts", err))
		return finish(res, start), nil
	}
	// Records dropped by conflict resolution were handled, not lost.
	if dropped := res.Processed - len(records); dropped > 0 {
		res.Skipped += dropped
	}

	for _, record := range records {
		if err := ctx.Err(); err != nil {
			res.fail(err)
			return finish(res, start), err
		}

		payload, ok, err := st.Transform(record, ec)
		if err != nil {
			res.fail(wrapEntity(res.Name, "transform", err))
			return finish(res, start), nil
		}
		if !ok {
			res.Skipped++
			continue
		}

		created, err := st.Write(ctx, repo, payload)
		if err != nil {
			res.fail(wrapEntity(res.Name, "write", err))
			return finish(res, start), nil
		}
		if created != nil && created.Existed {
			res.Skipped++
			continue
		}
		res.Written++

		if err := st.PostCreate(ctx, repo, record, created, ec); err != nil {
			res.fail(wrapEntity(res.Name, "post-create", err))
			return finish(res, start), nil
		}
	}
	return finish(res, start), nil
}
