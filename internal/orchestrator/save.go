package orchestrator

import (
	"context"
	"log/slog"
	"time"

	bperrors "github.com/randalmurphal/repoback/internal/errors"
	"github.com/randalmurphal/repoback/internal/manifest"
	"github.com/randalmurphal/repoback/internal/storage"
	"github.com/randalmurphal/repoback/internal/strategy"
)

// Saver backs up a repository's entities into a storage directory.
type Saver struct {
	factory *strategy.Factory
	store   storage.Store
	backend string
	logger  *slog.Logger
}

// NewSaver creates a Saver. backend is recorded in the manifest.
func NewSaver(factory *strategy.Factory, store storage.Store, backend string, logger *slog.Logger) *Saver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Saver{factory: factory, store: store, backend: backend, logger: logger}
}

// Execute saves the requested entity types of repo into dir.
//
// Configuration and planning problems are returned before anything runs.
// A failing entity type yields a failed result and the run continues; use
// Failures to turn the results into an error. The manifest is written
// after every entity type has run.
func (s *Saver) Execute(ctx context.Context, repo, dir string, requested ...string) ([]EntityResult, error) {
	order, err := plan(s.factory.EnabledEntities(), requested)
	if err != nil {
		return nil, err
	}
	all, err := s.factory.SaveStrategies()
	if err != nil {
		return nil, err
	}
	strategies := make(map[string]strategy.SaveStrategy, len(all))
	for _, st := range all {
		strategies[st.Name()] = st
	}

	s.logger.Info("save started", "repository", repo, "dir", dir, "entities", order)

	ec := strategy.NewContext()
	m := manifest.New(repo, s.backend)
	results := make([]EntityResult, 0, len(order))
	index := make(map[string]int, len(order))

	for _, name := range order {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		r := s.saveOne(ctx, strategies[name], repo, dir, ec)
		index[name] = len(results)
		results = append(results, r)
		logResult(s.logger, "save", r)

		for _, modified := range ec.TakeModified() {
			i, done := index[modified]
			if !done || modified == name || !results[i].Success {
				continue
			}
			s.repersist(ctx, strategies[modified], dir, ec, &results[i])
		}
	}

	for _, r := range results {
		if r.Success {
			m.Record(r.Name, r.Written)
		} else {
			m.Fail(r.Name)
		}
	}
	if err := manifest.Write(dir, m); err != nil {
		return results, bperrors.Storage("manifest", err)
	}

	s.logger.Info("save finished", "repository", repo, "run_id", m.RunID, "records", m.Total())
	return results, nil
}

func (s *Saver) saveOne(ctx context.Context, st strategy.SaveStrategy, repo, dir string, ec *strategy.Context) EntityResult {
	start := time.Now()
	r := EntityResult{Name: st.Name(), Success: true}

	records, err := st.Collect(ctx, repo)
	if err != nil {
		r.fail(bperrors.Entity(r.Name, "collect", err))
		return finish(r, start)
	}
	r.Processed = len(records)

	records, err = st.Transform(records, ec)
	if err != nil {
		r.fail(bperrors.Entity(r.Name, "transform", err))
		return finish(r, start)
	}
	ec.SetCollection(r.Name, records)
	r.Skipped = r.Processed - len(records)

	n, err := st.Persist(ctx, s.store, dir, records)
	if err != nil {
		r.fail(wrapEntity(r.Name, "persist", err))
		return finish(r, start)
	}
	r.Written = n
	return finish(r, start)
}

// repersist rewrites an already saved entity type whose collection was
// changed by a later strategy.
func (s *Saver) repersist(ctx context.Context, st strategy.SaveStrategy, dir string, ec *strategy.Context, r *EntityResult) {
	records, _ := ec.Collection(r.Name)
	s.logger.Debug("re-persisting modified entity", "entity", r.Name, "records", len(records))

	n, err := st.Persist(ctx, s.store, dir, records)
	if err != nil {
		r.fail(wrapEntity(r.Name, "persist", err))
		s.logger.Error("re-persist failed", "entity", r.Name, "error", err)
		return
	}
	r.Written = n
}

func finish(r EntityResult, start time.Time) EntityResult {
	r.Duration = time.Since(start)
	return r
}

// wrapEntity keeps structured errors from strategies and wraps the rest.
func wrapEntity(name, step string, err error) error {
	if be := bperrors.AsBackupError(err); be != nil {
		return err
	}
	return bperrors.Entity(name, step, err)
}
