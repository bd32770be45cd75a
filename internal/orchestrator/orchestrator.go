// Package orchestrator runs the enabled entity strategies in dependency
// order for a save or a restore.
package orchestrator

import (
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/randalmurphal/repoback/internal/entity"
	bperrors "github.com/randalmurphal/repoback/internal/errors"
	"github.com/randalmurphal/repoback/internal/resolver"
)

// EntityResult is the outcome of one entity type in a run.
type EntityResult struct {
	Name      string        `json:"name"`
	Success   bool          `json:"success"`
	Processed int           `json:"processed"`
	Written   int           `json:"written"`
	Skipped   int           `json:"skipped"`
	Err       error         `json:"-"`
	Duration  time.Duration `json:"duration"`
}

// Error returns the failure message, or "" for a successful result.
func (r EntityResult) Error() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

func (r *EntityResult) fail(err error) {
	r.Success = false
	r.Err = err
}

// Failures combines every failed result into one ENTITY_FAILED error.
// Returns nil when all results succeeded.
func Failures(results []EntityResult) error {
	var (
		names  []string
		causes []error
	)
	for _, r := range results {
		if r.Success {
			continue
		}
		names = append(names, r.Name)
		causes = append(causes, r.Err)
	}
	if len(names) == 0 {
		return nil
	}
	return bperrors.EntitiesFailed(names, causes)
}

// plan validates the requested names against the enabled ones and orders
// them. An empty request means every enabled entity type.
func plan(enabled, requested []string) ([]string, error) {
	if len(requested) == 0 {
		requested = enabled
	}
	for _, name := range requested {
		if !entity.IsKnown(name) {
			return nil, bperrors.ConfigInvalid("entities", fmt.Sprintf("unknown entity type %q", name))
		}
		if !slices.Contains(enabled, name) {
			return nil, bperrors.ConfigInvalid("entities", fmt.Sprintf("entity type %q is disabled", name))
		}
	}
	return resolver.Resolve(entity.Dependencies, requested)
}

func logResult(logger *slog.Logger, op string, r EntityResult) {
	if r.Success {
		logger.Info(op+" entity complete",
			"entity", r.Name,
			"processed", r.Processed,
			"written", r.Written,
			"skipped", r.Skipped,
			"duration", r.Duration)
		return
	}
	logger.Error(op+" entity failed", "entity", r.Name, "error", r.Err)
}
