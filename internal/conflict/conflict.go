// Package conflict decides what happens when restored labels collide with
// labels that already exist at the destination.
package conflict

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/randalmurphal/repoback/internal/entity"
	bperrors "github.com/randalmurphal/repoback/internal/errors"
)

// Policy names a conflict resolution strategy.
type Policy string

const (
	// FailIfExisting refuses when any restored name is already taken.
	FailIfExisting Policy = "fail-if-existing"
	// FailIfConflict refuses only when a taken name carries a different
	// color or description. Identical labels are left alone.
	FailIfConflict Policy = "fail-if-conflict"
	// Skip drops restored labels whose names are already taken.
	Skip Policy = "skip"
	// Overwrite deletes colliding destination labels and recreates them.
	Overwrite Policy = "overwrite"
	// DeleteAll deletes every destination label before restoring.
	DeleteAll Policy = "delete-all"
)

// DefaultPolicy is used when no policy is configured.
const DefaultPolicy = FailIfExisting

// Policies lists every valid policy.
var Policies = []Policy{FailIfExisting, FailIfConflict, Skip, Overwrite, DeleteAll}

// Parse validates a policy name. An empty name selects DefaultPolicy.
func Parse(name string) (Policy, error) {
	if name == "" {
		return DefaultPolicy, nil
	}
	for _, p := range Policies {
		if string(p) == name {
			return p, nil
		}
	}
	return "", bperrors.ConfigInvalid("labels.conflict_strategy",
		fmt.Sprintf("unknown strategy %q (valid: fail-if-existing, fail-if-conflict, skip, overwrite, delete-all)", name))
}

// LabelDeleter removes labels at the destination.
type LabelDeleter interface {
	DeleteLabel(ctx context.Context, repo string, name string) error
}

// Strategy resolves restored label candidates against existing labels and
// returns the labels that should be created.
type Strategy interface {
	Policy() Policy
	Resolve(ctx context.Context, repo string, existing, candidates []*entity.Label) ([]*entity.Label, error)
}

// New returns the strategy for p. Overwrite and DeleteAll need a deleter.
func New(p Policy, deleter LabelDeleter, logger *slog.Logger) (Strategy, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if (p == Overwrite || p == DeleteAll) && deleter == nil {
		return nil, bperrors.CollaboratorMissing(entity.Labels, "label deleter")
	}
	switch p {
	case FailIfExisting, FailIfConflict, Skip, Overwrite, DeleteAll:
		return &resolver{policy: p, deleter: deleter, logger: logger}, nil
	default:
		return nil, bperrors.ConfigInvalid("labels.conflict_strategy", fmt.Sprintf("unknown strategy %q", p))
	}
}

type resolver struct {
	policy  Policy
	deleter LabelDeleter
	logger  *slog.Logger
}

func (r *resolver) Policy() Policy { return r.policy }

func (r *resolver) Resolve(ctx context.Context, repo string, existing, candidates []*entity.Label) ([]*entity.Label, error) {
	switch r.policy {
	case FailIfExisting:
		if clashes := collisions(existing, candidates); len(clashes) > 0 {
			return nil, bperrors.Conflict(string(r.policy), clashes)
		}
		return candidates, nil

	case FailIfConflict:
		byName := make(map[string]*entity.Label, len(existing))
		for _, l := range existing {
			byName[l.Name] = l
		}
		var differing []string
		kept := make([]*entity.Label, 0, len(candidates))
		for _, c := range candidates {
			cur, ok := byName[c.Name]
			if !ok {
				kept = append(kept, c)
				continue
			}
			if !sameLabel(cur, c) {
				differing = append(differing, c.Name)
				continue
			}
			r.logger.Debug("label already present", "label", c.Name)
		}
		if len(differing) > 0 {
			sort.Strings(differing)
			return nil, bperrors.Conflict(string(r.policy), differing)
		}
		return kept, nil

	case Skip:
		taken := nameSet(existing)
		kept := make([]*entity.Label, 0, len(candidates))
		for _, c := range candidates {
			if taken[c.Name] {
				r.logger.Info("skipping existing label", "label", c.Name)
				continue
			}
			kept = append(kept, c)
		}
		return kept, nil

	case Overwrite:
		for _, name := range collisions(existing, candidates) {
			if err := r.deleter.DeleteLabel(ctx, repo, name); err != nil {
				return nil, fmt.Errorf("delete label %q: %w", name, err)
			}
			r.logger.Debug("deleted conflicting label", "label", name)
		}
		return candidates, nil

	case DeleteAll:
		for _, l := range existing {
			if err := r.deleter.DeleteLabel(ctx, repo, l.Name); err != nil {
				return nil, fmt.Errorf("delete label %q: %w", l.Name, err)
			}
		}
		if len(existing) > 0 {
			r.logger.Info("deleted existing labels", "count", len(existing))
		}
		return candidates, nil
	}
	return nil, fmt.Errorf("unknown conflict policy %q", r.policy)
}

// collisions returns candidate names already present in existing, sorted.
func collisions(existing, candidates []*entity.Label) []string {
	taken := nameSet(existing)
	var out []string
	for _, c := range candidates {
		if taken[c.Name] {
			out = append(out, c.Name)
		}
	}
	sort.Strings(out)
	return out
}

func nameSet(labels []*entity.Label) map[string]bool {
	set := make(map[string]bool, len(labels))
	for _, l := range labels {
		set[l.Name] = true
	}
	return set
}

// sameLabel compares the fields a restore would write. Colors ignore case
// and a leading '#'.
func sameLabel(a, b *entity.Label) bool {
	return strings.EqualFold(strings.TrimPrefix(a.Color, "#"), strings.TrimPrefix(b.Color, "#")) &&
		a.Description == b.Description
}
