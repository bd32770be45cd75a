// Package resolver orders entity types so that every entity runs after its dependencies.
package resolver

import (
	bperrors "github.com/randalmurphal/repoback/internal/errors"
)

// Resolve orders the requested names so each name comes after every
// dependency that is also requested. Dependencies outside the request are
// treated as satisfied.
//
// Names become ready in batches; within a batch the request order is kept,
// so the result is deterministic for a given input. Duplicate requested
// names are collapsed to their first occurrence.
func Resolve(deps map[string][]string, requested []string) ([]string, error) {
	remaining := make([]string, 0, len(requested))
	isRequested := make(map[string]bool, len(requested))
	for _, name := range requested {
		if isRequested[name] {
			continue
		}
		isRequested[name] = true
		remaining = append(remaining, name)
	}

	resolved := make(map[string]bool, len(remaining))
	result := make([]string, 0, len(remaining))

	for len(remaining) > 0 {
		var ready, blocked []string
		for _, name := range remaining {
			if satisfied(deps[name], isRequested, resolved) {
				ready = append(ready, name)
			} else {
				blocked = append(blocked, name)
			}
		}

		if len(ready) == 0 {
			return nil, bperrors.DependencyCycle(blocked)
		}

		// Mark the batch only after scanning it, so members of one batch
		// never satisfy each other.
		for _, name := range ready {
			resolved[name] = true
		}
		result = append(result, ready...)
		remaining = blocked
	}

	return result, nil
}

func satisfied(deps []string, requested, resolved map[string]bool) bool {
	for _, dep := range deps {
		if requested[dep] && !resolved[dep] {
			return false
		}
	}
	return true
}
