package resolver

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/repoback/internal/entity"
	bperrors "github.com/randalmurphal/repoback/internal/errors"
)

func TestResolve(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		deps      map[string][]string
		requested []string
		want      []string
	}{
		{
			name:      "empty request",
			deps:      map[string][]string{"a": nil},
			requested: nil,
			want:      []string{},
		},
		{
			name:      "linear chain requested backwards",
			deps:      map[string][]string{"a": nil, "b": {"a"}, "c": {"b"}},
			requested: []string{"c", "b", "a"},
			want:      []string{"a", "b", "c"},
		},
		{
			name:      "independent names keep request order",
			deps:      map[string][]string{"a": nil, "b": nil, "c": nil},
			requested: []string{"c", "a", "b"},
			want:      []string{"c", "a", "b"},
		},
		{
			name:      "dependency outside request is satisfied",
			deps:      map[string][]string{"a": nil, "b": {"a"}},
			requested: []string{"b"},
			want:      []string{"b"},
		},
		{
			name:      "unknown name has no dependencies",
			deps:      map[string][]string{"a": nil},
			requested: []string{"x", "a"},
			want:      []string{"x", "a"},
		},
		{
			name:      "duplicates collapsed",
			deps:      map[string][]string{"a": nil, "b": {"a"}},
			requested: []string{"b", "a", "b"},
			want:      []string{"a", "b"},
		},
		{
			name: "entity table",
			deps: entity.Dependencies,
			requested: []string{
				entity.SubIssues, entity.Comments, entity.Issues,
				entity.Milestones, entity.Labels,
			},
			want: []string{
				entity.Milestones, entity.Labels, entity.Issues,
				entity.SubIssues, entity.Comments,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := Resolve(tt.deps, tt.requested)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolve_Cycle(t *testing.T) {
	t.Parallel()

	deps := map[string][]string{"A": {"B"}, "B": {"A"}, "C": nil}
	_, err := Resolve(deps, []string{"A", "B", "C"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, bperrors.ErrDependencyCycle))
	assert.Contains(t, err.Error(), "circular dependency")
	assert.Contains(t, err.Error(), "A, B")
	assert.NotContains(t, err.Error(), "C")
}

func TestResolve_SelfCycle(t *testing.T) {
	t.Parallel()

	_, err := Resolve(map[string][]string{"A": {"A"}}, []string{"A"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, bperrors.ErrDependencyCycle))
}

// Every resolved name must appear after all of its requested dependencies.
func TestResolve_TopologicalProperty(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(42))
	for iter := 0; iter < 200; iter++ {
		requested := append([]string(nil), entity.All...)
		rng.Shuffle(len(requested), func(i, j int) {
			requested[i], requested[j] = requested[j], requested[i]
		})
		requested = requested[:1+rng.Intn(len(requested))]

		order, err := Resolve(entity.Dependencies, requested)
		require.NoError(t, err)
		require.Len(t, order, len(requested))

		position := make(map[string]int, len(order))
		for i, name := range order {
			position[name] = i
		}
		for _, name := range order {
			for _, dep := range entity.Dependencies[name] {
				depPos, ok := position[dep]
				if !ok {
					continue
				}
				assert.Less(t, depPos, position[name], "%s must come after %s in %v", name, dep, order)
			}
		}

		again, err := Resolve(entity.Dependencies, requested)
		require.NoError(t, err)
		assert.Equal(t, order, again, "resolution must be deterministic")
	}
}
