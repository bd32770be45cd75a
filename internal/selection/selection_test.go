package selection

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	bperrors "github.com/randalmurphal/repoback/internal/errors"
)

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw     string
		want    Spec
		enabled bool
	}{
		{"true", All(), true},
		{"YES", All(), true},
		{"on", All(), true},
		{"1", All(), true},
		{"false", None(), false},
		{"0", None(), false},
		{"off", None(), false},
		{"5", Set(5), true},
		{"1,2,3", Set(1, 2, 3), true},
		{"1 2 3", Set(1, 2, 3), true},
		{"[1, 2]", Set(1, 2), true},
		{"[1]", Set(1), true},
		{"1-3 10 15-16", Set(1, 2, 3, 10, 15, 16), true},
		{"3,1,3", Set(1, 3), true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			t.Parallel()
			got, err := Parse("issues", tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.enabled, got.Enabled())
		})
	}
}

func TestParse_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw     string
		message string
	}{
		{"", "empty"},
		{"[]", "empty"},
		{"abc", "invalid number"},
		{"-3", "positive"},
		{"5-2", "ends before"},
		{"0-4", "positive"},
		{"1-200000", "spans more than"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			t.Parallel()
			_, err := Parse("pull_requests", tt.raw)
			require.Error(t, err)
			assert.True(t, errors.Is(err, bperrors.ErrConfig))
			assert.Contains(t, err.Error(), "pull_requests")
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestValidate_EmptySetNamesEntity(t *testing.T) {
	t.Parallel()

	err := Set().Validate("include.issues")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "include.issues")
	assert.False(t, Set().Enabled())

	err = Set(-1, 4).Validate("include.pull_requests")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "positive")

	assert.NoError(t, All().Validate("x"))
	assert.NoError(t, None().Validate("x"))
	assert.NoError(t, Set(2).Validate("x"))
}

func TestContainsAndString(t *testing.T) {
	t.Parallel()

	s := Set(1, 2, 3, 7)
	assert.True(t, s.Contains(2))
	assert.False(t, s.Contains(4))
	assert.Equal(t, "1-3 7", s.String())
	assert.Equal(t, []int{1, 2, 3, 7}, s.IDs())

	assert.True(t, All().Contains(999))
	assert.False(t, None().Contains(1))
	assert.Equal(t, "true", All().String())
	assert.Equal(t, "false", None().String())
}

func TestYAML(t *testing.T) {
	t.Parallel()

	var cfg struct {
		A Spec `yaml:"a"`
		B Spec `yaml:"b"`
		C Spec `yaml:"c"`
		D Spec `yaml:"d"`
		E Spec `yaml:"e"`
		F Spec `yaml:"f"`
	}
	input := `
a: true
b: false
c: [3, 1]
d: "1-2 9"
e: []
f: 4
`
	require.NoError(t, yaml.Unmarshal([]byte(input), &cfg))
	assert.Equal(t, All(), cfg.A)
	assert.Equal(t, None(), cfg.B)
	assert.Equal(t, Set(1, 3), cfg.C)
	assert.Equal(t, Set(1, 2, 9), cfg.D)
	assert.Equal(t, ModeSet, cfg.E.Mode())
	assert.Error(t, cfg.E.Validate("e"))
	assert.Equal(t, Set(4), cfg.F)

	out, err := yaml.Marshal(cfg)
	require.NoError(t, err)
	assert.Contains(t, string(out), "a: true")
	assert.Contains(t, string(out), "b: false")
}

type item struct {
	number int
	parent int
	name   string
}

func itemNumber(i item) int { return i.number }
func itemParent(i item) int { return i.parent }

func TestFilter(t *testing.T) {
	t.Parallel()

	items := []item{{number: 1}, {number: 2}, {number: 3}}

	assert.Equal(t, items, Filter(All(), "issues", items, itemNumber, nil))
	assert.Empty(t, Filter(None(), "issues", items, itemNumber, nil))

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	got := Filter(Set(2, 3, 8, 9), "issues", items, itemNumber, logger)
	assert.Equal(t, []item{{number: 2}, {number: 3}}, got)
	assert.Contains(t, buf.String(), "selected numbers not found")
	assert.Contains(t, buf.String(), "entity=issues")
	assert.Contains(t, buf.String(), "missing=8-9")
}

func TestFilter_NoWarningWhenAllFound(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	items := []item{{number: 1}, {number: 2}}
	Filter(Set(1, 2), "issues", items, itemNumber, logger)
	assert.Empty(t, buf.String())
}

// Issues [#1,#2,#3] with comments [c1->#1, c2->#2, c3->#2]; selecting
// issues {2} keeps exactly c2 and c3.
func TestCoupled(t *testing.T) {
	t.Parallel()

	issues := []item{{number: 1}, {number: 2}, {number: 3}}
	comments := []item{
		{name: "c1", parent: 1},
		{name: "c2", parent: 2},
		{name: "c3", parent: 2},
	}

	selected := Filter(Set(2), "issues", issues, itemNumber, nil)
	parents := Numbers(selected, itemNumber)

	got := Coupled(true, parents, comments, itemParent)
	require.Len(t, got, 2)
	assert.Equal(t, "c2", got[0].name)
	assert.Equal(t, "c3", got[1].name)

	assert.Empty(t, Coupled(false, parents, comments, itemParent), "disabled dependent keeps nothing")
}

func TestCoupled_AllSelectionUsesPresentParents(t *testing.T) {
	t.Parallel()

	issues := []item{{number: 1}, {number: 3}}
	comments := []item{
		{name: "c1", parent: 1},
		{name: "orphan", parent: 2},
		{name: "c3", parent: 3},
	}

	parents := Numbers(Filter(All(), "issues", issues, itemNumber, nil), itemNumber)
	got := Coupled(true, parents, comments, itemParent)
	require.Len(t, got, 2)
	assert.Equal(t, "c1", got[0].name)
	assert.Equal(t, "c3", got[1].name)
}
