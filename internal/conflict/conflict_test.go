package conflict

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/repoback/internal/entity"
	bperrors "github.com/randalmurphal/repoback/internal/errors"
	"github.com/randalmurphal/repoback/internal/hosting/hostingtest"
)

func labels(names ...string) []*entity.Label {
	out := make([]*entity.Label, 0, len(names))
	for _, n := range names {
		out = append(out, &entity.Label{Name: n, Color: "ffffff"})
	}
	return out
}

func labelNames(ls []*entity.Label) []string {
	out := make([]string, 0, len(ls))
	for _, l := range ls {
		out = append(out, l.Name)
	}
	return out
}

func TestParse(t *testing.T) {
	t.Parallel()

	for _, p := range Policies {
		got, err := Parse(string(p))
		require.NoError(t, err)
		assert.Equal(t, p, got)
	}

	got, err := Parse("")
	require.NoError(t, err)
	assert.Equal(t, FailIfExisting, got)

	_, err = Parse("merge")
	require.Error(t, err)
	assert.True(t, errors.Is(err, bperrors.ErrConfig))
	assert.Contains(t, err.Error(), "conflict_strategy")
}

func TestResolve(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		policy      Policy
		existing    []string
		candidates  []string
		want        []string
		wantErr     bool
		wantDeleted []string
	}{
		{
			name:       "skip drops existing names",
			policy:     Skip,
			existing:   []string{"bug"},
			candidates: []string{"bug", "feature"},
			want:       []string{"feature"},
		},
		{
			name:       "fail-if-existing with empty destination",
			policy:     FailIfExisting,
			candidates: []string{"bug"},
			want:       []string{"bug"},
		},
		{
			name:       "fail-if-existing ignores unrelated labels",
			policy:     FailIfExisting,
			existing:   []string{"wontfix"},
			candidates: []string{"bug"},
			want:       []string{"bug"},
		},
		{
			name:       "fail-if-existing with name collision",
			policy:     FailIfExisting,
			existing:   []string{"bug", "wontfix"},
			candidates: []string{"bug", "feature"},
			wantErr:    true,
		},
		{
			name:       "fail-if-conflict without overlap",
			policy:     FailIfConflict,
			existing:   []string{"unrelated"},
			candidates: []string{"bug"},
			want:       []string{"bug"},
		},
		{
			name:       "fail-if-conflict drops identical labels",
			policy:     FailIfConflict,
			existing:   []string{"bug"},
			candidates: []string{"bug", "feature"},
			want:       []string{"feature"},
		},
		{
			name:        "overwrite deletes only collisions",
			policy:      Overwrite,
			existing:    []string{"bug", "keep"},
			candidates:  []string{"bug", "feature"},
			want:        []string{"bug", "feature"},
			wantDeleted: []string{"bug"},
		},
		{
			name:        "delete-all deletes everything",
			policy:      DeleteAll,
			existing:    []string{"bug", "keep"},
			candidates:  []string{"feature"},
			want:        []string{"feature"},
			wantDeleted: []string{"bug", "keep"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			dest := hostingtest.New()
			dest.Labels = labels(tt.existing...)

			s, err := New(tt.policy, dest, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.policy, s.Policy())

			got, err := s.Resolve(context.Background(), "o/r", labels(tt.existing...), labels(tt.candidates...))
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, bperrors.ErrConflict))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, labelNames(got))
			assert.Equal(t, tt.wantDeleted, dest.DeletedLabels)
		})
	}
}

func TestResolve_ConflictNamesLabels(t *testing.T) {
	t.Parallel()

	s, err := New(FailIfExisting, nil, nil)
	require.NoError(t, err)

	_, err = s.Resolve(context.Background(), "o/r", labels("b", "a", "z"), labels("a", "b", "c"))
	be := bperrors.AsBackupError(err)
	require.NotNil(t, be)
	assert.Contains(t, be.Why, "a, b")
	assert.NotContains(t, be.Why, "z")
}

func TestResolve_FailIfConflictComparesFields(t *testing.T) {
	t.Parallel()

	existing := []*entity.Label{
		{Name: "bug", Color: "ff0000", Description: "d"},
		{Name: "docs", Color: "00ff00"},
		{Name: "help", Color: "0000ff", Description: "old"},
	}

	tests := []struct {
		name       string
		candidates []*entity.Label
		want       []string
		wantNames  string
	}{
		{
			name: "identical label is dropped",
			candidates: []*entity.Label{
				{Name: "bug", Color: "ff0000", Description: "d"},
				{Name: "feature", Color: "cccccc"},
			},
			want: []string{"feature"},
		},
		{
			name: "color case and hash are ignored",
			candidates: []*entity.Label{
				{Name: "bug", Color: "#FF0000", Description: "d"},
			},
			want: []string{},
		},
		{
			name: "different color conflicts",
			candidates: []*entity.Label{
				{Name: "docs", Color: "123456"},
				{Name: "feature", Color: "cccccc"},
			},
			wantNames: "docs",
		},
		{
			name: "different description conflicts",
			candidates: []*entity.Label{
				{Name: "help", Color: "0000ff", Description: "new"},
				{Name: "bug", Color: "ff0000", Description: "d"},
			},
			wantNames: "help",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s, err := New(FailIfConflict, nil, nil)
			require.NoError(t, err)

			got, err := s.Resolve(context.Background(), "o/r", existing, tt.candidates)
			if tt.wantNames != "" {
				be := bperrors.AsBackupError(err)
				require.NotNil(t, be)
				assert.True(t, errors.Is(err, bperrors.ErrConflict))
				assert.Contains(t, be.Why, tt.wantNames)
				assert.NotContains(t, be.Why, "bug")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, labelNames(got))
		})
	}
}

func TestResolve_DeleteFailure(t *testing.T) {
	t.Parallel()

	dest := hostingtest.New()
	dest.Fail("DeleteLabel", errors.New("boom"))

	s, err := New(Overwrite, dest, nil)
	require.NoError(t, err)

	_, err = s.Resolve(context.Background(), "o/r", labels("bug"), labels("bug"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bug")
}

func TestNew_DeleterRequired(t *testing.T) {
	t.Parallel()

	_, err := New(DeleteAll, nil, nil)
	assert.True(t, errors.Is(err, bperrors.ErrCollaboratorMissing))

	_, err = New(Skip, nil, nil)
	assert.NoError(t, err)
}
