package entity

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDependenciesReferenceKnownEntities(t *testing.T) {
	t.Parallel()

	require.Len(t, Dependencies, len(All))
	for name, deps := range Dependencies {
		assert.True(t, IsKnown(name), name)
		for _, dep := range deps {
			assert.True(t, IsKnown(dep), "%s depends on unknown %s", name, dep)
		}
	}
	assert.False(t, IsKnown("wiki"))
}

func TestRecordConversion(t *testing.T) {
	t.Parallel()

	issues := []*Issue{{Number: 1}, {Number: 2}}
	records := ToRecords(issues)
	require.Len(t, records, 2)
	assert.Equal(t, Issues, records[0].Kind())

	records = append(records, &Label{Name: "bug"})
	back := FromRecords[*Issue](records)
	require.Len(t, back, 2)
	assert.Same(t, issues[1], back[1])

	labels := FromRecords[*Label](records)
	require.Len(t, labels, 1)
	assert.Equal(t, "bug", labels[0].Name)
}

func TestWithOriginFooter(t *testing.T) {
	t.Parallel()

	created := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)
	body := WithOriginFooter("Body text", "octocat", created)
	assert.True(t, strings.HasPrefix(body, "Body text"))
	assert.Contains(t, body, "@octocat")
	assert.Contains(t, body, "2024-03-01 12:30:00 UTC")

	assert.Equal(t, body, WithOriginFooter(body, "someone-else", created), "footer is not applied twice")

	anon := WithOriginFooter("", "", time.Time{})
	assert.Contains(t, anon, "@ghost")
	assert.Contains(t, anon, "an unknown date")
}
