package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/randalmurphal/repoback/internal/entity"
)

func TestContext_Mappings(t *testing.T) {
	t.Parallel()

	ec := NewContext()
	_, ok := ec.Mapping(entity.Issues, 1)
	assert.False(t, ok)

	ec.SetMapping(entity.Issues, 1, 1001)
	ec.SetMapping(entity.Milestones, 1, 101)

	got, ok := ec.MapNumber(entity.Issues, 1)
	assert.True(t, ok)
	assert.Equal(t, 1001, got)

	got, ok = ec.MapNumber(entity.Milestones, 1)
	assert.True(t, ok)
	assert.Equal(t, 101, got)

	m := ec.Mappings(entity.Issues)
	m[2] = 2000
	_, ok = ec.Mapping(entity.Issues, 2)
	assert.False(t, ok, "Mappings returns a copy")
}

func TestContext_Collections(t *testing.T) {
	t.Parallel()

	ec := NewContext()
	_, ok := ec.Collection(entity.Issues)
	assert.False(t, ok)

	ec.SetCollection(entity.Issues, []entity.Record{})
	records, ok := ec.Collection(entity.Issues)
	assert.True(t, ok, "an empty collection is still present")
	assert.Empty(t, records)
}

func TestContext_Modified(t *testing.T) {
	t.Parallel()

	ec := NewContext()
	assert.Empty(t, ec.TakeModified())

	ec.MarkModified(entity.Issues)
	ec.MarkModified(entity.Labels)
	ec.MarkModified(entity.Issues)

	assert.Equal(t, []string{entity.Issues, entity.Labels}, ec.TakeModified())
	assert.Empty(t, ec.TakeModified())
}
