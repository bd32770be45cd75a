package strategy

import "github.com/randalmurphal/repoback/internal/entity"

// Context is the per-run execution state shared by every strategy call.
// The orchestrator creates one per run and discards it afterwards.
type Context struct {
	mappings    map[string]map[int64]int64
	collections map[string][]entity.Record
	modified    []string
}

// NewContext returns an empty execution context.
func NewContext() *Context {
	return &Context{
		mappings:    make(map[string]map[int64]int64),
		collections: make(map[string][]entity.Record),
	}
}

// SetMapping records that the source identifier oldID became newID at the
// destination for entity type name.
func (c *Context) SetMapping(name string, oldID, newID int64) {
	m, ok := c.mappings[name]
	if !ok {
		m = make(map[int64]int64)
		c.mappings[name] = m
	}
	m[oldID] = newID
}

// Mapping returns the destination identifier for old.
func (c *Context) Mapping(name string, old int64) (int64, bool) {
	v, ok := c.mappings[name][old]
	return v, ok
}

// MapNumber is Mapping for int-sized numbers (issues, milestones, pull requests).
func (c *Context) MapNumber(name string, old int) (int, bool) {
	v, ok := c.Mapping(name, int64(old))
	return int(v), ok
}

// Mappings returns a copy of every mapping recorded for name.
func (c *Context) Mappings(name string) map[int64]int64 {
	out := make(map[int64]int64, len(c.mappings[name]))
	for k, v := range c.mappings[name] {
		out[k] = v
	}
	return out
}

// SetCollection stores the materialized records of an entity type.
func (c *Context) SetCollection(name string, records []entity.Record) {
	c.collections[name] = records
}

// Collection returns the records stored for name and whether any were set.
func (c *Context) Collection(name string) ([]entity.Record, bool) {
	records, ok := c.collections[name]
	return records, ok
}

// MarkModified declares that the collection of name was changed after it
// was persisted. Duplicate marks are collapsed.
func (c *Context) MarkModified(name string) {
	for _, m := range c.modified {
		if m == name {
			return
		}
	}
	c.modified = append(c.modified, name)
}

// TakeModified returns the marked names in mark order and clears them.
func (c *Context) TakeModified() []string {
	out := c.modified
	c.modified = nil
	return out
}
