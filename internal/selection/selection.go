// Package selection decides which records of a filterable entity type take part in a run.
//
// A Spec is "all", "none", or an explicit set of positive identifiers.
// Dependent entities (comments, pull request comments, reviews) are coupled
// to the parent numbers actually selected for the run, never to the parent's
// flag alone.
package selection

import (
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	bperrors "github.com/randalmurphal/repoback/internal/errors"
)

// Mode is the kind of selection.
type Mode int

const (
	ModeNone Mode = iota
	ModeAll
	ModeSet
)

// Spec is an immutable selection specification.
type Spec struct {
	mode Mode
	ids  []int
}

// All selects every record.
func All() Spec { return Spec{mode: ModeAll} }

// None selects nothing.
func None() Spec { return Spec{mode: ModeNone} }

// FromBool maps true to All and false to None.
func FromBool(enabled bool) Spec {
	if enabled {
		return All()
	}
	return None()
}

// Set selects the given identifiers. The result may be empty or hold
// non-positive values; Validate reports both.
func Set(ids ...int) Spec {
	sorted := slices.Clone(ids)
	slices.Sort(sorted)
	return Spec{mode: ModeSet, ids: slices.Compact(sorted)}
}

// Mode returns the selection kind.
func (s Spec) Mode() Mode { return s.mode }

// Enabled reports whether the spec selects anything.
func (s Spec) Enabled() bool {
	switch s.mode {
	case ModeAll:
		return true
	case ModeSet:
		return len(s.ids) > 0
	default:
		return false
	}
}

// IsAll reports whether the spec selects every record.
func (s Spec) IsAll() bool { return s.mode == ModeAll }

// IDs returns a copy of the explicit identifiers, sorted ascending.
func (s Spec) IDs() []int { return slices.Clone(s.ids) }

// Contains reports whether number is selected.
func (s Spec) Contains(number int) bool {
	switch s.mode {
	case ModeAll:
		return true
	case ModeSet:
		_, found := slices.BinarySearch(s.ids, number)
		return found
	default:
		return false
	}
}

// Validate rejects explicit sets that are empty or hold non-positive identifiers.
func (s Spec) Validate(entityName string) error {
	if s.mode != ModeSet {
		return nil
	}
	if len(s.ids) == 0 {
		return bperrors.ConfigInvalid(entityName,
			"explicit selection is empty; use false to disable the entity or list at least one number")
	}
	if s.ids[0] <= 0 {
		return bperrors.ConfigInvalid(entityName,
			fmt.Sprintf("selection numbers must be positive, got %d", s.ids[0]))
	}
	return nil
}

// String renders the spec in the same syntax Parse accepts.
func (s Spec) String() string {
	switch s.mode {
	case ModeAll:
		return "true"
	case ModeNone:
		return "false"
	}
	return formatRanges(s.ids)
}

// Parse reads a selection from configuration text.
//
// Accepted forms: booleans (true/false/yes/no/on/off/1/0), comma or space
// separated numbers, ranges like "1-5 10 15-20", optionally wrapped in [].
// "1" and "0" are read as booleans, matching the legacy environment variables.
func Parse(entityName, raw string) (Spec, error) {
	value := strings.TrimSpace(raw)
	switch strings.ToLower(value) {
	case "true", "yes", "on", "1", "all":
		return All(), nil
	case "false", "no", "off", "0", "none":
		return None(), nil
	}

	value = strings.TrimSuffix(strings.TrimPrefix(value, "["), "]")
	fields := strings.FieldsFunc(value, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
	if len(fields) == 0 {
		return Spec{}, bperrors.ConfigInvalid(entityName,
			"explicit selection is empty; use false to disable the entity or list at least one number")
	}

	var ids []int
	for _, field := range fields {
		parsed, err := parseField(field)
		if err != nil {
			return Spec{}, bperrors.ConfigInvalid(entityName, err.Error())
		}
		ids = append(ids, parsed...)
	}

	spec := Set(ids...)
	if err := spec.Validate(entityName); err != nil {
		return Spec{}, err
	}
	return spec, nil
}

// maxRangeSpan caps a single range so a typo cannot allocate millions of ids.
const maxRangeSpan = 100000

func parseField(field string) ([]int, error) {
	lo, hi, isRange := strings.Cut(field, "-")
	if !isRange || lo == "" {
		n, err := strconv.Atoi(field)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q", field)
		}
		if n <= 0 {
			return nil, fmt.Errorf("selection numbers must be positive, got %d", n)
		}
		return []int{n}, nil
	}

	start, err := strconv.Atoi(lo)
	if err != nil {
		return nil, fmt.Errorf("invalid range start %q", field)
	}
	end, err := strconv.Atoi(hi)
	if err != nil {
		return nil, fmt.Errorf("invalid range end %q", field)
	}
	if start <= 0 || end <= 0 {
		return nil, fmt.Errorf("range %q must use positive numbers", field)
	}
	if end < start {
		return nil, fmt.Errorf("range %q ends before it starts", field)
	}
	if end-start >= maxRangeSpan {
		return nil, fmt.Errorf("range %q spans more than %d numbers", field, maxRangeSpan)
	}

	ids := make([]int, 0, end-start+1)
	for n := start; n <= end; n++ {
		ids = append(ids, n)
	}
	return ids, nil
}

// formatRanges collapses sorted ids into "1-3 5" form.
func formatRanges(ids []int) string {
	var parts []string
	for i := 0; i < len(ids); {
		j := i
		for j+1 < len(ids) && ids[j+1] == ids[j]+1 {
			j++
		}
		if j > i {
			parts = append(parts, fmt.Sprintf("%d-%d", ids[i], ids[j]))
		} else {
			parts = append(parts, strconv.Itoa(ids[i]))
		}
		i = j + 1
	}
	return strings.Join(parts, " ")
}

// UnmarshalYAML accepts a bool, a list of numbers, or a selection string.
// An empty list decodes to an empty set, which Validate rejects.
func (s *Spec) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.SequenceNode:
		var ids []int
		if err := node.Decode(&ids); err != nil {
			return fmt.Errorf("decode selection list: %w", err)
		}
		*s = Set(ids...)
		return nil
	case yaml.ScalarNode:
		if node.Tag == "!!bool" {
			var b bool
			if err := node.Decode(&b); err != nil {
				return fmt.Errorf("decode selection flag: %w", err)
			}
			*s = FromBool(b)
			return nil
		}
		if node.Tag == "!!int" {
			var n int
			if err := node.Decode(&n); err != nil {
				return fmt.Errorf("decode selection number: %w", err)
			}
			*s = Set(n)
			return nil
		}
		parsed, err := Parse("selection", node.Value)
		if err != nil {
			return err
		}
		*s = parsed
		return nil
	default:
		return fmt.Errorf("selection must be a bool, a list or a string (line %d)", node.Line)
	}
}

// MarshalYAML writes all/none as a bool and sets as a list.
func (s Spec) MarshalYAML() (any, error) {
	switch s.mode {
	case ModeAll:
		return true, nil
	case ModeSet:
		return s.IDs(), nil
	default:
		return false, nil
	}
}

// Filter keeps the items whose number is selected. For explicit sets it
// logs requested numbers that are not present in items; that is not an error.
func Filter[T any](spec Spec, entityName string, items []T, number func(T) int, logger *slog.Logger) []T {
	switch spec.mode {
	case ModeAll:
		return items
	case ModeNone:
		return nil
	}

	kept := make([]T, 0, len(spec.ids))
	seen := make(map[int]bool, len(spec.ids))
	for _, item := range items {
		n := number(item)
		if spec.Contains(n) {
			kept = append(kept, item)
			seen[n] = true
		}
	}

	var missing []int
	for _, id := range spec.ids {
		if !seen[id] {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		if logger == nil {
			logger = slog.Default()
		}
		logger.Warn("selected numbers not found",
			"entity", entityName,
			"missing", formatRanges(missing),
			"found", len(kept))
	}
	return kept
}

// NumberSet is the set of parent numbers actually selected in a run.
type NumberSet map[int]struct{}

// Numbers collects the numbers of items into a set.
func Numbers[T any](items []T, number func(T) int) NumberSet {
	set := make(NumberSet, len(items))
	for _, item := range items {
		set[number(item)] = struct{}{}
	}
	return set
}

// Has reports whether n is in the set.
func (s NumberSet) Has(n int) bool {
	_, ok := s[n]
	return ok
}

// Coupled keeps dependent items whose parent number is in parents.
// Nothing is kept when the dependent entity is disabled.
func Coupled[T any](enabled bool, parents NumberSet, items []T, parentOf func(T) int) []T {
	if !enabled {
		return nil
	}
	kept := make([]T, 0, len(items))
	for _, item := range items {
		if parents.Has(parentOf(item)) {
			kept = append(kept, item)
		}
	}
	return kept
}
