// Package filter evaluates declarative category filters over catalog items.
//
// A filter is data, not code: one generic matcher interprets every Spec, so
// new categories come from configuration rather than new functions.
package filter

import (
	"fmt"
	"strings"

	"github.com/okian/kunstquiz/internal/domain/model"
)

// Mode selects how a Spec matches items.
type Mode string

const (
	// ModeAll matches every item.
	ModeAll Mode = "all"
	// ModeContains matches when any value of any field contains any listed value.
	ModeContains Mode = "contains"
	// ModeEquals matches when any value of any field equals any listed value.
	ModeEquals Mode = "equals"
	// ModeTop matches items whose grouping key ranks within the top Limit keys.
	ModeTop Mode = "top"
	// ModeLookup matches when the side lookup entry for the grouping key has a listed value.
	ModeLookup Mode = "lookup"
)

// LookupPrefix marks a field read from the side lookup table instead of the item.
const LookupPrefix = "lookup."

// Spec is a named, declarative category filter. Value comparison is case-insensitive.
type Spec struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Mode   Mode     `json:"mode"`
	Fields []string `json:"fields,omitempty"`
	Values []string `json:"values,omitempty"`
	Limit  int      `json:"limit,omitempty"`
}

// Lookup maps a grouping key to side attributes, e.g. artist -> gender, bio.
type Lookup map[string]map[string][]string

// Aux is the read-only context a filter may consult besides the item itself.
type Aux struct {
	Lookup Lookup
	// KeyRank is the zero-based rank of each grouping key by catalog-wide item count.
	KeyRank map[string]int
}

// Validate checks that the spec can be evaluated.
func (s Spec) Validate() error {
	if strings.TrimSpace(s.ID) == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidSpec)
	}
	switch s.Mode {
	case ModeAll:
		return nil
	case ModeTop:
		if s.Limit <= 0 {
			return fmt.Errorf("%w: %s: top needs a positive limit", ErrInvalidSpec, s.ID)
		}
		return nil
	case ModeContains, ModeEquals, ModeLookup:
		if len(s.Fields) == 0 || len(s.Values) == 0 {
			return fmt.Errorf("%w: %s: %s needs fields and values", ErrInvalidSpec, s.ID, s.Mode)
		}
		return nil
	default:
		return fmt.Errorf("%w: %s: unknown mode %q", ErrInvalidSpec, s.ID, s.Mode)
	}
}

// Matcher is a compiled Spec.
type Matcher struct {
	spec   Spec
	values []string // lower-cased
}

// Compile validates spec and prepares it for repeated matching.
func Compile(spec Spec) (*Matcher, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	m := &Matcher{spec: spec, values: make([]string, 0, len(spec.Values))}
	for _, v := range spec.Values {
		if v = strings.ToLower(strings.TrimSpace(v)); v != "" {
			m.values = append(m.values, v)
		}
	}
	return m, nil
}

// Spec returns the compiled spec.
func (m *Matcher) Spec() Spec { return m.spec }

// Match reports whether item belongs to the category.
func (m *Matcher) Match(item model.Item, aux Aux) bool {
	switch m.spec.Mode {
	case ModeAll:
		return true
	case ModeTop:
		rank, ok := aux.KeyRank[item.GroupKey]
		return ok && rank < m.spec.Limit
	case ModeLookup:
		return m.anyValue(lookupValues(aux.Lookup, item.GroupKey, m.spec.Fields[0]), strings.EqualFold)
	case ModeContains:
		return m.anyField(item, aux, func(have, want string) bool {
			return strings.Contains(strings.ToLower(have), want)
		})
	case ModeEquals:
		return m.anyField(item, aux, strings.EqualFold)
	}
	return false
}

func (m *Matcher) anyField(item model.Item, aux Aux, cmp func(have, want string) bool) bool {
	for _, field := range m.spec.Fields {
		var have []string
		if name, ok := strings.CutPrefix(field, LookupPrefix); ok {
			have = lookupValues(aux.Lookup, item.GroupKey, name)
		} else {
			have = item.Values(field)
		}
		if m.anyValue(have, cmp) {
			return true
		}
	}
	return false
}

func (m *Matcher) anyValue(have []string, cmp func(have, want string) bool) bool {
	for _, h := range have {
		for _, w := range m.values {
			if cmp(h, w) {
				return true
			}
		}
	}
	return false
}

func lookupValues(l Lookup, key, field string) []string {
	if l == nil || key == "" {
		return nil
	}
	entry, ok := l[key]
	if !ok {
		return nil
	}
	return entry[field]
}
