// Package model contains domain models passed between layers.
package model

import "strings"

// DimensionGroup addresses the grouping key itself, e.g. "who painted this?".
const DimensionGroup = "group"

// Item is one quiz subject: a painting, a portfolio company, ...
type Item struct {
	ID         string              // stable identifier, unique within a catalog
	Subject    string              // what the player is shown (title, company name)
	GroupKey   string              // artist or company group; drives weighting and recency
	Attributes map[string][]string // country, genre, movement, year, ...
	Asset      string              // opaque asset reference, may be empty
}

// Values returns the trimmed, non-empty values of field. The group dimension
// yields the grouping key.
func (it Item) Values(field string) []string {
	if field == DimensionGroup {
		if k := strings.TrimSpace(it.GroupKey); k != "" {
			return []string{k}
		}
		return nil
	}
	raw := it.Attributes[field]
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// Value returns the item's answer for dimension: its first non-empty value.
func (it Item) Value(dimension string) string {
	if vs := it.Values(dimension); len(vs) > 0 {
		return vs[0]
	}
	return ""
}

// HasValue reports whether the item can be asked about dimension.
func (it Item) HasValue(dimension string) bool {
	return it.Value(dimension) != ""
}
