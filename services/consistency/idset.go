package consistency

import (
	"sort"
	"strings"
)

// IDSet is a set of entity ids. Ids are opaque and compared case-sensitively;
// surrounding whitespace is trimmed and empty ids are dropped on insert.
type IDSet map[string]struct{}

// NewIDSet builds a set from ids, normalising each one
func NewIDSet(ids ...string) IDSet {
	s := make(IDSet, len(ids))
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

// NormalizeID is the comparison form of an id
func NormalizeID(id string) string {
	return strings.TrimSpace(id)
}

// Add inserts id unless it normalises to empty
func (s IDSet) Add(id string) {
	if id = NormalizeID(id); id != "" {
		s[id] = struct{}{}
	}
}

// Has reports whether id is in the set
func (s IDSet) Has(id string) bool {
	_, ok := s[NormalizeID(id)]
	return ok
}

// Len returns the number of ids
func (s IDSet) Len() int { return len(s) }

// Union returns s ∪ other
func (s IDSet) Union(other IDSet) IDSet {
	out := make(IDSet, len(s)+len(other))
	for id := range s {
		out[id] = struct{}{}
	}
	for id := range other {
		out[id] = struct{}{}
	}
	return out
}

// Intersect returns s ∩ other
func (s IDSet) Intersect(other IDSet) IDSet {
	out := make(IDSet)
	for id := range s {
		if _, ok := other[id]; ok {
			out[id] = struct{}{}
		}
	}
	return out
}

// Difference returns s − other
func (s IDSet) Difference(other IDSet) IDSet {
	out := make(IDSet)
	for id := range s {
		if _, ok := other[id]; !ok {
			out[id] = struct{}{}
		}
	}
	return out
}

// Equal reports whether both sets hold the same ids
func (s IDSet) Equal(other IDSet) bool {
	if len(s) != len(other) {
		return false
	}
	for id := range s {
		if _, ok := other[id]; !ok {
			return false
		}
	}
	return true
}

// Slice returns the ids sorted, so statements and results are deterministic
func (s IDSet) Slice() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
