// Package concept defines concept identifiers and deduplicated, ordered
// concept sets — the currency passed between every query component.
package concept

import (
	"sort"
	"strings"
)

// ID identifies a single concept within a loaded terminology snapshot.
type ID uint64

// Well-known SNOMED CT identifiers used throughout the engine.
const (
	// IsA is the hierarchical relationship type (116680003 |Is a|).
	IsA ID = 116680003

	// FullySpecifiedName is the description type carrying the unambiguous
	// name including its semantic tag.
	FullySpecifiedName ID = 900000000000003001

	// Synonym is the description type for display terms.
	Synonym ID = 900000000000013009
)

// Set is a deduplicated collection of concept IDs. The zero value is an
// empty, usable set. Sets are not safe for concurrent mutation; the query
// engine treats them as values and never mutates a caller's set.
type Set struct {
	members map[ID]struct{}
}

// NewSet builds a set from the given IDs, collapsing duplicates.
func NewSet(ids ...ID) Set {
	s := Set{members: make(map[ID]struct{}, len(ids))}
	for _, id := range ids {
		s.members[id] = struct{}{}
	}
	return s
}

// Len returns the number of distinct members.
func (s Set) Len() int { return len(s.members) }

// IsEmpty reports whether the set has no members.
func (s Set) IsEmpty() bool { return len(s.members) == 0 }

// Contains reports membership of id.
func (s Set) Contains(id ID) bool {
	_, ok := s.members[id]
	return ok
}

// Add inserts id, allocating the backing map on first use.
func (s *Set) Add(id ID) {
	if s.members == nil {
		s.members = make(map[ID]struct{})
	}
	s.members[id] = struct{}{}
}

// AddAll inserts every member of other.
func (s *Set) AddAll(other Set) {
	for id := range other.members {
		s.Add(id)
	}
}

// Union returns a new set containing the members of both sets.
func (s Set) Union(other Set) Set {
	out := Set{members: make(map[ID]struct{}, len(s.members)+len(other.members))}
	for id := range s.members {
		out.members[id] = struct{}{}
	}
	for id := range other.members {
		out.members[id] = struct{}{}
	}
	return out
}

// Without returns a new set containing the members of s absent from other.
func (s Set) Without(other Set) Set {
	out := Set{members: make(map[ID]struct{}, len(s.members))}
	for id := range s.members {
		if !other.Contains(id) {
			out.members[id] = struct{}{}
		}
	}
	return out
}

// Intersect returns a new set containing the members present in both sets.
func (s Set) Intersect(other Set) Set {
	small, large := s, other
	if large.Len() < small.Len() {
		small, large = large, small
	}
	out := Set{members: make(map[ID]struct{}, small.Len())}
	for id := range small.members {
		if large.Contains(id) {
			out.members[id] = struct{}{}
		}
	}
	return out
}

// Equal reports whether both sets have exactly the same members.
func (s Set) Equal(other Set) bool {
	if s.Len() != other.Len() {
		return false
	}
	for id := range s.members {
		if !other.Contains(id) {
			return false
		}
	}
	return true
}

// Slice returns the members sorted ascending. The slice is a fresh copy.
func (s Set) Slice() []ID {
	out := make([]ID, 0, len(s.members))
	for id := range s.members {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// SemanticTag extracts the semantic tag (the trailing parenthesised word) of
// a fully specified name, e.g. "Myocardial infarction (disorder)" yields
// "disorder". Returns "" when the term carries no tag.
func SemanticTag(fsn string) string {
	fsn = strings.TrimSpace(fsn)
	if !strings.HasSuffix(fsn, ")") {
		return ""
	}
	open := strings.LastIndex(fsn, "(")
	if open < 0 {
		return ""
	}
	return strings.TrimSpace(fsn[open+1 : len(fsn)-1])
}
