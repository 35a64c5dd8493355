package types

import (
	"iter"
	"maps"
	"slices"
)

// Set is an unordered collection of unique comparable values backed by a
// map[T]struct{}. The zero value is not usable; construct one with NewSet.
// Mutating methods operate in place.
type Set[T comparable] map[T]struct{}

// NewSet builds a Set seeded with the given values. Duplicates collapse
// into a single entry.
func NewSet[T comparable](values ...T) Set[T] {
	s := make(Set[T], len(values))
	s.Add(values...)
	return s
}

// Add inserts the given values into the set.
func (s Set[T]) Add(values ...T) {
	for _, v := range values {
		s[v] = struct{}{}
	}
}

// Delete removes the given values from the set. Missing values are ignored.
func (s Set[T]) Delete(values ...T) {
	for _, v := range values {
		delete(s, v)
	}
}

// Contains reports whether v is a member of the set.
func (s Set[T]) Contains(v T) bool {
	_, ok := s[v]
	return ok
}

// ToIter returns an iterator over the members of the set in no
// particular order.
func (s Set[T]) ToIter() iter.Seq[T] {
	return maps.Keys(s)
}

// ToSlice collects the members of the set into a slice. Order is
// unspecified.
func (s Set[T]) ToSlice() []T {
	return slices.Collect(s.ToIter())
}
