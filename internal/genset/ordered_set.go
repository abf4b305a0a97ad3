package genset

import (
	"golang.org/x/exp/constraints"
	"golang.org/x/exp/slices"
)

// OrderedSet is a fixed collection of distinct, sortable values, built once
// from NewOrderedSet and enumerated in sorted order thereafter. abdstats
// registers its counter names into one up front, so Snapshot's output key
// order is stable and a typo in a counter name can't silently register a
// new, never-reported counter.
type OrderedSet[T constraints.Ordered] struct {
	sorted []T
}

// NewOrderedSet builds an OrderedSet from vs, deduplicating and sorting.
func NewOrderedSet[T constraints.Ordered](vs ...T) OrderedSet[T] {
	seen := make(map[T]struct{}, len(vs))
	sorted := make([]T, 0, len(vs))
	for _, v := range vs {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		sorted = append(sorted, v)
	}
	slices.Sort(sorted)
	return OrderedSet[T]{sorted: sorted}
}

// AsSlice returns the set's members in sorted order.
func (s OrderedSet[T]) AsSlice() []T {
	return s.sorted
}
