package member

import "slices"

// Set is an immutable sorted set of ids.
//
// Every mutation returns a new Set; the receiver is never modified, so a Set
// can be shared freely between snapshots. The empty set is always
// represented by a nil slice so that structurally equal sets compare equal
// with reflect.DeepEqual.
type Set[T ~string] struct {
	items []T
}

// NewSet builds a set from the given ids, dropping duplicates.
func NewSet[T ~string](ids ...T) Set[T] {
	var s Set[T]
	for _, id := range ids {
		s = s.Add(id)
	}
	return s
}

// Add returns a set that also contains id.
func (s Set[T]) Add(id T) Set[T] {
	i, found := slices.BinarySearch(s.items, id)
	if found {
		return s
	}
	items := make([]T, 0, len(s.items)+1)
	items = append(items, s.items[:i]...)
	items = append(items, id)
	items = append(items, s.items[i:]...)
	return Set[T]{items: items}
}

// Remove returns a set without id and whether id was present.
func (s Set[T]) Remove(id T) (Set[T], bool) {
	i, found := slices.BinarySearch(s.items, id)
	if !found {
		return s, false
	}
	if len(s.items) == 1 {
		return Set[T]{}, true
	}
	items := make([]T, 0, len(s.items)-1)
	items = append(items, s.items[:i]...)
	items = append(items, s.items[i+1:]...)
	return Set[T]{items: items}, true
}

// Has reports whether id is in the set.
func (s Set[T]) Has(id T) bool {
	_, found := slices.BinarySearch(s.items, id)
	return found
}

// Len returns the number of ids.
func (s Set[T]) Len() int {
	return len(s.items)
}

// IsEmpty reports whether the set has no ids.
func (s Set[T]) IsEmpty() bool {
	return len(s.items) == 0
}

// Items returns the ids in ascending order. The slice is a copy.
func (s Set[T]) Items() []T {
	return slices.Clone(s.items)
}

// Strings returns the ids as plain strings in ascending order.
func (s Set[T]) Strings() []string {
	out := make([]string, len(s.items))
	for i, id := range s.items {
		out[i] = string(id)
	}
	return out
}
