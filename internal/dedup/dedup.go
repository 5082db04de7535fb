// Package dedup tracks which canonical periods have already contributed a
// value during one aggregation run.
//
// Periodic data keys on the YYYY-MM month alone. Interval data keys on the
// (quantity label, calendar day) pair, so the same day may be accepted once
// for consumption and once for feed-in.
package dedup

import "github.com/ginjaninja78/meteragg/internal/types"

// Set is an insertion-ordered set. The zero value is not usable; call New.
type Set[K comparable] struct {
	seen  map[K]struct{}
	order []K
}

// New returns an empty Set.
func New[K comparable]() *Set[K] {
	return &Set[K]{seen: make(map[K]struct{})}
}

// Add inserts k and reports whether it was new. A key already present is
// left where it was first inserted.
func (s *Set[K]) Add(k K) bool {
	if _, ok := s.seen[k]; ok {
		return false
	}
	s.seen[k] = struct{}{}
	s.order = append(s.order, k)
	return true
}

// Len returns the number of distinct keys.
func (s *Set[K]) Len() int {
	return len(s.order)
}

// Keys returns the keys in first-insertion order. The slice is a copy.
func (s *Set[K]) Keys() []K {
	out := make([]K, len(s.order))
	copy(out, s.order)
	return out
}

// DayKey is the canonical period of interval data.
type DayKey struct {
	Label types.Quantity
	Day   string
}

// Day builds the DayKey of an emitted day bucket.
func Day(label types.Quantity, b types.DayBucket) DayKey {
	return DayKey{Label: label, Day: types.DayKey(b.Day)}
}
