package labels

import (
	"maps"
	"slices"
)

// Tally counts emitted boxes per class id.
type Tally map[int]int

// Add increments the count for id by n.
func (t Tally) Add(id, n int) {
	t[id] += n
}

// Merge adds every count of other into t.
func (t Tally) Merge(other Tally) {
	for id, n := range other {
		t[id] += n
	}
}

// Total returns the sum of all counts.
func (t Tally) Total() int {
	total := 0
	for _, n := range t {
		total += n
	}
	return total
}

// Keys returns the class ids in ascending order.
func (t Tally) Keys() []int {
	return slices.Sorted(maps.Keys(t))
}
