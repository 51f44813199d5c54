// Package dice provides the randomness abstraction and six-sided dice pools
// used by the Risk battle resolver and territory shuffle.
package dice

import (
	"sort"
	"strconv"
	"strings"
)

// Sides is the face count of every die rolled by this package.
const Sides = 6

// Source is the randomness provider for dice rolls and shuffles.
//
// Implementations MUST be safe for concurrent use.
type Source interface {
	// Intn returns a non-negative random int in [0, n).
	//
	// Precondition: n > 0.
	Intn(n int) int
}

// Pool is a set of six-sided rolls ordered highest first.
//
// Invariant: every element is in [1, Sides]; elements are non-increasing.
type Pool []int

// String renders the pool as comma-separated values, e.g. "6,4,1".
func (p Pool) String() string {
	parts := make([]string, len(p))
	for i, v := range p {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}

// RollPool rolls count independent six-sided dice and sorts them descending.
//
// Precondition: count >= 0; src must be non-nil.
// Postcondition: len(result) == count and result satisfies the Pool invariant.
func RollPool(count int, src Source) Pool {
	rolled := make([]int, count)
	for i := range rolled {
		rolled[i] = src.Intn(Sides) + 1
	}
	sort.Sort(sort.Reverse(sort.IntSlice(rolled)))
	return Pool(rolled)
}
