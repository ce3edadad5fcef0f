package plan

import (
	"math/bits"
	"strconv"
)

// MaxPredicates is the number of predicates a Mask can address.
const MaxPredicates = 64

// Mask identifies a subset of the predicates of a query: bit i is set when
// predicate i+1 belongs to the subset. The zero Mask is the empty set and
// never names a plan.
type Mask uint64

// FullMask returns the mask holding all k predicates.
func FullMask(k int) Mask {
	if k >= MaxPredicates {
		return ^Mask(0)
	}
	return Mask(1)<<uint(k) - 1
}

// Count returns the number of predicates in the mask.
func (m Mask) Count() int {
	return bits.OnesCount64(uint64(m))
}

// Intersects reports whether the two masks share a predicate.
func (m Mask) Intersects(other Mask) bool {
	return m&other != 0
}

// Union returns the mask holding the predicates of both masks.
func (m Mask) Union(other Mask) Mask {
	return m | other
}

// UnionIndex returns the arena slot of the union of both masks.
func (m Mask) UnionIndex(other Mask) int {
	return m.Union(other).Index()
}

// Index returns the arena slot of the mask.
func (m Mask) Index() int {
	return int(m) - 1
}

// Indices returns the 0-based positions of the predicates in the mask, in
// ascending order.
func (m Mask) Indices() []int {
	return m.positions(0)
}

// Atoms returns the 1-based predicate numbers in the mask, in ascending order.
func (m Mask) Atoms() []int {
	return m.positions(1)
}

func (m Mask) positions(start int) []int {
	out := make([]int, 0, m.Count())
	for rest := uint64(m); rest != 0; rest &= rest - 1 {
		out = append(out, bits.TrailingZeros64(rest)+start)
	}
	return out
}

// String formats the mask as a binary number.
func (m Mask) String() string {
	return strconv.FormatUint(uint64(m), 2)
}
