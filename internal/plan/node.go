package plan

import (
	"github.com/yashagw/selopt/internal/cost"
)

// Node is the best known plan for one subset of predicates.
//
// A leaf evaluates all of its predicates as a single term joined with the
// non-branching &, either inside an if or folded into the answer counter.
// An internal node evaluates its left child as a term of a branching &&
// and runs its right child only for the rows that pass.
type Node struct {
	// Mask is the subset of predicates covered by the node.
	Mask Mask
	// Terms is the number of predicates in Mask.
	Terms int
	// Selectivity is the product of the selectivities in Mask.
	Selectivity float64
	// Cost is the expected per-row cost of the node.
	Cost float64

	noBranch    bool
	left, right Mask
}

// IsLeaf reports whether the node has no children.
func (n *Node) IsLeaf() bool {
	return n.left == 0
}

// Left returns the mask of the left child, or 0 for a leaf.
func (n *Node) Left() Mask {
	return n.left
}

// Right returns the mask of the right child, or 0 for a leaf.
func (n *Node) Right() Mask {
	return n.right
}

// NoBranch reports whether the last term of the plan is folded into the
// answer counter instead of tested by a branch.
func (n *Node) NoBranch() bool {
	return n.noBranch
}

// Intersects reports whether the two nodes cover a common predicate.
func (n *Node) Intersects(other *Node) bool {
	return n.Mask.Intersects(other.Mask)
}

// UnionMask returns the mask covering both nodes.
func (n *Node) UnionMask(other *Node) Mask {
	return n.Mask.Union(other.Mask)
}

// UnionIndex returns the arena slot of the mask covering both nodes.
func (n *Node) UnionIndex(other *Node) int {
	return n.Mask.UnionIndex(other.Mask)
}

// Atoms returns the 1-based predicate numbers covered by the node.
func (n *Node) Atoms() []int {
	return n.Mask.Atoms()
}

// FixedCost is the cost shared by every form of evaluating the node's
// predicates as one term.
func (n *Node) FixedCost(m *cost.Model) float64 {
	return m.FixedCost(n.Terms)
}

// termCost is the cost of the node as the left operand of a branching &&.
func (n *Node) termCost(m *cost.Model) float64 {
	return m.TermCost(n.Terms, n.Selectivity)
}

// DominatesByC reports whether n, placed first, is a better opening term
// than other: it passes no more rows and its rank (p-1)/cost is lower.
// When n is the first term of the plan on the right of other && ..., the
// plan that opens with n instead is never more expensive.
func (n *Node) DominatesByC(m *cost.Model, other *Node) bool {
	if n.Selectivity > other.Selectivity {
		return false
	}
	// (p_n - 1)/c_n < (p_o - 1)/c_o without dividing by a cost of zero.
	return n.termCost(m)*(1-other.Selectivity) < other.termCost(m)*(1-n.Selectivity)
}

// DominatesByD reports whether n is at least as selective as other and
// cheaper to evaluate, for selective terms (p <= 1/2) whose misprediction
// cost grows with p.
func (n *Node) DominatesByD(m *cost.Model, other *Node) bool {
	if other.Selectivity > 0.5 || n.Selectivity > other.Selectivity {
		return false
	}
	return n.FixedCost(m) < other.FixedCost(m)
}
