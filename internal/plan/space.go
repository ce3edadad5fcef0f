package plan

import (
	"github.com/cockroachdb/errors"

	"github.com/yashagw/selopt/internal/cost"
)

// MaxSpacePredicates bounds the size of the arena a Space will allocate.
const MaxSpacePredicates = 30

// ErrInvalidSplit is returned by SetChildren when the children do not
// partition the parent.
var ErrInvalidSplit = errors.New("invalid split")

// Space holds one Node per non-empty subset of the predicates of a query.
// The node for mask m lives at slot m-1, and children are referenced by
// mask, so the whole search space is a single slice.
//
// A Space is owned by one optimization and is not safe for concurrent
// mutation.
type Space struct {
	model         *cost.Model
	selectivities []float64
	nodes         []Node
}

// NewSpace creates the search space for the given selectivities and fills
// it with leaves: every subset starts out as a single term.
func NewSpace(model *cost.Model, selectivities []float64) (*Space, error) {
	k := len(selectivities)
	if k == 0 || k > MaxSpacePredicates {
		return nil, errors.AssertionFailedf("search space for %d predicates", k)
	}
	s := &Space{
		model:         model,
		selectivities: append([]float64(nil), selectivities...),
		nodes:         make([]Node, int(FullMask(k))),
	}
	for m := Mask(1); m <= FullMask(k); m++ {
		s.nodes[m.Index()] = s.newLeaf(m)
	}
	return s, nil
}

func (s *Space) newLeaf(m Mask) Node {
	c, noBranch := s.LeafCost(m)
	return Node{
		Mask:        m,
		Terms:       m.Count(),
		Selectivity: s.SelectivityOf(m),
		Cost:        c,
		noBranch:    noBranch,
	}
}

// K returns the number of predicates.
func (s *Space) K() int {
	return len(s.selectivities)
}

// Len returns the number of nodes in the space.
func (s *Space) Len() int {
	return len(s.nodes)
}

// Model returns the cost model the space was built with.
func (s *Space) Model() *cost.Model {
	return s.model
}

// Selectivities returns a copy of the input selectivities.
func (s *Space) Selectivities() []float64 {
	return append([]float64(nil), s.selectivities...)
}

// Node returns the node for the given non-empty mask.
func (s *Space) Node(m Mask) *Node {
	return &s.nodes[m.Index()]
}

// Root returns the node covering all predicates.
func (s *Space) Root() *Node {
	return s.Node(FullMask(s.K()))
}

// SelectivityOf returns the product of the selectivities in m.
func (s *Space) SelectivityOf(m Mask) float64 {
	p := 1.0
	for _, i := range m.Indices() {
		p *= s.selectivities[i]
	}
	return p
}

// LeafCost returns the cost of evaluating m as a single term, and whether
// the no-branch form is the cheaper one.
func (s *Space) LeafCost(m Mask) (float64, bool) {
	k := m.Count()
	branching := s.model.BranchingCost(k, s.SelectivityOf(m))
	noBranch := s.model.NoBranchCost(k)
	if branching > noBranch {
		return noBranch, true
	}
	return branching, false
}

// CombinedCost returns the cost of left && right.
func (s *Space) CombinedCost(left, right *Node) float64 {
	return s.model.CombinedCost(left.Terms, left.Selectivity, right.Cost)
}

// SetChildren turns the node for m into left && right and recomputes its
// cost. The children must be proper, disjoint subsets covering m.
func (s *Space) SetChildren(m, left, right Mask) error {
	if left == 0 || right == 0 || left.Intersects(right) || left.Union(right) != m {
		return errors.Wrapf(ErrInvalidSplit, "%s && %s for %s", left, right, m)
	}
	n, l, r := s.Node(m), s.Node(left), s.Node(right)
	n.left, n.right = left, right
	n.Cost = s.CombinedCost(l, r)
	n.noBranch = r.noBranch
	return nil
}

// LeftmostLeaf returns the first term evaluated by the plan for m.
func (s *Space) LeftmostLeaf(m Mask) *Node {
	n := s.Node(m)
	for !n.IsLeaf() {
		n = s.Node(n.left)
	}
	return n
}

// Leaves returns the terms of the plan for m in evaluation order.
func (s *Space) Leaves(m Mask) []*Node {
	var leaves []*Node
	_ = s.Walk(m, func(n *Node, _ int) error {
		if n.IsLeaf() {
			leaves = append(leaves, n)
		}
		return nil
	})
	return leaves
}

// Walk visits the plan for m in pre-order, left child before right child.
// It stops at the first error returned by visit.
func (s *Space) Walk(m Mask, visit func(n *Node, depth int) error) error {
	return s.walk(m, 0, visit)
}

func (s *Space) walk(m Mask, depth int, visit func(*Node, int) error) error {
	n := s.Node(m)
	if err := visit(n, depth); err != nil {
		return err
	}
	if n.IsLeaf() {
		return nil
	}
	if err := s.walk(n.left, depth+1, visit); err != nil {
		return err
	}
	return s.walk(n.right, depth+1, visit)
}
