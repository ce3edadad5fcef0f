package cost

import (
	"math"

	"github.com/cockroachdb/errors"
)

// ErrInvalidParams is returned when a machine parameter is negative or not a
// finite number.
var ErrInvalidParams = errors.New("invalid machine parameters")

// Params describes the machine the generated scan loop runs on.
type Params struct {
	// R is the cost of evaluating one predicate.
	R float64
	// L is the loop overhead between two predicates of the same term.
	L float64
	// F is the cost of fetching the column value a predicate reads.
	F float64
	// T is the fixed cost of a conditional branch.
	T float64
	// M is the branch misprediction penalty.
	M float64
	// A is the cost of writing an answer.
	A float64
}

// Validate checks that every parameter is a finite, non-negative number.
func (p Params) Validate() error {
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"r", p.R}, {"l", p.L}, {"f", p.F}, {"t", p.T}, {"m", p.M}, {"a", p.A},
	} {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) || f.v < 0 {
			return errors.Wrapf(ErrInvalidParams, "%s = %v", f.name, f.v)
		}
	}
	return nil
}

// Model turns the size and selectivity of a group of predicates into the
// elementary cost figures used by the optimizer. A Model is immutable and
// safe for concurrent use.
type Model struct {
	params Params
}

// NewModel creates a Model after validating the parameters.
func NewModel(params Params) (*Model, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Model{params: params}, nil
}

// Params returns the machine parameters of the model.
func (m *Model) Params() Params {
	return m.params
}

// FixedCost is the cost shared by every form of evaluating k predicates:
// k evaluations, k fetches and k-1 loop steps between them.
func (m *Model) FixedCost(k int) float64 {
	n := float64(k)
	return n*m.params.R + (n-1)*m.params.L + n*m.params.F
}

// NoBranchCost is the cost of folding k predicates into the answer counter
// without any branch.
func (m *Model) NoBranchCost(k int) float64 {
	return m.FixedCost(k) + m.params.A
}

// BranchingCost is the cost of testing k predicates with combined
// selectivity p inside a single if.
func (m *Model) BranchingCost(k int, p float64) float64 {
	return m.FixedCost(k) + m.params.T + m.params.M*Q(p) + m.params.A*(m.params.M+p)
}

// TermCost is what a term of k predicates with selectivity p costs when it
// is the left operand of a branching &&.
func (m *Model) TermCost(k int, p float64) float64 {
	return m.FixedCost(k) + m.params.M*Q(p)
}

// CombinedCost is the cost of left && right, where right only runs for the
// fraction leftP of rows that pass left.
func (m *Model) CombinedCost(leftTerms int, leftP float64, rightCost float64) float64 {
	return m.TermCost(leftTerms, leftP) + leftP*rightCost
}

// Q is the misprediction probability of a branch taken with probability p.
func Q(p float64) float64 {
	if p <= 0.5 {
		return p
	}
	return 1 - p
}
