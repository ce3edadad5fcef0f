// Package optimizer chooses the evaluation order and conjunction form of a
// set of independent selection predicates.
//
// The search follows the dynamic program of Ross, "Selection Conditions in
// Main Memory" (algorithm 4.11): every subset of predicates starts out as a
// single &-term, then subsets are revisited by increasing size and replaced
// by left && right whenever that split is strictly cheaper.
package optimizer

import (
	"log/slog"
	"math"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/yashagw/selopt/internal/cost"
	"github.com/yashagw/selopt/internal/plan"
)

// DefaultMaxPredicates is the largest query optimized unless overridden with
// WithMaxPredicates. The search space holds 2^k nodes.
const DefaultMaxPredicates = 20

// ErrInvalidInput is returned for queries that cannot be optimized: no
// predicates, too many predicates, or a selectivity outside [0, 1].
var ErrInvalidInput = errors.New("invalid input")

// Recorder receives the outcome of every optimization.
type Recorder interface {
	ObserveRun(stats Stats, cost float64)
	ObserveRejected()
}

// Stats describes the work done by one optimization.
type Stats struct {
	// Predicates is the number of predicates in the query.
	Predicates int
	// Subsets is the number of plans in the search space.
	Subsets int
	// Splits is the number of left && right candidates enumerated.
	Splits int
	// PrunedC and PrunedD count the candidates skipped by each metric.
	PrunedC int
	PrunedD int
	// Replaced counts the candidates that beat the plan they were compared to.
	Replaced int
	Elapsed  time.Duration
}

// Pruned returns the number of candidates skipped without costing them.
func (s Stats) Pruned() int {
	return s.PrunedC + s.PrunedD
}

// Result is the outcome of optimizing one query.
type Result struct {
	Selectivities []float64
	Space         *plan.Space
	Root          *plan.Node
	Stats         Stats
}

// Cost returns the expected per-row cost of the chosen plan.
func (r *Result) Cost() float64 {
	return r.Root.Cost
}

// Option configures an Optimizer.
type Option func(*Optimizer)

// WithLogger sets the logger used for per-query diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Optimizer) {
		o.logger = logger
	}
}

// WithRecorder reports every optimization to r.
func WithRecorder(r Recorder) Option {
	return func(o *Optimizer) {
		o.recorder = r
	}
}

// WithoutPruning disables the dominance checks, so that every split is
// costed.
func WithoutPruning() Option {
	return func(o *Optimizer) {
		o.prune = false
	}
}

// WithMaxPredicates caps the number of predicates accepted per query.
func WithMaxPredicates(n int) Option {
	return func(o *Optimizer) {
		o.maxPredicates = min(max(n, 1), plan.MaxSpacePredicates)
	}
}

// Optimizer optimizes queries against one cost model. It holds no per-query
// state, so a single Optimizer may serve concurrent callers.
type Optimizer struct {
	model         *cost.Model
	logger        *slog.Logger
	recorder      Recorder
	prune         bool
	maxPredicates int
}

// New creates an Optimizer for the given cost model.
func New(model *cost.Model, opts ...Option) *Optimizer {
	o := &Optimizer{
		model:         model,
		logger:        slog.Default(),
		prune:         true,
		maxPredicates: DefaultMaxPredicates,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Model returns the cost model of the optimizer.
func (o *Optimizer) Model() *cost.Model {
	return o.model
}

// Validate checks that the selectivities describe a query the optimizer can
// handle.
func (o *Optimizer) Validate(selectivities []float64) error {
	k := len(selectivities)
	switch {
	case k == 0:
		return errors.Wrap(ErrInvalidInput, "query has no predicates")
	case k > plan.MaxPredicates:
		return errors.Wrapf(ErrInvalidInput, "%d predicates exceed the %d-bit subset mask", k, plan.MaxPredicates)
	case k > o.maxPredicates:
		err := errors.Wrapf(ErrInvalidInput, "%d predicates exceed the limit of %d", k, o.maxPredicates)
		if k > plan.MaxSpacePredicates {
			return errors.WithHintf(err,
				"The search space grows as 2^k and max_predicates cannot exceed %d; split the query.",
				plan.MaxSpacePredicates)
		}
		return errors.WithHintf(err,
			"The search space grows as 2^k; raise max_predicates (at most %d) to optimize larger queries.",
			plan.MaxSpacePredicates)
	}
	for i, s := range selectivities {
		if math.IsNaN(s) || s < 0 || s > 1 {
			return errors.Wrapf(ErrInvalidInput, "selectivity of predicate %d is %v, not in [0, 1]", i+1, s)
		}
	}
	return nil
}

// Optimize finds the cheapest plan for the conjunction of predicates with
// the given selectivities.
func (o *Optimizer) Optimize(selectivities []float64) (*Result, error) {
	if err := o.Validate(selectivities); err != nil {
		if o.recorder != nil {
			o.recorder.ObserveRejected()
		}
		return nil, err
	}

	start := time.Now()
	space, err := plan.NewSpace(o.model, selectivities)
	if err != nil {
		return nil, err
	}
	stats := o.search(space)
	stats.Elapsed = time.Since(start)

	res := &Result{
		Selectivities: space.Selectivities(),
		Space:         space,
		Root:          space.Root(),
		Stats:         stats,
	}
	if o.recorder != nil {
		o.recorder.ObserveRun(stats, res.Cost())
	}
	o.logger.Debug("optimized query",
		"predicates", stats.Predicates,
		"cost", res.Cost(),
		"no_branch", res.Root.NoBranch(),
		"splits", stats.Splits,
		"pruned", stats.Pruned(),
		"elapsed", stats.Elapsed,
	)
	return res, nil
}

// search improves every subset of space, smallest subsets first, so that
// the children of a candidate split always hold their final plans.
func (o *Optimizer) search(space *plan.Space) Stats {
	k := space.K()
	full := plan.FullMask(k)
	stats := Stats{Predicates: k, Subsets: space.Len()}

	for size := 2; size <= k; size++ {
		for s := plan.FullMask(size); s <= full; s = nextOfSameSize(s) {
			o.improve(space, s, &stats)
		}
	}
	return stats
}

// improve considers every split of s into left && right.
func (o *Optimizer) improve(space *plan.Space, s plan.Mask, stats *Stats) {
	node := space.Node(s)
	for s1 := (s - 1) & s; s1 != 0; s1 = (s1 - 1) & s {
		left, right := space.Node(s1), space.Node(s^s1)
		stats.Splits++

		if o.prune && !right.IsLeaf() {
			first := space.Node(right.Left())
			if first.DominatesByC(o.model, left) {
				stats.PrunedC++
				continue
			}
			if first.DominatesByD(o.model, left) {
				stats.PrunedD++
				continue
			}
		}

		if space.CombinedCost(left, right) < node.Cost {
			if err := space.SetChildren(s, left.Mask, right.Mask); err != nil {
				panic(errors.NewAssertionErrorWithWrappedErrf(err, "splitting %s", s))
			}
			stats.Replaced++
		}
	}
}

// nextOfSameSize returns the next larger mask with the same number of bits.
func nextOfSameSize(m plan.Mask) plan.Mask {
	low := m & -m
	ripple := m + low
	return ripple | ((m^ripple)>>2)/low
}
