package optimizer

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// BatchResult is the outcome of one query of a batch.
type BatchResult struct {
	// Index is the position of the query in the batch.
	Index  int
	Result *Result
	Err    error
}

// OptimizeBatch optimizes independent queries concurrently, using at most
// workers goroutines (GOMAXPROCS when workers <= 0). Results are returned in
// query order. A query that fails only fails its own BatchResult; the
// returned error is non-nil only if ctx ends before every query was
// scheduled, in which case the unscheduled queries carry ctx's error.
func (o *Optimizer) OptimizeBatch(ctx context.Context, queries [][]float64, workers int) ([]BatchResult, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	results := make([]BatchResult, len(queries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, q := range queries {
		results[i].Index = i
		if err := gctx.Err(); err != nil {
			results[i].Err = err
			continue
		}
		g.Go(func() error {
			results[i].Result, results[i].Err = o.Optimize(q)
			return nil
		})
	}
	_ = g.Wait()
	return results, ctx.Err()
}
