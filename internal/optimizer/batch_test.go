package optimizer

import (
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptimizeBatch(t *testing.T) {
	o := newTestOptimizer(t, testParams)
	queries := [][]float64{
		{0.5, 0.2, 0.8},
		{},
		{0.7},
		{0.3, 1.5},
		{0.1, 0.2, 0.3, 0.4},
	}

	results, err := o.OptimizeBatch(context.Background(), queries, 2)
	require.NoError(t, err)
	require.Len(t, results, len(queries))

	for i, res := range results {
		assert.Equal(t, i, res.Index)
	}
	for _, i := range []int{1, 3} {
		assert.Nil(t, results[i].Result)
		assert.True(t, errors.Is(results[i].Err, ErrInvalidInput))
	}
	for _, i := range []int{0, 2, 4} {
		require.NoError(t, results[i].Err)
		single, err := o.Optimize(queries[i])
		require.NoError(t, err)
		assert.Equal(t, single.Cost(), results[i].Result.Cost())
		assert.Equal(t, queries[i], results[i].Result.Selectivities)
	}
}

func TestOptimizeBatchDefaultWorkers(t *testing.T) {
	o := newTestOptimizer(t, testParams)
	results, err := o.OptimizeBatch(context.Background(), [][]float64{{0.5}, {0.25, 0.75}}, 0)
	require.NoError(t, err)
	for _, res := range results {
		require.NoError(t, res.Err)
	}
}

func TestOptimizeBatchCanceled(t *testing.T) {
	o := newTestOptimizer(t, testParams)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := o.OptimizeBatch(ctx, [][]float64{{0.5}, {0.2}}, 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	for _, res := range results {
		assert.True(t, errors.Is(res.Err, context.Canceled))
		assert.Nil(t, res.Result)
	}
}
