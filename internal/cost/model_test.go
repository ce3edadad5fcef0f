package cost

import (
	"math"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testParams() Params {
	return Params{R: 1, L: 1, F: 4, T: 2, M: 16, A: 2}
}

func TestParamsValidate(t *testing.T) {
	require.NoError(t, testParams().Validate())
	require.NoError(t, Params{}.Validate())

	testCases := []struct {
		name   string
		params Params
	}{
		{"negative r", Params{R: -1}},
		{"negative a", Params{A: -0.5}},
		{"nan m", Params{M: math.NaN()}},
		{"inf t", Params{T: math.Inf(1)}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.params.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidParams))
		})
	}

	_, err := NewModel(Params{L: -3})
	assert.True(t, errors.Is(err, ErrInvalidParams))
}

func TestFixedCost(t *testing.T) {
	m, err := NewModel(testParams())
	require.NoError(t, err)

	// A single predicate pays no loop overhead.
	assert.Equal(t, 5.0, m.FixedCost(1))
	assert.Equal(t, m.Params().R+m.Params().F, m.FixedCost(1))
	assert.Equal(t, 11.0, m.FixedCost(2))
	assert.Equal(t, 17.0, m.FixedCost(3))
}

func TestNoBranchCost(t *testing.T) {
	m, err := NewModel(testParams())
	require.NoError(t, err)

	assert.Equal(t, 7.0, m.NoBranchCost(1))
	assert.Equal(t, 13.0, m.NoBranchCost(2))
}

func TestQ(t *testing.T) {
	testCases := []struct {
		p, expected float64
	}{
		{0, 0},
		{0.2, 0.2},
		{0.5, 0.5},
		{0.75, 0.25},
		{1, 0},
	}
	for _, tc := range testCases {
		assert.InDelta(t, tc.expected, Q(tc.p), 1e-12, "Q(%v)", tc.p)
	}
}

func TestBranchingCost(t *testing.T) {
	m, err := NewModel(testParams())
	require.NoError(t, err)

	// 5 + 2 + 16*0.5 + 2*(16+0.5)
	assert.InDelta(t, 48.0, m.BranchingCost(1, 0.5), 1e-9)
	// 11 + 2 + 16*0.1 + 2*(16+0.9)
	assert.InDelta(t, 48.4, m.BranchingCost(2, 0.9), 1e-9)
}

func TestCombinedCost(t *testing.T) {
	m, err := NewModel(testParams())
	require.NoError(t, err)

	assert.InDelta(t, 5+16*0.2+0.2*7, m.CombinedCost(1, 0.2, 7), 1e-9)
	assert.Equal(t, m.TermCost(2, 0.3)+0.3*10, m.CombinedCost(2, 0.3, 10))

	// A left term that never passes hides the right side entirely.
	assert.Equal(t, m.FixedCost(1), m.CombinedCost(1, 0, 1000))
}

func TestCostsNonNegative(t *testing.T) {
	m, err := NewModel(Params{})
	require.NoError(t, err)
	for k := 1; k <= 4; k++ {
		for _, p := range []float64{0, 0.3, 0.5, 1} {
			assert.GreaterOrEqual(t, m.BranchingCost(k, p), 0.0)
			assert.GreaterOrEqual(t, m.NoBranchCost(k), 0.0)
			assert.GreaterOrEqual(t, m.CombinedCost(k, p, 1), 0.0)
		}
	}
}
