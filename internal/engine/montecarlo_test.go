package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonteCarlo_EmptyReturns(t *testing.T) {
	_, err := MonteCarlo(nil, 100, 1)
	assert.ErrorContains(t, err, "no trades to resample")
}

func TestMonteCarlo_DegenerateDistribution(t *testing.T) {
	// Identical returns collapse every bootstrap path onto one point.
	result, err := MonteCarlo([]float64{2, 2, 2, 2, 2}, 500, 1)
	require.NoError(t, err)

	assert.Equal(t, 500, result.Simulations)
	assert.Equal(t, 5, result.TradesPerSim)
	assert.InDelta(t, 10.0, result.WorstCase, 1e-9)
	assert.InDelta(t, 10.0, result.BestCase, 1e-9)
	assert.InDelta(t, 10.0, result.ExpectedValue, 1e-9)
	assert.InDelta(t, 10.0, result.P5, 1e-9)
	assert.InDelta(t, 10.0, result.P50, 1e-9)
	assert.InDelta(t, 10.0, result.P95, 1e-9)
}

func TestMonteCarlo_FixedSeedIsDeterministic(t *testing.T) {
	returns := []float64{3, -1, 2, -2, 5, 1}

	a, err := MonteCarlo(returns, 200, 42)
	require.NoError(t, err)
	b, err := MonteCarlo(returns, 200, 42)
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestMonteCarlo_PercentileLadderIsMonotonic(t *testing.T) {
	returns := []float64{3, -1, 2, -2, 5, 1, -4, 6}

	result, err := MonteCarlo(returns, 2000, 7)
	require.NoError(t, err)

	assert.LessOrEqual(t, result.WorstCase, result.P5)
	assert.LessOrEqual(t, result.P5, result.P10)
	assert.LessOrEqual(t, result.P10, result.P25)
	assert.LessOrEqual(t, result.P25, result.P50)
	assert.LessOrEqual(t, result.P50, result.P75)
	assert.LessOrEqual(t, result.P75, result.P90)
	assert.LessOrEqual(t, result.P90, result.P95)
	assert.LessOrEqual(t, result.P95, result.BestCase)
}

func TestMonteCarlo_ExpectedValueConverges(t *testing.T) {
	// Symmetric returns: the bootstrap mean must hover near zero.
	result, err := MonteCarlo([]float64{1, -1}, 5000, 42)
	require.NoError(t, err)

	assert.InDelta(t, 0.0, result.ExpectedValue, 0.2)
}

func TestMonteCarlo_DefaultSimulationCount(t *testing.T) {
	result, err := MonteCarlo([]float64{1, 2}, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, DefaultSimulations, result.Simulations)
}
