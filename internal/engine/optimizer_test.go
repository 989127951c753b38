package engine

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ired4706/binance-trading-bot/internal/model"
)

func newTestOptimizer() *Optimizer {
	return NewOptimizer(NewWorkerPool(4, zap.NewNop()), zap.NewNop())
}

func TestRangesFromMap(t *testing.T) {
	ranges, err := RangesFromMap(map[string][]float64{
		"takeProfit": {2, 4},
		"stopLoss":   {1, 2, 3},
	})
	require.NoError(t, err)

	// Axes come out in sorted name order so sweeps are reproducible.
	require.Len(t, ranges, 2)
	assert.Equal(t, "stopLoss", ranges[0].Name)
	assert.Equal(t, "takeProfit", ranges[1].Name)

	_, err = RangesFromMap(map[string][]float64{"stopLoss": {}})
	assert.ErrorContains(t, err, "is empty")

	_, err = RangesFromMap(nil)
	assert.ErrorContains(t, err, "no parameter ranges")
}

func TestGridSearch_FindsBestCombination(t *testing.T) {
	ranges := []ParamRange{
		{Name: "stopLoss", Values: []float64{1, 2, 3}},
		{Name: "takeProfit", Values: []float64{2, 4}},
	}

	run := func(ctx context.Context, params model.ParamSet) (model.PerformanceMetrics, error) {
		return model.PerformanceMetrics{NetSharpeRatio: params["stopLoss"] + params["takeProfit"]}, nil
	}

	result, err := newTestOptimizer().GridSearch(context.Background(), ranges, run)
	require.NoError(t, err)

	assert.Equal(t, 6, result.Combinations)
	assert.Len(t, result.AllResults, 6)
	assert.Zero(t, result.Failed)
	assert.Equal(t, model.ParamSet{"stopLoss": 3, "takeProfit": 4}, result.BestParams)
	assert.InDelta(t, 7.0, result.BestMetrics.NetSharpeRatio, 1e-9)

	// Best really is the maximum over everything reported back.
	for _, r := range result.AllResults {
		assert.LessOrEqual(t, r.Metrics.NetSharpeRatio, result.BestMetrics.NetSharpeRatio)
	}
}

func TestGridSearch_SkipsFailedCombinations(t *testing.T) {
	ranges := []ParamRange{
		{Name: "stopLoss", Values: []float64{1, 2, 3}},
		{Name: "takeProfit", Values: []float64{2, 4}},
	}

	run := func(ctx context.Context, params model.ParamSet) (model.PerformanceMetrics, error) {
		if params["stopLoss"] == 2 {
			return model.PerformanceMetrics{}, fmt.Errorf("insufficient historical data")
		}
		return model.PerformanceMetrics{NetSharpeRatio: params["stopLoss"] + params["takeProfit"]}, nil
	}

	result, err := newTestOptimizer().GridSearch(context.Background(), ranges, run)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Failed)
	assert.Len(t, result.AllResults, 4)
	assert.Equal(t, model.ParamSet{"stopLoss": 3, "takeProfit": 4}, result.BestParams)
}

func TestGridSearch_AllFailedIsError(t *testing.T) {
	ranges := []ParamRange{{Name: "stopLoss", Values: []float64{1, 2}}}

	run := func(ctx context.Context, params model.ParamSet) (model.PerformanceMetrics, error) {
		return model.PerformanceMetrics{}, fmt.Errorf("boom")
	}

	_, err := newTestOptimizer().GridSearch(context.Background(), ranges, run)
	assert.ErrorContains(t, err, "all 2 parameter combinations failed")
}

func TestGridSearch_NegativeSharpeStillSelected(t *testing.T) {
	ranges := []ParamRange{{Name: "stopLoss", Values: []float64{1, 2}}}

	run := func(ctx context.Context, params model.ParamSet) (model.PerformanceMetrics, error) {
		return model.PerformanceMetrics{NetSharpeRatio: -params["stopLoss"]}, nil
	}

	result, err := newTestOptimizer().GridSearch(context.Background(), ranges, run)
	require.NoError(t, err)

	// Even an all-negative sweep reports a best instead of nothing.
	require.NotNil(t, result.BestParams)
	assert.Equal(t, model.ParamSet{"stopLoss": 1}, result.BestParams)
}

func TestGridSearch_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ranges := []ParamRange{{Name: "stopLoss", Values: []float64{1, 2, 3}}}
	run := func(ctx context.Context, params model.ParamSet) (model.PerformanceMetrics, error) {
		return model.PerformanceMetrics{}, nil
	}

	_, err := newTestOptimizer().GridSearch(ctx, ranges, run)
	assert.ErrorIs(t, err, context.Canceled)
}
