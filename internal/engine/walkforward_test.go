package engine

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ired4706/binance-trading-bot/internal/model"
)

var wfBase = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func dailyCandles(days int) []model.Candle {
	candles := make([]model.Candle, days)
	for i := range candles {
		price := decimal.NewFromInt(int64(100 + i))
		candles[i] = model.Candle{
			Symbol:    "BTCUSDT",
			Interval:  "1d",
			OpenTime:  wfBase.Add(time.Duration(i) * 24 * time.Hour),
			CloseTime: wfBase.Add(time.Duration(i+1)*24*time.Hour - time.Millisecond),
			Open:      price,
			High:      price,
			Low:       price,
			Close:     price,
			Volume:    decimal.NewFromInt(1),
		}
	}
	return candles
}

// wfRunner scores a slice by the day offset of its first candle so each
// out-of-sample window produces a distinct return.
func wfRunner(ctx context.Context, candles []model.Candle, params model.ParamSet) (model.PerformanceMetrics, error) {
	offset := candles[0].OpenTime.Sub(wfBase).Hours() / 24
	return model.PerformanceMetrics{
		NetSharpeRatio: params["x"],
		NetReturnPct:   offset,
	}, nil
}

func TestWalkForward_PeriodBoundaries(t *testing.T) {
	ranges := []ParamRange{{Name: "x", Values: []float64{1, 2}}}

	result, err := newTestOptimizer().WalkForward(context.Background(), dailyCandles(30), 10, 5, ranges, wfRunner)
	require.NoError(t, err)

	// 30 days with a 10-day window stepping by 5 yields four full periods.
	require.Len(t, result.Periods, 4)
	assert.Zero(t, result.SkippedPeriods)

	for i, p := range result.Periods {
		wantStart := wfBase.Add(time.Duration(i*5) * 24 * time.Hour)
		assert.Equal(t, wantStart, p.InSampleStart)
		assert.Equal(t, wantStart.Add(10*24*time.Hour), p.InSampleEnd)
		// Out-of-sample begins exactly where in-sample ends.
		assert.Equal(t, p.InSampleEnd.Add(5*24*time.Hour), p.OutSampleEnd)
		// Grid search always prefers the higher scripted Sharpe.
		assert.Equal(t, model.ParamSet{"x": 2}, p.Params)
	}
}

func TestWalkForward_Aggregates(t *testing.T) {
	ranges := []ParamRange{{Name: "x", Values: []float64{1, 2}}}

	result, err := newTestOptimizer().WalkForward(context.Background(), dailyCandles(30), 10, 5, ranges, wfRunner)
	require.NoError(t, err)

	// Out-of-sample slices start on days 10, 15, 20, 25.
	assert.InDelta(t, 17.5, result.AvgOutSamplePct, 1e-9)
	// Population stdev of {10,15,20,25} is ~5.5902.
	assert.InDelta(t, 17.5/5.5901699, result.StabilityScore, 1e-6)
}

func TestWalkForward_InputValidation(t *testing.T) {
	opt := newTestOptimizer()
	ranges := []ParamRange{{Name: "x", Values: []float64{1}}}

	_, err := opt.WalkForward(context.Background(), nil, 10, 5, ranges, wfRunner)
	assert.ErrorContains(t, err, "no candles")

	_, err = opt.WalkForward(context.Background(), dailyCandles(30), 0, 5, ranges, wfRunner)
	assert.ErrorContains(t, err, "must be positive")

	_, err = opt.WalkForward(context.Background(), dailyCandles(30), 10, 0, ranges, wfRunner)
	assert.ErrorContains(t, err, "must be positive")
}

func TestWalkForward_WindowLargerThanData(t *testing.T) {
	ranges := []ParamRange{{Name: "x", Values: []float64{1}}}

	// The first out-of-sample window already falls past the data.
	_, err := newTestOptimizer().WalkForward(context.Background(), dailyCandles(5), 10, 5, ranges, wfRunner)
	assert.ErrorContains(t, err, "no usable periods")
}

func TestSliceByTime(t *testing.T) {
	candles := dailyCandles(10)

	got := sliceByTime(candles, wfBase.Add(2*24*time.Hour), wfBase.Add(5*24*time.Hour))
	require.Len(t, got, 3)
	assert.Equal(t, wfBase.Add(2*24*time.Hour), got[0].OpenTime)
	// End bound is exclusive.
	assert.Equal(t, wfBase.Add(4*24*time.Hour), got[2].OpenTime)

	assert.Empty(t, sliceByTime(candles, wfBase.Add(30*24*time.Hour), wfBase.Add(40*24*time.Hour)))
}
