package strategy

import (
	"sort"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ired4706/binance-trading-bot/internal/indicator"
	"github.com/ired4706/binance-trading-bot/internal/model"
)

// candlesWith builds a window with a 2-point high-low spread around each
// close. The last candle's volume is overridable for volume-confirmation
// scenarios.
func candlesWith(closes []float64, lastVolume float64) []model.Candle {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	candles := make([]model.Candle, len(closes))
	for i, c := range closes {
		price := decimal.NewFromFloat(c)
		volume := decimal.NewFromInt(10)
		if i == len(closes)-1 && lastVolume > 0 {
			volume = decimal.NewFromFloat(lastVolume)
		}
		candles[i] = model.Candle{
			Symbol:    "BTCUSDT",
			Interval:  "1h",
			OpenTime:  start.Add(time.Duration(i) * time.Hour),
			CloseTime: start.Add(time.Duration(i+1)*time.Hour - time.Millisecond),
			Open:      price,
			High:      price.Add(decimal.NewFromInt(1)),
			Low:       price.Sub(decimal.NewFromInt(1)),
			Close:     price,
			Volume:    volume,
		}
	}
	return candles
}

func analyze(s Strategy, closes []float64) model.Signal {
	window := candlesWith(closes, 0)
	return s.Analyze(window, indicator.Compute(window))
}

func TestFactory(t *testing.T) {
	for _, name := range Names() {
		s, err := New(name, nil)
		require.NoError(t, err)
		assert.Equal(t, name, s.Name())
		assert.Greater(t, s.MinWindow(), 0)
	}

	_, err := New("nope", nil)
	require.Error(t, err)
	var unknown ErrUnknownStrategy
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "nope", unknown.Name)
}

func TestNamesSorted(t *testing.T) {
	names := Names()
	assert.Len(t, names, 7)
	assert.True(t, sort.StringsAreSorted(names))
	assert.Contains(t, names, "trend_following")
	assert.Contains(t, names, "support_resistance")
}

func TestHold(t *testing.T) {
	window := candlesWith([]float64{100, 101}, 0)
	sig := Hold(window, "no setup")

	assert.Equal(t, model.ActionHold, sig.Action)
	assert.Zero(t, sig.Confidence)
	assert.Equal(t, "no setup", sig.Reason)
	assert.True(t, sig.Price.Equal(window[1].Close))
	assert.Equal(t, window[1].CloseTime, sig.Timestamp)
}

func TestInsufficientDataAlwaysHolds(t *testing.T) {
	for _, name := range Names() {
		s, err := New(name, nil)
		require.NoError(t, err)

		sig := analyze(s, []float64{100, 101})
		assert.Equal(t, model.ActionHold, sig.Action, name)
		assert.Equal(t, "insufficient data", sig.Reason, name)
	}
}

func TestTrendFollowing_BullishCrossover(t *testing.T) {
	s := NewTrendFollowing(map[string]float64{
		"fastPeriod": 2,
		"slowPeriod": 3,
		"rsiPeriod":  2,
		"rsiCeiling": 99,
	})

	// Decline then a sharp reversal flips the fast EMA over the slow one on
	// the final candle only.
	sig := analyze(s, []float64{10, 9.8, 9.6, 9.4, 9.2, 12})
	assert.Equal(t, model.ActionBuy, sig.Action)
	assert.GreaterOrEqual(t, sig.Confidence, 0.6)
	assert.Contains(t, sig.Reason, "crossed above")
}

func TestTrendFollowing_BearishCrossover(t *testing.T) {
	s := NewTrendFollowing(map[string]float64{
		"fastPeriod": 2,
		"slowPeriod": 3,
		"rsiPeriod":  2,
	})

	sig := analyze(s, []float64{10, 10.2, 10.4, 10.6, 10.8, 8})
	assert.Equal(t, model.ActionSell, sig.Action)
	assert.Contains(t, sig.Reason, "crossed below")
}

func TestTrendFollowing_NoCrossoverHolds(t *testing.T) {
	s := NewTrendFollowing(map[string]float64{
		"fastPeriod": 2,
		"slowPeriod": 3,
		"rsiPeriod":  2,
	})

	sig := analyze(s, []float64{10, 10.01, 9.99, 10, 10.02, 10.01})
	assert.Equal(t, model.ActionHold, sig.Action)
}

func TestMeanReversion_BuysLowerBandTouch(t *testing.T) {
	s := NewMeanReversion(map[string]float64{
		"bbPeriod":  5,
		"bbStdDev":  1.4,
		"rsiPeriod": 4,
	})

	// Steady decline: price sits at the band while RSI pins at 0.
	sig := analyze(s, []float64{100, 98, 96, 94, 92})
	assert.Equal(t, model.ActionBuy, sig.Action)
	assert.GreaterOrEqual(t, sig.Confidence, 0.55)
	assert.Contains(t, sig.Reason, "oversold")
}

func TestMeanReversion_SellsUpperBandTouch(t *testing.T) {
	s := NewMeanReversion(map[string]float64{
		"bbPeriod":  5,
		"bbStdDev":  1.4,
		"rsiPeriod": 4,
	})

	sig := analyze(s, []float64{92, 94, 96, 98, 100})
	assert.Equal(t, model.ActionSell, sig.Action)
	assert.Contains(t, sig.Reason, "overbought")
}

func TestMeanReversion_FlatBandsHold(t *testing.T) {
	s := NewMeanReversion(map[string]float64{
		"bbPeriod":  5,
		"rsiPeriod": 4,
	})

	sig := analyze(s, []float64{100, 100, 100, 100, 100})
	assert.Equal(t, model.ActionHold, sig.Action)
	assert.Equal(t, "flat bands", sig.Reason)
}

func TestBreakout_BuysOnVolume(t *testing.T) {
	s := NewBreakout(map[string]float64{"lookback": 5})

	closes := []float64{100, 100.5, 99.5, 100, 100.2, 105}
	window := candlesWith(closes, 30) // 3x the prior average volume
	sig := s.Analyze(window, indicator.Compute(window))

	assert.Equal(t, model.ActionBuy, sig.Action)
	assert.GreaterOrEqual(t, sig.Confidence, 0.65)
}

func TestBreakout_NoVolumeNoEntry(t *testing.T) {
	s := NewBreakout(map[string]float64{"lookback": 5})

	sig := analyze(s, []float64{100, 100.5, 99.5, 100, 100.2, 105})
	assert.Equal(t, model.ActionHold, sig.Action)
	assert.Equal(t, "breakout without volume confirmation", sig.Reason)
}

func TestBreakout_SellsOnBreakdown(t *testing.T) {
	s := NewBreakout(map[string]float64{"lookback": 5})

	sig := analyze(s, []float64{100, 100.5, 99.5, 100, 100.2, 90})
	assert.Equal(t, model.ActionSell, sig.Action)
	assert.InDelta(t, 0.7, sig.Confidence, 1e-9)
}

func TestBreakout_InsideRangeHolds(t *testing.T) {
	s := NewBreakout(map[string]float64{"lookback": 5})

	sig := analyze(s, []float64{100, 100.5, 99.5, 100, 100.2, 100.3})
	assert.Equal(t, model.ActionHold, sig.Action)
	assert.Equal(t, "inside range", sig.Reason)
}
