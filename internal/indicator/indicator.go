// Package indicator provides stateless technical-analysis functions over
// candle windows. Every function is a pure function of its inputs; windows
// shorter than the requested period yield zero values and are expected to be
// gated out by the strategy minimum-window check.
package indicator

import (
	"math"

	"github.com/ired4706/binance-trading-bot/internal/model"
)

// Closes extracts the close series as float64 for statistics. Money math in
// the simulator stays decimal; indicators work on floats.
func Closes(candles []model.Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i], _ = c.Close.Float64()
	}
	return out
}

// Volumes extracts the volume series as float64.
func Volumes(candles []model.Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i], _ = c.Volume.Float64()
	}
	return out
}

// Mean is the arithmetic average of values, 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// StdDev is the population standard deviation, 0 for an empty slice.
func StdDev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	avg := Mean(values)
	var sumSq float64
	for _, v := range values {
		d := v - avg
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(values)))
}

// SMA is the simple moving average of the last period values.
func SMA(values []float64, period int) float64 {
	if period <= 0 || len(values) < period {
		return 0
	}
	return Mean(values[len(values)-period:])
}

// EMA is the exponential moving average over the whole series, seeded with
// the SMA of the first period values.
func EMA(values []float64, period int) float64 {
	if period <= 0 || len(values) < period {
		return 0
	}
	ema := Mean(values[:period])
	mult := 2.0 / (float64(period) + 1)
	for _, v := range values[period:] {
		ema = (v-ema)*mult + ema
	}
	return ema
}

// RSI computes the Wilder-smoothed relative strength index. Returns 100 when
// the window contains no losses.
func RSI(values []float64, period int) float64 {
	if period <= 0 || len(values) < period+1 {
		return 0
	}
	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		change := values[i] - values[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	for i := period + 1; i < len(values); i++ {
		change := values[i] - values[i-1]
		var gain, loss float64
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
	}
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// Bollinger returns the upper, middle and lower bands for the last period
// values using mult standard deviations.
func Bollinger(values []float64, period int, mult float64) (upper, middle, lower float64) {
	if period <= 0 || len(values) < period {
		return 0, 0, 0
	}
	tail := values[len(values)-period:]
	middle = Mean(tail)
	sd := StdDev(tail)
	return middle + mult*sd, middle, middle - mult*sd
}

// ATR is the average true range over the last period candles.
func ATR(candles []model.Candle, period int) float64 {
	if period <= 0 || len(candles) < period+1 {
		return 0
	}
	var sum float64
	for i := len(candles) - period; i < len(candles); i++ {
		high, _ := candles[i].High.Float64()
		low, _ := candles[i].Low.Float64()
		prevClose, _ := candles[i-1].Close.Float64()
		tr := math.Max(high-low, math.Max(math.Abs(high-prevClose), math.Abs(low-prevClose)))
		sum += tr
	}
	return sum / float64(period)
}

// MACD returns the MACD line, signal line and histogram for the standard
// fast/slow/signal EMA construction.
func MACD(values []float64, fast, slow, signal int) (macd, signalLine, histogram float64) {
	if len(values) < slow+signal {
		return 0, 0, 0
	}
	// Signal line is an EMA of the MACD line, so build the line series first.
	series := make([]float64, 0, len(values)-slow+1)
	for i := slow; i <= len(values); i++ {
		series = append(series, EMA(values[:i], fast)-EMA(values[:i], slow))
	}
	macd = series[len(series)-1]
	signalLine = EMA(series, signal)
	return macd, signalLine, macd - signalLine
}

// Stochastic returns the %K and %D oscillator values, %D being a dPeriod SMA
// of %K.
func Stochastic(candles []model.Candle, kPeriod, dPeriod int) (k, d float64) {
	if kPeriod <= 0 || dPeriod <= 0 || len(candles) < kPeriod+dPeriod-1 {
		return 0, 0
	}
	ks := make([]float64, 0, dPeriod)
	for i := len(candles) - dPeriod; i < len(candles); i++ {
		ks = append(ks, rawStochastic(candles[:i+1], kPeriod))
	}
	return ks[len(ks)-1], Mean(ks)
}

func rawStochastic(candles []model.Candle, period int) float64 {
	lowest := math.Inf(1)
	highest := math.Inf(-1)
	for i := len(candles) - period; i < len(candles); i++ {
		high, _ := candles[i].High.Float64()
		low, _ := candles[i].Low.Float64()
		if low < lowest {
			lowest = low
		}
		if high > highest {
			highest = high
		}
	}
	last, _ := candles[len(candles)-1].Close.Float64()
	if highest == lowest {
		return 50
	}
	return 100 * (last - lowest) / (highest - lowest)
}

// PivotLevels are classic floor-trader pivots derived from the high/low/close
// of the lookback window preceding the current candle.
type PivotLevels struct {
	Pivot       float64
	Support1    float64
	Support2    float64
	Resistance1 float64
	Resistance2 float64
}

// Pivots computes pivot levels from the lookback candles before the last one.
func Pivots(candles []model.Candle, lookback int) PivotLevels {
	if lookback <= 0 || len(candles) < lookback+1 {
		return PivotLevels{}
	}
	window := candles[len(candles)-lookback-1 : len(candles)-1]
	high := math.Inf(-1)
	low := math.Inf(1)
	for _, c := range window {
		h, _ := c.High.Float64()
		l, _ := c.Low.Float64()
		if h > high {
			high = h
		}
		if l < low {
			low = l
		}
	}
	last, _ := window[len(window)-1].Close.Float64()
	pivot := (high + low + last) / 3
	return PivotLevels{
		Pivot:       pivot,
		Support1:    2*pivot - high,
		Support2:    pivot - (high - low),
		Resistance1: 2*pivot - low,
		Resistance2: pivot + (high - low),
	}
}

// Snapshot is the standard indicator set computed once per candle and handed
// to the active strategy alongside the raw window.
type Snapshot struct {
	Close      float64
	SMA20      float64
	EMA9       float64
	EMA12      float64
	EMA21      float64
	EMA26      float64
	EMA50      float64
	RSI14      float64
	BBUpper    float64
	BBMiddle   float64
	BBLower    float64
	ATR14      float64
	MACD       float64
	MACDSignal float64
	MACDHist   float64
	StochK     float64
	StochD     float64
	Pivots     PivotLevels
	AvgVolume  float64
}

// Compute builds a Snapshot for the window ending at its last candle.
func Compute(window []model.Candle) Snapshot {
	closes := Closes(window)
	volumes := Volumes(window)

	var snap Snapshot
	if len(closes) > 0 {
		snap.Close = closes[len(closes)-1]
	}
	snap.SMA20 = SMA(closes, 20)
	snap.EMA9 = EMA(closes, 9)
	snap.EMA12 = EMA(closes, 12)
	snap.EMA21 = EMA(closes, 21)
	snap.EMA26 = EMA(closes, 26)
	snap.EMA50 = EMA(closes, 50)
	snap.RSI14 = RSI(closes, 14)
	snap.BBUpper, snap.BBMiddle, snap.BBLower = Bollinger(closes, 20, 2)
	snap.ATR14 = ATR(window, 14)
	snap.MACD, snap.MACDSignal, snap.MACDHist = MACD(closes, 12, 26, 9)
	snap.StochK, snap.StochD = Stochastic(window, 14, 3)
	snap.Pivots = Pivots(window, 15)
	if len(volumes) >= 20 {
		snap.AvgVolume = Mean(volumes[len(volumes)-20:])
	} else {
		snap.AvgVolume = Mean(volumes)
	}
	return snap
}
