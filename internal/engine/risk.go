package engine

import (
	"math"
	"sort"

	"github.com/ired4706/binance-trading-bot/internal/indicator"
	"github.com/ired4706/binance-trading-bot/internal/model"
)

// ComputeRiskMetrics layers tail-risk statistics on a finished run's trades.
// level is the VaR confidence (e.g. 0.95); threshold is the Omega cutoff in
// return percent, normally 0.
func ComputeRiskMetrics(trades []model.SimTrade, cfg model.BacktestConfig, level, threshold float64) model.RiskMetrics {
	returns := netReturns(trades)
	omega, unbounded := omegaRatio(returns, threshold)
	if unbounded {
		// +Inf is the honest value but does not survive JSON encoding.
		omega = 0
	}
	return model.RiskMetrics{
		ConfidenceLevel:   level,
		ValueAtRisk:       valueAtRisk(returns, level),
		ExpectedShortfall: expectedShortfall(returns, level),
		OmegaRatio:        omega,
		OmegaUnbounded:    unbounded,
		UlcerIndex:        ulcerIndex(trades, cfg.InitialBalance),
	}
}

func netReturns(trades []model.SimTrade) []float64 {
	out := make([]float64, len(trades))
	for i, t := range trades {
		out[i] = t.NetPnLPercentage
	}
	return out
}

// valueAtRisk takes the return at rank floor(n*(1-level)) from the loss side
// of the sorted distribution, reported as a positive magnitude. 0 when the
// cutoff lands on a gain.
func valueAtRisk(returns []float64, level float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	sorted := append([]float64(nil), returns...)
	sort.Float64s(sorted)
	idx := int(math.Floor(float64(len(sorted)) * (1 - level)))
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	if sorted[idx] >= 0 {
		return 0
	}
	return -sorted[idx]
}

// expectedShortfall averages the magnitude of every return at or beyond the
// VaR cutoff.
func expectedShortfall(returns []float64, level float64) float64 {
	v := valueAtRisk(returns, level)
	if v == 0 {
		return 0
	}
	var tail []float64
	for _, r := range returns {
		if r <= -v {
			tail = append(tail, -r)
		}
	}
	return indicator.Mean(tail)
}

// omegaRatio is probability-weighted gains above threshold over losses at or
// below it. The second return reports the defined unbounded case: no losses
// at all, where the ratio is +Inf.
func omegaRatio(returns []float64, threshold float64) (float64, bool) {
	var gains, losses float64
	for _, r := range returns {
		if r > threshold {
			gains += r - threshold
		} else {
			losses += threshold - r
		}
	}
	if losses == 0 {
		if gains == 0 {
			return 0, false
		}
		return math.Inf(1), true
	}
	return gains / losses, false
}

// ulcerIndex is the root-mean-square percentage drawdown from the running
// peak balance, sampled at every trade close.
func ulcerIndex(trades []model.SimTrade, initialBalance float64) float64 {
	if len(trades) == 0 || initialBalance <= 0 {
		return 0
	}
	balance := initialBalance
	peak := initialBalance
	var sumSq float64
	for _, t := range trades {
		net, _ := t.NetPnL.Float64()
		balance += net
		if balance > peak {
			peak = balance
		}
		ddPct := (peak - balance) / peak * 100
		sumSq += ddPct * ddPct
	}
	return math.Sqrt(sumSq / float64(len(trades)))
}
