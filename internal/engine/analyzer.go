package engine

import (
	"math"

	"github.com/ired4706/binance-trading-bot/internal/indicator"
	"github.com/ired4706/binance-trading-bot/internal/model"
)

// Analyze computes the full metric battery over a completed trade list.
// A zero-trade run yields the zero value, never NaN or Inf; every ratio
// guards its divisor.
func Analyze(trades []model.SimTrade, cfg model.BacktestConfig) model.PerformanceMetrics {
	var m model.PerformanceMetrics
	m.TotalTrades = len(trades)
	if len(trades) == 0 {
		return m
	}

	grossReturns := make([]float64, len(trades))
	netReturns := make([]float64, len(trades))
	var wins int
	var grossWins, grossLosses, netWins, netLosses []float64

	for i, t := range trades {
		gross, _ := t.PnL.Float64()
		net, _ := t.NetPnL.Float64()
		fees, _ := t.EntryFees.Add(t.ExitFees).Float64()
		slippage, _ := t.EntrySlippage.Add(t.ExitSlippage).Float64()

		m.GrossReturn += gross
		m.NetReturn += net
		m.TotalFees += fees
		m.TotalSlippage += slippage
		grossReturns[i] = t.PnLPercentage
		netReturns[i] = t.NetPnLPercentage

		if net > 0 {
			wins++
		}
		if gross > 0 {
			grossWins = append(grossWins, gross)
		} else if gross < 0 {
			grossLosses = append(grossLosses, -gross)
		}
		if net > 0 {
			netWins = append(netWins, net)
		} else if net < 0 {
			netLosses = append(netLosses, -net)
		}
	}

	m.GrossReturnPct = m.GrossReturn / cfg.InitialBalance * 100
	m.NetReturnPct = m.NetReturn / cfg.InitialBalance * 100
	m.WinRate = float64(wins) / float64(len(trades))

	m.AvgWin = indicator.Mean(grossWins)
	m.AvgLoss = indicator.Mean(grossLosses)
	m.NetAvgWin = indicator.Mean(netWins)
	m.NetAvgLoss = indicator.Mean(netLosses)
	m.ProfitFactor = safeDiv(m.AvgWin, m.AvgLoss)
	m.NetProfitFactor = safeDiv(m.NetAvgWin, m.NetAvgLoss)

	m.MaxDrawdown, m.MaxDrawdownPct = maxDrawdown(trades, cfg.InitialBalance, false)
	m.NetMaxDrawdown, m.NetMaxDrawdownPct = maxDrawdown(trades, cfg.InitialBalance, true)

	m.SharpeRatio = sharpe(grossReturns)
	m.NetSharpeRatio = sharpe(netReturns)
	m.SortinoRatio = sortino(netReturns)
	m.CalmarRatio = calmar(trades, m.NetReturnPct, m.NetMaxDrawdownPct)

	streaks(trades, &m)
	return m
}

func safeDiv(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}

// sharpe is the per-trade mean/stdev ratio, not time-annualized.
func sharpe(returns []float64) float64 {
	sd := indicator.StdDev(returns)
	if sd == 0 {
		return 0
	}
	return indicator.Mean(returns) / sd
}

// sortino divides the mean return by the stdev of the losing returns only.
func sortino(returns []float64) float64 {
	var negatives []float64
	for _, r := range returns {
		if r < 0 {
			negatives = append(negatives, r)
		}
	}
	sd := indicator.StdDev(negatives)
	if sd == 0 {
		return 0
	}
	return indicator.Mean(returns) / sd
}

// calmar annualizes the net return over the traded span and divides by the
// max-drawdown percentage.
func calmar(trades []model.SimTrade, netReturnPct, maxDrawdownPct float64) float64 {
	if maxDrawdownPct == 0 || len(trades) == 0 {
		return 0
	}
	elapsed := trades[len(trades)-1].ExitTime.Sub(trades[0].EntryTime)
	days := elapsed.Hours() / 24
	if days <= 0 {
		return 0
	}
	annualized := netReturnPct * 365 / days
	return annualized / maxDrawdownPct
}

// maxDrawdown walks the running balance (initial + cumulative P&L) against
// its peak. Returned as currency and as percent of the initial balance.
func maxDrawdown(trades []model.SimTrade, initialBalance float64, net bool) (dd, ddPct float64) {
	balance := initialBalance
	peak := initialBalance
	for _, t := range trades {
		var pnl float64
		if net {
			pnl, _ = t.NetPnL.Float64()
		} else {
			pnl, _ = t.PnL.Float64()
		}
		balance += pnl
		if balance > peak {
			peak = balance
		}
		if d := peak - balance; d > dd {
			dd = d
		}
	}
	if initialBalance > 0 {
		ddPct = dd / initialBalance * 100
	}
	return dd, ddPct
}

// streaks scans trades chronologically. A zero netPnl resets the winning
// streak without counting as a loss; the loss streak is left untouched.
func streaks(trades []model.SimTrade, m *model.PerformanceMetrics) {
	var winRun, lossRun int
	var winRuns, lossRuns []int

	for _, t := range trades {
		net, _ := t.NetPnL.Float64()
		switch {
		case net > 0:
			winRun++
			if lossRun > 0 {
				lossRuns = append(lossRuns, lossRun)
				lossRun = 0
			}
		case net < 0:
			lossRun++
			if winRun > 0 {
				winRuns = append(winRuns, winRun)
				winRun = 0
			}
		default:
			if winRun > 0 {
				winRuns = append(winRuns, winRun)
				winRun = 0
			}
		}
	}
	if winRun > 0 {
		winRuns = append(winRuns, winRun)
	}
	if lossRun > 0 {
		lossRuns = append(lossRuns, lossRun)
	}

	m.MaxConsecutiveWins = maxInt(winRuns)
	m.MaxConsecutiveLosses = maxInt(lossRuns)
	m.AvgConsecutiveWins = avgInt(winRuns)
	m.AvgConsecutiveLosses = avgInt(lossRuns)
}

func maxInt(values []int) int {
	best := 0
	for _, v := range values {
		if v > best {
			best = v
		}
	}
	return best
}

func avgInt(values []int) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum int
	for _, v := range values {
		sum += v
	}
	return float64(sum) / float64(len(values))
}

// sanitize clamps non-finite intermediate values; kept for callers that
// aggregate metrics across runs.
func sanitize(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
