package strategy

import (
	"fmt"
	"math"

	"github.com/ired4706/binance-trading-bot/internal/indicator"
	"github.com/ired4706/binance-trading-bot/internal/model"
)

// TrendFollowing trades EMA crossovers filtered by RSI so it does not chase
// already-overbought moves.
type TrendFollowing struct {
	fastPeriod int
	slowPeriod int
	rsiPeriod  int
	rsiCeiling float64
	rsiFloor   float64
}

func NewTrendFollowing(params map[string]float64) *TrendFollowing {
	return &TrendFollowing{
		fastPeriod: intParam(params, "fastPeriod", 12),
		slowPeriod: intParam(params, "slowPeriod", 26),
		rsiPeriod:  intParam(params, "rsiPeriod", 14),
		rsiCeiling: param(params, "rsiCeiling", 70),
		rsiFloor:   param(params, "rsiFloor", 30),
	}
}

func (s *TrendFollowing) Name() string { return "trend_following" }

func (s *TrendFollowing) MinWindow() int {
	// One extra candle so the previous crossover state is observable.
	return s.slowPeriod + s.rsiPeriod + 1
}

func (s *TrendFollowing) Analyze(window []model.Candle, snap indicator.Snapshot) model.Signal {
	if !HasEnoughData(s, window) {
		return Hold(window, "insufficient data")
	}

	closes := indicator.Closes(window)
	fast := indicator.EMA(closes, s.fastPeriod)
	slow := indicator.EMA(closes, s.slowPeriod)
	prevFast := indicator.EMA(closes[:len(closes)-1], s.fastPeriod)
	prevSlow := indicator.EMA(closes[:len(closes)-1], s.slowPeriod)
	rsi := indicator.RSI(closes, s.rsiPeriod)

	spread := math.Abs(fast-slow) / slow

	if prevFast <= prevSlow && fast > slow && rsi < s.rsiCeiling {
		confidence := 0.6 + math.Min(spread*20, 0.3)
		return signal(window, model.ActionBuy, confidence,
			fmt.Sprintf("EMA%d crossed above EMA%d with RSI %.1f", s.fastPeriod, s.slowPeriod, rsi))
	}
	if prevFast >= prevSlow && fast < slow {
		confidence := 0.6 + math.Min(spread*20, 0.3)
		return signal(window, model.ActionSell, confidence,
			fmt.Sprintf("EMA%d crossed below EMA%d", s.fastPeriod, s.slowPeriod))
	}
	if rsi >= s.rsiCeiling+10 {
		return signal(window, model.ActionSell, 0.55,
			fmt.Sprintf("RSI %.1f deeply overbought", rsi))
	}
	return Hold(window, "no crossover")
}
