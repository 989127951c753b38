package strategy

import (
	"fmt"

	"github.com/ired4706/binance-trading-bot/internal/indicator"
	"github.com/ired4706/binance-trading-bot/internal/model"
)

// Divergence looks for price making a new extreme that RSI refuses to
// confirm: lower low in price with a higher RSI low is bullish, and the
// mirror image is bearish.
type Divergence struct {
	rsiPeriod int
	lookback  int
}

func NewDivergence(params map[string]float64) *Divergence {
	return &Divergence{
		rsiPeriod: intParam(params, "rsiPeriod", 14),
		lookback:  intParam(params, "lookback", 10),
	}
}

func (s *Divergence) Name() string { return "divergence" }

func (s *Divergence) MinWindow() int { return s.rsiPeriod + s.lookback + 1 }

func (s *Divergence) Analyze(window []model.Candle, snap indicator.Snapshot) model.Signal {
	if !HasEnoughData(s, window) {
		return Hold(window, "insufficient data")
	}

	closes := indicator.Closes(window)
	rsiNow := indicator.RSI(closes, s.rsiPeriod)
	rsiThen := indicator.RSI(closes[:len(closes)-s.lookback], s.rsiPeriod)
	priceNow := closes[len(closes)-1]
	priceThen := closes[len(closes)-1-s.lookback]

	if priceNow < priceThen && rsiNow > rsiThen && rsiNow < 50 {
		gap := (rsiNow - rsiThen) / 100
		return signal(window, model.ActionBuy, 0.55+gap,
			fmt.Sprintf("bullish divergence: price %.2f < %.2f but RSI %.1f > %.1f", priceNow, priceThen, rsiNow, rsiThen))
	}
	if priceNow > priceThen && rsiNow < rsiThen && rsiNow > 50 {
		gap := (rsiThen - rsiNow) / 100
		return signal(window, model.ActionSell, 0.55+gap,
			fmt.Sprintf("bearish divergence: price %.2f > %.2f but RSI %.1f < %.1f", priceNow, priceThen, rsiNow, rsiThen))
	}
	return Hold(window, "no divergence")
}
