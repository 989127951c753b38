package strategy

import (
	"fmt"
	"math"

	"github.com/ired4706/binance-trading-bot/internal/indicator"
	"github.com/ired4706/binance-trading-bot/internal/model"
)

// MeanReversion buys Bollinger lower-band touches confirmed by an oversold
// RSI and sells the opposite extreme.
type MeanReversion struct {
	bbPeriod   int
	bbStdDev   float64
	rsiPeriod  int
	oversold   float64
	overbought float64
}

func NewMeanReversion(params map[string]float64) *MeanReversion {
	return &MeanReversion{
		bbPeriod:   intParam(params, "bbPeriod", 20),
		bbStdDev:   param(params, "bbStdDev", 2),
		rsiPeriod:  intParam(params, "rsiPeriod", 14),
		oversold:   param(params, "rsiOversold", 30),
		overbought: param(params, "rsiOverbought", 70),
	}
}

func (s *MeanReversion) Name() string { return "mean_reversion" }

func (s *MeanReversion) MinWindow() int {
	if s.bbPeriod > s.rsiPeriod+1 {
		return s.bbPeriod
	}
	return s.rsiPeriod + 1
}

func (s *MeanReversion) Analyze(window []model.Candle, snap indicator.Snapshot) model.Signal {
	if !HasEnoughData(s, window) {
		return Hold(window, "insufficient data")
	}

	closes := indicator.Closes(window)
	upper, middle, lower := indicator.Bollinger(closes, s.bbPeriod, s.bbStdDev)
	rsi := indicator.RSI(closes, s.rsiPeriod)
	price := closes[len(closes)-1]

	bandWidth := upper - lower
	if bandWidth <= 0 {
		return Hold(window, "flat bands")
	}

	if price <= lower && rsi <= s.oversold {
		// Deeper penetration below the band means a stronger stretch.
		depth := math.Min((lower-price)/bandWidth+0.1, 0.4)
		return signal(window, model.ActionBuy, 0.55+depth,
			fmt.Sprintf("price %.2f at lower band %.2f, RSI %.1f oversold", price, lower, rsi))
	}
	if price >= upper && rsi >= s.overbought {
		depth := math.Min((price-upper)/bandWidth+0.1, 0.4)
		return signal(window, model.ActionSell, 0.55+depth,
			fmt.Sprintf("price %.2f at upper band %.2f, RSI %.1f overbought", price, upper, rsi))
	}
	if price >= middle && rsi >= s.overbought {
		return signal(window, model.ActionSell, 0.5,
			fmt.Sprintf("reverted to mean with RSI %.1f", rsi))
	}
	return Hold(window, "inside bands")
}
