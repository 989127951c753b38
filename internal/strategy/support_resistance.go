package strategy

import (
	"fmt"

	"github.com/ired4706/binance-trading-bot/internal/indicator"
	"github.com/ired4706/binance-trading-bot/internal/model"
)

// SupportResistance trades bounces off classic pivot levels: buys near S1
// when the candle closes back up, sells rejections at R1.
type SupportResistance struct {
	lookback  int
	tolerance float64 // distance from a level, as a fraction of price
}

func NewSupportResistance(params map[string]float64) *SupportResistance {
	return &SupportResistance{
		lookback:  intParam(params, "lookback", 15),
		tolerance: param(params, "tolerance", 0.005),
	}
}

func (s *SupportResistance) Name() string { return "support_resistance" }

func (s *SupportResistance) MinWindow() int { return s.lookback + 2 }

func (s *SupportResistance) Analyze(window []model.Candle, snap indicator.Snapshot) model.Signal {
	if !HasEnoughData(s, window) {
		return Hold(window, "insufficient data")
	}

	levels := indicator.Pivots(window, s.lookback)
	last := window[len(window)-1]
	price, _ := last.Close.Float64()
	low, _ := last.Low.Float64()
	high, _ := last.High.Float64()
	open, _ := last.Open.Float64()

	if levels.Pivot == 0 {
		return Hold(window, "no pivot levels")
	}

	nearSupport := low <= levels.Support1*(1+s.tolerance)
	nearResistance := high >= levels.Resistance1*(1-s.tolerance)

	if nearSupport && price > open && price > levels.Support1 {
		confidence := 0.6
		if low <= levels.Support2*(1+s.tolerance) {
			confidence = 0.75
		}
		return signal(window, model.ActionBuy, confidence,
			fmt.Sprintf("bounce off support %.2f, close %.2f", levels.Support1, price))
	}
	if nearResistance && price < open && price < levels.Resistance1 {
		return signal(window, model.ActionSell, 0.65,
			fmt.Sprintf("rejected at resistance %.2f, close %.2f", levels.Resistance1, price))
	}
	return Hold(window, "between levels")
}
