package strategy

import (
	"fmt"
	"math"

	"github.com/ired4706/binance-trading-bot/internal/indicator"
	"github.com/ired4706/binance-trading-bot/internal/model"
)

// Squeeze waits for Bollinger bandwidth to compress to the bottom of its
// recent range, then trades the direction of the release.
type Squeeze struct {
	bbPeriod        int
	bbStdDev        float64
	squeezeLookback int
	squeezeRatio    float64
}

func NewSqueeze(params map[string]float64) *Squeeze {
	return &Squeeze{
		bbPeriod:        intParam(params, "bbPeriod", 20),
		bbStdDev:        param(params, "bbStdDev", 2),
		squeezeLookback: intParam(params, "squeezeLookback", 30),
		squeezeRatio:    param(params, "squeezeRatio", 1.25),
	}
}

func (s *Squeeze) Name() string { return "squeeze" }

func (s *Squeeze) MinWindow() int { return s.bbPeriod + s.squeezeLookback }

func (s *Squeeze) Analyze(window []model.Candle, snap indicator.Snapshot) model.Signal {
	if !HasEnoughData(s, window) {
		return Hold(window, "insufficient data")
	}

	closes := indicator.Closes(window)

	// Bandwidth history over the lookback, newest last.
	minWidth := math.Inf(1)
	for i := len(closes) - s.squeezeLookback; i < len(closes)-1; i++ {
		upper, middle, lower := indicator.Bollinger(closes[:i+1], s.bbPeriod, s.bbStdDev)
		if middle == 0 {
			continue
		}
		w := (upper - lower) / middle
		if w < minWidth {
			minWidth = w
		}
	}

	upper, middle, lower := indicator.Bollinger(closes[:len(closes)-1], s.bbPeriod, s.bbStdDev)
	if middle == 0 || math.IsInf(minWidth, 1) {
		return Hold(window, "flat bands")
	}
	prevWidth := (upper - lower) / middle

	// Only act when the previous candle was still compressed.
	if prevWidth > minWidth*s.squeezeRatio {
		return Hold(window, "no squeeze")
	}

	price := closes[len(closes)-1]
	if price > upper {
		return signal(window, model.ActionBuy, 0.7,
			fmt.Sprintf("squeeze released upward, close %.2f above band %.2f", price, upper))
	}
	if price < lower {
		return signal(window, model.ActionSell, 0.7,
			fmt.Sprintf("squeeze released downward, close %.2f below band %.2f", price, lower))
	}
	return Hold(window, "squeeze intact")
}
