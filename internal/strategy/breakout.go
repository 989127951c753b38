package strategy

import (
	"fmt"
	"math"

	"github.com/ired4706/binance-trading-bot/internal/indicator"
	"github.com/ired4706/binance-trading-bot/internal/model"
)

// Breakout enters when the close clears the prior range high on elevated
// volume and exits when the range low gives way.
type Breakout struct {
	lookback     int
	volumeFactor float64
}

func NewBreakout(params map[string]float64) *Breakout {
	return &Breakout{
		lookback:     intParam(params, "lookback", 20),
		volumeFactor: param(params, "volumeFactor", 1.5),
	}
}

func (s *Breakout) Name() string { return "breakout" }

func (s *Breakout) MinWindow() int { return s.lookback + 1 }

func (s *Breakout) Analyze(window []model.Candle, snap indicator.Snapshot) model.Signal {
	if !HasEnoughData(s, window) {
		return Hold(window, "insufficient data")
	}

	prior := window[len(window)-1-s.lookback : len(window)-1]
	rangeHigh := math.Inf(-1)
	rangeLow := math.Inf(1)
	for _, c := range prior {
		h, _ := c.High.Float64()
		l, _ := c.Low.Float64()
		if h > rangeHigh {
			rangeHigh = h
		}
		if l < rangeLow {
			rangeLow = l
		}
	}

	last := window[len(window)-1]
	price, _ := last.Close.Float64()
	volume, _ := last.Volume.Float64()
	avgVolume := indicator.Mean(indicator.Volumes(prior))

	if price > rangeHigh {
		if avgVolume > 0 && volume >= s.volumeFactor*avgVolume {
			surge := math.Min(volume/(s.volumeFactor*avgVolume)-1, 0.25)
			return signal(window, model.ActionBuy, 0.65+surge,
				fmt.Sprintf("close %.2f broke %d-candle high %.2f on %.1fx volume", price, s.lookback, rangeHigh, volume/avgVolume))
		}
		return Hold(window, "breakout without volume confirmation")
	}
	if price < rangeLow {
		return signal(window, model.ActionSell, 0.7,
			fmt.Sprintf("close %.2f broke %d-candle low %.2f", price, s.lookback, rangeLow))
	}
	return Hold(window, "inside range")
}
