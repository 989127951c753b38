package strategy

import (
	"fmt"

	"github.com/ired4706/binance-trading-bot/internal/indicator"
	"github.com/ired4706/binance-trading-bot/internal/model"
)

// MultiTimeframe requires short, medium and long EMAs to agree before
// entering, approximating trend alignment across timeframes on one series.
type MultiTimeframe struct {
	shortPeriod  int
	mediumPeriod int
	longPeriod   int
}

func NewMultiTimeframe(params map[string]float64) *MultiTimeframe {
	return &MultiTimeframe{
		shortPeriod:  intParam(params, "shortPeriod", 9),
		mediumPeriod: intParam(params, "mediumPeriod", 21),
		longPeriod:   intParam(params, "longPeriod", 50),
	}
}

func (s *MultiTimeframe) Name() string { return "multi_timeframe" }

func (s *MultiTimeframe) MinWindow() int { return s.longPeriod + 1 }

func (s *MultiTimeframe) Analyze(window []model.Candle, snap indicator.Snapshot) model.Signal {
	if !HasEnoughData(s, window) {
		return Hold(window, "insufficient data")
	}

	closes := indicator.Closes(window)
	short := indicator.EMA(closes, s.shortPeriod)
	medium := indicator.EMA(closes, s.mediumPeriod)
	long := indicator.EMA(closes, s.longPeriod)
	prevShort := indicator.EMA(closes[:len(closes)-1], s.shortPeriod)
	prevMedium := indicator.EMA(closes[:len(closes)-1], s.mediumPeriod)
	price := closes[len(closes)-1]

	aligned := short > medium && medium > long
	prevAligned := prevShort > prevMedium

	if aligned && price > short {
		confidence := 0.6
		if !prevAligned {
			// Fresh alignment carries more information than an old trend.
			confidence = 0.75
		}
		return signal(window, model.ActionBuy, confidence,
			fmt.Sprintf("EMA%d > EMA%d > EMA%d, price above trend", s.shortPeriod, s.mediumPeriod, s.longPeriod))
	}
	if short < medium && prevAligned {
		return signal(window, model.ActionSell, 0.7,
			fmt.Sprintf("EMA%d dropped below EMA%d, alignment broken", s.shortPeriod, s.mediumPeriod))
	}
	return Hold(window, "timeframes not aligned")
}
