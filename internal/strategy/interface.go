package strategy

import (
	"github.com/ired4706/binance-trading-bot/internal/indicator"
	"github.com/ired4706/binance-trading-bot/internal/model"
)

// Strategy turns a candle window plus an indicator snapshot into one Signal.
// Implementations are pure: all tunables are fixed at construction, so
// instances can be cloned freely across parallel optimization workers.
type Strategy interface {
	Name() string
	// MinWindow is the number of candles required before Analyze produces
	// meaningful output.
	MinWindow() int
	// Analyze emits exactly one signal for the window ending at its last
	// candle. Called only when the window satisfies MinWindow.
	Analyze(window []model.Candle, snap indicator.Snapshot) model.Signal
}

// HasEnoughData gates every Analyze call.
func HasEnoughData(s Strategy, window []model.Candle) bool {
	return len(window) >= s.MinWindow()
}

// Hold builds the neutral signal for the window's last candle.
func Hold(window []model.Candle, reason string) model.Signal {
	last := window[len(window)-1]
	return model.Signal{
		Action:     model.ActionHold,
		Confidence: 0,
		Reason:     reason,
		Price:      last.Close,
		Timestamp:  last.CloseTime,
	}
}

func signal(window []model.Candle, action model.Action, confidence float64, reason string) model.Signal {
	if confidence > 1 {
		confidence = 1
	}
	if confidence < 0 {
		confidence = 0
	}
	last := window[len(window)-1]
	return model.Signal{
		Action:     action,
		Confidence: confidence,
		Reason:     reason,
		Price:      last.Close,
		Timestamp:  last.CloseTime,
	}
}

func param(params map[string]float64, key string, def float64) float64 {
	if v, ok := params[key]; ok {
		return v
	}
	return def
}

func intParam(params map[string]float64, key string, def int) int {
	if v, ok := params[key]; ok {
		return int(v)
	}
	return def
}
