package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Trade represents a single live trade received from an exchange stream.
type Trade struct {
	ID        string          `json:"id"`
	Symbol    string          `json:"symbol"`
	Exchange  string          `json:"exchange"`
	Price     decimal.Decimal `json:"price"`
	Amount    decimal.Decimal `json:"amount"`
	Side      string          `json:"side"` // "buy" or "sell"
	Timestamp time.Time       `json:"ts"`
}

// Candle is one OHLCV bar. Candles are ordered by OpenTime and are the
// source of truth for every simulation.
type Candle struct {
	Symbol    string          `json:"symbol"`
	Interval  string          `json:"interval"` // "1m", "5m", "1h", ...
	OpenTime  time.Time       `json:"openTime"`
	Open      decimal.Decimal `json:"open"`
	High      decimal.Decimal `json:"high"`
	Low       decimal.Decimal `json:"low"`
	Close     decimal.Decimal `json:"close"`
	Volume    decimal.Decimal `json:"volume"`
	CloseTime time.Time       `json:"closeTime"`
}
