package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validConfig() BacktestConfig {
	return BacktestConfig{
		InitialBalance: 10000,
		PositionSize:   10,
		StopLoss:       3,
		TakeProfit:     10,
		MaxPositions:   1,
		MakerFees:      0.05,
		TakerFees:      0.1,
	}
}

func TestBacktestConfigValidate(t *testing.T) {
	assert.NoError(t, validConfig().Validate())

	cases := []struct {
		name   string
		mutate func(*BacktestConfig)
		errMsg string
	}{
		{"zero balance", func(c *BacktestConfig) { c.InitialBalance = 0 }, "initialBalance"},
		{"zero position size", func(c *BacktestConfig) { c.PositionSize = 0 }, "positionSize"},
		{"oversized position", func(c *BacktestConfig) { c.PositionSize = 150 }, "positionSize"},
		{"zero stop loss", func(c *BacktestConfig) { c.StopLoss = 0 }, "stopLoss"},
		{"zero take profit", func(c *BacktestConfig) { c.TakeProfit = 0 }, "takeProfit"},
		{"negative slippage", func(c *BacktestConfig) { c.Slippage = -1 }, "slippage"},
		{"negative fees", func(c *BacktestConfig) { c.TakerFees = -0.1 }, "fees"},
		{"multiple positions", func(c *BacktestConfig) { c.MaxPositions = 2 }, "maxPositions"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			assert.ErrorContains(t, err, tc.errMsg)
		})
	}
}

func TestFeeRate(t *testing.T) {
	cfg := validConfig()
	assert.Equal(t, 0.1, cfg.FeeRate())

	cfg.UseMakerFees = true
	assert.Equal(t, 0.05, cfg.FeeRate())
}
