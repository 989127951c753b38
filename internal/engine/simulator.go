package engine

import (
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ired4706/binance-trading-bot/internal/indicator"
	"github.com/ired4706/binance-trading-bot/internal/model"
	"github.com/ired4706/binance-trading-bot/internal/strategy"
)

// DefaultMinConfidence is the activation threshold below which any signal is
// treated as HOLD. A simulator-level constant, not a strategy property.
const DefaultMinConfidence = 0.5

// Simulator walks a candle series through one strategy and maintains the
// FLAT / IN_POSITION state machine. SELL signals only ever close; shorts are
// never opened. One instance serves exactly one run.
type Simulator struct {
	strat         strategy.Strategy
	cfg           model.BacktestConfig
	logger        *zap.Logger
	minConfidence float64

	balance  decimal.Decimal
	position *model.Position
	signals  []model.Signal
	trades   []model.SimTrade
}

func NewSimulator(strat strategy.Strategy, cfg model.BacktestConfig, logger *zap.Logger) *Simulator {
	return &Simulator{
		strat:         strat,
		cfg:           cfg,
		logger:        logger,
		minConfidence: DefaultMinConfidence,
		balance:       decimal.NewFromFloat(cfg.InitialBalance),
	}
}

// Run executes the full simulation. The candle slice is treated as
// read-only; the returned result owns its signal and trade lists.
func (s *Simulator) Run(candles []model.Candle) (*model.BacktestResult, error) {
	if err := s.cfg.Validate(); err != nil {
		return nil, err
	}
	minWindow := s.strat.MinWindow()
	if len(candles) < minWindow {
		return nil, fmt.Errorf("insufficient historical data: %d candles, strategy %s needs %d",
			len(candles), s.strat.Name(), minWindow)
	}

	for i := minWindow - 1; i < len(candles); i++ {
		window := candles[:i+1]
		snap := indicator.Compute(window)
		sig := s.strat.Analyze(window, snap)
		s.signals = append(s.signals, sig)

		candle := candles[i]

		// Protective exits are checked on every candle while in position,
		// against the unslipped close, and win over a same-candle SELL.
		if s.position != nil {
			change := pctChange(candle.Close, s.position.EntryPrice)
			if change <= -s.cfg.StopLoss {
				s.closePosition(candle, model.ExitStopLoss)
				continue
			}
			if change >= s.cfg.TakeProfit {
				s.closePosition(candle, model.ExitTakeProfit)
				continue
			}
		}

		if sig.Confidence < s.minConfidence {
			continue
		}
		switch sig.Action {
		case model.ActionBuy:
			if s.position == nil {
				s.openPosition(candle)
			}
			// BUY while already in position is a no-op, not queued.
		case model.ActionSell:
			if s.position != nil {
				s.closePosition(candle, model.ExitSignal)
			}
		}
	}

	// A run never ends with a dangling open position.
	if s.position != nil {
		s.closePosition(candles[len(candles)-1], model.ExitEndOfData)
	}

	result := &model.BacktestResult{
		Strategy:    s.strat.Name(),
		Config:      s.cfg,
		Signals:     s.signals,
		Trades:      s.trades,
		Performance: Analyze(s.trades, s.cfg),
	}
	if len(candles) > 0 {
		result.Symbol = candles[0].Symbol
		result.Interval = candles[0].Interval
	}
	return result, nil
}

func (s *Simulator) openPosition(candle model.Candle) {
	one := decimal.NewFromInt(1)
	slip := decimal.NewFromFloat(s.cfg.Slippage / 100)
	feeRate := decimal.NewFromFloat(s.cfg.FeeRate() / 100)

	// Buys fill above the close.
	fill := candle.Close.Mul(one.Add(slip))
	notional := s.balance.Mul(decimal.NewFromFloat(s.cfg.PositionSize / 100))
	entryFees := notional.Mul(feeRate)
	// Fees shrink the effective position rather than hitting the balance.
	quantity := notional.Sub(entryFees).Div(fill)
	if quantity.LessThanOrEqual(decimal.Zero) {
		return
	}

	s.position = &model.Position{
		EntryTime:     candle.CloseTime,
		EntryPrice:    fill,
		Type:          model.ActionBuy,
		Quantity:      quantity,
		EntryFees:     entryFees,
		EntrySlippage: fill.Sub(candle.Close).Mul(quantity),
	}
	if s.logger != nil {
		s.logger.Debug("opened position",
			zap.String("strategy", s.strat.Name()),
			zap.Time("time", candle.CloseTime),
			zap.String("fill", fill.String()),
			zap.String("quantity", quantity.String()),
		)
	}
}

func (s *Simulator) closePosition(candle model.Candle, reason model.ExitReason) {
	pos := s.position
	one := decimal.NewFromInt(1)
	slip := decimal.NewFromFloat(s.cfg.Slippage / 100)
	feeRate := decimal.NewFromFloat(s.cfg.FeeRate() / 100)

	// Sells fill below the close.
	fill := candle.Close.Mul(one.Sub(slip))
	gross := fill.Sub(pos.EntryPrice).Mul(pos.Quantity)
	exitFees := fill.Mul(pos.Quantity).Mul(feeRate)
	net := gross.Sub(pos.EntryFees).Sub(exitFees)

	cost := pos.EntryPrice.Mul(pos.Quantity)
	var pnlPct, netPct float64
	if !cost.IsZero() {
		pnlPct, _ = gross.Div(cost).Mul(decimal.NewFromInt(100)).Float64()
		netPct, _ = net.Div(cost).Mul(decimal.NewFromInt(100)).Float64()
	}

	s.trades = append(s.trades, model.SimTrade{
		EntryTime:        pos.EntryTime,
		ExitTime:         candle.CloseTime,
		EntryPrice:       pos.EntryPrice,
		ExitPrice:        fill,
		Type:             pos.Type,
		Quantity:         pos.Quantity,
		PnL:              gross,
		PnLPercentage:    pnlPct,
		EntryFees:        pos.EntryFees,
		ExitFees:         exitFees,
		EntrySlippage:    pos.EntrySlippage,
		ExitSlippage:     candle.Close.Sub(fill).Mul(pos.Quantity),
		NetPnL:           net,
		NetPnLPercentage: netPct,
		ExitReason:       reason,
	})
	s.balance = s.balance.Add(net)
	s.position = nil

	if s.logger != nil {
		s.logger.Debug("closed position",
			zap.String("strategy", s.strat.Name()),
			zap.String("reason", string(reason)),
			zap.String("netPnl", net.String()),
			zap.String("balance", s.balance.String()),
		)
	}
}

// pctChange is the unslipped percentage move from entry to the current close.
func pctChange(current, entry decimal.Decimal) float64 {
	if entry.IsZero() {
		return 0
	}
	v, _ := current.Sub(entry).Div(entry).Mul(decimal.NewFromInt(100)).Float64()
	return v
}
