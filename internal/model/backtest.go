package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	ActionHold Action = "HOLD"
)

type ExitReason string

const (
	ExitSignal     ExitReason = "SIGNAL"
	ExitStopLoss   ExitReason = "STOP_LOSS"
	ExitTakeProfit ExitReason = "TAKE_PROFIT"
	ExitEndOfData  ExitReason = "END_OF_DATA"
)

// Signal is what a strategy emits for one processed candle.
type Signal struct {
	Action     Action          `json:"action"`
	Confidence float64         `json:"confidence"` // [0,1]
	Reason     string          `json:"reason"`
	Price      decimal.Decimal `json:"price"`
	Timestamp  time.Time       `json:"timestamp"`
}

// Position is an open long held by the simulator. At most one exists per run.
type Position struct {
	EntryTime     time.Time       `json:"entryTime"`
	EntryPrice    decimal.Decimal `json:"entryPrice"`
	Type          Action          `json:"type"`
	Quantity      decimal.Decimal `json:"quantity"`
	EntryFees     decimal.Decimal `json:"entryFees"`
	EntrySlippage decimal.Decimal `json:"entrySlippage"`
}

// SimTrade is a closed round trip. Immutable once appended to a run's trade
// list. NetPnL = PnL - EntryFees - ExitFees always holds.
type SimTrade struct {
	EntryTime        time.Time       `json:"entryTime"`
	ExitTime         time.Time       `json:"exitTime"`
	EntryPrice       decimal.Decimal `json:"entryPrice"`
	ExitPrice        decimal.Decimal `json:"exitPrice"`
	Type             Action          `json:"type"`
	Quantity         decimal.Decimal `json:"quantity"`
	PnL              decimal.Decimal `json:"pnl"`
	PnLPercentage    float64         `json:"pnlPercentage"`
	EntryFees        decimal.Decimal `json:"entryFees"`
	ExitFees         decimal.Decimal `json:"exitFees"`
	EntrySlippage    decimal.Decimal `json:"entrySlippage"`
	ExitSlippage     decimal.Decimal `json:"exitSlippage"`
	NetPnL           decimal.Decimal `json:"netPnl"`
	NetPnLPercentage float64         `json:"netPnlPercentage"`
	ExitReason       ExitReason      `json:"exitReason"`
}

// BacktestConfig is immutable per run. Percentage fields are plain percents
// (stopLoss 3 means 3%).
type BacktestConfig struct {
	InitialBalance float64 `json:"initialBalance"`
	PositionSize   float64 `json:"positionSize"`
	StopLoss       float64 `json:"stopLoss"`
	TakeProfit     float64 `json:"takeProfit"`
	MaxPositions   int     `json:"maxPositions"`
	Slippage       float64 `json:"slippage"`
	MakerFees      float64 `json:"makerFees"`
	TakerFees      float64 `json:"takerFees"`
	UseMakerFees   bool    `json:"useMakerFees"`
}

// FeeRate returns the applicable fee percentage.
func (c BacktestConfig) FeeRate() float64 {
	if c.UseMakerFees {
		return c.MakerFees
	}
	return c.TakerFees
}

// Validate rejects configs before any simulation executes.
func (c BacktestConfig) Validate() error {
	if c.InitialBalance <= 0 {
		return fmt.Errorf("initialBalance must be positive, got %v", c.InitialBalance)
	}
	if c.PositionSize <= 0 || c.PositionSize > 100 {
		return fmt.Errorf("positionSize must be in (0,100], got %v", c.PositionSize)
	}
	if c.StopLoss <= 0 {
		return fmt.Errorf("stopLoss must be positive, got %v", c.StopLoss)
	}
	if c.TakeProfit <= 0 {
		return fmt.Errorf("takeProfit must be positive, got %v", c.TakeProfit)
	}
	if c.Slippage < 0 {
		return fmt.Errorf("slippage must not be negative, got %v", c.Slippage)
	}
	if c.MakerFees < 0 || c.TakerFees < 0 {
		return fmt.Errorf("fees must not be negative")
	}
	if c.MaxPositions > 1 {
		return fmt.Errorf("maxPositions above 1 is not supported, got %d", c.MaxPositions)
	}
	return nil
}

// PerformanceMetrics is recomputed fresh from a completed trade list.
// Losses and drawdowns are reported as positive magnitudes.
type PerformanceMetrics struct {
	TotalTrades          int     `json:"totalTrades"`
	GrossReturn          float64 `json:"grossReturn"`
	GrossReturnPct       float64 `json:"grossReturnPct"`
	NetReturn            float64 `json:"netReturn"`
	NetReturnPct         float64 `json:"netReturnPct"`
	WinRate              float64 `json:"winRate"`
	AvgWin               float64 `json:"avgWin"`
	AvgLoss              float64 `json:"avgLoss"`
	NetAvgWin            float64 `json:"netAvgWin"`
	NetAvgLoss           float64 `json:"netAvgLoss"`
	ProfitFactor         float64 `json:"profitFactor"`
	NetProfitFactor      float64 `json:"netProfitFactor"`
	MaxDrawdown          float64 `json:"maxDrawdown"`
	MaxDrawdownPct       float64 `json:"maxDrawdownPct"`
	NetMaxDrawdown       float64 `json:"netMaxDrawdown"`
	NetMaxDrawdownPct    float64 `json:"netMaxDrawdownPct"`
	SharpeRatio          float64 `json:"sharpeRatio"`
	NetSharpeRatio       float64 `json:"netSharpeRatio"`
	SortinoRatio         float64 `json:"sortinoRatio"`
	CalmarRatio          float64 `json:"calmarRatio"`
	MaxConsecutiveWins   int     `json:"maxConsecutiveWins"`
	MaxConsecutiveLosses int     `json:"maxConsecutiveLosses"`
	AvgConsecutiveWins   float64 `json:"avgConsecutiveWins"`
	AvgConsecutiveLosses float64 `json:"avgConsecutiveLosses"`
	TotalFees            float64 `json:"totalFees"`
	TotalSlippage        float64 `json:"totalSlippage"`
}

// RiskMetrics layers tail-risk statistics on top of a finished run. A run
// with no losing trades has an unbounded Omega ratio; OmegaUnbounded flags
// that case and OmegaRatio is left at 0 so the JSON stays finite.
type RiskMetrics struct {
	ConfidenceLevel   float64 `json:"confidenceLevel"`
	ValueAtRisk       float64 `json:"valueAtRisk"`
	ExpectedShortfall float64 `json:"expectedShortfall"`
	OmegaRatio        float64 `json:"omegaRatio"`
	OmegaUnbounded    bool    `json:"omegaUnbounded"`
	UlcerIndex        float64 `json:"ulcerIndex"`
}

// BacktestResult is the full output of one simulation run.
type BacktestResult struct {
	Strategy    string             `json:"strategy"`
	Symbol      string             `json:"symbol"`
	Interval    string             `json:"interval"`
	Config      BacktestConfig     `json:"config"`
	Signals     []Signal           `json:"signals"`
	Trades      []SimTrade         `json:"trades"`
	Performance PerformanceMetrics `json:"performance"`
}

// ParamSet is one point in a grid search.
type ParamSet map[string]float64

// OptimizationRun is the outcome of a single parameter combination.
type OptimizationRun struct {
	Params  ParamSet           `json:"params"`
	Metrics PerformanceMetrics `json:"metrics"`
}

// OptimizationResult summarizes a full grid search. BestParams maximizes the
// net Sharpe ratio across AllResults.
type OptimizationResult struct {
	BestParams   ParamSet           `json:"bestParams"`
	BestMetrics  PerformanceMetrics `json:"bestMetrics"`
	AllResults   []OptimizationRun  `json:"allResults"`
	Combinations int                `json:"combinations"`
	Failed       int                `json:"failed"`
}

// MonteCarloResult is the percentile ladder of bootstrapped cumulative
// returns, all in percent of initial balance.
type MonteCarloResult struct {
	Simulations   int     `json:"simulations"`
	TradesPerSim  int     `json:"tradesPerSim"`
	WorstCase     float64 `json:"worstCase"`
	BestCase      float64 `json:"bestCase"`
	ExpectedValue float64 `json:"expectedValue"`
	P5            float64 `json:"p5"`
	P10           float64 `json:"p10"`
	P25           float64 `json:"p25"`
	P50           float64 `json:"p50"`
	P75           float64 `json:"p75"`
	P90           float64 `json:"p90"`
	P95           float64 `json:"p95"`
}

// WalkForwardPeriod is one in-sample/out-of-sample pair. The out-of-sample
// slice starts exactly where the in-sample slice ends.
type WalkForwardPeriod struct {
	InSampleStart time.Time          `json:"inSampleStart"`
	InSampleEnd   time.Time          `json:"inSampleEnd"`
	OutSampleEnd  time.Time          `json:"outSampleEnd"`
	Params        ParamSet           `json:"params"`
	InSample      PerformanceMetrics `json:"inSample"`
	OutOfSample   PerformanceMetrics `json:"outOfSample"`
}

// WalkForwardResult aggregates rolling-window validation. StabilityScore is
// mean(out-of-sample net return %) / stdev(out-of-sample net return %).
type WalkForwardResult struct {
	Periods         []WalkForwardPeriod `json:"periods"`
	AvgOutSamplePct float64             `json:"avgOutOfSampleReturnPct"`
	StabilityScore  float64             `json:"stabilityScore"`
	SkippedPeriods  int                 `json:"skippedPeriods"`
}
