package api

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ired4706/binance-trading-bot/internal/engine"
	"github.com/ired4706/binance-trading-bot/internal/infrastructure"
	"github.com/ired4706/binance-trading-bot/internal/market"
	"github.com/ired4706/binance-trading-bot/internal/model"
	"github.com/ired4706/binance-trading-bot/internal/strategy"
)

// Handler wires the backtest engine to HTTP. Every run builds its own
// strategy instance and balance from scratch, so concurrent requests share
// nothing mutable.
type Handler struct {
	provider  market.HistoricalDataProvider
	optimizer *engine.Optimizer
	logger    *zap.Logger
}

func NewHandler(provider market.HistoricalDataProvider, optimizer *engine.Optimizer, logger *zap.Logger) *Handler {
	return &Handler{
		provider:  provider,
		optimizer: optimizer,
		logger:    logger,
	}
}

// Response is the uniform envelope: {success, data?, error?}.
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func ok(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{Success: true, Data: data})
}

func clientError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, Response{Success: false, Error: err.Error()})
}

func serverError(c *gin.Context, err error) {
	c.JSON(http.StatusInternalServerError, Response{Success: false, Error: err.Error()})
}

// BacktestRequest is the single-backtest body; the optimization endpoints
// extend it.
type BacktestRequest struct {
	Symbol         string               `json:"symbol" binding:"required"`
	Interval       string               `json:"interval" binding:"required"`
	Strategy       string               `json:"strategy"`
	StartTime      int64                `json:"startTime"` // epoch-ms, optional
	EndTime        int64                `json:"endTime"`   // epoch-ms, optional
	Config         model.BacktestConfig `json:"config"`
	StrategyParams map[string]float64   `json:"strategyParams"`
}

func (r *BacktestRequest) query() market.Query {
	q := market.Query{
		Symbol:   normalizeSymbol(r.Symbol),
		Interval: r.Interval,
	}
	if r.StartTime > 0 {
		q.StartTime = time.UnixMilli(r.StartTime)
	}
	if r.EndTime > 0 {
		q.EndTime = time.UnixMilli(r.EndTime)
	}
	return q
}

func normalizeSymbol(s string) string {
	s = strings.ToUpper(s)
	s = strings.ReplaceAll(s, "-", "")
	s = strings.ReplaceAll(s, "/", "")
	return s
}

// runBacktest is the shared core path: validate, fetch, simulate, analyze.
func (h *Handler) runBacktest(ctx context.Context, req BacktestRequest) (*model.BacktestResult, []model.Candle, error) {
	if err := req.Config.Validate(); err != nil {
		return nil, nil, err
	}
	strat, err := strategy.New(req.Strategy, req.StrategyParams)
	if err != nil {
		return nil, nil, err
	}

	candles, err := h.provider.Candles(ctx, req.query())
	if err != nil {
		return nil, nil, fmt.Errorf("fetching historical data: %w", err)
	}

	start := time.Now()
	result, err := engine.NewSimulator(strat, req.Config, h.logger).Run(candles)
	status := "ok"
	if err != nil {
		status = "error"
	}
	infrastructure.BacktestRuns.WithLabelValues(req.Strategy, status).Inc()
	infrastructure.BacktestDuration.WithLabelValues(req.Strategy).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, nil, err
	}
	result.Symbol = normalizeSymbol(req.Symbol)
	result.Interval = req.Interval
	return result, candles, nil
}

// POST /api/v1/backtest
func (h *Handler) RunBacktest(c *gin.Context) {
	var req BacktestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		clientError(c, err)
		return
	}
	result, _, err := h.runBacktest(c.Request.Context(), req)
	if err != nil {
		clientError(c, err)
		return
	}
	ok(c, result)
}

// OptimizeRequest adds named parameter ranges to sweep.
type OptimizeRequest struct {
	BacktestRequest
	ParamRanges map[string][]float64 `json:"paramRanges" binding:"required"`
}

// applyParams lays a grid combination over the request: config fields by
// their JSON names, everything else forwarded to the strategy constructor.
func applyParams(req BacktestRequest, params model.ParamSet) BacktestRequest {
	out := req
	out.StrategyParams = make(map[string]float64, len(req.StrategyParams)+len(params))
	for k, v := range req.StrategyParams {
		out.StrategyParams[k] = v
	}
	for name, value := range params {
		switch name {
		case "stopLoss":
			out.Config.StopLoss = value
		case "takeProfit":
			out.Config.TakeProfit = value
		case "positionSize":
			out.Config.PositionSize = value
		case "slippage":
			out.Config.Slippage = value
		default:
			out.StrategyParams[name] = value
		}
	}
	return out
}

// POST /api/v1/optimize
func (h *Handler) Optimize(c *gin.Context) {
	var req OptimizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		clientError(c, err)
		return
	}
	if err := req.Config.Validate(); err != nil {
		clientError(c, err)
		return
	}
	if _, err := strategy.New(req.Strategy, req.StrategyParams); err != nil {
		clientError(c, err)
		return
	}
	ranges, err := engine.RangesFromMap(req.ParamRanges)
	if err != nil {
		clientError(c, err)
		return
	}

	ctx := c.Request.Context()
	candles, err := h.provider.Candles(ctx, req.query())
	if err != nil {
		serverError(c, fmt.Errorf("fetching historical data: %w", err))
		return
	}

	result, err := h.optimizer.GridSearch(ctx, ranges, h.sliceRunner(req.BacktestRequest, candles))
	if err != nil {
		clientError(c, err)
		return
	}
	infrastructure.SweepCombinations.Observe(float64(result.Combinations))
	ok(c, result)
}

// sliceRunner binds one candle slice into a RunFunc for the optimizer.
func (h *Handler) sliceRunner(req BacktestRequest, candles []model.Candle) engine.RunFunc {
	return func(ctx context.Context, params model.ParamSet) (model.PerformanceMetrics, error) {
		if err := ctx.Err(); err != nil {
			return model.PerformanceMetrics{}, err
		}
		run := applyParams(req, params)
		if err := run.Config.Validate(); err != nil {
			return model.PerformanceMetrics{}, err
		}
		strat, err := strategy.New(run.Strategy, run.StrategyParams)
		if err != nil {
			return model.PerformanceMetrics{}, err
		}
		result, err := engine.NewSimulator(strat, run.Config, nil).Run(candles)
		if err != nil {
			return model.PerformanceMetrics{}, err
		}
		return result.Performance, nil
	}
}

// MonteCarloRequest adds the simulation count.
type MonteCarloRequest struct {
	BacktestRequest
	Simulations int `json:"simulations"`
}

// POST /api/v1/monte-carlo
func (h *Handler) MonteCarlo(c *gin.Context) {
	var req MonteCarloRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		clientError(c, err)
		return
	}
	if req.Simulations < 0 || req.Simulations > 100000 {
		clientError(c, fmt.Errorf("simulations must be in [1,100000], got %d", req.Simulations))
		return
	}

	result, _, err := h.runBacktest(c.Request.Context(), req.BacktestRequest)
	if err != nil {
		clientError(c, err)
		return
	}
	returns := make([]float64, len(result.Trades))
	for i, t := range result.Trades {
		returns[i] = t.NetPnLPercentage
	}

	mc, err := engine.MonteCarlo(returns, req.Simulations, -1)
	if err != nil {
		clientError(c, err)
		return
	}
	ok(c, gin.H{"backtest": result.Performance, "monteCarlo": mc})
}

// WalkForwardRequest adds the rolling-window geometry.
type WalkForwardRequest struct {
	OptimizeRequest
	WindowSize int `json:"windowSize" binding:"required"` // days
	StepSize   int `json:"stepSize" binding:"required"`   // days
}

// POST /api/v1/walk-forward
func (h *Handler) WalkForward(c *gin.Context) {
	var req WalkForwardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		clientError(c, err)
		return
	}
	if err := req.Config.Validate(); err != nil {
		clientError(c, err)
		return
	}
	if _, err := strategy.New(req.Strategy, req.StrategyParams); err != nil {
		clientError(c, err)
		return
	}
	ranges, err := engine.RangesFromMap(req.ParamRanges)
	if err != nil {
		clientError(c, err)
		return
	}

	ctx := c.Request.Context()
	candles, err := h.provider.Candles(ctx, req.query())
	if err != nil {
		serverError(c, fmt.Errorf("fetching historical data: %w", err))
		return
	}

	run := func(ctx context.Context, slice []model.Candle, params model.ParamSet) (model.PerformanceMetrics, error) {
		return h.sliceRunner(req.BacktestRequest, slice)(ctx, params)
	}
	result, err := h.optimizer.WalkForward(ctx, candles, req.WindowSize, req.StepSize, ranges, run)
	if err != nil {
		clientError(c, err)
		return
	}
	ok(c, result)
}

// CompareRequest runs several strategies over the same data.
type CompareRequest struct {
	BacktestRequest
	Strategies []string `json:"strategies" binding:"required"`
}

// StrategyComparison is one ranked entry of a compare run.
type StrategyComparison struct {
	Strategy    string                   `json:"strategy"`
	Performance model.PerformanceMetrics `json:"performance"`
	Error       string                   `json:"error,omitempty"`
}

// POST /api/v1/compare
func (h *Handler) Compare(c *gin.Context) {
	var req CompareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		clientError(c, err)
		return
	}
	if len(req.Strategies) == 0 {
		clientError(c, fmt.Errorf("strategies must not be empty"))
		return
	}
	if err := req.Config.Validate(); err != nil {
		clientError(c, err)
		return
	}

	ctx := c.Request.Context()
	candles, err := h.provider.Candles(ctx, req.query())
	if err != nil {
		serverError(c, fmt.Errorf("fetching historical data: %w", err))
		return
	}

	var ranked []StrategyComparison
	var failed []StrategyComparison
	for _, name := range req.Strategies {
		strat, err := strategy.New(name, req.StrategyParams)
		if err != nil {
			failed = append(failed, StrategyComparison{Strategy: name, Error: err.Error()})
			continue
		}
		result, err := engine.NewSimulator(strat, req.Config, nil).Run(candles)
		if err != nil {
			failed = append(failed, StrategyComparison{Strategy: name, Error: err.Error()})
			continue
		}
		ranked = append(ranked, StrategyComparison{Strategy: name, Performance: result.Performance})
	}
	if len(ranked) == 0 {
		clientError(c, fmt.Errorf("all %d strategies failed", len(req.Strategies)))
		return
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Performance.NetSharpeRatio > ranked[j].Performance.NetSharpeRatio
	})
	ok(c, gin.H{"ranking": ranked, "failed": failed})
}

// RiskMetricsRequest adds the VaR confidence level and Omega threshold.
type RiskMetricsRequest struct {
	BacktestRequest
	ConfidenceLevel float64 `json:"confidenceLevel"`
	OmegaThreshold  float64 `json:"omegaThreshold"`
}

// POST /api/v1/risk-metrics
func (h *Handler) RiskMetrics(c *gin.Context) {
	var req RiskMetricsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		clientError(c, err)
		return
	}
	if req.ConfidenceLevel == 0 {
		req.ConfidenceLevel = 0.95
	}
	if req.ConfidenceLevel <= 0 || req.ConfidenceLevel >= 1 {
		clientError(c, fmt.Errorf("confidenceLevel must be in (0,1), got %v", req.ConfidenceLevel))
		return
	}

	result, _, err := h.runBacktest(c.Request.Context(), req.BacktestRequest)
	if err != nil {
		clientError(c, err)
		return
	}
	risk := engine.ComputeRiskMetrics(result.Trades, req.Config, req.ConfidenceLevel, req.OmegaThreshold)
	ok(c, gin.H{"performance": result.Performance, "risk": risk})
}

// GET /api/v1/klines/:symbol
func (h *Handler) GetHistoryCandles(c *gin.Context) {
	symbol := normalizeSymbol(c.Param("symbol"))
	interval := c.DefaultQuery("interval", "1m")

	candles, err := h.provider.Candles(c.Request.Context(), market.Query{
		Symbol:   symbol,
		Interval: interval,
		Limit:    100,
	})
	if err != nil {
		h.logger.Error("failed to fetch candles", zap.Error(err))
		serverError(c, err)
		return
	}
	ok(c, candles)
}

// GET /api/v1/strategies
func (h *Handler) ListStrategies(c *gin.Context) {
	ok(c, strategy.Names())
}
