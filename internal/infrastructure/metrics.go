package infrastructure

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BacktestRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "backtest_runs_total",
		Help: "Total number of backtest simulations executed",
	}, []string{"strategy", "status"})

	BacktestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "backtest_duration_seconds",
		Help:    "Wall time of a single backtest simulation",
		Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
	}, []string{"strategy"})

	SweepCombinations = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "optimization_sweep_combinations",
		Help:    "Parameter combinations per grid-search sweep",
		Buckets: prometheus.ExponentialBuckets(1, 4, 8),
	})

	WSConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ws_connections_total",
		Help: "Total number of active WebSocket connections",
	})

	TradeProcessRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trade_process_total",
		Help: "Total number of live trades processed",
	}, []string{"symbol"})
)
