package engine

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/ired4706/binance-trading-bot/internal/model"
)

// ParamRange is one named axis of a grid search.
type ParamRange struct {
	Name   string
	Values []float64
}

// RangesFromMap converts the request shape into deterministic axis order.
func RangesFromMap(ranges map[string][]float64) ([]ParamRange, error) {
	names := make([]string, 0, len(ranges))
	for name, values := range ranges {
		if len(values) == 0 {
			return nil, fmt.Errorf("parameter range %q is empty", name)
		}
		names = append(names, name)
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("no parameter ranges given")
	}
	sort.Strings(names)

	out := make([]ParamRange, len(names))
	for i, name := range names {
		out[i] = ParamRange{Name: name, Values: ranges[name]}
	}
	return out, nil
}

// Optimizer runs grid searches over independent simulator passes.
type Optimizer struct {
	pool   *WorkerPool
	logger *zap.Logger
}

func NewOptimizer(pool *WorkerPool, logger *zap.Logger) *Optimizer {
	return &Optimizer{pool: pool, logger: logger}
}

// GridSearch enumerates the full Cartesian product of ranges lazily, runs
// one independent simulation per combination and selects the one maximizing
// the net Sharpe ratio. Individual combination failures are skipped; the
// sweep errors only when zero combinations succeed.
func (o *Optimizer) GridSearch(ctx context.Context, ranges []ParamRange, run RunFunc) (*model.OptimizationResult, error) {
	if len(ranges) == 0 {
		return nil, fmt.Errorf("no parameter ranges given")
	}

	total := 1
	for _, r := range ranges {
		total *= len(r.Values)
	}

	jobs := make(chan model.ParamSet)
	go func() {
		defer close(jobs)
		// Odometer-style lazy product so memory stays bounded as ranges grow.
		idx := make([]int, len(ranges))
		for {
			params := make(model.ParamSet, len(ranges))
			for i, r := range ranges {
				params[r.Name] = r.Values[idx[i]]
			}
			select {
			case jobs <- params:
			case <-ctx.Done():
				return
			}

			pos := len(idx) - 1
			for pos >= 0 {
				idx[pos]++
				if idx[pos] < len(ranges[pos].Values) {
					break
				}
				idx[pos] = 0
				pos--
			}
			if pos < 0 {
				return
			}
		}
	}()

	result := &model.OptimizationResult{Combinations: total}
	bestSharpe := 0.0
	for outcome := range o.pool.Execute(ctx, jobs, run) {
		if outcome.Err != nil {
			result.Failed++
			continue
		}
		result.AllResults = append(result.AllResults, model.OptimizationRun{
			Params:  outcome.Params,
			Metrics: outcome.Metrics,
		})
		if result.BestParams == nil || outcome.Metrics.NetSharpeRatio > bestSharpe {
			bestSharpe = outcome.Metrics.NetSharpeRatio
			result.BestParams = outcome.Params
			result.BestMetrics = outcome.Metrics
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(result.AllResults) == 0 {
		return nil, fmt.Errorf("all %d parameter combinations failed", total)
	}
	if o.logger != nil {
		o.logger.Info("grid search finished",
			zap.Int("combinations", total),
			zap.Int("failed", result.Failed),
			zap.Float64("bestNetSharpe", bestSharpe),
			zap.Any("bestParams", result.BestParams),
		)
	}
	return result, nil
}
