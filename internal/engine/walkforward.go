package engine

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ired4706/binance-trading-bot/internal/indicator"
	"github.com/ired4706/binance-trading-bot/internal/model"
)

// SliceRunFunc runs one simulation for a parameter combination over an
// explicit candle slice. Walk-forward uses it to bind the same runner to the
// in-sample and out-of-sample windows of each period.
type SliceRunFunc func(ctx context.Context, candles []model.Candle, params model.ParamSet) (model.PerformanceMetrics, error)

// WalkForward partitions candles into rolling windows of windowDays,
// stepping by stepDays. Each period grid-search-optimizes on the in-sample
// slice and applies the winning parameters unmodified to the immediately
// following out-of-sample slice, which starts exactly at the in-sample end.
func (o *Optimizer) WalkForward(
	ctx context.Context,
	candles []model.Candle,
	windowDays, stepDays int,
	ranges []ParamRange,
	run SliceRunFunc,
) (*model.WalkForwardResult, error) {
	if len(candles) == 0 {
		return nil, fmt.Errorf("no candles for walk-forward analysis")
	}
	if windowDays <= 0 || stepDays <= 0 {
		return nil, fmt.Errorf("windowSize and stepSize must be positive days")
	}

	window := time.Duration(windowDays) * 24 * time.Hour
	step := time.Duration(stepDays) * 24 * time.Hour

	result := &model.WalkForwardResult{}
	var outSampleReturns []float64

	for start := candles[0].OpenTime; ; start = start.Add(step) {
		inEnd := start.Add(window)
		outEnd := inEnd.Add(step)

		inSample := sliceByTime(candles, start, inEnd)
		outSample := sliceByTime(candles, inEnd, outEnd)
		if len(outSample) == 0 {
			break
		}

		opt, err := o.GridSearch(ctx, ranges, func(ctx context.Context, params model.ParamSet) (model.PerformanceMetrics, error) {
			return run(ctx, inSample, params)
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			// A window too thin to optimize is skipped, not fatal.
			result.SkippedPeriods++
			if o.logger != nil {
				o.logger.Warn("walk-forward period skipped",
					zap.Time("start", start),
					zap.Error(err),
				)
			}
			continue
		}

		outMetrics, err := run(ctx, outSample, opt.BestParams)
		if err != nil {
			result.SkippedPeriods++
			continue
		}

		result.Periods = append(result.Periods, model.WalkForwardPeriod{
			InSampleStart: start,
			InSampleEnd:   inEnd,
			OutSampleEnd:  outEnd,
			Params:        opt.BestParams,
			InSample:      opt.BestMetrics,
			OutOfSample:   outMetrics,
		})
		outSampleReturns = append(outSampleReturns, outMetrics.NetReturnPct)
	}

	if len(result.Periods) == 0 {
		return nil, fmt.Errorf("walk-forward produced no usable periods")
	}

	result.AvgOutSamplePct = indicator.Mean(outSampleReturns)
	// Stability: signal-to-noise of the out-of-sample edge across periods.
	if sd := indicator.StdDev(outSampleReturns); sd > 0 {
		result.StabilityScore = sanitize(result.AvgOutSamplePct / sd)
	}
	return result, nil
}

// sliceByTime returns candles with OpenTime in [start, end).
func sliceByTime(candles []model.Candle, start, end time.Time) []model.Candle {
	lo := len(candles)
	for i, c := range candles {
		if !c.OpenTime.Before(start) {
			lo = i
			break
		}
	}
	hi := lo
	for hi < len(candles) && candles[hi].OpenTime.Before(end) {
		hi++
	}
	return candles[lo:hi]
}
