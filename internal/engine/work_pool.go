package engine

import (
	"context"
	"runtime"
	"sync"

	"go.uber.org/zap"

	"github.com/ired4706/binance-trading-bot/internal/model"
)

// RunFunc executes one independent simulation for a parameter combination
// and returns its performance metrics. Implementations must not share
// mutable state across calls; each combination gets a fresh config copy and
// strategy instance.
type RunFunc func(ctx context.Context, params model.ParamSet) (model.PerformanceMetrics, error)

// RunOutcome is one finished unit of sweep work.
type RunOutcome struct {
	Params  model.ParamSet
	Metrics model.PerformanceMetrics
	Err     error
}

// WorkerPool fans independent simulation runs across a bounded set of
// goroutines. Ordering of outcomes is irrelevant to every caller; results
// are recombined by scalar reduction.
type WorkerPool struct {
	workers int
	logger  *zap.Logger
}

func NewWorkerPool(workers int, logger *zap.Logger) *WorkerPool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &WorkerPool{workers: workers, logger: logger}
}

// Execute drains the jobs channel through run. The returned channel closes
// once all workers finish; cancellation via ctx stops pickup of new jobs.
func (p *WorkerPool) Execute(ctx context.Context, jobs <-chan model.ParamSet, run RunFunc) <-chan RunOutcome {
	out := make(chan RunOutcome, p.workers)

	var wg sync.WaitGroup
	wg.Add(p.workers)
	for i := 0; i < p.workers; i++ {
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case params, ok := <-jobs:
					if !ok {
						return
					}
					metrics, err := run(ctx, params)
					if err != nil && p.logger != nil {
						p.logger.Debug("simulation run failed",
							zap.Any("params", params),
							zap.Error(err),
						)
					}
					select {
					case out <- RunOutcome{Params: params, Metrics: metrics, Err: err}:
					case <-ctx.Done():
						return
					}
				}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(out)
	}()
	return out
}
