package engine

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/ired4706/binance-trading-bot/internal/model"
)

func feedJobs(n int) <-chan model.ParamSet {
	jobs := make(chan model.ParamSet, n)
	for i := 0; i < n; i++ {
		jobs <- model.ParamSet{"id": float64(i)}
	}
	close(jobs)
	return jobs
}

func TestWorkerPool_ProcessesAllJobs(t *testing.T) {
	pool := NewWorkerPool(4, zap.NewNop())

	var calls int64
	run := func(ctx context.Context, params model.ParamSet) (model.PerformanceMetrics, error) {
		atomic.AddInt64(&calls, 1)
		return model.PerformanceMetrics{NetSharpeRatio: params["id"]}, nil
	}

	seen := map[float64]bool{}
	for outcome := range pool.Execute(context.Background(), feedJobs(20), run) {
		assert.NoError(t, outcome.Err)
		seen[outcome.Params["id"]] = true
	}

	assert.EqualValues(t, 20, atomic.LoadInt64(&calls))
	assert.Len(t, seen, 20)
}

func TestWorkerPool_PropagatesRunErrors(t *testing.T) {
	pool := NewWorkerPool(2, zap.NewNop())

	run := func(ctx context.Context, params model.ParamSet) (model.PerformanceMetrics, error) {
		if int(params["id"])%2 == 0 {
			return model.PerformanceMetrics{}, fmt.Errorf("combination %v failed", params["id"])
		}
		return model.PerformanceMetrics{}, nil
	}

	var failed int
	for outcome := range pool.Execute(context.Background(), feedJobs(10), run) {
		if outcome.Err != nil {
			failed++
		}
	}
	assert.Equal(t, 5, failed)
}

func TestWorkerPool_DefaultsWorkerCount(t *testing.T) {
	pool := NewWorkerPool(0, zap.NewNop())
	assert.Greater(t, pool.workers, 0)
}

func TestWorkerPool_CancelledContextCloses(t *testing.T) {
	pool := NewWorkerPool(2, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	run := func(ctx context.Context, params model.ParamSet) (model.PerformanceMetrics, error) {
		return model.PerformanceMetrics{}, nil
	}

	// The outcome channel must still close so the consumer loop terminates.
	for range pool.Execute(ctx, feedJobs(100), run) {
	}
}
