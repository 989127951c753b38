package engine

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/ired4706/binance-trading-bot/internal/indicator"
	"github.com/ired4706/binance-trading-bot/internal/model"
)

// DefaultSimulations is the Monte Carlo sample count when the request omits
// one.
const DefaultSimulations = 1000

// MonteCarlo bootstraps the empirical per-trade net-return distribution:
// each sample draws len(returns) returns with replacement and sums them into
// one cumulative-return outcome. It quantifies path-dependence risk given
// the strategy's actual edge distribution; the strategy itself is not
// re-run. seed < 0 means time-seeded.
func MonteCarlo(returns []float64, simulations int, seed int64) (*model.MonteCarloResult, error) {
	if len(returns) == 0 {
		return nil, fmt.Errorf("no trades to resample")
	}
	if simulations <= 0 {
		simulations = DefaultSimulations
	}
	if seed < 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	samples := make([]float64, simulations)
	for i := range samples {
		var sum float64
		for j := 0; j < len(returns); j++ {
			sum += returns[rng.Intn(len(returns))]
		}
		samples[i] = sum
	}
	sort.Float64s(samples)

	return &model.MonteCarloResult{
		Simulations:   simulations,
		TradesPerSim:  len(returns),
		WorstCase:     samples[0],
		BestCase:      samples[len(samples)-1],
		ExpectedValue: indicator.Mean(samples),
		P5:            percentile(samples, 5),
		P10:           percentile(samples, 10),
		P25:           percentile(samples, 25),
		P50:           percentile(samples, 50),
		P75:           percentile(samples, 75),
		P90:           percentile(samples, 90),
		P95:           percentile(samples, 95),
	}, nil
}

// percentile indexes into an ascending-sorted sample set.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Floor(float64(len(sorted)) * p / 100))
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
