package engine

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"crypto-backtester/internal/model"
	"crypto-backtester/internal/strategy"
)

// GridPoint pairs one parameter combination with its backtest result.
type GridPoint struct {
	Params strategy.Params
	Result Result
}

// Tune grid-searches the strategy's parameter space. Every grid point runs an
// independent backtest over the same candles; no state is shared between
// points. Results are sorted by NetPnL descending with MaxDrawdown ascending
// as the tie-break, and the ordering is reproducible for identical inputs.
func (e *Engine) Tune(ctx context.Context, candles []model.Candle, grid map[string][]float64, strat strategy.Strategy) []GridPoint {
	keys := make([]string, 0, len(grid))
	for k := range grid {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	points := expandGrid(keys, grid)
	results := make([]GridPoint, 0, len(points))
	for _, params := range points {
		signals := strat.Generate(candles, params)
		e.logger.Info("Tuning grid point",
			zap.String("strategy", strat.Name()),
			zap.Any("params", params),
			zap.Int("signals", len(signals)))
		results = append(results, GridPoint{
			Params: params,
			Result: e.Run(ctx, candles, signals),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Result.NetPnL != results[j].Result.NetPnL {
			return results[i].Result.NetPnL > results[j].Result.NetPnL
		}
		return results[i].Result.MaxDrawdown < results[j].Result.MaxDrawdown
	})
	return results
}

// expandGrid builds the cartesian product of the value lists, iterating keys
// in sorted order so the expansion is deterministic.
func expandGrid(keys []string, grid map[string][]float64) []strategy.Params {
	combos := []strategy.Params{{}}
	for _, key := range keys {
		values := grid[key]
		next := make([]strategy.Params, 0, len(combos)*len(values))
		for _, combo := range combos {
			for _, v := range values {
				expanded := make(strategy.Params, len(combo)+1)
				for k, cv := range combo {
					expanded[k] = cv
				}
				expanded[key] = v
				next = append(next, expanded)
			}
		}
		combos = next
	}
	return combos
}
