package executor

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"crypto-backtester/internal/model"
)

// DryRunSink simulates fills at the last known market price. It never talks
// to a venue and always succeeds once a price is known.
type DryRunSink struct {
	logger *zap.Logger

	mu         sync.RWMutex
	lastPrices map[string]float64
	fills      int
}

func NewDryRunSink(logger *zap.Logger) *DryRunSink {
	return &DryRunSink{
		logger:     logger.With(zap.String("sink", "dry-run")),
		lastPrices: make(map[string]float64),
	}
}

// SetPrice records the latest observed price for symbol. The live loop calls
// this on every tick before dispatching orders.
func (s *DryRunSink) SetPrice(symbol string, price float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastPrices[symbol] = price
}

func (s *DryRunSink) Submit(_ context.Context, symbol string, side model.Action, quantity float64) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	price, ok := s.lastPrices[symbol]
	if !ok || price <= 0 {
		return 0, fmt.Errorf("%w: no price seen for %s yet", ErrOrderRejected, symbol)
	}
	s.fills++

	s.logger.Info("Simulated fill",
		zap.String("symbol", symbol),
		zap.String("side", string(side)),
		zap.Float64("qty", quantity),
		zap.Float64("price", price))
	return price, nil
}

// Fills returns the number of simulated executions.
func (s *DryRunSink) Fills() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fills
}
