// Package storage persists signals and trades for later querying. Durability
// is the sink's own concern: the engine logs a failed write and moves on.
package storage

import (
	"context"
	"sync"

	"crypto-backtester/internal/model"
)

// Sink receives every signal the engine consumes and every trade it closes.
type Sink interface {
	RecordSignal(ctx context.Context, sig model.Signal) error
	RecordTrade(ctx context.Context, trade model.Trade) error
}

// NopSink discards everything. Used when storage is disabled.
type NopSink struct{}

func (NopSink) RecordSignal(context.Context, model.Signal) error { return nil }
func (NopSink) RecordTrade(context.Context, model.Trade) error   { return nil }

// MemorySink keeps records in memory, for tests and ad-hoc backtests.
type MemorySink struct {
	mu      sync.Mutex
	signals []model.Signal
	trades  []model.Trade
}

func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (s *MemorySink) RecordSignal(_ context.Context, sig model.Signal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.signals = append(s.signals, sig)
	return nil
}

func (s *MemorySink) RecordTrade(_ context.Context, trade model.Trade) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trades = append(s.trades, trade)
	return nil
}

// Signals returns a copy of the recorded signals.
func (s *MemorySink) Signals() []model.Signal {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Signal, len(s.signals))
	copy(out, s.signals)
	return out
}

// Trades returns a copy of the recorded trades.
func (s *MemorySink) Trades() []model.Trade {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Trade, len(s.trades))
	copy(out, s.trades)
	return out
}
