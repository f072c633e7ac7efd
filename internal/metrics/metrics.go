// Package metrics exposes the live loop's health counters. Counters follow a
// single-writer discipline: only the loop mutates them, readers use atomic
// loads and never block the writer.
package metrics

import (
	"math"
	"sync/atomic"
)

// Counters is the monotonic counter set plus a liveness flag, created per
// live-loop instance.
type Counters struct {
	signalsGenerated atomic.Int64
	tradesExecuted   atomic.Int64
	errorsTotal      atomic.Int64
	realizedPnLBits  atomic.Uint64
	alive            atomic.Bool
}

func NewCounters() *Counters {
	return &Counters{}
}

func (c *Counters) AddSignals(n int)  { c.signalsGenerated.Add(int64(n)) }
func (c *Counters) IncTrades()        { c.tradesExecuted.Add(1) }
func (c *Counters) IncErrors()        { c.errorsTotal.Add(1) }
func (c *Counters) SetAlive(up bool)  { c.alive.Store(up) }
func (c *Counters) SetRealizedPnL(v float64) {
	c.realizedPnLBits.Store(math.Float64bits(v))
}

func (c *Counters) SignalsGenerated() int64 { return c.signalsGenerated.Load() }
func (c *Counters) TradesExecuted() int64   { return c.tradesExecuted.Load() }
func (c *Counters) ErrorsTotal() int64      { return c.errorsTotal.Load() }
func (c *Counters) Alive() bool             { return c.alive.Load() }
func (c *Counters) RealizedPnL() float64 {
	return math.Float64frombits(c.realizedPnLBits.Load())
}
