// Package strategy turns candle windows into ordered BUY/SELL signal
// sequences. Generators are pure: identical inputs yield identical signals,
// which keeps backtests reproducible.
package strategy

import (
	"fmt"
	"sort"

	"crypto-backtester/internal/model"
)

// Params carries named numeric strategy parameters, e.g. {"sma_short": 5}.
type Params map[string]float64

// Get returns the named parameter or def when absent.
func (p Params) Get(name string, def float64) float64 {
	if v, ok := p[name]; ok {
		return v
	}
	return def
}

// GetInt returns the named parameter truncated to int, or def when absent.
func (p Params) GetInt(name string, def int) int {
	if v, ok := p[name]; ok {
		return int(v)
	}
	return def
}

// Strategy is the capability contract for signal generators. The engine never
// inspects strategy internals.
type Strategy interface {
	Name() string
	Generate(candles []model.Candle, params Params) []model.Signal
}

var registry = map[string]func() Strategy{
	"sma":    func() Strategy { return &SMACrossover{} },
	"rsi":    func() Strategy { return &RSIReversal{} },
	"macd":   func() Strategy { return &MACDCrossover{} },
	"bbands": func() Strategy { return &BollingerBounce{} },
}

// New returns the strategy registered under name.
func New(name string) (Strategy, error) {
	factory, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown strategy %q (available: %v)", name, Names())
	}
	return factory(), nil
}

// Names lists the registered strategy keys in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func makeSignal(c model.Candle, action model.Action, strategyID, reason string) model.Signal {
	return model.Signal{
		Symbol:     c.Symbol,
		Timestamp:  c.Timestamp,
		Action:     action,
		Price:      c.Close,
		StrategyID: strategyID,
		Reason:     reason,
	}
}
