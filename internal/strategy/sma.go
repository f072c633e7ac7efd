package strategy

import (
	"crypto-backtester/internal/model"
	"crypto-backtester/pkg/ta"
)

// SMACrossover emits BUY when the short moving average crosses above the
// long one, SELL when it crosses back below.
type SMACrossover struct{}

func (s *SMACrossover) Name() string { return "sma" }

func (s *SMACrossover) Generate(candles []model.Candle, params Params) []model.Signal {
	short := params.GetInt("sma_short", 5)
	long := params.GetInt("sma_long", 20)
	if short >= long {
		short, long = long, short
	}

	closes := ta.Closes(candles)
	fast := ta.Sma(closes, short)
	slow := ta.Sma(closes, long)
	if fast == nil || slow == nil {
		return nil
	}

	var signals []model.Signal
	for i := long; i < len(candles); i++ {
		if ta.CrossAbove(fast, slow, i) {
			signals = append(signals, makeSignal(candles[i], model.ActionBuy, s.Name(), "sma crossover up"))
		} else if ta.CrossBelow(fast, slow, i) {
			signals = append(signals, makeSignal(candles[i], model.ActionSell, s.Name(), "sma crossover down"))
		}
	}
	return signals
}
