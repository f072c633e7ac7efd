package strategy

import (
	"crypto-backtester/internal/model"
	"crypto-backtester/pkg/ta"
)

// BollingerBounce emits BUY when the close crosses back above the lower band
// and SELL when it crosses back below the upper band.
type BollingerBounce struct{}

func (s *BollingerBounce) Name() string { return "bbands" }

func (s *BollingerBounce) Generate(candles []model.Candle, params Params) []model.Signal {
	window := params.GetInt("bbands_window", 20)
	stdDev := params.Get("bbands_std", 2)

	closes := ta.Closes(candles)
	upper, _, lower := ta.BBands(closes, window, stdDev)
	if upper == nil {
		return nil
	}

	var signals []model.Signal
	for i := window; i < len(candles); i++ {
		if lower[i-1] == 0 || upper[i-1] == 0 {
			continue
		}
		if closes[i-1] <= lower[i-1] && closes[i] > lower[i] {
			signals = append(signals, makeSignal(candles[i], model.ActionBuy, s.Name(), "lower band bounce"))
		} else if closes[i-1] >= upper[i-1] && closes[i] < upper[i] {
			signals = append(signals, makeSignal(candles[i], model.ActionSell, s.Name(), "upper band rejection"))
		}
	}
	return signals
}
