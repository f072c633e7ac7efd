package strategy

import (
	"crypto-backtester/internal/model"
	"crypto-backtester/pkg/ta"
)

// RSIReversal emits BUY when RSI exits oversold territory and SELL when it
// exits overbought territory. Acting on the exit rather than the level itself
// avoids buying into a still-falling market.
type RSIReversal struct{}

func (s *RSIReversal) Name() string { return "rsi" }

func (s *RSIReversal) Generate(candles []model.Candle, params Params) []model.Signal {
	period := params.GetInt("rsi_period", 14)
	oversold := params.Get("rsi_oversold", 30)
	overbought := params.Get("rsi_overbought", 70)

	rsi := ta.Rsi(ta.Closes(candles), period)
	if rsi == nil {
		return nil
	}

	var signals []model.Signal
	for i := period + 1; i < len(candles); i++ {
		prev, curr := rsi[i-1], rsi[i]
		if prev == 0 || curr == 0 {
			continue
		}
		if prev <= oversold && curr > oversold {
			signals = append(signals, makeSignal(candles[i], model.ActionBuy, s.Name(), "rsi oversold exit"))
		} else if prev >= overbought && curr < overbought {
			signals = append(signals, makeSignal(candles[i], model.ActionSell, s.Name(), "rsi overbought exit"))
		}
	}
	return signals
}
