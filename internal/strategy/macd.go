package strategy

import (
	"crypto-backtester/internal/model"
	"crypto-backtester/pkg/ta"
)

// MACDCrossover emits BUY when the MACD line crosses above its signal line
// and SELL on the opposite crossing.
type MACDCrossover struct{}

func (s *MACDCrossover) Name() string { return "macd" }

func (s *MACDCrossover) Generate(candles []model.Candle, params Params) []model.Signal {
	fast := params.GetInt("macd_fast", 12)
	slow := params.GetInt("macd_slow", 26)
	signalPeriod := params.GetInt("macd_signal", 9)

	macd, signalLine, _ := ta.Macd(ta.Closes(candles), fast, slow, signalPeriod)
	if macd == nil {
		return nil
	}

	warmup := slow + signalPeriod
	var signals []model.Signal
	for i := warmup; i < len(candles); i++ {
		if ta.CrossAbove(macd, signalLine, i) {
			signals = append(signals, makeSignal(candles[i], model.ActionBuy, s.Name(), "macd bullish crossover"))
		} else if ta.CrossBelow(macd, signalLine, i) {
			signals = append(signals, makeSignal(candles[i], model.ActionSell, s.Name(), "macd bearish crossover"))
		}
	}
	return signals
}
