// Package ta wraps go-talib with candle-aware helpers shared by the signal
// generators. All series returned are index-aligned with the input candles;
// warm-up entries hold zero.
package ta

import (
	"github.com/markcheno/go-talib"

	"crypto-backtester/internal/model"
)

// Closes extracts the close price series.
func Closes(candles []model.Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}

// Highs extracts the high price series.
func Highs(candles []model.Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.High
	}
	return out
}

// Lows extracts the low price series.
func Lows(candles []model.Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Low
	}
	return out
}

// Sma returns the simple moving average series, or nil when the input is
// shorter than the period.
func Sma(values []float64, period int) []float64 {
	if len(values) < period || period <= 0 {
		return nil
	}
	return talib.Sma(values, period)
}

// Rsi returns the relative strength index series.
func Rsi(values []float64, period int) []float64 {
	if len(values) <= period || period <= 0 {
		return nil
	}
	return talib.Rsi(values, period)
}

// Macd returns the MACD, signal and histogram series.
func Macd(values []float64, fast, slow, signal int) (macd, sig, hist []float64) {
	if len(values) < slow+signal {
		return nil, nil, nil
	}
	return talib.Macd(values, fast, slow, signal)
}

// BBands returns the Bollinger band series (upper, middle, lower).
func BBands(values []float64, period int, stdDev float64) (upper, middle, lower []float64) {
	if len(values) < period {
		return nil, nil, nil
	}
	return talib.BBands(values, period, stdDev, stdDev, talib.SMA)
}

// Atr returns the average true range series.
func Atr(highs, lows, closes []float64, period int) []float64 {
	if len(closes) <= period {
		return nil
	}
	return talib.Atr(highs, lows, closes, period)
}

// CrossAbove reports whether series a crosses above series b at index i.
// Warm-up zeros never count as crossings.
func CrossAbove(a, b []float64, i int) bool {
	if i < 1 || i >= len(a) || i >= len(b) {
		return false
	}
	if a[i-1] == 0 || b[i-1] == 0 || a[i] == 0 || b[i] == 0 {
		return false
	}
	return a[i-1] <= b[i-1] && a[i] > b[i]
}

// CrossBelow reports whether series a crosses below series b at index i.
func CrossBelow(a, b []float64, i int) bool {
	if i < 1 || i >= len(a) || i >= len(b) {
		return false
	}
	if a[i-1] == 0 || b[i-1] == 0 || a[i] == 0 || b[i] == 0 {
		return false
	}
	return a[i-1] >= b[i-1] && a[i] < b[i]
}
