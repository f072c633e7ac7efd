package exchange

import (
	"testing"
	"time"

	"crypto-backtester/internal/model"
)

func tickAt(ts time.Time, price, volume float64) model.Ticker {
	return model.Ticker{
		Symbol:    "BTCUSDT",
		Timestamp: ts.UnixMilli(),
		Price:     price,
		Volume:    volume,
	}
}

func TestAggregatorCompletesCandleOnIntervalRollover(t *testing.T) {
	agg := newCandleAggregator("BTCUSDT", "1m", time.Minute)
	minute := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	if c := agg.Process(tickAt(minute.Add(10*time.Second), 100, 1)); c != nil {
		t.Fatal("first ticker completed a candle")
	}
	if c := agg.Process(tickAt(minute.Add(40*time.Second), 105, 2)); c != nil {
		t.Fatal("same-interval ticker completed a candle")
	}
	if c := agg.Process(tickAt(minute.Add(50*time.Second), 99, 1)); c != nil {
		t.Fatal("same-interval ticker completed a candle")
	}

	done := agg.Process(tickAt(minute.Add(65*time.Second), 103, 1))
	if done == nil {
		t.Fatal("interval rollover did not complete a candle")
	}
	if !done.Timestamp.Equal(minute) {
		t.Fatalf("candle ts = %v, want %v", done.Timestamp, minute)
	}
	if done.Open != 100 || done.High != 105 || done.Low != 99 || done.Close != 99 {
		t.Fatalf("OHLC = %v/%v/%v/%v, want 100/105/99/99", done.Open, done.High, done.Low, done.Close)
	}
	if done.Volume != 4 {
		t.Fatalf("volume = %v, want 4", done.Volume)
	}
}

func TestAggregatorOpensNewBarAtPreviousClose(t *testing.T) {
	agg := newCandleAggregator("BTCUSDT", "1m", time.Minute)
	minute := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	agg.Process(tickAt(minute.Add(5*time.Second), 100, 1))
	agg.Process(tickAt(minute.Add(61*time.Second), 110, 1))

	second := agg.Process(tickAt(minute.Add(121*time.Second), 111, 1))
	if second == nil {
		t.Fatal("second rollover did not complete a candle")
	}
	if second.Open != 100 {
		t.Fatalf("second bar open = %v, want the previous close 100", second.Open)
	}
	if second.Close != 110 {
		t.Fatalf("second bar close = %v, want 110", second.Close)
	}
}

func TestAggregatorSkipsEmptyIntervals(t *testing.T) {
	agg := newCandleAggregator("BTCUSDT", "1m", time.Minute)
	minute := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	agg.Process(tickAt(minute.Add(5*time.Second), 100, 1))
	done := agg.Process(tickAt(minute.Add(5*time.Minute), 120, 1))
	if done == nil {
		t.Fatal("gap did not complete the pending candle")
	}
	if done.Close != 100 {
		t.Fatalf("pending close = %v, want 100", done.Close)
	}
}
