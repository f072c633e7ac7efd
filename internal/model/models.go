package model

import "time"

// Ticker is the smallest unit of market data (a trade print or price snapshot).
type Ticker struct {
	Symbol       string
	Timestamp    int64 // milliseconds
	Price        float64
	Volume       float64 // 0 means price snapshot
	IsBuyerMaker bool
}

// Candle is one aggregated OHLCV bar. Candles within a feed are ordered
// ascending by Timestamp with no duplicates, and are immutable once fetched.
type Candle struct {
	Symbol    string
	Interval  string // e.g. "1m", "5m", "1h"
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}
