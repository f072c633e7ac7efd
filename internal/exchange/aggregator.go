package exchange

import (
	"math"
	"time"

	"crypto-backtester/internal/model"
)

// candleAggregator folds a stream of trade tickers into fixed-interval
// candles. Process returns the completed candle when a ticker opens a new
// interval, nil otherwise.
type candleAggregator struct {
	symbol   string
	interval string
	duration time.Duration
	current  model.Candle
	started  bool
}

func newCandleAggregator(symbol, interval string, duration time.Duration) *candleAggregator {
	return &candleAggregator{
		symbol:   symbol,
		interval: interval,
		duration: duration,
	}
}

func (a *candleAggregator) Process(ticker model.Ticker) *model.Candle {
	tickerTime := time.UnixMilli(ticker.Timestamp).UTC()
	bucket := tickerTime.Truncate(a.duration)

	var completed *model.Candle
	if a.started && bucket.After(a.current.Timestamp) {
		done := a.current
		completed = &done

		// New bar opens at the previous close to keep the series gapless.
		a.current = model.Candle{
			Symbol:    a.symbol,
			Interval:  a.interval,
			Timestamp: bucket,
			Open:      done.Close,
			High:      ticker.Price,
			Low:       ticker.Price,
		}
	}

	if !a.started {
		a.current = model.Candle{
			Symbol:    a.symbol,
			Interval:  a.interval,
			Timestamp: bucket,
			Open:      ticker.Price,
			High:      ticker.Price,
			Low:       ticker.Price,
		}
		a.started = true
	}

	a.current.Close = ticker.Price
	a.current.High = math.Max(a.current.High, ticker.Price)
	a.current.Low = math.Min(a.current.Low, ticker.Price)
	a.current.Volume += ticker.Volume

	return completed
}
