// Package exchange provides market data feeds: REST polling and a websocket
// trade stream aggregated into candles.
package exchange

import (
	"context"

	"crypto-backtester/internal/model"
)

// CandleSource supplies the most recent candles for a symbol, oldest first.
// Implementations must return candles ordered ascending by timestamp with no
// duplicates.
type CandleSource interface {
	Candles(ctx context.Context, symbol, interval string, limit int) ([]model.Candle, error)
}
