// Package executor dispatches approved orders to a real or simulated venue.
package executor

import (
	"context"
	"errors"

	"crypto-backtester/internal/model"
)

var (
	// ErrOrderRejected means the venue refused the order.
	ErrOrderRejected = errors.New("order rejected")
	// ErrOrderTimeout means the venue did not answer in time. The order's
	// fate is unknown; the live loop counts it and moves on.
	ErrOrderTimeout = errors.New("order timeout")
)

// OrderSink is the execution capability consumed by the live loop. Submit
// blocks until the order is filled or fails, and returns the fill price.
type OrderSink interface {
	Submit(ctx context.Context, symbol string, side model.Action, quantity float64) (float64, error)
}
