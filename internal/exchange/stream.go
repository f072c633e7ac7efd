package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"crypto-backtester/internal/model"
	"crypto-backtester/internal/service"
)

const (
	streamReconnectDelay = 5 * time.Second
	maxBufferedCandles   = 500
)

// binanceTradeEvent is the trade stream payload.
type binanceTradeEvent struct {
	EventType string `json:"e"`
	Symbol    string `json:"s"`
	Price     string `json:"p"`
	Quantity  string `json:"q"`
	TradeTime int64  `json:"T"`
	IsMaker   bool   `json:"m"`
}

// StreamSource keeps a rolling window of candles aggregated from a live
// websocket trade stream. Candles serves completed bars from the buffer
// without any network round trip.
type StreamSource struct {
	wsURL    string
	symbol   string
	interval string
	duration time.Duration
	logger   *zap.Logger

	mu      sync.RWMutex
	candles []model.Candle
	agg     *candleAggregator
}

func NewStreamSource(cfg service.ExchangeConfig, logger *zap.Logger) (*StreamSource, error) {
	duration, err := service.ParseIntervalDuration(cfg.Interval)
	if err != nil {
		return nil, fmt.Errorf("stream interval: %w", err)
	}
	wsURL := cfg.WSURL
	if wsURL == "" {
		wsURL = "wss://stream.binance.com:9443/ws"
	}
	return &StreamSource{
		wsURL:    wsURL,
		symbol:   cfg.Symbol,
		interval: cfg.Interval,
		duration: duration,
		logger:   logger.With(zap.String("feed", "stream"), zap.String("symbol", cfg.Symbol)),
		agg:      newCandleAggregator(cfg.Symbol, cfg.Interval, duration),
	}, nil
}

// Start dials the stream and consumes it until ctx is cancelled, redialing
// after transport errors. Run it in its own goroutine.
func (s *StreamSource) Start(ctx context.Context) {
	for {
		if err := s.consume(ctx); err != nil {
			if ctx.Err() != nil {
				s.logger.Info("Stream stopped")
				return
			}
			s.logger.Warn("Stream disconnected, reconnecting",
				zap.Error(err),
				zap.Duration("delay", streamReconnectDelay))
			select {
			case <-time.After(streamReconnectDelay):
			case <-ctx.Done():
				return
			}
		}
	}
}

func (s *StreamSource) consume(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.wsURL, nil)
	if err != nil {
		return fmt.Errorf("dialing %s: %w", s.wsURL, err)
	}
	defer conn.Close()

	subscribe := map[string]interface{}{
		"method": "SUBSCRIBE",
		"params": []string{strings.ToLower(s.symbol) + "@trade"},
		"id":     1,
	}
	if err := conn.WriteJSON(subscribe); err != nil {
		return fmt.Errorf("subscribing: %w", err)
	}
	s.logger.Info("Subscribed to trade stream")

	// Close the socket when ctx dies so ReadMessage unblocks. The done
	// channel releases the watcher when this connection ends first, so
	// reconnects do not pile up blocked goroutines.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var event binanceTradeEvent
		if err := json.Unmarshal(message, &event); err != nil {
			continue
		}
		if event.EventType != "trade" {
			continue // subscription acks and other control frames
		}

		price, err := service.StringToFloat(event.Price)
		if err != nil {
			continue
		}
		volume, err := service.StringToFloat(event.Quantity)
		if err != nil {
			continue
		}

		s.ingest(model.Ticker{
			Symbol:       event.Symbol,
			Timestamp:    event.TradeTime,
			Price:        price,
			Volume:       volume,
			IsBuyerMaker: event.IsMaker,
		})
	}
}

func (s *StreamSource) ingest(ticker model.Ticker) {
	s.mu.Lock()
	defer s.mu.Unlock()

	completed := s.agg.Process(ticker)
	if completed == nil {
		return
	}
	s.candles = append(s.candles, *completed)
	if len(s.candles) > maxBufferedCandles {
		s.candles = s.candles[len(s.candles)-maxBufferedCandles:]
	}
	s.logger.Debug("Candle completed",
		zap.Time("ts", completed.Timestamp),
		zap.Float64("close", completed.Close))
}

// Candles returns up to limit of the most recent completed candles.
func (s *StreamSource) Candles(_ context.Context, symbol, interval string, limit int) ([]model.Candle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if symbol != s.symbol || interval != s.interval {
		return nil, fmt.Errorf("stream serves %s/%s, requested %s/%s", s.symbol, s.interval, symbol, interval)
	}
	if len(s.candles) == 0 {
		return nil, fmt.Errorf("no completed candles buffered yet for %s", symbol)
	}

	start := 0
	if len(s.candles) > limit {
		start = len(s.candles) - limit
	}
	out := make([]model.Candle, len(s.candles)-start)
	copy(out, s.candles[start:])
	return out, nil
}
