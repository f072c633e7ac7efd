package exchange

import (
	"context"
	"fmt"
	"time"

	"github.com/adshao/go-binance/v2"

	"crypto-backtester/internal/model"
	"crypto-backtester/internal/service"
)

// BinanceSource fetches historical candles over the Binance spot REST API.
type BinanceSource struct {
	client *binance.Client
}

func NewBinanceSource(cfg service.ExchangeConfig) (*BinanceSource, error) {
	client := binance.NewClient(cfg.APIKey, cfg.SecretKey)
	if cfg.Testnet {
		client.SetApiEndpoint("https://testnet.binance.vision")
	}
	return &BinanceSource{client: client}, nil
}

func (s *BinanceSource) Candles(ctx context.Context, symbol, interval string, limit int) ([]model.Candle, error) {
	klines, err := s.client.NewKlinesService().
		Symbol(symbol).
		Interval(interval).
		Limit(limit).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching klines: %w", err)
	}

	candles := make([]model.Candle, 0, len(klines))
	for _, k := range klines {
		open, err := service.StringToFloat(k.Open)
		if err != nil {
			return nil, fmt.Errorf("parsing kline open %q: %w", k.Open, err)
		}
		high, err := service.StringToFloat(k.High)
		if err != nil {
			return nil, fmt.Errorf("parsing kline high %q: %w", k.High, err)
		}
		low, err := service.StringToFloat(k.Low)
		if err != nil {
			return nil, fmt.Errorf("parsing kline low %q: %w", k.Low, err)
		}
		closePrice, err := service.StringToFloat(k.Close)
		if err != nil {
			return nil, fmt.Errorf("parsing kline close %q: %w", k.Close, err)
		}
		volume, err := service.StringToFloat(k.Volume)
		if err != nil {
			return nil, fmt.Errorf("parsing kline volume %q: %w", k.Volume, err)
		}

		candles = append(candles, model.Candle{
			Symbol:    symbol,
			Interval:  interval,
			Timestamp: time.UnixMilli(k.OpenTime).UTC(),
			Open:      open,
			High:      high,
			Low:       low,
			Close:     closePrice,
			Volume:    volume,
		})
	}
	return candles, nil
}
