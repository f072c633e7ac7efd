package storage

import (
	"context"
	"fmt"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"crypto-backtester/internal/model"
	"crypto-backtester/internal/service"
)

// InfluxSink writes signals and trades to InfluxDB.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	org      string
	bucket   string
}

func NewInfluxSink(cfg service.StorageConfig) (*InfluxSink, error) {
	client := influxdb2.NewClient(cfg.URL, cfg.Token)

	health, err := client.Health(context.Background())
	if err != nil {
		return nil, fmt.Errorf("influxdb connection: %w", err)
	}
	if health == nil || health.Status != "pass" {
		return nil, fmt.Errorf("influxdb not healthy: %+v", health)
	}

	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Organization, cfg.Bucket),
		org:      cfg.Organization,
		bucket:   cfg.Bucket,
	}, nil
}

func (s *InfluxSink) Close() {
	s.client.Close()
}

func (s *InfluxSink) RecordSignal(ctx context.Context, sig model.Signal) error {
	point := influxdb2.NewPoint(
		"signals",
		map[string]string{
			"symbol":   sig.Symbol,
			"action":   string(sig.Action),
			"strategy": sig.StrategyID,
		},
		map[string]interface{}{
			"price":  sig.Price,
			"reason": sig.Reason,
		},
		sig.Timestamp,
	)
	return s.writeAPI.WritePoint(ctx, point)
}

func (s *InfluxSink) RecordTrade(ctx context.Context, trade model.Trade) error {
	point := influxdb2.NewPoint(
		"trades",
		map[string]string{
			"symbol":      trade.Symbol,
			"exit_reason": trade.ExitReason,
		},
		map[string]interface{}{
			"entry_price": trade.EntryPrice,
			"exit_price":  trade.ExitPrice,
			"quantity":    trade.Quantity,
			"fee_total":   trade.FeeTotal,
			"pnl":         trade.PnL,
			"entry_time":  trade.EntryTime.UnixMilli(),
		},
		trade.ExitTime,
	)
	return s.writeAPI.WritePoint(ctx, point)
}
