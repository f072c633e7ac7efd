package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"crypto-backtester/internal/engine"
	"crypto-backtester/internal/exchange"
	"crypto-backtester/internal/executor"
	"crypto-backtester/internal/live"
	"crypto-backtester/internal/metrics"
	"crypto-backtester/internal/model"
	"crypto-backtester/internal/service"
	"crypto-backtester/internal/storage"
	"crypto-backtester/internal/strategy"
)

func main() {
	mode := flag.String("mode", "backtest", "run mode: backtest, tune or live")
	configPath := flag.String("config", "config", "directory containing config.yaml")
	flag.Parse()

	service.InitLogger()
	defer service.Logger.Sync()
	logger := service.Logger

	if _, err := os.Stat(*configPath); os.IsNotExist(err) {
		logger.Fatal("Configuration directory not found", zap.String("path", *configPath))
	}
	cfg, err := service.LoadConfig(*configPath)
	if err != nil {
		logger.Fatal("Invalid configuration", zap.Error(err))
	}

	strat, err := strategy.New(cfg.Strategy.Name)
	if err != nil {
		logger.Fatal("Unknown strategy", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sink, closeSink := buildSink(cfg, logger)
	defer closeSink()

	switch *mode {
	case "backtest":
		runBacktest(ctx, cfg, strat, sink, logger)
	case "tune":
		runTune(ctx, cfg, strat, sink, logger)
	case "live":
		runLive(ctx, cfg, strat, sink, logger)
	default:
		logger.Fatal("Unknown mode, expected backtest, tune or live", zap.String("mode", *mode))
	}
}

// buildSink returns the configured signal/trade sink and its cleanup.
func buildSink(cfg *service.Config, logger *zap.Logger) (storage.Sink, func()) {
	if !cfg.Storage.Enabled {
		return storage.NopSink{}, func() {}
	}
	sink, err := storage.NewInfluxSink(cfg.Storage)
	if err != nil {
		logger.Fatal("InfluxDB sink unavailable", zap.Error(err))
	}
	logger.Info("Recording signals and trades to InfluxDB",
		zap.String("url", cfg.Storage.URL),
		zap.String("bucket", cfg.Storage.Bucket))
	return sink, sink.Close
}

func fetchHistory(ctx context.Context, cfg *service.Config, logger *zap.Logger) []model.Candle {
	source, err := exchange.NewBinanceSource(cfg.Exchange)
	if err != nil {
		logger.Fatal("Candle source init failed", zap.Error(err))
	}
	candles, err := source.Candles(ctx, cfg.Exchange.Symbol, cfg.Exchange.Interval, cfg.Live.CandleLimit)
	if err != nil {
		logger.Fatal("Candle fetch failed", zap.Error(err))
	}
	logger.Info("Fetched candle history",
		zap.String("symbol", cfg.Exchange.Symbol),
		zap.String("interval", cfg.Exchange.Interval),
		zap.Int("count", len(candles)))
	return candles
}

func runBacktest(ctx context.Context, cfg *service.Config, strat strategy.Strategy, sink storage.Sink, logger *zap.Logger) {
	candles := fetchHistory(ctx, cfg, logger)
	signals := strat.Generate(candles, strategy.Params(cfg.Strategy.Params))

	eng := engine.New(cfg.Engine, cfg.Risk, sink, logger)
	result := eng.Run(ctx, candles, signals)

	logger.Info("Backtest complete",
		zap.String("strategy", strat.Name()),
		zap.Float64("net_pnl", result.NetPnL),
		zap.Float64("win_rate", result.WinRate),
		zap.Float64("max_drawdown", result.MaxDrawdown),
		zap.Int("total_trades", result.TotalTrades),
		zap.Float64("avg_trade_pnl", result.AvgTradePnL))
}

func runTune(ctx context.Context, cfg *service.Config, strat strategy.Strategy, sink storage.Sink, logger *zap.Logger) {
	if len(cfg.Tuner.Grid) == 0 {
		logger.Fatal("Tune mode requires a tuner.grid section in the configuration")
	}
	candles := fetchHistory(ctx, cfg, logger)

	eng := engine.New(cfg.Engine, cfg.Risk, sink, logger)
	points := eng.Tune(ctx, candles, cfg.Tuner.Grid, strat)

	top := points
	if len(top) > 5 {
		top = top[:5]
	}
	for rank, point := range top {
		logger.Info("Tuning result",
			zap.Int("rank", rank+1),
			zap.Any("params", point.Params),
			zap.Float64("net_pnl", point.Result.NetPnL),
			zap.Float64("max_drawdown", point.Result.MaxDrawdown),
			zap.Int("total_trades", point.Result.TotalTrades))
	}
}

func runLive(ctx context.Context, cfg *service.Config, strat strategy.Strategy, sink storage.Sink, logger *zap.Logger) {
	var source exchange.CandleSource
	switch cfg.Live.Feed {
	case "stream":
		stream, err := exchange.NewStreamSource(cfg.Exchange, logger)
		if err != nil {
			logger.Fatal("Stream source init failed", zap.Error(err))
		}
		go stream.Start(ctx)
		source = stream
	default:
		rest, err := exchange.NewBinanceSource(cfg.Exchange)
		if err != nil {
			logger.Fatal("Candle source init failed", zap.Error(err))
		}
		source = rest
	}

	var orders executor.OrderSink
	if cfg.Live.DryRun {
		orders = executor.NewDryRunSink(logger)
	} else {
		binanceSink, err := executor.NewBinanceSink(cfg.Exchange, logger)
		if err != nil {
			logger.Fatal("Order sink init failed", zap.Error(err))
		}
		orders = binanceSink
	}

	counters := metrics.NewCounters()
	if cfg.Metrics.Enabled {
		server := metrics.StartServer(cfg.Metrics.Addr, counters, logger)
		defer server.Shutdown(context.Background())
	}

	loop := live.NewLoop(live.Options{
		Engine:   cfg.Engine,
		Risk:     cfg.Risk,
		Live:     cfg.Live,
		Symbol:   cfg.Exchange.Symbol,
		Interval: cfg.Exchange.Interval,
		Source:   source,
		Strategy: strat,
		Params:   strategy.Params(cfg.Strategy.Params),
		Orders:   orders,
		Sink:     sink,
		Counters: counters,
		Logger:   logger,
	})

	if err := loop.Run(ctx); err != nil {
		logger.Info("Live loop exited", zap.Error(err))
	}

	ledger := loop.Ledger()
	logger.Info("Final ledger state",
		zap.Float64("cash", ledger.Cash()),
		zap.Float64("realized_pnl", ledger.RealizedPnL()),
		zap.Int("closed_trades", len(ledger.Trades())))
}
