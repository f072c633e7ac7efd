// Package live drives the continuous monitoring loop: one engine iteration
// per tick against live data, under the same risk gate and ledger rules as a
// backtest.
package live

import (
	"context"
	"time"

	"go.uber.org/zap"

	"crypto-backtester/internal/exchange"
	"crypto-backtester/internal/executor"
	"crypto-backtester/internal/metrics"
	"crypto-backtester/internal/model"
	"crypto-backtester/internal/portfolio"
	"crypto-backtester/internal/risk"
	"crypto-backtester/internal/service"
	"crypto-backtester/internal/storage"
	"crypto-backtester/internal/strategy"
)

// priceAware is implemented by sinks that simulate fills off the last known
// price (the dry-run sink).
type priceAware interface {
	SetPrice(symbol string, price float64)
}

// Loop is a single-threaded cooperative polling loop. Exactly one iteration
// executes at a time; blocking calls suspend the loop but never overlap with
// another iteration. The ledger and gate are exclusively owned by the loop.
type Loop struct {
	engineCfg service.EngineConfig
	liveCfg   service.LiveConfig
	symbol    string
	interval  string

	source   exchange.CandleSource
	strat    strategy.Strategy
	params   strategy.Params
	orders   executor.OrderSink
	sink     storage.Sink
	counters *metrics.Counters
	logger   *zap.Logger
	retry    RetryPolicy

	ledger  *portfolio.Ledger
	gate    *risk.Manager
	handled map[signalKey]struct{} // signals already processed
}

// signalKey identifies a signal for deduplication across re-fetched windows.
type signalKey struct {
	ts     int64 // unix milliseconds
	action model.Action
}

type Options struct {
	Engine   service.EngineConfig
	Risk     service.RiskSettings
	Live     service.LiveConfig
	Symbol   string
	Interval string
	Source   exchange.CandleSource
	Strategy strategy.Strategy
	Params   strategy.Params
	Orders   executor.OrderSink
	Sink     storage.Sink
	Counters *metrics.Counters
	Logger   *zap.Logger
}

func NewLoop(opts Options) *Loop {
	sink := opts.Sink
	if sink == nil {
		sink = storage.NopSink{}
	}
	counters := opts.Counters
	if counters == nil {
		counters = metrics.NewCounters()
	}
	return &Loop{
		engineCfg: opts.Engine,
		liveCfg:   opts.Live,
		symbol:    opts.Symbol,
		interval:  opts.Interval,
		source:    opts.Source,
		strat:     opts.Strategy,
		params:    opts.Params,
		orders:    opts.Orders,
		sink:      sink,
		counters:  counters,
		logger:    opts.Logger.With(zap.String("symbol", opts.Symbol)),
		retry:     DefaultRetry(opts.Live.MaxRetries),
		ledger:    portfolio.NewLedger(opts.Engine.StartingBalance),
		gate:      risk.NewManager(opts.Risk, opts.Logger),
		handled:   make(map[signalKey]struct{}),
	}
}

// Run polls until ctx is cancelled. Cancellation is checked at the top of
// every iteration and after every blocking call, so the loop exits within one
// in-flight call and never abandons a half-applied ledger mutation. A failed
// tick is counted and skipped; only cancellation stops the loop.
func (l *Loop) Run(ctx context.Context) error {
	pollInterval := time.Duration(l.liveCfg.PollIntervalSeconds) * time.Second

	l.logger.Info("Live loop started",
		zap.String("strategy", l.strat.Name()),
		zap.Duration("poll_interval", pollInterval),
		zap.Int("candle_limit", l.liveCfg.CandleLimit),
		zap.Bool("dry_run", l.liveCfg.DryRun))

	l.counters.SetAlive(true)
	defer l.counters.SetAlive(false)

	for iteration := 1; ; iteration++ {
		if err := ctx.Err(); err != nil {
			l.logger.Info("Live loop cancelled", zap.Int("iterations", iteration-1))
			return err
		}

		l.iterate(ctx, iteration)

		select {
		case <-time.After(pollInterval):
		case <-ctx.Done():
			l.logger.Info("Live loop cancelled", zap.Int("iterations", iteration))
			return ctx.Err()
		}
	}
}

// iterate runs one engine pass against the latest candle. History is used
// only for indicator warm-up and SL/TP context.
func (l *Loop) iterate(ctx context.Context, iteration int) {
	var candles []model.Candle
	err := l.retry.Do(ctx, func() error {
		fetched, fetchErr := l.source.Candles(ctx, l.symbol, l.interval, l.liveCfg.CandleLimit)
		if fetchErr != nil {
			return fetchErr
		}
		candles = fetched
		return nil
	})
	if err != nil {
		l.counters.IncErrors()
		l.logger.Error("Candle fetch failed, skipping tick",
			zap.Int("iteration", iteration), zap.Error(err))
		return
	}
	if ctx.Err() != nil || len(candles) == 0 {
		return
	}

	latest := candles[len(candles)-1]
	if pa, ok := l.orders.(priceAware); ok {
		pa.SetPrice(l.symbol, latest.Close)
	}

	// Protective exits first, mirroring the backtest engine's candle order.
	if pos := l.ledger.Position(l.symbol); pos != nil {
		if reason, hit := l.gate.CheckExits(pos, latest.Close); hit {
			forced := model.Signal{
				Symbol:    l.symbol,
				Timestamp: latest.Timestamp,
				Action:    model.ActionSell,
				Price:     latest.Close,
				Reason:    reason,
			}
			l.logger.Info("Protective exit triggered",
				zap.String("reason", reason), zap.Float64("price", latest.Close))
			l.execute(ctx, forced, latest, true, reason)
			if ctx.Err() != nil {
				return
			}
		}
	}

	for _, sig := range l.strat.Generate(candles, l.params) {
		if !sig.Timestamp.Equal(latest.Timestamp) {
			continue
		}
		if l.alreadyHandled(sig) {
			continue
		}
		l.markHandled(sig)
		l.counters.AddSignals(1)
		l.execute(ctx, sig, latest, false, model.ExitSignal)
		if ctx.Err() != nil {
			return
		}
	}
	l.pruneHandled(candles[0].Timestamp)

	l.ledger.SampleEquity(latest.Timestamp, latest.Close)
	l.counters.SetRealizedPnL(l.ledger.RealizedPnL())
}

// execute routes one signal through the gate, dispatches the approved order
// and applies the fill to the ledger. The ledger is only mutated after the
// sink reports a fill price, so a failed submission leaves state untouched.
func (l *Loop) execute(ctx context.Context, sig model.Signal, latest model.Candle, forced bool, exitReason string) {
	if err := l.sink.RecordSignal(ctx, sig); err != nil {
		l.logger.Warn("Signal sink write failed", zap.Error(err))
	}

	pos := l.ledger.Position(sig.Symbol)
	equity := l.ledger.Equity(latest.Close)
	decision := l.gate.Approve(sig, pos, equity, l.engineCfg.TradeSize, forced)
	if !decision.Approved {
		return
	}

	var fillPrice float64
	err := l.retry.Do(ctx, func() error {
		filled, submitErr := l.orders.Submit(ctx, sig.Symbol, sig.Action, decision.Quantity)
		if submitErr != nil {
			return submitErr
		}
		fillPrice = filled
		return nil
	})
	if err != nil {
		l.counters.IncErrors()
		l.logger.Error("Order submission failed",
			zap.String("action", string(sig.Action)), zap.Error(err))
		return
	}

	switch sig.Action {
	case model.ActionBuy:
		opened, ledgerErr := l.ledger.OpenPosition(sig.Symbol, decision.Quantity, fillPrice, l.engineCfg.FeeBps, sig.Timestamp)
		if ledgerErr != nil {
			l.counters.IncErrors()
			l.logger.Error("Ledger rejected buy after fill", zap.Error(ledgerErr))
			return
		}
		l.gate.AttachExits(opened)
		l.counters.IncTrades()
		l.logger.Info("Position opened",
			zap.Float64("qty", opened.Quantity),
			zap.Float64("price", opened.EntryPrice),
			zap.Float64("stop_loss", opened.StopLossPrice),
			zap.Float64("take_profit", opened.TakeProfitPrice))

	case model.ActionSell:
		trade, ledgerErr := l.ledger.ClosePosition(sig.Symbol, fillPrice, l.engineCfg.FeeBps, sig.Timestamp, exitReason)
		if ledgerErr != nil {
			l.counters.IncErrors()
			l.logger.Error("Ledger rejected sell after fill", zap.Error(ledgerErr))
			return
		}
		l.gate.RecordTrade(trade.PnL, trade.ExitTime)
		l.counters.IncTrades()
		l.logger.Info("Position closed", zap.String("trade", trade.String()))
		if err := l.sink.RecordTrade(ctx, trade); err != nil {
			l.logger.Warn("Trade sink write failed", zap.Error(err))
		}
	}
}

// Ledger exposes the loop's ledger for status reporting and tests.
func (l *Loop) Ledger() *portfolio.Ledger {
	return l.ledger
}

func handledKey(sig model.Signal) signalKey {
	return signalKey{ts: sig.Timestamp.UnixMilli(), action: sig.Action}
}

func (l *Loop) alreadyHandled(sig model.Signal) bool {
	_, ok := l.handled[handledKey(sig)]
	return ok
}

func (l *Loop) markHandled(sig model.Signal) {
	l.handled[handledKey(sig)] = struct{}{}
}

// pruneHandled drops dedup entries older than the fetch window so the set
// stays bounded.
func (l *Loop) pruneHandled(oldest time.Time) {
	cutoff := oldest.UnixMilli()
	for key := range l.handled {
		if key.ts < cutoff {
			delete(l.handled, key)
		}
	}
}
