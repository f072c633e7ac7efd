// Package engine replays signal sequences through the risk gate and ledger,
// simulating fills at the printed candle price plus a flat bps fee.
package engine

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"crypto-backtester/internal/model"
	"crypto-backtester/internal/portfolio"
	"crypto-backtester/internal/risk"
	"crypto-backtester/internal/service"
	"crypto-backtester/internal/storage"
)

// Result is the outcome of one backtest run.
type Result struct {
	NetPnL      float64
	WinRate     float64
	MaxDrawdown float64
	TotalTrades int
	AvgTradePnL float64
	Trades      []model.Trade
	EquityCurve []model.EquityPoint
}

// Engine owns one ledger and one risk manager per run. Runs are synchronous
// single passes: deterministic and reproducible for identical inputs.
type Engine struct {
	engineCfg service.EngineConfig
	riskCfg   service.RiskSettings
	sink      storage.Sink
	logger    *zap.Logger
}

func New(engineCfg service.EngineConfig, riskCfg service.RiskSettings, sink storage.Sink, logger *zap.Logger) *Engine {
	if sink == nil {
		sink = storage.NopSink{}
	}
	return &Engine{
		engineCfg: engineCfg,
		riskCfg:   riskCfg,
		sink:      sink,
		logger:    logger,
	}
}

// Run iterates candles in timestamp order. For each candle it first runs the
// SL/TP monitor against the close price, then applies every signal whose
// timestamp matches the candle (emission order preserved), then samples one
// equity point. Signals with no matching candle are logged and skipped; they
// are never executed at a different price than their requesting candle.
func (e *Engine) Run(ctx context.Context, candles []model.Candle, signals []model.Signal) Result {
	ledger := portfolio.NewLedger(e.engineCfg.StartingBalance)
	gate := risk.NewManager(e.riskCfg, e.logger)

	next := 0 // index of the first unconsumed signal
	for _, candle := range candles {
		e.checkExits(ctx, gate, ledger, candle)

		for next < len(signals) && signals[next].Timestamp.Before(candle.Timestamp) {
			e.logger.Warn("Signal has no matching candle, skipping",
				zap.String("reason", model.SuppressOrphanSignal),
				zap.String("signal", signals[next].String()))
			next++
		}
		for next < len(signals) && signals[next].Timestamp.Equal(candle.Timestamp) {
			e.processSignal(ctx, gate, ledger, signals[next], candle, false, model.ExitSignal)
			next++
		}

		ledger.SampleEquity(candle.Timestamp, candle.Close)
	}

	for ; next < len(signals); next++ {
		e.logger.Warn("Signal has no matching candle, skipping",
			zap.String("reason", model.SuppressOrphanSignal),
			zap.String("signal", signals[next].String()))
	}

	return e.summarize(ledger)
}

// checkExits synthesizes a forced SELL when the candle's close breaches the
// open position's stop-loss or take-profit level. Forced exits bypass the
// daily cap but pass through the remaining gates.
func (e *Engine) checkExits(ctx context.Context, gate *risk.Manager, ledger *portfolio.Ledger, candle model.Candle) {
	pos := ledger.Position(candle.Symbol)
	reason, triggered := gate.CheckExits(pos, candle.Close)
	if !triggered {
		return
	}

	e.logger.Info("Protective exit triggered",
		zap.String("reason", reason),
		zap.String("symbol", candle.Symbol),
		zap.Float64("price", candle.Close),
		zap.Float64("entry", pos.EntryPrice))

	forced := model.Signal{
		Symbol:    candle.Symbol,
		Timestamp: candle.Timestamp,
		Action:    model.ActionSell,
		Price:     candle.Close,
		Reason:    reason,
	}
	e.processSignal(ctx, gate, ledger, forced, candle, true, reason)
}

// processSignal routes one signal through the gate and, on approval, mutates
// the ledger. Gate decision and ledger mutation happen together or not at
// all; ledger faults are dropped and logged, never fatal.
func (e *Engine) processSignal(ctx context.Context, gate *risk.Manager, ledger *portfolio.Ledger, sig model.Signal, candle model.Candle, forced bool, exitReason string) {
	if err := e.sink.RecordSignal(ctx, sig); err != nil {
		e.logger.Warn("Signal sink write failed", zap.Error(err))
	}

	pos := ledger.Position(sig.Symbol)
	equity := ledger.Equity(candle.Close)
	decision := gate.Approve(sig, pos, equity, e.engineCfg.TradeSize, forced)
	if !decision.Approved {
		return
	}

	switch sig.Action {
	case model.ActionBuy:
		opened, err := ledger.OpenPosition(sig.Symbol, decision.Quantity, sig.Price, e.engineCfg.FeeBps, sig.Timestamp)
		if err != nil {
			e.logLedgerFault(sig, err)
			return
		}
		gate.AttachExits(opened)
		e.logger.Info("Position opened",
			zap.String("symbol", sig.Symbol),
			zap.Float64("qty", opened.Quantity),
			zap.Float64("price", opened.EntryPrice),
			zap.Float64("stop_loss", opened.StopLossPrice),
			zap.Float64("take_profit", opened.TakeProfitPrice))

	case model.ActionSell:
		trade, err := ledger.ClosePosition(sig.Symbol, sig.Price, e.engineCfg.FeeBps, sig.Timestamp, exitReason)
		if err != nil {
			e.logLedgerFault(sig, err)
			return
		}
		gate.RecordTrade(trade.PnL, trade.ExitTime)
		e.logger.Info("Position closed", zap.String("trade", trade.String()))
		if err := e.sink.RecordTrade(ctx, trade); err != nil {
			e.logger.Warn("Trade sink write failed", zap.Error(err))
		}
	}
}

// logLedgerFault reports a ledger invariant violation. These indicate an
// upstream gate bug; the offending signal is dropped and the equity curve
// stays intact.
func (e *Engine) logLedgerFault(sig model.Signal, err error) {
	if errors.Is(err, portfolio.ErrInsufficientFunds) ||
		errors.Is(err, portfolio.ErrNoOpenPosition) ||
		errors.Is(err, portfolio.ErrPositionOpen) {
		e.logger.Error("Ledger rejected signal, dropping",
			zap.Error(err),
			zap.String("signal", sig.String()))
		return
	}
	e.logger.Error("Unexpected ledger error", zap.Error(err), zap.String("signal", sig.String()))
}

func (e *Engine) summarize(ledger *portfolio.Ledger) Result {
	curve := ledger.EquityCurve()
	trades := ledger.Trades()

	finalEquity := e.engineCfg.StartingBalance
	if len(curve) > 0 {
		finalEquity = curve[len(curve)-1].Equity
	}

	return Result{
		NetPnL:      finalEquity - e.engineCfg.StartingBalance,
		WinRate:     WinRate(trades),
		MaxDrawdown: MaxDrawdown(curve),
		TotalTrades: len(trades),
		AvgTradePnL: AvgTradePnL(trades),
		Trades:      trades,
		EquityCurve: curve,
	}
}
