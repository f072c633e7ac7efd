package risk

import (
	"math"
	"time"

	"go.uber.org/zap"

	"crypto-backtester/internal/model"
	"crypto-backtester/internal/service"
)

// Decision is the gate's verdict on one candidate signal. When Approved is
// false, Suppression carries the reason label for the log line.
type Decision struct {
	Approved    bool
	Quantity    float64
	Suppression string
}

// Manager is the stateful gate between strategy signals and the ledger. It is
// invoked once per incoming signal and once per price tick for open
// positions, and is exclusively owned by one engine instance.
type Manager struct {
	cfg    service.RiskSettings
	logger *zap.Logger
	guards *guardrails

	tradesToday int
	currentDay  time.Time // UTC midnight of the day tradesToday refers to
}

func NewManager(cfg service.RiskSettings, logger *zap.Logger) *Manager {
	return &Manager{cfg: cfg, logger: logger, guards: newGuardrails(cfg.Guardrails)}
}

// Approve runs the gate checks in fixed order: guardrails (new entries only),
// trading window, daily cap, position sizing, directional validity. The first
// failure suppresses the signal. On approval the daily counter is incremented
// and the clamped quantity returned. forced marks SL/TP-synthesized exits,
// which skip the daily cap (and, by default, do not count toward it).
func (m *Manager) Approve(sig model.Signal, pos *model.Position, equity, requestedQty float64, forced bool) Decision {
	m.rollover(sig.Timestamp)

	if sig.Action == model.ActionBuy && !forced {
		if reason, ok := m.guards.allowEntry(equity, sig.Timestamp.UTC()); !ok {
			return m.suppress(sig, reason)
		}
	}

	if !m.cfg.TradingWindow.Contains(sig.Timestamp.UTC().Hour()) {
		return m.suppress(sig, model.SuppressTradingWindow)
	}

	if !forced && m.cfg.MaxTradesPerDay > 0 && m.tradesToday >= m.cfg.MaxTradesPerDay {
		return m.suppress(sig, model.SuppressDailyCap)
	}

	qty := requestedQty
	if sig.Action == model.ActionBuy {
		qty = m.clampQuantity(requestedQty, equity, sig.Price)
		if qty <= 0 {
			return m.suppress(sig, model.SuppressPositionSize)
		}
	}

	switch sig.Action {
	case model.ActionBuy:
		if pos != nil {
			return m.suppress(sig, model.SuppressAlreadyOpen)
		}
	case model.ActionSell:
		if pos == nil {
			return m.suppress(sig, model.SuppressNoPosition)
		}
		qty = pos.Quantity
	}

	if !forced || m.cfg.CountForcedExits {
		m.tradesToday++
	}
	return Decision{Approved: true, Quantity: qty}
}

// AttachExits derives stop-loss/take-profit prices from the entry price and
// writes them onto the freshly opened position. A zero pct leaves the
// corresponding exit disabled. The trailing-stop peak starts at the entry
// price.
func (m *Manager) AttachExits(pos *model.Position) {
	if m.cfg.StopLossPct > 0 {
		pos.StopLossPrice = pos.EntryPrice * (1 - m.cfg.StopLossPct)
	}
	if m.cfg.TakeProfitPct > 0 {
		pos.TakeProfitPrice = pos.EntryPrice * (1 + m.cfg.TakeProfitPct)
	}
	if m.cfg.TrailingStopPct > 0 {
		pos.HighestPrice = pos.EntryPrice
	}
}

// CheckExits compares the current price against the position's protective
// levels, advancing the trailing-stop peak first. A breach returns the exit
// reason for the forced SELL the caller must synthesize. Checks run in
// priority order: stop-loss, take-profit, trailing stop.
func (m *Manager) CheckExits(pos *model.Position, price float64) (string, bool) {
	if pos == nil {
		return "", false
	}
	if m.cfg.TrailingStopPct > 0 && price > pos.HighestPrice {
		pos.HighestPrice = price
	}

	if pos.StopLossPrice > 0 && price <= pos.StopLossPrice {
		return model.ExitStopLoss, true
	}
	if pos.TakeProfitPrice > 0 && price >= pos.TakeProfitPrice {
		return model.ExitTakeProfit, true
	}
	if m.cfg.TrailingStopPct > 0 && pos.HighestPrice > 0 {
		if price <= pos.HighestPrice*(1-m.cfg.TrailingStopPct) {
			return model.ExitTrailingStop, true
		}
	}
	return "", false
}

// RecordTrade feeds a closed trade's outcome into the guardrail state.
// Callers invoke it once per closed trade, forced or not.
func (m *Manager) RecordTrade(pnl float64, ts time.Time) {
	m.guards.recordTrade(pnl, ts.UTC())
}

// TradesToday exposes the current daily counter for metrics/tests.
func (m *Manager) TradesToday() int {
	return m.tradesToday
}

// clampQuantity limits qty to max_position_pct * equity / price when that cap
// is configured.
func (m *Manager) clampQuantity(qty, equity, price float64) float64 {
	if m.cfg.MaxPositionPct <= 0 || price <= 0 {
		return qty
	}
	maxQty := m.cfg.MaxPositionPct * equity / price
	return math.Min(qty, maxQty)
}

// rollover resets the daily counter when the incoming signal's UTC date
// differs from the day the counter was accumulated on.
func (m *Manager) rollover(ts time.Time) {
	day := ts.UTC().Truncate(24 * time.Hour)
	if !day.Equal(m.currentDay) {
		if !m.currentDay.IsZero() && m.tradesToday > 0 {
			m.logger.Debug("Daily trade counter reset",
				zap.Time("day", day),
				zap.Int("trades_yesterday", m.tradesToday))
		}
		m.currentDay = day
		m.tradesToday = 0
	}
}

func (m *Manager) suppress(sig model.Signal, reason string) Decision {
	m.logger.Info("Signal suppressed",
		zap.String("reason", reason),
		zap.String("action", string(sig.Action)),
		zap.String("symbol", sig.Symbol),
		zap.Time("ts", sig.Timestamp),
		zap.Float64("price", sig.Price))
	return Decision{Suppression: reason}
}
