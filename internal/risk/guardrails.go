package risk

import (
	"time"

	"crypto-backtester/internal/model"
	"crypto-backtester/internal/service"
)

// guardrails are portfolio-level protections evaluated before any other gate
// check on new entries. Two safeguards: a month-to-date drawdown halt and a
// cooldown after a run of consecutive losing trades. Exits are never blocked;
// closing a position always reduces risk.
type guardrails struct {
	cfg service.GuardrailSettings

	month             time.Time // UTC first of the month the baseline refers to
	monthStartEquity  float64
	consecutiveLosses int
	cooldownUntil     time.Time
}

func newGuardrails(cfg service.GuardrailSettings) *guardrails {
	return &guardrails{cfg: cfg}
}

// allowEntry reports whether a new entry may proceed at the given equity and
// time. When blocked it returns the suppression reason.
func (g *guardrails) allowEntry(equity float64, now time.Time) (string, bool) {
	g.rollMonth(equity, now)

	if g.cfg.MaxDrawdownPct > 0 && g.monthStartEquity > 0 {
		dd := (g.monthStartEquity - equity) / g.monthStartEquity
		if dd > g.cfg.MaxDrawdownPct {
			return model.SuppressDrawdownHalt, false
		}
	}
	if !g.cooldownUntil.IsZero() && now.Before(g.cooldownUntil) {
		return model.SuppressLossCooldown, false
	}
	return "", true
}

// recordTrade feeds a closed trade's PnL into the loss-cooldown state. A
// winning or flat trade resets the streak.
func (g *guardrails) recordTrade(pnl float64, now time.Time) {
	if pnl >= 0 {
		g.consecutiveLosses = 0
		return
	}
	g.consecutiveLosses++
	if g.cfg.CooldownMinutes > 0 && g.cfg.LossLimit > 0 && g.consecutiveLosses >= g.cfg.LossLimit {
		g.cooldownUntil = now.Add(time.Duration(g.cfg.CooldownMinutes) * time.Minute)
	}
}

// rollMonth re-baselines the drawdown reference at the first signal of each
// UTC month.
func (g *guardrails) rollMonth(equity float64, now time.Time) {
	month := time.Date(now.UTC().Year(), now.UTC().Month(), 1, 0, 0, 0, 0, time.UTC)
	if !month.Equal(g.month) {
		g.month = month
		g.monthStartEquity = equity
	}
}
