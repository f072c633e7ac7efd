package model

import (
	"fmt"
	"time"
)

// Action is the direction of a trading signal.
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
)

// Exit reasons attached to closed trades.
const (
	ExitSignal       = "SIGNAL"
	ExitStopLoss     = "STOP_LOSS"
	ExitTakeProfit   = "TAKE_PROFIT"
	ExitTrailingStop = "TRAILING_STOP"
)

// Suppression reasons logged by the risk gate and the engine. These are
// labels, not errors: a suppressed signal is dropped and the run continues.
const (
	SuppressTradingWindow = "TRADING_WINDOW"
	SuppressDailyCap      = "DAILY_CAP"
	SuppressPositionSize  = "POSITION_SIZE"
	SuppressAlreadyOpen   = "ALREADY_OPEN"
	SuppressNoPosition    = "NO_POSITION"
	SuppressOrphanSignal  = "ORPHAN_SIGNAL"
	SuppressDrawdownHalt  = "DRAWDOWN_HALT"
	SuppressLossCooldown  = "LOSS_COOLDOWN"
)

// Signal is one timestamped BUY/SELL instruction produced by a strategy.
// The engine consumes each signal exactly once, in timestamp order.
type Signal struct {
	Symbol     string
	Timestamp  time.Time
	Action     Action
	Price      float64
	StrategyID string
	Reason     string // human-readable origin, e.g. "sma crossover"
}

func (s Signal) String() string {
	return fmt.Sprintf("SIGNAL [%s %s] @ %.4f | strategy=%s | %s",
		s.Action, s.Symbol, s.Price, s.StrategyID, s.Timestamp.UTC().Format(time.RFC3339))
}

// Position is the single open long position for a symbol. Quantity is always
// positive; the engine does not support shorts. A zero StopLossPrice or
// TakeProfitPrice disables the corresponding exit. HighestPrice is the peak
// seen since entry and anchors the trailing stop.
type Position struct {
	Symbol          string
	Quantity        float64
	EntryPrice      float64
	EntryTime       time.Time
	EntryFee        float64
	StopLossPrice   float64
	TakeProfitPrice float64
	HighestPrice    float64
}

// Trade records one completed round trip. Created when a position closes,
// immutable afterward.
type Trade struct {
	Symbol     string
	EntryTime  time.Time
	EntryPrice float64
	ExitTime   time.Time
	ExitPrice  float64
	Quantity   float64
	FeeTotal   float64 // entry fee + exit fee
	PnL        float64 // proceeds - cost basis - total fees
	ExitReason string  // SIGNAL, STOP_LOSS or TAKE_PROFIT
}

func (t Trade) String() string {
	return fmt.Sprintf("TRADE %s qty=%.6f in=%.4f out=%.4f pnl=%.4f fee=%.4f reason=%s",
		t.Symbol, t.Quantity, t.EntryPrice, t.ExitPrice, t.PnL, t.FeeTotal, t.ExitReason)
}

// EquityPoint is one sample of total account value (cash + mark-to-market
// position value). The engine samples exactly one point per iteration.
type EquityPoint struct {
	Timestamp time.Time
	Equity    float64
}
