package portfolio

import (
	"errors"
	"time"

	"crypto-backtester/internal/model"
)

var (
	// ErrInsufficientFunds is returned when an open would overdraw cash.
	// Orders are rejected whole, never partially filled.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrNoOpenPosition is returned when closing with nothing open.
	ErrNoOpenPosition = errors.New("no open position")
	// ErrPositionOpen is returned when opening over an existing position.
	// The risk gate should prevent this; hitting it indicates a gate bug.
	ErrPositionOpen = errors.New("position already open")
)

// Ledger tracks cash, the single open position per symbol and the equity
// curve. It is exclusively owned by one engine instance and does no I/O.
type Ledger struct {
	cash        float64
	positions   map[string]*model.Position
	trades      []model.Trade
	equityCurve []model.EquityPoint
	realizedPnL float64
}

func NewLedger(startingBalance float64) *Ledger {
	return &Ledger{
		cash:      startingBalance,
		positions: make(map[string]*model.Position),
	}
}

// OpenPosition debits cash by qty*price*(1+feeBps/10000) and records the
// position. Fails without mutating state when cash would go negative.
func (l *Ledger) OpenPosition(symbol string, qty, price, feeBps float64, ts time.Time) (*model.Position, error) {
	if _, ok := l.positions[symbol]; ok {
		return nil, ErrPositionOpen
	}

	cost := qty * price
	fee := cost * feeBps / 10_000
	if l.cash-cost-fee < 0 {
		return nil, ErrInsufficientFunds
	}
	l.cash -= cost + fee

	pos := &model.Position{
		Symbol:     symbol,
		Quantity:   qty,
		EntryPrice: price,
		EntryTime:  ts,
		EntryFee:   fee,
	}
	l.positions[symbol] = pos
	return pos, nil
}

// ClosePosition credits cash by qty*price*(1-feeBps/10000), realizes PnL net
// of both fees and returns the immutable Trade record.
func (l *Ledger) ClosePosition(symbol string, price, feeBps float64, ts time.Time, reason string) (model.Trade, error) {
	pos, ok := l.positions[symbol]
	if !ok {
		return model.Trade{}, ErrNoOpenPosition
	}

	proceeds := pos.Quantity * price
	exitFee := proceeds * feeBps / 10_000
	l.cash += proceeds - exitFee

	costBasis := pos.Quantity * pos.EntryPrice
	feeTotal := pos.EntryFee + exitFee
	pnl := proceeds - costBasis - feeTotal

	trade := model.Trade{
		Symbol:     symbol,
		EntryTime:  pos.EntryTime,
		EntryPrice: pos.EntryPrice,
		ExitTime:   ts,
		ExitPrice:  price,
		Quantity:   pos.Quantity,
		FeeTotal:   feeTotal,
		PnL:        pnl,
		ExitReason: reason,
	}
	l.trades = append(l.trades, trade)
	l.realizedPnL += pnl
	delete(l.positions, symbol)
	return trade, nil
}

// Position returns the open position for symbol, or nil.
func (l *Ledger) Position(symbol string) *model.Position {
	return l.positions[symbol]
}

// Cash returns the current cash balance.
func (l *Ledger) Cash() float64 {
	return l.cash
}

// RealizedPnL returns the sum of PnL over all closed trades.
func (l *Ledger) RealizedPnL() float64 {
	return l.realizedPnL
}

// Equity marks all open positions to price and returns cash plus market
// value. Pure read, no mutation.
func (l *Ledger) Equity(price float64) float64 {
	equity := l.cash
	for _, pos := range l.positions {
		equity += pos.Quantity * price
	}
	return equity
}

// SampleEquity appends one equity point. Callers sample exactly once per
// candle/iteration, never mid-iteration.
func (l *Ledger) SampleEquity(ts time.Time, price float64) model.EquityPoint {
	pt := model.EquityPoint{Timestamp: ts, Equity: l.Equity(price)}
	l.equityCurve = append(l.equityCurve, pt)
	return pt
}

// EquityCurve returns the sampled curve, ordered by sampling time.
func (l *Ledger) EquityCurve() []model.EquityPoint {
	return l.equityCurve
}

// Trades returns all closed trades in close order.
func (l *Ledger) Trades() []model.Trade {
	return l.trades
}
