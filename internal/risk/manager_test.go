package risk

import (
	"math"
	"testing"
	"time"

	"go.uber.org/zap"

	"crypto-backtester/internal/model"
	"crypto-backtester/internal/service"
)

var day1 = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

func buySignal(ts time.Time, price float64) model.Signal {
	return model.Signal{Symbol: "BTCUSDT", Timestamp: ts, Action: model.ActionBuy, Price: price}
}

func sellSignal(ts time.Time, price float64) model.Signal {
	return model.Signal{Symbol: "BTCUSDT", Timestamp: ts, Action: model.ActionSell, Price: price}
}

func openPosition(qty, entry float64) *model.Position {
	return &model.Position{Symbol: "BTCUSDT", Quantity: qty, EntryPrice: entry, EntryTime: day1}
}

func TestDailyCapSuppressesExcessSignals(t *testing.T) {
	m := NewManager(service.RiskSettings{MaxTradesPerDay: 2}, zap.NewNop())

	var pos *model.Position
	approved, suppressed := 0, 0
	for i := 0; i < 5; i++ {
		ts := day1.Add(time.Duration(i) * time.Minute)
		var sig model.Signal
		if pos == nil {
			sig = buySignal(ts, 100)
		} else {
			sig = sellSignal(ts, 100)
		}

		d := m.Approve(sig, pos, 10000, 1, false)
		if d.Approved {
			approved++
			if sig.Action == model.ActionBuy {
				pos = openPosition(d.Quantity, sig.Price)
			} else {
				pos = nil
			}
			continue
		}
		suppressed++
		if d.Suppression != model.SuppressDailyCap {
			t.Fatalf("signal %d suppressed with %q, want %q", i, d.Suppression, model.SuppressDailyCap)
		}
	}

	if approved != 2 || suppressed != 3 {
		t.Fatalf("approved=%d suppressed=%d, want 2/3", approved, suppressed)
	}
}

func TestDailyCapResetsOnUTCDayRollover(t *testing.T) {
	m := NewManager(service.RiskSettings{MaxTradesPerDay: 1}, zap.NewNop())

	if d := m.Approve(buySignal(day1, 100), nil, 10000, 1, false); !d.Approved {
		t.Fatalf("first signal suppressed: %q", d.Suppression)
	}
	if d := m.Approve(sellSignal(day1.Add(time.Minute), 100), openPosition(1, 100), 10000, 1, false); d.Approved {
		t.Fatal("second same-day signal should hit the cap")
	}

	nextDay := day1.Add(24 * time.Hour)
	if d := m.Approve(buySignal(nextDay, 100), nil, 10000, 1, false); !d.Approved {
		t.Fatalf("signal after rollover suppressed: %q", d.Suppression)
	}
	if m.TradesToday() != 1 {
		t.Fatalf("TradesToday = %d after rollover, want 1", m.TradesToday())
	}
}

func TestForcedExitBypassesDailyCap(t *testing.T) {
	m := NewManager(service.RiskSettings{MaxTradesPerDay: 1}, zap.NewNop())

	if d := m.Approve(buySignal(day1, 100), nil, 10000, 1, false); !d.Approved {
		t.Fatalf("buy suppressed: %q", d.Suppression)
	}
	d := m.Approve(sellSignal(day1.Add(time.Minute), 95), openPosition(1, 100), 10000, 1, true)
	if !d.Approved {
		t.Fatalf("forced exit suppressed: %q", d.Suppression)
	}
	if m.TradesToday() != 1 {
		t.Fatalf("forced exit counted toward cap: TradesToday = %d", m.TradesToday())
	}
}

func TestForcedExitCountsWhenConfigured(t *testing.T) {
	m := NewManager(service.RiskSettings{MaxTradesPerDay: 5, CountForcedExits: true}, zap.NewNop())

	d := m.Approve(sellSignal(day1, 95), openPosition(1, 100), 10000, 1, true)
	if !d.Approved {
		t.Fatalf("forced exit suppressed: %q", d.Suppression)
	}
	if m.TradesToday() != 1 {
		t.Fatalf("TradesToday = %d, want 1", m.TradesToday())
	}
}

func TestTradingWindowSuppression(t *testing.T) {
	m := NewManager(service.RiskSettings{
		TradingWindow: service.TradingWindow{StartHour: 8, EndHour: 12},
	}, zap.NewNop())

	outside := time.Date(2024, 3, 1, 14, 0, 0, 0, time.UTC)
	d := m.Approve(buySignal(outside, 100), nil, 10000, 1, false)
	if d.Approved || d.Suppression != model.SuppressTradingWindow {
		t.Fatalf("decision = %+v, want TRADING_WINDOW suppression", d)
	}

	inside := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	if d := m.Approve(buySignal(inside, 100), nil, 10000, 1, false); !d.Approved {
		t.Fatalf("in-window signal suppressed: %q", d.Suppression)
	}
}

func TestPositionSizingClamp(t *testing.T) {
	m := NewManager(service.RiskSettings{MaxPositionPct: 0.1}, zap.NewNop())

	d := m.Approve(buySignal(day1, 50000), nil, 10000, 1, false)
	if !d.Approved {
		t.Fatalf("suppressed: %q", d.Suppression)
	}
	// 0.1 * 10000 / 50000
	if math.Abs(d.Quantity-0.02) > 1e-12 {
		t.Fatalf("quantity = %v, want 0.02", d.Quantity)
	}
}

func TestZeroQuantitySuppressed(t *testing.T) {
	m := NewManager(service.RiskSettings{MaxPositionPct: 0.1}, zap.NewNop())

	d := m.Approve(buySignal(day1, 50000), nil, 0, 1, false)
	if d.Approved || d.Suppression != model.SuppressPositionSize {
		t.Fatalf("decision = %+v, want POSITION_SIZE suppression", d)
	}
}

func TestDirectionalValidity(t *testing.T) {
	m := NewManager(service.RiskSettings{}, zap.NewNop())

	d := m.Approve(sellSignal(day1, 100), nil, 10000, 1, false)
	if d.Approved || d.Suppression != model.SuppressNoPosition {
		t.Fatalf("flat sell decision = %+v, want NO_POSITION", d)
	}

	d = m.Approve(buySignal(day1, 100), openPosition(1, 90), 10000, 1, false)
	if d.Approved || d.Suppression != model.SuppressAlreadyOpen {
		t.Fatalf("pyramiding buy decision = %+v, want ALREADY_OPEN", d)
	}
}

func TestSellClosesFullPosition(t *testing.T) {
	m := NewManager(service.RiskSettings{}, zap.NewNop())

	d := m.Approve(sellSignal(day1, 100), openPosition(0.75, 90), 10000, 0.1, false)
	if !d.Approved {
		t.Fatalf("sell suppressed: %q", d.Suppression)
	}
	if d.Quantity != 0.75 {
		t.Fatalf("sell quantity = %v, want the full 0.75", d.Quantity)
	}
}

func TestAttachAndCheckExits(t *testing.T) {
	m := NewManager(service.RiskSettings{StopLossPct: 0.02, TakeProfitPct: 0.05}, zap.NewNop())

	pos := openPosition(1, 100)
	m.AttachExits(pos)
	if math.Abs(pos.StopLossPrice-98) > 1e-9 {
		t.Fatalf("stop loss = %v, want 98", pos.StopLossPrice)
	}
	if math.Abs(pos.TakeProfitPrice-105) > 1e-9 {
		t.Fatalf("take profit = %v, want 105", pos.TakeProfitPrice)
	}

	if reason, hit := m.CheckExits(pos, 97.9); !hit || reason != model.ExitStopLoss {
		t.Fatalf("97.9: reason=%q hit=%v, want STOP_LOSS", reason, hit)
	}
	if _, hit := m.CheckExits(pos, 98.1); hit {
		t.Fatal("98.1 must not trigger the 98 stop")
	}
	if reason, hit := m.CheckExits(pos, 105.5); !hit || reason != model.ExitTakeProfit {
		t.Fatalf("105.5: reason=%q hit=%v, want TAKE_PROFIT", reason, hit)
	}
	if _, hit := m.CheckExits(nil, 50); hit {
		t.Fatal("nil position must never trigger an exit")
	}
}

func TestStopLossWinsOverTakeProfit(t *testing.T) {
	m := NewManager(service.RiskSettings{}, zap.NewNop())

	// Degenerate levels where one price breaches both.
	pos := openPosition(1, 100)
	pos.StopLossPrice = 100
	pos.TakeProfitPrice = 99

	reason, hit := m.CheckExits(pos, 99.5)
	if !hit || reason != model.ExitStopLoss {
		t.Fatalf("reason=%q hit=%v, want STOP_LOSS priority", reason, hit)
	}
}

func TestTrailingStopFollowsPeak(t *testing.T) {
	m := NewManager(service.RiskSettings{TrailingStopPct: 0.05}, zap.NewNop())

	pos := openPosition(1, 100)
	m.AttachExits(pos)
	if pos.HighestPrice != 100 {
		t.Fatalf("peak = %v, want to start at the entry price", pos.HighestPrice)
	}

	if _, hit := m.CheckExits(pos, 110); hit {
		t.Fatal("rising price triggered an exit")
	}
	if pos.HighestPrice != 110 {
		t.Fatalf("peak = %v, want 110 after the new high", pos.HighestPrice)
	}

	// trail sits 5% under the 110 peak
	if _, hit := m.CheckExits(pos, 104.6); hit {
		t.Fatal("104.6 must not breach the 104.5 trail")
	}
	reason, hit := m.CheckExits(pos, 104.4)
	if !hit || reason != model.ExitTrailingStop {
		t.Fatalf("104.4: reason=%q hit=%v, want TRAILING_STOP", reason, hit)
	}
}

func TestTrailingStopAnchorsAtEntry(t *testing.T) {
	m := NewManager(service.RiskSettings{TrailingStopPct: 0.05}, zap.NewNop())

	pos := openPosition(1, 100)
	m.AttachExits(pos)

	reason, hit := m.CheckExits(pos, 94)
	if !hit || reason != model.ExitTrailingStop {
		t.Fatalf("94 with no new peak: reason=%q hit=%v, want TRAILING_STOP", reason, hit)
	}
}

func TestStopLossWinsOverTrailingStop(t *testing.T) {
	m := NewManager(service.RiskSettings{StopLossPct: 0.05, TrailingStopPct: 0.05}, zap.NewNop())

	pos := openPosition(1, 100)
	m.AttachExits(pos)

	reason, hit := m.CheckExits(pos, 94)
	if !hit || reason != model.ExitStopLoss {
		t.Fatalf("reason=%q hit=%v, want STOP_LOSS priority", reason, hit)
	}
}

func TestDrawdownHaltBlocksNewEntries(t *testing.T) {
	m := NewManager(service.RiskSettings{
		Guardrails: service.GuardrailSettings{MaxDrawdownPct: 0.1},
	}, zap.NewNop())

	// First entry of the month baselines equity at 10000.
	if d := m.Approve(buySignal(day1, 100), nil, 10000, 1, false); !d.Approved {
		t.Fatalf("baseline entry suppressed: %q", d.Suppression)
	}

	d := m.Approve(buySignal(day1.Add(time.Hour), 100), nil, 8800, 1, false)
	if d.Approved || d.Suppression != model.SuppressDrawdownHalt {
		t.Fatalf("decision = %+v, want DRAWDOWN_HALT at 12%% month drawdown", d)
	}

	// Exits are never blocked by guardrails.
	d = m.Approve(sellSignal(day1.Add(2*time.Hour), 100), openPosition(1, 100), 8800, 1, false)
	if !d.Approved {
		t.Fatalf("sell suppressed during halt: %q", d.Suppression)
	}
}

func TestDrawdownHaltRebaselinesNextMonth(t *testing.T) {
	m := NewManager(service.RiskSettings{
		Guardrails: service.GuardrailSettings{MaxDrawdownPct: 0.1},
	}, zap.NewNop())

	if d := m.Approve(buySignal(day1, 100), nil, 10000, 1, false); !d.Approved {
		t.Fatalf("baseline entry suppressed: %q", d.Suppression)
	}
	if d := m.Approve(buySignal(day1.Add(time.Hour), 100), nil, 8800, 1, false); d.Approved {
		t.Fatal("drawdown halt did not engage")
	}

	april := time.Date(2024, 4, 1, 10, 0, 0, 0, time.UTC)
	if d := m.Approve(buySignal(april, 100), nil, 8800, 1, false); !d.Approved {
		t.Fatalf("entry after month rollover suppressed: %q", d.Suppression)
	}
}

func TestLossCooldownBlocksEntries(t *testing.T) {
	m := NewManager(service.RiskSettings{
		Guardrails: service.GuardrailSettings{LossLimit: 2, CooldownMinutes: 30},
	}, zap.NewNop())

	m.RecordTrade(-5, day1)
	m.RecordTrade(-5, day1.Add(time.Minute))

	d := m.Approve(buySignal(day1.Add(2*time.Minute), 100), nil, 10000, 1, false)
	if d.Approved || d.Suppression != model.SuppressLossCooldown {
		t.Fatalf("decision = %+v, want LOSS_COOLDOWN after 2 straight losses", d)
	}

	// The 30 minute cooldown started at the second loss.
	if d := m.Approve(buySignal(day1.Add(40*time.Minute), 100), nil, 10000, 1, false); !d.Approved {
		t.Fatalf("entry after cooldown expiry suppressed: %q", d.Suppression)
	}
}

func TestWinningTradeResetsLossStreak(t *testing.T) {
	m := NewManager(service.RiskSettings{
		Guardrails: service.GuardrailSettings{LossLimit: 2, CooldownMinutes: 30},
	}, zap.NewNop())

	m.RecordTrade(-5, day1)
	m.RecordTrade(3, day1.Add(time.Minute))
	m.RecordTrade(-5, day1.Add(2*time.Minute))

	if d := m.Approve(buySignal(day1.Add(3*time.Minute), 100), nil, 10000, 1, false); !d.Approved {
		t.Fatalf("entry suppressed without a full loss streak: %q", d.Suppression)
	}
}

func TestZeroPctLeavesExitsDisabled(t *testing.T) {
	m := NewManager(service.RiskSettings{}, zap.NewNop())

	pos := openPosition(1, 100)
	m.AttachExits(pos)
	if pos.StopLossPrice != 0 || pos.TakeProfitPrice != 0 {
		t.Fatalf("exits attached with zero pcts: SL=%v TP=%v", pos.StopLossPrice, pos.TakeProfitPrice)
	}
	if _, hit := m.CheckExits(pos, 0.0001); hit {
		t.Fatal("disabled exits must never trigger")
	}
}
