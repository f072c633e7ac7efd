package engine

import "crypto-backtester/internal/model"

// WinRate is the fraction of closed trades with positive PnL. Zero trades
// yields 0, not an error.
func WinRate(trades []model.Trade) float64 {
	if len(trades) == 0 {
		return 0
	}
	wins := 0
	for _, t := range trades {
		if t.PnL > 0 {
			wins++
		}
	}
	return float64(wins) / float64(len(trades))
}

// MaxDrawdown scans the equity curve for the largest fractional decline from
// a running peak. Result is in [0, 1]; 0 when the curve never decreases.
func MaxDrawdown(curve []model.EquityPoint) float64 {
	if len(curve) == 0 {
		return 0
	}
	peak := curve[0].Equity
	maxDD := 0.0
	for _, pt := range curve {
		if pt.Equity > peak {
			peak = pt.Equity
		}
		if peak > 0 {
			if dd := (peak - pt.Equity) / peak; dd > maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD
}

// AvgTradePnL is the mean PnL over closed trades; 0 when there are none.
func AvgTradePnL(trades []model.Trade) float64 {
	if len(trades) == 0 {
		return 0
	}
	sum := 0.0
	for _, t := range trades {
		sum += t.PnL
	}
	return sum / float64(len(trades))
}
