package domain

import "time"

// TrailingStop holds the state of a trailing stop attached to a position.
// Current only ever tightens: up for LONG positions, down for SHORT ones.
type TrailingStop struct {
	Enabled  bool
	Distance float64 // Distance from the current price, in percent
	Current  float64 // Current stop level (absolute price)
	Initial  float64 // Stop level at activation time
}

// Position represents an open, tracked trade with entry terms and exit triggers.
type Position struct {
	ID           string        // Unique identifier (UUID)
	Token        string        // Token identifier (e.g., mint address or symbol)
	Amount       float64       // Position size in token units (> 0)
	EntryPrice   float64       // Price at which the position was entered
	CurrentPrice float64       // Last observed price
	Direction    Direction     // LONG or SHORT
	EntryTime    time.Time     // Timestamp when the position was opened
	StopLoss     float64       // Static stop-loss level (absolute price, direction-aware)
	TakeProfit   float64       // Take-profit level (absolute price, direction-aware)
	Trailing     TrailingStop  // Trailing stop state; zero value means disabled
	LastUpdate   time.Time     // Timestamp of the last price update
	Signal       Signal        // Originating signal metadata
	MaxDuration  time.Duration // Optional maximum holding time (0 = unlimited)
}

// ClosedPosition is an immutable record of a position after exit.
type ClosedPosition struct {
	Position
	ExitPrice        float64
	ExitTime         time.Time
	HoldingTime      time.Duration
	Profit           float64     // Signed amount: Amount × direction-aware price diff
	ProfitPercentage float64     // Signed percent relative to entry price
	CloseReason      CloseReason // STOP_LOSS, TAKE_PROFIT, MAX_DURATION, MANUAL, BULK_CLOSE
}

// EffectiveStop returns the stop level currently in force: the trailing stop
// if enabled, otherwise the static stop loss.
func (p *Position) EffectiveStop() float64 {
	if p.Trailing.Enabled {
		return p.Trailing.Current
	}
	return p.StopLoss
}

// RatchetTrailingStop computes the trailing stop level implied by price and
// returns the tightened level. The stop never loosens: for a LONG it only
// moves up, for a SHORT only down. The second return reports whether the
// level actually moved. Pure; callers decide whether to apply the result.
func (p *Position) RatchetTrailingStop(price float64) (float64, bool) {
	if !p.Trailing.Enabled || price <= 0 {
		return p.Trailing.Current, false
	}
	switch p.Direction {
	case Short:
		candidate := price * (1 + p.Trailing.Distance/100)
		if candidate < p.Trailing.Current {
			return candidate, true
		}
	default: // Long
		candidate := price * (1 - p.Trailing.Distance/100)
		if candidate > p.Trailing.Current {
			return candidate, true
		}
	}
	return p.Trailing.Current, false
}

// EvaluateExit decides whether the position should be closed at price, using
// the effective stop. Trigger priority is fixed: STOP_LOSS, then TAKE_PROFIT,
// then MAX_DURATION. Pure; shared by the position store and the risk engine
// so the two can never drift apart.
func (p *Position) EvaluateExit(price float64, now time.Time) (CloseReason, bool) {
	stop := p.EffectiveStop()
	if p.Direction == Short {
		if stop > 0 && price >= stop {
			return CloseReasonStopLoss, true
		}
		if p.TakeProfit > 0 && price <= p.TakeProfit {
			return CloseReasonTakeProfit, true
		}
	} else {
		if stop > 0 && price <= stop {
			return CloseReasonStopLoss, true
		}
		if p.TakeProfit > 0 && price >= p.TakeProfit {
			return CloseReasonTakeProfit, true
		}
	}
	if p.MaxDuration > 0 && now.Sub(p.EntryTime) >= p.MaxDuration {
		return CloseReasonMaxDuration, true
	}
	return "", false
}

// ProfitAt computes the signed profit and profit percentage the position
// would realize if exited at price.
func (p *Position) ProfitAt(price float64) (profit, profitPct float64) {
	var diff float64
	if p.Direction == Short {
		diff = p.EntryPrice - price
	} else {
		diff = price - p.EntryPrice
	}
	profit = p.Amount * diff
	if p.EntryPrice != 0 {
		profitPct = diff / p.EntryPrice * 100
	}
	return profit, profitPct
}

// CapitalAtRisk returns the loss this position would take if its effective
// stop fired right now, direction-aware. Positions with no stop risk their
// full notional value.
func (p *Position) CapitalAtRisk() float64 {
	stop := p.EffectiveStop()
	if stop <= 0 {
		return p.Amount * p.CurrentPrice
	}
	var perUnit float64
	if p.Direction == Short {
		perUnit = stop - p.EntryPrice
	} else {
		perUnit = p.EntryPrice - stop
	}
	if perUnit < 0 {
		// Stop already locked in profit; no capital at risk.
		return 0
	}
	return perUnit * p.Amount
}

// Notional returns the current market value of the position.
func (p *Position) Notional() float64 {
	return p.Amount * p.CurrentPrice
}

// StopLossLevel derives an absolute stop-loss level from a percent distance,
// direction-aware: below entry for LONG, above for SHORT.
func StopLossLevel(entryPrice, stopLossPct float64, direction Direction) float64 {
	if direction == Short {
		return entryPrice * (1 + stopLossPct/100)
	}
	return entryPrice * (1 - stopLossPct/100)
}

// TakeProfitLevel derives an absolute take-profit level from a percent
// distance, direction-aware: above entry for LONG, below for SHORT.
func TakeProfitLevel(entryPrice, takeProfitPct float64, direction Direction) float64 {
	if direction == Short {
		return entryPrice * (1 - takeProfitPct/100)
	}
	return entryPrice * (1 + takeProfitPct/100)
}
