package domain

import "time"

// CircuitBreaker is a timed trading halt. While active, every admission
// check fails until the expiry passes (checked lazily) or an explicit reset.
type CircuitBreaker struct {
	Active      bool
	Reason      string
	ActivatedAt time.Time
	Expiry      time.Time
}

// TradingLimit is a temporary per-token ban imposed by the risk engine.
type TradingLimit struct {
	Reason    string
	ExpiresAt time.Time
}

// RiskEvent is emitted when a risk limit is reached. Expiry is set only for
// circuit-breaker events.
type RiskEvent struct {
	Type   RiskEventType
	Reason string
	Expiry time.Time
}

// RiskState is a snapshot of the risk engine's aggregate state, for
// reporting. Maps are copies; mutating them has no effect on the engine.
type RiskState struct {
	CircuitBreaker     CircuitBreaker
	ConsecutiveLosses  int
	DailyLossPct       float64
	DailyLossResetAt   time.Time
	PeakPortfolioValue float64
	CurrentDrawdownPct float64
	ExposureByToken    map[string]float64
	TradingLimits      map[string]TradingLimit
}
