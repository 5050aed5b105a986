package signals

import (
	"context"

	"tokenTradeBot/internal/domain"
	"tokenTradeBot/internal/ports"
)

// Momentum is a minimal signal provider that compares each token's price
// against the previous observation and fires a LONG signal on a sufficiently
// large upward move. It exists to drive the trading cycle end to end;
// anything smarter plugs in behind the same ports.SignalProvider interface.
type Momentum struct {
	clock        ports.Clock
	thresholdPct float64 // Minimum percent move between observations
	lastPrices   map[string]float64
}

// NewMomentum creates a momentum signal provider. thresholdPct is the
// minimum percent rise between two consecutive observations that produces a
// signal.
func NewMomentum(clock ports.Clock, thresholdPct float64) *Momentum {
	if thresholdPct <= 0 {
		thresholdPct = 1.0
	}
	return &Momentum{
		clock:        clock,
		thresholdPct: thresholdPct,
		lastPrices:   make(map[string]float64),
	}
}

// Signals compares the current prices against the previous observation and
// returns LONG candidates for tokens that moved up by at least the
// threshold. The first observation of a token never signals.
func (m *Momentum) Signals(ctx context.Context, prices map[string]float64) []domain.Signal {
	now := m.clock.Now()
	var out []domain.Signal
	for token, price := range prices {
		last, seen := m.lastPrices[token]
		m.lastPrices[token] = price
		if !seen || last <= 0 || price <= 0 {
			continue
		}
		movePct := (price - last) / last * 100
		if movePct < m.thresholdPct {
			continue
		}
		// Confidence scales with the size of the move, saturating at twice
		// the threshold.
		confidence := 0.5 + 0.5*(movePct-m.thresholdPct)/m.thresholdPct
		if confidence > 1 {
			confidence = 1
		}
		out = append(out, domain.Signal{
			Token:      token,
			Direction:  domain.Long,
			Price:      price,
			Confidence: confidence,
			Strategy:   "momentum",
			Time:       now,
		})
	}
	return out
}
