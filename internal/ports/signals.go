package ports

import (
	"context"

	"tokenTradeBot/internal/domain"
)

// SignalProvider produces candidate trade signals for a trading cycle.
// Signal generation is external to the core; the orchestrator screens every
// candidate through the risk engine before acting on it.
type SignalProvider interface {
	Signals(ctx context.Context, prices map[string]float64) []domain.Signal
}
