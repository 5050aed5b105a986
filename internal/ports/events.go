package ports

import "tokenTradeBot/internal/domain"

// PositionListener receives position lifecycle events from the position
// store. Listeners subscribe explicitly; there is no ambient broadcast.
// Callbacks run synchronously on the store's caller and must not call back
// into the store.
type PositionListener interface {
	// PositionOpened is invoked after a position has been created.
	PositionOpened(pos *domain.Position)
	// PositionClosed is invoked after a position has been moved to history.
	PositionClosed(pos *domain.ClosedPosition)
}

// RiskListener receives risk limit events from the risk engine.
type RiskListener interface {
	RiskLimitReached(event domain.RiskEvent)
}
