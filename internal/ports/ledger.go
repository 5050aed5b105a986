package ports

import (
	"context"

	"tokenTradeBot/internal/domain"
)

// TradeLedger persists closed positions for later analysis. The in-memory
// store keeps only a bounded history; the ledger is the durable record.
type TradeLedger interface {
	// RecordClosedPosition appends a closed position to the ledger.
	RecordClosedPosition(ctx context.Context, pos *domain.ClosedPosition) error
	// FindByToken retrieves the most recent closed positions for a token,
	// up to limit, newest first.
	FindByToken(ctx context.Context, token string, limit int) ([]*domain.ClosedPosition, error)
	// TotalProfit sums the realized profit across all recorded positions.
	TotalProfit(ctx context.Context) (float64, error)
}
