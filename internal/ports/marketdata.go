package ports

import (
	"context"

	"tokenTradeBot/internal/domain"
)

// PriceSource retrieves current prices for a batch of tokens.
type PriceSource interface {
	// GetPrices returns the last price for each requested token. Tokens the
	// source cannot price are simply absent from the result; callers decide
	// how to handle gaps.
	GetPrices(ctx context.Context, tokens []string) (map[string]float64, error)
}

// MarketDataSource retrieves market condition snapshots per token.
type MarketDataSource interface {
	GetMarketData(ctx context.Context, token string) (*domain.MarketData, error)
}
