package domain

// MarketData is a point-in-time snapshot of a token's market conditions,
// supplied by an external market-data source.
type MarketData struct {
	Token      string
	Price      float64        // Last traded price
	Liquidity  float64        // Quote-denominated liquidity available near the top of book
	Volume24h  float64        // Quote-denominated traded volume over the last 24 hours
	Volatility VolatilityTier // low, medium or high
}
