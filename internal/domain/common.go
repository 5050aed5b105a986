package domain

// Direction represents the side of a position (LONG or SHORT).
type Direction string

const (
	Long  Direction = "LONG"
	Short Direction = "SHORT"
)

// CloseReason indicates why a position was closed.
type CloseReason string

const (
	CloseReasonStopLoss    CloseReason = "STOP_LOSS"
	CloseReasonTakeProfit  CloseReason = "TAKE_PROFIT"
	CloseReasonMaxDuration CloseReason = "MAX_DURATION"
	CloseReasonManual      CloseReason = "MANUAL"
	CloseReasonBulkClose   CloseReason = "BULK_CLOSE"
)

// VolatilityTier classifies a token's recent price volatility.
type VolatilityTier string

const (
	VolatilityLow    VolatilityTier = "low"
	VolatilityMedium VolatilityTier = "medium"
	VolatilityHigh   VolatilityTier = "high"
)

// RiskEventType identifies the kind of risk limit that was reached.
type RiskEventType string

const (
	RiskEventDrawdownLimit  RiskEventType = "DRAWDOWN_LIMIT"
	RiskEventCircuitBreaker RiskEventType = "CIRCUIT_BREAKER"
)
