package risk

import (
	"tokenTradeBot/internal/domain"
)

// PositionRisk is the sizing and exit-level recommendation for a candidate
// trade. Levels are long-side absolute prices derived from the adjusted
// percent distances; SizePct is in percent of portfolio.
type PositionRisk struct {
	StopLossPct     float64
	TakeProfitPct   float64
	StopLoss        float64
	TakeProfit      float64
	RiskReward      float64
	GoodOpportunity bool
	SizePct         float64
}

// CalculatePositionRisk derives stop-loss and take-profit distances, the
// risk/reward ratio and a recommended size for a candidate trade. It is a
// pure function of its inputs and the static config; engine state plays no
// part, so the same inputs always yield the same recommendation.
//
// Distances start from the configured base and are scaled by the token's
// volatility tier. Confidence widens the take-profit (factor 0.8 to 1.2
// across the confidence range) and tightens the stop by 10% above 0.8.
// Size starts from the configured base, shrinks 20% for weak setups
// (risk/reward below 2 or confidence below 0.7), grows 20% for strong ones
// (risk/reward above 3 and confidence above 0.8), shrinks a further 30% for
// high-volatility tokens, and is clamped to the configured bounds.
func (e *Engine) CalculatePositionRisk(token string, entryPrice, confidence float64, md *domain.MarketData) PositionRisk {
	volMult := 1.0
	if md != nil {
		if m, ok := e.cfg.VolatilityMultipliers[md.Volatility]; ok {
			volMult = m
		}
	}

	slPct := e.cfg.BaseStopLossPct * volMult
	tpPct := e.cfg.BaseTakeProfitPct * volMult
	tpPct *= 0.8 + confidence*0.4
	if confidence > 0.8 {
		slPct *= 0.9
	}

	stopLoss := entryPrice * (1 - slPct/100)
	takeProfit := entryPrice * (1 + tpPct/100)

	var riskReward float64
	if entryPrice > stopLoss {
		riskReward = (takeProfit - entryPrice) / (entryPrice - stopLoss)
	}

	sizePct := e.cfg.BasePositionSizePct
	if riskReward < 2 || confidence < 0.7 {
		sizePct *= 0.8
	}
	if riskReward > 3 && confidence > 0.8 {
		sizePct *= 1.2
	}
	if md != nil && md.Volatility == domain.VolatilityHigh {
		sizePct *= 0.7
	}
	if sizePct < e.cfg.MinTradeAmountPct {
		sizePct = e.cfg.MinTradeAmountPct
	}
	if sizePct > e.cfg.MaxExposurePerToken {
		sizePct = e.cfg.MaxExposurePerToken
	}

	return PositionRisk{
		StopLossPct:     slPct,
		TakeProfitPct:   tpPct,
		StopLoss:        stopLoss,
		TakeProfit:      takeProfit,
		RiskReward:      riskReward,
		GoodOpportunity: riskReward >= 1.5,
		SizePct:         sizePct,
	}
}

// CalculateMaxPositionSize returns the largest position, in token units,
// that fits both the base per-position cap and the remaining exposure
// headroom for the token. Returns 0 when the token has no headroom or the
// inputs are degenerate.
func (e *Engine) CalculateMaxPositionSize(token string, price, portfolioValue float64) float64 {
	if price <= 0 || portfolioValue <= 0 {
		return 0
	}
	headroomPct := e.cfg.MaxExposurePerToken - e.exposure[token]
	if headroomPct <= 0 {
		return 0
	}
	capPct := e.cfg.BasePositionSizePct
	if headroomPct < capPct {
		capPct = headroomPct
	}
	return portfolioValue * capPct / 100 / price
}
