package risk

import (
	"context"
	"fmt"
	"math"
	"time"

	"tokenTradeBot/internal/domain"
	"tokenTradeBot/internal/ports"
)

// Config holds configuration for the risk engine. Exposure, position sizes,
// MinTradeAmount and MaxExposurePerToken all denominate in percent of
// portfolio value, which keeps the exposure gate and the sizing clamp in the
// same units.
type Config struct {
	MaxOpenPositions      int
	MinLiquidity          float64 // Quote-denominated liquidity floor
	MinVolume24h          float64 // Quote-denominated 24h volume floor
	MaxExposurePerToken   float64 // Percent of portfolio
	MaxDrawdownPct        float64
	MaxDailyLossPct       float64
	ConsecutiveLossLimit  int
	CircuitBreakerTimeout time.Duration

	BaseStopLossPct     float64
	BaseTakeProfitPct   float64
	BasePositionSizePct float64 // Percent of portfolio
	MinTradeAmountPct   float64 // Percent of portfolio

	// Per-tier scaling of the base stop/take-profit distances.
	VolatilityMultipliers map[domain.VolatilityTier]float64

	LiquidityBanDuration time.Duration // default 24h
	VolumeBanDuration    time.Duration // default 12h
}

// Candidate describes a trade the orchestrator wants to open. The engine
// holds no position identity, so the current open count travels with the
// candidate.
type Candidate struct {
	Token         string
	SizePct       float64 // Requested size as percent of portfolio
	OpenPositions int     // Current open position count from the store
}

// Decision is the outcome of an admission check. Reason names the first
// failing gate; gate order is part of the contract and used for diagnostics.
type Decision struct {
	Allowed bool
	Reason  string
}

// Engine owns admission control, position sizing, exposure accounting,
// drawdown tracking and the circuit breaker. It performs no I/O and assumes
// a single coordinating caller. Time-based resets (daily loss window,
// breaker expiry) are evaluated lazily on the next relevant call rather than
// by background timers.
type Engine struct {
	cfg       Config
	logger    ports.Logger
	clock     ports.Clock
	listeners []ports.RiskListener

	breaker           domain.CircuitBreaker
	consecutiveLosses int
	dailyLossPct      float64
	dailyLossResetAt  time.Time
	peakValue         float64
	drawdownPct       float64
	portfolioValue    float64 // running value, seeded from initial capital
	exposure          map[string]float64
	limits            map[string]domain.TradingLimit
}

// NewEngine creates a risk engine.
func NewEngine(cfg Config, logger ports.Logger, clock ports.Clock) (*Engine, error) {
	if logger == nil || clock == nil {
		return nil, fmt.Errorf("%w: logger and clock are required", ports.ErrConfig)
	}
	if cfg.MaxOpenPositions <= 0 {
		return nil, fmt.Errorf("%w: MaxOpenPositions must be positive", ports.ErrConfig)
	}
	if cfg.ConsecutiveLossLimit <= 0 {
		return nil, fmt.Errorf("%w: ConsecutiveLossLimit must be positive", ports.ErrConfig)
	}
	if cfg.LiquidityBanDuration <= 0 {
		cfg.LiquidityBanDuration = 24 * time.Hour
	}
	if cfg.VolumeBanDuration <= 0 {
		cfg.VolumeBanDuration = 12 * time.Hour
	}
	if cfg.VolatilityMultipliers == nil {
		cfg.VolatilityMultipliers = map[domain.VolatilityTier]float64{
			domain.VolatilityLow:    0.8,
			domain.VolatilityMedium: 1.0,
			domain.VolatilityHigh:   1.5,
		}
	}
	return &Engine{
		cfg:              cfg,
		logger:           logger,
		clock:            clock,
		dailyLossResetAt: nextMidnight(clock.Now()),
		exposure:         make(map[string]float64),
		limits:           make(map[string]domain.TradingLimit),
	}, nil
}

// Subscribe registers a listener for risk limit events.
func (e *Engine) Subscribe(l ports.RiskListener) {
	e.listeners = append(e.listeners, l)
}

// CheckPositionAllowed runs the ordered admission gate pipeline. The first
// failing gate returns immediately. The only side effects are the lazy daily
// rollover and the lazy circuit-breaker expiry reset.
func (e *Engine) CheckPositionAllowed(c Candidate, md *domain.MarketData) Decision {
	now := e.clock.Now()

	// Gate 1: roll the daily loss window past the reset boundary.
	e.rolloverDailyLoss(now)

	// Gate 2: circuit breaker. Expired breakers reset lazily here.
	if e.breaker.Active {
		if now.Before(e.breaker.Expiry) {
			return Decision{Reason: fmt.Sprintf("circuit breaker active until %s: %s",
				e.breaker.Expiry.Format(time.RFC3339), e.breaker.Reason)}
		}
		e.breaker = domain.CircuitBreaker{}
		e.logger.Info(context.Background(), "Circuit breaker expired, trading resumed")
	}

	// Gate 3: open position cap.
	if c.OpenPositions >= e.cfg.MaxOpenPositions {
		return Decision{Reason: fmt.Sprintf("maximum open positions reached (%d/%d)",
			c.OpenPositions, e.cfg.MaxOpenPositions)}
	}

	if md == nil {
		return Decision{Reason: "no market data for token " + c.Token}
	}

	// Gate 4: minimum liquidity.
	if md.Liquidity < e.cfg.MinLiquidity {
		return Decision{Reason: fmt.Sprintf("liquidity %.2f below minimum %.2f",
			md.Liquidity, e.cfg.MinLiquidity)}
	}

	// Gate 5: minimum 24h volume.
	if md.Volume24h < e.cfg.MinVolume24h {
		return Decision{Reason: fmt.Sprintf("24h volume %.2f below minimum %.2f",
			md.Volume24h, e.cfg.MinVolume24h)}
	}

	// Gate 6: per-token exposure cap.
	if e.exposure[c.Token]+c.SizePct > e.cfg.MaxExposurePerToken {
		return Decision{Reason: fmt.Sprintf("token exposure %.2f%% + %.2f%% would exceed cap %.2f%%",
			e.exposure[c.Token], c.SizePct, e.cfg.MaxExposurePerToken)}
	}

	// Gate 7: drawdown cap.
	if e.drawdownPct > e.cfg.MaxDrawdownPct {
		return Decision{Reason: fmt.Sprintf("drawdown %.2f%% exceeds maximum %.2f%%",
			e.drawdownPct, e.cfg.MaxDrawdownPct)}
	}

	// Gate 8: daily loss cap.
	if e.dailyLossPct >= e.cfg.MaxDailyLossPct {
		return Decision{Reason: fmt.Sprintf("daily loss %.2f%% reached limit %.2f%%",
			e.dailyLossPct, e.cfg.MaxDailyLossPct)}
	}

	return Decision{Allowed: true}
}

// IsTokenAllowed is a proactive per-token screen, independent of the
// admission pipeline. A token failing the liquidity threshold is banned for
// 24h, one failing the volume threshold for 12h; the ban is imposed here as
// a side effect. Re-checking an already banned token returns the original
// reason without extending the ban.
func (e *Engine) IsTokenAllowed(token string, md *domain.MarketData) (bool, string) {
	now := e.clock.Now()
	if lim, ok := e.limits[token]; ok {
		if now.Before(lim.ExpiresAt) {
			return false, lim.Reason
		}
		delete(e.limits, token)
	}
	if md == nil {
		return false, "no market data for token " + token
	}
	if md.Liquidity < e.cfg.MinLiquidity {
		reason := fmt.Sprintf("liquidity %.2f below minimum %.2f", md.Liquidity, e.cfg.MinLiquidity)
		e.banToken(token, reason, now.Add(e.cfg.LiquidityBanDuration))
		return false, reason
	}
	if md.Volume24h < e.cfg.MinVolume24h {
		reason := fmt.Sprintf("24h volume %.2f below minimum %.2f", md.Volume24h, e.cfg.MinVolume24h)
		e.banToken(token, reason, now.Add(e.cfg.VolumeBanDuration))
		return false, reason
	}
	return true, ""
}

func (e *Engine) banToken(token, reason string, expiresAt time.Time) {
	e.limits[token] = domain.TradingLimit{Reason: reason, ExpiresAt: expiresAt}
	e.logger.Warn(context.Background(), "Token banned from trading", map[string]interface{}{
		"token":     token,
		"reason":    reason,
		"expiresAt": expiresAt.Format(time.RFC3339),
	})
}

// UpdateDrawdown tracks the portfolio peak (monotonic non-decreasing) and
// the current drawdown from it. A breach emits a DRAWDOWN_LIMIT event and
// returns false; it never returns an error because hitting the limit is an
// expected steady-state outcome the orchestrator decides how to handle.
func (e *Engine) UpdateDrawdown(currentValue, initialCapital float64) bool {
	if e.peakValue < initialCapital {
		e.peakValue = initialCapital
	}
	if currentValue > e.peakValue {
		e.peakValue = currentValue
	}
	if e.peakValue > 0 {
		e.drawdownPct = (e.peakValue - currentValue) / e.peakValue * 100
	}
	if e.drawdownPct > e.cfg.MaxDrawdownPct {
		reason := fmt.Sprintf("drawdown %.2f%% exceeds maximum %.2f%%", e.drawdownPct, e.cfg.MaxDrawdownPct)
		e.emit(domain.RiskEvent{Type: domain.RiskEventDrawdownLimit, Reason: reason})
		return false
	}
	return true
}

// RecordTradeResult feeds a realized trade result into loss accounting. A
// loss increments the consecutive-loss counter and the daily loss window; a
// win resets the consecutive counter (the daily window only clears at
// rollover). Crossing either circuit-breaker threshold trips the breaker and
// returns false. Drawdown is always updated from the running portfolio
// value.
func (e *Engine) RecordTradeResult(profit, pnlPct, initialCapital float64) bool {
	now := e.clock.Now()
	e.rolloverDailyLoss(now)

	if e.portfolioValue == 0 {
		e.portfolioValue = initialCapital
	}
	e.portfolioValue += profit
	withinLimits := e.UpdateDrawdown(e.portfolioValue, initialCapital)

	if profit > 0 {
		e.consecutiveLosses = 0
		return withinLimits
	}

	e.consecutiveLosses++
	e.dailyLossPct += math.Abs(pnlPct)

	if e.consecutiveLosses >= e.cfg.ConsecutiveLossLimit {
		e.tripBreaker(now, fmt.Sprintf("%d consecutive losses (limit %d)",
			e.consecutiveLosses, e.cfg.ConsecutiveLossLimit))
		return false
	}
	if e.dailyLossPct >= e.cfg.MaxDailyLossPct {
		e.tripBreaker(now, fmt.Sprintf("daily loss %.2f%% reached limit %.2f%%",
			e.dailyLossPct, e.cfg.MaxDailyLossPct))
		return false
	}
	return withinLimits
}

func (e *Engine) tripBreaker(now time.Time, reason string) {
	e.breaker = domain.CircuitBreaker{
		Active:      true,
		Reason:      reason,
		ActivatedAt: now,
		Expiry:      now.Add(e.cfg.CircuitBreakerTimeout),
	}
	e.logger.Warn(context.Background(), "Circuit breaker tripped", map[string]interface{}{
		"reason": reason,
		"expiry": e.breaker.Expiry.Format(time.RFC3339),
	})
	e.emit(domain.RiskEvent{
		Type:   domain.RiskEventCircuitBreaker,
		Reason: reason,
		Expiry: e.breaker.Expiry,
	})
}

// ResetCircuitBreaker deactivates the breaker explicitly, without waiting
// for expiry.
func (e *Engine) ResetCircuitBreaker() {
	if e.breaker.Active {
		e.logger.Info(context.Background(), "Circuit breaker reset manually")
	}
	e.breaker = domain.CircuitBreaker{}
}

// ExposureOp selects the direction of an exposure update.
type ExposureOp string

const (
	ExposureAdd      ExposureOp = "add"
	ExposureSubtract ExposureOp = "subtract"
)

// UpdateExposure adjusts the per-token exposure map, the authoritative input
// to the exposure gate. Subtractions floor at zero and remove the entry
// rather than storing a zero. The orchestrator calls this on open and close;
// the position store deliberately does not.
func (e *Engine) UpdateExposure(token string, pct float64, op ExposureOp) {
	switch op {
	case ExposureSubtract:
		remaining := e.exposure[token] - pct
		if remaining <= 0 {
			delete(e.exposure, token)
			return
		}
		e.exposure[token] = remaining
	default:
		e.exposure[token] += pct
	}
}

// TokenExposure returns the tracked exposure for a token, in percent of
// portfolio.
func (e *Engine) TokenExposure(token string) float64 {
	return e.exposure[token]
}

// AdjustTrailingStop pre-evaluates the trailing-stop ratchet for a position
// without mutating anything; it returns the level the stop would move to
// and whether it would move.
func (e *Engine) AdjustTrailingStop(pos *domain.Position, price float64) (float64, bool) {
	return pos.RatchetTrailingStop(price)
}

// ShouldClosePosition pre-evaluates the exit decision for a position at
// price without mutating anything.
func (e *Engine) ShouldClosePosition(pos *domain.Position, price float64) (domain.CloseReason, bool) {
	return pos.EvaluateExit(price, e.clock.Now())
}

// GetState returns a snapshot of the engine's aggregate state.
func (e *Engine) GetState() domain.RiskState {
	exposure := make(map[string]float64, len(e.exposure))
	for token, pct := range e.exposure {
		exposure[token] = pct
	}
	limits := make(map[string]domain.TradingLimit, len(e.limits))
	for token, lim := range e.limits {
		limits[token] = lim
	}
	return domain.RiskState{
		CircuitBreaker:     e.breaker,
		ConsecutiveLosses:  e.consecutiveLosses,
		DailyLossPct:       e.dailyLossPct,
		DailyLossResetAt:   e.dailyLossResetAt,
		PeakPortfolioValue: e.peakValue,
		CurrentDrawdownPct: e.drawdownPct,
		ExposureByToken:    exposure,
		TradingLimits:      limits,
	}
}

func (e *Engine) emit(event domain.RiskEvent) {
	for _, l := range e.listeners {
		l.RiskLimitReached(event)
	}
}

// rolloverDailyLoss clears the daily loss window once the local midnight
// boundary has passed. A single reset is applied regardless of how many
// boundaries elapsed while idle.
func (e *Engine) rolloverDailyLoss(now time.Time) {
	if now.Before(e.dailyLossResetAt) {
		return
	}
	e.dailyLossPct = 0
	e.dailyLossResetAt = nextMidnight(now)
}

func nextMidnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day()+1, 0, 0, 0, 0, t.Location())
}
