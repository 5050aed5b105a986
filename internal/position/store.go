// Package position owns the set of open positions and the bounded history of
// closed ones. It performs no I/O and assumes a single coordinating caller:
// internal maps are not safe for concurrent mutation, and callers that share
// a Store across goroutines must serialize access themselves.
package position

import (
	"context"
	"fmt"
	"time"

	"tokenTradeBot/internal/domain"
	"tokenTradeBot/internal/ports"

	"github.com/google/uuid"
)

const defaultHistorySize = 1000

// Config holds configuration for the position store.
type Config struct {
	MaxOpenPositions     int
	StopLossPct          float64 // Default stop-loss distance in percent
	TakeProfitPct        float64 // Default take-profit distance in percent
	TrailingStopEnabled  bool    // Whether new positions get a trailing stop by default
	TrailingStopDistance float64 // Default trailing distance in percent
	HistorySize          int     // Closed-position history capacity (default 1000)
}

// OpenOptions carries per-position overrides for Open. Zero values fall back
// to the store defaults.
type OpenOptions struct {
	StopLossPct      float64
	TakeProfitPct    float64
	Trailing         *bool // nil = use store default
	TrailingDistance float64
	MaxDuration      time.Duration
	Signal           domain.Signal
}

// StopAdjustment records a single trailing-stop ratchet applied during a
// price update pass.
type StopAdjustment struct {
	PositionID string
	Token      string
	OldStop    float64
	NewStop    float64
	Price      float64
}

// Totals are the running aggregate counters maintained across the store's
// lifetime (not bounded by the history capacity).
type Totals struct {
	Opened         int
	Closed         int
	Profitable     int
	Unprofitable   int
	AverageHolding time.Duration // incremental mean over all closes
}

// Store owns the set of open positions and the bounded history of closed
// ones. It performs no I/O and assumes a single coordinating caller; see the
// package documentation for the concurrency contract.
type Store struct {
	cfg       Config
	logger    ports.Logger
	clock     ports.Clock
	open      map[string]*domain.Position
	history   *historyRing
	listeners []ports.PositionListener
	totals    Totals
}

// NewStore creates a position store.
func NewStore(cfg Config, logger ports.Logger, clock ports.Clock) (*Store, error) {
	if logger == nil || clock == nil {
		return nil, fmt.Errorf("%w: logger and clock are required", ports.ErrConfig)
	}
	if cfg.MaxOpenPositions <= 0 {
		return nil, fmt.Errorf("%w: MaxOpenPositions must be positive", ports.ErrConfig)
	}
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = defaultHistorySize
	}
	return &Store{
		cfg:     cfg,
		logger:  logger,
		clock:   clock,
		open:    make(map[string]*domain.Position),
		history: newHistoryRing(cfg.HistorySize),
	}, nil
}

// Subscribe registers a listener for opened/closed events. Not safe to call
// concurrently with store operations.
func (s *Store) Subscribe(l ports.PositionListener) {
	s.listeners = append(s.listeners, l)
}

// Open creates and tracks a new position.
func (s *Store) Open(token string, amount, price float64, direction domain.Direction, opts OpenOptions) (*domain.Position, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: token is required", ports.ErrValidation)
	}
	if amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive, got %v", ports.ErrValidation, amount)
	}
	if price <= 0 {
		return nil, fmt.Errorf("%w: price must be positive, got %v", ports.ErrValidation, price)
	}
	if len(s.open) >= s.cfg.MaxOpenPositions {
		return nil, fmt.Errorf("%w: %d/%d positions open", ports.ErrCapacity, len(s.open), s.cfg.MaxOpenPositions)
	}

	slPct := opts.StopLossPct
	if slPct == 0 {
		slPct = s.cfg.StopLossPct
	}
	tpPct := opts.TakeProfitPct
	if tpPct == 0 {
		tpPct = s.cfg.TakeProfitPct
	}

	now := s.clock.Now()
	pos := &domain.Position{
		ID:           uuid.NewString(),
		Token:        token,
		Amount:       amount,
		EntryPrice:   price,
		CurrentPrice: price,
		Direction:    direction,
		EntryTime:    now,
		StopLoss:     domain.StopLossLevel(price, slPct, direction),
		TakeProfit:   domain.TakeProfitLevel(price, tpPct, direction),
		LastUpdate:   now,
		Signal:       opts.Signal,
		MaxDuration:  opts.MaxDuration,
	}

	trailing := s.cfg.TrailingStopEnabled
	if opts.Trailing != nil {
		trailing = *opts.Trailing
	}
	if trailing {
		dist := opts.TrailingDistance
		if dist == 0 {
			dist = s.cfg.TrailingStopDistance
		}
		level := domain.StopLossLevel(price, dist, direction)
		pos.Trailing = domain.TrailingStop{
			Enabled:  true,
			Distance: dist,
			Current:  level,
			Initial:  level,
		}
	}

	s.open[pos.ID] = pos
	s.totals.Opened++
	s.logger.Info(context.Background(), "Position opened", map[string]interface{}{
		"positionID": pos.ID,
		"token":      token,
		"direction":  direction,
		"amount":     amount,
		"entryPrice": price,
		"stopLoss":   pos.StopLoss,
		"takeProfit": pos.TakeProfit,
	})
	snapshot := *pos
	for _, l := range s.listeners {
		l.PositionOpened(&snapshot)
	}
	return pos, nil
}

// Close removes a position from the open set, records it in history and
// returns the immutable closed record.
func (s *Store) Close(id string, price float64, reason domain.CloseReason) (*domain.ClosedPosition, error) {
	if price <= 0 {
		return nil, fmt.Errorf("%w: exit price must be positive, got %v", ports.ErrValidation, price)
	}
	pos, ok := s.open[id]
	if !ok {
		return nil, fmt.Errorf("%w: id %s", ports.ErrNotFound, id)
	}

	now := s.clock.Now()
	pos.CurrentPrice = price
	pos.LastUpdate = now
	profit, profitPct := pos.ProfitAt(price)
	closed := &domain.ClosedPosition{
		Position:         *pos,
		ExitPrice:        price,
		ExitTime:         now,
		HoldingTime:      now.Sub(pos.EntryTime),
		Profit:           profit,
		ProfitPercentage: profitPct,
		CloseReason:      reason,
	}

	delete(s.open, id)
	s.history.Push(closed)
	s.totals.Closed++
	if profit > 0 {
		s.totals.Profitable++
	} else {
		s.totals.Unprofitable++
	}
	// Incremental mean keeps the running average without summing history.
	s.totals.AverageHolding += (closed.HoldingTime - s.totals.AverageHolding) / time.Duration(s.totals.Closed)

	s.logger.Info(context.Background(), "Position closed", map[string]interface{}{
		"positionID": id,
		"token":      pos.Token,
		"reason":     reason,
		"exitPrice":  price,
		"profit":     profit,
		"profitPct":  profitPct,
	})
	for _, l := range s.listeners {
		l.PositionClosed(closed)
	}
	return closed, nil
}

// CloseAll closes every open position at its token's price from priceMap
// with reason BULK_CLOSE. Positions whose token has no price are skipped and
// logged; one failure never aborts the batch. Returns the positions that
// were closed.
func (s *Store) CloseAll(priceMap map[string]float64) []*domain.ClosedPosition {
	ids := make([]string, 0, len(s.open))
	for id := range s.open {
		ids = append(ids, id)
	}
	closed := make([]*domain.ClosedPosition, 0, len(ids))
	for _, id := range ids {
		pos := s.open[id]
		price, ok := priceMap[pos.Token]
		if !ok {
			s.logger.Warn(context.Background(), "No price for token during bulk close, skipping", map[string]interface{}{
				"positionID": id,
				"token":      pos.Token,
			})
			continue
		}
		cp, err := s.Close(id, price, domain.CloseReasonBulkClose)
		if err != nil {
			s.logger.Error(context.Background(), err, "Failed to close position during bulk close", map[string]interface{}{
				"positionID": id,
				"token":      pos.Token,
			})
			continue
		}
		closed = append(closed, cp)
	}
	return closed
}

// UpdatePrices refreshes every open position that has a price in priceMap:
// it updates the current price, ratchets the trailing stop (never loosening)
// and evaluates exit conditions with fixed priority STOP_LOSS > TAKE_PROFIT
// > MAX_DURATION. Matching positions are closed; a failed close is logged
// and does not stop the rest of the queue. Returns the trailing-stop
// adjustments that were applied.
func (s *Store) UpdatePrices(priceMap map[string]float64) []StopAdjustment {
	now := s.clock.Now()
	var adjustments []StopAdjustment

	type pendingClose struct {
		id     string
		price  float64
		reason domain.CloseReason
	}
	var queue []pendingClose

	for id, pos := range s.open {
		price, ok := priceMap[pos.Token]
		if !ok {
			continue
		}
		pos.CurrentPrice = price
		pos.LastUpdate = now

		if newStop, moved := pos.RatchetTrailingStop(price); moved {
			adjustments = append(adjustments, StopAdjustment{
				PositionID: id,
				Token:      pos.Token,
				OldStop:    pos.Trailing.Current,
				NewStop:    newStop,
				Price:      price,
			})
			pos.Trailing.Current = newStop
			s.logger.Debug(context.Background(), "Trailing stop ratcheted", map[string]interface{}{
				"positionID": id,
				"token":      pos.Token,
				"newStop":    newStop,
				"price":      price,
			})
		}

		if reason, hit := pos.EvaluateExit(price, now); hit {
			queue = append(queue, pendingClose{id: id, price: price, reason: reason})
		}
	}

	for _, pc := range queue {
		if _, err := s.Close(pc.id, pc.price, pc.reason); err != nil {
			s.logger.Error(context.Background(), err, "Failed to close triggered position", map[string]interface{}{
				"positionID": pc.id,
				"reason":     pc.reason,
			})
		}
	}
	return adjustments
}

// --- Queries ---

// OpenPositions returns a snapshot of all open positions.
func (s *Store) OpenPositions() []*domain.Position {
	out := make([]*domain.Position, 0, len(s.open))
	for _, pos := range s.open {
		cp := *pos
		out = append(out, &cp)
	}
	return out
}

// OpenPositionsByToken returns a snapshot of open positions for one token.
func (s *Store) OpenPositionsByToken(token string) []*domain.Position {
	var out []*domain.Position
	for _, pos := range s.open {
		if pos.Token == token {
			cp := *pos
			out = append(out, &cp)
		}
	}
	return out
}

// HasPosition reports whether any open position exists for the token.
func (s *Store) HasPosition(token string) bool {
	for _, pos := range s.open {
		if pos.Token == token {
			return true
		}
	}
	return false
}

// OpenCount returns the number of open positions.
func (s *Store) OpenCount() int {
	return len(s.open)
}

// RecentClosed returns up to n closed positions, newest first.
func (s *Store) RecentClosed(n int) []*domain.ClosedPosition {
	return s.history.Recent(n)
}

// TotalExposure returns the summed notional value of all open positions.
func (s *Store) TotalExposure() float64 {
	var total float64
	for _, pos := range s.open {
		total += pos.Notional()
	}
	return total
}

// TokenExposure returns the summed notional value of open positions in one
// token.
func (s *Store) TokenExposure(token string) float64 {
	var total float64
	for _, pos := range s.open {
		if pos.Token == token {
			total += pos.Notional()
		}
	}
	return total
}

// OpenRisk returns the capital lost if every open position's effective stop
// fired simultaneously.
func (s *Store) OpenRisk() float64 {
	var total float64
	for _, pos := range s.open {
		total += pos.CapitalAtRisk()
	}
	return total
}

// Totals returns the running aggregate counters.
func (s *Store) Totals() Totals {
	return s.totals
}
