package position

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tokenTradeBot/internal/domain"
	"tokenTradeBot/internal/ports"
)

type nopLogger struct{}

func (nopLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (nopLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (nopLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (nopLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) advance(d time.Duration) { c.now = c.now.Add(d) }

type positionEventRecorder struct {
	opened []*domain.Position
	closed []*domain.ClosedPosition
}

func (r *positionEventRecorder) PositionOpened(p *domain.Position) { r.opened = append(r.opened, p) }
func (r *positionEventRecorder) PositionClosed(cp *domain.ClosedPosition) {
	r.closed = append(r.closed, cp)
}

func testStoreConfig() Config {
	return Config{
		MaxOpenPositions:     3,
		StopLossPct:          5,
		TakeProfitPct:        10,
		TrailingStopEnabled:  false,
		TrailingStopDistance: 3,
	}
}

func newTestStore(t *testing.T, cfg Config, clock *fakeClock) *Store {
	t.Helper()
	s, err := NewStore(cfg, nopLogger{}, clock)
	require.NoError(t, err)
	return s
}

func TestNewStore(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}

	_, err := NewStore(testStoreConfig(), nil, clock)
	require.Error(t, err)
	assert.ErrorIs(t, err, ports.ErrConfig)

	_, err = NewStore(Config{MaxOpenPositions: 0}, nopLogger{}, clock)
	require.Error(t, err)
	assert.ErrorIs(t, err, ports.ErrConfig)

	s, err := NewStore(testStoreConfig(), nopLogger{}, clock)
	require.NoError(t, err)
	assert.Equal(t, 0, s.OpenCount())
}

func TestOpenValidation(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	s := newTestStore(t, testStoreConfig(), clock)

	tests := []struct {
		name   string
		token  string
		amount float64
		price  float64
	}{
		{name: "Empty token", token: "", amount: 100, price: 10},
		{name: "Zero amount", token: "SOL", amount: 0, price: 10},
		{name: "Negative amount", token: "SOL", amount: -1, price: 10},
		{name: "Zero price", token: "SOL", amount: 100, price: 0},
		{name: "Negative price", token: "SOL", amount: 100, price: -10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Open(tt.token, tt.amount, tt.price, domain.Long, OpenOptions{})
			require.Error(t, err)
			assert.ErrorIs(t, err, ports.ErrValidation)
		})
	}
	assert.Equal(t, 0, s.OpenCount(), "Rejected opens must not be tracked")
}

func TestOpenDerivesLevels(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	s := newTestStore(t, testStoreConfig(), clock)

	pos, err := s.Open("SOL", 100, 10, domain.Long, OpenOptions{})
	require.NoError(t, err)
	assert.NotEmpty(t, pos.ID)
	assert.InDelta(t, 9.5, pos.StopLoss, 1e-9)
	assert.InDelta(t, 11.0, pos.TakeProfit, 1e-9)
	assert.False(t, pos.Trailing.Enabled)

	short, err := s.Open("WIF", 50, 20, domain.Short, OpenOptions{StopLossPct: 4, TakeProfitPct: 8})
	require.NoError(t, err)
	assert.InDelta(t, 20.8, short.StopLoss, 1e-9, "Short stop sits above entry")
	assert.InDelta(t, 18.4, short.TakeProfit, 1e-9, "Short take-profit sits below entry")
	assert.NotEqual(t, pos.ID, short.ID)
}

func TestOpenCapacity(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	s := newTestStore(t, testStoreConfig(), clock)

	for i := 0; i < 3; i++ {
		_, err := s.Open(fmt.Sprintf("TOK%d", i), 10, 10, domain.Long, OpenOptions{})
		require.NoError(t, err)
	}
	_, err := s.Open("TOK3", 10, 10, domain.Long, OpenOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ports.ErrCapacity)
	assert.Equal(t, 3, s.OpenCount())

	// Closing frees a slot.
	open := s.OpenPositions()
	_, err = s.Close(open[0].ID, 10, domain.CloseReasonManual)
	require.NoError(t, err)
	_, err = s.Open("TOK3", 10, 10, domain.Long, OpenOptions{})
	assert.NoError(t, err)
}

func TestCloseComputesProfit(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	s := newTestStore(t, testStoreConfig(), clock)

	pos, err := s.Open("SOL", 100, 10, domain.Long, OpenOptions{})
	require.NoError(t, err)

	clock.advance(2 * time.Hour)
	closed, err := s.Close(pos.ID, 12, domain.CloseReasonManual)
	require.NoError(t, err)
	assert.InDelta(t, 200, closed.Profit, 1e-9)
	assert.InDelta(t, 20, closed.ProfitPercentage, 1e-9)
	assert.Equal(t, 2*time.Hour, closed.HoldingTime)
	assert.Equal(t, domain.CloseReasonManual, closed.CloseReason)
	assert.Equal(t, 0, s.OpenCount())

	// Exact PnL round trip: reopening and closing at entry yields zero.
	pos, err = s.Open("SOL", 100, 10, domain.Long, OpenOptions{})
	require.NoError(t, err)
	closed, err = s.Close(pos.ID, 10, domain.CloseReasonManual)
	require.NoError(t, err)
	assert.Zero(t, closed.Profit)
	assert.Zero(t, closed.ProfitPercentage)
}

func TestCloseErrors(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	s := newTestStore(t, testStoreConfig(), clock)

	_, err := s.Close("missing", 10, domain.CloseReasonManual)
	require.Error(t, err)
	assert.ErrorIs(t, err, ports.ErrNotFound)

	pos, err := s.Open("SOL", 100, 10, domain.Long, OpenOptions{})
	require.NoError(t, err)
	_, err = s.Close(pos.ID, 0, domain.CloseReasonManual)
	require.Error(t, err)
	assert.ErrorIs(t, err, ports.ErrValidation)
	assert.Equal(t, 1, s.OpenCount(), "Failed close must leave the position open")
}

func TestStopLossTriggerOnPriceUpdate(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	s := newTestStore(t, testStoreConfig(), clock)
	rec := &positionEventRecorder{}
	s.Subscribe(rec)

	// LONG 100 units at 10 with a 5% stop: the stop sits at 9.5, so a tick
	// to 9.49 must close at a 51 loss.
	pos, err := s.Open("SOL", 100, 10, domain.Long, OpenOptions{})
	require.NoError(t, err)

	s.UpdatePrices(map[string]float64{"SOL": 9.49})
	assert.Equal(t, 0, s.OpenCount())

	require.Len(t, rec.closed, 1)
	closed := rec.closed[0]
	assert.Equal(t, pos.ID, closed.ID)
	assert.Equal(t, domain.CloseReasonStopLoss, closed.CloseReason)
	assert.InDelta(t, -51, closed.Profit, 1e-9)
}

func TestTakeProfitTriggerOnPriceUpdate(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	s := newTestStore(t, testStoreConfig(), clock)

	_, err := s.Open("SOL", 100, 10, domain.Long, OpenOptions{})
	require.NoError(t, err)

	// Below the 11.0 level nothing happens.
	s.UpdatePrices(map[string]float64{"SOL": 10.9})
	assert.Equal(t, 1, s.OpenCount())

	s.UpdatePrices(map[string]float64{"SOL": 11.0})
	assert.Equal(t, 0, s.OpenCount())
	recent := s.RecentClosed(1)
	require.Len(t, recent, 1)
	assert.Equal(t, domain.CloseReasonTakeProfit, recent[0].CloseReason)
}

func TestMaxDurationTrigger(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	s := newTestStore(t, testStoreConfig(), clock)

	_, err := s.Open("SOL", 100, 10, domain.Long, OpenOptions{MaxDuration: time.Hour})
	require.NoError(t, err)

	s.UpdatePrices(map[string]float64{"SOL": 10.1})
	assert.Equal(t, 1, s.OpenCount())

	clock.advance(61 * time.Minute)
	s.UpdatePrices(map[string]float64{"SOL": 10.1})
	assert.Equal(t, 0, s.OpenCount())
	recent := s.RecentClosed(1)
	require.Len(t, recent, 1)
	assert.Equal(t, domain.CloseReasonMaxDuration, recent[0].CloseReason)
}

func TestTrailingStopRatchet(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	cfg := testStoreConfig()
	cfg.TrailingStopEnabled = true
	cfg.TrailingStopDistance = 3
	s := newTestStore(t, cfg, clock)

	pos, err := s.Open("SOL", 100, 10, domain.Long, OpenOptions{})
	require.NoError(t, err)
	assert.InDelta(t, 9.7, pos.Trailing.Current, 1e-9)

	// Price rises: the stop ratchets up with it.
	adj := s.UpdatePrices(map[string]float64{"SOL": 10.5})
	require.Len(t, adj, 1)
	assert.InDelta(t, 9.7, adj[0].OldStop, 1e-9)
	assert.InDelta(t, 10.5*0.97, adj[0].NewStop, 1e-9)

	// Price falls back: the stop never loosens.
	adj = s.UpdatePrices(map[string]float64{"SOL": 10.2})
	assert.Empty(t, adj)
	open := s.OpenPositions()
	require.Len(t, open, 1)
	assert.InDelta(t, 10.5*0.97, open[0].Trailing.Current, 1e-9)

	// The ratcheted stop, not the static one, fires the exit.
	s.UpdatePrices(map[string]float64{"SOL": 10.1})
	assert.Equal(t, 0, s.OpenCount())
	recent := s.RecentClosed(1)
	require.Len(t, recent, 1)
	assert.Equal(t, domain.CloseReasonStopLoss, recent[0].CloseReason)
}

func TestUpdatePricesSkipsUnknownTokens(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	s := newTestStore(t, testStoreConfig(), clock)

	pos, err := s.Open("SOL", 100, 10, domain.Long, OpenOptions{})
	require.NoError(t, err)

	s.UpdatePrices(map[string]float64{"WIF": 1.0})
	open := s.OpenPositions()
	require.Len(t, open, 1)
	assert.Equal(t, pos.EntryPrice, open[0].CurrentPrice, "Position without a quote stays untouched")
}

func TestCloseAllToleratesMissingPrices(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	s := newTestStore(t, testStoreConfig(), clock)

	_, err := s.Open("SOL", 100, 10, domain.Long, OpenOptions{})
	require.NoError(t, err)
	_, err = s.Open("WIF", 50, 2, domain.Long, OpenOptions{})
	require.NoError(t, err)
	orphan, err := s.Open("BONK", 1000, 0.5, domain.Long, OpenOptions{})
	require.NoError(t, err)

	// Two tokens quoted, one missing: the batch closes what it can.
	closed := s.CloseAll(map[string]float64{"SOL": 10.5, "WIF": 2.1})
	assert.Len(t, closed, 2)
	assert.Equal(t, 1, s.OpenCount())
	assert.True(t, s.HasPosition("BONK"))
	for _, cp := range closed {
		assert.Equal(t, domain.CloseReasonBulkClose, cp.CloseReason)
	}

	// The orphan remains closable once a price shows up.
	_, err = s.Close(orphan.ID, 0.6, domain.CloseReasonManual)
	assert.NoError(t, err)
}

func TestQueriesAndTotals(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	s := newTestStore(t, testStoreConfig(), clock)

	p1, err := s.Open("SOL", 100, 10, domain.Long, OpenOptions{})
	require.NoError(t, err)
	_, err = s.Open("SOL", 50, 10, domain.Long, OpenOptions{})
	require.NoError(t, err)
	_, err = s.Open("WIF", 10, 2, domain.Long, OpenOptions{})
	require.NoError(t, err)

	assert.Len(t, s.OpenPositionsByToken("SOL"), 2)
	assert.True(t, s.HasPosition("WIF"))
	assert.False(t, s.HasPosition("BONK"))
	assert.InDelta(t, 100*10+50*10+10*2, s.TotalExposure(), 1e-9)
	assert.InDelta(t, 1500, s.TokenExposure("SOL"), 1e-9)
	// With a 5% stop each position risks 5% of its entry notional.
	assert.InDelta(t, 0.05*(1000+500+20), s.OpenRisk(), 1e-9)

	clock.advance(time.Hour)
	_, err = s.Close(p1.ID, 11, domain.CloseReasonManual)
	require.NoError(t, err)

	totals := s.Totals()
	assert.Equal(t, 3, totals.Opened)
	assert.Equal(t, 1, totals.Closed)
	assert.Equal(t, 1, totals.Profitable)
	assert.Equal(t, 0, totals.Unprofitable)
	assert.Equal(t, time.Hour, totals.AverageHolding)
}

func TestSnapshotsAreCopies(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	s := newTestStore(t, testStoreConfig(), clock)

	_, err := s.Open("SOL", 100, 10, domain.Long, OpenOptions{})
	require.NoError(t, err)

	snap := s.OpenPositions()
	require.Len(t, snap, 1)
	snap[0].StopLoss = 1

	fresh := s.OpenPositions()
	assert.InDelta(t, 9.5, fresh[0].StopLoss, 1e-9, "Mutating a snapshot must not reach the store")
}

func TestMultipleListeners(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	s := newTestStore(t, testStoreConfig(), clock)
	first := &positionEventRecorder{}
	second := &positionEventRecorder{}
	s.Subscribe(first)
	s.Subscribe(second)

	pos, err := s.Open("SOL", 100, 10, domain.Long, OpenOptions{})
	require.NoError(t, err)
	_, err = s.Close(pos.ID, 11, domain.CloseReasonManual)
	require.NoError(t, err)

	require.Len(t, first.opened, 1)
	require.Len(t, second.opened, 1)
	require.Len(t, first.closed, 1)
	assert.Equal(t, pos.ID, first.opened[0].ID)
	assert.Equal(t, pos.ID, first.closed[0].ID)
}

var errSentinelCheck = errors.New("sentinel")

func TestErrorWrapping(t *testing.T) {
	// Wrapped sentinels survive one more level of wrapping.
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	s := newTestStore(t, testStoreConfig(), clock)

	_, err := s.Close("missing", 10, domain.CloseReasonManual)
	wrapped := fmt.Errorf("cycle failed: %w", err)
	assert.ErrorIs(t, wrapped, ports.ErrNotFound)
	assert.NotErrorIs(t, wrapped, errSentinelCheck)
}
