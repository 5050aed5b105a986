package signals

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tokenTradeBot/internal/domain"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func TestMomentumSignals(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	m := NewMomentum(clock, 2)
	ctx := context.Background()

	// First observation establishes a baseline, no signal.
	out := m.Signals(ctx, map[string]float64{"SOL": 10})
	assert.Empty(t, out)

	// A 1% move stays below the 2% threshold.
	out = m.Signals(ctx, map[string]float64{"SOL": 10.1})
	assert.Empty(t, out)

	// A 3% move signals LONG with confidence above the floor.
	out = m.Signals(ctx, map[string]float64{"SOL": 10.403})
	require.Len(t, out, 1)
	assert.Equal(t, "SOL", out[0].Token)
	assert.Equal(t, domain.Long, out[0].Direction)
	assert.Equal(t, "momentum", out[0].Strategy)
	assert.InDelta(t, 10.403, out[0].Price, 1e-9)
	assert.Greater(t, out[0].Confidence, 0.5)
	assert.LessOrEqual(t, out[0].Confidence, 1.0)
	assert.Equal(t, clock.now, out[0].Time)
}

func TestMomentumConfidenceSaturates(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	m := NewMomentum(clock, 2)
	ctx := context.Background()

	m.Signals(ctx, map[string]float64{"WIF": 1})
	out := m.Signals(ctx, map[string]float64{"WIF": 1.5})
	require.Len(t, out, 1)
	assert.Equal(t, 1.0, out[0].Confidence)
}
