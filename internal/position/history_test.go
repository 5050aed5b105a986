package position

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tokenTradeBot/internal/domain"
)

func closedWith(token string, profit float64) *domain.ClosedPosition {
	return &domain.ClosedPosition{
		Position: domain.Position{Token: token},
		Profit:   profit,
	}
}

func TestHistoryRingEviction(t *testing.T) {
	r := newHistoryRing(3)
	assert.Equal(t, 0, r.Len())

	for i := 1; i <= 5; i++ {
		r.Push(closedWith(fmt.Sprintf("TOK%d", i), float64(i)))
	}
	assert.Equal(t, 3, r.Len(), "Capacity bounds the retained count")

	// Newest first; the two oldest entries were evicted.
	recent := r.Recent(10)
	require.Len(t, recent, 3)
	assert.Equal(t, "TOK5", recent[0].Token)
	assert.Equal(t, "TOK4", recent[1].Token)
	assert.Equal(t, "TOK3", recent[2].Token)
}

func TestHistoryRingRecentLimit(t *testing.T) {
	r := newHistoryRing(5)
	r.Push(closedWith("A", 1))
	r.Push(closedWith("B", 2))

	recent := r.Recent(1)
	require.Len(t, recent, 1)
	assert.Equal(t, "B", recent[0].Token)
	assert.Empty(t, r.Recent(0))
}

func TestHistoryRingEachOldestFirst(t *testing.T) {
	r := newHistoryRing(3)
	for i := 1; i <= 4; i++ {
		r.Push(closedWith(fmt.Sprintf("TOK%d", i), float64(i)))
	}

	var order []string
	r.Each(func(cp *domain.ClosedPosition) {
		order = append(order, cp.Token)
	})
	assert.Equal(t, []string{"TOK2", "TOK3", "TOK4"}, order)
}

func TestStoreHistoryBounded(t *testing.T) {
	clock := &fakeClock{}
	cfg := testStoreConfig()
	cfg.MaxOpenPositions = 1
	cfg.HistorySize = 2
	s := newTestStore(t, cfg, clock)

	for i := 0; i < 4; i++ {
		pos, err := s.Open("SOL", 10, 10, domain.Long, OpenOptions{})
		require.NoError(t, err)
		_, err = s.Close(pos.ID, 10+float64(i), domain.CloseReasonManual)
		require.NoError(t, err)
	}

	assert.Len(t, s.RecentClosed(10), 2, "History stays within its capacity")
	totals := s.Totals()
	assert.Equal(t, 4, totals.Closed, "Lifetime counters ignore eviction")
}
