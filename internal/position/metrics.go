package position

import (
	"math"

	"tokenTradeBot/internal/domain"
)

// PerformanceMetrics holds aggregate performance figures computed over the
// bounded closed-position history. Positions evicted from the ring are not
// represented; Totals() carries the lifetime counters.
type PerformanceMetrics struct {
	TotalTrades         int
	WinningTrades       int
	LosingTrades        int
	WinRate             float64 // fraction in [0, 1]
	TotalProfit         float64
	ProfitFactor        float64 // gross wins / gross losses
	AverageWin          float64
	AverageLoss         float64 // negative or zero
	MaxWin              float64
	MaxLoss             float64 // most negative single result
	AverageHoldingHours float64
	DistinctTokens      int
}

// Metrics computes performance metrics over the retained history.
func (s *Store) Metrics() PerformanceMetrics {
	var m PerformanceMetrics
	var grossWins, grossLosses, totalHoldingHours float64
	tokens := make(map[string]struct{})

	s.history.Each(func(cp *domain.ClosedPosition) {
		m.TotalTrades++
		m.TotalProfit += cp.Profit
		tokens[cp.Token] = struct{}{}
		totalHoldingHours += cp.HoldingTime.Hours()

		if cp.Profit > 0 {
			m.WinningTrades++
			grossWins += cp.Profit
			if cp.Profit > m.MaxWin {
				m.MaxWin = cp.Profit
			}
		} else {
			m.LosingTrades++
			grossLosses += math.Abs(cp.Profit)
			if cp.Profit < m.MaxLoss {
				m.MaxLoss = cp.Profit
			}
		}
	})

	m.DistinctTokens = len(tokens)
	if m.TotalTrades > 0 {
		m.WinRate = float64(m.WinningTrades) / float64(m.TotalTrades)
		m.AverageHoldingHours = totalHoldingHours / float64(m.TotalTrades)
	}
	if m.WinningTrades > 0 {
		m.AverageWin = grossWins / float64(m.WinningTrades)
	}
	if m.LosingTrades > 0 {
		m.AverageLoss = -grossLosses / float64(m.LosingTrades)
	}
	if grossLosses > 0 {
		m.ProfitFactor = grossWins / grossLosses
	}
	return m
}
