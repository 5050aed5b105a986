package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tokenTradeBot/config"
	"tokenTradeBot/internal/domain"
	"tokenTradeBot/internal/ports"
	"tokenTradeBot/internal/position"
	"tokenTradeBot/internal/risk"
)

const shutdownPriceTimeout = 5 * time.Second

// TradingService orchestrates the trading bot's operations: it runs the
// polling cycle, screens signals through the risk engine, opens positions in
// the store and keeps the engine's exposure and loss accounting in sync with
// what actually happens to positions. All work runs on the Start goroutine;
// the store's and engine's single-caller contract follows from that.
type TradingService struct {
	cfg     *config.Config
	logger  ports.Logger
	clock   ports.Clock
	store   *position.Store
	engine  *risk.Engine
	prices  ports.PriceSource
	market  ports.MarketDataSource
	signals ports.SignalProvider
	ledger  ports.TradeLedger // optional; nil disables persistence

	portfolioValue float64
	// Size (percent of portfolio) reserved per open position, so the exact
	// reservation can be released when the position closes.
	sizeByPosition map[string]float64
}

// NewTradingService creates a new application service instance and
// subscribes it to store and engine events.
func NewTradingService(
	cfg *config.Config,
	logger ports.Logger,
	clock ports.Clock,
	store *position.Store,
	engine *risk.Engine,
	prices ports.PriceSource,
	market ports.MarketDataSource,
	signalProvider ports.SignalProvider,
	ledger ports.TradeLedger,
) (*TradingService, error) {
	if cfg == nil || logger == nil || clock == nil || store == nil || engine == nil ||
		prices == nil || market == nil || signalProvider == nil {
		return nil, fmt.Errorf("missing required dependencies for TradingService")
	}
	if cfg.InitialCapital <= 0 {
		return nil, fmt.Errorf("configuration InitialCapital must be positive")
	}

	s := &TradingService{
		cfg:            cfg,
		logger:         logger,
		clock:          clock,
		store:          store,
		engine:         engine,
		prices:         prices,
		market:         market,
		signals:        signalProvider,
		ledger:         ledger,
		portfolioValue: cfg.InitialCapital,
		sizeByPosition: make(map[string]float64),
	}
	store.Subscribe(s)
	engine.Subscribe(s)
	return s, nil
}

// Start begins the trading bot's main loop and blocks until the context is
// canceled or a shutdown signal arrives. On shutdown every open position is
// closed at the latest available price.
func (s *TradingService) Start(ctx context.Context) error {
	s.logger.Info(ctx, "Starting Trading Service...", map[string]interface{}{
		"tokens":         s.cfg.Tokens,
		"pollInterval":   s.cfg.PollInterval.String(),
		"initialCapital": s.cfg.InitialCapital,
	})

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			s.logger.Info(ctx, "Received shutdown signal", map[string]interface{}{"signal": sig.String()})
			cancel()
		case <-ctx.Done():
		}
	}()

	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info(ctx, "Main context cancelled, initiating shutdown...")
			s.shutdown()
			return nil
		case <-ticker.C:
			s.runCycle(ctx)
		}
	}
}

// runCycle executes one trading cycle: refresh prices across all open
// positions (closing any whose exits trigger), then screen fresh signals and
// open the ones that clear every risk gate.
func (s *TradingService) runCycle(ctx context.Context) {
	priceMap, err := s.prices.GetPrices(ctx, s.cfg.Tokens)
	if err != nil {
		s.logger.Error(ctx, err, "Failed to fetch prices, skipping cycle")
		return
	}

	adjustments := s.store.UpdatePrices(priceMap)
	if len(adjustments) > 0 {
		s.logger.Debug(ctx, "Trailing stops ratcheted", map[string]interface{}{"count": len(adjustments)})
	}

	for _, sig := range s.signals.Signals(ctx, priceMap) {
		s.evaluateSignal(ctx, sig)
	}
}

// evaluateSignal screens one candidate signal through the full admission
// pipeline and opens a position if everything clears.
func (s *TradingService) evaluateSignal(ctx context.Context, sig domain.Signal) {
	// One position per token; pyramiding into a runner is not worth the
	// exposure bookkeeping complexity at this size.
	if s.store.HasPosition(sig.Token) {
		return
	}

	md, err := s.market.GetMarketData(ctx, sig.Token)
	if err != nil {
		s.logger.Error(ctx, err, "Failed to fetch market data, skipping signal", map[string]interface{}{"token": sig.Token})
		return
	}

	if allowed, reason := s.engine.IsTokenAllowed(sig.Token, md); !allowed {
		s.logger.Debug(ctx, "Token not tradable", map[string]interface{}{"token": sig.Token, "reason": reason})
		return
	}

	pr := s.engine.CalculatePositionRisk(sig.Token, sig.Price, sig.Confidence, md)
	if !pr.GoodOpportunity {
		s.logger.Debug(ctx, "Signal rejected by risk/reward screen", map[string]interface{}{
			"token":      sig.Token,
			"riskReward": pr.RiskReward,
		})
		return
	}

	decision := s.engine.CheckPositionAllowed(risk.Candidate{
		Token:         sig.Token,
		SizePct:       pr.SizePct,
		OpenPositions: s.store.OpenCount(),
	}, md)
	if !decision.Allowed {
		s.logger.Info(ctx, "Position rejected by risk engine", map[string]interface{}{
			"token":  sig.Token,
			"reason": decision.Reason,
		})
		return
	}

	amount := s.portfolioValue * pr.SizePct / 100 / sig.Price
	pos, err := s.store.Open(sig.Token, amount, sig.Price, sig.Direction, position.OpenOptions{
		StopLossPct:   pr.StopLossPct,
		TakeProfitPct: pr.TakeProfitPct,
		MaxDuration:   s.cfg.MaxHoldDuration,
		Signal:        sig,
	})
	if err != nil {
		s.logger.Warn(ctx, "Failed to open position", map[string]interface{}{
			"token": sig.Token,
			"error": err.Error(),
		})
		return
	}

	s.engine.UpdateExposure(sig.Token, pr.SizePct, risk.ExposureAdd)
	s.sizeByPosition[pos.ID] = pr.SizePct
}

// shutdown closes every open position at the latest available price and
// logs a final report. Positions without a quote stay open in the store;
// there is nothing safe to do with them here.
func (s *TradingService) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownPriceTimeout)
	defer cancel()

	priceMap, err := s.prices.GetPrices(ctx, s.cfg.Tokens)
	if err != nil {
		s.logger.Error(ctx, err, "Failed to fetch prices for shutdown close, positions remain open")
		priceMap = map[string]float64{}
	}

	closed := s.store.CloseAll(priceMap)
	s.logger.Info(ctx, "Shutdown close complete", map[string]interface{}{
		"closed":    len(closed),
		"remaining": s.store.OpenCount(),
	})

	metrics := s.store.Metrics()
	s.logger.Info(ctx, "Session report", map[string]interface{}{
		"totalTrades":    metrics.TotalTrades,
		"winRate":        metrics.WinRate,
		"totalProfit":    metrics.TotalProfit,
		"profitFactor":   metrics.ProfitFactor,
		"portfolioValue": s.portfolioValue,
	})

	if s.ledger != nil {
		if total, err := s.ledger.TotalProfit(ctx); err != nil {
			s.logger.Error(ctx, err, "Failed to read ledger total profit")
		} else {
			s.logger.Info(ctx, "Ledger lifetime profit", map[string]interface{}{"totalProfit": total})
		}
	}
	s.logger.Info(ctx, "Trading Service stopped.")
}

// PortfolioValue returns the running portfolio value: initial capital plus
// all realized profit.
func (s *TradingService) PortfolioValue() float64 {
	return s.portfolioValue
}

// --- ports.PositionListener ---

// PositionOpened satisfies ports.PositionListener. Exposure is reserved in
// evaluateSignal where the size is known; nothing to do here.
func (s *TradingService) PositionOpened(pos *domain.Position) {
	s.logger.Debug(context.Background(), "Position lifecycle event: opened", map[string]interface{}{
		"positionID": pos.ID,
		"token":      pos.Token,
	})
}

// PositionClosed releases the exposure reservation, updates the running
// portfolio value, feeds the result into the risk engine's loss accounting
// and persists the record. Runs on every close path: manual, triggered and
// bulk.
func (s *TradingService) PositionClosed(cp *domain.ClosedPosition) {
	ctx := context.Background()

	if sizePct, ok := s.sizeByPosition[cp.ID]; ok {
		s.engine.UpdateExposure(cp.Token, sizePct, risk.ExposureSubtract)
		delete(s.sizeByPosition, cp.ID)
	}

	s.portfolioValue += cp.Profit
	s.engine.RecordTradeResult(cp.Profit, cp.ProfitPercentage, s.cfg.InitialCapital)

	if s.ledger != nil {
		if err := s.ledger.RecordClosedPosition(ctx, cp); err != nil {
			s.logger.Error(ctx, err, "Failed to persist closed position", map[string]interface{}{
				"positionID": cp.ID,
				"token":      cp.Token,
			})
		}
	}
}

// --- ports.RiskListener ---

// RiskLimitReached satisfies ports.RiskListener.
func (s *TradingService) RiskLimitReached(event domain.RiskEvent) {
	fields := map[string]interface{}{
		"type":   string(event.Type),
		"reason": event.Reason,
	}
	if !event.Expiry.IsZero() {
		fields["expiry"] = event.Expiry.Format(time.RFC3339)
	}
	s.logger.Warn(context.Background(), "Risk limit reached", fields)
}
