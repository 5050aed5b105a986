package main

import (
	"context"
	"log" // Use standard log only for initial fatal errors before logger is set up

	"tokenTradeBot/config"
	"tokenTradeBot/internal/adapters/binanceclient"
	"tokenTradeBot/internal/adapters/clock"
	"tokenTradeBot/internal/adapters/logger"
	"tokenTradeBot/internal/adapters/signals"
	"tokenTradeBot/internal/adapters/sqlite"
	"tokenTradeBot/internal/app"
	"tokenTradeBot/internal/position"
	"tokenTradeBot/internal/risk"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err) // Use standard log before logger is ready
	}

	// 2. Initialize Logger
	appLogger := logger.NewStdLogger(cfg.LogLevel)
	appLogger.Info(context.Background(), "Logger initialized", map[string]interface{}{"level": cfg.LogLevel.String()})

	sysClock := clock.System{}

	// 3. Initialize Ledger (Database Adapter)
	ledger, err := sqlite.NewLedger(sqlite.Config{
		DBPath: cfg.DBPath,
		Logger: appLogger,
	})
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize trade ledger")
		log.Fatalf("FATAL: Failed to initialize trade ledger: %v", err) // Also log to stderr
	}
	defer func() {
		if err := ledger.Close(); err != nil {
			appLogger.Error(context.Background(), err, "Error closing trade ledger")
		}
	}()
	appLogger.Info(context.Background(), "Trade ledger initialized")

	// 4. Initialize Market Data Client (Binance Adapter)
	binanceClient, err := binanceclient.New(binanceclient.Config{
		APIKey:     cfg.APIKey,
		SecretKey:  cfg.SecretKey,
		UseTestnet: cfg.IsTestnet,
		QuoteAsset: cfg.QuoteAsset,
		Logger:     appLogger,
	})
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize Binance client")
		log.Fatalf("FATAL: Failed to initialize Binance client: %v", err)
	}
	appLogger.Info(context.Background(), "Binance client initialized")

	// 5. Initialize Position Store
	store, err := position.NewStore(position.Config{
		MaxOpenPositions:     cfg.MaxOpenPositions,
		StopLossPct:          cfg.StopLossPct,
		TakeProfitPct:        cfg.TakeProfitPct,
		TrailingStopEnabled:  cfg.TrailingStopEnabled,
		TrailingStopDistance: cfg.TrailingStopDistance,
		HistorySize:          cfg.HistorySize,
	}, appLogger, sysClock)
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize position store")
		log.Fatalf("FATAL: Failed to initialize position store: %v", err)
	}
	appLogger.Info(context.Background(), "Position store initialized")

	// 6. Initialize Risk Engine
	engine, err := risk.NewEngine(risk.Config{
		MaxOpenPositions:      cfg.MaxOpenPositions,
		MinLiquidity:          cfg.MinLiquidity,
		MinVolume24h:          cfg.MinVolume24h,
		MaxExposurePerToken:   cfg.MaxExposurePerToken,
		MaxDrawdownPct:        cfg.MaxDrawdownPct,
		MaxDailyLossPct:       cfg.MaxDailyLossPct,
		ConsecutiveLossLimit:  cfg.ConsecutiveLossLimit,
		CircuitBreakerTimeout: cfg.CircuitBreakerTimeout,
		BaseStopLossPct:       cfg.StopLossPct,
		BaseTakeProfitPct:     cfg.TakeProfitPct,
		BasePositionSizePct:   cfg.BasePositionSizePct,
		MinTradeAmountPct:     cfg.MinTradeAmountPct,
	}, appLogger, sysClock)
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize risk engine")
		log.Fatalf("FATAL: Failed to initialize risk engine: %v", err)
	}
	appLogger.Info(context.Background(), "Risk engine initialized")

	// 7. Initialize Signal Provider
	momentum := signals.NewMomentum(sysClock, cfg.MomentumThresholdPct)
	appLogger.Info(context.Background(), "Signal provider initialized")

	// 8. Initialize Application Service
	tradingService, err := app.NewTradingService(
		cfg,
		appLogger,
		sysClock,
		store,
		engine,
		binanceClient, // Pass the concrete implementation, service expects the interfaces
		binanceClient,
		momentum,
		ledger,
	)
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize trading service")
		log.Fatalf("FATAL: Failed to initialize trading service: %v", err)
	}
	appLogger.Info(context.Background(), "Trading service initialized")

	// 9. Start the Service
	// Use context.Background() as the base context for the application run
	if err := tradingService.Start(context.Background()); err != nil {
		appLogger.Error(context.Background(), err, "Trading service exited with error")
		log.Fatalf("FATAL: Trading service exited with error: %v", err)
	}

	appLogger.Info(context.Background(), "Application finished gracefully.")
}
