package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"tokenTradeBot/internal/adapters/logger" // Import the logger package for LogLevel
)

// Config holds all application configuration.
type Config struct {
	// Binance API
	APIKey     string
	SecretKey  string
	IsTestnet  bool
	QuoteAsset string // Pair quote asset for token symbols, e.g. USDT

	// Universe and cycle
	Tokens       []string      // Token universe the bot watches
	PollInterval time.Duration // Trading cycle interval

	// Capital
	InitialCapital float64 // Starting portfolio value in quote units

	// Position parameters (percent distances)
	MaxOpenPositions     int
	StopLossPct          float64
	TakeProfitPct        float64
	TrailingStopEnabled  bool
	TrailingStopDistance float64
	MaxHoldDuration      time.Duration // 0 = unlimited
	HistorySize          int

	// Risk parameters
	MinLiquidity          float64
	MinVolume24h          float64
	MaxExposurePerToken   float64 // Percent of portfolio
	MaxDrawdownPct        float64
	MaxDailyLossPct       float64
	ConsecutiveLossLimit  int
	CircuitBreakerTimeout time.Duration
	BasePositionSizePct   float64
	MinTradeAmountPct     float64

	// Signal parameters
	MomentumThresholdPct float64

	// Database
	DBPath string

	// Logging
	LogLevel logger.LogLevel
}

// LoadConfig loads configuration from environment variables (.env file).
func LoadConfig() (*Config, error) {
	// Load .env file, but don't fail if it doesn't exist (allow pure env vars)
	_ = godotenv.Load()

	cfg := &Config{}
	var err error
	var errs []string // Collect validation errors

	// Binance API
	cfg.APIKey = getEnv("BINANCE_API_KEY", "")
	cfg.SecretKey = getEnv("BINANCE_API_SECRET", "")
	cfg.IsTestnet = getEnvAsBool("IS_TESTNET", true) // Default to testnet for safety
	cfg.QuoteAsset = getEnv("QUOTE_ASSET", "USDT")

	// Universe and cycle
	tokensStr := getEnv("TOKENS", "SOL,DOGE,PEPE")
	for _, token := range strings.Split(tokensStr, ",") {
		token = strings.TrimSpace(token)
		if token != "" {
			cfg.Tokens = append(cfg.Tokens, strings.ToUpper(token))
		}
	}
	if len(cfg.Tokens) == 0 {
		errs = append(errs, "TOKENS must name at least one token")
	}

	pollSeconds := getEnvAsInt("POLL_INTERVAL_SECONDS", 10)
	if pollSeconds <= 0 {
		errs = append(errs, "POLL_INTERVAL_SECONDS must be positive")
	}
	cfg.PollInterval = time.Duration(pollSeconds) * time.Second

	// Capital
	cfg.InitialCapital, err = getEnvAsFloatRequired("INITIAL_CAPITAL", 1000.0)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid INITIAL_CAPITAL: %v", err))
	} else if cfg.InitialCapital <= 0 {
		errs = append(errs, "INITIAL_CAPITAL must be positive")
	}

	// Position parameters
	cfg.MaxOpenPositions, err = getEnvAsIntRequired("MAX_OPEN_POSITIONS", 5)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid MAX_OPEN_POSITIONS: %v", err))
	} else if cfg.MaxOpenPositions <= 0 {
		errs = append(errs, "MAX_OPEN_POSITIONS must be positive")
	}

	cfg.StopLossPct, err = getEnvAsFloatRequired("STOP_LOSS_PCT", 5.0)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid STOP_LOSS_PCT: %v", err))
	} else if cfg.StopLossPct <= 0 || cfg.StopLossPct >= 100 {
		errs = append(errs, "STOP_LOSS_PCT must be between 0 and 100 (exclusive)")
	}

	cfg.TakeProfitPct, err = getEnvAsFloatRequired("TAKE_PROFIT_PCT", 10.0)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid TAKE_PROFIT_PCT: %v", err))
	} else if cfg.TakeProfitPct <= 0 {
		errs = append(errs, "TAKE_PROFIT_PCT must be positive")
	}

	cfg.TrailingStopEnabled = getEnvAsBool("TRAILING_STOP_ENABLED", true)
	cfg.TrailingStopDistance = getEnvAsFloat("TRAILING_STOP_DISTANCE", 3.0)
	if cfg.TrailingStopEnabled && (cfg.TrailingStopDistance <= 0 || cfg.TrailingStopDistance >= 100) {
		errs = append(errs, "TRAILING_STOP_DISTANCE must be between 0 and 100 (exclusive)")
	}

	maxHoldMinutes := getEnvAsInt("MAX_HOLD_MINUTES", 0)
	if maxHoldMinutes < 0 {
		errs = append(errs, "MAX_HOLD_MINUTES cannot be negative")
	}
	cfg.MaxHoldDuration = time.Duration(maxHoldMinutes) * time.Minute

	cfg.HistorySize = getEnvAsInt("HISTORY_SIZE", 1000)
	if cfg.HistorySize <= 0 {
		errs = append(errs, "HISTORY_SIZE must be positive")
	}

	// Risk parameters
	cfg.MinLiquidity, err = getEnvAsFloatRequired("MIN_LIQUIDITY", 10000.0)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid MIN_LIQUIDITY: %v", err))
	} else if cfg.MinLiquidity < 0 {
		errs = append(errs, "MIN_LIQUIDITY cannot be negative")
	}

	cfg.MinVolume24h, err = getEnvAsFloatRequired("MIN_VOLUME_24H", 50000.0)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid MIN_VOLUME_24H: %v", err))
	} else if cfg.MinVolume24h < 0 {
		errs = append(errs, "MIN_VOLUME_24H cannot be negative")
	}

	cfg.MaxExposurePerToken, err = getEnvAsFloatRequired("MAX_EXPOSURE_PER_TOKEN", 20.0)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid MAX_EXPOSURE_PER_TOKEN: %v", err))
	} else if cfg.MaxExposurePerToken <= 0 || cfg.MaxExposurePerToken > 100 {
		errs = append(errs, "MAX_EXPOSURE_PER_TOKEN must be between 0 and 100")
	}

	cfg.MaxDrawdownPct, err = getEnvAsFloatRequired("MAX_DRAWDOWN_PCT", 15.0)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid MAX_DRAWDOWN_PCT: %v", err))
	} else if cfg.MaxDrawdownPct <= 0 || cfg.MaxDrawdownPct > 100 {
		errs = append(errs, "MAX_DRAWDOWN_PCT must be between 0 and 100")
	}

	cfg.MaxDailyLossPct, err = getEnvAsFloatRequired("MAX_DAILY_LOSS_PCT", 10.0)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid MAX_DAILY_LOSS_PCT: %v", err))
	} else if cfg.MaxDailyLossPct <= 0 || cfg.MaxDailyLossPct > 100 {
		errs = append(errs, "MAX_DAILY_LOSS_PCT must be between 0 and 100")
	}

	cfg.ConsecutiveLossLimit, err = getEnvAsIntRequired("CONSECUTIVE_LOSS_LIMIT", 3)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid CONSECUTIVE_LOSS_LIMIT: %v", err))
	} else if cfg.ConsecutiveLossLimit <= 0 {
		errs = append(errs, "CONSECUTIVE_LOSS_LIMIT must be positive")
	}

	breakerMinutes := getEnvAsInt("CIRCUIT_BREAKER_MINUTES", 60)
	if breakerMinutes <= 0 {
		errs = append(errs, "CIRCUIT_BREAKER_MINUTES must be positive")
	}
	cfg.CircuitBreakerTimeout = time.Duration(breakerMinutes) * time.Minute

	cfg.BasePositionSizePct, err = getEnvAsFloatRequired("BASE_POSITION_SIZE_PCT", 5.0)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid BASE_POSITION_SIZE_PCT: %v", err))
	} else if cfg.BasePositionSizePct <= 0 || cfg.BasePositionSizePct > 100 {
		errs = append(errs, "BASE_POSITION_SIZE_PCT must be between 0 and 100")
	}

	cfg.MinTradeAmountPct, err = getEnvAsFloatRequired("MIN_TRADE_AMOUNT_PCT", 1.0)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid MIN_TRADE_AMOUNT_PCT: %v", err))
	} else if cfg.MinTradeAmountPct <= 0 {
		errs = append(errs, "MIN_TRADE_AMOUNT_PCT must be positive")
	}
	if cfg.MinTradeAmountPct > cfg.MaxExposurePerToken {
		errs = append(errs, "MIN_TRADE_AMOUNT_PCT must not exceed MAX_EXPOSURE_PER_TOKEN")
	}

	// Signal parameters
	cfg.MomentumThresholdPct = getEnvAsFloat("MOMENTUM_THRESHOLD_PCT", 2.0)
	if cfg.MomentumThresholdPct <= 0 {
		errs = append(errs, "MOMENTUM_THRESHOLD_PCT must be positive")
	}

	// Database
	cfg.DBPath = getEnv("DB_PATH", "./data/trading_bot.db")
	if cfg.DBPath == "" {
		errs = append(errs, "DB_PATH must be set")
	}

	// Logging
	logLevelStr := getEnv("LOG_LEVEL", "INFO")
	cfg.LogLevel = logger.ParseLevel(logLevelStr)

	// Combine validation errors
	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}

	return cfg, nil
}

// --- Env Var Helpers ---

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsIntRequired(key string, defaultValue int) (int, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		// Use default if env var is not set at all
		return defaultValue, nil
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		// Return error if env var is set but invalid
		return 0, fmt.Errorf("invalid integer value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloatRequired(key string, defaultValue float64) (float64, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid float value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
