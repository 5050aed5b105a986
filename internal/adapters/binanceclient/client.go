package binanceclient

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"tokenTradeBot/internal/domain"
	"tokenTradeBot/internal/ports"

	"github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"
)

const (
	baseURLProduction = "https://api.binance.com"
	baseURLTestnet    = "https://testnet.binance.vision"

	depthLevels = 20
)

// Volatility tiering thresholds on the 24h high/low range, in percent of the
// last price. Tokens in this corner of the market move a lot; the bands are
// wide on purpose.
const (
	volatilityLowMax    = 10.0
	volatilityMediumMax = 25.0
)

// Client implements ports.PriceSource and ports.MarketDataSource using the
// go-binance spot API. Only public market data endpoints are used, so API
// keys are optional.
type Client struct {
	spot       *binance.Client
	logger     ports.Logger
	quoteAsset string
}

// Config holds configuration specific to the Binance client adapter.
type Config struct {
	APIKey     string
	SecretKey  string
	UseTestnet bool
	QuoteAsset string // Pair quote asset, e.g. USDT (default)
	Logger     ports.Logger
}

// New creates a new Binance market data adapter.
func New(cfg Config) (*Client, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("%w: logger is required for Binance client", ports.ErrConfig)
	}
	quote := strings.ToUpper(cfg.QuoteAsset)
	if quote == "" {
		quote = "USDT"
	}

	client := binance.NewClient(cfg.APIKey, cfg.SecretKey)
	if cfg.UseTestnet {
		client.BaseURL = baseURLTestnet
		cfg.Logger.Info(context.Background(), "Binance client configured for Testnet", map[string]interface{}{"baseURL": client.BaseURL})
	} else {
		client.BaseURL = baseURLProduction
		cfg.Logger.Info(context.Background(), "Binance client configured for Production", map[string]interface{}{"baseURL": client.BaseURL})
	}

	return &Client{spot: client, logger: cfg.Logger, quoteAsset: quote}, nil
}

// symbolFor maps a token to its trading pair symbol.
func (c *Client) symbolFor(token string) string {
	return strings.ToUpper(token) + c.quoteAsset
}

// tokenFor maps a trading pair symbol back to its token.
func (c *Client) tokenFor(symbol string) string {
	return strings.TrimSuffix(symbol, c.quoteAsset)
}

// GetPrices returns the last price for each requested token. Tokens Binance
// cannot price are absent from the result rather than an error; a bad symbol
// must not starve quotes for the rest of the batch.
func (c *Client) GetPrices(ctx context.Context, tokens []string) (map[string]float64, error) {
	if len(tokens) == 0 {
		return map[string]float64{}, nil
	}
	symbols := make([]string, 0, len(tokens))
	for _, token := range tokens {
		symbols = append(symbols, c.symbolFor(token))
	}

	prices, err := c.spot.NewListPricesService().Symbols(symbols).Do(ctx)
	if err != nil {
		return nil, c.handleError(ctx, err, "GetPrices")
	}

	out := make(map[string]float64, len(prices))
	for _, p := range prices {
		value, err := strconv.ParseFloat(p.Price, 64)
		if err != nil {
			c.logger.Warn(ctx, "Failed to parse price, skipping symbol", map[string]interface{}{
				"symbol": p.Symbol,
				"price":  p.Price,
			})
			continue
		}
		out[c.tokenFor(p.Symbol)] = value
	}
	return out, nil
}

// GetMarketData builds a market condition snapshot for one token from the
// 24h ticker and the top of the order book.
func (c *Client) GetMarketData(ctx context.Context, token string) (*domain.MarketData, error) {
	symbol := c.symbolFor(token)

	stats, err := c.spot.NewListPriceChangeStatsService().Symbol(symbol).Do(ctx)
	if err != nil {
		return nil, c.handleError(ctx, err, "GetMarketData/ticker")
	}
	if len(stats) == 0 {
		return nil, fmt.Errorf("GetMarketData: no 24h stats for %s: %w", symbol, ports.ErrSourceUnavailable)
	}
	st := stats[0]

	lastPrice, err := strconv.ParseFloat(st.LastPrice, 64)
	if err != nil {
		return nil, fmt.Errorf("GetMarketData: bad last price %q for %s: %w", st.LastPrice, symbol, err)
	}
	quoteVolume, err := strconv.ParseFloat(st.QuoteVolume, 64)
	if err != nil {
		return nil, fmt.Errorf("GetMarketData: bad quote volume %q for %s: %w", st.QuoteVolume, symbol, err)
	}
	highPrice, _ := strconv.ParseFloat(st.HighPrice, 64)
	lowPrice, _ := strconv.ParseFloat(st.LowPrice, 64)

	depth, err := c.spot.NewDepthService().Symbol(symbol).Limit(depthLevels).Do(ctx)
	if err != nil {
		return nil, c.handleError(ctx, err, "GetMarketData/depth")
	}

	var liquidity float64
	for _, bid := range depth.Bids {
		price, perr := strconv.ParseFloat(bid.Price, 64)
		qty, qerr := strconv.ParseFloat(bid.Quantity, 64)
		if perr != nil || qerr != nil {
			continue
		}
		liquidity += price * qty
	}
	for _, ask := range depth.Asks {
		price, perr := strconv.ParseFloat(ask.Price, 64)
		qty, qerr := strconv.ParseFloat(ask.Quantity, 64)
		if perr != nil || qerr != nil {
			continue
		}
		liquidity += price * qty
	}

	md := &domain.MarketData{
		Token:      strings.ToUpper(token),
		Price:      lastPrice,
		Liquidity:  liquidity,
		Volume24h:  quoteVolume,
		Volatility: volatilityTier(lastPrice, highPrice, lowPrice),
	}
	c.logger.Debug(ctx, "Market data snapshot", map[string]interface{}{
		"token":      md.Token,
		"price":      md.Price,
		"liquidity":  md.Liquidity,
		"volume24h":  md.Volume24h,
		"volatility": md.Volatility,
	})
	return md, nil
}

// volatilityTier classifies the 24h high/low range relative to the last
// price.
func volatilityTier(last, high, low float64) domain.VolatilityTier {
	if last <= 0 || high <= 0 || low <= 0 || high < low {
		return domain.VolatilityHigh
	}
	rangePct := (high - low) / last * 100
	switch {
	case rangePct < volatilityLowMax:
		return domain.VolatilityLow
	case rangePct < volatilityMediumMax:
		return domain.VolatilityMedium
	default:
		return domain.VolatilityHigh
	}
}

// handleError translates common Binance API errors into standardized ports
// errors.
func (c *Client) handleError(ctx context.Context, err error, operation string) error {
	if err == nil {
		return nil
	}

	fields := map[string]interface{}{"operation": operation, "originalError": err.Error()}

	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		fields["apiErrorCode"] = apiErr.Code
		fields["apiErrorMessage"] = apiErr.Message

		var mappedErr error
		switch apiErr.Code {
		case -1003: // Too many requests
			mappedErr = ports.ErrRateLimited
		case -1021: // Timestamp outside of the recvWindow
			mappedErr = ports.ErrTimeout
		case -1100, -1101, -1102, -1103, -1104, -1121: // Parameter/symbol errors
			mappedErr = ports.ErrValidation
		default:
			mappedErr = ports.ErrUnknown
		}
		finalErr := fmt.Errorf("%s failed: %w: %w", operation, mappedErr, err)
		c.logger.Error(ctx, err, fmt.Sprintf("%s failed with API error", operation), fields)
		return finalErr
	}

	var finalErr error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		finalErr = fmt.Errorf("%s failed: %w: %w", operation, ports.ErrTimeout, err)
	case errors.Is(err, context.Canceled):
		finalErr = fmt.Errorf("%s operation canceled: %w: %w", operation, ports.ErrContextCanceled, err)
	case strings.Contains(err.Error(), "connection refused"),
		strings.Contains(err.Error(), "no such host"),
		strings.Contains(err.Error(), "use of closed network connection"):
		finalErr = fmt.Errorf("%s failed: %w: %w", operation, ports.ErrSourceUnavailable, err)
	default:
		finalErr = fmt.Errorf("%s failed: %w: %w", operation, ports.ErrUnknown, err)
	}
	c.logger.Error(ctx, err, fmt.Sprintf("%s failed", operation), fields)
	return finalErr
}

// Ping verifies connectivity to the exchange.
func (c *Client) Ping(ctx context.Context) error {
	start := time.Now()
	if err := c.spot.NewPingService().Do(ctx); err != nil {
		return c.handleError(ctx, err, "Ping")
	}
	c.logger.Debug(ctx, "Exchange ping", map[string]interface{}{"latency": time.Since(start).String()})
	return nil
}
