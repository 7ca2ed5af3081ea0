package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/mercatus/internal/interfaces"
	"github.com/ternarybob/mercatus/internal/models"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the base URL for the spot market REST API.
	DefaultBaseURL = "https://api.binance.com"

	// DefaultTimeout is the default HTTP timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultRateLimit is the default rate limit (requests per second).
	DefaultRateLimit = 10
)

// Client is a Binance-compatible market data API client.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     arbor.ILogger
	limiter    *rate.Limiter
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithBaseURL sets a custom base URL.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithLogger sets a logger.
func WithLogger(logger arbor.ILogger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets a custom rate limit.
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// NewClient creates a new market data API client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// get performs a GET request to the API.
func (c *Client) get(ctx context.Context, path string, params url.Values, result interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return &RateLimitError{RetryAfter: time.Second}
	}

	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if c.logger != nil {
		c.logger.Debug().
			Str("url", c.baseURL+path).
			Msg("Market data API request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		retryAfter := time.Second
		if s := resp.Header.Get("Retry-After"); s != "" {
			if secs, err := strconv.Atoi(s); err == nil {
				retryAfter = time.Duration(secs) * time.Second
			}
		}
		return &RateLimitError{RetryAfter: retryAfter}
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    string(body),
			Endpoint:   path,
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

// ticker24hPayload is the raw 24h ticker response. Numeric fields arrive as
// strings and are coerced during normalization.
type ticker24hPayload struct {
	Symbol             string      `json:"symbol"`
	LastPrice          interface{} `json:"lastPrice"`
	PriceChangePercent interface{} `json:"priceChangePercent"`
	HighPrice          interface{} `json:"highPrice"`
	LowPrice           interface{} `json:"lowPrice"`
	Volume             interface{} `json:"volume"`
	QuoteVolume        interface{} `json:"quoteVolume"`
}

// GetTicker24h retrieves the 24-hour rolling ticker for a symbol.
func (c *Client) GetTicker24h(ctx context.Context, symbol string) (*models.Ticker24h, error) {
	params := url.Values{}
	params.Set("symbol", symbol)

	var payload ticker24hPayload
	if err := c.get(ctx, "/api/v3/ticker/24hr", params, &payload); err != nil {
		return nil, err
	}

	ticker := &models.Ticker24h{Symbol: payload.Symbol}
	fields := []struct {
		name string
		raw  interface{}
		dst  *float64
	}{
		{"lastPrice", payload.LastPrice, &ticker.LastPrice},
		{"priceChangePercent", payload.PriceChangePercent, &ticker.PriceChangePercent},
		{"highPrice", payload.HighPrice, &ticker.HighPrice},
		{"lowPrice", payload.LowPrice, &ticker.LowPrice},
		{"volume", payload.Volume, &ticker.Volume},
		{"quoteVolume", payload.QuoteVolume, &ticker.QuoteVolume},
	}
	for _, f := range fields {
		v, err := toFloat64(f.raw)
		if err != nil {
			return nil, &MalformedDataError{
				Endpoint: "/api/v3/ticker/24hr",
				Detail:   fmt.Sprintf("field %s: %v", f.name, err),
			}
		}
		*f.dst = v
	}

	return ticker, nil
}

// GetCandles retrieves kline data for a symbol, oldest first. The API returns
// each candle as a positional array mixing numbers and string-typed numbers;
// every OHLCV field is coerced to float64 and non-numeric data fails the call.
func (c *Client) GetCandles(ctx context.Context, symbol, interval string, limit int) ([]models.Candle, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("interval", interval)
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	var rows [][]interface{}
	if err := c.get(ctx, "/api/v3/klines", params, &rows); err != nil {
		return nil, err
	}

	candles := make([]models.Candle, 0, len(rows))
	for i, row := range rows {
		// open time, open, high, low, close, volume are the first six fields
		if len(row) < 6 {
			return nil, &MalformedDataError{
				Endpoint: "/api/v3/klines",
				Detail:   fmt.Sprintf("row %d has %d fields, want at least 6", i, len(row)),
			}
		}

		openTimeMs, err := toFloat64(row[0])
		if err != nil {
			return nil, &MalformedDataError{
				Endpoint: "/api/v3/klines",
				Detail:   fmt.Sprintf("row %d open time: %v", i, err),
			}
		}

		candle := models.Candle{OpenTime: time.UnixMilli(int64(openTimeMs)).UTC()}
		fields := []struct {
			name string
			raw  interface{}
			dst  *float64
		}{
			{"open", row[1], &candle.Open},
			{"high", row[2], &candle.High},
			{"low", row[3], &candle.Low},
			{"close", row[4], &candle.Close},
			{"volume", row[5], &candle.Volume},
		}
		for _, f := range fields {
			v, err := toFloat64(f.raw)
			if err != nil {
				return nil, &MalformedDataError{
					Endpoint: "/api/v3/klines",
					Detail:   fmt.Sprintf("row %d field %s: %v", i, f.name, err),
				}
			}
			*f.dst = v
		}
		candles = append(candles, candle)
	}

	return candles, nil
}

// toFloat64 coerces a JSON value that may be a number or a string-typed
// number. NaN and infinities are rejected.
func toFloat64(v interface{}) (float64, error) {
	var out float64
	switch val := v.(type) {
	case float64:
		out = val
	case string:
		parsed, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return 0, fmt.Errorf("not numeric: %q", val)
		}
		out = parsed
	case json.Number:
		parsed, err := val.Float64()
		if err != nil {
			return 0, fmt.Errorf("not numeric: %q", val.String())
		}
		out = parsed
	default:
		return 0, fmt.Errorf("unsupported type %T", v)
	}

	if math.IsNaN(out) || math.IsInf(out, 0) {
		return 0, fmt.Errorf("non-finite value %v", out)
	}
	return out, nil
}

// Ensure Client implements the MarketDataSource interface
var _ interfaces.MarketDataSource = (*Client)(nil)
