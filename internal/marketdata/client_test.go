package marketdata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetTicker24h(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/ticker/24hr", r.URL.Path)
		assert.Equal(t, "BTCUSDT", r.URL.Query().Get("symbol"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"symbol": "BTCUSDT",
			"lastPrice": "97123.45",
			"priceChangePercent": "-1.25",
			"highPrice": "99000.00",
			"lowPrice": "96000.00",
			"volume": "12345.678",
			"quoteVolume": "1200000000.50"
		}`))
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL))
	ticker, err := client.GetTicker24h(context.Background(), "BTCUSDT")
	require.NoError(t, err)

	assert.Equal(t, "BTCUSDT", ticker.Symbol)
	assert.Equal(t, 97123.45, ticker.LastPrice)
	assert.Equal(t, -1.25, ticker.PriceChangePercent)
	assert.Equal(t, 12345.678, ticker.Volume)
}

func TestGetTicker24h_NonNumericField(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"symbol": "BTCUSDT", "lastPrice": "not-a-number"}`))
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL))
	_, err := client.GetTicker24h(context.Background(), "BTCUSDT")
	require.Error(t, err)

	var malformed *MalformedDataError
	require.ErrorAs(t, err, &malformed)
	assert.Contains(t, malformed.Detail, "lastPrice")
}

func TestGetCandles(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/klines", r.URL.Path)
		assert.Equal(t, "ETHUSDT", r.URL.Query().Get("symbol"))
		assert.Equal(t, "1d", r.URL.Query().Get("interval"))
		assert.Equal(t, "2", r.URL.Query().Get("limit"))
		// klines rows mix numeric open time with string OHLCV
		w.Write([]byte(`[
			[1735689600000, "3300.00", "3350.10", "3250.50", "3340.25", "15000.5", 1735775999999, "0", 0, "0", "0", "0"],
			[1735776000000, "3340.25", "3400.00", "3300.00", "3390.75", "18000.0", 1735862399999, "0", 0, "0", "0", "0"]
		]`))
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL))
	candles, err := client.GetCandles(context.Background(), "ETHUSDT", Interval1d, 2)
	require.NoError(t, err)
	require.Len(t, candles, 2)

	assert.Equal(t, time.UnixMilli(1735689600000).UTC(), candles[0].OpenTime)
	assert.Equal(t, 3300.00, candles[0].Open)
	assert.Equal(t, 3340.25, candles[0].Close)
	assert.Equal(t, 15000.5, candles[0].Volume)
	assert.True(t, candles[0].OpenTime.Before(candles[1].OpenTime), "candles should be oldest first")
}

func TestGetCandles_ShortRow(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[[1735689600000, "3300.00"]]`))
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL))
	_, err := client.GetCandles(context.Background(), "ETHUSDT", Interval1d, 1)

	var malformed *MalformedDataError
	require.ErrorAs(t, err, &malformed)
}

func TestGet_RateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "3")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL))
	_, err := client.GetTicker24h(context.Background(), "BTCUSDT")

	var rateLimit *RateLimitError
	require.ErrorAs(t, err, &rateLimit)
	assert.Equal(t, 3*time.Second, rateLimit.RetryAfter)
}

func TestGet_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"code":-1121,"msg":"Invalid symbol."}`))
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL))
	_, err := client.GetTicker24h(context.Background(), "NOPE")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "/api/v3/ticker/24hr", apiErr.Endpoint)
}

func TestToFloat64_RejectsNonFinite(t *testing.T) {
	_, err := toFloat64("NaN")
	require.Error(t, err)

	_, err = toFloat64("Inf")
	require.Error(t, err)

	v, err := toFloat64("42.5")
	require.NoError(t, err)
	assert.Equal(t, 42.5, v)
}
