// Package marketdata provides a client for Binance-compatible spot market
// REST and websocket APIs. This package centralizes all market data
// interactions for the application.
package marketdata

import (
	"fmt"
	"time"
)

// Supported kline intervals.
const (
	Interval1h = "1h"
	Interval4h = "4h"
	Interval1d = "1d"
)

// APIError represents an error response from the market data API.
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("market data API error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// RateLimitError represents a rate limit error.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("market data rate limit exceeded, retry after %v", e.RetryAfter)
}

// MalformedDataError indicates the API returned a payload that could not be
// coerced into numeric OHLCV values.
type MalformedDataError struct {
	Endpoint string
	Detail   string
}

func (e *MalformedDataError) Error() string {
	return fmt.Sprintf("malformed market data from %s: %s", e.Endpoint, e.Detail)
}
