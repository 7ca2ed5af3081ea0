// Package collector assembles validated market snapshots from a market data
// source. A snapshot either contains a full, finite OHLCV history or the
// collection fails with a DataUnavailableError; downstream analysis never
// sees partial data.
package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/mercatus/internal/interfaces"
	"github.com/ternarybob/mercatus/internal/models"
)

// Collector fetches and validates market data for analysis.
type Collector struct {
	source   interfaces.MarketDataSource
	logger   arbor.ILogger
	interval string
	limit    int
}

// New creates a collector reading candles at the given interval and depth.
func New(source interfaces.MarketDataSource, interval string, limit int, logger arbor.ILogger) *Collector {
	return &Collector{
		source:   source,
		logger:   logger,
		interval: interval,
		limit:    limit,
	}
}

// Collect fetches the 24h ticker and candle history for a symbol and returns
// a validated snapshot. Any upstream failure or malformed value fails the
// whole collection.
func (c *Collector) Collect(ctx context.Context, symbol string) (*models.MarketSnapshot, error) {
	ticker, err := c.source.GetTicker24h(ctx, symbol)
	if err != nil {
		c.logger.Warn().Err(err).Str("symbol", symbol).Msg("Ticker fetch failed")
		return nil, &models.DataUnavailableError{
			Symbol: symbol,
			Reason: fmt.Sprintf("ticker fetch failed: %v", err),
		}
	}

	candles, err := c.source.GetCandles(ctx, symbol, c.interval, c.limit)
	if err != nil {
		c.logger.Warn().Err(err).Str("symbol", symbol).Msg("Candle fetch failed")
		return nil, &models.DataUnavailableError{
			Symbol: symbol,
			Reason: fmt.Sprintf("candle fetch failed: %v", err),
		}
	}

	if len(candles) == 0 {
		return nil, &models.DataUnavailableError{
			Symbol: symbol,
			Reason: "no candle history returned",
		}
	}

	for i, candle := range candles {
		if !candle.IsFinite() {
			return nil, &models.DataUnavailableError{
				Symbol: symbol,
				Reason: fmt.Sprintf("non-finite value in candle %d", i),
			}
		}
		if i > 0 && !candles[i-1].OpenTime.Before(candle.OpenTime) {
			return nil, &models.DataUnavailableError{
				Symbol: symbol,
				Reason: fmt.Sprintf("candles out of order at index %d", i),
			}
		}
	}

	snapshot := &models.MarketSnapshot{
		Symbol:       symbol,
		CurrentPrice: ticker.LastPrice,
		Ticker:       *ticker,
		Candles:      candles,
		FetchedAt:    time.Now().UTC(),
	}

	c.logger.Debug().
		Str("symbol", symbol).
		Int("candles", len(candles)).
		Float64("price", snapshot.CurrentPrice).
		Msg("Market snapshot collected")

	return snapshot, nil
}
