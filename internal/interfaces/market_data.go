package interfaces

import (
	"context"

	"github.com/ternarybob/mercatus/internal/models"
)

// MarketDataSource provides price and volume data for traded symbols.
// Implementations coerce upstream string-typed numeric fields to float64 and
// surface non-numeric data as errors rather than zero values.
type MarketDataSource interface {
	// GetTicker24h returns the 24-hour rolling ticker snapshot for a symbol.
	GetTicker24h(ctx context.Context, symbol string) (*models.Ticker24h, error)

	// GetCandles returns up to limit candles for the symbol at the given
	// interval, ordered oldest-first.
	GetCandles(ctx context.Context, symbol, interval string, limit int) ([]models.Candle, error)
}
