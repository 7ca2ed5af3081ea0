package models

import (
	"math"
	"time"
)

// Candle represents a single OHLCV bar. Sequences are ordered oldest-first.
type Candle struct {
	OpenTime time.Time `json:"openTime"`
	Open     float64   `json:"open"`
	High     float64   `json:"high"`
	Low      float64   `json:"low"`
	Close    float64   `json:"close"`
	Volume   float64   `json:"volume"`
}

// IsFinite reports whether every numeric field of the candle is a finite number.
func (c Candle) IsFinite() bool {
	for _, v := range []float64{c.Open, c.High, c.Low, c.Close, c.Volume} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Ticker24h is a normalized 24-hour ticker snapshot for a symbol.
// Upstream sources deliver these fields as strings; the market data client
// coerces them to float64 and rejects non-numeric values.
type Ticker24h struct {
	Symbol             string  `json:"symbol"`
	LastPrice          float64 `json:"lastPrice"`
	PriceChangePercent float64 `json:"priceChangePercent"`
	HighPrice          float64 `json:"highPrice"`
	LowPrice           float64 `json:"lowPrice"`
	Volume             float64 `json:"volume"`
	QuoteVolume        float64 `json:"quoteVolume"`
}

// MarketSnapshot is the validated output of a collection run for one symbol.
type MarketSnapshot struct {
	Symbol       string    `json:"symbol"`
	CurrentPrice float64   `json:"currentPrice"`
	Ticker       Ticker24h `json:"ticker"`
	Candles      []Candle  `json:"candles"`
	FetchedAt    time.Time `json:"fetchedAt"`
}

// Highs returns the high series in chronological order.
func (s *MarketSnapshot) Highs() []float64 { return extract(s.Candles, func(c Candle) float64 { return c.High }) }

// Lows returns the low series in chronological order.
func (s *MarketSnapshot) Lows() []float64 { return extract(s.Candles, func(c Candle) float64 { return c.Low }) }

// Closes returns the close series in chronological order.
func (s *MarketSnapshot) Closes() []float64 { return extract(s.Candles, func(c Candle) float64 { return c.Close }) }

// Volumes returns the volume series in chronological order.
func (s *MarketSnapshot) Volumes() []float64 { return extract(s.Candles, func(c Candle) float64 { return c.Volume }) }

func extract(candles []Candle, f func(Candle) float64) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = f(c)
	}
	return out
}
