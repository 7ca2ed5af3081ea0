package models

import (
	"encoding/gob"
	"fmt"
	"time"
)

func init() {
	// Register types for gob encoding (required for BadgerHold storage)
	gob.Register(AnalysisResult{})
	gob.Register(TechnicalIndicators{})
}

// AnalysisType identifies the kind of analysis a result holds.
type AnalysisType string

const (
	AnalysisTypeSingleCurrency AnalysisType = "single_currency"
	AnalysisTypeHomepageTrend  AnalysisType = "homepage_trend"
)

// Signal is the actionable label derived for an indicator.
type Signal string

const (
	SignalBuy   Signal = "BUY"
	SignalSell  Signal = "SELL"
	SignalHold  Signal = "HOLD"
	SignalWatch Signal = "WATCH"
)

// ValidSignal reports whether s is one of the known signal labels.
func ValidSignal(s Signal) bool {
	switch s {
	case SignalBuy, SignalSell, SignalHold, SignalWatch:
		return true
	}
	return false
}

// TrendDirection classifies the overall market direction.
type TrendDirection string

const (
	TrendBullish TrendDirection = "bullish"
	TrendBearish TrendDirection = "bearish"
	TrendNeutral TrendDirection = "neutral"
)

// SentimentLabel classifies market sentiment.
type SentimentLabel string

const (
	SentimentPositive SentimentLabel = "positive"
	SentimentNeutral  SentimentLabel = "neutral"
	SentimentNegative SentimentLabel = "negative"
)

// RSIIndicator holds the computed RSI value and its qualitative reading.
// Value is nil when the lookback history was insufficient or degenerate.
type RSIIndicator struct {
	Value          *float64 `json:"value"`
	Signal         Signal   `json:"signal"`
	Interpretation string   `json:"interpretation"`
}

// MACDIndicator holds the computed MACD line value.
type MACDIndicator struct {
	Value          *float64 `json:"value"`
	Signal         Signal   `json:"signal"`
	Interpretation string   `json:"interpretation"`
}

// MovingAverageIndicator holds short and long simple moving averages and the
// position of the current price relative to the short average.
type MovingAverageIndicator struct {
	MA7            *float64 `json:"ma7"`
	MA50           *float64 `json:"ma50"`
	Position       string   `json:"position"` // above, below, at
	Signal         Signal   `json:"signal"`
	Interpretation string   `json:"interpretation"`
}

// BollingerBandsIndicator holds the band values and squeeze state.
type BollingerBandsIndicator struct {
	Upper          *float64 `json:"upper"`
	Middle         *float64 `json:"middle"`
	Lower          *float64 `json:"lower"`
	Position       string   `json:"position"` // above, inside, below
	Squeeze        bool     `json:"squeeze"`
	Signal         Signal   `json:"signal"`
	Interpretation string   `json:"interpretation"`
}

// WilliamsRIndicator holds the Williams %R oscillator value.
type WilliamsRIndicator struct {
	Value          *float64 `json:"value"`
	Signal         Signal   `json:"signal"`
	Interpretation string   `json:"interpretation"`
}

// VolumeIndicator holds the volume trend classification.
type VolumeIndicator struct {
	Trend          string `json:"trend"` // rising, falling, stable
	Signal         Signal `json:"signal"`
	Interpretation string `json:"interpretation"`
}

// TechnicalIndicators is the full set of computed indicators for a symbol.
// Numeric fields are authoritative once computed and are never overwritten by
// LLM output; only signal and interpretation text may be supplemented.
type TechnicalIndicators struct {
	RSI            RSIIndicator            `json:"rsi"`
	MACD           MACDIndicator           `json:"macd"`
	MovingAverage  MovingAverageIndicator  `json:"movingAverage"`
	BollingerBands BollingerBandsIndicator `json:"bollingerBands"`
	WilliamsR      WilliamsRIndicator      `json:"williamsR"`
	Volume         VolumeIndicator         `json:"volume"`
}

// Trend is the qualitative market direction block.
type Trend struct {
	Direction  TrendDirection `json:"direction" validate:"required,oneof=bullish bearish neutral"`
	Confidence int            `json:"confidence" validate:"min=0,max=100"`
	Summary    string         `json:"summary"`
}

// MarketSentiment is the qualitative sentiment block.
type MarketSentiment struct {
	Score   int            `json:"score" validate:"min=0,max=100"`
	Label   SentimentLabel `json:"label" validate:"required,oneof=positive neutral negative"`
	Summary string         `json:"summary"`
}

// Analysis is the merged analysis payload stored inside an AnalysisResult.
type Analysis struct {
	Trend             Trend               `json:"trend"`
	TechnicalAnalysis TechnicalIndicators `json:"technicalAnalysis"`
	MarketSentiment   MarketSentiment     `json:"marketSentiment"`
}

// DataSources records provenance of an analysis.
type DataSources struct {
	Symbols       []string  `json:"symbols"`
	AnalysisModel string    `json:"analysisModel"`
	DataTimestamp time.Time `json:"dataTimestamp"`
}

// QualityMetrics records cost and confidence metadata for an analysis run.
type QualityMetrics struct {
	TokensUsed       int    `json:"tokensUsed"`
	ProcessingTimeMs int64  `json:"processingTimeMs"`
	Confidence       int    `json:"confidence"`
	Degraded         bool   `json:"degraded"`
	RunID            string `json:"runId"`
}

// AnalysisResult is the persisted outcome of one pipeline run. Results are
// immutable once stored; a later put for the same key overwrites wholesale.
type AnalysisResult struct {
	Symbol         string         `json:"symbol" badgerhold:"index"`
	AnalysisType   AnalysisType   `json:"analysisType"`
	AnalysisDate   string         `json:"analysisDate"` // UTC calendar date, YYYY-MM-DD
	Analysis       Analysis       `json:"analysis"`
	DataSources    DataSources    `json:"dataSources"`
	QualityMetrics QualityMetrics `json:"qualityMetrics"`
	CreatedAt      time.Time      `json:"createdAt"`
}

// Key returns the storage key for the result: one entry per
// (symbol, analysisType, calendar date).
func (r *AnalysisResult) Key() string {
	return ResultKey(r.Symbol, r.AnalysisType, r.AnalysisDate)
}

// ResultKey builds the composite storage key for an analysis result.
func ResultKey(symbol string, analysisType AnalysisType, date string) string {
	return fmt.Sprintf("%s|%s|%s", symbol, analysisType, date)
}

// AnalysisDate formats t as the UTC calendar date used for cache keying.
func AnalysisDate(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
