// Package analysis runs the end-to-end pipeline: collect market data,
// compute indicators, prompt the model chain, merge, and cache the result.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/mercatus/internal/cache"
	"github.com/ternarybob/mercatus/internal/indicators"
	"github.com/ternarybob/mercatus/internal/llm"
	"github.com/ternarybob/mercatus/internal/merger"
	"github.com/ternarybob/mercatus/internal/models"
	"github.com/ternarybob/mercatus/internal/prompt"
)

// MarketSymbol is the synthetic symbol under which the cross-market trend
// analysis is cached.
const MarketSymbol = "MARKET"

// Collector fetches validated market snapshots.
type Collector interface {
	Collect(ctx context.Context, symbol string) (*models.MarketSnapshot, error)
}

// Orchestrator runs the model fallback chain for one prompt.
type Orchestrator interface {
	Analyze(ctx context.Context, prompt, systemInstruction string) (*llm.Outcome, error)
}

// Service coordinates one analysis run per symbol per UTC day.
type Service struct {
	collector    Collector
	orchestrator Orchestrator
	cache        *cache.Service
	builder      *prompt.Builder
	params       indicators.Params
	logger       arbor.ILogger
	now          func() time.Time
}

// NewService wires the pipeline together.
func NewService(collector Collector, orchestrator Orchestrator, cacheService *cache.Service, logger arbor.ILogger) *Service {
	return &Service{
		collector:    collector,
		orchestrator: orchestrator,
		cache:        cacheService,
		builder:      prompt.NewBuilder(),
		params:       indicators.DefaultParams(),
		logger:       logger,
		now:          time.Now,
	}
}

// AnalyzeSymbol produces (or returns the cached) analysis for one symbol on
// the current UTC date.
func (s *Service) AnalyzeSymbol(ctx context.Context, symbol string) (*models.AnalysisResult, error) {
	date := models.AnalysisDate(s.now())

	if cached, err := s.cache.Get(symbol, models.AnalysisTypeSingleCurrency, date); err == nil {
		s.logger.Info().Str("symbol", symbol).Str("date", date).Msg("Serving cached analysis")
		return cached, nil
	} else if !errors.Is(err, models.ErrCacheMiss) {
		return nil, fmt.Errorf("cache lookup failed for %s: %w", symbol, err)
	}

	started := s.now()

	snapshot, err := s.collector.Collect(ctx, symbol)
	if err != nil {
		return nil, err
	}

	computed := indicators.Compute(s.params, indicators.Series{
		Highs:   snapshot.Highs(),
		Lows:    snapshot.Lows(),
		Closes:  snapshot.Closes(),
		Volumes: snapshot.Volumes(),
	}, snapshot.CurrentPrice)

	promptText := s.builder.BuildSingleCurrency(snapshot, computed)

	outcome, err := s.orchestrator.Analyze(ctx, promptText, prompt.SystemInstruction)
	if err != nil {
		return nil, err
	}

	result := s.assemble(symbol, models.AnalysisTypeSingleCurrency, date, []string{symbol},
		snapshot.FetchedAt, computed, outcome, started)

	if err := s.cache.Put(result); err != nil {
		return nil, fmt.Errorf("failed to cache analysis for %s: %w", symbol, err)
	}

	return result, nil
}

// AnalyzeMarketTrend produces (or returns the cached) cross-market trend
// analysis over the given symbols. Indicators are computed on a composite
// series built from per-symbol normalized closes, so differently priced
// assets contribute equally.
func (s *Service) AnalyzeMarketTrend(ctx context.Context, symbols []string) (*models.AnalysisResult, error) {
	if len(symbols) == 0 {
		return nil, fmt.Errorf("market trend analysis requires at least one symbol")
	}

	date := models.AnalysisDate(s.now())

	if cached, err := s.cache.Get(MarketSymbol, models.AnalysisTypeHomepageTrend, date); err == nil {
		s.logger.Info().Str("date", date).Msg("Serving cached market trend")
		return cached, nil
	} else if !errors.Is(err, models.ErrCacheMiss) {
		return nil, fmt.Errorf("cache lookup failed for market trend: %w", err)
	}

	started := s.now()

	snapshots := make([]*models.MarketSnapshot, 0, len(symbols))
	collected := make([]string, 0, len(symbols))
	for _, symbol := range symbols {
		snapshot, err := s.collector.Collect(ctx, symbol)
		if err != nil {
			s.logger.Warn().Str("symbol", symbol).Err(err).Msg("Excluding symbol from market trend")
			continue
		}
		snapshots = append(snapshots, snapshot)
		collected = append(collected, symbol)
	}
	if len(snapshots) == 0 {
		return nil, &models.DataUnavailableError{
			Symbol: MarketSymbol,
			Reason: "no symbol could be collected for the market trend",
		}
	}

	series, fetchedAt := compositeSeries(snapshots)
	computed := indicators.Compute(s.params, series, series.Closes[len(series.Closes)-1])

	promptText := s.builder.BuildMarketTrend(collected, snapshots, computed)

	outcome, err := s.orchestrator.Analyze(ctx, promptText, prompt.SystemInstruction)
	if err != nil {
		return nil, err
	}

	result := s.assemble(MarketSymbol, models.AnalysisTypeHomepageTrend, date, collected,
		fetchedAt, computed, outcome, started)

	if err := s.cache.Put(result); err != nil {
		return nil, fmt.Errorf("failed to cache market trend: %w", err)
	}

	return result, nil
}

// assemble builds the persisted result from one pipeline run.
func (s *Service) assemble(symbol string, analysisType models.AnalysisType, date string, sources []string,
	dataTimestamp time.Time, computed models.TechnicalIndicators, outcome *llm.Outcome, started time.Time) *models.AnalysisResult {

	merged := merger.Merge(outcome.Analysis, computed)

	return &models.AnalysisResult{
		Symbol:       symbol,
		AnalysisType: analysisType,
		AnalysisDate: date,
		Analysis:     merged,
		DataSources: models.DataSources{
			Symbols:       sources,
			AnalysisModel: outcome.Model,
			DataTimestamp: dataTimestamp,
		},
		QualityMetrics: models.QualityMetrics{
			TokensUsed:       outcome.TokensUsed,
			ProcessingTimeMs: s.now().Sub(started).Milliseconds(),
			Confidence:       merged.Trend.Confidence,
			Degraded:         outcome.Degraded,
			RunID:            uuid.New().String(),
		},
	}
}

// compositeSeries builds a cross-symbol series. Each symbol's closes, highs
// and lows are divided by that symbol's first close, then averaged across
// symbols; volumes are summed raw. The series is truncated to the shortest
// symbol history so every index has full coverage.
func compositeSeries(snapshots []*models.MarketSnapshot) (indicators.Series, time.Time) {
	minLen := len(snapshots[0].Candles)
	fetchedAt := snapshots[0].FetchedAt
	for _, snapshot := range snapshots[1:] {
		if len(snapshot.Candles) < minLen {
			minLen = len(snapshot.Candles)
		}
		if snapshot.FetchedAt.After(fetchedAt) {
			fetchedAt = snapshot.FetchedAt
		}
	}

	series := indicators.Series{
		Highs:   make([]float64, minLen),
		Lows:    make([]float64, minLen),
		Closes:  make([]float64, minLen),
		Volumes: make([]float64, minLen),
	}

	for _, snapshot := range snapshots {
		// Align to the most recent candles when histories differ in depth
		candles := snapshot.Candles[len(snapshot.Candles)-minLen:]
		base := candles[0].Close
		if base == 0 {
			continue
		}
		for i, candle := range candles {
			series.Highs[i] += candle.High / base
			series.Lows[i] += candle.Low / base
			series.Closes[i] += candle.Close / base
			series.Volumes[i] += candle.Volume
		}
	}

	n := float64(len(snapshots))
	for i := 0; i < minLen; i++ {
		series.Highs[i] /= n
		series.Lows[i] /= n
		series.Closes[i] /= n
	}

	return series, fetchedAt
}
