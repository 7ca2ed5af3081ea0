// Package scheduler runs the daily analysis cycle on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/mercatus/internal/analysis"
)

// Scheduler triggers scheduled analysis runs over the configured symbols.
type Scheduler struct {
	cron    *cron.Cron
	service *analysis.Service
	symbols []string
	logger  arbor.ILogger
	ctx     context.Context
	mu      sync.Mutex
	running bool
}

// New creates a scheduler. The cron expression uses six fields (with
// seconds), matching the configuration default.
func New(ctx context.Context, service *analysis.Service, symbols []string, logger arbor.ILogger) *Scheduler {
	return &Scheduler{
		cron:    cron.New(cron.WithSeconds()),
		service: service,
		symbols: symbols,
		logger:  logger,
		ctx:     ctx,
	}
}

// Start registers the analysis job and starts the cron loop.
func (s *Scheduler) Start(schedule string) error {
	if schedule == "" {
		schedule = "0 10 0 * * *"
	}

	if _, err := s.cron.AddFunc(schedule, s.runCycle); err != nil {
		return fmt.Errorf("failed to register analysis schedule %q: %w", schedule, err)
	}

	s.cron.Start()
	s.logger.Info().
		Str("schedule", schedule).
		Int("symbols", len(s.symbols)).
		Msg("Analysis scheduler started")

	return nil
}

// Stop stops the cron loop and waits for a running cycle to finish.
func (s *Scheduler) Stop() {
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
	s.logger.Info().Msg("Analysis scheduler stopped")
}

// RunNow executes one full cycle immediately.
func (s *Scheduler) RunNow() {
	s.runCycle()
}

// runCycle analyzes every configured symbol and then the market trend.
// Cached results make overlapping or repeated runs on the same day cheap.
func (s *Scheduler) runCycle() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.logger.Warn().Msg("Previous analysis cycle still running, skipping")
		return
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	s.logger.Info().Int("symbols", len(s.symbols)).Msg("Analysis cycle starting")

	for _, symbol := range s.symbols {
		if s.ctx.Err() != nil {
			return
		}
		result, err := s.service.AnalyzeSymbol(s.ctx, symbol)
		if err != nil {
			s.logger.Error().Str("symbol", symbol).Err(err).Msg("Symbol analysis failed")
			continue
		}
		s.logger.Info().
			Str("symbol", symbol).
			Str("direction", string(result.Analysis.Trend.Direction)).
			Bool("degraded", result.QualityMetrics.Degraded).
			Msg("Symbol analysis complete")
	}

	if s.ctx.Err() != nil {
		return
	}

	if result, err := s.service.AnalyzeMarketTrend(s.ctx, s.symbols); err != nil {
		s.logger.Error().Err(err).Msg("Market trend analysis failed")
	} else {
		s.logger.Info().
			Str("direction", string(result.Analysis.Trend.Direction)).
			Int("confidence", result.Analysis.Trend.Confidence).
			Msg("Market trend analysis complete")
	}

	s.logger.Info().Msg("Analysis cycle finished")
}
