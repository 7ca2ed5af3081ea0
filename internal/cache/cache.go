// Package cache enforces the one-result-per-day freshness policy over
// analysis storage. A symbol is analyzed at most once per UTC calendar day,
// except that degraded (rule-based fallback) results expire early so a
// recovered provider chain can replace them.
package cache

import (
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/mercatus/internal/interfaces"
	"github.com/ternarybob/mercatus/internal/models"
)

// Service wraps analysis storage with the freshness policy.
type Service struct {
	storage     interfaces.AnalysisStorage
	degradedTTL time.Duration
	logger      arbor.ILogger
	now         func() time.Time
}

// NewService creates a cache service. A degradedTTL of zero treats degraded
// results like genuine ones.
func NewService(storage interfaces.AnalysisStorage, degradedTTL time.Duration, logger arbor.ILogger) *Service {
	return &Service{
		storage:     storage,
		degradedTTL: degradedTTL,
		logger:      logger,
		now:         time.Now,
	}
}

// Get returns the cached result for a symbol and type on the given UTC date.
// Returns models.ErrCacheMiss when there is no entry, or when the entry is a
// degraded result older than the degraded TTL.
func (s *Service) Get(symbol string, analysisType models.AnalysisType, date string) (*models.AnalysisResult, error) {
	result, err := s.storage.GetResult(symbol, analysisType, date)
	if err != nil {
		return nil, err
	}

	if result.QualityMetrics.Degraded && s.degradedTTL > 0 {
		age := s.now().UTC().Sub(result.CreatedAt)
		if age > s.degradedTTL {
			s.logger.Debug().
				Str("key", result.Key()).
				Dur("age", age).
				Msg("Degraded result expired, treating as miss")
			return nil, models.ErrCacheMiss
		}
	}

	return result, nil
}

// Put stores a result, stamping CreatedAt. An existing entry for the same
// key is overwritten wholesale.
func (s *Service) Put(result *models.AnalysisResult) error {
	result.CreatedAt = s.now().UTC()
	return s.storage.SaveResult(result)
}

// Invalidate removes one cached entry.
func (s *Service) Invalidate(symbol string, analysisType models.AnalysisType, date string) error {
	return s.storage.DeleteResult(symbol, analysisType, date)
}

// ClearSymbol removes every cached entry for a symbol.
func (s *Service) ClearSymbol(symbol string) (int, error) {
	return s.storage.DeleteBySymbol(symbol)
}

// ClearAll removes every cached entry.
func (s *Service) ClearAll() (int, error) {
	return s.storage.DeleteAll()
}

// History returns recent results for a symbol, newest first.
func (s *Service) History(symbol string, limit int) ([]*models.AnalysisResult, error) {
	return s.storage.ListResults(symbol, limit)
}
