package badger

import (
	"errors"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/mercatus/internal/interfaces"
	"github.com/ternarybob/mercatus/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// AnalysisStorage persists analysis results in BadgerDB, keyed by
// (symbol, analysis type, UTC date).
type AnalysisStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewAnalysisStorage creates a new analysis storage service
func NewAnalysisStorage(db *BadgerDB, logger arbor.ILogger) *AnalysisStorage {
	return &AnalysisStorage{
		db:     db,
		logger: logger,
	}
}

// SaveResult stores a result, replacing any existing entry for the same key.
func (s *AnalysisStorage) SaveResult(result *models.AnalysisResult) error {
	if result == nil {
		return fmt.Errorf("result is nil")
	}
	if result.Symbol == "" || result.AnalysisType == "" || result.AnalysisDate == "" {
		return fmt.Errorf("result key fields are incomplete: %q", result.Key())
	}

	if err := s.db.Store().Upsert(result.Key(), result); err != nil {
		return fmt.Errorf("failed to save analysis result %s: %w", result.Key(), err)
	}

	s.logger.Debug().
		Str("key", result.Key()).
		Bool("degraded", result.QualityMetrics.Degraded).
		Msg("Analysis result saved")

	return nil
}

// GetResult retrieves a result by key. Returns models.ErrCacheMiss when no
// entry exists.
func (s *AnalysisStorage) GetResult(symbol string, analysisType models.AnalysisType, date string) (*models.AnalysisResult, error) {
	var result models.AnalysisResult
	err := s.db.Store().Get(models.ResultKey(symbol, analysisType, date), &result)
	if err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, models.ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to get analysis result: %w", err)
	}
	return &result, nil
}

// ListResults returns results for a symbol, newest first. A limit of 0
// returns everything.
func (s *AnalysisStorage) ListResults(symbol string, limit int) ([]*models.AnalysisResult, error) {
	var results []*models.AnalysisResult
	query := badgerhold.Where("Symbol").Eq(symbol).Index("Symbol").SortBy("AnalysisDate").Reverse()
	if limit > 0 {
		query = query.Limit(limit)
	}

	if err := s.db.Store().Find(&results, query); err != nil {
		return nil, fmt.Errorf("failed to list analysis results for %s: %w", symbol, err)
	}
	return results, nil
}

// DeleteResult removes one result. Deleting a missing key is not an error.
func (s *AnalysisStorage) DeleteResult(symbol string, analysisType models.AnalysisType, date string) error {
	err := s.db.Store().Delete(models.ResultKey(symbol, analysisType, date), &models.AnalysisResult{})
	if err != nil && !errors.Is(err, badgerhold.ErrNotFound) {
		return fmt.Errorf("failed to delete analysis result: %w", err)
	}
	return nil
}

// DeleteBySymbol removes all results for a symbol and returns the count.
func (s *AnalysisStorage) DeleteBySymbol(symbol string) (int, error) {
	results, err := s.ListResults(symbol, 0)
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, result := range results {
		if err := s.DeleteResult(result.Symbol, result.AnalysisType, result.AnalysisDate); err != nil {
			return deleted, err
		}
		deleted++
	}

	s.logger.Debug().
		Str("symbol", symbol).
		Int("deleted", deleted).
		Msg("Analysis results cleared for symbol")

	return deleted, nil
}

// DeleteAll removes every stored result and returns the count.
func (s *AnalysisStorage) DeleteAll() (int, error) {
	var results []*models.AnalysisResult
	if err := s.db.Store().Find(&results, nil); err != nil {
		return 0, fmt.Errorf("failed to list analysis results: %w", err)
	}

	deleted := 0
	for _, result := range results {
		if err := s.DeleteResult(result.Symbol, result.AnalysisType, result.AnalysisDate); err != nil {
			return deleted, err
		}
		deleted++
	}

	s.logger.Debug().Int("deleted", deleted).Msg("All analysis results cleared")

	return deleted, nil
}

// Ensure AnalysisStorage implements the AnalysisStorage interface
var _ interfaces.AnalysisStorage = (*AnalysisStorage)(nil)
