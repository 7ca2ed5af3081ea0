package interfaces

import (
	"github.com/ternarybob/mercatus/internal/models"
)

// AnalysisStorage is the document store contract for persisted analysis
// results, keyed by (symbol, analysisType, calendar date). Upserts for the
// same key overwrite; concurrent upserts resolve last-write-wins.
type AnalysisStorage interface {
	// SaveResult upserts a result under its composite key.
	SaveResult(result *models.AnalysisResult) error

	// GetResult fetches the result for a key, or models.ErrCacheMiss when no
	// document exists.
	GetResult(symbol string, analysisType models.AnalysisType, date string) (*models.AnalysisResult, error)

	// ListResults returns stored results for a symbol, newest first.
	ListResults(symbol string, limit int) ([]*models.AnalysisResult, error)

	// DeleteResult removes a single result. Missing keys are not an error.
	DeleteResult(symbol string, analysisType models.AnalysisType, date string) error

	// DeleteBySymbol removes all results for a symbol and reports the count.
	DeleteBySymbol(symbol string) (int, error)

	// DeleteAll removes every stored result and reports the count.
	DeleteAll() (int, error)
}
