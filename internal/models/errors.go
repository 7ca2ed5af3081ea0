package models

import (
	"errors"
	"fmt"
)

// ErrCacheMiss signals that no stored result exists for a key. It is expected
// control flow, not a failure: callers respond by running the full pipeline.
var ErrCacheMiss = errors.New("analysis cache miss")

// DataUnavailableError indicates market data for a symbol was missing or
// invalid. It fails the whole analysis run; no partial or default result is
// computed or stored on top of bad market data.
type DataUnavailableError struct {
	Symbol string
	Reason string
}

func (e *DataUnavailableError) Error() string {
	return fmt.Sprintf("market data unavailable for %s: %s", e.Symbol, e.Reason)
}

// ExtractionError indicates a model response could not be parsed into the
// expected analysis shape. RawSample carries a truncated slice of the
// offending text for diagnostics.
type ExtractionError struct {
	Reason    string
	RawSample string
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("response extraction failed: %s (sample: %q)", e.Reason, e.RawSample)
}
