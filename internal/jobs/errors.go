package jobs

import "errors"

var (
	ErrNotFound    = errors.New("job not found")
	ErrJobFinished = errors.New("job already finished")
	ErrValidation  = errors.New("validation")
	ErrTimedOut    = errors.New("analysis timed out")

	errStorage = errors.New("storage")
)

const (
	ErrorCodeValidation      = "VALIDATION_ERROR"
	ErrorCodeAnalyzerTimeout = "ANALYZER_TIMEOUT"
	ErrorCodeAnalyzerFailed  = "ANALYZER_FAILED"
	ErrorCodeStorage         = "STORAGE_ERROR"
	ErrorCodeInternal        = "INTERNAL_ERROR"
	ErrorCodeCancelled       = "CANCELLED"
)
