package llm

import (
	"context"
	"errors"
)

// Analyzer abstracts the providers that judge whether text is AI-generated.
type Analyzer interface {
	Analyze(ctx context.Context, input Input, progress ProgressFunc) (string, error)
}

// Input captures one analysis request.
type Input struct {
	Text    string
	Purpose string
	// Context is optional surrounding text, e.g. the paragraph a sentence came from.
	Context string
}

// ProgressFunc receives intermediate progress in 0..100. It may be nil.
type ProgressFunc func(percent int, message string)

// Report calls p when it is set.
func (p ProgressFunc) Report(percent int, message string) {
	if p != nil {
		p(percent, message)
	}
}

// ErrNotConfigured means no analyzer provider is available.
var ErrNotConfigured = errors.New("analyzer not configured")
