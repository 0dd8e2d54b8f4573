// Package heuristic adapts the local lexical scorer to the llm.Analyzer
// interface so the job service can run fully offline.
package heuristic

import (
	"context"
	"errors"
	"strings"

	scorer "aichecker-backend/internal/heuristic"
	"aichecker-backend/internal/llm"
	"aichecker-backend/internal/report"
)

const contextNote = "Text is too short to score on its own; scored together with its surrounding context.\n\n"

// Analyzer scores text with scorer.Evaluate.
type Analyzer struct{}

// New returns a heuristic Analyzer.
func New() Analyzer { return Analyzer{} }

func (Analyzer) Analyze(ctx context.Context, input llm.Input, progress llm.ProgressFunc) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	progress.Report(10, "computing text metrics")

	ev, err := scorer.Evaluate(input.Text)
	if errors.Is(err, scorer.ErrInsufficientInput) && strings.TrimSpace(input.Context) != "" {
		ev, err = scorer.Evaluate(input.Text + "\n\n" + input.Context)
		if err != nil {
			return "", err
		}
		progress.Report(90, "formatting report")
		return contextNote + report.FormatScore(ev), nil
	}
	if err != nil {
		return "", err
	}
	progress.Report(90, "formatting report")
	return report.FormatScore(ev), nil
}

var _ llm.Analyzer = Analyzer{}
