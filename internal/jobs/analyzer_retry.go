package jobs

import (
	"context"
	"errors"
	"log"
	"net"
	"strings"
	"time"

	"aichecker-backend/internal/llm"
)

const analyzerRetryBaseDelay = 300 * time.Millisecond

type retryingAnalyzer struct {
	base      llm.Analyzer
	requestID string
	jobID     string
	delay     time.Duration
}

func newRetryingAnalyzer(base llm.Analyzer, jobID, requestID string) llm.Analyzer {
	if base == nil {
		return nil
	}
	return retryingAnalyzer{
		base:      base,
		requestID: requestID,
		jobID:     jobID,
		delay:     analyzerRetryBaseDelay,
	}
}

func (r retryingAnalyzer) Analyze(ctx context.Context, input llm.Input, progress llm.ProgressFunc) (string, error) {
	out, err := r.base.Analyze(ctx, input, progress)
	if err == nil || !shouldRetryAnalyzer(err) || ctx.Err() != nil {
		return out, err
	}

	log.Printf("analyzer retry attempt=1 request_id=%s job_id=%s error=%s", r.requestID, r.jobID, sanitizeError(err))
	select {
	case <-time.After(r.delay):
	case <-ctx.Done():
		return "", ctx.Err()
	}

	return r.base.Analyze(ctx, input, progress)
}

func shouldRetryAnalyzer(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, llm.ErrNotConfigured) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "http status 5") || strings.Contains(msg, "server_error") {
		return true
	}
	if strings.Contains(msg, "request timeout") {
		return true
	}
	if strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection closed") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "tls handshake timeout") ||
		strings.Contains(msg, "eof") {
		return true
	}

	return false
}
