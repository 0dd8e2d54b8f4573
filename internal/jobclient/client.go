// Package jobclient submits analysis jobs to a remote service and polls them
// to completion with retry, backoff and cooperative cancellation.
package jobclient

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"aichecker-backend/internal/jobapi"
	"aichecker-backend/internal/shared/telemetry"
)

// Progress is reported for every non-terminal status poll.
type Progress struct {
	Percent int
	Status  string
	Message string
	Attempt int
}

// Options tune a single Analyze call.
type Options struct {
	// OnProgress is invoked synchronously from the poll loop. It is never
	// called once cancellation has been observed.
	OnProgress func(Progress)
	// Abort is checked around every wait and status fetch.
	Abort Canceller
	// Context is optional surrounding text sent with the job.
	Context string
}

// Client runs jobs against a Transport. It is safe for concurrent use; each
// Analyze call owns its own poll session.
type Client struct {
	cfg       Config
	transport Transport
	now       func() time.Time
}

// New constructs a Client. A nil transport selects HTTP against cfg.BaseURL.
func New(cfg Config, transport Transport) *Client {
	cfg = cfg.withDefaults()
	if transport == nil {
		transport = NewHTTPTransport(cfg)
	}
	return &Client{cfg: cfg, transport: transport, now: time.Now}
}

// Config returns the effective configuration.
func (c *Client) Config() Config { return c.cfg }

type pollSession struct {
	jobID               string
	attempts            int
	consecutiveFailures int
	lastStatus          string
	lastStatusTime      time.Time
}

// Analyze submits text and blocks until the job completes, fails, times out
// or is cancelled through ctx or opts.Abort.
func (c *Client) Analyze(ctx context.Context, text, purpose string, opts Options) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	aborted := abortCheck(ctx, opts.Abort)
	if aborted() {
		return "", ErrCancelled
	}
	if strings.TrimSpace(purpose) == "" {
		purpose = jobapi.DefaultPurpose
	}

	jobID, err := c.submit(ctx, jobapi.SubmitRequest{Text: text, Purpose: purpose, Context: opts.Context})
	if err != nil {
		if aborted() {
			return "", ErrCancelled
		}
		return "", err
	}
	return c.poll(ctx, jobID, opts, aborted)
}

func (c *Client) submit(ctx context.Context, req jobapi.SubmitRequest) (string, error) {
	submitCtx, cancel := context.WithTimeout(ctx, c.cfg.SubmitTimeout)
	defer cancel()

	resp, err := c.transport.Submit(submitCtx, req)
	if err != nil {
		var httpErr *HTTPError
		if errors.As(err, &httpErr) {
			return "", &SubmissionError{StatusCode: httpErr.StatusCode, Message: httpErr.Message, Err: err}
		}
		return "", &SubmissionError{Err: err}
	}
	jobID := strings.TrimSpace(resp.JobID)
	if jobID == "" {
		return "", &SubmissionError{Message: "response did not include a job id"}
	}
	return jobID, nil
}

func (c *Client) poll(ctx context.Context, jobID string, opts Options, aborted func() bool) (string, error) {
	s := &pollSession{jobID: jobID}
	for s.attempts < c.cfg.MaxAttempts {
		if aborted() {
			return "", ErrCancelled
		}
		if !c.wait(ctx, c.nextInterval(s.consecutiveFailures), aborted) {
			return "", ErrCancelled
		}

		s.attempts++
		resp, err := c.fetchStatus(ctx, jobID, aborted)
		if errors.Is(err, ErrCancelled) {
			return "", ErrCancelled
		}
		if err != nil {
			s.consecutiveFailures++
			telemetry.Warn("jobclient.poll.failed", map[string]any{
				"job_id":               jobID,
				"attempt":              s.attempts,
				"consecutive_failures": s.consecutiveFailures,
				"error":                err.Error(),
			})
			if s.consecutiveFailures >= c.cfg.MaxConsecutiveFailures {
				return "", fmt.Errorf("%w: %d consecutive status failures: %w", ErrPollingUnreliable, s.consecutiveFailures, err)
			}
			continue
		}
		s.consecutiveFailures = 0
		s.lastStatus = resp.Status
		s.lastStatusTime = c.now()

		// Cancellation requested while the fetch was in flight beats any
		// result it returned, including a completed one.
		if aborted() {
			return "", ErrCancelled
		}

		state := jobapi.Classify(resp.Status)
		if state.Terminal() {
			telemetry.Info("jobclient.poll.finished", map[string]any{
				"job_id":   jobID,
				"state":    state.String(),
				"attempts": s.attempts,
			})
		}
		switch state {
		case jobapi.StateCompleted:
			if strings.TrimSpace(resp.Result) == "" {
				return DefaultResult, nil
			}
			return resp.Result, nil
		case jobapi.StateFailed:
			return "", &RemoteJobError{JobID: jobID, Message: remoteFailureMessage(resp)}
		case jobapi.StateCancelled:
			return "", &RemoteJobError{JobID: jobID, Message: "job was cancelled by the server"}
		}

		if opts.OnProgress != nil {
			opts.OnProgress(Progress{
				Percent: clampPercent(resp.Progress),
				Status:  resp.Status,
				Message: resp.StatusMessage,
				Attempt: s.attempts,
			})
		}
	}
	return "", fmt.Errorf("%w: job %s still %q after %d status checks", ErrTimeout, jobID, s.lastStatus, s.attempts)
}

// fetchStatus makes up to StatusAttempts tries, each bounded by StatusTimeout,
// backing off exponentially between them.
func (c *Client) fetchStatus(ctx context.Context, jobID string, aborted func() bool) (jobapi.StatusResponse, error) {
	var lastErr error
	for try := 1; try <= c.cfg.StatusAttempts; try++ {
		if aborted() {
			return jobapi.StatusResponse{}, ErrCancelled
		}
		reqCtx, cancel := context.WithTimeout(ctx, c.cfg.StatusTimeout)
		resp, err := c.transport.Status(reqCtx, jobID)
		cancel()
		if err == nil && strings.TrimSpace(resp.Status) == "" {
			err = errMissingStatus
		}
		if err == nil {
			return resp, nil
		}
		if ctx.Err() != nil {
			return jobapi.StatusResponse{}, ErrCancelled
		}
		lastErr = err
		if try < c.cfg.StatusAttempts && !c.wait(ctx, c.retryDelay(try), aborted) {
			return jobapi.StatusResponse{}, ErrCancelled
		}
	}
	return jobapi.StatusResponse{}, lastErr
}

// nextInterval shortens the poll interval after failures so that recovery
// is noticed quickly, never going below the floor.
func (c *Client) nextInterval(failures int) time.Duration {
	interval := c.cfg.PollInterval
	if failures <= 0 {
		return interval
	}
	threshold := c.cfg.MaxConsecutiveFailures
	if failures > threshold {
		failures = threshold
	}
	shortened := interval * time.Duration(threshold-failures) / time.Duration(threshold)
	floor := c.cfg.MinPollInterval
	if floor > interval {
		floor = interval
	}
	if shortened < floor {
		shortened = floor
	}
	return shortened
}

func (c *Client) retryDelay(try int) time.Duration {
	delay := c.cfg.RetryBaseDelay
	for i := 1; i < try && delay < c.cfg.RetryMaxDelay; i++ {
		delay *= 2
	}
	if delay > c.cfg.RetryMaxDelay {
		delay = c.cfg.RetryMaxDelay
	}
	return delay
}

// wait sleeps for d in WaitSlice steps, returning false as soon as the
// caller aborts.
func (c *Client) wait(ctx context.Context, d time.Duration, aborted func() bool) bool {
	deadline := time.Now().Add(d)
	for {
		if aborted() {
			return false
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return true
		}
		slice := c.cfg.WaitSlice
		if remaining < slice {
			slice = remaining
		}
		timer := time.NewTimer(slice)
		select {
		case <-ctx.Done():
			timer.Stop()
			return false
		case <-timer.C:
		}
	}
}

func abortCheck(ctx context.Context, canceller Canceller) func() bool {
	return func() bool {
		if ctx.Err() != nil {
			return true
		}
		return canceller != nil && canceller.IsCancelled()
	}
}

func remoteFailureMessage(resp jobapi.StatusResponse) string {
	if msg := strings.TrimSpace(resp.Error); msg != "" {
		return msg
	}
	if msg := strings.TrimSpace(resp.StatusMessage); msg != "" {
		return msg
	}
	return "remote analysis failed without a message"
}

func clampPercent(p *int) int {
	if p == nil {
		return 0
	}
	switch {
	case *p < 0:
		return 0
	case *p > 100:
		return 100
	default:
		return *p
	}
}
