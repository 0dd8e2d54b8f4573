// Package checker drives local and remote AI-text analysis for a single user
// surface. Only the newest request may publish a result.
package checker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"aichecker-backend/internal/heuristic"
	"aichecker-backend/internal/jobclient"
	"aichecker-backend/internal/report"
	"aichecker-backend/internal/sentences"
	"aichecker-backend/internal/shared/telemetry"
)

// DefaultSentenceConcurrency keeps sentence jobs sequential.
const DefaultSentenceConcurrency = 1

// Config configures a Checker.
type Config struct {
	Client jobclient.Config
	// Transport overrides HTTP, mainly for tests.
	Transport           jobclient.Transport
	SentenceConcurrency int
}

// FallbackPolicy decides what Analyze does when remote analysis is unavailable.
type FallbackPolicy int

const (
	// FallbackNever surfaces remote errors as they are.
	FallbackNever FallbackPolicy = iota
	// FallbackToLocal runs the heuristic scorer, labelled, when the remote
	// path is disconnected or fails.
	FallbackToLocal
)

// Source tells where a Result came from.
type Source string

const (
	SourceRemote   Source = "remote"
	SourceFallback Source = "fallback"
)

// Result is a rendered report.
type Result struct {
	Text   string
	Source Source
}

// SentenceProgress is reported as each sentence finishes.
type SentenceProgress struct {
	Index int
	Done  int
	Total int
	Err   error
}

// Options are per-call hooks. Callbacks are serialized and stop once the
// call's session is superseded.
type Options struct {
	OnProgress func(jobclient.Progress)
	OnSentence func(SentenceProgress)
}

// Checker is safe for concurrent use.
type Checker struct {
	mu          sync.RWMutex
	client      *jobclient.Client
	caps        jobclient.Capabilities
	concurrency int

	coordinator jobclient.Coordinator
}

// New builds a Checker. It is not connected until Connect succeeds.
func New(cfg Config) *Checker {
	c := &Checker{}
	c.apply(cfg)
	return c
}

func (c *Checker) apply(cfg Config) {
	c.client = jobclient.New(cfg.Client, cfg.Transport)
	c.caps = jobclient.Capabilities{}
	c.concurrency = cfg.SentenceConcurrency
	if c.concurrency <= 0 {
		c.concurrency = DefaultSentenceConcurrency
	}
}

// Reconfigure replaces the client and drops the connection state. Any
// in-flight analysis is cancelled.
func (c *Checker) Reconfigure(cfg Config) {
	c.coordinator.Reset()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.apply(cfg)
}

// Connect probes the remote analyzer and records whether it is usable.
func (c *Checker) Connect(ctx context.Context) jobclient.Capabilities {
	client := c.currentClient()
	var caps jobclient.Capabilities
	if client.Config().BaseURL == "" {
		caps = jobclient.Capabilities{Err: ErrNotConfigured}
	} else {
		caps = client.Probe(ctx)
	}

	fields := map[string]any{"connected": caps.Connected, "base_url": client.Config().BaseURL}
	if caps.Err != nil {
		fields["error"] = caps.Err.Error()
	}
	telemetry.Info("checker.connect", fields)

	c.mu.Lock()
	c.caps = caps
	c.mu.Unlock()
	return caps
}

// Connected reports the outcome of the last Connect.
func (c *Checker) Connected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.caps.Connected
}

// Reset cancels whatever analysis currently owns the output.
func (c *Checker) Reset() {
	c.coordinator.Reset()
}

func (c *Checker) currentClient() *jobclient.Client {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.client
}

// EvaluateLocally scores text with the heuristic scorer.
func (c *Checker) EvaluateLocally(text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyInput
	}
	ev, err := heuristic.Evaluate(text)
	if err != nil {
		return "", err
	}
	return report.FormatScore(ev), nil
}

// AnalyzeRemotely submits text as one job. Starting it cancels any earlier
// analysis, and a superseded call returns jobclient.ErrCancelled.
func (c *Checker) AnalyzeRemotely(ctx context.Context, text, purpose string, opts Options) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyInput
	}
	client := c.currentClient()
	if client.Config().BaseURL == "" {
		return "", ErrNotConfigured
	}

	session := c.coordinator.Begin()
	result, err := client.Analyze(ctx, text, purpose, jobclient.Options{
		Abort:      session,
		OnProgress: guardProgress(session, opts.OnProgress),
	})
	if !session.Current() {
		return "", jobclient.ErrCancelled
	}
	if err != nil {
		return "", err
	}
	return report.FormatRemote(result), nil
}

// AnalyzeSentences splits paragraph and analyzes each sentence as its own
// job with the paragraph as context. Per-sentence failures are reported in
// the aggregate. Cancellation aborts the whole run.
func (c *Checker) AnalyzeSentences(ctx context.Context, paragraph, purpose string, opts Options) (string, error) {
	paragraph = strings.TrimSpace(paragraph)
	if paragraph == "" {
		return "", ErrEmptyInput
	}
	client := c.currentClient()
	if client.Config().BaseURL == "" {
		return "", ErrNotConfigured
	}
	list := sentences.Split(paragraph)
	total := len(list)

	c.mu.RLock()
	limit := c.concurrency
	c.mu.RUnlock()

	session := c.coordinator.Begin()
	items := make([]report.Item, total)

	var progressMu sync.Mutex
	done := 0
	onProgress := guardProgress(session, opts.OnProgress)

	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(limit)
	for i, sentence := range list {
		i, sentence := i, sentence
		eg.Go(func() error {
			if session.IsCancelled() {
				return jobclient.ErrCancelled
			}
			result, err := client.Analyze(gctx, sentence, purpose, jobclient.Options{
				Abort:      session,
				Context:    paragraph,
				OnProgress: onProgress,
			})
			if errors.Is(err, jobclient.ErrCancelled) {
				return err
			}
			items[i] = report.Item{Index: i + 1, Sentence: sentence, Result: result, Err: err}
			if err != nil {
				telemetry.Warn("checker.sentence.failed", map[string]any{
					"index": i + 1,
					"total": total,
					"error": err.Error(),
				})
			}

			progressMu.Lock()
			defer progressMu.Unlock()
			done++
			if opts.OnSentence != nil && session.Current() {
				opts.OnSentence(SentenceProgress{Index: i + 1, Done: done, Total: total, Err: err})
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil || !session.Current() {
		return "", jobclient.ErrCancelled
	}
	return report.FormatAggregated(items, total), nil
}

// Analyze runs remote analysis and, when policy allows, falls back to the
// labelled local report.
func (c *Checker) Analyze(ctx context.Context, text, purpose string, policy FallbackPolicy, opts Options) (Result, error) {
	if strings.TrimSpace(text) == "" {
		return Result{}, ErrEmptyInput
	}
	if !c.Connected() {
		if policy != FallbackToLocal {
			return Result{}, ErrNotConnected
		}
		return c.fallback(text, "Remote analyzer is not connected. Using local heuristic analysis.", ErrNotConnected)
	}

	out, err := c.AnalyzeRemotely(ctx, text, purpose, opts)
	if err == nil {
		return Result{Text: out, Source: SourceRemote}, nil
	}
	if IsSilent(err) || policy != FallbackToLocal {
		return Result{}, err
	}
	reason := fmt.Sprintf("Remote analysis failed: %s Using local heuristic analysis.", withPeriod(UserMessage(err)))
	return c.fallback(text, reason, err)
}

func (c *Checker) fallback(text, reason string, cause error) (Result, error) {
	ev, err := heuristic.Evaluate(text)
	if err != nil {
		// Nothing to fall back to; the remote cause is more useful.
		return Result{}, cause
	}
	telemetry.Info("checker.fallback", map[string]any{"reason": cause.Error()})
	return Result{Text: report.FormatFallback(reason, ev), Source: SourceFallback}, nil
}

func guardProgress(session *jobclient.Session, fn func(jobclient.Progress)) func(jobclient.Progress) {
	if fn == nil {
		return nil
	}
	var mu sync.Mutex
	return func(p jobclient.Progress) {
		mu.Lock()
		defer mu.Unlock()
		if session.Current() {
			fn(p)
		}
	}
}

func withPeriod(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || strings.HasSuffix(s, ".") {
		return s
	}
	return s + "."
}
