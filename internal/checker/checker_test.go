package checker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"aichecker-backend/internal/heuristic"
	"aichecker-backend/internal/jobapi"
	"aichecker-backend/internal/jobclient"
)

const humanText = "I walked to the market today, and honestly? The apples were awful! " +
	"My neighbour laughed at me when I complained about them."

// scriptedTransport answers by job text: texts containing "fail" fail
// remotely, "slow" never finishes, "reject" is refused at submission and
// anything else completes with an echo of the text.
type scriptedTransport struct {
	mu       sync.Mutex
	jobs     map[string]jobapi.SubmitRequest
	next     int
	polling  chan string
	health   jobapi.HealthResponse
	config   jobapi.ConfigResponse
	probeErr error
}

func newScripted() *scriptedTransport {
	return &scriptedTransport{
		jobs:    map[string]jobapi.SubmitRequest{},
		polling: make(chan string, 64),
		health:  jobapi.HealthResponse{Status: "ok", AnalyzerConfigured: true},
		config:  jobapi.ConfigResponse{Configured: true, Provider: "heuristic"},
	}
}

func (s *scriptedTransport) Submit(ctx context.Context, req jobapi.SubmitRequest) (jobapi.SubmitResponse, error) {
	if strings.Contains(req.Text, "reject") {
		return jobapi.SubmitResponse{}, &jobclient.HTTPError{StatusCode: 503, Message: "busy"}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	id := fmt.Sprintf("job-%d", s.next)
	s.jobs[id] = req
	return jobapi.SubmitResponse{JobID: id, Status: "processing"}, nil
}

func (s *scriptedTransport) Status(ctx context.Context, jobID string) (jobapi.StatusResponse, error) {
	s.mu.Lock()
	req := s.jobs[jobID]
	s.mu.Unlock()

	select {
	case s.polling <- req.Text:
	default:
	}
	progress := 50
	switch {
	case strings.Contains(req.Text, "slow"):
		return jobapi.StatusResponse{JobID: jobID, Status: "processing", Progress: &progress}, nil
	case strings.Contains(req.Text, "fail"):
		return jobapi.StatusResponse{JobID: jobID, Status: "failed", Error: "analyzer crashed"}, nil
	default:
		return jobapi.StatusResponse{JobID: jobID, Status: "completed", Result: "VERDICT for " + req.Text}, nil
	}
}

func (s *scriptedTransport) Health(ctx context.Context) (jobapi.HealthResponse, error) {
	return s.health, s.probeErr
}

func (s *scriptedTransport) Config(ctx context.Context) (jobapi.ConfigResponse, error) {
	return s.config, s.probeErr
}

func (s *scriptedTransport) submittedContexts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, req := range s.jobs {
		out = append(out, req.Context)
	}
	return out
}

func testConfig(transport jobclient.Transport) Config {
	return Config{
		Client: jobclient.Config{
			BaseURL:         "http://checker.test",
			PollInterval:    time.Millisecond,
			MinPollInterval: time.Millisecond,
			WaitSlice:       time.Millisecond,
			RetryBaseDelay:  time.Millisecond,
			RetryMaxDelay:   time.Millisecond,
			StatusTimeout:   time.Second,
			MaxAttempts:     50,
		},
		Transport: transport,
	}
}

func TestEvaluateLocally(t *testing.T) {
	c := New(testConfig(newScripted()))

	if _, err := c.EvaluateLocally("   "); !errors.Is(err, ErrEmptyInput) {
		t.Fatalf("expected ErrEmptyInput, got %v", err)
	}
	if _, err := c.EvaluateLocally("too short to judge"); !errors.Is(err, heuristic.ErrInsufficientInput) {
		t.Fatalf("expected ErrInsufficientInput, got %v", err)
	}
	out, err := c.EvaluateLocally(humanText)
	if err != nil {
		t.Fatalf("EvaluateLocally: %v", err)
	}
	if !strings.Contains(out, "VERDICT:") || !strings.HasSuffix(out, "Note: This is a local heuristic-based analysis.") {
		t.Fatalf("unexpected report:\n%s", out)
	}
}

func TestConnect(t *testing.T) {
	transport := newScripted()
	c := New(testConfig(transport))
	if c.Connected() {
		t.Fatalf("checker must start disconnected")
	}
	if caps := c.Connect(context.Background()); !caps.Connected || !c.Connected() {
		t.Fatalf("expected connected, got %+v", caps)
	}

	transport.probeErr = errors.New("dial tcp: refused")
	c.Connect(context.Background())
	if c.Connected() {
		t.Fatalf("failed probe must leave the checker disconnected")
	}
}

func TestConnectWithoutBaseURL(t *testing.T) {
	cfg := testConfig(newScripted())
	cfg.Client.BaseURL = ""
	c := New(cfg)
	caps := c.Connect(context.Background())
	if caps.Connected || !errors.Is(caps.Err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %+v", caps)
	}
	if _, err := c.AnalyzeRemotely(context.Background(), "hello", "", Options{}); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestAnalyzeRemotely(t *testing.T) {
	c := New(testConfig(newScripted()))
	out, err := c.AnalyzeRemotely(context.Background(), "  some text  ", "", Options{})
	if err != nil {
		t.Fatalf("AnalyzeRemotely: %v", err)
	}
	if out != "VERDICT for some text" {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestNewerRequestCancelsOlder(t *testing.T) {
	transport := newScripted()
	cfg := testConfig(transport)
	cfg.Client.MaxAttempts = 1_000_000
	c := New(cfg)

	type outcome struct {
		out string
		err error
	}
	first := make(chan outcome, 1)
	go func() {
		out, err := c.AnalyzeRemotely(context.Background(), "slow request", "", Options{})
		first <- outcome{out, err}
	}()

	for text := range transport.polling {
		if text == "slow request" {
			break
		}
	}

	out, err := c.AnalyzeRemotely(context.Background(), "quick request", "", Options{})
	if err != nil || out != "VERDICT for quick request" {
		t.Fatalf("second request: out=%q err=%v", out, err)
	}

	select {
	case got := <-first:
		if !errors.Is(got.err, jobclient.ErrCancelled) || got.out != "" {
			t.Fatalf("superseded request should be cancelled, got %+v", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("superseded request did not stop")
	}
}

func TestResetDuringProgressIsSilent(t *testing.T) {
	c := New(testConfig(newScripted()))
	calls := 0
	_, err := c.AnalyzeRemotely(context.Background(), "slow again", "", Options{
		OnProgress: func(jobclient.Progress) {
			calls++
			c.Reset()
		},
	})
	if !IsSilent(err) {
		t.Fatalf("expected silent cancellation, got %v", err)
	}
	if UserMessage(err) != "" {
		t.Fatalf("cancellation must not produce a message")
	}
	if calls != 1 {
		t.Fatalf("expected one progress update, got %d", calls)
	}
}

func TestAnalyzeSentences(t *testing.T) {
	for _, limit := range []int{1, 3} {
		limit := limit
		t.Run(fmt.Sprintf("limit %d", limit), func(t *testing.T) {
			transport := newScripted()
			cfg := testConfig(transport)
			cfg.SentenceConcurrency = limit
			c := New(cfg)

			paragraph := "First sentence here. Then this one will fail. Last one is fine."
			var mu sync.Mutex
			var seen []SentenceProgress
			out, err := c.AnalyzeSentences(context.Background(), paragraph, "", Options{
				OnSentence: func(p SentenceProgress) {
					mu.Lock()
					seen = append(seen, p)
					mu.Unlock()
				},
			})
			if err != nil {
				t.Fatalf("AnalyzeSentences: %v", err)
			}

			for _, want := range []string{
				"(Sentence-by-Sentence Analysis - 3 sentence(s))",
				"[Sentence 1/3]\n\"First sentence here.\"\n\nVERDICT for First sentence here.",
				"[Sentence 2/3]\n\"Then this one will fail.\"\n\nError: analyzer crashed",
				"[Sentence 3/3]\n\"Last one is fine.\"\n\nVERDICT for Last one is fine.",
				"Total Sentences: 3\nSuccessfully Analyzed: 2\nFailed: 1\n",
			} {
				if !strings.Contains(out, want) {
					t.Fatalf("expected %q in:\n%s", want, out)
				}
			}
			if len(seen) != 3 || seen[len(seen)-1].Done != 3 {
				t.Fatalf("unexpected sentence progress %+v", seen)
			}
			for _, ctx := range transport.submittedContexts() {
				if ctx != paragraph {
					t.Fatalf("each sentence should carry the paragraph as context, got %q", ctx)
				}
			}
		})
	}
}

func TestAnalyzeSentencesCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	c := New(testConfig(newScripted()))
	_, err := c.AnalyzeSentences(ctx, "One is slow here. Two is fine.", "", Options{
		OnProgress: func(jobclient.Progress) { cancel() },
	})
	if !IsSilent(err) {
		t.Fatalf("expected silent cancellation, got %v", err)
	}
}

func TestAnalyzeFallbackPolicy(t *testing.T) {
	t.Run("disconnected falls back", func(t *testing.T) {
		c := New(testConfig(newScripted()))
		res, err := c.Analyze(context.Background(), humanText, "", FallbackToLocal, Options{})
		if err != nil {
			t.Fatalf("Analyze: %v", err)
		}
		if res.Source != SourceFallback || !strings.HasPrefix(res.Text, "LOCAL HEURISTIC FALLBACK\nRemote analyzer is not connected.") {
			t.Fatalf("unexpected fallback %+v", res)
		}
	})

	t.Run("disconnected without fallback", func(t *testing.T) {
		c := New(testConfig(newScripted()))
		if _, err := c.Analyze(context.Background(), humanText, "", FallbackNever, Options{}); !errors.Is(err, ErrNotConnected) {
			t.Fatalf("expected ErrNotConnected, got %v", err)
		}
	})

	t.Run("remote success", func(t *testing.T) {
		c := New(testConfig(newScripted()))
		c.Connect(context.Background())
		res, err := c.Analyze(context.Background(), humanText, "", FallbackToLocal, Options{})
		if err != nil || res.Source != SourceRemote {
			t.Fatalf("expected remote result, got %+v err=%v", res, err)
		}
	})

	t.Run("remote failure falls back with reason", func(t *testing.T) {
		c := New(testConfig(newScripted()))
		c.Connect(context.Background())
		text := humanText + " This should fail."
		res, err := c.Analyze(context.Background(), text, "", FallbackToLocal, Options{})
		if err != nil {
			t.Fatalf("Analyze: %v", err)
		}
		want := "LOCAL HEURISTIC FALLBACK\nRemote analysis failed: analyzer crashed. Using local heuristic analysis.\n"
		if !strings.HasPrefix(res.Text, want) {
			t.Fatalf("unexpected fallback text:\n%s", res.Text)
		}
	})

	t.Run("remote failure without fallback", func(t *testing.T) {
		c := New(testConfig(newScripted()))
		c.Connect(context.Background())
		_, err := c.Analyze(context.Background(), humanText+" reject", "", FallbackNever, Options{})
		if !errors.Is(err, jobclient.ErrSubmission) {
			t.Fatalf("expected ErrSubmission, got %v", err)
		}
	})
}

func TestReconfigureDropsConnection(t *testing.T) {
	c := New(testConfig(newScripted()))
	c.Connect(context.Background())
	c.Reconfigure(testConfig(newScripted()))
	if c.Connected() {
		t.Fatalf("reconfigure must require a new Connect")
	}
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "nil", err: nil, want: ""},
		{name: "cancelled", err: fmt.Errorf("wrapped: %w", jobclient.ErrCancelled), want: ""},
		{name: "short", err: heuristic.ErrInsufficientInput, want: "Text must contain at least 10 words for analysis."},
		{name: "remote", err: &jobclient.RemoteJobError{JobID: "x", Message: "model overloaded"}, want: "model overloaded"},
		{name: "timeout", err: jobclient.ErrTimeout, want: "The analysis is taking longer than expected. Please try again."},
		{name: "other", err: errors.New("boom"), want: "boom"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got := UserMessage(tt.err); got != tt.want {
				t.Fatalf("UserMessage() = %q, want %q", got, tt.want)
			}
		})
	}
}
