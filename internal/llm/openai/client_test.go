package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"aichecker-backend/internal/llm"
)

func TestIsGPT5(t *testing.T) {
	tests := []struct {
		name  string
		model string
		want  bool
	}{
		{name: "gpt5", model: "gpt-5", want: true},
		{name: "gpt5 variant", model: "gpt-5-mini", want: true},
		{name: "gpt5 uppercase", model: " GPT-5o ", want: true},
		{name: "gpt4", model: "gpt-4o", want: false},
		{name: "empty", model: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isGPT5(tt.model); got != tt.want {
				t.Fatalf("isGPT5(%q) = %v, want %v", tt.model, got, tt.want)
			}
		})
	}
}

func withServer(t *testing.T, h http.HandlerFunc) {
	t.Helper()
	srv := httptest.NewServer(h)
	prev := apiURL
	apiURL = srv.URL
	t.Cleanup(func() {
		apiURL = prev
		srv.Close()
	})
}

func TestNewAnalyzerRequiresModelAndKey(t *testing.T) {
	if _, err := NewAnalyzer("key", ""); err == nil {
		t.Fatalf("expected error without model")
	}
	if _, err := NewAnalyzer("sk", " "); err == nil {
		t.Fatalf("expected error with blank model")
	}
	if _, err := NewAnalyzer("", "gpt-4o-mini"); err == nil {
		t.Fatalf("expected error without key")
	}
}

func TestAnalyzeSendsPromptAndReturnsContent(t *testing.T) {
	var got chatRequest
	withServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			t.Errorf("unexpected auth header %q", r.Header.Get("Authorization"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":" VERDICT: LIKELY HUMAN-WRITTEN "}}],"usage":{"prompt_tokens":10,"completion_tokens":5,"total_tokens":15}}`))
	})

	a, err := NewAnalyzer("sk-test", "gpt-4o-mini")
	if err != nil {
		t.Fatalf("NewAnalyzer: %v", err)
	}
	var reported []int
	out, err := a.Analyze(context.Background(), llm.Input{Text: "Some text to check.", Purpose: "essay review"}, func(p int, _ string) {
		reported = append(reported, p)
	})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if out != "VERDICT: LIKELY HUMAN-WRITTEN" {
		t.Fatalf("unexpected content %q", out)
	}
	if got.Model != "gpt-4o-mini" || got.Temperature == nil || *got.Temperature != 0 {
		t.Fatalf("unexpected request: %+v", got)
	}
	if len(got.Messages) != 2 || !strings.Contains(got.Messages[1].Content, "Some text to check.") {
		t.Fatalf("unexpected messages: %+v", got.Messages)
	}
	if len(reported) != 2 || reported[0] != 10 || reported[1] != 90 {
		t.Fatalf("unexpected progress %v", reported)
	}
}

func TestAnalyzeOmitsTemperatureForGPT5(t *testing.T) {
	var raw map[string]any
	withServer(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&raw)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"VERDICT: LIKELY AI-GENERATED"}}]}`))
	})

	a, _ := NewAnalyzer("sk-test", "gpt-5-mini")
	if _, err := a.Analyze(context.Background(), llm.Input{Text: "x"}, nil); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if _, ok := raw["temperature"]; ok {
		t.Fatalf("expected no temperature for gpt-5, got %v", raw["temperature"])
	}
}

func TestAnalyzeErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{name: "api error", status: http.StatusBadRequest, body: `{"error":{"message":"bad key","type":"invalid_request_error"}}`, wantErr: "bad key"},
		{name: "rate limited", status: http.StatusTooManyRequests, body: `{"error":{"message":"slow down","type":"rate_limit"}}`, wantErr: "openai error: http status 429: slow down"},
		{name: "server error html", status: http.StatusBadGateway, body: `<html>bad gateway</html>`, wantErr: "openai http status 502"},
		{name: "no choices", status: http.StatusOK, body: `{"choices":[]}`, wantErr: "missing choices"},
		{name: "empty content", status: http.StatusOK, body: `{"choices":[{"message":{"content":"  "}}]}`, wantErr: "empty content"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			a, _ := NewAnalyzer("sk-test", "gpt-4o-mini")
			_, err := a.Analyze(context.Background(), llm.Input{Text: "x"}, nil)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}
