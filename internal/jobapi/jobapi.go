// Package jobapi holds the wire contract shared by the job service and its clients.
package jobapi

import (
	"encoding/json"
	"strings"
	"time"
)

// Status values written by the job service.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
	StatusCancelled  = "cancelled"
)

// DefaultPurpose is used when a submission omits one.
const DefaultPurpose = "AI detection for content analysis"

// State is the client-side classification of a remote status string.
type State int

const (
	StateRunning State = iota
	StateCompleted
	StateFailed
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	case StateCancelled:
		return "cancelled"
	default:
		return "running"
	}
}

// Terminal reports whether no further status changes are expected.
func (s State) Terminal() bool {
	return s != StateRunning
}

// Classify maps a status tag to a State. Unknown tags are treated as running.
func Classify(status string) State {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "completed", "done", "success":
		return StateCompleted
	case "failed", "error":
		return StateFailed
	case "cancelled", "canceled":
		return StateCancelled
	default:
		return StateRunning
	}
}

// SubmitRequest starts a job. Sentence and Paragraph are the legacy
// per-sentence form and are folded into Text by the server.
type SubmitRequest struct {
	Text      string `json:"text,omitempty"`
	Purpose   string `json:"purpose,omitempty"`
	Context   string `json:"context,omitempty"`
	Sentence  string `json:"sentence,omitempty"`
	Paragraph string `json:"paragraph,omitempty"`
}

// SubmitResponse acknowledges a job.
type SubmitResponse struct {
	JobID   string `json:"job_id"`
	Status  string `json:"status,omitempty"`
	Message string `json:"message,omitempty"`
}

// StatusResponse is one poll of a job.
type StatusResponse struct {
	JobID         string     `json:"job_id"`
	Status        string     `json:"status"`
	Progress      *int       `json:"progress,omitempty"`
	StatusMessage string     `json:"status_message,omitempty"`
	Result        string     `json:"result,omitempty"`
	Error         string     `json:"error,omitempty"`
	CreatedAt     *time.Time `json:"created_at,omitempty"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
}

// HealthResponse is served at /health.
type HealthResponse struct {
	Status             string    `json:"status"`
	AnalyzerConfigured bool      `json:"analyzer_configured"`
	Timestamp          time.Time `json:"timestamp"`
}

// ConfigResponse is served at /config.
type ConfigResponse struct {
	Configured    bool   `json:"configured"`
	BaseURL       string `json:"base_url,omitempty"`
	Provider      string `json:"provider,omitempty"`
	Model         string `json:"model,omitempty"`
	RemoteEnabled bool   `json:"remote_enabled"`
}

// ErrorMessage extracts a human-readable message from an error body. It
// understands {"error":"msg"}, {"error":{"message":"msg"}} and {"message":"msg"}.
func ErrorMessage(body []byte) string {
	var envelope struct {
		Error   json.RawMessage `json:"error"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return strings.TrimSpace(string(body))
	}
	if len(envelope.Error) > 0 {
		var plain string
		if err := json.Unmarshal(envelope.Error, &plain); err == nil && plain != "" {
			return plain
		}
		var nested struct {
			Message string `json:"message"`
			Code    string `json:"code"`
		}
		if err := json.Unmarshal(envelope.Error, &nested); err == nil {
			if nested.Message != "" {
				return nested.Message
			}
			if nested.Code != "" {
				return nested.Code
			}
		}
	}
	return envelope.Message
}
