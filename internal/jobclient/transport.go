package jobclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/oauth2"

	"aichecker-backend/internal/jobapi"
)

const maxErrorBody = 4096

// Transport carries the two phases of a job over some wire.
type Transport interface {
	Submit(ctx context.Context, req jobapi.SubmitRequest) (jobapi.SubmitResponse, error)
	Status(ctx context.Context, jobID string) (jobapi.StatusResponse, error)
}

// Prober is implemented by transports that can answer capability probes.
type Prober interface {
	Health(ctx context.Context) (jobapi.HealthResponse, error)
	Config(ctx context.Context) (jobapi.ConfigResponse, error)
}

// HTTPError is a non-2xx reply from the job service.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("http status %d", e.StatusCode)
	}
	return fmt.Sprintf("http status %d: %s", e.StatusCode, e.Message)
}

// HTTPTransport talks JSON over HTTP to the job service.
type HTTPTransport struct {
	baseURL    string
	submitPath string
	statusPath string
	healthPath string
	configPath string
	httpClient *http.Client
}

// NewHTTPTransport builds a transport for cfg. A configured token is sent as
// a bearer credential on every request.
func NewHTTPTransport(cfg Config) *HTTPTransport {
	cfg = cfg.withDefaults()
	httpClient := &http.Client{}
	if token := strings.TrimSpace(cfg.Token); token != "" {
		httpClient = oauth2.NewClient(context.Background(), oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}))
	}
	return &HTTPTransport{
		baseURL:    cfg.BaseURL,
		submitPath: cfg.SubmitPath,
		statusPath: cfg.StatusPath,
		healthPath: cfg.HealthPath,
		configPath: cfg.ConfigPath,
		httpClient: httpClient,
	}
}

// WithHTTPClient swaps the underlying client, mainly for tests.
func (t *HTTPTransport) WithHTTPClient(c *http.Client) *HTTPTransport {
	if c != nil {
		t.httpClient = c
	}
	return t
}

func (t *HTTPTransport) Submit(ctx context.Context, req jobapi.SubmitRequest) (jobapi.SubmitResponse, error) {
	var out jobapi.SubmitResponse
	err := t.do(ctx, http.MethodPost, t.submitPath, req, &out)
	return out, err
}

func (t *HTTPTransport) Status(ctx context.Context, jobID string) (jobapi.StatusResponse, error) {
	var out jobapi.StatusResponse
	path := strings.ReplaceAll(t.statusPath, "{id}", url.PathEscape(jobID))
	err := t.do(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

func (t *HTTPTransport) Health(ctx context.Context) (jobapi.HealthResponse, error) {
	var out jobapi.HealthResponse
	err := t.do(ctx, http.MethodGet, t.healthPath, nil, &out)
	return out, err
}

func (t *HTTPTransport) Config(ctx context.Context) (jobapi.ConfigResponse, error) {
	var out jobapi.ConfigResponse
	err := t.do(ctx, http.MethodGet, t.configPath, nil, &out)
	return out, err
}

func (t *HTTPTransport) do(ctx context.Context, method, path string, in any, out any) error {
	if t.baseURL == "" {
		return fmt.Errorf("job service base url is not configured")
	}
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, t.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &HTTPError{StatusCode: resp.StatusCode, Message: jobapi.ErrorMessage(raw)}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

var (
	_ Transport = (*HTTPTransport)(nil)
	_ Prober    = (*HTTPTransport)(nil)
)
