package respond

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"aichecker-backend/internal/shared/telemetry"
)

func TestErrorWritesEnvelopeAndLogs(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name      string
		status    int
		code      string
		wantLevel string
	}{
		{name: "client error", status: http.StatusNotFound, code: "not_found", wantLevel: "warn"},
		{name: "server error", status: http.StatusInternalServerError, code: "internal_error", wantLevel: "error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var logs bytes.Buffer
			telemetry.SetOutput(&logs)
			t.Cleanup(func() { telemetry.SetOutput(nil) })

			router := gin.New()
			router.GET("/job/:id/status", func(c *gin.Context) {
				c.Set("requestId", "req-7")
				c.Set("jobId", c.Param("id"))
				Error(c, tt.status, tt.code, "something happened", nil)
			})

			resp := httptest.NewRecorder()
			router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/job/abc/status", nil))

			if resp.Code != tt.status {
				t.Fatalf("expected %d, got %d", tt.status, resp.Code)
			}
			var body ErrorResponse
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Error.Code != tt.code || body.Error.Message != "something happened" || body.Error.RequestID != "req-7" {
				t.Fatalf("unexpected body %+v", body)
			}

			var entry map[string]any
			if err := json.Unmarshal(bytes.TrimSpace(logs.Bytes()), &entry); err != nil {
				t.Fatalf("decode log: %v", err)
			}
			if entry["msg"] != "http.error" || entry["job_id"] != "abc" || entry["level"] != tt.wantLevel {
				t.Fatalf("unexpected log entry %v", entry)
			}
		})
	}
}

func TestAcceptedIsUncacheable(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/job", func(c *gin.Context) {
		Accepted(c, map[string]string{"job_id": "j1"})
	})

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/job", nil))

	if resp.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", resp.Code)
	}
	if got := resp.Header().Get("Cache-Control"); got != "no-store" {
		t.Fatalf("expected no-store, got %q", got)
	}
	var body map[string]string
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil || body["job_id"] != "j1" {
		t.Fatalf("unexpected body %s (%v)", resp.Body.String(), err)
	}
}
