package metrics

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestHistogramBucketsAreCumulative(t *testing.T) {
	h := newHistogram([]float64{10, 100})
	h.Observe(5)
	h.Observe(50)
	h.Observe(500)

	snap := h.Snapshot()
	if snap.count != 3 || snap.sum != 555 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}

	var buf bytes.Buffer
	writeHistogram(&buf, "x", "test histogram", snap)
	for _, want := range []string{
		`x_bucket{le="10"} 1`,
		`x_bucket{le="100"} 2`,
		`x_bucket{le="+Inf"} 3`,
		"x_sum 555",
		"x_count 3",
	} {
		if !strings.Contains(buf.String(), want) {
			t.Fatalf("expected %q in:\n%s", want, buf.String())
		}
	}
}

func TestHandlerRendersJobCounters(t *testing.T) {
	gin.SetMode(gin.TestMode)
	IncJobStarted()
	IncJobCompleted()
	IncJobCancelled()
	ObserveJobDurationMs(-5)

	r := gin.New()
	r.GET("/metrics", Handler())
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if ct := resp.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Fatalf("unexpected content type %q", ct)
	}
	body := resp.Body.String()
	for _, name := range []string{"job_started_total", "job_completed_total", "job_failed_total", "job_cancelled_total", "worker_jobs_received_total", "job_duration_ms_count"} {
		if !strings.Contains(body, name) {
			t.Fatalf("expected %s in metrics output", name)
		}
	}
}

func TestRateLimitedCounterIsLabelled(t *testing.T) {
	IncRateLimited("POLLING")
	IncRateLimited("polling")
	IncRateLimited("DEFAULT")

	out := Render()
	for _, want := range []string{
		"# TYPE http_rate_limited_total counter",
		`http_rate_limited_total{group="default"} 1`,
		`http_rate_limited_total{group="polling"} 2`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in:\n%s", want, out)
		}
	}
	if strings.Index(out, `group="default"`) > strings.Index(out, `group="polling"`) {
		t.Fatalf("expected labels in sorted order")
	}
}
