package jobs

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"aichecker-backend/internal/jobapi"
	"aichecker-backend/internal/llm"
	"aichecker-backend/internal/shared/server/middleware"
	"aichecker-backend/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the jobs service.
type Handler struct {
	Svc     *Service
	limiter *pollLimiter
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc, limiter: newPollLimiter(pollLimitWindow, nil)}
}

// RegisterRoutes attaches job routes, including the legacy /api/mcp aliases.
func (h *Handler) RegisterRoutes(r gin.IRoutes) {
	r.POST("/job", h.submit)
	r.GET("/job/:id/status", h.status)
	r.DELETE("/job/:id", h.cancel)

	r.POST("/api/mcp/analyze", h.submit)
	r.GET("/api/mcp/status/:id", h.status)
}

// IsPollRoute reports whether a matched route is a status poll.
func IsPollRoute(route string) bool {
	return route == "/job/:id/status" || route == "/api/mcp/status/:id"
}

func (h *Handler) submit(c *gin.Context) {
	var req jobapi.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid JSON body", nil)
		return
	}
	input := submitInput(req)
	if strings.TrimSpace(input.Text) == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "text is required", []map[string]string{
			{"field": "text", "issue": "required"},
		})
		return
	}

	ctx := WithRequestID(c.Request.Context(), middleware.RequestIDFromContext(c))
	job, err := h.Svc.Create(ctx, input)
	if err != nil {
		switch {
		case errors.Is(err, ErrValidation):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to start analysis", nil)
		}
		return
	}
	c.Set(middleware.JobIDKey, job.ID)
	c.Set(middleware.StatusTransitionKey, "->"+job.Status)

	respond.Accepted(c, jobapi.SubmitResponse{
		JobID:   job.ID,
		Status:  job.Status,
		Message: "Analysis started",
	})
}

// submitInput folds the legacy sentence form into a single text with the
// paragraph as context.
func submitInput(req jobapi.SubmitRequest) llm.Input {
	input := llm.Input{Text: req.Text, Purpose: req.Purpose, Context: req.Context}
	if strings.TrimSpace(input.Text) == "" && strings.TrimSpace(req.Sentence) != "" {
		input.Text = fmt.Sprintf("Analyze this sentence: \"%s\"", strings.TrimSpace(req.Sentence))
		if strings.TrimSpace(input.Context) == "" {
			input.Context = req.Paragraph
		}
	}
	return input
}

func (h *Handler) status(c *gin.Context) {
	jobID := c.Param("id")
	c.Set(middleware.JobIDKey, jobID)
	if !h.limiter.Allow(c.ClientIP(), jobID) {
		retryAfter := h.limiter.RetryAfterSeconds()
		c.Header("Retry-After", strconv.Itoa(retryAfter))
		respond.Error(c, http.StatusTooManyRequests, "rate_limited", "status polled too frequently", []map[string]string{
			{"field": "retryAfterSeconds", "issue": strconv.Itoa(retryAfter)},
		})
		return
	}

	job, err := h.Svc.Get(c.Request.Context(), jobID)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound), errors.Is(err, ErrValidation):
			respond.Error(c, http.StatusNotFound, "not_found", "Job not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch job", nil)
		}
		return
	}

	respond.JSON(c, http.StatusOK, job.StatusResponse())
}

func (h *Handler) cancel(c *gin.Context) {
	jobID := c.Param("id")
	c.Set(middleware.JobIDKey, jobID)

	ctx := WithRequestID(c.Request.Context(), middleware.RequestIDFromContext(c))
	job, err := h.Svc.Cancel(ctx, jobID)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound), errors.Is(err, ErrValidation):
			respond.Error(c, http.StatusNotFound, "not_found", "Job not found", nil)
		case errors.Is(err, ErrJobFinished):
			respond.Error(c, http.StatusConflict, "job_finished", "job already finished with status "+job.Status, nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to cancel job", nil)
		}
		return
	}
	c.Set(middleware.StatusTransitionKey, "->"+StatusCancelled)

	respond.JSON(c, http.StatusOK, job.StatusResponse())
}
