// Package health serves liveness and public configuration payloads.
package health

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"aichecker-backend/internal/jobapi"
	"aichecker-backend/internal/shared/server/respond"
)

// Service encapsulates health-related checks.
type Service struct {
	Provider      string
	Model         string
	BaseURL       string
	RemoteEnabled bool
	now           func() time.Time
}

// NewService constructs a new health service. Any provider other than the
// built-in heuristic one calls a remote model.
func NewService(provider, model, baseURL string) *Service {
	provider = strings.TrimSpace(provider)
	return &Service{
		Provider:      provider,
		Model:         model,
		BaseURL:       baseURL,
		RemoteEnabled: provider != "" && provider != "heuristic",
		now:           time.Now,
	}
}

// Configured reports whether an analyzer is available.
func (s *Service) Configured() bool {
	return strings.TrimSpace(s.Provider) != ""
}

// Status returns the /health payload.
func (s *Service) Status() jobapi.HealthResponse {
	return jobapi.HealthResponse{
		Status:             "ok",
		AnalyzerConfigured: s.Configured(),
		Timestamp:          s.now().UTC(),
	}
}

// Config returns the /config payload.
func (s *Service) Config() jobapi.ConfigResponse {
	return jobapi.ConfigResponse{
		Configured:    s.Configured(),
		BaseURL:       s.BaseURL,
		Provider:      s.Provider,
		Model:         s.Model,
		RemoteEnabled: s.RemoteEnabled,
	}
}

// RegisterRoutes attaches /health, /config and /api/config.
func (s *Service) RegisterRoutes(r gin.IRoutes) {
	r.GET("/health", func(c *gin.Context) {
		respond.JSON(c, http.StatusOK, s.Status())
	})
	configHandler := func(c *gin.Context) {
		respond.JSON(c, http.StatusOK, s.Config())
	}
	r.GET("/config", configHandler)
	r.GET("/api/config", configHandler)
}
