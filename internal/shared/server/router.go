package server

import (
	"github.com/gin-gonic/gin"

	"aichecker-backend/internal/jobs"
	"aichecker-backend/internal/services/health"
	"aichecker-backend/internal/shared/config"
	"aichecker-backend/internal/shared/metrics"
	"aichecker-backend/internal/shared/server/middleware"
)

const pollingRateLimitGroup = "POLLING"

// RouterDeps lists the handlers the router serves.
type RouterDeps struct {
	Config      config.Config
	JobHandler  *jobs.Handler
	Health      *health.Service
	RateLimiter *middleware.RateLimiter
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Config.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	cfg := deps.Config

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(cfg.CORSAllowOrigin),
		middleware.RateLimit(middleware.RateLimitConfig{
			Rules: map[string]middleware.RateLimitRule{
				pollingRateLimitGroup: {Rate: cfg.RateLimitPolling.RPS, Burst: cfg.RateLimitPolling.Burst},
				"DEFAULT":             {Rate: cfg.RateLimitDefault.RPS, Burst: cfg.RateLimitDefault.Burst},
			},
			DefaultGroup: "DEFAULT",
			GroupFor:     rateLimitGroup,
			Limiter:      deps.RateLimiter,
		}),
		middleware.BearerToken(cfg.APIToken, "/health", "/metrics", "/config", "/api/config"),
	)

	r.GET("/metrics", metrics.Handler())
	if deps.Health != nil {
		deps.Health.RegisterRoutes(r)
	}
	if deps.JobHandler != nil {
		deps.JobHandler.RegisterRoutes(r)
	}

	return r
}

func rateLimitGroup(c *gin.Context) string {
	if jobs.IsPollRoute(c.FullPath()) {
		return pollingRateLimitGroup
	}
	return ""
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
