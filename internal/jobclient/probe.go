package jobclient

import (
	"context"
	"errors"
	"strings"

	"aichecker-backend/internal/jobapi"
)

// Capabilities is the outcome of a startup probe.
type Capabilities struct {
	Connected bool
	Health    jobapi.HealthResponse
	Config    jobapi.ConfigResponse
	Err       error
}

// Probe asks the service for /health and /config. Any failure, or a service
// that reports itself unconfigured, leaves Connected false.
func (c *Client) Probe(ctx context.Context) Capabilities {
	prober, ok := c.transport.(Prober)
	if !ok {
		return Capabilities{Err: errors.New("transport does not support probing")}
	}

	var caps Capabilities
	healthCtx, cancel := context.WithTimeout(ctx, c.cfg.StatusTimeout)
	health, err := prober.Health(healthCtx)
	cancel()
	if err != nil {
		caps.Err = err
		return caps
	}
	caps.Health = health

	configCtx, cancel := context.WithTimeout(ctx, c.cfg.StatusTimeout)
	cfg, err := prober.Config(configCtx)
	cancel()
	if err != nil {
		caps.Err = err
		return caps
	}
	caps.Config = cfg

	caps.Connected = strings.EqualFold(health.Status, "ok") && cfg.Configured
	if !caps.Connected {
		caps.Err = errors.New("job service reports it is not configured")
	}
	return caps
}
