package jobclient

import (
	"strings"
	"time"
)

const (
	DefaultPollInterval           = 5 * time.Second
	DefaultMaxAttempts            = 200
	DefaultStatusTimeout          = 10 * time.Second
	DefaultStatusAttempts         = 3
	DefaultRetryBaseDelay         = 1 * time.Second
	DefaultRetryMaxDelay          = 5 * time.Second
	DefaultMaxConsecutiveFailures = 5
	DefaultMinPollInterval        = 2 * time.Second
	DefaultWaitSlice              = 500 * time.Millisecond
	DefaultSubmitTimeout          = 30 * time.Second

	DefaultSubmitPath = "/job"
	DefaultStatusPath = "/job/{id}/status"
	DefaultHealthPath = "/health"
	DefaultConfigPath = "/config"
)

// DefaultResult is returned when a job completes with an empty payload.
const DefaultResult = "Analysis completed, but the remote analyzer returned no result."

// Config describes how to reach the job service and how patiently to poll it.
// Zero values fall back to the Default* constants.
type Config struct {
	BaseURL string
	Token   string
	Model   string

	SubmitPath string
	StatusPath string // {id} is replaced with the job id
	HealthPath string
	ConfigPath string

	PollInterval           time.Duration
	MaxAttempts            int
	StatusTimeout          time.Duration
	StatusAttempts         int
	RetryBaseDelay         time.Duration
	RetryMaxDelay          time.Duration
	MaxConsecutiveFailures int
	MinPollInterval        time.Duration
	WaitSlice              time.Duration
	SubmitTimeout          time.Duration
}

// DefaultConfig returns a Config for baseURL with every default applied.
func DefaultConfig(baseURL string) Config {
	return Config{BaseURL: baseURL}.withDefaults()
}

func (c Config) withDefaults() Config {
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if c.SubmitPath == "" {
		c.SubmitPath = DefaultSubmitPath
	}
	if c.StatusPath == "" {
		c.StatusPath = DefaultStatusPath
	}
	if c.HealthPath == "" {
		c.HealthPath = DefaultHealthPath
	}
	if c.ConfigPath == "" {
		c.ConfigPath = DefaultConfigPath
	}
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.StatusTimeout <= 0 {
		c.StatusTimeout = DefaultStatusTimeout
	}
	if c.StatusAttempts <= 0 {
		c.StatusAttempts = DefaultStatusAttempts
	}
	if c.RetryBaseDelay <= 0 {
		c.RetryBaseDelay = DefaultRetryBaseDelay
	}
	if c.RetryMaxDelay <= 0 {
		c.RetryMaxDelay = DefaultRetryMaxDelay
	}
	if c.MaxConsecutiveFailures <= 0 {
		c.MaxConsecutiveFailures = DefaultMaxConsecutiveFailures
	}
	if c.MinPollInterval <= 0 {
		c.MinPollInterval = DefaultMinPollInterval
	}
	if c.WaitSlice <= 0 {
		c.WaitSlice = DefaultWaitSlice
	}
	if c.SubmitTimeout <= 0 {
		c.SubmitTimeout = DefaultSubmitTimeout
	}
	return c
}
