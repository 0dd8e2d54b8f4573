package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds server and worker configuration.
type Config struct {
	Port                   string
	CORSAllowOrigin        []string
	DatabaseURL            string
	Env                    string
	AnalyzerProvider       string
	AnalyzerModel          string
	JobTimeout             time.Duration
	QueueBackend           string
	RedisAddr              string
	RedisQueueKey          string
	SQSQueueURL            string
	AWSRegion              string
	APIToken               string
	PublicBaseURL          string
	RateLimitDefault       RateLimit
	RateLimitPolling       RateLimit
	WorkerConcurrency      int
	ShutdownTimeout        time.Duration
	SQSVisibilityTimeout   time.Duration
	RedisVisibilityTimeout time.Duration
}

// RateLimit is a token bucket rule: RPS tokens per second up to Burst.
type RateLimit struct {
	RPS   float64
	Burst int
}

// ClientConfig holds settings for the checker CLI.
type ClientConfig struct {
	BaseURL             string
	Token               string
	Model               string
	Purpose             string
	PollInterval        time.Duration
	MaxPollAttempts     int
	StatusTimeout       time.Duration
	SentenceConcurrency int
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	env := normalizeEnv(getEnv("ENV", "dev"))
	dbURL := os.Getenv("DATABASE_URL")

	if env == "production" && dbURL == "" {
		log.Printf("DATABASE_URL is required in production")
	}

	return Config{
		Port:             getEnv("PORT", "8080"),
		CORSAllowOrigin:  splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", "http://localhost:5173")),
		DatabaseURL:      dbURL,
		Env:              env,
		AnalyzerProvider: normalizeProvider(getEnv("ANALYZER_PROVIDER", "heuristic")),
		AnalyzerModel:    getEnv("ANALYZER_MODEL", ""),
		JobTimeout:       time.Duration(getInt("JOB_TIMEOUT_SECONDS", 900)) * time.Second,
		QueueBackend:     normalizeQueueBackend(getEnv("QUEUE_BACKEND", "none")),
		RedisAddr:        getEnv("REDIS_ADDR", "localhost:6379"),
		RedisQueueKey:    getEnv("REDIS_QUEUE_KEY", ""),
		SQSQueueURL:      getEnv("RA_SQS_QUEUE_URL", ""),
		AWSRegion:        getEnv("AWS_REGION", ""),
		APIToken:         getEnv("API_TOKEN", ""),
		PublicBaseURL:    getEnv("PUBLIC_BASE_URL", ""),
		RateLimitDefault: RateLimit{
			RPS:   getFloat("RATE_LIMIT_DEFAULT_RPS", 5),
			Burst: getInt("RATE_LIMIT_DEFAULT_BURST", 20),
		},
		RateLimitPolling: RateLimit{
			RPS:   getFloat("RATE_LIMIT_POLLING_RPS", 2),
			Burst: getInt("RATE_LIMIT_POLLING_BURST", 10),
		},
		WorkerConcurrency:      getInt("RA_WORKER_CONCURRENCY", 4),
		ShutdownTimeout:        time.Duration(getInt("RA_SHUTDOWN_TIMEOUT_SECONDS", 30)) * time.Second,
		SQSVisibilityTimeout:   time.Duration(getInt("RA_SQS_VISIBILITY_TIMEOUT_SECONDS", 1200)) * time.Second,
		RedisVisibilityTimeout: time.Duration(getInt("REDIS_VISIBILITY_TIMEOUT_SECONDS", 1200)) * time.Second,
	}
}

// LoadClient reads CHECKER_* variables for the CLI.
func LoadClient() ClientConfig {
	loadEnvFiles(".env")

	return ClientConfig{
		BaseURL:             getEnv("CHECKER_BASE_URL", ""),
		Token:               getEnv("CHECKER_TOKEN", ""),
		Model:               getEnv("CHECKER_MODEL", ""),
		Purpose:             getEnv("CHECKER_PURPOSE", ""),
		PollInterval:        time.Duration(getInt("CHECKER_POLL_INTERVAL_MS", 5000)) * time.Millisecond,
		MaxPollAttempts:     getInt("CHECKER_MAX_POLL_ATTEMPTS", 200),
		StatusTimeout:       time.Duration(getInt("CHECKER_STATUS_TIMEOUT_MS", 10000)) * time.Millisecond,
		SentenceConcurrency: getInt("CHECKER_SENTENCE_CONCURRENCY", 1),
	}
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.Atoi(raw)
	if err != nil || val <= 0 {
		log.Printf("config: ignoring invalid %s=%q", key, raw)
		return def
	}
	return val
}

func getFloat(key string, def float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.ParseFloat(raw, 64)
	if err != nil || val <= 0 {
		log.Printf("config: ignoring invalid %s=%q", key, raw)
		return def
	}
	return val
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	case "development", "dev":
		return "dev"
	default:
		return "dev"
	}
}

func normalizeProvider(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "openai":
		return "openai"
	case "gemini", "google":
		return "gemini"
	default:
		return "heuristic"
	}
}

func normalizeQueueBackend(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "sqs":
		return "sqs"
	case "redis":
		return "redis"
	default:
		return "none"
	}
}
