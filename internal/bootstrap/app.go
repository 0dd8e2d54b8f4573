package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"aichecker-backend/internal/jobs"
	"aichecker-backend/internal/llm"
	"aichecker-backend/internal/llm/gemini"
	"aichecker-backend/internal/llm/heuristic"
	"aichecker-backend/internal/llm/openai"
	"aichecker-backend/internal/queue"
	"aichecker-backend/internal/services/health"
	"aichecker-backend/internal/shared/config"
	"aichecker-backend/internal/shared/server"
	"aichecker-backend/internal/shared/server/middleware"
	"aichecker-backend/internal/shared/storage/db"
)

// App holds shared dependencies for the api and worker binaries.
type App struct {
	Config      config.Config
	Router      *gin.Engine
	DB          *sql.DB
	Queue       queue.Client
	Consumer    queue.Consumer
	Analyzer    llm.Analyzer
	JobsRepo    jobs.Repo
	JobsService *jobs.Service
	JobHandler  *jobs.Handler
	Health      *health.Service

	closers []io.Closer
}

// Options select the database pool profile and whether to migrate on start.
type Options struct {
	DB      db.Options
	Migrate bool
}

// Build prepares dependencies and the router.
func Build(ctx context.Context, cfg config.Config, opts Options) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	app := &App{Config: cfg}

	sqlDB, err := buildDB(ctx, cfg, opts)
	if err != nil {
		return nil, err
	}
	app.DB = sqlDB

	if err := app.buildQueue(ctx); err != nil {
		app.Close()
		return nil, err
	}

	analyzer, err := app.buildAnalyzer(ctx)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Analyzer = analyzer
	cfg = app.Config

	if app.DB != nil {
		app.JobsRepo = &jobs.PGRepo{DB: app.DB}
	} else {
		app.JobsRepo = jobs.NewMemoryRepo()
	}
	app.JobsService = &jobs.Service{
		Repo:       app.JobsRepo,
		Analyzer:   app.Analyzer,
		Queue:      app.Queue,
		Provider:   cfg.AnalyzerProvider,
		Model:      cfg.AnalyzerModel,
		JobTimeout: cfg.JobTimeout,
	}
	app.JobHandler = jobs.NewHandler(app.JobsService)
	app.Health = health.NewService(cfg.AnalyzerProvider, cfg.AnalyzerModel, cfg.PublicBaseURL)

	app.Router = server.NewRouter(server.RouterDeps{
		Config:      cfg,
		JobHandler:  app.JobHandler,
		Health:      app.Health,
		RateLimiter: middleware.NewRateLimiter(time.Now),
	})
	return app, nil
}

// Close releases queue, analyzer and database clients.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			log.Printf("bootstrap: close: %v", err)
		}
	}
	a.closers = nil
}

func buildDB(ctx context.Context, cfg config.Config, opts Options) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: DATABASE_URL empty; using in-memory repositories")
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	sqlDB, err := db.GetSingleton(ctx, cfg.DatabaseURL, db.OptionsFromEnv(opts.DB))
	if err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: database connect failed; using in-memory repositories: %v", err)
			return nil, nil
		}
		return nil, err
	}
	if opts.Migrate {
		if err := db.RunMigrations(ctx, sqlDB); err != nil {
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}
	return sqlDB, nil
}

func (a *App) buildQueue(ctx context.Context) error {
	cfg := a.Config
	switch cfg.QueueBackend {
	case "sqs":
		api, err := queue.NewSQSAPI(ctx, cfg.AWSRegion)
		if err != nil {
			return err
		}
		client, err := queue.NewSQSClient(api, cfg.SQSQueueURL)
		if err != nil {
			return err
		}
		a.Queue = client
		a.Consumer = &queue.SQSConsumer{
			Client:            api,
			QueueURL:          cfg.SQSQueueURL,
			VisibilitySeconds: int32(cfg.SQSVisibilityTimeout / time.Second),
			WaitSeconds:       20,
			MaxMessages:       int32(cfg.WorkerConcurrency),
		}
	case "redis":
		rdb, err := queue.NewRedisClient(ctx, cfg.RedisAddr)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, rdb)
		q := queue.NewRedisQueue(rdb, cfg.RedisQueueKey, cfg.RedisVisibilityTimeout)
		a.Queue = q
		a.Consumer = q
	case "", "none":
	default:
		return fmt.Errorf("unknown QUEUE_BACKEND %q", cfg.QueueBackend)
	}
	return nil
}

func (a *App) buildAnalyzer(ctx context.Context) (llm.Analyzer, error) {
	cfg := a.Config
	analyzer, closer, err := NewAnalyzer(ctx, cfg.AnalyzerProvider, cfg.AnalyzerModel)
	if err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: analyzer %s unavailable; using heuristic: %v", cfg.AnalyzerProvider, err)
			a.Config.AnalyzerProvider = "heuristic"
			a.Config.AnalyzerModel = ""
			return heuristic.New(), nil
		}
		return nil, err
	}
	if closer != nil {
		a.closers = append(a.closers, closer)
	}
	return analyzer, nil
}

// NewAnalyzer constructs the analyzer for provider, reading API keys from the
// environment. The closer is nil when there is nothing to release.
func NewAnalyzer(ctx context.Context, provider, model string) (llm.Analyzer, io.Closer, error) {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "", "heuristic":
		return heuristic.New(), nil, nil
	case "openai":
		a, err := openai.NewAnalyzer(os.Getenv("OPENAI_API_KEY"), model)
		if err != nil {
			return nil, nil, err
		}
		return a, nil, nil
	case "gemini":
		a, err := gemini.NewAnalyzer(ctx, os.Getenv("GEMINI_API_KEY"), model)
		if err != nil {
			return nil, nil, err
		}
		return a, a, nil
	default:
		return nil, nil, fmt.Errorf("%w: unknown provider %q", llm.ErrNotConfigured, provider)
	}
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}
