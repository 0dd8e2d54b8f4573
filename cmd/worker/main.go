package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"aichecker-backend/internal/bootstrap"
	"aichecker-backend/internal/shared/config"
	"aichecker-backend/internal/shared/storage/db"
	"aichecker-backend/internal/shared/telemetry"
	"aichecker-backend/internal/workerproc"
)

// requeuer is implemented by queues that park in-flight deliveries and
// requeue them once their visibility deadline passes.
type requeuer interface {
	Requeue(ctx context.Context) (int, error)
}

func main() {
	cfg := config.Load()
	if cfg.QueueBackend == "none" {
		log.Fatal("QUEUE_BACKEND must be sqs or redis for the worker")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.Build(ctx, cfg, bootstrap.Options{DB: db.DefaultWorkerOptions()})
	if err != nil {
		log.Fatalf("bootstrap build: %v", err)
	}
	defer app.Close()

	requeueStale(ctx, app.Consumer)

	w := &workerproc.Worker{
		Consumer:        app.Consumer,
		Processor:       app.JobsService,
		Concurrency:     cfg.WorkerConcurrency,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}
	log.Printf("worker started queue=%s concurrency=%d provider=%s", cfg.QueueBackend, cfg.WorkerConcurrency, app.Config.AnalyzerProvider)
	w.Run(ctx)
}

// requeueStale moves expired deliveries left by a crashed worker back onto
// the queue. Deliveries still held by a live worker are left alone.
func requeueStale(ctx context.Context, consumer any) int {
	rq, ok := consumer.(requeuer)
	if !ok {
		return 0
	}
	n, err := rq.Requeue(ctx)
	if err != nil {
		telemetry.Warn("worker.requeue.failed", map[string]any{"error": err.Error()})
		return 0
	}
	if n > 0 {
		telemetry.Info("worker.requeue", map[string]any{"count": n})
	}
	return n
}
