package workerproc

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"aichecker-backend/internal/queue"
	"aichecker-backend/internal/shared/metrics"
	"aichecker-backend/internal/shared/telemetry"
)

const (
	DefaultConcurrency     = 4
	DefaultShutdownTimeout = 30 * time.Second
	receiveErrorBackoff    = time.Second
)

// Worker pulls deliveries from a queue and processes them with bounded
// concurrency.
type Worker struct {
	Consumer        queue.Consumer
	Processor       Processor
	Concurrency     int
	ShutdownTimeout time.Duration
}

// Run polls until ctx is cancelled, then waits up to ShutdownTimeout for
// in-flight jobs. It returns false when that wait timed out.
func (w *Worker) Run(ctx context.Context) bool {
	concurrency := w.Concurrency
	if concurrency < 1 {
		concurrency = DefaultConcurrency
	}
	shutdownTimeout := w.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = DefaultShutdownTimeout
	}

	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

pollLoop:
	for {
		select {
		case <-ctx.Done():
			break pollLoop
		default:
		}

		deliveries, err := w.Consumer.Receive(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
				break pollLoop
			}
			log.Printf("receive message: %v", err)
			select {
			case <-ctx.Done():
				break pollLoop
			case <-time.After(receiveErrorBackoff):
			}
			continue
		}

		for _, d := range deliveries {
			select {
			case <-ctx.Done():
				break pollLoop
			case sem <- struct{}{}:
			}
			metrics.IncWorkerJobsReceived()
			wg.Add(1)
			go func(d queue.Delivery) {
				defer wg.Done()
				defer func() { <-sem }()
				w.handleDelivery(ctx, d)
			}(d)
		}
	}

	log.Printf("shutdown requested, waiting up to %s for in-flight jobs", shutdownTimeout)
	waitDone := make(chan struct{})
	go func() {
		wg.Wait()
		close(waitDone)
	}()
	select {
	case <-waitDone:
		return true
	case <-time.After(shutdownTimeout):
		log.Printf("shutdown timeout reached; exiting with in-flight jobs")
		return false
	}
}

func (w *Worker) handleDelivery(ctx context.Context, d queue.Delivery) {
	msg, meta, err := ParseMessage(d.Body)
	if err != nil {
		fields := baseFields(d, msg.JobID, msg.RequestID)
		fields["body_len"] = meta.BodyLen
		if meta.BodySHA != "" {
			fields["body_sha256"] = meta.BodySHA
		}
		fields["error"] = err.Error()
		telemetry.Error("worker.job.unrecoverable", fields)
		ack(context.WithoutCancel(ctx), d, msg.JobID, msg.RequestID)
		return
	}

	telemetry.Info("worker.job.received", baseFields(d, msg.JobID, msg.RequestID))

	if err := HandleMessage(ctx, w.Processor, msg); err != nil {
		fields := baseFields(d, msg.JobID, msg.RequestID)
		fields["error"] = err.Error()
		telemetry.Error("worker.job.failed", fields)
		return
	}

	if ack(context.WithoutCancel(ctx), d, msg.JobID, msg.RequestID) {
		telemetry.Info("worker.job.completed", baseFields(d, msg.JobID, msg.RequestID))
	}
}

func ack(ctx context.Context, d queue.Delivery, jobID, requestID string) bool {
	if d.Ack == nil {
		return false
	}
	if err := d.Ack(ctx); err != nil {
		fields := baseFields(d, jobID, requestID)
		fields["error"] = err.Error()
		telemetry.Error("worker.job.ack_failed", fields)
		return false
	}
	return true
}

func baseFields(d queue.Delivery, jobID, requestID string) map[string]any {
	fields := map[string]any{
		"job_id":        jobID,
		"message_id":    d.ID,
		"receive_count": d.ReceiveCount,
	}
	if requestID != "" {
		fields["request_id"] = requestID
	}
	return fields
}

// HandleBatch runs deliveries one at a time, the way a Lambda SQS trigger
// hands them over, and returns the IDs that must be redelivered.
// Unrecoverable bodies count as handled.
func HandleBatch(ctx context.Context, processor Processor, deliveries []queue.Delivery) []string {
	w := &Worker{Processor: processor}
	var failed []string
	for _, d := range deliveries {
		handled := false
		d.Ack = func(context.Context) error {
			handled = true
			return nil
		}
		metrics.IncWorkerJobsReceived()
		w.handleDelivery(ctx, d)
		if !handled {
			failed = append(failed, d.ID)
		}
	}
	return failed
}
