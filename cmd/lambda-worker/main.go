package main

// Build the Lambda handler binary:
//   GOOS=linux GOARCH=amd64 CGO_ENABLED=0 go build -o bootstrap ./cmd/lambda-worker

import (
	"context"
	"log"
	"strconv"
	"sync"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"aichecker-backend/internal/bootstrap"
	"aichecker-backend/internal/queue"
	"aichecker-backend/internal/shared/config"
	"aichecker-backend/internal/shared/storage/db"
	"aichecker-backend/internal/workerproc"
)

var (
	initOnce  sync.Once
	initErr   error
	processor workerproc.Processor
)

func initApp() {
	cfg := config.Load()
	// The SQS trigger delivers messages; the app only needs to process them.
	cfg.QueueBackend = "none"
	built, err := bootstrap.Build(context.Background(), cfg, bootstrap.Options{DB: db.DefaultWorkerOptions()})
	if err != nil {
		initErr = err
		return
	}
	processor = built.JobsService
}

func handler(ctx context.Context, event events.SQSEvent) (events.SQSEventResponse, error) {
	initOnce.Do(initApp)
	if initErr != nil {
		log.Printf("bootstrap error: %v", initErr)
		return batchResponse(recordIDs(event.Records)), initErr
	}
	failed := workerproc.HandleBatch(ctx, processor, deliveries(event.Records))
	return batchResponse(failed), nil
}

func deliveries(records []events.SQSMessage) []queue.Delivery {
	out := make([]queue.Delivery, 0, len(records))
	for _, r := range records {
		count, _ := strconv.Atoi(r.Attributes["ApproximateReceiveCount"])
		out = append(out, queue.Delivery{ID: r.MessageId, Body: r.Body, ReceiveCount: count})
	}
	return out
}

func recordIDs(records []events.SQSMessage) []string {
	ids := make([]string, 0, len(records))
	for _, r := range records {
		ids = append(ids, r.MessageId)
	}
	return ids
}

func batchResponse(failed []string) events.SQSEventResponse {
	failures := make([]events.SQSBatchItemFailure, 0, len(failed))
	for _, id := range failed {
		failures = append(failures, events.SQSBatchItemFailure{ItemIdentifier: id})
	}
	return events.SQSEventResponse{BatchItemFailures: failures}
}

func main() {
	lambda.Start(handler)
}
