package main

// Build the Lambda handler binary:
//   GOOS=linux GOARCH=arm64 CGO_ENABLED=0 go build -o bootstrap ./cmd/lambda-http
//
// Set QUEUE_BACKEND=sqs so jobs outlive the invocation that created them.

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"

	"aichecker-backend/internal/bootstrap"
	"aichecker-backend/internal/shared/config"
	"aichecker-backend/internal/shared/server/respond"
	"aichecker-backend/internal/shared/storage/db"
)

type proxy interface {
	ProxyWithContext(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error)
}

// lazyProxy builds the app on first use. A failed build is retried by the
// next invocation instead of pinning the container in a broken state.
type lazyProxy struct {
	mu    sync.Mutex
	build func(ctx context.Context) (proxy, error)
	p     proxy
}

func (l *lazyProxy) get(ctx context.Context) (proxy, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.p != nil {
		return l.p, nil
	}
	p, err := l.build(ctx)
	if err != nil {
		return nil, err
	}
	l.p = p
	return p, nil
}

func (l *lazyProxy) handle(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	p, err := l.get(ctx)
	if err != nil {
		log.Printf("lambda-http: bootstrap failed: %v", err)
		return unavailable(req.RequestContext.RequestID), nil
	}
	return p.ProxyWithContext(ctx, req)
}

func unavailable(requestID string) events.APIGatewayV2HTTPResponse {
	body, _ := json.Marshal(respond.ErrorResponse{Error: respond.ErrorBody{
		Code:      "unavailable",
		Message:   "service is starting; retry shortly",
		RequestID: requestID,
	}})
	return events.APIGatewayV2HTTPResponse{
		StatusCode: http.StatusServiceUnavailable,
		Body:       string(body),
		Headers: map[string]string{
			"Content-Type":  "application/json",
			"Cache-Control": "no-store",
			"Retry-After":   "5",
		},
	}
}

func buildProxy(ctx context.Context) (proxy, error) {
	cfg := config.Load()
	if cfg.QueueBackend == "none" {
		log.Printf("lambda-http: QUEUE_BACKEND=none; jobs run inside the request invocation and may be frozen")
	}
	app, err := bootstrap.Build(ctx, cfg, bootstrap.Options{DB: db.DefaultWorkerOptions()})
	if err != nil {
		return nil, err
	}
	return ginadapter.NewV2(app.Router), nil
}

func main() {
	l := &lazyProxy{build: buildProxy}
	lambda.Start(l.handle)
}
