package queue

import "context"

// Client sends messages to a queue backend.
type Client interface {
	Send(ctx context.Context, msg Message) error
}

// Delivery is one received message. Ack removes it from the queue; an
// unacked delivery is redelivered by the backend.
type Delivery struct {
	ID           string
	Body         string
	ReceiveCount int
	Ack          func(ctx context.Context) error
}

// Consumer receives raw deliveries for the worker.
type Consumer interface {
	Receive(ctx context.Context) ([]Delivery, error)
}
