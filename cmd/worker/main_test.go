package main

import (
	"context"
	"errors"
	"testing"
)

type fakeRequeuer struct {
	n   int
	err error
}

func (f *fakeRequeuer) Requeue(ctx context.Context) (int, error) {
	_ = ctx
	return f.n, f.err
}

func TestRequeueStale(t *testing.T) {
	tests := []struct {
		name     string
		consumer any
		want     int
	}{
		{name: "requeues leftovers", consumer: &fakeRequeuer{n: 3}, want: 3},
		{name: "error is logged", consumer: &fakeRequeuer{err: errors.New("redis down")}, want: 0},
		{name: "consumer without requeue", consumer: struct{}{}, want: 0},
		{name: "nil consumer", consumer: nil, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := requeueStale(context.Background(), tt.consumer); got != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, got)
			}
		})
	}
}
