package jobs

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryRepoTerminalStatesAreFinal(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepo()
	seedJob(t, repo, "job-1", StatusProcessing)

	if err := repo.UpdateProgress(ctx, "job-1", 140, "almost"); err != nil {
		t.Fatalf("update progress: %v", err)
	}
	if job := mustGet(t, repo, "job-1"); job.Progress != 100 {
		t.Fatalf("expected progress clamped to 100, got %d", job.Progress)
	}

	now := time.Now().UTC()
	if err := repo.MarkCancelled(ctx, "job-1", "Job cancelled by client", now); err != nil {
		t.Fatalf("mark cancelled: %v", err)
	}

	updates := map[string]func() error{
		"processing": func() error { return repo.MarkProcessing(ctx, "job-1", now) },
		"progress":   func() error { return repo.UpdateProgress(ctx, "job-1", 10, "") },
		"completed":  func() error { return repo.MarkCompleted(ctx, "job-1", "late", now) },
		"failed":     func() error { return repo.MarkFailed(ctx, "job-1", ErrorCodeInternal, "late", now) },
		"cancelled":  func() error { return repo.MarkCancelled(ctx, "job-1", "again", now) },
	}
	for name, update := range updates {
		t.Run(name, func(t *testing.T) {
			if err := update(); !errors.Is(err, ErrJobFinished) {
				t.Fatalf("expected ErrJobFinished, got %v", err)
			}
		})
	}

	job := mustGet(t, repo, "job-1")
	if job.Status != StatusCancelled || job.Result != "" || job.ErrorMessage != "Job cancelled by client" {
		t.Fatalf("terminal job was modified: %+v", job)
	}
}

func TestMemoryRepoMissingJob(t *testing.T) {
	repo := NewMemoryRepo()
	if err := repo.UpdateProgress(context.Background(), "missing", 1, ""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := repo.GetByID(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryRepoHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	repo := NewMemoryRepo()
	if err := repo.Create(ctx, Job{ID: "job-1"}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestPollLimiter(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter := newPollLimiter(time.Second, func() time.Time { return now })

	if !limiter.Allow("1.2.3.4", "job-1") {
		t.Fatalf("first poll should be allowed")
	}
	if limiter.Allow("1.2.3.4", "job-1") {
		t.Fatalf("second poll within window should be blocked")
	}
	if !limiter.Allow("1.2.3.4", "job-2") || !limiter.Allow("5.6.7.8", "job-1") {
		t.Fatalf("other jobs and clients should not share the window")
	}
	now = now.Add(time.Second)
	if !limiter.Allow("1.2.3.4", "job-1") {
		t.Fatalf("poll after window should be allowed")
	}
	if limiter.RetryAfterSeconds() != 1 {
		t.Fatalf("expected retry after 1s, got %d", limiter.RetryAfterSeconds())
	}

	var nilLimiter *pollLimiter
	if !nilLimiter.Allow("a", "b") {
		t.Fatalf("nil limiter should allow")
	}
}
