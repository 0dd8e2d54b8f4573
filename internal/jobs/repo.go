package jobs

import (
	"context"
	"time"
)

// Repo defines persistence operations for jobs. Every update other than
// Create returns ErrJobFinished once the job is terminal.
type Repo interface {
	Create(ctx context.Context, job Job) error
	GetByID(ctx context.Context, jobID string) (Job, error)
	MarkProcessing(ctx context.Context, jobID string, startedAt time.Time) error
	UpdateProgress(ctx context.Context, jobID string, progress int, message string) error
	MarkCompleted(ctx context.Context, jobID, result string, completedAt time.Time) error
	MarkFailed(ctx context.Context, jobID, code, message string, completedAt time.Time) error
	MarkCancelled(ctx context.Context, jobID, message string, completedAt time.Time) error
}

func clampProgress(p int) int {
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	default:
		return p
	}
}
