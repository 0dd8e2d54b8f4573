package jobs

import (
	"context"
	"sync"
	"time"
)

// MemoryRepo stores jobs in memory and is safe for concurrent use.
type MemoryRepo struct {
	mu   sync.RWMutex
	byID map[string]Job
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byID: make(map[string]Job)}
}

// Create stores the job.
func (r *MemoryRepo) Create(ctx context.Context, job Job) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[job.ID] = job
	return nil
}

// GetByID returns a job by its ID.
func (r *MemoryRepo) GetByID(ctx context.Context, jobID string) (Job, error) {
	if err := ctx.Err(); err != nil {
		return Job{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.byID[jobID]
	if !ok {
		return Job{}, ErrNotFound
	}
	return job, nil
}

// MarkProcessing moves a pending job to processing.
func (r *MemoryRepo) MarkProcessing(ctx context.Context, jobID string, startedAt time.Time) error {
	return r.update(ctx, jobID, func(job *Job) {
		job.Status = StatusProcessing
		if job.StartedAt == nil {
			job.StartedAt = &startedAt
		}
	})
}

// UpdateProgress records intermediate progress.
func (r *MemoryRepo) UpdateProgress(ctx context.Context, jobID string, progress int, message string) error {
	return r.update(ctx, jobID, func(job *Job) {
		job.Progress = clampProgress(progress)
		if message != "" {
			job.StatusMessage = message
		}
	})
}

// MarkCompleted stores the result.
func (r *MemoryRepo) MarkCompleted(ctx context.Context, jobID, result string, completedAt time.Time) error {
	return r.update(ctx, jobID, func(job *Job) {
		job.Status = StatusCompleted
		job.Progress = 100
		job.StatusMessage = "Analysis complete"
		job.Result = result
		job.CompletedAt = &completedAt
	})
}

// MarkFailed records a failure.
func (r *MemoryRepo) MarkFailed(ctx context.Context, jobID, code, message string, completedAt time.Time) error {
	return r.update(ctx, jobID, func(job *Job) {
		job.Status = StatusFailed
		job.StatusMessage = "Analysis failed"
		job.ErrorCode = code
		job.ErrorMessage = message
		job.CompletedAt = &completedAt
	})
}

// MarkCancelled records a client cancellation.
func (r *MemoryRepo) MarkCancelled(ctx context.Context, jobID, message string, completedAt time.Time) error {
	return r.update(ctx, jobID, func(job *Job) {
		job.Status = StatusCancelled
		job.StatusMessage = "Analysis cancelled"
		job.ErrorCode = ErrorCodeCancelled
		job.ErrorMessage = message
		job.CompletedAt = &completedAt
	})
}

func (r *MemoryRepo) update(ctx context.Context, jobID string, apply func(*Job)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.byID[jobID]
	if !ok {
		return ErrNotFound
	}
	if job.Terminal() {
		return ErrJobFinished
	}
	apply(&job)
	job.UpdatedAt = time.Now().UTC()
	r.byID[jobID] = job
	return nil
}
