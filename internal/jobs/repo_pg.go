package jobs

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

// Create inserts a new job.
func (r *PGRepo) Create(ctx context.Context, job Job) error {
	const query = `
INSERT INTO jobs (
	id, text, purpose, context, status, progress, status_message, provider, model, created_at, updated_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	updatedAt := job.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = job.CreatedAt
	}
	_, err := r.DB.ExecContext(ctx, query,
		job.ID,
		job.Text,
		job.Purpose,
		nullString(job.Context),
		job.Status,
		clampProgress(job.Progress),
		nullString(job.StatusMessage),
		nullString(job.Provider),
		nullString(job.Model),
		job.CreatedAt,
		updatedAt,
	)
	return err
}

// GetByID returns a job by ID.
func (r *PGRepo) GetByID(ctx context.Context, jobID string) (Job, error) {
	const query = `
SELECT id, text, purpose, context, status, progress, status_message, result,
       error_code, error_message, provider, model, created_at, started_at, completed_at, updated_at
FROM jobs
WHERE id = $1
LIMIT 1`
	var j Job
	var jobContext, statusMessage, result, errorCode, errorMessage, provider, model sql.NullString
	var startedAt, completedAt sql.NullTime
	err := r.DB.QueryRowContext(ctx, query, jobID).Scan(
		&j.ID,
		&j.Text,
		&j.Purpose,
		&jobContext,
		&j.Status,
		&j.Progress,
		&statusMessage,
		&result,
		&errorCode,
		&errorMessage,
		&provider,
		&model,
		&j.CreatedAt,
		&startedAt,
		&completedAt,
		&j.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Job{}, ErrNotFound
		}
		return Job{}, err
	}
	j.Context = jobContext.String
	j.StatusMessage = statusMessage.String
	j.Result = result.String
	j.ErrorCode = errorCode.String
	j.ErrorMessage = errorMessage.String
	j.Provider = provider.String
	j.Model = model.String
	if startedAt.Valid {
		t := startedAt.Time
		j.StartedAt = &t
	}
	if completedAt.Valid {
		t := completedAt.Time
		j.CompletedAt = &t
	}
	return j, nil
}

// MarkProcessing moves a pending job to processing.
func (r *PGRepo) MarkProcessing(ctx context.Context, jobID string, startedAt time.Time) error {
	const query = `
UPDATE jobs
SET status = 'processing', started_at = COALESCE(started_at, $2), updated_at = $2
WHERE id = $1 AND status IN ('pending', 'processing')`
	return r.guardedUpdate(ctx, jobID, query, jobID, startedAt)
}

// UpdateProgress records intermediate progress.
func (r *PGRepo) UpdateProgress(ctx context.Context, jobID string, progress int, message string) error {
	const query = `
UPDATE jobs
SET progress = $2, status_message = COALESCE(NULLIF($3, ''), status_message), updated_at = $4
WHERE id = $1 AND status IN ('pending', 'processing')`
	return r.guardedUpdate(ctx, jobID, query, jobID, clampProgress(progress), message, time.Now().UTC())
}

// MarkCompleted stores the result.
func (r *PGRepo) MarkCompleted(ctx context.Context, jobID, result string, completedAt time.Time) error {
	const query = `
UPDATE jobs
SET status = 'completed', progress = 100, status_message = 'Analysis complete', result = $2,
    completed_at = $3, updated_at = $3
WHERE id = $1 AND status IN ('pending', 'processing')`
	return r.guardedUpdate(ctx, jobID, query, jobID, result, completedAt)
}

// MarkFailed records a failure.
func (r *PGRepo) MarkFailed(ctx context.Context, jobID, code, message string, completedAt time.Time) error {
	const query = `
UPDATE jobs
SET status = 'failed', status_message = 'Analysis failed', error_code = $2, error_message = $3,
    completed_at = $4, updated_at = $4
WHERE id = $1 AND status IN ('pending', 'processing')`
	return r.guardedUpdate(ctx, jobID, query, jobID, code, message, completedAt)
}

// MarkCancelled records a client cancellation.
func (r *PGRepo) MarkCancelled(ctx context.Context, jobID, message string, completedAt time.Time) error {
	const query = `
UPDATE jobs
SET status = 'cancelled', status_message = 'Analysis cancelled', error_code = $2, error_message = $3,
    completed_at = $4, updated_at = $4
WHERE id = $1 AND status IN ('pending', 'processing')`
	return r.guardedUpdate(ctx, jobID, query, jobID, ErrorCodeCancelled, message, completedAt)
}

// guardedUpdate runs an update restricted to live jobs and tells a missing
// job apart from a finished one when no row matched.
func (r *PGRepo) guardedUpdate(ctx context.Context, jobID, query string, args ...any) error {
	res, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected > 0 {
		return nil
	}
	var exists bool
	if err := r.DB.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM jobs WHERE id = $1)`, jobID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	return ErrJobFinished
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
