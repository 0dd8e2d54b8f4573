package jobs

import (
	"time"

	"aichecker-backend/internal/jobapi"
)

// Status values persisted for jobs.
const (
	StatusPending    = jobapi.StatusPending
	StatusProcessing = jobapi.StatusProcessing
	StatusCompleted  = jobapi.StatusCompleted
	StatusFailed     = jobapi.StatusFailed
	StatusCancelled  = jobapi.StatusCancelled
)

// Job is one submitted analysis.
type Job struct {
	ID            string
	Text          string
	Purpose       string
	Context       string
	Status        string
	Progress      int
	StatusMessage string
	Result        string
	ErrorCode     string
	ErrorMessage  string
	Provider      string
	Model         string
	CreatedAt     time.Time
	StartedAt     *time.Time
	CompletedAt   *time.Time
	UpdatedAt     time.Time
}

// Terminal reports whether the job can no longer change.
func (j Job) Terminal() bool {
	return isTerminal(j.Status)
}

func isTerminal(status string) bool {
	switch status {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// StatusResponse renders the job for a status poll.
func (j Job) StatusResponse() jobapi.StatusResponse {
	progress := j.Progress
	created := j.CreatedAt
	resp := jobapi.StatusResponse{
		JobID:         j.ID,
		Status:        j.Status,
		Progress:      &progress,
		StatusMessage: j.StatusMessage,
		CreatedAt:     &created,
	}
	switch j.Status {
	case StatusCompleted:
		resp.Result = j.Result
		resp.CompletedAt = j.CompletedAt
	case StatusFailed, StatusCancelled:
		resp.Error = j.ErrorMessage
		resp.CompletedAt = j.CompletedAt
	}
	return resp
}
