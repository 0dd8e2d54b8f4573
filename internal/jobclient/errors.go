package jobclient

import "errors"

var (
	ErrSubmission        = errors.New("job submission failed")
	ErrPollingUnreliable = errors.New("job status polling is unreliable")
	ErrRemoteJobFailed   = errors.New("remote job failed")
	ErrTimeout           = errors.New("job did not finish in time")
	ErrCancelled         = errors.New("analysis cancelled")
)

var errMissingStatus = errors.New("status response missing status")

// SubmissionError describes a rejected job start.
type SubmissionError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *SubmissionError) Error() string {
	switch {
	case e.Message != "":
		return ErrSubmission.Error() + ": " + e.Message
	case e.Err != nil:
		return ErrSubmission.Error() + ": " + e.Err.Error()
	default:
		return ErrSubmission.Error()
	}
}

func (e *SubmissionError) Is(target error) bool { return target == ErrSubmission }

func (e *SubmissionError) Unwrap() error { return e.Err }

// RemoteJobError carries the failure message reported by the job service.
type RemoteJobError struct {
	JobID   string
	Message string
}

func (e *RemoteJobError) Error() string {
	if e.Message == "" {
		return ErrRemoteJobFailed.Error()
	}
	return e.Message
}

func (e *RemoteJobError) Is(target error) bool { return target == ErrRemoteJobFailed }
