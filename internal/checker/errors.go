package checker

import (
	"errors"

	"aichecker-backend/internal/heuristic"
	"aichecker-backend/internal/jobclient"
)

var (
	ErrEmptyInput    = errors.New("no text to analyze")
	ErrNotConfigured = errors.New("remote analyzer is not configured")
	ErrNotConnected  = errors.New("remote analyzer is not connected")
)

// IsSilent reports errors that should never be shown to the user.
func IsSilent(err error) bool {
	return errors.Is(err, jobclient.ErrCancelled)
}

// UserMessage maps an analysis error to display text. Silent errors map to "".
func UserMessage(err error) string {
	var remote *jobclient.RemoteJobError
	switch {
	case err == nil, IsSilent(err):
		return ""
	case errors.Is(err, ErrEmptyInput):
		return "Please enter some text first."
	case errors.Is(err, heuristic.ErrInsufficientInput):
		return "Text must contain at least 10 words for analysis."
	case errors.Is(err, ErrNotConfigured):
		return "Remote analyzer is not configured. Set CHECKER_BASE_URL or pass --base-url."
	case errors.Is(err, ErrNotConnected):
		return "Remote analyzer is unavailable."
	case errors.As(err, &remote):
		return remote.Error()
	case errors.Is(err, jobclient.ErrSubmission):
		return "Could not start the remote analysis: " + err.Error()
	case errors.Is(err, jobclient.ErrPollingUnreliable):
		return "Lost contact with the remote analyzer after repeated status failures. Check your connection and try again."
	case errors.Is(err, jobclient.ErrTimeout):
		return "The analysis is taking longer than expected. Please try again."
	default:
		return err.Error()
	}
}
