package jobs

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"aichecker-backend/internal/jobapi"
	"aichecker-backend/internal/llm"
	"aichecker-backend/internal/queue"
	"aichecker-backend/internal/shared/metrics"
	"aichecker-backend/internal/shared/telemetry"
	"aichecker-backend/internal/shared/util"
)

// DefaultJobTimeout bounds a single analysis.
const DefaultJobTimeout = 15 * time.Minute

const cancelledMessage = "Job cancelled by client"

// Service contains business logic for jobs.
type Service struct {
	Repo       Repo
	Analyzer   llm.Analyzer
	Queue      queue.Client
	Provider   string
	Model      string
	JobTimeout time.Duration

	mu      sync.Mutex
	running map[string]context.CancelFunc
}

// Create stores a new job and either enqueues it or starts it in the background.
func (s *Service) Create(ctx context.Context, input llm.Input) (Job, error) {
	text := strings.TrimSpace(input.Text)
	if text == "" {
		return Job{}, fmt.Errorf("%w: text is required", ErrValidation)
	}
	purpose := strings.TrimSpace(input.Purpose)
	if purpose == "" {
		purpose = jobapi.DefaultPurpose
	}

	now := time.Now().UTC()
	job := Job{
		ID:            uuid.NewString(),
		Text:          text,
		Purpose:       purpose,
		Context:       strings.TrimSpace(input.Context),
		Status:        StatusProcessing,
		StatusMessage: "Analysis started",
		Provider:      normalizeProvider(s.Provider),
		Model:         s.Model,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if s.Queue != nil {
		job.Status = StatusPending
		job.StatusMessage = "Waiting for a worker"
	}

	if err := s.Repo.Create(ctx, job); err != nil {
		return Job{}, fmt.Errorf("%w: create job: %v", errStorage, err)
	}
	telemetry.Info("job.created", map[string]any{
		"request_id":  requestIDFromContext(ctx),
		"job_id":      job.ID,
		"status":      job.Status,
		"text_len":    len(job.Text),
		"text_sha256": util.SHA256Hex(job.Text),
	})

	if s.Queue != nil {
		msg := queue.Message{
			JobID:      job.ID,
			RequestID:  requestIDFromContext(ctx),
			EnqueuedAt: now.Format(time.RFC3339),
			Version:    queue.MessageVersion,
		}
		if err := s.Queue.Send(ctx, msg); err != nil {
			err = fmt.Errorf("enqueue job: %w", err)
			s.failJob(ctx, job.ID, err, nil)
			return Job{}, err
		}
		return job, nil
	}

	go s.runAsync(backgroundWithRequestID(ctx), job.ID)

	return job, nil
}

// Get returns a job by ID.
func (s *Service) Get(ctx context.Context, jobID string) (Job, error) {
	if strings.TrimSpace(jobID) == "" {
		return Job{}, fmt.Errorf("%w: job id is required", ErrValidation)
	}
	return s.Repo.GetByID(ctx, jobID)
}

// Cancel marks a live job cancelled and interrupts its analysis when it runs
// in this process. Finished jobs are returned with ErrJobFinished.
func (s *Service) Cancel(ctx context.Context, jobID string) (Job, error) {
	job, err := s.Get(ctx, jobID)
	if err != nil {
		return Job{}, err
	}
	if job.Terminal() {
		return job, ErrJobFinished
	}
	previous := job.Status
	if err := s.Repo.MarkCancelled(ctx, jobID, cancelledMessage, time.Now().UTC()); err != nil {
		if errors.Is(err, ErrJobFinished) {
			job, _ = s.Repo.GetByID(ctx, jobID)
		}
		return job, err
	}
	s.interrupt(jobID)

	metrics.IncJobCancelled()
	telemetry.Info("job.status", map[string]any{
		"request_id":        requestIDFromContext(ctx),
		"job_id":            jobID,
		"status":            StatusCancelled,
		"status_transition": previous + "->" + StatusCancelled,
	})
	return s.Repo.GetByID(ctx, jobID)
}

func (s *Service) runAsync(ctx context.Context, jobID string) {
	if err := s.ProcessJob(ctx, jobID); err != nil {
		log.Printf("job processing error job_id=%s request_id=%s error=%s", jobID, requestIDFromContext(ctx), sanitizeError(err))
	}
}

// ProcessJob runs the analyzer for a job and records the outcome. Analyzer
// failures and timeouts are recorded on the job and return nil; an error is
// returned only when the outcome could not be recorded or ctx ended first,
// so a queue consumer can redeliver.
func (s *Service) ProcessJob(ctx context.Context, jobID string) (err error) {
	storeCtx := context.WithoutCancel(ctx)
	startedAt := time.Now().UTC()
	defer func() {
		if r := recover(); r != nil {
			s.failJob(storeCtx, jobID, fmt.Errorf("panic: %v", r), &startedAt)
			err = nil
		}
	}()

	job, err := s.Repo.GetByID(ctx, jobID)
	if err != nil {
		return fmt.Errorf("job lookup id=%s: %w", jobID, err)
	}
	if job.Terminal() {
		return nil
	}
	previous := job.Status
	if err := s.Repo.MarkProcessing(ctx, jobID, startedAt); err != nil {
		if errors.Is(err, ErrJobFinished) {
			return nil
		}
		return fmt.Errorf("set processing failed: %w", err)
	}

	metrics.IncJobStarted()
	telemetry.Info("job.status", map[string]any{
		"request_id":        requestIDFromContext(ctx),
		"job_id":            jobID,
		"status":            StatusProcessing,
		"status_transition": previous + "->" + StatusProcessing,
	})
	if s.Analyzer == nil {
		s.failJob(storeCtx, jobID, fmt.Errorf("analyzer: %w", llm.ErrNotConfigured), &startedAt)
		return nil
	}

	timeout := s.jobTimeout()
	jobCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	s.track(jobID, cancel)
	defer s.untrack(jobID)

	analyzer := newRetryingAnalyzer(s.Analyzer, jobID, requestIDFromContext(ctx))
	progress := func(percent int, message string) {
		err := s.Repo.UpdateProgress(storeCtx, jobID, percent, message)
		if errors.Is(err, ErrJobFinished) {
			// Cancelled from another process.
			cancel()
			return
		}
		if err != nil {
			log.Printf("job progress update failed job_id=%s error=%v", jobID, err)
		}
	}

	result, err := analyzer.Analyze(jobCtx, llm.Input{Text: job.Text, Purpose: job.Purpose, Context: job.Context}, progress)
	if err != nil {
		if current, getErr := s.Repo.GetByID(storeCtx, jobID); getErr == nil && current.Terminal() {
			return nil
		}
		switch {
		case ctx.Err() != nil:
			return fmt.Errorf("job interrupted id=%s: %w", jobID, ctx.Err())
		case errors.Is(jobCtx.Err(), context.DeadlineExceeded):
			s.failJob(storeCtx, jobID, fmt.Errorf("%w after %s", ErrTimedOut, timeout), &startedAt)
		default:
			s.failJob(storeCtx, jobID, fmt.Errorf("analyzer: %w", err), &startedAt)
		}
		return nil
	}

	completedAt := time.Now().UTC()
	if err := s.Repo.MarkCompleted(storeCtx, jobID, result, completedAt); err != nil {
		if errors.Is(err, ErrJobFinished) {
			return nil
		}
		s.failJob(storeCtx, jobID, fmt.Errorf("%w: set result failed: %v", errStorage, err), &startedAt)
		return err
	}
	metrics.IncJobCompleted()
	metrics.ObserveJobDurationMs(durationMs(&startedAt, &completedAt))
	telemetry.Info("job.status", map[string]any{
		"request_id":        requestIDFromContext(ctx),
		"job_id":            jobID,
		"status":            StatusCompleted,
		"status_transition": StatusProcessing + "->" + StatusCompleted,
		"duration_ms":       durationMs(&startedAt, &completedAt),
	})
	return nil
}

func (s *Service) failJob(ctx context.Context, jobID string, err error, startedAt *time.Time) {
	code := classifyFailure(err)
	msg := sanitizeError(err)
	completedAt := time.Now().UTC()
	if updateErr := s.Repo.MarkFailed(context.WithoutCancel(ctx), jobID, code, msg, completedAt); updateErr != nil {
		if errors.Is(updateErr, ErrJobFinished) {
			return
		}
		log.Printf("failJob: update failed job_id=%s err=%v orig=%v", jobID, updateErr, err)
	}
	metrics.IncJobFailed()
	if startedAt != nil {
		metrics.ObserveJobDurationMs(durationMs(startedAt, &completedAt))
	}
	telemetry.Info("job.status", map[string]any{
		"request_id":        requestIDFromContext(ctx),
		"job_id":            jobID,
		"status":            StatusFailed,
		"status_transition": StatusProcessing + "->" + StatusFailed,
		"error_code":        code,
		"duration_ms":       durationMs(startedAt, &completedAt),
	})
}

func (s *Service) jobTimeout() time.Duration {
	if s.JobTimeout <= 0 {
		return DefaultJobTimeout
	}
	return s.JobTimeout
}

func (s *Service) track(jobID string, cancel context.CancelFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running == nil {
		s.running = make(map[string]context.CancelFunc)
	}
	s.running[jobID] = cancel
}

func (s *Service) untrack(jobID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.running, jobID)
}

func (s *Service) interrupt(jobID string) {
	s.mu.Lock()
	cancel := s.running[jobID]
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func normalizeProvider(provider string) string {
	if strings.TrimSpace(provider) == "" {
		return "heuristic"
	}
	return provider
}

func durationMs(startedAt, completedAt *time.Time) float64 {
	if startedAt == nil || completedAt == nil {
		return 0
	}
	return float64(completedAt.Sub(*startedAt).Microseconds()) / 1000.0
}

func classifyFailure(err error) string {
	if err == nil {
		return ErrorCodeInternal
	}
	switch {
	case errors.Is(err, ErrTimedOut), errors.Is(err, context.DeadlineExceeded):
		return ErrorCodeAnalyzerTimeout
	case errors.Is(err, ErrValidation):
		return ErrorCodeValidation
	case errors.Is(err, errStorage):
		return ErrorCodeStorage
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "request timeout") {
		return ErrorCodeAnalyzerTimeout
	}
	if strings.HasPrefix(msg, "analyzer") {
		return ErrorCodeAnalyzerFailed
	}
	if strings.Contains(msg, "set processing") || strings.Contains(msg, "set result") {
		return ErrorCodeStorage
	}
	return ErrorCodeInternal
}

func sanitizeError(err error) string {
	if err == nil {
		return ""
	}
	return util.SanitizeMessage(err.Error(), 500)
}
