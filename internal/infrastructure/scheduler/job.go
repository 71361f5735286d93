package scheduler

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/erp/connector/internal/domain/integration"
)

var (
	ErrSchedulerNotRunning = errors.New("scheduler is not running")
	ErrJobQueueFull        = errors.New("job queue is full")
	// ErrJobInProgress rejects a second job for a queue kind that is queued or running
	ErrJobInProgress = errors.New("auto-process job already in progress for this queue kind")
	ErrNoProcessor   = errors.New("no queue processor registered for kind")
)

type JobStatus string

const (
	JobStatusPending JobStatus = "PENDING"
	JobStatusRunning JobStatus = "RUNNING"
	JobStatusSuccess JobStatus = "SUCCESS"
	JobStatusFailed  JobStatus = "FAILED"
)

// Job is one auto-process run over every queue of a kind
type Job struct {
	ID          uuid.UUID
	Kind        integration.QueueKind
	Status      JobStatus
	Error       string
	StartedAt   *time.Time
	CompletedAt *time.Time
	RetryCount  int
	MaxRetries  int
}

func NewJob(kind integration.QueueKind, maxRetries int) *Job {
	return &Job{ID: uuid.New(), Kind: kind, Status: JobStatusPending, MaxRetries: maxRetries}
}

func (j *Job) Start() {
	now := time.Now()
	j.Status, j.StartedAt, j.Error = JobStatusRunning, &now, ""
}

func (j *Job) Complete() { j.finish(JobStatusSuccess, "") }

func (j *Job) Fail(reason string) { j.finish(JobStatusFailed, reason) }

func (j *Job) finish(status JobStatus, reason string) {
	now := time.Now()
	j.Status, j.CompletedAt, j.Error = status, &now, reason
}

// ShouldRetry reports whether a failed job has attempts left
func (j *Job) ShouldRetry() bool {
	return j.Status == JobStatusFailed && j.RetryCount < j.MaxRetries
}

// ScheduleRetry puts the job back to pending for its next attempt
func (j *Job) ScheduleRetry() {
	j.RetryCount++
	j.Status, j.Error = JobStatusPending, ""
}

func (j *Job) logFields(extra ...zap.Field) []zap.Field {
	return append([]zap.Field{
		zap.String("job_id", j.ID.String()),
		zap.String("kind", string(j.Kind)),
		zap.Int("attempt", j.RetryCount+1),
	}, extra...)
}
