package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/erp/connector/internal/domain/integration"
)

const jobBuffer = 16

// JobExecutor runs a single job
type JobExecutor interface {
	Execute(ctx context.Context, job *Job) error
}

type SchedulerConfig struct {
	Enabled       bool
	Workers       int
	Interval      time.Duration
	JobTimeout    time.Duration
	RetryAttempts int
	RetryDelay    time.Duration
	Kinds         []integration.QueueKind
}

func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Enabled:       true,
		Workers:       2,
		Interval:      time.Minute,
		JobTimeout:    10 * time.Minute,
		RetryAttempts: 1,
		RetryDelay:    30 * time.Second,
		Kinds:         []integration.QueueKind{integration.QueueKindOrder, integration.QueueKindCustomer},
	}
}

// withDefaults fills every unset or invalid field from DefaultSchedulerConfig
func (c SchedulerConfig) withDefaults() SchedulerConfig {
	d := DefaultSchedulerConfig()
	if c.Workers <= 0 {
		c.Workers = d.Workers
	}
	if c.Interval <= 0 {
		c.Interval = d.Interval
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = d.JobTimeout
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = d.RetryDelay
	}
	c.RetryAttempts = max(c.RetryAttempts, 0)
	if len(c.Kinds) == 0 {
		c.Kinds = d.Kinds
	}
	return c
}

// Scheduler submits one auto-process job per queue kind on every tick and
// runs them on a fixed pool of workers. At most one job per kind is queued
// or running; a retry keeps the slot of the job it repeats.
type Scheduler struct {
	cfg      SchedulerConfig
	executor JobExecutor
	log      *zap.Logger

	jobs chan *Job
	wg   sync.WaitGroup
	stop context.CancelFunc

	mu       sync.Mutex
	running  bool
	inFlight map[integration.QueueKind]bool
}

func NewScheduler(cfg SchedulerConfig, executor JobExecutor, log *zap.Logger) *Scheduler {
	return &Scheduler{
		cfg:      cfg.withDefaults(),
		executor: executor,
		log:      log.Named("scheduler"),
		inFlight: map[integration.QueueKind]bool{},
	}
}

// Start launches the workers and the ticker. Starting a running scheduler
// is a no-op; a stopped one can be started again.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}
	s.running = true
	s.jobs = make(chan *Job, jobBuffer)

	ctx, s.stop = context.WithCancel(ctx)
	s.wg.Add(s.cfg.Workers + 1)
	for i := range s.cfg.Workers {
		go s.work(ctx, s.jobs, i)
	}
	go s.loop(ctx)

	s.log.Info("Queue scheduler started",
		zap.Int("workers", s.cfg.Workers),
		zap.Duration("interval", s.cfg.Interval),
		zap.Duration("job_timeout", s.cfg.JobTimeout),
	)
	return nil
}

// Stop cancels running jobs and waits for the workers until ctx expires
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	close(s.jobs)
	s.stop()
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		s.log.Info("Queue scheduler stopped")
		return nil
	case <-ctx.Done():
		s.log.Warn("Queue scheduler stop timed out")
		return ctx.Err()
	}
}

func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// SubmitJob queues job without blocking
func (s *Scheduler) SubmitJob(job *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case !s.running:
		return ErrSchedulerNotRunning
	case s.inFlight[job.Kind] && job.RetryCount == 0:
		return ErrJobInProgress
	}

	select {
	case s.jobs <- job:
		s.inFlight[job.Kind] = true
		s.log.Debug("Job submitted", job.logFields()...)
		return nil
	default:
		return ErrJobQueueFull
	}
}

// RunOnce submits a job for every configured kind without one in flight
// and returns how many were submitted.
func (s *Scheduler) RunOnce() int {
	submitted := 0
	for _, kind := range s.cfg.Kinds {
		err := s.SubmitJob(NewJob(kind, s.cfg.RetryAttempts))
		switch {
		case err == nil:
			submitted++
		case errors.Is(err, ErrJobInProgress):
			s.log.Debug("Queue kind still in flight", zap.String("kind", string(kind)))
		default:
			s.log.Warn("Auto-process job not submitted", zap.String("kind", string(kind)), zap.Error(err))
		}
	}
	return submitted
}

func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunOnce()
		}
	}
}

func (s *Scheduler) work(ctx context.Context, jobs <-chan *Job, id int) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			s.run(ctx, job, id)
		}
	}
}

func (s *Scheduler) release(kind integration.QueueKind) {
	s.mu.Lock()
	delete(s.inFlight, kind)
	s.mu.Unlock()
}

func (s *Scheduler) run(ctx context.Context, job *Job, worker int) {
	job.Start()
	jobCtx, cancel := context.WithTimeout(ctx, s.cfg.JobTimeout)
	err := s.executor.Execute(jobCtx, job)
	cancel()

	if err == nil {
		job.Complete()
		s.release(job.Kind)
		s.log.Debug("Job completed", job.logFields(zap.Int("worker", worker))...)
		return
	}

	job.Fail(err.Error())
	s.log.Error("Job failed", job.logFields(zap.Int("worker", worker), zap.Error(err))...)
	if !job.ShouldRetry() || ctx.Err() != nil {
		s.release(job.Kind)
		return
	}

	job.ScheduleRetry()
	s.log.Info("Job retry scheduled", job.logFields(zap.Duration("delay", s.cfg.RetryDelay))...)
	time.AfterFunc(s.cfg.RetryDelay, func() {
		if err := s.SubmitJob(job); err != nil {
			s.release(job.Kind)
			s.log.Warn("Job retry dropped", job.logFields(zap.Error(err))...)
		}
	})
}
