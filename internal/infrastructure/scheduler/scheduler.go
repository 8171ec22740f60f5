// Package scheduler runs sync jobs on intervals and on demand.
package scheduler

import (
	"context"
	"sync"

	"github.com/erp/channelsync/internal/domain/integration"
	"go.uber.org/zap"
)

// SchedulerConfig holds scheduler configuration
type SchedulerConfig struct {
	Workers   int
	QueueSize int
}

// DefaultSchedulerConfig returns default scheduler configuration
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Workers:   2,
		QueueSize: 16,
	}
}

type request struct {
	job     Job
	trigger string
}

// Scheduler feeds submitted jobs to a worker pool. A job type is queued at
// most once at a time in this process; the run lock covers other processes.
type Scheduler struct {
	config SchedulerConfig
	runner *JobRunner
	jobs   map[integration.JobType]Job
	logger *zap.Logger

	queue     chan request
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
	pending   map[integration.JobType]bool
}

// NewScheduler creates a new scheduler for the given jobs
func NewScheduler(config SchedulerConfig, runner *JobRunner, jobs []Job, logger *zap.Logger) *Scheduler {
	def := DefaultSchedulerConfig()
	if config.Workers <= 0 {
		config.Workers = def.Workers
	}
	if config.QueueSize <= 0 {
		config.QueueSize = def.QueueSize
	}
	byType := make(map[integration.JobType]Job, len(jobs))
	for _, j := range jobs {
		byType[j.Type()] = j
	}
	return &Scheduler{
		config:  config,
		runner:  runner,
		jobs:    byType,
		logger:  logger,
		pending: make(map[integration.JobType]bool),
	}
}

// Start starts the worker pool
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return nil
	}
	s.isRunning = true
	s.queue = make(chan request, s.config.QueueSize)

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	for i := 0; i < s.config.Workers; i++ {
		s.wg.Add(1)
		go s.worker(ctx, i)
	}

	s.logger.Info("Sync scheduler started",
		zap.Int("workers", s.config.Workers),
		zap.Int("jobs", len(s.jobs)),
	)
	return nil
}

// Stop cancels running jobs and waits for the workers to exit
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	close(s.queue)
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Sync scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Sync scheduler stop timed out")
		return ctx.Err()
	}
}

// Trigger queues job with the given trigger label
func (s *Scheduler) Trigger(jobType integration.JobType, trigger string) error {
	job, ok := s.jobs[jobType]
	if !ok {
		return ErrUnknownJob
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isRunning {
		return ErrSchedulerNotRunning
	}
	if s.pending[jobType] {
		return ErrJobAlreadyQueued
	}

	select {
	case s.queue <- request{job: job, trigger: trigger}:
		s.pending[jobType] = true
		s.logger.Debug("Job queued",
			zap.String("job", jobType.String()),
			zap.String("trigger", trigger),
		)
		return nil
	default:
		return ErrJobQueueFull
	}
}

// Jobs returns the registered job types
func (s *Scheduler) Jobs() []integration.JobType {
	out := make([]integration.JobType, 0, len(s.jobs))
	for _, jt := range integration.AllJobTypes() {
		if _, ok := s.jobs[jt]; ok {
			out = append(out, jt)
		}
	}
	return out
}

func (s *Scheduler) worker(ctx context.Context, workerID int) {
	defer s.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case req, ok := <-s.queue:
			if !ok {
				return
			}
			s.process(ctx, req, workerID)
		}
	}
}

func (s *Scheduler) process(ctx context.Context, req request, workerID int) {
	defer func() {
		s.mu.Lock()
		delete(s.pending, req.job.Type())
		s.mu.Unlock()
	}()

	// JobRunner already logs and records failures
	if _, err := s.runner.Run(ctx, req.job, req.trigger); err != nil {
		s.logger.Debug("Worker finished failed job",
			zap.Int("worker_id", workerID),
			zap.String("job", req.job.Type().String()),
		)
	}
}
