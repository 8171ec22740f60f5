package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/erp/channelsync/internal/domain/integration"
	"go.uber.org/zap"
)

// IntervalTriggerConfig holds the per-job intervals
type IntervalTriggerConfig struct {
	// CheckInterval is how often due jobs are looked for
	CheckInterval time.Duration
	// Intervals maps a job to its period. Jobs without a positive interval
	// only run when triggered manually.
	Intervals map[integration.JobType]time.Duration
	// RunOnStart queues every scheduled job on the first check
	RunOnStart bool
}

// IntervalTrigger queues jobs on the scheduler when their interval has elapsed
type IntervalTrigger struct {
	config    IntervalTriggerConfig
	scheduler *Scheduler
	logger    *zap.Logger
	now       func() time.Time

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool

	lastScheduled map[integration.JobType]time.Time
}

// NewIntervalTrigger creates a new interval trigger
func NewIntervalTrigger(config IntervalTriggerConfig, scheduler *Scheduler, logger *zap.Logger) *IntervalTrigger {
	if config.CheckInterval <= 0 {
		config.CheckInterval = 30 * time.Second
	}
	return &IntervalTrigger{
		config:        config,
		scheduler:     scheduler,
		logger:        logger,
		now:           time.Now,
		lastScheduled: make(map[integration.JobType]time.Time),
	}
}

// Start starts the trigger loop
func (t *IntervalTrigger) Start(ctx context.Context) error {
	t.mu.Lock()
	if t.isRunning {
		t.mu.Unlock()
		return nil
	}
	t.isRunning = true
	t.mu.Unlock()

	if !t.config.RunOnStart {
		now := t.now()
		t.mu.Lock()
		for job := range t.config.Intervals {
			t.lastScheduled[job] = now
		}
		t.mu.Unlock()
	}

	ctx, cancel := context.WithCancel(ctx)
	t.cancel = cancel

	t.wg.Add(1)
	go t.runLoop(ctx)

	t.logger.Info("Interval trigger started",
		zap.Duration("check_interval", t.config.CheckInterval),
		zap.Bool("run_on_start", t.config.RunOnStart),
	)
	return nil
}

// Stop stops the trigger loop
func (t *IntervalTrigger) Stop(ctx context.Context) error {
	t.mu.Lock()
	if !t.isRunning {
		t.mu.Unlock()
		return nil
	}
	t.isRunning = false
	t.mu.Unlock()

	if t.cancel != nil {
		t.cancel()
	}

	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		t.logger.Info("Interval trigger stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *IntervalTrigger) runLoop(ctx context.Context) {
	defer t.wg.Done()

	ticker := time.NewTicker(t.config.CheckInterval)
	defer ticker.Stop()

	t.checkAndTrigger()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.checkAndTrigger()
		}
	}
}

// checkAndTrigger queues every job whose interval has elapsed
func (t *IntervalTrigger) checkAndTrigger() {
	now := t.now()
	for _, job := range integration.AllJobTypes() {
		interval := t.config.Intervals[job]
		if interval <= 0 || !t.isDue(job, interval, now) {
			continue
		}

		err := t.scheduler.Trigger(job, TriggerSchedule)
		switch {
		case err == nil, errors.Is(err, ErrJobAlreadyQueued):
			// a queued or running job satisfies this period
			t.markScheduled(job, now)
		case errors.Is(err, ErrUnknownJob):
			t.logger.Warn("Interval configured for unregistered job", zap.String("job", job.String()))
			t.markScheduled(job, now)
		default:
			t.logger.Error("Failed to queue scheduled job", zap.String("job", job.String()), zap.Error(err))
		}
	}
}

func (t *IntervalTrigger) isDue(job integration.JobType, interval time.Duration, now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	last, ok := t.lastScheduled[job]
	return !ok || now.Sub(last) >= interval
}

func (t *IntervalTrigger) markScheduled(job integration.JobType, at time.Time) {
	t.mu.Lock()
	t.lastScheduled[job] = at
	t.mu.Unlock()
}
