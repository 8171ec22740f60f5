package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/erp/channelsync/internal/application/report"
	"github.com/erp/channelsync/internal/domain/integration"
	"github.com/erp/channelsync/internal/infrastructure/logger"
	"github.com/erp/channelsync/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// RunReporter delivers the report of a finished run.
type RunReporter interface {
	Report(ctx context.Context, run *integration.SyncRun, summary integration.RunSummary) (*report.Report, error)
}

// RunnerConfig holds the per-run limits
type RunnerConfig struct {
	// Timeout bounds a single run. Zero means no limit.
	Timeout time.Duration
	// LockTTL is the lease duration; it must outlive Timeout.
	LockTTL time.Duration
}

// JobRunner executes one job under its run lock, records the run history,
// metrics and report.
type JobRunner struct {
	lock     integration.RunLock
	runs     integration.SyncRunRepository
	reporter RunReporter
	metrics  *telemetry.SyncMetrics
	config   RunnerConfig
	logger   *zap.Logger
	now      func() time.Time
}

// NewJobRunner creates a JobRunner. reporter and metrics may be nil.
func NewJobRunner(
	lock integration.RunLock,
	runs integration.SyncRunRepository,
	reporter RunReporter,
	metrics *telemetry.SyncMetrics,
	config RunnerConfig,
	logger *zap.Logger,
) *JobRunner {
	if config.LockTTL <= 0 {
		config.LockTTL = config.Timeout + 5*time.Minute
	}
	return &JobRunner{
		lock:     lock,
		runs:     runs,
		reporter: reporter,
		metrics:  metrics,
		config:   config,
		logger:   logger,
		now:      time.Now,
	}
}

// Run executes job and returns its run record. The error is non-nil only
// when the run ended FAILED and wraps ErrJobFailed. A run that finds the
// lock held is recorded as SKIPPED and returns no error.
func (r *JobRunner) Run(ctx context.Context, job Job, trigger string) (*integration.SyncRun, error) {
	run := integration.NewSyncRun(job.Type(), trigger, r.now())
	ctx, log := logger.WithJobRun(ctx, r.logger, job.Type().String(), run.ID.String())
	// bookkeeping must survive a cancelled or timed out run
	bg := context.WithoutCancel(ctx)

	lease, err := r.lock.Acquire(ctx, job.Type(), r.config.LockTTL)
	if errors.Is(err, integration.ErrRunLockHeld) {
		log.Info("Run lock held by another runner, skipping")
		run.Finish(integration.SyncStatusSkipped, nil, nil, r.now())
		r.record(bg, log, run, nil)
		return run, nil
	}
	if err != nil {
		runErr := fmt.Errorf("acquire run lock: %w", err)
		run.Finish(integration.SyncStatusFailed, nil, runErr, r.now())
		r.record(bg, log, run, nil)
		return run, fmt.Errorf("%w: %s: %w", ErrJobFailed, job.Type(), runErr)
	}
	defer func() {
		if err := lease.Release(bg); err != nil {
			log.Warn("Failed to release run lock", zap.Error(err))
		}
	}()

	if err := r.runs.Save(bg, run); err != nil {
		log.Warn("Failed to record run start", zap.Error(err))
	}
	log.Info("Sync job started", zap.String("trigger", trigger))

	summary, runErr := r.execute(ctx, job, trigger)

	status := integration.SyncStatusFailed
	if runErr == nil {
		status = integration.SyncStatusSuccess
		if summary != nil {
			status = summary.Outcome()
		}
	}
	var encoded []byte
	if summary != nil {
		if encoded, err = json.Marshal(summary); err != nil {
			log.Warn("Failed to encode run summary", zap.Error(err))
		}
	}
	run.Finish(status, encoded, runErr, r.now())
	r.record(bg, log, run, summary)

	if runErr != nil {
		return run, fmt.Errorf("%w: %s: %w", ErrJobFailed, job.Type(), runErr)
	}
	return run, nil
}

func (r *JobRunner) execute(ctx context.Context, job Job, trigger string) (summary integration.RunSummary, err error) {
	if r.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.config.Timeout)
		defer cancel()
	}
	ctx, span := telemetry.StartSpan(ctx, "sync."+job.Type().String(),
		attribute.String("sync.job", job.Type().String()),
		attribute.String("sync.trigger", trigger),
	)
	defer func() { telemetry.EndSpan(span, err) }()

	labels := map[string]string{
		telemetry.LabelJob:     job.Type().String(),
		telemetry.LabelTrigger: trigger,
	}
	telemetry.WithProfilingLabels(ctx, labels, func(ctx context.Context) {
		summary, err = job.Run(ctx)
	})
	return summary, err
}

func (r *JobRunner) record(ctx context.Context, log *zap.Logger, run *integration.SyncRun, summary integration.RunSummary) {
	if err := r.runs.Save(ctx, run); err != nil {
		log.Error("Failed to record run", zap.Error(err))
	}

	r.metrics.RecordRun(ctx, run.Job.String(), run.Status.String(), run.Duration())
	if tally, ok := summary.(integration.ItemTally); ok {
		processed, updated, failed := tally.Tally()
		r.metrics.RecordItems(ctx, run.Job.String(), telemetry.ItemCounts{
			Processed: int64(processed),
			Updated:   int64(updated),
			Failed:    int64(failed),
		})
	}

	fields := []zap.Field{
		zap.String("status", run.Status.String()),
		zap.Duration("duration", run.Duration()),
	}
	if run.Error != "" {
		log.Error("Sync job failed", append(fields, zap.String("error", run.Error))...)
	} else {
		log.Info("Sync job finished", fields...)
	}

	if r.reporter == nil {
		return
	}
	if _, err := r.reporter.Report(ctx, run, summary); err != nil {
		log.Warn("Run report incomplete", zap.Error(err))
	}
}
