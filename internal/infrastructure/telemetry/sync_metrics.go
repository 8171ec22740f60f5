package telemetry

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Attribute keys shared by sync metrics.
const (
	AttrJob    = attribute.Key("job")
	AttrStatus = attribute.Key("status")
	AttrTarget = attribute.Key("target")
)

// ItemCounts is the per-run item tally recorded after each job.
type ItemCounts struct {
	Processed int64
	Updated   int64
	Failed    int64
}

// SyncMetrics records job runs, item throughput and remote retries.
type SyncMetrics struct {
	runs          metric.Int64Counter
	runDuration   metric.Float64Histogram
	itemsProcess  metric.Int64Counter
	itemsUpdated  metric.Int64Counter
	itemsFailed   metric.Int64Counter
	remoteRetries metric.Int64Counter
}

// NewSyncMetrics creates the sync instruments on meter.
func NewSyncMetrics(meter metric.Meter) (*SyncMetrics, error) {
	m := &SyncMetrics{}
	var err error

	if m.runs, err = meter.Int64Counter("channelsync.runs",
		metric.WithDescription("Sync job runs by outcome"),
		metric.WithUnit("{run}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create runs counter: %w", err)
	}
	if m.runDuration, err = meter.Float64Histogram("channelsync.run.duration",
		metric.WithDescription("Sync job run duration"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.5, 1, 5, 15, 30, 60, 120, 300, 600, 1800),
	); err != nil {
		return nil, fmt.Errorf("failed to create run duration histogram: %w", err)
	}
	if m.itemsProcess, err = meter.Int64Counter("channelsync.items.processed",
		metric.WithDescription("Items examined by sync jobs"),
		metric.WithUnit("{item}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create items processed counter: %w", err)
	}
	if m.itemsUpdated, err = meter.Int64Counter("channelsync.items.updated",
		metric.WithDescription("Items changed by sync jobs"),
		metric.WithUnit("{item}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create items updated counter: %w", err)
	}
	if m.itemsFailed, err = meter.Int64Counter("channelsync.items.failed",
		metric.WithDescription("Items that failed during sync jobs"),
		metric.WithUnit("{item}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create items failed counter: %w", err)
	}
	if m.remoteRetries, err = meter.Int64Counter("channelsync.remote.retries",
		metric.WithDescription("Retried remote API requests"),
		metric.WithUnit("{retry}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create remote retries counter: %w", err)
	}
	return m, nil
}

// RecordRun records one finished run.
func (m *SyncMetrics) RecordRun(ctx context.Context, job, status string, d time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(AttrJob.String(job), AttrStatus.String(status))
	m.runs.Add(ctx, 1, attrs)
	m.runDuration.Record(ctx, d.Seconds(), attrs)
}

// RecordItems adds a run's item tally.
func (m *SyncMetrics) RecordItems(ctx context.Context, job string, c ItemCounts) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(AttrJob.String(job))
	m.itemsProcess.Add(ctx, c.Processed, attrs)
	m.itemsUpdated.Add(ctx, c.Updated, attrs)
	m.itemsFailed.Add(ctx, c.Failed, attrs)
}

// RecordRetry counts one retried request against target.
func (m *SyncMetrics) RecordRetry(ctx context.Context, target string) {
	if m == nil {
		return
	}
	m.remoteRetries.Add(ctx, 1, metric.WithAttributes(AttrTarget.String(target)))
}

// RetryHook adapts RecordRetry to the remote client's retry callback.
func (m *SyncMetrics) RetryHook(target string) func(err error, wait time.Duration) {
	return func(error, time.Duration) {
		m.RecordRetry(context.Background(), target)
	}
}

// RegisterDBPoolMetrics observes connection pool statistics of db.
func RegisterDBPoolMetrics(meter metric.Meter, db *sql.DB) error {
	open, err := meter.Int64ObservableGauge("channelsync.db.connections.open",
		metric.WithDescription("Open database connections"))
	if err != nil {
		return fmt.Errorf("failed to create open connections gauge: %w", err)
	}
	inUse, err := meter.Int64ObservableGauge("channelsync.db.connections.in_use",
		metric.WithDescription("Database connections in use"))
	if err != nil {
		return fmt.Errorf("failed to create in-use connections gauge: %w", err)
	}
	waits, err := meter.Int64ObservableCounter("channelsync.db.connections.wait_count",
		metric.WithDescription("Total waits for a database connection"))
	if err != nil {
		return fmt.Errorf("failed to create wait count counter: %w", err)
	}

	_, err = meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		stats := db.Stats()
		o.ObserveInt64(open, int64(stats.OpenConnections))
		o.ObserveInt64(inUse, int64(stats.InUse))
		o.ObserveInt64(waits, stats.WaitCount)
		return nil
	}, open, inUse, waits)
	if err != nil {
		return fmt.Errorf("failed to register pool stats callback: %w", err)
	}
	return nil
}
