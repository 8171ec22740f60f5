package scheduler

import (
	"context"

	appintegration "github.com/erp/channelsync/internal/application/integration"
	"github.com/erp/channelsync/internal/domain/integration"
)

// Run triggers recorded on sync_runs.
const (
	TriggerSchedule = "schedule"
	TriggerManual   = "manual"
	TriggerCLI      = "cli"
)

// Job is one runnable sync job.
type Job interface {
	Type() integration.JobType
	Run(ctx context.Context) (integration.RunSummary, error)
}

type funcJob struct {
	jobType integration.JobType
	fn      func(ctx context.Context) (integration.RunSummary, error)
}

// NewJob adapts fn into a Job.
func NewJob(jobType integration.JobType, fn func(ctx context.Context) (integration.RunSummary, error)) Job {
	return &funcJob{jobType: jobType, fn: fn}
}

func (j *funcJob) Type() integration.JobType { return j.jobType }

func (j *funcJob) Run(ctx context.Context) (integration.RunSummary, error) { return j.fn(ctx) }

// The adapters below return a nil interface, not a typed nil pointer, when
// an engine produced no result.

// ReconcileJob runs the inventory reconciliation engine.
func ReconcileJob(r *appintegration.InventoryReconciler) Job {
	return NewJob(integration.JobInventoryReconcile, func(ctx context.Context) (integration.RunSummary, error) {
		res, err := r.Sync(ctx)
		if res == nil {
			return nil, err
		}
		return res, err
	})
}

// PushJob runs the inventory push engine, emitting progress to sink.
func PushJob(p *appintegration.InventoryPusher, sink appintegration.EventSink) Job {
	return NewJob(integration.JobInventoryPush, func(ctx context.Context) (integration.RunSummary, error) {
		res, err := p.SyncInventory(ctx, sink)
		if res == nil {
			return nil, err
		}
		return res, err
	})
}

// OrderJob runs the order ingestion page runner.
func OrderJob(r *appintegration.OrderIngestionRunner) Job {
	return NewJob(integration.JobOrderIngest, func(ctx context.Context) (integration.RunSummary, error) {
		res, err := r.Run(ctx)
		if res == nil {
			return nil, err
		}
		return res, err
	})
}

// ShipmentJob runs the shipment synchronizer over all active shipments.
func ShipmentJob(s *appintegration.ShipmentSynchronizer) Job {
	return NewJob(integration.JobShipmentSync, func(ctx context.Context) (integration.RunSummary, error) {
		res, err := s.SyncActive(ctx)
		if res == nil {
			return nil, err
		}
		return res, err
	})
}
