package integration

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// JobType identifies one of the sync engines.
type JobType string

const (
	JobInventoryReconcile JobType = "inventory_reconcile"
	JobInventoryPush      JobType = "inventory_push"
	JobOrderIngest        JobType = "order_ingest"
	JobShipmentSync       JobType = "shipment_sync"
)

// AllJobTypes lists the job types in a stable order.
func AllJobTypes() []JobType {
	return []JobType{JobInventoryReconcile, JobInventoryPush, JobOrderIngest, JobShipmentSync}
}

// IsValid checks if the job type is known
func (j JobType) IsValid() bool {
	switch j {
	case JobInventoryReconcile, JobInventoryPush, JobOrderIngest, JobShipmentSync:
		return true
	}
	return false
}

// String returns the string representation of JobType
func (j JobType) String() string {
	return string(j)
}

// ParseJobType accepts the canonical names and the short CLI aliases.
func ParseJobType(s string) (JobType, error) {
	switch s {
	case "inventory", "reconcile":
		return JobInventoryReconcile, nil
	case "push":
		return JobInventoryPush, nil
	case "orders":
		return JobOrderIngest, nil
	case "shipments":
		return JobShipmentSync, nil
	}
	if j := JobType(s); j.IsValid() {
		return j, nil
	}
	return "", fmt.Errorf("integration: unknown job type %q", s)
}

// SyncStatus represents the outcome of a run
type SyncStatus string

const (
	SyncStatusInProgress SyncStatus = "IN_PROGRESS"
	SyncStatusSuccess    SyncStatus = "SUCCESS"
	SyncStatusPartial    SyncStatus = "PARTIAL"
	SyncStatusFailed     SyncStatus = "FAILED"
	SyncStatusSkipped    SyncStatus = "SKIPPED"
)

// IsValid checks if the sync status is valid
func (s SyncStatus) IsValid() bool {
	switch s {
	case SyncStatusInProgress, SyncStatusSuccess, SyncStatusPartial, SyncStatusFailed, SyncStatusSkipped:
		return true
	}
	return false
}

// String returns the string representation of SyncStatus
func (s SyncStatus) String() string {
	return string(s)
}

// Count is one labelled figure of a run summary.
type Count struct {
	Name  string
	Value int
}

// RunSummary is implemented by every engine result.
type RunSummary interface {
	// Counts returns the figures of the run in a deterministic order.
	Counts() []Count
	// Samples returns truncated error messages, bounded in number.
	Samples() []string
	// Outcome classifies the run: SUCCESS, or PARTIAL when items failed.
	Outcome() SyncStatus
}

// ItemTally is implemented by results that report item throughput.
type ItemTally interface {
	Tally() (processed, updated, failed int)
}

// SyncRun is the persisted record of one job execution.
type SyncRun struct {
	ID         uuid.UUID
	Job        JobType
	Trigger    string
	Status     SyncStatus
	StartedAt  time.Time
	FinishedAt *time.Time
	Summary    []byte
	Error      string
}

// NewSyncRun starts a run record.
func NewSyncRun(job JobType, trigger string, startedAt time.Time) *SyncRun {
	return &SyncRun{
		ID:        uuid.New(),
		Job:       job,
		Trigger:   trigger,
		Status:    SyncStatusInProgress,
		StartedAt: startedAt,
	}
}

// Finish closes the run with a final status.
func (r *SyncRun) Finish(status SyncStatus, summary []byte, runErr error, at time.Time) {
	r.Status = status
	r.Summary = summary
	if runErr != nil {
		r.Error = runErr.Error()
	}
	r.FinishedAt = &at
}

// Duration returns how long the run took, zero while in progress.
func (r *SyncRun) Duration() time.Duration {
	if r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// SyncRunRepository persists run history.
type SyncRunRepository interface {
	Save(ctx context.Context, run *SyncRun) error
	ListRecent(ctx context.Context, job JobType, limit int) ([]SyncRun, error)
}

// RunLock grants a lease per job type. Acquire returns ErrRunLockHeld when
// another holder owns the lease.
type RunLock interface {
	Acquire(ctx context.Context, job JobType, ttl time.Duration) (Lease, error)
}

// Lease is a held run lock.
type Lease interface {
	Release(ctx context.Context) error
}
