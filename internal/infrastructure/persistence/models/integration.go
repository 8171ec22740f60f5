package models

import (
	"time"

	"github.com/erp/channelsync/internal/domain/integration"
	"github.com/google/uuid"
)

// SyncRunModel is the persistence model for a job run record.
type SyncRunModel struct {
	ID         uuid.UUID              `gorm:"type:uuid;primaryKey"`
	Job        integration.JobType    `gorm:"type:varchar(40);not null;index:idx_sync_runs_job_started,priority:1"`
	Trigger    string                 `gorm:"type:varchar(20);not null"`
	Status     integration.SyncStatus `gorm:"type:varchar(20);not null"`
	StartedAt  time.Time              `gorm:"not null;index:idx_sync_runs_job_started,priority:2"`
	FinishedAt *time.Time
	Summary    *string `gorm:"type:jsonb"`
	Error      string  `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (SyncRunModel) TableName() string {
	return "sync_runs"
}

// ToDomain converts the persistence model to a domain SyncRun.
func (m *SyncRunModel) ToDomain() *integration.SyncRun {
	r := &integration.SyncRun{
		ID:         m.ID,
		Job:        m.Job,
		Trigger:    m.Trigger,
		Status:     m.Status,
		StartedAt:  m.StartedAt,
		FinishedAt: m.FinishedAt,
		Error:      m.Error,
	}
	if m.Summary != nil {
		r.Summary = []byte(*m.Summary)
	}
	return r
}

// FromDomain populates the persistence model from a domain SyncRun.
func (m *SyncRunModel) FromDomain(r *integration.SyncRun) {
	m.ID = r.ID
	m.Job = r.Job
	m.Trigger = r.Trigger
	m.Status = r.Status
	m.StartedAt = r.StartedAt
	m.FinishedAt = r.FinishedAt
	m.Error = r.Error
	m.Summary = nil
	if len(r.Summary) > 0 {
		s := string(r.Summary)
		m.Summary = &s
	}
}
