package dto

import (
	"encoding/json"
	"time"

	"github.com/erp/channelsync/internal/domain/integration"
)

// ListRunsRequest holds the query of GET /runs
type ListRunsRequest struct {
	Job   string `form:"job"`
	Limit int    `form:"limit" binding:"omitempty,min=1,max=500"`
}

// SyncRunResponse is one run history entry
type SyncRunResponse struct {
	ID         string          `json:"id"`
	Job        string          `json:"job"`
	Trigger    string          `json:"trigger"`
	Status     string          `json:"status"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt *time.Time      `json:"finished_at,omitempty"`
	DurationMS int64           `json:"duration_ms"`
	Error      string          `json:"error,omitempty"`
	Summary    json.RawMessage `json:"summary,omitempty" swaggertype:"object"`
}

// NewSyncRunResponse converts a run record
func NewSyncRunResponse(run *integration.SyncRun) SyncRunResponse {
	resp := SyncRunResponse{
		ID:         run.ID.String(),
		Job:        run.Job.String(),
		Trigger:    run.Trigger,
		Status:     run.Status.String(),
		StartedAt:  run.StartedAt,
		FinishedAt: run.FinishedAt,
		DurationMS: run.Duration().Milliseconds(),
		Error:      run.Error,
	}
	if len(run.Summary) > 0 && json.Valid(run.Summary) {
		resp.Summary = json.RawMessage(run.Summary)
	}
	return resp
}

// TriggerResponse acknowledges a queued job
type TriggerResponse struct {
	Job    string `json:"job"`
	Status string `json:"status"`
}
