package handler

import (
	"errors"

	"github.com/erp/channelsync/internal/domain/integration"
	"github.com/erp/channelsync/internal/infrastructure/scheduler"
	"github.com/erp/channelsync/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

const defaultRunsLimit = 50

// JobTrigger queues sync jobs
type JobTrigger interface {
	Trigger(job integration.JobType, trigger string) error
	Jobs() []integration.JobType
}

// SyncHandler exposes run history and manual triggers
type SyncHandler struct {
	BaseHandler
	runs    integration.SyncRunRepository
	trigger JobTrigger
}

// NewSyncHandler creates a new SyncHandler
func NewSyncHandler(runs integration.SyncRunRepository, trigger JobTrigger) *SyncHandler {
	return &SyncHandler{runs: runs, trigger: trigger}
}

// RegisterRoutes registers the sync endpoints
func (h *SyncHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/runs", h.ListRuns)
	rg.GET("/jobs", h.ListJobs)
	rg.POST("/jobs/:job/trigger", h.TriggerJob)
}

// ListRuns returns recent runs, newest first
//
// @ID           listSyncRuns
// @Summary      List sync runs
// @Description  Returns the most recent runs, newest first, optionally filtered by job
// @Tags         sync
// @Produce      json
// @Param        job    query  string  false  "Job type (inventory, push, orders, shipments)"
// @Param        limit  query  int     false  "Maximum number of runs" minimum(1) maximum(500) default(50)
// @Success      200 {object} dto.Response{data=[]dto.SyncRunResponse}
// @Failure      400 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Router       /runs [get]
func (h *SyncHandler) ListRuns(c *gin.Context) {
	var req dto.ListRunsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	if req.Limit == 0 {
		req.Limit = defaultRunsLimit
	}

	var job integration.JobType
	if req.Job != "" {
		parsed, err := integration.ParseJobType(req.Job)
		if err != nil {
			h.BadRequest(c, err.Error())
			return
		}
		job = parsed
	}

	runs, err := h.runs.ListRecent(c.Request.Context(), job, req.Limit)
	if err != nil {
		h.InternalError(c, err)
		return
	}
	out := make([]dto.SyncRunResponse, 0, len(runs))
	for i := range runs {
		out = append(out, dto.NewSyncRunResponse(&runs[i]))
	}
	h.Success(c, out)
}

// ListJobs returns the job types the daemon can run
//
// @ID           listSyncJobs
// @Summary      List enabled jobs
// @Tags         sync
// @Produce      json
// @Success      200 {object} dto.Response{data=[]string}
// @Router       /jobs [get]
func (h *SyncHandler) ListJobs(c *gin.Context) {
	jobs := h.trigger.Jobs()
	out := make([]string, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, j.String())
	}
	h.Success(c, out)
}

// TriggerJob queues a manual run
//
// @ID           triggerSyncJob
// @Summary      Trigger a job
// @Description  Queues a manual run. The run itself happens on a scheduler worker.
// @Tags         sync
// @Produce      json
// @Param        job  path  string  true  "Job type (inventory, push, orders, shipments)"
// @Success      202 {object} dto.Response{data=dto.TriggerResponse}
// @Failure      400 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Failure      409 {object} dto.Response
// @Failure      429 {object} dto.Response
// @Failure      503 {object} dto.Response
// @Router       /jobs/{job}/trigger [post]
func (h *SyncHandler) TriggerJob(c *gin.Context) {
	job, err := integration.ParseJobType(c.Param("job"))
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	err = h.trigger.Trigger(job, scheduler.TriggerManual)
	switch {
	case err == nil:
		h.Accepted(c, dto.TriggerResponse{Job: job.String(), Status: "queued"})
	case errors.Is(err, scheduler.ErrUnknownJob):
		h.Error(c, dto.ErrCodeNotFound, "job is not enabled: "+job.String())
	case errors.Is(err, scheduler.ErrJobAlreadyQueued):
		h.Error(c, dto.ErrCodeConflict, "job is already queued or running")
	case errors.Is(err, scheduler.ErrJobQueueFull):
		h.Error(c, dto.ErrCodeRateLimited, "job queue is full")
	case errors.Is(err, scheduler.ErrSchedulerNotRunning):
		h.Error(c, dto.ErrCodeUnavailable, "scheduler is not running")
	default:
		h.InternalError(c, err)
	}
}
