package scheduler

import "errors"

var (
	// ErrSchedulerNotRunning is returned when trying to submit a job to a stopped scheduler
	ErrSchedulerNotRunning = errors.New("scheduler: not running")

	// ErrJobQueueFull is returned when the job queue is full
	ErrJobQueueFull = errors.New("scheduler: job queue is full")

	// ErrUnknownJob is returned for job types that have no registered job
	ErrUnknownJob = errors.New("scheduler: unknown job")

	// ErrJobAlreadyQueued is returned when the job is queued or running in this process
	ErrJobAlreadyQueued = errors.New("scheduler: job already queued")

	// ErrJobFailed wraps the error of a run that ended FAILED
	ErrJobFailed = errors.New("scheduler: job failed")
)
