package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/erp/channelsync/internal/domain/integration"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestIntervalTrigger_CheckAndTrigger(t *testing.T) {
	s, runs := newTestScheduler(t,
		staticJob(integration.JobOrderIngest, &fakeSummary{}, nil),
		staticJob(integration.JobShipmentSync, &fakeSummary{}, nil),
	)
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop(context.Background())

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	tr := NewIntervalTrigger(IntervalTriggerConfig{
		Intervals: map[integration.JobType]time.Duration{
			integration.JobOrderIngest:  10 * time.Minute,
			integration.JobShipmentSync: time.Hour,
		},
	}, s, zaptest.NewLogger(t))
	tr.now = func() time.Time { return now }

	// first period starts at Start; nothing is due yet
	tr.lastScheduled[integration.JobOrderIngest] = now
	tr.lastScheduled[integration.JobShipmentSync] = now
	tr.checkAndTrigger()

	now = now.Add(15 * time.Minute)
	tr.checkAndTrigger()

	require.Eventually(t, func() bool {
		recent, _ := runs.ListRecent(context.Background(), "", 10)
		return len(recent) == 2
	}, 2*time.Second, 10*time.Millisecond)

	recent, _ := runs.ListRecent(context.Background(), "", 10)
	for _, r := range recent {
		assert.Equal(t, integration.JobOrderIngest, r.Job)
		assert.Equal(t, TriggerSchedule, r.Trigger)
	}
	assert.Equal(t, now, tr.lastScheduled[integration.JobOrderIngest])
	assert.Equal(t, now.Add(-15*time.Minute), tr.lastScheduled[integration.JobShipmentSync])
}

func TestIntervalTrigger_RunOnStart(t *testing.T) {
	s, runs := newTestScheduler(t, staticJob(integration.JobInventoryReconcile, &fakeSummary{}, nil))
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop(context.Background())

	tr := NewIntervalTrigger(IntervalTriggerConfig{
		CheckInterval: time.Hour,
		RunOnStart:    true,
		Intervals: map[integration.JobType]time.Duration{
			integration.JobInventoryReconcile: 6 * time.Hour,
		},
	}, s, zaptest.NewLogger(t))

	require.NoError(t, tr.Start(context.Background()))
	defer tr.Stop(context.Background())

	require.Eventually(t, func() bool {
		st := runs.statuses()
		return len(st) == 2 && st[1] == integration.SyncStatusSuccess
	}, 2*time.Second, 10*time.Millisecond)
}

func TestIntervalTrigger_ManualOnlyJobsNeverScheduled(t *testing.T) {
	s, runs := newTestScheduler(t, staticJob(integration.JobInventoryPush, &fakeSummary{}, nil))
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop(context.Background())

	tr := NewIntervalTrigger(IntervalTriggerConfig{RunOnStart: true}, s, zaptest.NewLogger(t))
	tr.checkAndTrigger()

	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, runs.statuses())
}
