package scheduler

import (
	"context"
	"sync"

	"github.com/erp/channelsync/internal/application/report"
	"github.com/erp/channelsync/internal/domain/integration"
)

// memRuns records every saved run state.
type memRuns struct {
	mu    sync.Mutex
	saves []integration.SyncRun
	err   error
}

func (m *memRuns) Save(_ context.Context, run *integration.SyncRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.saves = append(m.saves, *run)
	return nil
}

func (m *memRuns) ListRecent(_ context.Context, job integration.JobType, limit int) ([]integration.SyncRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []integration.SyncRun
	for i := len(m.saves) - 1; i >= 0 && len(out) < limit; i-- {
		if job == "" || m.saves[i].Job == job {
			out = append(out, m.saves[i])
		}
	}
	return out, nil
}

func (m *memRuns) statuses() []integration.SyncStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]integration.SyncStatus, 0, len(m.saves))
	for _, r := range m.saves {
		out = append(out, r.Status)
	}
	return out
}

type reported struct {
	run     integration.SyncRun
	summary integration.RunSummary
}

// recordingReporter captures reported runs.
type recordingReporter struct {
	mu   sync.Mutex
	runs []reported
}

func (r *recordingReporter) Report(_ context.Context, run *integration.SyncRun, summary integration.RunSummary) (*report.Report, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, reported{run: *run, summary: summary})
	return report.Build(run, summary), nil
}

func (r *recordingReporter) all() []reported {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]reported(nil), r.runs...)
}

// fakeSummary is a minimal engine result.
type fakeSummary struct {
	Processed int `json:"processed"`
	Updated   int `json:"updated"`
	Errors    int `json:"errors"`
}

func (s *fakeSummary) Counts() []integration.Count {
	return []integration.Count{
		{Name: "processed", Value: s.Processed},
		{Name: "updated", Value: s.Updated},
		{Name: "errors", Value: s.Errors},
	}
}

func (s *fakeSummary) Samples() []string { return []string{} }

func (s *fakeSummary) Outcome() integration.SyncStatus {
	if s.Errors > 0 {
		return integration.SyncStatusPartial
	}
	return integration.SyncStatusSuccess
}

func (s *fakeSummary) Tally() (int, int, int) { return s.Processed, s.Updated, s.Errors }
