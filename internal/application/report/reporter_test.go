package report

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/erp/channelsync/internal/domain/integration"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockNotifier is a mock implementation of Notifier
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Send(ctx context.Context, n Notification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

// memArchive keeps archived reports in memory.
type memArchive struct {
	objects map[string][]byte
	err     error
}

func (a *memArchive) Store(_ context.Context, r *Report, body []byte) (string, error) {
	if a.err != nil {
		return "", a.err
	}
	if a.objects == nil {
		a.objects = map[string][]byte{}
	}
	key := ArchiveKey("reports", r)
	a.objects[key] = body
	return key, nil
}

type summary struct {
	counts  []integration.Count
	samples []string
}

func (s summary) Counts() []integration.Count      { return s.counts }
func (s summary) Samples() []string                { return s.samples }
func (s summary) Outcome() integration.SyncStatus { return integration.SyncStatusPartial }

func finishedRun(status integration.SyncStatus, runErr error) *integration.SyncRun {
	start := time.Date(2025, 4, 2, 3, 0, 0, 0, time.UTC)
	run := integration.NewSyncRun(integration.JobInventoryReconcile, "schedule", start)
	run.ID = uuid.MustParse("8a4f0a5e-5f6b-4b8e-9d1e-1c2b3a4d5e6f")
	run.Finish(status, []byte(`{"pages":3}`), runErr, start.Add(1500*time.Millisecond))
	return run
}

var testSummary = summary{
	counts: []integration.Count{
		{Name: "pages", Value: 3},
		{Name: "products_updated", Value: 1234},
		{Name: "errors", Value: 2},
	},
	samples: []string{"SKU-1: timeout", "SKU-2: rejected"},
}

func TestReporter_Body(t *testing.T) {
	rp := NewReporter(nil, nil, Config{SubjectPrefix: "[sync]", Locale: "en"}, zap.NewNop())
	r := Build(finishedRun(integration.SyncStatusPartial, nil), testSummary)

	want := strings.Join([]string{
		"Job:      inventory_reconcile",
		"Run:      8a4f0a5e-5f6b-4b8e-9d1e-1c2b3a4d5e6f",
		"Trigger:  schedule",
		"Status:   PARTIAL",
		"Started:  2025-04-02T03:00:00Z",
		"Duration: 1.5s",
		"",
		"Counts",
		"  pages            3",
		"  products_updated 1,234",
		"  errors           2",
		"",
		"Error samples",
		"  - SKU-1: timeout",
		"  - SKU-2: rejected",
		"",
	}, "\n")
	assert.Equal(t, want, rp.Body(r))
	assert.Equal(t, rp.Body(r), rp.Body(Build(finishedRun(integration.SyncStatusPartial, nil), testSummary)),
		"rendering is deterministic")
	assert.Equal(t, "[sync] inventory_reconcile partial", rp.Subject(r))
}

func TestReporter_ReportsFailure(t *testing.T) {
	notifier := new(MockNotifier)
	notifier.On("Send", mock.Anything, mock.MatchedBy(func(n Notification) bool {
		return n.Subject == "inventory_reconcile failed" &&
			strings.Contains(n.Body, "Error\n  fetch inventory page 1: remote unavailable") &&
			n.Options["status"] == "FAILED" &&
			assert.ObjectsAreEqual([]string{"ops@example.com"}, n.Recipients)
	})).Return(nil).Once()

	rp := NewReporter(notifier, nil, Config{Recipients: []string{"ops@example.com"}}, zap.NewNop())
	run := finishedRun(integration.SyncStatusFailed, errors.New("fetch inventory page 1: remote unavailable"))

	r, err := rp.Report(context.Background(), run, nil)
	require.NoError(t, err)
	assert.Empty(t, r.Counts)
	notifier.AssertExpectations(t)
}

func TestReporter_SuccessNotification(t *testing.T) {
	t.Run("suppressed by default", func(t *testing.T) {
		notifier := new(MockNotifier)
		rp := NewReporter(notifier, nil, Config{}, zap.NewNop())
		_, err := rp.Report(context.Background(), finishedRun(integration.SyncStatusSuccess, nil), testSummary)
		require.NoError(t, err)
		notifier.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
	})

	t.Run("sent when enabled", func(t *testing.T) {
		notifier := new(MockNotifier)
		notifier.On("Send", mock.Anything, mock.Anything).Return(nil).Once()
		rp := NewReporter(notifier, nil, Config{NotifyOnSuccess: true}, zap.NewNop())
		_, err := rp.Report(context.Background(), finishedRun(integration.SyncStatusSuccess, nil), testSummary)
		require.NoError(t, err)
		notifier.AssertExpectations(t)
	})

	t.Run("skipped runs are never sent", func(t *testing.T) {
		notifier := new(MockNotifier)
		rp := NewReporter(notifier, nil, Config{NotifyOnSuccess: true}, zap.NewNop())
		_, err := rp.Report(context.Background(), finishedRun(integration.SyncStatusSkipped, nil), nil)
		require.NoError(t, err)
		notifier.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
	})
}

func TestReporter_Archive(t *testing.T) {
	archive := &memArchive{}
	rp := NewReporter(nil, archive, Config{}, zap.NewNop())

	_, err := rp.Report(context.Background(), finishedRun(integration.SyncStatusPartial, nil), testSummary)
	require.NoError(t, err)

	body, ok := archive.objects["reports/inventory_reconcile/2025/04/8a4f0a5e-5f6b-4b8e-9d1e-1c2b3a4d5e6f.json"]
	require.True(t, ok)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(body, &decoded))
	assert.Equal(t, "PARTIAL", decoded["status"])
	assert.Equal(t, map[string]any{"pages": float64(3)}, decoded["summary"])
}

func TestReporter_DeliveryFailures(t *testing.T) {
	notifier := new(MockNotifier)
	notifier.On("Send", mock.Anything, mock.Anything).Return(errors.New("webhook returned 502"))
	archive := &memArchive{err: errors.New("bucket missing")}
	rp := NewReporter(notifier, archive, Config{}, zap.NewNop())

	r, err := rp.Report(context.Background(), finishedRun(integration.SyncStatusPartial, nil), testSummary)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bucket missing")
	assert.NotNil(t, r)
	notifier.AssertExpectations(t)
}

func TestBuild_TruncatesError(t *testing.T) {
	run := finishedRun(integration.SyncStatusFailed, errors.New(strings.Repeat("e", 2000)))
	r := Build(run, nil)
	assert.Len(t, r.Error, maxErrorLength)
	assert.True(t, strings.HasSuffix(r.Error, "..."))
}
