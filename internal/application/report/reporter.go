package report

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/erp/channelsync/internal/domain/integration"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const maxErrorLength = 500

// Notification is one message handed to the delivery channel.
type Notification struct {
	Recipients []string          `json:"recipients"`
	Subject    string            `json:"subject"`
	Body       string            `json:"body"`
	Options    map[string]string `json:"options,omitempty"`
}

// Notifier delivers notifications.
type Notifier interface {
	Send(ctx context.Context, n Notification) error
}

// Archive stores rendered reports and returns where they were written.
type Archive interface {
	Store(ctx context.Context, r *Report, body []byte) (string, error)
}

// Report is the rendered outcome of one run.
type Report struct {
	RunID      uuid.UUID              `json:"run_id"`
	Job        integration.JobType    `json:"job"`
	Trigger    string                 `json:"trigger"`
	Status     integration.SyncStatus `json:"status"`
	StartedAt  time.Time              `json:"started_at"`
	FinishedAt time.Time              `json:"finished_at"`
	Duration   string                 `json:"duration"`
	Counts     []integration.Count    `json:"counts"`
	Samples    []string               `json:"error_samples"`
	Error      string                 `json:"error,omitempty"`
	Summary    json.RawMessage        `json:"summary,omitempty"`
}

// Config holds the reporting settings
type Config struct {
	Recipients      []string
	SubjectPrefix   string
	Locale          string
	NotifyOnSuccess bool
}

// Reporter turns finished runs into notifications and archived reports.
type Reporter struct {
	notifier Notifier
	archive  Archive
	config   Config
	printer  *message.Printer
	logger   *zap.Logger
}

// NewReporter creates a new Reporter. archive may be nil.
func NewReporter(notifier Notifier, archive Archive, cfg Config, logger *zap.Logger) *Reporter {
	tag, err := language.Parse(cfg.Locale)
	if err != nil {
		tag = language.English
	}
	return &Reporter{
		notifier: notifier,
		archive:  archive,
		config:   cfg,
		printer:  message.NewPrinter(tag),
		logger:   logger,
	}
}

// Build renders the report of a finished run. summary is nil for runs that
// failed before producing a result.
func Build(run *integration.SyncRun, summary integration.RunSummary) *Report {
	r := &Report{
		RunID:     run.ID,
		Job:       run.Job,
		Trigger:   run.Trigger,
		Status:    run.Status,
		StartedAt: run.StartedAt.UTC(),
		Duration:  run.Duration().Round(time.Millisecond).String(),
		Counts:    []integration.Count{},
		Samples:   []string{},
		Error:     truncate(run.Error, maxErrorLength),
	}
	if run.FinishedAt != nil {
		r.FinishedAt = run.FinishedAt.UTC()
	}
	if summary != nil {
		r.Counts = summary.Counts()
		r.Samples = append(r.Samples, summary.Samples()...)
	}
	if len(run.Summary) > 0 {
		r.Summary = json.RawMessage(run.Summary)
	}
	return r
}

// Subject returns the notification subject of r.
func (rp *Reporter) Subject(r *Report) string {
	subject := fmt.Sprintf("%s %s", r.Job, strings.ToLower(r.Status.String()))
	if rp.config.SubjectPrefix != "" {
		subject = rp.config.SubjectPrefix + " " + subject
	}
	return subject
}

// Body renders r as plain text. The output depends only on r.
func (rp *Reporter) Body(r *Report) string {
	var b strings.Builder
	rp.printer.Fprintf(&b, "Job:      %s\n", r.Job)
	rp.printer.Fprintf(&b, "Run:      %s\n", r.RunID)
	rp.printer.Fprintf(&b, "Trigger:  %s\n", r.Trigger)
	rp.printer.Fprintf(&b, "Status:   %s\n", r.Status)
	rp.printer.Fprintf(&b, "Started:  %s\n", r.StartedAt.Format(time.RFC3339))
	rp.printer.Fprintf(&b, "Duration: %s\n", r.Duration)

	if len(r.Counts) > 0 {
		b.WriteString("\nCounts\n")
		width := 0
		for _, c := range r.Counts {
			if len(c.Name) > width {
				width = len(c.Name)
			}
		}
		line := fmt.Sprintf("  %%-%ds %%d\n", width)
		for _, c := range r.Counts {
			rp.printer.Fprintf(&b, line, c.Name, c.Value)
		}
	}
	if r.Error != "" {
		rp.printer.Fprintf(&b, "\nError\n  %s\n", r.Error)
	}
	if len(r.Samples) > 0 {
		b.WriteString("\nError samples\n")
		for _, s := range r.Samples {
			rp.printer.Fprintf(&b, "  - %s\n", s)
		}
	}
	return b.String()
}

// shouldNotify reports whether a run of status s is worth a message.
func (rp *Reporter) shouldNotify(s integration.SyncStatus) bool {
	switch s {
	case integration.SyncStatusSkipped, integration.SyncStatusInProgress:
		return false
	case integration.SyncStatusSuccess:
		return rp.config.NotifyOnSuccess
	}
	return true
}

// Report archives and dispatches the report of a finished run. Archive and
// delivery failures are logged; the first one is returned.
func (rp *Reporter) Report(ctx context.Context, run *integration.SyncRun, summary integration.RunSummary) (*Report, error) {
	r := Build(run, summary)
	log := rp.logger.With(
		zap.String("job", r.Job.String()),
		zap.String("run_id", r.RunID.String()),
		zap.String("status", r.Status.String()),
	)

	var firstErr error
	if rp.archive != nil && r.Status != integration.SyncStatusSkipped {
		body, err := json.MarshalIndent(r, "", "  ")
		if err != nil {
			return r, fmt.Errorf("encode report: %w", err)
		}
		location, err := rp.archive.Store(ctx, r, body)
		if err != nil {
			log.Error("Failed to archive report", zap.Error(err))
			firstErr = fmt.Errorf("archive report: %w", err)
		} else {
			log.Debug("Report archived", zap.String("location", location))
		}
	}

	if rp.notifier == nil || !rp.shouldNotify(r.Status) {
		return r, firstErr
	}
	n := Notification{
		Recipients: rp.config.Recipients,
		Subject:    rp.Subject(r),
		Body:       rp.Body(r),
		Options: map[string]string{
			"job":    r.Job.String(),
			"run_id": r.RunID.String(),
			"status": r.Status.String(),
		},
	}
	if err := rp.notifier.Send(ctx, n); err != nil {
		log.Error("Failed to send report", zap.Error(err))
		if firstErr == nil {
			firstErr = fmt.Errorf("send report: %w", err)
		}
	}
	return r, firstErr
}

// ArchiveKey returns the object key of r under prefix:
// <prefix>/<job>/<yyyy>/<mm>/<run-id>.json.
func ArchiveKey(prefix string, r *Report) string {
	at := r.StartedAt.UTC()
	return path.Join(prefix, r.Job.String(), at.Format("2006"), at.Format("01"), r.RunID.String()+".json")
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-3]) + "..."
}
