package integration

import (
	"context"
	"fmt"

	"github.com/erp/channelsync/internal/domain/integration"
	"go.uber.org/zap"
)

// OrderRunResult aggregates the pages of one ingestion run
type OrderRunResult struct {
	Pages          int            `json:"pages"`
	OrdersReceived int            `json:"orders_received"`
	Created        int            `json:"created"`
	Updated        int            `json:"updated"`
	Unchanged      int            `json:"unchanged"`
	Skipped        int            `json:"skipped"`
	SkippedOrders  []SkippedOrder `json:"skipped_orders"`
	TotalRecords   int            `json:"total_records"`
	Errors         int            `json:"errors"`
	ErrorSamples   []string       `json:"error_samples"`
}

// Counts implements integration.RunSummary
func (r *OrderRunResult) Counts() []integration.Count {
	return []integration.Count{
		{Name: "pages", Value: r.Pages},
		{Name: "orders_received", Value: r.OrdersReceived},
		{Name: "created", Value: r.Created},
		{Name: "updated", Value: r.Updated},
		{Name: "unchanged", Value: r.Unchanged},
		{Name: "skipped", Value: r.Skipped},
		{Name: "errors", Value: r.Errors},
	}
}

// Samples implements integration.RunSummary
func (r *OrderRunResult) Samples() []string { return r.ErrorSamples }

// Outcome implements integration.RunSummary
func (r *OrderRunResult) Outcome() integration.SyncStatus { return outcome(r.Errors) }

// Tally implements integration.ItemTally. Skipped orders count as failed.
func (r *OrderRunResult) Tally() (processed, updated, failed int) {
	return r.OrdersReceived, r.Created + r.Updated, r.Errors + r.Skipped
}

func (r *OrderRunResult) add(page *IngestResult, samples *ErrorSamples) {
	r.Pages++
	r.OrdersReceived += page.OrdersReceived
	r.Created += page.Created
	r.Updated += page.Updated
	r.Unchanged += page.Unchanged
	r.Skipped += page.Skipped
	r.SkippedOrders = append(r.SkippedOrders, page.SkippedOrders...)
	r.TotalRecords = page.TotalRecords
	r.Errors += page.Errors
	for _, msg := range page.ErrorSamples {
		samples.AddMessage(msg)
	}
}

// OrderIngestionRunner drives OrderIngestor over consecutive pages.
type OrderIngestionRunner struct {
	ingestor    *OrderIngestor
	maxPages    int
	sampleLimit int
	logger      *zap.Logger
}

// NewOrderIngestionRunner creates a runner fetching at most maxPages pages.
func NewOrderIngestionRunner(ingestor *OrderIngestor, maxPages, sampleLimit int, logger *zap.Logger) *OrderIngestionRunner {
	if maxPages <= 0 {
		maxPages = 20
	}
	return &OrderIngestionRunner{
		ingestor:    ingestor,
		maxPages:    maxPages,
		sampleLimit: sampleLimit,
		logger:      logger,
	}
}

// Run ingests pages starting at 1 until a page is empty, the reported total
// has been reached or the page limit is hit. Failing to fetch the first page
// fails the run; a later fetch failure ends it with what was ingested.
func (r *OrderIngestionRunner) Run(ctx context.Context) (*OrderRunResult, error) {
	result := &OrderRunResult{SkippedOrders: []SkippedOrder{}}
	samples := NewErrorSamples(r.sampleLimit)

	for page := 1; page <= r.maxPages; page++ {
		if err := ctx.Err(); err != nil {
			result.ErrorSamples = samples.Items()
			return result, err
		}
		pr, err := r.ingestor.Sync(ctx, page)
		if err != nil {
			if page == 1 {
				return nil, err
			}
			r.logger.Error("Order page fetch failed, stopping", zap.Int("page", page), zap.Error(err))
			result.Errors++
			samples.Add(fmt.Sprintf("page %d", page), err)
			break
		}
		if pr.OrdersReceived == 0 {
			break
		}
		result.add(pr, samples)

		if pr.TotalRecords > 0 && page*pr.PageSize >= pr.TotalRecords {
			break
		}
		if page == r.maxPages {
			r.logger.Warn("Order page limit reached",
				zap.Int("max_pages", r.maxPages),
				zap.Int("total_records", pr.TotalRecords),
			)
		}
	}

	result.ErrorSamples = samples.Items()
	return result, nil
}
