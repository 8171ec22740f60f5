package integration

import (
	"context"
	"errors"
	"fmt"

	"github.com/erp/channelsync/internal/domain/catalog"
	"github.com/erp/channelsync/internal/domain/integration"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PushConfig holds the settings of the inventory push engine
type PushConfig struct {
	BatchSize        int
	ErrorSampleLimit int
}

// PushResult summarizes one push run
type PushResult struct {
	ProductsProcessed   int      `json:"products_processed"`
	ProductsUpdated     int      `json:"products_updated"`
	VariationsProcessed int      `json:"variations_processed"`
	VariationsUpdated   int      `json:"variations_updated"`
	Skipped             int      `json:"skipped"`
	Errors              int      `json:"errors"`
	ErrorSamples        []string `json:"error_samples"`
	SkippedSKUs         []string `json:"skipped_skus"`
}

// Counts implements integration.RunSummary
func (r *PushResult) Counts() []integration.Count {
	return []integration.Count{
		{Name: "products_processed", Value: r.ProductsProcessed},
		{Name: "products_updated", Value: r.ProductsUpdated},
		{Name: "variations_processed", Value: r.VariationsProcessed},
		{Name: "variations_updated", Value: r.VariationsUpdated},
		{Name: "skipped", Value: r.Skipped},
		{Name: "errors", Value: r.Errors},
	}
}

// Samples implements integration.RunSummary
func (r *PushResult) Samples() []string { return r.ErrorSamples }

// Outcome implements integration.RunSummary
func (r *PushResult) Outcome() integration.SyncStatus { return outcome(r.Errors) }

// Tally implements integration.ItemTally
func (r *PushResult) Tally() (processed, updated, failed int) {
	return r.ProductsProcessed + r.VariationsProcessed, r.ProductsUpdated + r.VariationsUpdated, r.Errors
}

// InventoryPusher pushes local stock levels to the marketplace.
type InventoryPusher struct {
	marketplace integration.Marketplace
	products    catalog.ProductRepository
	config      PushConfig
	logger      *zap.Logger
}

// NewInventoryPusher creates a new InventoryPusher
func NewInventoryPusher(
	marketplace integration.Marketplace,
	products catalog.ProductRepository,
	config PushConfig,
	logger *zap.Logger,
) *InventoryPusher {
	if config.BatchSize <= 0 {
		config.BatchSize = 100
	}
	return &InventoryPusher{
		marketplace: marketplace,
		products:    products,
		config:      config,
		logger:      logger,
	}
}

type pushRun struct {
	result   *PushResult
	samples  *ErrorSamples
	sink     EventSink
	attempts int
}

// SyncInventory walks all local products in primary key order and pushes the
// stock of every product and variation that has a remote mapping. A nil sink
// discards events.
//
// The run fails only when the product batch cannot be read or when the
// marketplace rejects the credentials on the first push.
func (p *InventoryPusher) SyncInventory(ctx context.Context, sink EventSink) (*PushResult, error) {
	if sink == nil {
		sink = nopEventSink{}
	}
	run := &pushRun{
		result: &PushResult{
			ErrorSamples: []string{},
			SkippedSKUs:  []string{},
		},
		samples: NewErrorSamples(p.config.ErrorSampleLimit),
		sink:    sink,
	}

	afterID := uuid.Nil
	for {
		batch, err := p.products.ListBatch(ctx, afterID, p.config.BatchSize)
		if err != nil {
			return nil, fmt.Errorf("list products after %s: %w", afterID, err)
		}
		if len(batch) == 0 {
			break
		}

		for i := range batch {
			if err := ctx.Err(); err != nil {
				run.result.ErrorSamples = run.samples.Items()
				return run.result, err
			}
			if err := p.pushProduct(ctx, run, &batch[i]); err != nil {
				return nil, err
			}
		}

		afterID = batch[len(batch)-1].ID
		sink.Emit(ctx, ProgressEvent{
			Type:      EventProgress,
			Scope:     ScopeBatch,
			Message:   fmt.Sprintf("pushed batch ending at %s", batch[len(batch)-1].SKU),
			Processed: run.result.ProductsProcessed,
		})
		if len(batch) < p.config.BatchSize {
			break
		}
	}

	run.result.ErrorSamples = run.samples.Items()
	p.logger.Info("Inventory push finished",
		zap.Int("products_processed", run.result.ProductsProcessed),
		zap.Int("products_updated", run.result.ProductsUpdated),
		zap.Int("variations_updated", run.result.VariationsUpdated),
		zap.Int("skipped", run.result.Skipped),
		zap.Int("errors", run.result.Errors),
	)
	return run.result, nil
}

// pushProduct returns an error only for catastrophic failures.
func (p *InventoryPusher) pushProduct(ctx context.Context, run *pushRun, product *catalog.Product) error {
	run.result.ProductsProcessed++

	if !product.HasRemoteMapping() {
		run.result.Skipped++
		run.result.SkippedSKUs = append(run.result.SkippedSKUs, product.SKU)
	} else {
		ok, err := p.push(ctx, run, ScopeProduct, integration.StockUpdate{
			SKU:             product.SKU,
			RemoteProductID: product.RemoteProductID,
			StockQuantity:   product.StockQuantity,
		})
		if err != nil {
			return err
		}
		if ok {
			run.result.ProductsUpdated++
		}
	}

	for i := range product.Variations {
		v := &product.Variations[i]
		run.result.VariationsProcessed++
		if !v.HasRemoteMapping() {
			run.result.Skipped++
			run.result.SkippedSKUs = append(run.result.SkippedSKUs, v.SKU)
			continue
		}
		ok, err := p.push(ctx, run, ScopeVariation, integration.StockUpdate{
			SKU:               v.SKU,
			RemoteProductID:   product.RemoteProductID,
			RemoteVariationID: v.RemoteVariationID,
			StockQuantity:     v.StockQuantity,
		})
		if err != nil {
			return err
		}
		if ok {
			run.result.VariationsUpdated++
		}
	}
	return nil
}

func (p *InventoryPusher) push(ctx context.Context, run *pushRun, scope string, update integration.StockUpdate) (bool, error) {
	run.attempts++
	err := p.marketplace.PushStock(ctx, update)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, integration.ErrRemoteUnauthorized) && run.attempts == 1 {
		return false, fmt.Errorf("push stock for %s: %w", update.SKU, err)
	}

	p.logger.Warn("Stock push failed",
		zap.String("scope", scope),
		zap.String("sku", update.SKU),
		zap.String("remote_id", update.RemoteID()),
		zap.Error(err),
	)
	run.result.Errors++
	run.samples.Add(update.SKU, err)
	run.sink.Emit(ctx, ProgressEvent{
		Type:    EventError,
		Scope:   scope,
		SKU:     update.SKU,
		Message: Truncate(err.Error(), maxSampleLength),
	})
	return false, nil
}
