package integration

import (
	"context"
	"errors"
	"fmt"

	"github.com/erp/channelsync/internal/domain/catalog"
	"github.com/erp/channelsync/internal/domain/integration"
	"github.com/erp/channelsync/internal/domain/shared"
	"go.uber.org/zap"
)

// ReconcileConfig holds the settings of the inventory reconciliation engine
type ReconcileConfig struct {
	PageSize         int
	MaxPages         int
	ErrorSampleLimit int
}

// ReconcileResult summarizes one reconciliation run
type ReconcileResult struct {
	Pages             int      `json:"pages"`
	ProductsUpdated   int      `json:"products_updated"`
	VariationsUpdated int      `json:"variations_updated"`
	MissingProducts   []string `json:"missing_products"`
	MissingVariations []string `json:"missing_variations"`
	Errors            int      `json:"errors"`
	ErrorSamples      []string `json:"error_samples"`

	received int
}

// Counts implements integration.RunSummary
func (r *ReconcileResult) Counts() []integration.Count {
	return []integration.Count{
		{Name: "pages", Value: r.Pages},
		{Name: "products_updated", Value: r.ProductsUpdated},
		{Name: "variations_updated", Value: r.VariationsUpdated},
		{Name: "missing_products", Value: len(r.MissingProducts)},
		{Name: "missing_variations", Value: len(r.MissingVariations)},
		{Name: "errors", Value: r.Errors},
	}
}

// Samples implements integration.RunSummary
func (r *ReconcileResult) Samples() []string { return r.ErrorSamples }

// Outcome implements integration.RunSummary
func (r *ReconcileResult) Outcome() integration.SyncStatus { return outcome(r.Errors) }

// Tally implements integration.ItemTally
func (r *ReconcileResult) Tally() (processed, updated, failed int) {
	return r.received, r.ProductsUpdated + r.VariationsUpdated, r.Errors
}

// InventoryReconciler merges the marketplace's authoritative inventory into
// local products. It never creates products: unknown SKUs are reported.
type InventoryReconciler struct {
	marketplace integration.Marketplace
	products    catalog.ProductRepository
	txScope     TransactionScope
	config      ReconcileConfig
	logger      *zap.Logger
}

// NewInventoryReconciler creates a new InventoryReconciler
func NewInventoryReconciler(
	marketplace integration.Marketplace,
	products catalog.ProductRepository,
	txScope TransactionScope,
	config ReconcileConfig,
	logger *zap.Logger,
) *InventoryReconciler {
	if config.PageSize <= 0 {
		config.PageSize = 100
	}
	if config.MaxPages <= 0 {
		config.MaxPages = 500
	}
	return &InventoryReconciler{
		marketplace: marketplace,
		products:    products,
		txScope:     txScope,
		config:      config,
		logger:      logger,
	}
}

// reconcileRun carries the state of one Sync call
type reconcileRun struct {
	result          *ReconcileResult
	samples         *ErrorSamples
	seenMissing     map[string]bool
	seenMissingVars map[string]bool
}

func (run *reconcileRun) fail(ref string, err error) {
	run.result.Errors++
	run.samples.Add(ref, err)
}

// Sync pages through the remote inventory until the marketplace reports no
// more pages or returns an empty page. Failing to fetch the first page fails
// the run; per-item failures are counted and never abort it.
func (r *InventoryReconciler) Sync(ctx context.Context) (*ReconcileResult, error) {
	run := &reconcileRun{
		result: &ReconcileResult{
			MissingProducts:   []string{},
			MissingVariations: []string{},
		},
		samples:         NewErrorSamples(r.config.ErrorSampleLimit),
		seenMissing:     map[string]bool{},
		seenMissingVars: map[string]bool{},
	}

	for page := 1; page <= r.config.MaxPages; page++ {
		inv, err := r.marketplace.FetchInventoryPage(ctx, page, r.config.PageSize)
		if err != nil {
			if page == 1 {
				return nil, fmt.Errorf("fetch inventory page %d: %w", page, err)
			}
			r.logger.Error("Failed to fetch inventory page, stopping",
				zap.Int("page", page),
				zap.Error(err),
			)
			run.fail(fmt.Sprintf("page %d", page), err)
			break
		}
		if inv.IsEmpty() {
			break
		}
		run.result.Pages++

		for _, m := range inv.Malformed {
			r.logger.Warn("Skipping malformed inventory record",
				zap.Int("page", page),
				zap.Int("index", m.Index),
				zap.String("reference", m.Reference),
				zap.String("reason", m.Reason),
			)
			run.fail(m.Reference, fmt.Errorf("%w: %s", integration.ErrMalformedRecord, m.Reason))
		}
		for i := range inv.Items {
			if err := ctx.Err(); err != nil {
				run.result.ErrorSamples = run.samples.Items()
				return run.result, err
			}
			item := &inv.Items[i]
			if err := item.Validate(); err != nil {
				ref := catalog.NormalizeSKU(item.SKU)
				if ref == "" {
					ref = fmt.Sprintf("page %d item %d", page, i+1)
				}
				r.logger.Warn("Skipping malformed inventory record",
					zap.Int("page", page),
					zap.Int("index", i),
					zap.String("reference", ref),
					zap.Error(err),
				)
				run.fail(ref, err)
				continue
			}
			r.reconcileProduct(ctx, run, item)
		}

		if !inv.HasMore {
			break
		}
	}

	run.result.ErrorSamples = run.samples.Items()
	r.logger.Info("Inventory reconciliation finished",
		zap.Int("pages", run.result.Pages),
		zap.Int("products_updated", run.result.ProductsUpdated),
		zap.Int("variations_updated", run.result.VariationsUpdated),
		zap.Int("missing_products", len(run.result.MissingProducts)),
		zap.Int("errors", run.result.Errors),
	)
	return run.result, nil
}

func (r *InventoryReconciler) reconcileProduct(ctx context.Context, run *reconcileRun, item *integration.RemoteProduct) {
	run.result.received++
	sku := catalog.NormalizeSKU(item.SKU)
	product, err := r.products.FindBySKU(ctx, sku)
	if errors.Is(err, shared.ErrNotFound) {
		if !run.seenMissing[sku] {
			run.seenMissing[sku] = true
			run.result.MissingProducts = append(run.result.MissingProducts, sku)
		}
		return
	}
	if err != nil {
		r.logger.Error("Product lookup failed", zap.String("sku", sku), zap.Error(err))
		run.fail(sku, err)
		return
	}

	changes := product.DiffInventory(item.Values())
	if !changes.IsEmpty() {
		err := r.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
			return repos.ProductRepo().UpdateInventory(ctx, product.ID, changes)
		})
		if err != nil {
			r.logger.Error("Product inventory update failed", zap.String("sku", sku), zap.Error(err))
			run.fail(sku, err)
		} else {
			run.result.ProductsUpdated++
			r.logger.Debug("Product inventory updated",
				zap.String("sku", sku),
				zap.Strings("fields", changes.Fields()),
			)
		}
	}

	for i := range item.Variations {
		r.reconcileVariation(ctx, run, product, &item.Variations[i])
	}
}

func (r *InventoryReconciler) reconcileVariation(ctx context.Context, run *reconcileRun, product *catalog.Product, rv *integration.RemoteVariation) {
	ref := product.SKU + "/" + rv.VariationID
	if err := rv.Validate(); err != nil {
		if rv.VariationID == "" {
			ref = product.SKU
		}
		run.fail(ref, err)
		return
	}

	variation, err := r.products.FindVariationByRemoteID(ctx, product.ID, rv.VariationID)
	if errors.Is(err, shared.ErrNotFound) {
		if !run.seenMissingVars[ref] {
			run.seenMissingVars[ref] = true
			run.result.MissingVariations = append(run.result.MissingVariations, ref)
		}
		return
	}
	if err != nil {
		r.logger.Error("Variation lookup failed", zap.String("ref", ref), zap.Error(err))
		run.fail(ref, err)
		return
	}

	changes := variation.DiffInventory(rv.Values())
	if changes.IsEmpty() {
		return
	}
	err = r.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		return repos.ProductRepo().UpdateVariationInventory(ctx, variation.ID, changes)
	})
	if err != nil {
		r.logger.Error("Variation inventory update failed", zap.String("ref", ref), zap.Error(err))
		run.fail(ref, err)
		return
	}
	run.result.VariationsUpdated++
	r.logger.Debug("Variation inventory updated",
		zap.String("ref", ref),
		zap.Strings("fields", changes.Fields()),
	)
}
