package integration

import (
	"context"
	"errors"
	"fmt"

	"github.com/erp/channelsync/internal/domain/catalog"
	"github.com/erp/channelsync/internal/domain/integration"
	"github.com/erp/channelsync/internal/domain/shared"
	"github.com/erp/channelsync/internal/domain/trade"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// IngestConfig holds the settings of the order ingestion engine
type IngestConfig struct {
	PageSize         int
	ErrorSampleLimit int
}

// SkippedOrder is a remote order that was not ingested.
type SkippedOrder struct {
	Reference string `json:"reference"`
	Reason    string `json:"reason"`
}

// IngestResult summarizes the ingestion of one page of orders
type IngestResult struct {
	Page           int            `json:"page"`
	OrdersReceived int            `json:"orders_received"`
	Created        int            `json:"created"`
	Updated        int            `json:"updated"`
	Unchanged      int            `json:"unchanged"`
	Skipped        int            `json:"skipped"`
	SkippedOrders  []SkippedOrder `json:"skipped_orders"`
	PageSize       int            `json:"page_size"`
	TotalRecords   int            `json:"total_records"`
	Errors         int            `json:"errors"`
	ErrorSamples   []string       `json:"error_samples"`
}

// Counts implements integration.RunSummary
func (r *IngestResult) Counts() []integration.Count {
	return []integration.Count{
		{Name: "orders_received", Value: r.OrdersReceived},
		{Name: "created", Value: r.Created},
		{Name: "updated", Value: r.Updated},
		{Name: "unchanged", Value: r.Unchanged},
		{Name: "skipped", Value: r.Skipped},
		{Name: "errors", Value: r.Errors},
	}
}

// Samples implements integration.RunSummary
func (r *IngestResult) Samples() []string { return r.ErrorSamples }

// Outcome implements integration.RunSummary
func (r *IngestResult) Outcome() integration.SyncStatus { return outcome(r.Errors) }

// OrderIngestor imports marketplace orders one page at a time. Orders are
// keyed by (marketplace code, remote id), so re-ingesting a page never
// duplicates orders or line items.
type OrderIngestor struct {
	marketplace integration.Marketplace
	orders      trade.OrderRepository
	sites       catalog.MerchantSiteRepository
	txScope     TransactionScope
	validator   *OrderValidator
	config      IngestConfig
	logger      *zap.Logger
}

// NewOrderIngestor creates a new OrderIngestor. sites may be nil, in which
// case orders are not linked to a merchant site.
func NewOrderIngestor(
	marketplace integration.Marketplace,
	orders trade.OrderRepository,
	sites catalog.MerchantSiteRepository,
	txScope TransactionScope,
	config IngestConfig,
	logger *zap.Logger,
) *OrderIngestor {
	if config.PageSize <= 0 {
		config.PageSize = 50
	}
	return &OrderIngestor{
		marketplace: marketplace,
		orders:      orders,
		sites:       sites,
		txScope:     txScope,
		validator:   NewOrderValidator(),
		config:      config,
		logger:      logger,
	}
}

// PageSize returns the configured page size.
func (i *OrderIngestor) PageSize() int {
	return i.config.PageSize
}

// Sync ingests one page of remote orders. Only a failed page fetch is
// returned as an error.
func (i *OrderIngestor) Sync(ctx context.Context, page int) (*IngestResult, error) {
	if page < 1 {
		page = 1
	}
	op, err := i.marketplace.FetchOrderPage(ctx, page, i.config.PageSize)
	if err != nil {
		return nil, fmt.Errorf("fetch order page %d: %w", page, err)
	}

	result := &IngestResult{
		Page:           page,
		OrdersReceived: op.Received(),
		PageSize:       op.PageSize,
		TotalRecords:   op.TotalRecords,
		SkippedOrders:  []SkippedOrder{},
	}
	if result.PageSize <= 0 {
		result.PageSize = i.config.PageSize
	}
	samples := NewErrorSamples(i.config.ErrorSampleLimit)

	for _, m := range op.Malformed {
		i.logger.Warn("Skipping malformed order record",
			zap.Int("page", page),
			zap.Int("index", m.Index),
			zap.String("reference", m.Reference),
			zap.String("reason", m.Reason),
		)
		result.skip(m.Reference, m.Reason)
	}

	for idx := range op.Orders {
		ro := &op.Orders[idx]
		if err := i.validator.Validate(ro); err != nil {
			i.logger.Warn("Skipping invalid order",
				zap.String("reference", ro.ID),
				zap.Error(err),
			)
			result.skip(ro.ID, err.Error())
			continue
		}

		created, changed, err := i.upsert(ctx, ro)
		switch {
		case err != nil:
			i.logger.Error("Order upsert failed", zap.String("reference", ro.ID), zap.Error(err))
			result.Errors++
			samples.Add(ro.ID, err)
		case created:
			result.Created++
		case changed:
			result.Updated++
		default:
			result.Unchanged++
		}
	}

	result.ErrorSamples = samples.Items()
	i.logger.Info("Order page ingested",
		zap.Int("page", page),
		zap.Int("received", result.OrdersReceived),
		zap.Int("created", result.Created),
		zap.Int("updated", result.Updated),
		zap.Int("skipped", result.Skipped),
		zap.Int("errors", result.Errors),
	)
	return result, nil
}

func (r *IngestResult) skip(reference, reason string) {
	r.Skipped++
	r.SkippedOrders = append(r.SkippedOrders, SkippedOrder{
		Reference: reference,
		Reason:    Truncate(reason, maxSampleLength),
	})
}

// upsert creates or updates the local order for ro inside one transaction.
func (i *OrderIngestor) upsert(ctx context.Context, ro *integration.RemoteOrder) (created, changed bool, err error) {
	source := i.marketplace.Code()
	err = i.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		existing, err := repos.OrderRepo().FindBySourceReference(ctx, source, ro.ID)
		if err != nil && !errors.Is(err, shared.ErrNotFound) {
			return err
		}

		if existing == nil {
			order, err := i.buildOrder(ctx, repos, source, ro)
			if err != nil {
				return err
			}
			if err := repos.OrderRepo().Create(ctx, order); err != nil {
				return err
			}
			created = true
			return nil
		}

		changed = existing.ApplyRemoteUpdate(trade.RemoteUpdate{
			Status:          ro.Status,
			PaymentStatus:   ro.PaymentStatus,
			ShippingAddress: ro.ShippingAddress,
			BillingAddress:  ro.BillingAddress,
			SourceMetadata:  ro.Raw,
		})
		if !changed {
			return nil
		}
		return repos.OrderRepo().Update(ctx, existing)
	})
	return created, changed, err
}

func (i *OrderIngestor) buildOrder(ctx context.Context, repos TransactionalRepositories, source string, ro *integration.RemoteOrder) (*trade.Order, error) {
	order, err := trade.NewOrder(source, ro.ID, ro.CustomerReference)
	if err != nil {
		return nil, err
	}
	if ro.Status.IsValid() {
		order.Status = ro.Status
	}
	if ro.PaymentStatus.IsValid() {
		order.PaymentStatus = ro.PaymentStatus
	}
	order.CustomerName = ro.CustomerName
	order.CustomerEmail = ro.CustomerEmail
	order.ShippingAddress = ro.ShippingAddress
	order.BillingAddress = ro.BillingAddress
	order.SourceMetadata = ro.Raw
	order.Totals = trade.Totals{
		Currency: ro.Totals.Currency,
		Subtotal: amount(ro.Totals.Subtotal),
		Shipping: amount(ro.Totals.Shipping),
		Tax:      amount(ro.Totals.Tax),
		Discount: amount(ro.Totals.Discount),
		Total:    amount(ro.Totals.Total),
	}

	if ro.SiteReference != "" && i.sites != nil {
		site, err := i.sites.FindByReference(ctx, ro.SiteReference)
		switch {
		case err == nil:
			order.MerchantSiteID = &site.ID
		case errors.Is(err, shared.ErrNotFound):
			i.logger.Debug("Order references unknown merchant site",
				zap.String("reference", ro.ID),
				zap.String("site", ro.SiteReference),
			)
		default:
			return nil, err
		}
	}

	for _, item := range ro.Items {
		line := trade.OrderItem{
			RemoteLineID: item.LineID,
			SKU:          catalog.NormalizeSKU(item.SKU),
			Name:         item.Name,
			Quantity:     item.Quantity,
			UnitPrice:    amount(item.UnitPrice),
			Total:        amount(item.Total),
		}
		product, err := repos.ProductRepo().FindBySKU(ctx, line.SKU)
		switch {
		case err == nil:
			line.ProductID = &product.ID
		case !errors.Is(err, shared.ErrNotFound):
			return nil, err
		}
		if err := order.AddItem(line); err != nil {
			return nil, err
		}
	}
	return order, nil
}

func amount(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return catalog.NormalizePrice(*d)
}
