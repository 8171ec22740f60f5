package ecommerce

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/erp/channelsync/internal/domain/integration"
	"github.com/erp/channelsync/internal/domain/trade"
	"github.com/erp/channelsync/internal/infrastructure/remote"
	"go.uber.org/zap"
)

// MarketplaceAdapter implements integration.Marketplace over the
// marketplace's paged JSON REST API.
type MarketplaceAdapter struct {
	config *MarketplaceConfig
	client *remote.Client
	logger *zap.Logger
}

// NewMarketplaceAdapter creates an adapter. Extra client options (e.g. a
// retry hook for metrics) are passed through to the remote client.
func NewMarketplaceAdapter(cfg *MarketplaceConfig, logger *zap.Logger, opts ...remote.Option) (*MarketplaceAdapter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger = logger.Named("marketplace")
	client, err := remote.NewClient(remote.Config{
		BaseURL:           cfg.BaseURL,
		Token:             cfg.Token,
		Timeout:           cfg.Timeout,
		MaxRetries:        cfg.MaxRetries,
		RetryInterval:     cfg.RetryInterval,
		RequestsPerSecond: cfg.RequestsPerSecond,
	}, append([]remote.Option{remote.WithLogger(logger)}, opts...)...)
	if err != nil {
		return nil, err
	}
	return &MarketplaceAdapter{config: cfg, client: client, logger: logger}, nil
}

// Code implements integration.Marketplace
func (a *MarketplaceAdapter) Code() string {
	return a.config.Code
}

// FetchInventoryPage implements integration.Marketplace
func (a *MarketplaceAdapter) FetchInventoryPage(ctx context.Context, page, pageSize int) (*integration.InventoryPage, error) {
	records, resp, err := a.fetchPage(ctx, a.config.InventoryPath, page, pageSize)
	if err != nil {
		return nil, err
	}

	result := &integration.InventoryPage{Page: page, HasMore: len(records) > 0}
	if totalPages, ok := headerInt(resp, headerTotalPages); ok {
		result.HasMore = page < totalPages
	}

	for i, raw := range records {
		var item inventoryItem
		if err := json.Unmarshal(raw, &item); err != nil {
			result.Malformed = append(result.Malformed, integration.MalformedRecord{
				Index: i, Reference: recordRef(raw), Reason: err.Error(),
			})
			continue
		}
		result.Items = append(result.Items, toRemoteProduct(item))
	}
	return result, nil
}

// FetchOrderPage implements integration.Marketplace
func (a *MarketplaceAdapter) FetchOrderPage(ctx context.Context, page, pageSize int) (*integration.OrderPage, error) {
	records, resp, err := a.fetchPage(ctx, a.config.OrdersPath, page, pageSize)
	if err != nil {
		return nil, err
	}

	result := &integration.OrderPage{Page: page, PageSize: pageSize}
	if total, ok := headerInt(resp, headerTotalCount); ok {
		result.TotalRecords = total
	}

	for i, raw := range records {
		var rec orderRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			result.Malformed = append(result.Malformed, integration.MalformedRecord{
				Index: i, Reference: recordRef(raw), Reason: err.Error(),
			})
			continue
		}
		order := toRemoteOrder(rec)
		order.Raw = append(json.RawMessage(nil), raw...)
		result.Orders = append(result.Orders, order)
	}
	return result, nil
}

// PushStock implements integration.Marketplace
func (a *MarketplaceAdapter) PushStock(ctx context.Context, update integration.StockUpdate) error {
	req := stockPushRequest{
		ID:            update.RemoteID(),
		SKU:           update.SKU,
		StockQuantity: update.StockQuantity,
	}
	var out stockPushResponse
	if _, err := a.client.Post(ctx, a.config.PushPath, req, &out); err != nil {
		return err
	}
	if out.Success != nil && !*out.Success {
		msg := out.Message
		if msg == "" {
			msg = "no reason given"
		}
		return fmt.Errorf("%w: %s: %s", integration.ErrPushRejected, req.ID, msg)
	}
	return nil
}

func (a *MarketplaceAdapter) fetchPage(ctx context.Context, path string, page, pageSize int) ([]json.RawMessage, *remote.Response, error) {
	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	query.Set("per_page", strconv.Itoa(pageSize))

	var records []json.RawMessage
	resp, err := a.client.Get(ctx, path, query, &records)
	if err != nil {
		return nil, nil, err
	}
	a.logger.Debug("Fetched page",
		zap.String("path", path),
		zap.Int("page", page),
		zap.Int("records", len(records)),
	)
	return records, resp, nil
}

func headerInt(resp *remote.Response, name string) (int, bool) {
	v := resp.Header.Get(name)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, false
	}
	return n, true
}

func toRemoteProduct(item inventoryItem) integration.RemoteProduct {
	p := integration.RemoteProduct{
		SKU:           strings.TrimSpace(item.SKU),
		Price:         item.Price,
		CostPrice:     item.CostPrice,
		StockQuantity: item.StockQuantity,
	}
	for _, v := range item.Variations {
		p.Variations = append(p.Variations, integration.RemoteVariation{
			VariationID:   string(v.ID),
			SKU:           strings.TrimSpace(v.SKU),
			Price:         v.Price,
			CostPrice:     v.CostPrice,
			StockQuantity: v.StockQuantity,
		})
	}
	return p
}

func toRemoteOrder(rec orderRecord) integration.RemoteOrder {
	o := integration.RemoteOrder{
		ID:                string(rec.ID),
		Status:            mapOrderStatus(rec.Status),
		PaymentStatus:     mapPaymentStatus(rec.PaymentStatus),
		SiteReference:     string(rec.SiteID),
		CustomerReference: string(rec.Customer.ID),
		CustomerName:      rec.Customer.Name,
		CustomerEmail:     rec.Customer.Email,
		Totals: integration.RemoteOrderTotals{
			Currency: strings.ToUpper(rec.Totals.Currency),
			Subtotal: rec.Totals.Subtotal,
			Shipping: rec.Totals.Shipping,
			Tax:      rec.Totals.Tax,
			Discount: rec.Totals.Discount,
			Total:    rec.Totals.Total,
		},
		ShippingAddress: toAddress(rec.ShippingAddress),
		BillingAddress:  toAddress(rec.BillingAddress),
	}
	if o.CustomerReference == "" {
		o.CustomerReference = strings.ToLower(strings.TrimSpace(rec.Customer.Email))
	}
	for _, li := range rec.LineItems {
		o.Items = append(o.Items, integration.RemoteOrderItem{
			LineID:    string(li.ID),
			SKU:       strings.TrimSpace(li.SKU),
			Name:      li.Name,
			Quantity:  li.Quantity,
			UnitPrice: li.Price,
			Total:     li.Total,
		})
	}
	return o
}

func toAddress(a orderAddress) trade.Address {
	return trade.Address{
		Name:       strings.TrimSpace(a.FirstName + " " + a.LastName),
		Company:    a.Company,
		Line1:      a.Address1,
		Line2:      a.Address2,
		City:       a.City,
		State:      a.State,
		PostalCode: a.Postcode,
		Country:    strings.ToUpper(a.Country),
		Phone:      a.Phone,
		Email:      a.Email,
	}
}

// mapOrderStatus converts the marketplace order status to the local status.
// Unknown statuses map to "" and leave the local status untouched.
func mapOrderStatus(status string) trade.OrderStatus {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "pending", "pending-payment", "failed":
		return trade.OrderStatusPending
	case "processing", "paid":
		return trade.OrderStatusProcessing
	case "on-hold", "on_hold":
		return trade.OrderStatusOnHold
	case "shipped", "completed":
		return trade.OrderStatusShipped
	case "delivered":
		return trade.OrderStatusDelivered
	case "cancelled", "canceled":
		return trade.OrderStatusCancelled
	case "refunded":
		return trade.OrderStatusRefunded
	default:
		return ""
	}
}

func mapPaymentStatus(status string) trade.PaymentStatus {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "paid", "completed":
		return trade.PaymentStatusPaid
	case "pending", "unpaid":
		return trade.PaymentStatusUnpaid
	case "failed":
		return trade.PaymentStatusFailed
	case "refunded":
		return trade.PaymentStatusRefunded
	default:
		return ""
	}
}

var _ integration.Marketplace = (*MarketplaceAdapter)(nil)
