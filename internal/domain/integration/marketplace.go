package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/erp/channelsync/internal/domain/catalog"
	"github.com/erp/channelsync/internal/domain/trade"
	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// Marketplace port
// ---------------------------------------------------------------------------

// Marketplace is the third-party e-commerce platform the engines reconcile
// against. Implementations map transport failures onto the Remote* errors.
type Marketplace interface {
	// Code is the source tag stored on ingested orders.
	Code() string

	FetchInventoryPage(ctx context.Context, page, pageSize int) (*InventoryPage, error)
	FetchOrderPage(ctx context.Context, page, pageSize int) (*OrderPage, error)
	PushStock(ctx context.Context, update StockUpdate) error
}

// MalformedRecord is a record of a page that could not be decoded. It is
// reported next to the valid records so one bad entry never loses the page.
type MalformedRecord struct {
	Index     int
	Reference string
	Reason    string
}

// ---------------------------------------------------------------------------
// Inventory
// ---------------------------------------------------------------------------

// RemoteVariation is the marketplace view of a product variation.
type RemoteVariation struct {
	VariationID   string
	SKU           string
	Price         *decimal.Decimal
	CostPrice     *decimal.Decimal
	StockQuantity *int
}

// Values returns the inventory values carried by the record.
func (v RemoteVariation) Values() catalog.InventoryValues {
	return catalog.InventoryValues{Price: v.Price, CostPrice: v.CostPrice, StockQuantity: v.StockQuantity}
}

// Validate reports a variation whose values cannot be applied locally.
func (v RemoteVariation) Validate() error {
	var problems []string
	if v.VariationID == "" {
		problems = append(problems, "variation without id")
	}
	return malformed(append(problems, v.Values().Problems()...))
}

// RemoteProduct is the marketplace view of a product's inventory.
type RemoteProduct struct {
	SKU           string
	Price         *decimal.Decimal
	CostPrice     *decimal.Decimal
	StockQuantity *int
	Variations    []RemoteVariation
}

// Values returns the inventory values carried by the record.
func (p RemoteProduct) Values() catalog.InventoryValues {
	return catalog.InventoryValues{Price: p.Price, CostPrice: p.CostPrice, StockQuantity: p.StockQuantity}
}

// Validate reports a product record that cannot be matched or applied
// locally. Variations are validated on their own.
func (p RemoteProduct) Validate() error {
	var problems []string
	if catalog.NormalizeSKU(p.SKU) == "" {
		problems = append(problems, "missing sku")
	}
	return malformed(append(problems, p.Values().Problems()...))
}

func malformed(problems []string) error {
	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrMalformedRecord, strings.Join(problems, "; "))
}

// InventoryPage is one page of remote inventory.
type InventoryPage struct {
	Page      int
	Items     []RemoteProduct
	Malformed []MalformedRecord

	// HasMore is false once the marketplace reports the last page.
	HasMore bool
}

// IsEmpty reports whether the page carried no records at all.
func (p *InventoryPage) IsEmpty() bool {
	return len(p.Items) == 0 && len(p.Malformed) == 0
}

// StockUpdate is pushed to the marketplace for one product or variation.
type StockUpdate struct {
	SKU               string
	RemoteProductID   string
	RemoteVariationID string
	StockQuantity     int
}

// RemoteID returns the identifier the marketplace addresses the item by.
func (u StockUpdate) RemoteID() string {
	if u.RemoteVariationID != "" {
		return u.RemoteVariationID
	}
	return u.RemoteProductID
}

// ---------------------------------------------------------------------------
// Orders
// ---------------------------------------------------------------------------

// RemoteOrderItem is a line item of a remote order.
type RemoteOrderItem struct {
	LineID    string           `json:"line_id"`
	SKU       string           `json:"sku" validate:"required"`
	Name      string           `json:"name"`
	Quantity  int              `json:"quantity" validate:"gt=0"`
	UnitPrice *decimal.Decimal `json:"unit_price" validate:"required,gte=0"`
	Total     *decimal.Decimal `json:"total" validate:"omitempty,gte=0"`
}

// RemoteOrderTotals are the financial totals of a remote order.
type RemoteOrderTotals struct {
	Currency string           `json:"currency" validate:"omitempty,len=3"`
	Subtotal *decimal.Decimal `json:"subtotal" validate:"omitempty,gte=0"`
	Shipping *decimal.Decimal `json:"shipping" validate:"omitempty,gte=0"`
	Tax      *decimal.Decimal `json:"tax" validate:"omitempty,gte=0"`
	Discount *decimal.Decimal `json:"discount" validate:"omitempty,gte=0"`
	Total    *decimal.Decimal `json:"total" validate:"required,gte=0"`
}

// RemoteOrder is an order as reported by the marketplace, already mapped to
// local vocabulary. Raw is the untouched payload kept as source metadata.
type RemoteOrder struct {
	ID                string              `json:"id" validate:"required"`
	Status            trade.OrderStatus   `json:"status"`
	PaymentStatus     trade.PaymentStatus `json:"payment_status"`
	SiteReference     string              `json:"site_reference"`
	CustomerReference string              `json:"customer_reference" validate:"required"`
	CustomerName      string              `json:"customer_name"`
	CustomerEmail     string              `json:"customer_email" validate:"omitempty,email"`
	Items             []RemoteOrderItem   `json:"items" validate:"required,min=1,dive"`
	Totals            RemoteOrderTotals   `json:"totals"`
	ShippingAddress   trade.Address       `json:"shipping_address"`
	BillingAddress    trade.Address       `json:"billing_address"`
	Raw               json.RawMessage     `json:"-"`
}

// OrderPage is one page of remote orders.
type OrderPage struct {
	Page         int
	PageSize     int
	TotalRecords int
	Orders       []RemoteOrder
	Malformed    []MalformedRecord
}

// Received is the number of records the page carried, valid or not.
func (p *OrderPage) Received() int {
	return len(p.Orders) + len(p.Malformed)
}
