package trade

import (
	"fmt"
	"strings"
	"time"

	"github.com/erp/channelsync/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus represents the status of an order
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusOnHold     OrderStatus = "on_hold"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
	OrderStatusRefunded   OrderStatus = "refunded"
)

// IsValid checks if the status is a valid OrderStatus
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusOnHold, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusCancelled, OrderStatusRefunded:
		return true
	}
	return false
}

// String returns the string representation of OrderStatus
func (s OrderStatus) String() string {
	return string(s)
}

// CanTransitionTo checks if the status can transition to the target status
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	switch s {
	case OrderStatusPending:
		return target == OrderStatusProcessing || target == OrderStatusOnHold ||
			target == OrderStatusShipped || target == OrderStatusCancelled
	case OrderStatusProcessing:
		return target == OrderStatusOnHold || target == OrderStatusShipped || target == OrderStatusCancelled
	case OrderStatusOnHold:
		return target == OrderStatusPending || target == OrderStatusProcessing || target == OrderStatusCancelled
	case OrderStatusShipped:
		return target == OrderStatusDelivered || target == OrderStatusRefunded
	case OrderStatusDelivered:
		return target == OrderStatusRefunded
	case OrderStatusCancelled, OrderStatusRefunded:
		return false // Terminal states
	}
	return false
}

// PaymentStatus represents the payment state of an order
type PaymentStatus string

const (
	PaymentStatusUnpaid   PaymentStatus = "unpaid"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

// IsValid checks if the payment status is known
func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusUnpaid, PaymentStatusPaid, PaymentStatusFailed, PaymentStatusRefunded:
		return true
	}
	return false
}

// SourceManual marks orders created through the back office.
const SourceManual = "manual"

// Address is a structured postal address.
type Address struct {
	Name       string `json:"name"`
	Company    string `json:"company,omitempty"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
	Phone      string `json:"phone,omitempty"`
	Email      string `json:"email,omitempty"`
}

// IsZero reports whether the address carries no data.
func (a Address) IsZero() bool {
	return a == Address{}
}

// Totals are the financial totals of an order.
type Totals struct {
	Currency string
	Subtotal decimal.Decimal
	Shipping decimal.Decimal
	Tax      decimal.Decimal
	Discount decimal.Decimal
	Total    decimal.Decimal
}

// OrderItem represents a line item in an order
type OrderItem struct {
	ID           uuid.UUID
	OrderID      uuid.UUID
	ProductID    *uuid.UUID
	RemoteLineID string
	SKU          string
	Name         string
	Quantity     int
	UnitPrice    decimal.Decimal
	Total        decimal.Decimal
}

// Order is a customer order, either entered locally or ingested from a
// marketplace. External orders are keyed by (Source, SourceReference).
type Order struct {
	shared.BaseEntity
	OrderNumber       string
	MerchantSiteID    *uuid.UUID
	Source            string
	SourceReference   string
	Status            OrderStatus
	PaymentStatus     PaymentStatus
	CustomerReference string
	CustomerName      string
	CustomerEmail     string
	Totals            Totals
	ShippingAddress   Address
	BillingAddress    Address
	CarrierID         *uuid.UUID
	SourceMetadata    []byte
	ShippedAt         *time.Time
	DeliveredAt       *time.Time
	Items             []OrderItem
}

// NewOrder creates a pending order with a generated order number.
func NewOrder(source, sourceReference, customerReference string) (*Order, error) {
	if strings.TrimSpace(customerReference) == "" {
		return nil, shared.NewDomainError("INVALID_CUSTOMER", "Customer reference cannot be empty")
	}
	if source == "" {
		source = SourceManual
	}
	base := shared.NewBaseEntity()
	return &Order{
		BaseEntity:        base,
		OrderNumber:       GenerateOrderNumber(base.ID, base.CreatedAt),
		Source:            source,
		SourceReference:   strings.TrimSpace(sourceReference),
		Status:            OrderStatusPending,
		PaymentStatus:     PaymentStatusUnpaid,
		CustomerReference: customerReference,
	}, nil
}

// GenerateOrderNumber derives a human-readable order number.
func GenerateOrderNumber(id uuid.UUID, at time.Time) string {
	return fmt.Sprintf("ORD-%s-%s", at.UTC().Format("20060102"), strings.ToUpper(id.String()[:8]))
}

// AddItem appends a line item. Quantity must be positive.
func (o *Order) AddItem(item OrderItem) error {
	if item.Quantity <= 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	item.ID = uuid.New()
	item.OrderID = o.ID
	if item.Total.IsZero() {
		item.Total = item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
	}
	o.Items = append(o.Items, item)
	return nil
}

// IsExternal reports whether the order was ingested from a remote source.
func (o *Order) IsExternal() bool {
	return o.SourceReference != ""
}

// IsShipmentTrackable reports whether carrier updates may be applied to the
// order's shipments.
func (o *Order) IsShipmentTrackable() bool {
	return o.Status == OrderStatusShipped || o.Status == OrderStatusDelivered
}

// TransitionTo moves the order to target when allowed.
func (o *Order) TransitionTo(target OrderStatus) error {
	if !o.Status.CanTransitionTo(target) {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("cannot transition order %s from %s to %s", o.OrderNumber, o.Status, target))
	}
	o.Status = target
	o.Touch()
	return nil
}

// MarkShipped moves the order to shipped and records the shipped timestamp
// once. Orders already shipped or delivered only get a missing timestamp
// filled in. It reports whether anything changed.
func (o *Order) MarkShipped(at time.Time) bool {
	changed := false
	if o.Status != OrderStatusShipped && o.Status != OrderStatusDelivered {
		if err := o.TransitionTo(OrderStatusShipped); err != nil {
			return false
		}
		changed = true
	}
	if o.ShippedAt == nil {
		t := at
		o.ShippedAt = &t
		changed = true
	}
	if changed {
		o.Touch()
	}
	return changed
}

// MarkDelivered moves the order to delivered. The delivered timestamp is set
// exactly once; re-marking a delivered order is a no-op.
func (o *Order) MarkDelivered(at time.Time) bool {
	if o.Status == OrderStatusDelivered && o.DeliveredAt != nil {
		return false
	}
	if o.Status != OrderStatusDelivered {
		if o.Status != OrderStatusShipped {
			o.MarkShipped(at)
		}
		if err := o.TransitionTo(OrderStatusDelivered); err != nil {
			return false
		}
	}
	if o.DeliveredAt == nil {
		t := at
		o.DeliveredAt = &t
	}
	o.Touch()
	return true
}

// RemoteUpdate carries the mutable fields a marketplace may change on an
// existing order.
type RemoteUpdate struct {
	Status          OrderStatus
	PaymentStatus   PaymentStatus
	ShippingAddress Address
	BillingAddress  Address
	SourceMetadata  []byte
}

// ApplyRemoteUpdate applies changed mutable fields and reports whether the
// order changed. Status changes that the state machine forbids (e.g. a
// marketplace still reporting processing after local shipment) are ignored.
// Line items are never touched.
func (o *Order) ApplyRemoteUpdate(u RemoteUpdate) bool {
	changed := false
	if u.Status != "" && u.Status != o.Status && o.Status.CanTransitionTo(u.Status) {
		o.Status = u.Status
		changed = true
	}
	if u.PaymentStatus.IsValid() && u.PaymentStatus != o.PaymentStatus {
		o.PaymentStatus = u.PaymentStatus
		changed = true
	}
	if !u.ShippingAddress.IsZero() && u.ShippingAddress != o.ShippingAddress {
		o.ShippingAddress = u.ShippingAddress
		changed = true
	}
	if !u.BillingAddress.IsZero() && u.BillingAddress != o.BillingAddress {
		o.BillingAddress = u.BillingAddress
		changed = true
	}
	if changed {
		if len(u.SourceMetadata) > 0 {
			o.SourceMetadata = u.SourceMetadata
		}
		o.Touch()
	}
	return changed
}
