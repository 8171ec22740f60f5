package models

import (
	"encoding/json"
	"time"

	"github.com/erp/channelsync/internal/domain/shared"
	"github.com/erp/channelsync/internal/domain/trade"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderModel is the persistence model for the Order aggregate.
type OrderModel struct {
	BaseModel
	OrderNumber       string              `gorm:"type:varchar(50);not null;uniqueIndex"`
	MerchantSiteID    *uuid.UUID          `gorm:"type:uuid;index"`
	Source            string              `gorm:"type:varchar(50);not null;index:idx_orders_source_ref,priority:1"`
	SourceReference   string              `gorm:"type:varchar(100);index:idx_orders_source_ref,priority:2"`
	Status            trade.OrderStatus   `gorm:"type:varchar(20);not null;index"`
	PaymentStatus     trade.PaymentStatus `gorm:"type:varchar(20);not null"`
	CustomerReference string              `gorm:"type:varchar(100);not null"`
	CustomerName      string              `gorm:"type:varchar(200)"`
	CustomerEmail     string              `gorm:"type:varchar(200)"`
	Currency          string              `gorm:"type:varchar(3)"`
	Subtotal          decimal.Decimal     `gorm:"type:decimal(18,4);not null;default:0"`
	ShippingTotal     decimal.Decimal     `gorm:"type:decimal(18,4);not null;default:0"`
	TaxTotal          decimal.Decimal     `gorm:"type:decimal(18,4);not null;default:0"`
	DiscountTotal     decimal.Decimal     `gorm:"type:decimal(18,4);not null;default:0"`
	Total             decimal.Decimal     `gorm:"type:decimal(18,4);not null;default:0"`
	ShippingAddress   string              `gorm:"type:jsonb"`
	BillingAddress    string              `gorm:"type:jsonb"`
	CarrierID         *uuid.UUID          `gorm:"type:uuid"`
	SourceMetadata    *string             `gorm:"type:jsonb"`
	ShippedAt         *time.Time
	DeliveredAt       *time.Time
	Items             []OrderItemModel `gorm:"foreignKey:OrderID"`
}

// TableName returns the table name for GORM
func (OrderModel) TableName() string {
	return "orders"
}

// ToDomain converts the persistence model to a domain Order.
func (m *OrderModel) ToDomain() *trade.Order {
	o := &trade.Order{
		BaseEntity:        shared.BaseEntity{ID: m.ID, CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		OrderNumber:       m.OrderNumber,
		MerchantSiteID:    m.MerchantSiteID,
		Source:            m.Source,
		SourceReference:   m.SourceReference,
		Status:            m.Status,
		PaymentStatus:     m.PaymentStatus,
		CustomerReference: m.CustomerReference,
		CustomerName:      m.CustomerName,
		CustomerEmail:     m.CustomerEmail,
		Totals: trade.Totals{
			Currency: m.Currency,
			Subtotal: m.Subtotal,
			Shipping: m.ShippingTotal,
			Tax:      m.TaxTotal,
			Discount: m.DiscountTotal,
			Total:    m.Total,
		},
		CarrierID:   m.CarrierID,
		ShippedAt:   m.ShippedAt,
		DeliveredAt: m.DeliveredAt,
	}
	o.ShippingAddress = decodeAddress(m.ShippingAddress)
	o.BillingAddress = decodeAddress(m.BillingAddress)
	if m.SourceMetadata != nil {
		o.SourceMetadata = []byte(*m.SourceMetadata)
	}
	if len(m.Items) > 0 {
		o.Items = make([]trade.OrderItem, len(m.Items))
		for i := range m.Items {
			o.Items[i] = m.Items[i].ToDomain()
		}
	}
	return o
}

// FromDomain populates the persistence model from a domain Order.
func (m *OrderModel) FromDomain(o *trade.Order) {
	m.FromDomainBaseEntity(o.BaseEntity)
	m.OrderNumber = o.OrderNumber
	m.MerchantSiteID = o.MerchantSiteID
	m.Source = o.Source
	m.SourceReference = o.SourceReference
	m.Status = o.Status
	m.PaymentStatus = o.PaymentStatus
	m.CustomerReference = o.CustomerReference
	m.CustomerName = o.CustomerName
	m.CustomerEmail = o.CustomerEmail
	m.Currency = o.Totals.Currency
	m.Subtotal = o.Totals.Subtotal
	m.ShippingTotal = o.Totals.Shipping
	m.TaxTotal = o.Totals.Tax
	m.DiscountTotal = o.Totals.Discount
	m.Total = o.Totals.Total
	m.ShippingAddress = encodeAddress(o.ShippingAddress)
	m.BillingAddress = encodeAddress(o.BillingAddress)
	m.CarrierID = o.CarrierID
	m.SourceMetadata = nil
	if len(o.SourceMetadata) > 0 {
		s := string(o.SourceMetadata)
		m.SourceMetadata = &s
	}
	m.ShippedAt = o.ShippedAt
	m.DeliveredAt = o.DeliveredAt
	m.Items = make([]OrderItemModel, len(o.Items))
	for i := range o.Items {
		m.Items[i].FromDomain(o.Items[i])
		m.Items[i].OrderID = o.ID
	}
}

// OrderModelFromDomain creates a new persistence model from a domain Order.
func OrderModelFromDomain(o *trade.Order) *OrderModel {
	m := &OrderModel{}
	m.FromDomain(o)
	return m
}

// OrderItemModel is the persistence model for an order line item.
type OrderItemModel struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey"`
	OrderID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID    *uuid.UUID      `gorm:"type:uuid;index"`
	RemoteLineID string          `gorm:"type:varchar(100)"`
	SKU          string          `gorm:"type:varchar(100);not null"`
	Name         string          `gorm:"type:varchar(200)"`
	Quantity     int             `gorm:"not null"`
	UnitPrice    decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Total        decimal.Decimal `gorm:"type:decimal(18,4);not null"`
}

// TableName returns the table name for GORM
func (OrderItemModel) TableName() string {
	return "order_items"
}

// ToDomain converts the persistence model to a domain OrderItem.
func (m *OrderItemModel) ToDomain() trade.OrderItem {
	return trade.OrderItem{
		ID:           m.ID,
		OrderID:      m.OrderID,
		ProductID:    m.ProductID,
		RemoteLineID: m.RemoteLineID,
		SKU:          m.SKU,
		Name:         m.Name,
		Quantity:     m.Quantity,
		UnitPrice:    m.UnitPrice,
		Total:        m.Total,
	}
}

// FromDomain populates the persistence model from a domain OrderItem.
func (m *OrderItemModel) FromDomain(item trade.OrderItem) {
	m.ID = item.ID
	m.OrderID = item.OrderID
	m.ProductID = item.ProductID
	m.RemoteLineID = item.RemoteLineID
	m.SKU = item.SKU
	m.Name = item.Name
	m.Quantity = item.Quantity
	m.UnitPrice = item.UnitPrice
	m.Total = item.Total
}

func encodeAddress(a trade.Address) string {
	raw, err := json.Marshal(a)
	if err != nil {
		return "{}"
	}
	return string(raw)
}

func decodeAddress(s string) trade.Address {
	var a trade.Address
	if s != "" {
		_ = json.Unmarshal([]byte(s), &a)
	}
	return a
}
