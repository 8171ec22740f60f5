package models

import (
	"time"

	"github.com/erp/channelsync/internal/domain/shipping"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ShipmentModel is the persistence model for the Shipment entity.
type ShipmentModel struct {
	BaseModel
	OrderID          uuid.UUID               `gorm:"type:uuid;not null;index"`
	CarrierID        uuid.UUID               `gorm:"type:uuid;not null;index"`
	TrackingNumber   string                  `gorm:"type:varchar(100);not null;index"`
	Status           shipping.ShipmentStatus `gorm:"type:varchar(30);not null;index"`
	CashOnDelivery   bool                    `gorm:"not null;default:false"`
	CODAmount        decimal.Decimal         `gorm:"column:cod_amount;type:decimal(18,4);not null;default:0"`
	CODCollected     bool                    `gorm:"column:cod_collected;not null;default:false"`
	PickedUpAt       *time.Time
	InTransitAt      *time.Time
	OutForDeliveryAt *time.Time
	DeliveredAt      *time.Time
	FailedAt         *time.Time
	ReturnedAt       *time.Time
	Events           []TrackingEventModel `gorm:"foreignKey:ShipmentID"`
}

// TableName returns the table name for GORM
func (ShipmentModel) TableName() string {
	return "shipments"
}

// ToDomain converts the persistence model to a domain Shipment.
func (m *ShipmentModel) ToDomain() *shipping.Shipment {
	s := &shipping.Shipment{
		BaseEntity:       m.BaseModel.ToDomain(),
		OrderID:          m.OrderID,
		CarrierID:        m.CarrierID,
		TrackingNumber:   m.TrackingNumber,
		Status:           m.Status,
		CashOnDelivery:   m.CashOnDelivery,
		CODAmount:        m.CODAmount,
		CODCollected:     m.CODCollected,
		PickedUpAt:       m.PickedUpAt,
		InTransitAt:      m.InTransitAt,
		OutForDeliveryAt: m.OutForDeliveryAt,
		DeliveredAt:      m.DeliveredAt,
		FailedAt:         m.FailedAt,
		ReturnedAt:       m.ReturnedAt,
	}
	if len(m.Events) > 0 {
		s.Events = make([]shipping.TrackingEvent, len(m.Events))
		for i := range m.Events {
			s.Events[i] = m.Events[i].ToDomain()
		}
	}
	return s
}

// FromDomain populates the persistence model from a domain Shipment.
func (m *ShipmentModel) FromDomain(s *shipping.Shipment) {
	m.FromDomainBaseEntity(s.BaseEntity)
	m.OrderID = s.OrderID
	m.CarrierID = s.CarrierID
	m.TrackingNumber = s.TrackingNumber
	m.Status = s.Status
	m.CashOnDelivery = s.CashOnDelivery
	m.CODAmount = s.CODAmount
	m.CODCollected = s.CODCollected
	m.PickedUpAt = s.PickedUpAt
	m.InTransitAt = s.InTransitAt
	m.OutForDeliveryAt = s.OutForDeliveryAt
	m.DeliveredAt = s.DeliveredAt
	m.FailedAt = s.FailedAt
	m.ReturnedAt = s.ReturnedAt
	m.Events = make([]TrackingEventModel, len(s.Events))
	for i := range s.Events {
		m.Events[i].FromDomain(&s.Events[i])
		m.Events[i].ShipmentID = s.ID
	}
}

// TrackingEventModel is the persistence model for a shipment tracking event.
type TrackingEventModel struct {
	ID          uuid.UUID               `gorm:"type:uuid;primaryKey"`
	ShipmentID  uuid.UUID               `gorm:"type:uuid;not null;index"`
	Status      shipping.ShipmentStatus `gorm:"type:varchar(30);not null"`
	Title       string                  `gorm:"type:varchar(200);not null"`
	Description string                  `gorm:"type:text"`
	Location    string                  `gorm:"type:varchar(200)"`
	OccurredAt  time.Time               `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (TrackingEventModel) TableName() string {
	return "tracking_events"
}

// ToDomain converts the persistence model to a domain TrackingEvent.
func (m *TrackingEventModel) ToDomain() shipping.TrackingEvent {
	return shipping.TrackingEvent{
		ID:          m.ID,
		ShipmentID:  m.ShipmentID,
		Status:      m.Status,
		Title:       m.Title,
		Description: m.Description,
		Location:    m.Location,
		OccurredAt:  m.OccurredAt,
	}
}

// FromDomain populates the persistence model from a domain TrackingEvent.
func (m *TrackingEventModel) FromDomain(e *shipping.TrackingEvent) {
	m.ID = e.ID
	m.ShipmentID = e.ShipmentID
	m.Status = e.Status
	m.Title = e.Title
	m.Description = e.Description
	m.Location = e.Location
	m.OccurredAt = e.OccurredAt
}

// ShippingCarrierModel is the persistence model for carrier configuration.
type ShippingCarrierModel struct {
	BaseModel
	Code           string                  `gorm:"type:varchar(50);not null;uniqueIndex"`
	Name           string                  `gorm:"type:varchar(200);not null"`
	APIBaseURL     string                  `gorm:"column:api_base_url;type:varchar(500)"`
	APIKey         string                  `gorm:"column:api_key;type:varchar(500)"`
	AccountNumber  string                  `gorm:"type:varchar(100)"`
	ResponseFormat shipping.ResponseFormat `gorm:"type:varchar(10);not null;default:'json'"`
	BaseRate       decimal.Decimal         `gorm:"type:decimal(18,4);not null;default:0"`
	Active         bool                    `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (ShippingCarrierModel) TableName() string {
	return "shipping_carriers"
}

// ToDomain converts the persistence model to a domain ShippingCarrier.
func (m *ShippingCarrierModel) ToDomain() *shipping.ShippingCarrier {
	return &shipping.ShippingCarrier{
		BaseEntity:     m.BaseModel.ToDomain(),
		Code:           m.Code,
		Name:           m.Name,
		APIBaseURL:     m.APIBaseURL,
		APIKey:         m.APIKey,
		AccountNumber:  m.AccountNumber,
		ResponseFormat: m.ResponseFormat,
		BaseRate:       m.BaseRate,
		Active:         m.Active,
	}
}

// FromDomain populates the persistence model from a domain ShippingCarrier.
func (m *ShippingCarrierModel) FromDomain(c *shipping.ShippingCarrier) {
	m.FromDomainBaseEntity(c.BaseEntity)
	m.Code = c.Code
	m.Name = c.Name
	m.APIBaseURL = c.APIBaseURL
	m.APIKey = c.APIKey
	m.AccountNumber = c.AccountNumber
	m.ResponseFormat = c.ResponseFormat
	m.BaseRate = c.BaseRate
	m.Active = c.Active
}
