package shipping

import (
	"strings"
	"time"

	"github.com/erp/channelsync/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ShipmentStatus represents the status of a shipment
type ShipmentStatus string

const (
	StatusPending        ShipmentStatus = "pending"
	StatusPickedUp       ShipmentStatus = "picked_up"
	StatusInTransit      ShipmentStatus = "in_transit"
	StatusOutForDelivery ShipmentStatus = "out_for_delivery"
	StatusDelivered      ShipmentStatus = "delivered"
	StatusFailed         ShipmentStatus = "failed"
	StatusReturned       ShipmentStatus = "returned"
)

// mainLine orders the forward path of a shipment.
var mainLine = map[ShipmentStatus]int{
	StatusPending:        0,
	StatusPickedUp:       1,
	StatusInTransit:      2,
	StatusOutForDelivery: 3,
	StatusDelivered:      4,
}

// AllStatuses lists every shipment status.
func AllStatuses() []ShipmentStatus {
	return []ShipmentStatus{
		StatusPending, StatusPickedUp, StatusInTransit, StatusOutForDelivery,
		StatusDelivered, StatusFailed, StatusReturned,
	}
}

// IsValid checks if the status is a known ShipmentStatus
func (s ShipmentStatus) IsValid() bool {
	if _, ok := mainLine[s]; ok {
		return true
	}
	return s == StatusFailed || s == StatusReturned
}

// String returns the string representation of ShipmentStatus
func (s ShipmentStatus) String() string {
	return string(s)
}

// IsTerminal reports whether no further carrier update can move the shipment.
func (s ShipmentStatus) IsTerminal() bool {
	return s == StatusDelivered || s == StatusReturned
}

// IsInFlight reports whether the shipment is on the forward path and not yet delivered.
func (s ShipmentStatus) IsInFlight() bool {
	rank, ok := mainLine[s]
	return ok && rank < mainLine[StatusDelivered]
}

// CanAdvanceTo reports whether target is strictly ahead of s. The forward
// path only moves up; failed and returned are reachable from any in-flight
// state; a failed shipment may still be delivered or returned. Nothing ever
// moves a shipment back.
func (s ShipmentStatus) CanAdvanceTo(target ShipmentStatus) bool {
	if s == target || !target.IsValid() || s.IsTerminal() {
		return false
	}
	switch target {
	case StatusFailed:
		return s.IsInFlight()
	case StatusReturned:
		return s.IsInFlight() || s == StatusFailed
	}
	if s == StatusFailed {
		return target == StatusDelivered
	}
	return mainLine[target] > mainLine[s]
}

// Title returns the human readable label used for tracking events.
func (s ShipmentStatus) Title() string {
	switch s {
	case StatusPending:
		return "Shipment created"
	case StatusPickedUp:
		return "Picked up"
	case StatusInTransit:
		return "In transit"
	case StatusOutForDelivery:
		return "Out for delivery"
	case StatusDelivered:
		return "Delivered"
	case StatusFailed:
		return "Delivery failed"
	case StatusReturned:
		return "Returned to sender"
	}
	return string(s)
}

// TrackingEvent is one entry of a shipment's chronological history.
type TrackingEvent struct {
	ID          uuid.UUID
	ShipmentID  uuid.UUID
	Status      ShipmentStatus
	Title       string
	Description string
	Location    string
	OccurredAt  time.Time
}

// Shipment is a parcel handed to a carrier for an order.
type Shipment struct {
	shared.BaseEntity
	OrderID          uuid.UUID
	CarrierID        uuid.UUID
	TrackingNumber   string
	Status           ShipmentStatus
	CashOnDelivery   bool
	CODAmount        decimal.Decimal
	CODCollected     bool
	Events           []TrackingEvent
	PickedUpAt       *time.Time
	InTransitAt      *time.Time
	OutForDeliveryAt *time.Time
	DeliveredAt      *time.Time
	FailedAt         *time.Time
	ReturnedAt       *time.Time
}

// NewShipment creates a pending shipment.
func NewShipment(orderID, carrierID uuid.UUID, trackingNumber string) (*Shipment, error) {
	trackingNumber = strings.TrimSpace(trackingNumber)
	if trackingNumber == "" {
		return nil, shared.NewDomainError("INVALID_TRACKING_NUMBER", "Tracking number cannot be empty")
	}
	return &Shipment{
		BaseEntity:     shared.NewBaseEntity(),
		OrderID:        orderID,
		CarrierID:      carrierID,
		TrackingNumber: trackingNumber,
		Status:         StatusPending,
	}, nil
}

// Advance moves the shipment to target if it is ahead of the current status,
// appends a tracking event and stamps the stage timestamp. It returns the
// appended event, or nil when the observation is stale or repeated.
func (s *Shipment) Advance(target ShipmentStatus, at time.Time, detail, location string) *TrackingEvent {
	if !s.Status.CanAdvanceTo(target) {
		return nil
	}
	s.Status = target
	s.stamp(target, at)
	if target == StatusDelivered && s.CashOnDelivery {
		s.CODCollected = true
	}

	description := detail
	if description == "" {
		description = "Carrier reported status " + target.String()
	}
	event := TrackingEvent{
		ID:          uuid.New(),
		ShipmentID:  s.ID,
		Status:      target,
		Title:       target.Title(),
		Description: description,
		Location:    location,
		OccurredAt:  at,
	}
	s.Events = append(s.Events, event)
	s.Touch()
	return &event
}

func (s *Shipment) stamp(status ShipmentStatus, at time.Time) {
	var slot **time.Time
	switch status {
	case StatusPickedUp:
		slot = &s.PickedUpAt
	case StatusInTransit:
		slot = &s.InTransitAt
	case StatusOutForDelivery:
		slot = &s.OutForDeliveryAt
	case StatusDelivered:
		slot = &s.DeliveredAt
	case StatusFailed:
		slot = &s.FailedAt
	case StatusReturned:
		slot = &s.ReturnedAt
	default:
		return
	}
	if *slot == nil {
		t := at
		*slot = &t
	}
}

// ActiveStatuses are the statuses the synchronizer still polls.
func ActiveStatuses() []ShipmentStatus {
	var out []ShipmentStatus
	for _, s := range AllStatuses() {
		if !s.IsTerminal() {
			out = append(out, s)
		}
	}
	return out
}
