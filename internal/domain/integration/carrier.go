package integration

import (
	"context"
	"time"

	"github.com/erp/channelsync/internal/domain/shipping"
)

// TrackingStatus is the current status a carrier reports for a parcel, in
// the carrier's own vocabulary.
type TrackingStatus struct {
	TrackingNumber string
	Code           string
	Description    string
	Location       string
	OccurredAt     time.Time
}

// CarrierTracker queries a carrier's tracking API.
type CarrierTracker interface {
	Track(ctx context.Context, carrier *shipping.ShippingCarrier, trackingNumber string) (*TrackingStatus, error)
}

// StatusMapper translates carrier status codes into the local shipment
// status. ok is false for unknown codes.
type StatusMapper interface {
	Map(carrierCode, statusCode string) (status shipping.ShipmentStatus, ok bool)
}
