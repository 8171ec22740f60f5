package shipping

import (
	"context"

	"github.com/google/uuid"
)

// ShipmentRepository is the persistence port for shipments.
// Lookups return shared.ErrNotFound when no record matches.
type ShipmentRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Shipment, error)

	// FindActive returns up to limit shipments in a non-terminal status with
	// an id greater than afterID, ordered by primary key. Pass uuid.Nil for
	// the first page.
	FindActive(ctx context.Context, afterID uuid.UUID, limit int) ([]Shipment, error)

	Save(ctx context.Context, shipment *Shipment) error

	// Update persists status, stage timestamps and COD flags.
	Update(ctx context.Context, shipment *Shipment) error
	AppendEvent(ctx context.Context, event *TrackingEvent) error
}

// CarrierRepository is the persistence port for carrier configuration.
type CarrierRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*ShippingCarrier, error)
	Save(ctx context.Context, carrier *ShippingCarrier) error
}
