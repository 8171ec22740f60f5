package trade

import (
	"context"

	"github.com/google/uuid"
)

// OrderRepository is the persistence port for orders.
// Lookups return shared.ErrNotFound when no record matches.
type OrderRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Order, error)
	FindBySourceReference(ctx context.Context, source, reference string) (*Order, error)

	// Create inserts the order together with its line items.
	Create(ctx context.Context, order *Order) error

	// Update persists the order header only; line items are immutable once created.
	Update(ctx context.Context, order *Order) error
}
