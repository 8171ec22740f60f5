package catalog

import (
	"context"

	"github.com/google/uuid"
)

// ProductRepository is the persistence port for products and variations.
// Lookups return shared.ErrNotFound when no record matches.
type ProductRepository interface {
	FindBySKU(ctx context.Context, sku string) (*Product, error)
	FindVariationByRemoteID(ctx context.Context, productID uuid.UUID, remoteVariationID string) (*ProductVariation, error)

	// ListBatch returns up to limit products with their variations, ordered
	// by primary key and starting after afterID (uuid.Nil for the first batch).
	ListBatch(ctx context.Context, afterID uuid.UUID, limit int) ([]Product, error)

	UpdateInventory(ctx context.Context, productID uuid.UUID, changes InventoryChanges) error
	UpdateVariationInventory(ctx context.Context, variationID uuid.UUID, changes InventoryChanges) error
	Save(ctx context.Context, product *Product) error
}

// MerchantSiteRepository is the persistence port for merchant sites.
type MerchantSiteRepository interface {
	FindByReference(ctx context.Context, reference string) (*MerchantSite, error)
	Save(ctx context.Context, site *MerchantSite) error
}
