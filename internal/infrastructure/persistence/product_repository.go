package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/erp/channelsync/internal/domain/catalog"
	"github.com/erp/channelsync/internal/domain/shared"
	"github.com/erp/channelsync/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormProductRepository implements catalog.ProductRepository using GORM
type GormProductRepository struct {
	db *gorm.DB
}

// NewGormProductRepository creates a new GormProductRepository
func NewGormProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

func orderedVariations(db *gorm.DB) *gorm.DB {
	return db.Order("id ASC")
}

// FindBySKU finds a product with its variations by SKU
func (r *GormProductRepository) FindBySKU(ctx context.Context, sku string) (*catalog.Product, error) {
	var model models.ProductModel
	if err := r.db.WithContext(ctx).
		Preload("Variations", orderedVariations).
		Where("sku = ?", catalog.NormalizeSKU(sku)).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindVariationByRemoteID finds a variation of a product by its marketplace id
func (r *GormProductRepository) FindVariationByRemoteID(ctx context.Context, productID uuid.UUID, remoteVariationID string) (*catalog.ProductVariation, error) {
	if remoteVariationID == "" {
		return nil, shared.ErrNotFound
	}
	var model models.ProductVariationModel
	if err := r.db.WithContext(ctx).
		Where("product_id = ? AND remote_variation_id = ?", productID, remoteVariationID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// ListBatch returns the next keyset page of products ordered by id
func (r *GormProductRepository) ListBatch(ctx context.Context, afterID uuid.UUID, limit int) ([]catalog.Product, error) {
	if limit <= 0 {
		limit = 100
	}
	query := r.db.WithContext(ctx).Preload("Variations", orderedVariations)
	if afterID != uuid.Nil {
		query = query.Where("id > ?", afterID)
	}

	var rows []models.ProductModel
	if err := query.Order("id ASC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	products := make([]catalog.Product, len(rows))
	for i := range rows {
		products[i] = *rows[i].ToDomain()
	}
	return products, nil
}

// UpdateInventory writes only the changed inventory columns of a product
func (r *GormProductRepository) UpdateInventory(ctx context.Context, productID uuid.UUID, changes catalog.InventoryChanges) error {
	return r.updateInventory(ctx, &models.ProductModel{}, productID, changes)
}

// UpdateVariationInventory writes only the changed inventory columns of a variation
func (r *GormProductRepository) UpdateVariationInventory(ctx context.Context, variationID uuid.UUID, changes catalog.InventoryChanges) error {
	return r.updateInventory(ctx, &models.ProductVariationModel{}, variationID, changes)
}

func (r *GormProductRepository) updateInventory(ctx context.Context, model any, id uuid.UUID, changes catalog.InventoryChanges) error {
	if changes.IsEmpty() {
		return nil
	}
	updates := inventoryColumns(changes)
	updates["updated_at"] = time.Now()

	result := r.db.WithContext(ctx).Model(model).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func inventoryColumns(c catalog.InventoryChanges) map[string]any {
	cols := make(map[string]any, 4)
	if c.Price != nil {
		cols["price"] = *c.Price
	}
	if c.CostPrice != nil {
		cols["cost_price"] = *c.CostPrice
	}
	if c.StockQuantity != nil {
		cols["stock_quantity"] = *c.StockQuantity
	}
	return cols
}

// Save creates or updates a product together with its variations
func (r *GormProductRepository) Save(ctx context.Context, product *catalog.Product) error {
	model := models.ProductModelFromDomain(product)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Save(model).Error; err != nil {
			return err
		}
		for i := range model.Variations {
			if err := tx.Save(&model.Variations[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// GormMerchantSiteRepository implements catalog.MerchantSiteRepository using GORM
type GormMerchantSiteRepository struct {
	db *gorm.DB
}

// NewGormMerchantSiteRepository creates a new GormMerchantSiteRepository
func NewGormMerchantSiteRepository(db *gorm.DB) *GormMerchantSiteRepository {
	return &GormMerchantSiteRepository{db: db}
}

// FindByReference finds a merchant site by its marketplace reference
func (r *GormMerchantSiteRepository) FindByReference(ctx context.Context, reference string) (*catalog.MerchantSite, error) {
	var model models.MerchantSiteModel
	if err := r.db.WithContext(ctx).Where("reference = ?", reference).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save creates or updates a merchant site
func (r *GormMerchantSiteRepository) Save(ctx context.Context, site *catalog.MerchantSite) error {
	model := &models.MerchantSiteModel{}
	model.FromDomain(site)
	return r.db.WithContext(ctx).Save(model).Error
}

var (
	_ catalog.ProductRepository      = (*GormProductRepository)(nil)
	_ catalog.MerchantSiteRepository = (*GormMerchantSiteRepository)(nil)
)
