package persistence

import (
	"context"
	"errors"

	"github.com/erp/channelsync/internal/domain/shared"
	"github.com/erp/channelsync/internal/domain/trade"
	"github.com/erp/channelsync/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// orderMutableColumns are the columns Update writes. Identity, customer and
// totals are fixed at creation.
var orderMutableColumns = []string{
	"status", "payment_status", "shipping_address", "billing_address",
	"source_metadata", "carrier_id", "shipped_at", "delivered_at", "updated_at",
}

// GormOrderRepository implements trade.OrderRepository using GORM
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// FindByID finds an order with its items by ID
func (r *GormOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*trade.Order, error) {
	return r.findOne(ctx, "id = ?", id)
}

// FindBySourceReference finds an ingested order by its remote identity
func (r *GormOrderRepository) FindBySourceReference(ctx context.Context, source, reference string) (*trade.Order, error) {
	if reference == "" {
		return nil, shared.ErrNotFound
	}
	return r.findOne(ctx, "source = ? AND source_reference = ?", source, reference)
}

func (r *GormOrderRepository) findOne(ctx context.Context, query string, args ...any) (*trade.Order, error) {
	var model models.OrderModel
	if err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("remote_line_id ASC, id ASC") }).
		Where(query, args...).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Create inserts the order and its line items
func (r *GormOrderRepository) Create(ctx context.Context, order *trade.Order) error {
	model := models.OrderModelFromDomain(order)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return shared.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// Update writes the mutable order header columns; items are left untouched
func (r *GormOrderRepository) Update(ctx context.Context, order *trade.Order) error {
	model := models.OrderModelFromDomain(order)
	result := r.db.WithContext(ctx).
		Model(&models.OrderModel{}).
		Where("id = ?", order.ID).
		Omit(clause.Associations).
		Select(orderMutableColumns).
		Updates(model)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

var _ trade.OrderRepository = (*GormOrderRepository)(nil)
