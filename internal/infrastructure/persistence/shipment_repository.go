package persistence

import (
	"context"
	"errors"

	"github.com/erp/channelsync/internal/domain/shared"
	"github.com/erp/channelsync/internal/domain/shipping"
	"github.com/erp/channelsync/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var shipmentMutableColumns = []string{
	"status", "cod_collected", "picked_up_at", "in_transit_at", "out_for_delivery_at",
	"delivered_at", "failed_at", "returned_at", "updated_at",
}

// GormShipmentRepository implements shipping.ShipmentRepository using GORM
type GormShipmentRepository struct {
	db *gorm.DB
}

// NewGormShipmentRepository creates a new GormShipmentRepository
func NewGormShipmentRepository(db *gorm.DB) *GormShipmentRepository {
	return &GormShipmentRepository{db: db}
}

// FindByID finds a shipment with its tracking history
func (r *GormShipmentRepository) FindByID(ctx context.Context, id uuid.UUID) (*shipping.Shipment, error) {
	var model models.ShipmentModel
	if err := r.db.WithContext(ctx).
		Preload("Events", func(db *gorm.DB) *gorm.DB { return db.Order("occurred_at ASC, id ASC") }).
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindActive returns the next keyset page of shipments the carrier may still
// report on
func (r *GormShipmentRepository) FindActive(ctx context.Context, afterID uuid.UUID, limit int) ([]shipping.Shipment, error) {
	if limit <= 0 {
		limit = 100
	}
	query := r.db.WithContext(ctx).Where("status IN ?", shipping.ActiveStatuses())
	if afterID != uuid.Nil {
		query = query.Where("id > ?", afterID)
	}
	var rows []models.ShipmentModel
	if err := query.
		Order("id ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]shipping.Shipment, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out, nil
}

// Save creates a shipment with any events it already carries
func (r *GormShipmentRepository) Save(ctx context.Context, shipment *shipping.Shipment) error {
	model := &models.ShipmentModel{}
	model.FromDomain(shipment)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Save(model).Error; err != nil {
			return err
		}
		if len(model.Events) == 0 {
			return nil
		}
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&model.Events).Error
	})
}

// Update writes status, stage timestamps and COD state
func (r *GormShipmentRepository) Update(ctx context.Context, shipment *shipping.Shipment) error {
	model := &models.ShipmentModel{}
	model.FromDomain(shipment)
	result := r.db.WithContext(ctx).
		Model(&models.ShipmentModel{}).
		Where("id = ?", shipment.ID).
		Omit(clause.Associations).
		Select(shipmentMutableColumns).
		Updates(model)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// AppendEvent inserts a tracking event
func (r *GormShipmentRepository) AppendEvent(ctx context.Context, event *shipping.TrackingEvent) error {
	model := &models.TrackingEventModel{}
	model.FromDomain(event)
	return r.db.WithContext(ctx).Create(model).Error
}

// GormCarrierRepository implements shipping.CarrierRepository using GORM
type GormCarrierRepository struct {
	db *gorm.DB
}

// NewGormCarrierRepository creates a new GormCarrierRepository
func NewGormCarrierRepository(db *gorm.DB) *GormCarrierRepository {
	return &GormCarrierRepository{db: db}
}

// FindByID finds a carrier by ID
func (r *GormCarrierRepository) FindByID(ctx context.Context, id uuid.UUID) (*shipping.ShippingCarrier, error) {
	var model models.ShippingCarrierModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save creates or updates a carrier
func (r *GormCarrierRepository) Save(ctx context.Context, carrier *shipping.ShippingCarrier) error {
	model := &models.ShippingCarrierModel{}
	model.FromDomain(carrier)
	return r.db.WithContext(ctx).Save(model).Error
}

var (
	_ shipping.ShipmentRepository = (*GormShipmentRepository)(nil)
	_ shipping.CarrierRepository  = (*GormCarrierRepository)(nil)
)
