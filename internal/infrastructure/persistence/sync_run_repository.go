package persistence

import (
	"context"

	"github.com/erp/channelsync/internal/domain/integration"
	"github.com/erp/channelsync/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormSyncRunRepository implements integration.SyncRunRepository using GORM
type GormSyncRunRepository struct {
	db *gorm.DB
}

// NewGormSyncRunRepository creates a new GormSyncRunRepository
func NewGormSyncRunRepository(db *gorm.DB) *GormSyncRunRepository {
	return &GormSyncRunRepository{db: db}
}

// Save inserts or updates a run record
func (r *GormSyncRunRepository) Save(ctx context.Context, run *integration.SyncRun) error {
	model := &models.SyncRunModel{}
	model.FromDomain(run)
	return r.db.WithContext(ctx).Save(model).Error
}

// ListRecent returns the latest runs, newest first. An empty job lists all jobs.
func (r *GormSyncRunRepository) ListRecent(ctx context.Context, job integration.JobType, limit int) ([]integration.SyncRun, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	query := r.db.WithContext(ctx).Model(&models.SyncRunModel{})
	if job != "" {
		query = query.Where("job = ?", job)
	}

	var rows []models.SyncRunModel
	if err := query.Order("started_at DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	runs := make([]integration.SyncRun, len(rows))
	for i := range rows {
		runs[i] = *rows[i].ToDomain()
	}
	return runs, nil
}

var _ integration.SyncRunRepository = (*GormSyncRunRepository)(nil)
