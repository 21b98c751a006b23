package repository

import (
	"context"

	"procurement/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StatusHistoryRepository is the append-only audit trail writer/reader.
// There is deliberately no update or delete method.
type StatusHistoryRepository interface {
	Append(ctx context.Context, record *model.StatusHistory) error
	ListByEntity(ctx context.Context, entityType string, entityID uuid.UUID) ([]model.StatusHistory, error)
	CountByEntity(ctx context.Context, entityType string, entityID uuid.UUID) (int64, error)
}

type statusHistoryRepository struct {
	db *gorm.DB
}

func NewStatusHistoryRepository(db *gorm.DB) StatusHistoryRepository {
	return &statusHistoryRepository{db: db}
}

func (r *statusHistoryRepository) Append(ctx context.Context, record *model.StatusHistory) error {
	return GetDB(ctx, r.db).Create(record).Error
}

func (r *statusHistoryRepository) ListByEntity(ctx context.Context, entityType string, entityID uuid.UUID) ([]model.StatusHistory, error) {
	var records []model.StatusHistory
	err := GetDB(ctx, r.db).
		Preload("Actor").
		Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		Order("created_at DESC").
		Find(&records).Error
	return records, err
}

func (r *statusHistoryRepository) CountByEntity(ctx context.Context, entityType string, entityID uuid.UUID) (int64, error) {
	var count int64
	err := GetDB(ctx, r.db).
		Model(&model.StatusHistory{}).
		Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		Count(&count).Error
	return count, err
}
