package repository

import (
	"context"
	"errors"
	"time"

	"procurement/internal/model"
	"procurement/pkg/apperror"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ProcurementOrderRepository interface {
	Create(ctx context.Context, po *model.ProcurementOrder) error
	CreateItems(ctx context.Context, items []model.ProcurementOrderItem) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.ProcurementOrder, error)
	GetByRequest(ctx context.Context, requestID uuid.UUID) (*model.ProcurementOrder, error)
	NextPONumber(ctx context.Context, now time.Time) (string, error)
}

type procurementOrderRepository struct {
	db *gorm.DB
}

func NewProcurementOrderRepository(db *gorm.DB) ProcurementOrderRepository {
	return &procurementOrderRepository{db: db}
}

func (r *procurementOrderRepository) Create(ctx context.Context, po *model.ProcurementOrder) error {
	return GetDB(ctx, r.db).Create(po).Error
}

func (r *procurementOrderRepository) CreateItems(ctx context.Context, items []model.ProcurementOrderItem) error {
	if len(items) == 0 {
		return nil
	}
	return GetDB(ctx, r.db).Create(&items).Error
}

func (r *procurementOrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.ProcurementOrder, error) {
	var po model.ProcurementOrder
	err := GetDB(ctx, r.db).
		Preload("Items").
		Preload("Vendor").
		Preload("Request").
		First(&po, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("procurement order %s not found", id)
		}
		return nil, err
	}
	return &po, nil
}

func (r *procurementOrderRepository) GetByRequest(ctx context.Context, requestID uuid.UUID) (*model.ProcurementOrder, error) {
	var po model.ProcurementOrder
	err := GetDB(ctx, r.db).
		Preload("Items").
		Preload("Vendor").
		First(&po, "request_id = ?", requestID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("no procurement order for request %s", requestID)
		}
		return nil, err
	}
	return &po, nil
}

func (r *procurementOrderRepository) NextPONumber(ctx context.Context, now time.Time) (string, error) {
	return nextSequenceNumber(GetDB(ctx, r.db), &model.ProcurementOrder{}, "PO", now)
}
