package repository

import (
	"context"
	"errors"

	"procurement/internal/model"
	"procurement/pkg/apperror"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type VendorRepository interface {
	Create(ctx context.Context, vendor *model.Vendor) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Vendor, error)
	List(ctx context.Context, page, limit int) ([]model.Vendor, int64, error)
	Update(ctx context.Context, vendor *model.Vendor) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type vendorRepository struct {
	db *gorm.DB
}

func NewVendorRepository(db *gorm.DB) VendorRepository {
	return &vendorRepository{db: db}
}

func (r *vendorRepository) Create(ctx context.Context, vendor *model.Vendor) error {
	return GetDB(ctx, r.db).Create(vendor).Error
}

func (r *vendorRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Vendor, error) {
	var vendor model.Vendor
	if err := GetDB(ctx, r.db).First(&vendor, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("vendor %s not found", id)
		}
		return nil, err
	}
	return &vendor, nil
}

func (r *vendorRepository) List(ctx context.Context, page, limit int) ([]model.Vendor, int64, error) {
	var total int64
	if err := GetDB(ctx, r.db).Model(&model.Vendor{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var vendors []model.Vendor
	err := GetDB(ctx, r.db).
		Order("code ASC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&vendors).Error
	return vendors, total, err
}

func (r *vendorRepository) Update(ctx context.Context, vendor *model.Vendor) error {
	return GetDB(ctx, r.db).Save(vendor).Error
}

func (r *vendorRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.Vendor{}).Error
}
