package repository

import (
	"context"
	"errors"

	"procurement/internal/model"
	"procurement/pkg/apperror"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type StockRepository interface {
	Create(ctx context.Context, stock *model.Stock) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Stock, error)
	List(ctx context.Context, page, limit int) ([]model.Stock, int64, error)
	ListLow(ctx context.Context) ([]model.Stock, error)
	UpdateDetails(ctx context.Context, stock *model.Stock) error
}

type stockRepository struct {
	db *gorm.DB
}

func NewStockRepository(db *gorm.DB) StockRepository {
	return &stockRepository{db: db}
}

func (r *stockRepository) Create(ctx context.Context, stock *model.Stock) error {
	return GetDB(ctx, r.db).Create(stock).Error
}

func (r *stockRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Stock, error) {
	var stock model.Stock
	if err := GetDB(ctx, r.db).First(&stock, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("stock %s not found", id)
		}
		return nil, err
	}
	return &stock, nil
}

func (r *stockRepository) List(ctx context.Context, page, limit int) ([]model.Stock, int64, error) {
	var total int64
	if err := GetDB(ctx, r.db).Model(&model.Stock{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var stocks []model.Stock
	err := GetDB(ctx, r.db).
		Order("sku ASC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&stocks).Error
	return stocks, total, err
}

func (r *stockRepository) ListLow(ctx context.Context) ([]model.Stock, error) {
	var stocks []model.Stock
	err := GetDB(ctx, r.db).
		Where("quantity <= min_stock").
		Order("sku ASC").
		Find(&stocks).Error
	return stocks, err
}

// UpdateDetails saves descriptive fields only. Quantity, reserved and version
// belong to the reservation service and are never written here.
func (r *stockRepository) UpdateDetails(ctx context.Context, stock *model.Stock) error {
	return GetDB(ctx, r.db).Model(stock).
		Select("name", "category", "unit", "location", "min_stock").
		Updates(stock).Error
}
