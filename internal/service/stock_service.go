package service

import (
	"context"

	"procurement/internal/model"
	"procurement/internal/repository"
	"procurement/pkg/apperror"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type CreateStockDTO struct {
	SKU      string          `json:"sku" binding:"required,max=50"`
	Name     string          `json:"name" binding:"required,max=200"`
	Category string          `json:"category" binding:"omitempty,oneof=OFFICE_SUPPLY ELECTRONIC FURNITURE SERVICE RAW_MATERIAL OTHER"`
	Unit     string          `json:"unit" binding:"required,max=30"`
	Location string          `json:"location" binding:"max=100"`
	Quantity decimal.Decimal `json:"quantity"`
	MinStock decimal.Decimal `json:"min_stock"`
}

type UpdateStockDTO struct {
	Name     string           `json:"name" binding:"omitempty,max=200"`
	Category string           `json:"category" binding:"omitempty,oneof=OFFICE_SUPPLY ELECTRONIC FURNITURE SERVICE RAW_MATERIAL OTHER"`
	Unit     string           `json:"unit" binding:"omitempty,max=30"`
	Location string           `json:"location" binding:"omitempty,max=100"`
	MinStock *decimal.Decimal `json:"min_stock"`
}

type AdjustStockDTO struct {
	Version int             `json:"version" binding:"required"`
	Delta   decimal.Decimal `json:"delta" binding:"required"`
	Reason  string          `json:"reason" binding:"max=500"`
}

// StockService covers warehouse master data and quantity adjustments.
// Reservation belongs to StockReservationService; this service never
// touches the reserved column.
type StockService interface {
	Create(ctx context.Context, dto CreateStockDTO) (*model.Stock, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Stock, error)
	List(ctx context.Context, page, limit int) ([]model.Stock, int64, error)
	ListLow(ctx context.Context) ([]model.Stock, error)
	Update(ctx context.Context, id uuid.UUID, dto UpdateStockDTO) (*model.Stock, error)
	Adjust(ctx context.Context, id uuid.UUID, actor *model.User, dto AdjustStockDTO) (*model.Stock, error)
}

type stockService struct {
	txm     repository.TransactionManager
	store   *repository.VersionedStore
	stocks  repository.StockRepository
	history repository.StatusHistoryRepository
}

func NewStockService(db *gorm.DB) StockService {
	return &stockService{
		txm:     repository.NewTransactionManager(db),
		store:   repository.NewVersionedStore(db),
		stocks:  repository.NewStockRepository(db),
		history: repository.NewStatusHistoryRepository(db),
	}
}

func (s *stockService) Create(ctx context.Context, dto CreateStockDTO) (*model.Stock, error) {
	category := dto.Category
	if category == "" {
		category = model.CategoryOther
	}
	stock := &model.Stock{
		SKU:      dto.SKU,
		Name:     dto.Name,
		Category: category,
		Unit:     dto.Unit,
		Location: dto.Location,
		Quantity: dto.Quantity,
		MinStock: dto.MinStock,
	}
	if err := s.stocks.Create(ctx, stock); err != nil {
		return nil, err
	}
	return stock, nil
}

func (s *stockService) Get(ctx context.Context, id uuid.UUID) (*model.Stock, error) {
	return s.stocks.GetByID(ctx, id)
}

func (s *stockService) List(ctx context.Context, page, limit int) ([]model.Stock, int64, error) {
	return s.stocks.List(ctx, page, limit)
}

func (s *stockService) ListLow(ctx context.Context) ([]model.Stock, error) {
	return s.stocks.ListLow(ctx)
}

func (s *stockService) Update(ctx context.Context, id uuid.UUID, dto UpdateStockDTO) (*model.Stock, error) {
	stock, err := s.stocks.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if dto.Name != "" {
		stock.Name = dto.Name
	}
	if dto.Category != "" {
		stock.Category = dto.Category
	}
	if dto.Unit != "" {
		stock.Unit = dto.Unit
	}
	if dto.Location != "" {
		stock.Location = dto.Location
	}
	if dto.MinStock != nil {
		stock.MinStock = *dto.MinStock
	}
	if err := s.stocks.UpdateDetails(ctx, stock); err != nil {
		return nil, err
	}
	return s.stocks.GetByID(ctx, id)
}

// Adjust changes on-hand quantity by delta under the usual version contract.
// A negative delta may not take quantity below the reserved amount.
func (s *stockService) Adjust(ctx context.Context, id uuid.UUID, actor *model.User, dto AdjustStockDTO) (*model.Stock, error) {
	var stock model.Stock
	err := s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.store.LockForUpdate(txCtx, &stock, id); err != nil {
			return err
		}
		if err := s.store.CheckVersion(&stock, dto.Version); err != nil {
			return err
		}

		next := stock.Quantity.Add(dto.Delta)
		if next.Cmp(stock.Reserved) < 0 {
			return apperror.Conflict("adjustment would take stock %s below its reserved amount", stock.SKU)
		}
		stock.Quantity = next
		if err := s.store.Save(txCtx, &stock); err != nil {
			return err
		}

		return s.history.Append(txCtx, &model.StatusHistory{
			EntityType: stock.EntityType(),
			EntityID:   stock.ID,
			ToStatus:   "ADJUSTED",
			ChangedBy:  actor.ID,
			Reason:     dto.Reason,
			Metadata: datatypes.JSONMap{
				"delta":        dto.Delta.String(),
				"new_quantity": stock.Quantity.String(),
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return &stock, nil
}
