package service

import (
	"context"

	"procurement/internal/model"
	"procurement/internal/repository"
	"procurement/pkg/apperror"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// StockDemand is one item's claim on inventory: which stock row, how much,
// and the version the caller last observed for that row.
type StockDemand struct {
	StockID         *uuid.UUID
	ItemName        string
	Quantity        decimal.Decimal
	ObservedVersion int
}

// StockReservationService atomically reserves inventory for a set of
// demands, or leaves all stock untouched. Two requests racing for the last
// unit of a SKU serialize on the row lock: the loser re-reads true
// availability and is told "insufficient" instead of double-claiming.
type StockReservationService struct {
	txm   repository.TransactionManager
	store *repository.VersionedStore
}

func NewStockReservationService(db *gorm.DB) *StockReservationService {
	return &StockReservationService{
		txm:   repository.NewTransactionManager(db),
		store: repository.NewVersionedStore(db),
	}
}

// ReserveAll processes the demands in one transaction (a savepoint when
// called inside an enclosing transaction). Per demand: a missing stock link
// or missing row fails as InsufficientStock; a version mismatch fails as
// Conflict (retryable, distinct from being out of stock); short availability
// fails as InsufficientStock. Any failure rolls back every reservation made
// in this call, so a request never holds a partial reservation.
func (s *StockReservationService) ReserveAll(ctx context.Context, demands []StockDemand) error {
	return s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		for _, d := range demands {
			if d.StockID == nil {
				return apperror.InsufficientStock(d.ItemName)
			}

			var stock model.Stock
			if err := s.store.LockForUpdate(txCtx, &stock, *d.StockID); err != nil {
				if apperror.IsKind(err, apperror.KindNotFound) {
					return apperror.InsufficientStock(d.ItemName)
				}
				return err
			}

			if err := s.store.CheckVersion(&stock, d.ObservedVersion); err != nil {
				return err
			}
			if stock.Available().Cmp(d.Quantity) < 0 {
				return apperror.InsufficientStock(d.ItemName)
			}

			stock.Reserved = stock.Reserved.Add(d.Quantity)
			if err := s.store.Save(txCtx, &stock); err != nil {
				return err
			}
		}
		return nil
	})
}
