package service

import (
	"context"
	"sync"
	"testing"

	"procurement/internal/model"
	"procurement/pkg/apperror"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func reloadStock(t *testing.T, db *gorm.DB, id uuid.UUID) *model.Stock {
	t.Helper()
	var stock model.Stock
	if err := db.First(&stock, "id = ?", id).Error; err != nil {
		t.Fatalf("reload stock: %v", err)
	}
	return &stock
}

func TestReserveAll_ClaimsStockAndBumpsVersion(t *testing.T) {
	db := testDB(t)
	stock := seedStock(t, db, "CABLE-HDMI", 10)
	svc := NewStockReservationService(db)

	err := svc.ReserveAll(context.Background(), []StockDemand{
		{StockID: &stock.ID, ItemName: "HDMI cable", Quantity: decimal.NewFromInt(4), ObservedVersion: stock.Version},
	})
	if err != nil {
		t.Fatalf("ReserveAll: %v", err)
	}

	reloaded := reloadStock(t, db, stock.ID)
	if !reloaded.Reserved.Equal(decimal.NewFromInt(4)) {
		t.Errorf("reserved = %s, want 4", reloaded.Reserved)
	}
	if reloaded.Version != stock.Version+1 {
		t.Errorf("version = %d, want %d", reloaded.Version, stock.Version+1)
	}
	if !reloaded.Available().Equal(decimal.NewFromInt(6)) {
		t.Errorf("available = %s, want 6", reloaded.Available())
	}
}

func TestReserveAll_StaleVersionConflicts(t *testing.T) {
	db := testDB(t)
	stock := seedStock(t, db, "SSD-1TB", 10)
	svc := NewStockReservationService(db)
	ctx := context.Background()

	// First actor reserves at the observed version.
	if err := svc.ReserveAll(ctx, []StockDemand{
		{StockID: &stock.ID, ItemName: "SSD", Quantity: decimal.NewFromInt(2), ObservedVersion: stock.Version},
	}); err != nil {
		t.Fatalf("first ReserveAll: %v", err)
	}

	// Second actor still holds the old version: Conflict, not InsufficientStock.
	err := svc.ReserveAll(ctx, []StockDemand{
		{StockID: &stock.ID, ItemName: "SSD", Quantity: decimal.NewFromInt(2), ObservedVersion: stock.Version},
	})
	if !apperror.IsKind(err, apperror.KindConflict) {
		t.Fatalf("stale ReserveAll: err = %v, want Conflict", err)
	}

	reloaded := reloadStock(t, db, stock.ID)
	if !reloaded.Reserved.Equal(decimal.NewFromInt(2)) {
		t.Errorf("reserved = %s, want 2 (conflict must not double-claim)", reloaded.Reserved)
	}
}

func TestReserveAll_InsufficientRollsBackEverything(t *testing.T) {
	db := testDB(t)
	plenty := seedStock(t, db, "MOUSE", 100)
	scarce := seedStock(t, db, "GPU", 1)
	svc := NewStockReservationService(db)

	err := svc.ReserveAll(context.Background(), []StockDemand{
		{StockID: &plenty.ID, ItemName: "Mouse", Quantity: decimal.NewFromInt(10), ObservedVersion: plenty.Version},
		{StockID: &scarce.ID, ItemName: "GPU", Quantity: decimal.NewFromInt(5), ObservedVersion: scarce.Version},
	})
	if !apperror.IsKind(err, apperror.KindInsufficientStock) {
		t.Fatalf("err = %v, want InsufficientStock", err)
	}

	// All-or-nothing: the first reservation was rolled back too.
	first := reloadStock(t, db, plenty.ID)
	if !first.Reserved.IsZero() {
		t.Errorf("plenty reserved = %s, want 0", first.Reserved)
	}
	if first.Version != plenty.Version {
		t.Errorf("plenty version = %d, want unchanged %d", first.Version, plenty.Version)
	}
}

func TestReserveAll_UntrackedItemIsInsufficient(t *testing.T) {
	db := testDB(t)
	svc := NewStockReservationService(db)

	err := svc.ReserveAll(context.Background(), []StockDemand{
		{StockID: nil, ItemName: "Custom engraving", Quantity: decimal.NewFromInt(1)},
	})
	if !apperror.IsKind(err, apperror.KindInsufficientStock) {
		t.Fatalf("err = %v, want InsufficientStock", err)
	}

	missing := uuid.New()
	err = svc.ReserveAll(context.Background(), []StockDemand{
		{StockID: &missing, ItemName: "Ghost SKU", Quantity: decimal.NewFromInt(1)},
	})
	if !apperror.IsKind(err, apperror.KindInsufficientStock) {
		t.Fatalf("missing row: err = %v, want InsufficientStock", err)
	}
}

func TestReserveAll_ExactAvailabilitySucceeds(t *testing.T) {
	db := testDB(t)
	stock := seedStock(t, db, "KEYBOARD", 3)
	svc := NewStockReservationService(db)

	if err := svc.ReserveAll(context.Background(), []StockDemand{
		{StockID: &stock.ID, ItemName: "Keyboard", Quantity: decimal.NewFromInt(3), ObservedVersion: stock.Version},
	}); err != nil {
		t.Fatalf("ReserveAll: %v", err)
	}

	reloaded := reloadStock(t, db, stock.ID)
	if !reloaded.Available().IsZero() {
		t.Errorf("available = %s, want 0", reloaded.Available())
	}

	// One more unit is one too many.
	err := svc.ReserveAll(context.Background(), []StockDemand{
		{StockID: &stock.ID, ItemName: "Keyboard", Quantity: decimal.NewFromInt(1), ObservedVersion: reloaded.Version},
	})
	if !apperror.IsKind(err, apperror.KindInsufficientStock) {
		t.Fatalf("over-reserve: err = %v, want InsufficientStock", err)
	}
}

func TestReserveAll_ConcurrentClaimsSingleWinner(t *testing.T) {
	db := testDB(t)
	// Every pool connection to :memory: is a separate database; pin the pool
	// to one connection so both goroutines share the same rows.
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	stock := seedStock(t, db, "MON-27", 5)
	svc := NewStockReservationService(db)

	// Two actors race for 4 of 5 units each, both holding the same observed
	// version. Only one claim may land.
	results := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- svc.ReserveAll(context.Background(), []StockDemand{
				{StockID: &stock.ID, ItemName: "Monitor", Quantity: decimal.NewFromInt(4), ObservedVersion: stock.Version},
			})
		}()
	}
	wg.Wait()
	close(results)

	var wins, losses int
	for err := range results {
		switch {
		case err == nil:
			wins++
		case apperror.IsKind(err, apperror.KindConflict), apperror.IsKind(err, apperror.KindInsufficientStock):
			losses++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if wins != 1 || losses != 1 {
		t.Fatalf("wins = %d, losses = %d, want exactly one of each", wins, losses)
	}

	reloaded := reloadStock(t, db, stock.ID)
	if reloaded.Reserved.GreaterThan(reloaded.Quantity) {
		t.Errorf("reserved %s exceeds quantity %s", reloaded.Reserved, reloaded.Quantity)
	}
	if !reloaded.Reserved.Equal(decimal.NewFromInt(4)) {
		t.Errorf("reserved = %s, want 4", reloaded.Reserved)
	}
	if reloaded.Version != stock.Version+1 {
		t.Errorf("version = %d, want %d", reloaded.Version, stock.Version+1)
	}
}
