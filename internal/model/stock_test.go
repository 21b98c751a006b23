package model

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestStockAvailable(t *testing.T) {
	s := Stock{
		Quantity: decimal.NewFromInt(10),
		Reserved: decimal.NewFromInt(3),
	}
	if got := s.Available(); !got.Equal(decimal.NewFromInt(7)) {
		t.Errorf("Available() = %s, want 7", got)
	}

	// A reserved amount above quantity must never surface as negative stock.
	s.Reserved = decimal.NewFromInt(12)
	if got := s.Available(); !got.Equal(decimal.Zero) {
		t.Errorf("Available() = %s, want 0", got)
	}
}

func TestStockIsLow(t *testing.T) {
	s := Stock{
		Quantity: decimal.NewFromInt(5),
		MinStock: decimal.NewFromInt(5),
	}
	if !s.IsLow() {
		t.Error("quantity at threshold should be low")
	}
	s.Quantity = decimal.NewFromInt(6)
	if s.IsLow() {
		t.Error("quantity above threshold should not be low")
	}
}
