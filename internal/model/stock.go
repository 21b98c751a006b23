package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Stock is an inventory SKU. Quantity and Reserved are mutated only through
// the reservation service; invariant 0 <= reserved <= quantity.
type Stock struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	SKU       string          `gorm:"type:varchar(50);uniqueIndex;not null" json:"sku"`
	Name      string          `gorm:"type:varchar(200);not null" json:"name"`
	Category  string          `gorm:"type:varchar(30);not null;default:'OTHER'" json:"category"`
	Unit      string          `gorm:"type:varchar(30);not null" json:"unit"`
	Location  string          `gorm:"type:varchar(100)" json:"location"`
	Quantity  decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"quantity"`
	Reserved  decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"reserved"`
	MinStock  decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"min_stock"`
	Version   int             `gorm:"not null;default:1" json:"version"` // optimistic locking
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	DeletedAt gorm.DeletedAt  `gorm:"index" json:"-"`
}

func (s *Stock) BeforeCreate(_ *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if s.Version == 0 {
		s.Version = 1
	}
	return nil
}

// Available returns quantity - reserved, floored at zero.
func (s *Stock) Available() decimal.Decimal {
	avail := s.Quantity.Sub(s.Reserved)
	if avail.IsNegative() {
		return decimal.Zero
	}
	return avail
}

// IsLow reports whether on-hand quantity is at or below the minimum threshold.
func (s *Stock) IsLow() bool { return s.Quantity.Cmp(s.MinStock) <= 0 }

// Versioned entity contract used by the compare-and-swap store.
func (s *Stock) EntityType() string  { return "stock" }
func (s *Stock) EntityID() uuid.UUID { return s.ID }
func (s *Stock) CurrentVersion() int { return s.Version }
func (s *Stock) BumpVersion()        { s.Version++ }
