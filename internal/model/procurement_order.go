package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ProcurementOrder status constants
const (
	POStatusPending           = "PENDING"
	POStatusOrdered           = "ORDERED"
	POStatusPartiallyReceived = "PARTIALLY_RECEIVED"
	POStatusCompleted         = "COMPLETED"
	POStatusCancelled         = "CANCELLED"
)

// ProcurementOrder is a vendor order raised when warehouse stock cannot
// satisfy a request. TotalAmount is derived from the line items and never
// set by callers.
type ProcurementOrder struct {
	ID          uuid.UUID              `gorm:"type:uuid;primaryKey" json:"id"`
	PONumber    string                 `gorm:"type:varchar(30);uniqueIndex;not null" json:"po_number"` // PO-YYYY-NNNNNN
	RequestID   uuid.UUID              `gorm:"type:uuid;not null;index" json:"request_id"`
	Request     *Request               `gorm:"foreignKey:RequestID" json:"request,omitempty"`
	VendorID    uuid.UUID              `gorm:"type:uuid;not null;index" json:"vendor_id"`
	Vendor      *Vendor                `gorm:"foreignKey:VendorID" json:"vendor,omitempty"`
	CreatedBy   uuid.UUID              `gorm:"type:uuid;not null" json:"created_by"`
	Creator     *User                  `gorm:"foreignKey:CreatedBy" json:"creator,omitempty"`
	Status      string                 `gorm:"type:varchar(30);not null;default:'PENDING'" json:"status"`
	TotalAmount decimal.Decimal        `gorm:"type:numeric(18,2);not null;default:0" json:"total_amount"`
	OrderedAt   *time.Time             `json:"ordered_at"`
	ExpectedAt  *time.Time             `gorm:"type:date" json:"expected_at"`
	ReceivedAt  *time.Time             `json:"received_at"`
	Notes       string                 `gorm:"type:text" json:"notes"`
	Items       []ProcurementOrderItem `gorm:"foreignKey:POID" json:"items,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
	DeletedAt   gorm.DeletedAt         `gorm:"index" json:"-"`
}

func (p *ProcurementOrder) BeforeCreate(_ *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// ProcurementOrderItem is a vendor order line. It may reference the request
// item it covers; purchasing can order different quantities and prices.
type ProcurementOrderItem struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	POID          uuid.UUID       `gorm:"type:uuid;not null;index;column:po_id" json:"po_id"`
	RequestItemID *uuid.UUID      `gorm:"type:uuid" json:"request_item_id"`
	ItemName      string          `gorm:"type:varchar(200);not null" json:"item_name"`
	Quantity      decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"quantity"`
	UnitPrice     decimal.Decimal `gorm:"type:numeric(15,2);not null" json:"unit_price"`
	ReceivedQty   decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"received_qty"`
	CreatedAt     time.Time       `json:"created_at"`
}

func (i *ProcurementOrderItem) BeforeCreate(_ *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// TotalPrice returns quantity * unit_price for the line.
func (i *ProcurementOrderItem) TotalPrice() decimal.Decimal {
	return i.Quantity.Mul(i.UnitPrice)
}

// Vendor is a supplier procurement orders are placed with
type Vendor struct {
	ID           uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	Code         string           `gorm:"type:varchar(20);uniqueIndex;not null" json:"code"`
	Name         string           `gorm:"type:varchar(150);not null" json:"name"`
	ContactName  string           `gorm:"type:varchar(100)" json:"contact_name"`
	ContactEmail string           `gorm:"type:varchar(150)" json:"contact_email"`
	ContactPhone string           `gorm:"type:varchar(30)" json:"contact_phone"`
	Address      string           `gorm:"type:text" json:"address"`
	IsActive     bool             `gorm:"default:true" json:"is_active"`
	Rating       *decimal.Decimal `gorm:"type:numeric(3,2)" json:"rating"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
	DeletedAt    gorm.DeletedAt   `gorm:"index" json:"-"`
}

func (v *Vendor) BeforeCreate(_ *gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}
