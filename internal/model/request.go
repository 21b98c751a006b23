package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// RequestStatus constants
const (
	StatusDraft         = "DRAFT"
	StatusSubmitted     = "SUBMITTED"
	StatusVerified      = "VERIFIED"
	StatusApproved      = "APPROVED"
	StatusRejected      = "REJECTED"
	StatusInProcurement = "IN_PROCUREMENT"
	StatusReady         = "READY"
	StatusCompleted     = "COMPLETED"
	StatusCancelled     = "CANCELLED"
)

// TerminalStatuses admit no further transition
var TerminalStatuses = []string{StatusCompleted, StatusCancelled, StatusRejected}

// Transitions is the strict allow-list of legal status changes.
// Any pair not listed here is rejected by the lifecycle service.
var Transitions = map[string][]string{
	StatusDraft:         {StatusSubmitted, StatusCancelled},
	StatusSubmitted:     {StatusVerified, StatusRejected, StatusCancelled},
	StatusVerified:      {StatusApproved, StatusRejected},
	StatusApproved:      {StatusInProcurement, StatusReady},
	StatusInProcurement: {StatusReady},
	StatusReady:         {StatusCompleted},
}

// ItemCategory constants
const (
	CategoryOfficeSupply = "OFFICE_SUPPLY"
	CategoryElectronic   = "ELECTRONIC"
	CategoryFurniture    = "FURNITURE"
	CategoryService      = "SERVICE"
	CategoryRawMaterial  = "RAW_MATERIAL"
	CategoryOther        = "OTHER"
)

// Request is a single procurement ask moving through the approval lifecycle.
// Status and Version are owned exclusively by the lifecycle service.
type Request struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	RequestNumber string         `gorm:"type:varchar(30);uniqueIndex;not null" json:"request_number"` // REQ-YYYY-NNNNNN
	RequesterID   uuid.UUID      `gorm:"type:uuid;not null;index" json:"requester_id"`
	Requester     *User          `gorm:"foreignKey:RequesterID" json:"requester,omitempty"`
	DepartmentID  *uuid.UUID     `gorm:"type:uuid;index" json:"department_id"`
	Department    *Department    `gorm:"foreignKey:DepartmentID" json:"department,omitempty"`
	Title         string         `gorm:"type:varchar(200);not null" json:"title"`
	Description   string         `gorm:"type:text" json:"description"`
	Priority      int            `gorm:"type:smallint;default:2" json:"priority"` // 1 (low) .. 5 (urgent)
	RequiredDate  *time.Time     `gorm:"type:date" json:"required_date"`
	Status        string         `gorm:"type:varchar(20);not null;default:'DRAFT';index" json:"status"`
	Version       int            `gorm:"not null;default:1" json:"version"` // optimistic locking
	SubmittedAt   *time.Time     `json:"submitted_at"`
	CompletedAt   *time.Time     `json:"completed_at"`
	Items         []RequestItem  `gorm:"foreignKey:RequestID" json:"items,omitempty"`
	Approvals     []Approval     `gorm:"foreignKey:RequestID" json:"approvals,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

func (r *Request) BeforeCreate(_ *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.Version == 0 {
		r.Version = 1
	}
	return nil
}

// CanTransitionTo reports whether moving to newStatus is legal from the
// request's current status.
func (r *Request) CanTransitionTo(newStatus string) bool {
	for _, s := range Transitions[r.Status] {
		if s == newStatus {
			return true
		}
	}
	return false
}

func (r *Request) IsTerminal() bool {
	for _, s := range TerminalStatuses {
		if r.Status == s {
			return true
		}
	}
	return false
}

// Versioned entity contract used by the compare-and-swap store.
func (r *Request) EntityType() string  { return "request" }
func (r *Request) EntityID() uuid.UUID { return r.ID }
func (r *Request) CurrentVersion() int { return r.Version }
func (r *Request) BumpVersion()        { r.Version++ }

// RequestItem is a line item of a request. Immutable after submission;
// optionally linked to a tracked Stock row for auto-reservation.
type RequestItem struct {
	ID             uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	RequestID      uuid.UUID        `gorm:"type:uuid;not null;index" json:"request_id"`
	StockID        *uuid.UUID       `gorm:"type:uuid;index" json:"stock_id"`
	Stock          *Stock           `gorm:"foreignKey:StockID" json:"stock,omitempty"`
	ItemName       string           `gorm:"type:varchar(200);not null" json:"item_name"`
	Category       string           `gorm:"type:varchar(30);not null;default:'OTHER'" json:"category"`
	Quantity       decimal.Decimal  `gorm:"type:numeric(12,2);not null" json:"quantity"`
	Unit           string           `gorm:"type:varchar(30);not null" json:"unit"`
	EstimatedPrice *decimal.Decimal `gorm:"type:numeric(15,2)" json:"estimated_price"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

func (i *RequestItem) BeforeCreate(_ *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
