package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Approval step constants
const (
	StepVerify  = 1 // handled by PURCHASING
	StepApprove = 2 // handled by PURCHASING_MANAGER
)

// Approval action constants
const (
	ActionVerify  = "VERIFY"
	ActionApprove = "APPROVE"
	ActionReject  = "REJECT"
)

// Approval is one decision slot of the two-step sequence. Rows are created
// when a step becomes eligible, decided exactly once, never deleted.
// Unique constraints: one row per (request, step), one per (request, approver).
type Approval struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	RequestID  uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:uq_approval_step;uniqueIndex:uq_approval_approver" json:"request_id"`
	ApproverID uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:uq_approval_approver" json:"approver_id"`
	Approver   *User      `gorm:"foreignKey:ApproverID" json:"approver,omitempty"`
	Step       int        `gorm:"type:smallint;not null;uniqueIndex:uq_approval_step" json:"step"`
	Action     *string    `gorm:"type:varchar(20)" json:"action"` // nil while pending
	Notes      string     `gorm:"type:text" json:"notes"`
	ActedAt    *time.Time `json:"acted_at"`
	CreatedAt  time.Time  `json:"created_at"`
}

func (a *Approval) BeforeCreate(_ *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// Pending reports whether the decision slot is still undecided.
func (a *Approval) Pending() bool { return a.ActedAt == nil }
