package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// StatusHistory is the append-only audit record of a status transition.
// Rows are written in the same transaction as the transition itself and are
// never updated or deleted. FromStatus is nil for the creation record.
type StatusHistory struct {
	ID         uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	EntityType string            `gorm:"type:varchar(50);not null;index:idx_history_entity" json:"entity_type"` // 'request' | 'procurement_order'
	EntityID   uuid.UUID         `gorm:"type:uuid;not null;index:idx_history_entity" json:"entity_id"`
	FromStatus *string           `gorm:"type:varchar(50)" json:"from_status"`
	ToStatus   string            `gorm:"type:varchar(50);not null" json:"to_status"`
	ChangedBy  uuid.UUID         `gorm:"type:uuid;not null;index" json:"changed_by"`
	Actor      *User             `gorm:"foreignKey:ChangedBy" json:"actor,omitempty"`
	Reason     string            `gorm:"type:text" json:"reason,omitempty"`
	Metadata   datatypes.JSONMap `json:"metadata,omitempty"`
	CreatedAt  time.Time         `gorm:"index" json:"created_at"`
}

func (h *StatusHistory) BeforeCreate(_ *gorm.DB) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	return nil
}
