package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/marketsync-backend/pkg/enums"
)

// ProductHistory is an append-only record of one product field change.
type ProductHistory struct {
	ID               uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	ProductID        int64            `gorm:"column:product_id;not null;index"`
	Field            string           `gorm:"column:field;not null"`
	OldValue         string           `gorm:"column:old_value"`
	NewValue         string           `gorm:"column:new_value"`
	ChangeType       enums.ChangeType `gorm:"column:change_type;type:varchar(16);not null"`
	AdjustmentAmount *int             `gorm:"column:adjustment_amount"`
	Actor            string           `gorm:"column:actor"`
	PlatformID       *enums.Platform  `gorm:"column:platform_id"`
	ExternalOrderID  *string          `gorm:"column:external_order_id"`
	Reason           string           `gorm:"column:reason"`
	CreatedAt        time.Time        `gorm:"column:created_at;autoCreateTime;index"`
}

func (h *ProductHistory) BeforeCreate(*gorm.DB) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	return nil
}
