package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/marketsync-backend/pkg/enums"
)

// ProductAudit records the outcome of one (order, SKU) inventory deduction attempt.
type ProductAudit struct {
	ID              uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	PlatformID      enums.Platform    `gorm:"column:platform_id;not null;index:idx_product_audits_order,priority:1;uniqueIndex:ux_product_audits_outcome,priority:1"`
	ExternalOrderID string            `gorm:"column:external_order_id;type:varchar(64);not null;index:idx_product_audits_order,priority:2;uniqueIndex:ux_product_audits_outcome,priority:2"`
	PlatformSKU     string            `gorm:"column:platform_sku;type:varchar(100);not null;uniqueIndex:ux_product_audits_outcome,priority:3"`
	ProductID       *int64            `gorm:"column:product_id;uniqueIndex:ux_product_audits_outcome,priority:4"`
	Status          enums.AuditStatus `gorm:"column:status;type:varchar(16);not null;uniqueIndex:ux_product_audits_outcome,priority:5"`
	Quantity        int               `gorm:"column:quantity;not null"`
	Reason          string            `gorm:"column:reason"`
	CreatedAt       time.Time         `gorm:"column:created_at;autoCreateTime;index"`
}

func (a *ProductAudit) BeforeCreate(*gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
