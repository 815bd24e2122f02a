package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/marketsync-backend/pkg/enums"
)

// PendingSale is an inbound sale whose SKU could not be resolved to a product.
type PendingSale struct {
	ID              uuid.UUID               `gorm:"column:id;type:uuid;primaryKey"`
	PlatformID      enums.Platform          `gorm:"column:platform_id;not null;uniqueIndex:ux_pending_sales_order_sku,priority:1"`
	ExternalOrderID string                  `gorm:"column:external_order_id;type:varchar(64);not null;uniqueIndex:ux_pending_sales_order_sku,priority:2"`
	PlatformSKU     string                  `gorm:"column:platform_sku;type:varchar(100);not null;uniqueIndex:ux_pending_sales_order_sku,priority:3"`
	Title           string                  `gorm:"column:title"`
	Quantity        int                     `gorm:"column:quantity;not null"`
	SaleDate        time.Time               `gorm:"column:sale_date;not null;index"`
	Status          enums.PendingSaleStatus `gorm:"column:status;type:varchar(16);not null;index"`
	RawPayload      json.RawMessage         `gorm:"column:raw_payload;type:jsonb"`
	ProductID       *int64                  `gorm:"column:product_id"`
	ResolvedBy      *string                 `gorm:"column:resolved_by"`
	ResolvedAt      *time.Time              `gorm:"column:resolved_at"`
	CreatedAt       time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *PendingSale) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
