package models

import (
	"time"

	"github.com/angelmondragon/marketsync-backend/pkg/enums"
)

// ProductMapping is an operator-curated link from a platform SKU to a local product.
type ProductMapping struct {
	ID          int64          `gorm:"column:id;primaryKey"`
	PlatformID  enums.Platform `gorm:"column:platform_id;not null;uniqueIndex:ux_product_mappings_sku_product,priority:1"`
	PlatformSKU string         `gorm:"column:platform_sku;type:varchar(100);not null;uniqueIndex:ux_product_mappings_sku_product,priority:2"`
	ProductID   int64          `gorm:"column:product_id;not null;uniqueIndex:ux_product_mappings_sku_product,priority:3"`
	Quantity    int            `gorm:"column:quantity;not null"`
	IsActive    bool           `gorm:"column:is_active;not null"`
	Product     *Product       `gorm:"foreignKey:ProductID"`
	CreatedAt   time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
