package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a locally stocked unit identified by its internal SKU.
type Product struct {
	ID             int64           `gorm:"column:id;primaryKey"`
	InternalSKU    string          `gorm:"column:internal_sku;type:varchar(100);not null;uniqueIndex:ux_products_internal_sku"`
	Name           string          `gorm:"column:name;not null"`
	Stock          int             `gorm:"column:stock;not null"`
	SecondaryStock *int            `gorm:"column:secondary_stock"`
	Cost           decimal.Decimal `gorm:"column:cost;type:numeric(14,2);not null"`
	Price          decimal.Decimal `gorm:"column:price;type:numeric(14,2);not null"`
	Category       string          `gorm:"column:category"`
	SecondarySkus  []SecondarySku  `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
