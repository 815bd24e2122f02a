package models

import "github.com/angelmondragon/marketsync-backend/pkg/enums"

// SecondarySku binds a product to a marketplace listing (and optionally one of its variations).
type SecondarySku struct {
	ID           int64          `gorm:"column:id;primaryKey"`
	ProductID    int64          `gorm:"column:product_id;not null;index"`
	PlatformID   enums.Platform `gorm:"column:platform_id;not null;uniqueIndex:ux_secondary_skus_listing,priority:1"`
	ListingID    string         `gorm:"column:listing_id;type:varchar(64);not null;uniqueIndex:ux_secondary_skus_listing,priority:2"`
	VariationID  *int64         `gorm:"column:variation_id;uniqueIndex:ux_secondary_skus_listing,priority:3"`
	SKU          string         `gorm:"column:sku;type:varchar(100)"`
	Stock        int            `gorm:"column:stock;not null"`
	LogisticType string         `gorm:"column:logistic_type;type:varchar(32)"`
}
