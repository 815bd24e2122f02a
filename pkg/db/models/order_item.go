package models

import "github.com/shopspring/decimal"

// OrderItem is a line of an Order; rows are replaced wholesale on every sync.
type OrderItem struct {
	ID            int64           `gorm:"column:id;primaryKey"`
	OrderID       int64           `gorm:"column:order_id;not null;index"`
	ItemID        string          `gorm:"column:item_id;not null"`
	VariationID   *int64          `gorm:"column:variation_id"`
	Title         string          `gorm:"column:title"`
	CategoryID    string          `gorm:"column:category_id"`
	Quantity      int             `gorm:"column:quantity;not null"`
	UnitPrice     decimal.Decimal `gorm:"column:unit_price;type:numeric(14,2);not null"`
	FullUnitPrice decimal.Decimal `gorm:"column:full_unit_price;type:numeric(14,2);not null"`
	SaleFee       decimal.Decimal `gorm:"column:sale_fee;type:numeric(14,2);not null"`
	CurrencyID    string          `gorm:"column:currency_id;type:varchar(8)"`
	Condition     string          `gorm:"column:condition"`
	Warranty      string          `gorm:"column:warranty"`
	SellerSKU     string          `gorm:"column:seller_sku;index"`
	Thumbnail     string          `gorm:"column:thumbnail"`
}
