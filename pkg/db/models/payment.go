package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/marketsync-backend/pkg/enums"
)

// Payment carries the marketplace payment plus the derived financial breakdown.
type Payment struct {
	ID                int64               `gorm:"column:id;primaryKey;autoIncrement:false"`
	OrderID           int64               `gorm:"column:order_id;not null;index"`
	Status            enums.PaymentStatus `gorm:"column:status;type:varchar(32);not null"`
	StatusDetail      string              `gorm:"column:status_detail"`
	TransactionAmount decimal.Decimal     `gorm:"column:transaction_amount;type:numeric(14,2);not null"`
	TotalPaidAmount   decimal.Decimal     `gorm:"column:total_paid_amount;type:numeric(14,2);not null"`
	IVAAmount         decimal.Decimal     `gorm:"column:iva_amount;type:numeric(14,2);not null"`
	MarketplaceFee    decimal.Decimal     `gorm:"column:marketplace_fee;type:numeric(14,2);not null"`
	ShippingCost      decimal.Decimal     `gorm:"column:shipping_cost;type:numeric(14,2);not null"`
	ShippingIncome    decimal.Decimal     `gorm:"column:shipping_income;type:numeric(14,2);not null"`
	ShippingBonus     decimal.Decimal     `gorm:"column:shipping_bonus;type:numeric(14,2);not null"`
	CourierCost       decimal.Decimal     `gorm:"column:courier_cost;type:numeric(14,2);not null"`
	FaztCost          decimal.Decimal     `gorm:"column:fazt_cost;type:numeric(14,2);not null"`
	IsSpecialZone     bool                `gorm:"column:is_special_zone;not null"`
	CurrencyID        string              `gorm:"column:currency_id;type:varchar(8)"`
	DateApproved      *time.Time          `gorm:"column:date_approved"`
	DateCreated       *time.Time          `gorm:"column:date_created"`
	CreatedAt         time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
