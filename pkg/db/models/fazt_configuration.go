package models

import (
	"time"

	"github.com/shopspring/decimal"

	dbtypes "github.com/angelmondragon/marketsync-backend/pkg/db/types"
)

// RateTier is one shipment-volume bracket; a nil MaxShipments is unbounded.
type RateTier struct {
	MinShipments int             `json:"min_shipments"`
	MaxShipments *int            `json:"max_shipments"`
	Rate         decimal.Decimal `json:"rate"`
}

// FaztConfiguration is a seller's external-courier rate schedule.
type FaztConfiguration struct {
	SellerID             int64                      `gorm:"column:seller_id;primaryKey;autoIncrement:false"`
	ServiceType          string                     `gorm:"column:service_type;type:varchar(32);not null"`
	RateTiers            dbtypes.JSONList[RateTier] `gorm:"column:rate_tiers;type:jsonb;not null"`
	SpecialZoneSurcharge decimal.Decimal            `gorm:"column:special_zone_surcharge;type:numeric(14,2);not null"`
	OversizeSurcharge    decimal.Decimal            `gorm:"column:oversize_surcharge;type:numeric(14,2);not null"`
	SpecialZones         dbtypes.JSONList[string]   `gorm:"column:special_zones;type:jsonb;not null"`
	UpdatedAt            time.Time                  `gorm:"column:updated_at;autoUpdateTime"`
}

// MonthlyFlexCost is the derived per-month amortization of the courier invoice.
type MonthlyFlexCost struct {
	ID              int64           `gorm:"column:id;primaryKey"`
	SellerID        int64           `gorm:"column:seller_id;not null;uniqueIndex:ux_monthly_flex_costs_period,priority:1"`
	Year            int             `gorm:"column:year;not null;uniqueIndex:ux_monthly_flex_costs_period,priority:2"`
	Month           int             `gorm:"column:month;not null;uniqueIndex:ux_monthly_flex_costs_period,priority:3"`
	ShipmentCount   int             `gorm:"column:shipment_count;not null"`
	NormalCount     int             `gorm:"column:normal_count;not null"`
	SpecialCount    int             `gorm:"column:special_count;not null"`
	TierRate        decimal.Decimal `gorm:"column:tier_rate;type:numeric(14,2);not null"`
	NormalUnitCost  decimal.Decimal `gorm:"column:normal_unit_cost;type:numeric(14,2);not null"`
	SpecialUnitCost decimal.Decimal `gorm:"column:special_unit_cost;type:numeric(14,2);not null"`
	TotalCost       decimal.Decimal `gorm:"column:total_cost;type:numeric(14,2);not null"`
	ComputedAt      time.Time       `gorm:"column:computed_at;not null"`
}
