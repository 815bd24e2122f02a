package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/marketsync-backend/pkg/enums"
)

// Order is a marketplace order keyed by the marketplace-assigned id.
type Order struct {
	ID              int64              `gorm:"column:id;primaryKey;autoIncrement:false"`
	SellerID        int64              `gorm:"column:seller_id;not null;index:idx_orders_seller_created,priority:1"`
	BuyerID         *int64             `gorm:"column:buyer_id"`
	Status          enums.OrderStatus  `gorm:"column:status;type:varchar(32);not null"`
	StatusDetail    string             `gorm:"column:status_detail"`
	DateCreated     time.Time          `gorm:"column:date_created;not null;index:idx_orders_seller_created,priority:2"`
	DateApproved    *time.Time         `gorm:"column:date_approved"`
	LastUpdated     *time.Time         `gorm:"column:last_updated"`
	DateClosed      *time.Time         `gorm:"column:date_closed"`
	ExpirationDate  *time.Time         `gorm:"column:expiration_date"`
	TotalAmount     decimal.Decimal    `gorm:"column:total_amount;type:numeric(14,2);not null"`
	PaidAmount      decimal.Decimal    `gorm:"column:paid_amount;type:numeric(14,2);not null"`
	CurrencyID      string             `gorm:"column:currency_id;type:varchar(8)"`
	PackID          *int64             `gorm:"column:pack_id;index"`
	ShippingID      *int64             `gorm:"column:shipping_id"`
	LogisticType    enums.LogisticType `gorm:"column:logistic_type;type:varchar(32);not null"`
	ShipmentStatus  string             `gorm:"column:shipment_status"`
	ReceiverName    string             `gorm:"column:receiver_name"`
	ReceiverPhone   string             `gorm:"column:receiver_phone"`
	ReceiverAddress string             `gorm:"column:receiver_address"`
	ReceiverCity    string             `gorm:"column:receiver_city"`
	ReceiverState   string             `gorm:"column:receiver_state"`
	Items           []OrderItem        `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Payments        []Payment          `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

// PackKey is the shipment grouping key: the pack id when present, else the order id.
func (o Order) PackKey() int64 {
	if o.PackID != nil && *o.PackID != 0 {
		return *o.PackID
	}
	return o.ID
}
