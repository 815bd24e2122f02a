package models

import "time"

// SellerToken stores the marketplace OAuth credentials for one seller.
type SellerToken struct {
	SellerID     int64     `gorm:"column:seller_id;primaryKey;autoIncrement:false"`
	AccessToken  string    `gorm:"column:access_token;not null"`
	RefreshToken string    `gorm:"column:refresh_token;not null"`
	ExpiresAt    time.Time `gorm:"column:expires_at;not null"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
