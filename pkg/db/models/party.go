package models

import "time"

// Buyer is the marketplace buyer, upserted on every order sync.
type Buyer struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement:false"`
	Nickname  string    `gorm:"column:nickname"`
	FirstName string    `gorm:"column:first_name"`
	LastName  string    `gorm:"column:last_name"`
	Email     string    `gorm:"column:email"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// Seller is the marketplace account whose orders are synchronized.
type Seller struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement:false"`
	Nickname  string    `gorm:"column:nickname"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
