package repo

import (
	"context"

	"gorm.io/gorm"
)

// Base is embedded by repositories; it binds the shared connection (or an open transaction) to a context.
type Base struct {
	db *gorm.DB
}

func NewBase(db *gorm.DB) Base {
	return Base{db: db}
}

// DB returns the connection bound to ctx, or the raw handle when ctx is nil.
func (b Base) DB(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return b.db
	}
	return b.db.WithContext(ctx)
}

// Tx returns a copy of the base that issues every statement through tx.
func (b Base) Tx(tx *gorm.DB) Base {
	return Base{db: tx}
}

// Transaction runs fn inside a transaction. When the base is already bound to a
// transaction, gorm nests it as a savepoint.
func (b Base) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return b.DB(ctx).Transaction(fn)
}
