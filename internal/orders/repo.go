package orders

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/marketsync-backend/internal/repo"
	"github.com/angelmondragon/marketsync-backend/pkg/db"
	"github.com/angelmondragon/marketsync-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/marketsync-backend/pkg/errors"
)

var orderUpdateColumns = []string{
	"seller_id", "buyer_id", "status", "status_detail", "date_created", "date_approved",
	"last_updated", "date_closed", "expiration_date", "total_amount", "paid_amount",
	"currency_id", "pack_id", "shipping_id", "logistic_type", "shipment_status",
	"receiver_name", "receiver_phone", "receiver_address", "receiver_city", "receiver_state",
	"updated_at",
}

// fazt_cost and is_special_zone belong to the monthly recompute and are never
// overwritten by a sync.
var paymentUpdateColumns = []string{
	"order_id", "status", "status_detail", "transaction_amount", "total_paid_amount",
	"iva_amount", "marketplace_fee", "shipping_cost", "shipping_income", "shipping_bonus",
	"courier_cost", "currency_id", "date_approved", "date_created", "updated_at",
}

type repository struct {
	repo.Base
}

func NewRepository(conn *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(conn)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{Base: r.Base.Tx(tx)}
}

func (r *repository) UpsertBuyer(ctx context.Context, buyer *models.Buyer) error {
	err := r.DB(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"nickname", "first_name", "last_name", "email", "updated_at"}),
	}).Create(buyer).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upsert buyer")
	}
	return nil
}

func (r *repository) UpsertSeller(ctx context.Context, seller *models.Seller) error {
	err := r.DB(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"nickname", "updated_at"}),
	}).Create(seller).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upsert seller")
	}
	return nil
}

func (r *repository) FindOrder(ctx context.Context, id int64) (*models.Order, error) {
	var order models.Order
	if err := r.DB(ctx).Preload("Items").Preload("Payments").First(&order, "id = ?", id).Error; err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found").
				WithDetails(map[string]any{"order_id": id})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return &order, nil
}

// SaveOrder upserts the order, replaces its items and upserts its payments in
// one transaction.
func (r *repository) SaveOrder(ctx context.Context, order *models.Order, items []models.OrderItem, payments []models.Payment) error {
	return r.Transaction(ctx, func(tx *gorm.DB) error {
		order.Items = nil
		order.Payments = nil
		if err := tx.Omit(clause.Associations).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns(orderUpdateColumns),
		}).Create(order).Error; err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upsert order")
		}

		if err := tx.Where("order_id = ?", order.ID).Delete(&models.OrderItem{}).Error; err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete order items")
		}
		if len(items) > 0 {
			for i := range items {
				items[i].ID = 0
				items[i].OrderID = order.ID
			}
			if err := tx.Create(&items).Error; err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert order items")
			}
		}

		for i := range payments {
			payments[i].OrderID = order.ID
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "id"}},
				DoUpdates: clause.AssignmentColumns(paymentUpdateColumns),
			}).Create(&payments[i]).Error; err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upsert payment")
			}
		}
		return nil
	})
}

// ListOrders returns the seller's orders created in [from, to) with items and payments.
func (r *repository) ListOrders(ctx context.Context, sellerID int64, from, to time.Time) ([]models.Order, error) {
	var out []models.Order
	err := r.DB(ctx).
		Preload("Items").
		Preload("Payments", func(tx *gorm.DB) *gorm.DB { return tx.Order("id ASC") }).
		Where("seller_id = ? AND date_created >= ? AND date_created < ?", sellerID, from.UTC(), to.UTC()).
		Order("date_created ASC, id ASC").
		Find(&out).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return out, nil
}
