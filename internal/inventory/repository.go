package inventory

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/marketsync-backend/internal/repo"
	"github.com/angelmondragon/marketsync-backend/pkg/db"
	"github.com/angelmondragon/marketsync-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/marketsync-backend/pkg/errors"
)

// Repository owns product stock and the append-only product history.
type Repository struct {
	repo.Base
}

func NewRepository(conn *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(conn)}
}

// WithTx binds the repository to an open transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{Base: r.Base.Tx(tx)}
}

func (r *Repository) FindProduct(ctx context.Context, id int64) (*models.Product, error) {
	var product models.Product
	if err := r.DB(ctx).First(&product, "id = ?", id).Error; err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
				WithDetails(map[string]any{"product_id": id})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return &product, nil
}

// ApplyStockDelta adds delta to the stock column in a single statement and
// returns the stock before and after the change.
func (r *Repository) ApplyStockDelta(ctx context.Context, productID int64, delta int) (int, int, error) {
	res := r.DB(ctx).Model(&models.Product{}).
		Where("id = ?", productID).
		UpdateColumns(map[string]any{
			"stock":      gorm.Expr("stock + ?", delta),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return 0, 0, pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "update product stock")
	}
	if res.RowsAffected == 0 {
		return 0, 0, pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
			WithDetails(map[string]any{"product_id": productID})
	}

	var after int
	if err := r.DB(ctx).Model(&models.Product{}).Where("id = ?", productID).Pluck("stock", &after).Error; err != nil {
		return 0, 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read product stock")
	}
	return after - delta, after, nil
}

func (r *Repository) AppendHistory(ctx context.Context, entry *models.ProductHistory) error {
	if err := r.DB(ctx).Create(entry).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append product history")
	}
	return nil
}

// ListHistory returns the newest entries first.
func (r *Repository) ListHistory(ctx context.Context, productID int64, limit int) ([]models.ProductHistory, error) {
	var out []models.ProductHistory
	err := r.DB(ctx).
		Where("product_id = ?", productID).
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list product history")
	}
	return out, nil
}
