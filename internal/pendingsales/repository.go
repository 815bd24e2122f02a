package pendingsales

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/marketsync-backend/internal/repo"
	"github.com/angelmondragon/marketsync-backend/pkg/db"
	"github.com/angelmondragon/marketsync-backend/pkg/db/models"
	"github.com/angelmondragon/marketsync-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/marketsync-backend/pkg/errors"
)

type Repository struct {
	repo.Base
}

func NewRepository(conn *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(conn)}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{Base: r.Base.Tx(tx)}
}

// Insert reports false when a sale for the same (platform, order, sku) exists.
func (r *Repository) Insert(ctx context.Context, sale *models.PendingSale) (bool, error) {
	res := r.DB(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(sale)
	if res.Error != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "insert pending sale")
	}
	return res.RowsAffected > 0, nil
}

func (r *Repository) FindByKey(ctx context.Context, platform enums.Platform, externalOrderID, sku string) (*models.PendingSale, error) {
	var sale models.PendingSale
	err := r.DB(ctx).
		Where("platform_id = ? AND external_order_id = ? AND platform_sku = ?", platform, externalOrderID, sku).
		First(&sale).Error
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "pending sale not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load pending sale")
	}
	return &sale, nil
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.PendingSale, error) {
	var sale models.PendingSale
	if err := r.DB(ctx).First(&sale, "id = ?", id).Error; err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "pending sale not found").
				WithDetails(map[string]any{"pending_sale_id": id.String()})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load pending sale")
	}
	return &sale, nil
}

// Transition moves a pending sale to status. It reports false when the sale
// was no longer pending, so concurrent resolutions cannot both apply.
func (r *Repository) Transition(ctx context.Context, id uuid.UUID, status enums.PendingSaleStatus, productID *int64, resolvedBy string, at time.Time) (bool, error) {
	updates := map[string]any{
		"status":      status,
		"resolved_by": resolvedBy,
		"resolved_at": at.UTC(),
		"updated_at":  at.UTC(),
	}
	if productID != nil {
		updates["product_id"] = *productID
	}
	res := r.DB(ctx).Model(&models.PendingSale{}).
		Where("id = ? AND status = ?", id, enums.PendingSaleStatusPending).
		UpdateColumns(updates)
	if res.Error != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "update pending sale")
	}
	return res.RowsAffected > 0, nil
}

type listQuery struct {
	status     *enums.PendingSaleStatus
	platformID *enums.Platform
	since      time.Time
}

func (r *Repository) List(ctx context.Context, q listQuery) ([]models.PendingSale, error) {
	query := r.DB(ctx).Model(&models.PendingSale{})
	if q.status != nil {
		query = query.Where("status = ?", *q.status)
	}
	if q.platformID != nil {
		query = query.Where("platform_id = ?", *q.platformID)
	}
	if !q.since.IsZero() {
		query = query.Where("sale_date >= ?", q.since.UTC())
	}

	var out []models.PendingSale
	if err := query.Order("sale_date DESC").Find(&out).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list pending sales")
	}
	return out, nil
}
