package inventory

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/marketsync-backend/internal/repo"
	"github.com/angelmondragon/marketsync-backend/pkg/db/models"
	"github.com/angelmondragon/marketsync-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/marketsync-backend/pkg/errors"
)

// AuditRepository stores one row per (order, SKU, product, outcome).
type AuditRepository struct {
	repo.Base
}

func NewAuditRepository(conn *gorm.DB) *AuditRepository {
	return &AuditRepository{Base: repo.NewBase(conn)}
}

func (r *AuditRepository) WithTx(tx *gorm.DB) *AuditRepository {
	return &AuditRepository{Base: r.Base.Tx(tx)}
}

// Insert writes the audit row and reports false when the same outcome was
// already recorded. The statement never fails on the unique index, so it is
// safe inside a transaction that must then be rolled back by the caller.
func (r *AuditRepository) Insert(ctx context.Context, audit *models.ProductAudit) (bool, error) {
	res := r.DB(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(audit)
	if res.Error != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "insert product audit")
	}
	return res.RowsAffected > 0, nil
}

// ExistsForOrder reports whether any audit row exists for the order.
func (r *AuditRepository) ExistsForOrder(ctx context.Context, platform enums.Platform, externalOrderID string) (bool, error) {
	var count int64
	err := r.DB(ctx).Model(&models.ProductAudit{}).
		Where("platform_id = ? AND external_order_id = ?", platform, externalOrderID).
		Count(&count).Error
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check order audits")
	}
	return count > 0, nil
}

func (r *AuditRepository) ListForOrder(ctx context.Context, platform enums.Platform, externalOrderID string) ([]models.ProductAudit, error) {
	var out []models.ProductAudit
	err := r.DB(ctx).
		Where("platform_id = ? AND external_order_id = ?", platform, externalOrderID).
		Order("created_at ASC").
		Find(&out).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list order audits")
	}
	return out, nil
}

// ListBetween returns audits created in [from, to).
func (r *AuditRepository) ListBetween(ctx context.Context, from, to time.Time) ([]models.ProductAudit, error) {
	var out []models.ProductAudit
	err := r.DB(ctx).
		Where("created_at >= ? AND created_at < ?", from.UTC(), to.UTC()).
		Order("created_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list audits")
	}
	return out, nil
}
