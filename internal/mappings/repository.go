package mappings

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/marketsync-backend/internal/repo"
	"github.com/angelmondragon/marketsync-backend/pkg/db"
	"github.com/angelmondragon/marketsync-backend/pkg/db/models"
	"github.com/angelmondragon/marketsync-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/marketsync-backend/pkg/errors"
)

// Repository reads product mappings, secondary SKUs and internal SKUs.
type Repository struct {
	repo.Base
}

func NewRepository(conn *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(conn)}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{Base: r.Base.Tx(tx)}
}

// ActiveMappings returns active mappings for the SKU with their product loaded.
func (r *Repository) ActiveMappings(ctx context.Context, platform enums.Platform, sku string) ([]models.ProductMapping, error) {
	var out []models.ProductMapping
	err := r.DB(ctx).
		Preload("Product").
		Where("platform_id = ? AND platform_sku = ? AND is_active = ?", platform, sku, true).
		Order("id ASC").
		Find(&out).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product mappings")
	}
	return out, nil
}

// ProductByInternalSKU returns nil when no product carries the SKU.
func (r *Repository) ProductByInternalSKU(ctx context.Context, sku string) (*models.Product, error) {
	var product models.Product
	if err := r.DB(ctx).First(&product, "internal_sku = ?", sku).Error; err != nil {
		if db.IsNotFound(err) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product by sku")
	}
	return &product, nil
}

// SecondaryByListing prefers a variation-level row and falls back to a
// listing-level row (no variation).
func (r *Repository) SecondaryByListing(ctx context.Context, platform enums.Platform, listingID string, variationID *int64) (*models.SecondarySku, error) {
	query := func(scope func(*gorm.DB) *gorm.DB) (*models.SecondarySku, error) {
		var row models.SecondarySku
		err := scope(r.DB(ctx).Where("platform_id = ? AND listing_id = ?", platform, listingID)).First(&row).Error
		if err != nil {
			if db.IsNotFound(err) {
				return nil, nil
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load secondary sku")
		}
		return &row, nil
	}

	if variationID != nil {
		row, err := query(func(tx *gorm.DB) *gorm.DB { return tx.Where("variation_id = ?", *variationID) })
		if err != nil || row != nil {
			return row, err
		}
	}
	return query(func(tx *gorm.DB) *gorm.DB { return tx.Where("variation_id IS NULL") })
}

func (r *Repository) ProductByID(ctx context.Context, id int64) (*models.Product, error) {
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

func (r *Repository) FindMapping(ctx context.Context, platform enums.Platform, sku string, productID int64) (*models.ProductMapping, error) {
	var row models.ProductMapping
	err := r.DB(ctx).
		Where("platform_id = ? AND platform_sku = ? AND product_id = ?", platform, sku, productID).
		First(&row).Error
	if err != nil {
		if db.IsNotFound(err) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product mapping")
	}
	return &row, nil
}

// InsertMapping reports false when the (platform, sku, product) triple exists.
func (r *Repository) InsertMapping(ctx context.Context, mapping *models.ProductMapping) (bool, error) {
	res := r.DB(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(mapping)
	if res.Error != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "insert product mapping")
	}
	return res.RowsAffected > 0, nil
}

func (r *Repository) Deactivate(ctx context.Context, id int64) error {
	res := r.DB(ctx).Model(&models.ProductMapping{}).
		Where("id = ?", id).
		UpdateColumns(map[string]any{"is_active": false, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "deactivate product mapping")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "mapping not found").
			WithDetails(map[string]any{"mapping_id": id})
	}
	return nil
}
