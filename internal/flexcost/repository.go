package flexcost

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/marketsync-backend/internal/fees"
	"github.com/angelmondragon/marketsync-backend/internal/repo"
	"github.com/angelmondragon/marketsync-backend/pkg/db"
	"github.com/angelmondragon/marketsync-backend/pkg/db/models"
	"github.com/angelmondragon/marketsync-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/marketsync-backend/pkg/errors"
)

var flexLogisticTypes = []enums.LogisticType{enums.LogisticTypeSelfService, enums.LogisticTypeSelfServiceCost}

type Repository struct {
	repo.Base
}

func NewRepository(conn *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(conn)}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{Base: r.Base.Tx(tx)}
}

func (r *Repository) Configuration(ctx context.Context, sellerID int64) (*models.FaztConfiguration, error) {
	var cfg models.FaztConfiguration
	if err := r.DB(ctx).First(&cfg, "seller_id = ?", sellerID).Error; err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "fazt configuration not found").
				WithDetails(map[string]any{"seller_id": sellerID})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load fazt configuration")
	}
	return &cfg, nil
}

func (r *Repository) SaveConfiguration(ctx context.Context, cfg *models.FaztConfiguration) error {
	err := r.DB(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "seller_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"service_type", "rate_tiers", "special_zone_surcharge", "oversize_surcharge", "special_zones", "updated_at"}),
	}).Create(cfg).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save fazt configuration")
	}
	return nil
}

// FlexShipment is one non-cancelled flex order of a month.
type FlexShipment struct {
	ID           int64
	PackID       *int64
	ReceiverCity string
}

func (r *Repository) flexOrders(ctx context.Context, sellerID int64, from, to time.Time) *gorm.DB {
	return r.DB(ctx).Model(&models.Order{}).
		Where("seller_id = ? AND date_created >= ? AND date_created < ?", sellerID, from.UTC(), to.UTC()).
		Where("logistic_type IN ?", flexLogisticTypes).
		Where("status <> ?", enums.OrderStatusCancelled)
}

func (r *Repository) FlexShipments(ctx context.Context, sellerID int64, from, to time.Time) ([]FlexShipment, error) {
	var out []FlexShipment
	err := r.flexOrders(ctx, sellerID, from, to).
		Select("id", "pack_id", "receiver_city").
		Order("id ASC").
		Scan(&out).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load flex shipments")
	}
	return out, nil
}

// ApplyFaztCosts writes the month's unit costs with exactly two bulk updates:
// one for special-zone orders and one for the rest.
func (r *Repository) ApplyFaztCosts(ctx context.Context, sellerID int64, from, to time.Time, specialZones []string, normalCost, specialCost decimal.Decimal) error {
	now := time.Now().UTC()
	zones := normalizeZones(specialZones)

	special := r.flexOrders(ctx, sellerID, from, to).Select("id")
	normal := r.flexOrders(ctx, sellerID, from, to).Select("id")
	if len(zones) == 0 {
		special = special.Where("1 = 0")
	} else {
		special = special.Where("LOWER(TRIM(receiver_city)) IN ?", zones)
		normal = normal.Where("(receiver_city IS NULL OR LOWER(TRIM(receiver_city)) NOT IN ?)", zones)
	}

	if err := r.DB(ctx).Model(&models.Payment{}).
		Where("order_id IN (?)", special).
		UpdateColumns(map[string]any{"fazt_cost": specialCost, "is_special_zone": true, "updated_at": now}).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update special-zone fazt cost")
	}
	if err := r.DB(ctx).Model(&models.Payment{}).
		Where("order_id IN (?)", normal).
		UpdateColumns(map[string]any{"fazt_cost": normalCost, "is_special_zone": false, "updated_at": now}).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update fazt cost")
	}
	return nil
}

// LockPeriod holds the seller's month until the surrounding transaction ends.
// Postgres takes a transaction scoped advisory lock; SQLite has one writer, so
// any write statement takes it.
func (r *Repository) LockPeriod(ctx context.Context, sellerID int64, year int, month time.Month) error {
	conn := r.DB(ctx)
	var err error
	if conn.Dialector.Name() == "postgres" {
		err = conn.Exec("SELECT pg_advisory_xact_lock(?)", periodLockKey(sellerID, year, month)).Error
	} else {
		err = conn.Exec("UPDATE monthly_flex_costs SET computed_at = computed_at WHERE seller_id = ? AND year = ? AND month = ?",
			sellerID, year, int(month)).Error
	}
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock flex cost period")
	}
	return nil
}

func periodLockKey(sellerID int64, year int, month time.Month) int64 {
	h := fnv.New64a()
	_, _ = fmt.Fprintf(h, "flex:%d:%04d-%02d", sellerID, year, int(month))
	return int64(h.Sum64())
}

func (r *Repository) UpsertMonthly(ctx context.Context, row *models.MonthlyFlexCost) error {
	err := r.DB(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "seller_id"}, {Name: "year"}, {Name: "month"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"shipment_count", "normal_count", "special_count", "tier_rate",
			"normal_unit_cost", "special_unit_cost", "total_cost", "computed_at",
		}),
	}).Create(row).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upsert monthly flex cost")
	}
	return nil
}

func (r *Repository) Monthly(ctx context.Context, sellerID int64, year int, month time.Month) (*models.MonthlyFlexCost, error) {
	var row models.MonthlyFlexCost
	err := r.DB(ctx).First(&row, "seller_id = ? AND year = ? AND month = ?", sellerID, year, int(month)).Error
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "monthly flex cost not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load monthly flex cost")
	}
	return &row, nil
}

func normalizeZone(zone string) string {
	return strings.ToLower(strings.TrimSpace(zone))
}

func normalizeZones(zones []string) []string {
	out := make([]string, 0, len(zones))
	for _, z := range zones {
		if n := normalizeZone(z); n != "" {
			out = append(out, n)
		}
	}
	return out
}

func tiersFromModel(cfg *models.FaztConfiguration) []fees.Tier {
	out := make([]fees.Tier, 0, len(cfg.RateTiers))
	for _, t := range cfg.RateTiers {
		out = append(out, fees.Tier{MinShipments: t.MinShipments, MaxShipments: t.MaxShipments, Rate: t.Rate})
	}
	return out
}
