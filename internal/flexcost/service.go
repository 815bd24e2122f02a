package flexcost

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/marketsync-backend/internal/fees"
	"github.com/angelmondragon/marketsync-backend/pkg/db/models"
	dbtypes "github.com/angelmondragon/marketsync-backend/pkg/db/types"
	pkgerrors "github.com/angelmondragon/marketsync-backend/pkg/errors"
	"github.com/angelmondragon/marketsync-backend/pkg/logger"
	"github.com/angelmondragon/marketsync-backend/pkg/metrics"
	"github.com/angelmondragon/marketsync-backend/pkg/period"
	"github.com/angelmondragon/marketsync-backend/pkg/redis"
	"github.com/angelmondragon/marketsync-backend/pkg/tax"
)

const (
	lockScope    = "flex"
	lockPoll     = 200 * time.Millisecond
	defaultLabel = "fazt"
)

// ConfigurationInput is an operator-submitted rate schedule.
type ConfigurationInput struct {
	SellerID             int64
	ServiceType          string
	RateTiers            []fees.Tier
	SpecialZoneSurcharge decimal.Decimal
	OversizeSurcharge    decimal.Decimal
	SpecialZones         []string
}

// QuoteInput selects which surcharges apply to a quoted shipment.
type QuoteInput struct {
	Shipments   int
	SpecialZone bool
	Oversize    bool
}

type Quote struct {
	Shipments int
	Tier      fees.Tier
	Subtotal  decimal.Decimal
	IVA       decimal.Decimal
	UnitCost  decimal.Decimal
}

// Result describes one recompute; Skipped is true when the seller has no configuration.
type Result struct {
	Monthly *models.MonthlyFlexCost
	Skipped bool
}

type ServiceParams struct {
	Repo     *Repository
	Tax      tax.Calculator
	Locks    redis.KeyValueStore
	LockTTL  time.Duration
	Location *time.Location
	Metrics  *metrics.SyncMetrics
	Logger   *logger.Logger
	Clock    func() time.Time
}

// Service owns the seller courier schedule and the monthly amortized cost.
type Service struct {
	repo    *Repository
	tax     tax.Calculator
	locks   redis.KeyValueStore
	lockTTL time.Duration
	loc     *time.Location
	metrics *metrics.SyncMetrics
	logg    *logger.Logger
	now     func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("flex cost repository required")
	}
	loc := params.Location
	if loc == nil {
		loc = time.UTC
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	clock := params.Clock
	if clock == nil {
		clock = time.Now
	}
	calc := params.Tax
	if calc.Rate().IsZero() {
		calc = tax.NewCalculator(0)
	}
	return &Service{
		repo:    params.Repo,
		tax:     calc,
		locks:   params.Locks,
		lockTTL: params.LockTTL,
		loc:     loc,
		metrics: params.Metrics,
		logg:    logg,
		now:     clock,
	}, nil
}

func (s *Service) Configuration(ctx context.Context, sellerID int64) (*models.FaztConfiguration, error) {
	return s.repo.Configuration(ctx, sellerID)
}

func (s *Service) SaveConfiguration(ctx context.Context, input ConfigurationInput) (*models.FaztConfiguration, error) {
	if input.SellerID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller_id is required")
	}
	if err := fees.ValidateTiers(input.RateTiers); err != nil {
		return nil, err
	}
	if input.SpecialZoneSurcharge.IsNegative() || input.OversizeSurcharge.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "surcharges must not be negative")
	}

	serviceType := strings.TrimSpace(input.ServiceType)
	if serviceType == "" {
		serviceType = defaultLabel
	}
	tiers := make(dbtypes.JSONList[models.RateTier], 0, len(input.RateTiers))
	for _, t := range fees.SortTiers(input.RateTiers) {
		tiers = append(tiers, models.RateTier{MinShipments: t.MinShipments, MaxShipments: t.MaxShipments, Rate: t.Rate})
	}
	zones := dbtypes.JSONList[string](normalizeZones(input.SpecialZones))

	cfg := &models.FaztConfiguration{
		SellerID:             input.SellerID,
		ServiceType:          serviceType,
		RateTiers:            tiers,
		SpecialZoneSurcharge: input.SpecialZoneSurcharge,
		OversizeSurcharge:    input.OversizeSurcharge,
		SpecialZones:         zones,
		UpdatedAt:            s.now().UTC(),
	}
	if err := s.repo.SaveConfiguration(ctx, cfg); err != nil {
		return nil, err
	}
	return s.repo.Configuration(ctx, input.SellerID)
}

// Quote prices one shipment at the tier for the given monthly volume.
func (s *Service) Quote(ctx context.Context, sellerID int64, input QuoteInput) (*Quote, error) {
	if input.Shipments < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipments must not be negative")
	}
	cfg, err := s.repo.Configuration(ctx, sellerID)
	if err != nil {
		return nil, err
	}
	tier, err := fees.SelectTier(tiersFromModel(cfg), input.Shipments)
	if err != nil {
		return nil, err
	}

	var surcharges fees.Surcharges
	if input.SpecialZone {
		surcharges.SpecialZone = cfg.SpecialZoneSurcharge
	}
	if input.Oversize {
		surcharges.Oversize = cfg.OversizeSurcharge
	}
	subtotal := tier.Rate.Add(surcharges.Total())
	unit := fees.FlexUnitCost(tier, surcharges, s.tax)
	return &Quote{
		Shipments: input.Shipments,
		Tier:      tier,
		Subtotal:  subtotal,
		IVA:       unit.Sub(subtotal),
		UnitCost:  unit,
	}, nil
}

// Recompute recounts the month's unique flex shipments, selects the tier once
// and rewrites fazt_cost on every flex payment of the month in two bulk
// updates. Concurrent recomputes of the same seller and month serialize on a
// database lock taken before counting, and on a redis lock when one is
// configured.
func (s *Service) Recompute(ctx context.Context, sellerID int64, ym period.YearMonth) (*Result, error) {
	if ym.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "year and month are required")
	}
	ctx = s.logg.WithFields(ctx, map[string]any{"seller_id": sellerID, "period": ym.String()})

	var result *Result
	run := func(ctx context.Context) error {
		var err error
		result, err = s.recompute(ctx, sellerID, ym)
		return err
	}

	var err error
	if s.locks != nil {
		var lock *redis.Lock
		lock, err = redis.NewLock(s.locks, redis.LockKey(lockScope, fmt.Sprint(sellerID), ym.String()), s.lockTTL)
		if err == nil {
			err = redis.WithLock(ctx, lock, lockPoll, run)
		}
		if errors.Is(err, redis.ErrLockHeld) {
			err = pkgerrors.Wrap(pkgerrors.CodeConflict, err, "flex cost recompute already running")
		}
	} else {
		err = run(ctx)
	}

	s.metrics.IncFlexRecompute(err)
	if err != nil {
		s.logg.Error(ctx, "flex cost recompute failed", err)
		return nil, err
	}
	return result, nil
}

func (s *Service) recompute(ctx context.Context, sellerID int64, ym period.YearMonth) (*Result, error) {
	cfg, err := s.repo.Configuration(ctx, sellerID)
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			s.logg.Debug(ctx, "no fazt configuration, skipping recompute")
			return &Result{Skipped: true}, nil
		}
		return nil, err
	}
	tiers := tiersFromModel(cfg)
	if len(tiers) == 0 {
		return &Result{Skipped: true}, nil
	}

	from, to := ym.Bounds(s.loc)
	zones := make(map[string]struct{}, len(cfg.SpecialZones))
	for _, z := range normalizeZones(cfg.SpecialZones) {
		zones[z] = struct{}{}
	}

	var monthly *models.MonthlyFlexCost
	err = s.repo.Transaction(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		if err := txRepo.LockPeriod(ctx, sellerID, ym.Year, ym.Month); err != nil {
			return err
		}
		shipments, err := txRepo.FlexShipments(ctx, sellerID, from, to)
		if err != nil {
			return err
		}

		all := make([]fees.ShipmentKey, 0, len(shipments))
		var special, normal []fees.ShipmentKey
		for _, sh := range shipments {
			key := fees.ShipmentKey{OrderID: sh.ID, PackID: sh.PackID}
			all = append(all, key)
			if _, ok := zones[normalizeZone(sh.ReceiverCity)]; ok {
				special = append(special, key)
			} else {
				normal = append(normal, key)
			}
		}
		count := fees.CountShipments(all)

		tier, err := fees.SelectTier(tiers, count)
		if err != nil {
			return err
		}
		normalCost := fees.FlexUnitCost(tier, fees.Surcharges{}, s.tax)
		specialCost := fees.FlexUnitCost(tier, fees.Surcharges{SpecialZone: cfg.SpecialZoneSurcharge}, s.tax)

		if err := txRepo.ApplyFaztCosts(ctx, sellerID, from, to, cfg.SpecialZones, normalCost, specialCost); err != nil {
			return err
		}

		normalCount := fees.CountShipments(normal)
		specialCount := fees.CountShipments(special)
		monthly = &models.MonthlyFlexCost{
			SellerID:        sellerID,
			Year:            ym.Year,
			Month:           int(ym.Month),
			ShipmentCount:   count,
			NormalCount:     normalCount,
			SpecialCount:    specialCount,
			TierRate:        tier.Rate,
			NormalUnitCost:  normalCost,
			SpecialUnitCost: specialCost,
			TotalCost: normalCost.Mul(decimal.NewFromInt(int64(normalCount))).
				Add(specialCost.Mul(decimal.NewFromInt(int64(specialCount)))),
			ComputedAt: s.now().UTC(),
		}
		return txRepo.UpsertMonthly(ctx, monthly)
	})
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithFields(ctx, map[string]any{"shipments": monthly.ShipmentCount, "tier_rate": monthly.TierRate.String()})
	s.logg.Info(ctx, "flex cost recomputed")
	return &Result{Monthly: monthly}, nil
}

// Monthly returns the last recompute for the month.
func (s *Service) Monthly(ctx context.Context, sellerID int64, ym period.YearMonth) (*models.MonthlyFlexCost, error) {
	return s.repo.Monthly(ctx, sellerID, ym.Year, ym.Month)
}
