package flexcost

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/marketsync-backend/internal/fees"
	"github.com/angelmondragon/marketsync-backend/pkg/db/dbtest"
	"github.com/angelmondragon/marketsync-backend/pkg/db/models"
	"github.com/angelmondragon/marketsync-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/marketsync-backend/pkg/errors"
	"github.com/angelmondragon/marketsync-backend/pkg/metrics"
	"github.com/angelmondragon/marketsync-backend/pkg/period"
	"github.com/angelmondragon/marketsync-backend/pkg/redis"
	"github.com/angelmondragon/marketsync-backend/pkg/tax"
)

const sellerID = int64(123456)

type memoryStore struct {
	mu     sync.Mutex
	values map[string]string
	sets   []string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{values: map[string]string{}}
}

func (m *memoryStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	if !ok {
		return "", goredis.Nil
	}
	return v, nil
}

func (m *memoryStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sets = append(m.sets, key)
	if _, ok := m.values[key]; ok {
		return false, nil
	}
	m.values[key] = value.(string)
	return true, nil
}

func (m *memoryStore) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.values, k)
	}
	return nil
}

func intPtr(v int) *int { return &v }

func newService(t *testing.T, store *memoryStore) (*Service, *gorm.DB) {
	t.Helper()
	conn := dbtest.NewSQLite(t)
	params := ServiceParams{
		Repo:    NewRepository(conn),
		Tax:     tax.NewCalculator(19),
		Metrics: metrics.NewSyncMetrics(prometheus.NewRegistry()),
		Clock:   func() time.Time { return time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC) },
	}
	if store != nil {
		params.Locks = store
	}
	svc, err := NewService(params)
	require.NoError(t, err)
	return svc, conn
}

func saveConfig(t *testing.T, svc *Service) {
	t.Helper()
	_, err := svc.SaveConfiguration(context.Background(), ConfigurationInput{
		SellerID: sellerID,
		RateTiers: []fees.Tier{
			{MinShipments: 3, MaxShipments: nil, Rate: decimal.NewFromInt(2000)},
			{MinShipments: 0, MaxShipments: intPtr(2), Rate: decimal.NewFromInt(3000)},
		},
		SpecialZoneSurcharge: decimal.NewFromInt(1000),
		OversizeSurcharge:    decimal.NewFromInt(500),
		SpecialZones:         []string{" Colina ", "LAMPA"},
	})
	require.NoError(t, err)
}

func seedOrder(t *testing.T, conn *gorm.DB, id int64, pack *int64, logistic enums.LogisticType, status enums.OrderStatus, city string, created time.Time) {
	t.Helper()
	require.NoError(t, conn.Create(&models.Order{
		ID:           id,
		SellerID:     sellerID,
		Status:       status,
		DateCreated:  created,
		TotalAmount:  decimal.NewFromInt(10000),
		PaidAmount:   decimal.NewFromInt(10000),
		PackID:       pack,
		LogisticType: logistic,
		ReceiverCity: city,
	}).Error)
	require.NoError(t, conn.Create(&models.Payment{
		ID:                id * 10,
		OrderID:           id,
		Status:            enums.PaymentStatusApproved,
		TransactionAmount: decimal.NewFromInt(10000),
		TotalPaidAmount:   decimal.NewFromInt(10000),
	}).Error)
}

func faztOf(t *testing.T, conn *gorm.DB, orderID int64) (decimal.Decimal, bool) {
	t.Helper()
	var p models.Payment
	require.NoError(t, conn.First(&p, "order_id = ?", orderID).Error)
	return p.FaztCost, p.IsSpecialZone
}

func TestSaveConfigurationSortsAndNormalizes(t *testing.T) {
	svc, _ := newService(t, nil)
	saveConfig(t, svc)

	cfg, err := svc.Configuration(context.Background(), sellerID)
	require.NoError(t, err)
	require.Len(t, cfg.RateTiers, 2)
	require.Equal(t, 0, cfg.RateTiers[0].MinShipments)
	require.Equal(t, []string{"colina", "lampa"}, []string(cfg.SpecialZones))
	require.Equal(t, "fazt", cfg.ServiceType)
}

func TestSaveConfigurationRejectsOverlap(t *testing.T) {
	svc, _ := newService(t, nil)
	_, err := svc.SaveConfiguration(context.Background(), ConfigurationInput{
		SellerID: sellerID,
		RateTiers: []fees.Tier{
			{MinShipments: 0, MaxShipments: intPtr(10), Rate: decimal.NewFromInt(1)},
			{MinShipments: 5, MaxShipments: nil, Rate: decimal.NewFromInt(1)},
		},
	})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestRecomputeCountsPacksAndSplitsZones(t *testing.T) {
	store := newMemoryStore()
	svc, conn := newService(t, store)
	saveConfig(t, svc)

	march := time.Date(2024, 3, 10, 15, 0, 0, 0, time.UTC)
	pack := int64(777)
	seedOrder(t, conn, 1, &pack, enums.LogisticTypeSelfService, enums.OrderStatusPaid, "Santiago", march)
	seedOrder(t, conn, 2, &pack, enums.LogisticTypeSelfService, enums.OrderStatusPaid, "Santiago", march)
	seedOrder(t, conn, 3, nil, enums.LogisticTypeSelfServiceCost, enums.OrderStatusPaid, "colina", march)
	seedOrder(t, conn, 4, nil, enums.LogisticTypeSelfService, enums.OrderStatusPaid, "Providencia", march)
	seedOrder(t, conn, 5, nil, enums.LogisticTypeSelfService, enums.OrderStatusCancelled, "Providencia", march)
	seedOrder(t, conn, 6, nil, enums.LogisticTypeFulfillment, enums.OrderStatusPaid, "Providencia", march)
	seedOrder(t, conn, 7, nil, enums.LogisticTypeSelfService, enums.OrderStatusPaid, "Providencia", march.AddDate(0, 1, 0))

	result, err := svc.Recompute(context.Background(), sellerID, period.YearMonth{Year: 2024, Month: time.March})
	require.NoError(t, err)
	require.False(t, result.Skipped)

	monthly := result.Monthly
	require.Equal(t, 3, monthly.ShipmentCount)
	require.Equal(t, 2, monthly.NormalCount)
	require.Equal(t, 1, monthly.SpecialCount)
	require.True(t, monthly.TierRate.Equal(decimal.NewFromInt(2000)))
	require.True(t, monthly.NormalUnitCost.Equal(decimal.NewFromInt(2380)), monthly.NormalUnitCost.String())
	require.True(t, monthly.SpecialUnitCost.Equal(decimal.NewFromInt(3570)), monthly.SpecialUnitCost.String())
	require.True(t, monthly.TotalCost.Equal(decimal.NewFromInt(2*2380+3570)))

	for _, id := range []int64{1, 2, 4} {
		cost, special := faztOf(t, conn, id)
		require.True(t, cost.Equal(decimal.NewFromInt(2380)), "order %d got %s", id, cost)
		require.False(t, special)
	}
	cost, special := faztOf(t, conn, 3)
	require.True(t, cost.Equal(decimal.NewFromInt(3570)))
	require.True(t, special)

	for _, id := range []int64{5, 6, 7} {
		cost, _ := faztOf(t, conn, id)
		require.True(t, cost.IsZero(), "order %d should be untouched", id)
	}

	require.Contains(t, store.sets, "marketsync:lock:flex:123456:2024-03")
	require.Empty(t, store.values, "lock must be released")

	stored, err := svc.Monthly(context.Background(), sellerID, period.YearMonth{Year: 2024, Month: time.March})
	require.NoError(t, err)
	require.Equal(t, 3, stored.ShipmentCount)
}

func TestRecomputeIsIdempotentAndUpserts(t *testing.T) {
	svc, conn := newService(t, nil)
	saveConfig(t, svc)
	march := time.Date(2024, 3, 10, 15, 0, 0, 0, time.UTC)
	seedOrder(t, conn, 1, nil, enums.LogisticTypeSelfService, enums.OrderStatusPaid, "Santiago", march)

	ym := period.YearMonth{Year: 2024, Month: time.March}
	first, err := svc.Recompute(context.Background(), sellerID, ym)
	require.NoError(t, err)
	require.True(t, first.Monthly.TierRate.Equal(decimal.NewFromInt(3000)))

	seedOrder(t, conn, 2, nil, enums.LogisticTypeSelfService, enums.OrderStatusPaid, "Santiago", march)
	seedOrder(t, conn, 3, nil, enums.LogisticTypeSelfService, enums.OrderStatusPaid, "Santiago", march)
	second, err := svc.Recompute(context.Background(), sellerID, ym)
	require.NoError(t, err)
	require.True(t, second.Monthly.TierRate.Equal(decimal.NewFromInt(2000)))

	// every order of the month carries the final tier, not the one in force when it synced
	cost, _ := faztOf(t, conn, 1)
	require.True(t, cost.Equal(decimal.NewFromInt(2380)), cost.String())

	var rows int64
	require.NoError(t, conn.Model(&models.MonthlyFlexCost{}).Count(&rows).Error)
	require.EqualValues(t, 1, rows)
}

func TestConcurrentRecomputesEndOnFinalCount(t *testing.T) {
	svc, conn := newService(t, nil)
	saveConfig(t, svc)
	march := time.Date(2024, 3, 10, 15, 0, 0, 0, time.UTC)
	ym := period.YearMonth{Year: 2024, Month: time.March}

	// each worker syncs one more flex order and then recomputes, like the order sync does
	const orders = 6
	errs := make(chan error, orders)
	var wg sync.WaitGroup
	for i := 1; i <= orders; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			err := conn.Transaction(func(tx *gorm.DB) error {
				if err := tx.Create(&models.Order{
					ID: id, SellerID: sellerID, Status: enums.OrderStatusPaid, DateCreated: march,
					TotalAmount: decimal.NewFromInt(10000), PaidAmount: decimal.NewFromInt(10000),
					LogisticType: enums.LogisticTypeSelfService, ReceiverCity: "Santiago",
				}).Error; err != nil {
					return err
				}
				return tx.Create(&models.Payment{
					ID: id * 10, OrderID: id, Status: enums.PaymentStatusApproved,
					TransactionAmount: decimal.NewFromInt(10000), TotalPaidAmount: decimal.NewFromInt(10000),
				}).Error
			})
			if err == nil {
				_, err = svc.Recompute(context.Background(), sellerID, ym)
			}
			errs <- err
		}(int64(i))
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	monthly, err := svc.Monthly(context.Background(), sellerID, ym)
	require.NoError(t, err)
	require.Equal(t, orders, monthly.ShipmentCount)
	require.True(t, monthly.TierRate.Equal(decimal.NewFromInt(2000)), monthly.TierRate.String())
	for id := int64(1); id <= orders; id++ {
		cost, _ := faztOf(t, conn, id)
		require.True(t, cost.Equal(decimal.NewFromInt(2380)), "order %d got %s", id, cost)
	}
}

func TestLockPeriodJoinsTransaction(t *testing.T) {
	_, conn := newService(t, nil)
	repo := NewRepository(conn)
	err := repo.Transaction(context.Background(), func(tx *gorm.DB) error {
		return repo.WithTx(tx).LockPeriod(context.Background(), sellerID, 2024, time.March)
	})
	require.NoError(t, err)

	require.Equal(t, periodLockKey(sellerID, 2024, time.March), periodLockKey(sellerID, 2024, time.March))
	require.NotEqual(t, periodLockKey(sellerID, 2024, time.March), periodLockKey(sellerID, 2024, time.April))
	require.NotEqual(t, periodLockKey(sellerID, 2024, time.March), periodLockKey(sellerID+1, 2024, time.March))
}

func TestRecomputeMatchesPaddedZoneNames(t *testing.T) {
	svc, conn := newService(t, nil)
	saveConfig(t, svc)
	march := time.Date(2024, 3, 10, 15, 0, 0, 0, time.UTC)
	seedOrder(t, conn, 1, nil, enums.LogisticTypeSelfService, enums.OrderStatusPaid, "  Lampa ", march)
	seedOrder(t, conn, 2, nil, enums.LogisticTypeSelfService, enums.OrderStatusPaid, "Santiago", march)

	result, err := svc.Recompute(context.Background(), sellerID, period.YearMonth{Year: 2024, Month: time.March})
	require.NoError(t, err)
	require.Equal(t, 1, result.Monthly.SpecialCount)
	require.Equal(t, 1, result.Monthly.NormalCount)

	cost, special := faztOf(t, conn, 1)
	require.True(t, special)
	require.True(t, cost.Equal(result.Monthly.SpecialUnitCost), cost.String())
	cost, special = faztOf(t, conn, 2)
	require.False(t, special)
	require.True(t, cost.Equal(result.Monthly.NormalUnitCost), cost.String())
}

func TestRecomputeWithoutConfigurationIsSkipped(t *testing.T) {
	svc, _ := newService(t, nil)
	result, err := svc.Recompute(context.Background(), sellerID, period.YearMonth{Year: 2024, Month: time.March})
	require.NoError(t, err)
	require.True(t, result.Skipped)
	require.Nil(t, result.Monthly)
}

func TestRecomputeRequiresExplicitMonth(t *testing.T) {
	svc, _ := newService(t, nil)
	_, err := svc.Recompute(context.Background(), sellerID, period.YearMonth{})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestRecomputeWaitsForHeldLock(t *testing.T) {
	store := newMemoryStore()
	store.values["marketsync:lock:flex:123456:2024-03"] = "someone-else"
	svc, _ := newService(t, store)
	saveConfig(t, svc)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	_, err := svc.Recompute(ctx, sellerID, period.YearMonth{Year: 2024, Month: time.March})
	require.True(t, errors.Is(err, redis.ErrLockHeld), "got %v", err)
}

func TestQuoteAppliesSurcharges(t *testing.T) {
	svc, _ := newService(t, nil)
	saveConfig(t, svc)

	quote, err := svc.Quote(context.Background(), sellerID, QuoteInput{Shipments: 1, SpecialZone: true, Oversize: true})
	require.NoError(t, err)
	require.True(t, quote.Tier.Rate.Equal(decimal.NewFromInt(3000)))
	require.True(t, quote.Subtotal.Equal(decimal.NewFromInt(4500)))
	require.True(t, quote.UnitCost.Equal(decimal.NewFromInt(5355)))
	require.True(t, quote.IVA.Equal(decimal.NewFromInt(855)))

	_, err = svc.Quote(context.Background(), 1, QuoteInput{Shipments: 1})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}
