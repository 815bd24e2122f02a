package routes

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/marketsync-backend/internal/deductions"
	"github.com/angelmondragon/marketsync-backend/internal/flexcost"
	"github.com/angelmondragon/marketsync-backend/internal/inventory"
	"github.com/angelmondragon/marketsync-backend/internal/mappings"
	"github.com/angelmondragon/marketsync-backend/internal/orders"
	"github.com/angelmondragon/marketsync-backend/internal/pendingsales"
	"github.com/angelmondragon/marketsync-backend/internal/reports"
	"github.com/angelmondragon/marketsync-backend/pkg/config"
	"github.com/angelmondragon/marketsync-backend/pkg/db/models"
	"github.com/angelmondragon/marketsync-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/marketsync-backend/pkg/errors"
	"github.com/angelmondragon/marketsync-backend/pkg/logger"
	"github.com/angelmondragon/marketsync-backend/pkg/metrics"
	"github.com/angelmondragon/marketsync-backend/pkg/pagination"
	"github.com/angelmondragon/marketsync-backend/pkg/period"
)

type stubPinger struct {
	err error
}

func (s stubPinger) Ping(context.Context) error {
	return s.err
}

type stubSync struct {
	calls []string
	from  time.Time
	to    time.Time
	err   error
}

func (s *stubSync) SyncDate(_ context.Context, sellerID int64, date time.Time) (*orders.SyncResult, error) {
	s.calls = append(s.calls, "date")
	s.from = date
	return &orders.SyncResult{SellerID: sellerID, Mode: "date"}, s.err
}

func (s *stubSync) SyncRange(_ context.Context, sellerID int64, from, to time.Time) (*orders.SyncResult, error) {
	s.calls = append(s.calls, "range")
	s.from, s.to = from, to
	return &orders.SyncResult{SellerID: sellerID, Mode: "range"}, s.err
}

func (s *stubSync) SyncMonth(_ context.Context, sellerID int64, ym period.YearMonth) (*orders.SyncResult, error) {
	s.calls = append(s.calls, "month:"+ym.String())
	return &orders.SyncResult{SellerID: sellerID, Mode: "month"}, s.err
}

func (s *stubSync) SyncStatusChanges(_ context.Context, sellerID int64, from, to time.Time) (*orders.SyncResult, error) {
	s.calls = append(s.calls, "status_changes")
	s.from, s.to = from, to
	return &orders.SyncResult{SellerID: sellerID, Mode: "status_changes"}, s.err
}

type stubSales struct {
	params pagination.Params
}

func (s *stubSales) Daily(_ context.Context, sellerID int64, date time.Time) (*reports.Report, error) {
	return &reports.Report{SellerID: sellerID, From: date}, nil
}

func (s *stubSales) Range(_ context.Context, sellerID int64, from, to time.Time) (*reports.Report, error) {
	return &reports.Report{SellerID: sellerID, From: from, To: to}, nil
}

func (s *stubSales) Packs(_ context.Context, _ int64, _, _ time.Time, params pagination.Params) (pagination.Page[reports.PackSummary], error) {
	s.params = params
	return pagination.Paginate([]reports.PackSummary{}, params), nil
}

type stubPendingSales struct {
	filter     pendingsales.Filter
	resolvedBy string
}

func (s *stubPendingSales) FindAll(_ context.Context, filter pendingsales.Filter) ([]models.PendingSale, error) {
	s.filter = filter
	return []models.PendingSale{{ID: uuid.New(), PlatformID: enums.PlatformFalabella, Status: enums.PendingSaleStatusPending}}, nil
}

func (s *stubPendingSales) Resolve(_ context.Context, id uuid.UUID, input pendingsales.ResolveInput) (*models.PendingSale, error) {
	s.resolvedBy = input.ResolvedBy
	pid := input.ProductID
	return &models.PendingSale{ID: id, Status: enums.PendingSaleStatusMapped, ProductID: &pid}, nil
}

func (s *stubPendingSales) Ignore(_ context.Context, id uuid.UUID, resolvedBy string) (*models.PendingSale, error) {
	s.resolvedBy = resolvedBy
	return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "pending sale already handled")
}

type stubDeductions struct {
	sellerID int64
	orderID  string
}

func (s *stubDeductions) ProcessMercadoLibreOrder(_ context.Context, sellerID, orderID int64) (*deductions.ProcessResult, error) {
	s.sellerID = sellerID
	s.orderID = strconv.FormatInt(orderID, 10)
	return &deductions.ProcessResult{Platform: enums.PlatformMercadoLibre, Status: enums.ProcessStatusProcessed}, nil
}

func (s *stubDeductions) ProcessFalabellaOrder(_ context.Context, orderID string) (*deductions.ProcessResult, error) {
	s.orderID = orderID
	return &deductions.ProcessResult{Platform: enums.PlatformFalabella, OrderID: orderID, Status: enums.ProcessStatusProcessed}, nil
}

func (s *stubDeductions) AuditSummary(_ context.Context, from, to time.Time) (*deductions.AuditSummary, error) {
	return &deductions.AuditSummary{From: from, To: to, ByStatus: map[enums.AuditStatus]int{enums.AuditStatusOKInterno: 2}}, nil
}

type memoryStore struct {
	mu   sync.Mutex
	data map[string]string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: map[string]string{}}
}

func (m *memoryStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return "", goredis.Nil
}

func (m *memoryStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	m.data[key], _ = value.(string)
	return true, nil
}

func (m *memoryStore) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *memoryStore) IdempotencyKey(scope, id string) string {
	return "test:idempotency:" + scope + ":" + id
}

type stubStock struct{}

func (stubStock) AdjustStock(_ context.Context, productID int64, delta int, meta inventory.ChangeMeta) (*inventory.Change, error) {
	return &inventory.Change{ProductID: productID, OldStock: 3, NewStock: 3 + delta, Delta: delta, History: models.ProductHistory{Actor: meta.Actor, ChangeType: enums.ChangeTypeAdjustment}}, nil
}

func (stubStock) History(context.Context, int64, int) ([]models.ProductHistory, error) {
	return nil, nil
}

type stubMappings struct{}

func (stubMappings) CreateMapping(_ context.Context, input mappings.CreateMappingInput) (*models.ProductMapping, error) {
	return &models.ProductMapping{ID: 1, PlatformID: input.Platform, PlatformSKU: input.PlatformSKU, ProductID: input.ProductID, Quantity: 1, IsActive: true}, nil
}

func (stubMappings) DeactivateMapping(context.Context, int64) error {
	return nil
}

func (stubMappings) Resolve(context.Context, mappings.Lookup) ([]mappings.ResolvedProduct, error) {
	return nil, nil
}

type stubFlex struct{}

func (stubFlex) Configuration(context.Context, int64) (*models.FaztConfiguration, error) {
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "fazt configuration not found")
}

func (stubFlex) SaveConfiguration(context.Context, flexcost.ConfigurationInput) (*models.FaztConfiguration, error) {
	return &models.FaztConfiguration{}, nil
}

func (stubFlex) Quote(context.Context, int64, flexcost.QuoteInput) (*flexcost.Quote, error) {
	return &flexcost.Quote{}, nil
}

func (stubFlex) Recompute(context.Context, int64, period.YearMonth) (*flexcost.Result, error) {
	return &flexcost.Result{Skipped: true}, nil
}

type fixture struct {
	handler    http.Handler
	sync       *stubSync
	sales      *stubSales
	pending    *stubPendingSales
	deductions *stubDeductions
}

func testConfig() *config.Config {
	return &config.Config{
		App:      config.AppConfig{Env: "dev", Port: "0"},
		Tracking: config.TrackingConfig{Timezone: "UTC"},
	}
}

func newFixture(t *testing.T, infra Infra) *fixture {
	t.Helper()
	f := &fixture{
		sync:       &stubSync{},
		sales:      &stubSales{},
		pending:    &stubPendingSales{},
		deductions: &stubDeductions{},
	}
	if infra.DB == nil {
		infra.DB = stubPinger{}
	}
	f.handler = NewRouter(testConfig(), logger.Nop(), infra, Services{
		Sync:         f.sync,
		Sales:        f.sales,
		FlexCosts:    stubFlex{},
		PendingSales: f.pending,
		Mappings:     stubMappings{},
		Stock:        stubStock{},
		Deductions:   f.deductions,
	})
	return f
}

func (f *fixture) do(method, target, body string, headers ...string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	return payload.Error.Code
}

func TestHealthRoutes(t *testing.T) {
	f := newFixture(t, Infra{})

	live := f.do(http.MethodGet, "/health/live", "")
	assert.Equal(t, http.StatusOK, live.Code)
	assert.Equal(t, "dev", live.Header().Get("X-MarketSync-Env"))
	assert.NotEmpty(t, live.Header().Get("X-Request-Id"))

	ready := f.do(http.MethodGet, "/health/ready", "")
	assert.Equal(t, http.StatusOK, ready.Code)
	assert.Contains(t, ready.Body.String(), `"redis":"disabled"`)
}

func TestHealthReadyFailsWhenRedisDown(t *testing.T) {
	f := newFixture(t, Infra{Redis: stubPinger{err: errors.New("connection refused")}})

	rec := f.do(http.MethodGet, "/health/ready", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, string(pkgerrors.CodeDependency), errorCode(t, rec))
}

func TestMetricsEndpointExposesRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics.NewSyncMetrics(reg).IncDeduction("OK_INTERNO")
	f := newFixture(t, Infra{Metrics: reg})

	rec := f.do(http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "marketsync_deductions_total")
}

func TestSyncDispatchesOnRequestShape(t *testing.T) {
	f := newFixture(t, Infra{})

	rec := f.do(http.MethodPost, "/api/v1/sellers/42/sync", `{"date":"2024-03-05"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = f.do(http.MethodPost, "/api/v1/sellers/42/sync", `{"from":"2024-03-01","to":"2024-03-03"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC), f.sync.to)

	rec = f.do(http.MethodPost, "/api/v1/sellers/42/sync", `{"year":2024,"month":2}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, []string{"date", "range", "month:2024-02"}, f.sync.calls)
}

func TestSyncRejectsAmbiguousOrMalformedRequests(t *testing.T) {
	f := newFixture(t, Infra{})

	cases := map[string]string{
		"two modes":     `{"date":"2024-03-05","year":2024,"month":3}`,
		"no mode":       `{}`,
		"bad date":      `{"date":"05/03/2024"}`,
		"missing to":    `{"from":"2024-03-01"}`,
		"month only":    `{"month":3}`,
		"unknown field": `{"day":"2024-03-05"}`,
	}
	for name, body := range cases {
		rec := f.do(http.MethodPost, "/api/v1/sellers/42/sync", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, name)
	}
	assert.Empty(t, f.sync.calls)

	rec := f.do(http.MethodPost, "/api/v1/sellers/abc/sync", `{"date":"2024-03-05"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSyncAuthExpiredMapsTo401(t *testing.T) {
	f := newFixture(t, Infra{})
	f.sync.err = pkgerrors.New(pkgerrors.CodeAuthExpired, "refresh rejected")

	rec := f.do(http.MethodPost, "/api/v1/sellers/42/sync", `{"date":"2024-03-05"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "re-authenticate")
}

func TestStatusChangesCoverWholeDays(t *testing.T) {
	f := newFixture(t, Infra{})

	rec := f.do(http.MethodPost, "/api/v1/sellers/42/sync/status-changes", `{"from":"2024-03-01","to":"2024-03-02"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), f.sync.from)
	assert.Equal(t, time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC), f.sync.to)
}

func TestSalesPacksPagination(t *testing.T) {
	f := newFixture(t, Infra{})

	rec := f.do(http.MethodGet, "/api/v1/sellers/42/sales/packs?from=2024-03-01&to=2024-03-31&page=2&limit=10", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, pagination.Params{Page: 2, Limit: 10}, f.sales.params)

	rec = f.do(http.MethodGet, "/api/v1/sellers/42/sales?from=2024-03-05&to=2024-03-01", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodGet, "/api/v1/sellers/42/sales/daily", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPendingSalesRoutes(t *testing.T) {
	f := newFixture(t, Infra{})

	rec := f.do(http.MethodGet, "/api/v1/pending-sales?status=pending&platform=falabella", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NotNil(t, f.pending.filter.Status)
	assert.Equal(t, enums.PendingSaleStatusPending, *f.pending.filter.Status)
	require.NotNil(t, f.pending.filter.PlatformID)
	assert.Equal(t, enums.PlatformFalabella, *f.pending.filter.PlatformID)
	assert.Contains(t, rec.Body.String(), `"platform":"falabella"`)

	rec = f.do(http.MethodGet, "/api/v1/pending-sales?status=done", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	id := uuid.NewString()
	rec = f.do(http.MethodPost, "/api/v1/pending-sales/"+id+"/resolve", `{"product_id":7}`, "X-Operator", "ana")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "ana", f.pending.resolvedBy)

	rec = f.do(http.MethodPost, "/api/v1/pending-sales/"+id+"/ignore", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, string(pkgerrors.CodeStateConflict), errorCode(t, rec))

	rec = f.do(http.MethodPost, "/api/v1/pending-sales/not-a-uuid/ignore", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMercadoLibreWebhookRoutesOrderResources(t *testing.T) {
	f := newFixture(t, Infra{})

	rec := f.do(http.MethodPost, "/api/v1/webhooks/mercadolibre", `{"resource":"/orders/2000001","user_id":99,"topic":"orders_v2","application_id":1,"attempts":1}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, int64(99), f.deductions.sellerID)

	f.deductions.sellerID = 0
	rec = f.do(http.MethodPost, "/api/v1/webhooks/mercadolibre", `{"resource":"/questions/5","user_id":99,"topic":"questions"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ignored")
	assert.Zero(t, f.deductions.sellerID)
}

func TestFalabellaWebhookAcceptsNumericOrderID(t *testing.T) {
	f := newFixture(t, Infra{})

	rec := f.do(http.MethodPost, "/api/v1/webhooks/falabella", `{"event":"onOrderCreated","payload":{"OrderId":1234567}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "1234567", f.deductions.orderID)

	rec = f.do(http.MethodPost, "/api/v1/webhooks/falabella", `{"event":"onOrderCreated","payload":{}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReprocessRequiresSellerForMercadoLibre(t *testing.T) {
	f := newFixture(t, Infra{})

	rec := f.do(http.MethodPost, "/api/v1/orders/mercadolibre/2000001/reprocess", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodPost, "/api/v1/orders/mercadolibre/2000001/reprocess?seller_id=99", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, int64(99), f.deductions.sellerID)

	rec = f.do(http.MethodPost, "/api/v1/orders/falabella/FA-1/reprocess", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "FA-1", f.deductions.orderID)

	rec = f.do(http.MethodPost, "/api/v1/orders/amazon/1/reprocess", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStockAdjustRequiresIdempotencyKeyWhenStoreConfigured(t *testing.T) {
	f := newFixture(t, Infra{Idempotency: newMemoryStore()})

	rec := f.do(http.MethodPost, "/api/v1/products/7/stock/adjust", `{"delta":-2,"reason":"damaged"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodPost, "/api/v1/products/7/stock/adjust", `{"delta":-2,"reason":"damaged"}`, "Idempotency-Key", "k1", "X-Operator", "luis")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"new_stock":1`)
	assert.Contains(t, rec.Body.String(), `"actor":"luis"`)
}

func TestAuditSummaryAndFlexRoutes(t *testing.T) {
	f := newFixture(t, Infra{})

	rec := f.do(http.MethodGet, "/api/v1/audits/summary?from=2024-03-01&to=2024-03-31", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"OK_INTERNO":2`)

	rec = f.do(http.MethodGet, "/api/v1/sellers/42/fazt-configuration", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(http.MethodPost, "/api/v1/sellers/42/flex-costs/2024/13/recompute", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodPost, "/api/v1/sellers/42/flex-costs/2024/3/recompute", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"skipped":true`)

	rec = f.do(http.MethodPut, "/api/v1/sellers/42/fazt-configuration", `{"rate_tiers":[]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
