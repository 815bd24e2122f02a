package orders

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/marketsync-backend/internal/fees"
	"github.com/angelmondragon/marketsync-backend/internal/shipping"
	"github.com/angelmondragon/marketsync-backend/pkg/db/models"
	"github.com/angelmondragon/marketsync-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/marketsync-backend/pkg/errors"
	"github.com/angelmondragon/marketsync-backend/pkg/logger"
	"github.com/angelmondragon/marketsync-backend/pkg/mercadolibre"
	"github.com/angelmondragon/marketsync-backend/pkg/metrics"
	"github.com/angelmondragon/marketsync-backend/pkg/period"
	"github.com/angelmondragon/marketsync-backend/pkg/tax"
)

const (
	defaultPageLimit        = 50
	defaultOrderConcurrency = 10
	defaultDateConcurrency  = 3
	defaultMaxRangeDays     = 62

	modeDate          = "date"
	modeRange         = "range"
	modeMonth         = "month"
	modeStatusChanges = "status_changes"
)

// Failure is one order (or whole date) that could not be synchronized.
type Failure struct {
	OrderID int64  `json:"order_id,omitempty"`
	Date    string `json:"date,omitempty"`
	Error   string `json:"error"`
}

// SyncResult summarizes a sync run.
type SyncResult struct {
	SellerID int64     `json:"seller_id"`
	Mode     string    `json:"mode"`
	Total    int       `json:"total"`
	Synced   int       `json:"synced"`
	Failed   int       `json:"failed"`
	Failures []Failure `json:"failures,omitempty"`
	Months   []string  `json:"months,omitempty"`
}

type ServiceParams struct {
	Client           MarketplaceClient
	Repo             Repository
	Listings         ListingResolver
	Flex             FlexRecomputer
	Tax              tax.Calculator
	Location         *time.Location
	PageLimit        int
	OrderConcurrency int
	DateConcurrency  int
	BatchPause       time.Duration
	MaxRangeDays     int
	Metrics          *metrics.SyncMetrics
	Logger           *logger.Logger
	Clock            func() time.Time
}

// Service pulls marketplace orders into the local database.
type Service interface {
	SyncDate(ctx context.Context, sellerID int64, date time.Time) (*SyncResult, error)
	SyncRange(ctx context.Context, sellerID int64, from, to time.Time) (*SyncResult, error)
	SyncMonth(ctx context.Context, sellerID int64, ym period.YearMonth) (*SyncResult, error)
	SyncStatusChanges(ctx context.Context, sellerID int64, from, to time.Time) (*SyncResult, error)
}

type service struct {
	client           MarketplaceClient
	repo             Repository
	listings         ListingResolver
	flex             FlexRecomputer
	tax              tax.Calculator
	loc              *time.Location
	pageLimit        int
	orderConcurrency int
	dateConcurrency  int
	batchPause       time.Duration
	maxRangeDays     int
	metrics          *metrics.SyncMetrics
	logg             *logger.Logger
	now              func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Client == nil {
		return nil, fmt.Errorf("marketplace client required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Flex == nil {
		return nil, fmt.Errorf("flex cost recomputer required")
	}
	svc := &service{
		client:           params.Client,
		repo:             params.Repo,
		listings:         params.Listings,
		flex:             params.Flex,
		tax:              params.Tax,
		loc:              params.Location,
		pageLimit:        params.PageLimit,
		orderConcurrency: params.OrderConcurrency,
		dateConcurrency:  params.DateConcurrency,
		batchPause:       params.BatchPause,
		maxRangeDays:     params.MaxRangeDays,
		metrics:          params.Metrics,
		logg:             params.Logger,
		now:              params.Clock,
	}
	if svc.tax.Rate().IsZero() {
		svc.tax = tax.NewCalculator(0)
	}
	if svc.loc == nil {
		svc.loc = time.UTC
	}
	if svc.pageLimit <= 0 {
		svc.pageLimit = defaultPageLimit
	}
	if svc.orderConcurrency <= 0 {
		svc.orderConcurrency = defaultOrderConcurrency
	}
	if svc.dateConcurrency <= 0 {
		svc.dateConcurrency = defaultDateConcurrency
	}
	if svc.maxRangeDays <= 0 {
		svc.maxRangeDays = defaultMaxRangeDays
	}
	if svc.logg == nil {
		svc.logg = logger.Nop()
	}
	if svc.now == nil {
		svc.now = time.Now
	}
	return svc, nil
}

// runState accumulates results from concurrent workers.
type runState struct {
	mu     sync.Mutex
	result *SyncResult
	months map[period.YearMonth]struct{}
	errs   error
	auth   error
}

func newRunState(sellerID int64, mode string) *runState {
	return &runState{
		result: &SyncResult{SellerID: sellerID, Mode: mode},
		months: map[period.YearMonth]struct{}{},
	}
}

func (st *runState) addTotal(n int) {
	st.mu.Lock()
	st.result.Total += n
	st.mu.Unlock()
}

func (st *runState) succeeded(ym period.YearMonth) {
	st.mu.Lock()
	st.result.Synced++
	st.months[ym] = struct{}{}
	st.mu.Unlock()
}

func (st *runState) touch(ym period.YearMonth) {
	st.mu.Lock()
	st.months[ym] = struct{}{}
	st.mu.Unlock()
}

func (st *runState) failed(f Failure, err error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if f.OrderID != 0 {
		st.result.Failed++
	}
	st.result.Failures = append(st.result.Failures, f)
	st.errs = multierr.Append(st.errs, err)
	if st.auth == nil && pkgerrors.IsCode(err, pkgerrors.CodeAuthExpired) {
		st.auth = err
	}
}

func (st *runState) sortedMonths() []period.YearMonth {
	out := make([]period.YearMonth, 0, len(st.months))
	for ym := range st.months {
		out = append(out, ym)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year < out[j].Year
		}
		return out[i].Month < out[j].Month
	})
	return out
}

func (s *service) SyncDate(ctx context.Context, sellerID int64, date time.Time) (*SyncResult, error) {
	start := s.now()
	st := newRunState(sellerID, modeDate)
	ctx = s.logg.WithFields(ctx, map[string]any{"seller_id": sellerID, "mode": modeDate, "date": date.In(s.loc).Format(period.DateLayout)})

	if err := s.syncDay(ctx, sellerID, date, st); err != nil {
		return nil, err
	}
	return s.finish(ctx, st, modeDate, start)
}

func (s *service) SyncRange(ctx context.Context, sellerID int64, from, to time.Time) (*SyncResult, error) {
	return s.syncDays(ctx, sellerID, from, to, modeRange)
}

// SyncMonth syncs every day of the month up to today.
func (s *service) SyncMonth(ctx context.Context, sellerID int64, ym period.YearMonth) (*SyncResult, error) {
	if ym.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "year and month are required")
	}
	days := ym.Days(s.loc)
	today := s.now().In(s.loc)
	last := days[len(days)-1]
	if last.After(today) {
		last = today
	}
	if last.Before(days[0]) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "month is in the future")
	}
	return s.syncDays(ctx, sellerID, days[0], last, modeMonth)
}

// SyncStatusChanges re-syncs orders whose last_updated falls in [from, to),
// recomputing the months the orders were created in.
func (s *service) SyncStatusChanges(ctx context.Context, sellerID int64, from, to time.Time) (*SyncResult, error) {
	if !to.After(from) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "to must be after from")
	}
	start := s.now()
	st := newRunState(sellerID, modeStatusChanges)
	ctx = s.logg.WithFields(ctx, map[string]any{"seller_id": sellerID, "mode": modeStatusChanges})

	found, err := s.fetchOrders(ctx, sellerID, from, to, mercadolibre.DateFieldUpdated)
	if err != nil {
		return nil, err
	}
	st.addTotal(len(found))
	s.processOrders(ctx, sellerID, found, st)
	return s.finish(ctx, st, modeStatusChanges, start)
}

func (s *service) syncDays(ctx context.Context, sellerID int64, from, to time.Time, mode string) (*SyncResult, error) {
	if to.Before(from) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "from must not be after to")
	}
	days := period.DaysBetween(from, to, s.loc)
	if len(days) > s.maxRangeDays {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "date range too large").
			WithDetails(map[string]any{"max_days": s.maxRangeDays, "days": len(days)})
	}

	start := s.now()
	st := newRunState(sellerID, mode)
	ctx = s.logg.WithFields(ctx, map[string]any{"seller_id": sellerID, "mode": mode})

	for batchStart := 0; batchStart < len(days); batchStart += s.dateConcurrency {
		if batchStart > 0 && s.batchPause > 0 {
			select {
			case <-ctx.Done():
				return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, ctx.Err(), "sync cancelled")
			case <-time.After(s.batchPause):
			}
		}
		end := batchStart + s.dateConcurrency
		if end > len(days) {
			end = len(days)
		}

		var g errgroup.Group
		for _, day := range days[batchStart:end] {
			day := day
			g.Go(func() error {
				if err := s.syncDay(ctx, sellerID, day, st); err != nil {
					st.failed(Failure{Date: day.Format(period.DateLayout), Error: err.Error()}, err)
				}
				return nil
			})
		}
		_ = g.Wait()

		if st.auth != nil {
			return nil, st.auth
		}
	}
	return s.finish(ctx, st, mode, start)
}

// syncDay fetches every order created on the calendar day and processes it.
// A failing page aborts the day.
func (s *service) syncDay(ctx context.Context, sellerID int64, day time.Time, st *runState) error {
	from, to := period.DayBounds(day, s.loc)
	st.touch(period.Of(day, s.loc))

	found, err := s.fetchOrders(ctx, sellerID, from, to, mercadolibre.DateFieldCreated)
	if err != nil {
		return err
	}
	st.addTotal(len(found))
	s.processOrders(ctx, sellerID, found, st)
	return nil
}

// fetchOrders pages through the search endpoint until offset reaches total.
func (s *service) fetchOrders(ctx context.Context, sellerID int64, from, to time.Time, field string) ([]mercadolibre.Order, error) {
	var out []mercadolibre.Order
	offset := 0
	for {
		page, err := s.client.SearchOrders(ctx, sellerID, mercadolibre.SearchParams{
			From:      from,
			To:        to.Add(-time.Millisecond),
			DateField: field,
			Offset:    offset,
			Limit:     s.pageLimit,
		})
		if err != nil {
			return nil, upstream(err, "search orders")
		}
		out = append(out, page.Results...)
		offset += len(page.Results)
		if len(page.Results) == 0 || offset >= page.Paging.Total {
			return out, nil
		}
	}
}

func (s *service) processOrders(ctx context.Context, sellerID int64, found []mercadolibre.Order, st *runState) {
	var g errgroup.Group
	g.SetLimit(s.orderConcurrency)
	for i := range found {
		summary := found[i]
		g.Go(func() error {
			if err := s.syncOrder(ctx, sellerID, &summary); err != nil {
				st.failed(Failure{OrderID: summary.ID, Error: err.Error()}, fmt.Errorf("order %d: %w", summary.ID, err))
				return nil
			}
			st.succeeded(period.Of(summary.DateCreated, s.loc))
			return nil
		})
	}
	_ = g.Wait()
}

// syncOrder persists one order with best-effort financials. Enrichment
// failures degrade to zero values; only auth failures abort the order.
func (s *service) syncOrder(ctx context.Context, sellerID int64, summary *mercadolibre.Order) error {
	ctx = s.logg.WithOrderID(ctx, strconv.FormatInt(summary.ID, 10))

	if summary.Buyer.ID != 0 {
		if err := s.repo.UpsertBuyer(ctx, buyerModel(summary.Buyer)); err != nil {
			return err
		}
	}
	sellerNick := summary.Seller.Nickname
	if err := s.repo.UpsertSeller(ctx, &models.Seller{ID: sellerID, Nickname: sellerNick}); err != nil {
		return err
	}

	data, err := s.enrich(ctx, sellerID, summary)
	if err != nil {
		return err
	}
	src := data.order

	fallback := enums.LogisticTypeUnknown
	if existing, err := s.repo.FindOrder(ctx, src.ID); err == nil {
		fallback = existing.LogisticType
	} else if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		return err
	}

	class := shipping.Classify(shipping.Input{
		Order:                src,
		Shipment:             data.shipment,
		Costs:                data.costs,
		FallbackLogisticType: fallback,
	})

	items := itemModels(src.OrderItems)
	s.fillMissingSKUs(ctx, items)

	fee, strategy := fees.ExtractMarketplaceFee(fees.FeeSources{
		Payments: src.Payments,
		Items:    src.OrderItems,
		Billing:  data.billing,
	})
	if strategy == "" {
		s.logg.Debug(ctx, "no marketplace fee found")
	}
	breakdown := fees.NewBreakdown(src.TotalAmount, fee, s.tax)

	order := orderModel(sellerID, src, data.shipment, class)
	payments := paymentModels(src.Payments, class, breakdown)
	return s.repo.SaveOrder(ctx, order, items, payments)
}

// enrich fetches details, shipment and billing concurrently, then the
// shipment costs.
func (s *service) enrich(ctx context.Context, sellerID int64, summary *mercadolibre.Order) (*enrichment, error) {
	var (
		g        errgroup.Group
		mu       sync.Mutex
		authErr  error
		details  *mercadolibre.Order
		shipment *mercadolibre.Shipment
		billing  mercadolibre.BillingInfo
	)
	degrade := func(what string, err error) {
		if pkgerrors.IsCode(err, pkgerrors.CodeAuthExpired) {
			mu.Lock()
			authErr = err
			mu.Unlock()
			return
		}
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), what+" unavailable, continuing without it")
	}

	g.Go(func() error {
		order, err := s.client.GetOrder(ctx, sellerID, summary.ID)
		if err != nil {
			degrade("order details", err)
			return nil
		}
		details = order
		return nil
	})
	g.Go(func() error {
		var err error
		if summary.Shipping.ID != nil && *summary.Shipping.ID != 0 {
			shipment, err = s.client.GetShipment(ctx, sellerID, *summary.Shipping.ID)
		} else {
			shipment, err = s.client.GetOrderShipment(ctx, sellerID, summary.ID)
		}
		if err != nil {
			shipment = nil
			degrade("shipment", err)
		}
		return nil
	})
	g.Go(func() error {
		info, err := s.client.GetOrderBillingInfo(ctx, sellerID, summary.ID)
		if err != nil {
			degrade("billing info", err)
			return nil
		}
		billing = info
		return nil
	})
	_ = g.Wait()
	if authErr != nil {
		return nil, authErr
	}

	data := &enrichment{order: summary, shipment: shipment, billing: billing}
	if details != nil {
		data.order = details
	}
	if id := costsShipmentID(shipment, data.order, summary); id != 0 {
		costs, err := s.client.GetShipmentCosts(ctx, sellerID, id)
		if err != nil {
			if pkgerrors.IsCode(err, pkgerrors.CodeAuthExpired) {
				return nil, err
			}
			degrade("shipment costs", err)
		} else {
			data.costs = costs
		}
	}
	return data, nil
}

// costsShipmentID prefers the fetched shipment and falls back to the id the
// order carries, so a failed shipment fetch still gets its costs.
func costsShipmentID(shipment *mercadolibre.Shipment, orders ...*mercadolibre.Order) int64 {
	if shipment != nil && shipment.ID != 0 {
		return shipment.ID
	}
	for _, o := range orders {
		if o != nil && o.Shipping.ID != nil && *o.Shipping.ID != 0 {
			return *o.Shipping.ID
		}
	}
	return 0
}

// fillMissingSKUs resolves items without a seller SKU through listing bindings.
func (s *service) fillMissingSKUs(ctx context.Context, items []models.OrderItem) {
	if s.listings == nil {
		return
	}
	for i := range items {
		if items[i].SellerSKU != "" {
			continue
		}
		product, secondary, err := s.listings.FindByListing(ctx, enums.PlatformMercadoLibre, items[i].ItemID, items[i].VariationID)
		if err != nil || product == nil {
			continue
		}
		if secondary != nil && strings.TrimSpace(secondary.SKU) != "" {
			items[i].SellerSKU = secondary.SKU
		} else {
			items[i].SellerSKU = product.InternalSKU
		}
	}
}

// finish recomputes every touched month once, records metrics and logs.
func (s *service) finish(ctx context.Context, st *runState, mode string, started time.Time) (*SyncResult, error) {
	if st.auth != nil {
		return nil, st.auth
	}
	for _, ym := range st.sortedMonths() {
		if _, err := s.flex.Recompute(ctx, st.result.SellerID, ym); err != nil {
			s.logg.Error(s.logg.WithField(ctx, "period", ym.String()), "monthly flex recompute failed", err)
			continue
		}
		st.result.Months = append(st.result.Months, ym.String())
	}

	s.metrics.ObserveOrders(st.result.Synced, st.result.Failed)
	s.metrics.ObserveSyncDuration(mode, s.now().Sub(started))
	if st.errs != nil {
		s.logg.Error(s.logg.WithField(ctx, "failed", len(st.result.Failures)), "sync finished with failures", st.errs)
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"total":  st.result.Total,
		"synced": st.result.Synced,
		"failed": st.result.Failed,
	}), "sync finished")
	return st.result, nil
}

// upstream keeps typed client errors and wraps anything else as an upstream failure.
func upstream(err error, msg string) error {
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeUpstream, err, msg)
}
