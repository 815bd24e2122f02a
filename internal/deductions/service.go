// Package deductions deducts stock for marketplace sales exactly once per
// order, driven by marketplace notifications.
package deductions

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/marketsync-backend/internal/inventory"
	"github.com/angelmondragon/marketsync-backend/internal/mappings"
	"github.com/angelmondragon/marketsync-backend/internal/pendingsales"
	"github.com/angelmondragon/marketsync-backend/internal/shipping"
	"github.com/angelmondragon/marketsync-backend/pkg/db/models"
	"github.com/angelmondragon/marketsync-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/marketsync-backend/pkg/errors"
	"github.com/angelmondragon/marketsync-backend/pkg/falabella"
	"github.com/angelmondragon/marketsync-backend/pkg/logger"
	"github.com/angelmondragon/marketsync-backend/pkg/mercadolibre"
	"github.com/angelmondragon/marketsync-backend/pkg/metrics"
)

const (
	scopeMercadoLibre = "mercadolibre-order"
	scopeFalabella    = "falabella-order"

	falabellaTimeLayout = "2006-01-02 15:04:05"
)

// errAlreadyRecorded rolls back a deduction whose audit row another delivery
// wrote first.
var errAlreadyRecorded = errors.New("audit already recorded")

// MercadoLibreOrders fetches a seller's order details and, when the order
// omits its logistic type, the shipment.
type MercadoLibreOrders interface {
	GetOrder(ctx context.Context, sellerID, orderID int64) (*mercadolibre.Order, error)
	GetShipment(ctx context.Context, sellerID, shipmentID int64) (*mercadolibre.Shipment, error)
}

// SyncedOrders reads orders persisted by the sync.
type SyncedOrders interface {
	FindOrder(ctx context.Context, id int64) (*models.Order, error)
}

// FalabellaOrders fetches Seller Center orders and their unit rows.
type FalabellaOrders interface {
	GetOrder(ctx context.Context, orderID string) (*falabella.Order, error)
	GetOrderItems(ctx context.Context, orderID string) ([]falabella.OrderItem, error)
}

// ItemResult is the outcome recorded for one resolved product of a line.
type ItemResult struct {
	SKU       string            `json:"sku"`
	ProductID *int64            `json:"product_id,omitempty"`
	Quantity  int               `json:"quantity"`
	Status    enums.AuditStatus `json:"status"`
	Reason    string            `json:"reason,omitempty"`
}

// ProcessResult summarizes one order run.
type ProcessResult struct {
	Platform enums.Platform      `json:"platform"`
	OrderID  string              `json:"order_id"`
	Status   enums.ProcessStatus `json:"status"`
	Items    []ItemResult        `json:"items"`
}

type ServiceParams struct {
	Ledger       *inventory.Ledger
	Audits       *inventory.AuditRepository
	Resolver     *mappings.Resolver
	PendingSales *pendingsales.Service
	MercadoLibre MercadoLibreOrders
	Falabella    FalabellaOrders
	Orders       SyncedOrders
	Guard        *IdempotencyGuard
	Activation   time.Time
	Metrics      *metrics.SyncMetrics
	Logger       *logger.Logger
	Clock        func() time.Time
}

type Service struct {
	ledger       *inventory.Ledger
	audits       *inventory.AuditRepository
	resolver     *mappings.Resolver
	pendingSales *pendingsales.Service
	meli         MercadoLibreOrders
	falabella    FalabellaOrders
	orders       SyncedOrders
	guard        *IdempotencyGuard
	activation   time.Time
	metrics      *metrics.SyncMetrics
	logg         *logger.Logger
	now          func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Ledger == nil {
		return nil, fmt.Errorf("inventory ledger required")
	}
	if params.Audits == nil {
		return nil, fmt.Errorf("audit repository required")
	}
	if params.Resolver == nil {
		return nil, fmt.Errorf("mapping resolver required")
	}
	if params.PendingSales == nil {
		return nil, fmt.Errorf("pending sales service required")
	}
	svc := &Service{
		ledger:       params.Ledger,
		audits:       params.Audits,
		resolver:     params.Resolver,
		pendingSales: params.PendingSales,
		meli:         params.MercadoLibre,
		falabella:    params.Falabella,
		orders:       params.Orders,
		guard:        params.Guard,
		activation:   params.Activation,
		metrics:      params.Metrics,
		logg:         params.Logger,
		now:          params.Clock,
	}
	if svc.logg == nil {
		svc.logg = logger.Nop()
	}
	if svc.now == nil {
		svc.now = time.Now
	}
	return svc, nil
}

// line is one sold SKU with every key it can be resolved by.
type line struct {
	SKU          string
	AlternateSKU string
	ListingID    string
	VariationID  *int64
	Title        string
	Quantity     int
	Fulfilled    bool
}

func (l line) key() string {
	if l.SKU != "" {
		return l.SKU
	}
	if l.AlternateSKU != "" {
		return l.AlternateSKU
	}
	return l.ListingID
}

// order is the platform-neutral view the deduction steps work on.
type order struct {
	Platform  enums.Platform
	ID        string
	SaleDate  time.Time
	Cancelled bool
	Payable   bool
	Lines     []line
	Raw       any
}

func (o *order) fulfilled(v bool) {
	for i := range o.Lines {
		o.Lines[i].Fulfilled = v
	}
}

// ProcessMercadoLibreOrder deducts stock for a Mercado Libre order.
func (s *Service) ProcessMercadoLibreOrder(ctx context.Context, sellerID, orderID int64) (*ProcessResult, error) {
	if s.meli == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "mercado libre client not configured")
	}
	id := strconv.FormatInt(orderID, 10)
	ctx = s.logg.WithPlatform(s.logg.WithSellerID(s.logg.WithOrderID(ctx, id), sellerID), enums.PlatformMercadoLibre.String())

	return s.guarded(ctx, scopeMercadoLibre, id, enums.PlatformMercadoLibre, func() (*order, error) {
		src, err := s.meli.GetOrder(ctx, sellerID, orderID)
		if err != nil {
			return nil, err
		}
		out := mercadoLibreOrder(src)
		if out.Payable && !out.Cancelled {
			lt, err := s.mercadoLibreLogistics(ctx, sellerID, src)
			if err != nil {
				return nil, err
			}
			out.fulfilled(lt == enums.LogisticTypeFulfillment)
		}
		return out, nil
	})
}

// mercadoLibreLogistics classifies a paid order: the order stub first, then
// the row the sync persisted, then the shipment itself. An order without a
// shipment ships locally.
func (s *Service) mercadoLibreLogistics(ctx context.Context, sellerID int64, src *mercadolibre.Order) (enums.LogisticType, error) {
	if lt := shipping.LogisticTypeOf(shipping.Input{Order: src}); lt != enums.LogisticTypeUnknown {
		return lt, nil
	}
	if s.orders != nil {
		existing, err := s.orders.FindOrder(ctx, src.ID)
		switch {
		case err == nil:
			if existing.LogisticType.IsValid() && existing.LogisticType != enums.LogisticTypeUnknown {
				return existing.LogisticType, nil
			}
		case !pkgerrors.IsCode(err, pkgerrors.CodeNotFound):
			return "", err
		}
	}
	if src.Shipping.ID == nil || *src.Shipping.ID == 0 {
		return enums.LogisticTypeUnknown, nil
	}
	shipment, err := s.meli.GetShipment(ctx, sellerID, *src.Shipping.ID)
	if err != nil {
		return "", err
	}
	return shipping.LogisticTypeOf(shipping.Input{Order: src, Shipment: shipment}), nil
}

// ProcessFalabellaOrder deducts stock for a Falabella order. Each unit row
// counts once; rows for the same SKU are folded into one line.
func (s *Service) ProcessFalabellaOrder(ctx context.Context, orderID string) (*ProcessResult, error) {
	if s.falabella == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "falabella client not configured")
	}
	id := strings.TrimSpace(orderID)
	if id == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	ctx = s.logg.WithPlatform(s.logg.WithOrderID(ctx, id), enums.PlatformFalabella.String())

	return s.guarded(ctx, scopeFalabella, id, enums.PlatformFalabella, func() (*order, error) {
		src, err := s.falabella.GetOrder(ctx, id)
		if err != nil {
			return nil, err
		}
		items, err := s.falabella.GetOrderItems(ctx, id)
		if err != nil {
			return nil, err
		}
		return falabellaOrder(id, src, items, s.now()), nil
	})
}

// guarded runs one order under the notification guard. The mark only covers
// the run itself; whether an order was already handled is the audit table's
// call, so a later status change is always processed.
func (s *Service) guarded(ctx context.Context, scope, id string, platform enums.Platform, load func() (*order, error)) (*ProcessResult, error) {
	acquired, err := s.guard.Acquire(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	if !acquired {
		s.logg.Info(ctx, "notification already in flight")
		s.metrics.IncDeduction(string(enums.ProcessStatusAlreadyProcessed))
		return &ProcessResult{Platform: platform, OrderID: id, Status: enums.ProcessStatusAlreadyProcessed, Items: []ItemResult{}}, nil
	}

	defer s.guard.Release(context.WithoutCancel(ctx), scope, id)

	src, err := load()
	if err != nil {
		s.logg.Error(ctx, "order deduction failed", err)
		return nil, err
	}
	res, err := s.process(ctx, src)
	if err != nil {
		s.logg.Error(ctx, "order deduction failed", err)
		return nil, err
	}
	s.metrics.IncDeduction(string(res.Status))
	s.logg.Info(s.logg.WithField(ctx, "status", string(res.Status)), "order deduction finished")
	return res, nil
}

func (s *Service) process(ctx context.Context, src *order) (*ProcessResult, error) {
	res := &ProcessResult{Platform: src.Platform, OrderID: src.ID, Items: []ItemResult{}}
	if src.Cancelled {
		return s.cancel(ctx, src, res)
	}
	if !src.Payable {
		res.Status = enums.ProcessStatusSkipped
		return res, nil
	}

	processed, err := s.audits.ExistsForOrder(ctx, src.Platform, src.ID)
	if err != nil {
		return nil, err
	}
	if processed {
		res.Status = enums.ProcessStatusAlreadyProcessed
		return res, nil
	}

	res.Status = enums.ProcessStatusProcessed
	for _, l := range src.Lines {
		items, err := s.processLine(ctx, src, l)
		if err != nil {
			return nil, err
		}
		for _, it := range items {
			if it.Status == enums.AuditStatusNotFound {
				res.Status = enums.ProcessStatusPartial
			}
		}
		res.Items = append(res.Items, items...)
	}
	return res, nil
}

func (s *Service) processLine(ctx context.Context, src *order, l line) ([]ItemResult, error) {
	sku := l.key()
	if l.Fulfilled {
		item := ItemResult{SKU: sku, Quantity: l.Quantity, Status: enums.AuditStatusOKFull, Reason: "fulfilled by marketplace warehouse"}
		if err := ignoreRecorded(s.writeAudit(ctx, s.audits, src, item)); err != nil {
			return nil, err
		}
		return []ItemResult{item}, nil
	}

	resolved, err := s.resolver.Resolve(ctx, mappings.Lookup{
		Platform:     src.Platform,
		SKU:          l.SKU,
		AlternateSKU: l.AlternateSKU,
		ListingID:    l.ListingID,
		VariationID:  l.VariationID,
	})
	if err != nil {
		return nil, err
	}
	if len(resolved) == 0 {
		return s.unresolved(ctx, src, l, sku)
	}

	out := make([]ItemResult, 0, len(resolved))
	for _, rp := range resolved {
		item, err := s.deduct(ctx, src, sku, rp, l.Quantity*rp.Quantity)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}

// unresolved queues the sale for an operator and records NOT_FOUND.
func (s *Service) unresolved(ctx context.Context, src *order, l line, sku string) ([]ItemResult, error) {
	item := ItemResult{SKU: sku, Quantity: l.Quantity, Status: enums.AuditStatusNotFound, Reason: "sku not mapped to any product"}
	if sku == "" {
		item.Reason = "line item has no sku"
		sku = "unknown"
		item.SKU = sku
	}
	if _, err := s.pendingSales.Create(ctx, pendingsales.CreateInput{
		Platform:        src.Platform,
		ExternalOrderID: src.ID,
		PlatformSKU:     sku,
		Title:           l.Title,
		Quantity:        l.Quantity,
		SaleDate:        src.SaleDate,
		RawPayload:      rawPayload(src.Raw),
	}); err != nil {
		return nil, err
	}
	if err := ignoreRecorded(s.writeAudit(ctx, s.audits, src, item)); err != nil {
		return nil, err
	}
	s.logg.Warn(s.logg.WithField(ctx, "sku", sku), "sale queued for manual mapping")
	return []ItemResult{item}, nil
}

// deduct validates availability and then deducts and audits in one
// transaction. Insufficient stock is recorded, never deducted partially.
func (s *Service) deduct(ctx context.Context, src *order, sku string, rp mappings.ResolvedProduct, qty int) (ItemResult, error) {
	productID := rp.Product.ID
	item := ItemResult{SKU: sku, ProductID: &productID, Quantity: qty}

	ok, err := s.ledger.ValidateStockAvailability(ctx, productID, qty)
	if err != nil {
		return item, err
	}
	if !ok {
		item.Status = enums.AuditStatusNotFound
		item.Reason = fmt.Sprintf("insufficient stock for %s: available %d, required %d", rp.Product.InternalSKU, rp.Product.Stock, qty)
		return item, ignoreRecorded(s.writeAudit(ctx, s.audits, src, item))
	}

	item.Status = enums.AuditStatusOKInterno
	platform := src.Platform
	orderID := src.ID
	err = s.audits.Transaction(ctx, func(tx *gorm.DB) error {
		if err := s.writeAudit(ctx, s.audits.WithTx(tx), src, item); err != nil {
			return err
		}
		_, err := s.ledger.WithTx(tx).DeductStock(ctx, productID, qty, inventory.ChangeMeta{
			ChangeType:      enums.ChangeTypeOrder,
			PlatformID:      &platform,
			ExternalOrderID: &orderID,
			Reason:          "marketplace sale",
		})
		return err
	})
	if errors.Is(err, errAlreadyRecorded) {
		item.Reason = "already deducted by a concurrent delivery"
		return item, nil
	}
	return item, err
}

// cancel restores stock for every OK_INTERNO row that has no CANCELLED
// counterpart yet. The CANCELLED insert is the guard: a duplicate rolls the
// restore back.
func (s *Service) cancel(ctx context.Context, src *order, res *ProcessResult) (*ProcessResult, error) {
	res.Status = enums.ProcessStatusCancelled
	audits, err := s.audits.ListForOrder(ctx, src.Platform, src.ID)
	if err != nil {
		return nil, err
	}

	platform := src.Platform
	orderID := src.ID
	for _, a := range audits {
		if a.Status != enums.AuditStatusOKInterno || a.ProductID == nil {
			continue
		}
		productID := *a.ProductID
		item := ItemResult{SKU: a.PlatformSKU, ProductID: &productID, Quantity: a.Quantity, Status: enums.AuditStatusCancelled, Reason: "order cancelled, stock restored"}
		err := s.audits.Transaction(ctx, func(tx *gorm.DB) error {
			if err := s.writeAudit(ctx, s.audits.WithTx(tx), src, item); err != nil {
				return err
			}
			_, err := s.ledger.WithTx(tx).RestoreStock(ctx, productID, a.Quantity, inventory.ChangeMeta{
				ChangeType:      enums.ChangeTypeOrder,
				PlatformID:      &platform,
				ExternalOrderID: &orderID,
				Reason:          "marketplace order cancelled",
			})
			return err
		})
		if errors.Is(err, errAlreadyRecorded) {
			continue
		}
		if err != nil {
			return nil, err
		}
		res.Items = append(res.Items, item)
	}
	return res, nil
}

func (s *Service) writeAudit(ctx context.Context, audits *inventory.AuditRepository, src *order, item ItemResult) error {
	inserted, err := audits.Insert(ctx, &models.ProductAudit{
		PlatformID:      src.Platform,
		ExternalOrderID: src.ID,
		PlatformSKU:     item.SKU,
		ProductID:       item.ProductID,
		Status:          item.Status,
		Quantity:        item.Quantity,
		Reason:          item.Reason,
	})
	if err != nil {
		return err
	}
	if !inserted {
		return errAlreadyRecorded
	}
	return nil
}

func ignoreRecorded(err error) error {
	if errors.Is(err, errAlreadyRecorded) {
		return nil
	}
	return err
}

func mercadoLibreOrder(src *mercadolibre.Order) *order {
	statuses := make([]enums.PaymentStatus, 0, len(src.Payments))
	for _, p := range src.Payments {
		if status, err := enums.ParsePaymentStatus(strings.ToLower(p.Status)); err == nil {
			statuses = append(statuses, status)
		}
	}
	status, err := enums.ParseOrderStatus(strings.ToLower(src.Status))
	if err != nil {
		status = enums.OrderStatusInvalid
	}
	kind := shipping.Cancellation(status, statuses)

	out := &order{
		Platform:  enums.PlatformMercadoLibre,
		ID:        strconv.FormatInt(src.ID, 10),
		SaleDate:  src.DateCreated,
		Cancelled: kind == enums.CancellationKindCancelled || kind == enums.CancellationKindRefunded,
		Payable:   status == enums.OrderStatusPaid,
		Raw:       src,
	}
	for _, it := range src.OrderItems {
		sku := ""
		if it.Item.SellerSKU != nil {
			sku = strings.TrimSpace(*it.Item.SellerSKU)
		}
		out.Lines = append(out.Lines, line{
			SKU:         sku,
			ListingID:   it.Item.ID,
			VariationID: it.Item.VariationID,
			Title:       it.Item.Title,
			Quantity:    it.Quantity,
		})
	}
	return out
}

func falabellaOrder(id string, src *falabella.Order, items []falabella.OrderItem, now time.Time) *order {
	out := &order{
		Platform: enums.PlatformFalabella,
		ID:       id,
		SaleDate: now,
		Payable:  true,
		Raw:      map[string]any{"order": src, "items": items},
	}
	if t, err := time.Parse(falabellaTimeLayout, strings.TrimSpace(src.CreatedAt)); err == nil {
		out.SaleDate = t
	}

	live := 0
	index := map[string]int{}
	for _, it := range items {
		if it.Cancelled() {
			continue
		}
		live++
		sku := strings.TrimSpace(it.Sku)
		shopSku := strings.TrimSpace(it.ShopSku)
		key := sku + "|" + shopSku + "|" + strconv.FormatBool(it.FulfilledByPlatform())
		if i, ok := index[key]; ok {
			out.Lines[i].Quantity++
			continue
		}
		index[key] = len(out.Lines)
		out.Lines = append(out.Lines, line{
			SKU:          sku,
			AlternateSKU: shopSku,
			Title:        it.Name,
			Quantity:     1,
			Fulfilled:    it.FulfilledByPlatform(),
		})
	}
	out.Cancelled = (len(items) > 0 && live == 0) || (len(items) == 0 && (src.HasStatus("canceled") || src.HasStatus("cancelled")))
	return out
}
