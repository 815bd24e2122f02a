package reports

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/marketsync-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/marketsync-backend/pkg/errors"
	"github.com/angelmondragon/marketsync-backend/pkg/logger"
	"github.com/angelmondragon/marketsync-backend/pkg/pagination"
	"github.com/angelmondragon/marketsync-backend/pkg/period"
)

const defaultMaxRangeDays = 93

// OrderReader loads a seller's orders created in [from, to) with payments.
type OrderReader interface {
	ListOrders(ctx context.Context, sellerID int64, from, to time.Time) ([]models.Order, error)
}

type ServiceParams struct {
	Orders       OrderReader
	Location     *time.Location
	MaxRangeDays int
	Logger       *logger.Logger
}

type Service struct {
	orders       OrderReader
	loc          *time.Location
	maxRangeDays int
	logg         *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Orders == nil {
		return nil, fmt.Errorf("order reader required")
	}
	svc := &Service{
		orders:       params.Orders,
		loc:          params.Location,
		maxRangeDays: params.MaxRangeDays,
		logg:         params.Logger,
	}
	if svc.loc == nil {
		svc.loc = time.UTC
	}
	if svc.maxRangeDays <= 0 {
		svc.maxRangeDays = defaultMaxRangeDays
	}
	if svc.logg == nil {
		svc.logg = logger.Nop()
	}
	return svc, nil
}

// Daily reports the calendar day of date in the configured timezone.
func (s *Service) Daily(ctx context.Context, sellerID int64, date time.Time) (*Report, error) {
	from, to := period.DayBounds(date, s.loc)
	return s.report(ctx, sellerID, from, to)
}

// Range reports the calendar days from..to inclusive.
func (s *Service) Range(ctx context.Context, sellerID int64, from, to time.Time) (*Report, error) {
	start, end, err := s.window(from, to)
	if err != nil {
		return nil, err
	}
	return s.report(ctx, sellerID, start, end)
}

// Packs lists the window's packs, newest first, one page at a time.
func (s *Service) Packs(ctx context.Context, sellerID int64, from, to time.Time, params pagination.Params) (pagination.Page[PackSummary], error) {
	start, end, err := s.window(from, to)
	if err != nil {
		return pagination.Page[PackSummary]{}, err
	}
	orders, err := s.orders.ListOrders(ctx, sellerID, start, end)
	if err != nil {
		return pagination.Page[PackSummary]{}, err
	}
	return pagination.Paginate(GroupPacks(SummarizeAll(orders)), params), nil
}

func (s *Service) window(from, to time.Time) (time.Time, time.Time, error) {
	if to.Before(from) {
		return time.Time{}, time.Time{}, pkgerrors.New(pkgerrors.CodeValidation, "from must not be after to")
	}
	days := period.DaysBetween(from, to, s.loc)
	if len(days) > s.maxRangeDays {
		return time.Time{}, time.Time{}, pkgerrors.New(pkgerrors.CodeValidation, "date range too large").
			WithDetails(map[string]any{"max_days": s.maxRangeDays, "days": len(days)})
	}
	start, _ := period.DayBounds(days[0], s.loc)
	_, end := period.DayBounds(days[len(days)-1], s.loc)
	return start, end, nil
}

func (s *Service) report(ctx context.Context, sellerID int64, from, to time.Time) (*Report, error) {
	orders, err := s.orders.ListOrders(ctx, sellerID, from, to)
	if err != nil {
		return nil, err
	}
	report := Aggregate(SummarizeAll(orders))
	report.SellerID = sellerID
	report.From = from
	report.To = to

	s.logg.Debug(s.logg.WithFields(ctx, map[string]any{
		"seller_id": sellerID,
		"orders":    report.Total.Orders,
		"cancelled": report.Total.Cancelled,
	}), "sales report built")
	return &report, nil
}
