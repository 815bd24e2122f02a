package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/angelmondragon/marketsync-backend/api/responses"
	"github.com/angelmondragon/marketsync-backend/api/validators"
	"github.com/angelmondragon/marketsync-backend/internal/orders"
	pkgerrors "github.com/angelmondragon/marketsync-backend/pkg/errors"
	"github.com/angelmondragon/marketsync-backend/pkg/logger"
	"github.com/angelmondragon/marketsync-backend/pkg/period"
)

// syncRequest selects exactly one mode: a single date, a from/to range or a
// year/month.
type syncRequest struct {
	Date  string `json:"date,omitempty"`
	From  string `json:"from,omitempty"`
	To    string `json:"to,omitempty"`
	Year  int    `json:"year,omitempty" validate:"omitempty,gte=2000"`
	Month int    `json:"month,omitempty" validate:"omitempty,min=1,max=12"`
}

func (req syncRequest) modes() int {
	n := 0
	if strings.TrimSpace(req.Date) != "" {
		n++
	}
	if strings.TrimSpace(req.From) != "" {
		n++
	}
	if req.Year != 0 || req.Month != 0 {
		n++
	}
	return n
}

type statusChangesRequest struct {
	From string `json:"from" validate:"required"`
	To   string `json:"to" validate:"required"`
}

// SyncOrders runs a date, range or month sync for the seller.
func SyncOrders(svc orders.Service, loc *time.Location, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "sync service unavailable"))
			return
		}
		sellerID, err := validators.ParseIDParam(r, "sellerId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req syncRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if req.modes() != 1 {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "provide exactly one of date, from/to or year/month"))
			return
		}

		ctx := logg.WithSellerID(r.Context(), sellerID)
		var result *orders.SyncResult
		switch {
		case req.Date != "":
			date, perr := validators.ParseDate("date", req.Date, loc)
			if perr != nil {
				responses.WriteError(ctx, logg, w, perr)
				return
			}
			result, err = svc.SyncDate(ctx, sellerID, date)
		case req.From != "":
			from, perr := validators.ParseDate("from", req.From, loc)
			if perr != nil {
				responses.WriteError(ctx, logg, w, perr)
				return
			}
			to, perr := validators.ParseDate("to", req.To, loc)
			if perr != nil {
				responses.WriteError(ctx, logg, w, perr)
				return
			}
			result, err = svc.SyncRange(ctx, sellerID, from, to)
		default:
			ym, perr := period.NewYearMonth(req.Year, time.Month(req.Month))
			if perr != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, perr, "invalid year/month"))
				return
			}
			result, err = svc.SyncMonth(ctx, sellerID, ym)
		}
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// SyncStatusChanges re-syncs orders updated on the calendar days from..to.
func SyncStatusChanges(svc orders.Service, loc *time.Location, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "sync service unavailable"))
			return
		}
		sellerID, err := validators.ParseIDParam(r, "sellerId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req statusChangesRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		from, err := validators.ParseDate("from", req.From, loc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		to, err := validators.ParseDate("to", req.To, loc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		start, _ := period.DayBounds(from, loc)
		_, end := period.DayBounds(to, loc)

		ctx := logg.WithSellerID(r.Context(), sellerID)
		result, err := svc.SyncStatusChanges(ctx, sellerID, start, end)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
