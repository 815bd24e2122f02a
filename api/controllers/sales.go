package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/angelmondragon/marketsync-backend/api/responses"
	"github.com/angelmondragon/marketsync-backend/api/validators"
	"github.com/angelmondragon/marketsync-backend/internal/reports"
	pkgerrors "github.com/angelmondragon/marketsync-backend/pkg/errors"
	"github.com/angelmondragon/marketsync-backend/pkg/logger"
	"github.com/angelmondragon/marketsync-backend/pkg/pagination"
)

// SalesReporter is the read path over persisted orders.
type SalesReporter interface {
	Daily(ctx context.Context, sellerID int64, date time.Time) (*reports.Report, error)
	Range(ctx context.Context, sellerID int64, from, to time.Time) (*reports.Report, error)
	Packs(ctx context.Context, sellerID int64, from, to time.Time, params pagination.Params) (pagination.Page[reports.PackSummary], error)
}

// SalesDaily reports one calendar day, bucketed by logistic type.
func SalesDaily(svc SalesReporter, loc *time.Location, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "sales report unavailable"))
			return
		}
		sellerID, err := validators.ParseIDParam(r, "sellerId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		date, err := validators.ParseQueryDate(r, "date", loc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		report, err := svc.Daily(logg.WithSellerID(r.Context(), sellerID), sellerID, date)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, report)
	}
}

// SalesRange reports the inclusive calendar days from..to.
func SalesRange(svc SalesReporter, loc *time.Location, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "sales report unavailable"))
			return
		}
		sellerID, err := validators.ParseIDParam(r, "sellerId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		from, to, err := validators.ParseQueryDateRange(r, loc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		report, err := svc.Range(logg.WithSellerID(r.Context(), sellerID), sellerID, from, to)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, report)
	}
}

// SalesPacks pages through the window's packs, newest first.
func SalesPacks(svc SalesReporter, loc *time.Location, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "sales report unavailable"))
			return
		}
		sellerID, err := validators.ParseIDParam(r, "sellerId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		from, to, err := validators.ParseQueryDateRange(r, loc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := validators.ParseQueryInt(r, "page", 1, 1, 1_000_000)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		packs, err := svc.Packs(logg.WithSellerID(r.Context(), sellerID), sellerID, from, to, pagination.Params{Page: page, Limit: limit})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, packs)
	}
}
