package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/marketsync-backend/api/middleware"
	"github.com/angelmondragon/marketsync-backend/api/responses"
	"github.com/angelmondragon/marketsync-backend/api/validators"
	"github.com/angelmondragon/marketsync-backend/internal/pendingsales"
	"github.com/angelmondragon/marketsync-backend/pkg/db/models"
	"github.com/angelmondragon/marketsync-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/marketsync-backend/pkg/errors"
	"github.com/angelmondragon/marketsync-backend/pkg/logger"
)

// PendingSales is the operator queue of sales no product could be matched to.
type PendingSales interface {
	FindAll(ctx context.Context, filter pendingsales.Filter) ([]models.PendingSale, error)
	Resolve(ctx context.Context, id uuid.UUID, input pendingsales.ResolveInput) (*models.PendingSale, error)
	Ignore(ctx context.Context, id uuid.UUID, resolvedBy string) (*models.PendingSale, error)
}

type resolvePendingSaleRequest struct {
	ProductID     int64 `json:"product_id" validate:"required,gt=0"`
	CreateMapping bool  `json:"create_mapping"`
}

// ListPendingSales filters by ?status= and ?platform=.
func ListPendingSales(svc PendingSales, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "pending sales unavailable"))
			return
		}

		var filter pendingsales.Filter
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParsePendingSaleStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
				return
			}
			filter.Status = &status
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("platform")); raw != "" {
			platform, err := enums.ParsePlatform(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid platform"))
				return
			}
			filter.PlatformID = &platform
		}

		sales, err := svc.FindAll(r.Context(), filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out := make([]pendingSaleDTO, 0, len(sales))
		for i := range sales {
			out = append(out, toPendingSaleDTO(&sales[i]))
		}
		responses.WriteSuccess(w, out)
	}
}

// ResolvePendingSale deducts the sale from the chosen product and optionally
// remembers the SKU link for future orders.
func ResolvePendingSale(svc PendingSales, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "pending sales unavailable"))
			return
		}
		id, err := parsePendingSaleID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req resolvePendingSaleRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sale, err := svc.Resolve(r.Context(), id, pendingsales.ResolveInput{
			ProductID:     req.ProductID,
			CreateMapping: req.CreateMapping,
			ResolvedBy:    middleware.ActorFromContext(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toPendingSaleDTO(sale))
	}
}

func IgnorePendingSale(svc PendingSales, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "pending sales unavailable"))
			return
		}
		id, err := parsePendingSaleID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sale, err := svc.Ignore(r.Context(), id, middleware.ActorFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toPendingSaleDTO(sale))
	}
}

func parsePendingSaleID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, "id")))
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid pending sale id")
	}
	return id, nil
}
