package controllers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/angelmondragon/marketsync-backend/api/responses"
	"github.com/angelmondragon/marketsync-backend/api/validators"
	"github.com/angelmondragon/marketsync-backend/internal/mappings"
	"github.com/angelmondragon/marketsync-backend/pkg/db/models"
	"github.com/angelmondragon/marketsync-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/marketsync-backend/pkg/errors"
	"github.com/angelmondragon/marketsync-backend/pkg/logger"
)

// Mappings curates platform SKU to product links.
type Mappings interface {
	CreateMapping(ctx context.Context, input mappings.CreateMappingInput) (*models.ProductMapping, error)
	DeactivateMapping(ctx context.Context, id int64) error
	Resolve(ctx context.Context, lookup mappings.Lookup) ([]mappings.ResolvedProduct, error)
}

type createMappingRequest struct {
	Platform    string `json:"platform" validate:"required"`
	PlatformSKU string `json:"platform_sku" validate:"required,max=100"`
	ProductID   int64  `json:"product_id" validate:"required,gt=0"`
	Quantity    int    `json:"quantity" validate:"omitempty,gte=1"`
}

func CreateMapping(svc Mappings, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "mapping service unavailable"))
			return
		}
		var req createMappingRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		platform, err := enums.ParsePlatform(req.Platform)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid platform"))
			return
		}

		mapping, err := svc.CreateMapping(r.Context(), mappings.CreateMappingInput{
			Platform:    platform,
			PlatformSKU: validators.SanitizeString(req.PlatformSKU, 100),
			ProductID:   req.ProductID,
			Quantity:    req.Quantity,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, toMappingDTO(mapping))
	}
}

// DeleteMapping deactivates the mapping; audits keep pointing at the product.
func DeleteMapping(svc Mappings, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "mapping service unavailable"))
			return
		}
		id, err := validators.ParseIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.DeactivateMapping(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// ResolveMapping previews which products a sale line would deduct from.
func ResolveMapping(svc Mappings, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "mapping service unavailable"))
			return
		}
		q := r.URL.Query()
		platform, err := enums.ParsePlatform(q.Get("platform"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid platform"))
			return
		}
		lookup := mappings.Lookup{
			Platform:     platform,
			SKU:          validators.SanitizeString(q.Get("sku"), 100),
			AlternateSKU: validators.SanitizeString(q.Get("alternate_sku"), 100),
			ListingID:    validators.SanitizeString(q.Get("listing_id"), 64),
		}
		if raw := strings.TrimSpace(q.Get("variation_id")); raw != "" {
			variation, perr := strconv.ParseInt(raw, 10, 64)
			if perr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "variation_id must be numeric"))
				return
			}
			lookup.VariationID = &variation
		}
		if lookup.SKU == "" && lookup.ListingID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "sku or listing_id is required"))
			return
		}

		resolved, err := svc.Resolve(r.Context(), lookup)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toResolvedDTOs(resolved))
	}
}
