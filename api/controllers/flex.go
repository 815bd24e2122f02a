package controllers

import (
	"context"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/marketsync-backend/api/responses"
	"github.com/angelmondragon/marketsync-backend/api/validators"
	"github.com/angelmondragon/marketsync-backend/internal/fees"
	"github.com/angelmondragon/marketsync-backend/internal/flexcost"
	"github.com/angelmondragon/marketsync-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/marketsync-backend/pkg/errors"
	"github.com/angelmondragon/marketsync-backend/pkg/logger"
	"github.com/angelmondragon/marketsync-backend/pkg/period"
)

// FlexCosts manages the external courier schedule and its monthly amortization.
type FlexCosts interface {
	Configuration(ctx context.Context, sellerID int64) (*models.FaztConfiguration, error)
	SaveConfiguration(ctx context.Context, input flexcost.ConfigurationInput) (*models.FaztConfiguration, error)
	Quote(ctx context.Context, sellerID int64, input flexcost.QuoteInput) (*flexcost.Quote, error)
	Recompute(ctx context.Context, sellerID int64, ym period.YearMonth) (*flexcost.Result, error)
}

type faztConfigurationRequest struct {
	ServiceType          string          `json:"service_type" validate:"omitempty,max=32"`
	RateTiers            []rateTierDTO   `json:"rate_tiers" validate:"required,min=1,dive"`
	SpecialZoneSurcharge decimal.Decimal `json:"special_zone_surcharge"`
	OversizeSurcharge    decimal.Decimal `json:"oversize_surcharge"`
	SpecialZones         []string        `json:"special_zones"`
}

func (req faztConfigurationRequest) toInput(sellerID int64) flexcost.ConfigurationInput {
	tiers := make([]fees.Tier, 0, len(req.RateTiers))
	for _, t := range req.RateTiers {
		tiers = append(tiers, fees.Tier{MinShipments: t.MinShipments, MaxShipments: t.MaxShipments, Rate: t.Rate})
	}
	zones := make([]string, 0, len(req.SpecialZones))
	for _, z := range req.SpecialZones {
		if clean := validators.SanitizeString(z, 100); clean != "" {
			zones = append(zones, clean)
		}
	}
	return flexcost.ConfigurationInput{
		SellerID:             sellerID,
		ServiceType:          validators.SanitizeString(req.ServiceType, 32),
		RateTiers:            tiers,
		SpecialZoneSurcharge: req.SpecialZoneSurcharge,
		OversizeSurcharge:    req.OversizeSurcharge,
		SpecialZones:         zones,
	}
}

func FaztConfiguration(svc FlexCosts, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "flex cost service unavailable"))
			return
		}
		sellerID, err := validators.ParseIDParam(r, "sellerId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		cfg, err := svc.Configuration(r.Context(), sellerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toFaztConfigurationDTO(cfg))
	}
}

// SaveFaztConfiguration replaces the seller's courier schedule. Stored
// fazt costs change only on the next recompute.
func SaveFaztConfiguration(svc FlexCosts, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "flex cost service unavailable"))
			return
		}
		sellerID, err := validators.ParseIDParam(r, "sellerId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req faztConfigurationRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		cfg, err := svc.SaveConfiguration(logg.WithSellerID(r.Context(), sellerID), req.toInput(sellerID))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toFaztConfigurationDTO(cfg))
	}
}

func RecomputeFlexCosts(svc FlexCosts, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "flex cost service unavailable"))
			return
		}
		sellerID, err := validators.ParseIDParam(r, "sellerId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ym, err := validators.ParseYearMonthParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		res, err := svc.Recompute(logg.WithSellerID(r.Context(), sellerID), sellerID, ym)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toRecomputeDTO(res))
	}
}

// QuoteFlexCost prices one shipment at the tier a monthly volume would land on.
func QuoteFlexCost(svc FlexCosts, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "flex cost service unavailable"))
			return
		}
		sellerID, err := validators.ParseIDParam(r, "sellerId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		shipments, err := validators.ParseQueryInt(r, "shipments", 0, 0, 1_000_000)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		special, err := validators.ParseQueryBool(r, "special_zone")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		oversize, err := validators.ParseQueryBool(r, "oversize")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		quote, err := svc.Quote(r.Context(), sellerID, flexcost.QuoteInput{Shipments: shipments, SpecialZone: special, Oversize: oversize})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toQuoteDTO(quote))
	}
}
