package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/marketsync-backend/api/middleware"
	"github.com/angelmondragon/marketsync-backend/api/responses"
	"github.com/angelmondragon/marketsync-backend/api/validators"
	"github.com/angelmondragon/marketsync-backend/internal/inventory"
	"github.com/angelmondragon/marketsync-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/marketsync-backend/pkg/errors"
	"github.com/angelmondragon/marketsync-backend/pkg/logger"
)

// StockLedger is the operator-facing slice of the inventory ledger.
type StockLedger interface {
	AdjustStock(ctx context.Context, productID int64, delta int, meta inventory.ChangeMeta) (*inventory.Change, error)
	History(ctx context.Context, productID int64, limit int) ([]models.ProductHistory, error)
}

type stockAdjustRequest struct {
	Delta  int    `json:"delta" validate:"required,ne=0"`
	Reason string `json:"reason" validate:"required,max=255"`
}

func AdjustStock(svc StockLedger, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory unavailable"))
			return
		}
		productID, err := validators.ParseIDParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req stockAdjustRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		change, err := svc.AdjustStock(r.Context(), productID, req.Delta, inventory.ChangeMeta{
			Actor:  middleware.ActorFromContext(r.Context()),
			Reason: validators.SanitizeString(req.Reason, 255),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toStockChangeDTO(change))
	}
}

func StockHistory(svc StockLedger, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory unavailable"))
			return
		}
		productID, err := validators.ParseIDParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", 50, 1, 200)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, err := svc.History(r.Context(), productID, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out := make([]historyDTO, 0, len(rows))
		for i := range rows {
			out = append(out, toHistoryDTO(&rows[i]))
		}
		responses.WriteSuccess(w, out)
	}
}
