package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/marketsync-backend/api/responses"
	"github.com/angelmondragon/marketsync-backend/api/validators"
	"github.com/angelmondragon/marketsync-backend/internal/deductions"
	"github.com/angelmondragon/marketsync-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/marketsync-backend/pkg/errors"
	"github.com/angelmondragon/marketsync-backend/pkg/logger"
)

// Deductions is the notification-driven stock deduction entry point.
type Deductions interface {
	ProcessMercadoLibreOrder(ctx context.Context, sellerID, orderID int64) (*deductions.ProcessResult, error)
	ProcessFalabellaOrder(ctx context.Context, orderID string) (*deductions.ProcessResult, error)
	AuditSummary(ctx context.Context, from, to time.Time) (*deductions.AuditSummary, error)
}

var mercadoLibreOrderResource = regexp.MustCompile(`^/orders/(\d+)$`)

// mercadoLibreNotification is the subset of the notification envelope we route on.
type mercadoLibreNotification struct {
	Resource string `json:"resource" validate:"required"`
	UserID   int64  `json:"user_id" validate:"required,gt=0"`
	Topic    string `json:"topic"`
	Attempts int    `json:"attempts"`
}

type falabellaNotification struct {
	Event   string `json:"event"`
	Payload struct {
		OrderID flexibleID `json:"OrderId"`
	} `json:"payload"`
}

// flexibleID accepts an identifier sent either as a JSON string or number.
type flexibleID string

func (f *flexibleID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexibleID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexibleID(n.String())
	return nil
}

type ignoredNotification struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}

// MercadoLibreWebhook handles order notifications. Other topics are
// acknowledged so the marketplace stops retrying them.
func MercadoLibreWebhook(svc Deductions, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "deduction service unavailable"))
			return
		}
		var note mercadoLibreNotification
		if err := validators.DecodeNotificationBody(r, &note); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := logg.WithFields(r.Context(), map[string]any{"topic": note.Topic, "resource": note.Resource, "attempts": note.Attempts})
		match := mercadoLibreOrderResource.FindStringSubmatch(strings.TrimSpace(note.Resource))
		if match == nil {
			logg.Debug(ctx, "notification ignored")
			responses.WriteSuccess(w, ignoredNotification{Status: "ignored", Reason: "resource is not an order"})
			return
		}
		orderID, err := strconv.ParseInt(match[1], 10, 64)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order resource"))
			return
		}

		result, err := svc.ProcessMercadoLibreOrder(ctx, note.UserID, orderID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func FalabellaWebhook(svc Deductions, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "deduction service unavailable"))
			return
		}
		var note falabellaNotification
		if err := validators.DecodeNotificationBody(r, &note); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID := string(note.Payload.OrderID)
		if orderID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "payload.OrderId is required"))
			return
		}

		ctx := logg.WithField(r.Context(), "event", note.Event)
		result, err := svc.ProcessFalabellaOrder(ctx, orderID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// ReprocessOrder reruns deduction for one order. Mercado Libre orders need
// ?seller_id= to pick the seller's token.
func ReprocessOrder(svc Deductions, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "deduction service unavailable"))
			return
		}
		platform, err := enums.ParsePlatform(chi.URLParam(r, "platform"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid platform"))
			return
		}
		rawID := strings.TrimSpace(chi.URLParam(r, "orderId"))

		var result *deductions.ProcessResult
		switch platform {
		case enums.PlatformMercadoLibre:
			orderID, perr := strconv.ParseInt(rawID, 10, 64)
			if perr != nil || orderID <= 0 {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "order id must be numeric"))
				return
			}
			sellerID, perr := strconv.ParseInt(strings.TrimSpace(r.URL.Query().Get("seller_id")), 10, 64)
			if perr != nil || sellerID <= 0 {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "seller_id is required"))
				return
			}
			result, err = svc.ProcessMercadoLibreOrder(r.Context(), sellerID, orderID)
		default:
			result, err = svc.ProcessFalabellaOrder(r.Context(), rawID)
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// AuditSummary counts deduction outcomes for the calendar days from..to.
func AuditSummary(svc Deductions, loc *time.Location, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "deduction service unavailable"))
			return
		}
		from, to, err := validators.ParseQueryDateRange(r, loc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		end := to.AddDate(0, 0, 1)

		summary, err := svc.AuditSummary(r.Context(), from, end)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out := auditSummaryDTO{
			From:     summary.From,
			To:       summary.To,
			Total:    summary.Total,
			ByStatus: make(map[string]int, len(summary.ByStatus)),
			NotFound: make([]auditDTO, 0, len(summary.NotFound)),
		}
		for status, n := range summary.ByStatus {
			out.ByStatus[string(status)] = n
		}
		for i := range summary.NotFound {
			out.NotFound = append(out.NotFound, toAuditDTO(&summary.NotFound[i]))
		}
		responses.WriteSuccess(w, out)
	}
}
