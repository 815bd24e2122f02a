package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/marketsync-backend/api/controllers"
	"github.com/angelmondragon/marketsync-backend/api/middleware"
	"github.com/angelmondragon/marketsync-backend/internal/orders"
	"github.com/angelmondragon/marketsync-backend/pkg/config"
	"github.com/angelmondragon/marketsync-backend/pkg/db"
	"github.com/angelmondragon/marketsync-backend/pkg/logger"
	"github.com/angelmondragon/marketsync-backend/pkg/redis"
)

// Services groups the domain services the HTTP surface delegates to. Any
// nil service makes its routes answer INTERNAL_ERROR.
type Services struct {
	Sync         orders.Service
	Sales        controllers.SalesReporter
	FlexCosts    controllers.FlexCosts
	PendingSales controllers.PendingSales
	Mappings     controllers.Mappings
	Stock        controllers.StockLedger
	Deductions   controllers.Deductions
}

// Infra carries health probes, the idempotency store and the metrics registry.
type Infra struct {
	DB          db.Pinger
	Redis       db.Pinger
	Idempotency redis.IdempotencyStore
	Metrics     prometheus.Gatherer
}

func NewRouter(cfg *config.Config, logg *logger.Logger, infra Infra, svc Services) http.Handler {
	loc, err := cfg.Tracking.Location()
	if err != nil {
		loc = time.UTC
	}

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Actor(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, infra.DB, infra.Redis))
	})
	if infra.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(infra.Metrics, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/mercadolibre", controllers.MercadoLibreWebhook(svc.Deductions, logg))
		r.Post("/falabella", controllers.FalabellaWebhook(svc.Deductions, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Idempotency(infra.Idempotency, logg))

		r.Route("/sellers/{sellerId}", func(r chi.Router) {
			r.Post("/sync", controllers.SyncOrders(svc.Sync, loc, logg))
			r.Post("/sync/status-changes", controllers.SyncStatusChanges(svc.Sync, loc, logg))

			r.Get("/sales", controllers.SalesRange(svc.Sales, loc, logg))
			r.Get("/sales/daily", controllers.SalesDaily(svc.Sales, loc, logg))
			r.Get("/sales/packs", controllers.SalesPacks(svc.Sales, loc, logg))

			r.Get("/fazt-configuration", controllers.FaztConfiguration(svc.FlexCosts, logg))
			r.Put("/fazt-configuration", controllers.SaveFaztConfiguration(svc.FlexCosts, logg))
			r.Get("/flex-costs/quote", controllers.QuoteFlexCost(svc.FlexCosts, logg))
			r.Post("/flex-costs/{year}/{month}/recompute", controllers.RecomputeFlexCosts(svc.FlexCosts, logg))
		})

		r.Route("/pending-sales", func(r chi.Router) {
			r.Get("/", controllers.ListPendingSales(svc.PendingSales, logg))
			r.Post("/{id}/resolve", controllers.ResolvePendingSale(svc.PendingSales, logg))
			r.Post("/{id}/ignore", controllers.IgnorePendingSale(svc.PendingSales, logg))
		})

		r.Route("/mappings", func(r chi.Router) {
			r.Post("/", controllers.CreateMapping(svc.Mappings, logg))
			r.Get("/resolve", controllers.ResolveMapping(svc.Mappings, logg))
			r.Delete("/{id}", controllers.DeleteMapping(svc.Mappings, logg))
		})

		r.Route("/products/{productId}", func(r chi.Router) {
			r.Post("/stock/adjust", controllers.AdjustStock(svc.Stock, logg))
			r.Get("/history", controllers.StockHistory(svc.Stock, logg))
		})

		r.Post("/orders/{platform}/{orderId}/reprocess", controllers.ReprocessOrder(svc.Deductions, logg))
		r.Get("/audits/summary", controllers.AuditSummary(svc.Deductions, loc, logg))
	})

	return r
}
