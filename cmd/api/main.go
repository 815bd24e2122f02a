package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"gorm.io/gorm"

	"github.com/angelmondragon/marketsync-backend/api/routes"
	"github.com/angelmondragon/marketsync-backend/internal/deductions"
	"github.com/angelmondragon/marketsync-backend/internal/flexcost"
	"github.com/angelmondragon/marketsync-backend/internal/inventory"
	"github.com/angelmondragon/marketsync-backend/internal/mappings"
	"github.com/angelmondragon/marketsync-backend/internal/orders"
	"github.com/angelmondragon/marketsync-backend/internal/pendingsales"
	"github.com/angelmondragon/marketsync-backend/internal/reports"
	"github.com/angelmondragon/marketsync-backend/pkg/config"
	"github.com/angelmondragon/marketsync-backend/pkg/db"
	"github.com/angelmondragon/marketsync-backend/pkg/falabella"
	"github.com/angelmondragon/marketsync-backend/pkg/logger"
	"github.com/angelmondragon/marketsync-backend/pkg/mercadolibre"
	"github.com/angelmondragon/marketsync-backend/pkg/metrics"
	"github.com/angelmondragon/marketsync-backend/pkg/migrate"
	"github.com/angelmondragon/marketsync-backend/pkg/redis"
	"github.com/angelmondragon/marketsync-backend/pkg/tax"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Env:         cfg.App.Env,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx := context.Background()

	loc, err := cfg.Tracking.Location()
	requireResource(ctx, logg, "timezone", err)
	activation, err := cfg.Tracking.Activation()
	requireResource(ctx, logg, "tracking activation", err)

	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(ctx, "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	infra := routes.Infra{DB: dbClient}
	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient, err = redis.New(ctx, cfg.Redis, logg)
		requireResource(ctx, logg, "redis", err)
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(ctx, "error closing redis", err)
			}
		}()
		infra.Redis = redisClient
		infra.Idempotency = redisClient
	} else {
		logg.Warn(ctx, "redis disabled; request idempotency and flex locks are off")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	syncMetrics := metrics.NewSyncMetrics(registry)
	infra.Metrics = registry

	calc := tax.NewCalculator(cfg.Tax.IVAPercent)
	conn := dbClient.DB()

	flexParams := flexcost.ServiceParams{
		Repo:     flexcost.NewRepository(conn),
		Tax:      calc,
		LockTTL:  cfg.Webhooks.FlexLockTTL,
		Location: loc,
		Metrics:  syncMetrics,
		Logger:   logg,
	}
	if redisClient != nil {
		flexParams.Locks = redisClient
	}
	flexService, err := flexcost.NewService(flexParams)
	requireResource(ctx, logg, "flex cost service", err)

	ledger, err := inventory.NewLedger(inventory.NewRepository(conn))
	requireResource(ctx, logg, "inventory ledger", err)
	audits := inventory.NewAuditRepository(conn)

	resolver, err := mappings.NewResolver(mappings.NewRepository(conn))
	requireResource(ctx, logg, "mapping resolver", err)

	pendingService, err := pendingsales.NewService(pendingsales.ServiceParams{
		Repo:       pendingsales.NewRepository(conn),
		Ledger:     ledger,
		Mappings:   resolver,
		Audits:     audits,
		Activation: activation,
		Logger:     logg,
	})
	requireResource(ctx, logg, "pending sales service", err)

	ordersRepo := orders.NewRepository(conn)
	salesService, err := reports.NewService(reports.ServiceParams{
		Orders:       ordersRepo,
		Location:     loc,
		MaxRangeDays: cfg.Sync.MaxRangeDays,
		Logger:       logg,
	})
	requireResource(ctx, logg, "sales report service", err)

	deductionParams := deductions.ServiceParams{
		Ledger:       ledger,
		Audits:       audits,
		Resolver:     resolver,
		PendingSales: pendingService,
		Orders:       ordersRepo,
		Activation:   activation,
		Metrics:      syncMetrics,
		Logger:       logg,
	}
	if redisClient != nil {
		deductionParams.Guard = deductions.NewIdempotencyGuard(redisClient, cfg.Webhooks.IdempotencyTTL, logg)
	}

	services := routes.Services{
		Sales:        salesService,
		FlexCosts:    flexService,
		PendingSales: pendingService,
		Mappings:     resolver,
		Stock:        ledger,
	}

	meli, err := newMercadoLibreClient(cfg.MercadoLibre, conn)
	if err != nil {
		logg.Warn(logg.WithField(ctx, "reason", err.Error()), "mercadolibre client disabled; order sync unavailable")
	} else {
		deductionParams.MercadoLibre = meli
		syncService, err := orders.NewService(orders.ServiceParams{
			Client:           meli,
			Repo:             ordersRepo,
			Listings:         resolver,
			Flex:             flexService,
			Tax:              calc,
			Location:         loc,
			PageLimit:        cfg.Sync.PageLimit,
			OrderConcurrency: cfg.Sync.OrderConcurrency,
			DateConcurrency:  cfg.Sync.DateConcurrency,
			BatchPause:       cfg.Sync.BatchPause,
			MaxRangeDays:     cfg.Sync.MaxRangeDays,
			Metrics:          syncMetrics,
			Logger:           logg,
		})
		requireResource(ctx, logg, "order sync service", err)
		services.Sync = syncService
	}

	if cfg.Falabella.Enabled() {
		fala, err := falabella.NewClient(cfg.Falabella.UserID, cfg.Falabella.APIKey,
			falabella.WithBaseURL(cfg.Falabella.BaseURL),
			falabella.WithHTTPClient(&http.Client{Timeout: cfg.Falabella.Timeout}),
		)
		requireResource(ctx, logg, "falabella client", err)
		deductionParams.Falabella = fala
	}

	deductionService, err := deductions.NewService(deductionParams)
	requireResource(ctx, logg, "deduction service", err)
	services.Deductions = deductionService

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}

	server := &http.Server{
		Addr:              ":" + port,
		Handler:           routes.NewRouter(cfg, logg, infra, services),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logg.Info(logg.WithField(ctx, "addr", server.Addr), "starting api server")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "server failed", err)
		os.Exit(1)
	}
}

func newMercadoLibreClient(cfg config.MercadoLibreConfig, conn *gorm.DB) (*mercadolibre.Client, error) {
	httpClient := &http.Client{Timeout: cfg.Timeout}
	tokens, err := mercadolibre.NewOAuthTokenProvider(mercadolibre.NewGormTokenStore(conn), mercadolibre.OAuthConfig{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL,
		HTTPClient:   httpClient,
	})
	if err != nil {
		return nil, err
	}
	return mercadolibre.NewClient(tokens,
		mercadolibre.WithBaseURL(cfg.BaseURL),
		mercadolibre.WithHTTPClient(httpClient),
	)
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err != nil {
		logg.Error(logg.WithField(ctx, "resource", resource), "failed to initialize resource", err)
		os.Exit(1)
	}
}
