package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/zoobzio/clockz"

	"github.com/mozpaylabs/mozpay-backend/api/routes"
	"github.com/mozpaylabs/mozpay-backend/internal/catalog"
	checkoutsvc "github.com/mozpaylabs/mozpay-backend/internal/checkout"
	"github.com/mozpaylabs/mozpay-backend/internal/checkout/processor"
	"github.com/mozpaylabs/mozpay-backend/internal/dispatch"
	"github.com/mozpaylabs/mozpay-backend/internal/ledger"
	"github.com/mozpaylabs/mozpay-backend/internal/verification"
	"github.com/mozpaylabs/mozpay-backend/pkg/config"
	"github.com/mozpaylabs/mozpay-backend/pkg/db"
	"github.com/mozpaylabs/mozpay-backend/pkg/logger"
	"github.com/mozpaylabs/mozpay-backend/pkg/metrics"
	"github.com/mozpaylabs/mozpay-backend/pkg/migrate"
	"github.com/mozpaylabs/mozpay-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "mozpay-api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "mozpay-api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	registry := prometheus.NewRegistry()
	flowMetrics := metrics.New(registry)
	clock := clockz.RealClock

	cat := catalog.New()

	ledgerService, err := ledger.NewService(ledger.ServiceParams{
		Repository: ledger.NewRepository(dbClient.DB()),
		Logger:     logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create ledger service", err)
		os.Exit(1)
	}

	flows := checkoutsvc.NewManager(cfg.Checkout.FlowTTL, clock)
	gateway := processor.NewSimulated(cfg.Checkout.ProcessingDelay, clock)
	checkoutService, err := checkoutsvc.NewService(checkoutsvc.ServiceParams{
		Catalog:   cat,
		Flows:     flows,
		Processor: gateway,
		Recorder:  ledgerService,
		Logger:    logg,
		Metrics:   flowMetrics,
		Clock:     clock,
		Config:    cfg.Checkout,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	dispatcher, err := newDispatcher(cfg, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create code dispatcher", err)
		os.Exit(1)
	}

	verificationService, err := verification.NewService(verification.ServiceParams{
		Store:      verification.NewRedisStore(redisClient),
		Dispatcher: dispatcher,
		Logger:     logg,
		Metrics:    flowMetrics,
		Clock:      clock,
		Config:     cfg.Verification,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create verification service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":           cfg.App.Env,
		"addr":          addr,
		"dispatch_mode": cfg.Dispatch.Mode,
	})
	logg.Info(ctx, "starting mozpay api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Params{
			Config:       cfg,
			Logger:       logg,
			DB:           dbClient,
			Redis:        redisClient,
			Catalog:      cat,
			Checkout:     checkoutService,
			Verification: verificationService,
			Ledger:       ledgerService,
			Metrics:      registry,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func newDispatcher(cfg *config.Config, logg *logger.Logger) (verification.Dispatcher, error) {
	if cfg.Dispatch.Mode == config.DispatchModeWhatsApp {
		return dispatch.NewWhatsApp(cfg.WhatsApp, nil, logg)
	}
	return dispatch.NewSimulated(logg), nil
}
