package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/inkroute/inkroute/internal/app"
	"github.com/inkroute/inkroute/internal/billing"
	"github.com/inkroute/inkroute/internal/customers"
	"github.com/inkroute/inkroute/internal/insights"
	"github.com/inkroute/inkroute/internal/inventory"
	"github.com/inkroute/inkroute/internal/masterdata"
	"github.com/inkroute/inkroute/internal/observability"
	"github.com/inkroute/inkroute/internal/platform/cache"
	"github.com/inkroute/inkroute/internal/platform/db"
	"github.com/inkroute/inkroute/internal/shared"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping server startup")
		return
	}

	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		// Insight caches degrade to direct queries without redis.
		logger.Warn("redis unavailable", slog.Any("error", err))
		redisClient = nil
	} else {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}

	audit := shared.NewAuditLogger(pool)
	ledger := inventory.NewLedger(logger)
	metrics := observability.NewMetrics()

	masterdataService := masterdata.NewService(masterdata.NewRepository(pool))
	customersService := customers.NewService(customers.NewRepository(pool))
	inventoryService := inventory.NewService(inventory.NewRepository(pool))
	billingService := billing.NewService(billing.NewRepository(pool), ledger, audit, logger)
	insightsService := insights.NewService(
		insights.NewRepository(pool),
		insights.NewCache(redisClient, cfg.InsightsCacheTTL),
		logger,
	)

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		Metrics:           metrics,
		MasterDataHandler: masterdata.NewHandler(logger, masterdataService),
		CustomersHandler:  customers.NewHandler(logger, customersService),
		InventoryHandler:  inventory.NewHandler(logger, inventoryService),
		BillingHandler:    billing.NewHandler(logger, billingService),
		InsightsHandler:   insights.NewHandler(logger, insightsService),
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", slog.String("addr", cfg.AppAddr), slog.String("env", cfg.AppEnv))
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("server stopped")
}
