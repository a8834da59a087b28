package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"

	"github.com/inkroute/inkroute/internal/app"
	"github.com/inkroute/inkroute/internal/insights"
	"github.com/inkroute/inkroute/internal/platform/cache"
	"github.com/inkroute/inkroute/internal/platform/db"
	"github.com/inkroute/inkroute/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
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
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	insightsService := insights.NewService(
		insights.NewRepository(pool),
		insights.NewCache(redisClient, cfg.InsightsCacheTTL),
		logger,
	)
	warmupJob := jobs.NewInsightsWarmupJob(insightsService, logger)

	warmupTask, err := jobs.NewInsightsWarmupTask("cron")
	if err != nil {
		logger.Error("build warmup task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskInsightsWarmup, Handler: warmupJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "*/10 * * * *", Task: warmupTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	// Warm the caches once at startup so the first dashboard hit after a
	// deploy does not wait for the cron window.
	enqueuer := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if _, err := enqueuer.EnqueueInsightsWarmup(ctx, "startup"); err != nil {
		logger.Warn("enqueue startup warmup", slog.Any("error", err))
	}
	if err := enqueuer.Close(); err != nil {
		logger.Warn("close enqueue client", slog.Any("error", err))
	}

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
