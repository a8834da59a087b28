package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/inkroute/inkroute/internal/insights"
)

// InsightsWarmupJob pre-populates the insight caches so the first dashboard
// hit after a quiet period does not pay for the aggregate queries.
type InsightsWarmupJob struct {
	Insights *insights.Service
	Logger   *slog.Logger
}

// NewInsightsWarmupJob wires dependencies for the warmup handler.
func NewInsightsWarmupJob(insightsSvc *insights.Service, logger *slog.Logger) *InsightsWarmupJob {
	return &InsightsWarmupJob{Insights: insightsSvc, Logger: logger}
}

// Handle processes insight warmup tasks.
func (j *InsightsWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Insights == nil {
		return errors.New("insights warmup: handler not configured")
	}
	var payload InsightsWarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	logger := j.logger().With(slog.String("reason", payload.Reason))
	start := time.Now()

	warmCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()
	if err := j.Insights.Warm(warmCtx); err != nil {
		logger.Error("insights warmup", slog.Any("error", err))
		return err
	}

	logger.Info("insights warmup completed", slog.Duration("duration", time.Since(start)))
	return nil
}

func (j *InsightsWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskInsightsWarmup))
	}
	return slog.Default().With(slog.String("job", TaskInsightsWarmup))
}
