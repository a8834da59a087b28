package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskInsightsWarmup is the task type for pre-populating insight caches.
	TaskInsightsWarmup = "insights:warmup"
)

// InsightsWarmupPayload parameterizes a warmup run.
type InsightsWarmupPayload struct {
	Reason string `json:"reason"`
}

// NewInsightsWarmupTask constructs an Asynq task.
func NewInsightsWarmupTask(reason string) (*asynq.Task, error) {
	data, err := json.Marshal(InsightsWarmupPayload{Reason: reason})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskInsightsWarmup, data), nil
}
