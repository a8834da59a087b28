package jobs

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"
)

func TestClientEnqueuesWarmupTask(t *testing.T) {
	srv := miniredis.RunT(t)

	client := NewClient(asynq.RedisClientOpt{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	info, err := client.EnqueueInsightsWarmup(context.Background(), "startup")
	require.NoError(t, err)
	require.Equal(t, TaskInsightsWarmup, info.Type)
	require.Equal(t, QueueDefault, info.Queue)

	var payload InsightsWarmupPayload
	require.NoError(t, json.Unmarshal(info.Payload, &payload))
	require.Equal(t, "startup", payload.Reason)
}
