package insights

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(client, time.Minute), mr
}

func TestFetchJSONPopulatesAndReusesCache(t *testing.T) {
	cache, _ := newTestCache(t)
	calls := 0
	loader := func(context.Context) (interface{}, error) {
		calls++
		return DashboardStats{Customers: 5, Books: 9, OpenInvoices: 2}, nil
	}

	var first DashboardStats
	require.NoError(t, cache.FetchJSON(context.Background(), keyDashboard, &first, loader))
	require.Equal(t, int64(5), first.Customers)
	require.Equal(t, 1, calls)

	// Warm hit: the loader must not run again.
	var second DashboardStats
	require.NoError(t, cache.FetchJSON(context.Background(), keyDashboard, &second, loader))
	require.Equal(t, first, second)
	require.Equal(t, 1, calls)
}

func TestFetchJSONLoaderErrorIsNotCached(t *testing.T) {
	cache, _ := newTestCache(t)
	boom := errors.New("query failed")
	calls := 0

	var stats DashboardStats
	err := cache.FetchJSON(context.Background(), keyDashboard, &stats, func(context.Context) (interface{}, error) {
		calls++
		return nil, boom
	})
	require.ErrorIs(t, err, boom)

	require.NoError(t, cache.FetchJSON(context.Background(), keyDashboard, &stats, func(context.Context) (interface{}, error) {
		calls++
		return DashboardStats{Books: 3}, nil
	}))
	require.Equal(t, 2, calls)
	require.Equal(t, int64(3), stats.Books)
}

func TestFetchJSONExpiryTriggersReload(t *testing.T) {
	cache, mr := newTestCache(t)
	calls := 0
	loader := func(context.Context) (interface{}, error) {
		calls++
		return DashboardStats{OpenInvoices: int64(calls)}, nil
	}

	var stats DashboardStats
	require.NoError(t, cache.FetchJSON(context.Background(), keyDashboard, &stats, loader))
	mr.FastForward(2 * time.Minute)
	require.NoError(t, cache.FetchJSON(context.Background(), keyDashboard, &stats, loader))
	require.Equal(t, 2, calls)
	require.Equal(t, int64(2), stats.OpenInvoices)
}

func TestFetchJSONWithoutRedisCallsLoaderDirectly(t *testing.T) {
	cache := NewCache(nil, 0)

	var stats DashboardStats
	require.NoError(t, cache.FetchJSON(context.Background(), keyDashboard, &stats, func(context.Context) (interface{}, error) {
		return DashboardStats{Customers: 1}, nil
	}))
	require.Equal(t, int64(1), stats.Customers)
}

func TestWarmRecomputesCachedViews(t *testing.T) {
	cache, _ := newTestCache(t)
	repo := &fakeRepo{stats: DashboardStats{Customers: 1}}
	svc := NewService(repo, cache, nil)
	svc.now = func() time.Time { return day(20) }

	var stale DashboardStats
	require.NoError(t, cache.FetchJSON(context.Background(), keyDashboard, &stale, func(context.Context) (interface{}, error) {
		return DashboardStats{Customers: 99}, nil
	}))

	require.NoError(t, svc.Warm(context.Background()))

	stats, err := svc.Dashboard(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(1), stats.Customers)
}
