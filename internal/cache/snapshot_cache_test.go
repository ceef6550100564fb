package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikhilsi/trading-recommendations-app/internal/models"
)

func newTestCache(t *testing.T, ttl time.Duration) (*RedisSnapshotCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return NewRedisSnapshotCache(client, ttl, logger), mr
}

func testUniverse() map[string]models.Snapshot {
	return map[string]models.Snapshot{
		"AAPL": {
			Symbol:        "AAPL",
			Price:         decimal.NewFromFloat(189.50),
			ChangePercent: decimal.NewFromFloat(2.5),
			Volume:        52_000_000,
			Provider:      "polygon",
		},
	}
}

func TestSnapshotCacheRoundTrip(t *testing.T) {
	cache, _ := newTestCache(t, 5*time.Second)
	ctx := context.Background()

	_, ok := cache.GetUniverse(ctx)
	assert.False(t, ok)

	cache.SetUniverse(ctx, testUniverse())

	got, ok := cache.GetUniverse(ctx)
	require.True(t, ok)
	require.Contains(t, got, "AAPL")
	assert.Equal(t, "AAPL", got["AAPL"].Symbol)
	assert.Equal(t, int64(52_000_000), got["AAPL"].Volume)
	assert.True(t, got["AAPL"].Price.Equal(decimal.NewFromFloat(189.50)))

	stats := cache.GetStats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, int64(1), stats.Sets)
}

func TestSnapshotCacheExpires(t *testing.T) {
	cache, mr := newTestCache(t, 5*time.Second)
	ctx := context.Background()

	cache.SetUniverse(ctx, testUniverse())
	mr.FastForward(6 * time.Second)

	_, ok := cache.GetUniverse(ctx)
	assert.False(t, ok)
}

func TestSnapshotCacheCorruptEntryIsAMiss(t *testing.T) {
	cache, mr := newTestCache(t, 5*time.Second)

	require.NoError(t, mr.Set(universeKey, "not-json"))

	_, ok := cache.GetUniverse(context.Background())
	assert.False(t, ok)
}

func TestSnapshotCacheClear(t *testing.T) {
	cache, _ := newTestCache(t, 5*time.Second)
	ctx := context.Background()

	cache.SetUniverse(ctx, testUniverse())
	require.NoError(t, cache.Clear(ctx))

	_, ok := cache.GetUniverse(ctx)
	assert.False(t, ok)
}
