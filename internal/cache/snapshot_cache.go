package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/nikhilsi/trading-recommendations-app/internal/models"
)

const universeKey = "snapshot_cache:universe"

// snapshotCacheEntry is the serialized cache payload with metadata.
type snapshotCacheEntry struct {
	Snapshots map[string]models.Snapshot `json:"snapshots"`
	CachedAt  time.Time                  `json:"cached_at"`
}

// SnapshotCacheStats tracks cache performance counters.
type SnapshotCacheStats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
	Sets   int64 `json:"sets"`
	mu     sync.RWMutex
}

// RedisSnapshotCache shares one full-market snapshot across concurrent
// requests for a short window so a burst of scans hits the providers once.
// All failures degrade to a cache miss.
type RedisSnapshotCache struct {
	redis  *redis.Client
	ttl    time.Duration
	stats  *SnapshotCacheStats
	logger *logrus.Logger
}

// NewRedisSnapshotCache creates a Redis-backed universe snapshot cache.
func NewRedisSnapshotCache(redisClient *redis.Client, ttl time.Duration, logger *logrus.Logger) *RedisSnapshotCache {
	return &RedisSnapshotCache{
		redis:  redisClient,
		ttl:    ttl,
		stats:  &SnapshotCacheStats{},
		logger: logger,
	}
}

// GetUniverse returns the cached universe snapshot, or false on any miss or
// Redis error.
func (c *RedisSnapshotCache) GetUniverse(ctx context.Context) (map[string]models.Snapshot, bool) {
	data, err := c.redis.Get(ctx, universeKey).Result()
	if err == redis.Nil {
		c.recordMiss()
		return nil, false
	}
	if err != nil {
		c.logger.WithError(err).Warn("Redis error reading universe snapshot")
		c.recordMiss()
		return nil, false
	}

	var entry snapshotCacheEntry
	if err := json.Unmarshal([]byte(data), &entry); err != nil {
		c.logger.WithError(err).Warn("Failed to deserialize cached universe snapshot")
		c.recordMiss()
		return nil, false
	}

	c.stats.mu.Lock()
	c.stats.Hits++
	c.stats.mu.Unlock()
	return entry.Snapshots, true
}

// SetUniverse stores the universe snapshot under the configured TTL. Write
// failures are logged and otherwise ignored.
func (c *RedisSnapshotCache) SetUniverse(ctx context.Context, snapshots map[string]models.Snapshot) {
	entry := snapshotCacheEntry{
		Snapshots: snapshots,
		CachedAt:  time.Now().UTC(),
	}

	data, err := json.Marshal(entry)
	if err != nil {
		c.logger.WithError(err).Warn("Failed to serialize universe snapshot")
		return
	}

	if err := c.redis.Set(ctx, universeKey, data, c.ttl).Err(); err != nil {
		c.logger.WithError(err).Warn("Redis error caching universe snapshot")
		return
	}

	c.stats.mu.Lock()
	c.stats.Sets++
	c.stats.mu.Unlock()

	c.logger.WithFields(logrus.Fields{
		"symbols": len(snapshots),
		"ttl":     c.ttl,
	}).Debug("Cached universe snapshot")
}

// GetStats returns a copy of the current cache counters.
func (c *RedisSnapshotCache) GetStats() SnapshotCacheStats {
	c.stats.mu.RLock()
	defer c.stats.mu.RUnlock()
	return SnapshotCacheStats{
		Hits:   c.stats.Hits,
		Misses: c.stats.Misses,
		Sets:   c.stats.Sets,
	}
}

// Clear drops the cached universe snapshot.
func (c *RedisSnapshotCache) Clear(ctx context.Context) error {
	return c.redis.Del(ctx, universeKey).Err()
}

func (c *RedisSnapshotCache) recordMiss() {
	c.stats.mu.Lock()
	c.stats.Misses++
	c.stats.mu.Unlock()
}
