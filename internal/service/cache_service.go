package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"rally-api/pkg/metrics"
	"rally-api/pkg/redis"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Report names used in cache metrics
const (
	reportLeaderboard = "leaderboard"
	reportAttribution = "attribution"
)

// CacheService wraps Redis for report caching and the rally in-flight lock.
// A nil Redis client disables both and every call falls through.
type CacheService struct {
	redis   *redis.Client
	logger  *zap.Logger
	metrics *metrics.Manager
	group   singleflight.Group
}

// NewCacheService creates a new cache service
func NewCacheService(redisClient *redis.Client, logger *zap.Logger, m *metrics.Manager) *CacheService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheService{
		redis:   redisClient,
		logger:  logger,
		metrics: m,
	}
}

// Enabled reports whether a Redis client is configured
func (c *CacheService) Enabled() bool {
	return c != nil && c.redis != nil
}

// TryRallyLock claims the (capture, voter) pair while one rally attempt is
// in flight. It returns false only when another attempt holds the pair.
// Redis errors fail open: the rallies unique constraint still decides.
func (c *CacheService) TryRallyLock(ctx context.Context, captureID, voterID string) bool {
	if !c.Enabled() {
		return true
	}

	key := c.redis.KeyBuilder.KeyRallyLock(captureID, voterID)
	ok, err := c.redis.SetNX(ctx, key, "1", redis.TTLRallyLock)
	if err != nil {
		c.logger.Warn("Rally lock unavailable, relying on database constraint",
			zap.String("capture_id", captureID),
			zap.Error(err))
		return true
	}
	return ok
}

// ReleaseRallyLock frees the pair once an attempt has finished
func (c *CacheService) ReleaseRallyLock(ctx context.Context, captureID, voterID string) {
	if !c.Enabled() {
		return
	}

	key := c.redis.KeyBuilder.KeyRallyLock(captureID, voterID)
	if err := c.redis.Delete(ctx, key); err != nil {
		c.logger.Warn("Failed to release rally lock",
			zap.String("capture_id", captureID),
			zap.Error(err))
	}
}

// InvalidateLeaderboard drops the cached season leaderboard
func (c *CacheService) InvalidateLeaderboard(ctx context.Context) {
	if !c.Enabled() {
		return
	}

	if err := c.redis.Delete(ctx, c.redis.KeyBuilder.KeySeasonLeaderboard()); err != nil {
		c.logger.Error("Failed to invalidate leaderboard cache", zap.Error(err))
		return
	}
	c.logger.Debug("Leaderboard cache invalidated")
}

// HealthCheck performs a health check on the cache system
func (c *CacheService) HealthCheck(ctx context.Context) error {
	if !c.Enabled() {
		return nil
	}

	start := time.Now()
	err := c.redis.Health(ctx)
	duration := time.Since(start)

	if err != nil {
		c.logger.Error("Cache health check failed",
			zap.Duration("duration", duration),
			zap.Error(err))
		return err
	}

	c.logger.Debug("Cache health check passed", zap.Duration("duration", duration))
	return nil
}

// loadCached implements cache-aside for a report. Concurrent misses on the
// same key share one load. Cache errors and corrupt entries fall through to
// load.
func loadCached[T any](ctx context.Context, c *CacheService, report, key string, ttl time.Duration, load func(context.Context) (*T, error)) (*T, error) {
	if c.Enabled() {
		cached, err := c.redis.Get(ctx, key)
		switch {
		case err == nil && cached != "":
			var value T
			if unmarshalErr := json.Unmarshal([]byte(cached), &value); unmarshalErr == nil {
				c.metrics.RecordReportCache(report, true)
				return &value, nil
			} else {
				c.logger.Warn("Report cache corrupted, recomputing",
					zap.String("report", report),
					zap.Error(unmarshalErr))
			}
		case err != nil && !errors.Is(err, redis.Nil):
			c.logger.Warn("Report cache error, recomputing",
				zap.String("report", report),
				zap.Error(err))
		}
		c.metrics.RecordReportCache(report, false)
	}

	// A canceled caller must not fail the other callers sharing this load
	shared := context.WithoutCancel(ctx)
	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		value, err := load(shared)
		if err != nil {
			return nil, err
		}
		if c.Enabled() {
			go c.cacheAsync(report, key, value, ttl)
		}
		return value, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to compute %s: %w", report, err)
	}
	return v.(*T), nil
}

// cacheAsync stores a computed report without blocking the request
func (c *CacheService) cacheAsync(report, key string, value interface{}, ttl time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	data, err := json.Marshal(value)
	if err != nil {
		c.logger.Error("Failed to marshal report for caching",
			zap.String("report", report),
			zap.Error(err))
		return
	}

	if err := c.redis.Set(ctx, key, string(data), ttl); err != nil {
		c.logger.Error("Failed to cache report",
			zap.String("report", report),
			zap.Error(err))
		return
	}
	c.logger.Debug("Report cached", zap.String("report", report), zap.Duration("ttl", ttl))
}
