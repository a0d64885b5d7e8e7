package container

import (
	"context"
	"testing"
	"time"

	"rally-api/internal/config"
	"rally-api/internal/domain"
	"rally-api/pkg/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func devConfig() *config.Config {
	return &config.Config{
		Environment: "development",
		JWTSecret:   "test-secret",
		Port:        "8080",
	}
}

func TestNew_MemoryStore(t *testing.T) {
	cfg := devConfig()
	testLogger := logger.NewNop()

	c, err := New(context.Background(), cfg, testLogger)
	require.NoError(t, err)
	require.NotNil(t, c)

	assert.Equal(t, cfg, c.GetConfig())
	assert.Equal(t, testLogger, c.GetLogger())
	assert.Nil(t, c.DB)
	require.NotNil(t, c.Store)
	assert.Nil(t, c.Metrics)
	assert.False(t, c.HasRedis())
	assert.False(t, c.Cache.Enabled())

	require.NotNil(t, c.Services)
	assert.NotNil(t, c.GetAuthService())
	assert.NotNil(t, c.Services.Captures)
	assert.NotNil(t, c.Services.Rallies)
	assert.NotNil(t, c.Services.Crowns)
	assert.NotNil(t, c.Services.Reports)
	assert.NotNil(t, c.Scheduler)

	event, err := c.Repositories.Events.GetByID(context.Background(), "demo-final")
	require.NoError(t, err)
	require.NotNil(t, event)
	assert.Equal(t, domain.EventStatusLive, event.Status)
}

func TestNew_ServicesShareStore(t *testing.T) {
	c, err := New(context.Background(), devConfig(), logger.NewNop())
	require.NoError(t, err)
	ctx := context.Background()

	res, err := c.Services.Captures.PostCapture(ctx, domain.PostCaptureRequest{
		EventID:  "demo-final",
		UserID:   "alice",
		ImageRef: "uploads/alice.jpg",
	})
	require.NoError(t, err)

	_, err = c.Services.Rallies.CastRally(ctx, res.Capture.ID, "bob")
	require.NoError(t, err)

	feed, err := c.Services.Rallies.GetFeed(ctx, "demo-final", "bob", domain.FeedSortTop, 0)
	require.NoError(t, err)
	require.Len(t, feed.Captures, 1)
	assert.True(t, feed.Captures[0].HasRallied)
}

func TestNew_WithRedisAndMetrics(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := devConfig()
	cfg.RedisURL = "redis://" + mr.Addr()
	cfg.MetricsEnabled = true

	c, err := New(context.Background(), cfg, logger.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.RedisClient.Close() })

	assert.True(t, c.HasRedis())
	assert.True(t, c.Cache.Enabled())
	assert.NotNil(t, c.Metrics)
	assert.Equal(t, "staging", c.GetRedisClient().KeyBuilder.GetPrefix())

	components, err := c.HealthCheck(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "memory", components["database"])
	assert.Equal(t, "healthy", components["redis"])

	mr.SetError("LOADING")
	components, err = c.HealthCheck(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "degraded", components["redis"])
}

func TestNew_UnreachableRedisIsOptional(t *testing.T) {
	cfg := devConfig()
	cfg.RedisURL = "invalid://redis-url"

	c, err := New(context.Background(), cfg, logger.NewNop())
	require.NoError(t, err)
	assert.False(t, c.HasRedis())

	components, err := c.HealthCheck(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "disabled", components["redis"])
}

func TestNew_DatabaseUnreachable(t *testing.T) {
	cfg := &config.Config{
		Environment: "production",
		DatabaseURL: "postgres://nobody@127.0.0.1:1/none?connect_timeout=1",
		JWTSecret:   "secret",
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c, err := New(ctx, cfg, logger.NewNop())
	assert.Error(t, err)
	assert.Nil(t, c)
}
