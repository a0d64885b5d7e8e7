package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	client, err := NewClient("redis://"+mr.Addr(), "test", zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return mr, client
}

func TestNewClient(t *testing.T) {
	tests := []struct {
		name string
		url  string
	}{
		{name: "Invalid URL", url: "invalid://url"},
		{name: "Empty URL", url: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewClient(tt.url, "test", nil)
			assert.Error(t, err)
			assert.Nil(t, client)
		})
	}

	t.Run("Unreachable server", func(t *testing.T) {
		mr := miniredis.RunT(t)
		addr := mr.Addr()
		mr.Close()

		client, err := NewClient("redis://"+addr, "test", nil)
		assert.Error(t, err)
		assert.Nil(t, client)
	})
}

func TestClient_GetSet(t *testing.T) {
	mr, client := setupTestRedis(t)
	ctx := context.Background()

	_, err := client.Get(ctx, "missing")
	assert.ErrorIs(t, err, Nil)

	require.NoError(t, client.Set(ctx, "k", "v", time.Minute))
	val, err := client.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", val)

	mr.FastForward(2 * time.Minute)
	_, err = client.Get(ctx, "k")
	assert.ErrorIs(t, err, Nil)
}

func TestClient_SetNX(t *testing.T) {
	mr, client := setupTestRedis(t)
	ctx := context.Background()
	key := client.KeyBuilder.KeyRallyLock("c1", "v1")

	ok, err := client.SetNX(ctx, key, "1", TTLRallyLock)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = client.SetNX(ctx, key, "1", TTLRallyLock)
	require.NoError(t, err)
	assert.False(t, ok)

	mr.FastForward(TTLRallyLock + time.Second)
	ok, err = client.SetNX(ctx, key, "1", TTLRallyLock)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestClient_Delete(t *testing.T) {
	mr, client := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, mr.Set("a", "1"))
	require.NoError(t, mr.Set("b", "2"))

	require.NoError(t, client.Delete(ctx, "a", "b", "missing"))
	assert.False(t, mr.Exists("a"))
	assert.False(t, mr.Exists("b"))
}

func TestClient_Health(t *testing.T) {
	mr, client := setupTestRedis(t)
	ctx := context.Background()

	assert.NoError(t, client.Health(ctx))

	mr.Close()
	assert.Error(t, client.Health(ctx))
}
