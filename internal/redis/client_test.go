package redis

import (
	"context"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*Client, *miniredis.Miniredis) {
	// Start miniredis server for testing
	mr, err := miniredis.Run()
	require.NoError(t, err)

	config := &Config{
		Address:  mr.Addr(),
		Password: "",
		DB:       0,
		PoolSize: 10,
	}

	client, err := NewClient(config)
	require.NoError(t, err)

	return client, mr
}

func TestConfig_Defaults(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	config := &Config{
		Address:  mr.Addr(),
		PoolSize: 0,
	}

	client, err := NewClient(config)
	require.NoError(t, err)
	defer client.Close()

	assert.Equal(t, 10, config.PoolSize)
}

func TestNewClient(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	t.Run("successful connection", func(t *testing.T) {
		client, err := NewClient(&Config{Address: mr.Addr(), PoolSize: 5})
		assert.NoError(t, err)
		assert.NotNil(t, client)

		err = client.Close()
		assert.NoError(t, err)
	})

	t.Run("nil config", func(t *testing.T) {
		client, err := NewClient(nil)
		assert.Error(t, err)
		assert.Nil(t, client)
		assert.Contains(t, err.Error(), "redis config is required")
	})

	t.Run("connection failure", func(t *testing.T) {
		client, err := NewClient(&Config{Address: "invalid:99999", PoolSize: 5})
		assert.Error(t, err)
		assert.Nil(t, client)
		assert.Contains(t, err.Error(), "failed to connect to Redis")
	})
}

func TestClient_Health(t *testing.T) {
	client, mr := setupTestRedis(t)
	defer mr.Close()
	defer client.Close()

	t.Run("healthy connection", func(t *testing.T) {
		assert.NoError(t, client.Health(context.Background()))
	})

	t.Run("caller context is honoured", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.ErrorIs(t, client.Health(ctx), context.Canceled)
	})

	t.Run("unhealthy connection", func(t *testing.T) {
		mr.Close()
		assert.Error(t, client.Health(context.Background()))
	})
}

func TestClient_KeyValue(t *testing.T) {
	client, mr := setupTestRedis(t)
	defer mr.Close()
	defer client.Close()

	ctx := context.Background()

	t.Run("set and get", func(t *testing.T) {
		err := client.Set(ctx, "test:bytes", []byte("hello bytes"), time.Hour)
		require.NoError(t, err)

		result, err := client.Get(ctx, "test:bytes")
		assert.NoError(t, err)
		assert.Equal(t, "hello bytes", string(result))
	})

	t.Run("get non-existent key", func(t *testing.T) {
		_, err := client.Get(ctx, "non:existent")
		assert.Error(t, err)
		assert.True(t, IsNil(err))
	})

	t.Run("delete key", func(t *testing.T) {
		require.NoError(t, client.Set(ctx, "test:delete", []byte("value"), 0))

		require.NoError(t, client.Delete(ctx, "test:delete"))
		assert.False(t, mr.Exists("test:delete"))
	})

	t.Run("delete missing key is not an error", func(t *testing.T) {
		assert.NoError(t, client.Delete(ctx, "never:set"))
	})

	t.Run("set with expiration", func(t *testing.T) {
		require.NoError(t, client.Set(ctx, "test:expiry", []byte("expires soon"), time.Second))

		result, err := client.Get(ctx, "test:expiry")
		require.NoError(t, err)
		assert.Equal(t, "expires soon", string(result))

		mr.FastForward(2 * time.Second)

		_, err = client.Get(ctx, "test:expiry")
		assert.True(t, IsNil(err))
	})
}

func TestClient_ScanPrefix(t *testing.T) {
	client, mr := setupTestRedis(t)
	defer mr.Close()
	defer client.Close()

	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, mr.Set(fmt.Sprintf("webhooks:abc/%d", i), "x"))
	}
	require.NoError(t, mr.Set("webhooks:abd/0", "x"))
	require.NoError(t, mr.Set("other:abc/0", "x"))

	t.Run("returns only matching keys", func(t *testing.T) {
		keys, err := client.ScanPrefix(ctx, "webhooks:abc/", 10)
		require.NoError(t, err)
		sort.Strings(keys)
		assert.Equal(t, []string{"webhooks:abc/0", "webhooks:abc/1", "webhooks:abc/2"}, keys)
	})

	t.Run("stops at limit", func(t *testing.T) {
		keys, err := client.ScanPrefix(ctx, "webhooks:abc/", 2)
		require.NoError(t, err)
		assert.Len(t, keys, 2)
	})

	t.Run("zero limit", func(t *testing.T) {
		keys, err := client.ScanPrefix(ctx, "webhooks:", 0)
		require.NoError(t, err)
		assert.Empty(t, keys)
	})

	t.Run("glob characters are literal", func(t *testing.T) {
		require.NoError(t, mr.Set("webhooks:a*c/0", "x"))

		keys, err := client.ScanPrefix(ctx, "webhooks:a*", 10)
		require.NoError(t, err)
		assert.Equal(t, []string{"webhooks:a*c/0"}, keys)
	})
}

func TestEscapeGlob(t *testing.T) {
	assert.Equal(t, `a\*b\?c\[d\]\\`, escapeGlob(`a*b?c[d]\`))
	assert.Equal(t, "plain/prefix", escapeGlob("plain/prefix"))
}
