package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnect(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := Connect(context.Background(), "redis://"+mr.Addr()+"/0")
	require.NoError(t, err)
	require.NotNil(t, client)
	defer Close(client)

	require.NoError(t, client.Set(context.Background(), "k", "v", 0).Err())
	got, err := mr.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)

	opts := client.Options()
	assert.Equal(t, 3, opts.MaxRetries)
	assert.Equal(t, 10, opts.PoolSize)
	assert.Equal(t, 3*time.Second, opts.ReadTimeout)
}

func TestConnectDisabled(t *testing.T) {
	client, err := Connect(context.Background(), "")
	assert.NoError(t, err)
	assert.Nil(t, client)
	assert.NoError(t, Close(nil))
}

func TestConnectErrors(t *testing.T) {
	_, err := Connect(context.Background(), "not a url")
	assert.ErrorContains(t, err, "invalid REDIS_URL")

	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err = Connect(context.Background(), "redis://"+addr)
	assert.ErrorContains(t, err, "failed to connect to Redis")
}

func TestApplyPoolDefaultsKeepsURLSettings(t *testing.T) {
	opts, err := redis.ParseURL("redis://localhost:6379/2?pool_size=25&max_retries=1")
	require.NoError(t, err)

	applyPoolDefaults(opts)
	assert.Equal(t, 25, opts.PoolSize)
	assert.Equal(t, 1, opts.MaxRetries)
	assert.Equal(t, 2, opts.DB)
	assert.Equal(t, 2, opts.MinIdleConns)
}
