package datastore

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soltixdb/soltix-transform/internal/config"
	"github.com/soltixdb/soltix-transform/internal/series"
)

func getRedisURL() string {
	if url := os.Getenv("REDIS_URL"); url != "" {
		return url
	}
	return "redis://localhost:6379/15"
}

func isRedisAvailable() bool {
	opts, err := redis.ParseURL(getRedisURL())
	if err != nil {
		return false
	}
	client := redis.NewClient(opts)
	defer func() { _ = client.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return client.Ping(ctx).Err() == nil
}

func newTestRedisStore(t *testing.T) *RedisStore {
	if !isRedisAvailable() {
		t.Skip("Redis not available, skipping test")
	}
	store, err := NewRedisStore(config.RedisConfig{
		URL:       getRedisURL(),
		KeyPrefix: "soltix:test:" + t.Name() + ":",
	}, 2, nil)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = store.Delete(context.Background(), cpuSeries(nil).Identity())
		_ = store.Close()
	})
	return store
}

func TestRedisStore(t *testing.T) {
	storeContract(t, newTestRedisStore(t))
}

func TestRedisMembers(t *testing.T) {
	p := series.Point{Timestamp: -1500, Value: 2.5}
	got, err := decodeMember(encodeMember(p))
	require.NoError(t, err)
	assert.Equal(t, p, got)

	_, err = decodeMember("garbage")
	assert.Error(t, err)
	_, err = decodeMember("1:x")
	assert.Error(t, err)
}

func TestScoreBound(t *testing.T) {
	assert.Equal(t, "(10", scoreBound(10, true))
	assert.Equal(t, "10", scoreBound(10, false))
	assert.Equal(t, "+inf", scoreBound(1<<63-1, false))
}

func TestNewRedisStore_Unreachable(t *testing.T) {
	_, err := NewRedisStore(config.RedisConfig{URL: "redis://127.0.0.1:1/0"}, 0, nil)
	assert.Error(t, err)
}
