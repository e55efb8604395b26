package ingest

import (
	"context"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soltixdb/soltix-transform/internal/config"
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

func TestRedisTransport_PublishSubscribe(t *testing.T) {
	if !isRedisAvailable() {
		t.Skip("Redis not available, skipping test")
	}

	stream := "ingest-test-" + time.Now().Format("150405.000000")
	tr, err := NewRedisTransport(config.IngestConfig{URL: getRedisURL(), RedisStream: stream, Group: "test"}, nil)
	require.NoError(t, err)
	defer func() {
		_ = tr.client.Del(context.Background(), tr.streamKey("series")).Err()
		_ = tr.Close()
	}()

	ctx := context.Background()
	var received atomic.Int32
	require.NoError(t, tr.Subscribe(ctx, "series", func(_ context.Context, _ string, data []byte) error {
		assert.Equal(t, "payload", string(data))
		received.Add(1)
		return nil
	}))
	assert.Error(t, tr.Subscribe(ctx, "series", nil))

	require.NoError(t, tr.Publish(ctx, "series", []byte("payload")))
	require.Eventually(t, func() bool { return received.Load() == 1 }, 5*time.Second, 20*time.Millisecond)

	require.NoError(t, tr.Unsubscribe("series"))
	assert.Error(t, tr.Unsubscribe("series"))
}

func TestRedisTransport_Unreachable(t *testing.T) {
	_, err := NewRedisTransport(config.IngestConfig{URL: "127.0.0.1:1"}, nil)
	assert.Error(t, err)
}
