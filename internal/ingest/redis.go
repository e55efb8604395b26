package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/soltixdb/soltix-transform/internal/config"
	"github.com/soltixdb/soltix-transform/internal/logging"
)

// RedisTransport implements Transport on Redis Streams with consumer groups
type RedisTransport struct {
	client        *redis.Client
	prefix        string
	group         string
	consumer      string
	logger        *logging.Logger
	subscriptions map[string]context.CancelFunc
	wg            sync.WaitGroup
	mu            sync.Mutex
}

// NewRedisTransport connects to the Redis server named by cfg.URL, which may
// be a redis:// URL or a plain host:port address
func NewRedisTransport(cfg config.IngestConfig, logger *logging.Logger) (*RedisTransport, error) {
	if logger == nil {
		logger = logging.Nop()
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		addr := cfg.URL
		if addr == "" {
			addr = "localhost:6379"
		}
		opts = &redis.Options{Addr: addr, Password: cfg.Password, DB: cfg.RedisDB}
	}
	if cfg.Username != "" {
		opts.Username = cfg.Username
	}

	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	prefix := cfg.RedisStream
	if prefix == "" {
		prefix = "soltix"
	}
	group := cfg.Group
	if group == "" {
		group = "transformd"
	}
	consumer, _ := os.Hostname()
	if consumer == "" {
		consumer = "consumer-1"
	}

	return &RedisTransport{
		client:        client,
		prefix:        prefix,
		group:         group,
		consumer:      consumer,
		logger:        logger,
		subscriptions: make(map[string]context.CancelFunc),
	}, nil
}

// streamKey maps a subject to {prefix}:{subject}
func (t *RedisTransport) streamKey(subject string) string {
	return t.prefix + ":" + subject
}

// Publish appends data to the subject stream
func (t *RedisTransport) Publish(ctx context.Context, subject string, data []byte) error {
	stream := t.streamKey(subject)
	err := t.client.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		ID:     "*",
		Values: map[string]interface{}{"data": data},
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to publish to Redis stream %s: %w", stream, err)
	}
	return nil
}

// Subscribe joins the consumer group of the subject stream
func (t *RedisTransport) Subscribe(ctx context.Context, subject string, handler Handler) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	stream := t.streamKey(subject)
	if _, exists := t.subscriptions[stream]; exists {
		return fmt.Errorf("already subscribed to stream: %s", stream)
	}

	err := t.client.XGroupCreateMkStream(ctx, stream, t.group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	subCtx, cancel := context.WithCancel(ctx)
	t.subscriptions[stream] = cancel
	t.wg.Add(1)
	go t.consume(subCtx, stream, subject, handler)

	t.logger.Info("Subscribed to Redis stream", "stream", stream, "group", t.group, "consumer", t.consumer)
	return nil
}

func (t *RedisTransport) consume(ctx context.Context, stream, subject string, handler Handler) {
	defer t.wg.Done()
	for ctx.Err() == nil {
		streams, err := t.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    t.group,
			Consumer: t.consumer,
			Streams:  []string{stream, ">"},
			Count:    100,
			Block:    time.Second,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) || ctx.Err() != nil {
				continue
			}
			t.logger.Error("Failed to read from stream", "stream", stream, "error", err)
			time.Sleep(time.Second)
			continue
		}

		for _, s := range streams {
			for _, msg := range s.Messages {
				data, ok := msg.Values["data"].(string)
				if !ok {
					t.logger.Warn("Invalid message format", "stream", stream, "id", msg.ID)
					t.client.XAck(ctx, stream, t.group, msg.ID)
					continue
				}
				if err := handler(ctx, subject, []byte(data)); err != nil {
					t.logger.Error("Failed to handle message", "stream", stream, "id", msg.ID, "error", err)
					continue
				}
				if err := t.client.XAck(ctx, stream, t.group, msg.ID).Err(); err != nil {
					t.logger.Error("Failed to ACK message", "stream", stream, "id", msg.ID, "error", err)
				}
			}
		}
	}
}

// Unsubscribe stops consuming the subject stream
func (t *RedisTransport) Unsubscribe(subject string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	stream := t.streamKey(subject)
	cancel, exists := t.subscriptions[stream]
	if !exists {
		return fmt.Errorf("not subscribed to stream: %s", stream)
	}
	cancel()
	delete(t.subscriptions, stream)
	return nil
}

// Close stops all consumers and closes the client
func (t *RedisTransport) Close() error {
	t.mu.Lock()
	for stream, cancel := range t.subscriptions {
		cancel()
		delete(t.subscriptions, stream)
	}
	t.mu.Unlock()
	t.wg.Wait()

	if err := t.client.Close(); err != nil {
		return fmt.Errorf("failed to close Redis client: %w", err)
	}
	return nil
}
