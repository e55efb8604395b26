package datastore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/soltixdb/soltix-transform/internal/config"
	"github.com/soltixdb/soltix-transform/internal/logging"
	"github.com/soltixdb/soltix-transform/internal/series"
)

// RedisStore keeps each series in a sorted set scored by timestamp. Members
// are "<ts>:<value>" so equal values at different times stay distinct.
type RedisStore struct {
	client   *redis.Client
	prefix   string
	pageSize int
	logger   *logging.Logger
}

// NewRedisStore connects to redis and verifies the connection.
func NewRedisStore(cfg config.RedisConfig, pageSize int, logger *logging.Logger) (*RedisStore, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		opts = &redis.Options{
			Addr:     cfg.URL,
			Password: cfg.Password,
			DB:       cfg.DB,
		}
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	if pageSize <= 0 {
		pageSize = series.DefaultPageSize
	}
	if logger == nil {
		logger = logging.Nop()
	}
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "soltix:series:"
	}
	logger.Info("Redis datastore connected", "addr", opts.Addr, "prefix", prefix)

	return &RedisStore{
		client:   client,
		prefix:   prefix,
		pageSize: pageSize,
		logger:   logger,
	}, nil
}

func (r *RedisStore) dataKey(identity string) string {
	return r.prefix + "data:" + identity
}

func (r *RedisStore) metaKey(identity string) string {
	return r.prefix + "meta:" + identity
}

func encodeMember(p series.Point) string {
	return strconv.FormatInt(p.Timestamp, 10) + ":" + strconv.FormatFloat(p.Value, 'g', -1, 64)
}

func decodeMember(member string) (series.Point, error) {
	ts, value, ok := strings.Cut(member, ":")
	if !ok {
		return series.Point{}, fmt.Errorf("malformed member %q", member)
	}
	t, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return series.Point{}, fmt.Errorf("malformed timestamp in %q: %w", member, err)
	}
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return series.Point{}, fmt.Errorf("malformed value in %q: %w", member, err)
	}
	return series.Point{Timestamp: t, Value: v}, nil
}

func scoreBound(ts int64, exclusive bool) string {
	switch ts {
	case math.MaxInt64:
		return "+inf"
	case math.MinInt64:
		return "-inf"
	}
	s := strconv.FormatInt(ts, 10)
	if exclusive {
		return "(" + s
	}
	return s
}

// Write replaces the points of s at their timestamps.
func (r *RedisStore) Write(ctx context.Context, s *series.Series) error {
	id := s.Identity()
	meta, err := json.Marshal(s.WithDatapoints(nil))
	if err != nil {
		return fmt.Errorf("failed to marshal series identity: %w", err)
	}

	key := r.dataKey(id)
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.metaKey(id), meta, 0)
		for _, p := range sortedPoints(s) {
			bound := strconv.FormatInt(p.Timestamp, 10)
			pipe.ZRemRangeByScore(ctx, key, bound, bound)
			pipe.ZAdd(ctx, key, redis.Z{Score: float64(p.Timestamp), Member: encodeMember(p)})
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to write series %s: %w", id, err)
	}
	return nil
}

func (r *RedisStore) identityFor(ctx context.Context, q Query) (*series.Series, error) {
	identity := q.Series()
	raw, err := r.client.Get(ctx, r.metaKey(q.Identity())).Bytes()
	if errors.Is(err, redis.Nil) {
		return identity, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read series identity: %w", err)
	}
	if err := json.Unmarshal(raw, identity); err != nil {
		return nil, fmt.Errorf("failed to decode series identity: %w", err)
	}
	return identity, nil
}

func (r *RedisStore) page(ctx context.Context, id string, after, end int64, limit int) ([]series.Point, error) {
	members, err := r.client.ZRangeByScore(ctx, r.dataKey(id), &redis.ZRangeBy{
		Min:   scoreBound(after, true),
		Max:   scoreBound(end, false),
		Count: int64(limit),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to range series %s: %w", id, err)
	}

	points := make([]series.Point, 0, len(members))
	for _, m := range members {
		p, err := decodeMember(m)
		if err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	return points, nil
}

// FetchCursor implements Fetcher. Each page is one ZRANGEBYSCORE ... LIMIT call.
func (r *RedisStore) FetchCursor(ctx context.Context, q Query) (series.Cursor, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	identity, err := r.identityFor(ctx, q)
	if err != nil {
		return nil, err
	}
	src := &redisPages{store: r, id: q.Identity(), end: q.end()}
	return series.NewScanCursor(ctx, identity, src, q.Start, r.pageSize), nil
}

// FetchSeries implements Fetcher.
func (r *RedisStore) FetchSeries(ctx context.Context, q Query) (*series.Series, error) {
	c, err := r.FetchCursor(ctx, q)
	if err != nil {
		return nil, err
	}
	return fetchAll(c)
}

// Delete removes a stored series.
func (r *RedisStore) Delete(ctx context.Context, identity string) error {
	return r.client.Del(ctx, r.dataKey(identity), r.metaKey(identity)).Err()
}

// Close implements Store.
func (r *RedisStore) Close() error {
	return r.client.Close()
}

type redisPages struct {
	store *RedisStore
	id    string
	end   int64
}

func (p *redisPages) NextPage(ctx context.Context, after int64, limit int) ([]series.Point, error) {
	return p.store.page(ctx, p.id, after, p.end, limit)
}
