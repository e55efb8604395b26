package metadata

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/soltixdb/soltix-transform/internal/config"
	"github.com/soltixdb/soltix-transform/internal/logging"
	"github.com/soltixdb/soltix-transform/internal/series"
)

// EtcdLookup reads stored attributes from etcd through a TTL cache.
type EtcdLookup struct {
	client *clientv3.Client
	cache  *KVCache
	prefix string
	logger *logging.Logger
}

// NewEtcdLookup connects to etcd with the given configuration.
func NewEtcdLookup(cfg config.EtcdConfig, logger *logging.Logger) (*EtcdLookup, error) {
	dialTimeout := cfg.DialTimeout
	if dialTimeout <= 0 {
		dialTimeout = 5 * time.Second
	}

	client, err := clientv3.New(clientv3.Config{
		Endpoints:   cfg.Endpoints,
		DialTimeout: dialTimeout,
		Username:    cfg.Username,
		Password:    cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to etcd: %w", err)
	}

	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if logger == nil {
		logger = logging.Nop()
	}

	return &EtcdLookup{
		client: client,
		cache:  NewKVCache(ttl),
		prefix: cfg.Prefix,
		logger: logger,
	}, nil
}

func (l *EtcdLookup) fullKey(key string) string {
	return path.Join("/", l.prefix, key)
}

// Get implements Source.
func (l *EtcdLookup) Get(ctx context.Context, key string) (string, bool, error) {
	full := l.fullKey(key)
	if value, found, ok := l.cache.Get(full); ok {
		return value, found, nil
	}

	resp, err := l.client.Get(ctx, full)
	if err != nil {
		return "", false, fmt.Errorf("failed to get %s from etcd: %w", full, err)
	}
	if len(resp.Kvs) == 0 {
		l.cache.SetMissing(full)
		return "", false, nil
	}

	value := string(resp.Kvs[0].Value)
	l.cache.Set(full, value)
	return value, true, nil
}

// Put writes a raw source key.
func (l *EtcdLookup) Put(ctx context.Context, key, value string) error {
	full := l.fullKey(key)
	if _, err := l.client.Put(ctx, full, value); err != nil {
		return fmt.Errorf("failed to put %s in etcd: %w", full, err)
	}
	l.cache.Delete(full)
	return nil
}

// PutSeries writes an attribute for the series identity.
func (l *EtcdLookup) PutSeries(ctx context.Context, identity, key, value string) error {
	return l.Put(ctx, SeriesKey(identity, key), value)
}

// PutHost writes an attribute for a host.
func (l *EtcdLookup) PutHost(ctx context.Context, host, key, value string) error {
	return l.Put(ctx, HostKey(host, key), value)
}

// Delete removes a raw source key.
func (l *EtcdLookup) Delete(ctx context.Context, key string) error {
	full := l.fullKey(key)
	if _, err := l.client.Delete(ctx, full); err != nil {
		return fmt.Errorf("failed to delete %s from etcd: %w", full, err)
	}
	l.cache.Delete(full)
	return nil
}

// List returns every stored attribute under a source key prefix, keyed
// relative to the lookup prefix.
func (l *EtcdLookup) List(ctx context.Context, keyPrefix string) (map[string]string, error) {
	full := l.fullKey(keyPrefix)
	resp, err := l.client.Get(ctx, full, clientv3.WithPrefix())
	if err != nil {
		return nil, fmt.Errorf("failed to list %s from etcd: %w", full, err)
	}

	root := l.fullKey("")
	if root != "/" {
		root += "/"
	}
	out := make(map[string]string, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		out[strings.TrimPrefix(string(kv.Key), root)] = string(kv.Value)
	}
	return out, nil
}

// IsMetadataEqual implements Lookup.
func (l *EtcdLookup) IsMetadataEqual(ctx context.Context, s *series.Series, key, value, extractor string) (bool, error) {
	ok, err := isEqual(ctx, l, s, key, value, extractor)
	if err != nil {
		l.logger.Warn("Metadata lookup failed",
			"series", s.Identity(),
			"key", key,
			"extractor", extractor,
			"error", err)
	}
	return ok, err
}

// Stats returns cache statistics.
func (l *EtcdLookup) Stats() map[string]interface{} {
	return l.cache.Stats()
}

// Close stops the cache and closes the etcd client.
func (l *EtcdLookup) Close() error {
	l.cache.Stop()
	return l.client.Close()
}
