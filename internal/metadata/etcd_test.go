package metadata

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.etcd.io/etcd/server/v3/embed"

	"github.com/soltixdb/soltix-transform/internal/config"
)

// setupTestEtcd starts an embedded etcd server on random ports.
func setupTestEtcd(t *testing.T) []string {
	t.Helper()

	cfg := embed.NewConfig()
	cfg.Dir = t.TempDir()

	clientURL, _ := url.Parse("http://127.0.0.1:0")
	peerURL, _ := url.Parse("http://127.0.0.1:0")
	cfg.ListenClientUrls = []url.URL{*clientURL}
	cfg.ListenPeerUrls = []url.URL{*peerURL}
	cfg.LogLevel = "error"
	cfg.Logger = "zap"

	e, err := embed.StartEtcd(cfg)
	require.NoError(t, err)

	select {
	case <-e.Server.ReadyNotify():
	case <-time.After(10 * time.Second):
		e.Close()
		t.Fatal("etcd server took too long to start")
	}
	t.Cleanup(e.Close)

	return []string{e.Clients[0].Addr().String()}
}

func newTestEtcdLookup(t *testing.T) *EtcdLookup {
	t.Helper()
	endpoints := setupTestEtcd(t)

	lookup, err := NewEtcdLookup(config.EtcdConfig{
		Endpoints:   endpoints,
		DialTimeout: 5 * time.Second,
		Prefix:      "/soltix/metadata",
		CacheTTL:    time.Minute,
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = lookup.Close() })
	return lookup
}

func TestEtcdLookup_IsMetadataEqual(t *testing.T) {
	ctx := context.Background()
	lookup := newTestEtcdLookup(t)
	s := testSeries()

	require.NoError(t, lookup.PutHost(ctx, "web-1", "role", "frontend"))
	require.NoError(t, lookup.PutSeries(ctx, s.Identity(), "owner", "team-a"))

	ok, err := lookup.IsMetadataEqual(ctx, s, "role", "frontend", ExtractorHost)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = lookup.IsMetadataEqual(ctx, s, "owner", "team-b", ExtractorSeries)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = lookup.IsMetadataEqual(ctx, s, "dc", "tokyo", ExtractorTag)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEtcdLookup_CachesMissingKeys(t *testing.T) {
	ctx := context.Background()
	lookup := newTestEtcdLookup(t)

	_, found, err := lookup.Get(ctx, HostKey("web-9", "role"))
	require.NoError(t, err)
	assert.False(t, found)

	_, found, ok := lookup.cache.Get("/soltix/metadata/hosts/web-9/role")
	assert.True(t, ok)
	assert.False(t, found)
}

func TestEtcdLookup_PutInvalidatesCache(t *testing.T) {
	ctx := context.Background()
	lookup := newTestEtcdLookup(t)
	key := HostKey("web-1", "role")

	require.NoError(t, lookup.Put(ctx, key, "frontend"))
	v, _, err := lookup.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "frontend", v)

	require.NoError(t, lookup.Put(ctx, key, "backend"))
	v, _, err = lookup.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "backend", v)

	require.NoError(t, lookup.Delete(ctx, key))
	_, found, err := lookup.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestEtcdLookup_List(t *testing.T) {
	ctx := context.Background()
	lookup := newTestEtcdLookup(t)

	require.NoError(t, lookup.PutHost(ctx, "web-1", "role", "frontend"))
	require.NoError(t, lookup.PutHost(ctx, "web-2", "role", "backend"))

	got, err := lookup.List(ctx, "hosts")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"hosts/web-1/role": "frontend",
		"hosts/web-2/role": "backend",
	}, got)
}
