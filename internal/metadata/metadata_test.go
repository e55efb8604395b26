package metadata

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soltixdb/soltix-transform/internal/config"
	"github.com/soltixdb/soltix-transform/internal/series"
)

func testSeries() *series.Series {
	s := series.New("prod", "cpu.usage", nil)
	s.Units = "percent"
	s.SetTag("host", "web-1")
	s.SetTag("dc", "tokyo")
	return s
}

func TestMemoryLookup_Extractors(t *testing.T) {
	ctx := context.Background()
	s := testSeries()

	lookup := NewMemoryLookup()
	lookup.PutHost("web-1", "role", "frontend")
	lookup.PutSeries(s.Identity(), "owner", "team-a")

	tests := []struct {
		name      string
		key       string
		value     string
		extractor string
		want      bool
	}{
		{"default extractor is tag", "dc", "tokyo", "", true},
		{"tag mismatch", "dc", "osaka", ExtractorTag, false},
		{"missing tag", "rack", "r1", ExtractorTag, false},
		{"scope", "", "prod", ExtractorScope, true},
		{"name", "", "cpu.usage", ExtractorName, true},
		{"units mismatch", "", "bytes", ExtractorUnits, false},
		{"host attribute", "role", "frontend", ExtractorHost, true},
		{"host attribute mismatch", "role", "backend", ExtractorHost, false},
		{"series attribute", "owner", "team-a", ExtractorSeries, true},
		{"series attribute missing", "tier", "gold", ExtractorSeries, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := lookup.IsMetadataEqual(ctx, s, tt.key, tt.value, tt.extractor)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMemoryLookup_HostWithoutHostTag(t *testing.T) {
	lookup := NewMemoryLookup()
	lookup.PutHost("web-1", "role", "frontend")

	s := series.New("prod", "cpu", nil)
	got, err := lookup.IsMetadataEqual(context.Background(), s, "role", "frontend", ExtractorHost)
	require.NoError(t, err)
	assert.False(t, got)
}

func TestMemoryLookup_Errors(t *testing.T) {
	ctx := context.Background()
	lookup := NewMemoryLookup()
	s := testSeries()

	_, err := lookup.IsMetadataEqual(ctx, s, "dc", "tokyo", "ldap")
	assert.ErrorIs(t, err, ErrUnknownExtractor)

	_, err = lookup.IsMetadataEqual(ctx, s, "", "tokyo", ExtractorTag)
	assert.ErrorIs(t, err, ErrEmptyKey)
}

func TestMemoryLookup_Delete(t *testing.T) {
	ctx := context.Background()
	lookup := NewMemoryLookup()
	lookup.Put("hosts/web-1/role", "frontend")

	v, ok, err := lookup.Get(ctx, "hosts/web-1/role")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "frontend", v)

	lookup.Delete("hosts/web-1/role")
	_, ok, err = lookup.Get(ctx, "hosts/web-1/role")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "series/prod:cpu{host=a}/owner", SeriesKey("prod:cpu{host=a}", "owner"))
	assert.Equal(t, "hosts/web-1/role", HostKey("web-1", "role"))
}

func TestNew(t *testing.T) {
	svc, err := New(config.MetadataConfig{Type: "memory"}, nil)
	require.NoError(t, err)
	assert.IsType(t, &MemoryLookup{}, svc)
	require.NoError(t, svc.Close())

	_, err = New(config.MetadataConfig{Type: "zookeeper"}, nil)
	assert.Error(t, err)
}
