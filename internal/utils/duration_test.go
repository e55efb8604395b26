package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDuration(t *testing.T) {
	tests := []struct {
		spec    string
		want    int64
		wantErr bool
	}{
		{"10s", 10000, false},
		{"1m", 60000, false},
		{"2h", 7200000, false},
		{"1d", 86400000, false},
		{"1w", 604800000, false},
		{"250ms", 250, false},
		{"-1h", -3600000, false},
		{"+5m", 300000, false},
		{"0s", 0, false},
		{"15250284452w", 15250284452 * MillisPerWeek, false},
		{"15250284453w", 0, true},
		{"20000000000w", 0, true},
		{"-20000000000w", 0, true},
		{"1000000000000000w", 0, true},
		{"9223372036854775808ms", 0, true},
		{"10", 0, true},
		{"1y", 0, true},
		{"h", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			got, err := ParseDuration(tt.spec)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseWindow(t *testing.T) {
	_, err := ParseWindow("0m")
	assert.Error(t, err)

	_, err = ParseWindow("-1m")
	assert.Error(t, err)

	_, err = ParseWindow("20000000000w")
	assert.Error(t, err)

	ms, err := ParseWindow("5m")
	require.NoError(t, err)
	assert.Equal(t, 5*MillisPerMinute, ms)
}

func TestParseOffset(t *testing.T) {
	ms, err := ParseOffset("-30s")
	require.NoError(t, err)
	assert.Equal(t, int64(-30000), ms)

	ms, err = ParseOffset("0")
	require.NoError(t, err)
	assert.Equal(t, int64(0), ms)

	_, err = ParseOffset("12")
	assert.Error(t, err)
}

func TestDurationUnit(t *testing.T) {
	assert.Equal(t, "d", DurationUnit("3d"))
	assert.Equal(t, "ms", DurationUnit("10ms"))
	assert.Equal(t, "", DurationUnit("abc"))
	assert.True(t, IsDurationSpec("1h"))
	assert.False(t, IsDurationSpec("5"))
}

func TestParseRelativeTime(t *testing.T) {
	start, end := int64(1000000), int64(9000000)

	tests := []struct {
		expr    string
		want    int64
		wantErr bool
	}{
		{"start", start, false},
		{"end", end, false},
		{"start+1m", start + 60000, false},
		{"end-1s", end - 1000, false},
		{"-1h", end - 3600000, false},
		{"123456", 123456, false},
		{"start*2", 0, true},
		{"", 0, true},
		{"later", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := ParseRelativeTime(tt.expr, start, end)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
