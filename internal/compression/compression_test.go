package compression

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soltixdb/soltix-transform/internal/series"
)

func TestParseAlgorithm(t *testing.T) {
	tests := []struct {
		in      string
		want    Algorithm
		wantErr bool
	}{
		{"", Snappy, false},
		{"snappy", Snappy, false},
		{"ZSTD", Zstd, false},
		{"none", None, false},
		{"lz4", None, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseAlgorithm(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCompressors(t *testing.T) {
	data := []byte("cpu.usage cpu.usage cpu.usage cpu.usage cpu.usage")
	for _, algo := range []Algorithm{None, Snappy, Zstd} {
		t.Run(algo.String(), func(t *testing.T) {
			c, err := GetCompressor(algo)
			require.NoError(t, err)
			assert.Equal(t, algo, c.Algorithm())

			compressed, err := c.Compress(data)
			require.NoError(t, err)
			out, err := c.Decompress(compressed)
			require.NoError(t, err)
			assert.Equal(t, data, out)
		})
	}

	_, err := GetCompressor(Algorithm(9))
	assert.Error(t, err)
}

func TestVarint(t *testing.T) {
	for _, v := range []int64{0, 1, -1, 63, -64, 1 << 40, math.MinInt64, math.MaxInt64} {
		buf := AppendSigned(nil, v)
		got, n := ReadSigned(buf)
		assert.Equal(t, len(buf), n)
		assert.Equal(t, v, got)
	}

	_, n := ReadVarint([]byte{0x80, 0x80})
	assert.Equal(t, 0, n)
}

func TestTimestamps(t *testing.T) {
	ts := []int64{-5000, 0, 1000, 2000, 3000, 10000, 10001}
	buf := EncodeTimestamps(ts)

	got, used, err := DecodeTimestamps(buf, len(ts))
	require.NoError(t, err)
	assert.Equal(t, len(buf), used)
	assert.Equal(t, ts, got)

	_, _, err = DecodeTimestamps(buf[:2], len(ts))
	assert.ErrorIs(t, err, ErrCorruptBlock)
}

func TestTimestamps_RegularIntervalIsOneBytePerPoint(t *testing.T) {
	ts := make([]int64, 100)
	for i := range ts {
		ts[i] = 1_700_000_000_000 + int64(i)*10_000
	}
	buf := EncodeTimestamps(ts)
	// first value + first delta + 98 zero deltas-of-delta
	assert.Less(t, len(buf), 100+12)
}

func TestFloats(t *testing.T) {
	values := []float64{12.5, 12.5, 13, math.NaN(), -4, 0, math.Inf(1), 1e-300, 12.5}
	buf := EncodeFloats(values)

	got, err := DecodeFloats(buf, len(values))
	require.NoError(t, err)
	require.Len(t, got, len(values))
	for i := range values {
		if math.IsNaN(values[i]) {
			assert.True(t, math.IsNaN(got[i]), "index %d", i)
			continue
		}
		assert.Equal(t, values[i], got[i], "index %d", i)
	}

	_, err = DecodeFloats(buf[:9], len(values))
	assert.Error(t, err)
}

func TestFloats_ConstantSeriesIsCompact(t *testing.T) {
	values := make([]float64, 800)
	for i := range values {
		values[i] = 42
	}
	// 8 bytes for the first value and one bit per repeat
	assert.Equal(t, 8+100, len(EncodeFloats(values)))
}

func TestPoints(t *testing.T) {
	points := []series.Point{
		{Timestamp: 0, Value: 1},
		{Timestamp: 60000, Value: math.NaN()},
		{Timestamp: 120000, Value: 3.25},
	}

	for _, algo := range []Algorithm{None, Snappy, Zstd} {
		t.Run(algo.String(), func(t *testing.T) {
			c, err := GetCompressor(algo)
			require.NoError(t, err)

			block, err := EncodePoints(points, c)
			require.NoError(t, err)
			assert.Equal(t, byte(algo), block[0])

			got, err := DecodePoints(block)
			require.NoError(t, err)
			require.Len(t, got, 3)
			assert.Equal(t, points[0], got[0])
			assert.Equal(t, int64(60000), got[1].Timestamp)
			assert.True(t, math.IsNaN(got[1].Value))
			assert.Equal(t, points[2], got[2])
		})
	}
}

func TestDecodePoints_Errors(t *testing.T) {
	_, err := DecodePoints(nil)
	assert.ErrorIs(t, err, ErrCorruptBlock)

	_, err = DecodePoints([]byte{byte(None), 0x05, 0x00})
	assert.ErrorIs(t, err, ErrCorruptBlock)

	_, err = DecodePoints([]byte{byte(Snappy), 0xff, 0xff})
	assert.Error(t, err)

	got, err := DecodePoints([]byte{byte(None), 0x00})
	require.NoError(t, err)
	assert.Empty(t, got)
}
