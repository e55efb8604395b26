package compression

import (
	"errors"
	"fmt"

	"github.com/soltixdb/soltix-transform/internal/series"
)

// ErrCorruptBlock is returned when a block cannot be decoded.
var ErrCorruptBlock = errors.New("corrupt point block")

// EncodeTimestamps writes ascending timestamps as a zigzag varint first
// value, first delta, then deltas of deltas. Regular intervals cost one
// byte per point.
func EncodeTimestamps(ts []int64) []byte {
	if len(ts) == 0 {
		return nil
	}
	buf := make([]byte, 0, len(ts)+16)
	buf = AppendSigned(buf, ts[0])

	var prevDelta int64
	for i := 1; i < len(ts); i++ {
		delta := ts[i] - ts[i-1]
		if i == 1 {
			buf = AppendSigned(buf, delta)
		} else {
			buf = AppendSigned(buf, delta-prevDelta)
		}
		prevDelta = delta
	}
	return buf
}

// DecodeTimestamps reads count timestamps and returns them with the number
// of bytes consumed.
func DecodeTimestamps(data []byte, count int) ([]int64, int, error) {
	ts := make([]int64, count)
	offset := 0
	var delta int64
	for i := 0; i < count; i++ {
		v, n := ReadSigned(data[offset:])
		if n <= 0 {
			return nil, 0, fmt.Errorf("%w: timestamp %d truncated", ErrCorruptBlock, i)
		}
		offset += n
		switch i {
		case 0:
			ts[0] = v
		case 1:
			delta = v
			ts[1] = ts[0] + delta
		default:
			delta += v
			ts[i] = ts[i-1] + delta
		}
	}
	return ts, offset, nil
}

// EncodePoints encodes time-ascending points into a self-describing block:
// one algorithm byte followed by the compressed payload
// [count uvarint][timestamps][values].
func EncodePoints(points []series.Point, c Compressor) ([]byte, error) {
	ts := make([]int64, len(points))
	values := make([]float64, len(points))
	for i, p := range points {
		ts[i] = p.Timestamp
		values[i] = p.Value
	}

	payload := AppendVarint(nil, uint64(len(points)))
	payload = append(payload, EncodeTimestamps(ts)...)
	payload = append(payload, EncodeFloats(values)...)

	compressed, err := c.Compress(payload)
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, len(compressed)+1)
	out = append(out, byte(c.Algorithm()))
	return append(out, compressed...), nil
}

// DecodePoints decodes a block written by EncodePoints.
func DecodePoints(data []byte) ([]series.Point, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty block", ErrCorruptBlock)
	}

	c, err := GetCompressor(Algorithm(data[0]))
	if err != nil {
		return nil, err
	}
	payload, err := c.Decompress(data[1:])
	if err != nil {
		return nil, err
	}

	count, n := ReadVarint(payload)
	if n <= 0 {
		return nil, fmt.Errorf("%w: missing count", ErrCorruptBlock)
	}
	if count == 0 {
		return nil, nil
	}
	if count > uint64(len(payload)) {
		return nil, fmt.Errorf("%w: count %d exceeds payload", ErrCorruptBlock, count)
	}
	payload = payload[n:]

	ts, used, err := DecodeTimestamps(payload, int(count))
	if err != nil {
		return nil, err
	}
	values, err := DecodeFloats(payload[used:], int(count))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptBlock, err)
	}

	points := make([]series.Point, count)
	for i := range points {
		points[i] = series.Point{Timestamp: ts[i], Value: values[i]}
	}
	return points, nil
}
