package compression

import (
	"encoding/binary"
	"fmt"
	"math"
	"math/bits"
)

// EncodeFloats packs values with Gorilla XOR compression (Pelkonen et al.,
// PVLDB 2015, section 4.1.2). NaN is stored by its bit pattern, so nulls
// need no separate mask.
//
// Layout: first value as 8 raw little-endian bytes, then per value:
//
//	'0'                               same bits as previous
//	'1' '0' <meaningful bits>         fits the previous leading/trailing window
//	'1' '1' <6 leading> <6 len-1> <meaningful bits>
func EncodeFloats(values []float64) []byte {
	if len(values) == 0 {
		return nil
	}

	w := &bitWriter{buf: make([]byte, 8, 8+len(values)*2)}
	first := math.Float64bits(values[0])
	binary.LittleEndian.PutUint64(w.buf, first)

	prev := first
	prevLeading := uint8(64)
	prevTrailing := uint8(0)
	prevMeaning := uint8(64)

	for _, v := range values[1:] {
		cur := math.Float64bits(v)
		xor := prev ^ cur
		prev = cur

		if xor == 0 {
			w.writeBit(0)
			continue
		}
		w.writeBit(1)

		leading := uint8(bits.LeadingZeros64(xor))
		trailing := uint8(bits.TrailingZeros64(xor))
		if leading > 63 {
			leading = 63
		}

		if prevMeaning < 64 && leading >= prevLeading && trailing >= prevTrailing {
			w.writeBit(0)
			w.writeBits(xor>>prevTrailing, prevMeaning)
			continue
		}

		meaning := 64 - leading - trailing
		w.writeBit(1)
		w.writeBits(uint64(leading), 6)
		w.writeBits(uint64(meaning-1), 6)
		w.writeBits(xor>>trailing, meaning)
		prevLeading, prevTrailing, prevMeaning = leading, trailing, meaning
	}

	return w.buf
}

// DecodeFloats unpacks count values written by EncodeFloats.
func DecodeFloats(data []byte, count int) ([]float64, error) {
	if count == 0 {
		return nil, nil
	}
	if len(data) < 8 {
		return nil, fmt.Errorf("data too short for first value")
	}

	prev := binary.LittleEndian.Uint64(data)
	values := make([]float64, count)
	values[0] = math.Float64frombits(prev)

	r := &bitReader{data: data[8:]}
	prevTrailing := uint8(0)
	prevMeaning := uint8(64)

	for i := 1; i < count; i++ {
		changed, ok := r.readBit()
		if !ok {
			return nil, fmt.Errorf("unexpected end of bitstream at value %d", i)
		}
		if changed == 0 {
			values[i] = math.Float64frombits(prev)
			continue
		}

		newWindow, ok := r.readBit()
		if !ok {
			return nil, fmt.Errorf("unexpected end of bitstream at value %d", i)
		}

		var xor uint64
		if newWindow == 0 {
			meaningful, ok := r.readBits(prevMeaning)
			if !ok {
				return nil, fmt.Errorf("unexpected end of bitstream at value %d", i)
			}
			xor = meaningful << prevTrailing
		} else {
			leading, ok1 := r.readBits(6)
			meaningRaw, ok2 := r.readBits(6)
			if !ok1 || !ok2 {
				return nil, fmt.Errorf("unexpected end of bitstream at value %d", i)
			}
			meaning := uint8(meaningRaw) + 1
			if uint8(leading)+meaning > 64 {
				return nil, fmt.Errorf("corrupt window at value %d", i)
			}
			trailing := 64 - uint8(leading) - meaning
			meaningful, ok := r.readBits(meaning)
			if !ok {
				return nil, fmt.Errorf("unexpected end of bitstream at value %d", i)
			}
			xor = meaningful << trailing
			prevTrailing, prevMeaning = trailing, meaning
		}

		prev ^= xor
		values[i] = math.Float64frombits(prev)
	}

	return values, nil
}

type bitWriter struct {
	buf  []byte
	used uint8 // bits used in the last byte; 0 means a new byte is needed
}

func (w *bitWriter) writeBit(bit uint64) {
	if w.used == 0 {
		w.buf = append(w.buf, 0)
	}
	if bit&1 != 0 {
		w.buf[len(w.buf)-1] |= 1 << (7 - w.used)
	}
	w.used = (w.used + 1) % 8
}

func (w *bitWriter) writeBits(v uint64, n uint8) {
	for i := int(n) - 1; i >= 0; i-- {
		w.writeBit(v >> uint(i))
	}
}

type bitReader struct {
	data []byte
	pos  int
}

func (r *bitReader) readBit() (uint64, bool) {
	if r.pos >= len(r.data)*8 {
		return 0, false
	}
	b := (r.data[r.pos/8] >> (7 - uint(r.pos%8))) & 1
	r.pos++
	return uint64(b), true
}

func (r *bitReader) readBits(n uint8) (uint64, bool) {
	var v uint64
	for i := uint8(0); i < n; i++ {
		b, ok := r.readBit()
		if !ok {
			return 0, false
		}
		v = v<<1 | b
	}
	return v, true
}
