package compression

// AppendVarint appends a variable-length encoded uint64 to buf.
func AppendVarint(buf []byte, v uint64) []byte {
	for v >= 0x80 {
		buf = append(buf, byte(v)|0x80)
		v >>= 7
	}
	return append(buf, byte(v))
}

// ReadVarint reads a variable-length encoded uint64 from data.
// Returns the value and number of bytes read (0 if data is truncated).
func ReadVarint(data []byte) (uint64, int) {
	var x uint64
	var s uint
	for i, b := range data {
		if i == 10 {
			return 0, 0
		}
		if b < 0x80 {
			return x | uint64(b)<<s, i + 1
		}
		x |= uint64(b&0x7f) << s
		s += 7
	}
	return 0, 0
}

// ZigZag maps signed integers to unsigned so small magnitudes stay small.
func ZigZag(v int64) uint64 {
	return uint64((v << 1) ^ (v >> 63))
}

// UnZigZag reverses ZigZag.
func UnZigZag(u uint64) int64 {
	return int64(u>>1) ^ -int64(u&1)
}

// AppendSigned appends a zigzag varint.
func AppendSigned(buf []byte, v int64) []byte {
	return AppendVarint(buf, ZigZag(v))
}

// ReadSigned reads a zigzag varint.
func ReadSigned(data []byte) (int64, int) {
	u, n := ReadVarint(data)
	return UnZigZag(u), n
}
