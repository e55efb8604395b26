package compression

import (
	"fmt"

	"github.com/golang/snappy"
)

// SnappyCompressor implements Compressor with block-format snappy.
type SnappyCompressor struct{}

// NewSnappyCompressor creates a snappy compressor.
func NewSnappyCompressor() *SnappyCompressor {
	return &SnappyCompressor{}
}

// Compress implements Compressor.
func (s *SnappyCompressor) Compress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return data, nil
	}
	return snappy.Encode(nil, data), nil
}

// Decompress implements Compressor.
func (s *SnappyCompressor) Decompress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return data, nil
	}

	decompressed, err := snappy.Decode(nil, data)
	if err != nil {
		return nil, fmt.Errorf("snappy decompress failed: %w", err)
	}
	return decompressed, nil
}

// Algorithm implements Compressor.
func (s *SnappyCompressor) Algorithm() Algorithm {
	return Snappy
}
