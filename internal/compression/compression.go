// Package compression encodes blocks of series points for the persistent
// datastores: delta-of-delta timestamps, XOR-packed values, and a general
// purpose codec (snappy or zstd) over the result.
package compression

import (
	"fmt"
	"strings"
)

// Algorithm identifies a block codec. The value is written as the first
// byte of every encoded block.
type Algorithm uint8

const (
	None   Algorithm = 0
	Snappy Algorithm = 1
	Zstd   Algorithm = 3
)

// String implements fmt.Stringer.
func (a Algorithm) String() string {
	switch a {
	case None:
		return "none"
	case Snappy:
		return "snappy"
	case Zstd:
		return "zstd"
	default:
		return fmt.Sprintf("algorithm(%d)", uint8(a))
	}
}

// ParseAlgorithm maps a configuration name to an Algorithm.
func ParseAlgorithm(name string) (Algorithm, error) {
	switch strings.ToLower(name) {
	case "none":
		return None, nil
	case "", "snappy":
		return Snappy, nil
	case "zstd":
		return Zstd, nil
	default:
		return None, fmt.Errorf("unsupported compression algorithm: %s", name)
	}
}

// Compressor compresses and decompresses byte slices.
type Compressor interface {
	Compress(data []byte) ([]byte, error)
	Decompress(data []byte) ([]byte, error)
	Algorithm() Algorithm
}

// GetCompressor returns a compressor for the given algorithm.
func GetCompressor(algo Algorithm) (Compressor, error) {
	switch algo {
	case None:
		return &NoneCompressor{}, nil
	case Snappy:
		return NewSnappyCompressor(), nil
	case Zstd:
		return sharedZstd()
	default:
		return nil, fmt.Errorf("unsupported compression algorithm: %d", algo)
	}
}

// NoneCompressor is a no-op compressor.
type NoneCompressor struct{}

func (n *NoneCompressor) Compress(data []byte) ([]byte, error) {
	return data, nil
}

func (n *NoneCompressor) Decompress(data []byte) ([]byte, error) {
	return data, nil
}

func (n *NoneCompressor) Algorithm() Algorithm {
	return None
}
