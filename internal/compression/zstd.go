package compression

import (
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// ZstdCompressor implements Compressor with zstd. Encoder and decoder are
// created once and used through their stateless EncodeAll/DecodeAll calls.
type ZstdCompressor struct {
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

var (
	zstdOnce     sync.Once
	zstdInstance *ZstdCompressor
	zstdErr      error
)

func sharedZstd() (*ZstdCompressor, error) {
	zstdOnce.Do(func() {
		zstdInstance, zstdErr = NewZstdCompressor()
	})
	return zstdInstance, zstdErr
}

// NewZstdCompressor creates a zstd compressor using the default level.
func NewZstdCompressor() (*ZstdCompressor, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		_ = enc.Close()
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	return &ZstdCompressor{encoder: enc, decoder: dec}, nil
}

// Compress implements Compressor.
func (z *ZstdCompressor) Compress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return data, nil
	}
	return z.encoder.EncodeAll(data, make([]byte, 0, len(data)/2)), nil
}

// Decompress implements Compressor.
func (z *ZstdCompressor) Decompress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return data, nil
	}

	out, err := z.decoder.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("zstd decompress failed: %w", err)
	}
	return out, nil
}

// Algorithm implements Compressor.
func (z *ZstdCompressor) Algorithm() Algorithm {
	return Zstd
}
