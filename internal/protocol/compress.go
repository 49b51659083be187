package protocol

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// CompressionType identifies the codec used for a compressed block. The
// zero value is never written to the wire: the compression_type byte is
// only present when a block was actually compressed.
type CompressionType uint8

const (
	CompressionZstd CompressionType = iota + 1
	CompressionLZ4
)

// compressBlockSizeThreshold is the raw block size a block must exceed
// before compression is attempted (spec §4.3).
const compressBlockSizeThreshold = 100

// autoSelectThreshold is the total-payload-size threshold above which
// AutoSelect recommends requesting compression.
const autoSelectThreshold = 1 << 20 // 1 MiB

// AutoSelect implements the envelope-level compression strategy: zstd for
// payloads over 1 MiB, none otherwise.
func AutoSelect(totalSize int) bool {
	return totalSize > autoSelectThreshold
}

// CompressBlock attempts to compress raw using ctype when useCompression is
// true and raw is large enough to be worth it. It returns the bytes to put
// on the wire and whether compression was actually applied (compressed
// strictly smaller than raw).
func CompressBlock(raw []byte, useCompression bool, ctype CompressionType) (out []byte, applied bool, err error) {
	if !useCompression || len(raw) <= compressBlockSizeThreshold {
		return raw, false, nil
	}

	var compressed []byte
	switch ctype {
	case CompressionZstd:
		compressed, err = zstdCompress(raw)
	case CompressionLZ4:
		compressed, err = lz4Compress(raw)
	default:
		return nil, false, fmt.Errorf("protocol: unknown compression type %d", ctype)
	}
	if err != nil {
		return nil, false, err
	}

	if len(compressed) < len(raw) {
		return compressed, true, nil
	}
	return raw, false, nil
}

// DecompressBlock reverses CompressBlock for a block that was marked compressed.
func DecompressBlock(ctype CompressionType, data []byte) ([]byte, error) {
	switch ctype {
	case CompressionZstd:
		return zstdDecompress(data)
	case CompressionLZ4:
		return lz4Decompress(data)
	default:
		return nil, fmt.Errorf("protocol: unknown compression type %d", ctype)
	}
}

func zstdCompress(raw []byte) ([]byte, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("protocol: zstd encoder: %w", err)
	}
	defer enc.Close()
	return enc.EncodeAll(raw, nil), nil
}

func zstdDecompress(data []byte) ([]byte, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("protocol: zstd decoder: %w", err)
	}
	defer dec.Close()
	out, err := dec.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("protocol: zstd decode: %w", err)
	}
	return out, nil
}

func lz4Compress(raw []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := lz4.NewWriter(&buf)
	if _, err := w.Write(raw); err != nil {
		return nil, fmt.Errorf("protocol: lz4 encode: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("protocol: lz4 encode close: %w", err)
	}
	return buf.Bytes(), nil
}

func lz4Decompress(data []byte) ([]byte, error) {
	r := lz4.NewReader(bytes.NewReader(data))
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("protocol: lz4 decode: %w", err)
	}
	return out, nil
}
