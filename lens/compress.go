package lens

import (
	"bytes"
	"fmt"
	"io"
	"runtime"

	"github.com/klauspost/compress/s2"
	"github.com/klauspost/compress/snappy"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
)

// Compression names the algorithm applied to string pool entries before text encoding.
type Compression string

const (
	// CompressionZlib is the format used by the report writer.
	CompressionZlib   Compression = "zlib"
	CompressionZstd   Compression = "zstd"
	CompressionSnappy Compression = "snappy"
	// CompressionNone stores entries text encoded only.
	CompressionNone Compression = "none"
)

// decompressor returns the decompression function for the compression type.
func (c Compression) decompressor() (func(dst, data []byte) ([]byte, error), error) {
	switch c {
	case CompressionZlib, "":
		return ZlibDecompress, nil
	case CompressionZstd:
		return ZstdDecompress, nil
	case CompressionSnappy:
		return SnappyDecompress, nil
	case CompressionNone:
		return func(dst, data []byte) ([]byte, error) {
			return append(dst, data...), nil
		}, nil
	default:
		return nil, fmt.Errorf("unknown compression: %s", c)
	}
}

// compressor returns the compression function matching decompressor, used when writing payloads.
func (c Compression) compressor() (func(dst, data []byte) []byte, error) {
	switch c {
	case CompressionZlib, "":
		return ZlibCompress, nil
	case CompressionZstd:
		return ZstdCompress, nil
	case CompressionSnappy:
		return SnappyCompress, nil
	case CompressionNone:
		return func(dst, data []byte) []byte {
			return append(dst, data...)
		}, nil
	default:
		return nil, fmt.Errorf("unknown compression: %s", c)
	}
}

// ZlibCompress compresses a byte slice using zlib at best compression and returns the compressed data.
func ZlibCompress(dst, data []byte) []byte {
	buf := bytes.NewBuffer(dst)
	w, err := zlib.NewWriterLevel(buf, zlib.BestCompression)
	if err != nil {
		panic(err) // only possible with an invalid level
	}
	_, _ = w.Write(data) // bytes.Buffer writes can't fail
	_ = w.Close()
	return buf.Bytes()
}

// ZlibDecompress decompresses a zlib stream and returns the original data appended to dst.
func ZlibDecompress(dst, data []byte) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()

	buf := bytes.NewBuffer(dst)
	if _, err := io.Copy(buf, r); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ZstdCompress compresses a byte slice using zstd and returns the compressed data.
func ZstdCompress(dst, data []byte) []byte {
	encOpts := []zstd.EOption{
		zstd.WithEncoderLevel(zstd.SpeedBetterCompression),
	}
	if len(data) > 1024*1024*100 { // update options for large payloads
		encOpts = append(encOpts, zstd.WithEncoderConcurrency(max(1, runtime.NumCPU()/2)))
	}
	encoder, err := zstd.NewWriter(nil, encOpts...)
	if err != nil {
		panic(err) // theoretically not possible
	}
	defer encoder.Close()

	return encoder.EncodeAll(data, dst)
}

// ZstdDecompress decompresses a zstd-compressed byte slice and returns the original data.
func ZstdDecompress(dst, data []byte) ([]byte, error) {
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer decoder.Close()

	return decoder.DecodeAll(data, dst)
}

// SnappyCompress compresses a byte slice using snappy and returns the compressed data.
func SnappyCompress(dst, data []byte) []byte {
	return s2.EncodeSnappyBest(dst, data)
}

// SnappyDecompress decompresses a snappy-compressed byte slice and returns the decompressed data.
func SnappyDecompress(dst, data []byte) ([]byte, error) {
	return snappy.Decode(dst, data)
}
