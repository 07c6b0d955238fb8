package lens

import (
	"encoding/base64"
	"fmt"
	"unicode/utf8"

	"github.com/mtraver/base91"
)

// decodedMarker prefixes string pool entries which are stored already decoded.
const decodedMarker = '*'

// Encoding names the text encoding applied to compressed string pool entries.
type Encoding string

const (
	// EncodingBase64 is the format used by the report writer.
	EncodingBase64 Encoding = "base64"
	// EncodingBase91 is a denser alternative for large payloads.
	EncodingBase91 Encoding = "base91"
)

func (e Encoding) decoder() (func(string) ([]byte, error), error) {
	switch e {
	case EncodingBase64, "":
		return base64.StdEncoding.DecodeString, nil
	case EncodingBase91:
		return base91.StdEncoding.DecodeString, nil
	default:
		return nil, fmt.Errorf("unknown encoding: %s", e)
	}
}

func (e Encoding) encoder() (func([]byte) string, error) {
	switch e {
	case EncodingBase64, "":
		return base64.StdEncoding.EncodeToString, nil
	case EncodingBase91:
		return base91.StdEncoding.EncodeToString, nil
	default:
		return nil, fmt.Errorf("unknown encoding: %s", e)
	}
}

// PoolOptions configures how raw string pool entries are decoded.
type PoolOptions struct {
	// Encoding is the text encoding of raw entries, defaults to base64.
	Encoding Encoding
	// Compression is the compression applied before encoding, defaults to zlib.
	Compression Compression
}

// Validate reports an error for unknown encoding or compression names.
func (o PoolOptions) Validate() error {
	if _, err := o.Encoding.decoder(); err != nil {
		return err
	}
	_, err := o.Compression.decompressor()
	return err
}

// stringCodec converts raw string pool entries to text and back.
type stringCodec struct {
	decodeText func(string) ([]byte, error)
	encodeText func([]byte) string
	decompress func(dst, data []byte) ([]byte, error)
	compress   func(dst, data []byte) []byte
}

func newStringCodec(opts PoolOptions) (*stringCodec, error) {
	decodeText, err := opts.Encoding.decoder()
	if err != nil {
		return nil, err
	}
	encodeText, err := opts.Encoding.encoder()
	if err != nil {
		return nil, err
	}
	decompress, err := opts.Compression.decompressor()
	if err != nil {
		return nil, err
	}
	compress, err := opts.Compression.compressor()
	if err != nil {
		return nil, err
	}
	return &stringCodec{
		decodeText: decodeText,
		encodeText: encodeText,
		decompress: decompress,
		compress:   compress,
	}, nil
}

// decode turns a raw (text encoded, compressed) entry into its UTF-8 text.
func (c *stringCodec) decode(raw string) (string, error) {
	compressed, err := c.decodeText(raw)
	if err != nil {
		return "", fmt.Errorf("text decode failed: %w", err)
	}
	data, err := c.decompress(nil, compressed)
	if err != nil {
		return "", fmt.Errorf("decompress failed: %w", err)
	} else if !utf8.Valid(data) {
		return "", fmt.Errorf("invalid UTF-8 in %d decoded bytes", len(data))
	}
	return string(data), nil
}

// encode produces a raw entry which decode will turn back into text.
func (c *stringCodec) encode(text string) string {
	return c.encodeText(c.compress(nil, []byte(text)))
}

// EncodeString produces a raw string pool entry for text using the given options.
func EncodeString(text string, opts PoolOptions) (string, error) {
	codec, err := newStringCodec(opts)
	if err != nil {
		return "", err
	}
	return codec.encode(text), nil
}
