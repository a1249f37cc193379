// Package compress provides the block codecs used for page data. Pages are
// compressed once at build time and decompressed on every cache miss, so the
// default codec trades encode speed for ratio; snappy is available when
// build turnaround matters more than artifact size.
package compress

import (
	"fmt"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
)

// DefaultCodec is used when the configuration names none.
const DefaultCodec = "zstd"

// Codec turns page blocks into compressed blobs and back.
type Codec interface {
	Name() string
	Compress(src []byte) ([]byte, error)
	Decompress(src []byte) ([]byte, error)
}

var codecs = map[string]func() (Codec, error){
	"zstd":   newZstdCodec,
	"snappy": newSnappyCodec,
}

// New returns the codec registered under name; the empty name selects
// DefaultCodec. The codec an index was built with must be used to read it.
func New(name string) (Codec, error) {
	if name == "" {
		name = DefaultCodec
	}
	fn, ok := codecs[name]
	if !ok {
		return nil, fmt.Errorf("compress: unknown codec %q", name)
	}
	return fn()
}

type zstdCodec struct {
	enc *zstd.Encoder
	dec *zstd.Decoder
}

func newZstdCodec() (Codec, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
	if err != nil {
		return nil, fmt.Errorf("compress: creating zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("compress: creating zstd decoder: %w", err)
	}
	return &zstdCodec{enc: enc, dec: dec}, nil
}

func (c *zstdCodec) Name() string { return "zstd" }

func (c *zstdCodec) Compress(src []byte) ([]byte, error) {
	return c.enc.EncodeAll(src, nil), nil
}

func (c *zstdCodec) Decompress(src []byte) ([]byte, error) {
	return c.dec.DecodeAll(src, nil)
}

type snappyCodec struct{}

func newSnappyCodec() (Codec, error) { return snappyCodec{}, nil }

func (snappyCodec) Name() string { return "snappy" }

func (snappyCodec) Compress(src []byte) ([]byte, error) {
	return snappy.Encode(nil, src), nil
}

func (snappyCodec) Decompress(src []byte) ([]byte, error) {
	return snappy.Decode(nil, src)
}
