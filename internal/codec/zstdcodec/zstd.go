// Package zstdcodec provides a zstd compression codec.
package zstdcodec

import (
	"github.com/klauspost/compress/zstd"

	"github.com/appstash/appstash/internal/codec"
)

// Compile-time check that Codec implements codec.Codec.
var _ codec.Codec = (*Codec)(nil)

// Codec implements zstd compression. The encoder and decoder are
// stateless across calls and safe for concurrent use.
type Codec struct {
	enc *zstd.Encoder
	dec *zstd.Decoder
}

// New returns a new zstd codec.
func New() *Codec {
	// Both constructors only fail on bad options; none are passed.
	enc, _ := zstd.NewWriter(nil)
	dec, _ := zstd.NewReader(nil)
	return &Codec{enc: enc, dec: dec}
}

// Encode compresses src with zstd.
func (c *Codec) Encode(src []byte) ([]byte, error) {
	return c.enc.EncodeAll(src, nil), nil
}

// Decode decompresses zstd data.
func (c *Codec) Decode(src []byte) ([]byte, error) {
	return c.dec.DecodeAll(src, nil)
}

// Name returns "zstd".
func (c *Codec) Name() string {
	return "zstd"
}
