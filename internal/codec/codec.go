// Package codec provides compression and decompression for stored
// record values.
package codec

// Codec compresses and decompresses opaque value blobs before they
// reach the storage engine.
type Codec interface {
	// Encode compresses src and returns the result.
	Encode(src []byte) ([]byte, error)

	// Decode decompresses src and returns the result.
	Decode(src []byte) ([]byte, error)

	// Name identifies the codec (e.g. "zstd", "gzip"). Empty for no
	// compression.
	Name() string
}
