// Package tile implements the FITS tile-compression codecs. A compressed
// image is stored as a binary table in which each row holds one tile's
// compressed bytes; this package turns tile pixel buffers into compressed
// byte streams and back.
//
// Codecs see stored (signed, biased) pixel values only. Scaling, bias and
// dimension-order conventions are header metadata handled by the callers.
package tile

import (
	"errors"
	"fmt"

	"github.com/robert-malhotra/go-fits/internal/dtype"
)

// ErrCorrupt is returned when a compressed payload cannot be decoded to
// the expected tile size.
var ErrCorrupt = errors.New("corrupt compressed data")

// ErrUnknownCodec is returned for an unrecognized ZCMPTYPE value.
var ErrUnknownCodec = errors.New("unrecognized compression type")

// DefaultRiceBlock is the default Rice coding block size in pixels.
const DefaultRiceBlock = 32

// Params carries the per-image codec parameters recorded in the
// compression keywords.
type Params struct {
	// Type is the storage element type of the tile pixels.
	Type dtype.Type
	// Dims is the tile extent in storage order, first axis fastest.
	// Edge tiles pass their clipped extent padded back to the full tile
	// by the caller; Dims here is always the extent of the buffer.
	Dims []int
	// BlockSize is the Rice coding block size (BLOCKSIZE parameter).
	BlockSize int
	// Scale is the HCOMPRESS quantization scale; 0 or 1 is lossless.
	Scale int
}

// NumPixels returns the pixel count of the tile the parameters describe.
func (p Params) NumPixels() int {
	return dtype.NumElements(p.Dims)
}

// Codec is one tile compression algorithm. Encode consumes and Decode
// produces raw big-endian pixel bytes of exactly the tile size.
type Codec interface {
	// Name returns the ZCMPTYPE keyword value.
	Name() string
	Encode(raw []byte, p Params) ([]byte, error)
	Decode(data []byte, p Params) ([]byte, error)
}

// registry maps ZCMPTYPE values to codecs. The set is closed by the tile
// compression convention.
var registry = map[string]Codec{
	"RICE_1":      riceCodec{},
	"GZIP_1":      gzipCodec{shuffle: false},
	"GZIP_2":      gzipCodec{shuffle: true},
	"PLIO_1":      plioCodec{},
	"HCOMPRESS_1": hcompressCodec{},
}

// Lookup returns the codec registered for a ZCMPTYPE value.
func Lookup(name string) (Codec, error) {
	c, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCodec, name)
	}
	return c, nil
}

// checkDecodedSize verifies a decode produced exactly the tile size.
func checkDecodedSize(got int, p Params) error {
	want := p.NumPixels() * p.Type.Size()
	if got != want {
		return fmt.Errorf("%w: decoded %d bytes, want %d", ErrCorrupt, got, want)
	}
	return nil
}
