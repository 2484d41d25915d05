package tile

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
)

// gzipCodec implements GZIP_1 (plain deflate of the big-endian pixel
// bytes) and GZIP_2 (the same after a byte shuffle that groups the pixels'
// first bytes, then second bytes, and so on, which helps deflate find runs
// in slowly varying data).
type gzipCodec struct {
	shuffle bool
}

func (c gzipCodec) Name() string {
	if c.shuffle {
		return "GZIP_2"
	}
	return "GZIP_1"
}

func (c gzipCodec) Encode(raw []byte, p Params) ([]byte, error) {
	if c.shuffle {
		raw = shuffleBytes(raw, p.Type.Size())
	}
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(raw); err != nil {
		return nil, fmt.Errorf("%s encode: %w", c.Name(), err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("%s encode: %w", c.Name(), err)
	}
	return buf.Bytes(), nil
}

func (c gzipCodec) Decode(data []byte, p Params) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, c.Name(), err)
	}
	defer zr.Close()

	raw, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, c.Name(), err)
	}
	if err := checkDecodedSize(len(raw), p); err != nil {
		return nil, err
	}
	if c.shuffle {
		raw = unshuffleBytes(raw, p.Type.Size())
	}
	return raw, nil
}

// shuffleBytes reorders element bytes by position: all first bytes, then
// all second bytes, and so on.
func shuffleBytes(data []byte, size int) []byte {
	if size <= 1 {
		return data
	}
	n := len(data) / size
	out := make([]byte, len(data))
	for i := 0; i < n; i++ {
		for j := 0; j < size; j++ {
			out[j*n+i] = data[i*size+j]
		}
	}
	return out
}

// unshuffleBytes reverses shuffleBytes.
func unshuffleBytes(data []byte, size int) []byte {
	if size <= 1 {
		return data
	}
	n := len(data) / size
	out := make([]byte, len(data))
	for i := 0; i < n; i++ {
		for j := 0; j < size; j++ {
			out[i*size+j] = data[j*n+i]
		}
	}
	return out
}
