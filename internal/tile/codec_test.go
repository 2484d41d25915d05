package tile

import (
	"bytes"
	"errors"
	"math/rand"
	"testing"

	"github.com/robert-malhotra/go-fits/internal/dtype"
)

func rawPixels(t *testing.T, typ dtype.Type, vals []int32) []byte {
	t.Helper()
	raw, err := dtype.RawFromInt32s(typ, vals)
	if err != nil {
		t.Fatalf("RawFromInt32s: %v", err)
	}
	return raw
}

func roundTrip(t *testing.T, name string, raw []byte, p Params) {
	t.Helper()
	c, err := Lookup(name)
	if err != nil {
		t.Fatalf("Lookup(%q): %v", name, err)
	}
	enc, err := c.Encode(raw, p)
	if err != nil {
		t.Fatalf("%s Encode: %v", name, err)
	}
	dec, err := c.Decode(enc, p)
	if err != nil {
		t.Fatalf("%s Decode: %v", name, err)
	}
	if !bytes.Equal(dec, raw) {
		t.Fatalf("%s round trip mismatch: got %d bytes, want %d", name, len(dec), len(raw))
	}
}

func TestLookupUnknown(t *testing.T) {
	if _, err := Lookup("LZ4_1"); !errors.Is(err, ErrUnknownCodec) {
		t.Fatalf("Lookup: got %v, want ErrUnknownCodec", err)
	}
}

func TestRiceRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for _, typ := range []dtype.Type{dtype.Uint8, dtype.Int16, dtype.Int32} {
		vals := make([]int32, 64*64)
		for i := range vals {
			// Smooth ramp with noise, the regime Rice is built for.
			vals[i] = int32(i/64) + rng.Int31n(16) - 8
		}
		p := Params{Type: typ, Dims: []int{64, 64}, BlockSize: DefaultRiceBlock}
		roundTrip(t, "RICE_1", rawPixels(t, typ, vals), p)
	}
}

func TestRiceExtremes(t *testing.T) {
	vals := []int32{-32768, 32767, 0, -1, 1, 32767, -32768, 0,
		100, -100, 200, -200, 300, -300, 400, -400}
	p := Params{Type: dtype.Int16, Dims: []int{16}, BlockSize: DefaultRiceBlock}
	roundTrip(t, "RICE_1", rawPixels(t, dtype.Int16, vals), p)
}

func TestRiceConstant(t *testing.T) {
	vals := make([]int32, 1024)
	for i := range vals {
		vals[i] = 7
	}
	raw := rawPixels(t, dtype.Int32, vals)
	p := Params{Type: dtype.Int32, Dims: []int{1024}, BlockSize: DefaultRiceBlock}

	c, _ := Lookup("RICE_1")
	enc, err := c.Encode(raw, p)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	// A constant image is all zero-difference blocks and must shrink.
	if len(enc) >= len(raw) {
		t.Errorf("constant image grew: %d -> %d bytes", len(raw), len(enc))
	}
	dec, err := c.Decode(enc, p)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !bytes.Equal(dec, raw) {
		t.Fatal("round trip mismatch")
	}
}

func TestRiceTruncated(t *testing.T) {
	vals := make([]int32, 256)
	for i := range vals {
		vals[i] = int32(i * 37 % 101)
	}
	raw := rawPixels(t, dtype.Int16, vals)
	p := Params{Type: dtype.Int16, Dims: []int{256}, BlockSize: DefaultRiceBlock}

	c, _ := Lookup("RICE_1")
	enc, err := c.Encode(raw, p)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if _, err := c.Decode(enc[:len(enc)/4], p); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("truncated Decode: got %v, want ErrCorrupt", err)
	}
}

func TestGzipRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	raw := make([]byte, 100*4)
	rng.Read(raw)
	p := Params{Type: dtype.Float32, Dims: []int{100}}
	roundTrip(t, "GZIP_1", raw, p)
	roundTrip(t, "GZIP_2", raw, p)
}

func TestGzip2Shuffle(t *testing.T) {
	// Byte shuffling groups the high bytes of small values, so GZIP_2
	// should beat GZIP_1 on small-magnitude 4-byte integers.
	vals := make([]int32, 4096)
	rng := rand.New(rand.NewSource(3))
	for i := range vals {
		vals[i] = rng.Int31n(50)
	}
	raw := rawPixels(t, dtype.Int32, vals)
	p := Params{Type: dtype.Int32, Dims: []int{4096}}

	g1, _ := Lookup("GZIP_1")
	g2, _ := Lookup("GZIP_2")
	e1, err := g1.Encode(raw, p)
	if err != nil {
		t.Fatalf("GZIP_1 Encode: %v", err)
	}
	e2, err := g2.Encode(raw, p)
	if err != nil {
		t.Fatalf("GZIP_2 Encode: %v", err)
	}
	if len(e2) >= len(e1) {
		t.Errorf("shuffled stream did not improve: GZIP_1=%d GZIP_2=%d", len(e1), len(e2))
	}
	roundTrip(t, "GZIP_2", raw, p)
}

func TestGzipCorrupt(t *testing.T) {
	c, _ := Lookup("GZIP_1")
	p := Params{Type: dtype.Uint8, Dims: []int{16}}
	if _, err := c.Decode([]byte("not a gzip stream"), p); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("Decode: got %v, want ErrCorrupt", err)
	}
}

func TestPlioRoundTrip(t *testing.T) {
	// Mask-like data: long zero runs, flat segments, small steps.
	vals := make([]int32, 2048)
	for i := 500; i < 900; i++ {
		vals[i] = 1
	}
	for i := 900; i < 1400; i++ {
		vals[i] = 5000
	}
	vals[1500] = 8190
	p := Params{Type: dtype.Int32, Dims: []int{2048}}
	roundTrip(t, "PLIO_1", rawPixels(t, dtype.Int32, vals), p)
}

func TestPlioRejectsNegative(t *testing.T) {
	raw := rawPixels(t, dtype.Int32, []int32{0, 1, -2, 3})
	c, _ := Lookup("PLIO_1")
	if _, err := c.Encode(raw, Params{Type: dtype.Int32, Dims: []int{4}}); err == nil {
		t.Fatal("Encode accepted a negative pixel")
	}
}

func TestPlioCorruptHeader(t *testing.T) {
	c, _ := Lookup("PLIO_1")
	p := Params{Type: dtype.Int32, Dims: []int{16}}
	if _, err := c.Decode([]byte{0, 9, 0, 0, 0, 16}, p); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("bad version: got %v, want ErrCorrupt", err)
	}
}

func TestHcompressLossless(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	vals := make([]int32, 32*48)
	for i := range vals {
		x, y := i%32, i/32
		vals[i] = int32(10*x+3*y) + rng.Int31n(20) - 10
	}
	p := Params{Type: dtype.Int32, Dims: []int{32, 48}, Scale: 0}
	roundTrip(t, "HCOMPRESS_1", rawPixels(t, dtype.Int32, vals), p)
}

func TestHcompressOddDims(t *testing.T) {
	vals := make([]int32, 17*13)
	for i := range vals {
		vals[i] = int32(i % 97)
	}
	p := Params{Type: dtype.Int16, Dims: []int{17, 13}, Scale: 1}
	roundTrip(t, "HCOMPRESS_1", rawPixels(t, dtype.Int16, vals), p)
}

func TestHcompressLossy(t *testing.T) {
	vals := make([]int32, 64*64)
	for i := range vals {
		vals[i] = int32(i)
	}
	raw := rawPixels(t, dtype.Int32, vals)
	p := Params{Type: dtype.Int32, Dims: []int{64, 64}, Scale: 16}

	c, _ := Lookup("HCOMPRESS_1")
	enc, err := c.Encode(raw, p)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	dec, err := c.Decode(enc, p)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	got, err := dtype.Int32sFromRaw(dtype.Int32, dec)
	if err != nil {
		t.Fatalf("Int32sFromRaw: %v", err)
	}
	for i, v := range got {
		d := v - vals[i]
		if d < 0 {
			d = -d
		}
		// Quantization error is bounded by a small multiple of the scale.
		if d > 16*16 {
			t.Fatalf("pixel %d: got %d, want %d +/- scale", i, v, vals[i])
		}
	}
}

func TestHcompressRejectsRank(t *testing.T) {
	c, _ := Lookup("HCOMPRESS_1")
	raw := rawPixels(t, dtype.Int32, []int32{1, 2, 3, 4, 5, 6, 7, 8})
	if _, err := c.Encode(raw, Params{Type: dtype.Int32, Dims: []int{2, 2, 2}}); err == nil {
		t.Fatal("Encode accepted a 3-D tile")
	}
}
