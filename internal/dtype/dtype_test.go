package dtype

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestBitpixMapping(t *testing.T) {
	cases := []struct {
		bitpix int
		typ    Type
	}{
		{8, Uint8},
		{16, Int16},
		{32, Int32},
		{64, Int64},
		{-32, Float32},
		{-64, Float64},
	}
	for _, c := range cases {
		got, err := FromBitpix(c.bitpix)
		if err != nil {
			t.Fatalf("FromBitpix(%d) failed: %v", c.bitpix, err)
		}
		if got != c.typ {
			t.Errorf("FromBitpix(%d) = %s, want %s", c.bitpix, got, c.typ)
		}
		back, err := Bitpix(c.typ)
		if err != nil {
			t.Fatalf("Bitpix(%s) failed: %v", c.typ, err)
		}
		if back != c.bitpix {
			t.Errorf("Bitpix(%s) = %d, want %d", c.typ, back, c.bitpix)
		}
	}

	if _, err := FromBitpix(24); err == nil {
		t.Error("expected error for BITPIX 24")
	}
}

func TestBiasPromotion(t *testing.T) {
	cases := []struct {
		stored Type
		zero   float64
		scale  float64
		want   Type
	}{
		{Int16, 32768, 1, Uint16},
		{Int32, 2147483648, 1, Uint32},
		{Int64, 9223372036854775808, 1, Uint64},
		{Uint8, -128, 1, Int8},
		{Int16, 0, 1, Int16},
		{Int16, 32768, 2, Int16}, // non-unit scale: no promotion
	}
	for _, c := range cases {
		if got := WithBias(c.stored, c.zero, c.scale); got != c.want {
			t.Errorf("WithBias(%s, %g, %g) = %s, want %s", c.stored, c.zero, c.scale, got, c.want)
		}
	}

	for _, typ := range []Type{Int8, Uint16, Uint32, Uint64} {
		zero, ok := typ.Bias()
		if !ok {
			t.Errorf("%s: expected a bias", typ)
			continue
		}
		if got := WithBias(typ.Storage(), zero, 1); got != typ {
			t.Errorf("bias round trip for %s: got %s", typ, got)
		}
	}
}

func TestParseTForm(t *testing.T) {
	cases := []struct {
		s    string
		want TForm
	}{
		{"1J", TForm{Repeat: 1, Type: Int32}},
		{"J", TForm{Repeat: 1, Type: Int32}},
		{"16A", TForm{Repeat: 16, Type: String}},
		{"12E", TForm{Repeat: 12, Type: Float32}},
		{"3D", TForm{Repeat: 3, Type: Float64}},
		{"2M", TForm{Repeat: 2, Type: Complex128}},
		{"1PB(2880)", TForm{Repeat: 1, Type: Uint8, VarLen: true}},
		{"1QJ(100)", TForm{Repeat: 1, Type: Int32, VarLen: true}},
	}
	for _, c := range cases {
		got, err := ParseTForm(c.s)
		if err != nil {
			t.Fatalf("ParseTForm(%q) failed: %v", c.s, err)
		}
		if got != c.want {
			t.Errorf("ParseTForm(%q) = %+v, want %+v", c.s, got, c.want)
		}
	}

	for _, bad := range []string{"", "3", "Z", "1PZ(4)"} {
		if _, err := ParseTForm(bad); err == nil {
			t.Errorf("ParseTForm(%q): expected error", bad)
		}
	}
}

func TestTDimRoundTrip(t *testing.T) {
	dims := []int{3, 4, 5}
	s := FormatTDim(dims)
	if s != "(3,4,5)" {
		t.Fatalf("FormatTDim = %q", s)
	}
	back, err := ParseTDim(s)
	if err != nil {
		t.Fatalf("ParseTDim failed: %v", err)
	}
	if diff := cmp.Diff(dims, back); diff != "" {
		t.Errorf("TDIM round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestReverseDims(t *testing.T) {
	if diff := cmp.Diff([]int{5, 4, 3}, ReverseDims([]int{3, 4, 5})); diff != "" {
		t.Errorf("ReverseDims mismatch (-want +got):\n%s", diff)
	}
	if got := ReverseDims(nil); len(got) != 0 {
		t.Errorf("ReverseDims(nil) = %v", got)
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cases := []struct {
		typ    Type
		values any
	}{
		{Uint8, []uint8{0, 1, 127, 255}},
		{Int8, []int8{-128, -1, 0, 127}},
		{Int16, []int16{-32768, -1, 0, 32767}},
		{Uint16, []uint16{0, 1, 32768, 65535}},
		{Int32, []int32{-2147483648, 0, 2147483647}},
		{Uint32, []uint32{0, 2147483648, 4294967295}},
		{Int64, []int64{-9223372036854775808, 0, 9223372036854775807}},
		{Uint64, []uint64{0, 9223372036854775808, 18446744073709551615}},
		{Float32, []float32{-1.5, 0, 3.25e10}},
		{Float64, []float64{-1.5e300, 0, 2.25}},
		{Bool, []bool{true, false, true}},
		{Complex64, []complex64{complex(1, -2)}},
		{Complex128, []complex128{complex(-3.5, 4.25)}},
	}

	for _, c := range cases {
		raw, err := Encode(c.typ, c.values)
		if err != nil {
			t.Fatalf("Encode(%s) failed: %v", c.typ, err)
		}
		n, err := Len(c.values)
		if err != nil {
			t.Fatalf("Len failed: %v", err)
		}
		if len(raw) != n*c.typ.Size() {
			t.Errorf("%s: encoded %d bytes, want %d", c.typ, len(raw), n*c.typ.Size())
		}
		back, err := Decode(c.typ, raw, n)
		if err != nil {
			t.Fatalf("Decode(%s) failed: %v", c.typ, err)
		}
		if diff := cmp.Diff(c.values, back); diff != "" {
			t.Errorf("%s round trip mismatch (-want +got):\n%s", c.typ, diff)
		}
	}
}

func TestUnsignedBiasOnDisk(t *testing.T) {
	// Unsigned 16-bit values are stored as signed with a 32768 offset:
	// logical 0 must be stored as -32768 (0x8000).
	raw, err := Encode(Uint16, []uint16{0, 32768, 65535})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	want := []byte{0x80, 0x00, 0x00, 0x00, 0x7f, 0xff}
	if diff := cmp.Diff(want, raw); diff != "" {
		t.Errorf("stored bytes mismatch (-want +got):\n%s", diff)
	}
}

func TestInt32CodecBridge(t *testing.T) {
	for _, stored := range []Type{Uint8, Int16, Int32} {
		var vals []int32
		switch stored {
		case Uint8:
			vals = []int32{0, 1, 255}
		case Int16:
			vals = []int32{-32768, 0, 32767}
		case Int32:
			vals = []int32{-2147483648, 0, 2147483647}
		}
		raw, err := RawFromInt32s(stored, vals)
		if err != nil {
			t.Fatalf("RawFromInt32s(%s) failed: %v", stored, err)
		}
		back, err := Int32sFromRaw(stored, raw)
		if err != nil {
			t.Fatalf("Int32sFromRaw(%s) failed: %v", stored, err)
		}
		if diff := cmp.Diff(vals, back); diff != "" {
			t.Errorf("%s bridge mismatch (-want +got):\n%s", stored, diff)
		}
	}

	if _, err := Int32sFromRaw(Int64, nil); err == nil {
		t.Error("expected error for 8-byte codec bridge")
	}
}
