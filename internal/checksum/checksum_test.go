package checksum

import (
	"testing"
)

func TestSum32AllZeros(t *testing.T) {
	if got := Sum32(make([]byte, 2880), 0); got != 0 {
		t.Errorf("sum of zero block = 0x%08x, want 0", got)
	}
}

func TestSum32EndAroundCarry(t *testing.T) {
	// 0xFFFFFFFF + 1 wraps to 1 in ones-complement arithmetic.
	data := []byte{0xFF, 0xFF, 0xFF, 0xFF, 0x00, 0x00, 0x00, 0x01}
	if got := Sum32(data, 0); got != 1 {
		t.Errorf("sum = 0x%08x, want 1", got)
	}
}

func TestSum32Chaining(t *testing.T) {
	data := make([]byte, 128)
	for i := range data {
		data[i] = byte(i*37 + 11)
	}
	whole := Sum32(data, 0)
	chained := Sum32(data[64:], Sum32(data[:64], 0))
	if whole != chained {
		t.Errorf("chained sum 0x%08x != whole sum 0x%08x", chained, whole)
	}
}

func TestEncodeZero(t *testing.T) {
	// The complement of minus zero encodes to the all-zeros placeholder:
	// a correct HDU needs no adjustment.
	if got := Encode(0xFFFFFFFF, true); got != Placeholder {
		t.Errorf("Encode(0xFFFFFFFF, true) = %q, want %q", got, Placeholder)
	}
}

func TestEncodeAvoidsPunctuation(t *testing.T) {
	for _, v := range []uint32{0, 1, 0x0D0D0D0D, 0x12345678, 0xDEADBEEF, 0xFFFFFFFF} {
		s := Encode(v, false)
		if len(s) != 16 {
			t.Fatalf("Encode(0x%08x) length %d", v, len(s))
		}
		for i := 0; i < len(s); i++ {
			b := s[i]
			alnum := (b >= '0' && b <= '9') || (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z')
			if !alnum {
				t.Errorf("Encode(0x%08x) contains %q at %d", v, b, i)
			}
		}
	}
}

func TestEncodeReferenceVector(t *testing.T) {
	// Worked example published with the FITS checksum convention: the HDU
	// sum 868229149 (0x33C0201D) complements to 0xCC3FDFE2, whose four
	// bytes encode and interleave to this exact keyword value. Pins the
	// byte order, the character interleaving, the exclusion nudging and
	// the final rotation against the interchange format.
	const want = "hcHjjc9ghcEghc9g"
	if got := Encode(868229149, true); got != want {
		t.Errorf("Encode(868229149, true) = %q, want %q", got, want)
	}
	if got := Encode(0xCC3FDFE2, false); got != want {
		t.Errorf("Encode(0xCC3FDFE2, false) = %q, want %q", got, want)
	}
}

func TestEncodePreservesValue(t *testing.T) {
	// The four characters assigned to each byte lane must sum back to the
	// encoded byte plus four ASCII zero offsets. Undo the rotation, then
	// check every lane.
	for _, v := range []uint32{0x00000001, 0x01020304, 0x89ABCDEF, 0xFFFFFFFE} {
		s := Encode(v, false)
		var interim [16]byte
		for i := 0; i < 16; i++ {
			interim[(i+15)%16] = s[i]
		}
		for k := 0; k < 4; k++ {
			want := byte(v >> (24 - 8*k))
			sum := 0
			for j := 0; j < 4; j++ {
				sum += int(interim[4*j+k]) - '0'
			}
			if sum != int(want) {
				t.Errorf("Encode(0x%08x) lane %d sums to %d, want %d", v, k, sum, want)
			}
		}
	}
}
