// Package dtype maps FITS type codes (BITPIX, TFORM) to element
// descriptors and converts between raw big-endian storage bytes and Go
// slices.
//
// FITS has no unsigned integer storage. Unsigned 16/32/64-bit elements and
// signed bytes are stored as the same-width signed type plus a fixed bias
// recorded in BZERO/TZERO. The mapping here applies the bias on encode and
// removes it on decode so callers only ever see the logical type.
package dtype

import (
	"fmt"
)

// Type identifies a logical element type. The set is closed: it is fixed
// by the FITS standard.
type Type int

const (
	Invalid Type = iota
	Uint8        // BITPIX 8 / TFORM B
	Int8         // stored as Uint8 with bias -128
	Int16        // BITPIX 16 / TFORM I
	Uint16       // stored as Int16 with bias 32768
	Int32        // BITPIX 32 / TFORM J
	Uint32       // stored as Int32 with bias 2147483648
	Int64        // BITPIX 64 / TFORM K
	Uint64       // stored as Int64 with bias 2^63
	Float32      // BITPIX -32 / TFORM E
	Float64      // BITPIX -64 / TFORM D
	Bool         // TFORM L, tables only
	String       // TFORM A, tables only
	Complex64    // TFORM C, tables only
	Complex128   // TFORM M, tables only
)

func (t Type) String() string {
	switch t {
	case Uint8:
		return "uint8"
	case Int8:
		return "int8"
	case Int16:
		return "int16"
	case Uint16:
		return "uint16"
	case Int32:
		return "int32"
	case Uint32:
		return "uint32"
	case Int64:
		return "int64"
	case Uint64:
		return "uint64"
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	case Bool:
		return "bool"
	case String:
		return "string"
	case Complex64:
		return "complex64"
	case Complex128:
		return "complex128"
	default:
		return fmt.Sprintf("invalid(%d)", int(t))
	}
}

// Size returns the storage width of one element in bytes. String elements
// are one byte per character; the column repeat count is the field width.
func (t Type) Size() int {
	switch t {
	case Uint8, Int8, Bool, String:
		return 1
	case Int16, Uint16:
		return 2
	case Int32, Uint32, Float32:
		return 4
	case Int64, Uint64, Float64, Complex64:
		return 8
	case Complex128:
		return 16
	default:
		return 0
	}
}

// Storage returns the on-disk type: the signed same-width type for the
// biased family, the type itself otherwise.
func (t Type) Storage() Type {
	switch t {
	case Int8:
		return Uint8
	case Uint16:
		return Int16
	case Uint32:
		return Int32
	case Uint64:
		return Int64
	default:
		return t
	}
}

// Bias returns the BZERO/TZERO offset that converts stored to logical
// values, and whether the type uses one. Logical = stored + bias.
func (t Type) Bias() (float64, bool) {
	switch t {
	case Int8:
		return -128, true
	case Uint16:
		return 32768, true
	case Uint32:
		return 2147483648, true
	case Uint64:
		return 9223372036854775808, true
	default:
		return 0, false
	}
}

// FromBitpix maps a BITPIX code to the stored element type.
func FromBitpix(bitpix int) (Type, error) {
	switch bitpix {
	case 8:
		return Uint8, nil
	case 16:
		return Int16, nil
	case 32:
		return Int32, nil
	case 64:
		return Int64, nil
	case -32:
		return Float32, nil
	case -64:
		return Float64, nil
	default:
		return Invalid, fmt.Errorf("unrecognized BITPIX %d", bitpix)
	}
}

// Bitpix returns the BITPIX code for a type's storage representation.
func Bitpix(t Type) (int, error) {
	switch t.Storage() {
	case Uint8:
		return 8, nil
	case Int16:
		return 16, nil
	case Int32:
		return 32, nil
	case Int64:
		return 64, nil
	case Float32:
		return -32, nil
	case Float64:
		return -64, nil
	default:
		return 0, fmt.Errorf("type %s has no BITPIX representation", t)
	}
}

// WithBias resolves a stored type plus a BZERO/TZERO pair to the logical
// type. A bias matching one of the unsigned conventions (with unit scale)
// promotes the type; any other scaling is left to the caller.
func WithBias(stored Type, zero, scale float64) Type {
	if scale != 1 {
		return stored
	}
	switch {
	case stored == Uint8 && zero == -128:
		return Int8
	case stored == Int16 && zero == 32768:
		return Uint16
	case stored == Int32 && zero == 2147483648:
		return Uint32
	case stored == Int64 && zero == 9223372036854775808:
		return Uint64
	default:
		return stored
	}
}

// ReverseDims returns the dimension sequence in opposite order. FITS
// stores shapes first-axis-fastest while the API reports row-major logical
// shapes; converting between them reverses the sequence and touches no
// data.
func ReverseDims(dims []int) []int {
	out := make([]int, len(dims))
	for i, d := range dims {
		out[len(dims)-1-i] = d
	}
	return out
}

// NumElements returns the product of a dimension sequence; the empty
// sequence has one element.
func NumElements(dims []int) int {
	n := 1
	for _, d := range dims {
		n *= d
	}
	return n
}
