package dtype

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Decode converts n elements of raw big-endian storage bytes to a Go slice
// of the logical type, removing the storage bias where the type has one.
// The result is one of []uint8, []int8, []int16, []uint16, []int32,
// []uint32, []int64, []uint64, []float32, []float64, []bool, []complex64
// or []complex128.
func Decode(t Type, raw []byte, n int) (any, error) {
	if need := n * t.Size(); len(raw) < need {
		return nil, fmt.Errorf("decoding %d %s elements: have %d bytes, need %d", n, t, len(raw), need)
	}

	switch t {
	case Uint8:
		out := make([]uint8, n)
		copy(out, raw)
		return out, nil
	case Int8:
		out := make([]int8, n)
		for i := range out {
			out[i] = int8(int16(raw[i]) - 128)
		}
		return out, nil
	case Int16:
		out := make([]int16, n)
		for i := range out {
			out[i] = int16(binary.BigEndian.Uint16(raw[i*2:]))
		}
		return out, nil
	case Uint16:
		out := make([]uint16, n)
		for i := range out {
			out[i] = uint16(int32(int16(binary.BigEndian.Uint16(raw[i*2:]))) + 32768)
		}
		return out, nil
	case Int32:
		out := make([]int32, n)
		for i := range out {
			out[i] = int32(binary.BigEndian.Uint32(raw[i*4:]))
		}
		return out, nil
	case Uint32:
		out := make([]uint32, n)
		for i := range out {
			out[i] = uint32(int64(int32(binary.BigEndian.Uint32(raw[i*4:]))) + 2147483648)
		}
		return out, nil
	case Int64:
		out := make([]int64, n)
		for i := range out {
			out[i] = int64(binary.BigEndian.Uint64(raw[i*8:]))
		}
		return out, nil
	case Uint64:
		out := make([]uint64, n)
		for i := range out {
			stored := int64(binary.BigEndian.Uint64(raw[i*8:]))
			out[i] = uint64(stored) + 1<<63
		}
		return out, nil
	case Float32:
		out := make([]float32, n)
		for i := range out {
			out[i] = math.Float32frombits(binary.BigEndian.Uint32(raw[i*4:]))
		}
		return out, nil
	case Float64:
		out := make([]float64, n)
		for i := range out {
			out[i] = math.Float64frombits(binary.BigEndian.Uint64(raw[i*8:]))
		}
		return out, nil
	case Bool:
		out := make([]bool, n)
		for i := range out {
			out[i] = raw[i] == 'T'
		}
		return out, nil
	case Complex64:
		out := make([]complex64, n)
		for i := range out {
			re := math.Float32frombits(binary.BigEndian.Uint32(raw[i*8:]))
			im := math.Float32frombits(binary.BigEndian.Uint32(raw[i*8+4:]))
			out[i] = complex(re, im)
		}
		return out, nil
	case Complex128:
		out := make([]complex128, n)
		for i := range out {
			re := math.Float64frombits(binary.BigEndian.Uint64(raw[i*16:]))
			im := math.Float64frombits(binary.BigEndian.Uint64(raw[i*16+8:]))
			out[i] = complex(re, im)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("cannot decode element type %s", t)
	}
}

// Encode converts a Go slice of the logical type to raw big-endian storage
// bytes, applying the storage bias where the type has one. values must be
// the slice type Decode returns for t.
func Encode(t Type, values any) ([]byte, error) {
	switch t {
	case Uint8:
		v, err := sliceOf[uint8](t, values)
		if err != nil {
			return nil, err
		}
		out := make([]byte, len(v))
		copy(out, v)
		return out, nil
	case Int8:
		v, err := sliceOf[int8](t, values)
		if err != nil {
			return nil, err
		}
		out := make([]byte, len(v))
		for i, x := range v {
			out[i] = byte(int16(x) + 128)
		}
		return out, nil
	case Int16:
		v, err := sliceOf[int16](t, values)
		if err != nil {
			return nil, err
		}
		out := make([]byte, len(v)*2)
		for i, x := range v {
			binary.BigEndian.PutUint16(out[i*2:], uint16(x))
		}
		return out, nil
	case Uint16:
		v, err := sliceOf[uint16](t, values)
		if err != nil {
			return nil, err
		}
		out := make([]byte, len(v)*2)
		for i, x := range v {
			binary.BigEndian.PutUint16(out[i*2:], uint16(int32(x)-32768))
		}
		return out, nil
	case Int32:
		v, err := sliceOf[int32](t, values)
		if err != nil {
			return nil, err
		}
		out := make([]byte, len(v)*4)
		for i, x := range v {
			binary.BigEndian.PutUint32(out[i*4:], uint32(x))
		}
		return out, nil
	case Uint32:
		v, err := sliceOf[uint32](t, values)
		if err != nil {
			return nil, err
		}
		out := make([]byte, len(v)*4)
		for i, x := range v {
			binary.BigEndian.PutUint32(out[i*4:], uint32(int64(x)-2147483648))
		}
		return out, nil
	case Int64:
		v, err := sliceOf[int64](t, values)
		if err != nil {
			return nil, err
		}
		out := make([]byte, len(v)*8)
		for i, x := range v {
			binary.BigEndian.PutUint64(out[i*8:], uint64(x))
		}
		return out, nil
	case Uint64:
		v, err := sliceOf[uint64](t, values)
		if err != nil {
			return nil, err
		}
		out := make([]byte, len(v)*8)
		for i, x := range v {
			binary.BigEndian.PutUint64(out[i*8:], uint64(int64(x-1<<63)))
		}
		return out, nil
	case Float32:
		v, err := sliceOf[float32](t, values)
		if err != nil {
			return nil, err
		}
		out := make([]byte, len(v)*4)
		for i, x := range v {
			binary.BigEndian.PutUint32(out[i*4:], math.Float32bits(x))
		}
		return out, nil
	case Float64:
		v, err := sliceOf[float64](t, values)
		if err != nil {
			return nil, err
		}
		out := make([]byte, len(v)*8)
		for i, x := range v {
			binary.BigEndian.PutUint64(out[i*8:], math.Float64bits(x))
		}
		return out, nil
	case Bool:
		v, err := sliceOf[bool](t, values)
		if err != nil {
			return nil, err
		}
		out := make([]byte, len(v))
		for i, x := range v {
			if x {
				out[i] = 'T'
			} else {
				out[i] = 'F'
			}
		}
		return out, nil
	case Complex64:
		v, err := sliceOf[complex64](t, values)
		if err != nil {
			return nil, err
		}
		out := make([]byte, len(v)*8)
		for i, x := range v {
			binary.BigEndian.PutUint32(out[i*8:], math.Float32bits(real(x)))
			binary.BigEndian.PutUint32(out[i*8+4:], math.Float32bits(imag(x)))
		}
		return out, nil
	case Complex128:
		v, err := sliceOf[complex128](t, values)
		if err != nil {
			return nil, err
		}
		out := make([]byte, len(v)*16)
		for i, x := range v {
			binary.BigEndian.PutUint64(out[i*16:], math.Float64bits(real(x)))
			binary.BigEndian.PutUint64(out[i*16+8:], math.Float64bits(imag(x)))
		}
		return out, nil
	default:
		return nil, fmt.Errorf("cannot encode element type %s", t)
	}
}

// Len returns the element count of a slice produced by Decode.
func Len(values any) (int, error) {
	switch v := values.(type) {
	case []uint8:
		return len(v), nil
	case []int8:
		return len(v), nil
	case []int16:
		return len(v), nil
	case []uint16:
		return len(v), nil
	case []int32:
		return len(v), nil
	case []uint32:
		return len(v), nil
	case []int64:
		return len(v), nil
	case []uint64:
		return len(v), nil
	case []float32:
		return len(v), nil
	case []float64:
		return len(v), nil
	case []bool:
		return len(v), nil
	case []string:
		return len(v), nil
	case []complex64:
		return len(v), nil
	case []complex128:
		return len(v), nil
	default:
		return 0, fmt.Errorf("unsupported value slice type %T", values)
	}
}

// TypeOf returns the logical element type of a value slice.
func TypeOf(values any) (Type, error) {
	switch values.(type) {
	case []uint8:
		return Uint8, nil
	case []int8:
		return Int8, nil
	case []int16:
		return Int16, nil
	case []uint16:
		return Uint16, nil
	case []int32:
		return Int32, nil
	case []uint32:
		return Uint32, nil
	case []int64:
		return Int64, nil
	case []uint64:
		return Uint64, nil
	case []float32:
		return Float32, nil
	case []float64:
		return Float64, nil
	case []bool:
		return Bool, nil
	case []string:
		return String, nil
	case []complex64:
		return Complex64, nil
	case []complex128:
		return Complex128, nil
	default:
		return Invalid, fmt.Errorf("unsupported value slice type %T", values)
	}
}

func sliceOf[T any](t Type, values any) ([]T, error) {
	v, ok := values.([]T)
	if !ok {
		return nil, fmt.Errorf("element type %s requires %T, got %T", t, []T(nil), values)
	}
	return v, nil
}

// Int32sFromRaw widens raw storage bytes of a 1/2/4-byte integer type to
// int32 values for the integer tile codecs. The codecs operate on stored
// (biased) values; the bias is metadata they never see.
func Int32sFromRaw(stored Type, raw []byte) ([]int32, error) {
	switch stored {
	case Uint8:
		out := make([]int32, len(raw))
		for i, b := range raw {
			out[i] = int32(b)
		}
		return out, nil
	case Int16:
		out := make([]int32, len(raw)/2)
		for i := range out {
			out[i] = int32(int16(binary.BigEndian.Uint16(raw[i*2:])))
		}
		return out, nil
	case Int32:
		out := make([]int32, len(raw)/4)
		for i := range out {
			out[i] = int32(binary.BigEndian.Uint32(raw[i*4:]))
		}
		return out, nil
	default:
		return nil, fmt.Errorf("type %s is not a codec integer type", stored)
	}
}

// RawFromInt32s narrows int32 codec values back to raw storage bytes of a
// 1/2/4-byte integer type.
func RawFromInt32s(stored Type, vals []int32) ([]byte, error) {
	switch stored {
	case Uint8:
		out := make([]byte, len(vals))
		for i, v := range vals {
			out[i] = byte(v)
		}
		return out, nil
	case Int16:
		out := make([]byte, len(vals)*2)
		for i, v := range vals {
			binary.BigEndian.PutUint16(out[i*2:], uint16(int16(v)))
		}
		return out, nil
	case Int32:
		out := make([]byte, len(vals)*4)
		for i, v := range vals {
			binary.BigEndian.PutUint32(out[i*4:], uint32(v))
		}
		return out, nil
	default:
		return nil, fmt.Errorf("type %s is not a codec integer type", stored)
	}
}
