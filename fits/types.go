package fits

import (
	"fmt"

	"github.com/robert-malhotra/go-fits/internal/dtype"
)

// DataType identifies the element type of image pixels and table columns.
// Unsigned integer types and Int8 are stored on disk as their signed (or
// unsigned, for Int8) counterparts plus a bias keyword; the accessors
// apply and remove the bias so callers only ever see these types.
type DataType int

const (
	Uint8 DataType = iota + 1
	Int8
	Int16
	Uint16
	Int32
	Uint32
	Int64
	Uint64
	Float32
	Float64
	Bool
	String
	Complex64
	Complex128
)

var toInternal = map[DataType]dtype.Type{
	Uint8:      dtype.Uint8,
	Int8:       dtype.Int8,
	Int16:      dtype.Int16,
	Uint16:     dtype.Uint16,
	Int32:      dtype.Int32,
	Uint32:     dtype.Uint32,
	Int64:      dtype.Int64,
	Uint64:     dtype.Uint64,
	Float32:    dtype.Float32,
	Float64:    dtype.Float64,
	Bool:       dtype.Bool,
	String:     dtype.String,
	Complex64:  dtype.Complex64,
	Complex128: dtype.Complex128,
}

var fromInternal = func() map[dtype.Type]DataType {
	m := make(map[dtype.Type]DataType, len(toInternal))
	for pub, in := range toInternal {
		m[in] = pub
	}
	return m
}()

func (t DataType) String() string {
	if in, ok := toInternal[t]; ok {
		return in.String()
	}
	return fmt.Sprintf("DataType(%d)", int(t))
}

// Size returns the element size in bytes (1 for String, per character).
func (t DataType) Size() int {
	if in, ok := toInternal[t]; ok {
		return in.Size()
	}
	return 0
}

func (t DataType) internal() (dtype.Type, error) {
	in, ok := toInternal[t]
	if !ok {
		return dtype.Invalid, fmt.Errorf("%w: %v", ErrType, t)
	}
	return in, nil
}

func publicType(in dtype.Type) (DataType, error) {
	t, ok := fromInternal[in]
	if !ok {
		return 0, fmt.Errorf("%w: %v", ErrType, in)
	}
	return t, nil
}
