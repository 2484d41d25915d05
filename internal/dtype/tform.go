package dtype

import (
	"fmt"
	"strconv"
	"strings"
)

// TForm describes one parsed TFORM code: an optional repeat count, a type
// letter, and for P/Q descriptors the element type of the pointed-to
// variable-length array.
type TForm struct {
	Repeat int
	Type   Type
	VarLen bool // P/Q descriptor column
	Wide   bool // Q descriptor: 64-bit length and offset words
}

// letterTypes maps binary-table TFORM letters to element types.
var letterTypes = map[byte]Type{
	'L': Bool,
	'B': Uint8,
	'I': Int16,
	'J': Int32,
	'K': Int64,
	'A': String,
	'E': Float32,
	'D': Float64,
	'C': Complex64,
	'M': Complex128,
}

// typeLetters is the inverse of letterTypes.
var typeLetters = map[Type]byte{
	Bool:       'L',
	Uint8:      'B',
	Int8:       'B',
	Int16:      'I',
	Uint16:     'I',
	Int32:      'J',
	Uint32:     'J',
	Int64:      'K',
	Uint64:     'K',
	String:     'A',
	Float32:    'E',
	Float64:    'D',
	Complex64:  'C',
	Complex128: 'M',
}

// ParseTForm parses a binary-table TFORM value such as "1J", "16A",
// "3E" or "1PB(2880)".
func ParseTForm(s string) (TForm, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return TForm{}, fmt.Errorf("empty TFORM")
	}

	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	repeat := 1
	if i > 0 {
		r, err := strconv.Atoi(s[:i])
		if err != nil {
			return TForm{}, fmt.Errorf("invalid TFORM repeat in %q", s)
		}
		repeat = r
	}
	if i == len(s) {
		return TForm{}, fmt.Errorf("TFORM %q has no type code", s)
	}

	letter := s[i]
	varlen := false
	wide := false
	if letter == 'P' || letter == 'Q' {
		varlen = true
		wide = letter == 'Q'
		i++
		if i == len(s) {
			return TForm{}, fmt.Errorf("TFORM %q descriptor has no element type", s)
		}
		letter = s[i]
	}

	t, ok := letterTypes[letter]
	if !ok {
		return TForm{}, fmt.Errorf("unrecognized TFORM code %q", s)
	}
	return TForm{Repeat: repeat, Type: t, VarLen: varlen, Wide: wide}, nil
}

// RowWidth returns the byte width the column occupies in the fixed part
// of a table row: element bytes times repeat for fixed columns, or the
// descriptor pair size for P/Q columns.
func (tf TForm) RowWidth() int {
	if tf.VarLen {
		if tf.Wide {
			return 16
		}
		return 8
	}
	return tf.Repeat * tf.Type.Size()
}

// FormatTForm renders a TFORM value for a fixed-width column. The letter
// is chosen from the type's storage representation; biased types carry
// their TZERO separately.
func FormatTForm(repeat int, t Type) (string, error) {
	letter, ok := typeLetters[t]
	if !ok {
		return "", fmt.Errorf("type %s has no TFORM code", t)
	}
	return fmt.Sprintf("%d%c", repeat, letter), nil
}

// FormatVarTForm renders a P-descriptor TFORM for a variable-length column
// with the given maximum element count.
func FormatVarTForm(t Type, maxElems int) (string, error) {
	letter, ok := typeLetters[t]
	if !ok {
		return "", fmt.Errorf("type %s has no TFORM code", t)
	}
	return fmt.Sprintf("1P%c(%d)", letter, maxElems), nil
}

// ParseTDim parses a TDIM value such as "(3,4)" into storage-order
// dimension sizes.
func ParseTDim(s string) ([]int, error) {
	s = strings.TrimSpace(s)
	if len(s) < 2 || s[0] != '(' || s[len(s)-1] != ')' {
		return nil, fmt.Errorf("invalid TDIM %q", s)
	}
	parts := strings.Split(s[1:len(s)-1], ",")
	dims := make([]int, len(parts))
	for i, p := range parts {
		d, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || d < 0 {
			return nil, fmt.Errorf("invalid TDIM %q", s)
		}
		dims[i] = d
	}
	return dims, nil
}

// FormatTDim renders storage-order dimensions as a TDIM value.
func FormatTDim(dims []int) string {
	parts := make([]string, len(dims))
	for i, d := range dims {
		parts[i] = strconv.Itoa(d)
	}
	return "(" + strings.Join(parts, ",") + ")"
}
