// Package fits provides reading and writing of FITS (Flexible Image
// Transport System) files: sequential Header-Data Units holding
// N-dimensional images or binary tables, with support for the tile
// compression convention and header/data checksums.
package fits

import "errors"

// Common errors. Operations wrap these with context; test with errors.Is.
var (
	// ErrFormat reports a malformed header, card or block structure.
	ErrFormat = errors.New("malformed FITS structure")
	// ErrType reports an unrecognized or incompatible element type code.
	ErrType = errors.New("unsupported data type")
	// ErrShape reports a dimension or rank mismatch on write.
	ErrShape = errors.New("shape mismatch")
	// ErrNotFound reports a missing HDU, column or keyword.
	ErrNotFound = errors.New("not found")
	// ErrRange reports a row or index out of bounds.
	ErrRange = errors.New("index out of range")
	// ErrCorrupt reports compressed data that fails to decode.
	ErrCorrupt = errors.New("corrupt data")
	// ErrClosed reports an operation on a closed file.
	ErrClosed = errors.New("file is closed")
	// ErrReadOnly reports a write operation on a read-only file.
	ErrReadOnly = errors.New("file is read-only")
	// ErrNotLast reports an append or grow operation on an HDU that is
	// not the last in the file. FITS HDUs are laid out sequentially, so
	// only the final HDU can change size.
	ErrNotLast = errors.New("HDU is not last in file")
)
