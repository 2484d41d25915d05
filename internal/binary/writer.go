package binary

import (
	"encoding/binary"
	"io"
)

// Writer provides positioned writes of big-endian FITS data.
type Writer struct {
	w   io.WriterAt
	pos int64
}

// NewWriter creates a writer positioned at the start of the destination.
func NewWriter(w io.WriterAt) *Writer {
	return &Writer{w: w}
}

// At returns a new writer positioned at the given offset. The new writer
// shares the underlying io.WriterAt but has independent position.
func (w *Writer) At(offset int64) *Writer {
	return &Writer{w: w.w, pos: offset}
}

// Pos returns the current write position.
func (w *Writer) Pos() int64 {
	return w.pos
}

// WriteBytes writes the given bytes at the current position.
func (w *Writer) WriteBytes(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	n, err := w.w.WriteAt(data, w.pos)
	w.pos += int64(n)
	return err
}

// WriteUint16 writes a big-endian unsigned 16-bit integer.
func (w *Writer) WriteUint16(v uint16) error {
	buf := make([]byte, 2)
	binary.BigEndian.PutUint16(buf, v)
	return w.WriteBytes(buf)
}

// WriteUint32 writes a big-endian unsigned 32-bit integer.
func (w *Writer) WriteUint32(v uint32) error {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, v)
	return w.WriteBytes(buf)
}

// WriteUint64 writes a big-endian unsigned 64-bit integer.
func (w *Writer) WriteUint64(v uint64) error {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, v)
	return w.WriteBytes(buf)
}

// WriteInt32 writes a big-endian signed 32-bit integer.
func (w *Writer) WriteInt32(v int32) error {
	return w.WriteUint32(uint32(v))
}

// PadBlock pads from the current position to the next block boundary with
// the given fill byte. Headers pad with ASCII spaces, data with zeros.
func (w *Writer) PadBlock(fill byte) error {
	rem := w.pos % BlockSize
	if rem == 0 {
		return nil
	}
	pad := make([]byte, BlockSize-rem)
	if fill != 0 {
		for i := range pad {
			pad[i] = fill
		}
	}
	return w.WriteBytes(pad)
}
