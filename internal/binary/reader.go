// Package binary provides low-level binary I/O for FITS file parsing and
// writing. FITS stores all multi-byte values big-endian and aligns every
// structure to 2880-byte blocks.
package binary

import (
	"encoding/binary"
	"io"
)

// BlockSize is the fixed FITS alignment unit in bytes. Headers and data
// sections always occupy a whole number of blocks.
const BlockSize = 2880

// CardSize is the fixed size of one header card in bytes.
const CardSize = 80

// CardsPerBlock is the number of header cards in one block.
const CardsPerBlock = BlockSize / CardSize

// Reader provides positioned reads of big-endian FITS data.
type Reader struct {
	r   io.ReaderAt
	pos int64
}

// NewReader creates a reader positioned at the start of the source.
func NewReader(r io.ReaderAt) *Reader {
	return &Reader{r: r}
}

// At returns a new reader positioned at the given offset. The new reader
// shares the underlying io.ReaderAt but has independent position.
func (r *Reader) At(offset int64) *Reader {
	return &Reader{r: r.r, pos: offset}
}

// Pos returns the current read position.
func (r *Reader) Pos() int64 {
	return r.pos
}

// ReadBytes reads exactly n bytes from the current position.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	if n <= 0 {
		return nil, nil
	}
	buf := make([]byte, n)
	if _, err := r.r.ReadAt(buf, r.pos); err != nil {
		return nil, err
	}
	r.pos += int64(n)
	return buf, nil
}

// ReadInto fills buf from the current position.
func (r *Reader) ReadInto(buf []byte) error {
	if len(buf) == 0 {
		return nil
	}
	if _, err := r.r.ReadAt(buf, r.pos); err != nil {
		return err
	}
	r.pos += int64(len(buf))
	return nil
}

// ReadUint8 reads an unsigned 8-bit integer.
func (r *Reader) ReadUint8() (uint8, error) {
	buf, err := r.ReadBytes(1)
	if err != nil {
		return 0, err
	}
	return buf[0], nil
}

// ReadUint16 reads a big-endian unsigned 16-bit integer.
func (r *Reader) ReadUint16() (uint16, error) {
	buf, err := r.ReadBytes(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(buf), nil
}

// ReadUint32 reads a big-endian unsigned 32-bit integer.
func (r *Reader) ReadUint32() (uint32, error) {
	buf, err := r.ReadBytes(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(buf), nil
}

// ReadUint64 reads a big-endian unsigned 64-bit integer.
func (r *Reader) ReadUint64() (uint64, error) {
	buf, err := r.ReadBytes(8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(buf), nil
}

// ReadInt32 reads a big-endian signed 32-bit integer.
func (r *Reader) ReadInt32() (int32, error) {
	v, err := r.ReadUint32()
	return int32(v), err
}

// ReadInt64 reads a big-endian signed 64-bit integer.
func (r *Reader) ReadInt64() (int64, error) {
	v, err := r.ReadUint64()
	return int64(v), err
}

// ReadBlock reads one full 2880-byte block.
func (r *Reader) ReadBlock() ([]byte, error) {
	return r.ReadBytes(BlockSize)
}

// Skip advances the position by n bytes.
func (r *Reader) Skip(n int64) {
	r.pos += n
}

// AlignBlock advances the position to the next block boundary. If already
// aligned, the position is unchanged.
func (r *Reader) AlignBlock() {
	if rem := r.pos % BlockSize; rem != 0 {
		r.pos += BlockSize - rem
	}
}

// BlockCount returns the number of whole blocks needed to hold n bytes.
func BlockCount(n int64) int64 {
	return (n + BlockSize - 1) / BlockSize
}

// PaddedSize returns n rounded up to the next block boundary.
func PaddedSize(n int64) int64 {
	return BlockCount(n) * BlockSize
}
