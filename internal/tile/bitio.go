package tile

// bitWriter packs bits most-significant-first into a byte stream.
type bitWriter struct {
	buf []byte
	acc uint64
	n   uint // bits held in acc
}

// writeBits appends the low n bits of v, most significant first.
func (w *bitWriter) writeBits(v uint64, n uint) {
	if n == 0 {
		return
	}
	w.acc = w.acc<<n | v&(1<<n-1)
	w.n += n
	for w.n >= 8 {
		w.n -= 8
		w.buf = append(w.buf, byte(w.acc>>w.n))
	}
}

// writeBit appends a single bit.
func (w *bitWriter) writeBit(b uint) {
	w.writeBits(uint64(b), 1)
}

// writeUnary appends n zero bits followed by a one bit.
func (w *bitWriter) writeUnary(n int) {
	for n >= 56 {
		w.writeBits(0, 56)
		n -= 56
	}
	w.writeBits(1, uint(n)+1)
}

// bytes flushes any partial byte with zero padding and returns the stream.
func (w *bitWriter) bytes() []byte {
	if w.n > 0 {
		w.buf = append(w.buf, byte(w.acc<<(8-w.n)))
		w.acc = 0
		w.n = 0
	}
	return w.buf
}

// bitReader consumes bits most-significant-first from a byte stream.
type bitReader struct {
	data []byte
	pos  int
	acc  uint64
	n    uint
}

func newBitReader(data []byte) *bitReader {
	return &bitReader{data: data}
}

// readBits returns the next n bits, most significant first. Reading past
// the end of the stream returns ErrCorrupt.
func (r *bitReader) readBits(n uint) (uint64, error) {
	for r.n < n {
		if r.pos >= len(r.data) {
			return 0, ErrCorrupt
		}
		r.acc = r.acc<<8 | uint64(r.data[r.pos])
		r.pos++
		r.n += 8
	}
	r.n -= n
	v := r.acc >> r.n & (1<<n - 1)
	return v, nil
}

// readBit returns the next single bit.
func (r *bitReader) readBit() (uint, error) {
	v, err := r.readBits(1)
	return uint(v), err
}

// readUnary counts zero bits up to the terminating one bit.
func (r *bitReader) readUnary() (int, error) {
	n := 0
	for {
		b, err := r.readBit()
		if err != nil {
			return 0, err
		}
		if b == 1 {
			return n, nil
		}
		n++
	}
}
