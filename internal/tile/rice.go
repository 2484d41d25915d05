package tile

import (
	"fmt"

	"github.com/robert-malhotra/go-fits/internal/dtype"
)

// riceCodec implements the RICE_1 algorithm: first differences mapped to
// non-negative values, then Golomb-Rice coded per block with an adaptive
// split position chosen from the block's mean difference. The first pixel
// is stored raw.
type riceCodec struct{}

func (riceCodec) Name() string { return "RICE_1" }

// riceGeom returns the split-position field width and its saturation value
// for a pixel width in bytes.
func riceGeom(size int) (fsBits, fsMax uint, err error) {
	switch size {
	case 1:
		return 3, 6, nil
	case 2:
		return 4, 14, nil
	case 4:
		return 5, 25, nil
	default:
		return 0, 0, fmt.Errorf("RICE_1 does not support %d-byte pixels", size)
	}
}

func (riceCodec) Encode(raw []byte, p Params) ([]byte, error) {
	pixels, err := dtype.Int32sFromRaw(p.Type, raw)
	if err != nil {
		return nil, fmt.Errorf("RICE_1 encode: %w", err)
	}
	if len(pixels) == 0 {
		return nil, fmt.Errorf("RICE_1 encode: empty tile")
	}

	size := p.Type.Size()
	fsBits, fsMax, err := riceGeom(size)
	if err != nil {
		return nil, err
	}
	bBits := uint(size * 8)
	nblock := p.BlockSize
	if nblock <= 0 {
		nblock = DefaultRiceBlock
	}

	w := &bitWriter{}
	w.writeBits(uint64(uint32(pixels[0]))&(1<<bBits-1), bBits)

	lastpix := pixels[0]
	diffs := make([]uint32, nblock)
	for i := 0; i < len(pixels); i += nblock {
		this := nblock
		if len(pixels)-i < this {
			this = len(pixels) - i
		}

		// Map first differences to non-negative values: positive
		// differences become even, negative become odd.
		var pixelsum uint64
		for j := 0; j < this; j++ {
			next := pixels[i+j]
			d := next - lastpix
			if d < 0 {
				diffs[j] = ^uint32(d << 1)
			} else {
				diffs[j] = uint32(d << 1)
			}
			pixelsum += uint64(diffs[j])
			lastpix = next
		}

		// Choose the split position from the mean difference.
		var fs uint
		half := uint64(this/2) + 1
		if pixelsum > half {
			dpsum := (pixelsum - half) / uint64(this)
			for v := dpsum >> 1; v > 0; v >>= 1 {
				fs++
			}
		}

		switch {
		case pixelsum == 0:
			// All differences zero: a single code for the block.
			w.writeBits(0, fsBits)
		case fs >= fsMax:
			// Entropy too high to split: store differences raw.
			w.writeBits(uint64(fsMax)+1, fsBits)
			for j := 0; j < this; j++ {
				w.writeBits(uint64(diffs[j]), bBits)
			}
		default:
			w.writeBits(uint64(fs)+1, fsBits)
			for j := 0; j < this; j++ {
				w.writeUnary(int(diffs[j] >> fs))
				w.writeBits(uint64(diffs[j]), fs)
			}
		}
	}
	return w.bytes(), nil
}

func (riceCodec) Decode(data []byte, p Params) ([]byte, error) {
	size := p.Type.Size()
	fsBits, fsMax, err := riceGeom(size)
	if err != nil {
		return nil, err
	}
	bBits := uint(size * 8)
	nblock := p.BlockSize
	if nblock <= 0 {
		nblock = DefaultRiceBlock
	}
	npix := p.NumPixels()
	if npix == 0 {
		return nil, fmt.Errorf("%w: empty tile shape", ErrCorrupt)
	}

	r := newBitReader(data)
	first, err := r.readBits(bBits)
	if err != nil {
		return nil, fmt.Errorf("RICE_1: %w", err)
	}
	lastpix := signExtend(uint32(first), bBits)

	pixels := make([]int32, npix)
	for i := 0; i < npix; i += nblock {
		this := nblock
		if npix-i < this {
			this = npix - i
		}

		code, err := r.readBits(fsBits)
		if err != nil {
			return nil, fmt.Errorf("RICE_1: %w", err)
		}

		switch {
		case code == 0:
			for j := 0; j < this; j++ {
				pixels[i+j] = lastpix
			}
		case code == uint64(fsMax)+1:
			for j := 0; j < this; j++ {
				d, err := r.readBits(bBits)
				if err != nil {
					return nil, fmt.Errorf("RICE_1: %w", err)
				}
				lastpix = undiff(uint32(d), lastpix)
				pixels[i+j] = lastpix
			}
		default:
			fs := uint(code) - 1
			for j := 0; j < this; j++ {
				top, err := r.readUnary()
				if err != nil {
					return nil, fmt.Errorf("RICE_1: %w", err)
				}
				low, err := r.readBits(fs)
				if err != nil {
					return nil, fmt.Errorf("RICE_1: %w", err)
				}
				lastpix = undiff(uint32(top)<<fs|uint32(low), lastpix)
				pixels[i+j] = lastpix
			}
		}
	}

	raw, err := dtype.RawFromInt32s(p.Type, pixels)
	if err != nil {
		return nil, err
	}
	if err := checkDecodedSize(len(raw), p); err != nil {
		return nil, err
	}
	return raw, nil
}

// undiff reverses the non-negative difference mapping and accumulates.
func undiff(d uint32, lastpix int32) int32 {
	if d&1 != 0 {
		return lastpix + ^int32(d>>1)
	}
	return lastpix + int32(d>>1)
}

// signExtend interprets the low bits of v as a signed value of that width.
func signExtend(v uint32, bits uint) int32 {
	shift := 32 - bits
	return int32(v<<shift) >> shift
}
