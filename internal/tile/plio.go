package tile

import (
	"encoding/binary"
	"fmt"

	"github.com/robert-malhotra/go-fits/internal/dtype"
)

// plioCodec implements PLIO_1, a run-length code in the IRAF pixel-list
// tradition aimed at low-dynamic-range integer masks. The stream is a
// sequence of big-endian 16-bit words: a three-word header (version and
// the 32-bit pixel count), then instructions with a 3-bit opcode and
// 13-bit operand.
//
// Mask values must be non-negative; that is the domain the format exists
// for.
type plioCodec struct{}

// PLIO instruction opcodes.
const (
	plioZN = 0 // emit N zero pixels
	plioHN = 1 // emit N pixels of the current value
	plioSH = 2 // set the current value from the next two words
	plioIH = 3 // increment the current value by N
	plioDH = 4 // decrement the current value by N
)

const (
	plioVersion = 1
	plioMaxRun  = 1<<13 - 1
)

func (plioCodec) Name() string { return "PLIO_1" }

func (plioCodec) Encode(raw []byte, p Params) ([]byte, error) {
	pixels, err := dtype.Int32sFromRaw(p.Type, raw)
	if err != nil {
		return nil, fmt.Errorf("PLIO_1 encode: %w", err)
	}
	for _, v := range pixels {
		if v < 0 {
			return nil, fmt.Errorf("PLIO_1 encode: negative mask value %d", v)
		}
	}

	words := []uint16{
		plioVersion,
		uint16(uint32(len(pixels)) >> 16),
		uint16(uint32(len(pixels))),
	}

	current := int32(0)
	for i := 0; i < len(pixels); {
		v := pixels[i]
		run := 1
		for i+run < len(pixels) && pixels[i+run] == v {
			run++
		}
		i += run

		if v == 0 {
			words = appendRuns(words, plioZN, run)
			continue
		}
		switch delta := v - current; {
		case delta == 0:
		case delta > 0 && delta <= plioMaxRun:
			words = append(words, instr(plioIH, int(delta)))
		case delta < 0 && -delta <= plioMaxRun:
			words = append(words, instr(plioDH, int(-delta)))
		default:
			words = append(words, instr(plioSH, 0),
				uint16(uint32(v)>>16), uint16(uint32(v)))
		}
		current = v
		words = appendRuns(words, plioHN, run)
	}

	out := make([]byte, len(words)*2)
	for i, w := range words {
		binary.BigEndian.PutUint16(out[i*2:], w)
	}
	return out, nil
}

func (plioCodec) Decode(data []byte, p Params) ([]byte, error) {
	if len(data) < 6 || len(data)%2 != 0 {
		return nil, fmt.Errorf("%w: PLIO_1 stream too short", ErrCorrupt)
	}
	words := make([]uint16, len(data)/2)
	for i := range words {
		words[i] = binary.BigEndian.Uint16(data[i*2:])
	}
	if words[0] != plioVersion {
		return nil, fmt.Errorf("%w: PLIO_1 version %d", ErrCorrupt, words[0])
	}
	npix := int(uint32(words[1])<<16 | uint32(words[2]))
	if npix != p.NumPixels() {
		return nil, fmt.Errorf("%w: PLIO_1 pixel count %d, want %d", ErrCorrupt, npix, p.NumPixels())
	}

	pixels := make([]int32, 0, npix)
	current := int32(0)
	for i := 3; i < len(words); i++ {
		op := words[i] >> 13
		n := int(words[i] & plioMaxRun)
		switch op {
		case plioZN:
			for j := 0; j < n; j++ {
				pixels = append(pixels, 0)
			}
		case plioHN:
			for j := 0; j < n; j++ {
				pixels = append(pixels, current)
			}
		case plioSH:
			if i+2 >= len(words) {
				return nil, fmt.Errorf("%w: PLIO_1 truncated SH", ErrCorrupt)
			}
			current = int32(uint32(words[i+1])<<16 | uint32(words[i+2]))
			i += 2
		case plioIH:
			current += int32(n)
		case plioDH:
			current -= int32(n)
		default:
			return nil, fmt.Errorf("%w: PLIO_1 opcode %d", ErrCorrupt, op)
		}
		if len(pixels) > npix {
			return nil, fmt.Errorf("%w: PLIO_1 run past pixel count", ErrCorrupt)
		}
	}
	if len(pixels) != npix {
		return nil, fmt.Errorf("%w: PLIO_1 emitted %d of %d pixels", ErrCorrupt, len(pixels), npix)
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

// instr assembles one instruction word.
func instr(op uint16, n int) uint16 {
	return op<<13 | uint16(n)
}

// appendRuns emits run instructions, splitting counts beyond the 13-bit
// operand limit.
func appendRuns(words []uint16, op uint16, run int) []uint16 {
	for run > plioMaxRun {
		words = append(words, instr(op, plioMaxRun))
		run -= plioMaxRun
	}
	return append(words, instr(op, run))
}
