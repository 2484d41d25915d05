package tile

import (
	"encoding/binary"
	"fmt"

	"github.com/robert-malhotra/go-fits/internal/dtype"
)

// hcompressCodec implements HCOMPRESS_1: a hierarchical integer wavelet
// transform of the 2-D tile, optional quantization of the transform
// coefficients by a scale factor (lossy for scale > 1), and bit-plane
// coding of the coefficients with a quadtree over each plane.
//
// The transform is the exactly invertible integer Haar lifting scheme, so
// round trips of unquantized data are bit exact. The quantization scale is
// recorded in the stream and must match the header parameter.
type hcompressCodec struct{}

func (hcompressCodec) Name() string { return "HCOMPRESS_1" }

// Stream header magic bytes.
var hcompMagic = [2]byte{0xDD, 0x99}

func (hcompressCodec) Encode(raw []byte, p Params) ([]byte, error) {
	nx, ny, err := hcompDims(p.Dims)
	if err != nil {
		return nil, err
	}
	pixels, err := dtype.Int32sFromRaw(p.Type, raw)
	if err != nil {
		return nil, fmt.Errorf("HCOMPRESS_1 encode: %w", err)
	}
	if len(pixels) != nx*ny {
		return nil, fmt.Errorf("HCOMPRESS_1 encode: %d pixels for %dx%d tile", len(pixels), nx, ny)
	}

	coef := make([]int64, len(pixels))
	for i, v := range pixels {
		coef[i] = int64(v)
	}
	htrans(coef, nx, ny)

	scale := p.Scale
	if scale > 1 {
		digitize(coef, scale)
	} else {
		scale = 1
	}

	// Sign-magnitude split for the bit-plane coder.
	mags := make([]uint64, len(coef))
	negs := make([]bool, len(coef))
	var maxMag uint64
	for i, v := range coef {
		if v < 0 {
			negs[i] = true
			mags[i] = uint64(-v)
		} else {
			mags[i] = uint64(v)
		}
		if mags[i] > maxMag {
			maxMag = mags[i]
		}
	}
	nplanes := 0
	for m := maxMag; m > 0; m >>= 1 {
		nplanes++
	}

	head := make([]byte, 15)
	copy(head, hcompMagic[:])
	binary.BigEndian.PutUint32(head[2:], uint32(nx))
	binary.BigEndian.PutUint32(head[6:], uint32(ny))
	binary.BigEndian.PutUint32(head[10:], uint32(scale))
	head[14] = byte(nplanes)

	w := &bitWriter{}
	seen := make([]bool, len(coef))
	for plane := nplanes - 1; plane >= 0; plane-- {
		qtreeEncode(w, mags, negs, seen, uint(plane), nx, 0, 0, nx, ny)
	}
	return append(head, w.bytes()...), nil
}

func (hcompressCodec) Decode(data []byte, p Params) ([]byte, error) {
	nx, ny, err := hcompDims(p.Dims)
	if err != nil {
		return nil, err
	}
	if len(data) < 15 || data[0] != hcompMagic[0] || data[1] != hcompMagic[1] {
		return nil, fmt.Errorf("%w: HCOMPRESS_1 bad magic", ErrCorrupt)
	}
	hnx := int(binary.BigEndian.Uint32(data[2:]))
	hny := int(binary.BigEndian.Uint32(data[6:]))
	scale := int(binary.BigEndian.Uint32(data[10:]))
	nplanes := int(data[14])
	if hnx != nx || hny != ny {
		return nil, fmt.Errorf("%w: HCOMPRESS_1 tile is %dx%d, header says %dx%d", ErrCorrupt, nx, ny, hnx, hny)
	}
	if scale < 1 || nplanes > 63 {
		return nil, fmt.Errorf("%w: HCOMPRESS_1 bad parameters", ErrCorrupt)
	}

	mags := make([]uint64, nx*ny)
	negs := make([]bool, nx*ny)
	seen := make([]bool, nx*ny)
	r := newBitReader(data[15:])
	for plane := nplanes - 1; plane >= 0; plane-- {
		if err := qtreeDecode(r, mags, negs, seen, uint(plane), nx, 0, 0, nx, ny); err != nil {
			return nil, fmt.Errorf("HCOMPRESS_1: %w", err)
		}
	}

	coef := make([]int64, nx*ny)
	for i := range coef {
		coef[i] = int64(mags[i])
		if negs[i] {
			coef[i] = -coef[i]
		}
		coef[i] *= int64(scale)
	}
	hinv(coef, nx, ny)

	pixels := make([]int32, len(coef))
	for i, v := range coef {
		pixels[i] = int32(v)
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

// hcompDims interprets tile dimensions as a 2-D extent; a 1-D tile is a
// single row.
func hcompDims(dims []int) (nx, ny int, err error) {
	switch len(dims) {
	case 1:
		return dims[0], 1, nil
	case 2:
		return dims[0], dims[1], nil
	default:
		return 0, 0, fmt.Errorf("HCOMPRESS_1 requires 1-D or 2-D tiles, got rank %d", len(dims))
	}
}

// htrans applies the hierarchical integer Haar transform in place. Each
// level splits the active region into low averages and high differences
// along x then y; the next level recurses on the low-low quadrant.
func htrans(a []int64, nx, ny int) {
	cx, cy := nx, ny
	row := make([]int64, max(nx, ny))
	for cx > 1 || cy > 1 {
		if cx > 1 {
			for y := 0; y < cy; y++ {
				liftForward(a[y*nx:y*nx+cx], 1, row)
			}
		}
		if cy > 1 {
			for x := 0; x < cx; x++ {
				liftForward(a[x:x+(cy-1)*nx+1], nx, row)
			}
		}
		cx = (cx + 1) / 2
		cy = (cy + 1) / 2
	}
}

// hinv reverses htrans. Levels are undone coarsest-first, which requires
// recomputing the sequence of region sizes.
func hinv(a []int64, nx, ny int) {
	var sizes [][2]int
	cx, cy := nx, ny
	for cx > 1 || cy > 1 {
		sizes = append(sizes, [2]int{cx, cy})
		cx = (cx + 1) / 2
		cy = (cy + 1) / 2
	}
	row := make([]int64, max(nx, ny))
	for i := len(sizes) - 1; i >= 0; i-- {
		cx, cy = sizes[i][0], sizes[i][1]
		if cy > 1 {
			for x := 0; x < cx; x++ {
				liftInverse(a[x:x+(cy-1)*nx+1], nx, row)
			}
		}
		if cx > 1 {
			for y := 0; y < cy; y++ {
				liftInverse(a[y*nx:y*nx+cx], 1, row)
			}
		}
	}
}

// liftForward replaces a strided sequence with its low half (floored pair
// averages, plus the odd trailing element) followed by its high half (pair
// differences).
func liftForward(a []int64, stride int, scratch []int64) {
	n := (len(a)-1)/stride + 1
	half := (n + 1) / 2
	for i := 0; i < n/2; i++ {
		lo := a[2*i*stride]
		hi := a[(2*i+1)*stride]
		scratch[i] = (lo + hi) >> 1
		scratch[half+i] = lo - hi
	}
	if n%2 == 1 {
		scratch[half-1] = a[(n-1)*stride]
	}
	for i := 0; i < n; i++ {
		a[i*stride] = scratch[i]
	}
}

// liftInverse reverses liftForward.
func liftInverse(a []int64, stride int, scratch []int64) {
	n := (len(a)-1)/stride + 1
	half := (n + 1) / 2
	for i := 0; i < n/2; i++ {
		l := a[i*stride]
		h := a[(half+i)*stride]
		first := l + (h+1)>>1
		scratch[2*i] = first
		scratch[2*i+1] = first - h
	}
	if n%2 == 1 {
		scratch[n-1] = a[(half-1)*stride]
	}
	for i := 0; i < n; i++ {
		a[i*stride] = scratch[i]
	}
}

// digitize quantizes coefficients by scale with round-half-away division.
func digitize(a []int64, scale int) {
	s := int64(scale)
	for i, v := range a {
		if v >= 0 {
			a[i] = (v + s/2) / s
		} else {
			a[i] = -((-v + s/2) / s)
		}
	}
}

// qtreeEncode emits one bit plane of a rectangular region. A region is
// coded as a single zero bit when no coefficient in it has this plane's
// bit set; otherwise a one bit followed by its quadrants. At single
// coefficients the bit itself is emitted, with the sign bit appended the
// first time a coefficient becomes significant.
func qtreeEncode(w *bitWriter, mags []uint64, negs, seen []bool, plane uint, stride, x0, y0, wd, ht int) {
	if wd == 1 && ht == 1 {
		i := y0*stride + x0
		bit := uint(mags[i] >> plane & 1)
		w.writeBit(bit)
		if bit == 1 && !seen[i] {
			seen[i] = true
			if negs[i] {
				w.writeBit(1)
			} else {
				w.writeBit(0)
			}
		}
		return
	}

	any := uint(0)
	for y := y0; y < y0+ht && any == 0; y++ {
		for x := x0; x < x0+wd; x++ {
			if mags[y*stride+x]>>plane&1 == 1 {
				any = 1
				break
			}
		}
	}
	w.writeBit(any)
	if any == 0 {
		return
	}
	hw, hh := (wd+1)/2, (ht+1)/2
	for _, q := range quadrants(x0, y0, wd, ht, hw, hh) {
		qtreeEncode(w, mags, negs, seen, plane, stride, q[0], q[1], q[2], q[3])
	}
}

// qtreeDecode mirrors qtreeEncode.
func qtreeDecode(r *bitReader, mags []uint64, negs, seen []bool, plane uint, stride, x0, y0, wd, ht int) error {
	if wd == 1 && ht == 1 {
		bit, err := r.readBit()
		if err != nil {
			return err
		}
		if bit == 0 {
			return nil
		}
		i := y0*stride + x0
		mags[i] |= 1 << plane
		if !seen[i] {
			seen[i] = true
			sign, err := r.readBit()
			if err != nil {
				return err
			}
			negs[i] = sign == 1
		}
		return nil
	}

	any, err := r.readBit()
	if err != nil {
		return err
	}
	if any == 0 {
		return nil
	}
	hw, hh := (wd+1)/2, (ht+1)/2
	for _, q := range quadrants(x0, y0, wd, ht, hw, hh) {
		if err := qtreeDecode(r, mags, negs, seen, plane, stride, q[0], q[1], q[2], q[3]); err != nil {
			return err
		}
	}
	return nil
}

// quadrants splits a region into up to four non-empty subregions.
func quadrants(x0, y0, wd, ht, hw, hh int) [][4]int {
	var qs [][4]int
	for _, qy := range [][2]int{{y0, hh}, {y0 + hh, ht - hh}} {
		if qy[1] <= 0 {
			continue
		}
		for _, qx := range [][2]int{{x0, hw}, {x0 + hw, wd - hw}} {
			if qx[1] <= 0 {
				continue
			}
			qs = append(qs, [4]int{qx[0], qy[0], qx[1], qy[1]})
		}
	}
	return qs
}
