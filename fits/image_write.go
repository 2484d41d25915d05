package fits

import (
	"fmt"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/robert-malhotra/go-fits/internal/dtype"
	"github.com/robert-malhotra/go-fits/internal/tile"
)

// CreateImage appends a new image HDU holding the given pixels. shape is
// the logical shape, slowest axis first; pixels must be a flat typed
// slice of exactly the shape's element count. An empty name on a freshly
// created file replaces the placeholder primary HDU; otherwise an IMAGE
// extension (or, with compression, a tile-compressed BINTABLE extension)
// is appended.
func (f *File) CreateImage(name string, version int, shape []int, pixels any, opts ...ImageOption) (*HDU, error) {
	if err := f.writable(); err != nil {
		return nil, err
	}
	if err := f.scan(); err != nil {
		return nil, err
	}
	o := defaultImageOptions()
	for _, opt := range opts {
		opt(o)
	}

	t, err := dtype.TypeOf(pixels)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrType, err)
	}
	if _, err := dtype.Bitpix(t); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrType, err)
	}
	n, err := dtype.Len(pixels)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrType, err)
	}
	if len(shape) == 0 {
		return nil, fmt.Errorf("image has no dimensions: %w", ErrShape)
	}
	for _, d := range shape {
		if d <= 0 {
			return nil, fmt.Errorf("dimension %d: %w", d, ErrShape)
		}
	}
	if n != dtype.NumElements(shape) {
		return nil, fmt.Errorf("%d pixels for shape %v: %w", n, shape, ErrShape)
	}

	storageDims := dtype.ReverseDims(shape)
	if o.compression == "" {
		return f.writeUncompressedImage(name, version, t, storageDims, pixels)
	}
	return f.writeCompressedImage(name, version, t, storageDims, pixels, o)
}

// writeUncompressedImage writes a plain image HDU: header, big-endian
// pixel bytes, zero padding.
func (f *File) writeUncompressedImage(name string, version int, t dtype.Type, storageDims []int, pixels any) (*HDU, error) {
	raw, err := dtype.Encode(t, pixels)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrType, err)
	}

	primary := name == "" && f.emptyPrimary && len(f.hdus) == 1
	hdr := newHeader(nil)
	if primary {
		hdr.Set("SIMPLE", true, "conforms to FITS standard")
	} else {
		hdr.Set("XTENSION", "IMAGE", "image extension")
	}
	if err := setImageKeywords(hdr, t, storageDims); err != nil {
		return nil, err
	}
	if !primary {
		hdr.Set("PCOUNT", 0, "")
		hdr.Set("GCOUNT", 1, "")
	} else {
		hdr.Set("EXTEND", true, "")
	}
	setExtName(hdr, name, version)

	addr := f.size
	if primary {
		addr = 0
	}
	h := &HDU{
		typ:      ImageHDU,
		hdrAddr:  addr,
		dataSize: int64(len(raw)),
		header:   hdr,
		name:     name,
		version:  version,
	}
	if err := f.writeHDU(h, raw); err != nil {
		return nil, err
	}
	if primary {
		h.file = f
		f.hdus[0] = h
		f.emptyPrimary = false
		return h, nil
	}
	return f.appendHDU(h, f.size), nil
}

// setImageKeywords writes BITPIX, the axis keywords and the unsigned-bias
// pair for the element type.
func setImageKeywords(hdr *Header, t dtype.Type, storageDims []int) error {
	bitpix, err := dtype.Bitpix(t)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrType, err)
	}
	hdr.Set("BITPIX", bitpix, "array data type")
	hdr.Set("NAXIS", len(storageDims), "number of array dimensions")
	for i, d := range storageDims {
		hdr.Set(fmt.Sprintf("NAXIS%d", i+1), d, "")
	}
	setBias(hdr, "BSCALE", "BZERO", t)
	return nil
}

// setBias writes the scale/zero pair when the logical type is stored
// biased. The 2^63 offset for uint64 exceeds the integer card range and
// is written as an exact float.
func setBias(hdr *Header, scaleKey, zeroKey string, t dtype.Type) {
	zero, ok := t.Bias()
	if !ok {
		return
	}
	hdr.Set(scaleKey, 1, "")
	if t == dtype.Uint64 {
		hdr.Set(zeroKey, zero, "offset for unsigned storage")
	} else {
		hdr.Set(zeroKey, int64(zero), "offset for unsigned storage")
	}
}

func setExtName(hdr *Header, name string, version int) {
	if name != "" {
		hdr.Set("EXTNAME", name, "")
	}
	if version != 0 && version != 1 {
		hdr.Set("EXTVER", version, "")
	}
}

// writeHDU serializes the header and writes header, data and padding at
// h.hdrAddr, updating the file size and the HDU's data address.
func (f *File) writeHDU(h *HDU, data []byte) error {
	raw, err := h.header.serialize()
	if err != nil {
		return err
	}
	w := f.w.At(h.hdrAddr)
	if err := w.WriteBytes(raw); err != nil {
		return err
	}
	h.dataAddr = w.Pos()
	if err := w.WriteBytes(data); err != nil {
		return err
	}
	if err := w.PadBlock(0); err != nil {
		return err
	}
	if w.Pos() < f.size {
		return f.truncate(w.Pos())
	}
	f.size = w.Pos()
	return nil
}

// writeCompressedImage writes a tile-compressed image: a BINTABLE
// extension whose rows are the compressed tiles, per the ZIMAGE
// convention.
func (f *File) writeCompressedImage(name string, version int, t dtype.Type, storageDims []int, pixels any, o *imageOptions) (*HDU, error) {
	codec, err := tile.Lookup(o.compression)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrType, err)
	}

	// Float pixels only pass through the integer codecs after linear
	// quantization; the gzip codecs compress the raw bytes of any type.
	gzipCodec := o.compression == "GZIP_1" || o.compression == "GZIP_2"
	isFloat := t == dtype.Float32 || t == dtype.Float64
	quantize := isFloat && !gzipCodec
	if quantize && o.quantScale <= 0 {
		return nil, fmt.Errorf("%s on %s pixels requires WithQuantizeScale: %w", o.compression, t, ErrType)
	}

	codecTyp := t.Storage()
	var raw []byte
	var zzero, zscale float64
	if quantize {
		codecTyp = dtype.Int32
		raw, zzero, zscale, err = quantizePixels(t, pixels, o.quantScale)
	} else {
		raw, err = dtype.Encode(t, pixels)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrType, err)
	}

	tileDims := dtype.ReverseDims(o.tileDims)
	if len(o.tileDims) == 0 {
		tileDims = nil
	} else if len(o.tileDims) != len(storageDims) {
		return nil, fmt.Errorf("%d tile dimensions for a rank-%d image: %w", len(o.tileDims), len(storageDims), ErrShape)
	}
	grid, err := tile.NewGrid(storageDims, tileDims, codecTyp.Size())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrShape, err)
	}
	params := tile.Params{
		Type:      codecTyp,
		Dims:      grid.Tile,
		BlockSize: o.riceBlock,
		Scale:     o.hscale,
	}

	tiles := make([][]byte, grid.NumTiles())
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := range tiles {
		i := i
		g.Go(func() error {
			start, extent := grid.TileAt(i)
			buf := grid.Extract(raw, start, extent, true)
			enc, err := codec.Encode(buf, params)
			if err != nil {
				return fmt.Errorf("tile %d: %w", i, err)
			}
			tiles[i] = enc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Fixed rows are one P descriptor each; tile bytes go to the heap in
	// row order.
	maxLen := 0
	heapSize := 0
	for _, enc := range tiles {
		if len(enc) > maxLen {
			maxLen = len(enc)
		}
		heapSize += len(enc)
	}
	data := make([]byte, 8*len(tiles)+heapSize)
	heapOff := 8 * len(tiles)
	off := 0
	for i, enc := range tiles {
		putInt32 := func(pos int, v int32) {
			data[pos] = byte(v >> 24)
			data[pos+1] = byte(v >> 16)
			data[pos+2] = byte(v >> 8)
			data[pos+3] = byte(v)
		}
		putInt32(i*8, int32(len(enc)))
		putInt32(i*8+4, int32(off))
		copy(data[heapOff+off:], enc)
		off += len(enc)
	}

	tform, err := dtype.FormatVarTForm(dtype.Uint8, maxLen)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrType, err)
	}
	hdr := newHeader(nil)
	hdr.Set("XTENSION", "BINTABLE", "binary table extension")
	hdr.Set("BITPIX", 8, "")
	hdr.Set("NAXIS", 2, "")
	hdr.Set("NAXIS1", 8, "descriptor bytes per row")
	hdr.Set("NAXIS2", len(tiles), "one row per tile")
	hdr.Set("PCOUNT", heapSize, "heap size")
	hdr.Set("GCOUNT", 1, "")
	hdr.Set("TFIELDS", 1, "")
	hdr.Set("TTYPE1", "COMPRESSED_DATA", "")
	hdr.Set("TFORM1", tform, "")
	hdr.Set("ZIMAGE", true, "tile-compressed image")
	hdr.Set("ZCMPTYPE", o.compression, "compression algorithm")
	bitpix, err := dtype.Bitpix(t)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrType, err)
	}
	hdr.Set("ZBITPIX", bitpix, "original data type")
	hdr.Set("ZNAXIS", len(storageDims), "original dimension count")
	for i, d := range storageDims {
		hdr.Set(fmt.Sprintf("ZNAXIS%d", i+1), d, "")
	}
	for i, d := range grid.Tile {
		hdr.Set(fmt.Sprintf("ZTILE%d", i+1), d, "")
	}
	switch o.compression {
	case "RICE_1":
		hdr.Set("ZNAME1", "BLOCKSIZE", "")
		hdr.Set("ZVAL1", o.riceBlock, "")
		hdr.Set("ZNAME2", "BYTEPIX", "")
		hdr.Set("ZVAL2", codecTyp.Size(), "")
	case "HCOMPRESS_1":
		hdr.Set("ZNAME1", "SCALE", "")
		hdr.Set("ZVAL1", o.hscale, "")
	}
	if quantize {
		hdr.Set("ZSCALE", zscale, "quantization scale")
		hdr.Set("ZZERO", zzero, "quantization offset")
	}
	setBias(hdr, "BSCALE", "BZERO", t)
	setExtName(hdr, name, version)

	h := &HDU{
		typ:        TableHDU,
		compressed: true,
		hdrAddr:    f.size,
		dataSize:   int64(len(data)),
		header:     hdr,
		name:       name,
		version:    version,
	}
	if err := f.writeHDU(h, data); err != nil {
		return nil, err
	}
	return f.appendHDU(h, f.size), nil
}

// quantizePixels maps float pixels to int32 storage: stored =
// round((pixel - zero) / scale) with zero at the data minimum, so stored
// values are non-negative and survive every integer codec.
func quantizePixels(t dtype.Type, pixels any, scale float64) ([]byte, float64, float64, error) {
	var vals []float64
	switch p := pixels.(type) {
	case []float32:
		vals = make([]float64, len(p))
		for i, v := range p {
			vals[i] = float64(v)
		}
	case []float64:
		vals = p
	default:
		return nil, 0, 0, fmt.Errorf("quantization requires float pixels, got %T", pixels)
	}
	zero := math.Inf(1)
	for _, v := range vals {
		if v < zero {
			zero = v
		}
	}
	if len(vals) == 0 || math.IsInf(zero, 1) {
		zero = 0
	}
	ints := make([]int32, len(vals))
	for i, v := range vals {
		ints[i] = int32(math.Round((v - zero) / scale))
	}
	raw, err := dtype.RawFromInt32s(dtype.Int32, ints)
	if err != nil {
		return nil, 0, 0, err
	}
	return raw, zero, scale, nil
}
