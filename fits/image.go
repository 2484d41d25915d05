package fits

import (
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/robert-malhotra/go-fits/internal/dtype"
	"github.com/robert-malhotra/go-fits/internal/tile"
)

// Image is a materialized pixel array. Shape is logical, slowest axis
// first; Pixels is a flat typed slice in the same element order as the
// file, since the dimension reversal renames axes without moving data.
type Image struct {
	Shape  []int
	Type   DataType
	Pixels any
}

// Range selects a half-open interval [Start, End) along one logical axis.
type Range struct {
	Start, End int
}

// ReadImage reads the HDU's full pixel array, decompressing tiles when
// the image is stored compressed.
func (h *HDU) ReadImage() (*Image, error) {
	return h.ReadImageRange(nil)
}

// ReadImageRange reads a rectangular sub-image. Ranges are given per
// logical axis, in the same order as ImageShape; nil selects everything.
// For uncompressed images only the selected bytes are read; for
// compressed images only the tiles intersecting the box are decoded.
func (h *HDU) ReadImageRange(ranges []Range) (*Image, error) {
	if err := h.file.checkOpen(); err != nil {
		return nil, err
	}
	t, storageDims, err := h.imageInfo()
	if err != nil {
		return nil, err
	}
	pub, err := publicType(t)
	if err != nil {
		return nil, err
	}

	if len(storageDims) == 0 {
		if ranges != nil {
			return nil, fmt.Errorf("range on a dataless HDU: %w", ErrShape)
		}
		pixels, err := dtype.Decode(t, nil, 0)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrType, err)
		}
		return &Image{Shape: []int{}, Type: pub, Pixels: pixels}, nil
	}

	start, extent, err := storageRegion(storageDims, ranges)
	if err != nil {
		return nil, err
	}

	var raw []byte
	if h.compressed {
		raw, err = h.readCompressedRegion(storageDims, start, extent)
	} else {
		raw, err = h.readRegion(t.Storage().Size(), storageDims, start, extent)
	}
	if err != nil {
		return nil, err
	}

	pixels, err := h.rawToPixels(t, raw, dtype.NumElements(extent))
	if err != nil {
		return nil, err
	}
	return &Image{Shape: dtype.ReverseDims(extent), Type: pub, Pixels: pixels}, nil
}

// storageRegion converts logical-axis ranges to a storage-order start and
// extent, validating bounds.
func storageRegion(storageDims []int, ranges []Range) (start, extent []int, err error) {
	rank := len(storageDims)
	start = make([]int, rank)
	extent = make([]int, rank)
	copy(extent, storageDims)
	if ranges == nil {
		return start, extent, nil
	}
	if len(ranges) != rank {
		return nil, nil, fmt.Errorf("%d ranges for a rank-%d image: %w", len(ranges), rank, ErrShape)
	}
	for i, rg := range ranges {
		d := rank - 1 - i // logical axis i is storage axis rank-1-i
		if rg.Start < 0 || rg.End > storageDims[d] || rg.Start >= rg.End {
			return nil, nil, fmt.Errorf("range [%d,%d) on axis %d of size %d: %w",
				rg.Start, rg.End, i, storageDims[d], ErrRange)
		}
		start[d] = rg.Start
		extent[d] = rg.End - rg.Start
	}
	return start, extent, nil
}

// readRegion reads a storage-order box of an uncompressed image directly
// from the file, one contiguous first-axis run at a time.
func (h *HDU) readRegion(elemSize int, dims, start, extent []int) ([]byte, error) {
	out := make([]byte, dtype.NumElements(extent)*elemSize)

	// Whole-image reads collapse to one contiguous transfer.
	if dtype.NumElements(extent) == dtype.NumElements(dims) {
		if err := h.file.r.At(h.dataAddr).ReadInto(out); err != nil {
			return nil, fmt.Errorf("reading image data: %w", err)
		}
		return out, nil
	}

	srcStrides := byteStrides(dims, elemSize)
	dstStrides := byteStrides(extent, elemSize)
	run := extent[0] * elemSize
	var err error
	walkRegion(extent, func(idx []int) bool {
		srcOff := h.dataAddr
		dstOff := 0
		for d := range idx {
			srcOff += int64((start[d] + idx[d]) * srcStrides[d])
			dstOff += idx[d] * dstStrides[d]
		}
		if e := h.file.r.At(srcOff).ReadInto(out[dstOff : dstOff+run]); e != nil {
			err = fmt.Errorf("reading image data: %w", e)
			return false
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// rawToPixels decodes raw storage bytes to the logical element type,
// applying the ZSCALE/ZZERO dequantization for lossy-compressed floats.
func (h *HDU) rawToPixels(t dtype.Type, raw []byte, n int) (any, error) {
	if h.compressed {
		if zscale, err := h.header.Float("ZSCALE"); err == nil {
			zzero, _ := h.header.Float("ZZERO")
			ints, err := dtype.Int32sFromRaw(dtype.Int32, raw)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrType, err)
			}
			switch t {
			case dtype.Float64:
				out := make([]float64, len(ints))
				for i, v := range ints {
					out[i] = zzero + zscale*float64(v)
				}
				return out, nil
			default:
				out := make([]float32, len(ints))
				for i, v := range ints {
					out[i] = float32(zzero + zscale*float64(v))
				}
				return out, nil
			}
		}
	}
	pixels, err := dtype.Decode(t, raw, n)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrType, err)
	}
	return pixels, nil
}

// compression is the decoded tile-compression state of a ZIMAGE HDU.
type compression struct {
	codec    tile.Codec
	grid     tile.Grid
	params   tile.Params
	ti       *tableInfo
	col      *column
	codecTyp dtype.Type
}

// compressionInfo decodes the Z-prefixed convention keywords.
func (h *HDU) compressionInfo(storageDims []int) (*compression, error) {
	hdr := h.header
	name, err := hdr.Str("ZCMPTYPE")
	if err != nil {
		return nil, err
	}
	codec, err := tile.Lookup(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrType, err)
	}

	tileDims := make([]int, len(storageDims))
	for i := range tileDims {
		if v, err := hdr.Int(fmt.Sprintf("ZTILE%d", i+1)); err == nil {
			tileDims[i] = int(v)
		} else if i == 0 {
			tileDims[i] = storageDims[i]
		} else {
			tileDims[i] = 1
		}
	}

	bitpix, err := hdr.Int("ZBITPIX")
	if err != nil {
		return nil, err
	}
	stored, err := dtype.FromBitpix(int(bitpix))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrType, err)
	}

	// Quantized floats ride through the integer codecs as int32; raw
	// float bytes only survive the byte-stream gzip codecs.
	codecTyp := stored.Storage()
	if hdr.Has("ZSCALE") {
		codecTyp = dtype.Int32
	}

	grid, err := tile.NewGrid(storageDims, tileDims, codecTyp.Size())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrShape, err)
	}

	params := tile.Params{
		Type:      codecTyp,
		Dims:      grid.Tile,
		BlockSize: tile.DefaultRiceBlock,
	}
	for i := 1; ; i++ {
		zname, err := hdr.Str(fmt.Sprintf("ZNAME%d", i))
		if err != nil {
			break
		}
		val, _ := hdr.Value(fmt.Sprintf("ZVAL%d", i))
		switch zname {
		case "BLOCKSIZE":
			if v, ok := val.(int64); ok {
				params.BlockSize = int(v)
			}
		case "SCALE":
			switch v := val.(type) {
			case int64:
				params.Scale = int(v)
			case float64:
				params.Scale = int(v)
			}
		}
	}

	ti, err := h.tableInfo()
	if err != nil {
		return nil, err
	}
	if ti.rows != grid.NumTiles() {
		return nil, fmt.Errorf("table has %d rows for %d tiles: %w", ti.rows, grid.NumTiles(), ErrFormat)
	}
	col, err := ti.column("COMPRESSED_DATA")
	if err != nil {
		return nil, err
	}

	return &compression{
		codec: codec, grid: grid, params: params,
		ti: ti, col: col, codecTyp: codecTyp,
	}, nil
}

// readCompressedRegion decodes every tile intersecting the storage-order
// box and assembles the cropped results. Tiles decode in parallel; each
// writes a disjoint part of the output.
func (h *HDU) readCompressedRegion(storageDims, start, extent []int) ([]byte, error) {
	ci, err := h.compressionInfo(storageDims)
	if err != nil {
		return nil, err
	}
	elemSize := ci.codecTyp.Size()
	out := make([]byte, dtype.NumElements(extent)*elemSize)

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := 0; i < ci.grid.NumTiles(); i++ {
		i := i
		tStart, tExtent := ci.grid.TileAt(i)
		iStart, iExtent, ok := intersect(tStart, tExtent, start, extent)
		if !ok {
			continue
		}
		g.Go(func() error {
			compressed, _, err := h.readVarField(ci.ti, ci.col, i)
			if err != nil {
				return fmt.Errorf("tile %d: %w", i, err)
			}
			buf, err := ci.codec.Decode(compressed, ci.params)
			if err != nil {
				return fmt.Errorf("tile %d: %w", i, err)
			}
			srcStart := make([]int, len(iStart))
			dstStart := make([]int, len(iStart))
			for d := range iStart {
				srcStart[d] = iStart[d] - tStart[d]
				dstStart[d] = iStart[d] - start[d]
			}
			copyBlock(out, extent, dstStart, buf, ci.grid.Tile, srcStart, iExtent, elemSize)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// intersect clips two storage-order boxes against each other.
func intersect(aStart, aExtent, bStart, bExtent []int) (start, extent []int, ok bool) {
	start = make([]int, len(aStart))
	extent = make([]int, len(aStart))
	for d := range aStart {
		lo := max(aStart[d], bStart[d])
		hi := min(aStart[d]+aExtent[d], bStart[d]+bExtent[d])
		if lo >= hi {
			return nil, nil, false
		}
		start[d] = lo
		extent[d] = hi - lo
	}
	return start, extent, true
}

// byteStrides returns the byte stride of each storage axis of a dense
// buffer with the given dimensions.
func byteStrides(dims []int, elemSize int) []int {
	s := make([]int, len(dims))
	acc := elemSize
	for i := range dims {
		s[i] = acc
		acc *= dims[i]
	}
	return s
}

// walkRegion visits every first-axis run of a region in storage order,
// passing the index along each non-contiguous axis (idx[0] stays 0).
// Returning false from fn stops the walk.
func walkRegion(extent []int, fn func(idx []int) bool) {
	idx := make([]int, len(extent))
	for {
		if !fn(idx) {
			return
		}
		d := 1
		for ; d < len(extent); d++ {
			idx[d]++
			if idx[d] < extent[d] {
				break
			}
			idx[d] = 0
		}
		if d >= len(extent) {
			return
		}
	}
}

// copyBlock copies a storage-order box between two dense buffers.
func copyBlock(dst []byte, dstDims, dstStart []int, src []byte, srcDims, srcStart, extent []int, elemSize int) {
	dstStrides := byteStrides(dstDims, elemSize)
	srcStrides := byteStrides(srcDims, elemSize)
	run := extent[0] * elemSize
	walkRegion(extent, func(idx []int) bool {
		dstOff := 0
		srcOff := 0
		for d := range idx {
			dstOff += (dstStart[d] + idx[d]) * dstStrides[d]
			srcOff += (srcStart[d] + idx[d]) * srcStrides[d]
		}
		copy(dst[dstOff:dstOff+run], src[srcOff:])
		return true
	})
}
