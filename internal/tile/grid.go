package tile

import (
	"fmt"

	"github.com/robert-malhotra/go-fits/internal/dtype"
)

// Grid describes the tiling of an image. Dimensions and tile extents are
// in storage order: the first axis is contiguous on disk. Tiles are
// numbered first-axis-fastest, matching the row order of the compressed
// binary table.
type Grid struct {
	Dims     []int // full image extent
	Tile     []int // tile extent; edge tiles are clipped
	ElemSize int   // element width in bytes
}

// NewGrid validates image and tile extents. A zero or missing tile size
// defaults to whole rows: the full first axis, one element of the rest.
func NewGrid(dims, tileDims []int, elemSize int) (Grid, error) {
	if len(dims) == 0 {
		return Grid{}, fmt.Errorf("image has no dimensions")
	}
	for _, d := range dims {
		if d <= 0 {
			return Grid{}, fmt.Errorf("invalid image dimension %d", d)
		}
	}
	if len(tileDims) == 0 {
		tileDims = make([]int, len(dims))
		tileDims[0] = dims[0]
		for i := 1; i < len(dims); i++ {
			tileDims[i] = 1
		}
	}
	if len(tileDims) != len(dims) {
		return Grid{}, fmt.Errorf("tile rank %d does not match image rank %d", len(tileDims), len(dims))
	}
	tile := make([]int, len(tileDims))
	for i, td := range tileDims {
		if td <= 0 || td > dims[i] {
			td = dims[i]
		}
		tile[i] = td
	}
	return Grid{Dims: dims, Tile: tile, ElemSize: elemSize}, nil
}

// counts returns the number of tiles along each axis.
func (g Grid) counts() []int {
	n := make([]int, len(g.Dims))
	for i := range g.Dims {
		n[i] = (g.Dims[i] + g.Tile[i] - 1) / g.Tile[i]
	}
	return n
}

// NumTiles returns the total tile count.
func (g Grid) NumTiles() int {
	return dtype.NumElements(g.counts())
}

// TileAt returns the start coordinates and clipped extent of tile i in
// storage order.
func (g Grid) TileAt(i int) (start, extent []int) {
	counts := g.counts()
	start = make([]int, len(g.Dims))
	extent = make([]int, len(g.Dims))
	for d := range g.Dims {
		idx := i % counts[d]
		i /= counts[d]
		start[d] = idx * g.Tile[d]
		extent[d] = g.Tile[d]
		if start[d]+extent[d] > g.Dims[d] {
			extent[d] = g.Dims[d] - start[d]
		}
	}
	return start, extent
}

// strides returns the byte stride of each storage axis.
func (g Grid) strides() []int {
	s := make([]int, len(g.Dims))
	acc := g.ElemSize
	for i := range g.Dims {
		s[i] = acc
		acc *= g.Dims[i]
	}
	return s
}

// Extract copies the tile at (start, extent) out of the full image buffer.
// When pad is set the result is zero-filled to the full tile extent, which
// is the convention for edge tiles on encode.
func (g Grid) Extract(image []byte, start, extent []int, pad bool) []byte {
	outDims := extent
	if pad {
		outDims = g.Tile
	}
	out := make([]byte, dtype.NumElements(outDims)*g.ElemSize)

	srcStrides := g.strides()
	dstStrides := make([]int, len(outDims))
	acc := g.ElemSize
	for i := range outDims {
		dstStrides[i] = acc
		acc *= outDims[i]
	}

	g.walkRows(start, extent, srcStrides, dstStrides, func(srcOff, dstOff int) {
		copy(out[dstOff:dstOff+extent[0]*g.ElemSize], image[srcOff:])
	})
	return out
}

// Insert copies a tile buffer of the full tile extent (or the clipped
// extent) into the image at (start, extent), cropping any padding.
func (g Grid) Insert(image []byte, start, extent []int, tileBuf []byte) error {
	bufDims := g.Tile
	if len(tileBuf) == dtype.NumElements(extent)*g.ElemSize {
		bufDims = extent
	} else if len(tileBuf) != dtype.NumElements(g.Tile)*g.ElemSize {
		return fmt.Errorf("%w: tile buffer is %d bytes", ErrCorrupt, len(tileBuf))
	}

	dstStrides := g.strides()
	srcStrides := make([]int, len(bufDims))
	acc := g.ElemSize
	for i := range bufDims {
		srcStrides[i] = acc
		acc *= bufDims[i]
	}

	g.walkRows(start, extent, dstStrides, srcStrides, func(dstOff, srcOff int) {
		copy(image[dstOff:dstOff+extent[0]*g.ElemSize], tileBuf[srcOff:])
	})
	return nil
}

// walkRows visits every contiguous first-axis run of a region, calling fn
// with the byte offset of the run in the image (using imgStrides from the
// region start coordinates) and in a dense region-shaped buffer (using
// bufStrides from zero).
func (g Grid) walkRows(start, extent, imgStrides, bufStrides []int, fn func(imgOff, bufOff int)) {
	rank := len(extent)
	idx := make([]int, rank)
	for {
		imgOff := 0
		bufOff := 0
		for d := 0; d < rank; d++ {
			imgOff += (start[d] + idx[d]) * imgStrides[d]
			bufOff += idx[d] * bufStrides[d]
		}
		fn(imgOff, bufOff)

		d := 1
		for ; d < rank; d++ {
			idx[d]++
			if idx[d] < extent[d] {
				break
			}
			idx[d] = 0
		}
		if d >= rank {
			return
		}
	}
}
