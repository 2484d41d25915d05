package fits

import "github.com/robert-malhotra/go-fits/internal/tile"

// ImageOption configures image HDU creation.
type ImageOption func(*imageOptions)

type imageOptions struct {
	compression string
	tileDims    []int // logical order, matching the image shape
	riceBlock   int
	hscale      int
	quantScale  float64
}

func defaultImageOptions() *imageOptions {
	return &imageOptions{
		riceBlock: tile.DefaultRiceBlock,
	}
}

// WithCompression selects a tile compression algorithm by its ZCMPTYPE
// name: RICE_1, GZIP_1, GZIP_2, PLIO_1 or HCOMPRESS_1. Without this
// option images are written uncompressed.
func WithCompression(name string) ImageOption {
	return func(o *imageOptions) {
		o.compression = name
	}
}

// WithTileSize sets the compression tile dimensions, given in the same
// logical order as the image shape. The default is one tile per row.
func WithTileSize(dims ...int) ImageOption {
	return func(o *imageOptions) {
		o.tileDims = dims
	}
}

// WithRiceBlock sets the RICE_1 coding block size in pixels.
func WithRiceBlock(pixels int) ImageOption {
	return func(o *imageOptions) {
		if pixels > 0 {
			o.riceBlock = pixels
		}
	}
}

// WithHCompressScale sets the HCOMPRESS_1 quantization scale. 0 or 1 is
// lossless; larger values discard low-order transform coefficients.
func WithHCompressScale(scale int) ImageOption {
	return func(o *imageOptions) {
		if scale >= 0 {
			o.hscale = scale
		}
	}
}

// WithQuantizeScale enables lossy linear quantization of floating-point
// pixels under an integer codec: stored = round((pixel - zero) / scale),
// with the scale and offset recorded in the ZSCALE and ZZERO keywords.
func WithQuantizeScale(scale float64) ImageOption {
	return func(o *imageOptions) {
		if scale > 0 {
			o.quantScale = scale
		}
	}
}

// TableOption configures table writes.
type TableOption func(*tableOptions)

type tableOptions struct {
	strictColumns bool
}

func defaultTableOptions() *tableOptions {
	return &tableOptions{}
}

// WithStrictColumns makes appends fail when the input carries a column
// the table does not have, instead of ignoring it.
func WithStrictColumns() TableOption {
	return func(o *tableOptions) {
		o.strictColumns = true
	}
}
