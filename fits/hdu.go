package fits

import (
	"fmt"

	"github.com/robert-malhotra/go-fits/internal/binary"
	"github.com/robert-malhotra/go-fits/internal/dtype"
)

// HDUType distinguishes the kinds of Header-Data Unit.
type HDUType int

const (
	// ImageHDU is the primary HDU or an IMAGE extension.
	ImageHDU HDUType = iota
	// TableHDU is a BINTABLE extension. A tile-compressed image is a
	// TableHDU on disk but reports ImageHDU; see HDU.Type.
	TableHDU
	// OpaqueHDU is any other conforming extension (for example an ASCII
	// TABLE). Its header is available but its data is not interpreted.
	OpaqueHDU
)

func (t HDUType) String() string {
	switch t {
	case ImageHDU:
		return "IMAGE"
	case TableHDU:
		return "BINTABLE"
	default:
		return "OPAQUE"
	}
}

// HDU is one Header-Data Unit of an open file.
type HDU struct {
	file  *File
	index int
	typ   HDUType

	hdrAddr  int64 // file offset of the first header block
	dataAddr int64 // file offset of the first data block
	dataSize int64 // data byte count before block padding

	header     *Header
	name       string
	version    int
	compressed bool
}

// Index returns the HDU's 0-based position in the file.
func (h *HDU) Index() int { return h.index }

// Type returns the HDU's kind. A tile-compressed image HDU reports
// ImageHDU: callers read and write it with the image accessors, and the
// binary table holding its tiles is an encoding detail.
func (h *HDU) Type() HDUType {
	if h.compressed {
		return ImageHDU
	}
	return h.typ
}

// Name returns the EXTNAME value in its original case, or "".
func (h *HDU) Name() string { return h.name }

// Version returns the EXTVER value, defaulting to 1.
func (h *HDU) Version() int { return h.version }

// Header returns the HDU's header. Mutations are in-memory until
// FlushHeader.
func (h *HDU) Header() *Header { return h.header }

// Compressed reports whether the HDU is a tile-compressed image.
func (h *HDU) Compressed() bool { return h.compressed }

// FlushHeader writes the in-memory header back to the file. If edits
// changed the header's block count the HDU must be the last in the file,
// since everything after it would otherwise need to move.
func (h *HDU) FlushHeader() error {
	if err := h.file.writable(); err != nil {
		return err
	}
	return h.rewriteHeader()
}

// paddedDataSize returns the data region size including block padding.
func (h *HDU) paddedDataSize() int64 {
	return binary.PaddedSize(h.dataSize)
}

// isLast reports whether the HDU is the final one in the file.
func (h *HDU) isLast() bool {
	return h.index == len(h.file.hdus)-1
}

// rewriteHeader serializes and writes the header at its current address.
// A size change relocates the data region, which is only possible for the
// last HDU.
func (h *HDU) rewriteHeader() error {
	raw, err := h.header.serialize()
	if err != nil {
		return err
	}
	oldSpace := h.dataAddr - h.hdrAddr
	if int64(len(raw)) == oldSpace {
		return h.file.w.At(h.hdrAddr).WriteBytes(raw)
	}
	if !h.isLast() {
		return fmt.Errorf("header changed size from %d to %d bytes: %w", oldSpace, len(raw), ErrNotLast)
	}

	data := make([]byte, h.paddedDataSize())
	if err := h.file.r.At(h.dataAddr).ReadInto(data); err != nil {
		return fmt.Errorf("relocating data: %w", err)
	}
	w := h.file.w.At(h.hdrAddr)
	if err := w.WriteBytes(raw); err != nil {
		return err
	}
	h.dataAddr = h.hdrAddr + int64(len(raw))
	if err := w.WriteBytes(data); err != nil {
		return err
	}
	return h.file.truncate(w.Pos())
}

// imageInfo decodes the image geometry keywords: the element type after
// bias promotion and the dimensions in storage order. Compressed images
// read the Z-prefixed equivalents.
func (h *HDU) imageInfo() (dtype.Type, []int, error) {
	if h.Type() != ImageHDU {
		return dtype.Invalid, nil, fmt.Errorf("HDU %d is %v, want image: %w", h.index, h.typ, ErrType)
	}
	bpKey, axKey := "BITPIX", "NAXIS"
	if h.compressed {
		bpKey, axKey = "ZBITPIX", "ZNAXIS"
	}
	bitpix, err := h.header.Int(bpKey)
	if err != nil {
		return dtype.Invalid, nil, err
	}
	stored, err := dtype.FromBitpix(int(bitpix))
	if err != nil {
		return dtype.Invalid, nil, fmt.Errorf("%w: %v", ErrType, err)
	}
	naxis, err := h.header.Int(axKey)
	if err != nil {
		return dtype.Invalid, nil, err
	}
	dims := make([]int, naxis)
	for i := range dims {
		n, err := h.header.Int(fmt.Sprintf("%s%d", axKey, i+1))
		if err != nil {
			return dtype.Invalid, nil, err
		}
		if n < 0 {
			return dtype.Invalid, nil, fmt.Errorf("%s%d = %d: %w", axKey, i+1, n, ErrFormat)
		}
		dims[i] = int(n)
	}

	// BZERO/BSCALE unsigned and signed-byte representations promote the
	// stored type; any other scaling is left to the caller.
	zero, _ := h.header.Float("BZERO")
	scale := 1.0
	if s, err := h.header.Float("BSCALE"); err == nil {
		scale = s
	}
	return dtype.WithBias(stored, zero, scale), dims, nil
}

// ImageShape returns the image dimensions in logical order, slowest axis
// first.
func (h *HDU) ImageShape() ([]int, error) {
	_, dims, err := h.imageInfo()
	if err != nil {
		return nil, err
	}
	return dtype.ReverseDims(dims), nil
}

// ImageType returns the image element type as seen by callers, after
// unsigned bias promotion.
func (h *HDU) ImageType() (DataType, error) {
	t, _, err := h.imageInfo()
	if err != nil {
		return 0, err
	}
	return publicType(t)
}
