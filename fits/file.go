package fits

import (
	"fmt"
	"os"
	"strings"

	"github.com/robert-malhotra/go-fits/internal/binary"
	"github.com/robert-malhotra/go-fits/internal/card"
)

// File represents an open FITS file. A File is safe for concurrent
// readers as long as no writer is active; mutation requires a single
// exclusive handle.
type File struct {
	path string
	file *os.File
	r    *binary.Reader
	w    *binary.Writer // nil for read-only handles

	size    int64
	hdus    []*HDU
	scanned bool
	closed  bool

	// emptyPrimary marks the placeholder primary HDU written by Create,
	// which the first uncompressed image may replace.
	emptyPrimary bool
}

// Open opens a FITS file for reading.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	return newFile(path, f, false)
}

// OpenUpdate opens an existing FITS file for reading and writing.
func OpenUpdate(path string) (*File, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	return newFile(path, f, true)
}

func newFile(path string, f *os.File, writable bool) (*File, error) {
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat: %w", err)
	}
	file := &File{
		path: path,
		file: f,
		r:    binary.NewReader(f),
		size: info.Size(),
	}
	if writable {
		file.w = binary.NewWriter(f)
	}
	return file, nil
}

// Create creates a new FITS file. A minimal primary HDU (no data) is
// written immediately so the file is valid from the start; the first
// uncompressed image written to the file replaces it.
func Create(path string) (*File, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating file: %w", err)
	}
	file := &File{
		path:    path,
		file:    f,
		r:       binary.NewReader(f),
		w:       binary.NewWriter(f),
		scanned: true,
	}
	if err := file.writeEmptyPrimary(); err != nil {
		f.Close()
		os.Remove(path)
		return nil, err
	}
	file.emptyPrimary = true
	return file, nil
}

func (f *File) writeEmptyPrimary() error {
	hdr := newHeader(nil)
	hdr.Set("SIMPLE", true, "conforms to FITS standard")
	hdr.Set("BITPIX", 8, "array data type")
	hdr.Set("NAXIS", 0, "number of array dimensions")
	hdr.Set("EXTEND", true, "")
	raw, err := hdr.serialize()
	if err != nil {
		return err
	}
	if err := f.w.At(0).WriteBytes(raw); err != nil {
		return err
	}
	f.size = int64(len(raw))
	f.hdus = []*HDU{{
		file:     f,
		index:    0,
		typ:      ImageHDU,
		hdrAddr:  0,
		dataAddr: int64(len(raw)),
		dataSize: 0,
		header:   hdr,
		version:  1,
	}}
	return nil
}

// Close closes the file. Data and header writes happen eagerly, so Close
// only releases the handle.
func (f *File) Close() error {
	if f.closed {
		return nil
	}
	f.closed = true
	return f.file.Close()
}

// Path returns the path the file was opened with.
func (f *File) Path() string { return f.path }

func (f *File) checkOpen() error {
	if f.closed {
		return ErrClosed
	}
	return nil
}

func (f *File) writable() error {
	if err := f.checkOpen(); err != nil {
		return err
	}
	if f.w == nil {
		return ErrReadOnly
	}
	return nil
}

// scan builds the HDU directory on first use: one pass over the file
// reading each header and skipping each data region. Data is not loaded.
func (f *File) scan() error {
	if f.scanned {
		return nil
	}
	if err := f.checkOpen(); err != nil {
		return err
	}
	pos := int64(0)
	for pos < f.size {
		h, next, err := f.readHDU(len(f.hdus), pos)
		if err != nil {
			return fmt.Errorf("HDU %d at offset %d: %w", len(f.hdus), pos, err)
		}
		f.hdus = append(f.hdus, h)
		pos = next
	}
	f.scanned = true
	return nil
}

// readHDU parses one HDU's header at the given offset and returns the
// HDU plus the offset of the next one.
func (f *File) readHDU(index int, pos int64) (*HDU, int64, error) {
	r := f.r.At(pos)
	cards, err := card.Read(r)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	hdr := newHeader(cards)

	h := &HDU{
		file:     f,
		index:    index,
		hdrAddr:  pos,
		dataAddr: r.Pos(),
		header:   hdr,
		version:  1,
	}

	if index == 0 {
		if ok, err := hdr.Bool("SIMPLE"); err != nil || !ok {
			return nil, 0, fmt.Errorf("primary HDU is not standard FITS: %w", ErrFormat)
		}
		h.typ = ImageHDU
	} else {
		xt, err := hdr.Str("XTENSION")
		if err != nil {
			return nil, 0, fmt.Errorf("extension without XTENSION keyword: %w", ErrFormat)
		}
		switch strings.TrimRight(xt, " ") {
		case "IMAGE":
			h.typ = ImageHDU
		case "BINTABLE":
			h.typ = TableHDU
		default:
			h.typ = OpaqueHDU
		}
	}

	if name, err := hdr.Str("EXTNAME"); err == nil {
		h.name = name
	}
	if ver, err := hdr.Int("EXTVER"); err == nil {
		h.version = int(ver)
	}
	if z, err := hdr.Bool("ZIMAGE"); err == nil && z && h.typ == TableHDU {
		h.compressed = true
	}

	h.dataSize, err = headerDataSize(hdr)
	if err != nil {
		return nil, 0, err
	}
	return h, h.dataAddr + binary.PaddedSize(h.dataSize), nil
}

// headerDataSize computes an HDU's data byte count from its sizing
// keywords: |BITPIX|/8 * GCOUNT * (PCOUNT + NAXIS1*...*NAXISn).
func headerDataSize(hdr *Header) (int64, error) {
	bitpix, err := hdr.Int("BITPIX")
	if err != nil {
		return 0, err
	}
	naxis, err := hdr.Int("NAXIS")
	if err != nil {
		return 0, err
	}
	if naxis == 0 {
		return 0, nil
	}
	elems := int64(1)
	for i := int64(1); i <= naxis; i++ {
		n, err := hdr.Int(fmt.Sprintf("NAXIS%d", i))
		if err != nil {
			return 0, err
		}
		if n < 0 {
			return 0, fmt.Errorf("NAXIS%d = %d: %w", i, n, ErrFormat)
		}
		elems *= n
	}
	pcount := int64(0)
	if v, err := hdr.Int("PCOUNT"); err == nil {
		pcount = v
	}
	gcount := int64(1)
	if v, err := hdr.Int("GCOUNT"); err == nil {
		gcount = v
	}
	width := bitpix
	if width < 0 {
		width = -width
	}
	return width / 8 * gcount * (pcount + elems), nil
}

// NumHDUs returns the number of HDUs in the file.
func (f *File) NumHDUs() (int, error) {
	if err := f.scan(); err != nil {
		return 0, err
	}
	return len(f.hdus), nil
}

// HDU returns the HDU at the given 0-based position.
func (f *File) HDU(i int) (*HDU, error) {
	if err := f.scan(); err != nil {
		return nil, err
	}
	if i < 0 || i >= len(f.hdus) {
		return nil, fmt.Errorf("HDU %d of %d: %w", i, len(f.hdus), ErrRange)
	}
	return f.hdus[i], nil
}

// Find returns the first HDU whose EXTNAME matches name, ignoring case.
// An optional version restricts the match to that EXTVER; without it the
// first name match in file order wins.
func (f *File) Find(name string, version ...int) (*HDU, error) {
	if err := f.scan(); err != nil {
		return nil, err
	}
	for _, h := range f.hdus {
		if !strings.EqualFold(h.name, name) {
			continue
		}
		if len(version) > 0 && h.version != version[0] {
			continue
		}
		return h, nil
	}
	if len(version) > 0 {
		return nil, fmt.Errorf("HDU %q version %d: %w", name, version[0], ErrNotFound)
	}
	return nil, fmt.Errorf("HDU %q: %w", name, ErrNotFound)
}

// truncate sets the file size, discarding any bytes past the new end.
func (f *File) truncate(size int64) error {
	if err := f.file.Truncate(size); err != nil {
		return fmt.Errorf("truncating: %w", err)
	}
	f.size = size
	return nil
}

// appendHDU registers a freshly written HDU as the new final directory
// entry. The caller has already written its header and padded data.
func (f *File) appendHDU(h *HDU, end int64) *HDU {
	h.file = f
	h.index = len(f.hdus)
	f.hdus = append(f.hdus, h)
	f.size = end
	return h
}
