package fits

import (
	"fmt"
	"strings"

	"github.com/robert-malhotra/go-fits/internal/dtype"
)

// ColumnSpec declares one column of a new binary table.
type ColumnSpec struct {
	Name string
	Type DataType
	// Repeat is the element count per row (field width for String
	// columns). Zero means 1. Ignored when Shape is set.
	Repeat int
	// Shape gives the per-row array shape in logical order and emits a
	// TDIM keyword.
	Shape []int
}

// tableLayout is the resolved on-disk form of a column spec.
type tableLayout struct {
	specs    []ColumnSpec
	types    []dtype.Type
	repeats  []int
	widths   []int
	rowWidth int
}

func resolveColumns(specs []ColumnSpec) (*tableLayout, error) {
	if len(specs) == 0 {
		return nil, fmt.Errorf("table has no columns: %w", ErrShape)
	}
	tl := &tableLayout{
		specs:   specs,
		types:   make([]dtype.Type, len(specs)),
		repeats: make([]int, len(specs)),
		widths:  make([]int, len(specs)),
	}
	for i, spec := range specs {
		if spec.Name == "" {
			return nil, fmt.Errorf("column %d has no name: %w", i+1, ErrFormat)
		}
		t, err := spec.Type.internal()
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", spec.Name, err)
		}
		repeat := spec.Repeat
		if len(spec.Shape) > 0 {
			repeat = dtype.NumElements(spec.Shape)
		}
		if repeat <= 0 {
			repeat = 1
		}
		tl.types[i] = t
		tl.repeats[i] = repeat
		tl.widths[i] = repeat * t.Size()
		tl.rowWidth += tl.widths[i]
	}
	return tl, nil
}

// CreateTable appends a new binary table extension. data maps column
// names to value slices of nrows*repeat elements (one string per row for
// String columns); columns absent from data are zero-filled. All present
// columns must agree on the row count.
func (f *File) CreateTable(name string, version int, specs []ColumnSpec, data map[string]any, opts ...TableOption) (*HDU, error) {
	if err := f.writable(); err != nil {
		return nil, err
	}
	if err := f.scan(); err != nil {
		return nil, err
	}
	o := defaultTableOptions()
	for _, opt := range opts {
		opt(o)
	}
	tl, err := resolveColumns(specs)
	if err != nil {
		return nil, err
	}

	values, nrows, err := matchColumns(tl, data, o)
	if err != nil {
		return nil, err
	}
	rows, err := encodeRows(tl, values, nrows)
	if err != nil {
		return nil, err
	}

	hdr := newHeader(nil)
	hdr.Set("XTENSION", "BINTABLE", "binary table extension")
	hdr.Set("BITPIX", 8, "")
	hdr.Set("NAXIS", 2, "")
	hdr.Set("NAXIS1", tl.rowWidth, "bytes per row")
	hdr.Set("NAXIS2", nrows, "number of rows")
	hdr.Set("PCOUNT", 0, "")
	hdr.Set("GCOUNT", 1, "")
	hdr.Set("TFIELDS", len(specs), "")
	for i, spec := range specs {
		n := i + 1
		hdr.Set(fmt.Sprintf("TTYPE%d", n), spec.Name, "")
		tform, err := dtype.FormatTForm(tl.repeats[i], tl.types[i])
		if err != nil {
			return nil, fmt.Errorf("column %q: %w: %v", spec.Name, ErrType, err)
		}
		hdr.Set(fmt.Sprintf("TFORM%d", n), tform, "")
		if len(spec.Shape) > 0 {
			hdr.Set(fmt.Sprintf("TDIM%d", n), dtype.FormatTDim(dtype.ReverseDims(spec.Shape)), "")
		}
		setBias(hdr, fmt.Sprintf("TSCAL%d", n), fmt.Sprintf("TZERO%d", n), tl.types[i])
	}
	setExtName(hdr, name, version)

	h := &HDU{
		typ:      TableHDU,
		hdrAddr:  f.size,
		dataSize: int64(len(rows)),
		header:   hdr,
		name:     name,
		version:  version,
	}
	if err := f.writeHDU(h, rows); err != nil {
		return nil, err
	}
	return f.appendHDU(h, f.size), nil
}

// matchColumns pairs input data with the table's columns by name,
// case-insensitively. Missing columns come back nil (zero-filled later);
// extra input columns are ignored unless strict matching is on. The
// shared row count is derived from the present columns.
func matchColumns(tl *tableLayout, data map[string]any, o *tableOptions) ([]any, int, error) {
	byName := make(map[string]any, len(data))
	used := make(map[string]bool, len(data))
	for k, v := range data {
		lk := strings.ToLower(k)
		if _, dup := byName[lk]; dup {
			return nil, 0, fmt.Errorf("input columns collide on name %q: %w", lk, ErrFormat)
		}
		byName[lk] = v
	}

	values := make([]any, len(tl.specs))
	nrows := -1
	for i, spec := range tl.specs {
		v, ok := byName[strings.ToLower(spec.Name)]
		if !ok {
			continue
		}
		used[strings.ToLower(spec.Name)] = true
		n, err := dtype.Len(v)
		if err != nil {
			return nil, 0, fmt.Errorf("column %q: %w: %v", spec.Name, ErrType, err)
		}
		per := tl.repeats[i]
		if tl.types[i] == dtype.String {
			per = 1 // one string per row, padded to the field width
		}
		if n%per != 0 {
			return nil, 0, fmt.Errorf("column %q: %d elements is not a whole number of rows: %w", spec.Name, n, ErrShape)
		}
		rows := n / per
		if nrows >= 0 && rows != nrows {
			return nil, 0, fmt.Errorf("column %q has %d rows, others have %d: %w", spec.Name, rows, nrows, ErrShape)
		}
		nrows = rows
		values[i] = v
	}
	if nrows < 0 {
		nrows = 0
	}
	if o.strictColumns {
		for k := range byName {
			if !used[k] {
				return nil, 0, fmt.Errorf("input column %q: %w", k, ErrNotFound)
			}
		}
	}
	return values, nrows, nil
}

// encodeRows interleaves per-column byte streams into fixed-width rows.
// A nil column value means zero-valued elements.
func encodeRows(tl *tableLayout, values []any, nrows int) ([]byte, error) {
	out := make([]byte, nrows*tl.rowWidth)
	colOff := 0
	for i := range tl.specs {
		width := tl.widths[i]
		raw, err := encodeColumn(tl.types[i], tl.repeats[i], values[i], nrows)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", tl.specs[i].Name, err)
		}
		for r := 0; r < nrows; r++ {
			copy(out[r*tl.rowWidth+colOff:], raw[r*width:(r+1)*width])
		}
		colOff += width
	}
	return out, nil
}

// encodeColumn produces a column's contiguous storage bytes for nrows
// rows. nil values encode as logical zeros: empty strings, false, zero
// numbers (biased types store their offset, so the values read back as
// zero, not as the bias).
func encodeColumn(t dtype.Type, repeat int, values any, nrows int) ([]byte, error) {
	width := repeat * t.Size()
	if t == dtype.String {
		var strs []string
		if values == nil {
			strs = make([]string, nrows)
		} else {
			var ok bool
			strs, ok = values.([]string)
			if !ok {
				return nil, fmt.Errorf("string column requires []string, got %T: %w", values, ErrType)
			}
		}
		out := make([]byte, nrows*width)
		for i := range out {
			out[i] = ' '
		}
		for r, s := range strs {
			if len(s) > width {
				return nil, fmt.Errorf("string %q exceeds field width %d: %w", s, width, ErrShape)
			}
			copy(out[r*width:(r+1)*width], s)
		}
		return out, nil
	}

	if values == nil {
		values = zeroValues(t, nrows*repeat)
	}
	raw, err := dtype.Encode(t, values)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrType, err)
	}
	if len(raw) != nrows*width {
		return nil, fmt.Errorf("%d bytes for %d rows of %d: %w", len(raw), nrows, width, ErrShape)
	}
	return raw, nil
}

// zeroValues returns a zero-valued slice of the logical type.
func zeroValues(t dtype.Type, n int) any {
	switch t {
	case dtype.Uint8:
		return make([]uint8, n)
	case dtype.Int8:
		return make([]int8, n)
	case dtype.Int16:
		return make([]int16, n)
	case dtype.Uint16:
		return make([]uint16, n)
	case dtype.Int32:
		return make([]int32, n)
	case dtype.Uint32:
		return make([]uint32, n)
	case dtype.Int64:
		return make([]int64, n)
	case dtype.Uint64:
		return make([]uint64, n)
	case dtype.Float32:
		return make([]float32, n)
	case dtype.Float64:
		return make([]float64, n)
	case dtype.Bool:
		return make([]bool, n)
	case dtype.Complex64:
		return make([]complex64, n)
	case dtype.Complex128:
		return make([]complex128, n)
	default:
		return nil
	}
}

// AppendRows grows the table with rows matched by column name: missing
// columns are zero-filled, extra input columns are ignored unless
// WithStrictColumns is set. The new rows and padding are written before
// NAXIS2 is updated, so a reader never sees a partial append.
func (h *HDU) AppendRows(data map[string]any, opts ...TableOption) error {
	if err := h.file.writable(); err != nil {
		return err
	}
	if h.typ != TableHDU || h.compressed {
		return fmt.Errorf("HDU %d is not a plain binary table: %w", h.index, ErrType)
	}
	if !h.isLast() {
		return fmt.Errorf("appending to HDU %d: %w", h.index, ErrNotLast)
	}
	o := defaultTableOptions()
	for _, opt := range opts {
		opt(o)
	}

	ti, err := h.tableInfo()
	if err != nil {
		return err
	}
	if ti.pcount != 0 {
		return fmt.Errorf("table has a %d-byte heap after its rows: %w", ti.pcount, ErrFormat)
	}

	tl := &tableLayout{
		specs:    make([]ColumnSpec, len(ti.cols)),
		types:    make([]dtype.Type, len(ti.cols)),
		repeats:  make([]int, len(ti.cols)),
		widths:   make([]int, len(ti.cols)),
		rowWidth: ti.rowWidth,
	}
	for i, c := range ti.cols {
		if c.form.VarLen {
			return fmt.Errorf("column %q is variable-length: %w", c.name, ErrType)
		}
		tl.specs[i] = ColumnSpec{Name: c.name}
		tl.types[i] = c.typ
		tl.repeats[i] = c.form.Repeat
		tl.widths[i] = c.width
	}

	values, nrows, err := matchColumns(tl, data, o)
	if err != nil {
		return err
	}
	if nrows == 0 {
		return nil
	}
	rows, err := encodeRows(tl, values, nrows)
	if err != nil {
		return err
	}

	// Data first: rows overwrite the old padding, new padding follows.
	w := h.file.w.At(h.dataAddr + int64(ti.rows)*int64(ti.rowWidth))
	if err := w.WriteBytes(rows); err != nil {
		return err
	}
	if err := w.PadBlock(0); err != nil {
		return err
	}
	h.file.size = w.Pos()
	h.dataSize = int64(ti.rows+nrows) * int64(ti.rowWidth)

	// Only now advertise the new rows.
	if err := h.header.Set("NAXIS2", ti.rows+nrows, ""); err != nil {
		return err
	}
	return h.rewriteHeader()
}
