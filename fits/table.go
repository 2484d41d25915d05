package fits

import (
	"fmt"
	"strings"

	"github.com/robert-malhotra/go-fits/internal/dtype"
)

// Column describes one binary-table column as callers see it: the element
// type after TZERO/TSCAL bias promotion, the per-row element count, and
// the logical per-row shape when the column carries a TDIM.
type Column struct {
	Name string
	Type DataType
	// Repeat is the number of elements per row; for String columns it is
	// the fixed field width in characters.
	Repeat int
	// Shape is the logical per-row array shape (slowest axis first), or
	// nil for flat columns.
	Shape []int
	// VarLen marks a variable-length array column. Repeat is then the
	// declared maximum element count.
	VarLen bool
}

// column is the on-disk layout of one table column.
type column struct {
	name   string
	form   dtype.TForm
	typ    dtype.Type // logical type after bias promotion
	dims   []int      // TDIM storage-order shape, nil if flat
	offset int        // byte offset in the fixed row
	width  int        // byte width in the fixed row
}

// tableInfo is the decoded layout of a binary table HDU.
type tableInfo struct {
	rows     int
	rowWidth int
	cols     []column
	theap    int64 // heap start relative to the data address
	pcount   int64
}

// tableInfo parses the table structure keywords. It is re-derived on each
// accessor call so header edits are always honored.
func (h *HDU) tableInfo() (*tableInfo, error) {
	if h.typ != TableHDU {
		return nil, fmt.Errorf("HDU %d is %v, want binary table: %w", h.index, h.typ, ErrType)
	}
	hdr := h.header
	tfields, err := hdr.Int("TFIELDS")
	if err != nil {
		return nil, err
	}
	rowWidth, err := hdr.Int("NAXIS1")
	if err != nil {
		return nil, err
	}
	rows, err := hdr.Int("NAXIS2")
	if err != nil {
		return nil, err
	}

	ti := &tableInfo{
		rows:     int(rows),
		rowWidth: int(rowWidth),
		cols:     make([]column, tfields),
	}
	offset := 0
	for i := range ti.cols {
		n := i + 1
		name, err := hdr.Str(fmt.Sprintf("TTYPE%d", n))
		if err != nil {
			return nil, fmt.Errorf("column %d: %w", n, err)
		}
		formStr, err := hdr.Str(fmt.Sprintf("TFORM%d", n))
		if err != nil {
			return nil, fmt.Errorf("column %d: %w", n, err)
		}
		form, err := dtype.ParseTForm(formStr)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w: %v", name, ErrType, err)
		}

		zero := 0.0
		if v, err := hdr.Float(fmt.Sprintf("TZERO%d", n)); err == nil {
			zero = v
		}
		scale := 1.0
		if v, err := hdr.Float(fmt.Sprintf("TSCAL%d", n)); err == nil {
			scale = v
		}

		col := column{
			name:   strings.TrimRight(name, " "),
			form:   form,
			typ:    dtype.WithBias(form.Type, zero, scale),
			offset: offset,
			width:  form.RowWidth(),
		}
		if s, err := hdr.Str(fmt.Sprintf("TDIM%d", n)); err == nil {
			dims, err := dtype.ParseTDim(s)
			if err != nil {
				return nil, fmt.Errorf("column %q: %w: %v", name, ErrFormat, err)
			}
			if !form.VarLen && dtype.NumElements(dims) != form.Repeat {
				return nil, fmt.Errorf("column %q: TDIM %v does not cover repeat %d: %w",
					name, dims, form.Repeat, ErrShape)
			}
			col.dims = dims
		}
		ti.cols[i] = col
		offset += col.width
	}
	if offset != ti.rowWidth {
		return nil, fmt.Errorf("columns sum to %d bytes, NAXIS1 is %d: %w", offset, ti.rowWidth, ErrFormat)
	}

	if v, err := hdr.Int("PCOUNT"); err == nil {
		ti.pcount = v
	}
	ti.theap = int64(ti.rowWidth) * int64(ti.rows)
	if v, err := hdr.Int("THEAP"); err == nil {
		ti.theap = v
	}
	return ti, nil
}

func (ti *tableInfo) column(name string) (*column, error) {
	for i := range ti.cols {
		if strings.EqualFold(ti.cols[i].name, name) {
			return &ti.cols[i], nil
		}
	}
	return nil, fmt.Errorf("column %q: %w", name, ErrNotFound)
}

// NumRows returns the table's row count.
func (h *HDU) NumRows() (int, error) {
	ti, err := h.tableInfo()
	if err != nil {
		return 0, err
	}
	return ti.rows, nil
}

// Columns returns the table's column descriptions in file order.
func (h *HDU) Columns() ([]Column, error) {
	ti, err := h.tableInfo()
	if err != nil {
		return nil, err
	}
	out := make([]Column, len(ti.cols))
	for i, c := range ti.cols {
		pub, err := publicType(c.typ)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", c.name, err)
		}
		out[i] = Column{
			Name:   c.name,
			Type:   pub,
			Repeat: c.form.Repeat,
			VarLen: c.form.VarLen,
		}
		if c.dims != nil {
			out[i].Shape = dtype.ReverseDims(c.dims)
		}
	}
	return out, nil
}

// ReadTable reads a row and column subset of a binary table. A nil rows
// selection means all rows in order; duplicate or reordered indices are
// honored as given. A nil cols selection means all columns. The result
// maps each selected column's name (original case) to a typed slice of
// len(rows)*repeat elements; String columns yield one trimmed string per
// row element, and variable-length columns yield a []any of per-row typed
// slices.
func (h *HDU) ReadTable(rows []int, cols []string) (map[string]any, error) {
	if err := h.file.checkOpen(); err != nil {
		return nil, err
	}
	ti, err := h.tableInfo()
	if err != nil {
		return nil, err
	}

	if rows == nil {
		rows = make([]int, ti.rows)
		for i := range rows {
			rows[i] = i
		}
	}
	for _, r := range rows {
		if r < 0 || r >= ti.rows {
			return nil, fmt.Errorf("row %d of %d: %w", r, ti.rows, ErrRange)
		}
	}

	var selected []*column
	if cols == nil {
		for i := range ti.cols {
			selected = append(selected, &ti.cols[i])
		}
	} else {
		for _, name := range cols {
			c, err := ti.column(name)
			if err != nil {
				return nil, err
			}
			selected = append(selected, c)
		}
	}

	out := make(map[string]any, len(selected))
	for _, c := range selected {
		v, err := h.readColumn(ti, c, rows)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", c.name, err)
		}
		out[c.name] = v
	}
	return out, nil
}

// readColumn materializes one column for the selected rows.
func (h *HDU) readColumn(ti *tableInfo, c *column, rows []int) (any, error) {
	if c.form.VarLen {
		return h.readVarColumn(ti, c, rows)
	}

	raw := make([]byte, len(rows)*c.width)
	for i, r := range rows {
		pos := h.dataAddr + int64(r)*int64(ti.rowWidth) + int64(c.offset)
		if err := h.file.r.At(pos).ReadInto(raw[i*c.width : (i+1)*c.width]); err != nil {
			return nil, fmt.Errorf("reading row %d: %w", r, err)
		}
	}

	if c.typ == dtype.String {
		out := make([]string, len(rows))
		for i := range out {
			field := raw[i*c.width : (i+1)*c.width]
			out[i] = strings.TrimRight(string(field), " \x00")
		}
		return out, nil
	}
	v, err := dtype.Decode(c.typ, raw, len(rows)*c.form.Repeat)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrType, err)
	}
	return v, nil
}

// readVarColumn reads a variable-length array column: each row's
// descriptor points into the heap after the fixed rows.
func (h *HDU) readVarColumn(ti *tableInfo, c *column, rows []int) (any, error) {
	out := make([]any, len(rows))
	for i, r := range rows {
		raw, count, err := h.readVarField(ti, c, r)
		if err != nil {
			return nil, err
		}
		if c.typ == dtype.String {
			out[i] = strings.TrimRight(string(raw), " \x00")
			continue
		}
		v, err := dtype.Decode(c.typ, raw, count)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrType, err)
		}
		out[i] = v
	}
	return out, nil
}

// readVarField fetches one row's variable-length array bytes from the
// heap and returns them with the element count.
func (h *HDU) readVarField(ti *tableInfo, c *column, row int) ([]byte, int, error) {
	pos := h.dataAddr + int64(row)*int64(ti.rowWidth) + int64(c.offset)
	r := h.file.r.At(pos)

	var count, heapOff int64
	if c.form.Wide {
		var err error
		if count, err = r.ReadInt64(); err != nil {
			return nil, 0, fmt.Errorf("reading descriptor: %w", err)
		}
		if heapOff, err = r.ReadInt64(); err != nil {
			return nil, 0, fmt.Errorf("reading descriptor: %w", err)
		}
	} else {
		c32, err := r.ReadInt32()
		if err != nil {
			return nil, 0, fmt.Errorf("reading descriptor: %w", err)
		}
		o32, err := r.ReadInt32()
		if err != nil {
			return nil, 0, fmt.Errorf("reading descriptor: %w", err)
		}
		count, heapOff = int64(c32), int64(o32)
	}

	size := count * int64(c.form.Type.Storage().Size())
	if count < 0 || heapOff < 0 || heapOff+size > ti.pcount {
		return nil, 0, fmt.Errorf("descriptor (%d,%d) outside heap of %d bytes: %w",
			count, heapOff, ti.pcount, ErrCorrupt)
	}
	raw := make([]byte, size)
	if err := h.file.r.At(h.dataAddr + ti.theap + heapOff).ReadInto(raw); err != nil {
		return nil, 0, fmt.Errorf("reading heap: %w", err)
	}
	return raw, int(count), nil
}
