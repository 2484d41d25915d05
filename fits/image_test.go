package fits

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// writeReadImage round-trips one image through a fresh file.
func writeReadImage(t *testing.T, shape []int, pixels any, opts ...ImageOption) *Image {
	t.Helper()
	path := tempPath(t)
	f, err := Create(path)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := f.CreateImage("", 0, shape, pixels, opts...); err != nil {
		t.Fatalf("CreateImage: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	f, err = Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer f.Close()
	n, err := f.NumHDUs()
	if err != nil {
		t.Fatalf("NumHDUs: %v", err)
	}
	h, err := f.HDU(n - 1)
	if err != nil {
		t.Fatalf("HDU: %v", err)
	}
	img, err := h.ReadImage()
	if err != nil {
		t.Fatalf("ReadImage: %v", err)
	}
	return img
}

func TestImageRoundTripAllTypes(t *testing.T) {
	shape := []int{3, 4}
	cases := []struct {
		name   string
		pixels any
	}{
		{"uint8", []uint8{0, 1, 127, 128, 255, 5, 6, 7, 8, 9, 10, 11}},
		{"int8", []int8{-128, -1, 0, 1, 127, 5, -6, 7, -8, 9, -10, 11}},
		{"int16", []int16{-32768, -1, 0, 1, 32767, 5, 6, 7, 8, 9, 10, 11}},
		{"uint16", []uint16{0, 1, 32768, 65535, 4, 5, 6, 7, 8, 9, 10, 11}},
		{"int32", []int32{-2147483648, -1, 0, 1, 2147483647, 5, 6, 7, 8, 9, 10, 11}},
		{"uint32", []uint32{0, 1, 2147483648, 4294967295, 4, 5, 6, 7, 8, 9, 10, 11}},
		{"int64", []int64{-9223372036854775808, -1, 0, 1, 9223372036854775807, 5, 6, 7, 8, 9, 10, 11}},
		{"uint64", []uint64{0, 1, 9223372036854775808, 18446744073709551615, 4, 5, 6, 7, 8, 9, 10, 11}},
		{"float32", []float32{-1.5, 0, 1.5, 3.25, 4, 5, 6, 7, 8, 9, 10, 11}},
		{"float64", []float64{-1.5, 0, 1.5, 3.25, 4, 5, 6, 7, 8, 9, 10, 11}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			img := writeReadImage(t, shape, c.pixels)
			if diff := cmp.Diff(shape, img.Shape); diff != "" {
				t.Errorf("shape (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(c.pixels, img.Pixels); diff != "" {
				t.Errorf("pixels (-want +got):\n%s", diff)
			}
		})
	}
}

func TestShapeLaw(t *testing.T) {
	// A rows-by-cols logical shape persists its dimension keywords
	// reversed and reads back unreversed, with the data untouched.
	rows, cols := 4096, 2048
	pixels := make([]uint8, rows*cols)
	for i := range pixels {
		pixels[i] = uint8(i)
	}
	path := tempPath(t)
	f, err := Create(path)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := f.CreateImage("", 0, []int{rows, cols}, pixels); err != nil {
		t.Fatalf("CreateImage: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	f, err = Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer f.Close()
	h, err := f.HDU(0)
	if err != nil {
		t.Fatalf("HDU: %v", err)
	}
	if v, _ := h.Header().Int("NAXIS1"); v != int64(cols) {
		t.Errorf("NAXIS1: got %d, want %d", v, cols)
	}
	if v, _ := h.Header().Int("NAXIS2"); v != int64(rows) {
		t.Errorf("NAXIS2: got %d, want %d", v, rows)
	}
	img, err := h.ReadImage()
	if err != nil {
		t.Fatalf("ReadImage: %v", err)
	}
	if diff := cmp.Diff([]int{rows, cols}, img.Shape); diff != "" {
		t.Errorf("shape (-want +got):\n%s", diff)
	}
	got := img.Pixels.([]uint8)
	if got[0] != pixels[0] || got[len(got)-1] != pixels[len(pixels)-1] {
		t.Error("pixel order changed")
	}
}

func TestImageRangeRead(t *testing.T) {
	// 6x8 image; read the logical box rows [2,5) x cols [3,7).
	pixels := make([]int32, 6*8)
	for i := range pixels {
		pixels[i] = int32(i)
	}
	path := tempPath(t)
	f, err := Create(path)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := f.CreateImage("", 0, []int{6, 8}, pixels); err != nil {
		t.Fatalf("CreateImage: %v", err)
	}
	h, err := f.HDU(0)
	if err != nil {
		t.Fatalf("HDU: %v", err)
	}
	img, err := h.ReadImageRange([]Range{{2, 5}, {3, 7}})
	if err != nil {
		t.Fatalf("ReadImageRange: %v", err)
	}
	if diff := cmp.Diff([]int{3, 4}, img.Shape); diff != "" {
		t.Fatalf("shape (-want +got):\n%s", diff)
	}
	got := img.Pixels.([]int32)
	for r := 0; r < 3; r++ {
		for c := 0; c < 4; c++ {
			want := int32((r+2)*8 + c + 3)
			if got[r*4+c] != want {
				t.Fatalf("pixel (%d,%d): got %d, want %d", r, c, got[r*4+c], want)
			}
		}
	}

	if _, err := h.ReadImageRange([]Range{{0, 6}}); !errors.Is(err, ErrShape) {
		t.Errorf("rank mismatch: got %v, want ErrShape", err)
	}
	if _, err := h.ReadImageRange([]Range{{0, 7}, {0, 8}}); !errors.Is(err, ErrRange) {
		t.Errorf("out of bounds: got %v, want ErrRange", err)
	}
	f.Close()
}

func TestImageShapeMismatch(t *testing.T) {
	path := tempPath(t)
	f, err := Create(path)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer f.Close()
	if _, err := f.CreateImage("", 0, []int{3, 3}, []int16{1, 2, 3}); !errors.Is(err, ErrShape) {
		t.Errorf("CreateImage: got %v, want ErrShape", err)
	}
	if _, err := f.CreateImage("", 0, []int{0, 3}, []int16{}); !errors.Is(err, ErrShape) {
		t.Errorf("zero dimension: got %v, want ErrShape", err)
	}
}

func TestImageEmptyShapeRejected(t *testing.T) {
	// A rank-0 shape would write pixel bytes under an NAXIS=0 header,
	// which advertises no data and breaks the offsets of every following
	// HDU on the next scan.
	path := tempPath(t)
	f, err := Create(path)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer f.Close()
	if _, err := f.CreateImage("", 0, nil, []int32{42}); !errors.Is(err, ErrShape) {
		t.Errorf("nil shape: got %v, want ErrShape", err)
	}
	if _, err := f.CreateImage("", 0, []int{}, []int32{42}); !errors.Is(err, ErrShape) {
		t.Errorf("empty shape: got %v, want ErrShape", err)
	}

	// The rejected writes must leave the file fully scannable.
	if _, err := f.CreateImage("SKY", 1, []int{2, 2}, []int32{1, 2, 3, 4}); err != nil {
		t.Fatalf("CreateImage after rejection: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	f, err = Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer f.Close()
	if n, err := f.NumHDUs(); err != nil || n != 2 {
		t.Fatalf("NumHDUs: got %d, %v", n, err)
	}
}

func TestImageExtension(t *testing.T) {
	path := tempPath(t)
	f, err := Create(path)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	// A named image does not replace the primary.
	if _, err := f.CreateImage("SCI", 1, []int{2, 2}, []float32{1, 2, 3, 4}); err != nil {
		t.Fatalf("CreateImage: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	f, err = Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer f.Close()
	n, _ := f.NumHDUs()
	if n != 2 {
		t.Fatalf("NumHDUs: got %d, want primary + extension", n)
	}
	h, err := f.Find("SCI")
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if xt, _ := h.Header().Str("XTENSION"); xt != "IMAGE" {
		t.Errorf("XTENSION: got %q", xt)
	}
	img, err := h.ReadImage()
	if err != nil {
		t.Fatalf("ReadImage: %v", err)
	}
	if diff := cmp.Diff([]float32{1, 2, 3, 4}, img.Pixels); diff != "" {
		t.Errorf("pixels (-want +got):\n%s", diff)
	}
}
