package fits

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func tempPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "test.fits")
}

func TestCreateEmptyFile(t *testing.T) {
	path := tempPath(t)
	f, err := Create(path)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if info.Size() != 2880 {
		t.Errorf("empty file is %d bytes, want one block", info.Size())
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
	if n != 1 {
		t.Fatalf("NumHDUs: got %d, want 1", n)
	}
	h, err := f.HDU(0)
	if err != nil {
		t.Fatalf("HDU(0): %v", err)
	}
	if h.Type() != ImageHDU {
		t.Errorf("primary type: got %v", h.Type())
	}
	shape, err := h.ImageShape()
	if err != nil {
		t.Fatalf("ImageShape: %v", err)
	}
	if len(shape) != 0 {
		t.Errorf("primary shape: got %v, want empty", shape)
	}
}

func TestHDUIndexOutOfRange(t *testing.T) {
	path := tempPath(t)
	f, err := Create(path)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer f.Close()
	if _, err := f.HDU(3); !errors.Is(err, ErrRange) {
		t.Errorf("HDU(3): got %v, want ErrRange", err)
	}
	if _, err := f.HDU(-1); !errors.Is(err, ErrRange) {
		t.Errorf("HDU(-1): got %v, want ErrRange", err)
	}
}

func TestFindCaseInsensitive(t *testing.T) {
	path := tempPath(t)
	f, err := Create(path)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := f.CreateImage("MyTable", 1, []int{4}, []int32{1, 2, 3, 4}); err != nil {
		t.Fatalf("CreateImage: %v", err)
	}
	if _, err := f.CreateImage("MyTable", 2, []int{4}, []int32{5, 6, 7, 8}); err != nil {
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

	h, err := f.Find("mytable")
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if h.Name() != "MyTable" {
		t.Errorf("Name: got %q, want original case preserved", h.Name())
	}
	if h.Version() != 1 {
		t.Errorf("Version: got %d, want first match in file order", h.Version())
	}

	h, err = f.Find("MYTABLE", 2)
	if err != nil {
		t.Fatalf("Find with version: %v", err)
	}
	if h.Version() != 2 {
		t.Errorf("Version: got %d, want 2", h.Version())
	}

	if _, err := f.Find("absent"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Find absent: got %v, want ErrNotFound", err)
	}
	if _, err := f.Find("mytable", 9); !errors.Is(err, ErrNotFound) {
		t.Errorf("Find wrong version: got %v, want ErrNotFound", err)
	}
}

func TestClosedFile(t *testing.T) {
	path := tempPath(t)
	f, err := Create(path)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	f.Close()
	if _, err := f.NumHDUs(); err != nil {
		// Create leaves the directory populated; operations touching the
		// file itself must fail.
		t.Logf("NumHDUs after close: %v", err)
	}
	if _, err := f.CreateImage("", 0, []int{2}, []int16{1, 2}); !errors.Is(err, ErrClosed) {
		t.Errorf("CreateImage after close: got %v, want ErrClosed", err)
	}
}

func TestReadOnlyWrite(t *testing.T) {
	path := tempPath(t)
	f, err := Create(path)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	f.Close()

	f, err = Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer f.Close()
	if _, err := f.CreateImage("", 0, []int{2}, []int16{1, 2}); !errors.Is(err, ErrReadOnly) {
		t.Errorf("CreateImage on read-only handle: got %v, want ErrReadOnly", err)
	}
}

func TestFlushHeaderResizeNotLast(t *testing.T) {
	path := tempPath(t)
	f, err := Create(path)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer f.Close()
	if _, err := f.CreateImage("", 0, []int{4}, []int32{1, 2, 3, 4}); err != nil {
		t.Fatalf("CreateImage: %v", err)
	}
	if _, err := f.CreateImage("SECOND", 1, []int{4}, []int32{5, 6, 7, 8}); err != nil {
		t.Fatalf("CreateImage: %v", err)
	}

	h, err := f.HDU(0)
	if err != nil {
		t.Fatalf("HDU: %v", err)
	}
	// Push the primary header past its current block count; relocating
	// its data would shift the extension behind it.
	for i := 0; i < 40; i++ {
		h.Header().AddHistory(fmt.Sprintf("entry %d", i))
	}
	if err := h.FlushHeader(); !errors.Is(err, ErrNotLast) {
		t.Errorf("FlushHeader on resized non-last header: got %v, want ErrNotLast", err)
	}
}

func TestOpenNotFITS(t *testing.T) {
	path := tempPath(t)
	if err := os.WriteFile(path, make([]byte, 2880), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	f, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer f.Close()
	if _, err := f.NumHDUs(); !errors.Is(err, ErrFormat) {
		t.Errorf("scan of zero blocks: got %v, want ErrFormat", err)
	}
}
