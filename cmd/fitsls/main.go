// Command fitsls lists the HDUs of FITS files: position, type, name and
// version, image geometry and compression. It can also dump headers and
// verify checksums.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"

	"github.com/robert-malhotra/go-fits/fits"
)

var (
	showHeader = pflag.BoolP("header", "H", false, "dump every header card")
	verify     = pflag.BoolP("verify", "c", false, "verify DATASUM/CHECKSUM keywords")
)

func main() {
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: fitsls [flags] <file.fits>...\n")
		pflag.PrintDefaults()
	}
	pflag.Parse()
	if pflag.NArg() == 0 {
		pflag.Usage()
		os.Exit(2)
	}

	exit := 0
	for _, path := range pflag.Args() {
		if err := list(path); err != nil {
			fmt.Fprintf(os.Stderr, "fitsls: %s: %v\n", path, err)
			exit = 1
		}
	}
	os.Exit(exit)
}

func list(path string) error {
	f, err := fits.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	n, err := f.NumHDUs()
	if err != nil {
		return err
	}
	fmt.Printf("%s: %d HDUs\n", path, n)
	for i := 0; i < n; i++ {
		h, err := f.HDU(i)
		if err != nil {
			return err
		}
		fmt.Printf("  %3d  %-8s %s\n", i, h.Type(), describe(h))
		if *showHeader {
			dumpHeader(h)
		}
		if *verify {
			verifyHDU(h)
		}
	}
	return nil
}

func describe(h *fits.HDU) string {
	var parts []string
	if h.Name() != "" {
		parts = append(parts, fmt.Sprintf("%s,%d", h.Name(), h.Version()))
	}
	switch h.Type() {
	case fits.ImageHDU:
		if shape, err := h.ImageShape(); err == nil && len(shape) > 0 {
			t, _ := h.ImageType()
			desc := fmt.Sprintf("%v %v", t, shape)
			if h.Compressed() {
				cmp, _ := h.Header().Str("ZCMPTYPE")
				desc += " [" + cmp + "]"
			}
			parts = append(parts, desc)
		}
	case fits.TableHDU:
		if rows, err := h.NumRows(); err == nil {
			cols, _ := h.Columns()
			parts = append(parts, fmt.Sprintf("%d rows x %d cols", rows, len(cols)))
		}
	}
	return strings.Join(parts, "  ")
}

func dumpHeader(h *fits.HDU) {
	for _, c := range h.Header().Cards() {
		if c.Value == nil {
			fmt.Printf("       %-8s %s\n", c.Keyword, c.Comment)
			continue
		}
		fmt.Printf("       %-8s = %-20v / %s\n", c.Keyword, c.Value, c.Comment)
	}
}

func verifyHDU(h *fits.HDU) {
	ok, err := h.VerifyChecksum()
	switch {
	case err != nil:
		fmt.Printf("       checksum: %v\n", err)
	case ok:
		fmt.Printf("       checksum: OK\n")
	default:
		fmt.Printf("       checksum: MISMATCH\n")
	}
}
