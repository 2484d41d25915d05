package fits

import (
	"fmt"
	"strconv"

	"github.com/robert-malhotra/go-fits/internal/checksum"
)

// WriteChecksum computes and records the HDU's DATASUM and CHECKSUM
// keywords. CHECKSUM converges in a single pass: the card is written
// with the fixed ASCII placeholder, the header+data sum is taken, and
// the encoded complement replaces the placeholder so the whole HDU sums
// to 0xFFFFFFFF.
func (h *HDU) WriteChecksum() error {
	if err := h.file.writable(); err != nil {
		return err
	}

	data := make([]byte, h.paddedDataSize())
	if err := h.file.r.At(h.dataAddr).ReadInto(data); err != nil {
		return fmt.Errorf("reading data: %w", err)
	}
	dataSum := checksum.Sum32(data, 0)

	if err := h.header.Set("DATASUM", strconv.FormatUint(uint64(dataSum), 10), "data unit checksum"); err != nil {
		return err
	}
	if err := h.header.Set("CHECKSUM", checksum.Placeholder, "HDU checksum"); err != nil {
		return err
	}
	// Adding the cards may grow the header; rewrite first so the summed
	// bytes are the final layout.
	if err := h.rewriteHeader(); err != nil {
		return err
	}

	raw, err := h.header.serialize()
	if err != nil {
		return err
	}
	sum := checksum.Sum32(raw, dataSum)
	if err := h.header.Set("CHECKSUM", checksum.Encode(sum, true), ""); err != nil {
		return err
	}
	// The encoded value is exactly as wide as the placeholder, so the
	// header size cannot change here.
	return h.rewriteHeader()
}

// VerifyChecksum recomputes the HDU's checksums and compares them with
// the recorded keywords. It reports false when either CHECKSUM or a
// present DATASUM does not match; a missing CHECKSUM card is an error.
func (h *HDU) VerifyChecksum() (bool, error) {
	if err := h.file.checkOpen(); err != nil {
		return false, err
	}
	if !h.header.Has("CHECKSUM") {
		return false, fmt.Errorf("keyword CHECKSUM: %w", ErrNotFound)
	}

	hdrRaw := make([]byte, h.dataAddr-h.hdrAddr)
	if err := h.file.r.At(h.hdrAddr).ReadInto(hdrRaw); err != nil {
		return false, fmt.Errorf("reading header: %w", err)
	}
	data := make([]byte, h.paddedDataSize())
	if err := h.file.r.At(h.dataAddr).ReadInto(data); err != nil {
		return false, fmt.Errorf("reading data: %w", err)
	}

	dataSum := checksum.Sum32(data, 0)
	if s, err := h.header.Str("DATASUM"); err == nil {
		want, err := strconv.ParseUint(s, 10, 32)
		if err != nil || uint32(want) != dataSum {
			return false, nil
		}
	}
	return checksum.Valid(checksum.Sum32(hdrRaw, dataSum)), nil
}
