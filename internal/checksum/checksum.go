// Package checksum implements the FITS 32-bit ones-complement checksum and
// its 16-character ASCII encoding.
//
// The sum treats its input as a sequence of big-endian 32-bit words and
// accumulates with end-around carry. The CHECKSUM keyword stores the ones
// complement of the HDU sum encoded as 16 printable characters, chosen so
// that an HDU carrying a correct CHECKSUM card sums to 0xFFFFFFFF (minus
// zero). Writing is a single pass: compute the sum with the CHECKSUM value
// set to the all-zeros placeholder, then patch the encoded complement into
// the card.
package checksum

// Placeholder is the CHECKSUM card value in effect while the sum is
// computed. The encoding is defined relative to these sixteen ASCII zeros,
// which is what makes the single-pass technique work.
const Placeholder = "0000000000000000"

// Sum32 accumulates the ones-complement checksum of data onto sum. The
// data length must be a multiple of four; FITS blocks always are. Calls
// chain: feeding header blocks then data blocks equals one call over the
// concatenation.
func Sum32(data []byte, sum uint32) uint32 {
	// Accumulate the two 16-bit halves separately so carries can be
	// folded in bulk instead of per word.
	hi := uint64(sum >> 16)
	lo := uint64(sum & 0xFFFF)
	for i := 0; i+4 <= len(data); i += 4 {
		hi += uint64(data[i])<<8 | uint64(data[i+1])
		lo += uint64(data[i+2])<<8 | uint64(data[i+3])
	}
	for hi>>16 != 0 || lo>>16 != 0 {
		carry := hi >> 16
		hi = (hi & 0xFFFF) + (lo >> 16)
		lo = (lo & 0xFFFF) + carry
	}
	return uint32(hi<<16 | lo)
}

// asciiExclude lists the non-alphanumeric ASCII codes between '0' and 'z'
// that the encoding must avoid.
var asciiExclude = []byte{':', ';', '<', '=', '>', '?', '@', '[', '\\', ']', '^', '_', '`'}

// Encode renders a 32-bit value as the 16-character ASCII checksum form.
// With complement set the value is ones-complemented first, which is the
// form stored in the CHECKSUM keyword.
func Encode(value uint32, complement bool) string {
	if complement {
		value = ^value
	}

	var interim [16]byte
	for i := 0; i < 4; i++ {
		b := byte(value >> (24 - 8*i))
		quotient := b/4 + '0'
		remainder := b % 4
		var ch [4]byte
		for j := range ch {
			ch[j] = quotient
		}
		ch[0] += remainder

		// Nudge pairs of characters in opposite directions until none
		// lands on an excluded code; the pair sum is preserved.
		for again := true; again; {
			again = false
			for _, ex := range asciiExclude {
				for j := 0; j < 4; j += 2 {
					if ch[j] == ex || ch[j+1] == ex {
						ch[j]++
						ch[j+1]--
						again = true
					}
				}
			}
		}

		for j := 0; j < 4; j++ {
			interim[4*j+i] = ch[j]
		}
	}

	// Rotate right one place to match the alignment of the value field
	// within the card.
	var out [16]byte
	for i := range out {
		out[i] = interim[(i+15)%16]
	}
	return string(out[:])
}

// Valid reports whether sum is the ones-complement minus-zero value that a
// correctly checksummed HDU accumulates to.
func Valid(sum uint32) bool {
	return sum == 0xFFFFFFFF
}
