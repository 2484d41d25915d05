// Package card implements the FITS header codec: parsing and serializing
// 80-byte header cards grouped into 2880-byte blocks.
//
// A card is one fixed-width record holding a keyword, an optional value and
// an optional comment. Values are one of: bool, int64, float64, string or
// complex128. Commentary keywords (COMMENT, HISTORY and blank) carry text
// only. Long string values use the CONTINUE convention: the value ends in
// '&' and continues on following CONTINUE cards.
package card

import (
	"errors"
	"fmt"
)

// MaxHeaderBlocks bounds how many blocks a single header may span before
// parsing gives up looking for the END card. A malformed file without END
// must not make the parser walk to the end of an arbitrarily large file.
const MaxHeaderBlocks = 4096

// valueCapacity is the number of bytes available for a value and its
// comment after the keyword and value indicator.
const valueCapacity = 70

// maxStringChunk is the longest string content that fits on a single card
// between quotes, leaving room for the continuation ampersand.
const maxStringChunk = 67

// ErrNoEnd is returned when a header has no END card within MaxHeaderBlocks.
var ErrNoEnd = errors.New("no END card found")

// Card is one header record.
type Card struct {
	Keyword string
	// Value is nil for commentary and valueless cards, otherwise one of
	// bool, int64, float64, string or complex128.
	Value   any
	Comment string
}

// IsCommentary reports whether the card's keyword is one of the commentary
// keywords that never carry a value.
func (c Card) IsCommentary() bool {
	return c.Keyword == "" || c.Keyword == "COMMENT" || c.Keyword == "HISTORY"
}

// ValidKeyword reports whether kw is a legal FITS keyword: at most eight
// characters from the restricted set.
func ValidKeyword(kw string) bool {
	if len(kw) > 8 {
		return false
	}
	for i := 0; i < len(kw); i++ {
		b := kw[i]
		switch {
		case b >= 'A' && b <= 'Z':
		case b >= '0' && b <= '9':
		case b == '-' || b == '_':
		default:
			return false
		}
	}
	return true
}

// checkValue verifies a value is one of the closed set of card value types.
func checkValue(v any) error {
	switch v.(type) {
	case nil, bool, int64, float64, string, complex128:
		return nil
	default:
		return fmt.Errorf("unsupported card value type %T", v)
	}
}
