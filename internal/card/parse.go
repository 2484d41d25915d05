package card

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/robert-malhotra/go-fits/internal/binary"
)

// Read parses one complete header starting at the reader's current
// position. It consumes whole blocks until the END card and leaves the
// reader positioned at the first data block. The END card itself is not
// included in the returned cards. CONTINUE cards are merged into the
// preceding long-string card.
func Read(r *binary.Reader) ([]Card, error) {
	var cards []Card
	for block := 0; ; block++ {
		if block >= MaxHeaderBlocks {
			return nil, ErrNoEnd
		}
		buf, err := r.ReadBlock()
		if err != nil {
			return nil, fmt.Errorf("reading header block %d: %w", block, err)
		}
		for i := 0; i < binary.CardsPerBlock; i++ {
			raw := buf[i*binary.CardSize : (i+1)*binary.CardSize]
			if string(raw[:8]) == "END     " {
				return mergeContinued(cards)
			}
			c, err := ParseCard(raw)
			if err != nil {
				return nil, fmt.Errorf("card %d: %w", block*binary.CardsPerBlock+i, err)
			}
			cards = append(cards, c)
		}
	}
}

// ParseCard parses a single 80-byte card image.
func ParseCard(raw []byte) (Card, error) {
	if len(raw) != binary.CardSize {
		return Card{}, fmt.Errorf("card is %d bytes, want %d", len(raw), binary.CardSize)
	}
	for _, b := range raw {
		if b < 0x20 || b > 0x7e {
			return Card{}, fmt.Errorf("card contains non-printable byte 0x%02x", b)
		}
	}

	kw := strings.TrimRight(string(raw[:8]), " ")
	if !ValidKeyword(kw) {
		return Card{}, fmt.Errorf("invalid keyword %q", kw)
	}

	// Commentary cards and cards without the "= " value indicator carry
	// only text.
	if kw == "COMMENT" || kw == "HISTORY" || kw == "" || string(raw[8:10]) != "= " {
		return Card{
			Keyword: kw,
			Comment: strings.TrimRight(string(raw[8:]), " "),
		}, nil
	}

	value, comment, err := parseValue(string(raw[10:]))
	if err != nil {
		return Card{}, fmt.Errorf("keyword %s: %w", kw, err)
	}
	return Card{Keyword: kw, Value: value, Comment: comment}, nil
}

// parseValue parses the value field and optional comment of a card body
// (everything after the value indicator).
func parseValue(body string) (any, string, error) {
	s := strings.TrimLeft(body, " ")
	if s == "" {
		return nil, "", nil
	}

	if s[0] == '\'' {
		str, rest, err := parseString(s)
		if err != nil {
			return nil, "", err
		}
		return str, parseComment(rest), nil
	}

	// Everything up to a slash is the value; the slash starts the comment.
	value := s
	comment := ""
	if i := strings.IndexByte(s, '/'); i >= 0 {
		value = strings.TrimRight(s[:i], " ")
		comment = strings.TrimRight(strings.TrimPrefix(s[i+1:], " "), " ")
	} else {
		value = strings.TrimRight(value, " ")
	}
	if value == "" {
		return nil, comment, nil
	}

	switch value[0] {
	case 'T':
		if value == "T" {
			return true, comment, nil
		}
	case 'F':
		if value == "F" {
			return false, comment, nil
		}
	case '(':
		var re, im float64
		if _, err := fmt.Sscanf(value, "(%g,%g)", &re, &im); err != nil {
			return nil, "", fmt.Errorf("invalid complex value %q", value)
		}
		return complex(re, im), comment, nil
	}

	// Fortran-style double exponents use D instead of E.
	num := strings.Replace(value, "D", "E", 1)
	if !strings.ContainsAny(num, ".E") {
		n, err := strconv.ParseInt(num, 10, 64)
		if err != nil {
			return nil, "", fmt.Errorf("invalid integer value %q", value)
		}
		return n, comment, nil
	}
	f, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return nil, "", fmt.Errorf("invalid float value %q", value)
	}
	return f, comment, nil
}

// parseString parses a quoted string value with doubled-quote escaping and
// returns the string plus the unparsed remainder of the card body. Trailing
// spaces inside the quotes are not significant and are trimmed.
func parseString(s string) (string, string, error) {
	var b strings.Builder
	for i := 1; i < len(s); i++ {
		if s[i] != '\'' {
			b.WriteByte(s[i])
			continue
		}
		if i+1 < len(s) && s[i+1] == '\'' {
			b.WriteByte('\'')
			i++
			continue
		}
		return strings.TrimRight(b.String(), " "), s[i+1:], nil
	}
	return "", "", fmt.Errorf("unterminated string value")
}

// parseComment extracts the comment from the remainder after a string value.
func parseComment(rest string) string {
	i := strings.IndexByte(rest, '/')
	if i < 0 {
		return ""
	}
	return strings.TrimRight(strings.TrimPrefix(rest[i+1:], " "), " ")
}

// mergeContinued folds CONTINUE cards into the preceding string card per
// the long-string convention.
func mergeContinued(cards []Card) ([]Card, error) {
	out := cards[:0]
	for _, c := range cards {
		if c.Keyword != "CONTINUE" {
			out = append(out, c)
			continue
		}
		if len(out) == 0 {
			return nil, fmt.Errorf("CONTINUE card without a preceding string card")
		}
		prev := &out[len(out)-1]
		prevStr, ok := prev.Value.(string)
		if !ok || !strings.HasSuffix(prevStr, "&") {
			return nil, fmt.Errorf("CONTINUE card does not follow a continued string")
		}
		// A CONTINUE card body has no value indicator; reparse its text
		// as a quoted string.
		chunk, rest, err := parseString(strings.TrimLeft(c.Comment, " "))
		if err != nil {
			return nil, fmt.Errorf("CONTINUE card: %w", err)
		}
		prev.Value = strings.TrimSuffix(prevStr, "&") + chunk
		if cm := parseComment(rest); cm != "" {
			prev.Comment = cm
		}
	}
	return out, nil
}
