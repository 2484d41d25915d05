package card

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/robert-malhotra/go-fits/internal/binary"
)

// Serialize renders cards as raw header bytes: one 80-byte image per card,
// an END card, and space padding to the block boundary. String values too
// long for a single card are continued on CONTINUE cards.
func Serialize(cards []Card) ([]byte, error) {
	var out []byte
	for _, c := range cards {
		images, err := formatCard(c)
		if err != nil {
			return nil, err
		}
		out = append(out, images...)
	}
	out = append(out, pad80("END")...)
	for len(out)%binary.BlockSize != 0 {
		out = append(out, pad80("")...)
	}
	return out, nil
}

// Size returns the serialized byte length of a header, including the END
// card and block padding, without rendering it.
func Size(cards []Card) (int64, error) {
	raw, err := Serialize(cards)
	if err != nil {
		return 0, err
	}
	return int64(len(raw)), nil
}

// formatCard renders one card as one or more 80-byte images.
func formatCard(c Card) ([]byte, error) {
	if !ValidKeyword(c.Keyword) {
		return nil, fmt.Errorf("invalid keyword %q", c.Keyword)
	}
	if err := checkValue(c.Value); err != nil {
		return nil, fmt.Errorf("keyword %s: %w", c.Keyword, err)
	}

	if c.IsCommentary() {
		text := c.Comment
		if len(text) > 72 {
			text = text[:72]
		}
		return pad80(fmt.Sprintf("%-8s%s", c.Keyword, text)), nil
	}

	if s, ok := c.Value.(string); ok {
		return formatStringCard(c.Keyword, s, c.Comment)
	}

	body := ""
	switch v := c.Value.(type) {
	case nil:
		// Valueless card: keyword with empty value field.
		return pad80(fmt.Sprintf("%-8s=%s", c.Keyword, formatComment("", c.Comment))), nil
	case bool:
		t := "F"
		if v {
			t = "T"
		}
		body = fmt.Sprintf("%20s", t)
	case int64:
		body = fmt.Sprintf("%20d", v)
	case float64:
		body = fmt.Sprintf("%20s", formatFloat(v))
	case complex128:
		body = fmt.Sprintf("(%s, %s)", formatFloat(real(v)), formatFloat(imag(v)))
	}

	line := fmt.Sprintf("%-8s= %s", c.Keyword, body) + formatComment(body, c.Comment)
	if len(line) > binary.CardSize {
		return nil, fmt.Errorf("keyword %s: card overflows 80 bytes", c.Keyword)
	}
	return pad80(line), nil
}

// formatStringCard renders a string value, splitting over CONTINUE cards
// when it does not fit a single card.
func formatStringCard(kw, s, comment string) ([]byte, error) {
	chunks := splitString(s)
	var out []byte
	for i, chunk := range chunks {
		quoted := quoteString(chunk)
		var line string
		if i == 0 {
			line = fmt.Sprintf("%-8s= %s", kw, quoted)
		} else {
			line = fmt.Sprintf("CONTINUE  %s", quoted)
		}
		if i == len(chunks)-1 && comment != "" {
			line += formatComment(quoted, comment)
		}
		if len(line) > binary.CardSize {
			return nil, fmt.Errorf("keyword %s: string card overflows 80 bytes", kw)
		}
		out = append(out, pad80(line)...)
	}
	return out, nil
}

// splitString cuts a string value into card-sized chunks, appending the
// continuation ampersand to every chunk but the last.
func splitString(s string) []string {
	if len(s) <= maxStringChunk+1 {
		return []string{s}
	}
	var chunks []string
	for len(s) > maxStringChunk {
		chunks = append(chunks, s[:maxStringChunk]+"&")
		s = s[maxStringChunk:]
	}
	chunks = append(chunks, s)
	return chunks
}

// quoteString renders a string in FITS quoted form: quotes doubled, content
// padded to the fixed-format minimum of eight characters.
func quoteString(s string) string {
	escaped := strings.ReplaceAll(s, "'", "''")
	if len(escaped) < 8 {
		escaped += strings.Repeat(" ", 8-len(escaped))
	}
	return "'" + escaped + "'"
}

// formatComment renders the " / comment" suffix, truncated to what fits
// after the rendered value.
func formatComment(body, comment string) string {
	if comment == "" {
		return ""
	}
	// Keyword and value indicator occupy ten columns.
	room := valueCapacity - len(body) - 3
	if room <= 0 {
		return ""
	}
	if len(comment) > room {
		comment = comment[:room]
	}
	return " / " + comment
}

// formatFloat renders a float so that it reparses as a float: the text
// always contains a decimal point or exponent.
func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'G', -1, 64)
	if !strings.ContainsAny(s, ".E") {
		s += "."
	}
	return s
}

// pad80 pads a line with spaces to exactly one card image.
func pad80(line string) []byte {
	buf := make([]byte, binary.CardSize)
	copy(buf, line)
	for i := len(line); i < binary.CardSize; i++ {
		buf[i] = ' '
	}
	return buf
}
