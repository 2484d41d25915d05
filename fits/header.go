package fits

import (
	"fmt"
	"strings"

	"github.com/robert-malhotra/go-fits/internal/card"
)

// Card is one header record: a keyword of up to eight characters, a typed
// value and an optional comment. Value is nil, bool, int64, float64,
// string or complex128. Commentary cards (COMMENT, HISTORY, blank) carry
// their text in Comment with a nil Value.
type Card struct {
	Keyword string
	Value   any
	Comment string
}

// Header is the ordered card sequence of one HDU. Keyword lookups are
// case-insensitive; keywords are stored upper-case as the format
// requires. Mutations only take effect on disk when the owning HDU is
// written or flushed.
type Header struct {
	cards []card.Card
}

func newHeader(cards []card.Card) *Header {
	return &Header{cards: cards}
}

// NumCards returns the number of cards, excluding the END terminator.
func (h *Header) NumCards() int {
	return len(h.cards)
}

// Cards returns a copy of all cards in file order.
func (h *Header) Cards() []Card {
	out := make([]Card, len(h.cards))
	for i, c := range h.cards {
		out[i] = Card{Keyword: c.Keyword, Value: c.Value, Comment: c.Comment}
	}
	return out
}

// find returns the index of the first card with the keyword, or -1.
// Commentary cards are never matched.
func (h *Header) find(key string) int {
	key = strings.ToUpper(strings.TrimSpace(key))
	for i, c := range h.cards {
		if c.Keyword == key && !c.IsCommentary() {
			return i
		}
	}
	return -1
}

// Has reports whether the keyword is present.
func (h *Header) Has(key string) bool {
	return h.find(key) >= 0
}

// Value returns the raw value of a keyword.
func (h *Header) Value(key string) (any, bool) {
	i := h.find(key)
	if i < 0 {
		return nil, false
	}
	return h.cards[i].Value, true
}

// Int returns an integer-valued keyword.
func (h *Header) Int(key string) (int64, error) {
	v, ok := h.Value(key)
	if !ok {
		return 0, fmt.Errorf("keyword %s: %w", key, ErrNotFound)
	}
	n, ok := v.(int64)
	if !ok {
		return 0, fmt.Errorf("keyword %s holds %T, want integer: %w", key, v, ErrType)
	}
	return n, nil
}

// Float returns a float-valued keyword; integer values promote.
func (h *Header) Float(key string) (float64, error) {
	v, ok := h.Value(key)
	if !ok {
		return 0, fmt.Errorf("keyword %s: %w", key, ErrNotFound)
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case int64:
		return float64(n), nil
	}
	return 0, fmt.Errorf("keyword %s holds %T, want float: %w", key, v, ErrType)
}

// Bool returns a logical-valued keyword.
func (h *Header) Bool(key string) (bool, error) {
	v, ok := h.Value(key)
	if !ok {
		return false, fmt.Errorf("keyword %s: %w", key, ErrNotFound)
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("keyword %s holds %T, want logical: %w", key, v, ErrType)
	}
	return b, nil
}

// Str returns a string-valued keyword.
func (h *Header) Str(key string) (string, error) {
	v, ok := h.Value(key)
	if !ok {
		return "", fmt.Errorf("keyword %s: %w", key, ErrNotFound)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("keyword %s holds %T, want string: %w", key, v, ErrType)
	}
	return s, nil
}

// Complex returns a complex-valued keyword.
func (h *Header) Complex(key string) (complex128, error) {
	v, ok := h.Value(key)
	if !ok {
		return 0, fmt.Errorf("keyword %s: %w", key, ErrNotFound)
	}
	c, ok := v.(complex128)
	if !ok {
		return 0, fmt.Errorf("keyword %s holds %T, want complex: %w", key, v, ErrType)
	}
	return c, nil
}

// Set writes a keyword value, replacing an existing card in place or
// appending a new one. Accepted value types follow Card. Integer and
// float arguments of other widths are converted.
func (h *Header) Set(key string, value any, comment string) error {
	key = strings.ToUpper(strings.TrimSpace(key))
	if (card.Card{Keyword: key}).IsCommentary() {
		return fmt.Errorf("keyword %q carries no value, use AddComment or AddHistory: %w", key, ErrFormat)
	}
	if key == "END" {
		return fmt.Errorf("keyword END is the header terminator: %w", ErrFormat)
	}
	value, err := normalizeValue(value)
	if err != nil {
		return fmt.Errorf("keyword %s: %w", key, err)
	}
	if i := h.find(key); i >= 0 {
		h.cards[i].Value = value
		if comment != "" {
			h.cards[i].Comment = comment
		}
		return nil
	}
	if !card.ValidKeyword(key) {
		return fmt.Errorf("keyword %q: %w", key, ErrFormat)
	}
	h.cards = append(h.cards, card.Card{Keyword: key, Value: value, Comment: comment})
	return nil
}

// SetComment replaces the comment of an existing keyword.
func (h *Header) SetComment(key, comment string) error {
	i := h.find(key)
	if i < 0 {
		return fmt.Errorf("keyword %s: %w", key, ErrNotFound)
	}
	h.cards[i].Comment = comment
	return nil
}

// Delete removes the first card with the keyword.
func (h *Header) Delete(key string) error {
	i := h.find(key)
	if i < 0 {
		return fmt.Errorf("keyword %s: %w", key, ErrNotFound)
	}
	h.cards = append(h.cards[:i], h.cards[i+1:]...)
	return nil
}

// AddComment appends a COMMENT card.
func (h *Header) AddComment(text string) {
	h.cards = append(h.cards, card.Card{Keyword: "COMMENT", Comment: text})
}

// AddHistory appends a HISTORY card.
func (h *Header) AddHistory(text string) {
	h.cards = append(h.cards, card.Card{Keyword: "HISTORY", Comment: text})
}

func normalizeValue(v any) (any, error) {
	switch n := v.(type) {
	case nil, bool, int64, float64, string, complex128:
		return v, nil
	case int:
		return int64(n), nil
	case int8:
		return int64(n), nil
	case int16:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case uint8:
		return int64(n), nil
	case uint16:
		return int64(n), nil
	case uint32:
		return int64(n), nil
	case float32:
		return float64(n), nil
	case complex64:
		return complex128(n), nil
	}
	return nil, fmt.Errorf("unsupported header value type %T: %w", v, ErrType)
}

// serialize returns the header's on-disk block image.
func (h *Header) serialize() ([]byte, error) {
	raw, err := card.Serialize(h.orderedCards())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	return raw, nil
}

// structuralOrder lists the keywords the format requires at the front of
// every header, in order. NAXISn cards follow NAXIS by index.
var structuralOrder = []string{"SIMPLE", "XTENSION", "BITPIX", "NAXIS"}

// orderedCards returns the cards with the required structural keywords
// moved to the front in standard order; all other cards keep their
// relative order.
func (h *Header) orderedCards() []card.Card {
	var front []card.Card
	taken := make(map[int]bool)
	take := func(key string) {
		for i, c := range h.cards {
			if !taken[i] && c.Keyword == key && !c.IsCommentary() {
				front = append(front, c)
				taken[i] = true
				return
			}
		}
	}
	for _, key := range structuralOrder {
		take(key)
	}
	if naxis, err := h.Int("NAXIS"); err == nil {
		for n := 1; n <= int(naxis); n++ {
			take(fmt.Sprintf("NAXIS%d", n))
		}
	}
	// Table and random-group sizing keywords come right after the axes.
	for _, key := range []string{"PCOUNT", "GCOUNT", "TFIELDS"} {
		take(key)
	}
	out := make([]card.Card, 0, len(h.cards))
	out = append(out, front...)
	for i, c := range h.cards {
		if !taken[i] {
			out = append(out, c)
		}
	}
	return out
}
