// Package fits implements the subset of the FITS (Flexible Image Transport
// System) format needed by the observation pipeline: primary HDUs, 2D image
// extensions, and binary table extensions. Headers are 80-character cards in
// 2880-byte logical records; data arrays are big-endian and padded to the
// record boundary.
package fits

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	// BlockSize is the FITS logical record length in bytes.
	BlockSize = 2880

	// cardLen is the length of a single header card.
	cardLen = 80
)

// Card is a single header keyword record.
type Card struct {
	Keyword string
	Value   interface{}
	Comment string
}

// Header is an ordered collection of cards belonging to one HDU.
type Header struct {
	cards []Card
}

// NewHeader returns an empty header.
func NewHeader() *Header {
	return &Header{}
}

// Set appends a card, replacing an existing card with the same keyword.
// COMMENT and HISTORY cards are always appended.
func (h *Header) Set(keyword string, value interface{}, comment string) {
	keyword = strings.ToUpper(keyword)
	if keyword != "COMMENT" && keyword != "HISTORY" {
		for i := range h.cards {
			if h.cards[i].Keyword == keyword {
				h.cards[i].Value = value
				h.cards[i].Comment = comment
				return
			}
		}
	}
	h.cards = append(h.cards, Card{Keyword: keyword, Value: value, Comment: comment})
}

// Get returns the raw value for a keyword.
func (h *Header) Get(keyword string) (interface{}, bool) {
	keyword = strings.ToUpper(keyword)
	for _, c := range h.cards {
		if c.Keyword == keyword {
			return c.Value, true
		}
	}
	return nil, false
}

// Int returns an integer-valued keyword.
func (h *Header) Int(keyword string) (int, bool) {
	v, ok := h.Get(keyword)
	if !ok {
		return 0, false
	}
	switch x := v.(type) {
	case int:
		return x, true
	case int64:
		return int(x), true
	case float64:
		return int(x), true
	}
	return 0, false
}

// Float returns a floating-point-valued keyword.
func (h *Header) Float(keyword string) (float64, bool) {
	v, ok := h.Get(keyword)
	if !ok {
		return 0, false
	}
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	}
	return 0, false
}

// Str returns a string-valued keyword with surrounding blanks removed.
func (h *Header) Str(keyword string) (string, bool) {
	v, ok := h.Get(keyword)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(s), true
}

// Bool returns a logical-valued keyword.
func (h *Header) Bool(keyword string) (bool, bool) {
	v, ok := h.Get(keyword)
	if !ok {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}

// Cards returns a copy of the header cards in order.
func (h *Header) Cards() []Card {
	out := make([]Card, len(h.cards))
	copy(out, h.cards)
	return out
}

// formatCard renders a card as a fixed 80-byte record.
func formatCard(c Card) ([]byte, error) {
	if len(c.Keyword) > 8 {
		return nil, fmt.Errorf("keyword %q exceeds 8 characters", c.Keyword)
	}
	var b strings.Builder
	if c.Keyword == "COMMENT" || c.Keyword == "HISTORY" || c.Keyword == "" {
		b.WriteString(fmt.Sprintf("%-8s", c.Keyword))
		if s, ok := c.Value.(string); ok {
			b.WriteString(" " + s)
		}
	} else if c.Value == nil {
		b.WriteString(fmt.Sprintf("%-8s", c.Keyword))
	} else {
		b.WriteString(fmt.Sprintf("%-8s= ", c.Keyword))
		switch v := c.Value.(type) {
		case bool:
			if v {
				b.WriteString(fmt.Sprintf("%20s", "T"))
			} else {
				b.WriteString(fmt.Sprintf("%20s", "F"))
			}
		case int:
			b.WriteString(fmt.Sprintf("%20d", v))
		case int64:
			b.WriteString(fmt.Sprintf("%20d", v))
		case float64:
			b.WriteString(strings.ToUpper(fmt.Sprintf("%20.11E", v)))
		case string:
			quoted := fmt.Sprintf("'%-8s'", v)
			b.WriteString(quoted)
		default:
			return nil, fmt.Errorf("unsupported value type %T for keyword %s", c.Value, c.Keyword)
		}
		if c.Comment != "" {
			b.WriteString(" / " + c.Comment)
		}
	}
	s := b.String()
	if len(s) > cardLen {
		s = s[:cardLen]
	}
	out := make([]byte, cardLen)
	for i := range out {
		out[i] = ' '
	}
	copy(out, s)
	return out, nil
}

// parseCard decodes one 80-byte header record. A nil card with no error
// marks a blank or unparseable filler record.
func parseCard(rec []byte) (*Card, bool, error) {
	line := string(rec)
	keyword := strings.TrimSpace(line[:8])
	if keyword == "END" {
		return nil, true, nil
	}
	if keyword == "" {
		return nil, false, nil
	}
	if keyword == "COMMENT" || keyword == "HISTORY" {
		return &Card{Keyword: keyword, Value: strings.TrimSpace(line[8:])}, false, nil
	}
	if len(line) < 10 || line[8] != '=' {
		// Keyword without a value indicator; keep it as a bare marker.
		return &Card{Keyword: keyword}, false, nil
	}
	body := line[10:]
	var value interface{}
	var comment string
	trimmed := strings.TrimLeft(body, " ")
	if strings.HasPrefix(trimmed, "'") {
		end := strings.Index(trimmed[1:], "'")
		if end < 0 {
			return nil, false, fmt.Errorf("unterminated string in card %q", keyword)
		}
		value = strings.TrimRight(trimmed[1:1+end], " ")
		rest := trimmed[end+2:]
		if idx := strings.Index(rest, "/"); idx >= 0 {
			comment = strings.TrimSpace(rest[idx+1:])
		}
	} else {
		valStr := trimmed
		if idx := strings.Index(trimmed, "/"); idx >= 0 {
			valStr = trimmed[:idx]
			comment = strings.TrimSpace(trimmed[idx+1:])
		}
		valStr = strings.TrimSpace(valStr)
		switch {
		case valStr == "T":
			value = true
		case valStr == "F":
			value = false
		case valStr == "":
			value = nil
		case strings.ContainsAny(valStr, ".ED"):
			f, err := strconv.ParseFloat(strings.Replace(valStr, "D", "E", 1), 64)
			if err != nil {
				return nil, false, fmt.Errorf("bad numeric value %q in card %q", valStr, keyword)
			}
			value = f
		default:
			n, err := strconv.ParseInt(valStr, 10, 64)
			if err != nil {
				return nil, false, fmt.Errorf("bad integer value %q in card %q", valStr, keyword)
			}
			value = int(n)
		}
	}
	return &Card{Keyword: keyword, Value: value, Comment: comment}, false, nil
}

// padLen returns the number of padding bytes needed to reach the next
// 2880-byte boundary.
func padLen(n int) int {
	r := n % BlockSize
	if r == 0 {
		return 0
	}
	return BlockSize - r
}
