package extraction

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// ocrDigits maps characters OCR commonly emits in place of digits.
var ocrDigits = map[rune]rune{
	'O': '0', 'o': '0',
	'I': '1', 'l': '1', '|': '1',
	'S': '5', 'B': '8',
}

// normalizedText is text prepared for fuzzy matching together with a map
// from every byte offset of the normalized string back to the source text.
type normalizedText struct {
	text   string
	src    string
	offset []int // len(text)+1 entries
}

// normalizeForFuzzy case-folds text, collapses whitespace runs to a single
// space and replaces OCR look-alikes that sit next to a digit. Invalid UTF-8
// bytes are carried through one source byte at a time.
func normalizeForFuzzy(src string) normalizedText {
	var (
		b       strings.Builder
		offsets = make([]int, 0, len(src)+1)
		runes   = make([]rune, 0, len(src))
		starts  = make([]int, 0, len(src))
	)
	b.Grow(len(src))

	for pos := 0; pos < len(src); {
		r, size := utf8.DecodeRuneInString(src[pos:])
		runes = append(runes, r)
		starts = append(starts, pos)
		pos += size
	}

	lastSpace := false
	for i, r := range runes {
		if unicode.IsSpace(r) {
			if !lastSpace {
				b.WriteByte(' ')
				offsets = append(offsets, starts[i])
				lastSpace = true
			}
			continue
		}
		lastSpace = false

		if d, ok := ocrDigits[r]; ok && nextToDigit(runes, i) {
			r = d
		} else {
			r = unicode.ToLower(r)
		}

		n, _ := b.WriteRune(r)
		for k := 0; k < n; k++ {
			offsets = append(offsets, starts[i])
		}
	}
	offsets = append(offsets, len(src))

	return normalizedText{text: b.String(), src: src, offset: offsets}
}

func nextToDigit(runes []rune, i int) bool {
	return (i > 0 && unicode.IsDigit(runes[i-1])) || (i+1 < len(runes) && unicode.IsDigit(runes[i+1]))
}

// sourceSpan maps a normalized [start,end) span back to the source text. The
// result never splits a source rune.
func (n normalizedText) sourceSpan(start, end int) (int, int) {
	s := n.offset[start]
	if end <= start {
		return s, s
	}
	last := n.offset[end-1]
	e := n.offset[end]
	if e <= last {
		_, size := utf8.DecodeRuneInString(n.src[last:])
		e = last + size
	}
	return s, e
}

// relaxExpression loosens a rule expression for OCR-damaged text: required
// whitespace becomes optional, commas may be read as periods and colons may be
// dropped or replaced by dashes. Escapes, character classes, group prefixes
// and repetition counts are copied unchanged.
func relaxExpression(expr string) string {
	var b strings.Builder
	b.Grow(len(expr) * 2)

	for i := 0; i < len(expr); i++ {
		c := expr[i]
		switch {
		case c == '\\' && i+1 < len(expr):
			if expr[i+1] == 's' && i+2 < len(expr) && expr[i+2] == '+' {
				b.WriteString(`\s*`)
				i += 2
				continue
			}
			b.WriteString(expr[i : i+2])
			i++
		case c == '[':
			j := classEnd(expr, i)
			b.WriteString(expr[i : j+1])
			i = j
		case c == '{':
			j := strings.IndexByte(expr[i:], '}')
			if j < 0 {
				b.WriteByte(c)
				continue
			}
			b.WriteString(expr[i : i+j+1])
			i += j
		case c == '(' && i+1 < len(expr) && expr[i+1] == '?':
			j := strings.IndexAny(expr[i+2:], ":)")
			if j < 0 {
				b.WriteString(expr[i:])
				return b.String()
			}
			b.WriteString(expr[i : i+2+j+1])
			i += 2 + j
		case c == ' ':
			b.WriteString(`\s*`)
		case c == ',':
			b.WriteString(`[,.]?`)
		case c == ':':
			b.WriteString(`[:\-\s]*`)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// classEnd returns the index of the ']' closing the class opened at i.
func classEnd(expr string, i int) int {
	j := i + 1
	if j < len(expr) && expr[j] == '^' {
		j++
	}
	if j < len(expr) && expr[j] == ']' {
		j++
	}
	for ; j < len(expr); j++ {
		switch expr[j] {
		case '\\':
			j++
		case '[':
			if j+1 < len(expr) && expr[j+1] == ':' {
				if k := strings.Index(expr[j:], ":]"); k >= 0 {
					j += k + 1
				}
			}
		case ']':
			return j
		}
	}
	return len(expr) - 1
}
