package validation

import (
	"sort"
	"strings"
)

// tag is one opening or closing tag found in JSX or HTML source.
type tag struct {
	Name        string
	Start, End  int // [Start, End) covers "<" through ">"
	Closing     bool
	SelfClosing bool
	Attrs       []attr
}

type attr struct {
	Name       string
	Value      string // without quotes or braces
	Raw        string // as written, including quotes or braces
	Start, End int
	HasValue   bool
}

// Attr looks an attribute up case-insensitively.
func (t tag) Attr(name string) (attr, bool) {
	for _, a := range t.Attrs {
		if strings.EqualFold(a.Name, name) {
			return a, true
		}
	}
	return attr{}, false
}

func (t tag) Has(names ...string) bool {
	for _, n := range names {
		if _, ok := t.Attr(n); ok {
			return true
		}
	}
	return false
}

func (t tag) Is(name string) bool {
	return strings.EqualFold(t.Name, name)
}

// scanTags finds tags in source order. An opening "<" directly after an
// identifier character or closing bracket is a comparison or a type
// parameter and is not treated as a tag. Closing tags may follow text.
func scanTags(src string) []tag {
	var tags []tag
	i := 0
	for i < len(src) {
		if src[i] != '<' || i+1 >= len(src) {
			i++
			continue
		}
		if i > 0 && isExprEnd(src[i-1]) && src[i+1] != '/' {
			i++
			continue
		}
		if strings.HasPrefix(src[i:], "<!--") {
			end := strings.Index(src[i+4:], "-->")
			if end < 0 {
				break
			}
			i += 4 + end + 3
			continue
		}
		t, next, ok := readTag(src, i)
		if !ok {
			i++
			continue
		}
		tags = append(tags, t)
		i = next
	}
	return tags
}

func readTag(src string, start int) (tag, int, bool) {
	t := tag{Start: start}
	i := start + 1
	if src[i] == '/' {
		t.Closing = true
		i++
	}
	nameStart := i
	for i < len(src) && isNameChar(src[i]) {
		i++
	}
	if i == nameStart || !isLetter(src[nameStart]) {
		return tag{}, 0, false
	}
	t.Name = src[nameStart:i]

	for i < len(src) {
		i = skipSpace(src, i)
		if i >= len(src) {
			return tag{}, 0, false
		}
		switch {
		case src[i] == '>':
			t.End = i + 1
			return t, t.End, true
		case src[i] == '/' && i+1 < len(src) && src[i+1] == '>':
			t.SelfClosing = true
			t.End = i + 2
			return t, t.End, true
		case src[i] == '{':
			// JSX spread attribute
			end := skipBraces(src, i)
			if end < 0 {
				return tag{}, 0, false
			}
			i = end
		default:
			a, next, ok := readAttr(src, i)
			if !ok {
				return tag{}, 0, false
			}
			t.Attrs = append(t.Attrs, a)
			i = next
		}
	}
	return tag{}, 0, false
}

func readAttr(src string, start int) (attr, int, bool) {
	a := attr{Start: start}
	i := start
	for i < len(src) && !isSpace(src[i]) && src[i] != '=' && src[i] != '>' && src[i] != '/' {
		i++
	}
	if i == start {
		return attr{}, 0, false
	}
	a.Name = src[start:i]
	a.End = i

	j := skipSpace(src, i)
	if j >= len(src) || src[j] != '=' {
		return a, i, true
	}
	j = skipSpace(src, j+1)
	if j >= len(src) {
		return attr{}, 0, false
	}
	a.HasValue = true
	switch src[j] {
	case '"', '\'':
		end := strings.IndexByte(src[j+1:], src[j])
		if end < 0 {
			return attr{}, 0, false
		}
		a.Value = src[j+1 : j+1+end]
		a.End = j + 1 + end + 1
	case '{':
		end := skipBraces(src, j)
		if end < 0 {
			return attr{}, 0, false
		}
		a.Value = strings.TrimSpace(src[j+1 : end-1])
		a.End = end
	default:
		k := j
		for k < len(src) && !isSpace(src[k]) && src[k] != '>' {
			k++
		}
		a.Value = src[j:k]
		a.End = k
	}
	a.Raw = src[j:a.End]
	return a, a.End, true
}

// skipBraces returns the offset just past the brace that closes src[start].
// String literals inside the expression are skipped.
func skipBraces(src string, start int) int {
	depth := 0
	for i := start; i < len(src); i++ {
		switch c := src[i]; c {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i + 1
			}
		case '"', '\'', '`':
			end := strings.IndexByte(src[i+1:], c)
			if end < 0 {
				return -1
			}
			i += end + 1
		}
	}
	return -1
}

// skipParens returns the offset just past the paren that closes src[start].
func skipParens(src string, start int) int {
	depth := 0
	for i := start; i < len(src); i++ {
		switch c := src[i]; c {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i + 1
			}
		case '"', '\'', '`':
			end := strings.IndexByte(src[i+1:], c)
			if end < 0 {
				return -1
			}
			i += end + 1
		}
	}
	return -1
}

// closingFor returns the index of the tag that closes tags[open], honoring
// nesting of the same element name, or -1.
func closingFor(tags []tag, open int) int {
	if tags[open].SelfClosing || tags[open].Closing {
		return -1
	}
	depth := 0
	for k := open; k < len(tags); k++ {
		if !tags[k].Is(tags[open].Name) {
			continue
		}
		switch {
		case tags[k].Closing:
			depth--
			if depth == 0 {
				return k
			}
		case !tags[k].SelfClosing:
			depth++
		}
	}
	return -1
}

// injectAttr inserts an attribute before the end of an opening tag.
func injectAttr(raw, attribute string) string {
	switch {
	case strings.HasSuffix(raw, "/>"):
		body := strings.TrimRight(raw[:len(raw)-2], " \t\n")
		return body + " " + attribute + " />"
	case strings.HasSuffix(raw, ">"):
		body := strings.TrimRight(raw[:len(raw)-1], " \t\n")
		return body + " " + attribute + ">"
	default:
		return raw
	}
}

// lineIndex maps byte offsets to 1-based line numbers.
type lineIndex []int

func newLineIndex(src string) lineIndex {
	idx := lineIndex{0}
	for i := 0; i < len(src); i++ {
		if src[i] == '\n' {
			idx = append(idx, i+1)
		}
	}
	return idx
}

func (l lineIndex) line(offset int) int {
	return sort.Search(len(l), func(i int) bool { return l[i] > offset })
}

func snippet(src string, start, end int) string {
	s := strings.TrimSpace(src[start:end])
	const maxLen = 120
	if len(s) > maxLen {
		s = s[:maxLen] + "..."
	}
	return s
}

func isExprEnd(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_' || c == ')' || c == ']' || c == '$'
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isNameChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '.' || c == '_' || c == ':'
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func skipSpace(src string, i int) int {
	for i < len(src) && isSpace(src[i]) {
		i++
	}
	return i
}
