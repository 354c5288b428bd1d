package payload

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// pythonStringStarts are the bytes after which a single quote opens a
// string in flow context. Elsewhere it is an apostrophe in a plain scalar.
const pythonStringStarts = "\n{[,:-"

// rewritePythonStrings replaces single-quoted string literals that use
// backslash escapes with double-quoted YAML scalars holding the same value.
//
// YAML single-quoted scalars have no escapes at all, so repr() output such
// as 'line1\nline2', 'caf\xe9' or 'it\'s' would otherwise be read verbatim
// or rejected. Literals without a backslash, double-quoted scalars and
// comments pass through untouched.
func rewritePythonStrings(text string) string {
	if !strings.Contains(text, `\`) || !strings.Contains(text, "'") {
		return text
	}

	var out strings.Builder
	out.Grow(len(text))
	prev := byte('\n')
	for i := 0; i < len(text); {
		c := text[i]
		switch {
		case c == '"':
			end := skipDoubleQuoted(text, i)
			out.WriteString(text[i:end])
			i, prev = end, '"'

		case c == '#' && (i == 0 || isBlank(text[i-1]) || text[i-1] == '\n'):
			end := strings.IndexByte(text[i:], '\n')
			if end < 0 {
				end = len(text)
			} else {
				end += i
			}
			out.WriteString(text[i:end])
			i = end

		case c == '\'' && strings.IndexByte(pythonStringStarts, prev) >= 0:
			end, body, ok := scanPythonString(text, i)
			if ok && strings.Contains(body, `\`) {
				out.WriteString(strconv.Quote(unescapePython(body)))
			} else {
				out.WriteString(text[i:end])
			}
			i, prev = end, '\''

		default:
			out.WriteByte(c)
			if !isBlank(c) {
				prev = c
			}
			i++
		}
	}
	return out.String()
}

func isBlank(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r'
}

// skipDoubleQuoted returns the index just past the double-quoted scalar
// opening at text[i], or len(text) when it is unterminated.
func skipDoubleQuoted(text string, i int) int {
	for j := i + 1; j < len(text); j++ {
		switch text[j] {
		case '\\':
			j++
		case '"':
			return j + 1
		}
	}
	return len(text)
}

// scanPythonString reads the single-quoted literal opening at text[i].
// ok is false for a literal that is unterminated on its line; end then
// covers only the opening quote.
func scanPythonString(text string, i int) (end int, body string, ok bool) {
	for j := i + 1; j < len(text); j++ {
		switch text[j] {
		case '\n':
			return i + 1, "", false
		case '\\':
			if j+1 < len(text) && text[j+1] == '\n' {
				return i + 1, "", false
			}
			j++
		case '\'':
			return j + 1, text[i+1 : j], true
		}
	}
	return i + 1, "", false
}

// unescapePython decodes the escapes of a Python string literal body.
// Unknown escapes keep their backslash, as Python does.
func unescapePython(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for len(s) > 0 {
		if s[0] != '\\' || len(s) == 1 {
			_, size := utf8.DecodeRuneInString(s)
			b.WriteString(s[:size])
			s = s[size:]
			continue
		}

		switch c := s[1]; {
		case c == '"':
			b.WriteByte('"')
			s = s[2:]
			continue
		case c >= '0' && c <= '7':
			n, r := 1, rune(0)
			for n < len(s) && n <= 3 && s[n] >= '0' && s[n] <= '7' {
				r = r*8 + rune(s[n]-'0')
				n++
			}
			b.WriteRune(r)
			s = s[n:]
			continue
		}

		value, _, tail, err := strconv.UnquoteChar(s, '\'')
		if err != nil {
			b.WriteByte('\\')
			s = s[1:]
			continue
		}
		// \xNN names a code point, not a byte, as in Python 3.
		b.WriteRune(value)
		s = tail
	}
	return b.String()
}
