package deps

import "bytes"

// literal is a quoted string found inside a bracketed Python or TOML
// expression.
type literal struct {
	value   string
	start   int // offset of the first byte inside the quotes
	depth   int // 1 when directly inside the opening bracket
	escaped bool
}

// scanBracket walks the bracketed expression whose opening bracket is at
// content[open] and collects single-line string literals. Comments and
// triple-quoted strings are skipped. It returns the offset just past the
// matching close bracket, or ok=false when the expression is unterminated.
func scanBracket(content []byte, open int) (lits []literal, end int, ok bool) {
	depth := 0
	for i := open; i < len(content); i++ {
		switch c := content[i]; c {
		case '#':
			nl := bytes.IndexByte(content[i:], '\n')
			if nl < 0 {
				return nil, 0, false
			}
			i += nl
		case '"', '\'':
			if bytes.HasPrefix(content[i:], []byte{c, c, c}) {
				closeAt := bytes.Index(content[i+3:], []byte{c, c, c})
				if closeAt < 0 {
					return nil, 0, false
				}
				i += 3 + closeAt + 2
				continue
			}
			lit, next, found := scanString(content, i)
			if !found {
				return nil, 0, false
			}
			lit.depth = depth
			lits = append(lits, lit)
			i = next
		case '[', '{', '(':
			depth++
		case ']', '}', ')':
			depth--
			if depth == 0 {
				return lits, i + 1, true
			}
		}
	}
	return nil, 0, false
}

// scanString reads the quoted string starting at content[at] and returns
// it with the offset of its closing quote.
func scanString(content []byte, at int) (literal, int, bool) {
	quote := content[at]
	lit := literal{start: at + 1}
	for j := at + 1; j < len(content); j++ {
		switch content[j] {
		case '\\':
			lit.escaped = true
			j++
		case '\n':
			return literal{}, 0, false
		case quote:
			lit.value = string(content[at+1 : j])
			return lit, j, true
		}
	}
	return literal{}, 0, false
}

// nonCode marks the bytes of content that sit inside comments or string
// literals, so that keyword matches there can be ignored.
func nonCode(content []byte) []bool {
	mask := make([]bool, len(content)+1)
	for i := 0; i < len(content); i++ {
		c := content[i]
		var end int
		switch {
		case c == '#':
			end = len(content)
			if nl := bytes.IndexByte(content[i:], '\n'); nl >= 0 {
				end = i + nl
			}
		case (c == '"' || c == '\'') && bytes.HasPrefix(content[i:], []byte{c, c, c}):
			end = len(content)
			if k := bytes.Index(content[i+3:], []byte{c, c, c}); k >= 0 {
				end = i + 3 + k + 3
			}
		case c == '"' || c == '\'':
			end = i + 1
			if _, closeAt, ok := scanString(content, i); ok {
				end = closeAt + 1
			}
		default:
			continue
		}
		for j := i; j < end; j++ {
			mask[j] = true
		}
		i = end - 1
	}
	return mask
}
