package core

import "strings"

// NormalCharFunc is invoked by ScanSQL for every byte encountered outside
// of string, identifier and comment contexts. pos is the byte offset of c
// in the scanned text. The handler may consume the character (plus any
// lookahead) itself by writing its own replacement to out and returning
// the next scan position, which must be strictly greater than pos.
// Returning a value <= pos declines, and the scanner copies the byte
// verbatim. out is nil when the scan runs without output.
type NormalCharFunc func(c byte, pos int, out *strings.Builder) int

// ScanSQL walks a SQL string in a single pass while tracking the quoting
// and comment context: line comments, nested block comments, dollar-quoted
// strings, single-quoted strings, double-quoted identifiers and back-tick
// identifiers. Delimiters and everything inside a context are copied to
// the output verbatim; onNormal is consulted only in the normal context.
//
// With writeOutput=false the same state machine runs for side effects
// only and the original text is returned without allocating a buffer.
//
// Every parameter-handling behavior in this package (extraction, inline
// rendering, native rendering) is a NormalCharFunc over this scanner so
// that all of them share identical lexical behavior.
func ScanSQL(text string, writeOutput bool, onNormal NormalCharFunc) string {
	var out *strings.Builder
	if writeOutput {
		out = &strings.Builder{}
		out.Grow(len(text) + 16)
	}
	n := len(text)
	i := 0
	for i < n {
		c := text[i]
		switch c {
		case '\'', '"', '`':
			i = scanQuoted(text, i, c, out)
			continue
		case '-':
			if i+1 < n && text[i+1] == '-' {
				i = scanLineComment(text, i, out)
				continue
			}
		case '/':
			if i+1 < n && text[i+1] == '*' {
				i = scanBlockComment(text, i, out)
				continue
			}
		case '$':
			if end, ok := scanDollarQuoted(text, i, out); ok {
				i = end
				continue
			}
		}
		if onNormal != nil {
			if next := onNormal(c, i, out); next > i {
				i = next
				continue
			}
		}
		if out != nil {
			out.WriteByte(c)
		}
		i++
	}
	if out != nil {
		return out.String()
	}
	return text
}

// scanQuoted copies a quoted region delimited by q, honoring the doubled
// quote escape (a repeated delimiter stays inside the region). start points
// at the opening quote. An unterminated region runs to the end of the text.
func scanQuoted(text string, start int, q byte, out *strings.Builder) int {
	n := len(text)
	i := start + 1
	for i < n {
		if text[i] == q {
			if i+1 < n && text[i+1] == q {
				i += 2
				continue
			}
			i++
			break
		}
		i++
	}
	if out != nil {
		out.WriteString(text[start:i])
	}
	return i
}

// scanLineComment copies "--" up to and including the terminating newline.
func scanLineComment(text string, start int, out *strings.Builder) int {
	n := len(text)
	i := start + 2
	for i < n && text[i] != '\n' {
		i++
	}
	if i < n {
		i++ // keep the newline
	}
	if out != nil {
		out.WriteString(text[start:i])
	}
	return i
}

// scanBlockComment copies a block comment, counting nesting depth so that
// "/* /* */ */" only closes when the outermost comment does.
func scanBlockComment(text string, start int, out *strings.Builder) int {
	n := len(text)
	i := start + 2
	depth := 1
	for i < n && depth > 0 {
		if i+1 < n && text[i] == '/' && text[i+1] == '*' {
			depth++
			i += 2
			continue
		}
		if i+1 < n && text[i] == '*' && text[i+1] == '/' {
			depth--
			i += 2
			continue
		}
		i++
	}
	if out != nil {
		out.WriteString(text[start:i])
	}
	return i
}

// scanDollarQuoted recognizes a $tag$...$tag$ string starting at i, where
// the tag is empty or an identifier. Returns ok=false when the dollar sign
// does not open a quoting tag (for example a $1 native placeholder), in
// which case nothing is consumed.
func scanDollarQuoted(text string, start int, out *strings.Builder) (int, bool) {
	n := len(text)
	j := start + 1
	for j < n && isIdentPart(text[j]) {
		j++
	}
	if j >= n || text[j] != '$' {
		return start, false
	}
	if j > start+1 && !isIdentStart(text[start+1]) {
		return start, false
	}
	delim := text[start : j+1]
	end := strings.Index(text[j+1:], delim)
	if end < 0 {
		// unterminated: the rest of the text belongs to the string
		if out != nil {
			out.WriteString(text[start:])
		}
		return n, true
	}
	stop := j + 1 + end + len(delim)
	if out != nil {
		out.WriteString(text[start:stop])
	}
	return stop, true
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}
