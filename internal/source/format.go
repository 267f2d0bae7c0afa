package source

import "strings"

// Format strips comments, trims every line and joins the non-empty lines,
// each followed by LineSep. This is the form sent to clients.
func Format(code string) string {
	stripped := StripComments(code)
	var b strings.Builder
	b.Grow(len(stripped))
	for _, line := range strings.Split(stripped, LineSep) {
		line = strings.Trim(line, " \t\r\n")
		if line == "" {
			continue
		}
		b.WriteString(line)
		b.WriteString(LineSep)
	}
	return b.String()
}

// StripComments removes // line comments and /* */ block comments that are
// outside string literals. A line comment ends at LineSep or '\n'; the line
// break itself is kept.
func StripComments(code string) string {
	var b strings.Builder
	b.Grow(len(code))

	const (
		stCode = iota
		stString
		stLine
		stBlock
	)
	state := stCode
	var quote byte

	for i := 0; i < len(code); i++ {
		c := code[i]
		switch state {
		case stCode:
			switch {
			case c == '"' || c == '\'':
				state, quote = stString, c
				b.WriteByte(c)
			case c == '/' && i+1 < len(code) && code[i+1] == '/':
				state = stLine
				i++
			case c == '/' && i+1 < len(code) && code[i+1] == '*':
				state = stBlock
				i++
			default:
				b.WriteByte(c)
			}
		case stString:
			b.WriteByte(c)
			if c == '\\' && i+1 < len(code) {
				i++
				b.WriteByte(code[i])
				continue
			}
			if c == quote || c == LineSep[0] {
				state = stCode
			}
		case stLine:
			if c == LineSep[0] || c == '\n' {
				state = stCode
				b.WriteByte(c)
			}
		case stBlock:
			if c == '*' && i+1 < len(code) && code[i+1] == '/' {
				state = stCode
				i++
			} else if c == LineSep[0] {
				// line breaks inside block comments are kept
				b.WriteByte(c)
			}
		}
	}
	return b.String()
}
