package token

import "github.com/neomutt/neomutt-sub017/buffer"

// EscapeString appends src to buf with rc-file escaping applied: newlines,
// carriage returns and tabs become \n, \r and \t, and backslashes and double
// quotes gain a protecting backslash.
func EscapeString(buf *buffer.Buffer, src string) {
	for i := 0; i < len(src); i++ {
		switch c := src[i]; c {
		case '\n':
			buf.AddString(`\n`)
		case '\r':
			buf.AddString(`\r`)
		case '\t':
			buf.AddString(`\t`)
		default:
			if c == '\\' || c == '"' {
				buf.AddByte('\\')
			}
			buf.AddByte(c)
		}
	}
}

// QuoteString returns s wrapped in double quotes with rc-file escaping, so
// that extracting the result yields s again.
func QuoteString(s string) string {
	buf := buffer.Get()
	defer buffer.Release(buf)
	buf.AddByte('"')
	EscapeString(buf, s)
	buf.AddByte('"')
	return buf.String()
}
