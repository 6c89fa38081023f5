package email

import (
	"fmt"
	"strings"
)

// AddressSpecials are the characters with structural meaning in an
// address header.
const AddressSpecials = `"(),.:;<>@[\]`

// Subsets of AddressSpecials that end the local part, the domain and a
// source route respectively.
const (
	userSpecials   = `),:;<>@[]`
	domainSpecials = `"),:;<>@`
	routeSpecials  = `"):;<>@`
)

// Address is one parsed mailbox or group marker. A Group entry opens a
// named group; an entry with neither mailbox nor personal closes it.
type Address struct {
	Personal string
	Mailbox  string
	Group    bool
}

// AddressList is an ordered list of addresses as they appeared in a
// header field.
type AddressList []*Address

func isEmailWsp(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n'
}

func skipEmailWsp(s string) string {
	for len(s) > 0 && isEmailWsp(s[0]) {
		s = s[1:]
	}
	return s
}

func isAddrSpecial(c byte) bool {
	return strings.IndexByte(AddressSpecials, c) >= 0
}

// parseComment consumes a parenthesised comment, s starting just after
// the opening parenthesis. Nested comments flatten into the same buffer.
func parseComment(s string, comment *strings.Builder) (string, bool) {
	level := 1
	for len(s) > 0 {
		switch s[0] {
		case '(':
			level++
		case ')':
			level--
			if level == 0 {
				return s[1:], true
			}
		case '\\':
			s = s[1:]
			if len(s) == 0 {
				return "", false
			}
		}
		comment.WriteByte(s[0])
		s = s[1:]
	}
	return "", false
}

// parseQuote consumes a quoted string, s starting just after the opening
// quote. Backslash escapes collapse to the escaped character.
func parseQuote(s string, token *strings.Builder) (string, bool) {
	for len(s) > 0 {
		c := s[0]
		if c == '\\' {
			s = s[1:]
			if len(s) == 0 {
				return "", false
			}
			c = s[0]
		} else if c == '"' {
			return s[1:], true
		}
		token.WriteByte(c)
		s = s[1:]
	}
	return "", false
}

// nextToken grabs the next word: a comment, a quoted string, a single
// special character, or a run of plain characters.
func nextToken(s string, token *strings.Builder) (string, bool) {
	if len(s) == 0 {
		return s, true
	}
	switch {
	case s[0] == '(':
		return parseComment(s[1:], token)
	case s[0] == '"':
		return parseQuote(s[1:], token)
	case isAddrSpecial(s[0]):
		token.WriteByte(s[0])
		return s[1:], true
	}
	for len(s) > 0 {
		if isEmailWsp(s[0]) || isAddrSpecial(s[0]) {
			break
		}
		token.WriteByte(s[0])
		s = s[1:]
	}
	return s, true
}

// parseMailboxDomain collects one side of an addr-spec, stopping at any
// character in specials. Comments found along the way accumulate
// space-separated in comment.
func parseMailboxDomain(s, specials string, mailbox, comment *strings.Builder) (string, bool) {
	for len(s) > 0 {
		s = skipEmailWsp(s)
		if len(s) == 0 {
			return s, true
		}
		if strings.IndexByte(specials, s[0]) >= 0 {
			return s, true
		}

		var ok bool
		if s[0] == '(' {
			if comment.Len() > 0 {
				comment.WriteByte(' ')
			}
			s, ok = nextToken(s, comment)
		} else {
			s, ok = nextToken(s, mailbox)
		}
		if !ok {
			return "", false
		}
	}
	return s, true
}

// parseAddress reads local@domain into token and fills in the address,
// promoting a gathered comment to the personal name if none is set.
func parseAddress(s string, token, comment *strings.Builder, a *Address) (string, bool) {
	s, ok := parseMailboxDomain(s, userSpecials, token, comment)
	if !ok {
		return "", false
	}

	if len(s) > 0 && s[0] == '@' {
		token.WriteByte('@')
		s, ok = parseMailboxDomain(s[1:], domainSpecials, token, comment)
		if !ok {
			return "", false
		}
	}

	a.Mailbox = token.String()
	if comment.Len() > 0 && a.Personal == "" {
		a.Personal = comment.String()
	}
	return s, true
}

// parseRouteAddr reads an angle-bracketed address, s starting just after
// the '<'. An obsolete @a,@b: source route is folded into the mailbox.
func parseRouteAddr(s string, comment *strings.Builder, a *Address) (string, bool) {
	var token strings.Builder
	s = skipEmailWsp(s)

	if len(s) > 0 && s[0] == '@' {
		var ok bool
		for len(s) > 0 && s[0] == '@' {
			token.WriteByte('@')
			s, ok = parseMailboxDomain(s[1:], routeSpecials, &token, comment)
			if !ok {
				return "", false
			}
		}
		if len(s) == 0 || s[0] != ':' {
			return "", false
		}
		token.WriteByte(':')
		s = s[1:]
	}

	s, ok := parseAddress(s, &token, comment, a)
	if !ok {
		return "", false
	}
	if len(s) == 0 || s[0] != '>' {
		return "", false
	}
	if a.Mailbox == "" {
		a.Mailbox = "@"
	}
	return s[1:], true
}

// parseAddrSpec parses a bare addr-spec; trailing text other than a list
// separator makes it invalid.
func parseAddrSpec(s string, comment *strings.Builder, a *Address) bool {
	var token strings.Builder
	s, ok := parseAddress(s, &token, comment, a)
	if !ok {
		return false
	}
	return len(s) == 0 || s[0] == ',' || s[0] == ';'
}

func addAddrSpec(al *AddressList, phrase string, comment *strings.Builder) bool {
	a := &Address{}
	if !parseAddrSpec(phrase, comment, a) {
		return false
	}
	*al = append(*al, a)
	return true
}

// Last returns the final entry, or nil.
func (al AddressList) Last() *Address {
	if len(al) == 0 {
		return nil
	}
	return al[len(al)-1]
}

// Parse parses a comma or semicolon separated address list and appends
// the results. It returns the number of addresses parsed; a malformed
// list clears al entirely and returns 0.
func (al *AddressList) Parse(s string) int {
	parsed := 0
	var phrase, comment strings.Builder

	wsPending := len(s) > 0 && isEmailWsp(s[0])
	s = skipEmailWsp(s)
	for len(s) > 0 {
		var ok bool
		switch s[0] {
		case ',', ';':
			if phrase.Len() > 0 {
				if addAddrSpec(al, phrase.String(), &comment) {
					parsed++
				}
			} else if comment.Len() > 0 {
				if last := al.Last(); last != nil && last.Personal == "" && last.Mailbox != "" {
					last.Personal = comment.String()
				}
			}
			if s[0] == ';' {
				// group terminator
				*al = append(*al, &Address{})
			}
			phrase.Reset()
			comment.Reset()
			s = s[1:]

		case '(':
			if comment.Len() > 0 {
				comment.WriteByte(' ')
			}
			if s, ok = nextToken(s, &comment); !ok {
				*al = nil
				return 0
			}

		case '"':
			if phrase.Len() > 0 {
				phrase.WriteByte(' ')
			}
			if s, ok = parseQuote(s[1:], &phrase); !ok {
				*al = nil
				return 0
			}

		case ':':
			a := &Address{Group: true}
			if phrase.Len() > 0 {
				a.Mailbox = phrase.String()
			}
			*al = append(*al, a)
			phrase.Reset()
			comment.Reset()
			s = s[1:]

		case '<':
			a := &Address{}
			if phrase.Len() > 0 {
				a.Personal = phrase.String()
			}
			if s, ok = parseRouteAddr(s[1:], &comment, a); !ok {
				*al = nil
				return 0
			}
			*al = append(*al, a)
			phrase.Reset()
			comment.Reset()
			parsed++

		default:
			if phrase.Len() > 0 && wsPending {
				phrase.WriteByte(' ')
			}
			if s[0] == '\\' {
				s = s[1:]
				if len(s) > 0 {
					phrase.WriteByte(s[0])
					s = s[1:]
				}
			}
			if s, ok = nextToken(s, &phrase); !ok {
				*al = nil
				return 0
			}
		}

		wsPending = len(s) > 0 && isEmailWsp(s[0])
		s = skipEmailWsp(s)
	}

	if phrase.Len() > 0 {
		if addAddrSpec(al, phrase.String(), &comment) {
			parsed++
		}
	} else if comment.Len() > 0 {
		if last := al.Last(); last != nil && last.Personal == "" && last.Mailbox != "" {
			last.Personal = comment.String()
		}
	}

	return parsed
}

// Parse2 behaves like Parse but also accepts a plain whitespace
// separated list of bare addresses.
func (al *AddressList) Parse2(s string) int {
	if s == "" {
		return 0
	}
	if !strings.ContainsAny(s, "\"<>():;,\\") {
		parsed := 0
		for _, word := range strings.Fields(s) {
			parsed += al.Parse(word)
		}
		return parsed
	}
	return al.Parse(s)
}

// Qualify appends @host to any non-group address without a domain.
func (al AddressList) Qualify(host string) {
	if host == "" {
		return
	}
	for _, a := range al {
		if !a.Group && a.Mailbox != "" && !strings.ContainsRune(a.Mailbox, '@') {
			a.Mailbox += "@" + host
		}
	}
}

// Equal reports whether two lists carry exactly the same addresses in
// the same order.
func (al AddressList) Equal(other AddressList) bool {
	if len(al) != len(other) {
		return false
	}
	for i, a := range al {
		if a.Mailbox != other[i].Mailbox || a.Personal != other[i].Personal {
			return false
		}
	}
	return true
}

// QuoteSpecials wraps value in double quotes when it contains any of the
// given special characters, escaping embedded quotes and backslashes.
func QuoteSpecials(value, specials string) string {
	if !strings.ContainsAny(value, specials) {
		return value
	}
	var buf strings.Builder
	buf.WriteByte('"')
	for i := 0; i < len(value); i++ {
		if value[i] == '"' || value[i] == '\\' {
			buf.WriteByte('\\')
		}
		buf.WriteByte(value[i])
	}
	buf.WriteByte('"')
	return buf.String()
}

func (a *Address) write(buf *strings.Builder) {
	if a.Personal == "" && a.Mailbox == "" {
		return
	}

	if a.Personal != "" {
		if strings.ContainsAny(a.Personal, AddressSpecials) {
			buf.WriteByte('"')
			for i := 0; i < len(a.Personal); i++ {
				if a.Personal[i] == '"' || a.Personal[i] == '\\' {
					buf.WriteByte('\\')
				}
				buf.WriteByte(a.Personal[i])
			}
			buf.WriteByte('"')
		} else {
			buf.WriteString(a.Personal)
		}
		buf.WriteByte(' ')
	}

	angle := a.Personal != "" || (a.Mailbox != "" && a.Mailbox[0] == '@')
	if angle {
		buf.WriteByte('<')
	}

	if a.Mailbox != "" {
		if a.Mailbox != "@" {
			buf.WriteString(a.Mailbox)
		}
		if angle {
			buf.WriteByte('>')
		}
		if a.Group {
			buf.WriteString(": ")
		}
	} else {
		buf.WriteByte(';')
	}
}

// String renders one address in header form.
func (a *Address) String() string {
	var buf strings.Builder
	a.write(&buf)
	return buf.String()
}

func (al AddressList) write(buf *strings.Builder, header string, cols int) {
	if len(al) == 0 {
		return
	}
	if header != "" {
		fmt.Fprintf(buf, "%s: ", header)
	}

	curCol := buf.Len()
	inGroup := false
	for i, a := range al {
		if a.Group {
			inGroup = true
		}

		s := a.String()
		if cols > 0 && curCol+len(s) > cols && i > 0 {
			buf.WriteString("\n\t")
			buf.WriteString(s)
			curCol = 8
		} else {
			buf.WriteString(s)
			curCol += len(s)
		}

		if !a.Group {
			if inGroup && a.Mailbox == "" && a.Personal == "" {
				buf.WriteByte(';')
				curCol++
				inGroup = false
			}
			var next *Address
			if i+1 < len(al) {
				next = al[i+1]
			}
			if next == nil {
				break
			}
			if next.Mailbox != "" || next.Personal != "" {
				buf.WriteString(", ")
				curCol += 2
			}
		}
	}
}

// Write renders the list on one line.
func (al AddressList) Write() string {
	var buf strings.Builder
	al.write(&buf, "", -1)
	return buf.String()
}

// WriteWrap renders "header: addresses" folded at 74 columns with tab
// continuations.
func (al AddressList) WriteWrap(header string) string {
	var buf strings.Builder
	al.write(&buf, header, 74)
	return buf.String()
}
