package regexlist

import (
	"fmt"
	"strings"
)

// Replace pairs a pattern with an expansion template. nmatch is the
// number of capture slots the template needs, counting the whole match.
type Replace struct {
	Pattern  string
	Template string
	nmatch   int
	rx       *Regex
}

// ReplaceList is an ordered set of rewrite rules.
type ReplaceList struct {
	entries []*Replace
}

// Add compiles pattern and stores it with its template. Re-adding a
// pattern (ignoring case) replaces its template. The template's highest
// %n backreference must not exceed the pattern's capture groups.
func (l *ReplaceList) Add(pattern, templ string) error {
	if pattern == "" {
		return nil
	}

	var np *Replace
	for _, e := range l.entries {
		if strings.EqualFold(e.Pattern, pattern) {
			np = e
			break
		}
	}
	if np == nil {
		rx, err := compile(pattern, true)
		if err != nil {
			return err
		}
		np = &Replace{Pattern: pattern, rx: rx}
		l.entries = append(l.entries, np)
	}
	np.Template = templ

	np.nmatch = 0
	for i := 0; i < len(templ); {
		if templ[i] != '%' {
			i++
			continue
		}
		i++
		n, width := atoiPrefix(templ[i:])
		if width == 0 {
			// Not a backreference; %L and %R land here.
			i++
			continue
		}
		if n > np.nmatch {
			np.nmatch = n
		}
		i += width
	}

	if np.nmatch > np.rx.re.NumSubexp() {
		l.Remove(pattern)
		return fmt.Errorf("not enough subexpressions for template %q", templ)
	}

	np.nmatch++ // slot 0 is the whole match
	return nil
}

// Remove deletes every rule whose pattern equals pat exactly and returns
// how many were removed.
func (l *ReplaceList) Remove(pat string) int {
	kept := l.entries[:0]
	removed := 0
	for _, e := range l.entries {
		if e.Pattern == pat {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	l.entries = kept
	return removed
}

// Apply runs every matching rule over s in order, each expansion feeding
// the next rule. Templates may use %n capture groups plus %L and %R for
// the text left and right of the whole match.
func (l *ReplaceList) Apply(s string) string {
	if l == nil || s == "" {
		return ""
	}

	src := s
	for _, e := range l.entries {
		m := e.rx.re.FindStringSubmatchIndex(src)
		if m == nil {
			continue
		}

		var dst strings.Builder
		t := e.Template
		for i := 0; i < len(t); {
			if t[i] != '%' {
				dst.WriteByte(t[i])
				i++
				continue
			}
			i++
			switch {
			case i < len(t) && t[i] == 'L':
				i++
				dst.WriteString(src[:m[0]])
			case i < len(t) && t[i] == 'R':
				i++
				dst.WriteString(src[m[1]:])
			default:
				n, width := atoiPrefix(t[i:])
				if n < e.nmatch && 2*n < len(m) && m[2*n] >= 0 {
					dst.WriteString(src[m[2*n]:m[2*n+1]])
				}
				i += width
			}
		}
		src = dst.String()
	}
	return src
}

// Match finds the first rule matching s and returns its expanded
// template. Only %n backreferences expand here; a % followed by anything
// else drops the % and keeps the rest.
func (l *ReplaceList) Match(s string) (string, bool) {
	if l == nil {
		return "", false
	}

	for _, e := range l.entries {
		m := e.rx.re.FindStringSubmatchIndex(s)
		if m == nil {
			continue
		}

		var dst strings.Builder
		t := e.Template
		for i := 0; i < len(t); {
			if t[i] != '%' {
				dst.WriteByte(t[i])
				i++
				continue
			}
			i++
			n, width := atoiPrefix(t[i:])
			if width > 0 && n < e.nmatch && 2*n < len(m) && m[2*n] >= 0 {
				dst.WriteString(s[m[2*n]:m[2*n+1]])
			}
			i += width
		}
		return dst.String(), true
	}
	return "", false
}

// Items returns the rules in order for display.
func (l *ReplaceList) Items() []Replace {
	out := make([]Replace, len(l.entries))
	for i, e := range l.entries {
		out[i] = *e
	}
	return out
}

// Len reports the number of rules.
func (l *ReplaceList) Len() int { return len(l.entries) }

// Clear removes every rule.
func (l *ReplaceList) Clear() { l.entries = nil }

// atoiPrefix parses the leading decimal digits of s. width is 0 when s
// does not start with a digit.
func atoiPrefix(s string) (n, width int) {
	for width < len(s) && s[width] >= '0' && s[width] <= '9' {
		n = n*10 + int(s[width]-'0')
		width++
	}
	return n, width
}
