// Package regexlist implements the pattern collections the rc commands
// maintain: plain regex lists (alternates, mailing lists, subscribed
// lists) and rewrite lists pairing a pattern with an expansion template
// (spam, subjectrx). Patterns compile case-insensitively unless they
// contain an uppercase letter and smart-case is in effect.
package regexlist

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// Flags controls how a Regex is compiled.
type Flags uint8

const (
	// MatchCase disables smart-case: the pattern matches exactly as
	// written even when all-lowercase.
	MatchCase Flags = 1 << iota
	// AllowNot lets a leading '!' negate the match.
	AllowNot
)

// Regex is one compiled pattern. Not inverts the match result.
type Regex struct {
	Pattern string
	Not     bool
	re      *regexp.Regexp
}

// New compiles a pattern with smart-case and optional negation. An empty
// pattern yields nil with no error; callers treat that as unset.
func New(pattern string, flags Flags) (*Regex, error) {
	if pattern == "" {
		return nil, nil
	}

	icase := flags&MatchCase == 0 && isLower(pattern)

	rx := &Regex{Pattern: pattern}
	expr := pattern
	if flags&AllowNot != 0 && expr[0] == '!' {
		rx.Not = true
		expr = expr[1:]
	}
	if icase {
		expr = "(?i)" + expr
	}

	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("bad regex %q: %w", pattern, err)
	}
	rx.re = re
	return rx, nil
}

// compile builds a Regex with an explicit case choice and no negation,
// the form the list commands use.
func compile(pattern string, icase bool) (*Regex, error) {
	if pattern == "" {
		return nil, fmt.Errorf("bad regex %q: empty pattern", pattern)
	}
	expr := pattern
	if icase {
		expr = "(?i)" + expr
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("bad regex %q: %w", pattern, err)
	}
	return &Regex{Pattern: pattern, re: re}, nil
}

// Match reports whether s matches, honouring negation.
func (rx *Regex) Match(s string) bool {
	if rx == nil || rx.re == nil {
		return false
	}
	return rx.re.MatchString(s) != rx.Not
}

func isLower(s string) bool {
	for _, r := range s {
		if unicode.IsUpper(r) {
			return false
		}
	}
	return true
}

// List is an ordered set of patterns. Adding an existing pattern is a
// no-op; matching stops at the first hit.
type List struct {
	entries []*Regex
}

// Add compiles pattern case-insensitively and appends it unless an equal
// pattern (ignoring case) is already present.
func (l *List) Add(pattern string) error {
	if pattern == "" {
		return nil
	}
	for _, e := range l.entries {
		if strings.EqualFold(e.Pattern, pattern) {
			return nil
		}
	}
	rx, err := compile(pattern, true)
	if err != nil {
		return err
	}
	l.entries = append(l.entries, rx)
	return nil
}

// Remove deletes every entry whose pattern equals pattern, ignoring case.
// "*" clears the list. It reports whether anything was removed.
func (l *List) Remove(pattern string) bool {
	if pattern == "*" {
		l.entries = nil
		return true
	}
	kept := l.entries[:0]
	removed := false
	for _, e := range l.entries {
		if strings.EqualFold(e.Pattern, pattern) {
			removed = true
			continue
		}
		kept = append(kept, e)
	}
	l.entries = kept
	return removed
}

// Match returns the pattern of the first entry matching s.
func (l *List) Match(s string) (string, bool) {
	if l == nil {
		return "", false
	}
	for _, e := range l.entries {
		if e.Match(s) {
			return e.Pattern, true
		}
	}
	return "", false
}

// Patterns lists the stored patterns in order.
func (l *List) Patterns() []string {
	out := make([]string, len(l.entries))
	for i, e := range l.entries {
		out[i] = e.Pattern
	}
	return out
}

// Len reports the number of entries.
func (l *List) Len() int { return len(l.entries) }

// Clear removes every entry.
func (l *List) Clear() { l.entries = nil }
