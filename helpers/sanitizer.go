package helpers

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// SanitizeUTF8 removes invalid UTF-8 sequences and NULL bytes from a string.
// Header fields pass through charset conversion before display, and a bad
// transcoder can still hand back stray bytes. This function ensures the
// string is safe to hand to terminals and downstream formatters.
func SanitizeUTF8(s string) string {
	// Quick check: if string is valid UTF-8 and has no NULL bytes, return as-is
	if utf8.ValidString(s) && !strings.ContainsRune(s, '\x00') {
		return s
	}

	buf := make([]rune, 0, len(s))
	for i, r := range s {
		// Skip NULL bytes (0x00)
		if r == '\x00' {
			continue
		}

		// Skip invalid UTF-8 sequences
		if r == utf8.RuneError {
			_, size := utf8.DecodeRuneInString(s[i:])
			if size == 1 {
				continue // skip invalid byte
			}
		}

		buf = append(buf, r)
	}
	return string(buf)
}

// FilterUnprintable rewrites decoded header text for display. Ill-formed
// byte sequences become U+FFFD, non-printable characters become '?', and
// zero-width or directional-override characters are dropped outright so a
// crafted subject line cannot reorder or hide what the user sees.
func FilterUnprintable(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		i += size
		if r == utf8.RuneError && size == 1 {
			r = unicode.ReplacementChar
		}
		if !isWidePrint(r) {
			sb.WriteByte('?')
			continue
		}
		if isDisplayCorrupting(r) {
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

func isWidePrint(r rune) bool {
	return unicode.IsPrint(r) || (r >= 0xa0 && unicode.IsGraphic(r))
}

// isDisplayCorrupting reports whether the character can reorder or conceal
// surrounding text on a terminal even though it is nominally printable.
func isDisplayCorrupting(r rune) bool {
	switch r {
	case 0x00ad, // soft hyphen
		0x061c, // arabic letter mark
		0x200e, // left-to-right mark
		0x200f, // right-to-left mark
		0xfeff: // zero-width no-break space
		return true
	}
	if r >= 0x202a && r <= 0x202e { // directional embeddings and overrides
		return true
	}
	if r >= 0x2066 && r <= 0x2069 { // directional isolates
		return true
	}
	return false
}
