// Package charset normalizes character set labels and converts text between
// encodings, bridging through UTF-8. Mail headers carry notoriously creative
// charset names, so lookups go through an alias table and user-defined hooks
// before reaching the IANA registry.
package charset

import (
	"strings"
)

// UTF8 and ASCII are the canonical names used throughout.
const (
	UTF8  = "utf-8"
	ASCII = "us-ascii"
)

func istrEqual(a, b string) bool { return strings.EqualFold(a, b) }

func istrPrefix(s, prefix string) (string, bool) {
	if len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix) {
		return s[len(prefix):], true
	}
	return "", false
}

// Canonical reduces a charset label to its preferred MIME name: a trailing
// "/extension" is preserved, common iso-8859 misspellings are repaired, the
// alias table is consulted, and anything left over is lowercased.
func Canonical(name string) string {
	in := name
	ext := ""
	if i := strings.IndexByte(in, '/'); i >= 0 {
		ext = in[i+1:]
		in = in[:i]
	}

	var out string
	switch {
	case istrEqual(in, "utf-8") || istrEqual(in, "utf8"):
		out = UTF8
	default:
		scratch := in
		if rest, ok := istrPrefix(in, "8859-"); ok {
			scratch = "iso-8859-" + rest
		} else if rest, ok := istrPrefix(in, "8859"); ok && rest != "" && rest[0] != '-' {
			scratch = "iso-8859-" + rest
		} else if rest, ok := istrPrefix(in, "iso8859-"); ok {
			scratch = "iso_8859-" + rest
		} else if rest, ok := istrPrefix(in, "iso8859"); ok && rest != "" && rest[0] != '-' {
			scratch = "iso_8859-" + rest
		}

		out = ""
		for _, m := range preferredMIMENames {
			if istrEqual(scratch, m.key) {
				out = m.pref
				break
			}
		}
		if out == "" {
			out = strings.ToLower(scratch)
		}
	}

	if ext != "" {
		out += "/" + ext
	}
	return out
}

// IsUTF8 reports whether the label names UTF-8 under any spelling.
func IsUTF8(name string) bool {
	return istrEqual(name, "utf-8") || istrEqual(name, "utf8")
}

// IsUsAscii reports whether the label names US-ASCII under any spelling.
func IsUsAscii(name string) bool {
	return Canonical(name) == ASCII
}

// CheckCharset reports whether the label names a usable character set. In
// strict mode a converter must actually be resolvable; otherwise a match in
// the alias table is enough.
func CheckCharset(name string, strict bool) bool {
	if IsUTF8(name) || istrEqual(name, "us-ascii") {
		return true
	}

	if !strict {
		for _, m := range preferredMIMENames {
			if istrEqual(m.key, name) || istrEqual(m.pref, name) {
				return true
			}
		}
		return false
	}

	_, err := resolve(name)
	return err == nil
}

// DefaultCharset returns the first assumed charset, or us-ascii when the
// list is empty. The result is used for raw 8-bit header text.
func DefaultCharset(assumed []string) string {
	if len(assumed) > 0 && assumed[0] != "" {
		return assumed[0]
	}
	return ASCII
}
