package rfc2047

import (
	"encoding/base64"
	"regexp"
	"strings"

	"github.com/neomutt/neomutt-sub017/charset"
	"github.com/neomutt/neomutt-sub017/helpers"
	"github.com/neomutt/neomutt-sub017/pkg/metrics"
)

// encodedWordRe matches one =?charset?E?text?= token. The charset class
// excludes especials; the text accepts anything but '?', including the
// whitespace some agents leak into words.
var encodedWordRe = regexp.MustCompile(`=\?([^][()<>@,;:\\"/?. =]+)\?([qQbB])\?([^?]+)\?=`)

// Decode rewrites a header value for display. Encoded words are decoded and
// converted to the local charset; linear whitespace between adjacent words
// is discarded; an encoded word whose bytes end mid-character joins the next
// word of the same charset before conversion. Unlabelled 8-bit text is
// interpreted through the assumed charsets when configured. A word whose
// payload will not decode leaves the entire value untouched.
func Decode(s string, opt Options) string {
	if s == "" {
		return s
	}

	target := opt.Charset
	if target == "" {
		target = charset.UTF8
	}
	assumed := opt.assumedList()

	var out strings.Builder
	var run strings.Builder // consecutive words in one charset
	runCharset := ""

	rest := s
	for len(rest) > 0 {
		loc := encodedWordRe.FindStringSubmatchIndex(rest)
		if loc == nil {
			if run.Len() > 0 {
				finalizeRun(&out, &run, runCharset, target)
			}
			out.WriteString(decodePlain(rest, assumed, target))
			break
		}

		if hole := rest[:loc[0]]; hole != "" {
			if isLinearWS(hole) {
				// Whitespace between encoded words disappears.
			} else {
				if run.Len() > 0 {
					finalizeRun(&out, &run, runCharset, target)
				}
				out.WriteString(decodePlain(hole, assumed, target))
			}
		}

		wordCharset := rest[loc[2]:loc[3]]
		decoded, ok := decodeWord(rest[loc[6]:loc[7]], rest[loc[4]])
		if !ok {
			metrics.Rfc2047Decodes.WithLabelValues("failure").Inc()
			return s
		}
		metrics.Rfc2047Decodes.WithLabelValues("success").Inc()

		if run.Len() > 0 && !strings.EqualFold(runCharset, wordCharset) {
			finalizeRun(&out, &run, runCharset, target)
		}
		run.WriteString(decoded)
		runCharset = wordCharset
		rest = rest[loc[1]:]
	}

	if run.Len() > 0 {
		finalizeRun(&out, &run, runCharset, target)
	}
	return out.String()
}

// decodeWord expands the payload of a single encoded word. Q-encoding is
// forgiving: a '=' without two hex digits stays literal. A broken B-encoded
// payload fails the whole word.
func decodeWord(text string, enc byte) (string, bool) {
	if enc == 'q' || enc == 'Q' {
		var sb strings.Builder
		for i := 0; i < len(text); i++ {
			c := text[i]
			switch {
			case c == '_':
				sb.WriteByte(' ')
			case c == '=' && i+2 < len(text) && hexval(text[i+1]) >= 0 && hexval(text[i+2]) >= 0:
				sb.WriteByte(byte(hexval(text[i+1])<<4 | hexval(text[i+2])))
				i += 2
			default:
				sb.WriteByte(c)
			}
		}
		return sb.String(), true
	}

	dec, err := base64.StdEncoding.DecodeString(text)
	if err != nil {
		return "", false
	}
	return string(dec), true
}

// finalizeRun converts the accumulated same-charset bytes to the local
// charset, scrubs them for display, and appends to the result.
func finalizeRun(out, run *strings.Builder, cs, target string) {
	text := run.String()
	run.Reset()
	if conv, _, err := charset.Convert(text, cs, target, charset.HookFrom); err == nil {
		text = conv
	}
	out.WriteString(helpers.FilterUnprintable(text))
}

func decodePlain(hole string, assumed []string, target string) string {
	if len(assumed) == 0 {
		return hole
	}
	conv, _ := charset.ConvertNonMime(assumed, target, hole)
	return conv
}

// isLinearWS reports whether the text is entirely folding whitespace. A run
// ending in a bare newline does not count; the fold was already consumed by
// unfolding and the newline separates real content.
func isLinearWS(s string) bool {
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case ' ', '\t', '\n', '\r':
		default:
			return false
		}
	}
	c := s[len(s)-1]
	return c != '\n' && c != '\r'
}

func hexval(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10
	case c >= 'A' && c <= 'F':
		return int(c-'A') + 10
	}
	return -1
}
