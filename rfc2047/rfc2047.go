// Package rfc2047 implements the MIME encoded-word codec used in message
// headers. Decoding tolerates the usual real-world damage: words split
// mid-character, adjacent words in different charsets, and unlabelled 8-bit
// text. Encoding picks the cheapest representation that keeps every line
// within the header width.
package rfc2047

// MimeSpecials are the characters that cannot appear bare inside a
// Q-encoded word.
const MimeSpecials = "@.,;:<>[]\\\"()?/= \t"

// Options carries the charset configuration that drives the codec.
type Options struct {
	// Charset is the local character set. Decoded text is converted into
	// it; outgoing text is converted from it. Encoding is skipped entirely
	// when it is empty.
	Charset string
	// SendCharsets is the colon-separated candidate list for outgoing
	// headers. Empty means utf-8 only.
	SendCharsets string
	// AssumedCharset is the colon-separated list of charsets tried, in
	// order, for unlabelled 8-bit header text. Empty leaves such text
	// untouched.
	AssumedCharset string
}

func (o Options) assumedList() []string {
	if o.AssumedCharset == "" {
		return nil
	}
	var out []string
	start := 0
	for i := 0; i <= len(o.AssumedCharset); i++ {
		if i == len(o.AssumedCharset) || o.AssumedCharset[i] == ':' {
			if i > start {
				out = append(out, o.AssumedCharset[start:i])
			}
			start = i + 1
		}
	}
	return out
}

func hspace(c byte) bool {
	return c == ' ' || c == '\t'
}

func isContinuation(c byte) bool {
	return c&0xc0 == 0x80
}
