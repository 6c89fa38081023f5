package content

import (
	"io"
	"strings"

	"github.com/neomutt/neomutt-sub017/charset"
	"github.com/neomutt/neomutt-sub017/email"
)

// Settings holds the send-path knobs the analyser consults.
type Settings struct {
	Charset       string // charset of the local system and of attached text files
	SendCharset   string // colon-separated candidate charsets for outgoing text
	AttachCharset string // overrides Charset for attached text files when set
	Allow8Bit     bool   // permit the 8bit transfer encoding
	EncodeFrom    bool   // force quoted-printable on bodies with "From " lines
}

// GetContentInfo analyses the stream backing a body. Convertible text parts
// are first run through the candidate charsets; on success the body's
// charset parameter and source charset are filled in and the tally of the
// converted output is returned. Otherwise the raw bytes are tallied and the
// charset parameter is labelled from what was seen.
func GetContentInfo(rs io.ReadSeeker, b *email.Body, set Settings) (*email.Content, error) {
	convertible := b != nil && b.Type == email.TypeText && !b.NoConv && !b.ForceCharset

	if convertible {
		chs, hasChs := b.Parameter.Get("charset")
		fchs := set.Charset
		if b.UseDisp && set.AttachCharset != "" {
			fchs = set.AttachCharset
		}
		if set.Charset != "" && (hasChs || set.SendCharset != "") {
			tocodes := set.SendCharset
			if hasChs {
				tocodes = chs
			}
			if fromcode, tocode, info, err := ConvertFromTo(rs, fchs, tocodes); err == nil {
				if !hasChs {
					b.Parameter.Set("charset", charset.Canonical(tocode))
				}
				b.Charset = fromcode
				return info, nil
			}
		}
	}

	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	info, err := GetInfo(rs)
	if err != nil {
		return nil, err
	}

	if convertible {
		label := "us-ascii"
		if info.Hibin > 0 {
			if set.Charset != "" && !charset.IsUsAscii(set.Charset) {
				label = set.Charset
			} else {
				label = "unknown-8bit"
			}
		}
		b.Parameter.Set("charset", label)
	}
	return info, nil
}

// BodyCharset reports the charset a text body claims, canonicalized, with
// us-ascii as the unlabelled default. Non-text bodies have none.
func BodyCharset(b *email.Body) (string, bool) {
	if b != nil && b.Type != email.TypeText {
		return "", false
	}
	if b != nil {
		if p, ok := b.Parameter.Get("charset"); ok {
			return charset.Canonical(p), true
		}
	}
	return "us-ascii", true
}

// SelectEncoding picks the transfer encoding the tally calls for.
func SelectEncoding(b *email.Body, info *email.Content, set Settings) {
	switch {
	case b.Type == email.TypeText:
		chsname, _ := BodyCharset(b)
		if (info.Lobin > 0 && !strings.HasPrefix(chsname, "iso-2022")) ||
			info.Linemax > 990 || (info.From && set.EncodeFrom) {
			b.Encoding = email.EncQuotedPrintable
		} else if info.Hibin > 0 {
			if set.Allow8Bit {
				b.Encoding = email.Enc8Bit
			} else {
				b.Encoding = email.EncQuotedPrintable
			}
		} else {
			b.Encoding = email.Enc7Bit
		}

	case b.Type == email.TypeMessage || b.Type == email.TypeMultipart:
		if info.Lobin > 0 || info.Hibin > 0 {
			if set.Allow8Bit && info.Lobin == 0 {
				b.Encoding = email.Enc8Bit
			} else {
				// Nested content with bare control bytes cannot be
				// re-encoded here; it must be downgraded before sending.
				b.Encoding = email.Enc7Bit
			}
		} else {
			b.Encoding = email.Enc7Bit
		}

	case b.Type == email.TypeApplication && strings.EqualFold(b.Subtype, "pgp-keys"):
		b.Encoding = email.Enc7Bit

	default:
		if 1.33*float64(info.Lobin+info.Hibin+info.Ascii) <
			3.0*float64(info.Lobin+info.Hibin)+float64(info.Ascii) {
			b.Encoding = email.EncBase64
		} else {
			b.Encoding = email.EncQuotedPrintable
		}
	}
}

// UpdateEncoding re-analyses the stream backing a body and refreshes its
// charset parameter, transfer encoding and tally.
func UpdateEncoding(rs io.ReadSeeker, b *email.Body, set Settings) error {
	if chs, ok := BodyCharset(b); ok && charset.IsUsAscii(chs) {
		b.NoConv = false
	}
	if !b.ForceCharset && !b.NoConv {
		b.Parameter.Delete("charset")
	}
	info, err := GetContentInfo(rs, b, set)
	if err != nil {
		return err
	}
	SelectEncoding(b, info, set)
	b.Content = info
	return nil
}
