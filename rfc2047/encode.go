package rfc2047

import (
	"encoding/base64"
	"strings"

	"github.com/neomutt/neomutt-sub017/charset"
	"github.com/neomutt/neomutt-sub017/consts"
	"github.com/neomutt/neomutt-sub017/pkg/metrics"
)

type encoderKind uint8

const (
	encoderQ encoderKind = iota
	encoderB
)

// Encode rewrites a header value so every byte that cannot travel bare sits
// inside an encoded word. col is the column where the value starts on its
// first line, so the width of the header name is honoured. specials lists
// characters that must also be hidden whenever any encoding happens at all;
// address display names pass their quoting set here. Returns the input
// unchanged when no local charset is configured or nothing needs encoding.
func Encode(s, specials string, col int, opt Options) string {
	if s == "" || opt.Charset == "" {
		return s
	}
	charsets := opt.SendCharsets
	if charsets == "" {
		charsets = charset.UTF8
	}
	return encode(s, col, opt.Charset, charsets, specials)
}

// EncodeAddrHeader encodes a display name that will follow the given
// header tag, so the first encoded word fits after "Tag: ". Without a
// tag the conventional 32-column indent of a folded address line is
// assumed.
func EncodeAddrHeader(tag, s, specials string, opt Options) string {
	col := 32
	if tag != "" {
		col = len(tag) + 2
	}
	return Encode(s, specials, col, opt)
}

func encode(d string, col int, fromcode, charsets, specials string) string {
	// Bridge through UTF-8 so byte positions line up with characters. If
	// the local charset is unknown the raw bytes are encoded as-is.
	icode := true
	u, _, err := charset.Convert(d, fromcode, charset.UTF8, charset.NoFlags)
	if err != nil {
		icode = false
		u = d
	}
	ulen := len(u)

	// Find the earliest and latest bytes we must encode: 8-bit data, and
	// a literal "=?" at the start of a word.
	t0, t1 := -1, -1
	s0, s1 := -1, -1
	for i := 0; i < ulen; i++ {
		c := u[i]
		if c&0x80 != 0 || (c == '=' && i+1 < ulen && u[i+1] == '?' && (i == 0 || hspace(u[i-1]))) {
			if t0 < 0 {
				t0 = i
			}
			t1 = i
		} else if specials != "" && strings.IndexByte(specials, c) >= 0 {
			if s0 < 0 {
				s0 = i
			}
			s1 = i
		}
	}

	// Specials widen the region, but only once something else forces
	// encoding in the first place.
	if t0 >= 0 && s0 >= 0 && s0 < t0 {
		t0 = s0
	}
	if t1 >= 0 && s1 >= 0 && s1 > t1 {
		t1 = s1
	}

	if t0 < 0 {
		return u
	}
	metrics.Rfc2047Encodes.Inc()

	tocode := fromcode
	if icode {
		if chosen, _, cerr := charset.Choose(charset.UTF8, charsets, u); cerr == nil {
			tocode = chosen
		} else {
			icode = false
		}
	}
	// Raw 8-bit data must not be labelled us-ascii.
	if !icode && charset.IsUsAscii(tocode) {
		tocode = "unknown-8bit"
	}

	// The first encoded word has to fit on the first line.
	if lim := consts.HeaderWrapCol - col - consts.EncWordMin; lim < t0 {
		if lim < 0 {
			lim = 0
		}
		t0 = lim
	}

	// Pull t0 back to just after whitespace, where a word can start.
	for ; t0 > 0; t0-- {
		if !hspace(u[t0-1]) {
			continue
		}
		end := t0 + 1
		if icode {
			for end < ulen && isContinuation(u[end]) {
				end++
			}
		}
		if split, _, w := tryBlock(u[t0:end], icode, tocode); split == 0 && col+t0+w <= consts.HeaderWrapCol {
			break
		}
	}

	// Push t1 forward to whitespace, so the unencoded suffix starts clean.
	for ; t1 < ulen; t1++ {
		if !hspace(u[t1]) {
			continue
		}
		start := t1 - 1
		if icode {
			for start > 0 && isContinuation(u[start]) {
				start--
			}
		}
		if split, _, w := tryBlock(u[start:t1], icode, tocode); split == 0 && 1+w+(ulen-t1) <= consts.HeaderWrapCol {
			break
		}
	}

	// Encode the region [t0,t1), folding between words.
	var sb strings.Builder
	sb.WriteString(u[:t0])
	col += t0

	pos := t0
	var lastKind encoderKind
	for {
		n, k, w := chooseBlock(u[pos:t1], col, icode, tocode)
		if n == t1-pos {
			// See if the remaining plain text fits on the same line.
			if col+w+(ulen-t1) <= consts.HeaderWrapCol {
				lastKind = k
				break
			}
			n = t1 - pos - 1
			if icode {
				for n > 0 && isContinuation(u[pos+n]) {
					n--
				}
			}
			if n == 0 {
				// A single word needs encoding but the trailing text
				// cannot share its line. Absorb the next word into the
				// region and try again.
				t1++
				for t1 < ulen && !hspace(u[t1]) {
					t1++
				}
				continue
			}
			n, k, _ = chooseBlock(u[pos:pos+n], col, icode, tocode)
		}
		sb.WriteString(encodeBlock(u[pos:pos+n], icode, tocode, k))
		sb.WriteString("\n\t")
		col = 1
		pos += n
	}

	sb.WriteString(encodeBlock(u[pos:t1], icode, tocode, lastKind))
	sb.WriteString(u[t1:])
	return sb.String()
}

// tryBlock reports whether d fits in a single encoded word as tocode. On
// success split is 0 and kind/wlen describe the word; otherwise split is a
// smaller input length worth trying.
func tryBlock(d string, utf8Input bool, tocode string) (split int, kind encoderKind, wlen int) {
	budget := consts.EncWordMax - consts.EncWordMin + 1 - len(tocode)
	conv := d
	if utf8Input {
		out, consumed, fit, err := charset.EncodeBudget(tocode, d, budget)
		if err != nil || !fit {
			if consumed >= len(d) {
				return len(d), 0, 0
			}
			if consumed < 1 {
				consumed = 1
			}
			return consumed + 1, 0, 0
		}
		conv = string(out)
	} else if len(d) > budget {
		return budget + 1, 0, 0
	}

	count := 0
	for i := 0; i < len(conv); i++ {
		c := conv[i]
		if c >= 0x7f || c < 0x20 || c == '_' || (c != ' ' && strings.IndexByte(MimeSpecials, c) >= 0) {
			count++
		}
	}

	length := consts.EncWordMin - 2 + len(tocode)
	lenB := length + ((len(conv)+2)/3)*4
	lenQ := length + len(conv) + 2*count

	// RFC 1468 says to use B encoding for iso-2022-jp.
	if strings.EqualFold(tocode, "iso-2022-jp") {
		lenQ = consts.EncWordMax + 1
	}

	switch {
	case lenB < lenQ && lenB <= consts.EncWordMax:
		return 0, encoderB, lenB
	case lenQ <= consts.EncWordMax:
		return 0, encoderQ, lenQ
	default:
		return len(d), 0, 0
	}
}

// chooseBlock picks the largest prefix of d whose encoded word fits on the
// current line, keeping splits on character boundaries.
func chooseBlock(d string, col int, utf8Input bool, tocode string) (n int, kind encoderKind, wlen int) {
	n = len(d)
	for {
		split, k, w := tryBlock(d[:n], utf8Input, tocode)
		if split == 0 && (col+w <= consts.HeaderWrapCol || n <= 1) {
			return n, k, w
		}
		if n <= 1 {
			// A single character that cannot fit; emit it oversized
			// rather than loop.
			return n, k, w
		}
		if split != 0 {
			n = split - 1
		} else {
			n--
		}
		if n < 1 {
			n = 1
		}
		for utf8Input && n > 1 && isContinuation(d[n]) {
			n--
		}
	}
}

func encodeBlock(seg string, utf8Input bool, tocode string, kind encoderKind) string {
	conv := seg
	if utf8Input {
		budget := consts.EncWordMax - consts.EncWordMin + 1 - len(tocode)
		if out, _, _, err := charset.EncodeBudget(tocode, seg, budget); err == nil {
			conv = string(out)
		}
	}
	if kind == encoderB {
		return bEncode(conv, tocode)
	}
	return qEncode(conv, tocode)
}

func bEncode(conv, tocode string) string {
	var sb strings.Builder
	sb.WriteString("=?")
	sb.WriteString(tocode)
	sb.WriteString("?B?")
	sb.WriteString(base64.StdEncoding.EncodeToString([]byte(conv)))
	sb.WriteString("?=")
	return sb.String()
}

func qEncode(conv, tocode string) string {
	const hex = "0123456789ABCDEF"
	var sb strings.Builder
	sb.WriteString("=?")
	sb.WriteString(tocode)
	sb.WriteString("?Q?")
	for i := 0; i < len(conv); i++ {
		c := conv[i]
		switch {
		case c == ' ':
			sb.WriteByte('_')
		case c >= 0x7f || c < 0x20 || c == '_' || strings.IndexByte(MimeSpecials, c) >= 0:
			sb.WriteByte('=')
			sb.WriteByte(hex[c>>4])
			sb.WriteByte(hex[c&0x0f])
		default:
			sb.WriteByte(c)
		}
	}
	sb.WriteString("?=")
	return sb.String()
}
