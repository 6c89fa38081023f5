package charset

import (
	"bytes"
	"io"
	"strings"
	"sync"
	"unicode/utf8"

	mimecharset "github.com/emersion/go-message/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/transform"

	"github.com/neomutt/neomutt-sub017/consts"
	"github.com/neomutt/neomutt-sub017/pkg/metrics"
)

// Flags adjust how charset labels are interpreted during conversion.
type Flags uint8

const (
	NoFlags Flags = 0
	// HookFrom applies charset-hook aliases to the source charset. Use it
	// when the label arrived in a message rather than from configuration.
	HookFrom Flags = 1 << 0
)

type kind uint8

const (
	kindEnc kind = iota // conversion through an x/text encoding
	kindUTF8
	kindASCII
	kindReader // decode-only, through go-message's extended registry
)

type resolved struct {
	kind kind
	enc  encoding.Encoding
	name string // kindReader label
}

const converterCacheSize = 16

// converterCache keeps the most recently resolved charset labels. Resolution
// walks alias tables and the IANA registry, and header decoding hits the
// same handful of charsets over and over.
var (
	cacheMu  sync.Mutex
	cacheMap = map[string]resolved{}
	cacheAge []string
)

func cacheGet(name string) (resolved, bool) {
	cacheMu.Lock()
	defer cacheMu.Unlock()
	r, ok := cacheMap[name]
	if ok {
		for i, n := range cacheAge {
			if n == name {
				cacheAge = append(cacheAge[:i], cacheAge[i+1:]...)
				break
			}
		}
		cacheAge = append(cacheAge, name)
	}
	return r, ok
}

func cachePut(name string, r resolved) {
	cacheMu.Lock()
	defer cacheMu.Unlock()
	if _, ok := cacheMap[name]; !ok && len(cacheAge) >= converterCacheSize {
		oldest := cacheAge[0]
		cacheAge = cacheAge[1:]
		delete(cacheMap, oldest)
	}
	if _, ok := cacheMap[name]; !ok {
		cacheAge = append(cacheAge, name)
	}
	cacheMap[name] = r
}

// resolve maps a charset label to a converter. The label is canonicalized,
// iconv-hooks are applied, and the IANA registry is consulted.
func resolve(name string) (resolved, error) {
	canon := Canonical(name)
	if i := strings.IndexByte(canon, '/'); i >= 0 {
		canon = canon[:i]
	}
	if local, ok := LookupIconv(canon); ok {
		canon = strings.ToLower(local)
	}

	if r, ok := cacheGet(canon); ok {
		return r, nil
	}

	var r resolved
	switch {
	case IsUTF8(canon):
		r = resolved{kind: kindUTF8}
	case canon == ASCII:
		r = resolved{kind: kindASCII}
	default:
		enc, err := ianaindex.IANA.Encoding(canon)
		if err != nil || enc == nil {
			// go-message knows some mail-world labels x/text lacks.
			if _, rerr := mimecharset.Reader(canon, strings.NewReader("")); rerr == nil {
				r = resolved{kind: kindReader, name: canon}
				cachePut(canon, r)
				return r, nil
			}
			return resolved{}, consts.ErrCharsetUnknown
		}
		r = resolved{kind: kindEnc, enc: enc}
	}
	cachePut(canon, r)
	return r, nil
}

const replacementStr = "�"

// decodeString converts raw bytes in the named charset to UTF-8, replacing
// undecodable input with U+FFFD. It returns the text and the number of
// substitutions made.
func decodeString(s string, from resolved) (string, int) {
	switch from.kind {
	case kindUTF8:
		if utf8.ValidString(s) {
			return s, 0
		}
		var sb strings.Builder
		subs := 0
		for i := 0; i < len(s); {
			r, size := utf8.DecodeRuneInString(s[i:])
			if r == utf8.RuneError && size == 1 {
				sb.WriteString(replacementStr)
				subs++
			} else {
				sb.WriteString(s[i : i+size])
			}
			i += size
		}
		return sb.String(), subs

	case kindASCII:
		if !hasHighBit(s) {
			return s, 0
		}
		var sb strings.Builder
		subs := 0
		for i := 0; i < len(s); i++ {
			if s[i] < 0x80 {
				sb.WriteByte(s[i])
			} else {
				sb.WriteString(replacementStr)
				subs++
			}
		}
		return sb.String(), subs

	case kindReader:
		r, err := mimecharset.Reader(from.name, strings.NewReader(s))
		if err == nil {
			var b []byte
			if b, err = io.ReadAll(r); err == nil {
				out := string(b)
				return out, strings.Count(out, replacementStr)
			}
		}
		return strings.Repeat(replacementStr, utf8.RuneCountInString(s)), utf8.RuneCountInString(s)

	default:
		out, err := from.enc.NewDecoder().String(s)
		if err != nil {
			// Decoders substitute rather than fail; treat a failure as a
			// fully poisoned result.
			return strings.Repeat(replacementStr, utf8.RuneCountInString(s)), utf8.RuneCountInString(s)
		}
		subs := strings.Count(out, replacementStr)
		return out, subs
	}
}

// encodeString converts UTF-8 text into the named charset, substituting '?'
// for unrepresentable runes. It returns the bytes and the number of
// substitutions made.
func encodeString(u string, to resolved) (string, int) {
	switch to.kind {
	case kindUTF8:
		return u, 0

	case kindASCII, kindReader: // the extended registry is decode-only
		if !hasHighBit(u) {
			return u, 0
		}
		var sb strings.Builder
		subs := 0
		for _, r := range u {
			if r < 0x80 {
				sb.WriteByte(byte(r))
			} else {
				sb.WriteByte('?')
				subs++
			}
		}
		return sb.String(), subs

	default:
		out, err := to.enc.NewEncoder().String(u)
		if err == nil {
			return out, 0
		}
		// Retry rune by rune so each unsupported rune costs exactly one
		// substitution.
		var sb strings.Builder
		subs := 0
		enc := to.enc.NewEncoder()
		for _, r := range u {
			es, err := enc.String(string(r))
			if err != nil {
				sb.WriteByte('?')
				subs++
			} else {
				sb.WriteString(es)
			}
		}
		return sb.String(), subs
	}
}

func hasHighBit(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return true
		}
	}
	return false
}

// Convert transcodes s between two charsets, bridging through UTF-8. It
// returns the converted text and the number of substituted characters; a
// clean conversion reports zero. The error is non-nil only when a charset
// label cannot be resolved.
func Convert(s, from, to string, flags Flags) (string, int, error) {
	fromName := from
	if flags&HookFrom != 0 {
		if t, ok := LookupCharset(Canonical(from)); ok {
			fromName = t
		}
	}

	fr, err := resolve(fromName)
	if err != nil {
		metrics.CharsetConversions.WithLabelValues("error").Inc()
		return s, 0, err
	}
	tr, err := resolve(to)
	if err != nil {
		metrics.CharsetConversions.WithLabelValues("error").Inc()
		return s, 0, err
	}

	u, dsubs := decodeString(s, fr)
	out, esubs := encodeString(u, tr)
	metrics.CharsetConversions.WithLabelValues("success").Inc()
	if dsubs+esubs > 0 {
		metrics.CharsetFallbacks.Inc()
	}
	return out, dsubs + esubs, nil
}

// Check reports whether s converts cleanly between the charsets.
func Check(s, from, to string) error {
	_, subs, err := Convert(s, from, to, NoFlags)
	if err != nil {
		return err
	}
	if subs > 0 {
		return consts.ErrBadCharset
	}
	return nil
}

// ConvertNonMime interprets unlabelled 8-bit text. Each assumed charset is
// tried in order and the first clean conversion wins. When none is clean the
// text is converted from the default assumed charset with substitutions and
// an error is returned alongside the lossy result.
func ConvertNonMime(assumed []string, target, s string) (string, error) {
	if s == "" {
		return s, nil
	}

	for _, c := range assumed {
		if c == "" {
			continue
		}
		out, subs, err := Convert(s, Canonical(c), target, NoFlags)
		if err == nil && subs == 0 {
			return out, nil
		}
	}

	out, _, err := Convert(s, DefaultCharset(assumed), target, HookFrom)
	if err != nil {
		return s, err
	}
	return out, consts.ErrBadCharset
}

// Choose picks the best charset from a colon-separated candidate list for
// text currently in fromcode. Only candidates that encode the text without
// substitutions qualify, and the shortest qualifying name wins. It returns
// the canonical chosen name and the converted text, or an error when no
// candidate can hold the text.
func Choose(fromcode, charsets, u string) (string, string, error) {
	var tocode, converted string
	best := -1

	for _, cand := range strings.Split(charsets, ":") {
		if cand == "" {
			continue
		}
		out, subs, err := Convert(u, fromcode, cand, NoFlags)
		if err != nil || subs > 0 {
			continue
		}
		if best < 0 || len(cand) < best {
			best = len(cand)
			tocode = cand
			converted = out
		}
	}

	if best < 0 {
		return "", "", consts.ErrBadCharset
	}
	return Canonical(tocode), converted, nil
}

// EncodeBudget converts UTF-8 text into the named charset, stopping once the
// output would exceed budget bytes. It returns the converted prefix, the
// number of input bytes consumed, and whether the entire input fit. Stateful
// encodings count their reset sequence against the budget, so consumed can
// equal len(s) even when the input did not fit.
func EncodeBudget(name, s string, budget int) ([]byte, int, bool, error) {
	r, err := resolve(name)
	if err != nil {
		return nil, 0, false, err
	}
	if budget < 0 {
		budget = 0
	}

	switch r.kind {
	case kindUTF8, kindASCII, kindReader:
		if len(s) <= budget {
			return []byte(s), len(s), true, nil
		}
		return []byte(s[:budget]), budget, false, nil
	}

	tf := encoding.ReplaceUnsupported(r.enc.NewEncoder())
	dst := make([]byte, budget)
	nDst, nSrc, terr := tf.Transform(dst, []byte(s), true)
	switch terr {
	case nil:
		return dst[:nDst], nSrc, true, nil
	case transform.ErrShortDst:
		return dst[:nDst], nSrc, false, nil
	default:
		return dst[:nDst], nSrc, false, terr
	}
}

// Decoder is a chunk-at-a-time converter from a source charset to UTF-8.
// Undecodable input becomes U+FFFD. Partial multi-byte sequences at chunk
// boundaries are carried over to the next call.
type Decoder struct {
	res     resolved
	tf      transform.Transformer
	carry   []byte
	subs    int
	scratch []byte
}

// NewDecoder returns a Decoder for the named charset.
func NewDecoder(from string) (*Decoder, error) {
	r, err := resolve(from)
	if err != nil {
		return nil, err
	}
	d := &Decoder{res: r}
	if r.kind == kindEnc {
		d.tf = r.enc.NewDecoder()
	}
	return d, nil
}

// Decode converts the next chunk. atEOF must be true on the final call so
// trailing partial sequences are flushed as substitutions.
func (d *Decoder) Decode(in []byte, atEOF bool) []byte {
	src := in
	if len(d.carry) > 0 {
		src = append(d.carry, in...)
		d.carry = nil
	}

	switch d.res.kind {
	case kindUTF8, kindASCII:
		var out []byte
		for i := 0; i < len(src); {
			if d.res.kind == kindASCII {
				c := src[i]
				if c < 0x80 {
					out = append(out, c)
				} else {
					out = append(out, replacementStr...)
					d.subs++
				}
				i++
				continue
			}
			r, size := utf8.DecodeRune(src[i:])
			if r == utf8.RuneError && size == 1 {
				if !atEOF && !utf8.FullRune(src[i:]) {
					d.carry = append(d.carry, src[i:]...)
					return out
				}
				out = append(out, replacementStr...)
				d.subs++
			} else {
				out = append(out, src[i:i+size]...)
			}
			i += size
		}
		return out

	case kindReader:
		// No incremental transformer; buffer until the final chunk.
		if !atEOF {
			d.carry = src
			return nil
		}
		r, err := mimecharset.Reader(d.res.name, bytes.NewReader(src))
		if err == nil {
			var b []byte
			if b, err = io.ReadAll(r); err == nil {
				d.subs += strings.Count(string(b), replacementStr)
				return b
			}
		}
		d.subs += utf8.RuneCount(src)
		return []byte(strings.Repeat(replacementStr, utf8.RuneCount(src)))

	default:
		if d.scratch == nil {
			d.scratch = make([]byte, 4096)
		}
		var out []byte
		for {
			nDst, nSrc, err := d.tf.Transform(d.scratch, src, atEOF)
			before := len(out)
			out = append(out, d.scratch[:nDst]...)
			d.subs += strings.Count(string(out[before:]), replacementStr)
			src = src[nSrc:]
			switch err {
			case nil:
				if len(src) > 0 && !atEOF {
					d.carry = append(d.carry, src...)
				}
				return out
			case transform.ErrShortDst:
				continue
			case transform.ErrShortSrc:
				d.carry = append(d.carry, src...)
				return out
			default:
				// Unexpected decode failure: substitute one byte and move on.
				if len(src) > 0 {
					src = src[1:]
				}
				out = append(out, replacementStr...)
				d.subs++
				if len(src) == 0 {
					return out
				}
			}
		}
	}
}

// Substitutions reports how many input sequences could not be decoded.
func (d *Decoder) Substitutions() int { return d.subs }

// Encoder is a chunk-at-a-time converter from UTF-8 to a target charset.
// Unrepresentable runes become '?' and are counted.
type Encoder struct {
	res     resolved
	tf      transform.Transformer
	carry   []byte
	subs    int
	scratch []byte
}

// NewEncoder returns an Encoder for the named charset.
func NewEncoder(to string) (*Encoder, error) {
	r, err := resolve(to)
	if err != nil {
		return nil, err
	}
	e := &Encoder{res: r}
	if r.kind == kindEnc {
		e.tf = r.enc.NewEncoder()
	}
	return e, nil
}

// Encode converts the next chunk of UTF-8 text. atEOF must be true on the
// final call.
func (e *Encoder) Encode(u []byte, atEOF bool) []byte {
	src := u
	if len(e.carry) > 0 {
		src = append(e.carry, u...)
		e.carry = nil
	}

	switch e.res.kind {
	case kindUTF8:
		return src

	case kindASCII, kindReader: // the extended registry is decode-only
		var out []byte
		for i := 0; i < len(src); {
			r, size := utf8.DecodeRune(src[i:])
			if r == utf8.RuneError && size == 1 && !atEOF && !utf8.FullRune(src[i:]) {
				e.carry = append(e.carry, src[i:]...)
				return out
			}
			if r < 0x80 {
				out = append(out, byte(r))
			} else {
				out = append(out, '?')
				e.subs++
			}
			i += size
		}
		return out

	default:
		if e.scratch == nil {
			e.scratch = make([]byte, 4096)
		}
		var out []byte
		for {
			nDst, nSrc, err := e.tf.Transform(e.scratch, src, atEOF)
			out = append(out, e.scratch[:nDst]...)
			src = src[nSrc:]
			switch err {
			case nil:
				if len(src) > 0 && !atEOF {
					e.carry = append(e.carry, src...)
				}
				return out
			case transform.ErrShortDst:
				continue
			case transform.ErrShortSrc:
				e.carry = append(e.carry, src...)
				return out
			default:
				// Unsupported rune at the front of src: substitute and skip.
				_, size := utf8.DecodeRune(src)
				if size == 0 {
					return out
				}
				src = src[size:]
				out = append(out, '?')
				e.subs++
				if len(src) == 0 {
					return out
				}
			}
		}
	}
}

// Substitutions reports how many runes could not be encoded.
func (e *Encoder) Substitutions() int { return e.subs }
