package email

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/neomutt/neomutt-sub017/charset"
	"github.com/neomutt/neomutt-sub017/helpers"
	"github.com/neomutt/neomutt-sub017/rfc2047"
)

// RFC 2231 parameter continuations: yet another MIME encoding for header
// data, modelled after the escaping used in URLs, with continuations and
// charset labels mixed in.

// rfc2231Segment is one attr*N or attr*N* piece awaiting reassembly.
type rfc2231Segment struct {
	attribute string
	value     string
	index     int
	encoded   bool
}

// getCharset splits a leading charset'language' prefix off an encoded
// value, returning the charset and the remainder.
func getCharset(value string) (cs, rest string) {
	t := strings.IndexByte(value, '\'')
	if t < 0 {
		return "", value
	}
	cs = value[:t]
	rest = value[t+1:]
	if u := strings.IndexByte(rest, '\''); u >= 0 {
		rest = rest[u+1:]
	}
	return cs, rest
}

// decodeOne reverses the percent encoding of one value segment.
func decodeOne(src string) string {
	var d strings.Builder
	for i := 0; i < len(src); i++ {
		if src[i] == '%' && i+2 < len(src) &&
			isHexDigit(src[i+1]) && isHexDigit(src[i+2]) {
			d.WriteByte(byte(hexVal(src[i+1])<<4 | hexVal(src[i+2])))
			i += 2
		} else {
			d.WriteByte(src[i])
		}
	}
	return d.String()
}

func isHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func hexVal(c byte) int {
	switch {
	case c <= '9':
		return int(c - '0')
	case c >= 'a':
		return int(c-'a') + 10
	default:
		return int(c-'A') + 10
	}
}

// convertTo2231Display converts a reassembled value into the local charset
// and scrubs anything the display cannot carry.
func convertTo2231Display(value, cs, local string) string {
	out, _, err := charset.Convert(value, cs, local, charset.HookFrom)
	if err != nil {
		out = value
	}
	return helpers.FilterUnprintable(out)
}

// joinContinuations reassembles ordered segments into whole parameters and
// prepends them to the list.
func joinContinuations(pl *ParameterList, segs []*rfc2231Segment, local string) {
	for i := 0; i < len(segs); {
		attribute := segs[i].attribute
		encoded := segs[i].encoded

		var cs string
		var value strings.Builder
		for j := i; j < len(segs) && segs[j].attribute == attribute; j++ {
			v := segs[j].value
			if j == i && encoded {
				cs, v = getCharset(v)
			}
			if encoded && segs[j].encoded {
				v = decodeOne(v)
			}
			value.WriteString(v)
			i = j + 1
		}

		v := value.String()
		if encoded {
			v = convertTo2231Display(v, cs, local)
		}
		*pl = append(ParameterList{{Attribute: attribute, Value: v}}, *pl...)
	}
}

// DecodeParameters resolves RFC 2231 extended parameters in place:
// continuations are reassembled in index order, charset'lang' values are
// percent-decoded and converted into the local charset. Plain values may
// carry RFC 2047 words (forbidden, but emitted by real gateways) which are
// decoded when opt enables it.
func DecodeParameters(pl *ParameterList, opt *ParseOptions) {
	if pl == nil {
		return
	}
	opt = opt.orDefault()
	local := opt.RFC2047.Charset
	assumed := opt.assumedCharsets()

	var segs []*rfc2231Segment
	kept := (*pl)[:0]

	for _, np := range *pl {
		if np.Attribute == "" {
			continue
		}
		star := strings.IndexByte(np.Attribute, '*')
		switch {
		case star < 0:
			// Single value, not encoded: attr=value.
			if opt.RFC2047Params && strings.Contains(np.Value, "=?") {
				np.Value = rfc2047.Decode(np.Value, opt.RFC2047)
			} else if len(assumed) > 0 {
				if out, err := charset.ConvertNonMime(assumed, local, np.Value); err == nil {
					np.Value = out
				}
			}
			kept = append(kept, np)

		case star == len(np.Attribute)-1:
			// Single value with encoding: attr*=us-ascii''the%20value.
			np.Attribute = np.Attribute[:star]
			cs, rest := getCharset(np.Value)
			np.Value = convertTo2231Display(decodeOne(rest), cs, local)
			kept = append(kept, np)

		default:
			// A continuation, encoded or not:
			// attr*0=value or attr*0*=us-ascii''the%20value.
			attr := np.Attribute[:star]
			idxStr := np.Attribute[star+1:]
			encoded := strings.HasSuffix(idxStr, "*")
			idxStr = strings.TrimSuffix(idxStr, "*")
			index, err := strconv.Atoi(idxStr)
			if err != nil {
				// The index starts at 0 in a valid message; shove
				// malformed ones to the back.
				index = int(^uint(0) >> 1)
			}
			segs = append(segs, &rfc2231Segment{
				attribute: attr,
				value:     np.Value,
				index:     index,
				encoded:   encoded,
			})
		}
	}

	*pl = kept
	if len(segs) > 0 {
		sort.SliceStable(segs, func(i, j int) bool {
			if segs[i].attribute != segs[j].attribute {
				return segs[i].attribute < segs[j].attribute
			}
			return segs[i].index < segs[j].index
		})
		joinContinuations(pl, segs, local)
	}
}

// rfc2231Unsafe reports whether the byte forces percent encoding.
func rfc2231Unsafe(c byte) bool {
	return c < 0x20 || c >= 0x7f ||
		strings.IndexByte(rfc2047.MimeSpecials, c) >= 0 ||
		strings.IndexByte("*'%", c) >= 0
}

// EncodeParam renders one parameter as an RFC 2231 parameter list, adding
// numbered continuations when the value would overflow a 78-column header
// line and a charset'lang' prefix when any byte needs encoding. The
// returned flag tells the caller to quote the (unencoded) value on output.
func EncodeParam(attribute, value, localCharset, sendCharsets string) (ParameterList, bool) {
	if attribute == "" || value == "" {
		return nil, false
	}

	encode := false
	for i := 0; i < len(value); i++ {
		if value[i] < 0x20 || value[i] >= 0x7f {
			encode = true
			break
		}
	}

	src := value
	var cs string
	if encode {
		if localCharset != "" && sendCharsets != "" {
			if chosen, converted, err := charset.Choose(localCharset, sendCharsets, value); err == nil {
				cs = chosen
				src = converted
			}
		}
		if cs == "" {
			cs = localCharset
			if cs == "" {
				cs = "unknown-8bit"
			}
		}
	}

	// Size the result to decide whether continuations are needed.
	destLen := 0
	addQuotes := false
	if encode {
		destLen = len(cs) + 2 // charset'' prefix
	}
	for i := 0; i < len(src); i++ {
		destLen++
		if encode {
			if rfc2231Unsafe(src[i]) {
				destLen += 2 // %XX
			}
		} else {
			if !addQuotes && strings.IndexByte(rfc2047.MimeSpecials, src[i]) >= 0 {
				addQuotes = true
			}
			if src[i] == '\\' || src[i] == '"' {
				destLen++ // escaping backslash on output
			}
		}
	}

	maxLen := 78 - 1 - len(attribute) - 1 - 1 // tab, '=', ';'
	if encode {
		maxLen--
	}
	if addQuotes {
		maxLen -= 2
	}
	if maxLen < 30 {
		maxLen = 30
	}

	split := false
	if destLen > maxLen {
		split = true
		maxLen -= 4 // '*n' continuation suffix plus encoding slack
	}

	var pl ParameterList
	var cur strings.Builder
	curLen := 0
	if encode {
		fmt.Fprintf(&cur, "%s''", cs)
		curLen = cur.Len()
	}

	continuation := 0
	for i := 0; i < len(src); {
		attr := attribute
		if split {
			attr += "*" + strconv.Itoa(continuation)
			continuation++
		}
		if encode {
			attr += "*"
		}

		for i < len(src) && (!split || curLen < maxLen) {
			c := src[i]
			if encode {
				if rfc2231Unsafe(c) {
					fmt.Fprintf(&cur, "%%%02X", c)
					curLen += 3
				} else {
					cur.WriteByte(c)
					curLen++
				}
			} else {
				cur.WriteByte(c)
				curLen++
				if c == '\\' || c == '"' {
					curLen++
				}
			}
			i++
		}

		pl = append(pl, &Parameter{Attribute: attr, Value: cur.String()})
		cur.Reset()
		curLen = 0
	}

	return pl, addQuotes
}
