package email

import (
	"net/url"
	"strings"
)

// MailtoAllowed reports whether a header field may be set from a mailto
// URL. A nil function allows nothing.
type MailtoAllowed func(tag string) bool

// ParseMailto fills an envelope from a mailto: URL. Since some header
// fields are interpreted specially ("Attach:" names a local file, for
// example), only fields the allow callback admits are honoured; a "body"
// query sets *body instead. It reports whether the URL parsed at all.
func ParseMailto(env *Envelope, body *string, src string, allow MailtoAllowed, opt *ParseOptions) bool {
	if env == nil || src == "" {
		return false
	}
	opt = opt.orDefault()

	u, err := url.Parse(src)
	if err != nil || !strings.EqualFold(u.Scheme, "mailto") {
		return false
	}
	if u.Host != "" {
		// Not a path-only URL.
		return false
	}

	to := u.Opaque
	if to == "" {
		to = u.Path
	}
	if dec, err := url.PathUnescape(to); err == nil {
		to = dec
	}
	env.To.Parse(to)

	// Query order matters for repeated fields, so walk the raw query
	// instead of the parsed map.
	for _, pair := range strings.Split(u.RawQuery, "&") {
		if pair == "" {
			continue
		}
		tag, value, _ := strings.Cut(pair, "=")
		if t, err := url.QueryUnescape(tag); err == nil {
			tag = t
		}
		if v, err := url.QueryUnescape(value); err == nil {
			value = v
		}
		tag = filterHeaderTag(tag)

		// RFC 2368 "4. Unsafe headers": create the message only from
		// fields considered safe.
		if allow == nil || !allow(tag) {
			continue
		}
		if strings.EqualFold(tag, "body") {
			if body != nil {
				*body = value
			}
			continue
		}
		value = skipEmailWsp(filterHeaderValue(value))
		ParseLine(env, nil, tag, value, true, false, true, opt)
	}

	// Decode encoded words after the header parsing.
	DecodeEnvelope(env, opt.RFC2047, opt.replyMatcher())
	return true
}
