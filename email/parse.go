package email

import (
	"bufio"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/neomutt/neomutt-sub017/buffer"
	"github.com/neomutt/neomutt-sub017/charset"
	"github.com/neomutt/neomutt-sub017/consts"
	"github.com/neomutt/neomutt-sub017/pkg/metrics"
	"github.com/neomutt/neomutt-sub017/regexlist"
	"github.com/neomutt/neomutt-sub017/rfc2047"
)

// ParseOptions supplies the configuration the header and MIME parsers
// consult. The zero value parses with UTF-8 as the local charset and no
// spam or weed processing.
type ParseOptions struct {
	RFC2047 rfc2047.Options

	// RFC2047Params decodes encoded words found inside MIME parameter
	// values. Forbidden by RFC 2047, emitted by Lotus Notes gateways.
	RFC2047Params bool

	// Ignore reports whether a user header field is weeded out of the
	// envelope's user header list. Consulted only when the caller asks
	// for weeding.
	Ignore func(header string) bool

	// Spam matching. SpamList maps header lines to spam tags; NoSpamList
	// exempts lines from tagging. SpamSeparator joins multiple tags;
	// empty means each new tag replaces the last.
	SpamList      *regexlist.ReplaceList
	NoSpamList    *regexlist.List
	SpamSeparator string

	// AutoSubscribe is called with the List-Post mailto URL when one is
	// found, so the caller can track the mailing list.
	AutoSubscribe func(mailto string)

	// Reply recognises "Re:" style subject prefixes. Nil uses the
	// built-in default.
	Reply ReplyMatcher
}

var defaultParseOptions = ParseOptions{
	RFC2047: rfc2047.Options{Charset: "utf-8"},
}

func (opt *ParseOptions) orDefault() *ParseOptions {
	if opt == nil {
		return &defaultParseOptions
	}
	return opt
}

func (opt *ParseOptions) assumedCharsets() []string {
	var out []string
	for _, c := range strings.Split(opt.RFC2047.AssumedCharset, ":") {
		if c != "" {
			out = append(out, c)
		}
	}
	return out
}

func (opt *ParseOptions) replyMatcher() ReplyMatcher {
	if opt.Reply != nil {
		return opt.Reply
	}
	return DefaultReplyRegex
}

// Reader tracks a byte offset over a seekable stream so body parts can be
// addressed by offset and length without re-reading.
type Reader struct {
	rs  io.ReadSeeker
	br  *bufio.Reader
	off int64
}

// NewReader wraps a seekable stream for header and MIME parsing.
func NewReader(rs io.ReadSeeker) *Reader {
	r := &Reader{rs: rs, br: bufio.NewReader(rs)}
	if off, err := rs.Seek(0, io.SeekCurrent); err == nil {
		r.off = off
	}
	return r
}

// Offset returns the current read position.
func (r *Reader) Offset() int64 { return r.off }

// Seek repositions the reader at an absolute offset.
func (r *Reader) Seek(off int64) error {
	if _, err := r.rs.Seek(off, io.SeekStart); err != nil {
		return err
	}
	r.br.Reset(r.rs)
	r.off = off
	return nil
}

func (r *Reader) readByte() (byte, error) {
	c, err := r.br.ReadByte()
	if err == nil {
		r.off++
	}
	return c, err
}

func (r *Reader) unreadByte() {
	if r.br.UnreadByte() == nil {
		r.off--
	}
}

// readChunk reads one physical line like fgets: at most max bytes, fewer
// when a newline arrives first. The newline is included.
func (r *Reader) readChunk(max int) (string, error) {
	var sb strings.Builder
	for sb.Len() < max {
		c, err := r.readByte()
		if err != nil {
			if sb.Len() > 0 {
				return sb.String(), nil
			}
			return "", err
		}
		sb.WriteByte(c)
		if c == '\n' {
			break
		}
	}
	return sb.String(), nil
}

// ReadLine reads one logical header line, unfolding continuations. Each
// fold and the continuation line's leading whitespace collapse to a single
// space; trailing whitespace is removed. The return value is the number of
// raw bytes consumed; zero means end of input.
func ReadLine(fp *Reader, buf *buffer.Buffer) int {
	if fp == nil || buf == nil {
		return 0
	}

	read := 0
	buf.Reset()

	for {
		line, err := fp.readChunk(consts.HeaderChunk - 1)
		if err != nil {
			return 0
		}
		if line == "" {
			break
		}

		if isEmailWsp(line[0]) && buf.IsEmpty() {
			// Continuation of nothing: treat as end of headers.
			read = len(line)
			break
		}
		read += len(line)

		if strings.HasSuffix(line, "\n") {
			// A full line: strip trailing whitespace, then look ahead for a
			// fold.
			line = strings.TrimRight(line, " \t\r\n")

			ch, err := fp.readByte()
			if err != nil || (ch != ' ' && ch != '\t') {
				if err == nil {
					fp.unreadByte()
				}
				buf.AddString(line)
				break
			}
			read++

			// Eat the rest of the continuation line's leading whitespace.
			for {
				ch, err = fp.readByte()
				if err != nil {
					break
				}
				if ch != ' ' && ch != '\t' {
					fp.unreadByte()
					break
				}
				read++
			}
			line += " "
		}

		buf.AddString(line)
	}

	return read
}

// ExtractMessageID finds the first <...> token in s, decoding any encoded
// words first. It returns the id including its angle brackets and how many
// bytes of the decoded string were consumed, so a caller can iterate.
func ExtractMessageID(s string, opt *ParseOptions) (string, int) {
	if s == "" {
		return "", 0
	}
	opt = opt.orDefault()
	decoded := rfc2047.Decode(s, opt.RFC2047)

	beg := -1
	for i := 0; i < len(decoded); i++ {
		switch decoded[i] {
		case '<':
			beg = i
		case '>':
			if beg >= 0 {
				return decoded[beg : i+1], i + 1
			}
		}
	}
	return "", 0
}

// parseReferences prepends each message-id found in s, so the list ends up
// in reverse order of appearance.
func parseReferences(head *[]string, s string, opt *ParseOptions) {
	for {
		id, n := ExtractMessageID(s, opt)
		if id == "" {
			break
		}
		*head = append([]string{id}, *head...)
		s = s[min(n, len(s)):]
	}
}

// parseParameters splits a "attr=value; attr=value" tail into a parameter
// list. allowValueSpaces accepts values continued across spaces, an
// irregular format used for key data split over unfolded lines.
func parseParameters(pl *ParameterList, s string, allowValueSpaces bool, opt *ParseOptions) {
	opt = opt.orDefault()
	assumed := len(opt.assumedCharsets()) > 0

	for s != "" {
		p := strings.IndexAny(s, "=;")
		if p < 0 {
			break // malformed parameter
		}

		if s[p] != ';' {
			i := p
			for i > 0 && isEmailWsp(s[i-1]) {
				i--
			}

			// An empty attribute still consumes its (possibly quoted)
			// value below, it just produces nothing.
			attribute := s[:i]

			var val strings.Builder
			for {
				s = skipEmailWsp(s[p+1:]) // skip the =, or the space when looping

				if strings.HasPrefix(s, "\"") {
					stateASCII := true
					s = s[1:]
					for len(s) > 0 {
						if assumed && s[0] == 0x1b {
							// iso-2022-* uses '"' in shifted state; don't
							// let it end the quote.
							if len(s) > 2 && s[1] == '(' && (s[2] == 'B' || s[2] == 'J') {
								stateASCII = true
							} else {
								stateASCII = false
							}
						}
						if stateASCII && s[0] == '"' {
							break
						}
						if s[0] == '\\' && len(s) > 1 {
							val.WriteByte(s[1])
							s = s[2:]
							continue
						}
						val.WriteByte(s[0])
						s = s[1:]
					}
					if len(s) > 0 {
						s = s[1:] // the closing quote
					}
				} else {
					for len(s) > 0 && s[0] != ' ' && s[0] != ';' {
						val.WriteByte(s[0])
						s = s[1:]
					}
				}

				p = -1
				if !(allowValueSpaces && strings.HasPrefix(s, " ")) {
					break
				}
			}

			if attribute != "" {
				*pl = append(ParameterList{{Attribute: attribute, Value: val.String()}}, *pl...)
			}
		} else {
			s = s[p:] // parameter with no value
		}

		semi := strings.IndexByte(s, ';')
		if semi < 0 {
			break
		}
		s = s[semi:]
		for strings.HasPrefix(s, ";") {
			s = skipEmailWsp(s[1:]) // skip empty parameters
		}
	}

	DecodeParameters(pl, opt)
}

// ParseContentType fills in a body's type, subtype and parameters from a
// Content-Type header value.
func ParseContentType(s string, b *Body, opt *ParseOptions) {
	if s == "" || b == nil {
		return
	}
	opt = opt.orDefault()

	b.Subtype = ""
	b.Parameter = nil

	// Parameters first.
	if semi := strings.IndexByte(s, ';'); semi >= 0 {
		rest := strings.TrimLeft(s[semi+1:], " \t\r\n")
		s = s[:semi]
		parseParameters(&b.Parameter, rest, false, opt)

		// Some pre-RFC 1521 gateways still use the "name=filename"
		// convention; the disposition's filename takes precedence.
		if name, ok := b.Parameter.Get("name"); ok && b.DFilename == "" {
			b.DFilename = name
		}
		if conv, ok := b.Parameter.Get("conversions"); ok {
			b.Encoding = CheckEncoding(conv)
		}
	}

	// Then the subtype.
	if slash := strings.IndexByte(s, '/'); slash >= 0 {
		sub := s[slash+1:]
		end := 0
		for end < len(sub) && !isEmailWsp(sub[end]) && sub[end] != ';' {
			end++
		}
		b.Subtype = sub[:end]
		s = s[:slash]
	}

	s = strings.TrimSpace(s)
	b.Type = CheckMimeType(s)
	if strings.EqualFold(s, "x-sun-attachment") {
		b.Type = TypeMultipart
		b.Subtype = "x-sun-attachment"
	}
	if b.Type == TypeOther {
		b.XType = s
	}

	if b.Subtype == "" {
		// Some older non-MIME mailers (mailtool, elm) have a bare
		// content-type word; map it onto something sensible.
		switch b.Type {
		case TypeText:
			b.Subtype = "plain"
		case TypeAudio:
			b.Subtype = "basic"
		case TypeMessage:
			b.Subtype = "rfc822"
		case TypeOther:
			b.Type = TypeApplication
			b.Subtype = "x-" + s
		default:
			b.Subtype = "x-unknown"
		}
	}

	// Default character set for text types.
	if b.Type == TypeText {
		if cs, ok := b.Parameter.Get("charset"); ok {
			// Outlook repeats "charset=" inside the value; strip it.
			if len(cs) >= 8 && strings.EqualFold(cs[:8], "charset=") {
				b.Parameter.Set("charset", cs[8:])
			}
		} else {
			b.Parameter.Set("charset", charset.DefaultCharset(opt.assumedCharsets()))
		}
	}
}

// parseContentDisposition reads an inline/attachment/form-data disposition
// with its filename and name parameters.
func parseContentDisposition(s string, b *Body, opt *ParseOptions) {
	switch {
	case istrPrefix(s, "inline"):
		b.Disposition = DispInline
	case istrPrefix(s, "form-data"):
		b.Disposition = DispFormData
	default:
		b.Disposition = DispAttach
	}

	if semi := strings.IndexByte(s, ';'); semi >= 0 {
		var pl ParameterList
		parseParameters(&pl, skipEmailWsp(s[semi+1:]), false, opt)
		if v, ok := pl.Get("filename"); ok {
			b.DFilename = v
		}
		if v, ok := pl.Get("name"); ok {
			b.FormName = v
		}
	}
}

// rfc2369FirstMailto extracts the first mailto: URL from an RFC 2369 list
// header such as List-Post.
func rfc2369FirstMailto(body string) string {
	for {
		beg := strings.IndexByte(body, '<')
		if beg < 0 {
			return ""
		}
		rest := body[beg+1:]
		end := strings.IndexByte(rest, '>')
		if end < 0 {
			return ""
		}
		if mlist := rest[:end]; len(mlist) >= 7 && strings.EqualFold(mlist[:7], "mailto:") {
			return mlist
		}
		comma := strings.IndexByte(rest[end:], ',')
		if comma < 0 {
			return ""
		}
		body = rest[end+comma:]
	}
}

// filterHeaderValue prevents header injection through an embedded newline.
func filterHeaderValue(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' {
			return ' '
		}
		return r
	}, s)
}

// filterHeaderTag sanitises a header field name from an untrusted source.
func filterHeaderTag(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 33 || r > 126 || r == ':' {
			return '?'
		}
		return r
	}, s)
}

// ParseLine processes one unfolded header line, putting recognised fields
// into the envelope (and the email, when one is given). It reports whether
// the field was recognised; unmatched fields go to the envelope's user
// headers when userHdrs is set and weeding keeps them.
func ParseLine(env *Envelope, e *Email, name, body string, userHdrs, weed, do2047 bool, opt *ParseOptions) bool {
	if env == nil || name == "" {
		return false
	}
	opt = opt.orDefault()
	matched := false

	switch strings.ToLower(name) {
	case "apparently-to":
		env.To.Parse(body)
		matched = true
	case "apparently-from":
		env.From.Parse(body)
		matched = true

	case "bcc":
		env.Bcc.Parse(body)
		matched = true

	case "cc":
		env.Cc.Parse(body)
		matched = true

	case "content-type":
		if e != nil {
			ParseContentType(body, e.Body, opt)
		}
		matched = true
	case "content-language":
		if e != nil {
			e.Body.Language = body
		}
		matched = true
	case "content-transfer-encoding":
		if e != nil {
			e.Body.Encoding = CheckEncoding(body)
		}
		matched = true
	case "content-length":
		if e != nil {
			if n, err := strconv.ParseUint(strings.TrimSpace(body), 10, 64); err == nil {
				e.Body.Length = int64(min(n, consts.ContentTooBig))
			} else {
				e.Body.Length = -1
			}
		}
		matched = true
	case "content-description":
		if e != nil {
			e.Body.Description = rfc2047.Decode(body, opt.RFC2047)
		}
		matched = true
	case "content-disposition":
		if e != nil {
			parseContentDisposition(body, e.Body, opt)
		}
		matched = true

	case "date":
		env.Date = body
		if e != nil {
			if t, tz, err := ParseDate(body); err == nil && t > 0 {
				e.DateSent = t
				e.Zhours = tz.Hours
				e.Zminutes = tz.Minutes
				e.Zoccident = tz.West
			}
		}
		matched = true

	case "expires":
		if e != nil {
			if t, _, err := ParseDate(body); err == nil && t < time.Now().Unix() {
				e.Expired = true
			}
		}

	case "from":
		env.From.Parse(body)
		matched = true
	case "followup-to":
		if env.FollowupTo == "" {
			env.FollowupTo = strings.TrimSpace(body)
		}
		matched = true

	case "in-reply-to":
		env.InReplyTo = nil
		parseReferences(&env.InReplyTo, filterHeaderValue(body), opt)
		matched = true

	case "lines":
		if e != nil {
			if n, err := strconv.Atoi(strings.TrimSpace(body)); err == nil && n >= 0 {
				e.Lines = n
			}
		}
		matched = true
	case "list-post":
		// RFC 2369. "NO" means the list does not accept posts.
		if !strings.HasPrefix(strings.TrimLeft(body, " \t"), "NO") {
			if mailto := rfc2369FirstMailto(body); mailto != "" {
				env.ListPost = mailto
				if opt.AutoSubscribe != nil {
					opt.AutoSubscribe(env.ListPost)
				}
			}
		}
		matched = true
	case "list-subscribe":
		if mailto := rfc2369FirstMailto(body); mailto != "" {
			env.ListSubscribe = mailto
		}
		matched = true
	case "list-unsubscribe":
		if mailto := rfc2369FirstMailto(body); mailto != "" {
			env.ListUnsubscribe = mailto
		}
		matched = true

	case "mime-version":
		if e != nil {
			e.Mime = true
		}
		matched = true
	case "message-id":
		// We add a new Message-ID when building a message.
		env.MessageID, _ = ExtractMessageID(body, opt)
		matched = true
	case "mail-reply-to":
		// Overrides the Reply-To field.
		env.ReplyTo = nil
		env.ReplyTo.Parse(body)
		matched = true
	case "mail-followup-to":
		env.MailFollowupTo.Parse(body)
		matched = true

	case "newsgroups":
		env.Newsgroups = strings.TrimSpace(body)
		matched = true

	case "organization":
		if env.Organization == "" && !strings.EqualFold(body, "unknown") {
			env.Organization = body
		}

	case "references":
		env.References = nil
		parseReferences(&env.References, body, opt)
		matched = true
	case "reply-to":
		env.ReplyTo.Parse(body)
		matched = true
	case "return-path":
		env.ReturnPath.Parse(body)
		matched = true
	case "received":
		if e != nil && e.Received == 0 {
			if semi := strings.LastIndexByte(body, ';'); semi >= 0 {
				if t, _, err := ParseDate(skipEmailWsp(body[semi+1:])); err == nil {
					e.Received = t
				}
			}
		}

	case "subject":
		if env.Subject == "" {
			env.SetSubject(body, opt.replyMatcher())
		}
		matched = true
	case "sender":
		env.Sender.Parse(body)
		matched = true
	case "status":
		if e != nil {
			for i := 0; i < len(body); i++ {
				switch body[i] {
				case 'O':
					e.Old = true
				case 'R':
					e.Read = true
				case 'r':
					e.Replied = true
				}
			}
		}
		matched = true
	case "supersedes", "supercedes":
		if e != nil {
			env.Supersedes = body
		}

	case "to":
		env.To.Parse(body)
		matched = true

	case "x-status":
		if e != nil {
			for i := 0; i < len(body); i++ {
				switch body[i] {
				case 'A':
					e.Replied = true
				case 'D':
					e.Deleted = true
				case 'F':
					e.Flagged = true
				}
			}
		}
		matched = true
	case "x-label":
		env.XLabel = body
		matched = true
	case "x-comment-to":
		if env.XCommentTo == "" {
			env.XCommentTo = body
		}
		matched = true
	case "xref":
		if env.Xref == "" {
			env.Xref = body
		}
		matched = true
	case "x-original-to":
		env.XOriginalTo.Parse(body)
		matched = true
	}

	// Keep track of the user-defined headers.
	if !matched && userHdrs {
		line := name + ": " + body
		if !weed || opt.Ignore == nil || !opt.Ignore(line) {
			if do2047 {
				line = rfc2047.Decode(line, opt.RFC2047)
			}
			env.UserHdrs = append(env.UserHdrs, line)
		}
	}

	return matched
}

// From_ separator lines: "From sender date". The date is in ctime form,
// possibly with a zone squeezed in before the year.
var fromLineLayouts = []string{
	"Mon Jan _2 15:04:05 2006",
	"Mon Jan _2 15:04:05 MST 2006",
	"Mon Jan _2 15:04:05 -0700 2006",
	"Mon Jan _2 15:04 2006",
	"Jan _2 15:04:05 2006",
}

// isFromLine recognises an mbox From_ separator and extracts its
// timestamp.
func isFromLine(line string) (int64, bool) {
	rest, ok := strings.CutPrefix(line, "From ")
	if !ok {
		return 0, false
	}
	rest = strings.TrimRight(rest, " \t\r\n")

	// The sender may contain spaces when quoted; scan forward for a
	// weekday token and try to parse a date from there. A missing
	// weekday falls back to a month-first form.
	fields := strings.Fields(rest)
	for i := range fields {
		tail := strings.Join(fields[i:], " ")
		for _, layout := range fromLineLayouts {
			if t, err := time.Parse(layout, tail); err == nil {
				return t.Unix(), true
			}
		}
	}
	return 0, false
}

// matchSpam runs the spam list over a raw header line, amending the
// envelope's spam tag according to $spam_separator semantics.
func matchSpam(env *Envelope, line string, opt *ParseOptions) {
	if opt.SpamList == nil || opt.SpamList.Len() == 0 {
		return
	}
	tag, ok := opt.SpamList.Match(line)
	if !ok {
		return
	}
	if opt.NoSpamList != nil {
		if _, no := opt.NoSpamList.Match(line); no {
			return
		}
	}

	switch {
	case env.Spam != "" && tag != "":
		if opt.SpamSeparator != "" {
			env.Spam += opt.SpamSeparator + tag
		} else {
			env.Spam = tag
		}
	case env.Spam == "":
		env.Spam = tag
	}
}

// ReadHeader parses an RFC 5322 header block, stopping at the blank line
// or at a non-header line (whose offset becomes the body offset). The
// returned envelope has its encoded words decoded when e is given.
func ReadHeader(fp *Reader, e *Email, userHdrs, weed bool, opt *ParseOptions) *Envelope {
	if fp == nil {
		return nil
	}
	opt = opt.orDefault()

	env := NewEnvelope()
	loc := fp.Offset()
	if e != nil {
		loc = e.Offset
		if e.Body == nil {
			e.Body = &Body{
				// Defaults from RFC 1521; RFC 2183 says the disposition
				// default is arbitrary.
				Type:        TypeText,
				Subtype:     "plain",
				Encoding:    Enc7Bit,
				Length:      -1,
				Disposition: DispInline,
			}
		}
	}

	line := buffer.Get()
	defer buffer.Release(line)

	for {
		lineStart := loc
		n := ReadLine(fp, line)
		if line.IsEmpty() {
			break
		}
		loc += int64(n)
		metrics.HeaderLinesTotal.Inc()
		lines := line.String()

		colon := strings.IndexAny(lines, ": \t")
		if colon < 0 || lines[colon] != ':' {
			// Some bogus MTAs will quote the original "From " line.
			if strings.HasPrefix(lines, ">From ") {
				continue
			}
			if t, ok := isFromLine(lines); ok {
				// MH sometimes has the From_ line in the middle of the
				// header.
				if e != nil && e.Received == 0 {
					e.Received = t
				}
				continue
			}
			// End of header: seek back to the start of the body.
			_ = fp.Seek(lineStart)
			break
		}

		matchSpam(env, lines, opt)

		name := lines[:colon]
		body := skipEmailWsp(lines[colon+1:])
		if body == "" {
			continue // skip empty header fields
		}

		ParseLine(env, e, name, body, userHdrs, weed, true, opt)
	}

	if e != nil {
		e.Body.HdrOffset = e.Offset
		e.Body.Offset = fp.Offset()

		DecodeEnvelope(env, opt.RFC2047, opt.replyMatcher())

		if e.Received < 0 {
			e.Received = 0
		}
		// Missing or invalid date: fall back to the separator's
		// received time.
		if e.DateSent <= 0 {
			e.DateSent = e.Received
		}
	}

	return env
}

// ReadMimeHeader parses a part's own header block into a new Body. Inside
// a multipart/digest the default content type is message/rfc822.
func ReadMimeHeader(fp *Reader, digest bool, opt *ParseOptions) *Body {
	if fp == nil {
		return nil
	}
	opt = opt.orDefault()

	b := &Body{
		HdrOffset:   fp.Offset(),
		Encoding:    Enc7Bit, // default from RFC 1521
		Type:        TypeText,
		Disposition: DispInline,
	}
	if digest {
		b.Type = TypeMessage
	}

	env := NewEnvelope()
	matched := false

	buf := buffer.Get()
	defer buffer.Release(buf)

	for ReadLine(fp, buf) != 0 {
		if buf.IsEmpty() {
			break
		}
		line := buf.String()
		colon := strings.IndexByte(line, ':')
		if colon < 0 {
			break // bogus MIME header
		}
		c := skipEmailWsp(line[colon+1:])
		if c == "" {
			continue // skip empty header fields
		}
		name := line[:colon]

		switch {
		case istrPrefix(name, "content-"):
			switch strings.ToLower(name[len("content-"):]) {
			case "type":
				ParseContentType(c, b, opt)
			case "language":
				b.Language = c
			case "transfer-encoding":
				b.Encoding = CheckEncoding(c)
			case "disposition":
				parseContentDisposition(c, b, opt)
			case "description":
				b.Description = rfc2047.Decode(c, opt.RFC2047)
			case "id":
				b.ID = strings.TrimSuffix(strings.TrimPrefix(c, "<"), ">")
			}
		case istrPrefix(name, "x-sun-"):
			switch strings.ToLower(name[len("x-sun-"):]) {
			case "data-type":
				ParseContentType(c, b, opt)
			case "encoding-info":
				b.Encoding = CheckEncoding(c)
			case "content-lines":
				b.Parameter.Set("content-lines", c)
			case "data-description":
				b.Description = rfc2047.Decode(c, opt.RFC2047)
			}
		default:
			if ParseLine(env, nil, name, c, false, false, false, opt) {
				matched = true
			}
		}
	}

	b.Offset = fp.Offset() // mark the start of the real data
	if b.Type == TypeText && b.Subtype == "" {
		b.Subtype = "plain"
	} else if b.Type == TypeMessage && b.Subtype == "" {
		b.Subtype = "rfc822"
	}

	if matched {
		b.MimeHeaders = env
		DecodeEnvelope(b.MimeHeaders, opt.RFC2047, opt.replyMatcher())
	}

	return b
}

// mimeParser carries the shared caps across the recursive MIME descent.
type mimeParser struct {
	fp      *Reader
	opt     *ParseOptions
	counter int
	depth   int
}

func (mp *mimeParser) parsePart(b *Body) {
	if b == nil {
		return
	}
	if mp.depth >= consts.MaxMIMEDepth {
		metrics.MimeDepthExceeded.Inc()
		return // recursion too deep, give up on this part
	}
	mp.depth++
	defer func() { mp.depth-- }()

	recovered := true
	switch b.Type {
	case TypeMultipart:
		bound, _ := b.Parameter.Get("boundary")
		if strings.EqualFold(b.Subtype, "x-sun-attachment") {
			bound = "--------"
		}
		if mp.fp.Seek(b.Offset) != nil {
			return
		}
		b.Parts = mp.parseMultipart(bound, b.Offset+b.Length,
			strings.EqualFold(b.Subtype, "digest"))
		recovered = len(b.Parts) > 0

	case TypeMessage:
		if b.Subtype == "" {
			return
		}
		if mp.fp.Seek(b.Offset) != nil {
			return
		}
		switch {
		case IsMessageType(b.Type, b.Subtype):
			msg := mp.parseMessage(b)
			recovered = msg != nil
		case strings.EqualFold(b.Subtype, "external-body"):
			hdr := ReadMimeHeader(mp.fp, false, mp.opt)
			if hdr != nil {
				b.Parts = []*Body{hdr}
			}
			recovered = hdr != nil
		default:
			return
		}

	default:
		return
	}

	// Try to recover from a parsing error by degrading to plain text.
	if !recovered {
		b.Type = TypeText
		b.Subtype = "plain"
	}
}

func (mp *mimeParser) parseMultipart(boundary string, endOff int64, digest bool) []*Body {
	if boundary == "" {
		return nil // multipart message has no boundary parameter
	}

	var parts []*Body
	var last *Body
	final := false // did we see the ending boundary?

	blen := len(boundary)
	for mp.fp.Offset() < endOff {
		buf, err := mp.fp.readChunk(consts.HeaderChunk - 1)
		if err != nil {
			break
		}
		l := len(buf)
		crlf := int64(0)
		if l > 1 && buf[l-2] == '\r' {
			crlf = 1
		}

		if !strings.HasPrefix(buf, "--") || !strings.HasPrefix(buf[2:], boundary) {
			continue
		}

		if last != nil {
			last.Length = mp.fp.Offset() - last.Offset - int64(l) - 1 - crlf
			if len(last.Parts) > 0 && last.Parts[0].Length == 0 {
				last.Parts[0].Length = mp.fp.Offset() - last.Parts[0].Offset - int64(l) - 1 - crlf
			}
			// An empty body can end up with a negative length.
			if last.Length < 0 {
				last.Length = 0
			}
		}

		// Trailing whitespace after the boundary doesn't count.
		line := buf
		for len(line) > blen+2 && isEmailWsp(line[len(line)-1]) {
			line = line[:len(line)-1]
		}

		if line[blen+2:] == "--" {
			final = true
			break // done parsing
		}
		if len(line) != blen+2 {
			continue // the boundary was a prefix of something longer
		}

		nb := ReadMimeHeader(mp.fp, digest, mp.opt)
		if nb == nil {
			break
		}

		if cl, ok := nb.Parameter.Get("content-lines"); ok {
			lines, _ := strconv.Atoi(cl)
			for ; lines > 0; lines-- {
				if mp.fp.Offset() >= endOff {
					break
				}
				if _, err := mp.fp.readChunk(consts.HeaderChunk - 1); err != nil {
					break
				}
			}
		}

		// Consistency checking: catch bad attachment end boundaries.
		if nb.Offset > endOff {
			break
		}
		parts = append(parts, nb)
		last = nb

		// Stop a multipart with thousands of tiny parts before the
		// data structures are allocated.
		mp.counter++
		if mp.counter >= consts.MaxMIMEParts {
			break
		}
	}

	// A missing end boundary leaves the last part's length unset.
	if last != nil && last.Length == 0 && !final {
		last.Length = endOff - last.Offset
	}

	// Now descend into each part.
	for _, p := range parts {
		mp.parsePart(p)
	}

	return parts
}

// parseMessage parses a message/rfc822 body. The parent's length must
// already be known.
func (mp *mimeParser) parseMessage(parent *Body) *Body {
	e := NewEmail()
	e.Offset = mp.fp.Offset()
	e.Env = ReadHeader(mp.fp, e, false, false, mp.opt)
	parent.Email = e
	parent.Envelope = e.Env

	msg := e.Body
	// Ignore any content-length: we have what we need to compute the
	// real length, and the header could be wrong.
	msg.Length = parent.Length - (msg.Offset - parent.Offset)
	if msg.Length < 0 {
		msg.Length = 0
	}

	parent.Parts = []*Body{msg}
	mp.parsePart(msg)
	return msg
}

// ParsePart descends into a multipart or message body, filling in its
// parts. Leaf types are left alone: their offset and length already
// delimit the content.
func ParsePart(fp *Reader, b *Body, opt *ParseOptions) {
	mp := &mimeParser{fp: fp, opt: opt.orDefault()}
	mp.parsePart(b)
}

// ParseMultipart scans for boundary lines between the current offset and
// endOff, returning the parts found. digest selects message/rfc822 as the
// default child type.
func ParseMultipart(fp *Reader, boundary string, endOff int64, digest bool, opt *ParseOptions) []*Body {
	mp := &mimeParser{fp: fp, opt: opt.orDefault()}
	return mp.parseMultipart(boundary, endOff, digest)
}

// ParseMessage parses a message/rfc822 body whose length is already set,
// returning the encapsulated message's body.
func ParseMessage(fp *Reader, b *Body, opt *ParseOptions) *Body {
	mp := &mimeParser{fp: fp, opt: opt.orDefault()}
	return mp.parseMessage(b)
}
