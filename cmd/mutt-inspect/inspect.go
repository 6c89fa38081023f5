package main

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"mime/quotedprintable"
	"strings"
	"time"

	"github.com/k3a/html2text"

	"github.com/neomutt/neomutt-sub017/buffer"
	"github.com/neomutt/neomutt-sub017/charset"
	"github.com/neomutt/neomutt-sub017/email"
	"github.com/neomutt/neomutt-sub017/enriched"
	"github.com/neomutt/neomutt-sub017/expando"
	"github.com/neomutt/neomutt-sub017/pkg/metrics"
	"github.com/neomutt/neomutt-sub017/storage"
)

// inspector carries the per-invocation settings shared by the file, mbox,
// S3 and HTTP paths.
type inspector struct {
	opt     *email.ParseOptions
	digest  bool
	render  bool
	format  *expando.Expando
	maxCols int
	out     io.Writer
}

// parseMessage runs the header and MIME parsers over one message and
// returns the annotated result. The stream must be positioned at the
// start of the message.
func parseMessage(rs io.ReadSeeker, opt *email.ParseOptions) (*email.Email, error) {
	fp := email.NewReader(rs)
	e := email.NewEmail()
	env := email.ReadHeader(fp, e, true, true, opt)
	if env == nil {
		metrics.MessagesParsed.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("no message header found")
	}
	e.Env = env
	email.ParsePart(fp, e.Body, opt)
	email.DecodeEnvelope(env, opt.RFC2047, opt.Reply)
	metrics.MessagesParsed.WithLabelValues("success").Inc()
	return e, nil
}

// Inspect parses one message and prints it according to the configured
// output mode. num is the 1-based message number within its source.
func (ins *inspector) Inspect(rs io.ReadSeeker, num int) error {
	e, err := parseMessage(rs, ins.opt)
	if err != nil {
		return err
	}

	if ins.format != nil {
		metrics.ExpandoRenders.WithLabelValues("index").Inc()
		line := buffer.Get()
		defer buffer.Release(line)
		expando.Render(ins.format, indexRenderData(), &indexMessage{Num: num, Email: e}, 0, ins.maxCols, line)
		fmt.Fprintln(ins.out, line.String())
		return nil
	}

	ins.printEnvelope(e)
	ins.printTree(rs, e.Body, 0)
	return nil
}

func (ins *inspector) printEnvelope(e *email.Email) {
	env := e.Env
	w := ins.out

	printAddrs := func(label string, al email.AddressList) {
		if len(al) > 0 {
			fmt.Fprintf(w, "%s: %s\n", label, al.Write())
		}
	}
	printAddrs("From", env.From)
	printAddrs("To", env.To)
	printAddrs("Cc", env.Cc)
	printAddrs("Reply-To", env.ReplyTo)
	if env.Subject != "" {
		fmt.Fprintf(w, "Subject: %s\n", env.Subject)
	}
	if e.DateSent != 0 {
		fmt.Fprintf(w, "Date: %s\n", time.Unix(e.DateSent, 0).UTC().Format(time.RFC1123Z))
	}
	if env.MessageID != "" {
		fmt.Fprintf(w, "Message-ID: %s\n", env.MessageID)
	}
	if env.ListPost != "" {
		fmt.Fprintf(w, "List-Post: %s\n", env.ListPost)
	}
	if env.Spam != "" {
		fmt.Fprintf(w, "Spam: %s\n", env.Spam)
	}
	fmt.Fprintf(w, "Flags: [%s]\n", messageFlags(e))
}

// printTree walks the MIME structure, one line per part.
func (ins *inspector) printTree(rs io.ReadSeeker, b *email.Body, depth int) {
	if b == nil {
		return
	}
	metrics.MimePartsParsed.Inc()

	line := fmt.Sprintf("%s%s/%s [%s]", strings.Repeat("  ", depth), b.Type, b.Subtype, b.Encoding)
	if cs, ok := b.Parameter.Get("charset"); ok {
		line += " charset=" + cs
	}
	if b.DFilename != "" {
		line += fmt.Sprintf(" name=%q", b.DFilename)
	}
	if b.Description != "" {
		line += fmt.Sprintf(" description=%q", b.Description)
	}
	line += fmt.Sprintf(" offset=%d length=%d", b.Offset, b.Length)

	leaf := len(b.Parts) == 0
	if ins.digest && leaf {
		if raw, err := readPart(rs, b); err == nil {
			line += " blake3=" + storage.Digest(raw)
		}
	}
	fmt.Fprintln(ins.out, line)

	if ins.render && leaf && b.Type == email.TypeText {
		ins.renderText(rs, b, depth)
	}

	for _, p := range b.Parts {
		ins.printTree(rs, p, depth+1)
	}
}

// renderText prints a plain-text rendition of enriched and HTML leaves,
// indented one level past the part's own line.
func (ins *inspector) renderText(rs io.ReadSeeker, b *email.Body, depth int) {
	sub := strings.ToLower(b.Subtype)
	if sub != "enriched" && sub != "richtext" && sub != "html" {
		return
	}

	text, err := partText(rs, b)
	if err != nil {
		fmt.Fprintf(ins.out, "%s(render failed: %v)\n", strings.Repeat("  ", depth+1), err)
		return
	}

	var rendered string
	if sub == "html" {
		rendered = html2text.HTML2Text(text)
	} else {
		metrics.EnrichedRenders.Inc()
		rendered, err = enriched.RenderString(text, enriched.Options{WrapLen: 80})
		if err != nil {
			fmt.Fprintf(ins.out, "%s(render failed: %v)\n", strings.Repeat("  ", depth+1), err)
			return
		}
	}

	prefix := strings.Repeat("  ", depth+1)
	for _, l := range strings.Split(strings.TrimRight(rendered, "\n"), "\n") {
		fmt.Fprintf(ins.out, "%s| %s\n", prefix, l)
	}
}

// readPart returns the raw (still transfer-encoded) bytes of a part.
func readPart(rs io.ReadSeeker, b *email.Body) ([]byte, error) {
	if _, err := rs.Seek(b.Offset, io.SeekStart); err != nil {
		return nil, err
	}
	return io.ReadAll(io.LimitReader(rs, b.Length))
}

// partText decodes a text part's transfer encoding and converts it into
// UTF-8 using the part's declared charset.
func partText(rs io.ReadSeeker, b *email.Body) (string, error) {
	raw, err := readPart(rs, b)
	if err != nil {
		return "", err
	}
	decoded, err := decodeTransfer(raw, b.Encoding)
	if err != nil {
		return "", err
	}

	cs, ok := b.Parameter.Get("charset")
	if !ok || charset.IsUTF8(cs) || charset.IsUsAscii(cs) {
		return string(decoded), nil
	}
	out, _, err := charset.Convert(string(decoded), cs, "utf-8", 0)
	if err != nil {
		// Show the undecoded text rather than nothing.
		return string(decoded), nil
	}
	return out, nil
}

// decodeTransfer reverses a part's Content-Transfer-Encoding.
func decodeTransfer(raw []byte, enc email.ContentEncoding) ([]byte, error) {
	switch enc {
	case email.EncBase64:
		clean := make([]byte, 0, len(raw))
		for _, c := range raw {
			if c != '\r' && c != '\n' && c != ' ' && c != '\t' {
				clean = append(clean, c)
			}
		}
		out := make([]byte, base64.StdEncoding.DecodedLen(len(clean)))
		n, err := base64.StdEncoding.Decode(out, clean)
		if err != nil {
			return nil, err
		}
		return out[:n], nil
	case email.EncQuotedPrintable:
		return io.ReadAll(quotedprintable.NewReader(bytes.NewReader(raw)))
	default:
		return raw, nil
	}
}

// messageFlags renders the status flags the header parser recovered, in
// the order the index's %Z column uses.
func messageFlags(e *email.Email) string {
	var sb strings.Builder
	switch {
	case e.Deleted:
		sb.WriteByte('D')
	case e.Replied:
		sb.WriteByte('r')
	case !e.Read && !e.Old:
		sb.WriteByte('N')
	case e.Old:
		sb.WriteByte('O')
	default:
		sb.WriteByte(' ')
	}
	if e.Flagged {
		sb.WriteByte('!')
	}
	if e.Expired {
		sb.WriteByte('E')
	}
	return strings.TrimRight(sb.String(), " ")
}
