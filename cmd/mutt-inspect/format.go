package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/neomutt/neomutt-sub017/buffer"
	"github.com/neomutt/neomutt-sub017/email"
	"github.com/neomutt/neomutt-sub017/expando"
	"github.com/neomutt/neomutt-sub017/vardefs"
)

// indexMessage is the render datum behind a -format template: one parsed
// message plus its position in the source.
type indexMessage struct {
	Num   int
	Email *email.Email
}

// indexRenderData binds the index directives to a parsed message.
func indexRenderData() expando.RenderData {
	return expando.RenderData{
		{
			DID: vardefs.DidIndex, UID: vardefs.UidIndexNumber,
			Number: func(_ *expando.Node, data any, _ expando.RenderFlags) int64 {
				return int64(data.(*indexMessage).Num)
			},
		},
		{
			DID: vardefs.DidIndex, UID: vardefs.UidIndexFlags,
			String: func(_ *expando.Node, data any, _ expando.RenderFlags, buf *buffer.Buffer) {
				buf.AddString(messageFlags(data.(*indexMessage).Email))
			},
		},
		{
			DID: vardefs.DidIndex, UID: vardefs.UidIndexDate,
			String: func(node *expando.Node, data any, _ expando.RenderFlags, buf *buffer.Buffer) {
				e := data.(*indexMessage).Email
				buf.AddString(expando.FormatDate(node, time.Unix(e.DateSent, 0).UTC()))
			},
			Number: func(_ *expando.Node, data any, _ expando.RenderFlags) int64 {
				return data.(*indexMessage).Email.DateSent
			},
		},
		{
			DID: vardefs.DidIndex, UID: vardefs.UidIndexList,
			String: func(_ *expando.Node, data any, _ expando.RenderFlags, buf *buffer.Buffer) {
				buf.AddString(authorOrList(data.(*indexMessage).Email.Env))
			},
		},
		{
			DID: vardefs.DidIndex, UID: vardefs.UidIndexLines,
			Number: func(_ *expando.Node, data any, _ expando.RenderFlags) int64 {
				return int64(data.(*indexMessage).Email.Lines)
			},
		},
		{
			DID: vardefs.DidIndex, UID: vardefs.UidIndexBytes,
			String: func(_ *expando.Node, data any, _ expando.RenderFlags, buf *buffer.Buffer) {
				buf.AddString(prettySize(bodyLength(data.(*indexMessage).Email)))
			},
			Number: func(_ *expando.Node, data any, _ expando.RenderFlags) int64 {
				return bodyLength(data.(*indexMessage).Email)
			},
		},
		{
			DID: vardefs.DidIndex, UID: vardefs.UidIndexSubject,
			String: func(_ *expando.Node, data any, _ expando.RenderFlags, buf *buffer.Buffer) {
				buf.AddString(displaySubject(data.(*indexMessage).Email.Env))
			},
		},
		{
			DID: vardefs.DidEnvelope, UID: vardefs.UidIndexAuthor,
			String: func(_ *expando.Node, data any, _ expando.RenderFlags, buf *buffer.Buffer) {
				buf.AddString(author(data.(*indexMessage).Email.Env))
			},
		},
	}
}

func bodyLength(e *email.Email) int64 {
	if e.Body == nil {
		return 0
	}
	return e.Body.Length
}

// author is the display name of the first From address, falling back to
// the bare mailbox.
func author(env *email.Envelope) string {
	if env == nil || len(env.From) == 0 {
		return ""
	}
	a := env.From[0]
	if a.Personal != "" {
		return a.Personal
	}
	return a.Mailbox
}

// authorOrList prefers the mailing list a message was posted to, the way
// the index's %L column does.
func authorOrList(env *email.Envelope) string {
	if env != nil && env.ListPost != "" {
		addr := strings.TrimPrefix(env.ListPost, "mailto:")
		if i := strings.IndexAny(addr, "?@"); i >= 0 {
			addr = addr[:i]
		}
		if addr != "" {
			return "To " + addr
		}
	}
	return author(env)
}

func displaySubject(env *email.Envelope) string {
	if env == nil {
		return ""
	}
	if env.DispSubj != "" {
		return env.DispSubj
	}
	if env.RealSubj != "" {
		return env.RealSubj
	}
	return env.Subject
}

// prettySize formats a byte count the way the index does: bytes up to
// 1023, then one-decimal K and M.
func prettySize(n int64) string {
	switch {
	case n < 1024:
		return fmt.Sprintf("%d", n)
	case n < 1024*1024:
		return fmt.Sprintf("%.1fK", float64(n)/1024)
	default:
		return fmt.Sprintf("%.1fM", float64(n)/(1024*1024))
	}
}
