package email

import (
	"strings"

	"github.com/neomutt/neomutt-sub017/regexlist"
	"github.com/neomutt/neomutt-sub017/rfc2047"
)

// EnvelopeChanged flags which envelope fields the user edited.
type EnvelopeChanged uint8

const (
	EnvChangedIRT     EnvelopeChanged = 1 << 0 // In-Reply-To
	EnvChangedRefs    EnvelopeChanged = 1 << 1 // References
	EnvChangedXLabel  EnvelopeChanged = 1 << 2 // X-Label
	EnvChangedSubject EnvelopeChanged = 1 << 3 // Subject
)

// Envelope holds the parsed header fields of a message.
type Envelope struct {
	ReturnPath     AddressList
	From           AddressList
	To             AddressList
	Cc             AddressList
	Bcc            AddressList
	Sender         AddressList
	ReplyTo        AddressList
	MailFollowupTo AddressList
	XOriginalTo    AddressList

	ListPost        string // this stores a mailto URL, or nothing
	ListSubscribe   string
	ListUnsubscribe string

	Subject  string
	RealSubj string // offset of the real subject within Subject
	DispSubj string // display subject, after $subjectrx rewriting

	MessageID  string
	Supersedes string
	Date       string
	XLabel     string

	Organization string
	Newsgroups   string
	Xref         string
	FollowupTo   string
	XCommentTo   string

	References []string // sorted in reverse order
	InReplyTo  []string

	UserHdrs []string // "Name: value" lines not otherwise claimed

	Spam string // matched spam tags, joined by $spam_separator

	Changed EnvelopeChanged
}

// NewEnvelope returns an empty Envelope.
func NewEnvelope() *Envelope {
	return &Envelope{}
}

// SetSubject stores subj and derives RealSubj by skipping any reply prefix
// matched by replyRegex. A prefix that consumes the whole subject leaves
// RealSubj empty.
func (env *Envelope) SetSubject(subj string, replyRegex ReplyMatcher) {
	env.Subject = subj
	env.RealSubj = ""
	if env.Subject == "" {
		return
	}
	if replyRegex != nil {
		if end, ok := replyRegex.MatchPrefix(env.Subject); ok {
			if end < len(env.Subject) {
				env.RealSubj = env.Subject[end:]
			}
			return
		}
	}
	env.RealSubj = env.Subject
}

// ApplySubjectMods rewrites the subject for display through the
// $subjectrx replacement list. The rewritten form lands in DispSubj and
// is returned. An empty list leaves the subject untouched.
func (env *Envelope) ApplySubjectMods(mods *regexlist.ReplaceList) string {
	if env == nil {
		return ""
	}
	if mods == nil || mods.Len() == 0 {
		return env.Subject
	}
	if env.Subject == "" {
		env.DispSubj = ""
		return ""
	}
	env.DispSubj = mods.Apply(env.Subject)
	return env.DispSubj
}

// ReplyMatcher reports how much of a subject line is a reply prefix
// ("Re: ", "Aw: ", ...). It abstracts the $reply_regex config variable.
type ReplyMatcher interface {
	MatchPrefix(subject string) (end int, ok bool)
}

// Merge copies into env every field that env lacks and extra has. Spam and
// user headers always move: the inner message's values are fresher.
func (env *Envelope) Merge(extra *Envelope) {
	if extra == nil {
		return
	}

	moveAddrs := func(dst *AddressList, src AddressList) {
		if len(*dst) == 0 {
			*dst = src
		}
	}
	moveStr := func(dst *string, src string) {
		if *dst == "" {
			*dst = src
		}
	}

	moveAddrs(&env.ReturnPath, extra.ReturnPath)
	moveAddrs(&env.From, extra.From)
	moveAddrs(&env.To, extra.To)
	moveAddrs(&env.Cc, extra.Cc)
	moveAddrs(&env.Bcc, extra.Bcc)
	moveAddrs(&env.Sender, extra.Sender)
	moveAddrs(&env.ReplyTo, extra.ReplyTo)
	moveAddrs(&env.MailFollowupTo, extra.MailFollowupTo)
	moveStr(&env.ListPost, extra.ListPost)
	moveStr(&env.ListSubscribe, extra.ListSubscribe)
	moveStr(&env.ListUnsubscribe, extra.ListUnsubscribe)
	moveStr(&env.MessageID, extra.MessageID)
	moveStr(&env.Supersedes, extra.Supersedes)
	moveStr(&env.Date, extra.Date)
	moveAddrs(&env.XOriginalTo, extra.XOriginalTo)
	if env.Changed&EnvChangedXLabel == 0 {
		moveStr(&env.XLabel, extra.XLabel)
	}
	if env.Changed&EnvChangedRefs == 0 && len(env.References) == 0 {
		env.References = extra.References
	}
	if env.Changed&EnvChangedIRT == 0 && len(env.InReplyTo) == 0 {
		env.InReplyTo = extra.InReplyTo
	}
	if env.Subject == "" {
		env.Subject = extra.Subject
		env.RealSubj = extra.RealSubj
		env.DispSubj = extra.DispSubj
	}
	env.Spam = extra.Spam
	env.UserHdrs = extra.UserHdrs
}

// CmpStrict reports whether two envelopes agree on the fields that identify
// a message: ids, subject, references and the principal address lists.
func (env *Envelope) CmpStrict(other *Envelope) bool {
	if env == nil || other == nil {
		return env == other
	}
	if env.MessageID != other.MessageID || env.Subject != other.Subject {
		return false
	}
	if len(env.References) != len(other.References) {
		return false
	}
	for i := range env.References {
		if env.References[i] != other.References[i] {
			return false
		}
	}
	return env.From.Equal(other.From) &&
		env.Sender.Equal(other.Sender) &&
		env.ReplyTo.Equal(other.ReplyTo) &&
		env.To.Equal(other.To) &&
		env.Cc.Equal(other.Cc) &&
		env.ReturnPath.Equal(other.ReturnPath)
}

// DecodeEnvelope runs the RFC 2047 decoder over every field that may carry
// encoded words, in place. Address fields decode each display name; the
// subject is re-derived afterwards so RealSubj stays consistent.
func DecodeEnvelope(env *Envelope, opt rfc2047.Options, reply ReplyMatcher) {
	if env == nil {
		return
	}

	for _, al := range []AddressList{
		env.ReturnPath, env.From, env.To, env.Cc, env.Bcc, env.Sender,
		env.ReplyTo, env.MailFollowupTo, env.XOriginalTo,
	} {
		for _, a := range al {
			if a.Personal != "" {
				a.Personal = rfc2047.Decode(a.Personal, opt)
			}
		}
	}

	env.XLabel = rfc2047.Decode(env.XLabel, opt)
	if env.Subject != "" {
		env.SetSubject(rfc2047.Decode(env.Subject, opt), reply)
	}
	for i, h := range env.UserHdrs {
		env.UserHdrs[i] = rfc2047.Decode(h, opt)
	}
}

// stdReplyRegex mirrors the default $reply_regex: any run of re/aw/sv
// prefixes with optional [#] brackets and colons.
type stdReplyRegex struct{}

// MatchPrefix implements ReplyMatcher for the built-in default.
func (stdReplyRegex) MatchPrefix(subject string) (int, bool) {
	s := subject
	n := 0
	matched := false
	for {
		rest, ok := stripOneReply(s)
		if !ok {
			break
		}
		matched = true
		n += len(s) - len(rest)
		s = rest
	}
	if !matched {
		return 0, false
	}
	return n, true
}

func stripOneReply(s string) (string, bool) {
	lower := strings.ToLower(s)
	var rest string
	switch {
	case strings.HasPrefix(lower, "re"):
		rest = s[2:]
	case strings.HasPrefix(lower, "aw"), strings.HasPrefix(lower, "sv"):
		rest = s[2:]
	default:
		return s, false
	}
	// Optional "[#]". A bare bracket pair is tolerated.
	if strings.HasPrefix(rest, "[") {
		end := strings.IndexByte(rest, ']')
		if end < 0 {
			return s, false
		}
		for _, c := range rest[1:end] {
			if c < '0' || c > '9' {
				return s, false
			}
		}
		rest = rest[end+1:]
	}
	if !strings.HasPrefix(rest, ":") {
		return s, false
	}
	rest = rest[1:]
	for len(rest) > 0 && (rest[0] == ' ' || rest[0] == '\t') {
		rest = rest[1:]
	}
	return rest, true
}

// DefaultReplyRegex matches the usual "Re:", "Aw:", "Sv:" chains, including
// bracketed counts like "Re[2]:".
var DefaultReplyRegex ReplyMatcher = stdReplyRegex{}
