package rc

import (
	"strings"

	"github.com/neomutt/neomutt-sub017/buffer"
	"github.com/neomutt/neomutt-sub017/logger"
	"github.com/neomutt/neomutt-sub017/token"
)

// findMailbox locates a watched mailbox by path or label.
func (st *State) findMailbox(key string) *Mailbox {
	for _, m := range st.Mailboxes {
		if m.Path == key || (m.Label != "" && m.Label == key) {
			return m
		}
	}
	return nil
}

// mailboxAdd adds a watched mailbox, or updates the existing entry when
// the path is already known.
func (st *State) mailboxAdd(path, label string, labelSet bool, poll, notify TriBool) {
	logger.Debug("adding mailbox", "path", path, "label", label)

	for _, m := range st.Mailboxes {
		if m.Path != path {
			continue
		}
		m.Visible = true
		if labelSet {
			m.Label = label
		}
		if notify != TBUnset {
			m.Notify = notify
		}
		if poll != TBUnset {
			m.Poll = poll
		}
		return
	}

	m := &Mailbox{Path: path, Notify: TBUnset, Poll: TBUnset, Visible: true}
	if labelSet {
		m.Label = label
	}
	if notify != TBUnset {
		m.Notify = notify
	}
	if poll != TBUnset {
		m.Poll = poll
	}
	st.Mailboxes = append(st.Mailboxes, m)
}

// cmdMailboxes handles mailboxes and named-mailboxes. Each entry takes
// optional -label/-nolabel, -notify/-nonotify and -poll/-nopoll flags;
// named-mailboxes expects the label before the path.
func cmdMailboxes(st *State, cmd *Command, line, err *buffer.Buffer) Result {
	if !token.MoreArgs(line) {
		return tooFewArgs(err, cmd.Name)
	}

	tok := buffer.Get()
	label := buffer.Get()
	mailbox := buffer.Get()
	defer buffer.Release(tok)
	defer buffer.Release(label)
	defer buffer.Release(mailbox)

	named := cmd.ID == CmdNamedMailboxes

	for token.MoreArgs(line) {
		labelSet := false
		notify := TBUnset
		poll := TBUnset
		label.Reset()
		mailbox.Reset()

		for {
			if e := st.extract(tok, line, token.NoFlags); e != nil {
				err.Printf("%s", e.Error())
				return Error
			}

			switch {
			case tok.String() == "-label":
				if !token.MoreArgs(line) {
					return tooFewArgs(err, "mailboxes -label")
				}
				if e := st.extract(label, line, token.NoFlags); e != nil {
					err.Printf("%s", e.Error())
					return Error
				}
				labelSet = true
			case tok.String() == "-nolabel":
				label.Reset()
				labelSet = true
			case tok.String() == "-notify":
				notify = TBTrue
			case tok.String() == "-nonotify":
				notify = TBFalse
			case tok.String() == "-poll":
				poll = TBTrue
			case tok.String() == "-nopoll":
				poll = TBFalse
			case named && !labelSet:
				if !token.MoreArgs(line) {
					return tooFewArgs(err, cmd.Name)
				}
				label.Reset()
				label.AddString(tok.String())
				labelSet = true
			default:
				mailbox.Reset()
				mailbox.AddString(tok.String())
			}
			if !mailbox.IsEmpty() || !token.MoreArgs(line) {
				break
			}
		}

		if mailbox.IsEmpty() {
			return tooFewArgs(err, cmd.Name)
		}

		path := st.expandPath(mailbox.String())
		st.mailboxAdd(path, label.String(), labelSet, poll, notify)
	}
	return Success
}

// cmdUnmailboxes removes watched mailboxes by path or label; "*" removes
// them all.
func cmdUnmailboxes(st *State, cmd *Command, line, err *buffer.Buffer) Result {
	if !token.MoreArgs(line) {
		return tooFewArgs(err, cmd.Name)
	}
	tok := buffer.Get()
	defer buffer.Release(tok)

	for token.MoreArgs(line) {
		if e := st.extract(tok, line, token.NoFlags); e != nil {
			err.Printf("%s", e.Error())
			return Error
		}
		if tok.String() == "*" {
			st.Mailboxes = nil
			return Success
		}

		key := st.expandPath(tok.String())
		for i, m := range st.Mailboxes {
			if m.Path == key || (m.Label != "" && strings.EqualFold(m.Label, tok.String())) {
				st.Mailboxes = append(st.Mailboxes[:i], st.Mailboxes[i+1:]...)
				break
			}
		}
	}
	return Success
}
