package rc

import (
	"strings"

	"github.com/neomutt/neomutt-sub017/buffer"
	"github.com/neomutt/neomutt-sub017/email"
	"github.com/neomutt/neomutt-sub017/token"
)

// addToList appends s unless an equal entry (ignoring case) is present.
func addToList(list *[]string, s string) {
	if s == "" {
		return
	}
	for _, e := range *list {
		if strings.EqualFold(e, s) {
			return
		}
	}
	*list = append(*list, s)
}

// removeFromList deletes the first equal entry, ignoring case; "*" clears
// the whole list.
func removeFromList(list *[]string, s string) {
	if s == "*" {
		*list = nil
		return
	}
	for i, e := range *list {
		if strings.EqualFold(e, s) {
			*list = append((*list)[:i], (*list)[i+1:]...)
			return
		}
	}
}

// tooFewArgs is the conventional complaint for commands needing arguments.
func tooFewArgs(err *buffer.Buffer, name string) Result {
	err.Printf("%s: too few arguments", name)
	return Warning
}

// parseGroupList consumes "-group <name>" pairs, collecting the named
// groups. On return tok holds the first token that is not part of a
// -group pair.
func (st *State) parseGroupList(groups *[]*Group, tok, line, err *buffer.Buffer) bool {
	for strings.EqualFold(tok.String(), "-group") {
		if !token.MoreArgs(line) {
			err.Printf("-group: no group name")
			return false
		}
		if st.extract(tok, line, token.NoFlags) != nil {
			return false
		}
		*groups = append(*groups, st.group(tok.String()))
		if !token.MoreArgs(line) {
			err.Printf("out of arguments")
			return false
		}
		if st.extract(tok, line, token.NoFlags) != nil {
			return false
		}
	}
	return true
}

// cmdIgnore adds header fields to the ignored set.
func cmdIgnore(st *State, cmd *Command, line, err *buffer.Buffer) Result {
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
		removeFromList(&st.UnIgnore, tok.String())
		addToList(&st.Ignore, tok.String())
	}
	return Success
}

func cmdUnignore(st *State, cmd *Command, line, err *buffer.Buffer) Result {
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
		// "*" is never added to the unignore list.
		if tok.String() != "*" {
			addToList(&st.UnIgnore, tok.String())
		}
		removeFromList(&st.Ignore, tok.String())
	}
	return Success
}

// cmdStringList is the shared handler for the plain keep-in-order lists:
// alternative_order, auto_view, hdr_order, mailto_allow and mime_lookup.
func cmdStringList(st *State, cmd *Command, line, err *buffer.Buffer) Result {
	if !token.MoreArgs(line) {
		return tooFewArgs(err, cmd.Name)
	}
	list := st.stringList(cmd.Data.(listID))
	tok := buffer.Get()
	defer buffer.Release(tok)
	for token.MoreArgs(line) {
		if e := st.extract(tok, line, token.NoFlags); e != nil {
			err.Printf("%s", e.Error())
			return Error
		}
		addToList(list, tok.String())
	}
	return Success
}

func cmdUnstringList(st *State, cmd *Command, line, err *buffer.Buffer) Result {
	if !token.MoreArgs(line) {
		return tooFewArgs(err, cmd.Name)
	}
	list := st.stringList(cmd.Data.(listID))
	tok := buffer.Get()
	defer buffer.Release(tok)
	for token.MoreArgs(line) {
		if e := st.extract(tok, line, token.NoFlags); e != nil {
			err.Printf("%s", e.Error())
			return Error
		}
		if tok.String() == "*" {
			*list = nil
			return Success
		}
		removeFromList(list, tok.String())
	}
	return Success
}

func cmdLists(st *State, cmd *Command, line, err *buffer.Buffer) Result {
	if !token.MoreArgs(line) {
		return tooFewArgs(err, cmd.Name)
	}
	tok := buffer.Get()
	defer buffer.Release(tok)
	var groups []*Group
	for token.MoreArgs(line) {
		if e := st.extract(tok, line, token.NoFlags); e != nil {
			err.Printf("%s", e.Error())
			return Error
		}
		if !st.parseGroupList(&groups, tok, line, err) {
			return Error
		}
		st.UnMailLists.Remove(tok.String())
		if e := st.MailLists.Add(tok.String()); e != nil {
			err.Printf("%s", e.Error())
			return Error
		}
		for _, g := range groups {
			if e := g.Regexes.Add(tok.String()); e != nil {
				err.Printf("%s", e.Error())
				return Error
			}
		}
	}
	return Success
}

func cmdUnlists(st *State, cmd *Command, line, err *buffer.Buffer) Result {
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
		st.SubscribedLists.Remove(tok.String())
		st.MailLists.Remove(tok.String())
		if tok.String() != "*" {
			if e := st.UnMailLists.Add(tok.String()); e != nil {
				err.Printf("%s", e.Error())
				return Error
			}
		}
	}
	return Success
}

func cmdSubscribe(st *State, cmd *Command, line, err *buffer.Buffer) Result {
	if !token.MoreArgs(line) {
		return tooFewArgs(err, cmd.Name)
	}
	tok := buffer.Get()
	defer buffer.Release(tok)
	var groups []*Group
	for token.MoreArgs(line) {
		if e := st.extract(tok, line, token.NoFlags); e != nil {
			err.Printf("%s", e.Error())
			return Error
		}
		if !st.parseGroupList(&groups, tok, line, err) {
			return Error
		}
		st.UnMailLists.Remove(tok.String())
		st.UnSubscribedLists.Remove(tok.String())
		if e := st.MailLists.Add(tok.String()); e != nil {
			err.Printf("%s", e.Error())
			return Error
		}
		if e := st.SubscribedLists.Add(tok.String()); e != nil {
			err.Printf("%s", e.Error())
			return Error
		}
		for _, g := range groups {
			if e := g.Regexes.Add(tok.String()); e != nil {
				err.Printf("%s", e.Error())
				return Error
			}
		}
	}
	return Success
}

func cmdUnsubscribe(st *State, cmd *Command, line, err *buffer.Buffer) Result {
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
		st.SubscribedLists.Remove(tok.String())
		if tok.String() != "*" {
			if e := st.UnSubscribedLists.Add(tok.String()); e != nil {
				err.Printf("%s", e.Error())
				return Error
			}
		}
	}
	return Success
}

func cmdAlternates(st *State, cmd *Command, line, err *buffer.Buffer) Result {
	if !token.MoreArgs(line) {
		return tooFewArgs(err, cmd.Name)
	}
	tok := buffer.Get()
	defer buffer.Release(tok)
	var groups []*Group
	for token.MoreArgs(line) {
		if e := st.extract(tok, line, token.NoFlags); e != nil {
			err.Printf("%s", e.Error())
			return Error
		}
		if !st.parseGroupList(&groups, tok, line, err) {
			return Error
		}
		st.UnAlternates.Remove(tok.String())
		if e := st.Alternates.Add(tok.String()); e != nil {
			err.Printf("%s", e.Error())
			return Error
		}
		for _, g := range groups {
			if e := g.Regexes.Add(tok.String()); e != nil {
				err.Printf("%s", e.Error())
				return Error
			}
		}
	}
	return Success
}

func cmdUnalternates(st *State, cmd *Command, line, err *buffer.Buffer) Result {
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
		st.Alternates.Remove(tok.String())
		if tok.String() != "*" {
			if e := st.UnAlternates.Add(tok.String()); e != nil {
				err.Printf("%s", e.Error())
				return Error
			}
		}
	}
	return Success
}

// cmdSpam handles both spam and nospam, selected by cmd.Data.
func cmdSpam(st *State, cmd *Command, line, err *buffer.Buffer) Result {
	id := cmd.Data.(CommandID)
	if !token.MoreArgs(line) {
		err.Printf("%s: no matching pattern", cmd.Name)
		return Warning
	}
	tok := buffer.Get()
	defer buffer.Release(tok)
	if e := st.extract(tok, line, token.NoFlags); e != nil {
		err.Printf("%s", e.Error())
		return Error
	}
	pattern := tok.String()

	if id == CmdSpam {
		if token.MoreArgs(line) {
			templ := buffer.Get()
			defer buffer.Release(templ)
			if e := st.extract(templ, line, token.NoFlags); e != nil {
				err.Printf("%s", e.Error())
				return Error
			}
			if e := st.SpamList.Add(pattern, templ.String()); e != nil {
				err.Printf("%s", e.Error())
				return Error
			}
			return Success
		}
		// A bare pattern lifts an earlier nospam exemption.
		st.NoSpamList.Remove(pattern)
		return Success
	}

	// nospam
	if pattern == "*" {
		st.SpamList.Clear()
		st.NoSpamList.Clear()
		return Success
	}
	if st.SpamList.Remove(pattern) != 0 {
		return Success
	}
	if e := st.NoSpamList.Add(pattern); e != nil {
		err.Printf("%s", e.Error())
		return Error
	}
	return Success
}

func cmdSubjectRx(st *State, cmd *Command, line, err *buffer.Buffer) Result {
	if !token.MoreArgs(line) {
		return tooFewArgs(err, cmd.Name)
	}
	pat := buffer.Get()
	templ := buffer.Get()
	defer buffer.Release(pat)
	defer buffer.Release(templ)

	if e := st.extract(pat, line, token.NoFlags); e != nil {
		err.Printf("%s", e.Error())
		return Error
	}
	if !token.MoreArgs(line) {
		return tooFewArgs(err, cmd.Name)
	}
	if e := st.extract(templ, line, token.NoFlags); e != nil {
		err.Printf("%s", e.Error())
		return Error
	}
	if e := st.SubjectRxList.Add(pat.String(), templ.String()); e != nil {
		err.Printf("%s", e.Error())
		return Error
	}
	return Success
}

func cmdUnsubjectRx(st *State, cmd *Command, line, err *buffer.Buffer) Result {
	if !token.MoreArgs(line) {
		return tooFewArgs(err, cmd.Name)
	}
	tok := buffer.Get()
	defer buffer.Release(tok)
	if e := st.extract(tok, line, token.NoFlags); e != nil {
		err.Printf("%s", e.Error())
		return Error
	}
	if tok.String() == "*" {
		st.SubjectRxList.Clear()
		return Success
	}
	st.SubjectRxList.Remove(tok.String())
	return Success
}

// groupState tracks which kind of entry the group command is collecting.
type groupState int

const (
	gsNone groupState = iota
	gsRx
	gsAddr
)

// cmdGroup handles group and ungroup, selected by cmd.Data.
func cmdGroup(st *State, cmd *Command, line, err *buffer.Buffer) Result {
	id := cmd.Data.(CommandID)
	if !token.MoreArgs(line) {
		return tooFewArgs(err, cmd.Name)
	}

	tok := buffer.Get()
	defer buffer.Release(tok)
	var groups []*Group
	state := gsNone

	for token.MoreArgs(line) {
		if e := st.extract(tok, line, token.NoFlags); e != nil {
			err.Printf("%s", e.Error())
			return Error
		}
		if !st.parseGroupList(&groups, tok, line, err) {
			return Error
		}

		if id == CmdUngroup && tok.String() == "*" {
			for _, g := range groups {
				g.Regexes.Clear()
				g.Addresses = nil
			}
			st.pruneGroups()
			return Success
		}

		switch {
		case strings.EqualFold(tok.String(), "-rx"):
			state = gsRx
		case strings.EqualFold(tok.String(), "-addr"):
			state = gsAddr
		default:
			switch state {
			case gsNone:
				un := ""
				if id == CmdUngroup {
					un = "un"
				}
				err.Printf("%sgroup: missing -rx or -addr", un)
				return Warning
			case gsRx:
				for _, g := range groups {
					if id == CmdGroup {
						if e := g.Regexes.Add(tok.String()); e != nil {
							err.Printf("%s", e.Error())
							return Error
						}
					} else {
						g.Regexes.Remove(tok.String())
					}
				}
			case gsAddr:
				var al email.AddressList
				if al.Parse2(tok.String()) == 0 {
					err.Printf("%s: bad address: %s", cmd.Name, tok.String())
					return Error
				}
				for _, g := range groups {
					if id == CmdGroup {
						g.addAddresses(al)
					} else {
						g.removeAddresses(al)
					}
				}
			}
		}
	}
	if id == CmdUngroup {
		st.pruneGroups()
	}
	return Success
}

// addAddresses merges addresses, deduplicating by mailbox.
func (g *Group) addAddresses(al email.AddressList) {
	for _, a := range al {
		if a.Mailbox == "" {
			continue
		}
		dup := false
		for _, have := range g.Addresses {
			if strings.EqualFold(have.Mailbox, a.Mailbox) {
				dup = true
				break
			}
		}
		if !dup {
			g.Addresses = append(g.Addresses, a)
		}
	}
}

func (g *Group) removeAddresses(al email.AddressList) {
	for _, a := range al {
		for i, have := range g.Addresses {
			if strings.EqualFold(have.Mailbox, a.Mailbox) {
				g.Addresses = append(g.Addresses[:i], g.Addresses[i+1:]...)
				break
			}
		}
	}
}

// pruneGroups drops groups that no longer hold any entry.
func (st *State) pruneGroups() {
	for name, g := range st.Groups {
		if g.Regexes.Len() == 0 && len(g.Addresses) == 0 {
			delete(st.Groups, name)
		}
	}
}
