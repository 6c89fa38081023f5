package rc

import (
	"context"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/neomutt/neomutt-sub017/buffer"
	"github.com/neomutt/neomutt-sub017/email"
	"github.com/neomutt/neomutt-sub017/token"
)

func cmdEcho(st *State, cmd *Command, line, err *buffer.Buffer) Result {
	if !token.MoreArgs(line) {
		return tooFewArgs(err, cmd.Name)
	}
	tok := buffer.Get()
	defer buffer.Release(tok)
	if e := st.extract(tok, line, token.NoFlags); e != nil {
		err.Printf("%s", e.Error())
		return Error
	}
	st.message("%s", tok.String())
	return Success
}

func cmdCd(st *State, cmd *Command, line, err *buffer.Buffer) Result {
	tok := buffer.Get()
	defer buffer.Release(tok)
	if token.MoreArgs(line) {
		if e := st.extract(tok, line, token.NoFlags); e != nil {
			err.Printf("%s", e.Error())
			return Error
		}
	}
	dir := st.expandPath(tok.String())
	if dir == "" {
		home, e := os.UserHomeDir()
		if e != nil || home == "" {
			return tooFewArgs(err, cmd.Name)
		}
		dir = home
	}
	if e := os.Chdir(dir); e != nil {
		err.Printf("cd: %s", e.Error())
		return Error
	}
	return Success
}

func cmdFinish(st *State, cmd *Command, line, err *buffer.Buffer) Result {
	if token.MoreArgs(line) {
		err.Printf("finish: too many arguments")
		return Warning
	}
	return Finish
}

// symbolDefined reports whether ifdef's argument names anything known:
// a config variable, a build feature, a command, a user variable or an
// environment variable.
func (st *State) symbolDefined(name string) bool {
	if strings.HasPrefix(name, "my_") {
		_, ok := st.MyVar(name)
		return ok
	}
	if st.Vars.Set().Known(name) {
		return true
	}
	for _, f := range st.Features {
		if strings.EqualFold(f, name) {
			return true
		}
	}
	if st.LookupCommand(name) != nil {
		return true
	}
	_, ok := st.Getenv(name)
	return ok
}

// cmdIfdef runs the rest of the line when the symbol is (ifdef) or is not
// (ifndef) defined. cmd.Data is true for the negated form.
func cmdIfdef(st *State, cmd *Command, line, err *buffer.Buffer) Result {
	negate := cmd.Data.(bool)

	tok := buffer.Get()
	defer buffer.Release(tok)
	if e := st.extract(tok, line, token.NoFlags); e != nil {
		err.Printf("%s", e.Error())
		return Error
	}
	if tok.IsEmpty() {
		return tooFewArgs(err, cmd.Name)
	}
	defined := st.symbolDefined(tok.String())

	if !token.MoreArgs(line) {
		return tooFewArgs(err, cmd.Name)
	}
	rest := buffer.Get()
	defer buffer.Release(rest)
	if e := st.extract(rest, line, token.Space); e != nil {
		err.Printf("%s", e.Error())
		return Error
	}

	if defined == negate {
		return Success
	}
	sub := buffer.NewString(rest.String())
	sub.Seek(0)
	return st.ParseLine(sub, err)
}

func cmdMyHdr(st *State, cmd *Command, line, err *buffer.Buffer) Result {
	if !token.MoreArgs(line) {
		return tooFewArgs(err, cmd.Name)
	}
	tok := buffer.Get()
	defer buffer.Release(tok)
	if e := st.extract(tok, line, token.Space|token.Quote); e != nil {
		err.Printf("%s", e.Error())
		return Error
	}
	header := tok.String()
	i := strings.IndexAny(header, ": \t")
	if i < 0 || header[i] != ':' {
		err.Printf("invalid header field")
		return Warning
	}

	field := header[:i+1]
	for idx, h := range st.UserHeader {
		if len(h) >= len(field) && strings.EqualFold(h[:len(field)], field) {
			st.UserHeader[idx] = header
			return Success
		}
	}
	st.UserHeader = append(st.UserHeader, header)
	return Success
}

func cmdUnmyHdr(st *State, cmd *Command, line, err *buffer.Buffer) Result {
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
			st.UserHeader = nil
			continue
		}
		name := strings.TrimSuffix(tok.String(), ":")
		kept := st.UserHeader[:0]
		for _, h := range st.UserHeader {
			if len(h) > len(name) && h[len(name)] == ':' &&
				strings.EqualFold(h[:len(name)], name) {
				continue
			}
			kept = append(kept, h)
		}
		st.UserHeader = kept
	}
	return Success
}

// cmdSetenv handles setenv and unsetenv; cmd.Data is true for unsetenv.
func cmdSetenv(st *State, cmd *Command, line, err *buffer.Buffer) Result {
	unset := cmd.Data.(bool)
	if !token.MoreArgs(line) {
		return tooFewArgs(err, cmd.Name)
	}

	query := false
	if line.Peek() == '?' {
		query = true
		line.Advance(1)
	}

	tok := buffer.Get()
	defer buffer.Release(tok)
	if e := st.extract(tok, line, token.Equal); e != nil {
		err.Printf("%s", e.Error())
		return Error
	}
	name := tok.String()

	if query {
		found := false
		for _, kv := range st.Environ() {
			if strings.HasPrefix(kv, name) {
				st.message("%s", kv)
				found = true
			}
		}
		if found {
			return Success
		}
		err.Printf("%s is unset", name)
		return Warning
	}

	if unset {
		if !st.Unsetenv(name) {
			err.Printf("%s is unset", name)
			return Warning
		}
		return Success
	}

	if line.Peek() == '=' {
		line.Advance(1)
	}
	if !token.MoreArgs(line) {
		return tooFewArgs(err, cmd.Name)
	}
	value := buffer.Get()
	defer buffer.Release(value)
	if e := st.extract(value, line, token.NoFlags); e != nil {
		err.Printf("%s", e.Error())
		return Error
	}
	st.Setenv(name, value.String())
	return Success
}

// cmdVersion writes the version banner into the message buffer, the same
// channel queries use.
func cmdVersion(st *State, cmd *Command, line, err *buffer.Buffer) Result {
	if token.MoreArgs(line) {
		err.Printf("%s: too many arguments", cmd.Name)
		return Warning
	}
	err.Printf("%s", st.Banner)
	return Success
}

func cmdAlias(st *State, cmd *Command, line, err *buffer.Buffer) Result {
	if !token.MoreArgs(line) {
		return tooFewArgs(err, cmd.Name)
	}
	tok := buffer.Get()
	defer buffer.Release(tok)
	if e := st.extract(tok, line, token.NoFlags); e != nil {
		err.Printf("%s", e.Error())
		return Error
	}
	var groups []*Group
	if !st.parseGroupList(&groups, tok, line, err) {
		return Error
	}
	key := tok.String()

	if !token.MoreArgs(line) {
		err.Printf("alias: no address")
		return Warning
	}
	addrTok := buffer.Get()
	defer buffer.Release(addrTok)
	if e := st.extract(addrTok, line, token.Quote|token.Space|token.Semicolon); e != nil {
		err.Printf("%s", e.Error())
		return Error
	}

	var al email.AddressList
	if al.Parse2(addrTok.String()) == 0 {
		err.Printf("%s: bad address: %s", cmd.Name, addrTok.String())
		return Error
	}

	comment := ""
	if line.Peek() == '#' {
		line.Advance(1)
		token.SkipWhitespace(line)
		comment = strings.TrimRight(line.Rest(), " \t")
		line.SeekEnd()
	}

	names := make([]string, 0, len(groups))
	for _, g := range groups {
		names = append(names, g.Name)
	}

	a, ok := st.Aliases[key]
	if !ok {
		a = &Alias{Name: key}
		st.Aliases[key] = a
		st.aliasOrder = append(st.aliasOrder, key)
	}
	a.Addresses = al
	a.Groups = names
	a.Comment = comment
	return Success
}

func cmdUnalias(st *State, cmd *Command, line, err *buffer.Buffer) Result {
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
		var groups []*Group
		if !st.parseGroupList(&groups, tok, line, err) {
			return Error
		}

		if tok.String() == "*" {
			if len(groups) == 0 {
				st.Aliases = make(map[string]*Alias)
				st.aliasOrder = nil
				continue
			}
			for _, g := range groups {
				for key, a := range st.Aliases {
					for _, gn := range a.Groups {
						if gn == g.Name {
							st.aliasDelete(key)
							break
						}
					}
				}
			}
			continue
		}
		st.aliasDelete(tok.String())
	}
	return Success
}

func (st *State) aliasDelete(key string) {
	if _, ok := st.Aliases[key]; !ok {
		return
	}
	delete(st.Aliases, key)
	for i, k := range st.aliasOrder {
		if k == key {
			st.aliasOrder = append(st.aliasOrder[:i], st.aliasOrder[i+1:]...)
			break
		}
	}
}

// AliasNames returns alias keys in definition order.
func (st *State) AliasNames() []string {
	names := make([]string, len(st.aliasOrder))
	copy(names, st.aliasOrder)
	return names
}

func cmdScore(st *State, cmd *Command, line, err *buffer.Buffer) Result {
	if !token.MoreArgs(line) {
		return tooFewArgs(err, cmd.Name)
	}
	pat := buffer.Get()
	val := buffer.Get()
	defer buffer.Release(pat)
	defer buffer.Release(val)

	if e := st.extract(pat, line, token.NoFlags); e != nil {
		err.Printf("%s", e.Error())
		return Error
	}
	if !token.MoreArgs(line) {
		return tooFewArgs(err, cmd.Name)
	}
	if e := st.extract(val, line, token.NoFlags); e != nil {
		err.Printf("%s", e.Error())
		return Error
	}

	text := val.String()
	exact := strings.HasPrefix(text, "=")
	text = strings.TrimPrefix(text, "=")
	n, e := strconv.Atoi(text)
	if e != nil {
		err.Printf("Error: score: invalid number")
		return Error
	}

	for i := range st.Scores {
		if st.Scores[i].Pattern == pat.String() {
			st.Scores[i].Value = n
			st.Scores[i].Exact = exact
			return Success
		}
	}
	st.Scores = append(st.Scores, Score{Pattern: pat.String(), Value: n, Exact: exact})
	return Success
}

func cmdUnscore(st *State, cmd *Command, line, err *buffer.Buffer) Result {
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
			st.Scores = nil
			continue
		}
		for i := range st.Scores {
			if st.Scores[i].Pattern == tok.String() {
				st.Scores = append(st.Scores[:i], st.Scores[i+1:]...)
				break
			}
		}
	}
	return Success
}

// cmdTagFormats registers expando tags: "tag-formats <tag> <format>".
// The map is keyed by format so each format resolves to one tag.
func cmdTagFormats(st *State, cmd *Command, line, err *buffer.Buffer) Result {
	if !token.MoreArgs(line) {
		return tooFewArgs(err, cmd.Name)
	}
	tag := buffer.Get()
	format := buffer.Get()
	defer buffer.Release(tag)
	defer buffer.Release(format)

	for token.MoreArgs(line) {
		if e := st.extract(tag, line, token.NoFlags); e != nil {
			err.Printf("%s", e.Error())
			return Error
		}
		if !token.MoreArgs(line) {
			return tooFewArgs(err, cmd.Name)
		}
		if e := st.extract(format, line, token.NoFlags); e != nil {
			err.Printf("%s", e.Error())
			return Error
		}
		if tag.IsEmpty() || format.IsEmpty() {
			continue
		}
		if have, ok := st.TagFormats[format.String()]; ok {
			err.Printf("tag format '%s' already registered as '%s'", format.String(), have)
			return Warning
		}
		st.TagFormats[format.String()] = tag.String()
	}
	return Success
}

// cmdTagTransforms maps tags to their display replacement.
func cmdTagTransforms(st *State, cmd *Command, line, err *buffer.Buffer) Result {
	if !token.MoreArgs(line) {
		return tooFewArgs(err, cmd.Name)
	}
	tag := buffer.Get()
	transform := buffer.Get()
	defer buffer.Release(tag)
	defer buffer.Release(transform)

	for token.MoreArgs(line) {
		if e := st.extract(tag, line, token.NoFlags); e != nil {
			err.Printf("%s", e.Error())
			return Error
		}
		if !token.MoreArgs(line) {
			return tooFewArgs(err, cmd.Name)
		}
		if e := st.extract(transform, line, token.NoFlags); e != nil {
			err.Printf("%s", e.Error())
			return Error
		}
		if tag.IsEmpty() || transform.IsEmpty() {
			continue
		}
		if have, ok := st.TagTransforms[tag.String()]; ok {
			err.Printf("tag transform '%s' already registered as '%s'", tag.String(), have)
			return Warning
		}
		st.TagTransforms[tag.String()] = transform.String()
	}
	return Success
}

// cmdSubscribeTo handles subscribe-to and unsubscribe-from; cmd.Data is
// true for the subscribing form. Without a configured backend the intent
// is recorded for later replay.
func cmdSubscribeTo(st *State, cmd *Command, line, err *buffer.Buffer) Result {
	subscribe := cmd.Data.(bool)
	if !token.MoreArgs(line) {
		return tooFewArgs(err, cmd.Name)
	}
	tok := buffer.Get()
	defer buffer.Release(tok)
	if e := st.extract(tok, line, token.NoFlags); e != nil {
		err.Printf("%s", e.Error())
		return Error
	}
	if token.MoreArgs(line) {
		err.Printf("%s: too many arguments", cmd.Name)
		return Error
	}
	path := st.expandPath(tok.String())
	if path == "" {
		return tooFewArgs(err, cmd.Name)
	}

	if st.Backend == nil {
		if subscribe {
			addToList(&st.PendingSubscriptions, path)
		} else {
			removeFromList(&st.PendingSubscriptions, path)
		}
		return Success
	}

	ctx, cancel := context.WithTimeout(context.Background(), st.BackendTimeout)
	defer cancel()
	var e error
	if subscribe {
		e = st.Backend.Subscribe(ctx, path)
	} else {
		e = st.Backend.Unsubscribe(ctx, path)
	}
	if e != nil {
		if subscribe {
			err.Printf("Could not subscribe to %s", path)
		} else {
			err.Printf("Could not unsubscribe from %s", path)
		}
		return Error
	}
	if subscribe {
		st.message("Subscribed to %s", path)
	} else {
		st.message("Unsubscribed from %s", path)
	}
	return Success
}

// attachList resolves an attachments category ("{+|-}disposition",
// abbreviations allowed) to its rule list.
func (st *State) attachList(category string) (*[]*AttachMatch, byte, bool) {
	op := byte('+')
	if category != "" && (category[0] == '+' || category[0] == '-') {
		op = category[0]
		category = category[1:]
	}
	lc := strings.ToLower(category)
	switch {
	case lc != "" && strings.HasPrefix("attachment", lc):
		if op == '+' {
			return &st.AttachAllow, op, true
		}
		return &st.AttachExclude, op, true
	case lc != "" && strings.HasPrefix("inline", lc):
		if op == '+' {
			return &st.InlineAllow, op, true
		}
		return &st.InlineExclude, op, true
	}
	return nil, op, false
}

func newAttachMatch(spec string) (*AttachMatch, error) {
	if strings.EqualFold(spec, "any") {
		spec = "*/.*"
	} else if strings.EqualFold(spec, "none") {
		spec = "cheap_hack/this_should_never_match"
	}

	major, minor, found := strings.Cut(spec, "/")
	if !found || minor == "" {
		minor = "*"
	}
	pattern := minor
	if pattern == "*" {
		pattern = ".*"
	}
	rx, err := regexp.Compile("(?i)^" + pattern + "$")
	if err != nil {
		return nil, err
	}
	return &AttachMatch{Major: major, Minor: minor, minorRx: rx}, nil
}

func (st *State) printAttachLists() {
	print := func(list []*AttachMatch, op byte, name string) {
		for _, a := range list {
			st.message("attachments %c%s %s/%s", op, name, a.Major, a.Minor)
		}
	}
	print(st.AttachAllow, '+', "A")
	print(st.AttachExclude, '-', "A")
	print(st.InlineAllow, '+', "I")
	print(st.InlineExclude, '-', "I")
}

func cmdAttachments(st *State, cmd *Command, line, err *buffer.Buffer) Result {
	tok := buffer.Get()
	defer buffer.Release(tok)
	if e := st.extract(tok, line, token.NoFlags); e != nil {
		err.Printf("%s", e.Error())
		return Error
	}
	category := tok.String()
	if category == "" {
		err.Printf("attachments: no disposition")
		return Warning
	}
	if category == "?" {
		st.printAttachLists()
		return Success
	}

	list, _, ok := st.attachList(category)
	if !ok {
		err.Printf("attachments: invalid disposition")
		return Error
	}

	if !token.MoreArgs(line) {
		return tooFewArgs(err, cmd.Name)
	}
	for token.MoreArgs(line) {
		if e := st.extract(tok, line, token.NoFlags); e != nil {
			err.Printf("%s", e.Error())
			return Error
		}
		if tok.IsEmpty() {
			continue
		}
		a, e := newAttachMatch(tok.String())
		if e != nil {
			err.Printf("%s", e.Error())
			return Error
		}
		dup := false
		for _, have := range *list {
			if strings.EqualFold(have.Major, a.Major) && strings.EqualFold(have.Minor, a.Minor) {
				dup = true
				break
			}
		}
		if !dup {
			*list = append(*list, a)
		}
	}
	return Success
}

func cmdUnattachments(st *State, cmd *Command, line, err *buffer.Buffer) Result {
	tok := buffer.Get()
	defer buffer.Release(tok)
	if e := st.extract(tok, line, token.NoFlags); e != nil {
		err.Printf("%s", e.Error())
		return Error
	}
	category := tok.String()
	if category == "" {
		err.Printf("unattachments: no disposition")
		return Warning
	}
	if category == "*" {
		st.AttachAllow = nil
		st.AttachExclude = nil
		st.InlineAllow = nil
		st.InlineExclude = nil
		return Success
	}

	list, _, ok := st.attachList(category)
	if !ok {
		err.Printf("unattachments: invalid disposition")
		return Error
	}

	if !token.MoreArgs(line) {
		return tooFewArgs(err, cmd.Name)
	}
	for token.MoreArgs(line) {
		if e := st.extract(tok, line, token.NoFlags); e != nil {
			err.Printf("%s", e.Error())
			return Error
		}
		a, e := newAttachMatch(tok.String())
		if e != nil {
			err.Printf("%s", e.Error())
			return Error
		}
		kept := (*list)[:0]
		for _, have := range *list {
			if strings.EqualFold(have.Major, a.Major) && strings.EqualFold(have.Minor, a.Minor) {
				continue
			}
			kept = append(kept, have)
		}
		*list = kept
	}
	return Success
}
