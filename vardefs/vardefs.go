// Package vardefs declares the default variable table the command-line
// tools register before interpreting rc files. It covers the variables
// the parsing and rendering engines consult, plus the common mail
// settings users expect an rc file to accept.
package vardefs

import (
	"github.com/neomutt/neomutt-sub017/expando"
	"github.com/neomutt/neomutt-sub017/vars"
)

// Expando domains and item identifiers for the index format line.
const (
	DidIndex = iota + 1
	DidEnvelope
)

const (
	UidIndexNumber = iota + 1
	UidIndexFlags
	UidIndexDate
	UidIndexAuthor
	UidIndexLines
	UidIndexBytes
	UidIndexSubject
	UidIndexList
)

// IndexDefs are the directives %C %Z %[ %{ %L %l %c %s understood by
// the index format.
var IndexDefs = []expando.Definition{
	{ShortName: "C", DID: DidIndex, UID: UidIndexNumber},
	{ShortName: "Z", DID: DidIndex, UID: UidIndexFlags},
	{ShortName: "[", DID: DidIndex, UID: UidIndexDate, Parse: expando.DateParser()},
	{ShortName: "{", DID: DidIndex, UID: UidIndexDate, Parse: expando.DateParser()},
	{ShortName: "L", DID: DidIndex, UID: UidIndexList},
	{ShortName: "l", DID: DidIndex, UID: UidIndexLines},
	{ShortName: "c", DID: DidIndex, UID: UidIndexBytes},
	{ShortName: "s", DID: DidIndex, UID: UidIndexSubject},
	{ShortName: "a", DID: DidEnvelope, UID: UidIndexAuthor},
	{ShortName: "n", DID: DidEnvelope, UID: UidIndexAuthor},
}

// sortIndex maps the sort-key names accepted by $sort and $sort_aux.
var sortIndex = map[string]int{
	"date":          1,
	"date-received": 2,
	"from":          3,
	"size":          4,
	"spam":          5,
	"subject":       6,
	"threads":       7,
	"to":            8,
	"score":         9,
	"label":         10,
	"unsorted":      11,
}

var sortAlias = map[string]int{
	"alias":    1,
	"address":  2,
	"unsorted": 3,
}

// Defaults returns the variable definitions in registration order.
func Defaults() []vars.Definition {
	return []vars.Definition{
		// Booleans.
		{Name: "allow_8bit", Type: vars.TypeBool, Initial: "yes"},
		{Name: "arrow_cursor", Type: vars.TypeBool, Initial: "no"},
		{Name: "ascii_chars", Type: vars.TypeBool, Initial: "no"},
		{Name: "auto_tag", Type: vars.TypeBool, Initial: "no"},
		{Name: "beep", Type: vars.TypeBool, Initial: "yes"},
		{Name: "help", Type: vars.TypeBool, Initial: "yes"},
		{Name: "markers", Type: vars.TypeBool, Initial: "yes"},
		{Name: "rfc2047_parameters", Type: vars.TypeBool, Initial: "yes"},
		{Name: "use_from", Type: vars.TypeBool, Initial: "yes"},
		{Name: "user_agent", Type: vars.TypeBool, Initial: "no"},
		{Name: "weed", Type: vars.TypeBool, Initial: "yes"},

		// Quad-options.
		{Name: "abort_unmodified", Type: vars.TypeQuad, Initial: "yes"},
		{Name: "confirm_append", Type: vars.TypeQuad, Initial: "yes"},
		{Name: "copy", Type: vars.TypeQuad, Initial: "yes"},
		{Name: "delete", Type: vars.TypeQuad, Initial: "ask-yes"},
		{Name: "include", Type: vars.TypeQuad, Initial: "ask-yes"},
		{Name: "move", Type: vars.TypeQuad, Initial: "no"},
		{Name: "postpone", Type: vars.TypeQuad, Initial: "ask-yes"},
		{Name: "print", Type: vars.TypeQuad, Initial: "ask-no"},
		{Name: "quit", Type: vars.TypeQuad, Initial: "yes"},
		{Name: "recall", Type: vars.TypeQuad, Initial: "ask-yes"},

		// Numbers.
		{Name: "connect_timeout", Type: vars.TypeNumber, Initial: "30"},
		{Name: "history", Type: vars.TypeNumber, Initial: "10", Flags: vars.NotNegative},
		{Name: "mail_check", Type: vars.TypeNumber, Initial: "5", Flags: vars.NotNegative},
		{Name: "read_inc", Type: vars.TypeNumber, Initial: "10", Flags: vars.NotNegative},
		{Name: "sleep_time", Type: vars.TypeNumber, Initial: "1", Flags: vars.NotNegative},
		{Name: "timeout", Type: vars.TypeNumber, Initial: "600"},
		{Name: "wrap", Type: vars.TypeNumber, Initial: "0"},
		{Name: "imap_fetch_chunk_size", Type: vars.TypeLong, Initial: "0",
			Flags: vars.NotNegative},

		// Strings.
		{Name: "charset", Type: vars.TypeString, Initial: "utf-8",
			Flags: vars.NotEmpty, Validator: vars.CharsetValidator},
		{Name: "config_charset", Type: vars.TypeString, Initial: "",
			Validator: vars.CharsetValidator},
		{Name: "date_format", Type: vars.TypeString, Initial: "!%a, %b %d, %Y at %I:%M:%S%p %Z"},
		{Name: "hostname", Type: vars.TypeString, Initial: ""},
		{Name: "real_name", Type: vars.TypeString, Initial: ""},
		{Name: "spam_separator", Type: vars.TypeString, Initial: ","},

		// String lists.
		{Name: "assumed_charset", Type: vars.TypeSlist, Initial: "",
			Validator: vars.CharsetValidator},
		{Name: "send_charset", Type: vars.TypeSlist, Initial: "us-ascii:iso-8859-1:utf-8",
			Validator: vars.CharsetValidator},

		// Paths and mailboxes.
		{Name: "folder", Type: vars.TypeMailbox, Initial: "~/Mail"},
		{Name: "mbox", Type: vars.TypeMailbox, Initial: "~/mbox"},
		{Name: "postponed", Type: vars.TypeMailbox, Initial: "~/postponed"},
		{Name: "record", Type: vars.TypeMailbox, Initial: "~/sent"},
		{Name: "spool_file", Type: vars.TypeMailbox, Initial: ""},
		{Name: "signature", Type: vars.TypePath, Initial: "~/.signature",
			Flags: vars.PathFile},
		{Name: "tmp_dir", Type: vars.TypePath, Initial: "/tmp",
			Flags: vars.PathDir | vars.NotEmpty},

		// Commands.
		{Name: "editor", Type: vars.TypeCommand, Initial: "vi",
			Validator: vars.CommandValidator},
		{Name: "sendmail", Type: vars.TypeCommand, Initial: "/usr/sbin/sendmail -oem -oi",
			Validator: vars.CommandValidator},
		{Name: "shell", Type: vars.TypeCommand, Initial: "/bin/sh",
			Validator: vars.CommandValidator},
		{Name: "query_command", Type: vars.TypeCommand, Initial: ""},

		// Regular expressions.
		{Name: "gecos_mask", Type: vars.TypeRegex, Initial: "^[^,]*"},
		{Name: "quote_regex", Type: vars.TypeRegex, Initial: "^([ \t]*[|>:}#])+"},
		{Name: "reply_regex", Type: vars.TypeRegex,
			Initial: "^((re|aw|sv)(\\[[0-9]+\\])*:[ \t]*)*"},

		// Addresses and multibyte tables.
		{Name: "envelope_from_address", Type: vars.TypeAddress, Initial: ""},
		{Name: "from", Type: vars.TypeAddress, Initial: ""},
		{Name: "flag_chars", Type: vars.TypeMBTable, Initial: "*!DdrONon- "},
		{Name: "status_chars", Type: vars.TypeMBTable, Initial: "-*%A"},
		{Name: "to_chars", Type: vars.TypeMBTable, Initial: " +TCFLR"},

		// Sorts and enumerations.
		{Name: "sort", Type: vars.TypeSort, Initial: "date", SortChoices: sortIndex},
		{Name: "sort_aux", Type: vars.TypeSort, Initial: "date", SortChoices: sortIndex},
		{Name: "sort_alias", Type: vars.TypeSort, Initial: "alias", SortChoices: sortAlias},
		{Name: "mbox_type", Type: vars.TypeEnum, Initial: "mbox",
			Choices: []string{"mbox", "mmdf", "mh", "maildir"}},

		// Format strings.
		{Name: "index_format", Type: vars.TypeExpando,
			Initial:     "%4C %Z %{%b %d} %-15.15L (%?l?%4l&%4c?) %s",
			ExpandoDefs: IndexDefs},
		{Name: "attribution", Type: vars.TypeExpando,
			Initial:     "On %{%a, %b %d, %Y}, %a wrote:",
			ExpandoDefs: IndexDefs},

		// Synonyms kept for old rc files.
		{Name: "forw_format", Type: vars.TypeExpando, Synonym: "index_format"},
		{Name: "quote_regexp", Type: vars.TypeRegex, Synonym: "quote_regex"},
		{Name: "reply_regexp", Type: vars.TypeRegex, Synonym: "reply_regex"},
		{Name: "tmpdir", Type: vars.TypePath, Synonym: "tmp_dir"},
	}
}

// NewSet registers the defaults into a fresh variable registry.
func NewSet() (*vars.Set, error) {
	cs := vars.NewSet()
	if err := cs.Register(Defaults()); err != nil {
		return nil, err
	}
	return cs, nil
}
