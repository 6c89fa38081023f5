package rc

import (
	"sort"

	"github.com/neomutt/neomutt-sub017/buffer"
)

// CommandID identifies a command independent of its name.
type CommandID int

const (
	CmdNone CommandID = iota
	CmdAlias
	CmdAlternates
	CmdAlternativeOrder
	CmdAttachments
	CmdAutoView
	CmdCd
	CmdEcho
	CmdFinish
	CmdGroup
	CmdHdrOrder
	CmdIfdef
	CmdIfndef
	CmdIgnore
	CmdLists
	CmdMailboxes
	CmdMailtoAllow
	CmdMimeLookup
	CmdMyHdr
	CmdNamedMailboxes
	CmdNospam
	CmdReset
	CmdScore
	CmdSet
	CmdSetenv
	CmdSource
	CmdSpam
	CmdSubjectRx
	CmdSubscribe
	CmdSubscribeTo
	CmdTagFormats
	CmdTagTransforms
	CmdToggle
	CmdUnalias
	CmdUnalternates
	CmdUnalternativeOrder
	CmdUnattachments
	CmdUnautoView
	CmdUngroup
	CmdUnhdrOrder
	CmdUnignore
	CmdUnlists
	CmdUnmailboxes
	CmdUnmailtoAllow
	CmdUnmimeLookup
	CmdUnmyHdr
	CmdUnscore
	CmdUnset
	CmdUnsetenv
	CmdUnsubjectRx
	CmdUnsubscribe
	CmdUnsubscribeFrom
	CmdVersion
)

// ParseFunc runs one command. The line cursor sits after the command
// name; err carries messages for warnings, errors and query results.
type ParseFunc func(st *State, cmd *Command, line, err *buffer.Buffer) Result

// Command is one registry entry. A deprecated synonym has SynonymFor set
// and no Parse function of its own; lookup resolves it to the real entry.
type Command struct {
	Name       string
	ID         CommandID
	Parse      ParseFunc
	Data       any
	Help       string
	Usage      string
	DocsURL    string
	SynonymFor string
}

// listID names one of the plain FIFO string lists several commands share.
type listID int

const (
	listAlternativeOrder listID = iota
	listAutoView
	listHeaderOrder
	listMailToAllow
	listMimeLookup
)

// stringList maps a listID to its State slice.
func (st *State) stringList(id listID) *[]string {
	switch id {
	case listAlternativeOrder:
		return &st.AlternativeOrder
	case listAutoView:
		return &st.AutoView
	case listHeaderOrder:
		return &st.HeaderOrder
	case listMailToAllow:
		return &st.MailToAllow
	default:
		return &st.MimeLookup
	}
}

// setOp selects the behaviour of the shared set-family parser.
type setOp int

const (
	opSet setOp = iota
	opToggle
	opUnset
	opReset
)

var setOpNames = [...]string{"set", "toggle", "unset", "reset"}

// Register adds commands to the registry, keeping it sorted by name.
// Re-registering a name replaces the old entry.
func (st *State) Register(cmds []Command) {
	for i := range cmds {
		cmd := cmds[i]
		if old := st.findExact(cmd.Name); old != nil {
			*old = cmd
			continue
		}
		st.commands = append(st.commands, &cmd)
	}
	sort.Slice(st.commands, func(i, j int) bool {
		return st.commands[i].Name < st.commands[j].Name
	})
}

func (st *State) findExact(name string) *Command {
	i := sort.Search(len(st.commands), func(i int) bool {
		return st.commands[i].Name >= name
	})
	if i < len(st.commands) && st.commands[i].Name == name {
		return st.commands[i]
	}
	return nil
}

// LookupCommand resolves a command name, following deprecated synonyms.
func (st *State) LookupCommand(name string) *Command {
	cmd := st.findExact(name)
	if cmd != nil && cmd.SynonymFor != "" {
		cmd = st.findExact(cmd.SynonymFor)
	}
	return cmd
}

// CommandNames returns every registered name in sorted order.
func (st *State) CommandNames() []string {
	names := make([]string, len(st.commands))
	for i, cmd := range st.commands {
		names[i] = cmd.Name
	}
	return names
}

func (st *State) registerDefaults() {
	st.Register([]Command{
		{Name: "alias", ID: CmdAlias, Parse: cmdAlias,
			Help:    "Define an alias (name to email address)",
			Usage:   "alias [ -group <name> ... ] <key> <address> [, <address> ... ]",
			DocsURL: "configuration.html#alias"},
		{Name: "alternates", ID: CmdAlternates, Parse: cmdAlternates,
			Help:    "Define a list of alternate email addresses for the user",
			Usage:   "alternates [ -group <name> ... ] <regex> [ <regex> ... ]",
			DocsURL: "configuration.html#alternates"},
		{Name: "alternative_order", ID: CmdAlternativeOrder, Parse: cmdStringList, Data: listAlternativeOrder,
			Help:    "Set preference order for multipart alternatives",
			Usage:   "alternative_order <mime-type>[/<mime-subtype> ] [ ... ]",
			DocsURL: "mimesupport.html#alternative-order"},
		{Name: "attachments", ID: CmdAttachments, Parse: cmdAttachments,
			Help:    "Set attachment counting rules",
			Usage:   "attachments { + | - }<disposition> <mime-type> [ <mime-type> ... ] | ?",
			DocsURL: "mimesupport.html#attachments"},
		{Name: "auto_view", ID: CmdAutoView, Parse: cmdStringList, Data: listAutoView,
			Help:    "Automatically display specified MIME types inline",
			Usage:   "auto_view <mime-type>[/<mime-subtype> ] [ ... ]",
			DocsURL: "mimesupport.html#auto-view"},
		{Name: "cd", ID: CmdCd, Parse: cmdCd,
			Help:    "Change the current working directory",
			Usage:   "cd [ <directory> ]",
			DocsURL: "configuration.html#cd"},
		{Name: "echo", ID: CmdEcho, Parse: cmdEcho,
			Help:    "Print a message",
			Usage:   "echo <message>",
			DocsURL: "advancedusage.html#echo"},
		{Name: "finish", ID: CmdFinish, Parse: cmdFinish,
			Help:    "Stop reading current config file",
			Usage:   "finish",
			DocsURL: "optionalfeatures.html#ifdef"},
		{Name: "group", ID: CmdGroup, Parse: cmdGroup, Data: CmdGroup,
			Help:    "Add addresses to an address group",
			Usage:   "group [ -group <name> ... ] { -rx <regex> ... | -addr <address> ... }",
			DocsURL: "configuration.html#addrgroup"},
		{Name: "hdr_order", ID: CmdHdrOrder, Parse: cmdStringList, Data: listHeaderOrder,
			Help:    "Define custom order of headers displayed",
			Usage:   "hdr_order <header> [ <header> ... ]",
			DocsURL: "configuration.html#hdr-order"},
		{Name: "ifdef", ID: CmdIfdef, Parse: cmdIfdef, Data: false,
			Help:    "Conditionally include config commands if symbol defined",
			Usage:   "ifdef <symbol> '<config-command> [ <args> ... ]'",
			DocsURL: "optionalfeatures.html#ifdef"},
		{Name: "ifndef", ID: CmdIfndef, Parse: cmdIfdef, Data: true,
			Help:    "Conditionally include if symbol is not defined",
			Usage:   "ifndef <symbol> '<config-command> [ <args> ... ]'",
			DocsURL: "optionalfeatures.html#ifdef"},
		{Name: "ignore", ID: CmdIgnore, Parse: cmdIgnore,
			Help:    "Hide specified headers when displaying messages",
			Usage:   "ignore { * | <string> ... }",
			DocsURL: "configuration.html#ignore"},
		{Name: "lists", ID: CmdLists, Parse: cmdLists,
			Help:    "Add address to the list of mailing lists",
			Usage:   "lists [ -group <name> ... ] <regex> [ <regex> ... ]",
			DocsURL: "configuration.html#lists"},
		{Name: "mailboxes", ID: CmdMailboxes, Parse: cmdMailboxes,
			Help:    "Define a list of mailboxes to watch",
			Usage:   "mailboxes [[ -label <label> ] | -nolabel ] [[ -notify | -nonotify ] [ -poll | -nopoll ] <mailbox> ] [ ... ]",
			DocsURL: "configuration.html#mailboxes"},
		{Name: "mailto_allow", ID: CmdMailtoAllow, Parse: cmdStringList, Data: listMailToAllow,
			Help:    "Permit specific header-fields in mailto URL processing",
			Usage:   "mailto_allow { * | <header-field> ... }",
			DocsURL: "configuration.html#mailto-allow"},
		{Name: "mime_lookup", ID: CmdMimeLookup, Parse: cmdStringList, Data: listMimeLookup,
			Help:    "Map specified MIME types/subtypes to display handlers",
			Usage:   "mime_lookup <mime-type>[/<mime-subtype> ] [ ... ]",
			DocsURL: "mimesupport.html#mime-lookup"},
		{Name: "my_hdr", ID: CmdMyHdr, Parse: cmdMyHdr,
			Help:    "Add a custom header to outgoing messages",
			Usage:   "my_hdr <string>",
			DocsURL: "configuration.html#my-hdr"},
		{Name: "named-mailboxes", ID: CmdNamedMailboxes, Parse: cmdMailboxes,
			Help:    "Define a list of labelled mailboxes to watch",
			Usage:   "named-mailboxes <description> <mailbox> [ <description> <mailbox> ... ]",
			DocsURL: "configuration.html#mailboxes"},
		{Name: "nospam", ID: CmdNospam, Parse: cmdSpam, Data: CmdNospam,
			Help:    "Remove a spam detection rule",
			Usage:   "nospam { * | <regex> }",
			DocsURL: "configuration.html#spam"},
		{Name: "reset", ID: CmdReset, Parse: cmdSet, Data: opReset,
			Help:    "Reset a config option to its initial value",
			Usage:   "reset <variable> [ <variable> ... ]",
			DocsURL: "configuration.html#set"},
		{Name: "score", ID: CmdScore, Parse: cmdScore,
			Help:    "Set a score value on emails matching a pattern",
			Usage:   "score <pattern> <value>",
			DocsURL: "configuration.html#score-command"},
		{Name: "set", ID: CmdSet, Parse: cmdSet, Data: opSet,
			Help:    "Set a config variable",
			Usage:   "set { [ no | inv | & ] <variable> [?] | <variable> [=|+=|-=] value } [ ... ]",
			DocsURL: "configuration.html#set"},
		{Name: "setenv", ID: CmdSetenv, Parse: cmdSetenv, Data: false,
			Help:    "Set an environment variable",
			Usage:   "setenv { <variable>? | <variable> <value> }",
			DocsURL: "advancedusage.html#setenv"},
		{Name: "source", ID: CmdSource, Parse: cmdSource,
			Help:    "Read and execute commands from a config file",
			Usage:   "source <filename>",
			DocsURL: "configuration.html#source"},
		{Name: "spam", ID: CmdSpam, Parse: cmdSpam, Data: CmdSpam,
			Help:    "Define rules to parse spam detection headers",
			Usage:   "spam <regex> <format>",
			DocsURL: "configuration.html#spam"},
		{Name: "subjectrx", ID: CmdSubjectRx, Parse: cmdSubjectRx,
			Help:    "Apply regex-based rewriting to message subjects",
			Usage:   "subjectrx <regex> <replacement>",
			DocsURL: "advancedusage.html#display-munging"},
		{Name: "subscribe", ID: CmdSubscribe, Parse: cmdSubscribe,
			Help:    "Add address to the list of subscribed mailing lists",
			Usage:   "subscribe [ -group <name> ... ] <regex> [ <regex> ... ]",
			DocsURL: "configuration.html#lists"},
		{Name: "subscribe-to", ID: CmdSubscribeTo, Parse: cmdSubscribeTo, Data: true,
			Help:    "Subscribe to a mailbox on the configured backend",
			Usage:   "subscribe-to <mailbox>",
			DocsURL: "configuration.html#subscribe-to"},
		{Name: "tag-formats", ID: CmdTagFormats, Parse: cmdTagFormats,
			Help:    "Define expando tags",
			Usage:   "tag-formats <tag> <format-string> { tag format-string ... }",
			DocsURL: "optionalfeatures.html#custom-tags"},
		{Name: "tag-transforms", ID: CmdTagTransforms, Parse: cmdTagTransforms,
			Help:    "Rules to transform tags into icons",
			Usage:   "tag-transforms <tag> <transformed-string> { tag transformed-string ... }",
			DocsURL: "optionalfeatures.html#custom-tags"},
		{Name: "toggle", ID: CmdToggle, Parse: cmdSet, Data: opToggle,
			Help:    "Toggle the value of a boolean/quad config option",
			Usage:   "toggle <variable> [ <variable> ... ]",
			DocsURL: "configuration.html#set"},
		{Name: "unalias", ID: CmdUnalias, Parse: cmdUnalias,
			Help:    "Remove an alias definition",
			Usage:   "unalias [ -group <name> ... ] { * | <key> ... }",
			DocsURL: "configuration.html#alias"},
		{Name: "unalternates", ID: CmdUnalternates, Parse: cmdUnalternates,
			Help:    "Remove addresses from `alternates` list",
			Usage:   "unalternates [ -group <name> ... ] { * | <regex> ... }",
			DocsURL: "configuration.html#alternates"},
		{Name: "unalternative_order", ID: CmdUnalternativeOrder, Parse: cmdUnstringList, Data: listAlternativeOrder,
			Help:    "Remove MIME types from preference order",
			Usage:   "unalternative_order { * | [ <mime-type>[/<mime-subtype> ] ... ] }",
			DocsURL: "mimesupport.html#alternative-order"},
		{Name: "unattachments", ID: CmdUnattachments, Parse: cmdUnattachments,
			Help:    "Remove attachment counting rules",
			Usage:   "unattachments { * | { + | - }<disposition> <mime-type> [ <mime-type> ... ] }",
			DocsURL: "mimesupport.html#attachments"},
		{Name: "unauto_view", ID: CmdUnautoView, Parse: cmdUnstringList, Data: listAutoView,
			Help:    "Remove MIME types from `auto_view` list",
			Usage:   "unauto_view { * | [ <mime-type>[/<mime-subtype> ] ... ] }",
			DocsURL: "mimesupport.html#auto-view"},
		{Name: "ungroup", ID: CmdUngroup, Parse: cmdGroup, Data: CmdUngroup,
			Help:    "Remove addresses from an address `group`",
			Usage:   "ungroup [ -group <name> ... ] { * | -rx <regex> ... | -addr <address> ... }",
			DocsURL: "configuration.html#addrgroup"},
		{Name: "unhdr_order", ID: CmdUnhdrOrder, Parse: cmdUnstringList, Data: listHeaderOrder,
			Help:    "Remove header from `hdr_order` list",
			Usage:   "unhdr_order { * | <header> ... }",
			DocsURL: "configuration.html#hdr-order"},
		{Name: "unignore", ID: CmdUnignore, Parse: cmdUnignore,
			Help:    "Unhide headers hidden with `ignore`",
			Usage:   "unignore { * | <string> ... }",
			DocsURL: "configuration.html#ignore"},
		{Name: "unlists", ID: CmdUnlists, Parse: cmdUnlists,
			Help:    "Remove address from the list of mailing lists",
			Usage:   "unlists [ -group <name> ... ] { * | <regex> ... }",
			DocsURL: "configuration.html#lists"},
		{Name: "unmailboxes", ID: CmdUnmailboxes, Parse: cmdUnmailboxes,
			Help:    "Remove mailboxes from the watch list",
			Usage:   "unmailboxes { * | <mailbox> ... }",
			DocsURL: "configuration.html#mailboxes"},
		{Name: "unmailto_allow", ID: CmdUnmailtoAllow, Parse: cmdUnstringList, Data: listMailToAllow,
			Help:    "Disallow header-fields in mailto processing",
			Usage:   "unmailto_allow { * | <header-field> ... }",
			DocsURL: "configuration.html#mailto-allow"},
		{Name: "unmime_lookup", ID: CmdUnmimeLookup, Parse: cmdUnstringList, Data: listMimeLookup,
			Help:    "Remove custom MIME-type handlers",
			Usage:   "unmime_lookup { * | [ <mime-type>[/<mime-subtype> ] ... ] }",
			DocsURL: "mimesupport.html#mime-lookup"},
		{Name: "unmy_hdr", ID: CmdUnmyHdr, Parse: cmdUnmyHdr,
			Help:    "Remove a header previously added with `my_hdr`",
			Usage:   "unmy_hdr { * | <field> ... }",
			DocsURL: "configuration.html#my-hdr"},
		{Name: "unscore", ID: CmdUnscore, Parse: cmdUnscore,
			Help:    "Remove scoring rules for matching patterns",
			Usage:   "unscore { * | <pattern> ... }",
			DocsURL: "configuration.html#score-command"},
		{Name: "unset", ID: CmdUnset, Parse: cmdSet, Data: opUnset,
			Help:    "Reset a config option to false/empty",
			Usage:   "unset <variable> [ <variable> ... ]",
			DocsURL: "configuration.html#set"},
		{Name: "unsetenv", ID: CmdUnsetenv, Parse: cmdSetenv, Data: true,
			Help:    "Unset an environment variable",
			Usage:   "unsetenv <variable>",
			DocsURL: "advancedusage.html#setenv"},
		{Name: "unsubjectrx", ID: CmdUnsubjectRx, Parse: cmdUnsubjectRx,
			Help:    "Remove subject-rewriting rules",
			Usage:   "unsubjectrx { * | <regex> }",
			DocsURL: "advancedusage.html#display-munging"},
		{Name: "unsubscribe", ID: CmdUnsubscribe, Parse: cmdUnsubscribe,
			Help:    "Remove address from the list of subscribed mailing lists",
			Usage:   "unsubscribe [ -group <name> ... ] { * | <regex> ... }",
			DocsURL: "configuration.html#lists"},
		{Name: "unsubscribe-from", ID: CmdUnsubscribeFrom, Parse: cmdSubscribeTo, Data: false,
			Help:    "Unsubscribe from a mailbox on the configured backend",
			Usage:   "unsubscribe-from <mailbox>",
			DocsURL: "configuration.html#unsubscribe-from"},
		{Name: "version", ID: CmdVersion, Parse: cmdVersion,
			Help:    "Show version and build information",
			Usage:   "version",
			DocsURL: "configuration.html#version"},

		// Deprecated hyphenated spellings kept as synonyms.
		{Name: "alternative-order", SynonymFor: "alternative_order"},
		{Name: "auto-view", SynonymFor: "auto_view"},
		{Name: "header-order", SynonymFor: "hdr_order"},
		{Name: "mailto-allow", SynonymFor: "mailto_allow"},
		{Name: "mime-lookup", SynonymFor: "mime_lookup"},
		{Name: "my_header", SynonymFor: "my_hdr"},
		{Name: "unmy_header", SynonymFor: "unmy_hdr"},
	})
}
