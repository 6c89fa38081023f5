package rc

import (
	"bytes"
	"context"
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neomutt/neomutt-sub017/vars"
)

func testState(t *testing.T) *State {
	t.Helper()
	cs := vars.NewSet()
	err := cs.Register([]vars.Definition{
		{Name: "allow_8bit", Type: vars.TypeBool, Initial: "yes"},
		{Name: "beep", Type: vars.TypeBool, Initial: "no"},
		{Name: "delete", Type: vars.TypeQuad, Initial: "ask-yes"},
		{Name: "history", Type: vars.TypeNumber, Initial: "10", Flags: vars.NotNegative},
		{Name: "size_limit", Type: vars.TypeLong, Initial: "2048"},
		{Name: "attribution", Type: vars.TypeString, Initial: "On %d, %n wrote:"},
		{Name: "charset", Type: vars.TypeString, Initial: "utf-8"},
		{Name: "config_charset", Type: vars.TypeString, Initial: ""},
		{Name: "folder", Type: vars.TypeMailbox, Initial: "/var/mail"},
		{Name: "record", Type: vars.TypeMailbox, Initial: ""},
		{Name: "quiet", Type: vars.TypeBool, Synonym: "beep"},
	})
	require.NoError(t, err)

	st := NewState(cs.Global())
	st.Out = io.Discard
	return st
}

// run asserts the line succeeds.
func run(t *testing.T, st *State, line string) {
	t.Helper()
	res, msg := st.RunLine(line)
	require.Equal(t, Success, res, "line %q: %s", line, msg)
}

func TestUnknownCommand(t *testing.T) {
	st := testState(t)
	res, msg := st.RunLine("bogus whatever")
	assert.Equal(t, Error, res)
	assert.Equal(t, "bogus: unknown command", msg)
}

func TestEmptyAndCommentLines(t *testing.T) {
	st := testState(t)
	for _, line := range []string{"", "   ", "# a comment", "  # indented comment", ";;;"} {
		res, msg := st.RunLine(line)
		assert.Equal(t, Success, res, "line %q: %s", line, msg)
	}
}

func TestSemicolonSeparatesCommands(t *testing.T) {
	st := testState(t)
	run(t, st, "set beep ; set history=20")
	assert.True(t, st.Vars.Bool("beep"))
	assert.Equal(t, 20, st.Vars.Number("history"))
}

func TestTrailingCommentStopsParsing(t *testing.T) {
	st := testState(t)
	run(t, st, "set beep # enable the bell")
	assert.True(t, st.Vars.Bool("beep"))
}

func TestStopsAtFirstFailure(t *testing.T) {
	st := testState(t)
	res, _ := st.RunLine("set xyzzy=1 ; set beep")
	assert.Equal(t, Error, res)
	assert.False(t, st.Vars.Bool("beep"), "commands after the failure must not run")
}

func TestHelpSuffix(t *testing.T) {
	st := testState(t)
	var out bytes.Buffer
	st.Out = &out

	run(t, st, "set? ignored args")
	assert.Contains(t, out.String(), "set:")
	assert.Contains(t, out.String(), "usage:")

	res, msg := st.RunLine("bogus?")
	assert.Equal(t, Error, res)
	assert.Equal(t, "bogus: unknown command", msg)
}

func TestCommandNamesSorted(t *testing.T) {
	st := testState(t)
	names := st.CommandNames()
	assert.Contains(t, names, "set")
	assert.Contains(t, names, "source")
	for i := 1; i < len(names); i++ {
		assert.Less(t, names[i-1], names[i])
	}
}

func TestIgnoreUnignore(t *testing.T) {
	st := testState(t)
	run(t, st, "ignore received content- x400")
	assert.Equal(t, []string{"received", "content-", "x400"}, st.Ignore)

	run(t, st, "unignore content-")
	assert.Equal(t, []string{"received", "x400"}, st.Ignore)
	assert.Equal(t, []string{"content-"}, st.UnIgnore)

	// "*" clears ignored fields but is never remembered itself.
	run(t, st, "unignore *")
	assert.Empty(t, st.Ignore)
	assert.Equal(t, []string{"content-"}, st.UnIgnore)
}

func TestStringListCommands(t *testing.T) {
	st := testState(t)
	run(t, st, "auto_view text/html application/pdf")
	assert.Equal(t, []string{"text/html", "application/pdf"}, st.AutoView)

	// Duplicates are ignored case-insensitively.
	run(t, st, "auto_view TEXT/HTML")
	assert.Len(t, st.AutoView, 2)

	run(t, st, "unauto_view text/html")
	assert.Equal(t, []string{"application/pdf"}, st.AutoView)

	run(t, st, "unauto_view *")
	assert.Empty(t, st.AutoView)

	run(t, st, "hdr_order From: Date: To: Subject:")
	assert.Len(t, st.HeaderOrder, 4)

	res, msg := st.RunLine("alternative_order")
	assert.Equal(t, Warning, res)
	assert.Equal(t, "alternative_order: too few arguments", msg)
}

func TestCommandSynonyms(t *testing.T) {
	st := testState(t)
	run(t, st, "auto-view text/html")
	assert.Equal(t, []string{"text/html"}, st.AutoView)

	run(t, st, "header-order Date:")
	assert.Equal(t, []string{"Date:"}, st.HeaderOrder)
}

func TestListsAndUnlists(t *testing.T) {
	st := testState(t)
	run(t, st, "lists mutt-users@ neomutt-devel@")
	assert.Equal(t, 2, st.MailLists.Len())

	run(t, st, "unlists mutt-users@")
	assert.Equal(t, 1, st.MailLists.Len())
	assert.Equal(t, 1, st.UnMailLists.Len())

	run(t, st, "unlists *")
	assert.Equal(t, 0, st.MailLists.Len())
	assert.Equal(t, 1, st.UnMailLists.Len(), "'*' itself is not remembered")
}

func TestSubscribeCommand(t *testing.T) {
	st := testState(t)
	run(t, st, "subscribe neomutt-users@neomutt.org")
	assert.Equal(t, 1, st.MailLists.Len())
	assert.Equal(t, 1, st.SubscribedLists.Len())

	run(t, st, "unsubscribe neomutt-users@neomutt.org")
	assert.Equal(t, 0, st.SubscribedLists.Len())
	assert.Equal(t, 1, st.UnSubscribedLists.Len())
}

func TestAlternates(t *testing.T) {
	st := testState(t)
	run(t, st, "alternates me@example.com me@work.example.com")
	assert.Equal(t, 2, st.Alternates.Len())

	run(t, st, "unalternates me@example.com")
	assert.Equal(t, 1, st.Alternates.Len())
	assert.Equal(t, 1, st.UnAlternates.Len())
}

func TestSpamAndNospam(t *testing.T) {
	st := testState(t)
	run(t, st, `spam "X-Spam-Score: ([0-9.]+)" "score %1"`)
	assert.Equal(t, 1, st.SpamList.Len())

	// nospam removes a matching spam rule outright.
	run(t, st, `nospam "X-Spam-Score: ([0-9.]+)"`)
	assert.Equal(t, 0, st.SpamList.Len())
	assert.Equal(t, 0, st.NoSpamList.Len())

	// With no spam rule to remove, nospam records an exemption.
	run(t, st, `nospam "X-Bogosity:.*"`)
	assert.Equal(t, 1, st.NoSpamList.Len())

	run(t, st, `spam "X-Spam-Flag: YES" spam`)
	run(t, st, "nospam *")
	assert.Equal(t, 0, st.SpamList.Len())
	assert.Equal(t, 0, st.NoSpamList.Len())

	res, msg := st.RunLine("spam")
	assert.Equal(t, Warning, res)
	assert.Equal(t, "spam: no matching pattern", msg)
}

func TestSubjectRx(t *testing.T) {
	st := testState(t)
	run(t, st, `subjectrx "\\[mutt\\] *" ""`)
	assert.Equal(t, 1, st.SubjectRxList.Len())

	run(t, st, "unsubjectrx *")
	assert.Equal(t, 0, st.SubjectRxList.Len())
}

func TestGroupCommand(t *testing.T) {
	st := testState(t)
	run(t, st, "group -group work -addr alice@example.com bob@example.com")
	g := st.Groups["work"]
	require.NotNil(t, g)
	assert.Len(t, g.Addresses, 2)

	// Adding the same address again is a no-op.
	run(t, st, "group -group work -addr alice@example.com")
	assert.Len(t, g.Addresses, 2)

	run(t, st, "group -group friends -rx @friends\\.example\\.com$")
	assert.Equal(t, 1, st.Groups["friends"].Regexes.Len())

	run(t, st, "ungroup -group work -addr bob@example.com")
	assert.Len(t, st.Groups["work"].Addresses, 1)

	// Emptied groups disappear.
	run(t, st, "ungroup -group work *")
	assert.Nil(t, st.Groups["work"])

	res, msg := st.RunLine("group -group broken alice@example.com")
	assert.Equal(t, Warning, res)
	assert.Equal(t, "group: missing -rx or -addr", msg)

	res, msg = st.RunLine("ungroup -group friends bogus")
	assert.Equal(t, Warning, res)
	assert.Equal(t, "ungroup: missing -rx or -addr", msg)
}

func TestMailboxes(t *testing.T) {
	st := testState(t)
	run(t, st, "mailboxes +inbox +lists/neomutt")
	require.Len(t, st.Mailboxes, 2)
	assert.Equal(t, "/var/mail/inbox", st.Mailboxes[0].Path)
	assert.Equal(t, TBUnset, st.Mailboxes[0].Notify)

	run(t, st, `mailboxes -label "Main inbox" -notify -poll +inbox`)
	require.Len(t, st.Mailboxes, 2, "same path updates in place")
	assert.Equal(t, "Main inbox", st.Mailboxes[0].Label)
	assert.Equal(t, TBTrue, st.Mailboxes[0].Notify)
	assert.Equal(t, TBTrue, st.Mailboxes[0].Poll)

	run(t, st, "mailboxes -nopoll +inbox")
	assert.Equal(t, TBFalse, st.Mailboxes[0].Poll)
	assert.Equal(t, "Main inbox", st.Mailboxes[0].Label, "label survives updates")

	run(t, st, `named-mailboxes Archive +archive`)
	require.Len(t, st.Mailboxes, 3)
	assert.Equal(t, "Archive", st.Mailboxes[2].Label)
	assert.Equal(t, "/var/mail/archive", st.Mailboxes[2].Path)

	run(t, st, "unmailboxes +archive")
	assert.Len(t, st.Mailboxes, 2)

	run(t, st, "unmailboxes *")
	assert.Empty(t, st.Mailboxes)

	res, msg := st.RunLine("mailboxes")
	assert.Equal(t, Warning, res)
	assert.Equal(t, "mailboxes: too few arguments", msg)
}

func TestUnmailboxesByLabel(t *testing.T) {
	st := testState(t)
	run(t, st, `named-mailboxes Work +work`)
	run(t, st, "unmailboxes work")
	assert.Empty(t, st.Mailboxes)
}

func TestMyHdr(t *testing.T) {
	st := testState(t)
	run(t, st, `my_hdr X-Operating-System: OpenBSD`)
	assert.Equal(t, []string{"X-Operating-System: OpenBSD"}, st.UserHeader)

	// Same field replaces.
	run(t, st, `my_hdr X-Operating-System: Linux`)
	assert.Equal(t, []string{"X-Operating-System: Linux"}, st.UserHeader)

	run(t, st, `my_hdr Reply-To: me@example.com`)
	assert.Len(t, st.UserHeader, 2)

	run(t, st, "unmy_hdr reply-to")
	assert.Equal(t, []string{"X-Operating-System: Linux"}, st.UserHeader)

	run(t, st, "unmy_hdr *")
	assert.Empty(t, st.UserHeader)

	res, msg := st.RunLine("my_hdr NoColonHere")
	assert.Equal(t, Warning, res)
	assert.Equal(t, "invalid header field", msg)
}

func TestAlias(t *testing.T) {
	st := testState(t)
	run(t, st, "alias theduke John Wayne <john@example.com> # westerns")
	a := st.Aliases["theduke"]
	require.NotNil(t, a)
	require.Len(t, a.Addresses, 1)
	assert.Equal(t, "john@example.com", a.Addresses[0].Mailbox)
	assert.Equal(t, "westerns", a.Comment)

	// Redefinition replaces the addresses.
	run(t, st, "alias theduke duke@example.com")
	assert.Equal(t, "duke@example.com", st.Aliases["theduke"].Addresses[0].Mailbox)
	assert.Equal(t, []string{"theduke"}, st.AliasNames())

	run(t, st, "alias -group cast donna d@example.com")
	assert.Equal(t, []string{"cast"}, st.Aliases["donna"].Groups)

	run(t, st, "unalias -group cast *")
	assert.Nil(t, st.Aliases["donna"])
	assert.NotNil(t, st.Aliases["theduke"])

	run(t, st, "unalias *")
	assert.Empty(t, st.Aliases)

	res, msg := st.RunLine("alias nick")
	assert.Equal(t, Warning, res)
	assert.Equal(t, "alias: no address", msg)
}

func TestScore(t *testing.T) {
	st := testState(t)
	run(t, st, "score ~f^boss@ 50")
	require.Len(t, st.Scores, 1)
	assert.Equal(t, 50, st.Scores[0].Value)
	assert.False(t, st.Scores[0].Exact)

	run(t, st, "score ~f^boss@ =100")
	require.Len(t, st.Scores, 1, "same pattern updates in place")
	assert.Equal(t, 100, st.Scores[0].Value)
	assert.True(t, st.Scores[0].Exact)

	res, msg := st.RunLine("score ~A ten")
	assert.Equal(t, Error, res)
	assert.Equal(t, "Error: score: invalid number", msg)

	run(t, st, "unscore ~f^boss@")
	assert.Empty(t, st.Scores)
}

func TestTagFormats(t *testing.T) {
	st := testState(t)
	run(t, st, "tag-formats inbox GI flagged GF")
	assert.Equal(t, "inbox", st.TagFormats["GI"])
	assert.Equal(t, "flagged", st.TagFormats["GF"])

	res, msg := st.RunLine("tag-formats other GI")
	assert.Equal(t, Warning, res)
	assert.Equal(t, "tag format 'GI' already registered as 'inbox'", msg)
}

func TestTagTransforms(t *testing.T) {
	st := testState(t)
	run(t, st, "tag-transforms inbox i flagged !")
	assert.Equal(t, "i", st.TagTransforms["inbox"])

	res, _ := st.RunLine("tag-transforms inbox j")
	assert.Equal(t, Warning, res)
}

func TestAttachments(t *testing.T) {
	st := testState(t)
	run(t, st, "attachments +A image/* application/pgp-signature")
	require.Len(t, st.AttachAllow, 2)
	assert.Equal(t, "image", st.AttachAllow[0].Major)
	assert.True(t, st.AttachAllow[0].MatchesMinor("png"))

	run(t, st, "attachments -I text/calendar")
	assert.Len(t, st.InlineExclude, 1)

	// Duplicates are dropped.
	run(t, st, "attachments +A image/*")
	assert.Len(t, st.AttachAllow, 2)

	var out bytes.Buffer
	st.Out = &out
	run(t, st, "attachments ?")
	assert.Contains(t, out.String(), "attachments +A image/*")
	assert.Contains(t, out.String(), "attachments -I text/calendar")

	res, msg := st.RunLine("attachments +bogus text/plain")
	assert.Equal(t, Error, res)
	assert.Equal(t, "attachments: invalid disposition", msg)

	run(t, st, "unattachments +A image/*")
	assert.Len(t, st.AttachAllow, 1)

	run(t, st, "unattachments *")
	assert.Empty(t, st.AttachAllow)
	assert.Empty(t, st.InlineExclude)
}

func TestAttachmentsAnyNone(t *testing.T) {
	st := testState(t)
	run(t, st, "attachments +A any")
	require.Len(t, st.AttachAllow, 1)
	assert.Equal(t, "*", st.AttachAllow[0].Major)
	assert.True(t, st.AttachAllow[0].MatchesMinor("whatever"))

	run(t, st, "attachments -A none")
	require.Len(t, st.AttachExclude, 1)
	assert.False(t, st.AttachExclude[0].MatchesMinor("plain"))
}

func TestEcho(t *testing.T) {
	st := testState(t)
	var out bytes.Buffer
	st.Out = &out
	run(t, st, `echo "hello world"`)
	assert.Equal(t, "hello world\n", out.String())
}

func TestEchoExpandsVariables(t *testing.T) {
	st := testState(t)
	var out bytes.Buffer
	st.Out = &out
	run(t, st, "set my_name=world")
	run(t, st, `echo "hello $my_name"`)
	assert.Equal(t, "hello world\n", out.String())
}

func TestVersion(t *testing.T) {
	st := testState(t)
	res, msg := st.RunLine("version")
	assert.Equal(t, Success, res)
	assert.Equal(t, "neomutt-sub017", msg)

	res, msg = st.RunLine("version now")
	assert.Equal(t, Warning, res)
	assert.Equal(t, "version: too many arguments", msg)
}

func TestFinish(t *testing.T) {
	st := testState(t)
	res, _ := st.RunLine("finish")
	assert.Equal(t, Finish, res)

	res, msg := st.RunLine("finish now")
	assert.Equal(t, Warning, res)
	assert.Equal(t, "finish: too many arguments", msg)
}

func TestIfdef(t *testing.T) {
	st := testState(t)
	st.Features = []string{"imap", "hcache"}

	// Config variable.
	run(t, st, "ifdef beep set history=41")
	assert.Equal(t, 41, st.Vars.Number("history"))

	// Build feature.
	run(t, st, "ifdef imap set history=42")
	assert.Equal(t, 42, st.Vars.Number("history"))

	// Command name.
	run(t, st, "ifdef mailboxes set history=43")
	assert.Equal(t, 43, st.Vars.Number("history"))

	// Undefined symbol: rest of line skipped.
	run(t, st, "ifdef no_such_thing set history=99")
	assert.Equal(t, 43, st.Vars.Number("history"))

	run(t, st, "ifndef no_such_thing set history=44")
	assert.Equal(t, 44, st.Vars.Number("history"))

	run(t, st, "ifndef beep set history=99")
	assert.Equal(t, 44, st.Vars.Number("history"))

	// User variables count once set.
	run(t, st, "set my_flag=1")
	run(t, st, "ifdef my_flag set history=45")
	assert.Equal(t, 45, st.Vars.Number("history"))

	res, _ := st.RunLine("ifdef")
	assert.Equal(t, Warning, res)
}

func TestSetenv(t *testing.T) {
	st := testState(t)
	run(t, st, "setenv MUTT_TEST_VAR=hello")
	v, ok := st.Getenv("MUTT_TEST_VAR")
	require.True(t, ok)
	assert.Equal(t, "hello", v)

	var out bytes.Buffer
	st.Out = &out
	run(t, st, "setenv ?MUTT_TEST_VAR")
	assert.Contains(t, out.String(), "MUTT_TEST_VAR=hello")

	run(t, st, "unsetenv MUTT_TEST_VAR")
	_, ok = st.Getenv("MUTT_TEST_VAR")
	assert.False(t, ok)

	res, msg := st.RunLine("unsetenv MUTT_TEST_VAR")
	assert.Equal(t, Warning, res)
	assert.Equal(t, "MUTT_TEST_VAR is unset", msg)

	// The interpreter's environment is private to it.
	run(t, st, "setenv MUTT_PRIVATE=yes")
	_, found := os.LookupEnv("MUTT_PRIVATE")
	assert.False(t, found)
}

func TestSubscribeToWithoutBackend(t *testing.T) {
	st := testState(t)
	run(t, st, "subscribe-to +lists/neomutt")
	assert.Equal(t, []string{"/var/mail/lists/neomutt"}, st.PendingSubscriptions)

	run(t, st, "unsubscribe-from +lists/neomutt")
	assert.Empty(t, st.PendingSubscriptions)

	res, msg := st.RunLine("subscribe-to one two")
	assert.Equal(t, Error, res)
	assert.Equal(t, "subscribe-to: too many arguments", msg)
}

type fakeSubscriber struct {
	subscribed   []string
	unsubscribed []string
	fail         bool
}

func (f *fakeSubscriber) Subscribe(_ context.Context, mailbox string) error {
	if f.fail {
		return assert.AnError
	}
	f.subscribed = append(f.subscribed, mailbox)
	return nil
}

func (f *fakeSubscriber) Unsubscribe(_ context.Context, mailbox string) error {
	if f.fail {
		return assert.AnError
	}
	f.unsubscribed = append(f.unsubscribed, mailbox)
	return nil
}

func TestSubscribeToWithBackend(t *testing.T) {
	st := testState(t)
	fake := &fakeSubscriber{}
	st.Backend = fake

	var out bytes.Buffer
	st.Out = &out
	run(t, st, "subscribe-to +inbox")
	assert.Equal(t, []string{"/var/mail/inbox"}, fake.subscribed)
	assert.Contains(t, out.String(), "Subscribed to /var/mail/inbox")

	run(t, st, "unsubscribe-from +inbox")
	assert.Equal(t, []string{"/var/mail/inbox"}, fake.unsubscribed)

	fake.fail = true
	res, msg := st.RunLine("subscribe-to +spam")
	assert.Equal(t, Error, res)
	assert.Equal(t, "Could not subscribe to /var/mail/spam", msg)
}

func TestCd(t *testing.T) {
	st := testState(t)
	orig, err := os.Getwd()
	require.NoError(t, err)
	defer os.Chdir(orig)

	res, msg := st.RunLine("cd " + t.TempDir())
	assert.Equal(t, Success, res, msg)

	res, msg = st.RunLine("cd /no/such/directory/exists")
	assert.Equal(t, Error, res)
	assert.Contains(t, msg, "cd: ")
}
