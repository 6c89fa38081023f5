package vars

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neomutt/neomutt-sub017/expando"
)

func testSet(t *testing.T) *Set {
	t.Helper()
	cs := NewSet()
	err := cs.Register([]Definition{
		{Name: "allow_8bit", Type: TypeBool, Initial: "yes"},
		{Name: "confirm_append", Type: TypeQuad, Initial: "ask-yes"},
		{Name: "history", Type: TypeNumber, Initial: "10", Flags: NotNegative},
		{Name: "offset", Type: TypeNumber, Initial: "0"},
		{Name: "size_limit", Type: TypeLong, Initial: "2048"},
		{Name: "attribution", Type: TypeString, Initial: "On %d, %n wrote:"},
		{Name: "signature", Type: TypePath, Initial: ""},
		{Name: "folder", Type: TypeMailbox, Initial: "/var/mail"},
		{Name: "record", Type: TypeMailbox, Initial: ""},
		{Name: "editor", Type: TypeCommand, Initial: "vi", Validator: CommandValidator},
		{Name: "quote_regex", Type: TypeRegex, Initial: "^([ \t]*[|>:}#])+"},
		{Name: "envelope_from_address", Type: TypeAddress, Initial: ""},
		{Name: "to_chars", Type: TypeMBTable, Initial: " +TCFLR"},
		{Name: "sort", Type: TypeSort, Initial: "date",
			SortChoices: map[string]int{"date": 1, "subject": 2, "from": 3}},
		{Name: "mbox_type", Type: TypeEnum, Initial: "mbox",
			Choices: []string{"mbox", "mmdf", "mh", "maildir"}},
		{Name: "mail_check_stats", Type: TypeSlist, Initial: "a:b"},
		{Name: "index_format", Type: TypeExpando, Initial: "%s",
			ExpandoDefs: []expando.Definition{{ShortName: "s", DID: 1, UID: 1}}},
		{Name: "forw_format", Type: TypeExpando, Synonym: "index_format"},
	})
	require.NoError(t, err)
	return cs
}

func TestRegisterDuplicate(t *testing.T) {
	cs := NewSet()
	defs := []Definition{{Name: "x", Type: TypeBool, Initial: "no"}}
	require.NoError(t, cs.Register(defs))
	require.Error(t, cs.Register(defs))
}

func TestRegisterBadInitial(t *testing.T) {
	cs := NewSet()
	err := cs.Register([]Definition{{Name: "x", Type: TypeNumber, Initial: "ten"}})
	require.Error(t, err)
}

func TestBoolSpellings(t *testing.T) {
	sub := testSet(t).Global()
	for _, s := range []string{"no", "false", "0", "off", "n"} {
		_, err := sub.StringSet("allow_8bit", s)
		require.NoError(t, err, s)
		assert.False(t, sub.Bool("allow_8bit"), s)
	}
	for _, s := range []string{"yes", "true", "1", "on", "y"} {
		_, err := sub.StringSet("allow_8bit", s)
		require.NoError(t, err, s)
		assert.True(t, sub.Bool("allow_8bit"), s)
	}
	_, err := sub.StringSet("allow_8bit", "maybe")
	require.Error(t, err)
}

func TestToggleInvolution(t *testing.T) {
	sub := testSet(t).Global()

	before := sub.Bool("allow_8bit")
	_, err := sub.Toggle("allow_8bit")
	require.NoError(t, err)
	assert.Equal(t, !before, sub.Bool("allow_8bit"))
	_, err = sub.Toggle("allow_8bit")
	require.NoError(t, err)
	assert.Equal(t, before, sub.Bool("allow_8bit"))

	// Quad toggles stay within their ask-ness.
	assert.Equal(t, QuadAskYes, sub.Quad("confirm_append"))
	_, err = sub.Toggle("confirm_append")
	require.NoError(t, err)
	assert.Equal(t, QuadAskNo, sub.Quad("confirm_append"))
	_, err = sub.Toggle("confirm_append")
	require.NoError(t, err)
	assert.Equal(t, QuadAskYes, sub.Quad("confirm_append"))

	_, err = sub.Toggle("attribution")
	assert.ErrorIs(t, err, ErrNotImplemented)
}

func TestNumberBounds(t *testing.T) {
	sub := testSet(t).Global()

	_, err := sub.StringSet("offset", "-5")
	require.NoError(t, err)
	assert.Equal(t, -5, sub.Number("offset"))

	_, err = sub.StringSet("offset", "40000")
	require.Error(t, err)

	// history is flagged not-negative.
	_, err = sub.StringSet("history", "-1")
	require.Error(t, err)

	_, err = sub.PlusEquals("history", "5")
	require.NoError(t, err)
	assert.Equal(t, 15, sub.Number("history"))

	_, err = sub.MinusEquals("history", "20")
	require.Error(t, err) // would go negative
	assert.Equal(t, 15, sub.Number("history"))
}

func TestLong(t *testing.T) {
	sub := testSet(t).Global()
	_, err := sub.StringSet("size_limit", "5000000000")
	require.NoError(t, err)
	assert.Equal(t, int64(5000000000), sub.Long("size_limit"))
	_, err = sub.PlusEquals("size_limit", "1")
	require.NoError(t, err)
	assert.Equal(t, int64(5000000001), sub.Long("size_limit"))
}

func TestStringOps(t *testing.T) {
	sub := testSet(t).Global()

	flags, err := sub.StringSet("attribution", "Hi")
	require.NoError(t, err)
	assert.Zero(t, flags&FlagNoChange)

	// Setting the same value again reports no change.
	flags, err = sub.StringSet("attribution", "Hi")
	require.NoError(t, err)
	assert.NotZero(t, flags&FlagNoChange)

	_, err = sub.PlusEquals("attribution", " there")
	require.NoError(t, err)
	assert.Equal(t, "Hi there", sub.String("attribution"))

	_, err = sub.MinusEquals("attribution", "there")
	assert.ErrorIs(t, err, ErrNotImplemented)
}

func TestPathTilde(t *testing.T) {
	t.Setenv("HOME", "/home/roessler")
	sub := testSet(t).Global()
	_, err := sub.StringSet("signature", "~/.signature")
	require.NoError(t, err)
	assert.Equal(t, "/home/roessler/.signature", sub.String("signature"))
}

func TestMailboxShortcuts(t *testing.T) {
	sub := testSet(t).Global()
	_, err := sub.StringSet("record", "+sent")
	require.NoError(t, err)
	assert.Equal(t, "/var/mail/sent", sub.String("record"))

	_, err = sub.StringSet("record", "=archive")
	require.NoError(t, err)
	assert.Equal(t, "/var/mail/archive", sub.String("record"))
}

func TestCommandValidator(t *testing.T) {
	sub := testSet(t).Global()
	_, err := sub.StringSet("editor", "emacs -nw")
	require.NoError(t, err)
	_, err = sub.StringSet("editor", "vi; rm -rf /")
	require.Error(t, err)
	assert.Equal(t, "emacs -nw", sub.String("editor"))
}

func TestCharsetValidator(t *testing.T) {
	cs := NewSet()
	require.NoError(t, cs.Register([]Definition{
		{Name: "charset", Type: TypeString, Initial: "utf-8", Validator: CharsetValidator},
		{Name: "send_charset", Type: TypeSlist, Initial: "us-ascii:utf-8",
			Validator: CharsetValidator},
	}))
	sub := cs.Global()

	_, err := sub.StringSet("charset", "iso-8859-1")
	require.NoError(t, err)
	_, err = sub.StringSet("charset", "klingon-piqad")
	require.Error(t, err)
	assert.Equal(t, "iso-8859-1", sub.String("charset"))

	_, err = sub.StringSet("send_charset", "us-ascii:iso-8859-1:utf-8")
	require.NoError(t, err)
	_, err = sub.StringSet("send_charset", "us-ascii:not-a-charset")
	require.Error(t, err)
}

func TestRegexVariable(t *testing.T) {
	sub := testSet(t).Global()
	require.NotNil(t, sub.Regex("quote_regex"))
	assert.True(t, sub.Regex("quote_regex").Match("> quoted"))

	_, err := sub.StringSet("quote_regex", "([unclosed")
	require.Error(t, err)

	_, err = sub.StringSet("quote_regex", "")
	require.NoError(t, err)
	assert.Nil(t, sub.Regex("quote_regex"))
}

func TestAddressVariable(t *testing.T) {
	sub := testSet(t).Global()
	_, err := sub.StringSet("envelope_from_address", "Mutt User <user@example.com>")
	require.NoError(t, err)
	a := sub.Address("envelope_from_address")
	require.NotNil(t, a)
	assert.Contains(t, a.String(), "user@example.com")
}

func TestMBTable(t *testing.T) {
	sub := testSet(t).Global()
	tbl := sub.MBTable("to_chars")
	require.NotNil(t, tbl)
	assert.Equal(t, []string{" ", "+", "T", "C", "F", "L", "R"}, tbl.Chars)

	_, err := sub.StringSet("to_chars", "→ab")
	require.NoError(t, err)
	assert.Equal(t, []string{"→", "a", "b"}, sub.MBTable("to_chars").Chars)
}

func TestSortPrefixes(t *testing.T) {
	sub := testSet(t).Global()

	_, err := sub.StringSet("sort", "reverse-subject")
	require.NoError(t, err)
	v := sub.Sort("sort")
	assert.Equal(t, 2, v&SortMask)
	assert.NotZero(t, v&SortReverse)

	_, err = sub.StringSet("sort", "reverse-last-from")
	require.NoError(t, err)
	v = sub.Sort("sort")
	assert.Equal(t, 3, v&SortMask)
	assert.NotZero(t, v&SortReverse)
	assert.NotZero(t, v&SortLast)

	s, _, err := sub.StringGet("sort")
	require.NoError(t, err)
	assert.Equal(t, "reverse-last-from", s)

	_, err = sub.StringSet("sort", "bogus")
	require.Error(t, err)
}

func TestEnum(t *testing.T) {
	sub := testSet(t).Global()
	_, err := sub.StringSet("mbox_type", "maildir")
	require.NoError(t, err)
	assert.Equal(t, 3, sub.Enum("mbox_type"))

	s, _, err := sub.StringGet("mbox_type")
	require.NoError(t, err)
	assert.Equal(t, "maildir", s)

	_, err = sub.StringSet("mbox_type", "exchange")
	require.Error(t, err)
}

func TestSlistOps(t *testing.T) {
	sub := testSet(t).Global()
	assert.Equal(t, []string{"a", "b"}, sub.Slist("mail_check_stats").Items)

	// += dedupes.
	_, err := sub.PlusEquals("mail_check_stats", "b:c")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, sub.Slist("mail_check_stats").Items)

	_, err = sub.MinusEquals("mail_check_stats", "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c"}, sub.Slist("mail_check_stats").Items)
}

func TestExpandoCompiledAtSet(t *testing.T) {
	sub := testSet(t).Global()
	_, err := sub.StringSet("index_format", "%-4s!")
	require.NoError(t, err)
	require.NotNil(t, sub.Expando("index_format"))
	assert.Equal(t, "%-4s!", sub.Expando("index_format").String())

	// A bad template is rejected at set time.
	_, err = sub.StringSet("index_format", "%Z")
	require.Error(t, err)
	assert.Equal(t, "%-4s!", sub.Expando("index_format").String())
}

func TestSynonym(t *testing.T) {
	sub := testSet(t).Global()
	_, err := sub.StringSet("forw_format", "%s fwd")
	require.NoError(t, err)
	s, _, err := sub.StringGet("index_format")
	require.NoError(t, err)
	assert.Equal(t, "%s fwd", s)
}

func TestSetResetSymmetry(t *testing.T) {
	sub := testSet(t).Global()

	initial, err := sub.InitialGet("attribution")
	require.NoError(t, err)

	_, err = sub.StringSet("attribution", "changed")
	require.NoError(t, err)
	assert.False(t, sub.IsDefault("attribution"))

	_, err = sub.Reset("attribution")
	require.NoError(t, err)
	got, _, err := sub.StringGet("attribution")
	require.NoError(t, err)
	assert.Equal(t, initial, got)
	assert.True(t, sub.IsDefault("attribution"))
}

func TestResetAllFiresPerVariable(t *testing.T) {
	cs := testSet(t)
	sub := cs.Global()

	var events []string
	sub.Observe(func(ev Event, name string, _ *Subset) {
		if ev == EventReset {
			events = append(events, name)
		}
	})

	_, err := sub.StringSet("attribution", "changed")
	require.NoError(t, err)
	sub.ResetAll()

	// One reset event per registered variable (synonyms have no entry).
	assert.Len(t, events, len(cs.Names()))
	assert.True(t, sub.IsDefault("attribution"))
}

func TestScopedOverride(t *testing.T) {
	cs := testSet(t)
	global := cs.Global()
	account := global.Subset("work")
	mbox := account.Subset("inbox")

	// Inherited read.
	s, flags, err := mbox.StringGet("attribution")
	require.NoError(t, err)
	assert.Equal(t, "On %d, %n wrote:", s)
	assert.NotZero(t, flags&FlagInherited)

	// Scoped write shadows the global value.
	_, err = account.StringSet("attribution", "work style")
	require.NoError(t, err)

	s, _, err = mbox.StringGet("attribution")
	require.NoError(t, err)
	assert.Equal(t, "work style", s)

	s, flags, err = global.StringGet("attribution")
	require.NoError(t, err)
	assert.Equal(t, "On %d, %n wrote:", s)
	assert.Zero(t, flags&FlagInherited)

	// Scoped reset removes the override.
	_, err = account.Reset("attribution")
	require.NoError(t, err)
	s, _, err = mbox.StringGet("attribution")
	require.NoError(t, err)
	assert.Equal(t, "On %d, %n wrote:", s)
}

func TestEventsBubbleUp(t *testing.T) {
	cs := testSet(t)
	global := cs.Global()
	account := global.Subset("work")

	var atGlobal, atAccount []Event
	global.Observe(func(ev Event, name string, _ *Subset) { atGlobal = append(atGlobal, ev) })
	account.Observe(func(ev Event, name string, _ *Subset) { atAccount = append(atAccount, ev) })

	_, err := account.StringSet("history", "3")
	require.NoError(t, err)
	assert.Equal(t, []Event{EventSet}, atAccount)
	assert.Equal(t, []Event{EventSet}, atGlobal)

	// A no-change set is silent.
	_, err = account.StringSet("history", "3")
	require.NoError(t, err)
	assert.Len(t, atGlobal, 1)
}

func TestInitialSet(t *testing.T) {
	sub := testSet(t).Global()
	require.NoError(t, sub.InitialSet("history", "25"))

	// The live value is untouched...
	assert.Equal(t, 10, sub.Number("history"))

	// ...but reset now lands on the new default.
	_, err := sub.Reset("history")
	require.NoError(t, err)
	assert.Equal(t, 25, sub.Number("history"))
}

func TestUnknownVariable(t *testing.T) {
	sub := testSet(t).Global()
	_, err := sub.StringSet("nonexistent", "1")
	require.Error(t, err)
	var unknown *ErrUnknown
	assert.ErrorAs(t, err, &unknown)
}
