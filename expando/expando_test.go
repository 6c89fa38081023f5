package expando

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neomutt/neomutt-sub017/buffer"
)

const (
	didTest = iota + 1
)

const (
	uidApple = iota + 1
	uidDigit
	uidEmpty
	uidDate
	uidWide
	uidCount
)

func testDefs() []Definition {
	return []Definition{
		{ShortName: "a", DID: didTest, UID: uidApple},
		{ShortName: "d", DID: didTest, UID: uidDigit},
		{ShortName: "e", DID: didTest, UID: uidEmpty},
		{ShortName: "w", DID: didTest, UID: uidWide},
		{ShortName: "cr", DID: didTest, UID: uidCount},
		{ShortName: "c", DID: didTest, UID: uidApple},
		{ShortName: "[", DID: didTest, UID: uidDate, Parse: DateParser()},
	}
}

func testData(date int64) RenderData {
	str := func(s string) StringFunc {
		return func(_ *Node, _ any, _ RenderFlags, buf *buffer.Buffer) {
			buf.AddString(s)
		}
	}
	num := func(n int64) NumberFunc {
		return func(*Node, any, RenderFlags) int64 { return n }
	}
	return RenderData{
		{DID: didTest, UID: uidApple, String: str("apple")},
		{DID: didTest, UID: uidDigit, Number: num(42)},
		{DID: didTest, UID: uidEmpty, String: str("")},
		{DID: didTest, UID: uidWide, String: str("日本語")},
		{DID: didTest, UID: uidCount, Number: num(7)},
		{DID: didTest, UID: uidDate, Number: num(date),
			String: func(node *Node, _ any, _ RenderFlags, buf *buffer.Buffer) {
				buf.AddString(FormatDate(node, time.Unix(date, 0).UTC()))
			}},
	}
}

func mustRender(t *testing.T, template string, maxCols int) string {
	t.Helper()
	exp, err := Parse(template, testDefs())
	require.NoError(t, err)
	buf := buffer.New()
	Render(exp, testData(0), nil, 0, maxCols, buf)
	return buf.String()
}

func TestParseEmpty(t *testing.T) {
	exp, err := Parse("", nil)
	require.NoError(t, err)
	assert.Nil(t, exp)
}

func TestParseUnknownExpando(t *testing.T) {
	_, err := Parse("%Q", testDefs())
	require.Error(t, err)
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 1, pe.Position)
	assert.Contains(t, pe.Message, "Unknown expando")
}

func TestParseTextEscapes(t *testing.T) {
	assert.Equal(t, "100% done", mustRender(t, `100%% done`, 80))
	assert.Equal(t, "a&b", mustRender(t, `a\&b`, 80))
}

func TestRenderPlainExpando(t *testing.T) {
	assert.Equal(t, "apple", mustRender(t, "%a", 80))
	assert.Equal(t, "[apple]", mustRender(t, "[%a]", 80))
}

func TestLongestShortNameWins(t *testing.T) {
	// "cr" must resolve before "c".
	exp, err := Parse("%cr", testDefs())
	require.NoError(t, err)
	require.Len(t, exp.Root.Children, 1)
	assert.Equal(t, uidCount, exp.Root.Children[0].UID)
}

func TestFormatSpec(t *testing.T) {
	tests := []struct {
		template string
		want     string
	}{
		{"%8a", "   apple"},   // right justify to min
		{"%-8a", "apple   "},  // left justify
		{"%=9a", "  apple  "}, // centered
		{"%.3a", "app"},       // max columns truncate
		{"%8.3a", "     app"}, // both
		{"%_a", "apple"},      // lowercase is a no-op here
		{"%d", "42"},          // number, default precision
		{"%05d", "00042"},     // zero leader widens precision
		{"%.4d", "0042"},      // precision from max
		{"%5d", "   42"},      // min pads with spaces
		{"%8.3w", "      日"},  // wide runes truncate on columns
	}
	for _, tt := range tests {
		t.Run(tt.template, func(t *testing.T) {
			assert.Equal(t, tt.want, mustRender(t, tt.template, 80))
		})
	}
}

func TestFormatLowercases(t *testing.T) {
	defs := []Definition{{ShortName: "s", DID: 9, UID: 1}}
	exp, err := Parse("%_s", defs)
	require.NoError(t, err)
	rd := RenderData{{DID: 9, UID: 1, String: func(_ *Node, _ any, _ RenderFlags, buf *buffer.Buffer) {
		buf.AddString("MiXeD")
	}}}
	buf := buffer.New()
	Render(exp, rd, nil, 0, 80, buf)
	assert.Equal(t, "mixed", buf.String())
}

func TestNegativeNumberPrecision(t *testing.T) {
	defs := []Definition{{ShortName: "n", DID: 9, UID: 2}}
	exp, err := Parse("%05n", defs)
	require.NoError(t, err)
	rd := RenderData{{DID: 9, UID: 2, Number: func(*Node, any, RenderFlags) int64 { return -7 }}}
	buf := buffer.New()
	Render(exp, rd, nil, 0, 80, buf)
	assert.Equal(t, "-0007", buf.String())
}

func TestConditionalBool(t *testing.T) {
	// String producer: truthy iff non-empty.
	assert.Equal(t, "yes", mustRender(t, "%<a?yes&no>", 80))
	assert.Equal(t, "no", mustRender(t, "%<e?yes&no>", 80))

	// Number producer: truthy iff non-zero.
	assert.Equal(t, "yes", mustRender(t, "%<d?yes&no>", 80))

	// Missing false branch renders nothing.
	assert.Equal(t, "", mustRender(t, "%<e?yes>", 80))
}

func TestConditionalLegacy(t *testing.T) {
	assert.Equal(t, "yes", mustRender(t, "%?a?yes&no?", 80))
	assert.Equal(t, "no", mustRender(t, "%?e?yes&no?", 80))
}

func TestConditionalNested(t *testing.T) {
	assert.Equal(t, "inner", mustRender(t, "%<a?%<d?inner&mid>&outer>", 80))
}

func TestConditionalBranchesExpand(t *testing.T) {
	assert.Equal(t, "apple!", mustRender(t, "%<a?%a!&none>", 80))
}

func TestConditionalMissingTerminator(t *testing.T) {
	_, err := Parse("%<a?yes", testDefs())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing")
}

func TestCondDate(t *testing.T) {
	restore := now
	defer func() { now = restore }()
	fixed := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)
	now = func() time.Time { return fixed }

	render := func(template string, age time.Duration) string {
		exp, err := Parse(template, testDefs())
		require.NoError(t, err)
		buf := buffer.New()
		Render(exp, testData(fixed.Add(-age).Unix()), nil, 0, 80, buf)
		return buf.String()
	}

	// A day-old date is within two weeks but not within one hour.
	assert.Equal(t, "new", render("%<[2w?new&old>", 24*time.Hour))
	assert.Equal(t, "old", render("%<[1H?new&old>", 24*time.Hour))
	// Bare period implies a count of one.
	assert.Equal(t, "new", render("%<[d?new&old>", time.Hour))
}

func TestCondDateParseErrors(t *testing.T) {
	_, err := Parse("%<[2x?a&b>", testDefs())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid date")

	_, err = Parse("%<[2w?a&b", testDefs())
	require.Error(t, err)
}

func TestDateEnclosure(t *testing.T) {
	exp, err := Parse("%[%Y-%m-%d]", testDefs())
	require.NoError(t, err)
	buf := buffer.New()
	ts := time.Date(2024, 10, 25, 9, 30, 0, 0, time.UTC).Unix()
	Render(exp, testData(ts), nil, 0, 80, buf)
	assert.Equal(t, "2024-10-25", buf.String())
}

func TestDateEnclosureMissingTerminator(t *testing.T) {
	_, err := Parse("%[%Y", testDefs())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing terminator")
}

func TestPaddingHardFill(t *testing.T) {
	// The exact-column contract: padding fills to maxCols.
	assert.Equal(t, "apple|XXXXXXXXXXX|42", mustRender(t, "%-5.7a|%>X|%d", 20))
}

func TestPaddingEOL(t *testing.T) {
	// Fill-EOL drops everything after the directive.
	out := mustRender(t, "%a%|-dropped", 10)
	assert.Equal(t, "apple-----", out)
}

func TestPaddingSoftFill(t *testing.T) {
	// The right side keeps its columns; the left gets the leftovers.
	out := mustRender(t, "%a%*.%d", 10)
	assert.Equal(t, 10, len(out))
	assert.Contains(t, out, "42")
}

func TestPaddingDefaultsToSpace(t *testing.T) {
	assert.Equal(t, "apple     ", mustRender(t, "%a%|", 10))
}

func TestPaddingRejectsFormat(t *testing.T) {
	_, err := Parse("%-5>X", testDefs())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Padding cannot be formatted")
}

func TestPaddingRejectedAsCondition(t *testing.T) {
	_, err := Parse("%<|?a&b>", testDefs())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "condition")
}

func TestRepadStructure(t *testing.T) {
	exp, err := Parse("a%>Xb", testDefs())
	require.NoError(t, err)
	require.Len(t, exp.Root.Children, 1)
	pad := exp.Root.Children[0]
	assert.Equal(t, NodePadding, pad.Type)
	require.Len(t, pad.Children, 2)
	assert.Equal(t, NodeContainer, pad.Children[0].Type)
	assert.Equal(t, NodeContainer, pad.Children[1].Type)
}

func TestFilterDetection(t *testing.T) {
	exp, err := Parse("echo %a|", testDefs())
	require.NoError(t, err)
	assert.True(t, exp.Filtered())

	// An escaped pipe is a literal.
	exp, err = Parse(`echo %a\|`, testDefs())
	require.NoError(t, err)
	assert.False(t, exp.Filtered())
}

func TestRenderFilter(t *testing.T) {
	exp, err := Parse("fruit %a|", testDefs())
	require.NoError(t, err)

	var got string
	shell := func(cmd string) (string, error) {
		got = cmd
		return "filtered output\n", nil
	}
	buf := buffer.New()
	_, err = RenderFilter(exp, testData(0), nil, 0, 80, shell, buf)
	require.NoError(t, err)
	assert.Equal(t, "fruit apple", got)
	assert.Equal(t, "filtered output", buf.String())
}

func TestRenderFilterError(t *testing.T) {
	exp, err := Parse("%a|", testDefs())
	require.NoError(t, err)
	shell := func(string) (string, error) { return "", fmt.Errorf("spawn failed") }
	buf := buffer.New()
	_, err = RenderFilter(exp, testData(0), nil, 0, 80, shell, buf)
	require.Error(t, err)
}

func TestEqual(t *testing.T) {
	a, err := Parse("%a %d", testDefs())
	require.NoError(t, err)
	b, err := Parse("%a %d", testDefs())
	require.NoError(t, err)
	c, err := Parse("%d %a", testDefs())
	require.NoError(t, err)

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	var nilExp *Expando
	assert.True(t, nilExp.Equal(nil))
	assert.False(t, a.Equal(nil))
}
