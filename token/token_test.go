package token

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neomutt/neomutt-sub017/buffer"
)

type mapVars map[string]string

func (m mapVars) StringGet(name string) (string, bool) {
	v, ok := m[name]
	return v, ok
}

type mapEnv map[string]string

func (m mapEnv) Getenv(name string) (string, bool) {
	v, ok := m[name]
	return v, ok
}

type fakeShell map[string]string

func (f fakeShell) Run(command string) (string, error) {
	out, ok := f[command]
	if !ok {
		return "", errors.New("command not found")
	}
	return out, nil
}

func extractAll(t *testing.T, x *Extractor, line string, flags Flags) []string {
	t.Helper()
	tok := buffer.NewString(line)
	dest := buffer.New()
	var out []string
	SkipWhitespace(tok)
	for MoreArgs(tok) {
		require.NoError(t, x.Extract(dest, tok, flags))
		out = append(out, dest.String())
		SkipWhitespace(tok)
	}
	return out
}

func TestExtractBasicTokens(t *testing.T) {
	x := &Extractor{}
	tests := []struct {
		name  string
		line  string
		flags Flags
		want  []string
	}{
		{
			name:  "whitespace separated",
			line:  "alpha beta\tgamma",
			flags: NoFlags,
			want:  []string{"alpha", "beta", "gamma"},
		},
		{
			name:  "double quotes protect spaces",
			line:  `one "two three" four`,
			flags: NoFlags,
			want:  []string{"one", "two three", "four"},
		},
		{
			name:  "escaped quotes inside quotes",
			line:  `set foo = "hello \"world\""`,
			flags: Equal,
			want:  []string{"set", "foo", "=", `hello "world"`},
		},
		{
			name:  "single quotes are literal",
			line:  `'a \n b'`,
			flags: NoFlags,
			want:  []string{`a \n b`},
		},
		{
			name:  "comment terminates",
			line:  "alpha # beta",
			flags: NoFlags,
			want:  []string{"alpha"},
		},
		{
			name:  "comment kept with flag",
			line:  "alpha#beta",
			flags: Comment,
			want:  []string{"alpha#beta"},
		},
		{
			name:  "adjacent quoted runs join",
			line:  `"foo"'bar'`,
			flags: NoFlags,
			want:  []string{"foobar"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := extractAll(t, x, tt.line, tt.flags)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractEqualTerminator(t *testing.T) {
	x := &Extractor{}
	tok := buffer.NewString("foo=bar")
	dest := buffer.New()

	require.NoError(t, x.Extract(dest, tok, Equal))
	assert.Equal(t, "foo", dest.String())
	assert.Equal(t, byte('='), tok.Peek())

	tok.Advance(1)
	require.NoError(t, x.Extract(dest, tok, NoFlags))
	assert.Equal(t, "bar", dest.String())
}

func TestExtractEscapes(t *testing.T) {
	x := &Extractor{}
	tests := []struct {
		name string
		line string
		want string
	}{
		{name: "newline", line: `a\nb`, want: "a\nb"},
		{name: "tab", line: `a\tb`, want: "a\tb"},
		{name: "return", line: `a\rb`, want: "a\rb"},
		{name: "formfeed", line: `a\fb`, want: "a\fb"},
		{name: "escape char", line: `\e[0m`, want: "\033[0m"},
		{name: "control", line: `\cA`, want: "\x01"},
		{name: "control lowercase", line: `\ca`, want: "\x01"},
		{name: "octal", line: `\101`, want: "A"},
		{name: "hex", line: `\x41`, want: "A"},
		{name: "hex invalid falls through", line: `\xZZ`, want: "xZZ"},
		{name: "literal backslash", line: `a\\b`, want: `a\b`},
		{name: "unknown escape keeps char", line: `\q`, want: "q"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tok := buffer.NewString(tt.line)
			dest := buffer.New()
			require.NoError(t, x.Extract(dest, tok, NoFlags))
			assert.Equal(t, tt.want, dest.String())
		})
	}
}

func TestExtractPrematureEnd(t *testing.T) {
	x := &Extractor{}
	dest := buffer.New()

	err := x.Extract(dest, buffer.NewString(`abc\`), NoFlags)
	assert.ErrorIs(t, err, ErrPrematureEnd)

	err = x.Extract(dest, buffer.NewString(`abc\c`), NoFlags)
	assert.ErrorIs(t, err, ErrPrematureEnd)
}

func TestExtractCondense(t *testing.T) {
	x := &Extractor{}
	tests := []struct {
		line string
		want string
	}{
		{line: `^a`, want: "\x01"},
		{line: `^Z`, want: "\x1a"},
		{line: `^^`, want: "^"},
		{line: `^[`, want: "\033"},
		{line: `^1`, want: "^1"},
	}

	for _, tt := range tests {
		tok := buffer.NewString(tt.line)
		dest := buffer.New()
		require.NoError(t, x.Extract(dest, tok, Condense))
		assert.Equal(t, tt.want, dest.String(), "input %q", tt.line)
	}
}

func TestExtractVariables(t *testing.T) {
	x := &Extractor{
		Vars: mapVars{"editor": "vim", "my_name": "Ada"},
		Env:  mapEnv{"HOME": "/home/ada", "editor": "nano"},
	}

	tests := []struct {
		name  string
		line  string
		flags Flags
		want  string
	}{
		{name: "config variable", line: "$editor", want: "vim"},
		{name: "config wins over environment", line: "$editor", want: "vim"},
		{name: "environment fallback", line: "$HOME", want: "/home/ada"},
		{name: "braced", line: "${my_name}!", want: "Ada!"},
		{name: "unknown stays literal", line: "$nosuchvar.", want: "$nosuchvar."},
		{name: "unknown braced loses braces", line: "${nosuchvar}", want: "$nosuchvar"},
		{name: "noshell blocks environment", line: "$HOME", flags: NoShell, want: "$HOME"},
		{name: "noshell keeps braced reference", line: "${HOME}", flags: NoShell, want: "${HOME}"},
		{name: "underscore does not start a name", line: "$_under", want: "$_under"},
		{name: "inside double quotes", line: `"dir: $HOME"`, want: "dir: /home/ada"},
		{name: "single quotes are literal", line: `'$HOME'`, want: "$HOME"},
		{name: "unclosed brace drops dollar", line: "${oops", want: "{oops"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tok := buffer.NewString(tt.line)
			dest := buffer.New()
			require.NoError(t, x.Extract(dest, tok, tt.flags))
			assert.Equal(t, tt.want, dest.String())
		})
	}
}

func TestExtractBackticks(t *testing.T) {
	x := &Extractor{
		Vars:  mapVars{"account": "work"},
		Shell: fakeShell{"echo hi": "hi there", "cat work.sig": "-- work"},
	}

	t.Run("output is retokenized", func(t *testing.T) {
		tok := buffer.NewString("`echo hi` tail")
		dest := buffer.New()
		require.NoError(t, x.Extract(dest, tok, NoFlags))
		assert.Equal(t, "hi", dest.String())

		SkipWhitespace(tok)
		require.NoError(t, x.Extract(dest, tok, NoFlags))
		assert.Equal(t, "there", dest.String())

		SkipWhitespace(tok)
		require.NoError(t, x.Extract(dest, tok, NoFlags))
		assert.Equal(t, "tail", dest.String())
	})

	t.Run("quoted output stays one token", func(t *testing.T) {
		tok := buffer.NewString("\"`echo hi`\"")
		dest := buffer.New()
		require.NoError(t, x.Extract(dest, tok, NoFlags))
		assert.Equal(t, "hi there", dest.String())
	})

	t.Run("variables interpolate with flag", func(t *testing.T) {
		tok := buffer.NewString("`cat $account.sig`")
		dest := buffer.New()
		require.NoError(t, x.Extract(dest, tok, BacktickVars))
		assert.Equal(t, "--", dest.String())
	})

	t.Run("mismatched backtick", func(t *testing.T) {
		tok := buffer.NewString("`echo hi")
		dest := buffer.New()
		err := x.Extract(dest, tok, NoFlags)
		assert.ErrorIs(t, err, ErrBacktickImbal)
	})

	t.Run("failing command", func(t *testing.T) {
		tok := buffer.NewString("`no such`")
		dest := buffer.New()
		err := x.Extract(dest, tok, NoFlags)
		assert.ErrorIs(t, err, ErrSubstitution)
	})
}

func TestQuoteRoundTrip(t *testing.T) {
	x := &Extractor{}
	inputs := []string{
		"plain",
		"with space",
		`embedded "quotes" here`,
		"tab\tand\nnewline",
		`back\slash`,
		"",
	}

	for _, in := range inputs {
		quoted := QuoteString(in)
		tok := buffer.NewString(quoted)
		dest := buffer.New()
		require.NoError(t, x.Extract(dest, tok, NoFlags))
		assert.Equal(t, in, dest.String(), "quoted form %q", quoted)
		assert.True(t, tok.EOS())
	}
}

func TestMoreArgs(t *testing.T) {
	assert.False(t, MoreArgs(buffer.NewString("")))
	assert.False(t, MoreArgs(buffer.NewString("; next")))
	assert.False(t, MoreArgs(buffer.NewString("# comment")))
	assert.True(t, MoreArgs(buffer.NewString("word")))
}
