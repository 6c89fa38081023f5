package rfc2047

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func utf8Opts() Options {
	return Options{Charset: "utf-8", SendCharsets: "utf-8"}
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		opt      Options
		expected string
	}{
		{
			name:     "Q-encoded utf-8 word",
			input:    "=?UTF-8?Q?Kvie=C4=8Diame=20drauge?=",
			opt:      utf8Opts(),
			expected: "Kviečiame drauge",
		},
		{
			name:     "Pure ASCII is identity",
			input:    "Hello, World",
			opt:      utf8Opts(),
			expected: "Hello, World",
		},
		{
			name:     "Already decoded text is identity",
			input:    "Kviečiame drauge",
			opt:      utf8Opts(),
			expected: "Kviečiame drauge",
		},
		{
			name:     "B-encoded word",
			input:    "=?utf-8?B?Y2Fmw6k=?=",
			opt:      utf8Opts(),
			expected: "café",
		},
		{
			name:     "Lowercase encoding letter",
			input:    "=?ISO-8859-1?q?=E9?=",
			opt:      utf8Opts(),
			expected: "é",
		},
		{
			name:     "Underscore decodes to space",
			input:    "=?us-ascii?Q?hello_world?=",
			opt:      utf8Opts(),
			expected: "hello world",
		},
		{
			name:     "Whitespace between words is dropped",
			input:    "=?utf-8?Q?a?= =?utf-8?Q?b?=",
			opt:      utf8Opts(),
			expected: "ab",
		},
		{
			name:     "Fold between words is dropped",
			input:    "=?utf-8?Q?a?=\n\t=?utf-8?Q?b?=",
			opt:      utf8Opts(),
			expected: "ab",
		},
		{
			name:     "Surrounding text is preserved",
			input:    "before =?utf-8?Q?x?= after",
			opt:      utf8Opts(),
			expected: "before x after",
		},
		{
			name:     "Character split across words joins before conversion",
			input:    "=?utf-8?Q?caf=C3?= =?utf-8?Q?=A9!?=",
			opt:      utf8Opts(),
			expected: "café!",
		},
		{
			name:     "Charset change flushes the pending run",
			input:    "=?utf-8?Q?caf=C3?= =?iso-8859-1?Q?=E9?=",
			opt:      utf8Opts(),
			expected: "caf�é",
		},
		{
			name:     "Unknown charset keeps raw decoded bytes",
			input:    "=?x-weird-unknown?Q?hi?=",
			opt:      utf8Opts(),
			expected: "hi",
		},
		{
			name:     "Malformed word passes through verbatim",
			input:    "=?utf-8?X?abc?=",
			opt:      utf8Opts(),
			expected: "=?utf-8?X?abc?=",
		},
		{
			name:     "Broken base64 leaves the whole value untouched",
			input:    "good =?utf-8?B?###?= tail",
			opt:      utf8Opts(),
			expected: "good =?utf-8?B?###?= tail",
		},
		{
			name:     "Bare equals stays literal in Q text",
			input:    "=?us-ascii?Q?a=zb?=",
			opt:      utf8Opts(),
			expected: "a=zb",
		},
		{
			name:     "Control characters are scrubbed",
			input:    "=?us-ascii?Q?a=09b?=",
			opt:      utf8Opts(),
			expected: "a?b",
		},
		{
			name:     "Soft hyphen is dropped from display",
			input:    "=?utf-8?Q?co=C2=ADoperate?=",
			opt:      utf8Opts(),
			expected: "cooperate",
		},
		{
			name:     "Assumed charset interprets unlabelled 8-bit text",
			input:    "caf\xe9",
			opt:      Options{Charset: "utf-8", AssumedCharset: "us-ascii:iso-8859-1"},
			expected: "café",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Decode(tt.input, tt.opt))
		})
	}
}

func TestDecodeIdempotent(t *testing.T) {
	once := Decode("=?UTF-8?Q?Kvie=C4=8Diame=20drauge?=", utf8Opts())
	twice := Decode(once, utf8Opts())
	assert.Equal(t, once, twice)
}

func TestEncode(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		specials string
		col      int
		opt      Options
		expected string
	}{
		{
			name:     "ASCII needs no encoding",
			input:    "hello world",
			col:      9,
			opt:      utf8Opts(),
			expected: "hello world",
		},
		{
			name:     "No local charset disables encoding",
			input:    "café",
			col:      9,
			opt:      Options{},
			expected: "café",
		},
		{
			name:     "Short utf-8 word uses B encoding",
			input:    "café",
			col:      9,
			opt:      utf8Opts(),
			expected: "=?utf-8?B?Y2Fmw6k=?=",
		},
		{
			name:     "Latin-1 candidate uses Q encoding",
			input:    "café",
			col:      9,
			opt:      Options{Charset: "utf-8", SendCharsets: "iso-8859-1"},
			expected: "=?iso-8859-1?Q?caf=E9?=",
		},
		{
			name:     "Shortest qualifying charset name wins",
			input:    "café",
			col:      9,
			opt:      Options{Charset: "utf-8", SendCharsets: "us-ascii:iso-8859-1:utf-8"},
			expected: "=?utf-8?B?Y2Fmw6k=?=",
		},
		{
			name:     "Specials alone do not trigger encoding",
			input:    "Dr. Smith",
			specials: "\"(),.:;<>@[\\]",
			col:      9,
			opt:      utf8Opts(),
			expected: "Dr. Smith",
		},
		{
			name:     "Specials widen the region once encoding happens",
			input:    "Dr. Müller",
			specials: "\"(),.:;<>@[\\]",
			col:      9,
			opt:      utf8Opts(),
			expected: "=?utf-8?B?RHIuIE3DvGxsZXI=?=",
		},
		{
			name:     "Literal encoded-word marker is protected",
			input:    "tricky =?fake?= text",
			col:      9,
			opt:      utf8Opts(),
			expected: "tricky =?utf-8?B?PT9mYWtlPz0=?= text",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Encode(tt.input, tt.specials, tt.col, tt.opt))
		})
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		input string
		opt   Options
	}{
		{
			name:  "Single accented word",
			input: "café",
			opt:   utf8Opts(),
		},
		{
			name:  "Latin-1 send charset",
			input: "une journée très chargée",
			opt:   Options{Charset: "utf-8", SendCharsets: "us-ascii:iso-8859-1"},
		},
		{
			name:  "Long subject folds and survives",
			input: "Réunion des responsables de l'équipe à Paris prévue jeudi après-midi sans faute",
			opt:   utf8Opts(),
		},
		{
			name:  "Encoded-word marker in plain text",
			input: "tricky =?fake?= text",
			opt:   utf8Opts(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded := Encode(tt.input, "", 9, tt.opt)
			assert.Equal(t, tt.input, Decode(encoded, tt.opt))
		})
	}
}

func TestEncodeFolding(t *testing.T) {
	input := "Réunion des responsables de l'équipe à Paris prévue jeudi après-midi sans faute"
	encoded := Encode(input, "", 9, utf8Opts())
	require.Contains(t, encoded, "\n\t")

	for i, line := range strings.Split(encoded, "\n") {
		width := len(line)
		if i == 0 {
			width += 9 // header name occupies the first columns
		}
		assert.LessOrEqual(t, width, 76, "line %d too wide: %q", i, line)
	}
}

func TestEncodeISO2022JPUsesBase64(t *testing.T) {
	opt := Options{Charset: "utf-8", SendCharsets: "iso-2022-jp"}
	encoded := Encode("日本語", "", 9, opt)
	require.True(t, strings.HasPrefix(encoded, "=?iso-2022-jp?B?"), "got %q", encoded)
	assert.Equal(t, "日本語", Decode(encoded, opt))
}

func TestEncodeAddrHeader(t *testing.T) {
	opt := utf8Opts()
	encoded := EncodeAddrHeader("To", "Café Liaison", `"\`, opt)
	require.Contains(t, encoded, "=?utf-8?")
	assert.Equal(t, "Café Liaison", Decode(encoded, opt))

	// Plain ASCII names pass through untouched.
	assert.Equal(t, "Bob", EncodeAddrHeader("To", "Bob", `"\`, opt))
}
