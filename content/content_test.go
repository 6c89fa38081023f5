package content

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neomutt/neomutt-sub017/consts"
	"github.com/neomutt/neomutt-sub017/email"
)

func TestUpdateTally(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  email.Content
	}{
		{
			name:  "crlf and bare lf with dot line",
			input: "line1\r\nline2\n.\n",
			want:  email.Content{Crlf: 3, Ascii: 11, Linemax: 5, Dot: true, Cr: true},
		},
		{
			name:  "trailing space",
			input: "abc \n",
			want:  email.Content{Crlf: 1, Ascii: 4, Linemax: 4, Space: true},
		},
		{
			name:  "trailing tab",
			input: "abc\t\n",
			want:  email.Content{Crlf: 1, Ascii: 4, Linemax: 4, Space: true},
		},
		{
			name:  "trailing formfeed is not flagged",
			input: "abc\f\n",
			want:  email.Content{Crlf: 1, Ascii: 4, Linemax: 4},
		},
		{
			name:  "cr without lf is binary",
			input: "a\rb\n",
			want:  email.Content{Crlf: 2, Ascii: 2, Linemax: 2, Binary: true, Cr: true},
		},
		{
			name:  "from line",
			input: "From here\n",
			want:  email.Content{Crlf: 1, Ascii: 9, Linemax: 9, From: true},
		},
		{
			name:  "lowercase from line",
			input: "from x\n",
			want:  email.Content{Crlf: 1, Ascii: 6, Linemax: 6, From: true},
		},
		{
			name:  "from prefix broken early",
			input: "Fro m\n",
			want:  email.Content{Crlf: 1, Ascii: 5, Linemax: 5},
		},
		{
			name:  "dot with trailing text is not a dot line",
			input: ".x\n",
			want:  email.Content{Crlf: 1, Ascii: 2, Linemax: 2},
		},
		{
			name:  "nul counts in both bins",
			input: "a\x00b\n",
			want:  email.Content{Crlf: 1, Ascii: 2, Nulbin: 1, Lobin: 1, Linemax: 3},
		},
		{
			name:  "control byte",
			input: "a\x01\n",
			want:  email.Content{Crlf: 1, Ascii: 1, Lobin: 1, Linemax: 2},
		},
		{
			name:  "high bytes",
			input: "caf\xc3\xa9\n",
			want:  email.Content{Crlf: 1, Ascii: 3, Hibin: 2, Linemax: 5},
		},
		{
			name:  "unterminated last line",
			input: "abcdef",
			want:  email.Content{Ascii: 6, Linemax: 6},
		},
		{
			name:  "dangling cr at eof is binary",
			input: "abc\r",
			want:  email.Content{Crlf: 1, Ascii: 3, Linemax: 3, Binary: true, Cr: true},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var info email.Content
			var st State
			st.Update(&info, []byte(tc.input))
			st.Finish(&info)
			assert.Equal(t, tc.want, info)
		})
	}
}

func TestTallyChunkInvariance(t *testing.T) {
	input := []byte("From here\r\nline2 \n.\na\x00\xc3\xa9\rtail")

	var whole email.Content
	var st State
	st.Update(&whole, input)
	st.Finish(&whole)

	for _, size := range []int{1, 2, 3, 5, 7} {
		var info email.Content
		var chunked State
		for off := 0; off < len(input); off += size {
			end := off + size
			if end > len(input) {
				end = len(input)
			}
			chunked.Update(&info, input[off:end])
		}
		chunked.Finish(&info)
		assert.Equal(t, whole, info, "chunk size %d", size)
	}
}

func TestGetInfo(t *testing.T) {
	info, err := GetInfo(strings.NewReader("line1\r\nline2\n.\n"))
	require.NoError(t, err)
	assert.Equal(t, int64(3), info.Crlf)
	assert.Equal(t, int64(5), info.Linemax)
	assert.True(t, info.Dot)
	assert.True(t, info.Cr)
	assert.False(t, info.Binary)
	assert.False(t, info.Space)
}

func TestConvertTo(t *testing.T) {
	t.Run("first candidate that holds the text wins", func(t *testing.T) {
		tocode, info, err := ConvertTo(strings.NewReader("café"), "utf-8", "us-ascii:iso-8859-1:utf-8")
		require.NoError(t, err)
		assert.Equal(t, "iso-8859-1", tocode)
		assert.Equal(t, int64(1), info.Hibin)
		assert.Equal(t, int64(3), info.Ascii)
		assert.Equal(t, int64(4), info.Linemax)
	})

	t.Run("utf-8 wins outright when reached", func(t *testing.T) {
		tocode, info, err := ConvertTo(strings.NewReader("café"), "utf-8", "utf-8:iso-8859-1")
		require.NoError(t, err)
		assert.Equal(t, "utf-8", tocode)
		assert.Equal(t, int64(2), info.Hibin)
		assert.Equal(t, int64(3), info.Ascii)
	})

	t.Run("ascii input picks us-ascii", func(t *testing.T) {
		tocode, info, err := ConvertTo(strings.NewReader("hello\n"), "utf-8", "us-ascii:utf-8")
		require.NoError(t, err)
		assert.Equal(t, "us-ascii", tocode)
		assert.Equal(t, int64(1), info.Crlf)
		assert.Equal(t, int64(5), info.Linemax)
	})

	t.Run("source charset cannot decode", func(t *testing.T) {
		_, _, err := ConvertTo(strings.NewReader("caf\xe9"), "us-ascii", "utf-8")
		require.ErrorIs(t, err, consts.ErrBadCharset)
	})

	t.Run("no candidate can hold the text", func(t *testing.T) {
		_, _, err := ConvertTo(strings.NewReader("café"), "utf-8", "us-ascii")
		require.ErrorIs(t, err, consts.ErrBadCharset)
	})

	t.Run("unknown source charset", func(t *testing.T) {
		_, _, err := ConvertTo(strings.NewReader("hi"), "no-such-charset", "utf-8")
		require.Error(t, err)
	})
}

func TestConvertFromTo(t *testing.T) {
	t.Run("second source charset succeeds", func(t *testing.T) {
		fromcode, tocode, info, err := ConvertFromTo(strings.NewReader("caf\xe9"), "us-ascii:iso-8859-1", "utf-8")
		require.NoError(t, err)
		assert.Equal(t, "iso-8859-1", fromcode)
		assert.Equal(t, "utf-8", tocode)
		assert.Equal(t, int64(2), info.Hibin)
	})

	t.Run("first source charset wins on clean input", func(t *testing.T) {
		fromcode, _, _, err := ConvertFromTo(strings.NewReader("hi"), "utf-8:iso-8859-1", "utf-8")
		require.NoError(t, err)
		assert.Equal(t, "utf-8", fromcode)
	})

	t.Run("every source charset fails", func(t *testing.T) {
		_, _, _, err := ConvertFromTo(strings.NewReader("caf\xe9"), "us-ascii", "utf-8")
		require.Error(t, err)
	})
}

func TestGetContentInfo(t *testing.T) {
	t.Run("labels converted text", func(t *testing.T) {
		b := &email.Body{Type: email.TypeText, Subtype: "plain"}
		set := Settings{Charset: "utf-8", SendCharset: "us-ascii:iso-8859-1:utf-8"}

		info, err := GetContentInfo(strings.NewReader("caf\xc3\xa9\n"), b, set)
		require.NoError(t, err)
		cs, ok := b.Parameter.Get("charset")
		require.True(t, ok)
		assert.Equal(t, "iso-8859-1", cs)
		assert.Equal(t, "utf-8", b.Charset)
		assert.Equal(t, int64(1), info.Hibin)
	})

	t.Run("ascii text gets us-ascii", func(t *testing.T) {
		b := &email.Body{Type: email.TypeText, Subtype: "plain"}
		set := Settings{Charset: "utf-8", SendCharset: "us-ascii:iso-8859-1:utf-8"}

		info, err := GetContentInfo(strings.NewReader("hello\n"), b, set)
		require.NoError(t, err)
		cs, _ := b.Parameter.Get("charset")
		assert.Equal(t, "us-ascii", cs)
		assert.Zero(t, info.Hibin)
	})

	t.Run("existing charset parameter is kept", func(t *testing.T) {
		b := &email.Body{Type: email.TypeText, Subtype: "plain"}
		b.Parameter.Set("charset", "iso-8859-1")
		set := Settings{Charset: "utf-8", SendCharset: "us-ascii"}

		_, err := GetContentInfo(strings.NewReader("caf\xc3\xa9\n"), b, set)
		require.NoError(t, err)
		cs, _ := b.Parameter.Get("charset")
		assert.Equal(t, "iso-8859-1", cs)
		assert.Equal(t, "utf-8", b.Charset)
	})

	t.Run("noconv skips conversion and labelling", func(t *testing.T) {
		b := &email.Body{Type: email.TypeText, Subtype: "plain", NoConv: true}
		set := Settings{Charset: "utf-8", SendCharset: "us-ascii:utf-8"}

		info, err := GetContentInfo(strings.NewReader("caf\xc3\xa9\n"), b, set)
		require.NoError(t, err)
		_, ok := b.Parameter.Get("charset")
		assert.False(t, ok)
		assert.Equal(t, int64(2), info.Hibin)
	})

	t.Run("failed conversion falls back to raw scan", func(t *testing.T) {
		b := &email.Body{Type: email.TypeText, Subtype: "plain"}
		set := Settings{Charset: "utf-8", SendCharset: "us-ascii"}

		info, err := GetContentInfo(strings.NewReader("caf\xc3\xa9\n"), b, set)
		require.NoError(t, err)
		cs, _ := b.Parameter.Get("charset")
		assert.Equal(t, "utf-8", cs)
		assert.Equal(t, int64(2), info.Hibin)
	})

	t.Run("eight bit data under an ascii system charset", func(t *testing.T) {
		b := &email.Body{Type: email.TypeText, Subtype: "plain"}
		set := Settings{Charset: "us-ascii"}

		_, err := GetContentInfo(strings.NewReader("caf\xc3\xa9\n"), b, set)
		require.NoError(t, err)
		cs, _ := b.Parameter.Get("charset")
		assert.Equal(t, "unknown-8bit", cs)
	})
}

func TestBodyCharset(t *testing.T) {
	_, ok := BodyCharset(&email.Body{Type: email.TypeApplication})
	assert.False(t, ok)

	cs, ok := BodyCharset(&email.Body{Type: email.TypeText})
	require.True(t, ok)
	assert.Equal(t, "us-ascii", cs)

	b := &email.Body{Type: email.TypeText}
	b.Parameter.Set("charset", "UTF8")
	cs, ok = BodyCharset(b)
	require.True(t, ok)
	assert.Equal(t, "utf-8", cs)
}

func TestSelectEncoding(t *testing.T) {
	textBody := func(charset string) *email.Body {
		b := &email.Body{Type: email.TypeText, Subtype: "plain"}
		if charset != "" {
			b.Parameter.Set("charset", charset)
		}
		return b
	}

	tests := []struct {
		name string
		body *email.Body
		info email.Content
		set  Settings
		want email.ContentEncoding
	}{
		{
			name: "clean ascii text",
			body: textBody(""),
			info: email.Content{Ascii: 100, Linemax: 60},
			want: email.Enc7Bit,
		},
		{
			name: "high bit text with 8bit allowed",
			body: textBody(""),
			info: email.Content{Hibin: 5, Ascii: 100},
			set:  Settings{Allow8Bit: true},
			want: email.Enc8Bit,
		},
		{
			name: "high bit text without 8bit",
			body: textBody(""),
			info: email.Content{Hibin: 5, Ascii: 100},
			want: email.EncQuotedPrintable,
		},
		{
			name: "control bytes force quoted printable",
			body: textBody(""),
			info: email.Content{Lobin: 1, Ascii: 100},
			set:  Settings{Allow8Bit: true},
			want: email.EncQuotedPrintable,
		},
		{
			name: "iso-2022 escapes are exempt",
			body: textBody("iso-2022-jp"),
			info: email.Content{Lobin: 4, Hibin: 1, Ascii: 100},
			set:  Settings{Allow8Bit: true},
			want: email.Enc8Bit,
		},
		{
			name: "overlong line forces quoted printable",
			body: textBody(""),
			info: email.Content{Ascii: 2000, Linemax: 991},
			want: email.EncQuotedPrintable,
		},
		{
			name: "from line with encode_from",
			body: textBody(""),
			info: email.Content{Ascii: 100, From: true},
			set:  Settings{EncodeFrom: true},
			want: email.EncQuotedPrintable,
		},
		{
			name: "from line without encode_from",
			body: textBody(""),
			info: email.Content{Ascii: 100, From: true},
			want: email.Enc7Bit,
		},
		{
			name: "message with high bit and 8bit allowed",
			body: &email.Body{Type: email.TypeMessage, Subtype: "rfc822"},
			info: email.Content{Hibin: 3, Ascii: 50},
			set:  Settings{Allow8Bit: true},
			want: email.Enc8Bit,
		},
		{
			name: "message with control bytes",
			body: &email.Body{Type: email.TypeMessage, Subtype: "rfc822"},
			info: email.Content{Lobin: 3, Ascii: 50},
			set:  Settings{Allow8Bit: true},
			want: email.Enc7Bit,
		},
		{
			name: "clean multipart",
			body: &email.Body{Type: email.TypeMultipart, Subtype: "mixed"},
			info: email.Content{Ascii: 50},
			want: email.Enc7Bit,
		},
		{
			name: "pgp keys stay 7bit",
			body: &email.Body{Type: email.TypeApplication, Subtype: "pgp-keys"},
			info: email.Content{Hibin: 10},
			want: email.Enc7Bit,
		},
		{
			name: "dense binary application data",
			body: &email.Body{Type: email.TypeApplication, Subtype: "octet-stream"},
			info: email.Content{Lobin: 50, Hibin: 50, Ascii: 10},
			want: email.EncBase64,
		},
		{
			name: "mostly printable application data",
			body: &email.Body{Type: email.TypeApplication, Subtype: "octet-stream"},
			info: email.Content{Lobin: 1, Ascii: 100},
			want: email.EncQuotedPrintable,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			SelectEncoding(tc.body, &tc.info, tc.set)
			assert.Equal(t, tc.want, tc.body.Encoding)
		})
	}
}

func TestUpdateEncoding(t *testing.T) {
	t.Run("ascii body drops noconv and stays 7bit", func(t *testing.T) {
		b := &email.Body{Type: email.TypeText, Subtype: "plain", NoConv: true}
		b.Parameter.Set("charset", "us-ascii")
		set := Settings{Charset: "utf-8", SendCharset: "us-ascii:utf-8"}

		err := UpdateEncoding(strings.NewReader("hello\n"), b, set)
		require.NoError(t, err)
		assert.False(t, b.NoConv)
		assert.Equal(t, email.Enc7Bit, b.Encoding)
		cs, _ := b.Parameter.Get("charset")
		assert.Equal(t, "us-ascii", cs)
		require.NotNil(t, b.Content)
		assert.Equal(t, int64(1), b.Content.Crlf)
	})

	t.Run("converted text needs quoted printable", func(t *testing.T) {
		b := &email.Body{Type: email.TypeText, Subtype: "plain"}
		set := Settings{Charset: "utf-8", SendCharset: "us-ascii:iso-8859-1"}

		err := UpdateEncoding(strings.NewReader("caf\xc3\xa9\n"), b, set)
		require.NoError(t, err)
		assert.Equal(t, email.EncQuotedPrintable, b.Encoding)
		cs, _ := b.Parameter.Get("charset")
		assert.Equal(t, "iso-8859-1", cs)
		assert.Equal(t, "utf-8", b.Charset)
	})

	t.Run("8bit when allowed", func(t *testing.T) {
		b := &email.Body{Type: email.TypeText, Subtype: "plain"}
		set := Settings{Charset: "utf-8", SendCharset: "us-ascii:iso-8859-1", Allow8Bit: true}

		err := UpdateEncoding(strings.NewReader("caf\xc3\xa9\n"), b, set)
		require.NoError(t, err)
		assert.Equal(t, email.Enc8Bit, b.Encoding)
	})

	t.Run("forced charset parameter survives", func(t *testing.T) {
		b := &email.Body{Type: email.TypeText, Subtype: "plain", ForceCharset: true}
		b.Parameter.Set("charset", "koi8-r")
		set := Settings{Charset: "utf-8", SendCharset: "us-ascii:utf-8"}

		err := UpdateEncoding(strings.NewReader("hello\n"), b, set)
		require.NoError(t, err)
		cs, _ := b.Parameter.Get("charset")
		assert.Equal(t, "koi8-r", cs)
	})
}
