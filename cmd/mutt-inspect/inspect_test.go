package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neomutt/neomutt-sub017/email"
	"github.com/neomutt/neomutt-sub017/expando"
	"github.com/neomutt/neomutt-sub017/rfc2047"
	"github.com/neomutt/neomutt-sub017/vardefs"
)

const sampleMessage = "From: Alice Example <alice@example.com>\n" +
	"To: bob@example.com\n" +
	"Subject: =?utf-8?Q?Caf=C3=A9?= plans\n" +
	"Date: Mon, 23 Jun 2025 10:00:00 +0000\n" +
	"Message-ID: <1@example.com>\n" +
	"MIME-Version: 1.0\n" +
	"Content-Type: multipart/mixed; boundary=\"XX\"\n" +
	"\n" +
	"--XX\n" +
	"Content-Type: text/plain; charset=us-ascii\n" +
	"\n" +
	"Hello.\n" +
	"--XX\n" +
	"Content-Type: text/html; charset=us-ascii\n" +
	"Content-Transfer-Encoding: quoted-printable\n" +
	"\n" +
	"<p>Hi=20there</p>\n" +
	"--XX--\n"

func testInspector(out *bytes.Buffer) *inspector {
	return &inspector{
		opt:     &email.ParseOptions{RFC2047: rfc2047.Options{Charset: "utf-8"}},
		maxCols: 80,
		out:     out,
	}
}

func TestInspectPrintsEnvelopeAndTree(t *testing.T) {
	var out bytes.Buffer
	ins := testInspector(&out)

	err := ins.Inspect(bytes.NewReader([]byte(sampleMessage)), 1)
	require.NoError(t, err)

	s := out.String()
	assert.Contains(t, s, "From: Alice Example <alice@example.com>")
	assert.Contains(t, s, "Subject: Café plans")
	assert.Contains(t, s, "Flags: [N]")
	assert.Contains(t, s, "multipart/mixed")
	assert.Contains(t, s, "text/plain [7bit] charset=us-ascii")
	assert.Contains(t, s, "text/html [quoted-printable]")
}

func TestInspectDigest(t *testing.T) {
	var out bytes.Buffer
	ins := testInspector(&out)
	ins.digest = true

	require.NoError(t, ins.Inspect(bytes.NewReader([]byte(sampleMessage)), 1))

	var leaves int
	for _, line := range strings.Split(out.String(), "\n") {
		if i := strings.Index(line, "blake3="); i >= 0 {
			leaves++
			assert.Len(t, line[i+len("blake3="):], 64)
		}
	}
	assert.Equal(t, 2, leaves, "both leaf parts carry a digest")
}

func TestInspectRenderHTML(t *testing.T) {
	var out bytes.Buffer
	ins := testInspector(&out)
	ins.render = true

	require.NoError(t, ins.Inspect(bytes.NewReader([]byte(sampleMessage)), 1))
	assert.Contains(t, out.String(), "Hi there", "quoted-printable HTML renders as text")
}

func TestInspectFormatLine(t *testing.T) {
	exp, err := expando.Parse("%4C %-10.10a %s", vardefs.IndexDefs)
	require.NoError(t, err)

	var out bytes.Buffer
	ins := testInspector(&out)
	ins.format = exp

	require.NoError(t, ins.Inspect(bytes.NewReader([]byte(sampleMessage)), 7))
	line := strings.TrimRight(out.String(), "\n")
	assert.True(t, strings.HasPrefix(line, "   7 "), line)
	assert.Contains(t, line, "Alice Exam")
	assert.Contains(t, line, "Café plans")
}

func TestDecodeTransfer(t *testing.T) {
	out, err := decodeTransfer([]byte("aGVs\nbG8="), email.EncBase64)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(out))

	out, err = decodeTransfer([]byte("caf=C3=A9"), email.EncQuotedPrintable)
	require.NoError(t, err)
	assert.Equal(t, "café", string(out))

	out, err = decodeTransfer([]byte("as-is"), email.Enc7Bit)
	require.NoError(t, err)
	assert.Equal(t, "as-is", string(out))
}

func TestPrettySize(t *testing.T) {
	assert.Equal(t, "512", prettySize(512))
	assert.Equal(t, "1.5K", prettySize(1536))
	assert.Equal(t, "2.0M", prettySize(2*1024*1024))
}

func TestAuthorOrList(t *testing.T) {
	env := email.NewEnvelope()
	env.From.Parse2("Carol <carol@example.com>")
	assert.Equal(t, "Carol", authorOrList(env))

	env.ListPost = "mailto:dev@lists.example.com?subject=post"
	assert.Equal(t, "To dev", authorOrList(env))
}

func TestHandleParse(t *testing.T) {
	var out bytes.Buffer
	ins := testInspector(&out)
	ins.digest = true
	router := newRouter(ins)

	req := httptest.NewRequest(http.MethodPost, "/parse", strings.NewReader(sampleMessage))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp parseResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Café plans", resp.Envelope.Subject)
	assert.Equal(t, "<1@example.com>", resp.Envelope.MessageID)
	assert.Equal(t, "multipart", resp.Body.Type)
	require.Len(t, resp.Body.Parts, 2)
	assert.Equal(t, "plain", resp.Body.Parts[0].Subtype)
	assert.NotEmpty(t, resp.Body.Parts[0].Digest)
}

func TestHandleParseRejectsGarbage(t *testing.T) {
	ins := testInspector(&bytes.Buffer{})
	router := newRouter(ins)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
