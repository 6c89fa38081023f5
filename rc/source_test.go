package rc

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neomutt/neomutt-sub017/buffer"
	"github.com/neomutt/neomutt-sub017/consts"
)

func writeRc(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func sourceFile(t *testing.T, st *State, path string) (int, string) {
	t.Helper()
	err := buffer.Get()
	defer buffer.Release(err)
	rc := st.Source(path, err)
	return rc, err.String()
}

func TestSourceSuccess(t *testing.T) {
	st := testState(t)
	path := writeRc(t, t.TempDir(), "muttrc", `
# comment
set beep
set history=20
ignore received
`)
	rc, msg := sourceFile(t, st, path)
	assert.Equal(t, 0, rc, msg)
	assert.True(t, st.Vars.Bool("beep"))
	assert.Equal(t, 20, st.Vars.Number("history"))
	assert.Empty(t, st.Errors)
}

func TestSourceWarnings(t *testing.T) {
	st := testState(t)
	path := writeRc(t, t.TempDir(), "muttrc", "set beep\nfinish extra\n")
	rc, msg := sourceFile(t, st, path)
	assert.Equal(t, -2, rc)
	assert.Equal(t, fmt.Sprintf("source: 1 warning in %s", path), msg)
	require.Len(t, st.Errors, 1)
	assert.Equal(t, SeverityWarning, st.Errors[0].Severity)
	assert.Equal(t, 2, st.Errors[0].Line)
}

func TestSourceWarningsPlural(t *testing.T) {
	st := testState(t)
	path := writeRc(t, t.TempDir(), "muttrc", "my_hdr broken\nmy_hdr alsobroken\n")
	rc, msg := sourceFile(t, st, path)
	assert.Equal(t, -2, rc)
	assert.Equal(t, fmt.Sprintf("source: 2 warnings in %s", path), msg)
}

func TestSourceErrors(t *testing.T) {
	st := testState(t)
	path := writeRc(t, t.TempDir(), "muttrc", "set xyzzy=1\nset beep\n")
	rc, msg := sourceFile(t, st, path)
	assert.Equal(t, -1, rc)
	assert.Equal(t, fmt.Sprintf("source: errors in %s", path), msg)
	require.Len(t, st.Errors, 1)
	assert.Equal(t, SeverityError, st.Errors[0].Severity)
	assert.Equal(t, "Unknown option xyzzy", st.Errors[0].Message)
	assert.Equal(t, 1, st.Errors[0].Line)

	// Later lines still run.
	assert.True(t, st.Vars.Bool("beep"))
}

func TestSourceMissingFile(t *testing.T) {
	st := testState(t)
	rc, msg := sourceFile(t, st, filepath.Join(t.TempDir(), "nope"))
	assert.Equal(t, -1, rc)
	assert.Contains(t, msg, "nope")
}

func TestSourceCycle(t *testing.T) {
	st := testState(t)
	dir := t.TempDir()
	path := writeRc(t, dir, "a.rc", "source a.rc\n")

	rc, msg := sourceFile(t, st, path)
	assert.Equal(t, -1, rc)
	assert.Equal(t, fmt.Sprintf("source: errors in %s", path), msg)

	// The offending line's error keeps the cyclic diagnostic; the
	// generic "could not be sourced" text must not replace it.
	require.Len(t, st.Errors, 1)
	e := st.Errors[0]
	assert.Equal(t, SeverityError, e.Severity)
	assert.Contains(t, e.Message, "Cyclic sourcing of configuration file")
	assert.Contains(t, e.Message, "a.rc")
	assert.Equal(t, 1, e.Line)
}

func TestSourceMutualCycle(t *testing.T) {
	st := testState(t)
	dir := t.TempDir()
	writeRc(t, dir, "b.rc", "source a.rc\n")
	path := writeRc(t, dir, "a.rc", "source b.rc\n")

	rc, _ := sourceFile(t, st, path)
	assert.Equal(t, -1, rc)

	found := false
	for _, e := range st.Errors {
		if strings.Contains(e.Message, "Cyclic sourcing") {
			found = true
		}
	}
	assert.True(t, found, "cycle must surface its diagnostic: %v", st.Errors)
}

func TestSourceNestedRelativePaths(t *testing.T) {
	st := testState(t)
	dir := t.TempDir()
	sub := filepath.Join(dir, "conf.d")
	require.NoError(t, os.Mkdir(sub, 0o755))

	// Relative paths resolve against the sourcing file's directory.
	writeRc(t, sub, "colors.rc", "set history=77\n")
	path := writeRc(t, dir, "muttrc", "source conf.d/colors.rc\n")

	rc, msg := sourceFile(t, st, path)
	assert.Equal(t, 0, rc, msg)
	assert.Equal(t, 77, st.Vars.Number("history"))
}

func TestSourceFinishStopsFile(t *testing.T) {
	st := testState(t)
	path := writeRc(t, t.TempDir(), "muttrc", "set history=5\nfinish\nset history=99\n")
	rc, _ := sourceFile(t, st, path)
	assert.Equal(t, 0, rc)
	assert.Equal(t, 5, st.Vars.Number("history"))
}

func TestSourceFinishOnlyUnwindsOneFile(t *testing.T) {
	st := testState(t)
	dir := t.TempDir()
	writeRc(t, dir, "inner.rc", "finish\nset history=99\n")
	path := writeRc(t, dir, "muttrc", "source inner.rc\nset history=7\n")

	rc, _ := sourceFile(t, st, path)
	assert.Equal(t, 0, rc)
	assert.Equal(t, 7, st.Vars.Number("history"), "finish stops the inner file only")
}

func TestSourceLineContinuation(t *testing.T) {
	st := testState(t)
	path := writeRc(t, t.TempDir(), "muttrc", "set history=21 \\\n beep\n")
	rc, msg := sourceFile(t, st, path)
	assert.Equal(t, 0, rc, msg)
	assert.Equal(t, 21, st.Vars.Number("history"))
	assert.True(t, st.Vars.Bool("beep"))
}

func TestSourceContinuationLineNumbers(t *testing.T) {
	st := testState(t)
	path := writeRc(t, t.TempDir(), "muttrc", "set history=1 \\\n\\\nxyzzy=2\n")
	rc, _ := sourceFile(t, st, path)
	assert.Equal(t, -1, rc)
	require.Len(t, st.Errors, 1)
	assert.Equal(t, 3, st.Errors[0].Line, "errors report the last physical line")
}

func TestSourcePipe(t *testing.T) {
	st := testState(t)
	st.Shell = func(cmd string) (string, error) {
		assert.Equal(t, "generate-config", cmd)
		return "set history=55\nset beep\n", nil
	}

	err := buffer.Get()
	defer buffer.Release(err)
	rc := st.Source("generate-config|", err)
	assert.Equal(t, 0, rc, err.String())
	assert.Equal(t, 55, st.Vars.Number("history"))
	assert.True(t, st.Vars.Bool("beep"))
}

func TestSourcePipeWithoutShell(t *testing.T) {
	st := testState(t)
	err := buffer.Get()
	defer buffer.Release(err)
	rc := st.Source("generate-config|", err)
	assert.Equal(t, -1, rc)
}

func TestSourceTooManyErrors(t *testing.T) {
	st := testState(t)
	content := ""
	for i := 0; i <= consts.MaxSourceErrs+10; i++ {
		content += "set xyzzy=1\n"
	}
	path := writeRc(t, t.TempDir(), "muttrc", content)

	rc, msg := sourceFile(t, st, path)
	assert.Equal(t, -1, rc)
	assert.Equal(t, fmt.Sprintf("source: reading aborted due to too many errors in %s", path), msg)
	assert.Len(t, st.Errors, consts.MaxSourceErrs+1)
}

func TestSourceCommand(t *testing.T) {
	st := testState(t)
	path := writeRc(t, t.TempDir(), "extra.rc", "set history=88\n")
	run(t, st, "source "+path)
	assert.Equal(t, 88, st.Vars.Number("history"))

	res, msg := st.RunLine("source")
	assert.Equal(t, Warning, res)
	assert.Equal(t, "source: too few arguments", msg)

	// The open error is more specific than "could not be sourced" and
	// survives as the command's message.
	res, msg = st.RunLine("source /does/not/exist.rc")
	assert.Equal(t, Error, res)
	assert.Contains(t, msg, "/does/not/exist.rc")
}

func TestSourceConfigCharset(t *testing.T) {
	st := testState(t)
	run(t, st, "set config_charset=iso-8859-1")

	// "café" in Latin-1: caf\xe9.
	dir := t.TempDir()
	path := writeRc(t, dir, "latin1.rc", "set attribution=\"caf\xe9\"\n")
	rc, msg := sourceFile(t, st, path)
	assert.Equal(t, 0, rc, msg)
	assert.Equal(t, "café", st.Vars.String("attribution"))
}
