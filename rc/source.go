package rc

import (
	"bufio"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/neomutt/neomutt-sub017/buffer"
	"github.com/neomutt/neomutt-sub017/charset"
	"github.com/neomutt/neomutt-sub017/consts"
	"github.com/neomutt/neomutt-sub017/logger"
	"github.com/neomutt/neomutt-sub017/pkg/metrics"
	"github.com/neomutt/neomutt-sub017/token"
)

// lineReader yields logical rc lines: a trailing backslash joins the next
// physical line, and the reported line number is that of the last physical
// line consumed.
type lineReader struct {
	sc     *bufio.Scanner
	lineno int
}

func newLineReader(r io.Reader) *lineReader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &lineReader{sc: sc}
}

func (lr *lineReader) next() (string, bool) {
	var out strings.Builder
	joined := false
	for lr.sc.Scan() {
		lr.lineno++
		l := strings.TrimSuffix(lr.sc.Text(), "\r")
		if strings.HasSuffix(l, `\`) && !strings.HasSuffix(l, `\\`) {
			out.WriteString(l[:len(l)-1])
			joined = true
			continue
		}
		out.WriteString(l)
		return out.String(), true
	}
	if joined {
		return out.String(), true
	}
	return "", false
}

// resolveSourcePath makes a relative rc path absolute against the directory
// of the file currently being sourced, or the working directory at the
// bottom of the stack.
func (st *State) resolveSourcePath(path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	if len(st.sourceStack) > 0 {
		top := st.sourceStack[len(st.sourceStack)-1]
		return filepath.Clean(filepath.Join(filepath.Dir(top), path))
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return abs
}

// openSource returns the file's content, running a trailing-'|' path as a
// shell command instead.
func (st *State) openSource(path string, isPipe bool) (io.Reader, error) {
	if isPipe {
		if st.Shell == nil {
			return nil, errNoShell
		}
		out, err := st.Shell(strings.TrimSuffix(path, "|"))
		if err != nil {
			return nil, err
		}
		return strings.NewReader(out), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(data), nil
}

// Source reads an rc file, interpreting every line. It returns 0 on
// success, -1 when errors occurred (err holds a summary) and -2 when there
// were only warnings. A path ending in '|' is run as a command and its
// output interpreted.
func (st *State) Source(path string, err *buffer.Buffer) int {
	if path == "" {
		return -1
	}
	isPipe := strings.HasSuffix(path, "|")

	rcfile := path
	if !isPipe {
		rcfile = st.resolveSourcePath(path)
		for _, p := range st.sourceStack {
			if p == rcfile {
				// The enclosing Source loop records this into st.Errors;
				// cmdSource must leave the message intact on the way up.
				err.Printf("Error: Cyclic sourcing of configuration file '%s'", rcfile)
				metrics.RcSourceFiles.WithLabelValues("error").Inc()
				return -1
			}
		}
		st.sourceStack = append(st.sourceStack, rcfile)
		defer func() { st.sourceStack = st.sourceStack[:len(st.sourceStack)-1] }()
	}

	src, e := st.openSource(rcfile, isPipe)
	if e != nil {
		err.Printf("%s: %s", rcfile, e.Error())
		metrics.RcSourceFiles.WithLabelValues("error").Inc()
		return -1
	}

	logger.Debug("reading configuration file", "path", rcfile)

	configCharset := st.Vars.String("config_charset")
	localCharset := st.Vars.String("charset")
	conv := configCharset != "" && localCharset != ""

	lineBuf := buffer.Get()
	lineErr := buffer.Get()
	defer buffer.Release(lineBuf)
	defer buffer.Release(lineErr)

	errs := 0
	warnings := 0
	aborted := false
	done := false

	lr := newLineReader(src)
	for !done {
		line, ok := lr.next()
		if !ok {
			break
		}
		if conv {
			if converted, _, cerr := charset.Convert(line, configCharset, localCharset, charset.NoFlags); cerr == nil {
				line = converted
			}
		}

		lineBuf.SetString(line)
		lineBuf.Seek(0)
		lineErr.Reset()

		switch st.ParseLine(lineBuf, lineErr) {
		case Error:
			logger.Error("configuration error", "file", rcfile, "line", lr.lineno, "message", lineErr.String())
			st.Errors = append(st.Errors, ParseError{
				Severity: SeverityError, File: rcfile, Line: lr.lineno, Message: lineErr.String(),
			})
			metrics.RcParseErrors.Inc()
			errs++
			if errs > consts.MaxSourceErrs {
				aborted = true
				done = true
			}
		case Warning:
			logger.Warn("configuration warning", "file", rcfile, "line", lr.lineno, "message", lineErr.String())
			st.Errors = append(st.Errors, ParseError{
				Severity: SeverityWarning, File: rcfile, Line: lr.lineno, Message: lineErr.String(),
			})
			warnings++
		case Finish:
			done = true
		}
	}

	if errs > 0 {
		if aborted {
			err.Printf("source: reading aborted due to too many errors in %s", rcfile)
		} else {
			err.Printf("source: errors in %s", rcfile)
		}
		metrics.RcSourceFiles.WithLabelValues("error").Inc()
		return -1
	}
	if warnings > 0 {
		if warnings == 1 {
			err.Printf("source: %d warning in %s", warnings, rcfile)
		} else {
			err.Printf("source: %d warnings in %s", warnings, rcfile)
		}
		metrics.RcSourceFiles.WithLabelValues("warning").Inc()
		return -2
	}
	metrics.RcSourceFiles.WithLabelValues("success").Inc()
	return 0
}

// cmdSource implements the source command.
func cmdSource(st *State, cmd *Command, line, err *buffer.Buffer) Result {
	if !token.MoreArgs(line) {
		err.Printf("%s: too few arguments", cmd.Name)
		return Warning
	}

	tok := buffer.Get()
	defer buffer.Release(tok)

	for token.MoreArgs(line) {
		if e := st.extract(tok, line, token.BacktickVars); e != nil {
			err.Printf("source: error at %s", line.Rest())
			return Error
		}
		path := st.expandPath(tok.String())
		if st.Source(path, err) < 0 {
			// Source puts the specific diagnostic in err; only fill in
			// the generic one when it left nothing.
			if err.IsEmpty() {
				err.Printf("source: file %s could not be sourced", path)
			}
			return Error
		}
	}
	return Success
}
