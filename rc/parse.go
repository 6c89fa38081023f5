package rc

import (
	"strings"

	"github.com/neomutt/neomutt-sub017/buffer"
	"github.com/neomutt/neomutt-sub017/pkg/metrics"
	"github.com/neomutt/neomutt-sub017/token"
)

const docsBase = "https://neomutt.org/guide/"

// ParseLine interprets one line of configuration. A line may hold several
// commands separated by ';'; a '#' starts a comment running to the end of
// the line. Processing stops at the first command that does not succeed,
// and err then holds its message.
func (st *State) ParseLine(line, err *buffer.Buffer) Result {
	tok := buffer.Get()
	defer buffer.Release(tok)

	res := Success
	for !line.EOS() {
		token.SkipWhitespace(line)
		ch := line.Peek()
		if ch == 0 || ch == '#' {
			break
		}
		if ch == ';' {
			line.Advance(1)
			continue
		}

		if e := st.extract(tok, line, token.NoFlags); e != nil {
			err.Printf("%s", e.Error())
			return Error
		}
		name := tok.String()
		if name == "" {
			continue
		}

		// A trailing '?' asks for help on the command instead of running it.
		if strings.HasSuffix(name, "?") && len(name) > 1 {
			res = st.printHelp(strings.TrimSuffix(name, "?"), err)
			if res != Success {
				return res
			}
			st.skipCommand(tok, line)
			continue
		}

		cmd := st.LookupCommand(name)
		if cmd == nil {
			err.Printf("%s: unknown command", name)
			metrics.RcCommands.WithLabelValues(name, Error.String()).Inc()
			return Error
		}

		res = cmd.Parse(st, cmd, line, err)
		metrics.RcCommands.WithLabelValues(cmd.Name, res.String()).Inc()
		if res != Success {
			return res
		}
	}
	return res
}

// RunLine is a convenience wrapper around ParseLine for callers holding a
// plain string. It returns the result and any message produced.
func (st *State) RunLine(s string) (Result, string) {
	line := buffer.NewString(s)
	err := buffer.Get()
	defer buffer.Release(err)
	res := st.ParseLine(line, err)
	return res, err.String()
}

// printHelp writes a command's help text, usage and manual link.
func (st *State) printHelp(name string, err *buffer.Buffer) Result {
	cmd := st.LookupCommand(name)
	if cmd == nil {
		err.Printf("%s: unknown command", name)
		return Error
	}
	st.message("%s: %s", cmd.Name, cmd.Help)
	if cmd.Usage != "" {
		st.message("usage: %s", cmd.Usage)
	}
	if cmd.DocsURL != "" {
		st.message("%s%s", docsBase, cmd.DocsURL)
	}
	return Success
}

// skipCommand discards the arguments of the current command so the loop
// can pick up at the next ';'.
func (st *State) skipCommand(tok, line *buffer.Buffer) {
	for token.MoreArgs(line) {
		if st.extract(tok, line, token.NoFlags) != nil {
			return
		}
	}
}
