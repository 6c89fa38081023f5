// Package token extracts shell-style tokens from command lines. It handles
// single and double quoting, backslash escapes, control-character notation,
// backtick command substitution and $variable interpolation.
package token

import (
	"errors"
	"strings"

	"github.com/neomutt/neomutt-sub017/buffer"
)

// Flags change which characters terminate a token and which expansions run.
type Flags uint16

const (
	NoFlags      Flags = 0
	Equal        Flags = 1 << 0 // treat '=' as a token terminator
	Condense     Flags = 1 << 1 // ^x becomes a control character
	Space        Flags = 1 << 2 // whitespace does not terminate the token
	Quote        Flags = 1 << 3 // quote characters are kept literally
	Pattern      Flags = 1 << 4 // ~%=!| terminate the token
	Comment      Flags = 1 << 5 // '#' does not terminate the token
	Semicolon    Flags = 1 << 6 // ';' does not terminate the token
	BacktickVars Flags = 1 << 7 // expand variables inside backticks
	NoShell      Flags = 1 << 8 // do not consult the process environment
	Question     Flags = 1 << 9 // treat '?' as a token terminator
	Plus         Flags = 1 << 10
	Minus        Flags = 1 << 11
)

var (
	ErrPrematureEnd  = errors.New("premature end of token")
	ErrBacktickImbal = errors.New("mismatched backticks")
	ErrSubstitution  = errors.New("command substitution failed")
)

const patternSpecials = "~%=!|"

// VarGetter resolves configuration variables during $name expansion.
// Configuration takes precedence over the process environment.
type VarGetter interface {
	StringGet(name string) (string, bool)
}

// EnvGetter resolves environment variables during $name expansion.
type EnvGetter interface {
	Getenv(name string) (string, bool)
}

// CommandRunner executes a backtick command and returns the first line of
// its standard output.
type CommandRunner interface {
	Run(command string) (string, error)
}

// Extractor pulls tokens off a command line. Any of the three collaborators
// may be nil, which disables the corresponding expansion.
type Extractor struct {
	Vars  VarGetter
	Env   EnvGetter
	Shell CommandRunner
}

// MoreArgs reports whether the line still has arguments before a comment or
// command separator.
func MoreArgs(b *buffer.Buffer) bool {
	c := b.Peek()
	return c != 0 && c != ';' && c != '#'
}

// SkipWhitespace advances the cursor past spaces and tabs.
func SkipWhitespace(b *buffer.Buffer) {
	for {
		c := b.Peek()
		if c != ' ' && c != '\t' {
			return
		}
		b.Advance(1)
	}
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\v' || c == '\f'
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isAlpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isAlnum(c byte) bool { return isAlpha(c) || isDigit(c) }

func hexVal(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}

func toUpper(c byte) byte {
	if c >= 'a' && c <= 'z' {
		return c - 'a' + 'A'
	}
	return c
}

// Extract reads one token from tok into dest, advancing tok's cursor past
// the consumed text. dest is reset first. Terminators depend on flags: by
// default whitespace, '#' and ';' end a token; Equal, Question, Plus, Minus
// and Pattern add further terminators, all of which are left unconsumed.
func (x *Extractor) Extract(dest, tok *buffer.Buffer, flags Flags) error {
	dest.Reset()

	var qc byte // quote character, 0 when unquoted
	for {
		ch := tok.Peek()
		if ch == 0 {
			break
		}

		if qc == 0 {
			if (isSpace(ch) && flags&Space == 0) ||
				(ch == '#' && flags&Comment == 0) ||
				(ch == '+' && flags&Plus != 0) ||
				(ch == '-' && flags&Minus != 0) ||
				(ch == '=' && flags&Equal != 0) ||
				(ch == '?' && flags&Question != 0) ||
				(ch == ';' && flags&Semicolon == 0) ||
				(flags&Pattern != 0 && strings.IndexByte(patternSpecials, ch) >= 0) {
				break
			}
		}

		tok.Advance(1)

		switch {
		case ch == qc:
			qc = 0

		case qc == 0 && (ch == '\'' || ch == '"') && flags&Quote == 0:
			qc = ch

		case ch == '\\' && qc != '\'':
			if tok.EOS() {
				return ErrPrematureEnd
			}
			if err := x.escape(dest, tok); err != nil {
				return err
			}

		case ch == '^' && flags&Condense != 0:
			if tok.EOS() {
				return ErrPrematureEnd
			}
			condense(dest, tok)

		case ch == '`' && (qc == 0 || qc == '"'):
			if err := x.backtick(dest, tok, flags, qc); err != nil {
				return err
			}

		case ch == '$' && (qc == 0 || qc == '"') &&
			(tok.Peek() == '{' || isAlpha(tok.Peek())):
			x.variable(dest, tok, flags)

		default:
			dest.AddByte(ch)
		}
	}

	return nil
}

// escape handles a backslash sequence. The backslash itself has been
// consumed; the cursor sits on the escape letter.
func (x *Extractor) escape(dest, tok *buffer.Buffer) error {
	ch := tok.Next()
	switch ch {
	case 'c', 'C':
		if tok.EOS() {
			return ErrPrematureEnd
		}
		dest.AddByte((toUpper(tok.Next()) - '@') & 0x7f)
	case 'e':
		dest.AddByte('\033')
	case 'f':
		dest.AddByte('\f')
	case 'n':
		dest.AddByte('\n')
	case 'r':
		dest.AddByte('\r')
	case 't':
		dest.AddByte('\t')
	case 'x':
		hi, ok1 := hexVal(tok.Peek())
		lo, ok2 := hexVal(tok.PeekAt(1))
		if ok1 && ok2 {
			dest.AddByte(hi<<4 | lo)
			tok.Advance(2)
		} else {
			dest.AddByte(ch)
		}
	default:
		if isDigit(ch) && isDigit(tok.Peek()) && isDigit(tok.PeekAt(1)) {
			n := int(ch)<<6 + int(tok.Peek())<<3 + int(tok.PeekAt(1)) - 3504
			dest.AddByte(byte(n))
			tok.Advance(2)
		} else {
			dest.AddByte(ch)
		}
	}
	return nil
}

// condense handles ^x notation: ^^ is a caret, ^[ is escape, ^A..^Z are
// control characters, anything else is kept as-is.
func condense(dest, tok *buffer.Buffer) {
	ch := tok.Next()
	switch {
	case ch == '^':
		dest.AddByte(ch)
	case ch == '[':
		dest.AddByte('\033')
	case isAlpha(ch):
		dest.AddByte(toUpper(ch) - '@')
	default:
		dest.AddByte('^')
		dest.AddByte(ch)
	}
}

// backtick runs a command substitution. The opening backtick has been
// consumed; the cursor sits on the first command byte.
func (x *Extractor) backtick(dest, tok *buffer.Buffer, flags Flags, qc byte) error {
	// Find the closing backtick, skipping escaped characters.
	rest := tok.Rest()
	end := -1
	for i := 0; i < len(rest); i++ {
		if rest[i] == '\\' {
			i++
			continue
		}
		if rest[i] == '`' {
			end = i
			break
		}
	}
	if end < 0 {
		return ErrBacktickImbal
	}

	cmdText := rest[:end]
	if flags&BacktickVars != 0 {
		// Interpolate variables inside the command before running it.
		cmdTok := buffer.NewString(cmdText)
		cmdBuf := buffer.Get()
		defer buffer.Release(cmdBuf)
		err := x.Extract(cmdBuf, cmdTok, Quote|Space|Comment|Semicolon|NoShell)
		if err != nil {
			return err
		}
		cmdText = cmdBuf.String()
	}

	tok.Advance(end + 1)

	if x.Shell == nil {
		return nil
	}
	out, err := x.Shell.Run(cmdText)
	if err != nil {
		return ErrSubstitution
	}
	if out == "" {
		return nil
	}

	if qc != 0 {
		// Inside a quoted string the output joins the token directly.
		dest.AddString(out)
		return nil
	}

	// Splice the output in front of the unconsumed input so it is itself
	// subject to tokenization.
	remainder := tok.Rest()
	tok.SetString(out + remainder)
	tok.Seek(0)
	return nil
}

// variable expands $name or ${name}. Configuration variables win over
// environment variables; NoShell suppresses the environment fallback and
// keeps ${name} references verbatim. A name neither form resolves stays
// in the token as literal text.
func (x *Extractor) variable(dest, tok *buffer.Buffer, flags Flags) {
	var name string
	if tok.Peek() == '{' {
		rest := tok.Rest()
		end := strings.IndexByte(rest, '}')
		if end < 0 {
			// No closing brace: the dollar is dropped and the brace text
			// passes through on later iterations.
			return
		}
		name = rest[1:end]
		tok.Advance(end + 1)
		if flags&NoShell != 0 {
			// Keep the reference untouched for a later expansion pass.
			dest.AddString("${")
			dest.AddString(name)
			dest.AddByte('}')
			return
		}
	} else {
		start := tok.Cursor()
		for isAlnum(tok.Peek()) || tok.Peek() == '_' {
			tok.Advance(1)
		}
		name = tok.String()[start:tok.Cursor()]
	}
	if name == "" {
		return
	}

	if x.Vars != nil {
		if val, ok := x.Vars.StringGet(name); ok {
			dest.AddString(val)
			return
		}
	}
	if flags&NoShell == 0 && x.Env != nil {
		if val, ok := x.Env.Getenv(name); ok {
			dest.AddString(val)
			return
		}
	}

	// Unresolvable: the name stays, without braces.
	dest.AddByte('$')
	dest.AddString(name)
}
