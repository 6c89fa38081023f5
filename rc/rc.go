// Package rc interprets runtime configuration: it tokenizes rc lines,
// dispatches them through a command registry, and mutates a State that
// collects every user-visible setting — typed variables, header filters,
// mailing lists, mailboxes, aliases, scoring and display rules. Files are
// read through source with cycle detection and an error budget.
package rc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/neomutt/neomutt-sub017/buffer"
	"github.com/neomutt/neomutt-sub017/email"
	"github.com/neomutt/neomutt-sub017/regexlist"
	"github.com/neomutt/neomutt-sub017/token"
	"github.com/neomutt/neomutt-sub017/vars"
)

// Result is the outcome of running one rc command.
type Result int

const (
	Success Result = iota
	Warning
	Error
	// Finish stops reading the current file without error.
	Finish
)

func (r Result) String() string {
	switch r {
	case Success:
		return "success"
	case Warning:
		return "warning"
	case Error:
		return "error"
	default:
		return "finish"
	}
}

// Severity classifies a recorded ParseError.
type Severity int

const (
	SeverityWarning Severity = iota
	SeverityError
)

// ParseError is one problem found while interpreting configuration, with
// its origin when it came from a sourced file.
type ParseError struct {
	Severity Severity
	File     string
	Line     int
	Message  string
}

func (e ParseError) String() string {
	if e.File == "" {
		return e.Message
	}
	return fmt.Sprintf("%s:%d: %s", e.File, e.Line, e.Message)
}

// Shell runs a command line and returns its standard output. It backs
// backtick substitution and pipe sources.
type Shell func(command string) (string, error)

// Subscriber is the mailbox-subscription delegate behind subscribe-to and
// unsubscribe-from. The interpreter validates arguments; the transport
// lives elsewhere.
type Subscriber interface {
	Subscribe(ctx context.Context, mailbox string) error
	Unsubscribe(ctx context.Context, mailbox string) error
}

// TriBool is a boolean that also knows whether it was given at all.
type TriBool int8

const (
	TBUnset TriBool = iota - 1
	TBFalse
	TBTrue
)

// Mailbox is one entry from the mailboxes command.
type Mailbox struct {
	Path    string
	Label   string
	Notify  TriBool
	Poll    TriBool
	Visible bool
}

// Group is a named address group built by the group command and the
// -group flags of the list commands.
type Group struct {
	Name      string
	Regexes   regexlist.List
	Addresses email.AddressList
}

// Alias maps a short key to one or more addresses.
type Alias struct {
	Name      string
	Addresses email.AddressList
	Groups    []string
	Comment   string
}

// Score is one scoring rule. The pattern is stored verbatim; matching is
// the business of the pattern engine, not the interpreter.
type Score struct {
	Pattern string
	Value   int
	Exact   bool
}

// AttachMatch is one attachment-counting rule.
type AttachMatch struct {
	Major   string
	Minor   string
	minorRx *regexp.Regexp
}

// MatchesMinor reports whether a MIME subtype matches the rule.
func (a *AttachMatch) MatchesMinor(minor string) bool {
	return a.minorRx != nil && a.minorRx.MatchString(minor)
}

// State owns everything the configuration commands mutate.
type State struct {
	Vars *vars.Subset

	myVars  map[string]string
	myOrder []string

	Ignore   []string
	UnIgnore []string

	AlternativeOrder []string
	AutoView         []string
	HeaderOrder      []string
	MailToAllow      []string
	MimeLookup       []string

	SpamList      regexlist.ReplaceList
	NoSpamList    regexlist.List
	SubjectRxList regexlist.ReplaceList

	MailLists         regexlist.List
	UnMailLists       regexlist.List
	SubscribedLists   regexlist.List
	UnSubscribedLists regexlist.List
	Alternates        regexlist.List
	UnAlternates      regexlist.List

	UserHeader []string

	// TagFormats maps a format string to its tag; TagTransforms maps a
	// tag to its display replacement.
	TagFormats    map[string]string
	TagTransforms map[string]string

	Groups map[string]*Group

	Mailboxes []*Mailbox

	Aliases    map[string]*Alias
	aliasOrder []string

	Scores []Score

	AttachAllow   []*AttachMatch
	AttachExclude []*AttachMatch
	InlineAllow   []*AttachMatch
	InlineExclude []*AttachMatch

	// PendingSubscriptions records subscribe-to intents taken while no
	// Backend is configured.
	PendingSubscriptions []string

	Shell   Shell
	Backend Subscriber
	// BackendTimeout bounds one Subscribe/Unsubscribe call.
	BackendTimeout time.Duration

	// Out receives the output of echo, queries and help.
	Out io.Writer

	// Features are the build-feature names ifdef recognises.
	Features []string

	// Banner is what the version command prints.
	Banner string

	// Errors accumulates structured problems from sourced files.
	Errors []ParseError

	env      []string
	commands []*Command

	sourceStack []string
}

// NewState builds a State with the default command table, a copy of the
// process environment, and the given variable scope.
func NewState(sub *vars.Subset) *State {
	st := &State{
		Vars:           sub,
		myVars:         make(map[string]string),
		TagFormats:     make(map[string]string),
		TagTransforms:  make(map[string]string),
		Groups:         make(map[string]*Group),
		Aliases:        make(map[string]*Alias),
		Out:            os.Stdout,
		Banner:         "neomutt-sub017",
		BackendTimeout: 30 * time.Second,
		env:            os.Environ(),
	}
	st.registerDefaults()
	return st
}

// MyVar reads a user variable.
func (st *State) MyVar(name string) (string, bool) {
	v, ok := st.myVars[name]
	return v, ok
}

// MyVarSet creates or replaces a user variable, preserving first-set
// order for dumps.
func (st *State) MyVarSet(name, value string) {
	if _, ok := st.myVars[name]; !ok {
		st.myOrder = append(st.myOrder, name)
	}
	st.myVars[name] = value
}

// MyVarDelete removes a user variable.
func (st *State) MyVarDelete(name string) {
	if _, ok := st.myVars[name]; !ok {
		return
	}
	delete(st.myVars, name)
	for i, n := range st.myOrder {
		if n == name {
			st.myOrder = append(st.myOrder[:i], st.myOrder[i+1:]...)
			break
		}
	}
}

// MyVarNames returns user variable names in first-set order.
func (st *State) MyVarNames() []string {
	names := make([]string, len(st.myOrder))
	copy(names, st.myOrder)
	return names
}

// Getenv reads the interpreter's private environment.
func (st *State) Getenv(name string) (string, bool) {
	prefix := name + "="
	for _, kv := range st.env {
		if strings.HasPrefix(kv, prefix) {
			return kv[len(prefix):], true
		}
	}
	return "", false
}

// Setenv writes the interpreter's private environment.
func (st *State) Setenv(name, value string) {
	prefix := name + "="
	for i, kv := range st.env {
		if strings.HasPrefix(kv, prefix) {
			st.env[i] = prefix + value
			return
		}
	}
	st.env = append(st.env, prefix+value)
}

// Unsetenv removes a variable, reporting whether it was present.
func (st *State) Unsetenv(name string) bool {
	prefix := name + "="
	for i, kv := range st.env {
		if strings.HasPrefix(kv, prefix) {
			st.env = append(st.env[:i], st.env[i+1:]...)
			return true
		}
	}
	return false
}

// Environ returns the interpreter's environment entries.
func (st *State) Environ() []string {
	env := make([]string, len(st.env))
	copy(env, st.env)
	return env
}

// group returns the named address group, creating it on first use.
func (st *State) group(name string) *Group {
	g, ok := st.Groups[name]
	if !ok {
		g = &Group{Name: name}
		st.Groups[name] = g
	}
	return g
}

// varGetter feeds $name expansion in the tokenizer. Configuration
// variables, including my_ variables, win over the environment.
type varGetter struct{ st *State }

func (g varGetter) StringGet(name string) (string, bool) {
	if strings.HasPrefix(name, "my_") {
		return g.st.MyVar(name)
	}
	s, _, err := g.st.Vars.StringGet(name)
	if err != nil {
		return "", false
	}
	return s, true
}

type envGetter struct{ st *State }

func (g envGetter) Getenv(name string) (string, bool) { return g.st.Getenv(name) }

type shellRunner struct{ st *State }

var errNoShell = errors.New("no shell configured")

func (r shellRunner) Run(command string) (string, error) {
	if r.st.Shell == nil {
		return "", errNoShell
	}
	return r.st.Shell(command)
}

// extract pulls one token off line with the State's expansion hooks.
// Whitespace around the token is consumed, so after a call the cursor sits
// on the next argument (or the terminator).
func (st *State) extract(dest, line *buffer.Buffer, flags token.Flags) error {
	x := token.Extractor{Vars: varGetter{st}, Env: envGetter{st}, Shell: shellRunner{st}}
	token.SkipWhitespace(line)
	if err := x.Extract(dest, line, flags); err != nil {
		return err
	}
	token.SkipWhitespace(line)
	return nil
}

// expandPath applies folder shortcuts and tilde expansion to a path
// argument.
func (st *State) expandPath(s string) string {
	return st.Vars.ExpandMailbox(s)
}

// message writes informational command output.
func (st *State) message(format string, args ...any) {
	if st.Out != nil {
		fmt.Fprintf(st.Out, format+"\n", args...)
	}
}
