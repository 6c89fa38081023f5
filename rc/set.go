package rc

import (
	"errors"
	"fmt"
	"strings"

	"github.com/neomutt/neomutt-sub017/buffer"
	"github.com/neomutt/neomutt-sub017/token"
	"github.com/neomutt/neomutt-sub017/vars"
)

// cmdSet is the shared parser behind set, toggle, unset and reset. The
// op in cmd.Data selects the default action; for plain set the prefixes
// '?', "no", "inv" and '&' and the operators '=', '+=', '-=' and '?'
// refine it per variable name.
func cmdSet(st *State, cmd *Command, line, err *buffer.Buffer) Result {
	op := cmd.Data.(setOp)

	tok := buffer.Get()
	defer buffer.Release(tok)

	for {
		prefix := false
		query := false
		inv := op == opToggle
		reset := op == opReset
		unset := op == opUnset

		rest := line.Rest()
		switch {
		case line.Peek() == '?':
			prefix = true
			query = true
			line.Advance(1)
		case strings.HasPrefix(rest, "no"):
			prefix = true
			unset = !unset
			line.Advance(2)
		case strings.HasPrefix(rest, "inv"):
			prefix = true
			inv = !inv
			line.Advance(3)
		case line.Peek() == '&':
			prefix = true
			reset = true
			line.Advance(1)
		}

		if prefix && op != opSet {
			err.Printf("Can't use 'inv', 'no', '&' or '?' with the '%s' command", setOpNames[op])
			return Warning
		}

		if e := st.extract(tok, line, token.Equal|token.Question|token.Plus|token.Minus); e != nil {
			err.Printf("%s", e.Error())
			return Error
		}
		name := tok.String()
		isMy := strings.HasPrefix(name, "my_")

		boolOrQuad := false
		if !isMy {
			if def, ok := st.Vars.Set().Lookup(name); ok {
				// Use the real name when a synonym was given.
				name = def.Name
				boolOrQuad = def.Type == vars.TypeBool || def.Type == vars.TypeQuad
			}
		}

		equals := false
		increment := false
		decrement := false

		switch line.Peek() {
		case '?':
			if prefix {
				err.Printf("Can't use a prefix when querying a variable")
				return Warning
			}
			if reset || unset || inv {
				err.Printf("Can't query option with the '%s' command", setOpNames[op])
				return Warning
			}
			query = true
			line.Advance(1)

		case '+', '-':
			if prefix {
				err.Printf("Can't use prefix when incrementing or decrementing a variable")
				return Warning
			}
			if reset || unset || inv {
				err.Printf("Can't set option with the '%s' command", setOpNames[op])
				return Warning
			}
			if line.Peek() == '+' {
				increment = true
			} else {
				decrement = true
			}
			line.Advance(1)
			if line.Peek() != '=' {
				err.Printf("'+' and '-' must be followed by '='")
				return Warning
			}
			equals = true
			line.Advance(1)

		case '=':
			if prefix {
				err.Printf("Can't use prefix when setting a variable")
				return Warning
			}
			if reset || unset || inv {
				err.Printf("Can't set option with the '%s' command", setOpNames[op])
				return Warning
			}
			equals = true
			line.Advance(1)
		}

		if !boolOrQuad && (inv || (unset && prefix)) {
			if op == opSet {
				err.Printf("Prefixes 'no' and 'inv' may only be used with bool/quad variables")
			} else {
				err.Printf("Command '%s' can only be used with bool/quad variables", setOpNames[op])
			}
			return Warning
		}

		var res Result
		switch {
		case query:
			// Only one query even if further names follow.
			return st.setQuery(name, isMy, err)
		case reset:
			res = st.setReset(name, isMy, err)
		case unset:
			res = st.setUnset(name, isMy, err)
		case inv:
			res = st.setToggle(name, err)
		case equals:
			value := buffer.Get()
			if e := st.extract(value, line, token.BacktickVars); e != nil {
				buffer.Release(value)
				err.Printf("%s", e.Error())
				return Error
			}
			switch {
			case increment:
				res = st.setIncrement(name, isMy, value.String(), err)
			case decrement:
				res = st.setDecrement(name, isMy, value.String(), err)
			default:
				res = st.setAssign(name, isMy, value.String(), err)
			}
			buffer.Release(value)
		default:
			// Bare name: turn on a bool/quad, query anything else.
			if boolOrQuad {
				res = st.setAssign(name, false, "yes", err)
			} else {
				return st.setQuery(name, isMy, err)
			}
		}

		if res != Success {
			return res
		}
		if !token.MoreArgs(line) {
			return Success
		}
	}
}

// setErr translates a registry error into the conventional message.
func setErr(err *buffer.Buffer, name string, e error) Result {
	var unknown *vars.ErrUnknown
	if errors.As(e, &unknown) {
		err.Printf("Unknown option %s", name)
	} else {
		err.Printf("%s: %s", name, e.Error())
	}
	return Error
}

func (st *State) setAssign(name string, isMy bool, value string, err *buffer.Buffer) Result {
	if isMy {
		// User variables never expand their value.
		st.MyVarSet(name, value)
		return Success
	}
	if _, e := st.Vars.StringSet(name, value); e != nil {
		return setErr(err, name, e)
	}
	return Success
}

func (st *State) setIncrement(name string, isMy bool, value string, err *buffer.Buffer) Result {
	if isMy {
		old, _ := st.MyVar(name)
		st.MyVarSet(name, old+value)
		return Success
	}
	if _, e := st.Vars.PlusEquals(name, value); e != nil {
		return setErr(err, name, e)
	}
	return Success
}

func (st *State) setDecrement(name string, isMy bool, value string, err *buffer.Buffer) Result {
	if isMy {
		if _, ok := st.MyVar(name); !ok {
			err.Printf("Unknown option %s", name)
			return Error
		}
		err.Printf("%s: %s", name, vars.ErrNotImplemented.Error())
		return Error
	}
	if _, e := st.Vars.MinusEquals(name, value); e != nil {
		return setErr(err, name, e)
	}
	return Success
}

func (st *State) setUnset(name string, isMy bool, err *buffer.Buffer) Result {
	if isMy {
		if _, ok := st.MyVar(name); !ok {
			err.Printf("Unknown option %s", name)
			return Error
		}
		st.MyVarDelete(name)
		return Success
	}
	def, ok := st.Vars.Set().Lookup(name)
	if !ok {
		err.Printf("Unknown option %s", name)
		return Error
	}

	var e error
	switch def.Type {
	case vars.TypeBool, vars.TypeQuad:
		_, e = st.Vars.StringSet(name, "no")
	case vars.TypeNumber:
		_, e = st.Vars.NativeSet(name, 0)
	case vars.TypeLong:
		_, e = st.Vars.NativeSet(name, int64(0))
	default:
		_, e = st.Vars.StringSet(name, "")
	}
	if e != nil {
		return setErr(err, name, e)
	}
	return Success
}

func (st *State) setReset(name string, isMy bool, err *buffer.Buffer) Result {
	if name == "all" {
		st.Vars.ResetAll()
		for _, n := range st.MyVarNames() {
			st.MyVarDelete(n)
		}
		return Success
	}
	if isMy {
		if _, ok := st.MyVar(name); !ok {
			err.Printf("Unknown option %s", name)
			return Error
		}
		st.MyVarDelete(name)
		return Success
	}
	if _, e := st.Vars.Reset(name); e != nil {
		return setErr(err, name, e)
	}
	return Success
}

func (st *State) setToggle(name string, err *buffer.Buffer) Result {
	if _, e := st.Vars.Toggle(name); e != nil {
		return setErr(err, name, e)
	}
	return Success
}

// setQuery writes "name=value" into err, which doubles as the message
// channel for queries.
func (st *State) setQuery(name string, isMy bool, err *buffer.Buffer) Result {
	if name == "" {
		// Bare "set": list every changed variable.
		fmt.Fprint(st.Out, st.DumpVars(true))
		return Success
	}
	if isMy {
		value, ok := st.MyVar(name)
		if !ok {
			err.Printf("Unknown option %s", name)
			return Error
		}
		err.Printf("%s=%s", name, token.QuoteString(value))
		return Success
	}
	def, ok := st.Vars.Set().Lookup(name)
	if !ok {
		err.Printf("Unknown option %s", name)
		return Error
	}
	value, _, e := st.Vars.StringGet(def.Name)
	if e != nil {
		return setErr(err, name, e)
	}
	err.Printf("%s=%s", def.Name, token.QuoteString(value))
	return Success
}

// bareTypes print without quotes in dumps.
func bareType(t vars.Type) bool {
	switch t {
	case vars.TypeBool, vars.TypeQuad, vars.TypeNumber, vars.TypeLong,
		vars.TypeSort, vars.TypeEnum:
		return true
	}
	return false
}

// DumpVars renders the variable registry as rc "set" commands, one per
// line. With changedOnly, variables still at their default are skipped.
// User variables follow in first-set order.
func (st *State) DumpVars(changedOnly bool) string {
	out := buffer.Get()
	defer buffer.Release(out)

	for _, name := range st.Vars.Set().Names() {
		if changedOnly && st.Vars.IsDefault(name) {
			continue
		}
		def, ok := st.Vars.Set().Lookup(name)
		if !ok {
			continue
		}
		value, _, err := st.Vars.StringGet(name)
		if err != nil {
			continue
		}
		if bareType(def.Type) {
			out.AddPrintf("set %s=%s\n", name, value)
		} else {
			out.AddPrintf("set %s=%s\n", name, token.QuoteString(value))
		}
	}
	for _, name := range st.MyVarNames() {
		value, _ := st.MyVar(name)
		out.AddPrintf("set %s=%s\n", name, token.QuoteString(value))
	}
	return out.String()
}
