package vars

import (
	"os"
	"strings"

	"github.com/neomutt/neomutt-sub017/email"
	"github.com/neomutt/neomutt-sub017/expando"
	"github.com/neomutt/neomutt-sub017/regexlist"
)

// Event identifies what happened to a variable.
type Event int

const (
	EventSet Event = iota
	EventReset
	EventInitialSet
	EventDelete
)

func (e Event) String() string {
	switch e {
	case EventSet:
		return "set"
	case EventReset:
		return "reset"
	case EventInitialSet:
		return "initial-set"
	default:
		return "delete"
	}
}

// Observer is called synchronously after a variable changes. The name
// is the plain variable name; the subset is the scope the change
// happened in.
type Observer func(ev Event, name string, sub *Subset)

// Subset is one scope in the global←account←mailbox chain. Lookups
// fall back to the parent; sets land in this scope.
type Subset struct {
	Name   string // scope prefix, empty for the global scope
	parent *Subset
	set    *Set

	observers []Observer
}

// Subset creates a child scope. Scoped values are keyed
// "parent:child:name".
func (sub *Subset) Subset(name string) *Subset {
	scope := name
	if sub.Name != "" {
		scope = sub.Name + ":" + name
	}
	return &Subset{Name: scope, parent: sub, set: sub.set}
}

// Parent returns the enclosing scope, nil for the global one.
func (sub *Subset) Parent() *Subset { return sub.parent }

// Observe registers an observer on this scope. Events fired in child
// scopes bubble up to it.
func (sub *Subset) Observe(o Observer) {
	sub.observers = append(sub.observers, o)
}

func (sub *Subset) notify(ev Event, name string, origin *Subset) {
	for _, o := range sub.observers {
		o(ev, name, origin)
	}
	if sub.parent != nil {
		sub.parent.notify(ev, name, origin)
	}
}

func (sub *Subset) scoped(name string) string {
	if sub.Name == "" {
		return name
	}
	return sub.Name + ":" + name
}

// lookup resolves a name to its definition and nearest entry. The
// returned flags carry FlagInherited when the value came from an outer
// scope.
func (sub *Subset) lookup(name string) (*Definition, *entry, Flags, error) {
	def, err := sub.set.resolve(name)
	if err != nil {
		return nil, nil, 0, err
	}
	var f Flags
	for s := sub; s != nil; s = s.parent {
		if e, ok := sub.set.entries[s.scoped(def.Name)]; ok {
			return def, e, f, nil
		}
		f |= FlagInherited
	}
	// Registration guarantees a global entry exists.
	return def, sub.set.entries[def.Name], f, nil
}

// store writes a value at this scope, creating the scoped override if
// needed, and fires the event unless nothing changed.
func (sub *Subset) store(def *Definition, value any, flags Flags) Flags {
	key := sub.scoped(def.Name)
	e, ok := sub.set.entries[key]
	if !ok {
		e = &entry{def: def}
		sub.set.entries[key] = e
	}
	e.value = value

	if flags&FlagNoChange == 0 {
		sub.notify(EventSet, def.Name, sub)
	}
	return flags
}

// StringSet assigns a variable from its string form.
func (sub *Subset) StringSet(name, value string) (Flags, error) {
	def, cur, _, err := sub.lookup(name)
	if err != nil {
		return 0, err
	}
	ops := opsFor(def.Type)

	native, flags, err := ops.parse(sub, def, value)
	if err != nil {
		return 0, err
	}
	if def.Validator != nil {
		if err := def.Validator(def, native); err != nil {
			return 0, err
		}
	}
	if ops.equal(def, cur.value, native) {
		flags |= FlagNoChange
	}
	return sub.store(def, native, flags), nil
}

// NativeSet assigns a variable from an already-typed value.
func (sub *Subset) NativeSet(name string, value any) (Flags, error) {
	def, cur, _, err := sub.lookup(name)
	if err != nil {
		return 0, err
	}
	ops := opsFor(def.Type)
	if def.Validator != nil {
		if err := def.Validator(def, value); err != nil {
			return 0, err
		}
	}
	var flags Flags
	if ops.equal(def, cur.value, value) {
		flags |= FlagNoChange
	}
	return sub.store(def, value, flags), nil
}

// PlusEquals performs "set var += value".
func (sub *Subset) PlusEquals(name, value string) (Flags, error) {
	def, cur, _, err := sub.lookup(name)
	if err != nil {
		return 0, err
	}
	ops := opsFor(def.Type)
	p, ok := ops.(plusser)
	if !ok {
		return 0, ErrNotImplemented
	}
	native, flags, err := p.plus(sub, def, cur.value, value)
	if err != nil {
		return 0, err
	}
	if def.Validator != nil {
		if err := def.Validator(def, native); err != nil {
			return 0, err
		}
	}
	if ops.equal(def, cur.value, native) {
		flags |= FlagNoChange
	}
	return sub.store(def, native, flags), nil
}

// MinusEquals performs "set var -= value".
func (sub *Subset) MinusEquals(name, value string) (Flags, error) {
	def, cur, _, err := sub.lookup(name)
	if err != nil {
		return 0, err
	}
	ops := opsFor(def.Type)
	m, ok := ops.(minuser)
	if !ok {
		return 0, ErrNotImplemented
	}
	native, flags, err := m.minus(sub, def, cur.value, value)
	if err != nil {
		return 0, err
	}
	if ops.equal(def, cur.value, native) {
		flags |= FlagNoChange
	}
	return sub.store(def, native, flags), nil
}

// Toggle flips a bool or quad variable.
func (sub *Subset) Toggle(name string) (Flags, error) {
	def, cur, _, err := sub.lookup(name)
	if err != nil {
		return 0, err
	}
	t, ok := opsFor(def.Type).(toggler)
	if !ok {
		return 0, ErrNotImplemented
	}
	return sub.store(def, t.toggle(cur.value), 0), nil
}

// Reset restores a variable to its initial value. At a child scope the
// override is removed and the outer value shows through again.
func (sub *Subset) Reset(name string) (Flags, error) {
	def, err := sub.set.resolve(name)
	if err != nil {
		return 0, err
	}

	if sub.Name != "" {
		key := sub.scoped(def.Name)
		if _, ok := sub.set.entries[key]; ok {
			delete(sub.set.entries, key)
		}
		sub.notify(EventReset, def.Name, sub)
		return 0, nil
	}

	e := sub.set.entries[def.Name]
	ops := opsFor(def.Type)
	var flags Flags
	if ops.equal(def, e.value, e.initial) {
		flags |= FlagNoChange
	}
	e.value = e.initial
	sub.notify(EventReset, def.Name, sub)
	return flags, nil
}

// ResetAll resets every registered variable, firing one event per
// variable.
func (sub *Subset) ResetAll() {
	for _, name := range sub.set.order {
		_, _ = sub.Reset(name)
	}
}

// InitialSet replaces a variable's startup default without touching
// its current value.
func (sub *Subset) InitialSet(name, value string) error {
	def, err := sub.set.resolve(name)
	if err != nil {
		return err
	}
	native, _, err := opsFor(def.Type).parse(sub, def, value)
	if err != nil {
		return err
	}
	sub.set.entries[def.Name].initial = native
	sub.notify(EventInitialSet, def.Name, sub)
	return nil
}

// Delete removes a scoped override entirely.
func (sub *Subset) Delete(name string) error {
	def, err := sub.set.resolve(name)
	if err != nil {
		return err
	}
	delete(sub.set.entries, sub.scoped(def.Name))
	sub.notify(EventDelete, def.Name, sub)
	return nil
}

// StringGet reads a variable in its string form.
func (sub *Subset) StringGet(name string) (string, Flags, error) {
	def, e, flags, err := sub.lookup(name)
	if err != nil {
		return "", 0, err
	}
	s := opsFor(def.Type).format(def, e.value)
	if s == "" {
		flags |= FlagEmpty
	}
	return s, flags, nil
}

// InitialGet reads a variable's startup default in string form.
func (sub *Subset) InitialGet(name string) (string, error) {
	def, err := sub.set.resolve(name)
	if err != nil {
		return "", err
	}
	e := sub.set.entries[def.Name]
	return opsFor(def.Type).format(def, e.initial), nil
}

// IsDefault reports whether the effective value equals the startup
// default; "changed" dumps elide these.
func (sub *Subset) IsDefault(name string) bool {
	def, e, _, err := sub.lookup(name)
	if err != nil {
		return false
	}
	initial := sub.set.entries[def.Name].initial
	return opsFor(def.Type).equal(def, e.value, initial)
}

// Native returns the typed value of a variable.
func (sub *Subset) Native(name string) (any, error) {
	_, e, _, err := sub.lookup(name)
	if err != nil {
		return nil, err
	}
	return e.value, nil
}

// Typed getters. A missing or wrongly-typed variable yields the
// zero value.

func (sub *Subset) Bool(name string) bool {
	v, _ := sub.Native(name)
	b, _ := v.(bool)
	return b
}

func (sub *Subset) Quad(name string) Quad {
	v, _ := sub.Native(name)
	q, _ := v.(Quad)
	return q
}

func (sub *Subset) Number(name string) int {
	v, _ := sub.Native(name)
	n, _ := v.(int)
	return n
}

func (sub *Subset) Long(name string) int64 {
	v, _ := sub.Native(name)
	n, _ := v.(int64)
	return n
}

func (sub *Subset) String(name string) string {
	v, _ := sub.Native(name)
	s, _ := v.(string)
	return s
}

func (sub *Subset) Regex(name string) *regexlist.Regex {
	v, _ := sub.Native(name)
	rx, _ := v.(*regexlist.Regex)
	return rx
}

func (sub *Subset) Address(name string) *email.Address {
	v, _ := sub.Native(name)
	a, _ := v.(*email.Address)
	return a
}

func (sub *Subset) MBTable(name string) *MBTable {
	v, _ := sub.Native(name)
	t, _ := v.(*MBTable)
	return t
}

func (sub *Subset) Sort(name string) int {
	v, _ := sub.Native(name)
	n, _ := v.(int)
	return n
}

func (sub *Subset) Enum(name string) int {
	v, _ := sub.Native(name)
	n, _ := v.(int)
	return n
}

func (sub *Subset) Slist(name string) *Slist {
	v, _ := sub.Native(name)
	sl, _ := v.(*Slist)
	return sl
}

func (sub *Subset) Expando(name string) *expando.Expando {
	v, _ := sub.Native(name)
	exp, _ := v.(*expando.Expando)
	return exp
}

// Set returns the registry this scope belongs to.
func (sub *Subset) Set() *Set { return sub.set }

// expandTilde replaces a leading "~" with the home directory.
func expandTilde(s string) string {
	if s != "~" && !strings.HasPrefix(s, "~/") {
		return s
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return s
	}
	if s == "~" {
		return home
	}
	return home + s[1:]
}

// ExpandMailbox resolves the folder shortcuts: a leading '+' or '='
// refers to the $folder directory, '~' to the home directory.
func (sub *Subset) ExpandMailbox(s string) string {
	if s == "" {
		return s
	}
	switch s[0] {
	case '+', '=':
		folder := sub.String("folder")
		if folder == "" {
			return s
		}
		return strings.TrimSuffix(folder, "/") + "/" + s[1:]
	case '~':
		return expandTilde(s)
	}
	return s
}
