// Package vars is the typed variable registry behind the rc
// interpreter's set family. Every variable is declared up front with a
// name, a type and an initial value; values are set from strings,
// validated, and read back either natively or as quotable strings.
// Scopes (account, mailbox) layer overrides over the global values.
package vars

import (
	"fmt"
	"sort"

	"github.com/neomutt/neomutt-sub017/expando"
)

// Type enumerates the variable types.
type Type int

const (
	TypeBool Type = iota
	TypeQuad
	TypeNumber
	TypeLong
	TypeString
	TypePath
	TypeMailbox
	TypeCommand
	TypeRegex
	TypeAddress
	TypeMBTable
	TypeSort
	TypeEnum
	TypeSlist
	TypeExpando
)

var typeNames = map[Type]string{
	TypeBool:    "boolean",
	TypeQuad:    "quad-option",
	TypeNumber:  "number",
	TypeLong:    "number (long)",
	TypeString:  "string",
	TypePath:    "path",
	TypeMailbox: "mailbox",
	TypeCommand: "command",
	TypeRegex:   "regular expression",
	TypeAddress: "e-mail address",
	TypeMBTable: "multibyte table",
	TypeSort:    "sort order",
	TypeEnum:    "enumeration",
	TypeSlist:   "string list",
	TypeExpando: "expando",
}

func (t Type) String() string { return typeNames[t] }

// DefFlags qualify a definition's behaviour.
type DefFlags uint16

const (
	// NotNegative rejects negative numbers.
	NotNegative DefFlags = 1 << iota
	// NotEmpty rejects the empty string.
	NotEmpty
	// PathFile marks a path variable naming a file, PathDir a directory.
	PathFile
	PathDir
	// SepComma and SepSpace change the slist separator from the default
	// colon.
	SepComma
	SepSpace
	// AllowDupes lets a slist hold the same item twice.
	AllowDupes
)

// Validator vets a native value before it is stored.
type Validator func(def *Definition, value any) error

// Definition declares one variable.
type Definition struct {
	Name    string
	Type    Type
	Initial string
	Flags   DefFlags
	Docs    string

	Validator Validator

	// Synonym names the real variable this entry aliases; all other
	// fields are ignored.
	Synonym string

	// Choices names the values of an enum variable, in value order.
	Choices []string
	// SortChoices maps sort-key names for a sort variable.
	SortChoices map[string]int
	// ExpandoDefs are the directive definitions an expando variable
	// compiles against.
	ExpandoDefs []expando.Definition
}

// Flags report auxiliary facts about a successful operation.
type Flags uint8

const (
	// FlagNoChange: the value was already equal.
	FlagNoChange Flags = 1 << iota
	// FlagEmpty: the value read back is empty/unset.
	FlagEmpty
	// FlagInherited: the value came from an outer scope.
	FlagInherited
	// FlagWarning: the operation succeeded but the user should be told.
	FlagWarning
)

// ErrUnknown wraps the lookups' "no such variable".
type ErrUnknown struct{ Name string }

func (e *ErrUnknown) Error() string { return fmt.Sprintf("unknown variable: %s", e.Name) }

// entry is one stored value. Scoped entries override the global one.
type entry struct {
	def     *Definition
	value   any
	initial any // global entries only
}

// Set owns the definitions and every value, global and scoped. Scoped
// values are keyed "scope:name".
type Set struct {
	defs    map[string]*Definition
	entries map[string]*entry
	order   []string // registration order, for dumps

	global *Subset
}

// NewSet creates an empty registry with its global scope.
func NewSet() *Set {
	cs := &Set{
		defs:    make(map[string]*Definition),
		entries: make(map[string]*entry),
	}
	cs.global = &Subset{set: cs}
	return cs
}

// Global returns the top-level scope.
func (cs *Set) Global() *Subset { return cs.global }

// Register declares variables and parses their initial values. A
// definition that fails to parse its initial is a programming error
// and aborts registration.
func (cs *Set) Register(defs []Definition) error {
	for i := range defs {
		def := defs[i]
		if _, exists := cs.defs[def.Name]; exists {
			return fmt.Errorf("variable %s already registered", def.Name)
		}
		d := &def
		cs.defs[d.Name] = d
		if d.Synonym != "" {
			continue
		}

		ops := opsFor(d.Type)
		initial, _, err := ops.parse(cs.global, d, d.Initial)
		if err != nil {
			return fmt.Errorf("initial value of %s: %w", d.Name, err)
		}
		cs.entries[d.Name] = &entry{def: d, value: initial, initial: initial}
		cs.order = append(cs.order, d.Name)
	}
	return nil
}

// resolve follows synonym chains to the real definition.
func (cs *Set) resolve(name string) (*Definition, error) {
	seen := 0
	for {
		def, ok := cs.defs[name]
		if !ok {
			return nil, &ErrUnknown{Name: name}
		}
		if def.Synonym == "" {
			return def, nil
		}
		name = def.Synonym
		if seen++; seen > 10 {
			return nil, fmt.Errorf("synonym loop at %s", name)
		}
	}
}

// Lookup resolves a name, following synonyms, to its definition.
func (cs *Set) Lookup(name string) (*Definition, bool) {
	def, err := cs.resolve(name)
	if err != nil {
		return nil, false
	}
	return def, true
}

// Names returns all registered variable names, sorted.
func (cs *Set) Names() []string {
	names := make([]string, len(cs.order))
	copy(names, cs.order)
	sort.Strings(names)
	return names
}

// Known reports whether a variable name is registered (synonyms count).
func (cs *Set) Known(name string) bool {
	_, ok := cs.defs[name]
	return ok
}
