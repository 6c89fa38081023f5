package vars

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/neomutt/neomutt-sub017/charset"
	"github.com/neomutt/neomutt-sub017/email"
	"github.com/neomutt/neomutt-sub017/expando"
	"github.com/neomutt/neomutt-sub017/regexlist"
)

// ErrNotImplemented is returned for operations a type does not
// support, e.g. -= on a plain string.
var ErrNotImplemented = errors.New("operation not permitted for this type")

// typeOps is the vtable one variable type implements.
type typeOps interface {
	// parse converts a user string to the native value.
	parse(sub *Subset, def *Definition, s string) (any, Flags, error)
	// format renders the native value back as a user string.
	format(def *Definition, v any) string
	// equal reports value equality, used for the no-change flag.
	equal(def *Definition, a, b any) bool
}

// plusser supports "set var += value".
type plusser interface {
	plus(sub *Subset, def *Definition, cur any, s string) (any, Flags, error)
}

// minuser supports "set var -= value".
type minuser interface {
	minus(sub *Subset, def *Definition, cur any, s string) (any, Flags, error)
}

// toggler supports "toggle var".
type toggler interface {
	toggle(cur any) any
}

func opsFor(t Type) typeOps {
	switch t {
	case TypeBool:
		return boolOps{}
	case TypeQuad:
		return quadOps{}
	case TypeNumber:
		return numberOps{}
	case TypeLong:
		return longOps{}
	case TypePath:
		return pathOps{}
	case TypeMailbox:
		return mailboxOps{}
	case TypeRegex:
		return regexOps{}
	case TypeAddress:
		return addressOps{}
	case TypeMBTable:
		return mbtableOps{}
	case TypeSort:
		return sortOps{}
	case TypeEnum:
		return enumOps{}
	case TypeSlist:
		return slistOps{}
	case TypeExpando:
		return expandoOps{}
	default: // TypeString, TypeCommand
		return stringOps{}
	}
}

// ---------------------------------------------------------------------------
// bool

// boolValues maps accepted spellings; even indices are false.
var boolValues = []string{"no", "yes", "n", "y", "false", "true", "0", "1", "off", "on"}

type boolOps struct{}

func (boolOps) parse(_ *Subset, def *Definition, s string) (any, Flags, error) {
	for i, bv := range boolValues {
		if strings.EqualFold(s, bv) {
			return i%2 == 1, 0, nil
		}
	}
	return nil, 0, fmt.Errorf("invalid boolean value: %s", s)
}

func (boolOps) format(_ *Definition, v any) string {
	if v.(bool) {
		return "yes"
	}
	return "no"
}

func (boolOps) equal(_ *Definition, a, b any) bool { return a.(bool) == b.(bool) }

func (boolOps) toggle(cur any) any { return !cur.(bool) }

// ---------------------------------------------------------------------------
// quad

// Quad is a four-way option: no, yes, or ask with a default.
type Quad int

const (
	QuadNo Quad = iota
	QuadYes
	QuadAskNo
	QuadAskYes
)

var quadValues = []string{"no", "yes", "ask-no", "ask-yes"}

func (q Quad) String() string {
	if q < QuadNo || q > QuadAskYes {
		return "unknown"
	}
	return quadValues[q]
}

type quadOps struct{}

func (quadOps) parse(_ *Subset, def *Definition, s string) (any, Flags, error) {
	for i, qv := range quadValues {
		if strings.EqualFold(s, qv) {
			return Quad(i), 0, nil
		}
	}
	// The bool spellings are accepted too.
	if v, _, err := (boolOps{}).parse(nil, def, s); err == nil {
		if v.(bool) {
			return QuadYes, 0, nil
		}
		return QuadNo, 0, nil
	}
	return nil, 0, fmt.Errorf("invalid quad value: %s", s)
}

func (quadOps) format(_ *Definition, v any) string { return v.(Quad).String() }

func (quadOps) equal(_ *Definition, a, b any) bool { return a.(Quad) == b.(Quad) }

// toggle swaps yes/no and ask-yes/ask-no.
func (quadOps) toggle(cur any) any {
	switch cur.(Quad) {
	case QuadNo:
		return QuadYes
	case QuadYes:
		return QuadNo
	case QuadAskNo:
		return QuadAskYes
	default:
		return QuadAskNo
	}
}

// ---------------------------------------------------------------------------
// number / long

type numberOps struct{}

func parseWhole(def *Definition, s string, min, max int64) (int64, error) {
	if s == "" {
		s = "0"
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number: %s", s)
	}
	return checkWhole(def, n, min, max)
}

func checkWhole(def *Definition, n, min, max int64) (int64, error) {
	if n < min || n > max {
		return 0, fmt.Errorf("number is too big: %d", n)
	}
	if def.Flags&NotNegative != 0 && n < 0 {
		return 0, fmt.Errorf("option %s may not be negative", def.Name)
	}
	return n, nil
}

func (numberOps) parse(_ *Subset, def *Definition, s string) (any, Flags, error) {
	n, err := parseWhole(def, s, -32768, 32767)
	if err != nil {
		return nil, 0, err
	}
	return int(n), 0, nil
}

func (numberOps) format(_ *Definition, v any) string { return strconv.Itoa(v.(int)) }

func (numberOps) equal(_ *Definition, a, b any) bool { return a.(int) == b.(int) }

func (numberOps) plus(_ *Subset, def *Definition, cur any, s string) (any, Flags, error) {
	delta, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, 0, fmt.Errorf("invalid number: %s", s)
	}
	n, err := checkWhole(def, int64(cur.(int))+delta, -32768, 32767)
	if err != nil {
		return nil, 0, err
	}
	return int(n), 0, nil
}

func (o numberOps) minus(sub *Subset, def *Definition, cur any, s string) (any, Flags, error) {
	delta, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, 0, fmt.Errorf("invalid number: %s", s)
	}
	return o.plus(sub, def, cur, strconv.FormatInt(-delta, 10))
}

type longOps struct{}

func (longOps) parse(_ *Subset, def *Definition, s string) (any, Flags, error) {
	n, err := parseWhole(def, s, -1<<62, 1<<62)
	if err != nil {
		return nil, 0, err
	}
	return n, 0, nil
}

func (longOps) format(_ *Definition, v any) string { return strconv.FormatInt(v.(int64), 10) }

func (longOps) equal(_ *Definition, a, b any) bool { return a.(int64) == b.(int64) }

func (longOps) plus(_ *Subset, def *Definition, cur any, s string) (any, Flags, error) {
	delta, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, 0, fmt.Errorf("invalid number: %s", s)
	}
	n, err := checkWhole(def, cur.(int64)+delta, -1<<62, 1<<62)
	if err != nil {
		return nil, 0, err
	}
	return n, 0, nil
}

func (o longOps) minus(sub *Subset, def *Definition, cur any, s string) (any, Flags, error) {
	delta, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, 0, fmt.Errorf("invalid number: %s", s)
	}
	return o.plus(sub, def, cur, strconv.FormatInt(-delta, 10))
}

// ---------------------------------------------------------------------------
// string / command

type stringOps struct{}

func (stringOps) parse(_ *Subset, def *Definition, s string) (any, Flags, error) {
	if s == "" && def.Flags&NotEmpty != 0 {
		return nil, 0, fmt.Errorf("option %s may not be empty", def.Name)
	}
	var f Flags
	if s == "" {
		f |= FlagEmpty
	}
	return s, f, nil
}

func (stringOps) format(_ *Definition, v any) string { return v.(string) }

func (stringOps) equal(_ *Definition, a, b any) bool { return a.(string) == b.(string) }

func (stringOps) plus(_ *Subset, _ *Definition, cur any, s string) (any, Flags, error) {
	return cur.(string) + s, 0, nil
}

// CommandValidator rejects shell metacharacters in command variables;
// the value is later handed to a subprocess spawner verbatim.
func CommandValidator(def *Definition, value any) error {
	s, _ := value.(string)
	if strings.ContainsAny(s, ";&|<>`") {
		return fmt.Errorf("option %s may not contain shell metacharacters", def.Name)
	}
	return nil
}

// CharsetValidator checks that a charset variable names charsets the
// conversion layer can handle. It accepts strings and string lists.
func CharsetValidator(def *Definition, value any) error {
	var names []string
	switch v := value.(type) {
	case string:
		if v == "" {
			return nil
		}
		names = []string{v}
	case *Slist:
		names = v.Items
	default:
		return nil
	}
	strict := len(names) > 1
	for _, name := range names {
		if name == "" {
			continue
		}
		if !charset.CheckCharset(name, strict) {
			return fmt.Errorf("invalid charset %q for option %s", name, def.Name)
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// path / mailbox

type pathOps struct{ stringOps }

func (p pathOps) parse(sub *Subset, def *Definition, s string) (any, Flags, error) {
	return p.stringOps.parse(sub, def, expandTilde(s))
}

type mailboxOps struct{ stringOps }

func (m mailboxOps) parse(sub *Subset, def *Definition, s string) (any, Flags, error) {
	return m.stringOps.parse(sub, def, sub.ExpandMailbox(s))
}

// ---------------------------------------------------------------------------
// regex

type regexOps struct{}

func (regexOps) parse(_ *Subset, def *Definition, s string) (any, Flags, error) {
	rx, err := regexlist.New(s, regexlist.AllowNot)
	if err != nil {
		return nil, 0, err
	}
	var f Flags
	if rx == nil {
		f |= FlagEmpty
	}
	return rx, f, nil
}

func (regexOps) format(_ *Definition, v any) string {
	rx, _ := v.(*regexlist.Regex)
	if rx == nil {
		return ""
	}
	return rx.Pattern
}

func (o regexOps) equal(def *Definition, a, b any) bool {
	return o.format(def, a) == o.format(def, b)
}

// ---------------------------------------------------------------------------
// address

type addressOps struct{}

func (addressOps) parse(_ *Subset, def *Definition, s string) (any, Flags, error) {
	if s == "" {
		return (*email.Address)(nil), FlagEmpty, nil
	}
	var al email.AddressList
	if al.Parse(s) == 0 || len(al) == 0 {
		return nil, 0, fmt.Errorf("invalid address: %s", s)
	}
	return al[0], 0, nil
}

func (addressOps) format(_ *Definition, v any) string {
	a, _ := v.(*email.Address)
	if a == nil {
		return ""
	}
	return a.String()
}

func (o addressOps) equal(def *Definition, a, b any) bool {
	return o.format(def, a) == o.format(def, b)
}

// ---------------------------------------------------------------------------
// mbtable

// MBTable is an ordered list of multibyte characters, e.g. the $flagchars
// family. An ill-formed byte counts as a single character.
type MBTable struct {
	Orig  string
	Chars []string
}

type mbtableOps struct{}

func (mbtableOps) parse(_ *Subset, def *Definition, s string) (any, Flags, error) {
	t := &MBTable{Orig: s}
	for i := 0; i < len(s); {
		_, size := utf8.DecodeRuneInString(s[i:])
		t.Chars = append(t.Chars, s[i:i+size])
		i += size
	}
	var f Flags
	if s == "" {
		f |= FlagEmpty
	}
	return t, f, nil
}

func (mbtableOps) format(_ *Definition, v any) string {
	t, _ := v.(*MBTable)
	if t == nil {
		return ""
	}
	return t.Orig
}

func (o mbtableOps) equal(def *Definition, a, b any) bool {
	return o.format(def, a) == o.format(def, b)
}

// ---------------------------------------------------------------------------
// sort

// Bits or-ed into a sort value by the reverse- and last- prefixes.
const (
	SortMask    = 0xFFFF
	SortReverse = 1 << 16
	SortLast    = 1 << 17
)

type sortOps struct{}

func (sortOps) parse(_ *Subset, def *Definition, s string) (any, Flags, error) {
	bits := 0
	for {
		if rest, ok := strings.CutPrefix(s, "reverse-"); ok {
			bits |= SortReverse
			s = rest
			continue
		}
		if rest, ok := strings.CutPrefix(s, "last-"); ok {
			bits |= SortLast
			s = rest
			continue
		}
		break
	}
	v, ok := def.SortChoices[s]
	if !ok {
		return nil, 0, fmt.Errorf("invalid sort name: %s", s)
	}
	return v | bits, 0, nil
}

func (sortOps) format(def *Definition, v any) string {
	n := v.(int)
	name := ""
	for k, sv := range def.SortChoices {
		if sv == n&SortMask {
			name = k
			break
		}
	}
	if n&SortLast != 0 {
		name = "last-" + name
	}
	if n&SortReverse != 0 {
		name = "reverse-" + name
	}
	return name
}

func (sortOps) equal(_ *Definition, a, b any) bool { return a.(int) == b.(int) }

// ---------------------------------------------------------------------------
// enum

type enumOps struct{}

func (enumOps) parse(_ *Subset, def *Definition, s string) (any, Flags, error) {
	for i, name := range def.Choices {
		if s == name {
			return i, 0, nil
		}
	}
	return nil, 0, fmt.Errorf("invalid enum value: %s", s)
}

func (enumOps) format(def *Definition, v any) string {
	n := v.(int)
	if n < 0 || n >= len(def.Choices) {
		return ""
	}
	return def.Choices[n]
}

func (enumOps) equal(_ *Definition, a, b any) bool { return a.(int) == b.(int) }

// ---------------------------------------------------------------------------
// slist

// Slist is a separated string list with a definition-chosen separator.
type Slist struct {
	Items []string
	Sep   byte
}

func (sl *Slist) String() string {
	if sl == nil {
		return ""
	}
	return strings.Join(sl.Items, string(sl.Sep))
}

// Contains reports case-sensitive membership.
func (sl *Slist) Contains(item string) bool {
	if sl == nil {
		return false
	}
	for _, it := range sl.Items {
		if it == item {
			return true
		}
	}
	return false
}

func slistSep(def *Definition) byte {
	switch {
	case def.Flags&SepComma != 0:
		return ','
	case def.Flags&SepSpace != 0:
		return ' '
	default:
		return ':'
	}
}

// splitSlist splits on the separator, honouring backslash escapes.
func splitSlist(s string, sep byte) []string {
	if s == "" {
		return nil
	}
	var items []string
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		switch {
		case s[i] == '\\' && i+1 < len(s):
			sb.WriteByte(s[i+1])
			i++
		case s[i] == sep:
			items = append(items, sb.String())
			sb.Reset()
		default:
			sb.WriteByte(s[i])
		}
	}
	return append(items, sb.String())
}

type slistOps struct{}

func (slistOps) parse(_ *Subset, def *Definition, s string) (any, Flags, error) {
	sl := &Slist{Items: splitSlist(s, slistSep(def)), Sep: slistSep(def)}
	var f Flags
	if len(sl.Items) == 0 {
		f |= FlagEmpty
	}
	return sl, f, nil
}

func (slistOps) format(_ *Definition, v any) string {
	sl, _ := v.(*Slist)
	return sl.String()
}

func (o slistOps) equal(def *Definition, a, b any) bool {
	return o.format(def, a) == o.format(def, b)
}

func (slistOps) plus(_ *Subset, def *Definition, cur any, s string) (any, Flags, error) {
	sl := cur.(*Slist)
	out := &Slist{Items: append([]string(nil), sl.Items...), Sep: sl.Sep}
	for _, item := range splitSlist(s, sl.Sep) {
		if def.Flags&AllowDupes == 0 && out.Contains(item) {
			continue
		}
		out.Items = append(out.Items, item)
	}
	return out, 0, nil
}

func (slistOps) minus(_ *Subset, _ *Definition, cur any, s string) (any, Flags, error) {
	sl := cur.(*Slist)
	out := &Slist{Sep: sl.Sep}
	remove := splitSlist(s, sl.Sep)
	for _, item := range sl.Items {
		drop := false
		for _, r := range remove {
			if item == r {
				drop = true
				break
			}
		}
		if !drop {
			out.Items = append(out.Items, item)
		}
	}
	return out, 0, nil
}

// ---------------------------------------------------------------------------
// expando

type expandoOps struct{}

func (expandoOps) parse(_ *Subset, def *Definition, s string) (any, Flags, error) {
	exp, err := expando.Parse(s, def.ExpandoDefs)
	if err != nil {
		return nil, 0, err
	}
	var f Flags
	if exp == nil {
		f |= FlagEmpty
	}
	return exp, f, nil
}

func (expandoOps) format(_ *Definition, v any) string {
	exp, _ := v.(*expando.Expando)
	return exp.String()
}

func (o expandoOps) equal(def *Definition, a, b any) bool {
	return o.format(def, a) == o.format(def, b)
}

// plus appends to the template and recompiles.
func (p expandoOps) plus(sub *Subset, def *Definition, cur any, s string) (any, Flags, error) {
	exp, _ := cur.(*expando.Expando)
	return p.parse(sub, def, exp.String()+s)
}
