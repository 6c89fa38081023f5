package expando

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// ParserFlags alter how directives are parsed.
type ParserFlags uint8

const (
	// FlagConditional marks parsing inside the condition of
	// %<cond?...>: only truthiness-capable directives are valid there.
	FlagConditional ParserFlags = 1 << iota
	// FlagNoCustomParse ignores a definition's custom parser and builds
	// a plain directive node instead.
	FlagNoCustomParse
)

// CustomParser lets a definition take over parsing after its short
// name matched. It receives the input starting at the short name and
// returns the node and the number of bytes consumed.
type CustomParser func(s string, f *Format, did, uid int, flags ParserFlags) (*Node, int, error)

// Definition binds a directive's short name to its (domain, uid) pair.
// Definitions are matched by longest short-name prefix, so "cr" wins
// over "c".
type Definition struct {
	ShortName string
	DID       int
	UID       int
	Parse     CustomParser
}

// ParseError reports where in the template parsing failed.
type ParseError struct {
	Message  string
	Position int // byte offset into the template
}

func (e *ParseError) Error() string { return e.Message }

func parseErrorf(pos int, format string, args ...any) error {
	return &ParseError{Message: fmt.Sprintf(format, args...), Position: pos}
}

// Expando is a parsed template.
type Expando struct {
	Format string // the original template text
	Root   *Node

	// filter is set when the template ended in an unescaped '|': the
	// rendered text is a command whose output replaces it.
	filter bool
}

// String returns the template source.
func (e *Expando) String() string {
	if e == nil {
		return ""
	}
	return e.Format
}

// Equal compares two templates by source text.
func (e *Expando) Equal(other *Expando) bool {
	if e == nil || other == nil {
		return e == other
	}
	return e.Format == other.Format
}

// Filtered reports whether the rendered text is piped through a
// command.
func (e *Expando) Filtered() bool { return e != nil && e.filter }

type parser struct {
	src  string
	defs []Definition
}

// Parse compiles a template against a set of directive definitions.
// An empty template yields a nil Expando.
func Parse(format string, defs []Definition) (*Expando, error) {
	if format == "" {
		return nil, nil
	}

	src := format
	filter := false
	if endsInUnescapedPipe(src) {
		filter = true
		src = src[:len(src)-1]
	}

	p := &parser{src: src, defs: defs}
	children, pos, err := p.parseNodes(0, "", 0)
	if err != nil {
		return nil, err
	}
	if pos != len(src) {
		return nil, parseErrorf(pos, "Unexpected character: '%c'", src[pos])
	}

	root := newContainerNode()
	root.Children = children
	repad(root)

	return &Expando{Format: format, Root: root, filter: filter}, nil
}

// endsInUnescapedPipe reports whether the template's final character is
// a '|' that is not backslash-escaped.
func endsInUnescapedPipe(s string) bool {
	if !strings.HasSuffix(s, "|") {
		return false
	}
	n := 0
	for i := len(s) - 2; i >= 0 && s[i] == '\\'; i-- {
		n++
	}
	return n%2 == 0
}

// parseNodes consumes nodes until end-of-input or one of the
// terminator characters appears unescaped at the top level.
func (p *parser) parseNodes(pos int, terminators string, flags ParserFlags) ([]*Node, int, error) {
	var nodes []*Node
	for pos < len(p.src) && !strings.ContainsRune(terminators, rune(p.src[pos])) {
		var (
			node *Node
			err  error
		)
		if p.src[pos] == '%' {
			node, pos, err = p.parseDirective(pos, flags)
		} else {
			node, pos = p.parseText(pos, terminators)
		}
		if err != nil {
			return nil, pos, err
		}
		if node != nil {
			nodes = append(nodes, node)
		}
	}
	return nodes, pos, nil
}

// parseText collects a literal run. A backslash escapes the next
// character; "%%" contributes a literal '%'.
func (p *parser) parseText(pos int, terminators string) (*Node, int) {
	var sb strings.Builder
	for pos < len(p.src) {
		c := p.src[pos]
		switch {
		case c == '%' && pos+1 < len(p.src) && p.src[pos+1] == '%':
			sb.WriteByte('%')
			pos += 2
		case c == '%':
			return textOrNil(&sb), pos
		case strings.ContainsRune(terminators, rune(c)):
			return textOrNil(&sb), pos
		case c == '\\' && pos+1 < len(p.src):
			sb.WriteByte(p.src[pos+1])
			pos += 2
		default:
			sb.WriteByte(c)
			pos++
		}
	}
	return textOrNil(&sb), pos
}

func textOrNil(sb *strings.Builder) *Node {
	if sb.Len() == 0 {
		return nil
	}
	return newTextNode(sb.String())
}

// parseDirective consumes one %-directive starting at the '%'.
func (p *parser) parseDirective(pos int, flags ParserFlags) (*Node, int, error) {
	start := pos
	pos++ // '%'

	f, pos, err := p.parseFormat(pos)
	if err != nil {
		return nil, pos, err
	}

	if pos >= len(p.src) {
		return nil, pos, parseErrorf(start, "Trailing %% in format string")
	}

	switch p.src[pos] {
	case '<':
		return p.parseCondition(pos, f, false)
	case '?':
		return p.parseCondition(pos, f, true)
	case '|', '>', '*':
		return p.parsePadding(pos, f, flags)
	}

	return p.parseShortName(pos, f, flags)
}

// parseFormat reads an optional printf-style format spec:
// [-=][0][min][.max][_]. A nil Format means no spec was present or the
// spec carried no information.
func (p *parser) parseFormat(pos int) (*Format, int, error) {
	start := pos
	f := &Format{Leader: ' ', Justification: JustifyRight, MaxCols: -1}

	if pos < len(p.src) {
		switch p.src[pos] {
		case '-':
			f.Justification = JustifyLeft
			pos++
		case '=':
			f.Justification = JustifyCenter
			pos++
		}
	}

	if pos < len(p.src) && p.src[pos] == '0' {
		// A '0' leader is meaningless with left justification.
		if f.Justification != JustifyLeft {
			f.Leader = '0'
		}
		pos++
	}

	var err error
	if pos < len(p.src) && isDigit(p.src[pos]) {
		f.MinCols, pos, err = p.parseNumber(pos)
		if err != nil {
			return nil, pos, err
		}
	}

	if pos < len(p.src) && p.src[pos] == '.' {
		pos++
		number := 0
		if pos < len(p.src) && isDigit(p.src[pos]) {
			number, pos, err = p.parseNumber(pos)
			if err != nil {
				return nil, pos, err
			}
		}
		// A zero-column precision makes no sense, so ".0" (and a bare
		// ".") fall back to a space leader and no bound.
		if number == 0 {
			f.Leader = ' '
		} else {
			f.Leader = '0'
		}
		f.MaxCols = number
	}

	if pos < len(p.src) && p.src[pos] == '_' {
		f.Lower = true
		pos++
	}

	if pos == start {
		return nil, pos, nil
	}
	if f.MinCols == 0 && f.MaxCols == -1 && !f.Lower {
		return nil, pos, nil
	}
	return f, pos, nil
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func (p *parser) parseNumber(pos int) (int, int, error) {
	start := pos
	n := 0
	for pos < len(p.src) && isDigit(p.src[pos]) {
		n = n*10 + int(p.src[pos]-'0')
		if n > 0xFFFF {
			return 0, start, parseErrorf(start, "Invalid number: %s", p.src[start:])
		}
		pos++
	}
	return n, pos, nil
}

// parsePadding consumes %|X, %>X or %*X where X is the fill character
// (a space when missing).
func (p *parser) parsePadding(pos int, f *Format, flags ParserFlags) (*Node, int, error) {
	if f != nil {
		return nil, pos, parseErrorf(pos, "Padding cannot be formatted")
	}
	if flags&FlagConditional != 0 {
		return nil, pos, parseErrorf(pos, "Padding cannot be used as a condition")
	}

	var pt PadType
	switch p.src[pos] {
	case '|':
		pt = PadFillEOL
	case '>':
		pt = PadHardFill
	case '*':
		pt = PadSoftFill
	}
	pos++

	fill := " "
	if pos < len(p.src) {
		_, size := utf8.DecodeRuneInString(p.src[pos:])
		fill = p.src[pos : pos+size]
		pos += size
	}
	return newPaddingNode(pt, fill), pos, nil
}

// parseShortName resolves a directive against the definitions by
// longest matching short name.
func (p *parser) parseShortName(pos int, f *Format, flags ParserFlags) (*Node, int, error) {
	var best *Definition
	for i := range p.defs {
		d := &p.defs[i]
		if !strings.HasPrefix(p.src[pos:], d.ShortName) {
			continue
		}
		if best == nil || len(d.ShortName) > len(best.ShortName) {
			best = d
		}
	}
	if best == nil {
		r, _ := utf8.DecodeRuneInString(p.src[pos:])
		return nil, pos, parseErrorf(pos, "Unknown expando: %%%c", r)
	}

	if best.Parse != nil && flags&FlagNoCustomParse == 0 {
		node, n, err := best.Parse(p.src[pos:], f, best.DID, best.UID, flags)
		if err != nil {
			if pe, ok := err.(*ParseError); ok {
				pe.Position += pos
			}
			return nil, pos, err
		}
		return node, pos + n, nil
	}
	return newExpandoNode(f, best.DID, best.UID), pos + len(best.ShortName), nil
}

// parseCondition consumes %<cond?true&false> or the legacy
// %?cond?true&false? form; pos is at the opening '<' or '?'.
func (p *parser) parseCondition(pos int, f *Format, legacy bool) (*Node, int, error) {
	start := pos
	pos++ // '<' or '?'

	cond, pos, err := p.parseConditionExpr(pos)
	if err != nil {
		return nil, pos, err
	}
	if pos >= len(p.src) || p.src[pos] != '?' {
		return nil, pos, parseErrorf(start, "Conditional expando is missing '?'")
	}
	pos++

	closing := byte('>')
	if legacy {
		closing = '?'
	}

	trueNodes, pos, err := p.parseNodes(pos, "&"+string(closing), 0)
	if err != nil {
		return nil, pos, err
	}
	trueArm := newContainerNode()
	trueArm.Children = trueNodes
	repad(trueArm)

	falseArm := newContainerNode()
	if pos < len(p.src) && p.src[pos] == '&' {
		pos++
		var falseNodes []*Node
		falseNodes, pos, err = p.parseNodes(pos, string(closing), 0)
		if err != nil {
			return nil, pos, err
		}
		falseArm.Children = falseNodes
		repad(falseArm)
	}

	if pos >= len(p.src) || p.src[pos] != closing {
		return nil, pos, parseErrorf(start, "Conditional expando is missing '%c'", closing)
	}
	pos++

	node := &Node{
		Type:     NodeCondition,
		Format:   f,
		Children: []*Node{cond, trueArm, falseArm},
	}
	return node, pos, nil
}

// parseConditionExpr parses the condition itself: a directive name
// without the leading '%', optionally a custom-parsed one like the
// %[n<period>] date test.
func (p *parser) parseConditionExpr(pos int) (*Node, int, error) {
	if pos < len(p.src) && strings.ContainsRune("|>*", rune(p.src[pos])) {
		return nil, pos, parseErrorf(pos, "Padding cannot be used as a condition")
	}
	node, pos, err := p.parseShortName(pos, nil, FlagConditional)
	if err != nil {
		return nil, pos, err
	}
	// A plain directive used as a condition is a truthiness test.
	if node.Type == NodeExpando {
		node.Type = NodeCondBool
	}
	return node, pos, nil
}
