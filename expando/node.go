// Package expando implements the %-directive template engine used for
// index lines, status bars and date formats. A template is parsed once
// into an immutable node tree, then rendered against a table of
// callbacks that produce strings or numbers for each (domain, uid)
// pair.
package expando

// NodeType identifies what a tree node renders.
type NodeType int

const (
	NodeEmpty     NodeType = iota
	NodeText               // a literal run
	NodeExpando            // a %x directive
	NodeContainer          // an ordered list of children
	NodePadding            // %|X, %>X or %*X
	NodeCondition          // %<cond?true&false>
	NodeCondBool           // condition: expando truthiness
	NodeCondDate           // condition: date freshness test
)

// Justify picks where padding goes when a value is narrower than its
// minimum width.
type Justify int

const (
	JustifyRight Justify = iota
	JustifyLeft
	JustifyCenter
)

// PadType selects one of the three fill behaviours.
type PadType int

const (
	// PadFillEOL fills to the end of the line; anything after the
	// directive is dropped.
	PadFillEOL PadType = iota
	// PadHardFill preserves the text left of the directive and pads the
	// middle.
	PadHardFill
	// PadSoftFill preserves the text right of the directive, giving the
	// left side only the leftover columns.
	PadSoftFill
)

// Format carries a parsed printf-style format spec, e.g. "-15.20".
type Format struct {
	Leader        byte // pad character for numbers, ' ' or '0'
	Justification Justify
	MinCols       int
	MaxCols       int  // -1 means unbounded
	Lower         bool // lowercase the produced string
}

// Children of a Padding node.
const (
	padLeft = iota
	padRight
)

// Children of a Condition node.
const (
	condCondition = iota
	condTrue
	condFalse
)

// Node is one element of a parsed template. The tree is immutable
// after Parse.
type Node struct {
	Type NodeType

	// Domain and unique IDs of the directive, matched against the
	// renderer table.
	DID int
	UID int

	// Text holds the literal for Text nodes, the fill string for
	// Padding nodes and the enclosure body (a strftime format, say) for
	// custom-parsed directives.
	Text string

	Format   *Format
	Children []*Node

	padType PadType

	// Conddate parameters: the window is count periods long.
	condCount  int
	condPeriod byte
}

// PadType reports the fill behaviour of a Padding node.
func (n *Node) PadType() PadType { return n.padType }

func newTextNode(text string) *Node {
	return &Node{Type: NodeText, Text: text}
}

func newExpandoNode(fmt *Format, did, uid int) *Node {
	return &Node{Type: NodeExpando, Format: fmt, DID: did, UID: uid}
}

func newContainerNode() *Node {
	return &Node{Type: NodeContainer}
}

func newPaddingNode(pt PadType, fill string) *Node {
	return &Node{Type: NodePadding, padType: pt, Text: fill}
}

// child returns the n-th child, or nil.
func (n *Node) child(i int) *Node {
	if n == nil || i < 0 || i >= len(n.Children) {
		return nil
	}
	return n.Children[i]
}

// repad restructures a node's children around the first padding node:
// preceding siblings become its left arm, following siblings its right
// arm, and the padding becomes the sole child. Nested containers (the
// branches of conditionals) are rewritten first.
func repad(n *Node) {
	if n == nil {
		return
	}
	for _, c := range n.Children {
		repad(c)
	}

	for i, c := range n.Children {
		if c.Type != NodePadding {
			continue
		}

		left := newContainerNode()
		left.Children = append(left.Children, n.Children[:i]...)
		right := newContainerNode()
		right.Children = append(right.Children, n.Children[i+1:]...)

		c.Children = []*Node{left, right}
		n.Children = []*Node{c}
		break // only the first padding matters
	}
}
