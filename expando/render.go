package expando

import (
	"strings"
	"time"

	"github.com/mattn/go-runewidth"

	"github.com/neomutt/neomutt-sub017/buffer"
)

// RenderFlags are passed through to the producer callbacks.
type RenderFlags uint8

const (
	// RenderPlain asks producers for text free of terminal markup.
	RenderPlain RenderFlags = 1 << iota
)

// StringFunc produces the text of a directive into buf.
type StringFunc func(node *Node, data any, flags RenderFlags, buf *buffer.Buffer)

// NumberFunc produces the numeric value of a directive.
type NumberFunc func(node *Node, data any, flags RenderFlags) int64

// Renderer binds a (domain, uid) pair to its producers. Strings are
// preferred over numbers: a date can be stored as 1729850182 but
// displayed as "2024-10-25".
type Renderer struct {
	DID    int
	UID    int
	String StringFunc
	Number NumberFunc
}

// RenderData is the callback table a render walks.
type RenderData []Renderer

func (rd RenderData) findString(did, uid int) *Renderer {
	for i := range rd {
		if rd[i].DID == did && rd[i].UID == uid && rd[i].String != nil {
			return &rd[i]
		}
	}
	return nil
}

func (rd RenderData) findNumber(did, uid int) *Renderer {
	for i := range rd {
		if rd[i].DID == did && rd[i].UID == uid && rd[i].Number != nil {
			return &rd[i]
		}
	}
	return nil
}

// now is swappable for the conddate tests.
var now = time.Now

// Render walks a parsed template, filling buf with at most maxCols
// display columns of output (padding directives fill to exactly that).
// Returns the columns written.
func Render(exp *Expando, rdata RenderData, data any, flags RenderFlags, maxCols int, buf *buffer.Buffer) int {
	if exp == nil || exp.Root == nil {
		return 0
	}
	return renderNode(exp.Root, rdata, data, flags, maxCols, buf)
}

func renderNode(node *Node, rdata RenderData, data any, flags RenderFlags, maxCols int, buf *buffer.Buffer) int {
	if node == nil {
		return 0
	}
	switch node.Type {
	case NodeText:
		buf.AddString(node.Text)
		return runewidth.StringWidth(node.Text)
	case NodeExpando:
		return renderExpando(node, rdata, data, flags, maxCols, buf)
	case NodeContainer:
		return renderContainer(node, rdata, data, flags, maxCols, buf)
	case NodePadding:
		return renderPadding(node, rdata, data, flags, maxCols, buf)
	case NodeCondition:
		return renderCondition(node, rdata, data, flags, maxCols, buf)
	}
	return 0
}

func renderContainer(node *Node, rdata RenderData, data any, flags RenderFlags, maxCols int, buf *buffer.Buffer) int {
	total := 0
	for _, c := range node.Children {
		if maxCols-total <= 0 {
			break
		}
		total += renderNode(c, rdata, data, flags, maxCols-total, buf)
	}
	return total
}

func renderExpando(node *Node, rdata RenderData, data any, flags RenderFlags, maxCols int, buf *buffer.Buffer) int {
	value := buffer.Get()
	defer buffer.Release(value)

	f := node.Format

	if rd := rdata.findString(node.DID, node.UID); rd != nil {
		rd.String(node, data, flags, value)
		if f != nil && f.Lower {
			value.SetString(strings.ToLower(value.String()))
		}
	} else if rd := rdata.findNumber(node.DID, node.UID); rd != nil {
		num := rd.Number(node, data, flags)

		precision := 1
		if f != nil {
			precision = f.MaxCols
			if precision < 0 && f.Leader == '0' {
				precision = f.MinCols
			}
		}
		if num < 0 {
			precision-- // room for the '-' sign
		}
		if precision >= 0 {
			value.Printf("%.*d", precision, num)
		} else {
			value.Printf("%d", num)
		}
	} else {
		return 0
	}

	max := maxCols
	min := 0
	just := JustifyLeft
	if f != nil {
		min = f.MinCols
		if f.MaxCols > 0 && f.MaxCols < max {
			max = f.MaxCols
		}
		just = f.Justification
	}
	return formatString(buf, min, max, just, ' ', value.String())
}

// padString repeats the fill text while a whole copy fits, then pads
// any leftover columns (a wide fill character can leave some) with
// spaces.
func padString(node *Node, buf *buffer.Buffer, maxCols int) int {
	padCols := runewidth.StringWidth(node.Text)
	total := 0

	if padCols > 0 {
		for padCols <= maxCols {
			buf.AddString(node.Text)
			maxCols -= padCols
			total += padCols
		}
	}
	if maxCols > 0 {
		buf.AddString(strings.Repeat(" ", maxCols))
		total += maxCols
	}
	return total
}

func renderPadding(node *Node, rdata RenderData, data any, flags RenderFlags, maxCols int, buf *buffer.Buffer) int {
	switch node.padType {
	case PadFillEOL:
		// Whatever follows the directive is dropped.
		total := renderNode(node.child(padLeft), rdata, data, flags, maxCols, buf)
		total += padString(node, buf, maxCols-total)
		return total

	case PadHardFill:
		left := buffer.Get()
		pad := buffer.Get()
		right := buffer.Get()
		defer buffer.Release(left)
		defer buffer.Release(pad)
		defer buffer.Release(right)

		used := renderNode(node.child(padLeft), rdata, data, flags, maxCols, left)
		used += renderNode(node.child(padRight), rdata, data, flags, maxCols-used, right)
		if maxCols > used {
			used += padString(node, pad, maxCols-used)
		}

		buf.AddString(left.String())
		buf.AddString(pad.String())
		buf.AddString(right.String())
		return used

	default: // PadSoftFill
		left := buffer.Get()
		pad := buffer.Get()
		right := buffer.Get()
		defer buffer.Release(left)
		defer buffer.Release(pad)
		defer buffer.Release(right)

		// The right side is hard: it renders first and keeps its
		// columns; the left side gets only what remains.
		used := renderNode(node.child(padRight), rdata, data, flags, maxCols, right)
		used += renderNode(node.child(padLeft), rdata, data, flags, maxCols-used, left)
		if maxCols > used {
			used += padString(node, pad, maxCols-used)
		}

		buf.AddString(left.String())
		buf.AddString(pad.String())
		buf.AddString(right.String())
		return used
	}
}

// condTruth evaluates a condition node.
func condTruth(node *Node, rdata RenderData, data any, flags RenderFlags) bool {
	switch node.Type {
	case NodeCondBool:
		if rd := rdata.findString(node.DID, node.UID); rd != nil {
			value := buffer.Get()
			defer buffer.Release(value)
			rd.String(node, data, flags, value)
			return !value.IsEmpty()
		}
		if rd := rdata.findNumber(node.DID, node.UID); rd != nil {
			return rd.Number(node, data, flags) != 0
		}
		return false

	case NodeCondDate:
		rd := rdata.findNumber(node.DID, node.UID)
		if rd == nil {
			return false
		}
		secs, _ := periodSeconds(node.condPeriod)
		cutoff := now().Unix() - int64(node.condCount)*secs
		return rd.Number(node, data, flags) > cutoff
	}
	return false
}

func renderCondition(node *Node, rdata RenderData, data any, flags RenderFlags, maxCols int, buf *buffer.Buffer) int {
	arm := node.child(condFalse)
	if condTruth(node.child(condCondition), rdata, data, flags) {
		arm = node.child(condTrue)
	}

	value := buffer.Get()
	defer buffer.Release(value)
	renderNode(arm, rdata, data, flags, maxCols, value)

	f := node.Format
	if f == nil {
		buf.AddString(value.String())
		return runewidth.StringWidth(value.String())
	}

	max := maxCols
	if f.MaxCols > 0 && f.MaxCols < max {
		max = f.MaxCols
	}
	return formatString(buf, f.MinCols, max, f.Justification, ' ', value.String())
}

// Shell runs a command line and returns its standard output. It is the
// collaborator RenderFilter pipes through; the engine does no process
// work of its own.
type Shell func(command string) (string, error)

// RenderFilter renders a template and, when the template ended in an
// unescaped '|', runs the rendered text as a command and substitutes
// its output (sans trailing newline).
func RenderFilter(exp *Expando, rdata RenderData, data any, flags RenderFlags, maxCols int, shell Shell, buf *buffer.Buffer) (int, error) {
	if exp == nil || !exp.filter || shell == nil {
		return Render(exp, rdata, data, flags, maxCols, buf), nil
	}

	cmd := buffer.Get()
	defer buffer.Release(cmd)
	Render(exp, rdata, data, flags, maxCols, cmd)

	out, err := shell(cmd.String())
	if err != nil {
		return 0, err
	}
	out = strings.TrimRight(out, "\n")
	return formatString(buf, 0, maxCols, JustifyLeft, ' ', out), nil
}
