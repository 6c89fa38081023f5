// Package enriched renders text/enriched (RFC 1563) bodies as plain text.
// Tags control filling, justification, indentation and emphasis; output is
// line-wrapped and may carry ANSI colour codes or backspace overstrike
// when rendering for a display.
package enriched

import (
	"bufio"
	"io"
	"strings"
	"unicode"

	"github.com/mattn/go-runewidth"

	"github.com/neomutt/neomutt-sub017/consts"
)

const indentSize = 4

// Rich text attributes, used as nesting counters.
const (
	richParam = iota
	richBold
	richUnderline
	richItalic
	richNofill
	richIndent
	richIndentRight
	richExcerpt
	richCenter
	richFlushLeft
	richFlushRight
	richColor
	richMax
)

// enrichedTags maps tag names onto attributes. flushboth is handled as
// flushleft: both mean "stop justifying".
var enrichedTags = map[string]int{
	"param":       richParam,
	"bold":        richBold,
	"italic":      richItalic,
	"underline":   richUnderline,
	"nofill":      richNofill,
	"excerpt":     richExcerpt,
	"indent":      richIndent,
	"indentright": richIndentRight,
	"center":      richCenter,
	"flushleft":   richFlushLeft,
	"flushright":  richFlushRight,
	"flushboth":   richFlushLeft,
	"color":       richColor,
	"x-color":     richColor,
}

// ansiColors are the colour names a <color><param> body may carry.
var ansiColors = map[string]string{
	"black":   "\033[30m",
	"red":     "\033[31m",
	"green":   "\033[32m",
	"yellow":  "\033[33m",
	"blue":    "\033[34m",
	"magenta": "\033[35m",
	"cyan":    "\033[36m",
	"white":   "\033[37m",
}

// Options control the rendering.
type Options struct {
	// WrapLen is the target output width. The effective wrap margin is
	// WrapLen-4 when that is sensible, 72 otherwise.
	WrapLen int

	// Display enables terminal affordances: ANSI colour codes and
	// backspace overstrike for bold/underline/italic.
	Display bool

	// Prefix is written before every output line (a quote prefix).
	// Inside <excerpt> it also replaces the "> " marker.
	Prefix string
}

func (o Options) wrapMargin() int {
	if o.WrapLen > 4 && (o.Display || o.WrapLen < 76) {
		return o.WrapLen - 4
	}
	return 72
}

type renderer struct {
	out  *bufio.Writer
	opts Options

	word  []rune // characters of the word being collected
	line  []rune // characters of the line being filled
	param []rune // body of a <param> inside <color>

	lineLen   int // display columns committed to the line
	wordLen   int // display columns in the pending word
	indentLen int // columns consumed by prefix and indentation

	tags [richMax]int

	wrapMargin int
	err        error
}

func (er *renderer) puts(s string) {
	if er.err == nil {
		_, er.err = er.out.WriteString(s)
	}
}

func (er *renderer) putc(c byte) {
	if er.err == nil {
		er.err = er.out.WriteByte(c)
	}
}

func (er *renderer) spaces(n int) {
	for ; n > 0; n-- {
		er.putc(' ')
	}
}

// wrap emits the current line, justified as the active tags demand, and
// starts the next line with the prefix and indentation.
func (er *renderer) wrap() {
	if er.lineLen > 0 {
		if er.tags[richCenter] > 0 || er.tags[richFlushRight] > 0 {
			// Strip trailing whitespace.
			for len(er.line) > 1 && unicode.IsSpace(er.line[len(er.line)-1]) {
				er.line = er.line[:len(er.line)-1]
				er.lineLen--
			}
			if er.tags[richCenter] > 0 {
				// And leading whitespace.
				y := 0
				for y < len(er.line) && unicode.IsSpace(er.line[y]) {
					y++
				}
				er.line = er.line[y:]
				er.lineLen -= y
			}
		}

		extra := er.wrapMargin - er.lineLen - er.indentLen -
			er.tags[richIndentRight]*indentSize
		if extra > 0 {
			if er.tags[richCenter] > 0 {
				er.spaces(extra / 2)
			} else if er.tags[richFlushRight] > 0 {
				er.spaces(extra - 1)
			}
		}
		// The EOF path pushes a NUL through the word buffer to force a
		// final flush; it terminates the line rather than printing.
		out := er.line
		for i, c := range out {
			if c == 0 {
				out = out[:i]
				break
			}
		}
		er.puts(string(out))
	}

	er.putc('\n')
	er.line = er.line[:0]
	er.lineLen = 0
	er.indentLen = 0
	if er.opts.Prefix != "" {
		er.puts(er.opts.Prefix)
		er.indentLen += len(er.opts.Prefix)
	}

	if er.tags[richExcerpt] > 0 {
		for x := er.tags[richExcerpt]; x > 0; x-- {
			if er.opts.Prefix != "" {
				er.puts(er.opts.Prefix)
				er.indentLen += len(er.opts.Prefix)
			} else {
				er.puts("> ")
				er.indentLen += 2
			}
		}
	} else {
		er.indentLen = 0
	}
	if er.tags[richIndent] > 0 {
		x := er.tags[richIndent] * indentSize
		er.indentLen += x
		er.spaces(x)
	}
}

// flush moves the pending word onto the line, wrapping first when the
// word no longer fits.
func (er *renderer) flush(wrap bool) {
	if er.tags[richNofill] == 0 &&
		er.lineLen+er.wordLen >
			er.wrapMargin-er.tags[richIndentRight]*indentSize-er.indentLen {
		er.wrap()
	}

	if len(er.word) > 0 {
		er.line = append(er.line, er.word...)
		er.lineLen += er.wordLen
		er.word = er.word[:0]
		er.wordLen = 0
	}
	if wrap {
		er.wrap()
	}
}

// putwc adds one character to the pending word. Inside <param> the
// character is captured instead of rendered.
func (er *renderer) putwc(c rune) {
	if er.tags[richParam] > 0 {
		if er.tags[richColor] > 0 {
			er.param = append(er.param, c)
		}
		return // nothing to render
	}

	if (er.tags[richNofill] == 0 && unicode.IsSpace(c)) || c == 0 {
		if c == '\t' {
			er.wordLen += 8 - (er.lineLen+er.wordLen)%8
		} else {
			er.wordLen++
		}
		er.word = append(er.word, c)
		er.flush(false)
		return
	}

	if er.opts.Display {
		switch {
		case er.tags[richBold] > 0:
			er.word = append(er.word, c, '\010', c)
		case er.tags[richUnderline] > 0:
			er.word = append(er.word, '_', '\010', c)
		case er.tags[richItalic] > 0:
			er.word = append(er.word, c, '\010', '_')
		default:
			er.word = append(er.word, c)
		}
	} else {
		er.word = append(er.word, c)
	}
	er.wordLen += runewidth.RuneWidth(c)
}

// putRaw appends a zero-width control string (an ANSI escape) to the
// pending word.
func (er *renderer) putRaw(s string) {
	for _, c := range s {
		er.word = append(er.word, c)
	}
}

// setTag processes one <tag> or </tag>.
func (er *renderer) setTag(tag string) {
	name := strings.TrimPrefix(tag, "/")
	j, ok := enrichedTags[strings.ToLower(name)]
	if !ok {
		return
	}

	if j == richCenter || j == richFlushLeft || j == richFlushRight {
		er.flush(true)
	}

	if strings.HasPrefix(tag, "/") {
		if er.tags[j] > 0 { // don't go negative
			er.tags[j]--
		}
		if er.opts.Display && j == richParam && er.tags[richColor] > 0 {
			if esc, ok := ansiColors[strings.ToLower(string(er.param))]; ok {
				er.putRaw(esc)
			}
		}
		if er.opts.Display && j == richColor {
			er.putRaw("\033[0m")
		}
		if j == richParam {
			er.param = er.param[:0]
		}
	} else {
		er.tags[j]++
	}

	if j == richExcerpt {
		er.flush(true)
	}
}

// States of the tag scanner.
const (
	stText = iota
	stLangle
	stTag
	stBogusTag
	stNewline
	stEOF
	stDone
)

// Render formats an enriched-text stream onto w. The input must already
// be UTF-8; callers transcode other charsets first. An ill-formed byte
// sequence ends the input quietly, like EOF.
func Render(r io.Reader, w io.Writer, opts Options) error {
	er := &renderer{
		out:        bufio.NewWriter(w),
		opts:       opts,
		wrapMargin: opts.wrapMargin(),
	}

	in := bufio.NewReader(r)
	var tag []rune

	if opts.Prefix != "" {
		er.puts(opts.Prefix)
		er.indentLen += len(opts.Prefix)
	}

	state := stText
	var wc rune
	for state != stDone {
		if state != stEOF {
			c, size, err := in.ReadRune()
			if err != nil || (c == 0xFFFD && size == 1) {
				state = stEOF
			} else {
				wc = c
			}
		}

		switch state {
		case stText:
			switch wc {
			case '<':
				state = stLangle
			case '\n':
				if er.tags[richNofill] > 0 {
					er.flush(true)
				} else {
					er.putwc(' ')
					state = stNewline
				}
			default:
				er.putwc(wc)
			}

		case stLangle:
			if wc == '<' {
				er.putwc(wc)
				state = stText
				break
			}
			tag = tag[:0]
			state = stTag
			fallthrough // this char is the first of the tag

		case stTag:
			if wc == '>' {
				er.setTag(string(tag))
				state = stText
			} else if len(tag) < consts.MaxEnrichedTag {
				tag = append(tag, wc)
			} else {
				state = stBogusTag // ignore overly long tags
			}

		case stBogusTag:
			if wc == '>' {
				state = stText
			}

		case stNewline:
			if wc == '\n' {
				er.flush(true)
			} else {
				_ = in.UnreadRune()
				state = stText
			}

		case stEOF:
			er.putwc(0)
			er.flush(true)
			state = stDone
		}
	}

	er.putc('\n') // a final newline
	if er.err != nil {
		return er.err
	}
	return er.out.Flush()
}

// RenderString is Render over in-memory text.
func RenderString(s string, opts Options) (string, error) {
	var sb strings.Builder
	err := Render(strings.NewReader(s), &sb, opts)
	return sb.String(), err
}
