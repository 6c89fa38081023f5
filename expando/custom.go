package expando

import (
	"strings"
	"time"

	"github.com/ncruces/go-strftime"
)

// ParseEnclosure builds a directive whose body runs from just after
// the short name to the terminator, e.g. the strftime format inside
// %[...]. Backslashes in the body escape the next character. The input
// starts at the opening character.
func ParseEnclosure(s string, did, uid int, terminator byte, f *Format) (*Node, int, error) {
	end := 1
	for end < len(s) && s[end] != terminator {
		if s[end] == '\\' && end+1 < len(s) {
			end++
		}
		end++
	}
	if end >= len(s) {
		return nil, 0, parseErrorf(end, "Expando is missing terminator: '%c'", terminator)
	}

	var sb strings.Builder
	for i := 1; i < end; i++ {
		if s[i] == '\\' {
			continue
		}
		sb.WriteByte(s[i])
	}

	node := newExpandoNode(f, did, uid)
	node.Text = sb.String()
	return node, end + 1, nil
}

// Seconds per conddate period.
const (
	periodMinute = 60
	periodHour   = 60 * periodMinute
	periodDay    = 24 * periodHour
	periodWeek   = 7 * periodDay
	periodMonth  = 30 * periodDay
	periodYear   = 365 * periodDay
)

func periodSeconds(period byte) (int64, bool) {
	switch period {
	case 'y':
		return periodYear, true
	case 'm':
		return periodMonth, true
	case 'w':
		return periodWeek, true
	case 'd':
		return periodDay, true
	case 'H':
		return periodHour, true
	case 'M':
		return periodMinute, true
	}
	return 0, false
}

// ParseCondDate builds a date-freshness condition from
// %<[count period?...>, e.g. "[2w" tests whether the date is newer
// than two weeks. The count defaults to 1. The input starts at the
// '['.
func ParseCondDate(s string, did, uid int) (*Node, int, error) {
	pos := 1 // '['
	count := 0
	for pos < len(s) && isDigit(s[pos]) {
		count = count*10 + int(s[pos]-'0')
		pos++
	}
	if count == 0 {
		count = 1
	}

	if pos >= len(s) {
		return nil, 0, parseErrorf(pos, "Invalid date: %s", s)
	}
	period := s[pos]
	if _, ok := periodSeconds(period); !ok {
		return nil, 0, parseErrorf(pos, "Invalid date: %s", s)
	}
	pos++

	return &Node{
		Type:       NodeCondDate,
		DID:        did,
		UID:        uid,
		condCount:  count,
		condPeriod: period,
	}, pos, nil
}

// DateParser returns the custom parser for a %[...] date directive:
// inside a conditional it parses a freshness test, elsewhere a
// strftime enclosure whose body lands in Node.Text.
func DateParser() CustomParser {
	return func(s string, f *Format, did, uid int, flags ParserFlags) (*Node, int, error) {
		if flags&FlagConditional != 0 {
			return ParseCondDate(s, did, uid)
		}
		return ParseEnclosure(s, did, uid, ']', f)
	}
}

// FormatDate formats a time with the strftime format stored in a date
// node. An empty format falls back to the classic ctime-like form.
func FormatDate(node *Node, t time.Time) string {
	layout := node.Text
	if layout == "" {
		layout = "%a %b %e %H:%M:%S %Y"
	}
	return strftime.Format(layout, t)
}
