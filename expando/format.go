package expando

import (
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/neomutt/neomutt-sub017/buffer"
)

// formatString lays a value out in a column budget: truncate to maxCols
// display columns (maxCols < 0 means unbounded), then pad to minCols
// with the pad character on the side the justification dictates.
// Returns the display columns written.
func formatString(dst *buffer.Buffer, minCols, maxCols int, just Justify, pad byte, s string) int {
	if maxCols >= 0 {
		s = runewidth.Truncate(s, maxCols, "")
	}
	cols := runewidth.StringWidth(s)

	if cols >= minCols {
		dst.AddString(s)
		return cols
	}

	fill := minCols - cols
	switch just {
	case JustifyRight:
		dst.AddString(strings.Repeat(string(pad), fill))
		dst.AddString(s)
	case JustifyCenter:
		dst.AddString(strings.Repeat(string(pad), fill/2))
		dst.AddString(s)
		dst.AddString(strings.Repeat(string(pad), fill-fill/2))
	default:
		dst.AddString(s)
		dst.AddString(strings.Repeat(string(pad), fill))
	}
	return minCols
}
