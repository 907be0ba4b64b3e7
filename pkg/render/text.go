package render

import (
	"strings"

	"github.com/charmbracelet/x/ansi"
)

// VisibleLen returns the width of s in terminal cells. Escape sequences
// are ignored and wide characters count as two cells.
func VisibleLen(s string) int {
	return ansi.StringWidth(s)
}

// Truncate cuts s to at most maxWidth cells, appending tail when it cuts.
func Truncate(s string, maxWidth int, tail string) string {
	if maxWidth <= 0 {
		return ""
	}
	return ansi.Truncate(s, maxWidth, tail)
}

// PadRight pads s with spaces to width cells.
func PadRight(s string, width int) string {
	vis := VisibleLen(s)
	if vis >= width {
		return s
	}
	return s + strings.Repeat(" ", width-vis)
}

// Fit truncates or pads s to exactly width cells.
func Fit(s string, width int) string {
	return PadRight(Truncate(s, width, "…"), width)
}

// sanitize flattens text to a single line of printable runes.
func sanitize(s string) string {
	s = ansi.Strip(s)
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\n' || r == '\r' || r == '\t':
			return ' '
		case r < 0x20 || r == 0x7f:
			return -1
		}
		return r
	}, s)
}

// validHex reports whether s is "#RRGGBB".
func validHex(s string) bool {
	if len(s) != 7 || s[0] != '#' {
		return false
	}
	for _, c := range s[1:] {
		switch {
		case c >= '0' && c <= '9', c >= 'a' && c <= 'f', c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}
