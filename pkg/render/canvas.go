// Package render draws overlay sprites onto a terminal cell buffer.
package render

import (
	"io"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/muesli/termenv"

	"github.com/zhaozixinnn/drawisthintv/pkg/overlay"
)

// Opacity thresholds for terminal rendering.
const (
	HiddenBelow = 0.05
	FaintBelow  = 0.5
)

// Style is the look of one cell.
type Style struct {
	FG    string // "#RRGGBB", empty for the terminal default
	Faint bool
}

type cell struct {
	ch    rune
	style Style
	// cont marks the right half of a wide rune.
	cont bool
}

// Canvas is a fixed-size grid of styled cells.
type Canvas struct {
	width, height int
	cells         [][]cell
	renderer      *lipgloss.Renderer
	styles        map[Style]lipgloss.Style
}

// NewCanvas creates a blank canvas rendered with the default lipgloss
// renderer.
func NewCanvas(width, height int) *Canvas {
	c := &Canvas{
		renderer: lipgloss.DefaultRenderer(),
		styles:   make(map[Style]lipgloss.Style),
	}
	c.Resize(width, height)
	return c
}

// NewRenderer returns a lipgloss renderer pinned to a color profile.
func NewRenderer(w io.Writer, profile termenv.Profile) *lipgloss.Renderer {
	r := lipgloss.NewRenderer(w)
	r.SetColorProfile(profile)
	return r
}

// SetRenderer replaces the renderer used by String.
func (c *Canvas) SetRenderer(r *lipgloss.Renderer) {
	c.renderer = r
	c.styles = make(map[Style]lipgloss.Style)
}

// Size returns the canvas dimensions.
func (c *Canvas) Size() (int, int) {
	return c.width, c.height
}

// Resize changes the dimensions and clears the canvas.
func (c *Canvas) Resize(width, height int) {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	c.width, c.height = width, height
	c.cells = make([][]cell, height)
	for y := range c.cells {
		c.cells[y] = make([]cell, width)
	}
	c.Clear()
}

// Clear blanks every cell.
func (c *Canvas) Clear() {
	for _, row := range c.cells {
		for x := range row {
			row[x] = cell{ch: ' '}
		}
	}
}

// DrawText writes text starting at column x of row y and returns the
// number of columns it covered, clipped ones included. Runes falling
// outside the canvas are dropped; a wide rune that does not fit whole is
// dropped too.
func (c *Canvas) DrawText(x, y int, text string, st Style) int {
	if y < 0 || y >= c.height {
		return VisibleLen(text)
	}
	row := c.cells[y]
	col := x
	for _, r := range text {
		w := ansi.StringWidth(string(r))
		if w == 0 {
			continue
		}
		if col >= 0 && col+w <= c.width {
			c.clearWide(row, col)
			if w == 2 {
				c.clearWide(row, col+1)
				row[col+1] = cell{style: st, cont: true}
			}
			row[col] = cell{ch: r, style: st}
		}
		col += w
	}
	return col - x
}

// clearWide blanks the other half of a wide rune about to be overwritten
// at col.
func (c *Canvas) clearWide(row []cell, col int) {
	switch {
	case row[col].cont && col > 0:
		row[col-1] = cell{ch: ' '}
	case !row[col].cont && col+1 < len(row) && row[col+1].cont:
		row[col+1] = cell{ch: ' '}
	}
}

// Blit writes a plain multi-line string at (x, y), clipping to the canvas.
func (c *Canvas) Blit(x, y int, rendered string, st Style) {
	for dy, line := range strings.Split(rendered, "\n") {
		c.DrawText(x, y+dy, line, st)
	}
}

// DrawSprite draws a visible sprite at its current position. Opacity
// below HiddenBelow is not drawn and below FaintBelow is drawn faint.
func (c *Canvas) DrawSprite(sp *overlay.Sprite) bool {
	if sp == nil || !sp.Visible || sp.Opacity < HiddenBelow {
		return false
	}
	st := Style{Faint: sp.Opacity < FaintBelow}
	if validHex(sp.Color) {
		st.FG = strings.ToUpper(sp.Color)
	}
	x := int(math.Floor(sp.X))
	y := int(math.Floor(sp.Y))
	c.DrawText(x, y, sanitize(sp.Text), st)
	return true
}

// DrawSprites draws every sprite in order and returns how many were drawn.
func (c *Canvas) DrawSprites(sprites []*overlay.Sprite) int {
	n := 0
	for _, sp := range sprites {
		if c.DrawSprite(sp) {
			n++
		}
	}
	return n
}

// String renders the canvas, one line per row, grouping runs of equally
// styled cells.
func (c *Canvas) String() string {
	var b strings.Builder
	var run strings.Builder
	for y, row := range c.cells {
		if y > 0 {
			b.WriteByte('\n')
		}
		cur := Style{}
		flush := func() {
			if run.Len() == 0 {
				return
			}
			b.WriteString(c.paint(cur, run.String()))
			run.Reset()
		}
		for _, cl := range row {
			if cl.cont {
				continue
			}
			if cl.style != cur {
				flush()
				cur = cl.style
			}
			run.WriteRune(cl.ch)
		}
		flush()
	}
	return b.String()
}

// PlainString renders the canvas without any styling.
func (c *Canvas) PlainString() string {
	lines := make([]string, len(c.cells))
	for y, row := range c.cells {
		var b strings.Builder
		for _, cl := range row {
			if !cl.cont {
				b.WriteRune(cl.ch)
			}
		}
		lines[y] = b.String()
	}
	return strings.Join(lines, "\n")
}

func (c *Canvas) paint(st Style, s string) string {
	if st == (Style{}) {
		return s
	}
	ls, ok := c.styles[st]
	if !ok {
		ls = c.renderer.NewStyle().Faint(st.Faint)
		if st.FG != "" {
			ls = ls.Foreground(lipgloss.Color(st.FG))
		}
		c.styles[st] = ls
	}
	return ls.Render(s)
}
