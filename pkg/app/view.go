package app

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/zhaozixinnn/drawisthintv/pkg/render"
)

// View renders the overlay, or the search panel while it is open, above
// a one-line status bar.
func (m Model) View() string {
	if m.width <= 0 || m.height <= 0 {
		return ""
	}
	oh := max(m.height-1, 0)

	var body string
	if m.mode != modePlay {
		body = lipgloss.Place(m.width, oh, lipgloss.Center, lipgloss.Center, m.searchPanel())
	} else {
		m.canvas.Clear()
		m.canvas.DrawSprites(m.sched.Sprites())
		body = m.canvas.String()
	}

	out := m.statusBar()
	if oh > 0 {
		out = body + "\n" + out
	}
	return m.zones.Scan(out)
}

// statusBar renders one line of playback and scheduler state, padded or
// cut to the terminal width.
func (m Model) statusBar() string {
	st := m.sched.Stats()

	state := "▶"
	if !m.clock.Playing() {
		state = "⏸"
	}
	overlayState := ""
	if !m.sched.Enabled() {
		overlayState = " off"
	}

	parts := []string{
		fmt.Sprintf("%s %s", state, formatPosition(m.clock.Position())),
		m.unitLabel(),
		fmt.Sprintf("density %d%s", m.sched.Density(), overlayState),
		fmt.Sprintf("lanes %d/%s", st.Lanes, m.laneLabel()),
		fmt.Sprintf("on screen %d", st.Active),
	}
	if st.Dropped > 0 {
		parts = append(parts, fmt.Sprintf("dropped %d", st.Dropped))
	}
	line := " " + strings.Join(parts, " │ ")

	avail := m.width - render.VisibleLen(line) - 3
	if m.notice != "" {
		if avail > 4 {
			st := m.styles.Notice
			if m.noticeErr {
				st = m.styles.Error
			}
			return m.styles.Status.Render(line+" │ ") + st.Render(render.Fit(m.notice, avail))
		}
	} else if help := m.helpLine(); avail >= render.VisibleLen(help) {
		line += " │ " + help
	}
	return m.styles.Status.Render(render.Fit(line, m.width))
}

func (m Model) helpLine() string {
	var parts []string
	for _, b := range m.keys.ShortHelp() {
		h := b.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return strings.Join(parts, "  ")
}

func (m Model) unitLabel() string {
	u, ok := m.sel.Current()
	if !ok {
		return "no media"
	}
	label := u.Title
	if label == "" {
		label = u.ID
	}
	if u.Episode > 0 {
		label = fmt.Sprintf("%s #%d", label, u.Episode)
	}
	if u.Manual {
		label += " (manual)"
	}
	switch {
	case m.loading:
		label += " loading…"
	case m.loadErr != nil:
		label += " no comments"
	}
	return label
}

// searchPanel renders the search prompt and its clickable results.
func (m Model) searchPanel() string {
	width := min(max(m.width-8, 20), 72)
	lines := []string{m.styles.Title.Render("Choose a source"), m.input.View(), ""}

	if len(m.results) == 0 {
		hint := "enter: search   esc: close"
		if m.query != "" && m.mode == modeSearchInput && !m.input.Focused() {
			hint = "searching…"
		}
		lines = append(lines, m.styles.Dim.Render(hint))
	}
	for i, a := range m.results {
		row := render.Fit(fmt.Sprintf("%s  (%d episodes)", a.Title, len(a.Episodes)), width-4)
		if i == m.cursor {
			row = m.styles.Selected.Render(row)
		}
		lines = append(lines, m.zones.Mark(resultZoneID(i), row))
	}
	if len(m.results) > 0 {
		lines = append(lines, "", m.styles.Dim.Render("↑/↓ move   enter/click choose   /: edit   esc: close"))
	}
	return m.styles.Panel.Width(width).Render(strings.Join(lines, "\n"))
}

func resultZoneID(i int) string {
	return fmt.Sprintf("result-%d", i)
}

// formatPosition renders seconds as m:ss.d.
func formatPosition(pos float64) string {
	if pos < 0 {
		pos = 0
	}
	total := int(pos * 10)
	return fmt.Sprintf("%d:%02d.%d", total/600, total/10%60, total%10)
}
