package theme

import "github.com/charmbracelet/lipgloss"

// Styles are the lipgloss styles derived from a Theme.
type Styles struct {
	Status   lipgloss.Style
	Notice   lipgloss.Style
	Error    lipgloss.Style
	Panel    lipgloss.Style
	Title    lipgloss.Style
	Selected lipgloss.Style
	Dim      lipgloss.Style
}

// NewStyles builds the styles for t.
func NewStyles(t Theme) Styles {
	return Styles{
		Status: lipgloss.NewStyle().
			Foreground(lipgloss.Color(t.Foreground)).
			Background(lipgloss.Color(t.Background)),
		Notice: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(t.Notice)).
			Background(lipgloss.Color(t.Background)),
		Error: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(t.Error)).
			Background(lipgloss.Color(t.Background)),
		Panel: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(t.Accent)).
			Padding(0, 1),
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(t.Accent)),
		Selected: lipgloss.NewStyle().
			Foreground(lipgloss.Color(t.Selected)).
			Background(lipgloss.Color(t.Accent)),
		Dim: lipgloss.NewStyle().
			Foreground(lipgloss.Color(t.Dim)),
	}
}
