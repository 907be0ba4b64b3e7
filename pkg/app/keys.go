package app

import "github.com/charmbracelet/bubbles/key"

// KeyMap holds the player key bindings.
type KeyMap struct {
	Pause       key.Binding
	SeekBack    key.Binding
	SeekForward key.Binding
	DensityUp   key.Binding
	DensityDown key.Binding
	Toggle      key.Binding
	MoreLanes   key.Binding
	FewerLanes  key.Binding
	Search      key.Binding
	Refetch     key.Binding
	ClearManual key.Binding
	Episode     key.Binding
	Quit        key.Binding

	// Search panel.
	Up     key.Binding
	Down   key.Binding
	Choose key.Binding
	Cancel key.Binding
}

// DefaultKeyMap returns the default bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Pause:       key.NewBinding(key.WithKeys(" ", "space"), key.WithHelp("space", "pause")),
		SeekBack:    key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←", "-5s")),
		SeekForward: key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→", "+5s")),
		DensityUp:   key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑", "density+")),
		DensityDown: key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓", "density-")),
		Toggle:      key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "overlay")),
		MoreLanes:   key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "lanes")),
		FewerLanes:  key.NewBinding(key.WithKeys("-", "_"), key.WithHelp("-", "lanes")),
		Search:      key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
		Refetch:     key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refetch")),
		ClearManual: key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "auto")),
		Episode: key.NewBinding(
			key.WithKeys("1", "2", "3", "4", "5", "6", "7", "8", "9"),
			key.WithHelp("1-9", "episode"),
		),
		Quit: key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),

		Up:     key.NewBinding(key.WithKeys("up", "ctrl+p")),
		Down:   key.NewBinding(key.WithKeys("down", "ctrl+n")),
		Choose: key.NewBinding(key.WithKeys("enter")),
		Cancel: key.NewBinding(key.WithKeys("esc")),
	}
}

// ShortHelp returns the bindings shown in the status bar.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Pause, k.SeekBack, k.SeekForward, k.DensityUp, k.Toggle, k.Search, k.Episode, k.Quit}
}
