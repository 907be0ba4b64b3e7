// Package theme holds the color palettes for the player chrome: the status
// bar, notices and the search panel. Comment colors come from the feed and
// are not themed.
package theme

import (
	"sort"
	"strings"
	"sync"
)

// Theme is a named palette of "#RRGGBB" colors.
type Theme struct {
	Name string

	// Status bar
	Foreground string
	Background string
	Notice     string
	Error      string

	// Search panel
	Accent   string // border, title and selected row background
	Selected string // selected row text
	Dim      string // hints
}

var (
	mu       sync.RWMutex
	registry = map[string]Theme{}
)

func init() {
	thRegisterBuiltins()
}

// Get returns a named theme, falling back to Default if not found.
func Get(name string) Theme {
	t, ok := Lookup(name)
	if !ok {
		return Default()
	}
	return t
}

// Lookup returns a named theme and whether it exists.
func Lookup(name string) (Theme, bool) {
	mu.RLock()
	defer mu.RUnlock()
	t, ok := registry[strings.ToLower(name)]
	return t, ok
}

// Names returns all available theme names sorted alphabetically.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Register adds t under its lowercase name, replacing any theme of the
// same name.
func Register(t Theme) {
	mu.Lock()
	defer mu.Unlock()
	registry[strings.ToLower(t.Name)] = t
}
