// Package danmaku defines the overlay event model shared by the scheduler
// and its collaborators: the immutable Event, its identity Key, and the
// time-sorted Store that the scheduler samples every admission tick.
package danmaku

import (
	"fmt"
	"strings"
)

// Kind is the placement mode of an event.
type Kind int

const (
	// Scroll events travel right-to-left across a lane.
	Scroll Kind = iota
	// Top events are pinned to a stacked slot at the top of the viewport.
	Top
	// Bottom events are pinned to a stacked slot at the bottom.
	Bottom
)

// DefaultColor is used when a feed omits or garbles the color field.
const DefaultColor = "#FFFFFF"

// DefaultSize is the nominal font size used by most feeds.
const DefaultSize = 25

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	switch k {
	case Scroll:
		return "scroll"
	case Top:
		return "top"
	case Bottom:
		return "bottom"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ParseKind parses a kind name as produced by String. Unknown names map
// to Scroll.
func ParseKind(s string) Kind {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "top":
		return Top
	case "bottom":
		return Bottom
	default:
		return Scroll
	}
}

// UnmarshalText implements encoding.TextUnmarshaler so kinds can be written
// by name in fixture feeds.
func (k *Kind) UnmarshalText(text []byte) error {
	*k = ParseKind(string(text))
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Event is a single timestamped overlay comment. Events are immutable once
// placed in a Store.
type Event struct {
	Time  float64 `json:"time" yaml:"time"` // seconds on the playback clock
	Kind  Kind    `json:"kind" yaml:"kind"`
	Text  string  `json:"text" yaml:"text"`
	Color string  `json:"color,omitempty" yaml:"color,omitempty"` // "#RRGGBB"
	Size  int     `json:"size,omitempty" yaml:"size,omitempty"`
}

// Key identifies the logical event. Two events with the same time and text
// are the same event.
type Key struct {
	Time float64
	Text string
}

// Key returns the identity key of e.
func (e Event) Key() Key {
	return Key{Time: e.Time, Text: e.Text}
}

// Normalize fills in defaults for missing color and size.
func (e Event) Normalize() Event {
	if e.Color == "" {
		e.Color = DefaultColor
	}
	if e.Size <= 0 {
		e.Size = DefaultSize
	}
	return e
}
