package overlay

import (
	"time"

	"github.com/zhaozixinnn/drawisthintv/pkg/danmaku"
)

// State is the lifecycle state of an Instance.
type State int

const (
	Active State = iota
	Expired
)

func (s State) String() string {
	if s == Expired {
		return "expired"
	}
	return "active"
}

// Instance is one admitted event on its way across the screen.
type Instance struct {
	ID    uint64
	Event danmaku.Event
	Kind  danmaku.Kind

	// Lane is the scroll lane, -1 for pinned events.
	Lane int
	// Slot is the pinned slot, -1 for scroll events.
	Slot int

	DueTime   float64   // playback seconds at which it becomes visible
	StartedAt time.Time // wall time the animation starts
	Duration  time.Duration

	StartX, EndX float64
	Y            float64
	Width        int
	Height       int
	Opacity      float64
	State        State

	Sprite *Sprite
}

// Elapsed returns the wall-clock animation time at now. It is negative for
// instances admitted ahead of their due time.
func (in *Instance) Elapsed(now time.Time) time.Duration {
	return now.Sub(in.StartedAt)
}

// X returns the horizontal position at now, interpolated linearly from
// StartX to EndX over Duration.
func (in *Instance) X(now time.Time) float64 {
	if in.Duration <= 0 {
		return in.EndX
	}
	frac := float64(in.Elapsed(now)) / float64(in.Duration)
	return in.StartX + (in.EndX-in.StartX)*frac
}
