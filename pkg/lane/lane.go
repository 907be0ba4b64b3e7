// Package lane places overlay events on screen without visual collisions.
//
// Scrolling events share a fixed number of horizontal lanes derived from the
// viewport height. A lane accepts a new event only if the event's entry
// window does not intersect any current occupant; the lowest free lane wins,
// which favours the top of the screen. Non-overlap is decided once, at
// admission. Lanes are a placement heuristic and are not re-checked later.
//
// Pinned (top/bottom) events bypass the lane table and round-robin over a
// small number of stacked slots per edge.
package lane

import (
	"time"

	"github.com/zhaozixinnn/drawisthintv/pkg/danmaku"
)

// Default configuration values.
const (
	DefaultMinLaneHeight = 1
	DefaultSlots         = 5
	DefaultGap           = 2.0
)

// Config holds configuration for an Allocator.
type Config struct {
	// MinLaneHeight is the height of one lane in rows. Default: 1.
	MinLaneHeight int

	// MaxLanes caps the lane count. Zero means no cap beyond the viewport.
	MaxLanes int

	// Gap is the minimum horizontal spacing in cells kept between
	// consecutive events in the same lane. Default: 2. A negative value
	// disables spacing.
	Gap float64

	// Slots is the number of stacked top and bottom slots. Default: 5.
	Slots int
}

func (c Config) defaults() Config {
	if c.MinLaneHeight <= 0 {
		c.MinLaneHeight = DefaultMinLaneHeight
	}
	if c.MaxLanes < 0 {
		c.MaxLanes = 0
	}
	if c.Gap < 0 {
		c.Gap = 0
	} else if c.Gap == 0 {
		c.Gap = DefaultGap
	}
	if c.Slots <= 0 {
		c.Slots = DefaultSlots
	}
	return c
}

// Occupant is the lane record for one scrolling instance. All geometry is
// in cells; Speed is cells per second toward the left edge.
type Occupant struct {
	ID        uint64
	StartedAt time.Time
	StartX    float64
	Width     float64
	Speed     float64
}

// SpanAt returns the left and right edge of the occupant at wall time t.
// Before StartedAt the occupant sits to the right of StartX.
func (o Occupant) SpanAt(t time.Time) (left, right float64) {
	elapsed := t.Sub(o.StartedAt).Seconds()
	left = o.StartX - o.Speed*elapsed
	return left, left + o.Width
}

// Allocator owns the lane table and the pinned slot cursors. It is not safe
// for concurrent use.
type Allocator struct {
	cfg    Config
	height int
	lanes  [][]Occupant

	topCursor    int
	bottomCursor int
}

// New creates an Allocator with no lanes. Call UpdateContainerHeight once
// the viewport size is known.
func New(cfg Config) *Allocator {
	return &Allocator{cfg: cfg.defaults()}
}

// UpdateContainerHeight recomputes the lane count for a viewport height in
// rows.
func (a *Allocator) UpdateContainerHeight(height int) {
	if height < 0 {
		height = 0
	}
	a.height = height
	a.resize()
}

// SetMaxLanes changes the lane cap. Zero removes the cap.
func (a *Allocator) SetMaxLanes(n int) {
	if n < 0 {
		n = 0
	}
	a.cfg.MaxLanes = n
	a.resize()
}

// MaxLanes returns the configured cap (0 = uncapped).
func (a *Allocator) MaxLanes() int {
	return a.cfg.MaxLanes
}

// resize grows or shrinks the lane table. Shrinking drops the occupant
// records of removed lanes; their instances keep animating untracked.
func (a *Allocator) resize() {
	n := a.height / a.cfg.MinLaneHeight
	if a.cfg.MaxLanes > 0 && n > a.cfg.MaxLanes {
		n = a.cfg.MaxLanes
	}
	switch {
	case n < len(a.lanes):
		for i := n; i < len(a.lanes); i++ {
			a.lanes[i] = nil
		}
		a.lanes = a.lanes[:n]
	case n > len(a.lanes):
		for len(a.lanes) < n {
			a.lanes = append(a.lanes, nil)
		}
	}
}

// Count returns the number of usable lanes.
func (a *Allocator) Count() int {
	return len(a.lanes)
}

// LaneHeight returns the height of one lane in rows.
func (a *Allocator) LaneHeight() int {
	return a.cfg.MinLaneHeight
}

// Assign finds the first lane whose occupants do not intersect the
// candidate's entry window and records the candidate there. The candidate's
// StartedAt is the wall time it begins to enter. It returns false when
// every lane is blocked; the caller drops the event.
func (a *Allocator) Assign(c Occupant) (int, bool) {
	for i := range a.lanes {
		if a.fits(i, c) {
			a.lanes[i] = append(a.lanes[i], c)
			return i, true
		}
	}
	return -1, false
}

// fits reports whether candidate c can enter lane i.
func (a *Allocator) fits(i int, c Occupant) bool {
	entryLeft := c.StartX
	entryRight := c.StartX + c.Width + a.cfg.Gap
	for _, o := range a.lanes[i] {
		left, right := o.SpanAt(c.StartedAt)
		right += a.cfg.Gap
		if entryLeft < right && left < entryRight {
			return false
		}
		// A faster candidate could still catch a slower occupant before
		// the occupant leaves the screen.
		if c.Speed > o.Speed && o.Speed > 0 {
			exit := o.StartedAt.Add(time.Duration((o.StartX + o.Width) / o.Speed * float64(time.Second)))
			if exit.After(c.StartedAt) {
				cl, _ := c.SpanAt(exit)
				_, oRight := o.SpanAt(exit)
				if cl < oRight+a.cfg.Gap {
					return false
				}
			}
		}
	}
	return true
}

// Release removes the occupant record id from lane. It is a no-op when the
// lane no longer exists or the record is gone.
func (a *Allocator) Release(lane int, id uint64) {
	if lane < 0 || lane >= len(a.lanes) {
		return
	}
	occ := a.lanes[lane]
	for i := range occ {
		if occ[i].ID == id {
			copy(occ[i:], occ[i+1:])
			occ[len(occ)-1] = Occupant{}
			a.lanes[lane] = occ[:len(occ)-1]
			return
		}
	}
}

// Occupants returns a copy of the records in lane.
func (a *Allocator) Occupants(lane int) []Occupant {
	if lane < 0 || lane >= len(a.lanes) {
		return nil
	}
	out := make([]Occupant, len(a.lanes[lane]))
	copy(out, a.lanes[lane])
	return out
}

// Tracked returns the total number of occupant records.
func (a *Allocator) Tracked() int {
	n := 0
	for _, l := range a.lanes {
		n += len(l)
	}
	return n
}

// Slots returns the number of pinned slots per edge.
func (a *Allocator) Slots() int {
	return a.cfg.Slots
}

// NextSlot returns the next pinned slot for a top or bottom event, cycling
// through the slots. Scroll events get -1.
func (a *Allocator) NextSlot(kind danmaku.Kind) int {
	switch kind {
	case danmaku.Top:
		s := a.topCursor
		a.topCursor = (a.topCursor + 1) % a.cfg.Slots
		return s
	case danmaku.Bottom:
		s := a.bottomCursor
		a.bottomCursor = (a.bottomCursor + 1) % a.cfg.Slots
		return s
	default:
		return -1
	}
}

// Reset clears every occupant record and the slot cursors. The lane count
// is kept.
func (a *Allocator) Reset() {
	for i := range a.lanes {
		a.lanes[i] = nil
	}
	a.topCursor = 0
	a.bottomCursor = 0
}
