package overlay

import "time"

// Default configuration values.
const (
	DefaultScrollDuration = 8 * time.Second
	DefaultFixedDuration  = 4 * time.Second
	DefaultFadeOut        = 500 * time.Millisecond
	DefaultAdmitInterval  = time.Second
	DefaultSeekThreshold  = 2 * time.Second
)

// Config holds configuration for a Scheduler.
type Config struct {
	// Density is the initial admission density, 0..100. Default: 100.
	Density int

	// MaxLanes caps the scroll lane count. Zero means as many lanes as
	// the viewport height allows.
	MaxLanes int

	// MinLaneHeight is the height of one lane in rows. Default: 1.
	MinLaneHeight int

	// LaneGap is the spacing in cells between events sharing a lane.
	// Default: 2.
	LaneGap float64

	// PoolCapacity bounds the sprite free-list. Default: 100.
	PoolCapacity int

	// ScrollDuration is how long a zero-width event takes to cross the
	// viewport. It fixes the horizontal speed at width/ScrollDuration.
	// Default: 8s.
	ScrollDuration time.Duration

	// FixedDuration is how long top and bottom events stay on screen.
	// Default: 4s.
	FixedDuration time.Duration

	// FadeOut is the tail of FixedDuration over which pinned events fade.
	// Default: 0.5s.
	FadeOut time.Duration

	// FixedSlots is the number of stacked pinned slots per edge. Default: 5.
	FixedSlots int

	// AdmitInterval is the wall-clock time between admission ticks.
	// Default: 1s.
	AdmitInterval time.Duration

	// MaxPerTick caps admissions per ordinary tick. Default: 3.
	MaxPerTick int

	// SeekThreshold is the largest forward step of the playback clock
	// between two frames that still counts as playback. A larger step is a
	// forward seek and the skipped stretch is not caught up. Default: 2s.
	SeekThreshold time.Duration
}

func (c Config) defaults() Config {
	if c.ScrollDuration <= 0 {
		c.ScrollDuration = DefaultScrollDuration
	}
	if c.FixedDuration <= 0 {
		c.FixedDuration = DefaultFixedDuration
	}
	if c.FadeOut <= 0 {
		c.FadeOut = DefaultFadeOut
	}
	if c.FadeOut > c.FixedDuration {
		c.FadeOut = c.FixedDuration
	}
	if c.AdmitInterval <= 0 {
		c.AdmitInterval = DefaultAdmitInterval
	}
	if c.SeekThreshold <= 0 {
		c.SeekThreshold = DefaultSeekThreshold
	}
	return c
}
