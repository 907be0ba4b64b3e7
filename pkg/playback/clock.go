// Package playback provides a simulated player clock. The overlay reads
// its position once per frame; seeking and pausing are how a player
// drives the scheduler.
package playback

import (
	"math"
	"time"
)

// Clock is a playback position that advances with wall time while
// playing. It is not safe for concurrent use.
type Clock struct {
	now func() time.Time

	base     float64   // position at anchor
	anchor   time.Time // wall time base was taken
	rate     float64
	playing  bool
	duration float64 // 0 = unbounded
}

// Option configures a Clock.
type Option func(*Clock)

// WithNow sets the wall-clock source.
func WithNow(now func() time.Time) Option {
	return func(c *Clock) { c.now = now }
}

// WithDuration bounds the position to [0, d].
func WithDuration(d time.Duration) Option {
	return func(c *Clock) { c.duration = d.Seconds() }
}

// New returns a paused clock at position 0.
func New(opts ...Option) *Clock {
	c := &Clock{now: time.Now, rate: 1}
	for _, opt := range opts {
		opt(c)
	}
	c.anchor = c.now()
	return c
}

// Position returns the playback position in seconds.
func (c *Clock) Position() float64 {
	pos := c.base
	if c.playing {
		pos += c.now().Sub(c.anchor).Seconds() * c.rate
	}
	return c.clamp(pos)
}

// Playing reports whether the clock is running.
func (c *Clock) Playing() bool {
	return c.playing
}

// Rate returns the playback rate.
func (c *Clock) Rate() float64 {
	return c.rate
}

// Duration returns the bound set by WithDuration, zero when unbounded.
func (c *Clock) Duration() time.Duration {
	return time.Duration(c.duration * float64(time.Second))
}

// Play starts the clock.
func (c *Clock) Play() {
	if c.playing {
		return
	}
	c.rebase()
	c.playing = true
}

// Pause stops the clock at its current position.
func (c *Clock) Pause() {
	if !c.playing {
		return
	}
	c.rebase()
	c.playing = false
}

// Toggle flips between playing and paused and reports the new state.
func (c *Clock) Toggle() bool {
	if c.playing {
		c.Pause()
	} else {
		c.Play()
	}
	return c.playing
}

// Seek jumps to pos seconds.
func (c *Clock) Seek(pos float64) {
	c.base = c.clamp(pos)
	c.anchor = c.now()
}

// SeekBy jumps by delta seconds relative to the current position.
func (c *Clock) SeekBy(delta float64) {
	c.Seek(c.Position() + delta)
}

// SetRate changes the playback rate. Non-positive or non-finite rates are
// ignored.
func (c *Clock) SetRate(r float64) {
	if r <= 0 || math.IsNaN(r) || math.IsInf(r, 0) {
		return
	}
	c.rebase()
	c.rate = r
}

// Ended reports whether a bounded clock has reached its end.
func (c *Clock) Ended() bool {
	return c.duration > 0 && c.Position() >= c.duration
}

func (c *Clock) rebase() {
	c.base = c.Position()
	c.anchor = c.now()
}

func (c *Clock) clamp(pos float64) float64 {
	if pos < 0 || math.IsNaN(pos) {
		return 0
	}
	if c.duration > 0 && pos > c.duration {
		return c.duration
	}
	return pos
}
