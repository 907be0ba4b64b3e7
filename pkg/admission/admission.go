// Package admission decides, once per scheduling tick, which due overlay
// events may become visible.
//
// The density knob (0-100) drives both how far ahead the controller samples
// the event store and how many events may be on screen at once. Lower
// density widens the sampling window and shrinks the share of candidates
// admitted. A hard cap per tick keeps bursts from flooding the screen.
package admission

import (
	"math"
	"math/rand/v2"

	"github.com/zhaozixinnn/drawisthintv/pkg/danmaku"
)

// Default configuration values.
const (
	DefaultDensity    = 100
	DefaultMaxPerTick = 3
	minConcurrent     = 5
	concurrencyScale  = 50
)

// Window returns the sampling window in seconds for a density:
// max(1, ceil(100/density)). Densities at or below zero admit nothing and
// return 0.
func Window(density int) float64 {
	if density <= 0 {
		return 0
	}
	return math.Max(1, math.Ceil(100/float64(density)))
}

// MaxConcurrent returns the maximum number of active scroll instances for a
// density: max(5, floor(density/100 * 50)).
func MaxConcurrent(density int) int {
	n := density * concurrencyScale / 100
	if n < minConcurrent {
		return minConcurrent
	}
	return n
}

// Config holds configuration for a Controller.
type Config struct {
	// Density is the initial density, clamped to 0..100. Default: 100
	// when left zero; use SetDensity(0) to silence the overlay.
	Density int

	// MaxPerTick caps admissions per ordinary tick. Default: 3.
	MaxPerTick int

	// Rand picks the random subset when more candidates are due than may
	// be admitted. Inject a seeded source for reproducible runs. Default:
	// a randomly seeded PCG.
	Rand *rand.Rand
}

// Request describes one admission tick.
type Request struct {
	// Position is the playback clock in seconds.
	Position float64

	// CatchUp extends the window back by this many seconds to cover
	// playback that went by since the previous tick's window ended.
	CatchUp float64

	// Store is the event store for the current content unit.
	Store *danmaku.Store

	// ActiveScroll is the number of active scroll instances after this
	// frame's expirations.
	ActiveScroll int

	// Active reports whether an instance with the key is on screen. It
	// keeps a key whose dedup entry was cleared from being shown twice.
	Active func(danmaku.Key) bool

	// Bypass lifts the per-tick cap and the density fraction. The
	// concurrency cap still applies. Set after a backward seek.
	Bypass bool
}

// Result is the outcome of one tick.
type Result struct {
	// Selected are the admitted events, already marked in the dedup set.
	Selected []danmaku.Event

	// Due is the number of eligible candidates found in the window.
	Due int

	// Remaining is the concurrency headroom at the start of the tick.
	Remaining int
}

// Controller selects events for admission and owns the dedup set. It is
// not safe for concurrent use.
type Controller struct {
	density    int
	maxPerTick int
	rng        *rand.Rand
	dedup      *DedupSet

	due []danmaku.Event
}

// New creates a Controller.
func New(cfg Config) *Controller {
	if cfg.Density == 0 {
		cfg.Density = DefaultDensity
	}
	if cfg.MaxPerTick <= 0 {
		cfg.MaxPerTick = DefaultMaxPerTick
	}
	if cfg.Rand == nil {
		cfg.Rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	c := &Controller{
		maxPerTick: cfg.MaxPerTick,
		rng:        cfg.Rand,
		dedup:      NewDedupSet(),
	}
	c.SetDensity(cfg.Density)
	return c
}

// SetDensity sets the density, clamped to 0..100.
func (c *Controller) SetDensity(d int) {
	c.density = max(0, min(100, d))
}

// Density returns the current density.
func (c *Controller) Density() int {
	return c.density
}

// MaxConcurrent returns the concurrency cap for the current density.
func (c *Controller) MaxConcurrent() int {
	return MaxConcurrent(c.density)
}

// Dedup returns the controller's dedup set.
func (c *Controller) Dedup() *DedupSet {
	return c.dedup
}

// Select runs one admission tick. The events in the window
// [Position-CatchUp, Position+Window) that are neither admitted nor active
// are the candidates. A uniformly random subset of size
// min(remaining, ceil(due*density/100), MaxPerTick) is admitted, and its
// keys are marked whether or not the caller can place them.
func (c *Controller) Select(req Request) Result {
	var res Result
	if c.density <= 0 || req.Store.Len() == 0 {
		return res
	}

	c.collectDue(req)
	res.Due = len(c.due)
	res.Remaining = c.MaxConcurrent() - req.ActiveScroll
	if res.Due == 0 || res.Remaining <= 0 {
		return res
	}

	n := min(res.Remaining, res.Due)
	if !req.Bypass {
		n = min(n, (res.Due*c.density+99)/100, c.maxPerTick)
	}

	// Partial Fisher-Yates: the first n slots become a uniform sample.
	for i := 0; i < n; i++ {
		j := i + c.rng.IntN(len(c.due)-i)
		c.due[i], c.due[j] = c.due[j], c.due[i]
	}
	res.Selected = make([]danmaku.Event, n)
	copy(res.Selected, c.due[:n])
	for _, e := range res.Selected {
		c.dedup.Mark(e.Key())
	}
	return res
}

// collectDue fills c.due with unique eligible candidates in time order.
func (c *Controller) collectDue(req Request) {
	c.due = c.due[:0]
	from := req.Position - max(req.CatchUp, 0)
	window := req.Store.Between(from, req.Position+Window(c.density))
	seen := make(map[danmaku.Key]struct{}, len(window))
	for _, e := range window {
		k := e.Key()
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		if c.dedup.Has(k) {
			continue
		}
		if req.Active != nil && req.Active(k) {
			continue
		}
		c.due = append(c.due, e)
	}
}

// Reset clears the dedup set. Used on content-unit change.
func (c *Controller) Reset() {
	c.dedup.Reset()
	c.due = c.due[:0]
}
