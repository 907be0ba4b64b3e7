// Package overlay is the frame-driven scheduler for on-screen comments.
//
// A Scheduler owns the active instances, the lane table, the dedup set and
// the sprite pool for one viewer. Every frame it is handed the wall clock
// and the playback position; it repairs state after a backward seek,
// advances and retires instances, and then runs an admission tick when one
// is due. Motion uses wall-clock time so it stays smooth when the playback
// clock stalls or stutters.
//
// The scheduler is single-threaded. Feed fetching happens elsewhere and is
// handed in through LoadEvents.
package overlay

import (
	"log/slog"
	"math"
	"math/rand/v2"
	"time"

	"github.com/zhaozixinnn/drawisthintv/pkg/admission"
	"github.com/zhaozixinnn/drawisthintv/pkg/danmaku"
	"github.com/zhaozixinnn/drawisthintv/pkg/lane"
	"github.com/zhaozixinnn/drawisthintv/pkg/pool"
)

// Surface is the rendering surface the scheduler places sprites on.
type Surface interface {
	// Size returns the viewport in cells.
	Size() (width, height int)
	// Measure returns the rendered size of text at a font size.
	Measure(text string, size int) (width, height int)
}

// Stats holds scheduler counters for diagnostics.
type Stats struct {
	Frames       int64
	Admitted     int64
	Dropped      int64 // scroll events with no free lane
	Expired      int64
	ForceExpired int64 // retired by a backward seek or reset
	Seeks        int64 // backward seeks repaired

	Active       int
	ActiveScroll int
	PeakScroll   int
	Lanes        int

	Pool pool.Stats
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithRand sets the random source used to sample due candidates.
func WithRand(r *rand.Rand) Option {
	return func(s *Scheduler) { s.rng = r }
}

// WithLogger sets the logger. The default discards.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.log = l
		}
	}
}

// Scheduler is the instance scheduler and animator.
type Scheduler struct {
	cfg     Config
	surface Surface
	log     *slog.Logger
	rng     *rand.Rand

	pool  *pool.Pool[*Sprite]
	lanes *lane.Allocator
	admit *admission.Controller

	unit  string
	store *danmaku.Store

	live   []*Instance
	keys   map[danmaku.Key]uint64
	nextID uint64

	enabled bool
	width   int
	height  int

	lastPos      float64
	havePos      bool
	lastAdmit    time.Time
	lastAdmitPos float64
	bypass       bool

	// horizon is the end of the previous tick's sampling window. Events
	// between it and the next tick's position are caught up.
	horizon     float64
	haveHorizon bool

	stats   Stats
	sprites []*Sprite
}

// New creates a Scheduler drawing on surface.
func New(cfg Config, surface Surface, opts ...Option) *Scheduler {
	cfg = cfg.defaults()
	s := &Scheduler{
		cfg:     cfg,
		surface: surface,
		log:     slog.New(slog.DiscardHandler),
		keys:    make(map[danmaku.Key]uint64),
		enabled: true,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.pool = pool.New(pool.Config{Capacity: cfg.PoolCapacity}, newSprite, (*Sprite).Reset)
	s.lanes = lane.New(lane.Config{
		MinLaneHeight: cfg.MinLaneHeight,
		MaxLanes:      cfg.MaxLanes,
		Gap:           cfg.LaneGap,
		Slots:         cfg.FixedSlots,
	})
	s.admit = admission.New(admission.Config{
		Density:    cfg.Density,
		MaxPerTick: cfg.MaxPerTick,
		Rand:       s.rng,
	})
	s.syncViewport()
	return s
}

// SetEventSource switches to a new content unit. Every active instance is
// released to the pool and the store, dedup set, lane table and admission
// timer are reset. Events arrive later through LoadEvents.
func (s *Scheduler) SetEventSource(unit string) {
	s.releaseAll()
	s.unit = unit
	s.store = nil
	s.admit.Reset()
	s.lanes.Reset()
	s.lastAdmit = time.Time{}
	s.havePos = false
	s.bypass = false
	s.haveHorizon = false
	s.log.Debug("event source changed", "unit", unit)
}

// LoadEvents installs the event store for unit. Results for any unit other
// than the current one are stale and ignored; LoadEvents reports whether
// the events were installed.
func (s *Scheduler) LoadEvents(unit string, events []danmaku.Event) bool {
	if unit != s.unit {
		s.log.Debug("ignoring stale events", "unit", unit, "current", s.unit)
		return false
	}
	s.store = danmaku.NewStore(unit, events)
	s.log.Debug("events loaded", "unit", unit, "count", s.store.Len())
	return true
}

// Unit returns the current content unit.
func (s *Scheduler) Unit() string {
	return s.unit
}

// Store returns the current event store, nil until events are loaded.
func (s *Scheduler) Store() *danmaku.Store {
	return s.store
}

// SetDensity sets the admission density, clamped to 0..100. Instances
// already on screen are kept when the concurrency cap drops below their
// count; admission stays closed until enough of them expire.
func (s *Scheduler) SetDensity(d int) {
	s.admit.SetDensity(d)
}

// Density returns the admission density.
func (s *Scheduler) Density() int {
	return s.admit.Density()
}

// SetMaxLanes caps the scroll lane count (0 = no cap). Instances in lanes
// that disappear keep animating but are no longer tracked.
func (s *Scheduler) SetMaxLanes(n int) {
	s.lanes.SetMaxLanes(n)
}

// MaxLanes returns the lane cap.
func (s *Scheduler) MaxLanes() int {
	return s.lanes.MaxLanes()
}

// SetEnabled shows or hides the overlay. Hiding keeps all state: the frame
// loop keeps running at zero opacity and admissions pause.
func (s *Scheduler) SetEnabled(on bool) {
	s.enabled = on
	if !on {
		for _, in := range s.live {
			in.Opacity = 0
			in.Sprite.Opacity = 0
			in.Sprite.Visible = false
		}
	}
}

// Enabled reports whether the overlay is shown.
func (s *Scheduler) Enabled() bool {
	return s.enabled
}

// Frame runs one frame step at wall time now and playback position pos
// (seconds). Within a frame, seek repair and expiry happen before
// admission so capacity reflects the post-cleanup count.
func (s *Scheduler) Frame(now time.Time, pos float64) {
	s.stats.Frames++
	s.syncViewport()

	switch {
	case !s.havePos:
	case pos < s.lastPos:
		s.repairSeek(pos)
	case pos-s.lastPos > s.cfg.SeekThreshold.Seconds():
		s.haveHorizon = false
		s.log.Debug("forward seek", "from", s.lastPos, "to", pos)
	}
	if !s.enabled {
		s.haveHorizon = false
	}
	s.lastPos = pos
	s.havePos = true

	s.advance(now, pos)

	if s.enabled && s.store.Len() > 0 && s.admissionDue(now, pos) {
		s.admitTick(now, pos)
	}
}

// Resize sets the viewport in cells. A height change recomputes the lane
// count; instances in lanes that disappear keep animating untracked. With
// a surface attached the next frame polls it again.
func (s *Scheduler) Resize(width, height int) {
	s.width = width
	if height != s.height {
		s.height = height
		s.lanes.UpdateContainerHeight(height)
	}
}

// syncViewport polls the surface.
func (s *Scheduler) syncViewport() {
	if s.surface == nil {
		return
	}
	s.Resize(s.surface.Size())
}

// repairSeek handles a backward jump of the playback clock. Instances that
// are not due yet at the new position are retired, dedup keys in the
// current second are cleared and the next admission tick runs immediately
// without the per-tick cap.
func (s *Scheduler) repairSeek(pos float64) {
	s.stats.Seeks++
	forced := 0
	kept := s.live[:0]
	for _, in := range s.live {
		if in.DueTime > pos {
			s.retire(in, true)
			forced++
			continue
		}
		kept = append(kept, in)
	}
	clearTail(s.live, len(kept))
	s.live = kept

	sec := math.Floor(pos)
	cleared := s.admit.Dedup().ClearRange(sec, sec+1, s.isActive)
	s.bypass = true
	s.haveHorizon = false
	s.log.Debug("backward seek", "from", s.lastPos, "to", pos,
		"force_expired", forced, "keys_cleared", cleared)
}

// advance moves every active instance to its position at now and retires
// the ones whose animation has finished.
func (s *Scheduler) advance(now time.Time, pos float64) {
	kept := s.live[:0]
	for _, in := range s.live {
		if s.update(in, now, pos) {
			s.retire(in, false)
			continue
		}
		kept = append(kept, in)
	}
	clearTail(s.live, len(kept))
	s.live = kept
}

// update writes the instance's frame into its sprite. It reports true when
// the instance has expired.
func (s *Scheduler) update(in *Instance, now time.Time, pos float64) bool {
	elapsed := in.Elapsed(now)
	if elapsed > in.Duration {
		return true
	}
	sp := in.Sprite

	// Admitted ahead of time, or rewound into its future: keep it hidden
	// and in place.
	if pos < in.DueTime || elapsed < 0 {
		in.Opacity = 0
		sp.Opacity = 0
		sp.Visible = false
		return false
	}

	opacity := 1.0
	switch in.Kind {
	case danmaku.Scroll:
		sp.X = in.X(now)
	default:
		sp.X = in.StartX
		if left := in.Duration - elapsed; left < s.cfg.FadeOut {
			opacity = float64(left) / float64(s.cfg.FadeOut)
		}
	}
	if !s.enabled {
		opacity = 0
	}
	sp.Y = in.Y
	in.Opacity = opacity
	sp.Opacity = opacity
	sp.Visible = opacity > 0
	return false
}

// admissionDue reports whether an admission tick should run this frame.
// Ticks run on the admission interval, but not while the playback clock
// stands still, so a paused player does not drain the window.
func (s *Scheduler) admissionDue(now time.Time, pos float64) bool {
	if s.bypass || s.lastAdmit.IsZero() {
		return true
	}
	if now.Sub(s.lastAdmit) < s.cfg.AdmitInterval {
		return false
	}
	return pos != s.lastAdmitPos
}

// admitTick runs one admission tick. During continuous playback the tick
// also samples the stretch between the previous window's end and pos, so
// events that fell between two ticks are still candidates.
func (s *Scheduler) admitTick(now time.Time, pos float64) {
	catchUp := 0.0
	if s.haveHorizon && s.horizon < pos {
		catchUp = pos - s.horizon
	}
	res := s.admit.Select(admission.Request{
		Position:     pos,
		CatchUp:      catchUp,
		Store:        s.store,
		ActiveScroll: s.activeScroll(),
		Active:       s.isActive,
		Bypass:       s.bypass,
	})
	s.bypass = false
	s.lastAdmit = now
	s.lastAdmitPos = pos
	s.horizon = pos + admission.Window(s.admit.Density())
	s.haveHorizon = true

	for _, e := range res.Selected {
		s.spawn(e, now, pos)
	}
	if n := s.activeScroll(); n > s.stats.PeakScroll {
		s.stats.PeakScroll = n
	}
}

// spawn creates an instance for e, or drops it when no lane is free.
func (s *Scheduler) spawn(e danmaku.Event, now time.Time, pos float64) {
	w, h := 0, 1
	if s.surface != nil {
		w, h = s.surface.Measure(e.Text, e.Size)
	}
	start := now
	if lead := e.Time - pos; lead > 0 {
		start = now.Add(seconds(lead))
	}

	in := &Instance{
		ID:        s.nextID + 1,
		Event:     e,
		Kind:      e.Kind,
		Lane:      -1,
		Slot:      -1,
		DueTime:   e.Time,
		StartedAt: start,
		Width:     w,
		Height:    h,
		State:     Active,
	}
	laneH := float64(s.lanes.LaneHeight())

	switch e.Kind {
	case danmaku.Scroll:
		speed := s.speed()
		if speed <= 0 {
			s.stats.Dropped++
			return
		}
		ln, ok := s.lanes.Assign(lane.Occupant{
			ID:        in.ID,
			StartedAt: start,
			StartX:    float64(s.width),
			Width:     float64(w),
			Speed:     speed,
		})
		if !ok {
			s.stats.Dropped++
			s.log.Debug("no lane available", "time", e.Time, "text", e.Text)
			return
		}
		in.Lane = ln
		in.Y = float64(ln) * laneH
		in.StartX = float64(s.width)
		in.EndX = -float64(w)
		in.Duration = seconds(float64(s.width+w) / speed)
	default:
		in.Slot = s.lanes.NextSlot(e.Kind)
		if e.Kind == danmaku.Top {
			in.Y = float64(in.Slot) * laneH
		} else {
			in.Y = float64(s.height) - float64(in.Slot+1)*laneH
		}
		in.StartX = math.Floor(float64(s.width-w) / 2)
		in.EndX = in.StartX
		in.Duration = s.cfg.FixedDuration
	}

	s.nextID++
	sp := s.pool.Acquire()
	sp.Text = e.Text
	sp.Color = e.Color
	sp.Size = e.Size
	sp.Width = w
	sp.Height = h
	sp.X = in.StartX
	sp.Y = in.Y
	in.Sprite = sp

	s.live = append(s.live, in)
	s.keys[e.Key()] = in.ID
	s.stats.Admitted++
	s.update(in, now, pos)
}

// retire expires an instance and returns its sprite to the pool. The dedup
// key is kept so forward playback never re-admits it.
func (s *Scheduler) retire(in *Instance, forced bool) {
	in.State = Expired
	in.Opacity = 0
	if in.Kind == danmaku.Scroll {
		s.lanes.Release(in.Lane, in.ID)
	}
	if in.Sprite != nil {
		s.pool.Release(in.Sprite)
		in.Sprite = nil
	}
	if id, ok := s.keys[in.Event.Key()]; ok && id == in.ID {
		delete(s.keys, in.Event.Key())
	}
	if forced {
		s.stats.ForceExpired++
	} else {
		s.stats.Expired++
	}
}

func (s *Scheduler) releaseAll() {
	for _, in := range s.live {
		s.retire(in, true)
	}
	clearTail(s.live, 0)
	s.live = s.live[:0]
}

// Close releases every instance and drains the pool.
func (s *Scheduler) Close() {
	s.releaseAll()
	s.pool.Drain()
}

func (s *Scheduler) isActive(k danmaku.Key) bool {
	_, ok := s.keys[k]
	return ok
}

func (s *Scheduler) activeScroll() int {
	n := 0
	for _, in := range s.live {
		if in.Kind == danmaku.Scroll {
			n++
		}
	}
	return n
}

// speed returns the shared scroll speed in cells per second.
func (s *Scheduler) speed() float64 {
	return float64(s.width) / s.cfg.ScrollDuration.Seconds()
}

// Instances returns a snapshot of the active instances in admission order.
func (s *Scheduler) Instances() []Instance {
	out := make([]Instance, len(s.live))
	for i, in := range s.live {
		out[i] = *in
	}
	return out
}

// Sprites returns the visible sprites in admission order. The slice is
// reused by the next call.
func (s *Scheduler) Sprites() []*Sprite {
	s.sprites = s.sprites[:0]
	for _, in := range s.live {
		if in.Sprite != nil && in.Sprite.Visible {
			s.sprites = append(s.sprites, in.Sprite)
		}
	}
	return s.sprites
}

// Stats returns a snapshot of the scheduler counters.
func (s *Scheduler) Stats() Stats {
	st := s.stats
	st.Active = len(s.live)
	st.ActiveScroll = s.activeScroll()
	st.Lanes = s.lanes.Count()
	st.Pool = s.pool.Stats()
	return st
}

func seconds(f float64) time.Duration {
	return time.Duration(math.Round(f * float64(time.Second)))
}

// clearTail nils out the pointers past n so retired instances can be
// collected.
func clearTail(s []*Instance, n int) {
	for i := n; i < len(s); i++ {
		s[i] = nil
	}
}
