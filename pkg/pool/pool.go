// Package pool provides a capacity-bounded free-list for reusable render
// handles. The overlay scheduler acquires one handle per admitted event and
// releases it on retirement; at high comment throughput this keeps the
// number of live handles flat instead of allocating one per event.
//
// A Pool is not safe for concurrent use. The scheduler owns it and touches
// it only from the frame loop.
package pool

// DefaultCapacity is the free-list size used when Config.Capacity is zero.
const DefaultCapacity = 100

// Config holds configuration for a Pool.
type Config struct {
	// Capacity is the maximum number of idle handles retained. Releases
	// beyond it discard the handle. Default: 100.
	Capacity int

	// OnDiscard, if set, is called for every handle dropped on overflow or
	// by Drain. It is the hook for destroying the underlying resource.
	OnDiscard func(any)
}

// Stats holds counters for a Pool.
type Stats struct {
	Created   int64 // handles constructed by Acquire
	Reused    int64 // Acquire calls served from the free-list
	Released  int64 // Release calls
	Discarded int64 // handles dropped on overflow or Drain
	Free      int   // idle handles currently held
}

// Live returns the number of handles handed out and not yet released.
func (s Stats) Live() int64 {
	return s.Created + s.Reused - s.Released
}

// Pool is a bounded free-list of handles of type T.
type Pool[T any] struct {
	cfg   Config
	newFn func() T
	reset func(T)
	free  []T
	stats Stats
}

// New creates a Pool. newFn constructs a fresh handle; reset returns a
// handle to a neutral state before it is stored. reset may be nil.
func New[T any](cfg Config, newFn func() T, reset func(T)) *Pool[T] {
	if cfg.Capacity <= 0 {
		cfg.Capacity = DefaultCapacity
	}
	return &Pool[T]{
		cfg:   cfg,
		newFn: newFn,
		reset: reset,
		free:  make([]T, 0, cfg.Capacity),
	}
}

// Acquire returns an idle handle if one exists, otherwise a new one.
func (p *Pool[T]) Acquire() T {
	if n := len(p.free); n > 0 {
		h := p.free[n-1]
		var zero T
		p.free[n-1] = zero
		p.free = p.free[:n-1]
		p.stats.Reused++
		return h
	}
	p.stats.Created++
	return p.newFn()
}

// Release resets h and keeps it for reuse, or discards it when the
// free-list is full.
func (p *Pool[T]) Release(h T) {
	p.stats.Released++
	if p.reset != nil {
		p.reset(h)
	}
	if len(p.free) >= p.cfg.Capacity {
		p.discard(h)
		return
	}
	p.free = append(p.free, h)
}

// Drain discards every idle handle.
func (p *Pool[T]) Drain() {
	for i, h := range p.free {
		p.discard(h)
		var zero T
		p.free[i] = zero
	}
	p.free = p.free[:0]
}

// Len returns the number of idle handles.
func (p *Pool[T]) Len() int {
	return len(p.free)
}

// Capacity returns the configured free-list bound.
func (p *Pool[T]) Capacity() int {
	return p.cfg.Capacity
}

// Stats returns a snapshot of the pool counters.
func (p *Pool[T]) Stats() Stats {
	s := p.stats
	s.Free = len(p.free)
	return s
}

func (p *Pool[T]) discard(h T) {
	p.stats.Discarded++
	if p.cfg.OnDiscard != nil {
		p.cfg.OnDiscard(h)
	}
}
