package danmaku

import (
	"math"
	"sort"
)

// Store is an immutable, time-sorted collection of events for one content
// unit. A nil *Store behaves like an empty store.
type Store struct {
	unit   string
	events []Event
}

// NewStore copies events, normalizes them and sorts the copy by time. The
// sort is stable so feed order is kept among events sharing a timestamp.
// Events with a non-finite or negative time are dropped.
func NewStore(unit string, events []Event) *Store {
	cp := make([]Event, 0, len(events))
	for _, e := range events {
		if math.IsNaN(e.Time) || math.IsInf(e.Time, 0) || e.Time < 0 {
			continue
		}
		cp = append(cp, e.Normalize())
	}
	sort.SliceStable(cp, func(i, j int) bool {
		return cp[i].Time < cp[j].Time
	})
	return &Store{unit: unit, events: cp}
}

// Unit returns the content unit the store was loaded for.
func (s *Store) Unit() string {
	if s == nil {
		return ""
	}
	return s.unit
}

// Len returns the number of events.
func (s *Store) Len() int {
	if s == nil {
		return 0
	}
	return len(s.events)
}

// At returns the i-th event in time order.
func (s *Store) At(i int) Event {
	return s.events[i]
}

// Span returns the time of the first and last event. Both are 0 for an
// empty store.
func (s *Store) Span() (first, last float64) {
	if s.Len() == 0 {
		return 0, 0
	}
	return s.events[0].Time, s.events[len(s.events)-1].Time
}

// Between returns the events with from <= Time < to. The returned slice
// aliases the store and must not be modified.
func (s *Store) Between(from, to float64) []Event {
	if s.Len() == 0 || to <= from {
		return nil
	}
	lo := sort.Search(len(s.events), func(i int) bool {
		return s.events[i].Time >= from
	})
	hi := sort.Search(len(s.events), func(i int) bool {
		return s.events[i].Time >= to
	})
	if lo >= hi {
		return nil
	}
	return s.events[lo:hi:hi]
}
