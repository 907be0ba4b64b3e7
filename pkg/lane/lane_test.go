package lane

import (
	"testing"
	"time"

	"github.com/zhaozixinnn/drawisthintv/pkg/danmaku"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func at(sec float64) time.Time {
	return epoch.Add(time.Duration(sec * float64(time.Second)))
}

// occupant builds a candidate entering at x=100 moving 10 cells/s.
func occupant(id uint64, start float64, width float64) Occupant {
	return Occupant{ID: id, StartedAt: at(start), StartX: 100, Width: width, Speed: 10}
}

func TestUpdateContainerHeight(t *testing.T) {
	tests := []struct {
		name      string
		cfg       Config
		height    int
		wantLanes int
	}{
		{"one row per lane", Config{MinLaneHeight: 1}, 24, 24},
		{"floor division", Config{MinLaneHeight: 5}, 24, 4},
		{"capped", Config{MinLaneHeight: 1, MaxLanes: 10}, 24, 10},
		{"cap above available", Config{MinLaneHeight: 2, MaxLanes: 100}, 24, 12},
		{"zero height", Config{}, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := New(tt.cfg)
			a.UpdateContainerHeight(tt.height)
			if a.Count() != tt.wantLanes {
				t.Errorf("expected %d lanes, got %d", tt.wantLanes, a.Count())
			}
		})
	}
}

func TestAssignLowestIndexWins(t *testing.T) {
	a := New(Config{})
	a.UpdateContainerHeight(3)

	lane, ok := a.Assign(occupant(1, 0, 10))
	if !ok || lane != 0 {
		t.Fatalf("expected lane 0, got %d ok=%v", lane, ok)
	}
	// Same instant: lane 0 is occupied by the entering event.
	lane, ok = a.Assign(occupant(2, 0, 10))
	if !ok || lane != 1 {
		t.Fatalf("expected lane 1, got %d ok=%v", lane, ok)
	}
	// Two seconds later the first occupant moved 20 cells left, clearing
	// its 10-cell width plus the 2-cell gap.
	lane, ok = a.Assign(occupant(3, 2, 10))
	if !ok || lane != 0 {
		t.Fatalf("expected lane 0 to be free again, got %d ok=%v", lane, ok)
	}
}

func TestAssignNoLaneAvailable(t *testing.T) {
	a := New(Config{})
	a.UpdateContainerHeight(2)

	for i := uint64(1); i <= 2; i++ {
		if _, ok := a.Assign(occupant(i, 0, 10)); !ok {
			t.Fatalf("expected occupant %d to fit", i)
		}
	}
	if lane, ok := a.Assign(occupant(3, 0.5, 10)); ok {
		t.Errorf("expected no lane, got %d", lane)
	}
	if a.Tracked() != 2 {
		t.Errorf("rejected candidate must not be recorded, tracked=%d", a.Tracked())
	}
}

func TestAssignRespectsGap(t *testing.T) {
	a := New(Config{Gap: 5})
	a.UpdateContainerHeight(1)
	a.Assign(occupant(1, 0, 10))

	// After 1.4s the occupant's tail is at 100-14+10 = 96; the gap pushes
	// the blocked region to 101, so the entry at 100 is still blocked.
	if _, ok := a.Assign(occupant(2, 1.4, 4)); ok {
		t.Errorf("expected gap to block the lane")
	}
	// After 1.6s the tail plus gap is at 99.
	if _, ok := a.Assign(occupant(3, 1.6, 4)); !ok {
		t.Errorf("expected lane to be free once the gap is cleared")
	}
}

func TestAssignFutureOccupantBlocksEntry(t *testing.T) {
	a := New(Config{})
	a.UpdateContainerHeight(1)
	// An occupant projected to start 1s from now has not entered yet.
	a.Assign(occupant(1, 1, 10))

	if _, ok := a.Assign(occupant(2, 0.5, 10)); ok {
		t.Errorf("expected a candidate entering just before the occupant to be blocked")
	}
	if _, ok := a.Assign(occupant(3, -1.5, 4)); !ok {
		t.Errorf("expected a candidate that is already well ahead to fit")
	}
}

func TestAssignFasterCandidateCatchUp(t *testing.T) {
	a := New(Config{})
	a.UpdateContainerHeight(1)
	a.Assign(Occupant{ID: 1, StartedAt: at(0), StartX: 100, Width: 10, Speed: 5})

	fast := Occupant{ID: 2, StartedAt: at(3), StartX: 100, Width: 10, Speed: 50}
	if _, ok := a.Assign(fast); ok {
		t.Errorf("expected a much faster candidate to be rejected")
	}
}

func TestLaneNonOverlapOverTime(t *testing.T) {
	a := New(Config{})
	a.UpdateContainerHeight(4)

	var placed []struct {
		lane int
		occ  Occupant
	}
	for i := 0; i < 40; i++ {
		c := occupant(uint64(i+1), float64(i)*0.3, float64(4+i%7))
		if lane, ok := a.Assign(c); ok {
			placed = append(placed, struct {
				lane int
				occ  Occupant
			}{lane, c})
		}
	}
	if len(placed) == 0 {
		t.Fatal("expected some placements")
	}

	for ts := 0.0; ts < 25; ts += 0.1 {
		now := at(ts)
		for i := range placed {
			for j := i + 1; j < len(placed); j++ {
				if placed[i].lane != placed[j].lane {
					continue
				}
				if now.Before(placed[i].occ.StartedAt) || now.Before(placed[j].occ.StartedAt) {
					continue
				}
				l1, r1 := placed[i].occ.SpanAt(now)
				l2, r2 := placed[j].occ.SpanAt(now)
				if l1 < r2 && l2 < r1 {
					t.Fatalf("t=%.1f lane %d: spans [%.1f,%.1f] and [%.1f,%.1f] overlap",
						ts, placed[i].lane, l1, r1, l2, r2)
				}
			}
		}
	}
}

func TestRelease(t *testing.T) {
	a := New(Config{})
	a.UpdateContainerHeight(1)
	a.Assign(occupant(7, 0, 10))

	a.Release(0, 99)
	if a.Tracked() != 1 {
		t.Errorf("unknown id should be a no-op")
	}
	a.Release(0, 7)
	if a.Tracked() != 0 {
		t.Errorf("expected occupant removed")
	}
	a.Release(5, 7)
	a.Release(-1, 7)
}

func TestShrinkDropsOccupants(t *testing.T) {
	a := New(Config{})
	a.UpdateContainerHeight(3)
	a.Assign(occupant(1, 0, 10))
	a.Assign(occupant(2, 0, 10))
	a.Assign(occupant(3, 0, 10))

	a.SetMaxLanes(1)
	if a.Count() != 1 {
		t.Fatalf("expected 1 lane after cap, got %d", a.Count())
	}
	if a.Tracked() != 1 {
		t.Errorf("expected records of removed lanes dropped, tracked=%d", a.Tracked())
	}
	// Releasing an instance from a removed lane is harmless.
	a.Release(2, 3)

	a.SetMaxLanes(0)
	if a.Count() != 3 {
		t.Errorf("expected lanes restored to 3, got %d", a.Count())
	}
	if len(a.Occupants(2)) != 0 {
		t.Errorf("regrown lane should start empty")
	}
}

func TestNextSlotRoundRobin(t *testing.T) {
	a := New(Config{Slots: 3})

	var top []int
	for i := 0; i < 5; i++ {
		top = append(top, a.NextSlot(danmaku.Top))
	}
	want := []int{0, 1, 2, 0, 1}
	for i := range want {
		if top[i] != want[i] {
			t.Errorf("top slot %d: expected %d, got %d", i, want[i], top[i])
		}
	}
	if got := a.NextSlot(danmaku.Bottom); got != 0 {
		t.Errorf("bottom cursor is independent, expected 0, got %d", got)
	}
	if got := a.NextSlot(danmaku.Scroll); got != -1 {
		t.Errorf("scroll events have no slot, got %d", got)
	}

	a.Reset()
	if got := a.NextSlot(danmaku.Top); got != 0 {
		t.Errorf("expected cursor reset, got %d", got)
	}
}
