package danmaku

import (
	"math"
	"testing"
)

func TestNewStoreSortsAndNormalizes(t *testing.T) {
	s := NewStore("ep-1", []Event{
		{Time: 3, Text: "c"},
		{Time: 1, Text: "a", Color: "#FF0000", Size: 18},
		{Time: 2, Text: "b"},
	})

	if s.Len() != 3 {
		t.Fatalf("expected 3 events, got %d", s.Len())
	}
	for i, want := range []string{"a", "b", "c"} {
		if got := s.At(i).Text; got != want {
			t.Errorf("event %d: expected %q, got %q", i, want, got)
		}
	}
	if s.At(0).Color != "#FF0000" || s.At(0).Size != 18 {
		t.Errorf("explicit color/size should survive, got %q/%d", s.At(0).Color, s.At(0).Size)
	}
	if s.At(1).Color != DefaultColor || s.At(1).Size != DefaultSize {
		t.Errorf("expected defaults, got %q/%d", s.At(1).Color, s.At(1).Size)
	}
	if s.Unit() != "ep-1" {
		t.Errorf("expected unit ep-1, got %q", s.Unit())
	}
}

func TestNewStoreDropsInvalidTimes(t *testing.T) {
	s := NewStore("u", []Event{
		{Time: math.NaN(), Text: "nan"},
		{Time: math.Inf(1), Text: "inf"},
		{Time: -1, Text: "neg"},
		{Time: 0, Text: "zero"},
	})
	if s.Len() != 1 || s.At(0).Text != "zero" {
		t.Fatalf("expected only the zero-time event, got %d events", s.Len())
	}
}

func TestNewStoreDoesNotAliasInput(t *testing.T) {
	in := []Event{{Time: 2, Text: "b"}, {Time: 1, Text: "a"}}
	s := NewStore("u", in)
	in[0].Text = "mutated"
	if s.At(1).Text != "b" {
		t.Errorf("store should own a copy, got %q", s.At(1).Text)
	}
}

func TestBetween(t *testing.T) {
	s := NewStore("u", []Event{
		{Time: 1, Text: "a"},
		{Time: 5, Text: "b"},
		{Time: 5, Text: "c"},
		{Time: 6, Text: "d"},
		{Time: 10, Text: "e"},
	})

	tests := []struct {
		name     string
		from, to float64
		want     []string
	}{
		{"half-open excludes end", 5, 6, []string{"b", "c"}},
		{"includes start", 1, 2, []string{"a"}},
		{"empty range", 7, 9, nil},
		{"inverted range", 6, 5, nil},
		{"whole store", 0, 100, []string{"a", "b", "c", "d", "e"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.Between(tt.from, tt.to)
			if len(got) != len(tt.want) {
				t.Fatalf("expected %d events, got %d", len(tt.want), len(got))
			}
			for i := range got {
				if got[i].Text != tt.want[i] {
					t.Errorf("event %d: expected %q, got %q", i, tt.want[i], got[i].Text)
				}
			}
		})
	}
}

func TestNilStore(t *testing.T) {
	var s *Store
	if s.Len() != 0 {
		t.Errorf("expected nil store to be empty")
	}
	if got := s.Between(0, 100); got != nil {
		t.Errorf("expected nil slice from nil store, got %v", got)
	}
	if s.Unit() != "" {
		t.Errorf("expected empty unit, got %q", s.Unit())
	}
}

func TestKeyIdentity(t *testing.T) {
	a := Event{Time: 4.5, Text: "hi", Color: "#000000"}
	b := Event{Time: 4.5, Text: "hi", Color: "#FFFFFF", Kind: Top}
	if a.Key() != b.Key() {
		t.Errorf("events with the same time and text should share a key")
	}
	c := Event{Time: 4.5, Text: "hello"}
	if a.Key() == c.Key() {
		t.Errorf("different text should yield a different key")
	}
}

func TestKindText(t *testing.T) {
	for _, k := range []Kind{Scroll, Top, Bottom} {
		b, err := k.MarshalText()
		if err != nil {
			t.Fatalf("MarshalText: %v", err)
		}
		var got Kind
		if err := got.UnmarshalText(b); err != nil {
			t.Fatalf("UnmarshalText: %v", err)
		}
		if got != k {
			t.Errorf("expected %v, got %v", k, got)
		}
	}
	if ParseKind("sideways") != Scroll {
		t.Errorf("unknown kinds should parse as scroll")
	}
}
