// Package session tracks which content unit the overlay is showing.
//
// A unit is either inferred from the player (a title plus an episode
// number) or chosen manually from search results. A manual choice always
// takes precedence; inference keeps updating underneath it so clearing the
// override falls back to whatever the player is showing now.
package session

import (
	"errors"
	"fmt"
)

// ErrInvalidSelection is returned when a manual episode index is out of
// range of the chosen source.
var ErrInvalidSelection = errors.New("session: invalid selection")

// Episode is one entry in a source's episode list.
type Episode struct {
	ID    string
	Title string
}

// Source is a manually chosen series and its episodes.
type Source struct {
	ID       string
	Title    string
	Episodes []Episode
}

// Unit is the effective content unit.
type Unit struct {
	// ID is the feed identifier. It is empty for inferred units until a
	// caller resolves the title.
	ID    string
	Title string
	// Episode is the 1-based episode number.
	Episode int
	Manual  bool
}

// Key identifies the unit for reload and stale-result checks.
func (u Unit) Key() string {
	if u.ID != "" {
		return u.ID
	}
	return fmt.Sprintf("%s#%d", u.Title, u.Episode)
}

// Selector holds the inferred unit and any manual override.
type Selector struct {
	title   string
	episode int

	source   *Source
	position int
}

// New returns an empty Selector.
func New() *Selector {
	return &Selector{}
}

// Infer records the media the player reports. It returns true when the
// effective unit changed, which never happens while an override is set.
func (s *Selector) Infer(title string, episode int) bool {
	if title == s.title && episode == s.episode {
		return false
	}
	s.title = title
	s.episode = episode
	return s.source == nil
}

// ChooseSource sets a manual source. The episode position follows the
// inferred episode number when it is in range and starts at the first
// episode otherwise. It returns true when the effective unit changed.
func (s *Selector) ChooseSource(src Source) (bool, error) {
	if len(src.Episodes) == 0 {
		return false, fmt.Errorf("choose %q: no episodes: %w", src.Title, ErrInvalidSelection)
	}
	before, had := s.Current()

	cp := src
	cp.Episodes = append([]Episode(nil), src.Episodes...)
	s.source = &cp
	s.position = 0
	if i := s.episode - 1; i >= 0 && i < len(cp.Episodes) {
		s.position = i
	}

	after, _ := s.Current()
	return !had || before != after, nil
}

// SetOverridePosition selects episode i (0-based) of the chosen source.
// The selector is unchanged on error.
func (s *Selector) SetOverridePosition(i int) (bool, error) {
	if s.source == nil {
		return false, fmt.Errorf("episode %d: no source chosen: %w", i, ErrInvalidSelection)
	}
	if i < 0 || i >= len(s.source.Episodes) {
		return false, fmt.Errorf("episode %d of %d: %w", i, len(s.source.Episodes), ErrInvalidSelection)
	}
	if i == s.position {
		return false, nil
	}
	s.position = i
	return true, nil
}

// ClearOverride drops the manual choice and returns to inference. It
// returns true when the effective unit changed.
func (s *Selector) ClearOverride() bool {
	if s.source == nil {
		return false
	}
	before, _ := s.Current()
	s.source = nil
	s.position = 0
	after, ok := s.Current()
	return !ok || before != after
}

// Manual reports whether a manual override is in effect.
func (s *Selector) Manual() bool {
	return s.source != nil
}

// Source returns the chosen source, if any.
func (s *Selector) Source() (Source, bool) {
	if s.source == nil {
		return Source{}, false
	}
	return *s.source, true
}

// Current returns the effective unit. Manual wins over inferred.
func (s *Selector) Current() (Unit, bool) {
	if s.source != nil {
		ep := s.source.Episodes[s.position]
		return Unit{
			ID:      ep.ID,
			Title:   s.source.Title,
			Episode: s.position + 1,
			Manual:  true,
		}, true
	}
	if s.title == "" {
		return Unit{}, false
	}
	return Unit{Title: s.title, Episode: s.episode}, true
}
