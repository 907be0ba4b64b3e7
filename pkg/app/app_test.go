package app

import (
	"context"
	"errors"
	"math/rand/v2"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/zhaozixinnn/drawisthintv/pkg/danmaku"
	"github.com/zhaozixinnn/drawisthintv/pkg/playback"
	"github.com/zhaozixinnn/drawisthintv/pkg/session"
	"github.com/zhaozixinnn/drawisthintv/pkg/source"
)

var t0 = time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)

type fakeFetcher struct {
	mu          sync.Mutex
	events      map[string][]danmaku.Event
	err         error
	calls       []string
	invalidated []string
}

func (f *fakeFetcher) FetchEvents(_ context.Context, unit string) ([]danmaku.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, unit)
	if f.err != nil {
		return nil, f.err
	}
	return f.events[unit], nil
}

func (f *fakeFetcher) Invalidate(unit string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invalidated = append(f.invalidated, unit)
}

type fakeResolver struct {
	results []source.Anime
	err     error
}

func (r *fakeResolver) Search(_ context.Context, title string) ([]source.Anime, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.results, nil
}

var frieren = []source.Anime{
	{ID: 1, Title: "Frieren", Episodes: []source.Episode{{ID: 1001, Title: "ep1"}, {ID: 1002, Title: "ep2"}}},
	{ID: 2, Title: "Frieren Recap", Episodes: []source.Episode{{ID: 2001, Title: "recap"}}},
}

func newTestModel(f source.Fetcher, r source.Resolver, sel *session.Selector) Model {
	return NewModel(Options{
		Fetcher:   f,
		Resolver:  r,
		Selector:  sel,
		NoticeTTL: time.Millisecond,
		Clock:     playback.New(playback.WithNow(func() time.Time { return t0 })),
		Rand:      rand.New(rand.NewPCG(1, 2)),
	})
}

// helper to send a message through Update and return the updated model.
func update(m Model, msg tea.Msg) (Model, tea.Cmd) {
	updated, cmd := m.Update(msg)
	return updated.(Model), cmd
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// manualSelector returns a selector with a two-episode source chosen.
func manualSelector(t *testing.T) *session.Selector {
	t.Helper()
	sel := session.New()
	_, err := sel.ChooseSource(session.Source{
		ID:       "s1",
		Title:    "Show",
		Episodes: []session.Episode{{ID: "101"}, {ID: "102"}},
	})
	if err != nil {
		t.Fatalf("ChooseSource: %v", err)
	}
	return sel
}

func TestInitReturnsCmd(t *testing.T) {
	m := newTestModel(nil, nil, nil)
	if m.Init() == nil {
		t.Fatal("Init() returned nil, expected tick and reload commands")
	}
}

func TestWindowSizeResizesOverlay(t *testing.T) {
	m := newTestModel(nil, nil, nil)
	m, _ = update(m, tea.WindowSizeMsg{Width: 120, Height: 40})

	if m.Width() != 120 || m.Height() != 40 {
		t.Errorf("expected 120x40, got %dx%d", m.Width(), m.Height())
	}
	if got := m.Scheduler().Stats().Lanes; got != 39 {
		t.Errorf("expected 39 lanes above the status bar, got %d", got)
	}
}

func TestReloadFetchesAndLoads(t *testing.T) {
	f := &fakeFetcher{events: map[string][]danmaku.Event{
		"101": {{Time: 1, Text: "a"}, {Time: 2, Text: "b"}},
	}}
	m := newTestModel(f, nil, manualSelector(t))

	m, cmd := update(m, reloadMsg{})
	if cmd == nil {
		t.Fatal("expected a fetch command")
	}
	if m.Scheduler().Unit() != "101" {
		t.Errorf("expected unit 101, got %q", m.Scheduler().Unit())
	}
	msg := cmd()
	loaded, ok := msg.(EventsLoadedMsg)
	if !ok {
		t.Fatalf("expected EventsLoadedMsg, got %T", msg)
	}
	m, _ = update(m, loaded)
	if m.Scheduler().Store().Len() != 2 {
		t.Errorf("expected 2 events, got %d", m.Scheduler().Store().Len())
	}
	if m.Notice() != "2 comments" {
		t.Errorf("expected notice %q, got %q", "2 comments", m.Notice())
	}
}

func TestStaleEventsIgnored(t *testing.T) {
	m := newTestModel(&fakeFetcher{}, nil, manualSelector(t))
	m, _ = update(m, reloadMsg{})

	m, _ = update(m, EventsLoadedMsg{Unit: "999", Events: []danmaku.Event{{Time: 1, Text: "late"}}})
	if m.Scheduler().Store() != nil {
		t.Error("expected late events for another unit to be dropped")
	}
}

func TestFetchFailureShowsNotice(t *testing.T) {
	f := &fakeFetcher{err: errors.New("boom")}
	m := newTestModel(f, nil, manualSelector(t))

	m, cmd := update(m, reloadMsg{})
	m, cmd = update(m, cmd())
	if !strings.HasPrefix(m.Notice(), "comments unavailable") {
		t.Errorf("expected failure notice, got %q", m.Notice())
	}
	if !m.noticeErr {
		t.Error("expected the failure notice to use the error style")
	}
	if m.Scheduler().Store().Len() != 0 {
		t.Errorf("expected an empty store, got %d events", m.Scheduler().Store().Len())
	}

	// The notice expires.
	m, _ = update(m, cmd())
	if m.Notice() != "" {
		t.Errorf("expected notice to expire, got %q", m.Notice())
	}
}

func TestOldNoticeExpiryIgnored(t *testing.T) {
	m := newTestModel(nil, nil, nil)
	m, first := update(m, runes("d"))
	if first != nil {
		t.Fatal("toggle should not set a notice")
	}
	m, first = update(m, tea.KeyMsg{Type: tea.KeyDown})
	m, _ = update(m, tea.KeyMsg{Type: tea.KeyDown})

	m, _ = update(m, first())
	if m.Notice() != "density 80" {
		t.Errorf("expected the newer notice to survive, got %q", m.Notice())
	}
}

func TestTickRunsFrame(t *testing.T) {
	m := newTestModel(nil, nil, nil)
	m, cmd := update(m, TickEvent{Time: t0})
	if cmd == nil {
		t.Error("expected the next tick to be scheduled")
	}
	if m.Scheduler().Stats().Frames != 1 {
		t.Errorf("expected 1 frame, got %d", m.Scheduler().Stats().Frames)
	}
}

func TestPlaybackKeys(t *testing.T) {
	m := newTestModel(nil, nil, nil)

	m, _ = update(m, tea.KeyMsg{Type: tea.KeySpace})
	if !m.clock.Playing() {
		t.Error("expected space to start playback")
	}
	m, _ = update(m, tea.KeyMsg{Type: tea.KeySpace})
	if m.clock.Playing() {
		t.Error("expected space to pause")
	}

	m, _ = update(m, tea.KeyMsg{Type: tea.KeyRight})
	if got := m.clock.Position(); got != SeekStep {
		t.Errorf("expected position %v, got %v", SeekStep, got)
	}
	m, _ = update(m, runes("h"))
	if got := m.clock.Position(); got != 0 {
		t.Errorf("expected position 0, got %v", got)
	}
}

func TestDensityAndToggleKeys(t *testing.T) {
	m := newTestModel(nil, nil, nil)

	m, _ = update(m, tea.KeyMsg{Type: tea.KeyUp})
	if m.Scheduler().Density() != 100 {
		t.Errorf("expected density clamped at 100, got %d", m.Scheduler().Density())
	}
	m, _ = update(m, runes("j"))
	if m.Scheduler().Density() != 90 {
		t.Errorf("expected density 90, got %d", m.Scheduler().Density())
	}

	m, _ = update(m, runes("d"))
	if m.Scheduler().Enabled() {
		t.Error("expected d to hide the overlay")
	}
	m, _ = update(m, runes("d"))
	if !m.Scheduler().Enabled() {
		t.Error("expected d to show the overlay again")
	}
}

func TestLaneKeys(t *testing.T) {
	m := newTestModel(nil, nil, nil)
	m, _ = update(m, tea.WindowSizeMsg{Width: 80, Height: 11})

	m, _ = update(m, runes("+"))
	if m.Scheduler().MaxLanes() != 0 {
		t.Errorf("expected + to keep auto lanes, got %d", m.Scheduler().MaxLanes())
	}
	m, _ = update(m, runes("-"))
	if m.Scheduler().MaxLanes() != 9 {
		t.Errorf("expected cap 9, got %d", m.Scheduler().MaxLanes())
	}
	m, _ = update(m, runes("+"))
	if m.Scheduler().MaxLanes() != 10 {
		t.Errorf("expected cap 10, got %d", m.Scheduler().MaxLanes())
	}
	if m.Notice() != "lanes 10" {
		t.Errorf("expected notice %q, got %q", "lanes 10", m.Notice())
	}
}

func TestEpisodeKeys(t *testing.T) {
	f := &fakeFetcher{}
	sel := manualSelector(t)
	m := newTestModel(f, nil, sel)

	m, cmd := update(m, runes("2"))
	if cmd == nil {
		t.Fatal("expected a reload for episode 2")
	}
	if u, _ := sel.Current(); u.Episode != 2 || u.ID != "102" {
		t.Errorf("expected episode 2 (102), got %+v", u)
	}
	if m.Scheduler().Unit() != "102" {
		t.Errorf("expected scheduler on 102, got %q", m.Scheduler().Unit())
	}

	m, _ = update(m, runes("7"))
	if m.Notice() != "no episode 7" {
		t.Errorf("expected notice %q, got %q", "no episode 7", m.Notice())
	}
	if u, _ := sel.Current(); u.Episode != 2 {
		t.Errorf("expected episode 2 to stay selected, got %d", u.Episode)
	}
}

func TestRefetchInvalidates(t *testing.T) {
	f := &fakeFetcher{}
	m := newTestModel(f, nil, manualSelector(t))
	m, _ = update(m, reloadMsg{})

	_, cmd := update(m, runes("r"))
	if cmd == nil {
		t.Fatal("expected a fetch command")
	}
	if len(f.invalidated) != 1 || f.invalidated[0] != "101" {
		t.Errorf("expected 101 invalidated, got %v", f.invalidated)
	}
}

func TestRefetchSupersedesOlderFetch(t *testing.T) {
	f := &fakeFetcher{events: map[string][]danmaku.Event{
		"101": {{Time: 1, Text: "old"}},
	}}
	m := newTestModel(f, nil, manualSelector(t))

	m, first := update(m, reloadMsg{})
	older := first().(EventsLoadedMsg)

	f.events["101"] = []danmaku.Event{{Time: 1, Text: "new"}, {Time: 2, Text: "newer"}}
	m, second := update(m, runes("r"))
	newer := second().(EventsLoadedMsg)
	if newer.Seq <= older.Seq {
		t.Fatalf("expected the refetch to carry a later sequence, got %d after %d", newer.Seq, older.Seq)
	}

	// The older fetch lands last and must not replace the newer feed.
	m, _ = update(m, newer)
	m, _ = update(m, older)
	if got := m.Scheduler().Store().Len(); got != 2 {
		t.Errorf("expected the refetched feed with 2 events, got %d", got)
	}
	if m.Notice() != "2 comments" {
		t.Errorf("expected notice %q, got %q", "2 comments", m.Notice())
	}
}

func TestSearchUnavailableWithoutResolver(t *testing.T) {
	m := newTestModel(nil, nil, nil)
	m, _ = update(m, runes("/"))
	if m.Searching() {
		t.Error("expected search to stay closed")
	}
	if m.Notice() != "search is not available for local feeds" {
		t.Errorf("unexpected notice %q", m.Notice())
	}
}

func TestSearchChooseFlow(t *testing.T) {
	f := &fakeFetcher{}
	sel := session.New()
	m := newTestModel(f, &fakeResolver{results: frieren}, sel)

	m, _ = update(m, runes("/"))
	if !m.Searching() {
		t.Fatal("expected / to open search")
	}
	// Keys go to the input while it has focus.
	m, _ = update(m, runes("q"))
	m, _ = update(m, tea.KeyMsg{Type: tea.KeyBackspace})
	for _, r := range "frieren" {
		m, _ = update(m, runes(string(r)))
	}
	if got := m.input.Value(); got != "frieren" {
		t.Fatalf("expected input %q, got %q", "frieren", got)
	}

	m, cmd := update(m, tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("expected a search command")
	}
	res, ok := cmd().(SearchResultMsg)
	if !ok {
		t.Fatal("expected SearchResultMsg")
	}
	m, _ = update(m, res)
	if len(m.results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(m.results))
	}

	m, _ = update(m, tea.KeyMsg{Type: tea.KeyDown})
	m, cmd = update(m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.Searching() {
		t.Error("expected the panel to close after choosing")
	}
	if cmd == nil {
		t.Fatal("expected a reload command")
	}
	if _, ok := cmd().(EventsLoadedMsg); !ok {
		t.Fatal("expected EventsLoadedMsg")
	}
	if len(f.calls) != 1 || f.calls[0] != "2001" {
		t.Errorf("expected fetch of 2001, got %v", f.calls)
	}
	if !sel.Manual() {
		t.Error("expected a manual override")
	}
}

func TestSearchNoMatchKeepsInput(t *testing.T) {
	m := newTestModel(nil, &fakeResolver{err: source.ErrNotFound}, nil)
	m, _ = update(m, runes("/"))
	m, _ = update(m, runes("x"))
	m, cmd := update(m, tea.KeyMsg{Type: tea.KeyEnter})
	m, _ = update(m, cmd())

	if !m.Searching() {
		t.Error("expected search to stay open")
	}
	if m.Notice() != `no match for "x"` {
		t.Errorf("unexpected notice %q", m.Notice())
	}

	m, _ = update(m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.Searching() {
		t.Error("expected esc to close search")
	}
}

func TestInferredMediaResolvesByTitle(t *testing.T) {
	f := &fakeFetcher{events: map[string][]danmaku.Event{"1002": {{Time: 3, Text: "yo"}}}}
	m := newTestModel(f, &fakeResolver{results: frieren}, nil)

	m, cmd := update(m, MediaMsg{Title: "Frieren", Episode: 2})
	if cmd == nil {
		t.Fatal("expected a resolve command")
	}
	msg := cmd().(EventsLoadedMsg)
	if msg.Unit != "Frieren#2" {
		t.Errorf("expected unit Frieren#2, got %q", msg.Unit)
	}
	m, _ = update(m, msg)
	if m.Scheduler().Store().Len() != 1 {
		t.Errorf("expected 1 event, got %d", m.Scheduler().Store().Len())
	}

	// The same media again changes nothing.
	if _, cmd = update(m, MediaMsg{Title: "Frieren", Episode: 2}); cmd != nil {
		t.Error("expected no reload for unchanged media")
	}
}

func TestResolveMissingEpisode(t *testing.T) {
	m := newTestModel(&fakeFetcher{}, &fakeResolver{results: frieren}, nil)
	_, cmd := update(m, MediaMsg{Title: "Frieren", Episode: 9})
	msg := cmd().(EventsLoadedMsg)
	if !errors.Is(msg.Err, source.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", msg.Err)
	}
	var fe *source.FetchError
	if !errors.As(msg.Err, &fe) {
		t.Errorf("expected a FetchError, got %T", msg.Err)
	}
}

func TestViewDrawsOverlayAndStatus(t *testing.T) {
	f := &fakeFetcher{events: map[string][]danmaku.Event{
		"101": {{Time: 0, Kind: danmaku.Top, Text: "hello"}},
	}}
	m := newTestModel(f, nil, manualSelector(t))
	m, _ = update(m, tea.WindowSizeMsg{Width: 120, Height: 12})
	m, cmd := update(m, reloadMsg{})
	m, _ = update(m, cmd())
	m, _ = update(m, TickEvent{Time: t0})

	view := m.View()
	if !strings.Contains(view, "hello") {
		t.Error("expected the pinned comment in the view")
	}
	if !strings.Contains(view, "Show #1 (manual)") {
		t.Error("expected the unit label in the status bar")
	}
	if !strings.Contains(view, "density 100") {
		t.Error("expected the density in the status bar")
	}
	if got := strings.Count(view, "\n"); got != 11 {
		t.Errorf("expected 12 rows, got %d", got+1)
	}
}

func TestViewEmptyBeforeResize(t *testing.T) {
	m := newTestModel(nil, nil, nil)
	if m.View() != "" {
		t.Error("expected an empty view before the first resize")
	}
}

func TestQuit(t *testing.T) {
	m := newTestModel(nil, nil, nil)
	_, cmd := update(m, runes("q"))
	if cmd == nil {
		t.Fatal("expected a quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
}

func TestFormatPosition(t *testing.T) {
	tests := []struct {
		pos  float64
		want string
	}{
		{0, "0:00.0"},
		{-3, "0:00.0"},
		{5.25, "0:05.2"},
		{125.5, "2:05.5"},
	}
	for _, tt := range tests {
		if got := formatPosition(tt.pos); got != tt.want {
			t.Errorf("formatPosition(%v): expected %q, got %q", tt.pos, tt.want, got)
		}
	}
}

func TestResultNavigationWraps(t *testing.T) {
	m := newTestModel(nil, nil, nil)
	m.results = frieren

	m.CycleResultBackward()
	if m.cursor != 1 {
		t.Errorf("expected backward wrap to 1, got %d", m.cursor)
	}
	m.CycleResultForward()
	if m.cursor != 0 {
		t.Errorf("expected forward wrap to 0, got %d", m.cursor)
	}
	m.FocusResult(5)
	if m.cursor != 0 {
		t.Errorf("expected out-of-range focus to be ignored, got %d", m.cursor)
	}
	m.FocusResult(1)
	if m.cursor != 1 {
		t.Errorf("expected cursor 1, got %d", m.cursor)
	}
}
