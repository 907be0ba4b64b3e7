package app

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	zone "github.com/lrstanley/bubblezone"

	"github.com/zhaozixinnn/drawisthintv/pkg/overlay"
	"github.com/zhaozixinnn/drawisthintv/pkg/playback"
	"github.com/zhaozixinnn/drawisthintv/pkg/render"
	"github.com/zhaozixinnn/drawisthintv/pkg/session"
	"github.com/zhaozixinnn/drawisthintv/pkg/source"
	"github.com/zhaozixinnn/drawisthintv/pkg/theme"
)

// Defaults for Options.
const (
	DefaultFrameInterval = 50 * time.Millisecond
	DefaultNoticeTTL     = 4 * time.Second
	DefaultFetchTimeout  = 15 * time.Second
	SeekStep             = 5.0
	DensityStep          = 10
)

// Options configures a Model.
type Options struct {
	Overlay       overlay.Config
	FrameInterval time.Duration
	NoticeTTL     time.Duration
	FetchTimeout  time.Duration

	Fetcher  source.Fetcher
	Resolver source.Resolver // nil disables search and title inference

	Theme    theme.Theme // zero uses theme.Default
	Clock    *playback.Clock
	Selector *session.Selector
	Rand     *rand.Rand
	Logger   *slog.Logger
}

// invalidator is implemented by fetchers that cache.
type invalidator interface {
	Invalidate(unit string)
}

type mode int

const (
	modePlay mode = iota
	modeSearchInput
	modeSearchResults
)

// Model is the root bubbletea model: the overlay on top, a status bar on
// the last row and a search panel on demand.
type Model struct {
	opts   Options
	log    *slog.Logger
	keys   KeyMap
	styles theme.Styles
	zones  *zone.Manager

	sched   *overlay.Scheduler
	surface *render.Surface
	canvas  *render.Canvas
	clock   *playback.Clock
	sel     *session.Selector

	width, height int

	mode    mode
	input   textinput.Model
	query   string
	results []source.Anime
	cursor  int

	unit      session.Unit
	loading   bool
	loadErr   error
	notice    string
	noticeErr bool
	noticeID  int
	fetchSeq  int
}

// NewModel creates the player model.
func NewModel(opts Options) Model {
	if opts.FrameInterval <= 0 {
		opts.FrameInterval = DefaultFrameInterval
	}
	if opts.NoticeTTL <= 0 {
		opts.NoticeTTL = DefaultNoticeTTL
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = DefaultFetchTimeout
	}
	if opts.Clock == nil {
		opts.Clock = playback.New()
	}
	if opts.Selector == nil {
		opts.Selector = session.New()
	}
	if opts.Theme.Name == "" {
		opts.Theme = theme.Default()
	}
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	surface := render.NewSurface(0, 0)
	schedOpts := []overlay.Option{overlay.WithLogger(log)}
	if opts.Rand != nil {
		schedOpts = append(schedOpts, overlay.WithRand(opts.Rand))
	}

	in := textinput.New()
	in.Placeholder = "title"
	in.Prompt = "search: "
	in.CharLimit = 120
	in.Width = 40

	return Model{
		opts:    opts,
		log:     log,
		keys:    DefaultKeyMap(),
		styles:  theme.NewStyles(opts.Theme),
		zones:   zone.New(),
		sched:   overlay.New(opts.Overlay, surface, schedOpts...),
		surface: surface,
		canvas:  render.NewCanvas(0, 0),
		clock:   opts.Clock,
		sel:     opts.Selector,
		input:   in,
	}
}

// reloadMsg asks the update loop to load the selector's current unit.
type reloadMsg struct{}

// Init starts the frame clock and loads the initial unit, if any.
func (m Model) Init() tea.Cmd {
	return tea.Batch(TickCmd(m.opts.FrameInterval), func() tea.Msg { return reloadMsg{} })
}

// Update handles a message.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case reloadMsg:
		cmd := m.reload()
		return m, cmd

	case TickEvent:
		m.sched.Frame(msg.Time, m.clock.Position())
		return m, TickCmd(m.opts.FrameInterval)

	case EventsLoadedMsg:
		return m.handleEvents(msg)

	case SearchResultMsg:
		return m.handleSearch(msg)

	case MediaMsg:
		if m.sel.Infer(msg.Title, msg.Episode) {
			cmd := m.reload()
			return m, cmd
		}
		return m, nil

	case NoticeExpiredMsg:
		if msg.ID == m.noticeID {
			m.notice = ""
		}
		return m, nil

	case tea.MouseMsg:
		return m.handleMouse(msg)

	case tea.KeyMsg:
		switch m.mode {
		case modeSearchInput:
			return m.handleSearchInput(msg)
		case modeSearchResults:
			return m.handleResultsKey(msg)
		}
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) resize(w, h int) {
	m.width, m.height = w, h
	// The last row is the status bar.
	oh := max(h-1, 0)
	m.surface.Resize(w, oh)
	m.canvas.Resize(w, oh)
	m.sched.Resize(w, oh)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.sched.Close()
		m.zones.Close()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Pause):
		m.clock.Toggle()

	case key.Matches(msg, m.keys.SeekBack):
		m.clock.SeekBy(-SeekStep)

	case key.Matches(msg, m.keys.SeekForward):
		m.clock.SeekBy(SeekStep)

	case key.Matches(msg, m.keys.DensityUp):
		m.sched.SetDensity(m.sched.Density() + DensityStep)
		cmd := m.setNotice(fmt.Sprintf("density %d", m.sched.Density()))
		return m, cmd

	case key.Matches(msg, m.keys.DensityDown):
		m.sched.SetDensity(m.sched.Density() - DensityStep)
		cmd := m.setNotice(fmt.Sprintf("density %d", m.sched.Density()))
		return m, cmd

	case key.Matches(msg, m.keys.Toggle):
		m.sched.SetEnabled(!m.sched.Enabled())

	case key.Matches(msg, m.keys.MoreLanes):
		if n := m.sched.MaxLanes(); n > 0 {
			m.sched.SetMaxLanes(n + 1)
		}
		cmd := m.setNotice("lanes " + m.laneLabel())
		return m, cmd

	case key.Matches(msg, m.keys.FewerLanes):
		n := m.sched.MaxLanes()
		if n == 0 {
			n = m.sched.Stats().Lanes
		}
		m.sched.SetMaxLanes(max(n-1, 1))
		cmd := m.setNotice("lanes " + m.laneLabel())
		return m, cmd

	case key.Matches(msg, m.keys.Search):
		if m.opts.Resolver == nil {
			cmd := m.setNotice("search is not available for local feeds")
			return m, cmd
		}
		m.mode = modeSearchInput
		m.input.SetValue(m.query)
		cmd := m.input.Focus()
		return m, cmd

	case key.Matches(msg, m.keys.Refetch):
		if inv, ok := m.opts.Fetcher.(invalidator); ok && m.unit.ID != "" {
			inv.Invalidate(m.unit.ID)
		}
		cmd := m.reload()
		return m, cmd

	case key.Matches(msg, m.keys.ClearManual):
		if m.sel.ClearOverride() {
			cmd := m.reload()
			return m, cmd
		}

	case key.Matches(msg, m.keys.Episode):
		i, _ := strconv.Atoi(msg.String())
		changed, err := m.sel.SetOverridePosition(i - 1)
		if err != nil {
			cmd := m.setNotice(fmt.Sprintf("no episode %d", i))
			return m, cmd
		}
		if changed {
			cmd := m.reload()
			return m, cmd
		}
	}
	return m, nil
}

func (m Model) handleSearchInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Cancel):
		m.closeSearch()
		return m, nil
	case key.Matches(msg, m.keys.Choose):
		q := strings.TrimSpace(m.input.Value())
		if q == "" {
			return m, nil
		}
		m.query = q
		m.input.Blur()
		return m, SearchCmd(m.opts.Resolver, q, m.opts.FetchTimeout)
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleResultsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Cancel):
		m.closeSearch()
	case key.Matches(msg, m.keys.Up):
		m.CycleResultBackward()
	case key.Matches(msg, m.keys.Down):
		m.CycleResultForward()
	case key.Matches(msg, m.keys.Search):
		m.mode = modeSearchInput
		cmd := m.input.Focus()
		return m, cmd
	case key.Matches(msg, m.keys.Choose):
		return m.chooseResult(m.cursor)
	}
	return m, nil
}

// handleMouse moves the cursor to the hovered result and chooses the
// clicked one.
func (m Model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if m.mode != modeSearchResults {
		return m, nil
	}
	for i := range m.results {
		z := m.zones.Get(resultZoneID(i))
		if z == nil || !z.InBounds(msg) {
			continue
		}
		if msg.Action == tea.MouseActionRelease && msg.Button == tea.MouseButtonLeft {
			return m.chooseResult(i)
		}
		m.FocusResult(i)
		break
	}
	return m, nil
}

func (m Model) chooseResult(i int) (tea.Model, tea.Cmd) {
	if i < 0 || i >= len(m.results) {
		return m, nil
	}
	src := toSessionSource(m.results[i])
	changed, err := m.sel.ChooseSource(src)
	if err != nil {
		cmd := m.setNotice(fmt.Sprintf("%s has no episodes", src.Title))
		return m, cmd
	}
	m.closeSearch()
	if changed {
		cmd := m.reload()
		return m, cmd
	}
	return m, nil
}

func (m *Model) closeSearch() {
	m.mode = modePlay
	m.input.Blur()
	m.results = nil
	m.cursor = 0
}

func (m Model) handleSearch(msg SearchResultMsg) (tea.Model, tea.Cmd) {
	if msg.Query != m.query || m.mode == modePlay {
		return m, nil
	}
	if msg.Err != nil {
		m.mode = modeSearchInput
		text := fmt.Sprintf("search failed: %v", msg.Err)
		if errors.Is(msg.Err, source.ErrNotFound) {
			text = fmt.Sprintf("no match for %q", msg.Query)
		}
		cmd := tea.Batch(m.input.Focus(), m.setError(text))
		return m, cmd
	}
	m.results = msg.Results
	m.cursor = 0
	m.mode = modeSearchResults
	return m, nil
}

func (m Model) handleEvents(msg EventsLoadedMsg) (tea.Model, tea.Cmd) {
	if msg.Unit != m.sched.Unit() {
		m.log.Debug("dropping late feed", "unit", msg.Unit, "current", m.sched.Unit())
		return m, nil
	}
	if msg.Seq != 0 && msg.Seq != m.fetchSeq {
		m.log.Debug("dropping superseded feed", "unit", msg.Unit, "seq", msg.Seq, "current", m.fetchSeq)
		return m, nil
	}
	m.loading = false
	m.loadErr = msg.Err
	if msg.Err != nil {
		m.log.Warn("feed fetch failed", "unit", msg.Unit, "error", msg.Err)
		m.sched.LoadEvents(msg.Unit, nil)
		cmd := m.setError(fmt.Sprintf("comments unavailable: %v", msg.Err))
		return m, cmd
	}
	m.sched.LoadEvents(msg.Unit, msg.Events)
	m.log.Info("feed loaded", "unit", msg.Unit, "events", m.sched.Store().Len())
	cmd := m.setNotice(fmt.Sprintf("%d comments", m.sched.Store().Len()))
	return m, cmd
}

// reload points the scheduler at the selector's current unit and starts
// fetching its feed.
func (m *Model) reload() tea.Cmd {
	u, ok := m.sel.Current()
	if !ok {
		return nil
	}
	m.unit = u
	key := u.Key()
	m.sched.SetEventSource(key)
	m.loading = true
	m.loadErr = nil
	m.log.Info("loading feed", "unit", key, "manual", u.Manual)

	if m.opts.Fetcher == nil {
		return nil
	}
	m.fetchSeq++
	if u.ID == "" && m.opts.Resolver != nil {
		return withSeq(ResolveCmd(m.opts.Resolver, m.opts.Fetcher, u, m.opts.FetchTimeout), m.fetchSeq)
	}
	id := u.ID
	if id == "" {
		id = u.Title
	}
	return withSeq(FetchCmd(m.opts.Fetcher, key, id, m.opts.FetchTimeout), m.fetchSeq)
}

func (m *Model) setNotice(text string) tea.Cmd {
	m.noticeID++
	m.notice = text
	m.noticeErr = false
	return noticeCmd(m.noticeID, m.opts.NoticeTTL)
}

func (m *Model) setError(text string) tea.Cmd {
	cmd := m.setNotice(text)
	m.noticeErr = true
	return cmd
}

func (m Model) laneLabel() string {
	if n := m.sched.MaxLanes(); n > 0 {
		return strconv.Itoa(n)
	}
	return "auto"
}

func toSessionSource(a source.Anime) session.Source {
	src := session.Source{
		ID:    strconv.FormatInt(a.ID, 10),
		Title: a.Title,
	}
	for _, ep := range a.Episodes {
		src.Episodes = append(src.Episodes, session.Episode{
			ID:    strconv.FormatInt(ep.ID, 10),
			Title: ep.Title,
		})
	}
	return src
}

// Width returns the terminal width.
func (m Model) Width() int { return m.width }

// Height returns the terminal height.
func (m Model) Height() int { return m.height }

// Notice returns the current notice text.
func (m Model) Notice() string { return m.notice }

// Scheduler returns the overlay scheduler.
func (m Model) Scheduler() *overlay.Scheduler { return m.sched }

// Searching reports whether the search panel is open.
func (m Model) Searching() bool { return m.mode != modePlay }
