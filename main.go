// drawisthintv plays danmaku comment feeds as a scrolling terminal overlay.
//
// Feeds come from a dandanplay-compatible API or from local JSON and YAML
// files. The overlay scheduler admits, places and retires comments against
// a simulated playback clock.
//
// Usage:
//
//	drawisthintv play --title "Frieren" --episode 3
//	drawisthintv play --file ep1.yaml --file ep2.yaml
//	drawisthintv simulate --file ep1.yaml --duration 120 --rewind 30
//	drawisthintv search "Frieren"
//	drawisthintv version
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/term"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"
	"github.com/urfave/cli"

	"github.com/zhaozixinnn/drawisthintv/pkg/app"
	"github.com/zhaozixinnn/drawisthintv/pkg/cache"
	"github.com/zhaozixinnn/drawisthintv/pkg/config"
	"github.com/zhaozixinnn/drawisthintv/pkg/overlay"
	"github.com/zhaozixinnn/drawisthintv/pkg/playback"
	"github.com/zhaozixinnn/drawisthintv/pkg/render"
	"github.com/zhaozixinnn/drawisthintv/pkg/session"
	"github.com/zhaozixinnn/drawisthintv/pkg/source"
	"github.com/zhaozixinnn/drawisthintv/pkg/theme"
)

var (
	version = "0.1.0"
	commit  = "dev"
	date    = "unknown"
)

var globalFlags = []cli.Flag{
	cli.StringFlag{
		Name:  "config, c",
		Usage: "path to config.toml (default: $XDG_CONFIG_HOME/drawisthintv/config.toml)",
	},
	cli.BoolFlag{
		Name:  "verbose, v",
		Usage: "enable debug logging",
	},
}

var feedFlags = []cli.Flag{
	cli.StringSliceFlag{
		Name:  "file, f",
		Usage: "local feed (.json, .yaml); repeat for more episodes",
	},
	cli.StringSliceFlag{
		Name:  "id",
		Usage: "episode id on the comment API; repeat for more episodes",
	},
	cli.StringFlag{
		Name:  "title, t",
		Usage: "series title to look up",
	},
	cli.IntFlag{
		Name:  "episode, e",
		Usage: "episode number for --title",
		Value: 1,
	},
	cli.IntFlag{
		Name:  "density, d",
		Usage: "admission density 0..100 (default from config)",
		Value: -1,
	},
	cli.StringFlag{
		Name:  "preset, p",
		Usage: "overlay preset: " + strings.Join(config.Presets(), ", "),
	},
	cli.Uint64Flag{
		Name:  "seed",
		Usage: "fix the sampling order (0 = random)",
	},
}

var simulateFlags = []cli.Flag{
	cli.Float64Flag{
		Name:  "duration",
		Usage: "playback seconds to simulate",
		Value: 60,
	},
	cli.Float64Flag{
		Name:  "start",
		Usage: "playback position to start from",
	},
	cli.Float64Flag{
		Name:  "rewind",
		Usage: "seek back this many seconds halfway through",
	},
	cli.IntFlag{
		Name:  "width",
		Usage: "viewport width (default: terminal width or 80)",
	},
	cli.IntFlag{
		Name:  "height",
		Usage: "viewport height (default: terminal height or 24)",
	},
	cli.BoolFlag{
		Name:  "print-frame",
		Usage: "print the last frame",
	},
}

func main() {
	a := cli.NewApp()
	a.Name = "drawisthintv"
	a.HelpName = "drawisthintv"
	a.Usage = "danmaku overlay for the terminal"
	a.Version = fmt.Sprintf("%s (%s) built %s", version, commit, date)
	a.UsageText = "drawisthintv <command> [arguments...]"
	a.Flags = globalFlags
	a.Commands = []cli.Command{
		{
			Name:      "play",
			Usage:     "play a feed in the interactive overlay",
			UsageText: "drawisthintv play [--file F | --id ID | --title T --episode N]",
			Flags:     feedFlags,
			Action:    play,
		},
		{
			Name:      "simulate",
			Aliases:   []string{"sim"},
			Usage:     "run the scheduler headless and print its counters",
			UsageText: "drawisthintv simulate [--file F | --id ID | --title T] [--duration S]",
			Flags:     append(append([]cli.Flag{}, feedFlags...), simulateFlags...),
			Action:    simulate,
		},
		{
			Name:      "search",
			Aliases:   []string{"s"},
			Usage:     "look up a series and list its episode ids",
			UsageText: "drawisthintv search <title>",
			Action:    search,
		},
		{
			Name:  "version",
			Usage: "print version and exit",
			Action: func(c *cli.Context) error {
				fmt.Printf("drawisthintv %s (%s) built %s\n", version, commit, date)
				return nil
			},
		},
	}

	if err := a.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "drawisthintv: %v\n", err)
		os.Exit(1)
	}
}

// runtimeEnv is what every command needs after flag parsing.
type runtimeEnv struct {
	cfg     *config.Config
	logger  *slog.Logger
	closers []io.Closer
}

func (r *runtimeEnv) Close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		r.closers[i].Close()
	}
}

// setup loads configuration, applies command-line overrides and opens the
// logger. With toFile set logs go to <cache_dir>/drawisthintv.log so they
// stay off the alt screen.
func setup(c *cli.Context, toFile bool) (*runtimeEnv, error) {
	var (
		cfg *config.Config
		err error
	)
	if path := c.GlobalString("config"); path != "" {
		cfg, err = config.LoadFromFile(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	if p := c.String("preset"); p != "" {
		if !config.ApplyPreset(&cfg.Overlay, p) {
			return nil, fmt.Errorf("unknown preset %q (have %s)", p, strings.Join(config.Presets(), ", "))
		}
	}
	if d := c.Int("density"); d >= 0 && c.IsSet("density") {
		cfg.Overlay.Density = d
	}
	if c.IsSet("seed") {
		cfg.Overlay.Seed = c.Uint64("seed")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	env := &runtimeEnv{cfg: cfg}
	level := parseLevel(cfg.General.LogLevel)
	if c.GlobalBool("verbose") {
		level = slog.LevelDebug
	}

	var w io.Writer = os.Stderr
	if toFile {
		if err := os.MkdirAll(cfg.General.CacheDir, 0755); err != nil {
			return nil, fmt.Errorf("create cache directory: %w", err)
		}
		logPath := filepath.Join(cfg.General.CacheDir, config.AppName+".log")
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		env.closers = append(env.closers, f)
		w = f
	}
	env.logger = slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	return env, nil
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// overlayConfig maps the [overlay] section onto the scheduler config.
func overlayConfig(o config.OverlayConfig) overlay.Config {
	return overlay.Config{
		Density:        o.Density,
		MaxLanes:       o.MaxLanes,
		MinLaneHeight:  o.MinLaneHeight,
		LaneGap:        o.LaneGap,
		PoolCapacity:   o.PoolCapacity,
		ScrollDuration: o.ScrollDuration.Duration,
		FixedDuration:  o.FixedDuration.Duration,
		FixedSlots:     o.FixedSlots,
		AdmitInterval:  o.AdmitInterval.Duration,
		SeekThreshold:  o.SeekThreshold.Duration,
	}
}

func newRand(seed uint64) *rand.Rand {
	if seed == 0 {
		return nil
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// sources builds the fetcher and resolver. Local files bypass the API and
// the cache; everything else goes through the disk cache in front of the
// API client.
func (r *runtimeEnv) sources(local bool) (source.Fetcher, source.Resolver) {
	cfg := r.cfg
	if local {
		return source.FileFetcher{Dir: cfg.General.FeedDir}, nil
	}

	client := source.NewClient(source.ClientConfig{
		BaseURL:   cfg.Source.BaseURL,
		Timeout:   cfg.Source.Timeout.Duration,
		AppID:     cfg.Source.AppID,
		AppSecret: cfg.Source.AppSecret,
		UserAgent: "drawisthintv/" + version,
		Logger:    r.logger.With("component", "client"),
	})

	store, err := cache.NewStore(cache.StoreConfig{
		Dir:        filepath.Join(cfg.General.CacheDir, "feeds"),
		MaxSizeMB:  cfg.Source.CacheMaxSizeMB,
		DefaultTTL: cfg.Source.CacheTTL.Duration,
		MaxStale:   cfg.Source.CacheMaxStale.Duration,
	})
	if err != nil {
		r.logger.Warn("feed cache disabled", "error", err)
		return client, client
	}
	r.closers = append(r.closers, store)

	return &source.CachedFetcher{
		Upstream: client,
		Store:    store,
		TTL:      cfg.Source.CacheTTL.Duration,
		Logger:   r.logger.With("component", "cache"),
	}, client
}

// selection turns the feed flags into a selector: explicit files or ids
// become a manual source whose episodes the digit keys switch between, and
// a title becomes an inferred unit resolved by search.
func selection(c *cli.Context) (*session.Selector, bool, error) {
	sel := session.New()
	files, ids := c.StringSlice("file"), c.StringSlice("id")

	switch {
	case len(files) > 0 && len(ids) > 0:
		return nil, false, errors.New("--file and --id cannot be combined")
	case len(files) > 0:
		src := session.Source{ID: "local", Title: filepath.Base(files[0])}
		for _, f := range files {
			src.Episodes = append(src.Episodes, session.Episode{ID: f, Title: filepath.Base(f)})
		}
		if _, err := sel.ChooseSource(src); err != nil {
			return nil, false, err
		}
		return sel, true, nil
	case len(ids) > 0:
		src := session.Source{ID: "ids", Title: c.String("title")}
		for _, id := range ids {
			src.Episodes = append(src.Episodes, session.Episode{ID: id})
		}
		if _, err := sel.ChooseSource(src); err != nil {
			return nil, false, err
		}
		return sel, false, nil
	}

	if t := strings.TrimSpace(c.String("title")); t != "" {
		sel.Infer(t, c.Int("episode"))
	}
	return sel, false, nil
}

// loadTheme resolves the configured theme: a .toml path or a built-in name.
func loadTheme(name string) (theme.Theme, error) {
	if strings.HasSuffix(name, ".toml") {
		return theme.LoadFile(name)
	}
	return theme.Get(name), nil
}

func play(c *cli.Context) error {
	if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		return errors.New("play needs a terminal; use simulate for headless runs")
	}

	env, err := setup(c, true)
	if err != nil {
		return err
	}
	defer env.Close()

	sel, local, err := selection(c)
	if err != nil {
		return err
	}
	fetcher, resolver := env.sources(local)

	th, err := loadTheme(env.cfg.General.Theme)
	if err != nil {
		return err
	}
	clock := playback.New()
	clock.Play()

	model := app.NewModel(app.Options{
		Overlay:       overlayConfig(env.cfg.Overlay),
		FrameInterval: env.cfg.Overlay.FrameInterval.Duration,
		FetchTimeout:  env.cfg.Source.Timeout.Duration + 5*time.Second,
		Fetcher:       fetcher,
		Resolver:      resolver,
		Theme:         th,
		Clock:         clock,
		Selector:      sel,
		Rand:          newRand(env.cfg.Overlay.Seed),
		Logger:        env.logger,
	})

	env.logger.Info("starting player", "version", version, "density", env.cfg.Overlay.Density)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run player: %w", err)
	}
	return nil
}

func simulate(c *cli.Context) error {
	env, err := setup(c, false)
	if err != nil {
		return err
	}
	defer env.Close()

	sel, local, err := selection(c)
	if err != nil {
		return err
	}
	unit, ok := sel.Current()
	if !ok {
		return errors.New("nothing to simulate: pass --file, --id or --title")
	}
	fetcher, resolver := env.sources(local)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The fetch commands run synchronously here.
	timeout := env.cfg.Source.Timeout.Duration + 5*time.Second
	var cmd tea.Cmd
	switch {
	case unit.ID == "" && resolver != nil:
		cmd = app.ResolveCmd(resolver, fetcher, unit, timeout)
	case unit.ID == "":
		return errors.New("--title needs the comment API")
	default:
		cmd = app.FetchCmd(fetcher, unit.Key(), unit.ID, timeout)
	}
	loaded := cmd().(app.EventsLoadedMsg)
	if loaded.Err != nil {
		return loaded.Err
	}

	width, height := viewport(c)
	surface := render.NewSurface(width, height)
	var opts []overlay.Option
	opts = append(opts, overlay.WithLogger(env.logger))
	if r := newRand(env.cfg.Overlay.Seed); r != nil {
		opts = append(opts, overlay.WithRand(r))
	}
	sched := overlay.New(overlayConfig(env.cfg.Overlay), surface, opts...)
	defer sched.Close()
	sched.SetEventSource(unit.Key())
	sched.LoadEvents(unit.Key(), loaded.Events)

	now := time.Now()
	clock := playback.New(playback.WithNow(func() time.Time { return now }))
	clock.Seek(c.Float64("start"))
	clock.Play()

	step := env.cfg.Overlay.FrameInterval.Duration
	total := time.Duration(c.Float64("duration") * float64(time.Second))
	rewind := c.Float64("rewind")
	end := now.Add(total)
	half := now.Add(total / 2)
	rewound := false

	env.logger.Info("simulating", "unit", unit.Key(), "events", sched.Store().Len(),
		"viewport", fmt.Sprintf("%dx%d", width, height), "duration", total)

	for now.Before(end) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if rewind > 0 && !rewound && !now.Before(half) {
			clock.SeekBy(-rewind)
			rewound = true
		}
		sched.Frame(now, clock.Position())
		now = now.Add(step)
	}

	if c.Bool("print-frame") {
		canvas := render.NewCanvas(width, height)
		canvas.SetRenderer(render.NewRenderer(os.Stdout, termenv.EnvColorProfile()))
		canvas.DrawSprites(sched.Sprites())
		fmt.Println(canvas.String())
	}
	printStats(os.Stdout, unit, sched)
	return nil
}

// viewport picks the simulated size: flags, then the terminal, then 80x24.
func viewport(c *cli.Context) (int, int) {
	w, h := 80, 24
	if tw, th, err := term.GetSize(os.Stdout.Fd()); err == nil && tw > 0 && th > 0 {
		w, h = tw, th-1
	}
	if c.IsSet("width") {
		w = c.Int("width")
	}
	if c.IsSet("height") {
		h = c.Int("height")
	}
	return w, h
}

func printStats(w io.Writer, u session.Unit, s *overlay.Scheduler) {
	st := s.Stats()
	fmt.Fprintf(w, "unit:           %s\n", u.Key())
	fmt.Fprintf(w, "events:         %d\n", s.Store().Len())
	fmt.Fprintf(w, "frames:         %d\n", st.Frames)
	fmt.Fprintf(w, "admitted:       %d\n", st.Admitted)
	fmt.Fprintf(w, "dropped:        %d\n", st.Dropped)
	fmt.Fprintf(w, "expired:        %d\n", st.Expired)
	fmt.Fprintf(w, "force expired:  %d\n", st.ForceExpired)
	fmt.Fprintf(w, "seeks:          %d\n", st.Seeks)
	fmt.Fprintf(w, "lanes:          %d\n", st.Lanes)
	fmt.Fprintf(w, "peak scroll:    %d\n", st.PeakScroll)
	fmt.Fprintf(w, "active:         %d (%d scroll)\n", st.Active, st.ActiveScroll)
	fmt.Fprintf(w, "pool:           created %d, reused %d, free %d\n",
		st.Pool.Created, st.Pool.Reused, st.Pool.Free)
}

func search(c *cli.Context) error {
	title := strings.TrimSpace(strings.Join(c.Args(), " "))
	if title == "" {
		return errors.New("search needs a title")
	}
	env, err := setup(c, false)
	if err != nil {
		return err
	}
	defer env.Close()

	_, resolver := env.sources(false)
	ctx, cancel := context.WithTimeout(context.Background(), env.cfg.Source.Timeout.Duration)
	defer cancel()

	animes, err := resolver.Search(ctx, title)
	if errors.Is(err, source.ErrNotFound) {
		fmt.Printf("no match for %q\n", title)
		return nil
	}
	if err != nil {
		return err
	}
	for _, a := range animes {
		fmt.Printf("%s [%d] %s\n", a.Title, a.ID, a.Type)
		for i, ep := range a.Episodes {
			fmt.Printf("  %2d  %-10d %s\n", i+1, ep.ID, ep.Title)
		}
	}
	return nil
}
