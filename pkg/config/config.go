package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/zhaozixinnn/drawisthintv/pkg/theme"
)

// Config is the top-level configuration, read from config.toml.
type Config struct {
	General GeneralConfig `toml:"general"`
	Overlay OverlayConfig `toml:"overlay"`
	Source  SourceConfig  `toml:"source"`
}

// GeneralConfig holds process-wide settings.
type GeneralConfig struct {
	LogLevel string `toml:"log_level" env:"DRAWIST_LOG_LEVEL"`
	CacheDir string `toml:"cache_dir" env:"DRAWIST_CACHE_DIR"`
	// FeedDir is where relative --file paths are resolved.
	FeedDir string `toml:"feed_dir" env:"DRAWIST_FEED_DIR"`
	// Theme is a built-in theme name or a path to a .toml theme.
	Theme string `toml:"theme" env:"DRAWIST_THEME"`
}

// OverlayConfig configures the scheduler and the frame loop.
type OverlayConfig struct {
	// Preset names a set of density defaults; explicit keys win.
	Preset string `toml:"preset" env:"DRAWIST_PRESET"`

	Density        int      `toml:"density" env:"DRAWIST_DENSITY"`
	MaxLanes       int      `toml:"max_lanes" env:"DRAWIST_MAX_LANES"`
	MinLaneHeight  int      `toml:"min_lane_height"`
	LaneGap        float64  `toml:"lane_gap"`
	PoolCapacity   int      `toml:"pool_capacity"`
	ScrollDuration Duration `toml:"scroll_duration" env:"DRAWIST_SCROLL_DURATION"`
	FixedDuration  Duration `toml:"fixed_duration"`
	FixedSlots     int      `toml:"fixed_slots"`
	AdmitInterval  Duration `toml:"admit_interval"`
	SeekThreshold  Duration `toml:"seek_threshold"`
	FrameInterval  Duration `toml:"frame_interval" env:"DRAWIST_FRAME_INTERVAL"`
	// Seed fixes the sampling order. Zero seeds randomly.
	Seed uint64 `toml:"seed" env:"DRAWIST_SEED"`
}

// SourceConfig configures feed fetching.
type SourceConfig struct {
	BaseURL        string   `toml:"base_url" env:"DRAWIST_BASE_URL"`
	Timeout        Duration `toml:"timeout"`
	AppID          string   `toml:"app_id" env:"DRAWIST_APP_ID"`
	AppSecret      string   `toml:"app_secret" env:"DRAWIST_APP_SECRET"`
	CacheTTL       Duration `toml:"cache_ttl" env:"DRAWIST_CACHE_TTL"`
	CacheMaxStale  Duration `toml:"cache_max_stale"`
	CacheMaxSizeMB int      `toml:"cache_max_size_mb"`
}

var validLogLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if !validLogLevels[strings.ToLower(c.General.LogLevel)] {
		add("general.log_level: unknown level %q", c.General.LogLevel)
	}
	if th := c.General.Theme; th != "" && !strings.HasSuffix(th, ".toml") {
		if _, ok := theme.Lookup(th); !ok {
			add("general.theme: unknown theme %q (have %s)", th, strings.Join(theme.Names(), ", "))
		}
	}

	o := c.Overlay
	if o.Preset != "" && !IsPreset(o.Preset) {
		add("overlay.preset: unknown preset %q", o.Preset)
	}
	if o.Density < 0 || o.Density > 100 {
		add("overlay.density: %d not in 0..100", o.Density)
	}
	if o.MaxLanes < 0 {
		add("overlay.max_lanes: %d is negative", o.MaxLanes)
	}
	if o.MinLaneHeight < 1 {
		add("overlay.min_lane_height: must be at least 1")
	}
	if o.PoolCapacity < 0 {
		add("overlay.pool_capacity: %d is negative", o.PoolCapacity)
	}
	if o.FixedSlots < 1 {
		add("overlay.fixed_slots: must be at least 1")
	}
	if o.ScrollDuration.Duration <= 0 {
		add("overlay.scroll_duration: must be positive")
	}
	if o.FrameInterval.Duration <= 0 {
		add("overlay.frame_interval: must be positive")
	}

	if c.Source.BaseURL != "" {
		u, err := url.Parse(c.Source.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			add("source.base_url: invalid URL %q", c.Source.BaseURL)
		}
	}
	if c.Source.CacheMaxSizeMB < 0 {
		add("source.cache_max_size_mb: %d is negative", c.Source.CacheMaxSizeMB)
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}
