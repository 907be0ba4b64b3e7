package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
)

// AppName is the directory name used under the XDG config and cache homes.
const AppName = "drawisthintv"

// Load reads configuration from the standard config path.
// Search order:
//  1. $XDG_CONFIG_HOME/drawisthintv/config.toml
//  2. ~/.config/drawisthintv/config.toml
//
// If no file exists, returns DefaultConfig() with environment overrides.
func Load() (*Config, error) {
	for _, p := range configSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return LoadFromFile(p)
		}
	}
	cfg := DefaultConfig()
	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromFile reads configuration from a specific file path. A missing
// file yields the defaults.
func LoadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg := DefaultConfig()
			if err := applyEnvOverrides(cfg); err != nil {
				return nil, err
			}
			return cfg, nil
		}
		return nil, fmt.Errorf("config: open %s: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader reads configuration from an io.Reader. Values come from,
// in increasing precedence: defaults, the named overlay preset, the file,
// and DRAWIST_* environment variables.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := DefaultConfig()
	md, err := toml.NewDecoder(r).Decode(cfg)
	if err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	if cfg.Overlay.Preset != "" {
		applyPreset(&cfg.Overlay, cfg.Overlay.Preset, func(key string) bool {
			return md.IsDefined("overlay", key)
		})
	}
	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		General: GeneralConfig{
			LogLevel: "info",
			Theme:    "default",
			CacheDir: filepath.Join(xdgCacheHome(home), AppName),
		},
		Overlay: OverlayConfig{
			Density:        100,
			MinLaneHeight:  1,
			LaneGap:        2,
			PoolCapacity:   100,
			ScrollDuration: Duration{8 * time.Second},
			FixedDuration:  Duration{4 * time.Second},
			FixedSlots:     5,
			AdmitInterval:  Duration{time.Second},
			SeekThreshold:  Duration{2 * time.Second},
			FrameInterval:  Duration{50 * time.Millisecond},
		},
		Source: SourceConfig{
			BaseURL:        "https://api.dandanplay.net",
			Timeout:        Duration{10 * time.Second},
			CacheTTL:       Duration{6 * time.Hour},
			CacheMaxStale:  Duration{7 * 24 * time.Hour},
			CacheMaxSizeMB: 50,
		},
	}
}

// applyEnvOverrides applies DRAWIST_* environment variables.
func applyEnvOverrides(cfg *Config) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("config: parse env: %w", err)
	}
	return nil
}

// configSearchPaths returns the ordered list of config file paths to try.
func configSearchPaths() []string {
	home, _ := os.UserHomeDir()
	var paths []string

	xdg := xdgConfigHome(home)
	paths = append(paths, filepath.Join(xdg, AppName, "config.toml"))

	// If XDG_CONFIG_HOME was explicitly set, also try the fallback default.
	defaultXDG := filepath.Join(home, ".config")
	if xdg != defaultXDG {
		paths = append(paths, filepath.Join(defaultXDG, AppName, "config.toml"))
	}
	return paths
}

// xdgConfigHome returns XDG_CONFIG_HOME or ~/.config as fallback.
func xdgConfigHome(home string) string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return v
	}
	return filepath.Join(home, ".config")
}

// xdgCacheHome returns XDG_CACHE_HOME or ~/.cache as fallback.
func xdgCacheHome(home string) string {
	if v := os.Getenv("XDG_CACHE_HOME"); v != "" {
		return v
	}
	return filepath.Join(home, ".cache")
}
