package config

import (
	"sort"
	"time"
)

// overlayPreset is a named set of overlay defaults.
type overlayPreset struct {
	Density       int
	MaxLanes      int
	AdmitInterval time.Duration
}

var overlayPresets = map[string]overlayPreset{
	// quiet: a few comments in the top rows.
	"quiet": {Density: 10, MaxLanes: 3, AdmitInterval: 2 * time.Second},
	// sparse: roughly a third of the feed, upper half of the screen.
	"sparse": {Density: 30, MaxLanes: 8, AdmitInterval: time.Second},
	"normal": {Density: 70, MaxLanes: 0, AdmitInterval: time.Second},
	// dense: everything the lanes can hold, admitted twice a second.
	"dense": {Density: 100, MaxLanes: 0, AdmitInterval: 500 * time.Millisecond},
}

// Presets returns the preset names in sorted order.
func Presets() []string {
	names := make([]string, 0, len(overlayPresets))
	for name := range overlayPresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsPreset reports whether name is a known preset.
func IsPreset(name string) bool {
	_, ok := overlayPresets[name]
	return ok
}

// ApplyPreset overwrites the preset-controlled fields of o. It reports
// false for an unknown name and leaves o unchanged.
func ApplyPreset(o *OverlayConfig, name string) bool {
	return applyPreset(o, name, func(string) bool { return false })
}

// applyPreset sets each preset field unless explicit reports that the
// file already set that key.
func applyPreset(o *OverlayConfig, name string, explicit func(key string) bool) bool {
	p, ok := overlayPresets[name]
	if !ok {
		return false
	}
	o.Preset = name
	if !explicit("density") {
		o.Density = p.Density
	}
	if !explicit("max_lanes") {
		o.MaxLanes = p.MaxLanes
	}
	if !explicit("admit_interval") {
		o.AdmitInterval = Duration{p.AdmitInterval}
	}
	return true
}
