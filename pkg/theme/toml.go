package theme

import (
	"bytes"
	"fmt"
	"os"
	"regexp"

	"github.com/BurntSushi/toml"
)

// thTOMLTheme is the TOML-serializable representation of a Theme.
type thTOMLTheme struct {
	Name   string       `toml:"name"`
	Status thTOMLStatus `toml:"status"`
	Panel  thTOMLPanel  `toml:"panel"`
}

type thTOMLStatus struct {
	Foreground string `toml:"foreground"`
	Background string `toml:"background"`
	Notice     string `toml:"notice"`
	Error      string `toml:"error"`
}

type thTOMLPanel struct {
	Accent   string `toml:"accent"`
	Selected string `toml:"selected"`
	Dim      string `toml:"dim"`
}

var thHexColorRegex = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// LoadFile reads a TOML theme from path.
func LoadFile(path string) (Theme, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Theme{}, fmt.Errorf("theme: %w", err)
	}
	t, err := LoadFromTOML(data)
	if err != nil {
		return Theme{}, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// LoadFromTOML parses a TOML theme definition from raw bytes. Every color
// is required.
func LoadFromTOML(data []byte) (Theme, error) {
	var tt thTOMLTheme
	if err := toml.Unmarshal(data, &tt); err != nil {
		return Theme{}, fmt.Errorf("theme: parse TOML: %w", err)
	}

	t := Theme{
		Name:       tt.Name,
		Foreground: tt.Status.Foreground,
		Background: tt.Status.Background,
		Notice:     tt.Status.Notice,
		Error:      tt.Status.Error,
		Accent:     tt.Panel.Accent,
		Selected:   tt.Panel.Selected,
		Dim:        tt.Panel.Dim,
	}
	if err := thValidateTheme(t); err != nil {
		return Theme{}, err
	}
	return t, nil
}

// SaveToTOML serializes a theme to TOML bytes.
func SaveToTOML(t Theme) ([]byte, error) {
	tt := thTOMLTheme{
		Name: t.Name,
		Status: thTOMLStatus{
			Foreground: t.Foreground,
			Background: t.Background,
			Notice:     t.Notice,
			Error:      t.Error,
		},
		Panel: thTOMLPanel{
			Accent:   t.Accent,
			Selected: t.Selected,
			Dim:      t.Dim,
		},
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(tt); err != nil {
		return nil, fmt.Errorf("theme: encode TOML: %w", err)
	}
	return buf.Bytes(), nil
}

// thValidateTheme checks that every field is present and every color is
// valid hex.
func thValidateTheme(t Theme) error {
	if t.Name == "" {
		return fmt.Errorf("theme: missing required field %q", "name")
	}
	colors := []struct{ field, value string }{
		{"status.foreground", t.Foreground},
		{"status.background", t.Background},
		{"status.notice", t.Notice},
		{"status.error", t.Error},
		{"panel.accent", t.Accent},
		{"panel.selected", t.Selected},
		{"panel.dim", t.Dim},
	}
	for _, c := range colors {
		if c.value == "" {
			return fmt.Errorf("theme: missing required field %q", c.field)
		}
		if !thHexColorRegex.MatchString(c.value) {
			return fmt.Errorf("theme: invalid hex color %q for field %q (expected #RRGGBB)", c.value, c.field)
		}
	}
	return nil
}
