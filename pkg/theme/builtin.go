package theme

// thRegisterBuiltins registers all built-in themes in the registry.
func thRegisterBuiltins() {
	for _, t := range []Theme{
		Default(),
		thGruvboxTheme(),
		thNordTheme(),
		thDraculaTheme(),
		thTokyoNightTheme(),
	} {
		Register(t)
	}
}

// Default returns the dark neutral theme with purple accent.
func Default() Theme {
	return Theme{
		Name:       "default",
		Foreground: "#E5E7EB",
		Background: "#374151",
		Notice:     "#FBBF24",
		Error:      "#F87171",
		Accent:     "#7C3AED",
		Selected:   "#FFFFFF",
		Dim:        "#6B7280",
	}
}

// thGruvboxTheme returns the warm retro Gruvbox theme.
func thGruvboxTheme() Theme {
	return Theme{
		Name:       "gruvbox",
		Foreground: "#ebdbb2",
		Background: "#3c3836",
		Notice:     "#fabd2f",
		Error:      "#fb4934",
		Accent:     "#fe8019",
		Selected:   "#282828",
		Dim:        "#928374",
	}
}

// thNordTheme returns the cool arctic Nord theme.
func thNordTheme() Theme {
	return Theme{
		Name:       "nord",
		Foreground: "#eceff4",
		Background: "#3b4252",
		Notice:     "#ebcb8b",
		Error:      "#bf616a",
		Accent:     "#88c0d0",
		Selected:   "#2e3440",
		Dim:        "#4c566a",
	}
}

// thDraculaTheme returns the Dracula theme.
func thDraculaTheme() Theme {
	return Theme{
		Name:       "dracula",
		Foreground: "#f8f8f2",
		Background: "#44475a",
		Notice:     "#f1fa8c",
		Error:      "#ff5555",
		Accent:     "#bd93f9",
		Selected:   "#282a36",
		Dim:        "#6272a4",
	}
}

// thTokyoNightTheme returns the Tokyo Night theme.
func thTokyoNightTheme() Theme {
	return Theme{
		Name:       "tokyo-night",
		Foreground: "#c0caf5",
		Background: "#24283b",
		Notice:     "#e0af68",
		Error:      "#f7768e",
		Accent:     "#7aa2f7",
		Selected:   "#1a1b26",
		Dim:        "#565f89",
	}
}
