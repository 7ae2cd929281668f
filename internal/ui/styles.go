package ui

import "github.com/charmbracelet/lipgloss"

// Theme selects which palette SetTheme resolves to.
type Theme string

const (
	ThemeAuto  Theme = "auto"
	ThemeDark  Theme = "dark"
	ThemeLight Theme = "light"
)

// DetectTheme reports the terminal's background as Dark or Light, used to
// resolve ThemeAuto.
func DetectTheme() Theme {
	if lipgloss.HasDarkBackground() {
		return ThemeDark
	}
	return ThemeLight
}

// Catppuccin Mocha (dark theme)
var mocha = struct {
	Red, Green, Yellow, Peach, Mauve, Blue, Teal lipgloss.Color
	Text, Subtext, Overlay, Surface, Base        lipgloss.Color
}{
	Red: "#f38ba8", Green: "#a6e3a1", Yellow: "#f9e2af", Peach: "#fab387",
	Mauve: "#cba6f7", Blue: "#89b4fa", Teal: "#94e2d5",
	Text: "#cdd6f4", Subtext: "#a6adc8", Overlay: "#7f849c",
	Surface: "#45475a", Base: "#1e1e2e",
}

// Catppuccin Latte (light theme)
var latte = struct {
	Red, Green, Yellow, Peach, Mauve, Blue, Teal lipgloss.Color
	Text, Subtext, Overlay, Surface, Base        lipgloss.Color
}{
	Red: "#d20f39", Green: "#40a02b", Yellow: "#df8e1d", Peach: "#fe640b",
	Mauve: "#8839ef", Blue: "#1e66f5", Teal: "#179299",
	Text: "#4c4f69", Subtext: "#6c6f85", Overlay: "#8c8fa1",
	Surface: "#ccd0da", Base: "#eff1f5",
}

// ThemePalette holds the current color scheme.
type ThemePalette struct {
	Red, Green, Yellow, Peach, Mauve, Blue, Teal lipgloss.Color
	Text, Subtext, Overlay, Surface, Base        lipgloss.Color
}

var currentTheme ThemePalette

func init() {
	if DetectTheme() == ThemeDark {
		SetDarkTheme()
	} else {
		SetLightTheme()
	}
}

// SetDarkTheme switches to Catppuccin Mocha.
func SetDarkTheme() {
	currentTheme = ThemePalette(mocha)
	refreshStyles()
}

// SetLightTheme switches to Catppuccin Latte.
func SetLightTheme() {
	currentTheme = ThemePalette(latte)
	refreshStyles()
}

// SetTheme applies an explicit theme selection, resolving "auto" via
// terminal background detection. Unknown values behave as "auto".
func SetTheme(t Theme) {
	switch t {
	case ThemeDark:
		SetDarkTheme()
	case ThemeLight:
		SetLightTheme()
	default:
		if DetectTheme() == ThemeDark {
			SetDarkTheme()
		} else {
			SetLightTheme()
		}
	}
}

// Semantic styles used by the REPL and job table.
var (
	MutedStyle      lipgloss.Style
	ErrorStyle      lipgloss.Style
	WarningStyle    lipgloss.Style
	SuccessStyle    lipgloss.Style
	RunningStyle    lipgloss.Style
	StoppedStyle    lipgloss.Style
	CommandStyle    lipgloss.Style
	HeaderStyle     lipgloss.Style
	PromptUserStyle lipgloss.Style
	PromptPathStyle lipgloss.Style
)

func refreshStyles() {
	MutedStyle = lipgloss.NewStyle().Foreground(currentTheme.Overlay)
	ErrorStyle = lipgloss.NewStyle().Foreground(currentTheme.Red).Bold(true)
	WarningStyle = lipgloss.NewStyle().Foreground(currentTheme.Peach)
	SuccessStyle = lipgloss.NewStyle().Foreground(currentTheme.Green)
	RunningStyle = lipgloss.NewStyle().Foreground(currentTheme.Green)
	StoppedStyle = lipgloss.NewStyle().Foreground(currentTheme.Yellow)
	CommandStyle = lipgloss.NewStyle().Foreground(currentTheme.Text)
	HeaderStyle = lipgloss.NewStyle().Foreground(currentTheme.Mauve).Bold(true)
	PromptUserStyle = lipgloss.NewStyle().Foreground(currentTheme.Teal)
	PromptPathStyle = lipgloss.NewStyle().Foreground(currentTheme.Blue).Bold(true)
}

// StyleForStatus returns the style used to render a job's status word in
// `jobs` output.
func StyleForStatus(status string) lipgloss.Style {
	switch status {
	case "Running":
		return RunningStyle
	case "Stopped":
		return StoppedStyle
	case "Done":
		return MutedStyle
	default:
		return CommandStyle
	}
}
