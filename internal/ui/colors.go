package ui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Semantic colors for status indication.
const (
	ColorSuccess lipgloss.Color = "#3DDC84"
	ColorError   lipgloss.Color = "#FF4D6D"
	ColorWarning lipgloss.Color = "#FFB020"
	ColorInfo    lipgloss.Color = "#22D3EE"
)

// Text colors for content hierarchy.
const (
	ColorPrimary   lipgloss.Color = "#E6E6F0"
	ColorSecondary lipgloss.Color = "#7AA2F7"
	ColorMuted     lipgloss.Color = "#6B7089"
)

// Accents used for titles, charts, and the spinner gradient.
const (
	ColorNeonPink    lipgloss.Color = "#FF2E97"
	ColorNeonCyan    lipgloss.Color = "#00E5FF"
	ColorNeonPurple  lipgloss.Color = "#B967FF"
	ColorNeonGreen   lipgloss.Color = "#05FFA1"
	ColorGlassBorder lipgloss.Color = "#3B3F58"
)

// GradientColors is cycled by the spinner, pink through green.
var GradientColors = []lipgloss.Color{
	ColorNeonPink,
	ColorNeonPurple,
	ColorNeonCyan,
	ColorNeonGreen,
}

// DisableColors switches all lipgloss rendering to plain text, for
// --no-color and non-terminal output.
func DisableColors() {
	lipgloss.SetColorProfile(termenv.Ascii)
}

// SuccessStyle renders text in the success color.
func SuccessStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(ColorSuccess)
}

// ErrorStyle renders text in the error color.
func ErrorStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(ColorError)
}

// MutedStyle renders secondary text such as timings.
func MutedStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(ColorMuted)
}

// thresholdColor maps a 0-100 load percentage to green, amber, or red.
func thresholdColor(percent float64) lipgloss.Color {
	switch {
	case percent >= 80:
		return ColorError
	case percent >= 60:
		return ColorWarning
	default:
		return ColorSuccess
	}
}
