package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// HeaderInfo is what the banner shows.
type HeaderInfo struct {
	Version string
	Tagline string
	// Target is the remote host, e.g. "ubuntu@gpu-box:22".
	Target string
}

// HeaderWidth is the width of the divider under the banner.
const HeaderWidth = 50

// RenderHeader renders the "tbwatch vX" banner with an optional tagline
// and target line.
func RenderHeader(info HeaderInfo) string {
	titleStyle := lipgloss.NewStyle().Foreground(ColorNeonPink).Bold(true)
	versionStyle := lipgloss.NewStyle().Foreground(ColorNeonCyan)

	var b strings.Builder
	b.WriteString(titleStyle.Render("tbwatch"))
	if info.Version != "" {
		b.WriteString(" ")
		b.WriteString(versionStyle.Render(info.Version))
	}
	b.WriteString("\n")

	if info.Tagline != "" {
		b.WriteString(lipgloss.NewStyle().Foreground(ColorSecondary).Render(info.Tagline))
		b.WriteString("\n")
	}
	if info.Target != "" {
		b.WriteString(MutedStyle().Render(info.Target))
		b.WriteString("\n")
	}

	b.WriteString(lipgloss.NewStyle().Foreground(ColorGlassBorder).Render(strings.Repeat("━", HeaderWidth)))
	b.WriteString("\n")
	return b.String()
}
