package gpuview

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/rileyhilliard/tbwatch/internal/monitor"
	"github.com/rileyhilliard/tbwatch/internal/ui"
)

const labelWidth = 10

var (
	titleStyle  = lipgloss.NewStyle().Foreground(ui.ColorNeonPink).Bold(true)
	labelStyle  = lipgloss.NewStyle().Foreground(ui.ColorSecondary).Width(labelWidth)
	valueStyle  = lipgloss.NewStyle().Foreground(ui.ColorPrimary).Bold(true).Width(18)
	footerStyle = ui.MutedStyle()

	helpBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ui.ColorNeonPurple).
			Padding(1, 2)
	helpKeyStyle = lipgloss.NewStyle().Foreground(ui.ColorPrimary).Bold(true).Width(12)
)

var helpBindings = []struct{ Key, Desc string }{
	{"q / Ctrl+C", "Quit"},
	{"r", "Sample now"},
	{"?", "Toggle this help"},
	{"Esc", "Close help"},
}

func (m Model) renderDashboard() string {
	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n\n")

	if len(m.samples) == 0 {
		b.WriteString(m.spinner.View())
		b.WriteString("\n")
	} else {
		b.WriteString(m.renderMetrics())
	}

	if m.last.Failure != monitor.FailureNone {
		b.WriteString("\n")
		b.WriteString(ui.ErrorStyle().Render(fmt.Sprintf("%s last sample failed (%s): %s",
			ui.SymbolWarning, m.last.Failure, orDash(m.last.Error))))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(footerStyle.Render("q quit · r sample now · ? help"))
	return b.String()
}

func (m Model) renderHeader() string {
	parts := []string{titleStyle.Render("tbwatch gpu")}
	if m.target != "" {
		parts = append(parts, m.target)
	}
	parts = append(parts, "every "+m.interval.String())
	if !m.lastUpdate.IsZero() {
		parts = append(parts, "updated "+m.lastUpdate.Format(time.TimeOnly))
	}
	if m.failures > 0 {
		parts = append(parts, fmt.Sprintf("%d failed", m.failures))
	}
	return strings.Join(parts, footerStyle.Render(" · "))
}

func (m Model) renderMetrics() string {
	n := len(m.samples)
	latest := m.samples[n-1]

	temps := make([]float64, n)
	power := make([]float64, n)
	memPct := make([]float64, n)
	for i, s := range m.samples {
		temps[i] = s.TemperatureC
		power[i] = s.PowerW
		memPct[i] = memoryPercent(s)
	}

	width := m.sparkWidth()
	rows := []string{
		m.row("Temp", fmt.Sprintf("%.0f°C", latest.TemperatureC), ui.RenderSparkline(temps, width)),
		m.row("Power", fmt.Sprintf("%.1f W", latest.PowerW), ui.RenderSparklineColor(power, width, ui.ColorNeonCyan)),
		m.row("Memory", fmt.Sprintf("%.0f / %.0f MB", latest.MemoryUsedMB, latest.MemoryTotalMB), ui.RenderSparkline(memPct, width)),
		m.row("", "", ui.RenderProgressBar(memoryPercent(latest), width)),
		"",
		footerStyle.Render(fmt.Sprintf("%d samples in window", n)),
	}
	return strings.Join(rows, "\n") + "\n"
}

func (m Model) row(label, value, graph string) string {
	return labelStyle.Render(label) + valueStyle.Render(value) + graph
}

// sparkWidth leaves room for the label and value columns.
func (m Model) sparkWidth() int {
	return max(10, m.width-labelWidth-18-8)
}

func (m Model) renderHelpOverlay() string {
	lines := []string{titleStyle.Render("Keyboard Shortcuts"), ""}
	for _, h := range helpBindings {
		lines = append(lines, helpKeyStyle.Render(h.Key)+footerStyle.Render(h.Desc))
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center,
		helpBoxStyle.Render(strings.Join(lines, "\n")))
}

func memoryPercent(s monitor.GPUSample) float64 {
	if s.MemoryTotalMB <= 0 {
		return 0
	}
	return s.MemoryUsedMB / s.MemoryTotalMB * 100
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
