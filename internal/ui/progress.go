package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const (
	barFilled = '█'
	barEmpty  = '░'
)

// ClampPercent clamps percent to [0, 100].
func ClampPercent(percent float64) float64 {
	return max(0, min(100, percent))
}

// RenderProgressBar renders "[████░░░░]  50%" colored by load threshold.
// width is the number of cells between the brackets.
func RenderProgressBar(percent float64, width int) string {
	if width <= 0 {
		return ""
	}
	percent = ClampPercent(percent)

	filled := int(percent / 100 * float64(width))
	var sb strings.Builder
	sb.Grow(width*3 + 2)
	sb.WriteRune('[')
	sb.WriteString(strings.Repeat(string(barFilled), filled))
	sb.WriteString(strings.Repeat(string(barEmpty), width-filled))
	sb.WriteRune(']')

	style := lipgloss.NewStyle().Foreground(thresholdColor(percent))
	return style.Render(sb.String()) + fmt.Sprintf(" %3.0f%%", percent)
}
