package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Eight block heights, lowest first.
var sparklineBlocks = []rune("▁▂▃▄▅▆▇█")

// RenderSparkline draws the most recent width points of data, scaled to
// their own min/max. The color follows the last value read as a 0-100
// percentage.
func RenderSparkline(data []float64, width int) string {
	if len(data) == 0 || width <= 0 {
		return ""
	}
	return RenderSparklineColor(data, width, thresholdColor(data[len(data)-1]))
}

// RenderSparklineColor is RenderSparkline with a fixed color, for series
// that are not percentages (watts, megabytes).
func RenderSparklineColor(data []float64, width int, color lipgloss.Color) string {
	if len(data) == 0 || width <= 0 {
		return ""
	}
	if len(data) > width {
		data = data[len(data)-width:]
	}

	lo, hi := data[0], data[0]
	for _, v := range data {
		lo = min(lo, v)
		hi = max(hi, v)
	}

	levels := len(sparklineBlocks)
	span := hi - lo

	var sb strings.Builder
	sb.Grow(len(data) * 3)
	for _, v := range data {
		level := levels / 2
		if span > 0 {
			level = int((v - lo) / span * float64(levels-1))
			level = max(0, min(levels-1, level))
		}
		sb.WriteRune(sparklineBlocks[level])
	}

	return lipgloss.NewStyle().Foreground(color).Render(sb.String())
}
