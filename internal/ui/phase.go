package ui

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// DividerWidth is the width of PhaseDisplay dividers.
const DividerWidth = 64

// PhaseDisplay prints one resolved line per step of a CLI command:
//
//	● Pulled images 1.4s
//	✗ Pulled output 0.3s
//	    rsync: link_stat "/data/train.log" failed
type PhaseDisplay struct {
	w io.Writer
}

// NewPhaseDisplay creates a display writing to w.
func NewPhaseDisplay(w io.Writer) *PhaseDisplay {
	return &PhaseDisplay{w: w}
}

// Success prints a completed step.
func (pd *PhaseDisplay) Success(name string, d time.Duration) {
	fmt.Fprintln(pd.w, FormatPhase(SymbolComplete, ColorSuccess, name, FormatDuration(d)))
}

// Failed prints a failed step followed by its indented detail lines.
func (pd *PhaseDisplay) Failed(name string, d time.Duration, detail string) {
	fmt.Fprintln(pd.w, FormatPhase(SymbolFail, ColorError, name, FormatDuration(d)))
	for _, line := range strings.Split(strings.TrimRight(detail, "\n"), "\n") {
		if line != "" {
			fmt.Fprintln(pd.w, "    "+MutedStyle().Render(line))
		}
	}
}

// Skipped prints a step that did not run.
func (pd *PhaseDisplay) Skipped(name, reason string) {
	timing := ""
	if reason != "" {
		timing = "(" + reason + ")"
	}
	fmt.Fprintln(pd.w, FormatPhase(SymbolSkipped, ColorWarning, name, timing))
}

// CommandPrompt echoes a command as "$ cmd".
func (pd *PhaseDisplay) CommandPrompt(cmd string) {
	fmt.Fprintf(pd.w, "%s %s\n", MutedStyle().Render("$"), cmd)
}

// Divider prints a heavy horizontal rule.
func (pd *PhaseDisplay) Divider() {
	fmt.Fprintf(pd.w, "\n%s\n\n", FormatDivider(DividerWidth))
}

// FormatPhase returns "symbol name timing" with the symbol colored.
func FormatPhase(symbol string, color lipgloss.Color, name, timing string) string {
	line := lipgloss.NewStyle().Foreground(color).Render(symbol) + " " + name
	if timing != "" {
		line += " " + MutedStyle().Render(timing)
	}
	return line
}

// FormatDivider returns a muted rule of the given width.
func FormatDivider(width int) string {
	return MutedStyle().Render(strings.Repeat("━", width))
}
