package ui

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// SpinnerFrames is the bubbles spinner matching the CLI Spinner's frames.
var SpinnerFrames = spinner.Spinner{
	Frames: spinnerFrames,
	FPS:    spinnerTick,
}

// SpinnerComponent is a spinner that can be embedded in a Bubble Tea model.
type SpinnerComponent struct {
	spinner   spinner.Model
	Label     string
	State     SpinnerState
	StartTime time.Time
}

// NewSpinnerComponent creates a pending spinner component.
func NewSpinnerComponent(label string) SpinnerComponent {
	sp := spinner.New()
	sp.Spinner = SpinnerFrames
	sp.Style = lipgloss.NewStyle().Foreground(ColorNeonCyan)
	return SpinnerComponent{spinner: sp, Label: label}
}

// Start moves the component to in-progress and returns the first tick.
func (s *SpinnerComponent) Start() tea.Cmd {
	s.State = SpinnerInProgress
	s.StartTime = time.Now()
	return s.spinner.Tick
}

// Update advances the animation. Ticks are dropped once resolved, which
// ends the tick chain.
func (s SpinnerComponent) Update(msg tea.Msg) (SpinnerComponent, tea.Cmd) {
	tick, ok := msg.(spinner.TickMsg)
	if !ok || s.State != SpinnerInProgress {
		return s, nil
	}
	var cmd tea.Cmd
	s.spinner, cmd = s.spinner.Update(tick)
	return s, cmd
}

// View renders the spinner line.
func (s SpinnerComponent) View() string {
	switch s.State {
	case SpinnerInProgress:
		return s.spinner.View() + " " + s.Label + "..."
	case SpinnerSuccess:
		return s.final(SymbolComplete, ColorSuccess)
	case SpinnerFailed:
		return s.final(SymbolFail, ColorError)
	case SpinnerSkipped:
		return s.final(SymbolSkipped, ColorWarning)
	default:
		return s.final(SymbolPending, ColorMuted)
	}
}

func (s SpinnerComponent) final(symbol string, color lipgloss.Color) string {
	line := lipgloss.NewStyle().Foreground(color).Render(symbol) + " " + s.Label
	if !s.StartTime.IsZero() {
		line += " " + MutedStyle().Render(FormatDuration(time.Since(s.StartTime)))
	}
	return line
}

// Success resolves the component as done.
func (s *SpinnerComponent) Success() { s.State = SpinnerSuccess }

// Fail resolves the component as failed.
func (s *SpinnerComponent) Fail() { s.State = SpinnerFailed }
