// Package gpuview is a full-screen terminal view of the remote GPU: the
// latest nvidia-smi reading plus sparklines over the sample window. It
// shares the monitor package's collector and store with the HTTP API.
package gpuview

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rileyhilliard/tbwatch/internal/monitor"
	"github.com/rileyhilliard/tbwatch/internal/ui"
)

// DefaultTimeout bounds a single nvidia-smi round trip.
const DefaultTimeout = 15 * time.Second

// Model is the Bubble Tea model for the GPU view.
type Model struct {
	collector *monitor.Collector
	target    string
	interval  time.Duration
	timeout   time.Duration

	spinner    ui.SpinnerComponent
	spinnerCmd tea.Cmd

	samples    []monitor.GPUSample
	last       monitor.GPUResult
	lastUpdate time.Time
	failures   int
	collecting bool

	width    int
	height   int
	showHelp bool
	quitting bool
}

// tickMsg triggers the next sample.
type tickMsg time.Time

// sampleMsg carries one SampleGPU result and the window after it.
type sampleMsg struct {
	res     monitor.GPUResult
	samples []monitor.GPUSample
	at      time.Time
}

// NewModel creates the view. target is shown in the header, e.g.
// "ubuntu@gpu-box:22". A zero timeout uses DefaultTimeout.
func NewModel(collector *monitor.Collector, target string, interval, timeout time.Duration) Model {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	// Init's first sample is in flight, hence collecting.
	m := Model{
		collector:  collector,
		target:     target,
		interval:   interval,
		timeout:    timeout,
		spinner:    ui.NewSpinnerComponent("Waiting for the first nvidia-smi sample"),
		samples:    collector.Store().GPUSamples(),
		collecting: true,
		width:      80,
		height:     24,
	}
	m.spinnerCmd = m.spinner.Start()
	if len(m.samples) > 0 {
		m.spinner.Success()
	}
	return m
}

// Init samples immediately and starts the refresh timer.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinnerCmd, m.collectCmd(), m.tickCmd())
}

// Update handles messages and updates the model state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if handled, cmd := m.HandleKeyMsg(msg); handled {
			return m, cmd
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tickMsg:
		cmd := tea.Batch(m.tickCmd(), m.refresh())
		return m, cmd

	case sampleMsg:
		m.collecting = false
		m.last = msg.res
		m.samples = msg.samples
		m.lastUpdate = msg.at
		if msg.res.Sample != nil {
			m.spinner.Success()
		} else {
			m.failures++
		}
	}
	return m, nil
}

// refresh starts a sample unless one is already in flight.
func (m *Model) refresh() tea.Cmd {
	if m.collecting {
		return nil
	}
	m.collecting = true
	return m.collectCmd()
}

func (m Model) tickCmd() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) collectCmd() tea.Cmd {
	collector, timeout := m.collector, m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		res := collector.SampleGPU(ctx)
		return sampleMsg{res: res, samples: collector.Store().GPUSamples(), at: time.Now()}
	}
}

// View renders the dashboard.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.showHelp {
		return m.renderHelpOverlay()
	}
	return m.renderDashboard()
}
