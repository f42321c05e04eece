package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rileyhilliard/tbwatch/pkg/sshutil"
	"golang.org/x/term"
)

type hostItem struct {
	host sshutil.HostEntry
}

func (i hostItem) Title() string       { return i.host.Alias }
func (i hostItem) Description() string { return i.host.Label() }

func (i hostItem) FilterValue() string {
	return strings.Join([]string{i.host.Alias, i.host.Hostname, i.host.User}, " ")
}

type hostPickerKeyMap struct {
	Enter  key.Binding
	Manual key.Binding
	Quit   key.Binding
}

var hostPickerKeys = hostPickerKeyMap{
	Enter:  key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select")),
	Manual: key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "type a host")),
	Quit:   key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"), key.WithHelp("q/esc", "cancel")),
}

// HostPickerModel lets the user pick a GPU host from ~/.ssh/config.
type HostPickerModel struct {
	list     list.Model
	selected *sshutil.HostEntry
	manual   bool
	quitting bool
}

// NewHostPickerModel creates a picker over hosts.
func NewHostPickerModel(hosts []sshutil.HostEntry) HostPickerModel {
	items := make([]list.Item, len(hosts))
	for i, h := range hosts {
		items[i] = hostItem{host: h}
	}

	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.
		Foreground(ColorNeonPink).
		BorderForeground(ColorNeonPink)
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.
		Foreground(ColorMuted).
		BorderForeground(ColorNeonPink)

	l := list.New(items, delegate, 80, 15)
	l.Title = "Which host runs your training?"
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)
	l.Styles.Title = lipgloss.NewStyle().Foreground(ColorPrimary).Bold(true).Padding(0, 0, 1, 0)
	l.AdditionalShortHelpKeys = func() []key.Binding {
		return []key.Binding{hostPickerKeys.Manual}
	}

	return HostPickerModel{list: l}
}

// Init implements tea.Model.
func (m HostPickerModel) Init() tea.Cmd { return nil }

// Update implements tea.Model.
func (m HostPickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.list.FilterState() == list.Filtering {
			break
		}
		switch {
		case key.Matches(msg, hostPickerKeys.Enter):
			if item, ok := m.list.SelectedItem().(hostItem); ok {
				m.selected = &item.host
			}
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, hostPickerKeys.Manual):
			m.manual = true
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, hostPickerKeys.Quit):
			m.quitting = true
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.list.SetSize(msg.Width, msg.Height-2)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m HostPickerModel) View() string {
	if m.quitting {
		return ""
	}
	return m.list.View()
}

// Selected is the chosen host, nil when cancelled or manual.
func (m HostPickerModel) Selected() *sshutil.HostEntry { return m.selected }

// Manual reports whether the user asked to type a host instead.
func (m HostPickerModel) Manual() bool { return m.manual }

// PickHost runs the picker on the terminal. It returns the chosen host, or
// nil with cancelled=false when the user wants manual entry (or there are
// no hosts), or nil with cancelled=true.
func PickHost(hosts []sshutil.HostEntry) (*sshutil.HostEntry, bool, error) {
	return PickHostWithIO(hosts, os.Stdout, os.Stdin)
}

// PickHostWithIO is PickHost with explicit I/O.
func PickHostWithIO(hosts []sshutil.HostEntry, out io.Writer, in io.Reader) (*sshutil.HostEntry, bool, error) {
	if len(hosts) == 0 {
		return nil, false, nil
	}

	final, err := tea.NewProgram(NewHostPickerModel(hosts), tea.WithOutput(out), tea.WithInput(in)).Run()
	if err != nil {
		return nil, false, fmt.Errorf("host picker: %w", err)
	}

	m, ok := final.(HostPickerModel)
	switch {
	case !ok:
		return nil, true, nil
	case m.Manual():
		return nil, false, nil
	case m.Selected() == nil:
		return nil, true, nil
	}
	return m.Selected(), false, nil
}

// IsTerminal reports whether f is an interactive terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
