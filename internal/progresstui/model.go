// Package progresstui is an optional live-progress renderer for the
// install pipeline, used behind --tui instead of internal/progress's plain
// stdout lines. It follows the teacher's bubbletea/lipgloss conventions: a
// tea.Model that receives domain events as tea.Msg values over a channel
// and redraws a per-mod progress bar list.
package progresstui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"nexusbridge/internal/domain"
)

var (
	phaseStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	doneStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

// modRow tracks one mod's latest progress within the currently active phase.
type modRow struct {
	name     string
	bytes    int64
	total    int64
	done     bool
	err      error
	progress progress.Model
}

// eventMsg wraps a domain.ProgressEvent so it can flow through tea.Program.
type eventMsg domain.ProgressEvent

// quitMsg is sent once the pipeline signals it's finished.
type quitMsg struct{}

// Model is the bubbletea model driving the live progress view.
type Model struct {
	phase   domain.Phase
	rows    []string // insertion order of mod names, for stable row ordering
	byName  map[string]*modRow
	events  <-chan domain.ProgressEvent
	done    bool
	width   int
}

// New creates a progress TUI model that reads events from ch until it's
// closed, at which point the program exits on its own.
func New(ch <-chan domain.ProgressEvent) Model {
	return Model{
		byName: make(map[string]*modRow),
		events: ch,
		width:  80,
	}
}

func (m Model) Init() tea.Cmd {
	return m.waitForEvent()
}

func (m Model) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		e, ok := <-m.events
		if !ok {
			return quitMsg{}
		}
		return eventMsg(e)
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		return m, nil

	case quitMsg:
		m.done = true
		return m, tea.Quit

	case eventMsg:
		m.apply(domain.ProgressEvent(msg))
		return m, m.waitForEvent()
	}
	return m, nil
}

func (m *Model) apply(e domain.ProgressEvent) {
	m.phase = e.Phase

	row, ok := m.byName[e.ModName]
	if !ok {
		row = &modRow{name: e.ModName, progress: progress.New(progress.WithDefaultGradient())}
		m.byName[e.ModName] = row
		m.rows = append(m.rows, e.ModName)
	}
	row.bytes = e.Bytes
	row.total = e.TotalBytes
	row.done = e.Done
	row.err = e.Err
}

func (m Model) View() string {
	out := phaseStyle.Render(fmt.Sprintf("nexusbridge — %s", phaseLabel(m.phase))) + "\n\n"

	for _, name := range m.rows {
		row := m.byName[name]
		switch {
		case row.err != nil:
			out += errStyle.Render(fmt.Sprintf("✗ %s: %v", row.name, row.err)) + "\n"
		case row.done:
			out += doneStyle.Render(fmt.Sprintf("✓ %s", row.name)) + "\n"
		case row.total > 0:
			pct := float64(row.bytes) / float64(row.total)
			bar := row.progress.ViewAs(pct)
			out += fmt.Sprintf("%-30s %s %s/%s\n", truncate(row.name, 30), bar,
				humanize.Bytes(uint64(row.bytes)), humanize.Bytes(uint64(row.total)))
		default:
			out += fmt.Sprintf("%-30s ...\n", truncate(row.name, 30))
		}
	}
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}

func phaseLabel(p domain.Phase) string {
	switch p {
	case domain.PhaseScan:
		return "scanning archives"
	case domain.PhaseDownload:
		return "downloading"
	case domain.PhaseInstall:
		return "installing"
	case domain.PhaseSort:
		return "sorting load order"
	default:
		return "working"
	}
}

// Run blocks until the event channel closes or the user quits, rendering
// live progress. A small artificial delay between frames isn't needed since
// bubbletea redraws only on message receipt.
func Run(ch <-chan domain.ProgressEvent) error {
	p := tea.NewProgram(New(ch))
	_, err := p.Run()
	return err
}
