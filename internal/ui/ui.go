// Package ui is the interactive dashboard: a live multi-series rate chart
// above a per-source table, driven by snapshots from the sampler.
package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Dicklesworthstone/i2cirqmon/internal/interaction"
	"github.com/Dicklesworthstone/i2cirqmon/internal/model"
)

// Model renders live snapshots from the sampler.
type Model struct {
	stream    <-chan model.Snapshot
	ctxCancel context.CancelFunc
	latest    model.Snapshot
	samples   int
	window    time.Duration

	state *interaction.State
	keys  KeyMap
	help  help.Model

	width  int
	height int
}

// New builds a Model reading from stream. cancel stops the sampler when the
// user quits. window is the time span shown on the chart.
func New(stream <-chan model.Snapshot, cancel context.CancelFunc, window time.Duration) *Model {
	return &Model{
		stream:    stream,
		ctxCancel: cancel,
		latest:    model.Zero(),
		window:    window,
		state:     interaction.New(),
		keys:      DefaultKeyMap,
		help:      help.New(),
		width:     120,
		height:    40,
	}
}

// Messages
type (
	snapshotMsg model.Snapshot
	closedMsg   struct{}
)

func waitSnapshot(ch <-chan model.Snapshot) tea.Cmd {
	return func() tea.Msg {
		snap, ok := <-ch
		if !ok {
			return closedMsg{}
		}
		return snapshotMsg(snap)
	}
}

func (m *Model) Init() tea.Cmd { return waitSnapshot(m.stream) }

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.ctxCancel()
			return m, tea.Quit
		case key.Matches(msg, m.keys.Next):
			m.state.SelectNext()
		case key.Matches(msg, m.keys.Previous):
			m.state.SelectPrevious()
		case key.Matches(msg, m.keys.Toggle):
			m.state.ToggleVisibility()
		case key.Matches(msg, m.keys.ToggleTotal):
			m.state.ToggleTotal()
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
		}
	case snapshotMsg:
		m.latest = model.Snapshot(msg)
		if m.latest.Seq > 1 {
			m.samples++
		}
		m.state.Sync(m.latest.IDs())
		return m, waitSnapshot(m.stream)
	case closedMsg:
		return m, tea.Quit
	}
	return m, nil
}

// Latest is the most recent snapshot received.
func (m *Model) Latest() model.Snapshot { return m.latest }

// Samples counts snapshots that carried rates, excluding the seed tick.
func (m *Model) Samples() int { return m.samples }

// Styles
var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("45"))
	subtleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	headerStyle = lipgloss.NewStyle().Bold(true)
	totalStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(totalColor))
	hiddenStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	glitchStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
	cardStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("60")).
			Padding(0, 1)
)

const (
	totalColor     = "15"
	highBackground = "238"
)

func (m *Model) View() string {
	s := m.latest
	view := m.state.View()

	title := "Interrupt Monitor"
	if s.Threshold > 0 {
		title = fmt.Sprintf("Interrupt Monitor (threshold: %.0f/s)", s.Threshold)
	}
	header := titleStyle.Render(title) + "  " +
		subtleStyle.Render(s.Timestamp.Format("Mon Jan 2 15:04:05 MST 2006"))
	if s.Host.Kernel != "" {
		header += "  " + subtleStyle.Render(fmt.Sprintf("kernel %s, %d cpus", s.Host.Kernel, s.Host.CPUs))
	}

	table := card("Sources", renderTable(s, view))
	status := m.statusBar()
	helpView := m.help.View(m.keys)

	// header, chart card borders and axis, table card, status, help
	chartH := m.height - lipgloss.Height(table) - lipgloss.Height(helpView) - 6
	if chartH < 4 {
		chartH = 4
	}
	chartW := m.width - 4
	if chartW < 20 {
		chartW = 20
	}
	chart := card("Interrupts/s", lineChart(m.visibleSeries(view), chartW, chartH, s.Timestamp, m.window))

	return lipgloss.JoinVertical(lipgloss.Left, header, chart, table, status, helpView)
}

func (m *Model) visibleSeries(view interaction.View) []series {
	out := make([]series, 0, len(m.latest.Sources)+1)
	for _, src := range m.latest.Sources {
		if view.IsHidden(src.ID) {
			continue
		}
		out = append(out, series{color: src.Color, points: src.Series})
	}
	if view.TotalVisible {
		out = append(out, series{color: totalColor, bold: true, points: m.latest.Total.Series})
	}
	return out
}

func (m *Model) statusBar() string {
	s := m.latest
	parts := []string{
		fmt.Sprintf("%.0fs", s.Elapsed().Seconds()),
		fmt.Sprintf("%dms", s.Interval.Milliseconds()),
		fmt.Sprintf("#%d", m.samples),
	}
	if len(s.Sources) == 0 {
		parts = append(parts, "no sources")
	}
	line := subtleStyle.Render(strings.Join(parts, " "))
	if s.Glitch {
		line += "  " + glitchStyle.Render("read failed")
	}
	return line
}

func card(title, body string) string {
	return cardStyle.Render(titleStyle.Render(title) + "\n" + body)
}

// Result is what the dashboard leaves behind once it exits.
type Result struct {
	Final   model.Snapshot
	Samples int
}

// RunTUI starts the Bubble Tea program on stream and blocks until the user
// quits or the stream closes.
func RunTUI(stream <-chan model.Snapshot, cancel context.CancelFunc, window time.Duration, altScreen bool) (Result, error) {
	var opts []tea.ProgramOption
	if altScreen {
		opts = append(opts, tea.WithAltScreen())
	}
	m := New(stream, cancel, window)
	_, err := tea.NewProgram(m, opts...).Run()
	cancel()
	return Result{Final: m.Latest(), Samples: m.Samples()}, err
}
