// Package progress renders live progress of bulk metadata runs.
package progress

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Digital-Shane/metaweave/internal/batch"
	"github.com/Digital-Shane/metaweave/internal/media"
	"github.com/Digital-Shane/metaweave/internal/tui/theme"
)

type batchEventMsg struct {
	event batch.Event
	done  bool
}

// Runner is the part of batch.Controller the view drives.
type Runner interface {
	Start(ctx context.Context) <-chan batch.Event
	Cancel()
	Snapshot() batch.Progress
}

// BatchModel shows a batch run: overall progress, per-kind counts, provider
// usage and cool-downs. The first ctrl+c asks the run to stop after the
// current chunk; a second one abandons it.
type BatchModel struct {
	runner Runner
	events <-chan batch.Event
	state  batch.Progress
	err    error

	width  int
	height int

	bar   progress.Model
	theme theme.Theme

	ctx      context.Context
	cancel   context.CancelFunc
	stopping bool
	done     bool
}

// NewBatchModel returns a view over runner.
func NewBatchModel(runner Runner, th theme.Theme) *BatchModel {
	gradient := th.ProgressGradient()
	bar := progress.New(progress.WithGradient(gradient[0], gradient[1]))
	bar.Width = 50
	return &BatchModel{
		runner: runner,
		state:  runner.Snapshot(),
		width:  80,
		height: 16,
		bar:    bar,
		theme:  th,
	}
}

// Init starts the run.
func (m *BatchModel) Init() tea.Cmd {
	m.ctx, m.cancel = context.WithCancel(context.Background())
	m.events = m.runner.Start(m.ctx)
	return m.waitForEvent()
}

func (m *BatchModel) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		evt, ok := <-m.events
		if !ok {
			return batchEventMsg{done: true}
		}
		return batchEventMsg{event: evt}
	}
}

// Update handles terminal and run events.
func (m *BatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.bar.Width = max(msg.Width-4, 10)
		return m, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc", "q":
			if m.stopping {
				m.cancel()
				return m, tea.Quit
			}
			m.stopping = true
			m.runner.Cancel()
			return m, nil
		}
	case batchEventMsg:
		return m.handleEvent(msg)
	case progress.FrameMsg:
		bm, cmd := m.bar.Update(msg)
		m.bar = bm.(progress.Model)
		return m, cmd
	}
	return m, nil
}

func (m *BatchModel) handleEvent(msg batchEventMsg) (tea.Model, tea.Cmd) {
	if msg.done {
		m.done = true
		if m.cancel != nil {
			m.cancel()
		}
		return m, tea.Quit
	}
	m.state = msg.event.Progress
	if msg.event.Err != nil && !errors.Is(msg.event.Err, context.Canceled) {
		m.err = msg.event.Err
	}
	return m, tea.Batch(m.bar.SetPercent(m.state.Progress), m.waitForEvent())
}

// View renders the run.
func (m *BatchModel) View() string {
	if m.err != nil {
		return fmt.Sprintf("Error: %v\n", m.err)
	}
	if m.state.Total == 0 {
		return "Nothing to generate.\n"
	}

	header := m.theme.HeaderStyle().Width(m.width).Render("Generating Metadata")
	sections := []string{
		header,
		m.statusLine(),
		m.bar.View(),
		m.panel(),
	}

	detail := m.state.Detail
	if m.stopping && !m.state.Done() {
		detail = "Stopping after the current chunk… press ctrl+c again to abandon"
	}
	if detail == "" {
		detail = "Starting…"
	}
	sections = append(sections, m.theme.StatusBarStyle().Width(m.width).Render(detail))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m *BatchModel) statusLine() string {
	var badge string
	switch m.state.Status {
	case batch.StatusCooling:
		badge = m.theme.BadgeStyle(theme.BadgeWarning).Render(m.theme.Icon("cooling") + " cooling down")
	case batch.StatusDone:
		badge = m.theme.BadgeStyle(theme.BadgeSuccess).Render(m.theme.Icon("success") + " done")
	case batch.StatusCanceled:
		badge = m.theme.BadgeStyle(theme.BadgeMuted).Render("canceled")
	default:
		badge = m.theme.BadgeStyle(theme.BadgeInfo).Render(m.theme.Icon("running") + " running")
	}
	counts := fmt.Sprintf(" %d/%d processed", m.state.Processed, m.state.Total)
	if m.state.Failed > 0 {
		counts += lipgloss.NewStyle().Foreground(m.theme.Colors().Error).Render(fmt.Sprintf(", %d failed", m.state.Failed))
	}
	return badge + counts
}

func (m *BatchModel) panel() string {
	var kinds []string
	for _, kind := range media.Kinds {
		if n := m.state.Count[kind]; n > 0 {
			kinds = append(kinds, fmt.Sprintf("%s %s: %d", m.theme.KindIcon(kind), kind, n))
		}
	}
	usage := []string{
		fmt.Sprintf("%s Provider usage", m.theme.Icon("stats")),
		fmt.Sprintf("Global: %3.0f%%", 100*m.state.Usage.Global),
		fmt.Sprintf("Trakt:  %3.0f%%", 100*m.state.Usage.Trakt),
		fmt.Sprintf("IMDb:   %3.0f%%", 100*m.state.Usage.IMDb),
		fmt.Sprintf("TMDb:   %3.0f%%", 100*m.state.Usage.TMDb),
	}
	if m.state.Cooldowns > 0 {
		usage = append(usage, fmt.Sprintf("Cool-downs: %d", m.state.Cooldowns))
	}

	panel := m.theme.PanelStyle()
	width := max(m.width-panel.GetHorizontalFrameSize(), 20)
	left := lipgloss.NewStyle().Width(width / 2).Render(strings.Join(kinds, "\n"))
	right := lipgloss.NewStyle().Width(width - width/2).Render(strings.Join(usage, "\n"))
	return panel.Width(width).Render(lipgloss.JoinHorizontal(lipgloss.Top, left, right))
}

// Progress returns the last state seen.
func (m *BatchModel) Progress() batch.Progress { return m.state }

// Err returns the error that ended the run, if any.
func (m *BatchModel) Err() error { return m.err }
