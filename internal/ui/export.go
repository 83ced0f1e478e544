package ui

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ErrExportCancelled is returned by ExportModel.Err when the user quits
// before the export finishes.
var ErrExportCancelled = errors.New("export was cancelled")

// ExportFunc does the work behind the export screen, reporting each
// finished file through progress.
type ExportFunc func(ctx context.Context, progress func(done, total int, name string)) error

// ExportModel shows bulk export progress as "n / total files".
type ExportModel struct {
	title    string
	total    int
	done     int
	current  string
	spinner  spinner.Model
	progress progress.Model
	run      ExportFunc
	ctx      context.Context
	cancel   context.CancelFunc
	statusCh chan exportProgressMsg
	err      error
	finished bool
	width    int
}

// NewExport builds the export screen for total files.
func NewExport(title string, total int, run ExportFunc) ExportModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#555555", Dark: "#AAAAAA"})

	p := progress.New(
		progress.WithScaledGradient("#EC4899", "#8B5CF6"),
		progress.WithoutPercentage(),
	)

	ctx, cancel := context.WithCancel(context.Background())
	return ExportModel{
		title:    title,
		total:    total,
		spinner:  s,
		progress: p,
		run:      run,
		ctx:      ctx,
		cancel:   cancel,
		statusCh: make(chan exportProgressMsg, 64),
	}
}

// Err returns the export outcome once the program has exited.
func (m ExportModel) Err() error {
	if !m.finished {
		return ErrExportCancelled
	}
	return m.err
}

func (m ExportModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.start(), m.waitForStatus())
}

func (m ExportModel) start() tea.Cmd {
	return func() tea.Msg {
		err := m.run(m.ctx, func(done, total int, name string) {
			select {
			case m.statusCh <- exportProgressMsg{done: done, total: total, name: name}:
			case <-m.ctx.Done():
			}
		})
		close(m.statusCh)
		return exportDoneMsg{err: err}
	}
}

func (m ExportModel) waitForStatus() tea.Cmd {
	return func() tea.Msg {
		s, ok := <-m.statusCh
		if !ok {
			return nil
		}
		return s
	}
}

func (m ExportModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if isQuit(msg) {
			m.cancel()
			m.finished = false
			return m, tea.Quit
		}

	case exportProgressMsg:
		m.done, m.total, m.current = msg.done, msg.total, msg.name
		return m, m.waitForStatus()

	case exportDoneMsg:
		m.cancel()
		m.finished = true
		m.err = msg.err
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.progress.Width = min(max(msg.Width-8, 20), 60)
		return m, nil
	}
	return m, nil
}

// Ratio is the completed fraction.
func (m ExportModel) Ratio() float64 {
	if m.total <= 0 {
		return 0
	}
	return float64(m.done) / float64(m.total)
}

// Counter renders "n / total files".
func (m ExportModel) Counter() string {
	return fmt.Sprintf("%d / %d files", m.done, m.total)
}

func (m ExportModel) View() string {
	if m.finished {
		return ""
	}
	lines := "\n"
	lines += "  " + headerStyle.Render(appName) + "\n\n"
	lines += "  " + m.spinner.View() + " " + statusStyle.Render(m.title) + "\n"
	lines += "  " + m.progress.ViewAs(m.Ratio()) + "  " + m.Counter() + "\n"
	if m.current != "" {
		lines += "  " + helpStyle.Render(m.current) + "\n"
	}
	lines += "\n  " + helpStyle.Render(exportHelp()) + "\n"
	return lines
}
