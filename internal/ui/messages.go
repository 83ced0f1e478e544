package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

type tickMsg time.Time
type playbackEndedMsg struct{}

// exportProgressMsg reports one finished file.
type exportProgressMsg struct {
	done, total int
	name        string
}

type exportDoneMsg struct{ err error }

const tickInterval = 50 * time.Millisecond

func tickCmd() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}
