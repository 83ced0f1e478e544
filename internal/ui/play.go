package ui

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"

	"github.com/olivier-w/beatboy/internal/logging"
)

// Playback is the transport the play screen drives.
type Playback interface {
	TogglePause()
	Paused() bool
	Position() time.Duration
	Duration() time.Duration
	Seek(delta time.Duration) error
	Volume() float64
	AdjustVolume(delta float64)
	Recent(n int) []int16
	Done() <-chan struct{}
	Restart() error
	Close()
}

const (
	seekStep   = 5 * time.Second
	volumeStep = 0.05
	meterTap   = 2048
)

// PlayModel auditions a processed track with a progress bar and VU meter.
type PlayModel struct {
	player     Playback
	title      string
	subtitle   string
	elapsed    time.Duration
	duration   time.Duration
	volume     float64
	paused     bool
	width      int
	quitting   bool
	repeatMode RepeatMode
	meter      vuMeter
	status     string
	log        logrus.FieldLogger
}

// NewPlay builds the play screen. subtitle is shown under the title when
// non-empty (artist, or the processing summary).
func NewPlay(p Playback, title, subtitle string, log logrus.FieldLogger) PlayModel {
	return PlayModel{
		player:   p,
		title:    title,
		subtitle: subtitle,
		duration: p.Duration(),
		volume:   p.Volume(),
		meter:    newVUMeter(),
		log:      logging.OrDiscard(log),
	}
}

func (m PlayModel) Init() tea.Cmd {
	return tea.Batch(tickCmd(), checkDone(m.player), tea.SetWindowTitle(windowTitle(m.title, false)))
}

func checkDone(p Playback) tea.Cmd {
	done := p.Done()
	return func() tea.Msg {
		<-done
		return playbackEndedMsg{}
	}
}

func (m PlayModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if isQuit(msg) {
			m.quitting = true
			m.player.Close()
			return m, tea.Sequence(tea.SetWindowTitle(""), tea.Quit)
		}
		switch msg.String() {
		case " ":
			m.player.TogglePause()
			m.paused = m.player.Paused()
			return m, tea.SetWindowTitle(windowTitle(m.title, m.paused))
		case "left", "h":
			m.seek(-seekStep)
		case "right", "l":
			m.seek(seekStep)
		case "+", "=", "up", "k":
			m.player.AdjustVolume(volumeStep)
			m.volume = m.player.Volume()
		case "-", "_", "down", "j":
			m.player.AdjustVolume(-volumeStep)
			m.volume = m.player.Volume()
		case "r":
			m.repeatMode = m.repeatMode.Next()
		}
		return m, nil

	case tickMsg:
		m.elapsed = m.player.Position()
		m.volume = m.player.Volume()
		m.paused = m.player.Paused()
		if m.paused {
			m.meter.update(nil)
		} else {
			m.meter.update(m.player.Recent(meterTap))
		}
		return m, tickCmd()

	case playbackEndedMsg:
		if m.repeatMode == RepeatOne {
			if err := m.player.Restart(); err != nil {
				m.status = fmt.Sprintf("Restart failed: %v", err)
				return m, nil
			}
			m.elapsed = 0
			return m, checkDone(m.player)
		}
		m.elapsed = m.duration
		m.quitting = true
		m.player.Close()
		return m, tea.Sequence(tea.SetWindowTitle(""), tea.Quit)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	}
	return m, nil
}

func (m *PlayModel) seek(delta time.Duration) {
	if err := m.player.Seek(delta); err != nil {
		m.log.WithFields(logrus.Fields{
			"function": "PlayModel.seek",
			"delta":    delta.String(),
			"error":    err.Error(),
		}).Warn("Seek failed")
		m.status = fmt.Sprintf("Seek failed: %v", err)
		return
	}
	m.status = ""
	m.elapsed = m.player.Position()
}

func (m PlayModel) View() string {
	if m.quitting {
		return ""
	}
	w := m.width
	if w < 30 {
		w = 50
	}

	elapsed, total := formatDuration(m.elapsed), formatDuration(m.duration)
	bar := renderProgressBar(m.elapsed.Seconds(), m.duration.Seconds(), w-len(elapsed)-len(total)-6)
	progressLine := fmt.Sprintf("%s %s %s", timeStyle.Render(elapsed), bar, timeStyle.Render(total))

	statusIcon, statusText := "▶", "playing"
	if m.paused {
		statusIcon, statusText = "❚❚", "paused"
	}
	leftText := statusIcon + "  " + statusText
	if icon := m.repeatMode.Icon(); icon != "" {
		leftText += "  " + icon
	}
	volStr := renderVolumePercent(m.volume)
	statusLine := statusStyle.Render(leftText) + spaces(max(w-len(leftText)-len(volStr)-4, 2)) + statusStyle.Render(volStr)

	lines := "\n"
	lines += "  " + headerStyle.Render(appName) + "\n\n"
	lines += "  " + titleStyle.Render(m.title) + "\n"
	if m.subtitle != "" {
		lines += "  " + artistStyle.Render(m.subtitle) + "\n"
	}
	lines += "\n"
	lines += "  " + progressLine + "\n\n"
	lines += m.meter.view(w-2) + "\n\n"
	lines += "  " + statusLine + "\n"
	if m.status != "" {
		lines += "  " + errorStyle.Render(m.status) + "\n"
	}
	lines += "\n"
	lines += "  " + helpStyle.Render(playHelp()) + "\n"
	return lines
}

func windowTitle(title string, paused bool) string {
	if paused {
		return "⏸ " + title + " - " + appName
	}
	return "▶ " + title + " - " + appName
}
