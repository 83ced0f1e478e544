package ui

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

type fakePlayback struct {
	paused   bool
	pos      time.Duration
	dur      time.Duration
	volume   float64
	samples  []int16
	done     chan struct{}
	restarts int
	closed   int
	seekErr  error
}

func newFakePlayback() *fakePlayback {
	return &fakePlayback{dur: time.Minute, volume: 0.8, done: make(chan struct{})}
}

func (f *fakePlayback) TogglePause()            { f.paused = !f.paused }
func (f *fakePlayback) Paused() bool            { return f.paused }
func (f *fakePlayback) Position() time.Duration { return f.pos }
func (f *fakePlayback) Duration() time.Duration { return f.dur }
func (f *fakePlayback) Volume() float64         { return f.volume }
func (f *fakePlayback) Recent(int) []int16      { return f.samples }
func (f *fakePlayback) Done() <-chan struct{}   { return f.done }
func (f *fakePlayback) Close()                  { f.closed++ }

func (f *fakePlayback) Seek(d time.Duration) error {
	if f.seekErr != nil {
		return f.seekErr
	}
	f.pos = min(max(f.pos+d, 0), f.dur)
	return nil
}

func (f *fakePlayback) AdjustVolume(d float64) { f.volume = min(max(f.volume+d, 0), 1) }

func (f *fakePlayback) Restart() error {
	f.restarts++
	f.pos = 0
	f.done = make(chan struct{})
	return nil
}

func key(s string) tea.KeyMsg {
	switch s {
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func step(t *testing.T, m PlayModel, msg tea.Msg) (PlayModel, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	pm, ok := next.(PlayModel)
	if !ok {
		t.Fatalf("Update returned %T", next)
	}
	return pm, cmd
}

func TestPlayKeys(t *testing.T) {
	p := newFakePlayback()
	m := NewPlay(p, "NIGHT DRIVE", "", nil)

	m, _ = step(t, m, key(" "))
	if !m.paused || !p.paused {
		t.Fatal("expected space to pause")
	}
	m, _ = step(t, m, key("right"))
	m, _ = step(t, m, key("right"))
	m, _ = step(t, m, key("left"))
	if p.pos != 5*time.Second || m.elapsed != 5*time.Second {
		t.Fatalf("expected position 5s, got %v / %v", p.pos, m.elapsed)
	}
	m, _ = step(t, m, key("+"))
	m, _ = step(t, m, key("+"))
	if m.volume < 0.899 || m.volume > 0.901 {
		t.Fatalf("expected volume 0.9, got %v", m.volume)
	}
	m, _ = step(t, m, key("-"))
	if m.volume < 0.849 || m.volume > 0.851 {
		t.Fatalf("expected volume 0.85, got %v", m.volume)
	}
	m, _ = step(t, m, key("r"))
	if m.repeatMode != RepeatOne {
		t.Fatal("expected r to enable repeat")
	}

	m, cmd := step(t, m, key("q"))
	if !m.quitting || p.closed != 1 || cmd == nil {
		t.Fatal("expected q to close the player and quit")
	}
	if m.View() != "" {
		t.Fatal("expected empty view after quitting")
	}
}

func TestPlaySeekFailureShowsStatus(t *testing.T) {
	p := newFakePlayback()
	p.seekErr = errors.New("device gone")
	m := NewPlay(p, "T", "", nil)
	m, _ = step(t, m, key("right"))
	if !strings.Contains(m.View(), "Seek failed: device gone") {
		t.Fatalf("expected seek failure in view, got %q", m.View())
	}
}

func TestPlayTickDrivesMeter(t *testing.T) {
	p := newFakePlayback()
	p.pos = 12 * time.Second
	p.samples = make([]int16, 512)
	for i := range p.samples {
		p.samples[i] = 20000
	}
	m := NewPlay(p, "T", "", nil)
	for i := 0; i < 20; i++ {
		m, _ = step(t, m, tickMsg(time.Now()))
	}
	if m.elapsed != 12*time.Second {
		t.Fatalf("expected elapsed from player, got %v", m.elapsed)
	}
	if m.meter.level(0) < 0.5 || m.meter.level(1) < 0.5 {
		t.Fatalf("expected loud meter, got %v %v", m.meter.level(0), m.meter.level(1))
	}

	p.paused = true
	for i := 0; i < 60; i++ {
		m, _ = step(t, m, tickMsg(time.Now()))
	}
	if m.meter.level(0) > 0.05 {
		t.Fatalf("expected meter to fall while paused, got %v", m.meter.level(0))
	}
}

func TestPlaybackEndedRepeats(t *testing.T) {
	p := newFakePlayback()
	m := NewPlay(p, "T", "", nil)
	m.repeatMode = RepeatOne
	m, cmd := step(t, m, playbackEndedMsg{})
	if p.restarts != 1 || m.quitting || cmd == nil {
		t.Fatal("expected repeat to restart playback")
	}

	m.repeatMode = RepeatOff
	m, _ = step(t, m, playbackEndedMsg{})
	if !m.quitting || p.closed != 1 || m.elapsed != p.dur {
		t.Fatal("expected the end of the track to quit")
	}
}

func TestPlayView(t *testing.T) {
	p := newFakePlayback()
	p.pos = 65 * time.Second
	p.dur = 3 * time.Minute
	m := NewPlay(p, "NIGHT DRIVE", "Beatboy", nil)
	m, _ = step(t, m, tea.WindowSizeMsg{Width: 80, Height: 24})
	m, _ = step(t, m, tickMsg(time.Now()))

	view := m.View()
	for _, want := range []string{appName, "NIGHT DRIVE", "Beatboy", "1:05", "3:00", "vol 80%", " L  ", " R  ", "playing"} {
		if !strings.Contains(view, want) {
			t.Fatalf("expected %q in view:\n%s", want, view)
		}
	}
}
