package player

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bogem/id3v2/v2"

	"github.com/olivier-w/beatboy/internal/audio"
)

type fakeSink struct {
	playing bool
	volume  float64
	plays   int
}

func (s *fakeSink) Play()               { s.playing = true; s.plays++ }
func (s *fakeSink) Pause()              { s.playing = false }
func (s *fakeSink) SetVolume(v float64) { s.volume = v }

// stubSinks replaces the device with fake sinks and returns every sink
// opened, newest last.
func stubSinks(t *testing.T) *[]*fakeSink {
	t.Helper()
	oldSink, oldPoll := newSink, pollInterval
	t.Cleanup(func() { newSink, pollInterval = oldSink, oldPoll })

	var sinks []*fakeSink
	pollInterval = 5 * time.Millisecond
	newSink = func(int, io.Reader) (sink, error) {
		s := &fakeSink{}
		sinks = append(sinks, s)
		return s, nil
	}
	return &sinks
}

func testBuffer(rate int, seconds float64) *audio.SampleBuffer {
	n := int(float64(rate) * seconds)
	buf := audio.NewSampleBuffer(rate, 1, n)
	for i := range buf.Channels[0] {
		buf.Channels[0][i] = 0.25
	}
	return buf
}

func TestClampSeekByteOffsetClampsAndAligns(t *testing.T) {
	got := clampSeekByteOffset(3900*time.Millisecond, 10, 10, 4)
	if got != 8 {
		t.Fatalf("expected clamped aligned seek offset 8, got %d", got)
	}

	got = clampSeekByteOffset(-1*time.Second, 10, 100, 4)
	if got != 0 {
		t.Fatalf("expected negative seek to clamp to 0, got %d", got)
	}

	got = clampSeekByteOffset(3900*time.Millisecond, 10, 100, 4)
	if got != 36 {
		t.Fatalf("expected 39 aligned down to 36, got %d", got)
	}
}

func TestNewStartsPlayback(t *testing.T) {
	sinks := stubSinks(t)

	p, err := New(testBuffer(1000, 2), nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer p.Close()

	if len(*sinks) != 1 || !(*sinks)[0].playing {
		t.Fatal("expected playback to start on a single sink")
	}
	if (*sinks)[0].volume != 0.8 {
		t.Fatalf("expected default volume 0.8, got %v", (*sinks)[0].volume)
	}
	if p.Duration() != 2*time.Second {
		t.Fatalf("expected 2s duration, got %v", p.Duration())
	}
}

func TestNewRejectsEmptyBuffer(t *testing.T) {
	stubSinks(t)
	if _, err := New(audio.NewSampleBuffer(44100, 2, 0), nil); !errors.Is(err, audio.ErrEmptyBuffer) {
		t.Fatalf("expected ErrEmptyBuffer, got %v", err)
	}
}

func TestPauseSetsPausedWithoutToggle(t *testing.T) {
	sinks := stubSinks(t)
	p, err := New(testBuffer(1000, 1), nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer p.Close()

	p.Pause()
	p.Pause()
	if !p.Paused() || (*sinks)[0].playing {
		t.Fatal("expected pause to stop the sink")
	}
	p.TogglePause()
	if p.Paused() || !(*sinks)[0].playing {
		t.Fatal("expected toggle to resume")
	}
}

func TestSeekToClampsAndKeepsPausedState(t *testing.T) {
	sinks := stubSinks(t)
	p, err := New(testBuffer(1000, 2), nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer p.Close()

	p.Pause()
	if err := p.SeekTo(1500 * time.Millisecond); err != nil {
		t.Fatalf("SeekTo() error = %v", err)
	}
	if got := p.Position(); got != 1500*time.Millisecond {
		t.Fatalf("expected position 1.5s, got %v", got)
	}
	if len(*sinks) != 2 || (*sinks)[1].playing {
		t.Fatal("expected a fresh paused sink after seeking while paused")
	}

	if err := p.Seek(10 * time.Second); err != nil {
		t.Fatalf("Seek() error = %v", err)
	}
	if got := p.Position(); got != 2*time.Second {
		t.Fatalf("expected seek to clamp at the end, got %v", got)
	}
	if err := p.Seek(-5 * time.Second); err != nil {
		t.Fatalf("Seek() error = %v", err)
	}
	if got := p.Position(); got != 0 {
		t.Fatalf("expected seek to clamp at zero, got %v", got)
	}
}

func TestVolumeClamps(t *testing.T) {
	sinks := stubSinks(t)
	p, err := New(testBuffer(1000, 1), nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer p.Close()

	p.AdjustVolume(0.5)
	if p.Volume() != 1 || (*sinks)[0].volume != 1 {
		t.Fatalf("expected volume clamped to 1, got %v", p.Volume())
	}
	p.SetVolume(-3)
	if p.Volume() != 0 {
		t.Fatalf("expected volume clamped to 0, got %v", p.Volume())
	}
}

func TestDoneAfterTrackIsConsumed(t *testing.T) {
	stubSinks(t)
	p, err := New(testBuffer(1000, 0.1), nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer p.Close()

	// The fake device never reads, so drain the stream here.
	if _, err := io.Copy(io.Discard, p.counter); err != nil {
		t.Fatalf("drain error = %v", err)
	}
	select {
	case <-p.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("expected Done after the track was consumed")
	}

	samples := p.Recent(8)
	if len(samples) != 8 || samples[0] != audio.FloatToPCM16(0.25) {
		t.Fatalf("expected tapped samples, got %v", samples)
	}

	if err := p.Restart(); err != nil {
		t.Fatalf("Restart() error = %v", err)
	}
	if p.Position() != 0 || len(p.Recent(8)) != 0 {
		t.Fatal("expected restart to rewind and clear the tap")
	}
	select {
	case <-p.Done():
		t.Fatal("expected a fresh Done channel after restart")
	default:
	}
}

func TestSampleRingKeepsNewest(t *testing.T) {
	r := newSampleRing(3)
	r.Write([]byte{1, 0, 2, 0, 3})
	r.Write([]byte{0, 4, 0})
	got := r.Recent(10)
	want := []int16{2, 3, 4}
	if len(got) != len(want) {
		t.Fatalf("Recent() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Recent() = %v, want %v", got, want)
		}
	}
	r.Clear()
	if r.Recent(1) != nil {
		t.Fatal("expected empty ring after Clear")
	}
}

func TestReadMetadata(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "Night Drive.mp3")
	tag := id3v2.NewEmptyTag()
	tag.SetTitle("Night Drive")
	tag.SetArtist("Beatboy")
	tag.SetYear("2024")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := tag.WriteTo(f); err != nil {
		t.Fatalf("write tag: %v", err)
	}
	f.Close()

	m := ReadMetadata(path)
	if m.Title != "Night Drive" || m.Artist != "Beatboy" || m.Year != "2024" {
		t.Fatalf("unexpected metadata %+v", m)
	}

	plain := filepath.Join(dir, "untagged beat.wav")
	if err := os.WriteFile(plain, []byte("RIFF"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if m := ReadMetadata(plain); m.Title != "untagged beat" || m.Artist != "" {
		t.Fatalf("expected file name fallback, got %+v", m)
	}
}
