package video

import (
	"context"
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/olivier-w/beatboy/internal/audio"
	"github.com/olivier-w/beatboy/internal/compositor"
)

func toneBuffer(rate int, seconds float64) *audio.SampleBuffer {
	n := int(float64(rate) * seconds)
	buf := audio.NewSampleBuffer(rate, 2, n)
	for i := 0; i < n; i++ {
		v := 0.5 * math.Sin(2*math.Pi*440*float64(i)/float64(rate))
		buf.Channels[0][i] = v
		buf.Channels[1][i] = v
	}
	return buf
}

func smallSettings() compositor.VideoSettings {
	s := compositor.DefaultVideoSettings()
	s.Visualizer = compositor.VisualizerBars
	s.Overlays = nil
	return s
}

type captureStubs struct {
	tmpDir    string
	frames    *captureWriter
	audioSeen bool
	aborted   bool
}

func stubCaptureDeps(t *testing.T) *captureStubs {
	t.Helper()
	oldLook, oldStart := ffmpegLookPath, startEncoder
	oldMkdir, oldRemove := mkdirTemp, removeAll
	t.Cleanup(func() {
		ffmpegLookPath, startEncoder = oldLook, oldStart
		mkdirTemp, removeAll = oldMkdir, oldRemove
	})

	st := &captureStubs{
		tmpDir: filepath.Join(t.TempDir(), "capture"),
		frames: &captureWriter{},
	}
	ffmpegLookPath = func(string) (string, error) { return "ffmpeg", nil }
	mkdirTemp = func(string, string) (string, error) {
		return st.tmpDir, os.MkdirAll(st.tmpDir, 0o755)
	}
	startEncoder = func(ctx context.Context, _ string, args []string) (io.WriteCloser, func() error, error) {
		if i := indexOf(args, "pipe:0"); i >= 0 && i+2 < len(args) && args[i+1] == "-i" {
			if _, err := os.Stat(args[i+2]); err == nil {
				st.audioSeen = true
			}
		}
		wait := func() error {
			if ctx.Err() != nil {
				st.aborted = true
			}
			return nil
		}
		return st.frames, wait, nil
	}
	return st
}

func TestCaptureDuration(t *testing.T) {
	tests := []struct {
		configured, audio, want float64
	}{
		{0, 12, 12},
		{-1, 12, 12},
		{5, 12, 5},
		{30, 12, 12},
	}
	for _, tt := range tests {
		if got := CaptureDuration(tt.configured, tt.audio); got != tt.want {
			t.Fatalf("CaptureDuration(%v, %v) = %v, want %v", tt.configured, tt.audio, got, tt.want)
		}
	}
}

func TestFrameCount(t *testing.T) {
	if got := FrameCount(2, 30); got != 60 {
		t.Fatalf("FrameCount(2, 30) = %d", got)
	}
	if got := FrameCount(0.1, 30); got != 3 {
		t.Fatalf("FrameCount(0.1, 30) = %d", got)
	}
	if got := FrameCount(0.11, 30); got != 4 {
		t.Fatalf("FrameCount(0.11, 30) = %d", got)
	}
	if got := FrameCount(0, 30); got != 0 {
		t.Fatalf("FrameCount(0, 30) = %d", got)
	}
}

func TestTrimAudio(t *testing.T) {
	buf := toneBuffer(1000, 1)
	if got := trimAudio(buf, 2); got != buf {
		t.Fatal("expected a shorter track to be returned as is")
	}
	cut := trimAudio(buf, 0.25)
	if cut.Len() != 250 || cut.NumChannels() != 2 || cut.SampleRate != 1000 {
		t.Fatalf("unexpected trimmed buffer %dx%d@%d", cut.NumChannels(), cut.Len(), cut.SampleRate)
	}
}

func TestCaptureWritesEveryFrame(t *testing.T) {
	st := stubCaptureDeps(t)

	settings := smallSettings()
	settings.VideoDuration = 0.1
	var progress []int
	err := Capture(context.Background(), CaptureConfig{
		Audio:    toneBuffer(8000, 0.5),
		Settings: settings,
		Output:   filepath.Join(t.TempDir(), "out.mp4"),
		OnFrame:  func(done, total int) { progress = append(progress, done*10+total) },
	})
	if err != nil {
		t.Fatalf("Capture() error = %v", err)
	}
	if got, want := st.frames.Len(), 3*1920*1080*4; got != want {
		t.Fatalf("expected %d frame bytes, got %d", want, got)
	}
	if !st.audioSeen {
		t.Fatal("expected the rendered audio to exist when the encoder starts")
	}
	if len(progress) != 3 || progress[0] != 13 || progress[2] != 33 {
		t.Fatalf("unexpected progress %v", progress)
	}
	if _, err := os.Stat(st.tmpDir); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected temp dir removed, stat err = %v", err)
	}
}

func TestCapturePortraitFrames(t *testing.T) {
	st := stubCaptureDeps(t)

	settings := smallSettings()
	settings.AspectRatio = compositor.AspectPortrait
	err := Capture(context.Background(), CaptureConfig{
		Audio:    toneBuffer(8000, 1.0/30),
		Settings: settings,
		Output:   filepath.Join(t.TempDir(), "out.webm"),
	})
	if err != nil {
		t.Fatalf("Capture() error = %v", err)
	}
	if got, want := st.frames.Len(), 1080*1920*4; got != want {
		t.Fatalf("expected one portrait frame (%d bytes), got %d", want, got)
	}
}

func TestCaptureCancelled(t *testing.T) {
	st := stubCaptureDeps(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Capture(ctx, CaptureConfig{
		Audio:    toneBuffer(8000, 0.5),
		Settings: smallSettings(),
		Output:   filepath.Join(t.TempDir(), "out.mp4"),
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if st.frames.Len() != 0 {
		t.Fatalf("expected no frames after cancel, got %d bytes", st.frames.Len())
	}
	if !st.aborted || !st.frames.closed {
		t.Fatal("expected the encoder to be aborted")
	}
}

func TestCaptureRejectsEmptyAudio(t *testing.T) {
	stubCaptureDeps(t)
	err := Capture(context.Background(), CaptureConfig{
		Audio:    audio.NewSampleBuffer(8000, 2, 0),
		Settings: smallSettings(),
		Output:   "out.mp4",
	})
	if err == nil {
		t.Fatal("expected error for empty audio")
	}
}

func TestCaptureRejectsBackgroundWithoutVideo(t *testing.T) {
	st := stubCaptureDeps(t)
	stubProbe(t, `{"streams":[],"format":{"duration":"40"}}`)

	settings := smallSettings()
	settings.BackgroundType = compositor.BackgroundVideo
	settings.BackgroundURL = "beat.mp3"
	err := Capture(context.Background(), CaptureConfig{
		Audio:    toneBuffer(8000, 0.1),
		Settings: settings,
		Output:   filepath.Join(t.TempDir(), "out.mp4"),
	})
	if !errors.Is(err, ErrNoVideoStream) {
		t.Fatalf("expected ErrNoVideoStream, got %v", err)
	}
	if st.frames.Len() != 0 {
		t.Fatalf("expected no frames encoded, got %d bytes", st.frames.Len())
	}
}

func TestCaptureProbesBackgroundVideo(t *testing.T) {
	st := stubCaptureDeps(t)
	paths := stubProbe(t, loopClipJSON)
	stubDecoder(t, nil)

	settings := smallSettings()
	settings.BackgroundType = compositor.BackgroundVideo
	settings.BackgroundURL = "loop.mp4"
	err := Capture(context.Background(), CaptureConfig{
		Audio:    toneBuffer(8000, 1.0/30),
		Settings: settings,
		Output:   filepath.Join(t.TempDir(), "out.mp4"),
	})
	if err != nil {
		t.Fatalf("Capture() error = %v", err)
	}
	if len(*paths) != 1 || (*paths)[0] != "loop.mp4" {
		t.Fatalf("expected the background to be probed, got %v", *paths)
	}
	if got, want := st.frames.Len(), 1920*1080*4; got != want {
		t.Fatalf("expected one frame (%d bytes), got %d", want, got)
	}
}
