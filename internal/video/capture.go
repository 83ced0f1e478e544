package video

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/olivier-w/beatboy/internal/audio"
	"github.com/olivier-w/beatboy/internal/compositor"
	"github.com/olivier-w/beatboy/internal/downloader"
	"github.com/olivier-w/beatboy/internal/logging"
	"github.com/olivier-w/beatboy/internal/wavenc"
)

// DefaultFPS is the capture frame rate.
const DefaultFPS = 30

var (
	mkdirTemp = os.MkdirTemp
	removeAll = os.RemoveAll
)

// CaptureConfig describes one video export.
type CaptureConfig struct {
	Audio    *audio.SampleBuffer // rendered track
	Settings compositor.VideoSettings
	Assets   *compositor.AssetCache
	Output   string
	FPS      int
	Seed     int64
	Logger   logrus.FieldLogger
	OnFrame  func(done, total int)
}

// CaptureDuration returns how many seconds of video to render: the
// configured duration capped at the audio length, or the whole track
// when no duration is configured.
func CaptureDuration(configured, audioSeconds float64) float64 {
	if configured <= 0 || configured > audioSeconds {
		return audioSeconds
	}
	return configured
}

// FrameCount returns the number of frames covering seconds at fps.
func FrameCount(seconds float64, fps int) int {
	if seconds <= 0 || fps <= 0 {
		return 0
	}
	return int(math.Ceil(seconds*float64(fps) - 1e-9))
}

// Capture renders the frames for cfg and muxes them with the audio into
// cfg.Output. Cancellation is checked between frames.
func Capture(ctx context.Context, cfg CaptureConfig) error {
	log := logging.OrDiscard(cfg.Logger)
	if err := cfg.Audio.Validate(); err != nil {
		return fmt.Errorf("capture audio: %w", err)
	}
	fps := cfg.FPS
	if fps <= 0 {
		fps = DefaultFPS
	}
	settings := cfg.Settings
	settings.IsGenerating = true
	width, height := settings.Dimensions()
	seconds := CaptureDuration(settings.VideoDuration, cfg.Audio.Duration())
	total := FrameCount(seconds, fps)
	if total == 0 {
		return errors.New("nothing to capture: zero-length audio")
	}

	start := time.Now()
	log.WithFields(logrus.Fields{
		"function":   "Capture",
		"output":     cfg.Output,
		"width":      width,
		"height":     height,
		"frames":     total,
		"visualizer": settings.Visualizer,
		"grade":      settings.ColorGrade,
	}).Info("Starting video capture")

	tmpDir, err := mkdirTemp("", "beatboy-capture-*")
	if err != nil {
		return fmt.Errorf("creating temp dir: %w", err)
	}
	defer func() { _ = removeAll(tmpDir) }()

	audioPath := filepath.Join(tmpDir, "audio.wav")
	if err := wavenc.WriteFile(audioPath, trimAudio(cfg.Audio, seconds)); err != nil {
		return fmt.Errorf("writing capture audio: %w", err)
	}

	opts := []compositor.Option{
		compositor.WithRand(rand.New(rand.NewSource(cfg.Seed))),
		compositor.WithLogger(log),
	}
	if cfg.Assets != nil {
		if err := cfg.Assets.Preload(settings.ArtworkURL, settings.LogoURL, imageBackground(settings)); err != nil {
			log.WithFields(logrus.Fields{
				"function": "Capture",
				"error":    err.Error(),
			}).Warn("Some assets failed to load and will be skipped")
		}
		opts = append(opts, compositor.WithAssets(cfg.Assets))
	}
	if settings.BackgroundType == compositor.BackgroundVideo && settings.BackgroundURL != "" {
		bgPath, err := downloader.LocalPath(ctx, settings.BackgroundURL, tmpDir, log)
		if err != nil {
			return fmt.Errorf("background video: %w", err)
		}
		if _, err := probeBackground(ctx, bgPath, log); err != nil {
			return err
		}
		bg, err := OpenBackground(bgPath, width, height, fps, log)
		if err != nil {
			return err
		}
		defer bg.Close()
		opts = append(opts, compositor.WithFrameSource(bg))
	}

	comp, err := compositor.New(settings, opts...)
	if err != nil {
		return err
	}
	analyser, err := compositor.NewAnalyser(cfg.Audio)
	if err != nil {
		return err
	}

	enc, err := NewEncoder(ctx, EncoderConfig{
		Output:    cfg.Output,
		AudioPath: audioPath,
		Width:     width,
		Height:    height,
		FPS:       fps,
	})
	if err != nil {
		return err
	}

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	freq := make([]byte, compositor.BinCount)
	wave := make([]byte, compositor.BinCount)
	for i := 0; i < total; i++ {
		if err := ctx.Err(); err != nil {
			enc.Abort()
			_ = os.Remove(cfg.Output)
			return err
		}
		elapsed := float64(i) * 1000 / float64(fps)
		analyser.ByteFrequencyData(freq, elapsed)
		analyser.ByteTimeDomainData(wave, elapsed)
		comp.DrawFrame(dst, elapsed, freq, wave)
		if err := enc.WriteFrame(dst); err != nil {
			enc.Abort()
			return err
		}
		if cfg.OnFrame != nil {
			cfg.OnFrame(i+1, total)
		}
	}
	if err := enc.Close(); err != nil {
		return err
	}

	log.WithFields(logrus.Fields{
		"function": "Capture",
		"output":   cfg.Output,
		"frames":   total,
		"elapsed":  time.Since(start).String(),
	}).Info("Video capture finished")
	return nil
}

func imageBackground(s compositor.VideoSettings) string {
	if s.BackgroundType == compositor.BackgroundImage {
		return s.BackgroundURL
	}
	return ""
}

// trimAudio returns buf cut to seconds, or buf itself when it is shorter.
func trimAudio(buf *audio.SampleBuffer, seconds float64) *audio.SampleBuffer {
	n := int(math.Round(seconds * float64(buf.SampleRate)))
	if n >= buf.Len() {
		return buf
	}
	out := &audio.SampleBuffer{SampleRate: buf.SampleRate, Channels: make([][]float64, len(buf.Channels))}
	for ch, data := range buf.Channels {
		out.Channels[ch] = data[:n]
	}
	return out
}
