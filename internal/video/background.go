package video

import (
	"context"
	"fmt"
	"image"
	"io"
	"os/exec"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/olivier-w/beatboy/internal/logging"
)

var (
	ffmpegLookPath = exec.LookPath
	startDecoder   = func(ctx context.Context, name string, args []string) (io.ReadCloser, func() error, error) {
		cmd := exec.CommandContext(ctx, name, args...)
		cmd.Stdin = nil
		stdout, err := cmd.StdoutPipe()
		if err != nil {
			return nil, nil, fmt.Errorf("ffmpeg stdout pipe: %w", err)
		}
		if err := cmd.Start(); err != nil {
			return nil, nil, fmt.Errorf("starting ffmpeg video decode: %w", err)
		}
		return stdout, cmd.Wait, nil
	}
)

// BackgroundSource decodes a looping background video into RGBA frames
// already cover-cropped to the output size. Frames are handed out by
// timeline position, dropping any the clock has passed.
type BackgroundSource struct {
	path          string
	width, height int
	fps           int
	log           logrus.FieldLogger

	mu       sync.Mutex
	stdout   io.ReadCloser
	wait     func() error
	cancel   context.CancelFunc
	closed   bool
	ended    bool
	frame    *image.RGBA
	frameIdx int64 // index of the frame in frame.Pix, -1 before the first read
}

// OpenBackground starts decoding path at width×height and fps.
func OpenBackground(path string, width, height, fps int, log logrus.FieldLogger) (*BackgroundSource, error) {
	if width <= 0 || height <= 0 || fps <= 0 {
		return nil, fmt.Errorf("invalid background geometry %dx%d@%d", width, height, fps)
	}
	s := &BackgroundSource{
		path:     path,
		width:    width,
		height:   height,
		fps:      fps,
		log:      logging.OrDiscard(log),
		frame:    image.NewRGBA(image.Rect(0, 0, width, height)),
		frameIdx: -1,
	}
	if err := s.startDecode(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *BackgroundSource) decodeArgs() []string {
	return []string{
		"-v", "quiet",
		"-stream_loop", "-1",
		"-i", s.path,
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"-vf", fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=increase,crop=%d:%d,fps=%d",
			s.width, s.height, s.width, s.height, s.fps),
		"-an",
		"pipe:1",
	}
}

func (s *BackgroundSource) startDecode() error {
	ffmpeg, err := ffmpegLookPath("ffmpeg")
	if err != nil {
		return fmt.Errorf("ffmpeg not found (required for video backgrounds)")
	}
	ctx, cancel := context.WithCancel(context.Background())
	stdout, wait, err := startDecoder(ctx, ffmpeg, s.decodeArgs())
	if err != nil {
		cancel()
		return err
	}
	s.stdout = stdout
	s.wait = wait
	s.cancel = cancel
	return nil
}

func (s *BackgroundSource) stopDecode() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	if s.wait != nil {
		_ = s.wait()
		s.wait = nil
	}
	s.stdout = nil
}

func (s *BackgroundSource) readNextFrame() bool {
	if s.stdout == nil || s.ended {
		return false
	}
	if _, err := io.ReadFull(s.stdout, s.frame.Pix); err != nil {
		s.ended = true
		s.log.WithFields(logrus.Fields{
			"function": "BackgroundSource.readNextFrame",
			"path":     s.path,
			"frame":    s.frameIdx,
			"error":    err.Error(),
		}).Warn("Background video ended, holding last frame")
		return false
	}
	s.frameIdx++
	return true
}

// FrameAt returns the frame for elapsedMs, blocking while ffmpeg catches
// up. The returned image is reused by the next call. It reports false
// until the first frame has been decoded.
func (s *BackgroundSource) FrameAt(elapsedMs float64) (image.Image, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, false
	}
	if elapsedMs < 0 {
		elapsedMs = 0
	}
	target := int64(elapsedMs / 1000 * float64(s.fps))
	for s.frameIdx < target {
		if !s.readNextFrame() {
			break
		}
	}
	if s.frameIdx < 0 {
		return nil, false
	}
	return s.frame, true
}

// Close stops the decoder.
func (s *BackgroundSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.stopDecode()
	return nil
}
