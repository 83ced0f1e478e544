package video

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// EncoderConfig describes one muxing run.
type EncoderConfig struct {
	Output    string // .mp4, .mov, .mkv or .webm
	AudioPath string // WAV muxed alongside the frames
	Width     int
	Height    int
	FPS       int
}

var startEncoder = func(ctx context.Context, name string, args []string) (io.WriteCloser, func() error, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, nil, fmt.Errorf("ffmpeg stdin pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, nil, fmt.Errorf("starting ffmpeg encoder: %w", err)
	}
	wait := func() error {
		if err := cmd.Wait(); err != nil {
			return fmt.Errorf("ffmpeg failed to encode video: %w\n%s", err, strings.TrimSpace(stderr.String()))
		}
		return nil
	}
	return stdin, wait, nil
}

func encoderArgs(cfg EncoderConfig) ([]string, error) {
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.FPS <= 0 {
		return nil, fmt.Errorf("invalid video geometry %dx%d@%d", cfg.Width, cfg.Height, cfg.FPS)
	}
	args := []string{
		"-y",
		"-loglevel", "error",
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"-s", fmt.Sprintf("%dx%d", cfg.Width, cfg.Height),
		"-r", strconv.Itoa(cfg.FPS),
		"-i", "pipe:0",
	}
	if cfg.AudioPath != "" {
		args = append(args, "-i", cfg.AudioPath)
	}

	switch strings.ToLower(filepath.Ext(cfg.Output)) {
	case ".mp4", ".mov", ".mkv":
		args = append(args, "-c:v", "libx264", "-preset", "veryfast", "-pix_fmt", "yuv420p", "-b:v", "5M")
		if cfg.AudioPath != "" {
			args = append(args, "-c:a", "aac", "-b:a", "192k")
		}
	case ".webm":
		args = append(args, "-c:v", "libvpx-vp9", "-b:v", "5M", "-pix_fmt", "yuv420p")
		if cfg.AudioPath != "" {
			args = append(args, "-c:a", "libopus", "-b:a", "192k")
		}
	default:
		return nil, fmt.Errorf("unsupported video container %q (use .mp4, .mov, .mkv or .webm)", filepath.Ext(cfg.Output))
	}
	if cfg.AudioPath != "" {
		args = append(args, "-shortest")
	}
	return append(args, cfg.Output), nil
}

// Encoder pipes raw RGBA frames into an ffmpeg muxer.
type Encoder struct {
	cfg    EncoderConfig
	stdin  io.WriteCloser
	wait   func() error
	cancel context.CancelFunc
	frames int
}

// NewEncoder starts ffmpeg for cfg.
func NewEncoder(ctx context.Context, cfg EncoderConfig) (*Encoder, error) {
	args, err := encoderArgs(cfg)
	if err != nil {
		return nil, err
	}
	ffmpeg, err := ffmpegLookPath("ffmpeg")
	if err != nil {
		return nil, fmt.Errorf("ffmpeg not found (required for video export)")
	}
	ctx, cancel := context.WithCancel(ctx)
	stdin, wait, err := startEncoder(ctx, ffmpeg, args)
	if err != nil {
		cancel()
		return nil, err
	}
	return &Encoder{cfg: cfg, stdin: stdin, wait: wait, cancel: cancel}, nil
}

// WriteFrame appends one frame. Its size must match the configuration.
func (e *Encoder) WriteFrame(img *image.RGBA) error {
	b := img.Bounds()
	if b.Dx() != e.cfg.Width || b.Dy() != e.cfg.Height {
		return fmt.Errorf("frame is %dx%d, encoder expects %dx%d", b.Dx(), b.Dy(), e.cfg.Width, e.cfg.Height)
	}
	rowLen := b.Dx() * 4
	if img.Stride == rowLen {
		if _, err := e.stdin.Write(img.Pix[:rowLen*b.Dy()]); err != nil {
			return fmt.Errorf("writing frame %d: %w", e.frames, err)
		}
	} else {
		for y := 0; y < b.Dy(); y++ {
			off := y * img.Stride
			if _, err := e.stdin.Write(img.Pix[off : off+rowLen]); err != nil {
				return fmt.Errorf("writing frame %d: %w", e.frames, err)
			}
		}
	}
	e.frames++
	return nil
}

// Frames returns how many frames were written.
func (e *Encoder) Frames() int { return e.frames }

// Close flushes the stream and waits for ffmpeg to finish the file.
func (e *Encoder) Close() error {
	defer e.cancel()
	if err := e.stdin.Close(); err != nil {
		_ = e.wait()
		return fmt.Errorf("closing encoder input: %w", err)
	}
	return e.wait()
}

// Abort kills ffmpeg without finishing the file.
func (e *Encoder) Abort() {
	e.cancel()
	_ = e.stdin.Close()
	_ = e.wait()
}
