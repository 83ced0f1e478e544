package video

import (
	"bytes"
	"context"
	"errors"
	"image"
	"io"
	"strings"
	"testing"
)

type captureWriter struct {
	bytes.Buffer
	closed bool
}

func (w *captureWriter) Close() error {
	w.closed = true
	return nil
}

func stubEncoderDeps(t *testing.T) (*captureWriter, *[]string) {
	t.Helper()
	oldLook, oldStart := ffmpegLookPath, startEncoder
	t.Cleanup(func() { ffmpegLookPath, startEncoder = oldLook, oldStart })

	w := &captureWriter{}
	var args []string
	ffmpegLookPath = func(string) (string, error) { return "ffmpeg", nil }
	startEncoder = func(_ context.Context, _ string, a []string) (io.WriteCloser, func() error, error) {
		args = a
		return w, func() error { return nil }, nil
	}
	return w, &args
}

func indexOf(args []string, v string) int {
	for i, a := range args {
		if a == v {
			return i
		}
	}
	return -1
}

func TestEncoderArgs(t *testing.T) {
	args, err := encoderArgs(EncoderConfig{Output: "out.MP4", AudioPath: "a.wav", Width: 1920, Height: 1080, FPS: 30})
	if err != nil {
		t.Fatalf("encoderArgs() error = %v", err)
	}
	joined := strings.Join(args, " ")
	for _, want := range []string{"-s 1920x1080", "-r 30", "-i pipe:0", "-i a.wav", "-c:v libx264", "-c:a aac", "-shortest"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("expected %q in %q", want, joined)
		}
	}
	if args[len(args)-1] != "out.MP4" {
		t.Fatalf("expected output last, got %q", args[len(args)-1])
	}

	args, err = encoderArgs(EncoderConfig{Output: "out.webm", Width: 2, Height: 2, FPS: 30})
	if err != nil {
		t.Fatalf("encoderArgs() error = %v", err)
	}
	if indexOf(args, "libvpx-vp9") < 0 || indexOf(args, "-shortest") >= 0 || indexOf(args, "libopus") >= 0 {
		t.Fatalf("unexpected webm args without audio: %v", args)
	}

	if _, err := encoderArgs(EncoderConfig{Output: "out.gif", Width: 2, Height: 2, FPS: 30}); err == nil {
		t.Fatal("expected unsupported container error")
	}
	if _, err := encoderArgs(EncoderConfig{Output: "out.mp4", Width: 0, Height: 2, FPS: 30}); err == nil {
		t.Fatal("expected geometry error")
	}
}

func TestEncoderWritesFrames(t *testing.T) {
	w, _ := stubEncoderDeps(t)

	enc, err := NewEncoder(context.Background(), EncoderConfig{Output: "out.mp4", Width: 2, Height: 2, FPS: 30})
	if err != nil {
		t.Fatalf("NewEncoder() error = %v", err)
	}
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	for i := range img.Pix {
		img.Pix[i] = byte(i)
	}
	if err := enc.WriteFrame(img); err != nil {
		t.Fatalf("WriteFrame() error = %v", err)
	}

	// A sub-image has a wider stride than its rows.
	big := image.NewRGBA(image.Rect(0, 0, 4, 2))
	copy(big.Pix[0:8], img.Pix[0:8])
	copy(big.Pix[16:24], img.Pix[8:16])
	if err := enc.WriteFrame(big.SubImage(image.Rect(0, 0, 2, 2)).(*image.RGBA)); err != nil {
		t.Fatalf("WriteFrame(sub-image) error = %v", err)
	}
	if err := enc.WriteFrame(image.NewRGBA(image.Rect(0, 0, 3, 2))); err == nil {
		t.Fatal("expected size mismatch error")
	}
	if enc.Frames() != 2 {
		t.Fatalf("expected 2 frames, got %d", enc.Frames())
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if !w.closed {
		t.Fatal("expected encoder stdin closed")
	}
	got := w.Bytes()
	if len(got) != 32 || !bytes.Equal(got[:16], img.Pix) || !bytes.Equal(got[16:], img.Pix) {
		t.Fatalf("unexpected frame bytes %v", got)
	}
}

func TestEncoderMissingFFmpeg(t *testing.T) {
	stubEncoderDeps(t)
	ffmpegLookPath = func(string) (string, error) { return "", errors.New("missing") }
	_, err := NewEncoder(context.Background(), EncoderConfig{Output: "out.mp4", Width: 2, Height: 2, FPS: 30})
	if err == nil || !strings.Contains(err.Error(), "ffmpeg not found") {
		t.Fatalf("expected ffmpeg not found, got %v", err)
	}
}
