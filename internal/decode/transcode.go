package decode

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/olivier-w/beatboy/internal/audio"
)

var (
	ffmpegLookPath = exec.LookPath
	ffmpegRun      = func(name string, args ...string) ([]byte, error) {
		cmd := exec.Command(name, args...)
		cmd.Stdin = nil
		return cmd.CombinedOutput()
	}
	mkdirTemp = os.MkdirTemp
	removeAll = os.RemoveAll
	sleep     = time.Sleep
)

// NeedsTranscode reports whether files with this name can only be decoded
// through ffmpeg.
func NeedsTranscode(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".aac", ".m4a", ".m4b", ".mp4":
		return true
	default:
		return false
	}
}

// decodeViaFFmpeg writes data to a scratch dir, converts it to WAV with
// ffmpeg and decodes the result.
func decodeViaFFmpeg(data []byte, nameHint string) (*audio.SampleBuffer, error) {
	ffmpeg, err := ffmpegLookPath("ffmpeg")
	if err != nil {
		return nil, fmt.Errorf("ffmpeg not found (required for .aac/.m4a/.m4b input)")
	}

	tmpDir, err := mkdirTemp("", "beatboy-*")
	if err != nil {
		return nil, fmt.Errorf("creating temp dir: %w", err)
	}
	defer cleanupTempDirWithRetry(tmpDir)

	ext := strings.ToLower(filepath.Ext(nameHint))
	if ext == "" {
		ext = ".m4a"
	}
	inPath := filepath.Join(tmpDir, "input"+ext)
	if err := os.WriteFile(inPath, data, 0o644); err != nil {
		return nil, fmt.Errorf("writing temp input: %w", err)
	}

	outPath := filepath.Join(tmpDir, "audio.wav")
	output, err := ffmpegRun(ffmpeg, "-y", "-loglevel", "error", "-i", inPath, "-vn", "-c:a", "pcm_s16le", outPath)
	if err != nil {
		msg := strings.TrimSpace(string(output))
		if msg == "" {
			return nil, fmt.Errorf("ffmpeg failed to decode audio: %w", err)
		}
		return nil, fmt.Errorf("ffmpeg failed to decode audio: %w\n%s", err, msg)
	}

	wavData, err := os.ReadFile(outPath)
	if err != nil {
		return nil, fmt.Errorf("reading transcoded audio: %w", err)
	}
	return decodeWAV(bytes.NewReader(wavData))
}

func cleanupTempDirWithRetry(dir string) {
	for attempt := 0; attempt < 5; attempt++ {
		if err := removeAll(dir); err == nil || attempt >= 4 {
			return
		}
		sleep(75 * time.Millisecond)
	}
}
