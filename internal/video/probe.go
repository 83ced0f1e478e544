package video

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/olivier-w/beatboy/internal/logging"
)

// ErrNoVideoStream marks a background ref that has nothing to loop.
var ErrNoVideoStream = errors.New("no video stream")

const (
	probeTimeout = 10 * time.Second
	fallbackFPS  = 24
)

// MediaInfo is what ffprobe reports about a background clip.
type MediaInfo struct {
	Width    int
	Height   int
	FPS      float64
	Duration time.Duration
	HasVideo bool
}

type probeStream struct {
	CodecType    string `json:"codec_type"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	AvgFrameRate string `json:"avg_frame_rate"`
	RFrameRate   string `json:"r_frame_rate"`
}

type probeOutput struct {
	Streams []probeStream `json:"streams"`
	Format  struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

var (
	ffprobeLookPath = exec.LookPath
	runFFprobe      = func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return exec.CommandContext(ctx, name, args...).Output()
	}
)

// ProbeMedia asks ffprobe for the first video stream of path. Files with
// only audio come back with HasVideo unset.
func ProbeMedia(ctx context.Context, path string) (MediaInfo, error) {
	bin, err := ffprobeLookPath("ffprobe")
	if err != nil {
		return MediaInfo{}, errors.New("ffprobe not found in PATH")
	}
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	raw, err := runFFprobe(ctx, bin,
		"-v", "quiet",
		"-print_format", "json",
		"-show_entries", "stream=codec_type,width,height,avg_frame_rate,r_frame_rate:format=duration",
		"-select_streams", "v:0",
		path,
	)
	if err != nil {
		return MediaInfo{}, fmt.Errorf("ffprobe %s: %w", filepath.Base(path), err)
	}
	return parseMediaInfo(raw)
}

func parseMediaInfo(raw []byte) (MediaInfo, error) {
	var out probeOutput
	if err := json.Unmarshal(raw, &out); err != nil {
		return MediaInfo{}, fmt.Errorf("decoding ffprobe json: %w", err)
	}
	secs, _ := strconv.ParseFloat(out.Format.Duration, 64)
	info := MediaInfo{Duration: time.Duration(secs * float64(time.Second))}

	for _, s := range out.Streams {
		if s.CodecType == "video" {
			info.HasVideo = true
			info.Width, info.Height = s.Width, s.Height
			info.FPS = streamRate(s)
			break
		}
	}
	return info, nil
}

// streamRate prefers the average rate, then the base rate.
func streamRate(s probeStream) float64 {
	for _, r := range []string{s.AvgFrameRate, s.RFrameRate} {
		if fps := parseRate(r); fps > 0 {
			return fps
		}
	}
	return fallbackFPS
}

// parseRate reads "num/den" or a bare number.
func parseRate(s string) float64 {
	num, den, isFraction := strings.Cut(s, "/")
	if !isFraction {
		v, _ := strconv.ParseFloat(s, 64)
		return v
	}
	n, errN := strconv.ParseFloat(num, 64)
	d, errD := strconv.ParseFloat(den, 64)
	if errN != nil || errD != nil || d == 0 {
		return 0
	}
	return n / d
}

// probeBackground checks that path can loop as a video background before
// ffmpeg is asked to decode it.
func probeBackground(ctx context.Context, path string, log logrus.FieldLogger) (MediaInfo, error) {
	info, err := ProbeMedia(ctx, path)
	if err != nil {
		return info, fmt.Errorf("background video: %w", err)
	}
	if !info.HasVideo {
		return info, fmt.Errorf("background video %s: %w", filepath.Base(path), ErrNoVideoStream)
	}
	logging.OrDiscard(log).WithFields(logrus.Fields{
		"function": "probeBackground",
		"path":     path,
		"size":     fmt.Sprintf("%dx%d", info.Width, info.Height),
		"fps":      info.FPS,
		"duration": info.Duration.String(),
	}).Debug("Background video probed")
	return info, nil
}
