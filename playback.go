package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/olivier-w/beatboy/internal/audio"
	"github.com/olivier-w/beatboy/internal/decode"
	"github.com/olivier-w/beatboy/internal/media"
	"github.com/olivier-w/beatboy/internal/player"
	"github.com/olivier-w/beatboy/internal/render"
	"github.com/olivier-w/beatboy/internal/ui"
)

// newPlayer is swapped out in tests so no audio device is opened.
var newPlayer = func(buf *audio.SampleBuffer, log logrus.FieldLogger) (ui.Playback, error) {
	return player.New(buf, log)
}

type playback struct {
	player ui.Playback
	model  ui.PlayModel
}

// openPlayback resolves arg, runs it through the live chain and builds the
// playback screen. Live playback has EQ and the limiter but no tags or fade.
func openPlayback(ctx context.Context, e *env, arg string) (*playback, error) {
	path, err := e.local(ctx, arg)
	if err != nil {
		return nil, err
	}
	if !media.IsSupportedExt(filepath.Ext(path)) {
		return nil, fmt.Errorf("unsupported format %s (supported: %s)", filepath.Ext(path), media.SupportedExtsList())
	}

	buf, err := decode.DecodeFile(path)
	if err != nil {
		return nil, err
	}
	chain := render.NewLiveChain(e.sess.EQ, 1, e.sess.Options.LimiterEnabled)
	processed, err := chain.Process(buf)
	if err != nil {
		return nil, err
	}

	p, err := newPlayer(processed, e.log)
	if err != nil {
		return nil, fmt.Errorf("error creating player: %w", err)
	}

	meta := player.ReadMetadata(path)
	return &playback{
		player: p,
		model:  ui.NewPlay(p, meta.Title, playSubtitle(meta, e.sess.EQ, e.sess.Options.LimiterEnabled), e.log),
	}, nil
}

// playSubtitle lists the artist and the active processing.
func playSubtitle(meta player.Metadata, eq audio.EQSettings, limiter bool) string {
	var parts []string
	if meta.Artist != "" {
		parts = append(parts, meta.Artist)
	}
	if !eq.Flat() {
		g := eq.Gains()
		gains := make([]string, len(g))
		for i, v := range g {
			gains[i] = fmt.Sprintf("%+g", v)
		}
		parts = append(parts, "EQ "+strings.Join(gains, "/"))
	}
	if limiter {
		parts = append(parts, "limiter")
	}
	return strings.Join(parts, " · ")
}
