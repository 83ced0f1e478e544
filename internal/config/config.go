// Package config loads the YAML session file shared by the commands.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/olivier-w/beatboy/internal/audio"
	"github.com/olivier-w/beatboy/internal/compositor"
)

const (
	minLogoScale = 0.5
	maxLogoScale = 3.0
)

// Session is everything a render or video command can be told up front.
type Session struct {
	LogLevel string                   `yaml:"log_level"`
	EQ       audio.EQSettings         `yaml:"eq"`
	Options  audio.ProcessingOptions  `yaml:"options"`
	Video    compositor.VideoSettings `yaml:"video"`
}

// Default returns a fresh session.
func Default() Session {
	return Session{
		LogLevel: "info",
		Options:  audio.DefaultProcessingOptions(),
		Video:    compositor.DefaultVideoSettings(),
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
func Load(path string) (Session, error) {
	if path == "" {
		return Default(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return Session{}, fmt.Errorf("opening config: %w", err)
	}
	defer f.Close()

	s, err := Decode(f)
	if err != nil {
		return Session{}, fmt.Errorf("config %s: %w", path, err)
	}
	return s, nil
}

// Decode parses a session document. Keys that are not part of Session are
// rejected; missing keys keep their defaults.
func Decode(r io.Reader) (Session, error) {
	s := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil && !errors.Is(err, io.EOF) {
		return Session{}, err
	}
	if err := s.Normalize(); err != nil {
		return Session{}, err
	}
	return s, nil
}

// Normalize clamps numeric values into range and rejects values that
// have no sensible nearest choice.
func (s *Session) Normalize() error {
	s.EQ = s.EQ.Clamp()
	s.Options.TagIntervalSeconds = nearestInterval(s.Options.TagIntervalSeconds)
	s.Options.TargetSampleRate = nearestRate(s.Options.TargetSampleRate)
	if err := s.Options.Validate(); err != nil {
		return err
	}

	v := &s.Video
	v.LogoScale = clamp(v.LogoScale, minLogoScale, maxLogoScale)
	v.LogoX = clamp(v.LogoX, 0, 1)
	v.LogoY = clamp(v.LogoY, 0, 1)
	if v.VideoDuration < 0 {
		v.VideoDuration = 0
	}
	if len(v.Overlays) == 0 {
		v.Overlays = compositor.DefaultOverlays()
	}
	seen := make(map[string]bool, len(v.Overlays))
	for i := range v.Overlays {
		o := &v.Overlays[i]
		if o.ID == "" {
			return fmt.Errorf("overlay %d has no id", i)
		}
		if seen[o.ID] {
			return fmt.Errorf("duplicate overlay %q", o.ID)
		}
		seen[o.ID] = true
		o.X = clamp(o.X, 0, 1)
		o.Y = clamp(o.Y, 0, 1)
		if o.FontSize <= 0 {
			o.FontSize = 40
		}
		if o.Color == "" {
			o.Color = "#ffffff"
		}
	}
	return v.Validate()
}

// Encode writes s as a YAML document.
func Encode(w io.Writer, s Session) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return nil
}

// Save writes s to path.
func Save(path string, s Session) error {
	var buf bytes.Buffer
	if err := Encode(&buf, s); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// nearestInterval maps any positive interval onto 15, 20 or 30 seconds.
func nearestInterval(v int) int {
	switch {
	case v <= 0:
		return 0
	case v < 18:
		return 15
	case v < 25:
		return 20
	}
	return 30
}

// nearestRate maps any positive rate onto 44100 or 48000 Hz.
func nearestRate(v int) int {
	switch {
	case v <= 0:
		return 0
	case v < 46050:
		return 44100
	}
	return 48000
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
