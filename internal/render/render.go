// Package render implements the offline processing chain: EQ on the main
// source, periodic tag insertion, ending fade, limiter, sample-rate
// conversion and peak normalization.
package render

import (
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/olivier-w/beatboy/internal/audio"
	"github.com/olivier-w/beatboy/internal/logging"
)

// Option configures Render.
type Option func(*config)

type config struct {
	logger logrus.FieldLogger
}

// WithLogger sets the logger used for stage timings.
func WithLogger(l logrus.FieldLogger) Option {
	return func(c *config) { c.logger = l }
}

// Render mixes main and the optional tag through a fresh SignalChain and
// returns a new buffer of ceil(duration*rate) frames at the output rate,
// with as many channels as main. Inputs are not modified. Every failure
// is an *audio.RenderError.
func Render(main, tag *audio.SampleBuffer, eq audio.EQSettings, opts audio.ProcessingOptions, options ...Option) (*audio.SampleBuffer, error) {
	cfg := config{}
	for _, o := range options {
		o(&cfg)
	}
	log := logging.OrDiscard(cfg.logger)

	if err := main.Validate(); err != nil {
		return nil, &audio.RenderError{Stage: "input", Err: err}
	}
	if err := opts.Validate(); err != nil {
		return nil, &audio.RenderError{Stage: "options", Err: err}
	}
	if tag != nil {
		if err := tag.Validate(); err != nil {
			if !errors.Is(err, audio.ErrEmptyBuffer) {
				return nil, &audio.RenderError{Stage: "tag", Err: err}
			}
			tag = nil
		}
	}

	rate := opts.OutputRate(main.SampleRate)
	duration := main.Duration()
	chain, err := NewSignalChain(rate, main.NumChannels(), eq, opts, duration)
	if err != nil {
		return nil, &audio.RenderError{Stage: "chain", Err: err}
	}

	start := time.Now()
	bus, err := Resample(main, rate)
	if err != nil {
		return nil, &audio.RenderError{Stage: "resample", Err: err}
	}
	var tagBuf *audio.SampleBuffer
	if tag != nil && len(chain.TagStarts) > 0 {
		if tagBuf, err = Resample(tag, rate); err != nil {
			return nil, &audio.RenderError{Stage: "resample", Err: err}
		}
	}
	log.WithFields(logrus.Fields{
		"function":    "Render",
		"stage":       "resample",
		"sample_rate": rate,
		"frames":      bus.Len(),
		"elapsed":     time.Since(start),
	}).Debug("sources at output rate")

	start = time.Now()
	for ch, data := range bus.Channels {
		chain.ApplyEQ(ch, data)
	}

	if tagBuf != nil {
		mixTags(bus, tagBuf, chain.TagStarts)
	}

	if chain.fade != nil {
		inv := 1 / float64(rate)
		for _, data := range bus.Channels {
			for i := range data {
				data[i] *= chain.FadeGain(float64(i) * inv)
			}
		}
	}

	if chain.limiter != nil {
		chain.limiter.Process(bus.Channels, rate)
	}
	log.WithFields(logrus.Fields{
		"function": "Render",
		"stage":    "chain",
		"tags":     len(chain.TagStarts),
		"limiter":  chain.LimiterEnabled(),
		"elapsed":  time.Since(start),
	}).Debug("signal chain rendered")

	if opts.Normalize {
		Normalize(bus, TargetPeakDB)
	}
	return bus, nil
}

// mixTags adds TagGain-scaled copies of tag into bus at each start time.
// Instances past the end of the bus are truncated.
func mixTags(bus, tag *audio.SampleBuffer, starts []float64) {
	frames := bus.Len()
	channels := bus.NumChannels()
	for _, t := range starts {
		offset := int(t*float64(bus.SampleRate) + 0.5)
		for ch := 0; ch < channels; ch++ {
			dst := bus.Channels[ch]
			for i := 0; i < tag.Len() && offset+i < frames; i++ {
				dst[offset+i] += TagGain * mappedSample(tag, ch, channels, i)
			}
		}
	}
}

// mappedSample up/down-mixes src to outChannels: mono is copied to every
// output, stereo into mono is averaged, otherwise channels map by index.
func mappedSample(src *audio.SampleBuffer, ch, outChannels, i int) float64 {
	n := src.NumChannels()
	switch {
	case n == outChannels:
		return src.Channels[ch][i]
	case n == 1:
		return src.Channels[0][i]
	case outChannels == 1 && n == 2:
		return 0.5 * (src.Channels[0][i] + src.Channels[1][i])
	case ch < n:
		return src.Channels[ch][i]
	default:
		return 0
	}
}
