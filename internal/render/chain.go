package render

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-dsp/dsp/filter/biquad"
	"github.com/cwbudde/algo-dsp/dsp/filter/design"

	"github.com/olivier-w/beatboy/internal/audio"
)

const (
	// TagGain is the fixed linear gain of every tag instance (about -4.4 dB).
	TagGain = 0.6

	shelfQ = 1 / math.Sqrt2
	peakQ  = 1.0
)

// SignalChain is the processing graph for one render: five EQ sections
// per channel on the main source, a tag bus, the ending fade and the
// optional limiter. Chains hold filter state and must not be shared
// between renders.
type SignalChain struct {
	SampleRate int
	Channels   int
	Duration   float64

	// Coefficients per EQ band, in EQBands order.
	Coefficients [5]biquad.Coefficients
	// TagStarts are the tag offsets in seconds.
	TagStarts []float64

	eq      [][]*biquad.Section
	fade    *fadeEnvelope
	limiter *Limiter
}

// NewSignalChain builds the graph for a render at sampleRate with the
// given channel count and main-source duration.
func NewSignalChain(sampleRate, channels int, eq audio.EQSettings, opts audio.ProcessingOptions, durationSeconds float64) (*SignalChain, error) {
	if sampleRate <= 0 || channels <= 0 {
		return nil, fmt.Errorf("invalid chain format %d Hz x %d", sampleRate, channels)
	}

	c := &SignalChain{
		SampleRate: sampleRate,
		Channels:   channels,
		Duration:   durationSeconds,
		TagStarts:  TagTimes(durationSeconds, opts.TagIntervalSeconds),
	}
	c.Coefficients = designEQ(float64(sampleRate), eq.Clamp())
	c.eq = make([][]*biquad.Section, channels)
	for ch := range c.eq {
		c.eq[ch] = newSections(c.Coefficients)
	}

	if opts.FadeEnding {
		f := newFadeEnvelope(durationSeconds)
		c.fade = &f
	}
	if opts.LimiterEnabled {
		l := DefaultLimiter()
		c.limiter = &l
	}
	return c, nil
}

// designEQ returns RBJ coefficients for each band. Bands at or above
// Nyquist come back as zero coefficients and are skipped by newSections.
func designEQ(rate float64, eq audio.EQSettings) [5]biquad.Coefficients {
	var out [5]biquad.Coefficients
	gains := eq.Gains()
	for i, band := range audio.EQBands {
		switch band.Kind {
		case audio.LowShelf:
			out[i] = design.LowShelf(band.Frequency, gains[i], shelfQ, rate)
		case audio.HighShelf:
			out[i] = design.HighShelf(band.Frequency, gains[i], shelfQ, rate)
		default:
			out[i] = design.Peak(band.Frequency, gains[i], peakQ, rate)
		}
	}
	return out
}

func newSections(coeffs [5]biquad.Coefficients) []*biquad.Section {
	sections := make([]*biquad.Section, 0, len(coeffs))
	for _, c := range coeffs {
		if c == (biquad.Coefficients{}) {
			continue
		}
		sections = append(sections, biquad.NewSection(c))
	}
	return sections
}

// ApplyEQ filters one channel in place through all EQ sections.
func (c *SignalChain) ApplyEQ(ch int, samples []float64) {
	for _, s := range c.eq[ch] {
		s.ProcessBlock(samples)
	}
}

// FadeGain returns the fade automation value at t seconds.
func (c *SignalChain) FadeGain(t float64) float64 {
	if c.fade == nil {
		return 1
	}
	return c.fade.Gain(t)
}

// LimiterEnabled reports whether the limiter stage is in the chain.
func (c *SignalChain) LimiterEnabled() bool { return c.limiter != nil }

// LiveChain is the playback graph: EQ, master volume, optional limiter.
// It has no tags and no fade.
type LiveChain struct {
	eq      audio.EQSettings
	volume  float64
	limiter bool
}

// NewLiveChain returns a playback chain. Volume is linear gain.
func NewLiveChain(eq audio.EQSettings, volume float64, limiter bool) *LiveChain {
	return &LiveChain{eq: eq.Clamp(), volume: volume, limiter: limiter}
}

// Process returns a processed copy of buf.
func (l *LiveChain) Process(buf *audio.SampleBuffer) (*audio.SampleBuffer, error) {
	if err := buf.Validate(); err != nil {
		return nil, err
	}
	out := buf.Clone()
	coeffs := designEQ(float64(out.SampleRate), l.eq)
	for _, data := range out.Channels {
		for _, s := range newSections(coeffs) {
			s.ProcessBlock(data)
		}
		if l.volume != 1 {
			for i := range data {
				data[i] *= l.volume
			}
		}
	}
	if l.limiter {
		DefaultLimiter().Process(out.Channels, out.SampleRate)
	}
	return out, nil
}
