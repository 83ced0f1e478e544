package audio

import "fmt"

// ProcessingOptions configures one offline render. A TagIntervalSeconds of
// 0 disables tags and a TargetSampleRate of 0 renders at the source rate.
type ProcessingOptions struct {
	Normalize          bool `yaml:"normalize"`
	FadeEnding         bool `yaml:"fade_ending"`
	TagIntervalSeconds int  `yaml:"tag_interval"`
	TargetSampleRate   int  `yaml:"target_sample_rate"`
	LimiterEnabled     bool `yaml:"limiter"`
}

// DefaultProcessingOptions matches the initial state of a fresh session.
func DefaultProcessingOptions() ProcessingOptions {
	return ProcessingOptions{
		TagIntervalSeconds: 30,
		TargetSampleRate:   44100,
	}
}

// Validate rejects tag intervals outside {15, 20, 30} and sample rates
// outside {44100, 48000}, zero excepted for both.
func (o ProcessingOptions) Validate() error {
	switch o.TagIntervalSeconds {
	case 0, 15, 20, 30:
	default:
		return fmt.Errorf("%w: tag interval %ds", ErrInvalidOptions, o.TagIntervalSeconds)
	}
	switch o.TargetSampleRate {
	case 0, 44100, 48000:
	default:
		return fmt.Errorf("%w: sample rate %d", ErrInvalidOptions, o.TargetSampleRate)
	}
	return nil
}

// OutputRate returns the render rate for a source at sourceRate.
func (o ProcessingOptions) OutputRate(sourceRate int) int {
	if o.TargetSampleRate > 0 {
		return o.TargetSampleRate
	}
	return sourceRate
}
