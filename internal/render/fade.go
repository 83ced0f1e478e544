package render

import "math"

// DefaultFadeSeconds is the fixed length of the ending fade.
const DefaultFadeSeconds = 3.0

// fadeEnvelope holds gain 1 until start, then ramps linearly to 0 at end.
type fadeEnvelope struct {
	start, end float64
}

func newFadeEnvelope(durationSeconds float64) fadeEnvelope {
	return fadeEnvelope{
		start: math.Max(0, durationSeconds-DefaultFadeSeconds),
		end:   durationSeconds,
	}
}

// Gain returns the envelope value at time t (seconds).
func (f fadeEnvelope) Gain(t float64) float64 {
	switch {
	case t <= f.start:
		return 1
	case t >= f.end:
		return 0
	default:
		return 1 - (t-f.start)/(f.end-f.start)
	}
}
