package render

import (
	"math"
)

// Limiter is a stereo-linked peak limiter with a hard knee. Detection uses
// the loudest channel; the same gain is applied to every channel.
//
// The static curve gives a target gain per sample. A min-filter looks one
// attack window ahead and a moving average over the same window turns each
// drop into a linear ramp that completes before the peak it is for. Release
// is a one-pole recovery. The gain never exceeds the static curve, so no
// sample leaves louder than the curve allows.
type Limiter struct {
	ThresholdDB float64
	Ratio       float64
	AttackMs    float64
	ReleaseMs   float64
}

// DefaultLimiter is the fixed preset: -1 dB, 20:1, 5 ms attack, 100 ms
// release, hard knee.
func DefaultLimiter() Limiter {
	return Limiter{
		ThresholdDB: -1,
		Ratio:       20,
		AttackMs:    5,
		ReleaseMs:   100,
	}
}

// staticGain is the hard-knee gain curve for a linear peak level.
func (l Limiter) staticGain(level, threshold float64) float64 {
	if level <= threshold || level == 0 {
		return 1
	}
	return math.Pow(level/threshold, 1/l.Ratio-1)
}

// Ceiling returns the loudest output level for a peak input level.
func (l Limiter) Ceiling(level float64) float64 {
	threshold := math.Pow(10, l.ThresholdDB/20)
	return level * l.staticGain(level, threshold)
}

// Process limits channels in place.
func (l Limiter) Process(channels [][]float64, sampleRate int) {
	if len(channels) == 0 || sampleRate <= 0 {
		return
	}
	n := len(channels[0])
	if n == 0 {
		return
	}

	threshold := math.Pow(10, l.ThresholdDB/20)
	rate := float64(sampleRate)
	release := math.Exp(-math.Ln2 / (l.ReleaseMs * 0.001 * rate))
	window := max(int(math.Round(l.AttackMs*0.001*rate)), 0)

	target := make([]float64, n)
	for i := 0; i < n; i++ {
		var det float64
		for _, ch := range channels {
			if v := math.Abs(ch[i]); v > det {
				det = v
			}
		}
		target[i] = l.staticGain(det, threshold)
	}

	// ahead[j] covers [j, j+window], so every term of the average at i
	// comes from a window holding i and is at most target[i].
	ahead := windowMin(target, window)
	span := float64(window + 1)
	sum := ahead[0] * span

	g := ahead[0]
	for i := 0; i < n; i++ {
		if i > 0 {
			sum += ahead[i] - ahead[max(i-window-1, 0)]
		}
		s := math.Min(sum/span, target[i])
		if s < g {
			g = s
		} else {
			g = s + (g-s)*release
		}
		if g == 1 {
			continue
		}
		for _, ch := range channels {
			ch[i] *= g
		}
	}
}

// windowMin returns out[i] = min(v[i..i+w]) using a monotonic deque.
func windowMin(v []float64, w int) []float64 {
	n := len(v)
	out := make([]float64, n)
	deque := make([]int, 0, w+1)
	head := 0
	next := 0
	for i := 0; i < n; i++ {
		for ; next < n && next <= i+w; next++ {
			for len(deque) > head && v[deque[len(deque)-1]] >= v[next] {
				deque = deque[:len(deque)-1]
			}
			deque = append(deque, next)
		}
		for deque[head] < i {
			head++
		}
		out[i] = v[deque[head]]
		if head > w {
			deque = append(deque[:0], deque[head:]...)
			head = 0
		}
	}
	return out
}
