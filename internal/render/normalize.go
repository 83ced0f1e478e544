package render

import (
	"math"

	"github.com/olivier-w/beatboy/internal/audio"
)

// TargetPeakDB is the normalization target in dBFS.
const TargetPeakDB = -1.0

// normalizeEpsilon skips the gain pass when the buffer is already at target.
const normalizeEpsilon = 0.001

// Normalize scales buf in place so its absolute peak equals targetDB dBFS
// and returns it. Silent buffers are left untouched.
func Normalize(buf *audio.SampleBuffer, targetDB float64) *audio.SampleBuffer {
	peak := buf.Peak()
	if peak == 0 {
		return buf
	}
	gain := math.Pow(10, targetDB/20) / peak
	if math.Abs(gain-1) <= normalizeEpsilon {
		return buf
	}
	for _, data := range buf.Channels {
		for i := range data {
			data[i] *= gain
		}
	}
	return buf
}
