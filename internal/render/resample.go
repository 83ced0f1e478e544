package render

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-dsp/dsp/resample"

	"github.com/olivier-w/beatboy/internal/audio"
)

// framesAt returns ceil(frames * outRate / inRate), the number of frames
// a source of the given length occupies at outRate.
func framesAt(frames, inRate, outRate int) int {
	if inRate <= 0 {
		return 0
	}
	return int((int64(frames)*int64(outRate) + int64(inRate) - 1) / int64(inRate))
}

// Resample converts buf to outRate. The output has exactly
// ceil(Len*outRate/SampleRate) frames and is time-aligned with the input
// (the filter's group delay is removed). Equal rates return a copy.
func Resample(buf *audio.SampleBuffer, outRate int) (*audio.SampleBuffer, error) {
	if err := buf.Validate(); err != nil {
		return nil, err
	}
	if outRate <= 0 {
		return nil, fmt.Errorf("invalid output rate %d", outRate)
	}
	if buf.SampleRate == outRate {
		return buf.Clone(), nil
	}

	g := gcd(outRate, buf.SampleRate)
	r, err := resample.NewRational(outRate/g, buf.SampleRate/g, resample.WithQuality(resample.QualityBalanced))
	if err != nil {
		return nil, fmt.Errorf("creating resampler %d->%d: %w", buf.SampleRate, outRate, err)
	}
	up, down := r.Ratio()
	delay := int(math.Round(float64(len(r.Prototype())-1) / 2 / float64(down)))
	length := framesAt(buf.Len(), buf.SampleRate, outRate)

	// Zero tail so the delayed filter output covers the final frames.
	pad := (delay+2)*down/up + 1
	in := make([]float64, buf.Len()+pad)

	out := &audio.SampleBuffer{
		SampleRate: outRate,
		Channels:   make([][]float64, buf.NumChannels()),
	}
	for ch, data := range buf.Channels {
		r.Reset()
		copy(in, data)
		clear(in[len(data):])
		y := r.Process(in)
		out.Channels[ch] = fitLength(y, delay, length)
	}
	return out, nil
}

// fitLength returns y[offset:offset+length], zero-filled past the end.
func fitLength(y []float64, offset, length int) []float64 {
	out := make([]float64, length)
	if offset < len(y) {
		copy(out, y[offset:])
	}
	return out
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}
