package compositor

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-dsp/dsp/core"
	"github.com/cwbudde/algo-dsp/dsp/window"
	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/olivier-w/beatboy/internal/audio"
)

// Analyser defaults, matching a browser AnalyserNode.
const (
	FFTSize          = 512
	BinCount         = FFTSize / 2
	DefaultSmoothing = 0.8
	MinDecibels      = -100.0
	MaxDecibels      = -30.0
)

// Analyser produces byte spectrum and waveform snapshots of a buffer at
// arbitrary timeline positions. Spectra are smoothed across calls, so
// snapshots should be taken in playback order.
type Analyser struct {
	Smoothing float64

	mono     []float64
	rate     int
	fft      *fourier.FFT
	window   []float64
	block    []float64
	coeffs   []complex128
	smoothed []float64
}

// NewAnalyser mixes buf down to mono for analysis.
func NewAnalyser(buf *audio.SampleBuffer) (*Analyser, error) {
	if err := buf.Validate(); err != nil {
		return nil, err
	}
	win, err := window.Blackman(FFTSize, window.WithPeriodic())
	if err != nil {
		return nil, fmt.Errorf("analyser window: %w", err)
	}
	mono := make([]float64, buf.Len())
	scale := 1 / float64(buf.NumChannels())
	for _, ch := range buf.Channels {
		for i, s := range ch {
			mono[i] += s * scale
		}
	}
	return &Analyser{
		Smoothing: DefaultSmoothing,
		mono:      mono,
		rate:      buf.SampleRate,
		fft:       fourier.NewFFT(FFTSize),
		window:    win,
		block:     make([]float64, FFTSize),
		smoothed:  make([]float64, BinCount),
	}, nil
}

// Reset clears the smoothing history.
func (a *Analyser) Reset() {
	for i := range a.smoothed {
		a.smoothed[i] = 0
	}
}

// load copies the FFTSize samples that end at elapsedMs into a.block.
// Samples before the start or past the end read as silence.
func (a *Analyser) load(elapsedMs float64) {
	end := int(math.Round(elapsedMs / 1000 * float64(a.rate)))
	start := end - FFTSize
	for i := range a.block {
		j := start + i
		if j < 0 || j >= len(a.mono) {
			a.block[i] = 0
			continue
		}
		a.block[i] = a.mono[j]
	}
}

// ByteFrequencyData fills dst (up to BinCount bytes) with smoothed
// magnitudes mapped from MinDecibels..MaxDecibels onto 0..255.
func (a *Analyser) ByteFrequencyData(dst []byte, elapsedMs float64) {
	a.load(elapsedMs)
	for i := range a.block {
		a.block[i] *= a.window[i]
	}
	a.coeffs = a.fft.Coefficients(a.coeffs, a.block)

	tau := a.Smoothing
	scale := 255 / (MaxDecibels - MinDecibels)
	for k := 0; k < BinCount; k++ {
		mag := cmplxAbs(a.coeffs[k]) / FFTSize
		a.smoothed[k] = tau*a.smoothed[k] + (1-tau)*mag
		if k >= len(dst) {
			continue
		}
		db := core.LinearToDB(a.smoothed[k])
		v := math.Floor(scale * (db - MinDecibels))
		switch {
		case math.IsInf(db, -1) || v < 0:
			dst[k] = 0
		case v > 255:
			dst[k] = 255
		default:
			dst[k] = uint8(v)
		}
	}
}

// ByteTimeDomainData fills dst (up to FFTSize bytes) with the waveform
// as unsigned bytes centred on 128.
func (a *Analyser) ByteTimeDomainData(dst []byte, elapsedMs float64) {
	a.load(elapsedMs)
	for i := 0; i < len(dst) && i < FFTSize; i++ {
		dst[i] = clampByte(math.Floor(128 * (1 + a.block[i])))
	}
}

func cmplxAbs(c complex128) float64 {
	return math.Hypot(real(c), imag(c))
}

// IdleSpectrum returns a spectrum and waveform filled with constants, the
// data used for thumbnails and the paused editor preview.
func IdleSpectrum(n int, level, wave byte) (freq, timeData []byte) {
	freq = make([]byte, n)
	timeData = make([]byte, n)
	for i := range freq {
		freq[i] = level
		timeData[i] = wave
	}
	return freq, timeData
}
