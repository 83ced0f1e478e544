package audio

import "fmt"

// SampleBuffer is decoded multi-channel audio. Every channel slice has the
// same length; samples are nominally in [-1, 1] but may exceed that range
// before limiting or normalization.
type SampleBuffer struct {
	SampleRate int
	Channels   [][]float64
}

// NewSampleBuffer allocates a silent buffer.
func NewSampleBuffer(sampleRate, channels, frames int) *SampleBuffer {
	b := &SampleBuffer{
		SampleRate: sampleRate,
		Channels:   make([][]float64, channels),
	}
	for ch := range b.Channels {
		b.Channels[ch] = make([]float64, frames)
	}
	return b
}

// NumChannels returns the channel count.
func (b *SampleBuffer) NumChannels() int {
	if b == nil {
		return 0
	}
	return len(b.Channels)
}

// Len returns the number of sample frames per channel.
func (b *SampleBuffer) Len() int {
	if b == nil || len(b.Channels) == 0 {
		return 0
	}
	return len(b.Channels[0])
}

// Duration returns the buffer length in seconds.
func (b *SampleBuffer) Duration() float64 {
	if b == nil || b.SampleRate <= 0 {
		return 0
	}
	return float64(b.Len()) / float64(b.SampleRate)
}

// Clone returns a deep copy.
func (b *SampleBuffer) Clone() *SampleBuffer {
	if b == nil {
		return nil
	}
	out := &SampleBuffer{
		SampleRate: b.SampleRate,
		Channels:   make([][]float64, len(b.Channels)),
	}
	for ch, data := range b.Channels {
		out.Channels[ch] = append([]float64(nil), data...)
	}
	return out
}

// Peak returns the largest absolute sample value across all channels.
func (b *SampleBuffer) Peak() float64 {
	var peak float64
	if b == nil {
		return 0
	}
	for _, data := range b.Channels {
		for _, s := range data {
			if s < 0 {
				s = -s
			}
			if s > peak {
				peak = s
			}
		}
	}
	return peak
}

// Validate reports whether the buffer can be rendered. A nil or zero-length
// buffer yields ErrEmptyBuffer.
func (b *SampleBuffer) Validate() error {
	if b == nil || len(b.Channels) == 0 || b.Len() == 0 {
		return ErrEmptyBuffer
	}
	if b.SampleRate <= 0 {
		return fmt.Errorf("invalid sample rate %d", b.SampleRate)
	}
	n := len(b.Channels[0])
	for ch, data := range b.Channels {
		if len(data) != n {
			return fmt.Errorf("channel %d has %d frames, want %d", ch, len(data), n)
		}
	}
	return nil
}
