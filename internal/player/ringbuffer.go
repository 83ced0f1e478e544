package player

import (
	"encoding/binary"
	"sync"
)

// sampleRing keeps the most recent interleaved 16-bit samples handed to
// the audio device.
type sampleRing struct {
	mu      sync.Mutex
	buf     []int16
	w       int
	n       int
	pending []byte // odd trailing byte from the last write
}

func newSampleRing(samples int) *sampleRing {
	return &sampleRing{buf: make([]int16, samples)}
}

// Write appends little-endian PCM, overwriting the oldest samples.
func (r *sampleRing) Write(p []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.pending) > 0 {
		p = append(r.pending, p...)
		r.pending = nil
	}
	for len(p) >= 2 {
		r.buf[r.w] = int16(binary.LittleEndian.Uint16(p))
		r.w = (r.w + 1) % len(r.buf)
		if r.n < len(r.buf) {
			r.n++
		}
		p = p[2:]
	}
	if len(p) == 1 {
		r.pending = []byte{p[0]}
	}
}

// Recent returns up to n of the newest samples, oldest first.
func (r *sampleRing) Recent(n int) []int16 {
	r.mu.Lock()
	defer r.mu.Unlock()

	if n > r.n {
		n = r.n
	}
	if n <= 0 {
		return nil
	}
	out := make([]int16, n)
	start := (r.w - n + len(r.buf)) % len(r.buf)
	for i := range out {
		out[i] = r.buf[(start+i)%len(r.buf)]
	}
	return out
}

// Clear drops everything buffered.
func (r *sampleRing) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.w, r.n, r.pending = 0, 0, nil
}
