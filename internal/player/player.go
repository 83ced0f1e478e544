// Package player auditions a processed track through the system audio
// device.
package player

import (
	"bytes"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/sirupsen/logrus"

	"github.com/olivier-w/beatboy/internal/audio"
	"github.com/olivier-w/beatboy/internal/logging"
)

const (
	channelCount  = 2
	bytesPerFrame = channelCount * 2 // 16-bit stereo
	tapSamples    = 8192
)

// sink is the slice of *oto.Player the Player drives.
type sink interface {
	Play()
	Pause()
	SetVolume(float64)
}

var (
	otoMu   sync.Mutex
	otoCtx  *oto.Context
	otoRate int

	// newSink opens a device stream reading from r.
	newSink = func(rate int, r io.Reader) (sink, error) {
		ctx, err := initOto(rate)
		if err != nil {
			return nil, err
		}
		return ctx.NewPlayer(r), nil
	}

	pollInterval = 200 * time.Millisecond
)

// initOto opens the process-wide device context. oto allows a single
// context, so later calls must ask for the same rate.
func initOto(rate int) (*oto.Context, error) {
	otoMu.Lock()
	defer otoMu.Unlock()
	if otoCtx != nil {
		if rate != otoRate {
			return nil, fmt.Errorf("audio device already open at %d Hz, cannot play %d Hz", otoRate, rate)
		}
		return otoCtx, nil
	}
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   rate,
		ChannelCount: channelCount,
		Format:       oto.FormatSignedInt16LE,
	})
	if err != nil {
		return nil, fmt.Errorf("opening audio device: %w", err)
	}
	<-ready
	otoCtx, otoRate = ctx, rate
	return ctx, nil
}

// countingReader tracks the byte offset the device has consumed and
// copies what it reads into the level tap.
type countingReader struct {
	reader io.ReadSeeker
	tap    *sampleRing
	pos    int64
	mu     sync.Mutex
}

func (cr *countingReader) Read(p []byte) (int, error) {
	n, err := cr.reader.Read(p)
	if n > 0 {
		cr.tap.Write(p[:n])
	}
	cr.mu.Lock()
	cr.pos += int64(n)
	cr.mu.Unlock()
	return n, err
}

func (cr *countingReader) Pos() int64 {
	cr.mu.Lock()
	defer cr.mu.Unlock()
	return cr.pos
}

func (cr *countingReader) SetPos(pos int64) {
	cr.mu.Lock()
	cr.pos = pos
	cr.mu.Unlock()
}

// Player plays a rendered SampleBuffer. Playback starts immediately.
type Player struct {
	pcm         *bytes.Reader
	counter     *countingReader
	tap         *sampleRing
	out         sink
	rate        int
	length      int64
	bytesPerSec int64
	volume      float64
	paused      bool
	done        chan struct{}
	closed      bool
	mu          sync.Mutex
	log         logrus.FieldLogger
}

// New starts playing buf as 16-bit stereo at its own sample rate.
func New(buf *audio.SampleBuffer, log logrus.FieldLogger) (*Player, error) {
	if err := buf.Validate(); err != nil {
		return nil, err
	}
	data := audio.Interleave16(buf, channelCount)
	pcm := bytes.NewReader(data)
	tap := newSampleRing(tapSamples)

	p := &Player{
		pcm:         pcm,
		counter:     &countingReader{reader: pcm, tap: tap},
		tap:         tap,
		rate:        buf.SampleRate,
		length:      int64(len(data)),
		bytesPerSec: int64(buf.SampleRate) * bytesPerFrame,
		volume:      0.8,
		done:        make(chan struct{}),
		log:         logging.OrDiscard(log),
	}
	out, err := newSink(p.rate, p.counter)
	if err != nil {
		return nil, err
	}
	p.out = out
	p.out.SetVolume(p.volume)
	p.out.Play()

	p.log.WithFields(logrus.Fields{
		"function": "player.New",
		"rate":     p.rate,
		"duration": p.Duration().String(),
	}).Debug("Playback started")

	go p.monitor(p.done)
	return p, nil
}

func (p *Player) monitor(done chan struct{}) {
	for {
		p.mu.Lock()
		if p.closed || p.done != done {
			p.mu.Unlock()
			return
		}
		finished := !p.paused && p.counter.Pos() >= p.length
		p.mu.Unlock()

		if finished {
			close(done)
			return
		}
		time.Sleep(pollInterval)
	}
}

// Done closes when playback reaches the end of the track.
func (p *Player) Done() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done
}

// Restart rewinds to the start and plays again with a fresh Done channel.
func (p *Player) Restart() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.reopenLocked(0, true); err != nil {
		return err
	}
	p.paused = false
	p.done = make(chan struct{})
	go p.monitor(p.done)
	return nil
}

// reopenLocked seeks the PCM and replaces the device stream, which is
// the only way to flush what oto has already buffered.
func (p *Player) reopenLocked(pos int64, play bool) error {
	if _, err := p.pcm.Seek(pos, io.SeekStart); err != nil {
		return err
	}
	p.counter.SetPos(pos)
	p.tap.Clear()

	p.out.Pause()
	out, err := newSink(p.rate, p.counter)
	if err != nil {
		return err
	}
	p.out = out
	p.out.SetVolume(p.volume)
	if play {
		p.out.Play()
	}
	return nil
}

// TogglePause flips between playing and paused.
func (p *Player) TogglePause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.paused {
		p.out.Play()
	} else {
		p.out.Pause()
	}
	p.paused = !p.paused
}

// Pause stops playback without toggling.
func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.paused && p.out != nil {
		p.out.Pause()
	}
	p.paused = true
}

// Paused reports whether playback is paused.
func (p *Player) Paused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.paused
}

// Position returns how far the device has read into the track.
func (p *Player) Position() time.Duration {
	return bytesToDuration(p.counter.Pos(), p.bytesPerSec)
}

// Duration returns the track length.
func (p *Player) Duration() time.Duration {
	return bytesToDuration(p.length, p.bytesPerSec)
}

func bytesToDuration(n, bytesPerSec int64) time.Duration {
	if bytesPerSec <= 0 {
		return 0
	}
	return time.Duration(float64(n) / float64(bytesPerSec) * float64(time.Second))
}

// clampSeekByteOffset converts target to a byte offset inside [0, total]
// aligned down to a whole frame.
func clampSeekByteOffset(target time.Duration, bytesPerSec, total, frameSize int64) int64 {
	pos := int64(target.Seconds() * float64(bytesPerSec))
	if pos < 0 {
		pos = 0
	}
	if pos > total {
		pos = total
	}
	return pos - pos%frameSize
}

// SeekTo jumps to target, keeping the paused state.
func (p *Player) SeekTo(target time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	pos := clampSeekByteOffset(target, p.bytesPerSec, p.length, bytesPerFrame)
	return p.reopenLocked(pos, !p.paused)
}

// Seek moves playback by delta from the current position.
func (p *Player) Seek(delta time.Duration) error {
	return p.SeekTo(p.Position() + delta)
}

// Volume returns the gain in [0, 1].
func (p *Player) Volume() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.volume
}

// SetVolume sets the gain, clamped to [0, 1].
func (p *Player) SetVolume(v float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.volume = min(max(v, 0), 1)
	p.out.SetVolume(p.volume)
}

// AdjustVolume changes the gain by delta.
func (p *Player) AdjustVolume(delta float64) {
	p.SetVolume(p.Volume() + delta)
}

// Recent returns up to n of the newest interleaved stereo samples sent
// to the device, for level metering.
func (p *Player) Recent(n int) []int16 {
	return p.tap.Recent(n)
}

// Close stops playback. The device context stays open for reuse.
func (p *Player) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	p.out.Pause()
}
