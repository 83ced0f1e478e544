// Package wavenc writes sample buffers as canonical 16-bit PCM WAV.
//
// The output is always a 44-byte RIFF/WAVE header followed by interleaved
// little-endian samples. Float samples are converted with
// audio.FloatToPCM16.
package wavenc

import (
	"fmt"
	"io"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/olivier-w/beatboy/internal/audio"
)

// BitDepth is fixed; the encoder has no other output format.
const BitDepth = 16

const pcmFormat = 1

// Encode returns buf as a complete WAV file.
func Encode(buf *audio.SampleBuffer) ([]byte, error) {
	if err := buf.Validate(); err != nil {
		return nil, fmt.Errorf("encoding wav: %w", err)
	}

	ws := &memWriteSeeker{buf: make([]byte, 0, headerSize+buf.Len()*buf.NumChannels()*2)}
	enc := wav.NewEncoder(ws, buf.SampleRate, BitDepth, buf.NumChannels(), pcmFormat)
	if err := enc.Write(toIntBuffer(buf)); err != nil {
		return nil, fmt.Errorf("writing wav samples: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("finalizing wav header: %w", err)
	}
	return ws.buf, nil
}

// Write encodes buf to w.
func Write(w io.Writer, buf *audio.SampleBuffer) error {
	data, err := Encode(buf)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// WriteFile encodes buf to the file at path, replacing any existing file.
func WriteFile(path string, buf *audio.SampleBuffer) error {
	data, err := Encode(buf)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

const headerSize = 44

func toIntBuffer(buf *audio.SampleBuffer) *goaudio.IntBuffer {
	channels := buf.NumChannels()
	frames := buf.Len()
	data := make([]int, frames*channels)
	for i := 0; i < frames; i++ {
		for ch := 0; ch < channels; ch++ {
			data[i*channels+ch] = int(audio.FloatToPCM16(buf.Channels[ch][i]))
		}
	}
	return &goaudio.IntBuffer{
		Format: &goaudio.Format{
			NumChannels: channels,
			SampleRate:  buf.SampleRate,
		},
		Data:           data,
		SourceBitDepth: BitDepth,
	}
}

// memWriteSeeker is the io.WriteSeeker the wav encoder needs to patch
// chunk sizes after the data is written.
type memWriteSeeker struct {
	buf []byte
	pos int
}

func (m *memWriteSeeker) Write(p []byte) (int, error) {
	end := m.pos + len(p)
	if end > len(m.buf) {
		if end > cap(m.buf) {
			grown := make([]byte, len(m.buf), 2*end)
			copy(grown, m.buf)
			m.buf = grown
		}
		m.buf = m.buf[:end]
	}
	copy(m.buf[m.pos:], p)
	m.pos = end
	return len(p), nil
}

func (m *memWriteSeeker) Seek(offset int64, whence int) (int64, error) {
	var base int64
	switch whence {
	case io.SeekStart:
	case io.SeekCurrent:
		base = int64(m.pos)
	case io.SeekEnd:
		base = int64(len(m.buf))
	default:
		return 0, fmt.Errorf("seek: invalid whence %d", whence)
	}
	next := base + offset
	if next < 0 {
		return 0, fmt.Errorf("seek: negative position %d", next)
	}
	m.pos = int(next)
	return next, nil
}
