package wavenc

import (
	"bytes"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olivier-w/beatboy/internal/audio"
)

func sineBuffer(rate, channels, frames int) *audio.SampleBuffer {
	buf := audio.NewSampleBuffer(rate, channels, frames)
	for ch := 0; ch < channels; ch++ {
		for i := 0; i < frames; i++ {
			buf.Channels[ch][i] = 0.8 * math.Sin(2*math.Pi*440*float64(i)/float64(rate)+float64(ch))
		}
	}
	return buf
}

func TestEncodeHeader(t *testing.T) {
	buf := sineBuffer(48000, 2, 100)
	data, err := Encode(buf)
	require.NoError(t, err)
	require.Len(t, data, 44+100*2*2)

	assert.Equal(t, "RIFF", string(data[0:4]))
	assert.Equal(t, uint32(len(data)-8), binary.LittleEndian.Uint32(data[4:8]))
	assert.Equal(t, "WAVE", string(data[8:12]))
	assert.Equal(t, "fmt ", string(data[12:16]))
	assert.Equal(t, uint32(16), binary.LittleEndian.Uint32(data[16:20]))
	assert.Equal(t, uint16(1), binary.LittleEndian.Uint16(data[20:22]), "PCM format tag")
	assert.Equal(t, uint16(2), binary.LittleEndian.Uint16(data[22:24]), "channels")
	assert.Equal(t, uint32(48000), binary.LittleEndian.Uint32(data[24:28]), "sample rate")
	assert.Equal(t, uint32(48000*2*2), binary.LittleEndian.Uint32(data[28:32]), "byte rate")
	assert.Equal(t, uint16(4), binary.LittleEndian.Uint16(data[32:34]), "block align")
	assert.Equal(t, uint16(16), binary.LittleEndian.Uint16(data[34:36]), "bits per sample")
	assert.Equal(t, "data", string(data[36:40]))
	assert.Equal(t, uint32(100*2*2), binary.LittleEndian.Uint32(data[40:44]))
}

func TestEncodeSampleScaling(t *testing.T) {
	buf := audio.NewSampleBuffer(44100, 1, 5)
	copy(buf.Channels[0], []float64{1, -1, 2, -2, 0})

	data, err := Encode(buf)
	require.NoError(t, err)

	want := []int16{32767, -32768, 32767, -32768, 0}
	for i, w := range want {
		got := int16(binary.LittleEndian.Uint16(data[44+i*2:]))
		assert.Equalf(t, w, got, "sample %d", i)
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	buf := sineBuffer(44100, 2, 2048)
	data, err := Encode(buf)
	require.NoError(t, err)

	dec := wav.NewDecoder(bytes.NewReader(data))
	require.True(t, dec.IsValidFile())
	pcm, err := dec.FullPCMBuffer()
	require.NoError(t, err)

	assert.Equal(t, 2, pcm.Format.NumChannels)
	assert.Equal(t, 44100, pcm.Format.SampleRate)
	assert.Equal(t, uint16(16), dec.BitDepth)
	require.Len(t, pcm.Data, 2048*2)

	for i := 0; i < 2048; i++ {
		for ch := 0; ch < 2; ch++ {
			got := float64(pcm.Data[i*2+ch]) / 32768
			assert.InDelta(t, buf.Channels[ch][i], got, 1.0/32768+1e-9)
		}
	}
}

func TestEncodeRejectsEmpty(t *testing.T) {
	_, err := Encode(nil)
	assert.ErrorIs(t, err, audio.ErrEmptyBuffer)

	_, err = Encode(audio.NewSampleBuffer(44100, 2, 0))
	assert.ErrorIs(t, err, audio.ErrEmptyBuffer)
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.wav")
	buf := sineBuffer(22050, 1, 10)
	require.NoError(t, WriteFile(path, buf))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, data, 44+10*2)
}

func TestMemWriteSeekerPatchesInPlace(t *testing.T) {
	m := &memWriteSeeker{}
	_, _ = m.Write([]byte("abcdef"))
	_, err := m.Seek(2, 0)
	require.NoError(t, err)
	_, _ = m.Write([]byte("XY"))
	assert.Equal(t, "abXYef", string(m.buf))

	pos, err := m.Seek(0, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(6), pos)

	_, err = m.Seek(-10, 1)
	assert.Error(t, err)
}
