// Package decode turns encoded audio bytes into sample buffers.
package decode

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
	"github.com/mewkiz/flac"

	"github.com/olivier-w/beatboy/internal/audio"
)

// Format identifies a container/codec family.
type Format string

const (
	FormatUnknown Format = ""
	FormatMP3     Format = "mp3"
	FormatWAV     Format = "wav"
	FormatFLAC    Format = "flac"
	FormatOGG     Format = "ogg"
	FormatMP4     Format = "mp4"
)

// Decode detects the format of data, using nameHint's extension when the
// bytes are ambiguous, and decodes it completely.
func Decode(data []byte, nameHint string) (*audio.SampleBuffer, error) {
	format := Detect(data, nameHint)

	var (
		buf *audio.SampleBuffer
		err error
	)
	switch format {
	case FormatMP3:
		buf, err = decodeMP3(bytes.NewReader(data))
	case FormatWAV:
		buf, err = decodeWAV(bytes.NewReader(data))
	case FormatFLAC:
		buf, err = decodeFLAC(bytes.NewReader(data))
	case FormatOGG:
		buf, err = decodeOGG(bytes.NewReader(data))
	case FormatMP4:
		buf, err = decodeViaFFmpeg(data, nameHint)
	default:
		ext := strings.ToLower(filepath.Ext(nameHint))
		return nil, audio.DecodeError("unsupported format "+ext, nil)
	}
	if err != nil {
		return nil, audio.DecodeError(string(format), err)
	}
	if err := buf.Validate(); err != nil {
		return nil, audio.DecodeError(string(format), err)
	}
	return buf, nil
}

// DecodeFile reads and decodes the file at path.
func DecodeFile(path string) (*audio.SampleBuffer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", filepath.Base(path), err)
	}
	return Decode(data, path)
}

// Detect sniffs magic bytes and falls back to the extension of nameHint.
func Detect(data []byte, nameHint string) Format {
	switch {
	case len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WAVE":
		return FormatWAV
	case len(data) >= 4 && string(data[0:4]) == "fLaC":
		return FormatFLAC
	case len(data) >= 4 && string(data[0:4]) == "OggS":
		return FormatOGG
	case len(data) >= 8 && string(data[4:8]) == "ftyp":
		return FormatMP4
	case len(data) >= 3 && string(data[0:3]) == "ID3":
		return FormatMP3
	case len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0 && data[1]&0x06 != 0:
		// MPEG frame sync with a layer set; ADTS AAC has layer bits 00.
		return FormatMP3
	}

	switch strings.ToLower(filepath.Ext(nameHint)) {
	case ".mp3":
		return FormatMP3
	case ".wav":
		return FormatWAV
	case ".flac":
		return FormatFLAC
	case ".ogg":
		return FormatOGG
	case ".m4a", ".m4b", ".aac", ".mp4":
		return FormatMP4
	}
	return FormatUnknown
}

// --- MP3 ---

// go-mp3 always produces 16-bit little-endian stereo. It ends the stream
// quietly at a cut-off frame, so a seekable source is checked against the
// length its frame headers promise.
func decodeMP3(r io.ReadSeeker) (*audio.SampleBuffer, error) {
	dec, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, err
	}
	raw, err := io.ReadAll(dec)
	if err != nil {
		return nil, err
	}
	if want := dec.Length(); want > 0 && int64(len(raw)) < want {
		return nil, fmt.Errorf("truncated mp3 stream: decoded %d of %d bytes", len(raw), want)
	}
	return fromInterleavedPCM16(raw, 2, dec.SampleRate()), nil
}

func fromInterleavedPCM16(raw []byte, channels, sampleRate int) *audio.SampleBuffer {
	frameSize := channels * 2
	frames := len(raw) / frameSize
	buf := audio.NewSampleBuffer(sampleRate, channels, frames)
	for i := 0; i < frames; i++ {
		for ch := 0; ch < channels; ch++ {
			off := i*frameSize + ch*2
			s := int16(uint16(raw[off]) | uint16(raw[off+1])<<8)
			buf.Channels[ch][i] = audio.PCM16ToFloat(s)
		}
	}
	return buf
}

// --- WAV ---

const (
	wavFormatPCM        = 1
	wavFormatExtensible = 0xFFFE
)

func decodeWAV(r io.ReadSeeker) (*audio.SampleBuffer, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("invalid WAV file")
	}
	if dec.WavAudioFormat != wavFormatPCM && dec.WavAudioFormat != wavFormatExtensible {
		return nil, fmt.Errorf("unsupported WAV encoding %d", dec.WavAudioFormat)
	}

	pcm, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("reading WAV PCM data: %w", err)
	}
	return fromIntBuffer(pcm, int(dec.BitDepth))
}

func fromIntBuffer(pcm *goaudio.IntBuffer, bitDepth int) (*audio.SampleBuffer, error) {
	if pcm == nil || pcm.Format == nil || pcm.Format.NumChannels <= 0 {
		return nil, fmt.Errorf("missing WAV format")
	}
	channels := pcm.Format.NumChannels
	frames := len(pcm.Data) / channels
	buf := audio.NewSampleBuffer(pcm.Format.SampleRate, channels, frames)
	for i := 0; i < frames; i++ {
		for ch := 0; ch < channels; ch++ {
			v := pcm.Data[i*channels+ch]
			if bitDepth == 8 {
				// 8-bit WAV is unsigned
				v -= 128
			}
			buf.Channels[ch][i] = audio.IntToFloat(v, bitDepth)
		}
	}
	return buf, nil
}

// --- FLAC ---

func decodeFLAC(r io.Reader) (*audio.SampleBuffer, error) {
	stream, err := flac.New(r)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	info := stream.Info
	channels := int(info.NChannels)
	bps := int(info.BitsPerSample)
	if channels <= 0 {
		return nil, fmt.Errorf("no channels in stream")
	}

	out := &audio.SampleBuffer{
		SampleRate: int(info.SampleRate),
		Channels:   make([][]float64, channels),
	}
	if info.NSamples > 0 {
		for ch := range out.Channels {
			out.Channels[ch] = make([]float64, 0, info.NSamples)
		}
	}

	for {
		frame, err := stream.ParseNext()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		for ch := 0; ch < channels; ch++ {
			for _, s := range frame.Subframes[ch].Samples {
				out.Channels[ch] = append(out.Channels[ch], audio.IntToFloat(int(s), bps))
			}
		}
	}
	return out, nil
}

// --- OGG Vorbis ---

func decodeOGG(r io.Reader) (*audio.SampleBuffer, error) {
	reader, err := oggvorbis.NewReader(r)
	if err != nil {
		return nil, err
	}

	channels := reader.Channels()
	out := &audio.SampleBuffer{
		SampleRate: reader.SampleRate(),
		Channels:   make([][]float64, channels),
	}
	if n := reader.Length(); n > 0 {
		for ch := range out.Channels {
			out.Channels[ch] = make([]float64, 0, n)
		}
	}

	chunk := make([]float32, 4096*channels)
	for {
		n, err := reader.Read(chunk)
		// Interleaved; n is always a whole number of frames.
		for i := 0; i+channels <= n; i += channels {
			for ch := 0; ch < channels; ch++ {
				out.Channels[ch] = append(out.Channels[ch], float64(chunk[i+ch]))
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}
