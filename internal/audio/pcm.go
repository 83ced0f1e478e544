package audio

// FloatToPCM16 converts a float sample to signed 16-bit: clamp to [-1, 1],
// scale negatives by 32768 and the rest by 32767, truncate.
func FloatToPCM16(x float64) int16 {
	if x > 1 {
		x = 1
	} else if x < -1 {
		x = -1
	}
	if x < 0 {
		return int16(x * 32768)
	}
	return int16(x * 32767)
}

// PCM16ToFloat converts a signed 16-bit sample to [-1, 1).
func PCM16ToFloat(s int16) float64 {
	return float64(s) / 32768
}

// IntToFloat converts a signed integer sample of the given bit depth.
func IntToFloat(v int, bitDepth int) float64 {
	if bitDepth <= 0 || bitDepth > 32 {
		bitDepth = 16
	}
	return float64(v) / float64(int64(1)<<(bitDepth-1))
}

// Interleave16 converts the buffer to interleaved little-endian 16-bit PCM
// with the given output channel count. Mono sources are duplicated; extra
// source channels beyond the output count are dropped.
func Interleave16(b *SampleBuffer, outChannels int) []byte {
	frames := b.Len()
	srcCh := b.NumChannels()
	out := make([]byte, frames*outChannels*2)
	if srcCh == 0 {
		return out
	}
	off := 0
	for i := 0; i < frames; i++ {
		for ch := 0; ch < outChannels; ch++ {
			src := ch
			if src >= srcCh {
				src = srcCh - 1
			}
			v := uint16(FloatToPCM16(b.Channels[src][i]))
			out[off] = byte(v)
			out[off+1] = byte(v >> 8)
			off += 2
		}
	}
	return out
}
