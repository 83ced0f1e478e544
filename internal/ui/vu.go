package ui

import (
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/harmonica"
	"github.com/charmbracelet/lipgloss"
)

const (
	vuFloorDB   = -40.0
	vuPeakDecay = 0.02
)

// springField eases a set of values toward their targets.
type springField struct {
	spring harmonica.Spring
	pos    []float64
	vel    []float64
}

func newSpringField(n int, interval time.Duration, frequency, damping float64) springField {
	return springField{
		spring: harmonica.NewSpring(interval.Seconds(), frequency, damping),
		pos:    make([]float64, n),
		vel:    make([]float64, n),
	}
}

func (s *springField) step(i int, target float64) float64 {
	s.pos[i], s.vel[i] = s.spring.Update(s.pos[i], s.vel[i], target)
	return s.pos[i]
}

// vuMeter is a stereo level meter with peak hold.
type vuMeter struct {
	levels springField
	peak   [2]float64
}

func newVUMeter() vuMeter {
	return vuMeter{levels: newSpringField(2, tickInterval, 14, 0.8)}
}

// update feeds interleaved stereo samples. An empty slice lets the bars
// fall back to zero.
func (v *vuMeter) update(samples []int16) {
	var sum [2]float64
	count := 0
	for i := 0; i+1 < len(samples); i += 2 {
		l := float64(samples[i]) / 32768
		r := float64(samples[i+1]) / 32768
		sum[0] += l * l
		sum[1] += r * r
		count++
	}
	for ch := range sum {
		target := 0.0
		if count > 0 {
			target = rmsToLevel(math.Sqrt(sum[ch] / float64(count)))
		}
		level := min(max(v.levels.step(ch, target), 0), 1)
		v.peak[ch] = max(v.peak[ch]-vuPeakDecay, level)
	}
}

func (v *vuMeter) level(ch int) float64 {
	return min(max(v.levels.pos[ch], 0), 1)
}

// rmsToLevel maps RMS to 0..1 on a dB scale with a -40 dB floor, so
// dense mixes don't pin the meter.
func rmsToLevel(rms float64) float64 {
	if rms < 1e-6 {
		return 0
	}
	db := 20 * math.Log10(rms)
	if db < vuFloorDB {
		return 0
	}
	return min((db-vuFloorDB)/-vuFloorDB, 1)
}

func (v *vuMeter) view(width int) string {
	barWidth := max(width-6, 10)
	return " L  " + renderVUBar(v.level(0), v.peak[0], barWidth) + "\n" +
		" R  " + renderVUBar(v.level(1), v.peak[1], barWidth)
}

func renderVUBar(level, peak float64, width int) string {
	filled := int(level * float64(width))
	peakPos := min(int(peak*float64(width)), width-1)

	var sb strings.Builder
	var run strings.Builder
	var runStyle *lipgloss.Style
	flush := func() {
		if run.Len() > 0 {
			sb.WriteString(runStyle.Render(run.String()))
			run.Reset()
		}
	}
	for i := 0; i < width; i++ {
		ch := "─"
		style := &helpStyle
		switch {
		case i < filled:
			ch = "█"
			switch {
			case i < width*6/10:
				style = &meterLow
			case i < width*8/10:
				style = &meterMid
			default:
				style = &meterHigh
			}
		case i == peakPos && peakPos > 0:
			ch = "│"
			style = &meterPeak
		}
		if style != runStyle {
			flush()
			runStyle = style
		}
		run.WriteString(ch)
	}
	flush()
	return sb.String()
}
