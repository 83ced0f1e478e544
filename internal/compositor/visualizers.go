package compositor

import (
	"image/color"
	"math"

	"github.com/fogleman/gg"
)

func (c *Compositor) drawVisualizer(f *frame) {
	switch c.settings.Visualizer {
	case VisualizerParticles:
		c.stepParticles(f)
	case VisualizerTrapNation:
		drawTrapNation(f)
	case VisualizerEclipse:
		drawEclipse(f)
	case VisualizerMatrix:
		c.drawMatrix(f)
	case VisualizerOscilloscope:
		drawOscilloscope(f)
	case VisualizerBars:
		drawBars(f)
	case VisualizerDualBars:
		drawDualBars(f)
	}
	// waveform adds no layer of its own.
}

type segment struct {
	x1, y1, x2, y2 float64
	col            color.NRGBA
}

// drawTrapNation draws 120 radial bars around the artwork. The spectrum
// is mirrored so both halves of the circle match.
func drawTrapNation(f *frame) {
	const bars = 120
	radius := f.minDim * 0.25 * f.pulse
	step := 2 * math.Pi / bars
	reach := f.minDim * 0.3

	segs := make([]segment, 0, bars)
	for i := 0; i < bars; i++ {
		idx := i
		if i >= bars/2 {
			idx = bars - i
		}
		barLen := at(f.freq, idx*2) / 255 * reach
		if barLen <= 0 {
			continue
		}
		ang := float64(i)*step - math.Pi/2
		cos, sin := math.Cos(ang), math.Sin(ang)
		segs = append(segs, segment{
			x1:  f.cx + cos*(radius+10),
			y1:  f.cy + sin*(radius+10),
			x2:  f.cx + cos*(radius+10+barLen),
			y2:  f.cy + sin*(radius+10+barLen),
			col: hsla(float64(i)/bars*360+f.t/20, 0.8, 0.6, 0.8),
		})
	}
	if len(segs) == 0 {
		return
	}

	stroke := func(dc *gg.Context) {
		dc.SetLineWidth(4)
		dc.SetLineCap(gg.LineCapRound)
		for _, s := range segs {
			dc.SetColor(s.col)
			dc.DrawLine(s.x1, s.y1, s.x2, s.y2)
			dc.Stroke()
		}
	}
	outer := radius + 10 + reach + 4
	castShadow(f.dst, rectF(f.cx-outer, f.cy-outer, 2*outer, 2*outer), shadow{blur: 15, color: rgba(255, 255, 255, 0.5)}, stroke)
	stroke(f.dc)
}

// drawEclipse draws 32 translucent rays that rotate with time.
func drawEclipse(f *frame) {
	const rays = 32
	radius := f.minDim * 0.25 * f.pulse
	dc := f.dc
	dc.Push()
	dc.Translate(f.cx, f.cy)
	dc.Rotate(f.t / 5000)
	dc.SetColor(hsla(f.t/20, 0.7, 0.5, 0.2))
	for i := 0; i < rays; i++ {
		l := at(f.freq, i*4) / 255 * (f.minDim * 0.8)
		dc.Rotate(2 * math.Pi / rays)
		dc.MoveTo(0, 0)
		dc.LineTo(10, radius+l)
		dc.LineTo(-10, radius+l)
		dc.ClosePath()
		dc.Fill()
	}
	dc.Pop()
}

// drawMatrix drops a falling green streak in a random subset of 20px
// columns. Streak speed follows the column's frequency bin.
func (c *Compositor) drawMatrix(f *frame) {
	cols := int(f.w / 20)
	for i := 0; i < cols; i++ {
		val := at(f.freq, i%128)
		if c.rng.Float64() <= 0.95 {
			continue
		}
		x := float64(i * 20)
		speed := val/255*20 + 5
		head := math.Mod(f.t/2*speed, f.h)
		g := gg.NewLinearGradient(x, head, x, head-100)
		g.AddColorStop(0, matrixGreen)
		g.AddColorStop(1, transparent)
		f.dc.SetFillStyle(g)
		f.dc.DrawRectangle(x, head-100, 15, 100)
		f.dc.Fill()
	}
}

// drawOscilloscope traces the time-domain samples across the frame with
// a cyan glow.
func drawOscilloscope(f *frame) {
	n := len(f.wave)
	if n == 0 {
		return
	}
	slice := f.w / float64(n)
	trace := func(dc *gg.Context) {
		dc.SetLineWidth(6)
		dc.SetLineCap(gg.LineCapRound)
		dc.SetLineJoin(gg.LineJoinRound)
		dc.SetColor(scopeCyan)
		x := 0.0
		for i, v := range f.wave {
			y := float64(v) / 128 * f.h / 2
			if i == 0 {
				dc.MoveTo(x, y)
			} else {
				dc.LineTo(x, y)
			}
			x += slice
		}
		dc.Stroke()
	}
	castShadow(f.dst, f.dst.Bounds(), shadow{blur: 20, color: scopeCyan}, trace)
	trace(f.dc)
}

const barCount = 64

func drawBars(f *frame) {
	barW := f.w / barCount
	const gap = 2.0
	for i := 0; i < barCount; i++ {
		barH := at(f.freq, i*2) / 255 * (f.h * 0.6)
		if barH <= 0 {
			continue
		}
		x := float64(i) * (barW + gap)
		g := gg.NewLinearGradient(0, f.h, 0, f.h-barH)
		g.AddColorStop(0, barsBottom)
		g.AddColorStop(1, barsTop)
		f.dc.SetFillStyle(g)
		f.dc.DrawRectangle(x, f.h-barH, barW, barH)
		f.dc.Fill()
	}
}

func drawDualBars(f *frame) {
	barW := f.w / barCount
	const gap = 2.0
	mid := f.h / 2
	reflection := rgba(dualGreen.R, dualGreen.G, dualGreen.B, 0.3)
	for i := 0; i < barCount; i++ {
		barH := at(f.freq, i*2) / 255 * (f.h * 0.3)
		if barH <= 0 {
			continue
		}
		x := float64(i) * (barW + gap)
		f.dc.SetColor(dualGreen)
		f.dc.DrawRectangle(x, mid-barH, barW, barH)
		f.dc.Fill()
		f.dc.SetColor(reflection)
		f.dc.DrawRectangle(x, mid, barW, barH)
		f.dc.Fill()
	}
}
