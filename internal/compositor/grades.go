package compositor

import (
	"image"
	"math"
	"math/rand"

	"github.com/fogleman/gg"
)

// Grade is a full-frame post pass over the composed pixels.
type Grade interface {
	Name() GradeKind
	Apply(dst *image.RGBA, rng *rand.Rand)
}

// pixelFunc maps one pixel's colour channels.
type pixelFunc func(r, g, b float64, rng *rand.Rand) (float64, float64, float64)

type grade struct {
	name  GradeKind
	pixel pixelFunc
	after func(dst *image.RGBA, rng *rand.Rand)
}

func (g grade) Name() GradeKind { return g.name }

func (g grade) Apply(dst *image.RGBA, rng *rand.Rand) {
	if g.pixel != nil {
		filterPixels(dst, g.pixel, rng)
	}
	if g.after != nil {
		g.after(dst, rng)
	}
}

var grades = map[GradeKind]Grade{
	GradeNone:         grade{name: GradeNone},
	GradeNoir:         grade{name: GradeNoir, pixel: noirPixel, after: vignette},
	GradeSepia:        grade{name: GradeSepia, pixel: sepiaPixel},
	GradeBW:           grade{name: GradeBW, pixel: bwPixel},
	GradeHighContrast: grade{name: GradeHighContrast, pixel: contrastPixel},
	GradeCyberpunk:    grade{name: GradeCyberpunk, pixel: cyberpunkPixel, after: cyanScanlines},
	GradeDreamy:       grade{name: GradeDreamy, after: dreamyGlow},
	GradeVHS:          grade{name: GradeVHS, after: func(dst *image.RGBA, rng *rand.Rand) { tape(dst, rng, false) }},
	GradeGlitch:       grade{name: GradeGlitch, after: func(dst *image.RGBA, rng *rand.Rand) { tape(dst, rng, true) }},
	Grade1980s:        grade{name: Grade1980s, pixel: eightiesPixel, after: filmGrain},
}

// GradeFor returns the grade for kind; unknown kinds grade nothing.
func GradeFor(kind GradeKind) Grade {
	if g, ok := grades[kind]; ok {
		return g
	}
	return grades[GradeNone]
}

// filterPixels rewrites every pixel through fn, leaving alpha alone.
func filterPixels(dst *image.RGBA, fn pixelFunc, rng *rand.Rand) {
	w := dst.Bounds().Dx()
	for y := 0; y < dst.Bounds().Dy(); y++ {
		row := dst.Pix[y*dst.Stride : y*dst.Stride+w*4]
		for i := 0; i < len(row); i += 4 {
			r, g, b := fn(float64(row[i]), float64(row[i+1]), float64(row[i+2]), rng)
			row[i] = clampByte(r)
			row[i+1] = clampByte(g)
			row[i+2] = clampByte(b)
		}
	}
}

func noirPixel(r, g, b float64, rng *rand.Rand) (float64, float64, float64) {
	grain := (rng.Float64() - 0.5) * 30
	lum := r*0.299 + g*0.587 + b*0.114
	lum = math.Min(255, math.Max(0, lum+grain))
	lum = (lum-128)*1.5 + 128
	return lum, lum, lum
}

func vignette(dst *image.RGBA, _ *rand.Rand) {
	w, h := float64(dst.Bounds().Dx()), float64(dst.Bounds().Dy())
	minDim := math.Min(w, h)
	dc := gg.NewContextForRGBA(dst)
	g := gg.NewRadialGradient(w/2, h/2, minDim*0.4, w/2, h/2, minDim*0.8)
	g.AddColorStop(0, transparent)
	g.AddColorStop(1, rgba(0, 0, 0, 0.8))
	dc.SetFillStyle(g)
	dc.DrawRectangle(0, 0, w, h)
	dc.Fill()
}

func sepiaPixel(r, g, b float64, _ *rand.Rand) (float64, float64, float64) {
	tr := r*0.393 + g*0.769 + b*0.189
	tg := r*0.349 + g*0.686 + b*0.168
	tb := r*0.272 + g*0.534 + b*0.131
	return math.Min(255, tr), math.Min(255, tg), math.Min(255, tb)
}

func bwPixel(r, g, b float64, _ *rand.Rand) (float64, float64, float64) {
	avg := (r + g + b) / 3
	return avg, avg, avg
}

// contrastFactor is the classic contrast formula at contrast 128.
const contrastFactor = (259.0 * (128 + 255)) / (255 * (259 - 128))

func contrastPixel(r, g, b float64, _ *rand.Rand) (float64, float64, float64) {
	return contrastFactor*(r-128) + 128, contrastFactor*(g-128) + 128, contrastFactor*(b-128) + 128
}

func cyberpunkPixel(r, g, b float64, _ *rand.Rand) (float64, float64, float64) {
	return math.Min(255, r*1.2), g * 0.8, math.Min(255, b*1.4)
}

func cyanScanlines(dst *image.RGBA, _ *rand.Rand) {
	cyan := rgba(0, 255, 255, 1)
	for y := 0; y < dst.Bounds().Dy(); y += 8 {
		blendRows(dst, y, y+1, cyan, 0.05)
	}
}

// dreamyGlow lays a pink-to-violet radial wash over the frame with the
// overlay blend mode.
func dreamyGlow(dst *image.RGBA, _ *rand.Rand) {
	w, h := dst.Bounds().Dx(), dst.Bounds().Dy()
	cx, cy := float64(w)/2, float64(h)/2
	radius := math.Min(float64(w), float64(h)) * 1.5
	for y := 0; y < h; y++ {
		row := dst.Pix[y*dst.Stride : y*dst.Stride+w*4]
		for x := 0; x < w; x++ {
			t := clamp01(math.Hypot(float64(x)+0.5-cx, float64(y)+0.5-cy) / radius)
			src := [3]float64{255 + (100-255)*t, 200 - 200*t, 200 + (100-200)*t}
			a := 0.15 + (0.1-0.15)*t
			i := x * 4
			for ch := 0; ch < 3; ch++ {
				cb := float64(row[i+ch]) / 255
				cs := src[ch] / 255
				var mix float64
				if cb <= 0.5 {
					mix = 2 * cs * cb
				} else {
					mix = 1 - 2*(1-cs)*(1-cb)
				}
				row[i+ch] = clampByte((a*mix + (1-a)*cb) * 255)
			}
		}
	}
}

// tape shifts the red channel sideways and darkens every other scanline
// pair. The glitch variant sometimes shifts further and tears a band of
// rows horizontally.
func tape(dst *image.RGBA, rng *rand.Rand, glitch bool) {
	offset := 12
	if glitch && rng.Float64() > 0.9 {
		offset = 200
	}
	pix := dst.Pix
	orig := append([]byte(nil), pix...)
	for i := 0; i < len(pix); i += 4 {
		if i+offset < len(pix) {
			pix[i] = orig[i+offset]
		}
	}

	h := dst.Bounds().Dy()
	black := rgba(0, 0, 0, 1)
	for y := 0; y < h; y += 4 {
		blendRows(dst, y, y+2, black, 0.1)
	}

	if glitch && rng.Float64() > 0.8 {
		band := int(rng.Float64() * 50)
		y0 := int(rng.Float64() * float64(h))
		dx := int((rng.Float64() - 0.5) * 40)
		tear(dst, y0, band, dx)
	}
}

// tear copies rows [y0, y0+n) back onto themselves shifted by dx pixels.
func tear(dst *image.RGBA, y0, n, dx int) {
	if n <= 0 {
		return
	}
	w, h := dst.Bounds().Dx(), dst.Bounds().Dy()
	for y := y0; y < y0+n && y < h; y++ {
		row := dst.Pix[y*dst.Stride : y*dst.Stride+w*4]
		src := append([]byte(nil), row...)
		for x := 0; x < w; x++ {
			tx := x + dx
			if tx < 0 || tx >= w {
				continue
			}
			copy(row[tx*4:tx*4+4], src[x*4:x*4+4])
		}
	}
}

func eightiesPixel(r, g, b float64, _ *rand.Rand) (float64, float64, float64) {
	return r * 1.1, g, b*0.8 + 20
}

func filmGrain(dst *image.RGBA, rng *rand.Rand) {
	w := dst.Bounds().Dx()
	for y := 0; y < dst.Bounds().Dy(); y++ {
		row := dst.Pix[y*dst.Stride : y*dst.Stride+w*4]
		for i := 0; i < len(row); i += 4 {
			if rng.Float64() > 0.8 {
				v := rng.Float64() * 30
				row[i] = clampByte(float64(row[i]) + v)
				row[i+1] = clampByte(float64(row[i+1]) + v)
				row[i+2] = clampByte(float64(row[i+2]) + v)
			}
		}
	}
}
