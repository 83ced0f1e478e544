package compositor

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"os"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
)

// fontSet caches faces of one typeface by pixel size.
type fontSet struct {
	mu    sync.Mutex
	font  *truetype.Font
	faces map[float64]font.Face
}

// newFontSet parses the TTF at path, or the bundled bold face when path
// is empty.
func newFontSet(path string) (*fontSet, error) {
	data := gobold.TTF
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read font: %w", err)
		}
		data = b
	}
	f, err := truetype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	return &fontSet{font: f, faces: make(map[float64]font.Face)}, nil
}

func (fs *fontSet) face(px float64) font.Face {
	key := math.Round(px*4) / 4
	if key < 1 {
		key = 1
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if f, ok := fs.faces[key]; ok {
		return f
	}
	// 72 DPI makes points equal pixels.
	f := truetype.NewFace(fs.font, &truetype.Options{Size: key, DPI: 72, Hinting: font.HintingNone})
	fs.faces[key] = f
	return f
}

// drawCentered draws s centred on (x, y) with a middle baseline.
func drawCentered(dc *gg.Context, face font.Face, s string, x, y float64) {
	dc.SetFontFace(face)
	w, _ := dc.MeasureString(s)
	m := face.Metrics()
	asc := float64(m.Ascent) / 64
	desc := float64(m.Descent) / 64
	dc.DrawString(s, x-w/2, y+(asc-desc)/2)
}

// shadow mirrors the canvas shadowBlur/shadowColor/shadowOffset state.
type shadow struct {
	blur   float64
	color  color.NRGBA
	dx, dy float64
}

// castShadow draws the blurred silhouette of whatever shape paints,
// tinted with the shadow colour, into dst. bounds encloses the shape in
// dst coordinates. Blurring happens on a downscaled layer for large radii.
func castShadow(dst *image.RGBA, bounds image.Rectangle, sh shadow, shape func(dc *gg.Context)) {
	if sh.color.A == 0 || (sh.blur <= 0 && sh.dx == 0 && sh.dy == 0) {
		return
	}
	off := image.Pt(int(math.Round(sh.dx)), int(math.Round(sh.dy)))
	pad := int(math.Ceil(sh.blur*1.5)) + 2
	r := bounds.Inset(-pad).Intersect(dst.Bounds().Sub(off).Inset(-pad))
	if r.Empty() {
		return
	}

	ds := 1
	switch {
	case sh.blur >= 16:
		ds = 4
	case sh.blur >= 6:
		ds = 2
	}
	lw := (r.Dx() + ds - 1) / ds
	lh := (r.Dy() + ds - 1) / ds
	layer := gg.NewContext(lw, lh)
	layer.Scale(1/float64(ds), 1/float64(ds))
	layer.Translate(-float64(r.Min.X), -float64(r.Min.Y))
	shape(layer)

	var mask *image.NRGBA
	if sigma := sh.blur / 2 / float64(ds); sigma > 0 {
		mask = imaging.Blur(layer.Image(), sigma)
	} else {
		mask = imaging.Clone(layer.Image())
	}
	if ds > 1 {
		mask = imaging.Resize(mask, r.Dx(), r.Dy(), imaging.Linear)
	}

	alpha := image.NewAlpha(image.Rect(0, 0, r.Dx(), r.Dy()))
	for y := 0; y < r.Dy(); y++ {
		src := mask.Pix[y*mask.Stride:]
		row := alpha.Pix[y*alpha.Stride:]
		for x := 0; x < r.Dx(); x++ {
			row[x] = uint8(uint32(src[x*4+3]) * uint32(sh.color.A) / 255)
		}
	}
	tint := image.NewUniform(color.NRGBA{R: sh.color.R, G: sh.color.G, B: sh.color.B, A: 255})
	draw.DrawMask(dst, r.Add(off), tint, image.Point{}, alpha, image.Point{}, draw.Over)
}

// rectF converts a float rectangle to the enclosing integer rectangle.
func rectF(x, y, w, h float64) image.Rectangle {
	return image.Rect(int(math.Floor(x)), int(math.Floor(y)), int(math.Ceil(x+w)), int(math.Ceil(y+h)))
}

// blendRows paints c at alpha a over rows [y0, y1) using source-over.
func blendRows(dst *image.RGBA, y0, y1 int, c color.NRGBA, a float64) {
	b := dst.Bounds()
	if y0 < b.Min.Y {
		y0 = b.Min.Y
	}
	if y1 > b.Max.Y {
		y1 = b.Max.Y
	}
	sr, sg, sb := float64(c.R), float64(c.G), float64(c.B)
	for y := y0; y < y1; y++ {
		row := dst.Pix[(y-b.Min.Y)*dst.Stride : (y-b.Min.Y)*dst.Stride+b.Dx()*4]
		for i := 0; i < len(row); i += 4 {
			row[i] = clampByte(float64(row[i]) + a*(sr-float64(row[i])))
			row[i+1] = clampByte(float64(row[i+1]) + a*(sg-float64(row[i+1])))
			row[i+2] = clampByte(float64(row[i+2]) + a*(sb-float64(row[i+2])))
			row[i+3] = clampByte(float64(row[i+3]) + a*(255-float64(row[i+3])))
		}
	}
}

// screenDisc paints an antialiased disc with the screen blend mode at
// opacity a.
func screenDisc(dst *image.RGBA, cx, cy, radius float64, c color.NRGBA, a float64) {
	b := dst.Bounds()
	area := rectF(cx-radius-1, cy-radius-1, 2*radius+2, 2*radius+2).Intersect(b)
	if area.Empty() {
		return
	}
	src := [3]float64{float64(c.R), float64(c.G), float64(c.B)}
	for y := area.Min.Y; y < area.Max.Y; y++ {
		for x := area.Min.X; x < area.Max.X; x++ {
			d := math.Hypot(float64(x)+0.5-cx, float64(y)+0.5-cy)
			cov := clamp01(radius + 0.5 - d)
			if cov == 0 {
				continue
			}
			k := a * cov
			i := dst.PixOffset(x, y)
			for ch := 0; ch < 3; ch++ {
				d := float64(dst.Pix[i+ch])
				screen := d + src[ch] - d*src[ch]/255
				dst.Pix[i+ch] = clampByte(d + k*(screen-d))
			}
			dst.Pix[i+3] = clampByte(float64(dst.Pix[i+3]) + k*(255-float64(dst.Pix[i+3])))
		}
	}
}
