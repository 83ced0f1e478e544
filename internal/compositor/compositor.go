// Package compositor draws the audio-reactive video frames: background,
// one of eight visualizers, centre artwork, logo, text overlays, the
// editor grid and a colour grade.
package compositor

import (
	"image"
	"image/color"
	"image/draw"
	"math"
	"math/rand"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"github.com/sirupsen/logrus"

	"github.com/olivier-w/beatboy/internal/logging"
)

// FrameSource supplies background video frames by timeline position.
type FrameSource interface {
	FrameAt(elapsedMs float64) (image.Image, bool)
}

type noAssets struct{}

func (noAssets) Get(string) (image.Image, bool) { return nil, false }

// Option configures a Compositor.
type Option func(*Compositor)

// WithAssets sets the image source for artwork, logo and background.
func WithAssets(a Assets) Option {
	return func(c *Compositor) {
		if a != nil {
			c.assets = a
		}
	}
}

// WithFrameSource sets the background video decoder.
func WithFrameSource(f FrameSource) Option {
	return func(c *Compositor) { c.frames = f }
}

// WithRand sets the random source used by particles, matrix rain and the
// noisy grades.
func WithRand(r *rand.Rand) Option {
	return func(c *Compositor) {
		if r != nil {
			c.rng = r
		}
	}
}

// WithParticleCap bounds the particle pool. Zero means unbounded.
func WithParticleCap(n int) Option {
	return func(c *Compositor) { c.maxParticles = n }
}

// WithLogger sets the logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(c *Compositor) { c.log = logging.OrDiscard(l) }
}

// Compositor owns the per-session drawing state. It is not safe for
// concurrent use; the particle pool belongs to a single caller.
type Compositor struct {
	settings     VideoSettings
	assets       Assets
	frames       FrameSource
	rng          *rand.Rand
	maxParticles int
	particles    []Particle
	fonts        *fontSet
	fontPath     string
	backdrop     backdropCache
	log          logrus.FieldLogger
}

type backdropCache struct {
	src  image.Image
	w, h int
	img  *image.NRGBA
}

// New validates settings and loads the overlay font.
func New(settings VideoSettings, opts ...Option) (*Compositor, error) {
	c := &Compositor{
		assets: noAssets{},
		rng:    rand.New(rand.NewSource(1)),
		log:    logging.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if err := c.SetSettings(settings); err != nil {
		return nil, err
	}
	return c, nil
}

// Settings returns a copy of the active settings.
func (c *Compositor) Settings() VideoSettings {
	s := c.settings
	s.Overlays = append([]Overlay(nil), c.settings.Overlays...)
	return s
}

// SetSettings replaces the settings, reloading the font when its path
// changes. Switching visualizer empties the particle pool.
func (c *Compositor) SetSettings(s VideoSettings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	if c.fonts == nil || s.FontPath != c.fontPath {
		fs, err := newFontSet(s.FontPath)
		if err != nil {
			return err
		}
		c.fonts = fs
		c.fontPath = s.FontPath
	}
	if s.Visualizer != c.settings.Visualizer {
		c.particles = nil
	}
	s.Overlays = append([]Overlay(nil), s.Overlays...)
	c.settings = s
	return nil
}

// frame carries the per-call values every stage reads.
type frame struct {
	dst    *image.RGBA
	dc     *gg.Context
	w, h   float64
	cx, cy float64
	minDim float64
	t      float64
	freq   []byte
	wave   []byte
	bass   float64
	pulse  float64
}

// at returns b[i], or 0 past the end.
func at(b []byte, i int) float64 {
	if i < 0 || i >= len(b) {
		return 0
	}
	return float64(b[i])
}

// BassLevel averages the six lowest frequency bins.
func BassLevel(freq []byte) float64 {
	var sum float64
	for i := 0; i < 6; i++ {
		sum += at(freq, i)
	}
	return sum / 6
}

// Pulse is the bass-driven scale factor for radii.
func Pulse(bass float64) float64 {
	return 1 + (bass/255)*0.15
}

// DrawFrame composes one frame into dst, which must start at the origin.
// freq holds byte frequency bins and timeData byte time-domain samples.
// elapsedMs only drives animation phase.
func (c *Compositor) DrawFrame(dst *image.RGBA, elapsedMs float64, freq, timeData []byte) {
	b := dst.Bounds()
	w, h := float64(b.Dx()), float64(b.Dy())
	bass := BassLevel(freq)
	f := &frame{
		dst:    dst,
		dc:     gg.NewContextForRGBA(dst),
		w:      w,
		h:      h,
		cx:     w / 2,
		cy:     h / 2,
		minDim: math.Min(w, h),
		t:      elapsedMs,
		freq:   freq,
		wave:   timeData,
		bass:   bass,
		pulse:  Pulse(bass),
	}

	c.clear(f)
	c.drawBackground(f)
	c.drawVisualizer(f)
	c.drawArtwork(f)
	c.drawLogo(f)
	c.drawOverlays(f)
	c.drawGrid(f)
	GradeFor(c.settings.ColorGrade).Apply(dst, c.rng)
}

func (c *Compositor) clear(f *frame) {
	video := c.settings.BackgroundType == BackgroundVideo
	switch {
	case c.settings.MotionBlur && !video:
		f.dc.SetColor(rgba(0, 0, 0, 0.15))
		f.dc.DrawRectangle(0, 0, f.w, f.h)
		f.dc.Fill()
	case !video:
		f.dc.SetColor(transparent)
		f.dc.Clear()
	}
}

func (c *Compositor) drawBackground(f *frame) {
	s := c.settings
	switch {
	case s.BackgroundType == BackgroundVideo && c.frames != nil:
		// A frame that is not decoded yet leaves the previous one in place.
		img, ok := c.frames.FrameAt(f.t)
		if !ok {
			return
		}
		if sz := img.Bounds().Size(); sz.X != f.dst.Bounds().Dx() || sz.Y != f.dst.Bounds().Dy() {
			img = imaging.Fill(img, f.dst.Bounds().Dx(), f.dst.Bounds().Dy(), imaging.Center, imaging.Linear)
		}
		draw.Draw(f.dst, f.dst.Bounds(), img, img.Bounds().Min, draw.Src)
		f.dc.SetColor(rgba(0, 0, 0, 0.6))
		f.dc.DrawRectangle(0, 0, f.w, f.h)
		f.dc.Fill()
	case s.BackgroundType == BackgroundImage && s.BackgroundURL != "":
		img, ok := c.assets.Get(s.BackgroundURL)
		if !ok {
			c.drawFallback(f)
			return
		}
		bd := c.backdropFor(img, f.dst.Bounds().Dx(), f.dst.Bounds().Dy())
		zoom := 1 + (f.bass/255)*0.05
		f.dc.Push()
		f.dc.Translate(f.cx, f.cy)
		f.dc.Scale(zoom, zoom)
		f.dc.Translate(-f.cx, -f.cy)
		f.dc.DrawImage(bd, 0, 0)
		f.dc.Pop()
	default:
		c.drawFallback(f)
	}
}

func (c *Compositor) drawFallback(f *frame) {
	g := gg.NewRadialGradient(f.cx, f.cy, 0, f.cx, f.cy, math.Max(f.w, f.h))
	g.AddColorStop(0, bgInner)
	g.AddColorStop(1, bgOuter)
	f.dc.SetFillStyle(g)
	f.dc.DrawRectangle(0, 0, f.w, f.h)
	f.dc.Fill()
}

// backdropFor returns img cover-fitted to w×h, blurred and darkened.
// The result is reused until the image or frame size changes.
func (c *Compositor) backdropFor(img image.Image, w, h int) *image.NRGBA {
	bc := &c.backdrop
	if bc.img != nil && bc.src == img && bc.w == w && bc.h == h {
		return bc.img
	}
	out := imaging.Fill(img, w, h, imaging.Center, imaging.Linear)
	out = imaging.Blur(out, 20)
	out = imaging.AdjustFunc(out, func(px color.NRGBA) color.NRGBA {
		return color.NRGBA{
			R: uint8(float64(px.R) * 0.4),
			G: uint8(float64(px.G) * 0.4),
			B: uint8(float64(px.B) * 0.4),
			A: px.A,
		}
	})
	*bc = backdropCache{src: img, w: w, h: h, img: out}
	c.log.WithFields(logrus.Fields{
		"function": "Compositor.backdropFor",
		"width":    w,
		"height":   h,
	}).Debug("Prepared background image")
	return out
}

func (c *Compositor) drawArtwork(f *frame) {
	s := c.settings
	r := f.minDim * 0.25 * f.pulse
	round := s.Visualizer == VisualizerTrapNation || s.Visualizer == VisualizerEclipse
	outline := func(dc *gg.Context) {
		if round {
			dc.DrawCircle(f.cx, f.cy, r)
		} else {
			dc.DrawRoundedRectangle(f.cx-r, f.cy-r, 2*r, 2*r, 20*f.pulse)
		}
	}
	ring := rgba(255, 255, 255, 0.2)
	if s.Visualizer == VisualizerTrapNation {
		ring = rgba(255, 255, 255, 0.8)
	}
	strokeRing := func(dc *gg.Context) {
		outline(dc)
		dc.SetColor(ring)
		dc.SetLineWidth(4)
		dc.Stroke()
	}

	// The clipped contents hide the shadow inside the frame, so only the
	// ring casts one.
	castShadow(f.dst, rectF(f.cx-r-2, f.cy-r-2, 2*r+4, 2*r+4), shadow{blur: 30 * f.pulse, color: shadowStrong}, strokeRing)

	f.dc.Push()
	outline(f.dc)
	f.dc.Clip()
	if img, ok := c.assets.Get(s.ArtworkURL); ok {
		sz := img.Bounds().Size()
		f.dc.Push()
		f.dc.Translate(f.cx-r, f.cy-r)
		f.dc.Scale(2*r/float64(sz.X), 2*r/float64(sz.Y))
		f.dc.DrawImage(img, 0, 0)
		f.dc.Pop()
	} else {
		outline(f.dc)
		f.dc.SetColor(artFill)
		f.dc.Fill()
		f.dc.SetColor(artGlyph)
		drawCentered(f.dc, c.fonts.face(r), "♫", f.cx, f.cy)
	}
	f.dc.ResetClip()
	f.dc.Pop()

	strokeRing(f.dc)
}

func (c *Compositor) drawLogo(f *frame) {
	s := c.settings
	if s.LogoURL == "" {
		return
	}
	img, ok := c.assets.Get(s.LogoURL)
	if !ok {
		return
	}
	sz := img.Bounds().Size()
	if sz.X == 0 || sz.Y == 0 {
		return
	}
	scale := orDefault(s.LogoScale, 1)
	logoW := 120 * scale
	logoH := float64(sz.Y) / float64(sz.X) * logoW
	x := orDefault(s.LogoX, 0.05) * f.w
	y := orDefault(s.LogoY, 0.05) * f.h

	f.dc.Push()
	f.dc.Translate(x, y)
	f.dc.Scale(logoW/float64(sz.X), logoH/float64(sz.Y))
	f.dc.DrawImage(img, 0, 0)
	f.dc.Pop()
}

func orDefault(v, def float64) float64 {
	if v == 0 {
		return def
	}
	return v
}

func (c *Compositor) drawOverlays(f *frame) {
	scale := f.w / 1920
	for _, o := range c.settings.Overlays {
		if !o.Visible || o.Text == "" {
			continue
		}
		size := o.FontSize * scale
		if size <= 0 {
			continue
		}
		face := c.fonts.face(size)
		x, y := o.X*f.w, o.Y*f.h
		f.dc.SetFontFace(face)
		tw, _ := f.dc.MeasureString(o.Text)

		if o.ID == OverlayPrice {
			padH := size * 0.8
			bgW := tw + padH*2
			bgH := size * 1.6
			pill := func(dc *gg.Context) {
				dc.SetColor(badgeRed)
				dc.DrawRoundedRectangle(x-bgW/2, y-bgH/2, bgW, bgH, bgH/2)
				dc.Fill()
			}
			castShadow(f.dst, rectF(x-bgW/2, y-bgH/2, bgW, bgH), shadow{blur: 20, color: shadowSoft, dy: 5}, pill)
			pill(f.dc)
			f.dc.SetColor(white)
			drawCentered(f.dc, face, o.Text, x, y)
			continue
		}

		col := overlayColor(o.Color)
		text := func(dc *gg.Context) {
			dc.SetColor(col)
			drawCentered(dc, face, o.Text, x, y)
		}
		castShadow(f.dst, rectF(x-tw/2, y-size, tw, 2*size), shadow{blur: 8, color: shadowStrong, dx: 2, dy: 2}, text)
		text(f.dc)
	}
}

func (c *Compositor) drawGrid(f *frame) {
	if !c.settings.ShowGrid || c.settings.IsGenerating {
		return
	}
	dc := f.dc
	dc.SetColor(rgba(gridCyan.R, gridCyan.G, gridCyan.B, 0.3))
	dc.SetLineWidth(1)
	stepX := f.w * 0.1
	stepY := f.h * 0.1
	for x := 0.0; x <= f.w; x += stepX {
		dc.MoveTo(x, 0)
		dc.LineTo(x, f.h)
	}
	for y := 0.0; y <= f.h; y += stepY {
		dc.MoveTo(0, y)
		dc.LineTo(f.w, y)
	}
	dc.Stroke()
}
