package video

import (
	"image"
	"math/rand"

	"github.com/sirupsen/logrus"

	"github.com/olivier-w/beatboy/internal/audio"
	"github.com/olivier-w/beatboy/internal/compositor"
)

// Idle preview data while nothing is playing.
const (
	idleLevel = 10
	idleWave  = 128
)

// PreviewConfig sets up an editor preview.
type PreviewConfig struct {
	Settings compositor.VideoSettings
	Assets   compositor.Assets
	Audio    *audio.SampleBuffer // nil shows the idle spectrum
	Expanded bool
	Seed     int64
	Logger   logrus.FieldLogger
}

// Preview draws editor frames at the preview surface size and renders
// them as terminal text. Editor aids such as the grid stay visible.
type Preview struct {
	comp     *compositor.Compositor
	analyser *compositor.Analyser
	renderer *Renderer
	dst      *image.RGBA
	freq     []byte
	wave     []byte
}

// NewPreview builds a preview surface for cfg.
func NewPreview(cfg PreviewConfig) (*Preview, error) {
	opts := []compositor.Option{
		compositor.WithRand(rand.New(rand.NewSource(cfg.Seed))),
		compositor.WithLogger(cfg.Logger),
	}
	if cfg.Assets != nil {
		opts = append(opts, compositor.WithAssets(cfg.Assets))
	}
	comp, err := compositor.New(cfg.Settings, opts...)
	if err != nil {
		return nil, err
	}
	p := &Preview{comp: comp, renderer: NewRenderer()}
	if cfg.Audio != nil {
		if p.analyser, err = compositor.NewAnalyser(cfg.Audio); err != nil {
			return nil, err
		}
		p.freq = make([]byte, compositor.BinCount)
		p.wave = make([]byte, compositor.BinCount)
	} else {
		p.freq, p.wave = compositor.IdleSpectrum(compositor.BinCount, idleLevel, idleWave)
	}
	w, h := cfg.Settings.PreviewDimensions(cfg.Expanded)
	p.dst = image.NewRGBA(image.Rect(0, 0, w, h))
	return p, nil
}

// SetRenderer swaps the terminal renderer.
func (p *Preview) SetRenderer(r *Renderer) { p.renderer = r }

// Frame composes the preview at elapsedMs. The image is reused.
func (p *Preview) Frame(elapsedMs float64) *image.RGBA {
	if p.analyser != nil {
		p.analyser.ByteFrequencyData(p.freq, elapsedMs)
		p.analyser.ByteTimeDomainData(p.wave, elapsedMs)
	}
	p.comp.DrawFrame(p.dst, elapsedMs, p.freq, p.wave)
	return p.dst
}

// Text composes the frame at elapsedMs and fits it into termW×termH cells.
func (p *Preview) Text(elapsedMs float64, termW, termH int) string {
	img := p.Frame(elapsedMs)
	b := img.Bounds()
	cols, rows := FitCells(termW, termH, b.Dx(), b.Dy())
	return p.renderer.Render(img, cols, rows)
}
