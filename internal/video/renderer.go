package video

import (
	"image"
	"strings"
)

// Renderer turns composited frames into terminal text. Colour terminals
// get "▀" cells carrying two pixel rows each (fg top, bg bottom); without
// colour every cell is a brightness character.
type Renderer struct {
	mode ColorMode
	sb   strings.Builder
}

// NewRenderer uses the current terminal's colour capability.
func NewRenderer() *Renderer {
	return &Renderer{mode: DetectColorMode()}
}

// NewRendererMode forces a colour mode.
func NewRendererMode(mode ColorMode) *Renderer {
	return &Renderer{mode: mode}
}

// Mode returns the colour mode in use.
func (r *Renderer) Mode() ColorMode { return r.mode }

// Render samples img into cols×rows terminal cells.
func (r *Renderer) Render(img *image.RGBA, cols, rows int) string {
	b := img.Bounds()
	if b.Empty() || cols <= 0 || rows <= 0 {
		return ""
	}
	r.sb.Reset()
	r.sb.Grow(cols * rows * 24)
	if r.mode == ColorOff {
		r.renderASCII(img, cols, rows)
	} else {
		r.renderHalfBlock(img, cols, rows)
	}
	return r.sb.String()
}

func (r *Renderer) renderHalfBlock(img *image.RGBA, cols, rows int) {
	b := img.Bounds()
	pixelRows := rows * 2
	var lastFg, lastBg string
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			x := b.Min.X + col*b.Dx()/cols
			top := img.RGBAAt(x, b.Min.Y+row*2*b.Dy()/pixelRows)
			bot := img.RGBAAt(x, b.Min.Y+(row*2+1)*b.Dy()/pixelRows)

			fg := colorSeq(r.mode, foreground, top.R, top.G, top.B)
			bg := colorSeq(r.mode, background, bot.R, bot.G, bot.B)
			if fg != lastFg {
				r.sb.WriteString(fg)
				lastFg = fg
			}
			if bg != lastBg {
				r.sb.WriteString(bg)
				lastBg = bg
			}
			r.sb.WriteString("▀")
		}
		r.sb.WriteString(ansiReset)
		lastFg, lastBg = "", ""
		if row < rows-1 {
			r.sb.WriteByte('\n')
		}
	}
}

func (r *Renderer) renderASCII(img *image.RGBA, cols, rows int) {
	b := img.Bounds()
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			px := img.RGBAAt(b.Min.X+col*b.Dx()/cols, b.Min.Y+row*b.Dy()/rows)
			r.sb.WriteByte(brightnessChar(luminance(px.R, px.G, px.B)))
		}
		if row < rows-1 {
			r.sb.WriteByte('\n')
		}
	}
}

// luminance is ITU-R BT.601 in integer math.
func luminance(r, g, b uint8) uint8 {
	return uint8((299*int(r) + 587*int(g) + 114*int(b)) / 1000)
}

// FitCells returns the largest cols×rows that shows a frameW×frameH image
// without distortion inside termW×termH cells, taking cells to be twice
// as tall as wide.
func FitCells(termW, termH, frameW, frameH int) (cols, rows int) {
	if termW <= 0 || termH <= 0 || frameW <= 0 || frameH <= 0 {
		return 0, 0
	}
	// Cell rows needed per column of width.
	rowsPerCol := 0.5 * float64(frameH) / float64(frameW)

	cols = termW
	rows = int(float64(cols)*rowsPerCol + 0.5)
	if rows > termH {
		rows = termH
		cols = int(float64(rows)/rowsPerCol + 0.5)
	}
	if cols < 4 {
		cols = 4
	}
	if rows < 2 {
		rows = 2
	}
	return cols, rows
}
