package compositor

import (
	"fmt"
	"image/color"
	"math"
	"strconv"
	"strings"
)

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// clampByte rounds v to a byte the way a clamped pixel array stores it.
func clampByte(v float64) uint8 {
	if v <= 0 || math.IsNaN(v) {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(math.RoundToEven(v))
}

func rgba(r, g, b uint8, a float64) color.NRGBA {
	return color.NRGBA{R: r, G: g, B: b, A: uint8(math.Round(clamp01(a) * 255))}
}

// hsla converts CSS hsla(h, s%, l%, a) with s and l in 0..1.
func hsla(h, s, l, a float64) color.NRGBA {
	h = math.Mod(h, 360)
	if h < 0 {
		h += 360
	}
	h /= 360
	s = clamp01(s)
	l = clamp01(l)

	if s == 0 {
		v := clampByte(l * 255)
		return rgba(v, v, v, a)
	}
	var q float64
	if l < 0.5 {
		q = l * (1 + s)
	} else {
		q = l + s - l*s
	}
	p := 2*l - q
	r := hueToRGB(p, q, h+1.0/3)
	g := hueToRGB(p, q, h)
	b := hueToRGB(p, q, h-1.0/3)
	return rgba(clampByte(r*255), clampByte(g*255), clampByte(b*255), a)
}

func hueToRGB(p, q, t float64) float64 {
	if t < 0 {
		t++
	}
	if t > 1 {
		t--
	}
	switch {
	case t < 1.0/6:
		return p + (q-p)*6*t
	case t < 0.5:
		return q
	case t < 2.0/3:
		return p + (q-p)*(2.0/3-t)*6
	default:
		return p
	}
}

// parseHex reads #rgb, #rrggbb and #rrggbbaa colours.
func parseHex(s string) (color.NRGBA, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) == 6 {
		h += "ff"
	}
	if len(h) != 8 {
		return color.NRGBA{}, fmt.Errorf("invalid colour %q", s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid colour %q: %w", s, err)
	}
	return color.NRGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}

// overlayColor falls back to white for unparsable overlay colours.
func overlayColor(s string) color.NRGBA {
	c, err := parseHex(s)
	if err != nil {
		return color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	}
	return c
}

var (
	transparent  = color.NRGBA{}
	bgInner      = mustHex("#1f1f22")
	bgOuter      = mustHex("#09090b")
	artFill      = mustHex("#18181b")
	artGlyph     = mustHex("#27272a")
	badgeRed     = mustHex("#dc2626")
	barsBottom   = mustHex("#ec4899")
	barsTop      = mustHex("#8b5cf6")
	dualGreen    = mustHex("#10b981")
	scopeCyan    = mustHex("#00f0ff")
	matrixGreen  = mustHex("#00ff00")
	gridCyan     = mustHex("#06b6d4")
	white        = mustHex("#ffffff")
	shadowStrong = rgba(0, 0, 0, 0.8)
	shadowSoft   = rgba(0, 0, 0, 0.5)
)

func mustHex(s string) color.NRGBA {
	c, err := parseHex(s)
	if err != nil {
		panic(err)
	}
	return c
}
