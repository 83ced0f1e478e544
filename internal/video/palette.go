package video

import (
	"fmt"
	"os"
	"runtime"
	"strings"
	"sync"
)

// Darkest to brightest.
const asciiRamp = " .:-=+*#%@"

// ColorMode is the terminal's colour capability.
type ColorMode uint8

const (
	ColorOff     ColorMode = iota // NO_COLOR or dumb terminal
	ColorANSI16                   // basic 16-color
	ColorANSI256                  // 256-color
	ColorTrue                     // 24-bit truecolor
)

var (
	detectOnce sync.Once
	termColor  ColorMode
	lookupEnv  = os.LookupEnv
)

// DetectColorMode inspects NO_COLOR, COLORTERM and TERM once per process.
func DetectColorMode() ColorMode {
	detectOnce.Do(func() {
		termColor = colorModeFromEnv(lookupEnv, runtime.GOOS)
	})
	return termColor
}

func colorModeFromEnv(lookup func(string) (string, bool), goos string) ColorMode {
	if _, ok := lookup("NO_COLOR"); ok {
		return ColorOff
	}
	term, _ := lookup("TERM")
	ct, _ := lookup("COLORTERM")
	term = strings.ToLower(term)
	ct = strings.ToLower(ct)
	switch {
	case strings.Contains(ct, "truecolor"), strings.Contains(ct, "24bit"):
		return ColorTrue
	case strings.Contains(term, "256color"):
		return ColorANSI256
	case term == "dumb":
		return ColorOff
	case term == "" && goos == "windows":
		return ColorANSI16
	case term == "":
		return ColorOff
	default:
		return ColorANSI16
	}
}

func brightnessChar(lum uint8) byte {
	return asciiRamp[int(lum)*(len(asciiRamp)-1)/255]
}

type layer int

const (
	foreground layer = iota
	background
)

// colorSeq returns the escape selecting r,g,b for the given layer, or ""
// when colours are off.
func colorSeq(mode ColorMode, l layer, r, g, b uint8) string {
	switch mode {
	case ColorTrue:
		return fmt.Sprintf("\x1b[%d;2;%d;%d;%dm", 38+10*int(l), r, g, b)
	case ColorANSI256:
		idx := 16 + 36*(int(r)*5/255) + 6*(int(g)*5/255) + int(b)*5/255
		return fmt.Sprintf("\x1b[%d;5;%dm", 38+10*int(l), idx)
	case ColorANSI16:
		best := nearestANSI16(r, g, b)
		base := 30 + 10*int(l)
		if best >= 8 {
			base += 60
			best -= 8
		}
		return fmt.Sprintf("\x1b[%dm", base+best)
	default:
		return ""
	}
}

const ansiReset = "\x1b[0m"

func nearestANSI16(r, g, b uint8) int {
	best := 0
	bestDist := 1<<31 - 1
	for i, c := range ansi16Palette {
		dr := int(r) - int(c[0])
		dg := int(g) - int(c[1])
		db := int(b) - int(c[2])
		if d := dr*dr + dg*dg + db*db; d < bestDist {
			bestDist = d
			best = i
		}
	}
	return best
}

var ansi16Palette = [16][3]uint8{
	{0, 0, 0},       // black
	{205, 49, 49},   // red
	{13, 188, 121},  // green
	{229, 229, 16},  // yellow
	{36, 114, 200},  // blue
	{188, 63, 188},  // magenta
	{17, 168, 205},  // cyan
	{229, 229, 229}, // white
	{102, 102, 102}, // bright black
	{241, 76, 76},   // bright red
	{35, 209, 139},  // bright green
	{245, 245, 67},  // bright yellow
	{59, 142, 234},  // bright blue
	{214, 112, 214}, // bright magenta
	{41, 184, 219},  // bright cyan
	{255, 255, 255}, // bright white
}
