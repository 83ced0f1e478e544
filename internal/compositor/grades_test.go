package compositor

import (
	"image"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noisyFrame(w, h int, seed int64) *image.RGBA {
	rng := rand.New(rand.NewSource(seed))
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = byte(rng.Intn(256))
		img.Pix[i+1] = byte(rng.Intn(256))
		img.Pix[i+2] = byte(rng.Intn(256))
		img.Pix[i+3] = 255
	}
	return img
}

func TestGradeForCoversEveryKind(t *testing.T) {
	for _, k := range Grades() {
		assert.Equal(t, k, GradeFor(k).Name())
	}
	assert.Equal(t, GradeNone, GradeFor("teal").Name())
}

func TestGradeNoneIsIdentity(t *testing.T) {
	img := noisyFrame(16, 8, 1)
	want := append([]byte(nil), img.Pix...)
	GradeFor(GradeNone).Apply(img, rand.New(rand.NewSource(1)))
	assert.Equal(t, want, img.Pix)
}

func TestBWAveragesChannels(t *testing.T) {
	img := noisyFrame(64, 32, 7)
	orig := append([]byte(nil), img.Pix...)
	GradeFor(GradeBW).Apply(img, nil)

	for i := 0; i < len(orig); i += 4 {
		avg := (int(orig[i]) + int(orig[i+1]) + int(orig[i+2])) / 3
		for ch := 0; ch < 3; ch++ {
			assert.InDelta(t, avg, int(img.Pix[i+ch]), 1, "pixel %d channel %d", i/4, ch)
		}
		assert.Equal(t, orig[i+3], img.Pix[i+3])
	}
}

func TestSepiaClampsHighlights(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 1, 1))
	copy(img.Pix, []byte{255, 255, 255, 255})
	GradeFor(GradeSepia).Apply(img, nil)
	assert.Equal(t, []byte{255, 255, 239, 255}, img.Pix)
}

func TestHighContrastStretchesAroundMidGrey(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 3, 1))
	copy(img.Pix, []byte{128, 128, 128, 255, 140, 100, 0, 255, 255, 200, 60, 255})
	GradeFor(GradeHighContrast).Apply(img, nil)

	assert.Equal(t, []byte{128, 128, 128}, img.Pix[0:3])
	assert.Equal(t, clampByte(contrastFactor*12+128), img.Pix[4])
	assert.Equal(t, uint8(0), img.Pix[6])
	assert.Equal(t, uint8(255), img.Pix[8])
}

func TestCyberpunkScanlines(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 9))
	for i := 0; i < len(img.Pix); i += 4 {
		copy(img.Pix[i:], []byte{100, 100, 100, 255})
	}
	GradeFor(GradeCyberpunk).Apply(img, nil)

	plain := img.RGBAAt(0, 1)
	assert.Equal(t, uint8(120), plain.R)
	assert.Equal(t, uint8(80), plain.G)
	assert.Equal(t, uint8(140), plain.B)

	line := img.RGBAAt(0, 8)
	assert.Equal(t, uint8(114), line.R, "0.95*120")
	assert.Equal(t, uint8(89), line.G, "80 + 0.05*(255-80)")
}

func TestVHSShiftsRedChannel(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 10, 1))
	for x := 0; x < 10; x++ {
		copy(img.Pix[x*4:], []byte{byte(x * 10), 50, 50, 255})
	}
	GradeFor(GradeVHS).Apply(img, rand.New(rand.NewSource(1)))

	// Red comes from three pixels to the right, then the scanline darkens
	// row 0 by 10%.
	assert.Equal(t, uint8(27), img.Pix[0])
	assert.Equal(t, uint8(45), img.Pix[1])
	assert.Equal(t, uint8(81), img.Pix[6*4], "0.9*90")
	assert.Equal(t, uint8(63), img.Pix[7*4], "the last three pixels keep their own red")
}

func TestTearShiftsRows(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 3))
	for x := 0; x < 4; x++ {
		img.Pix[4*4+x*4] = byte(x + 1)
	}
	tear(img, 1, 1, 2)
	assert.Equal(t, []byte{1, 2, 1, 2}, []byte{img.Pix[16], img.Pix[20], img.Pix[24], img.Pix[28]})
	assert.Equal(t, uint8(0), img.Pix[0], "rows outside the band are untouched")
}

func TestRandomGradesFollowSeed(t *testing.T) {
	for _, k := range []GradeKind{GradeNoir, GradeGlitch, Grade1980s} {
		a := noisyFrame(32, 16, 3)
		b := noisyFrame(32, 16, 3)
		GradeFor(k).Apply(a, rand.New(rand.NewSource(9)))
		GradeFor(k).Apply(b, rand.New(rand.NewSource(9)))
		require.Equal(t, a.Pix, b.Pix, string(k))
	}
}

func TestNoirIsGreyscale(t *testing.T) {
	img := noisyFrame(16, 16, 5)
	GradeFor(GradeNoir).Apply(img, rand.New(rand.NewSource(2)))
	for i := 0; i < len(img.Pix); i += 4 {
		assert.Equal(t, img.Pix[i], img.Pix[i+1])
		assert.Equal(t, img.Pix[i+1], img.Pix[i+2])
	}
}

func TestDreamyKeepsBlackAndWhite(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 1))
	copy(img.Pix, []byte{0, 0, 0, 255, 255, 255, 255, 255})
	GradeFor(GradeDreamy).Apply(img, nil)
	// Overlay never lifts pure black or darkens pure white.
	assert.Equal(t, []byte{0, 0, 0}, img.Pix[0:3])
	assert.Equal(t, []byte{255, 255, 255}, img.Pix[4:7])
}
