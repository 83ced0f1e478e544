package video

import (
	"bytes"
	"image/png"
	"path/filepath"
	"testing"

	"github.com/olivier-w/beatboy/internal/compositor"
)

func TestWriteThumbnailPNG(t *testing.T) {
	for _, aspect := range []compositor.AspectRatio{compositor.AspectLandscape, compositor.AspectPortrait} {
		settings := smallSettings()
		settings.AspectRatio = aspect

		var buf bytes.Buffer
		if err := WriteThumbnail(&buf, settings, nil, nil); err != nil {
			t.Fatalf("WriteThumbnail(%s) error = %v", aspect, err)
		}
		img, err := png.Decode(&buf)
		if err != nil {
			t.Fatalf("png.Decode() error = %v", err)
		}
		if b := img.Bounds(); b.Dx() != ThumbnailWidth || b.Dy() != ThumbnailHeight {
			t.Fatalf("expected %dx%d thumbnail for %s, got %v", ThumbnailWidth, ThumbnailHeight, aspect, b)
		}
	}
}

func TestThumbnailIsDeterministic(t *testing.T) {
	settings := compositor.DefaultVideoSettings()
	settings.Visualizer = compositor.VisualizerTrapNation
	a, err := Thumbnail(settings, nil, nil)
	if err != nil {
		t.Fatalf("Thumbnail() error = %v", err)
	}
	b, err := Thumbnail(settings, nil, nil)
	if err != nil {
		t.Fatalf("Thumbnail() error = %v", err)
	}
	if !bytes.Equal(a.Pix, b.Pix) {
		t.Fatal("expected identical thumbnails")
	}
}

func TestWriteThumbnailFileRejectsBadSettings(t *testing.T) {
	settings := smallSettings()
	settings.ColorGrade = "teal-orange"
	path := filepath.Join(t.TempDir(), "THUMBNAIL_X.png")
	if err := WriteThumbnailFile(path, settings, nil, nil); err == nil {
		t.Fatal("expected error for unknown grade")
	}
}
