package video

import (
	"fmt"
	"image"
	"io"
	"os"

	"github.com/disintegration/imaging"
	"github.com/sirupsen/logrus"

	"github.com/olivier-w/beatboy/internal/compositor"
	"github.com/olivier-w/beatboy/internal/logging"
)

// Thumbnail frame parameters.
const (
	ThumbnailWidth   = 1920
	ThumbnailHeight  = 1080
	thumbnailAt      = 2000
	thumbnailLevel   = 50
	thumbnailCentred = 128
)

// Thumbnail composes a single still at two seconds in with a flat
// spectrum. The frame is always 1920×1080 regardless of aspect ratio.
// Assets should be loaded beforehand; pending ones are drawn as
// placeholders.
func Thumbnail(settings compositor.VideoSettings, assets compositor.Assets, log logrus.FieldLogger) (*image.RGBA, error) {
	opts := []compositor.Option{compositor.WithLogger(log)}
	if assets != nil {
		opts = append(opts, compositor.WithAssets(assets))
	}
	comp, err := compositor.New(settings, opts...)
	if err != nil {
		return nil, err
	}
	freq, wave := compositor.IdleSpectrum(compositor.BinCount, thumbnailLevel, thumbnailCentred)
	dst := image.NewRGBA(image.Rect(0, 0, ThumbnailWidth, ThumbnailHeight))
	comp.DrawFrame(dst, thumbnailAt, freq, wave)
	return dst, nil
}

// WriteThumbnail encodes a thumbnail as PNG to w.
func WriteThumbnail(w io.Writer, settings compositor.VideoSettings, assets compositor.Assets, log logrus.FieldLogger) error {
	img, err := Thumbnail(settings, assets, log)
	if err != nil {
		return err
	}
	if err := imaging.Encode(w, img, imaging.PNG); err != nil {
		return fmt.Errorf("encoding thumbnail: %w", err)
	}
	return nil
}

// WriteThumbnailFile writes the PNG to path.
func WriteThumbnailFile(path string, settings compositor.VideoSettings, assets compositor.Assets, log logrus.FieldLogger) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteThumbnail(f, settings, assets, log); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	logging.OrDiscard(log).WithFields(logrus.Fields{
		"function": "WriteThumbnailFile",
		"path":     path,
	}).Info("Wrote thumbnail")
	return nil
}
