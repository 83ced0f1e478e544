package compositor

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	"github.com/sirupsen/logrus"

	"github.com/olivier-w/beatboy/internal/downloader"
	"github.com/olivier-w/beatboy/internal/logging"
)

// Assets hands decoded images to the compositor without blocking. A
// reference that is still loading, or that failed, reports not ready.
type Assets interface {
	Get(ref string) (image.Image, bool)
}

const remoteAssetTimeout = 30 * time.Second

// openImage decodes a local file or an http(s) URL.
var openImage = func(ref string) (image.Image, error) {
	if !downloader.IsURL(ref) {
		return imaging.Open(ref, imaging.AutoOrientation(true))
	}
	ctx, cancel := context.WithTimeout(context.Background(), remoteAssetTimeout)
	defer cancel()
	body, kind, err := downloader.Open(ctx, ref)
	if err != nil {
		return nil, err
	}
	defer body.Close()
	if kind != downloader.KindImage && kind != downloader.KindUnknown {
		return nil, fmt.Errorf("%s is %s, not an image", ref, kind)
	}
	return imaging.Decode(body, imaging.AutoOrientation(true))
}

type assetEntry struct {
	done chan struct{}
	img  image.Image
	err  error
}

// AssetCache decodes artwork, logo and background images in the
// background. References are file paths or http(s) URLs; each is loaded
// at most once.
type AssetCache struct {
	mu      sync.Mutex
	entries map[string]*assetEntry
	log     logrus.FieldLogger
}

// NewAssetCache returns an empty cache. A nil logger discards.
func NewAssetCache(log logrus.FieldLogger) *AssetCache {
	return &AssetCache{
		entries: make(map[string]*assetEntry),
		log:     logging.OrDiscard(log),
	}
}

// Get returns the decoded image for ref. The first call starts the load
// and reports not ready.
func (c *AssetCache) Get(ref string) (image.Image, bool) {
	if ref == "" {
		return nil, false
	}
	e := c.entry(ref)
	select {
	case <-e.done:
		return e.img, e.err == nil
	default:
		return nil, false
	}
}

// Load blocks until ref is decoded.
func (c *AssetCache) Load(ref string) (image.Image, error) {
	if ref == "" {
		return nil, errors.New("empty asset reference")
	}
	e := c.entry(ref)
	<-e.done
	return e.img, e.err
}

// Preload waits for every non-empty reference. Failed references stay
// cached as failures so the compositor skips them.
func (c *AssetCache) Preload(refs ...string) error {
	var errs []error
	for _, ref := range refs {
		if ref == "" {
			continue
		}
		if _, err := c.Load(ref); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (c *AssetCache) entry(ref string) *assetEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[ref]; ok {
		return e
	}
	e := &assetEntry{done: make(chan struct{})}
	c.entries[ref] = e
	go c.load(ref, e)
	return e
}

func (c *AssetCache) load(ref string, e *assetEntry) {
	defer close(e.done)
	img, err := openImage(ref)
	if err != nil {
		e.err = err
		c.log.WithFields(logrus.Fields{
			"function": "AssetCache.load",
			"asset":    ref,
			"error":    err.Error(),
		}).Warn("Skipping asset that failed to decode")
		return
	}
	e.img = img
	c.log.WithFields(logrus.Fields{
		"function": "AssetCache.load",
		"asset":    ref,
		"width":    img.Bounds().Dx(),
		"height":   img.Bounds().Dy(),
	}).Debug("Asset decoded")
}
