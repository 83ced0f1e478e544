package compositor

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stubOpenImage(t *testing.T, fn func(string) (image.Image, error)) {
	t.Helper()
	orig := openImage
	openImage = fn
	t.Cleanup(func() { openImage = orig })
}

func TestAssetCacheLoadsOnce(t *testing.T) {
	release := make(chan struct{})
	var mu sync.Mutex
	calls := map[string]int{}
	stubOpenImage(t, func(path string) (image.Image, error) {
		mu.Lock()
		calls[path]++
		mu.Unlock()
		<-release
		return image.NewRGBA(image.Rect(0, 0, 4, 2)), nil
	})

	c := NewAssetCache(nil)
	img, ok := c.Get("art.png")
	assert.False(t, ok, "first Get only starts the load")
	assert.Nil(t, img)

	close(release)
	img, err := c.Load("art.png")
	require.NoError(t, err)
	assert.Equal(t, 4, img.Bounds().Dx())

	img, ok = c.Get("art.png")
	assert.True(t, ok)
	assert.NotNil(t, img)

	mu.Lock()
	assert.Equal(t, 1, calls["art.png"])
	mu.Unlock()
}

func TestAssetCacheRemembersFailures(t *testing.T) {
	calls := 0
	var mu sync.Mutex
	stubOpenImage(t, func(string) (image.Image, error) {
		mu.Lock()
		calls++
		mu.Unlock()
		return nil, errors.New("not an image")
	})

	c := NewAssetCache(nil)
	err := c.Preload("bad.png", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not an image")

	for i := 0; i < 3; i++ {
		_, ok := c.Get("bad.png")
		assert.False(t, ok)
	}
	mu.Lock()
	assert.Equal(t, 1, calls)
	mu.Unlock()
}

func TestAssetCacheEmptyReference(t *testing.T) {
	c := NewAssetCache(nil)
	_, ok := c.Get("")
	assert.False(t, ok)
	_, err := c.Load("")
	assert.Error(t, err)
	assert.NoError(t, c.Preload())
}

func TestAssetCacheLoadsRemoteImage(t *testing.T) {
	var png bytes.Buffer
	require.NoError(t, imaging.Encode(&png, solid(6, 3, color.NRGBA{R: 200, A: 255}), imaging.PNG))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/cover.png":
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write(png.Bytes())
		case "/loop.mp4":
			w.Header().Set("Content-Type", "video/mp4")
			_, _ = w.Write([]byte("....ftyp"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewAssetCache(nil)
	img, err := c.Load(srv.URL + "/cover.png")
	require.NoError(t, err)
	assert.Equal(t, 6, img.Bounds().Dx())
	assert.Equal(t, 3, img.Bounds().Dy())

	_, err = c.Load(srv.URL + "/loop.mp4")
	assert.ErrorContains(t, err, "not an image")
	_, err = c.Load(srv.URL + "/gone.png")
	assert.Error(t, err)
}
