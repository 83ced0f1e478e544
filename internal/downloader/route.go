package downloader

import (
	"errors"
	"fmt"
	"mime"
	"net/url"
	"path"
	"strings"
)

// Kind is what a remote resource holds, judged from its content type and
// falling back to the URL's extension.
type Kind int

const (
	KindUnknown Kind = iota
	KindAudio
	KindImage
	KindVideo
)

func (k Kind) String() string {
	switch k {
	case KindAudio:
		return "audio"
	case KindImage:
		return "image"
	case KindVideo:
		return "video"
	default:
		return "unknown"
	}
}

// ErrUnsupportedScheme rejects anything but http and https.
var ErrUnsupportedScheme = errors.New("unsupported URL scheme")

// normalizeAndValidateURL trims whitespace and stray quotes (pasted
// shell arguments) and requires an absolute http(s) URL.
func normalizeAndValidateURL(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	s = strings.Trim(s, `"'`)
	s = strings.TrimSpace(s)
	u, err := url.Parse(s)
	if err != nil {
		return "", fmt.Errorf("invalid URL %q: %w", raw, err)
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", fmt.Errorf("%w %q", ErrUnsupportedScheme, u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid URL %q: missing host", raw)
	}
	return u.String(), nil
}

var extKinds = map[string]Kind{
	".mp3": KindAudio, ".wav": KindAudio, ".flac": KindAudio, ".ogg": KindAudio,
	".m4a": KindAudio, ".aac": KindAudio, ".m4b": KindAudio,
	".png": KindImage, ".jpg": KindImage, ".jpeg": KindImage, ".gif": KindImage,
	".bmp": KindImage, ".tif": KindImage, ".tiff": KindImage,
	".mp4": KindVideo, ".mov": KindVideo, ".webm": KindVideo, ".mkv": KindVideo,
}

// preferredExt maps content types whose mime.ExtensionsByType answer is
// platform dependent.
var preferredExt = map[string]string{
	"audio/mpeg":      ".mp3",
	"audio/wav":       ".wav",
	"audio/x-wav":     ".wav",
	"audio/wave":      ".wav",
	"audio/flac":      ".flac",
	"audio/x-flac":    ".flac",
	"audio/ogg":       ".ogg",
	"application/ogg": ".ogg",
	"audio/mp4":       ".m4a",
	"audio/aac":       ".aac",
	"image/png":       ".png",
	"image/jpeg":      ".jpg",
	"image/gif":       ".gif",
	"image/bmp":       ".bmp",
	"image/tiff":      ".tiff",
	"video/mp4":       ".mp4",
	"video/quicktime": ".mov",
	"video/webm":      ".webm",
}

func mediaType(contentType string) string {
	contentType = strings.TrimSpace(contentType)
	if contentType == "" {
		return ""
	}
	if mt, _, err := mime.ParseMediaType(contentType); err == nil {
		return strings.ToLower(mt)
	}
	return strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
}

func urlExt(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(path.Ext(u.Path))
}

func isAudioLikeContentType(mt string) bool {
	return strings.HasPrefix(mt, "audio/") || mt == "application/ogg"
}

// classify decides the Kind of a response.
func classify(contentType, rawURL string) Kind {
	mt := mediaType(contentType)
	switch {
	case isAudioLikeContentType(mt):
		return KindAudio
	case strings.HasPrefix(mt, "image/"):
		return KindImage
	case strings.HasPrefix(mt, "video/"):
		return KindVideo
	}
	return extKinds[urlExt(rawURL)]
}

// extensionFor picks the file extension for a downloaded resource. The
// URL's own extension wins when it is a known media type, so decoders
// that sniff by name keep working.
func extensionFor(contentType, rawURL string) string {
	if ext := urlExt(rawURL); extKinds[ext] != KindUnknown {
		return ext
	}
	mt := mediaType(contentType)
	if ext, ok := preferredExt[mt]; ok {
		return ext
	}
	if exts, err := mime.ExtensionsByType(mt); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ""
}

// baseName is the last path segment of rawURL without its extension.
func baseName(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	name, _ := url.PathUnescape(path.Base(u.Path))
	if name == "/" || name == "." {
		return ""
	}
	return strings.TrimSuffix(name, path.Ext(name))
}
