package media

import (
	"path/filepath"
	"strings"
)

var audioExts = map[string]bool{
	".mp3":  true,
	".wav":  true,
	".flac": true,
	".ogg":  true,
	".aac":  true,
	".m4a":  true,
	".m4b":  true,
}

var playlistExts = map[string]bool{
	".m3u":  true,
	".m3u8": true,
	".pls":  true,
}

var videoExts = map[string]bool{
	".mp4":  true,
	".mov":  true,
	".webm": true,
	".mkv":  true,
	".m4v":  true,
}

// IsSupportedExt reports whether ext is a decodable audio format.
func IsSupportedExt(ext string) bool {
	return audioExts[strings.ToLower(ext)]
}

// IsPlaylistExt reports whether ext is a playlist format.
func IsPlaylistExt(ext string) bool {
	return playlistExts[strings.ToLower(ext)]
}

// IsVideoRef reports whether a background reference names a video file,
// judged by extension (URL query strings are ignored).
func IsVideoRef(ref string) bool {
	if i := strings.IndexAny(ref, "?#"); i >= 0 && isURL(ref) {
		ref = ref[:i]
	}
	return videoExts[strings.ToLower(filepath.Ext(ref))]
}

// SupportedExtsList returns the decodable formats for error messages.
func SupportedExtsList() string {
	return ".mp3, .wav, .flac, .ogg, .aac, .m4a, .m4b"
}
