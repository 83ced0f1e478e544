package player

import (
	"path/filepath"
	"strings"

	"github.com/bogem/id3v2/v2"
)

// Metadata holds the tag fields the video overlays can use.
type Metadata struct {
	Title  string
	Artist string
	Album  string
	Year   string
}

// ReadMetadata reads ID3v2 tags, falling back to the file name as the
// title. Files without a tag (WAV, FLAC) always take the fallback.
func ReadMetadata(path string) Metadata {
	fallback := Metadata{Title: strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))}

	tag, err := id3v2.Open(path, id3v2.Options{
		Parse:       true,
		ParseFrames: []string{"Title", "Artist", "Album", "Year"},
	})
	if err != nil {
		return fallback
	}
	defer tag.Close()

	m := Metadata{
		Title:  strings.TrimSpace(tag.Title()),
		Artist: strings.TrimSpace(tag.Artist()),
		Album:  strings.TrimSpace(tag.Album()),
		Year:   strings.TrimSpace(tag.Year()),
	}
	if m.Title == "" {
		m.Title = fallback.Title
	}
	return m
}
