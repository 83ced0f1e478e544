package archive

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// BulkArchiveName is the file name of a bulk export.
const BulkArchiveName = "BEATBOY_BULK_EXPORT.zip"

var invalidFilenameChars = regexp.MustCompile(`[\\/:*?"<>|]`)

// SanitizeFilename strips characters invalid in filenames and trims
// whitespace. Falls back to "untitled" if the result is empty.
func SanitizeFilename(name string) string {
	name = invalidFilenameChars.ReplaceAllString(name, "")
	name = strings.TrimSpace(name)
	if name == "" {
		return "untitled"
	}
	return name
}

// TaggedName names a track inside the bulk archive. The original
// extension is kept: "beat.mp3" becomes "TAGGED_beat.mp3.wav".
func TaggedName(original string) string {
	return "TAGGED_" + SanitizeFilename(filepath.Base(original)) + ".wav"
}

// ExportName names a single-track export.
func ExportName(original string) string {
	return "BEATBOY_EXPORT_" + SanitizeFilename(filepath.Base(original)) + ".wav"
}

// ThumbnailName names the thumbnail PNG for an artist.
func ThumbnailName(artist string) string {
	return "THUMBNAIL_" + SanitizeFilename(artist) + ".png"
}

// uniqueName returns name, or name with " (n)" before its extension when
// name is already in taken. The returned name is added to taken.
func uniqueName(name string, taken map[string]bool) string {
	candidate := name
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for n := 2; taken[candidate]; n++ {
		candidate = fmt.Sprintf("%s (%d)%s", stem, n, ext)
	}
	taken[candidate] = true
	return candidate
}
